package services_test

import (
	"context"
	"testing"

	"promptflow/internal/services"
)

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithRunID(ctx, "run-42")
	ctx = services.WithStage(ctx, "shotBreakdown")
	ctx = services.WithBatchIndex(ctx, 3)
	ctx = services.WithRequestID(ctx, "req-123")

	if id, ok := services.RunIDFromContext(ctx); !ok || id != "run-42" {
		t.Fatalf("unexpected run id: %v %v", id, ok)
	}
	if stage, ok := services.StageFromContext(ctx); !ok || stage != "shotBreakdown" {
		t.Fatalf("unexpected stage: %v %v", stage, ok)
	}
	if idx, ok := services.BatchIndexFromContext(ctx); !ok || idx != 3 {
		t.Fatalf("unexpected batch index: %v %v", idx, ok)
	}
	if rid, ok := services.RequestIDFromContext(ctx); !ok || rid != "req-123" {
		t.Fatalf("unexpected request id: %v %v", rid, ok)
	}
}

func TestStageBlankPreservesContext(t *testing.T) {
	ctx := context.Background()
	ctx = services.WithStage(ctx, "")
	if _, ok := services.StageFromContext(ctx); ok {
		t.Fatal("expected no stage value")
	}
	if _, ok := services.BatchIndexFromContext(ctx); ok {
		t.Fatal("expected no batch index")
	}
}
