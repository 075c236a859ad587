package workflow_test

import (
	"context"
	"errors"
	"testing"

	"promptflow/internal/config"
	"promptflow/internal/metrics"
	"promptflow/internal/services"
	"promptflow/internal/stage"
	"promptflow/internal/story"
	"promptflow/internal/workflow"
)

func TestBatchContinueOnErrorCollectsEveryResult(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Enabled = true
	cfg.Batch.BatchSize = 3
	cfg.Batch.ParallelSteps = true
	cfg.Batch.FailureHandling = config.FailureContinueOnError
	orch := newOrchestrator(t, cfg)

	inputs := []story.StoryInput{inputTitled("첫 번째"), inputTitled("   "), inputTitled("세 번째")}
	results, err := orch.RunBatch(context.Background(), inputs)
	if err != nil {
		t.Fatalf("continue_on_error returned error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	failed := 0
	for i, res := range results {
		if res.BatchIndex != i {
			t.Fatalf("result %d carries batch index %d", i, res.BatchIndex)
		}
		if !res.Success {
			failed++
			if res.Error == nil || res.Error.CauseCode != services.CodeValidation {
				t.Fatalf("expected validation cause, got %+v", res.Error)
			}
		}
	}
	if failed != 1 || results[1].Success {
		t.Fatalf("expected only the blank title to fail, failed=%d", failed)
	}
	if results[0].RunID == results[2].RunID {
		t.Fatal("expected distinct run ids")
	}
}

func TestBatchDisabledRunsEveryInputInOrder(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Enabled = false
	cfg.Batch.FailureHandling = config.FailureStopOnError
	orch := newOrchestrator(t, cfg)

	inputs := []story.StoryInput{inputTitled("가"), inputTitled(""), inputTitled("다")}
	results, err := orch.RunBatch(context.Background(), inputs)
	if err != nil {
		t.Fatalf("disabled batching returned error: %v", err)
	}
	if len(results) != len(inputs) {
		t.Fatalf("expected %d results, got %d", len(inputs), len(results))
	}
	for i, res := range results {
		if res.BatchIndex != i {
			t.Fatalf("result %d carries batch index %d", i, res.BatchIndex)
		}
	}
	if !results[0].Success || results[1].Success || !results[2].Success {
		t.Fatalf("unexpected outcomes: %v %v %v", results[0].Success, results[1].Success, results[2].Success)
	}
	if results[1].Error == nil || results[1].Error.CauseCode != services.CodeValidation {
		t.Fatalf("expected validation cause, got %+v", results[1].Error)
	}
}

func TestBatchStopOnErrorReturnsPartialResults(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Enabled = true
	cfg.Batch.BatchSize = 1
	cfg.Batch.FailureHandling = config.FailureStopOnError
	orch := newOrchestrator(t, cfg)

	inputs := []story.StoryInput{inputTitled("앞"), inputTitled(""), inputTitled("뒤")}
	results, err := orch.RunBatch(context.Background(), inputs)
	if err == nil {
		t.Fatal("expected batch error")
	}
	if !errors.Is(err, services.ErrWorkflow) || !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected the failed run's workflow error, got %v", err)
	}
	if errors.Is(err, services.ErrBatchProcessing) {
		t.Fatalf("stop_on_error must not reclassify the failure: %v", err)
	}
	if code := services.CodeOf(err); code != services.CodeWorkflow {
		t.Fatalf("expected %s, got %s", services.CodeWorkflow, code)
	}
	if len(results) != 2 {
		t.Fatalf("expected results up to the failure, got %d", len(results))
	}
	if !results[0].Success || results[1].Success {
		t.Fatalf("unexpected outcomes: %v %v", results[0].Success, results[1].Success)
	}
}

func TestBatchStopOnErrorParallelGroup(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Enabled = true
	cfg.Batch.BatchSize = 2
	cfg.Batch.ParallelSteps = true
	cfg.Batch.FailureHandling = config.FailureStopOnError
	orch := newOrchestrator(t, cfg)

	inputs := []story.StoryInput{inputTitled(""), inputTitled("둘"), inputTitled("셋"), inputTitled("넷")}
	results, err := orch.RunBatch(context.Background(), inputs)
	if services.CodeOf(err) != services.CodeWorkflow {
		t.Fatalf("expected workflow error, got %v", err)
	}
	if len(results) == 0 || len(results) > 2 {
		t.Fatalf("expected only the first group to run, got %d results", len(results))
	}
}

func TestBatchRetryFailedRerunsTransientFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Retry.MaxRetries = 0
	cfg.Batch.Enabled = true
	cfg.Batch.BatchSize = 1
	cfg.Batch.FailureHandling = config.FailureRetryFailed
	flaky := &scriptedStage{}
	set := stageSet(cfg, func(s *workflow.StageSet) {
		flaky.Handler = s.FourActGeneration
		flaky.failFirst = 1
		s.FourActGeneration = flaky
	})
	orch := newOrchestrator(t, cfg, workflow.WithStages(set))

	results, err := orch.RunBatch(context.Background(), []story.StoryInput{cafeInput()})
	if err != nil {
		t.Fatalf("retry_failed returned error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	res := results[0]
	if !res.Success || !res.Retried {
		t.Fatalf("expected a successful retried result, got success=%v retried=%v", res.Success, res.Retried)
	}
	if got := flaky.calls.Load(); got != 2 {
		t.Fatalf("expected 2 calls, got %d", got)
	}
}

func TestBatchRetryFailedSkipsValidationFailures(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.Enabled = true
	cfg.Batch.FailureHandling = config.FailureRetryFailed
	counted := &scriptedStage{}
	set := stageSet(cfg, func(s *workflow.StageSet) {
		counted.Handler = s.StoryAnalysis
		s.StoryAnalysis = counted
	})
	orch := newOrchestrator(t, cfg, workflow.WithStages(set))

	results, err := orch.RunBatch(context.Background(), []story.StoryInput{inputTitled("")})
	if err != nil {
		t.Fatalf("retry_failed returned error: %v", err)
	}
	if results[0].Success || results[0].Retried {
		t.Fatalf("expected an unretried failure, got success=%v retried=%v", results[0].Success, results[0].Retried)
	}
	if got := counted.calls.Load(); got != 1 {
		t.Fatalf("expected a single analysis call, got %d", got)
	}
}

func TestBatchRecoversPanickingInput(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.FailureHandling = config.FailureContinueOnError
	set := stageSet(cfg, func(s *workflow.StageSet) {
		s.StoryAnalysis = &scriptedStage{Handler: s.StoryAnalysis, panicTitle: "폭발"}
	})
	orch := newOrchestrator(t, cfg, workflow.WithStages(set))

	results, err := orch.RunBatch(context.Background(), []story.StoryInput{inputTitled("폭발"), cafeInput()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results[0].Success || results[0].Error == nil || results[0].Error.Code != services.CodeBatchProcessing {
		t.Fatalf("expected panic converted to batch error, got %+v", results[0].Error)
	}
	if results[0].State != workflow.StateFailed {
		t.Fatalf("expected failed state, got %s", results[0].State)
	}
	if !results[1].Success {
		t.Fatalf("expected second input to succeed: %v", results[1].Err)
	}
}

func TestBatchRecordsMemberMetrics(t *testing.T) {
	cfg := testConfig(t)
	cfg.Batch.FailureHandling = config.FailureContinueOnError
	m := metrics.New()
	orch := newOrchestrator(t, cfg, workflow.WithMetrics(m))

	if _, err := orch.RunBatch(context.Background(), []story.StoryInput{cafeInput(), inputTitled("")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	samples, err := m.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got := map[string]float64{}
	for _, s := range samples {
		got[s.Name+"{"+s.Labels+"}"] = s.Value
	}
	if got["promptflow_batch_inputs_total{result=success}"] != 1 || got["promptflow_batch_inputs_total{result=failure}"] != 1 {
		t.Fatalf("unexpected batch metrics: %v", got)
	}
}

var _ stage.Handler = (*scriptedStage)(nil)
