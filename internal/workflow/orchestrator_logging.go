package workflow

import (
	"context"
	"log/slog"

	"promptflow/internal/logging"
	"promptflow/internal/services"
)

// stageLogger tags the workflow logger with the context fields and applies
// any per-stage level override.
func (o *Orchestrator) stageLogger(ctx context.Context, stageName string) *slog.Logger {
	logger := logging.WithContext(ctx, o.logger)
	return logging.ForStage(logger, stageName, o.cfg.Logging.StageOverrides)
}

func withStageContext(ctx context.Context, stageName, requestID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if stageName != "" {
		ctx = services.WithStage(ctx, stageName)
	}
	if requestID != "" {
		ctx = services.WithRequestID(ctx, requestID)
	}
	return ctx
}
