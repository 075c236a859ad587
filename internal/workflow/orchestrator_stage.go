package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"promptflow/internal/cache"
	"promptflow/internal/execlog"
	"promptflow/internal/logging"
	"promptflow/internal/retry"
	"promptflow/internal/services"
	"promptflow/internal/stage"
	"promptflow/internal/story"
)

// RunSingleStage executes one named stage against rc through the same cache
// and retry path a full run uses. A disabled stage is reported as skipped.
func (o *Orchestrator) RunSingleStage(ctx context.Context, name string, rc story.RunContext) (StageResult, error) {
	if !stage.Known(name) {
		return StageResult{Stage: name}, services.Wrap(
			services.ErrValidation, name, "lookup stage",
			fmt.Sprintf("unknown stage %q", name), nil)
	}
	p, ok := o.lookupStage(name)
	if !ok {
		return StageResult{Stage: name}, services.Wrap(
			services.ErrWorkflow, name, "lookup stage",
			"no handler registered for stage", nil)
	}

	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	runLog := execlog.New(runID)
	if settings, _ := o.cfg.Stage(name); !settings.Enabled {
		runLog.Append(execlog.Step{Stage: name, StartedAt: time.Now(), Skipped: true})
		o.metrics.StageSkipped(name, "disabled")
		return StageResult{Stage: name, Skipped: true, Log: runLog.Finish()}, nil
	}

	result, err := o.executeStage(ctx, runLog, p, rc)
	result.Log = runLog.Finish()
	if err != nil {
		o.handleStageFailure(ctx, name, err)
	}
	return result, err
}

// executeStage serves a stage from the cache or runs it under the retry
// controller, appending one log step per attempt.
func (o *Orchestrator) executeStage(ctx context.Context, runLog *execlog.Log, p pipelineStage, rc story.RunContext) (StageResult, error) {
	ctx = withStageContext(ctx, p.name, uuid.NewString())
	logger := o.stageLogger(ctx, p.name)
	settings, _ := o.cfg.Stage(p.name)
	start := time.Now()
	result := StageResult{Stage: p.name}

	key := o.cacheKey(ctx, p, rc)
	if key != "" {
		if delta, ok := o.cache.Get(key); ok {
			o.metrics.CacheLookup(p.name, true)
			result.Delta = delta
			result.FromCache = true
			result.Duration = time.Since(start)
			runLog.Append(execlog.Step{Stage: p.name, StartedAt: start, Duration: result.Duration, Success: true, FromCache: true})
			logger.Debug("stage served from cache",
				logging.String(logging.FieldEventType, "stage_cache_hit"),
				logging.Duration("stage_duration", result.Duration),
			)
			return result, nil
		}
		o.metrics.CacheLookup(p.name, false)
	}

	logger.Debug("stage started",
		logging.String(logging.FieldEventType, "stage_start"),
		logging.Duration("timeout", settings.Timeout()),
	)
	policy := retry.Policy{
		MaxRetries: o.cfg.Retry.MaxRetries,
		BaseDelay:  o.cfg.Retry.BaseDelay(),
		Timeout:    settings.Timeout(),
	}
	observe := func(a retry.Attempt) {
		runLog.Append(execlog.Step{
			Stage:      p.name,
			StartedAt:  a.StartedAt,
			Duration:   a.Duration,
			Success:    a.Err == nil,
			RetryCount: a.Retries(),
			Error:      execlog.Failure(a.Err),
		})
		o.metrics.ObserveAttempt(p.name, a.Retries(), a.Duration, a.Err)
		if a.Err != nil {
			logging.WarnWithContext(logger, "stage attempt failed", "stage_attempt_failed",
				logging.Int(logging.FieldAttempt, a.Number),
				logging.ErrorCode(string(services.CodeOf(a.Err))),
				logging.Error(a.Err),
				logging.String(logging.FieldErrorHint, retryHint(a.Err)),
			)
		}
	}

	stop := o.heartbeat.watch(ctx, logger, p.name)
	delta, outcome, err := retry.Do(ctx, p.name, policy, func(attemptCtx context.Context) (story.Delta, error) {
		return p.handler.Execute(attemptCtx, rc)
	}, observe)
	stop()

	result.Retries = outcome.Retries()
	result.Duration = time.Since(start)
	if err != nil {
		return result, err
	}
	result.Delta = delta

	if key != "" {
		if err := o.cache.Put(key, p.name, delta); err != nil {
			logging.WarnWithContext(logger, "stage result not cached", "cache_store_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "the next identical run recomputes this stage"),
			)
		}
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Int("retries", result.Retries),
		logging.Duration("stage_duration", result.Duration),
	)
	return result, nil
}

// cacheKey returns the stage's cache key, or "" when caching is off or the
// key cannot be derived.
func (o *Orchestrator) cacheKey(ctx context.Context, p pipelineStage, rc story.RunContext) string {
	if o.cache == nil {
		return ""
	}
	key, err := cache.Key(p.name, p.handler.CacheKey(rc))
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, o.logger), "cache key unavailable", "cache_key_failed",
			logging.Stage(p.name),
			logging.Error(err),
			logging.String(logging.FieldImpact, "stage runs without the result cache"),
		)
		return ""
	}
	return key
}

func retryHint(err error) string {
	if services.Retryable(err) {
		return "the attempt will be retried with backoff"
	}
	return "fix the input; this failure is not retried"
}
