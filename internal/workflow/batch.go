package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"promptflow/internal/config"
	"promptflow/internal/logging"
	"promptflow/internal/services"
	"promptflow/internal/story"
)

// RunBatch runs many inputs. With batching disabled inputs run one at a time
// and every input yields exactly one result, whatever failure_handling says.
// Otherwise they are split into groups of batch_size; groups run sequentially
// and members of a group run concurrently when parallel_steps is set.
//
// Under stop_on_error the first failed input cancels its group and its
// workflow error is returned alongside the results gathered so far. Under
// continue_on_error and retry_failed every input yields exactly one result and
// the error is nil; retry_failed runs each failed input once more after its
// group unless the failure was a validation error.
func (o *Orchestrator) RunBatch(ctx context.Context, inputs []story.StoryInput) ([]*Result, error) {
	if !o.cfg.Batch.Enabled {
		return o.runSequential(ctx, inputs), nil
	}
	size := max(o.cfg.Batch.BatchSize, 1)
	parallel := o.cfg.Batch.ParallelSteps
	mode := o.cfg.Batch.FailureHandling
	logger := o.logger.With(logging.String("failure_handling", mode))
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("inputs", len(inputs)),
		logging.Int("group_size", size),
		logging.Bool("parallel", parallel),
	)

	results := make([]*Result, len(inputs))
	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))
		err := o.runGroup(ctx, inputs, results, start, end, parallel, mode)
		if mode == config.FailureRetryFailed {
			o.retryFailed(ctx, inputs, results, start, end)
		}
		if err != nil {
			gathered := compactResults(results)
			logging.ErrorWithContext(logger, "batch stopped", "batch_stopped",
				logging.Int("results", len(gathered)),
				logging.ErrorCode(string(services.CodeOf(err))),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "use continue_on_error to collect every failure"),
			)
			return gathered, err
		}
	}

	logBatchComplete(logger, results)
	return results, nil
}

// runSequential runs each input through the full workflow in order and never
// stops early.
func (o *Orchestrator) runSequential(ctx context.Context, inputs []story.StoryInput) []*Result {
	logger := o.logger.With(logging.Bool("batching", false))
	logger.Info("batch started",
		logging.String(logging.FieldEventType, "batch_start"),
		logging.Int("inputs", len(inputs)),
	)
	results := make([]*Result, 0, len(inputs))
	for i, input := range inputs {
		results = append(results, o.runMember(ctx, i, input))
	}
	logBatchComplete(logger, results)
	return results
}

func logBatchComplete(logger *slog.Logger, results []*Result) {
	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	logger.Info("batch completed",
		logging.String(logging.FieldEventType, "batch_complete"),
		logging.Int("inputs", len(results)),
		logging.Int("failed", failed),
	)
}

func (o *Orchestrator) runGroup(ctx context.Context, inputs []story.StoryInput, results []*Result, start, end int, parallel bool, mode string) error {
	if mode != config.FailureStopOnError {
		var g errgroup.Group
		if !parallel {
			g.SetLimit(1)
		}
		for i := start; i < end; i++ {
			g.Go(func() error {
				results[i] = o.runMember(ctx, i, inputs[i])
				return nil
			})
		}
		return g.Wait()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	if !parallel {
		g.SetLimit(1)
	}
	for i := start; i < end; i++ {
		g.Go(func() error {
			if groupCtx.Err() != nil {
				return nil
			}
			res := o.runMember(groupCtx, i, inputs[i])
			results[i] = res
			if res.Success {
				return nil
			}
			if res.Err == nil {
				return services.Wrap(services.ErrBatchProcessing, res.FailedStage, "run batch",
					fmt.Sprintf("input %d failed without an error", i), nil)
			}
			return fmt.Errorf("batch input %d: %w", i, res.Err)
		})
	}
	return g.Wait()
}

func (o *Orchestrator) retryFailed(ctx context.Context, inputs []story.StoryInput, results []*Result, start, end int) {
	for i := start; i < end; i++ {
		res := results[i]
		if res == nil || res.Success || !retryableFailure(res.Err) {
			continue
		}
		o.logger.Info("retrying failed batch input",
			logging.Int(logging.FieldBatchIndex, i),
			logging.String("failed_stage", res.FailedStage),
			logging.String(logging.FieldEventType, "batch_retry"),
		)
		again := o.runMember(ctx, i, inputs[i])
		again.Retried = true
		results[i] = again
	}
}

func retryableFailure(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, services.ErrValidation) && !errors.Is(err, services.ErrSchemaValidation)
}

// runMember runs one input and converts a panic into a failed result.
func (o *Orchestrator) runMember(ctx context.Context, index int, input story.StoryInput) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			err := services.Wrap(services.ErrBatchProcessing, "", "run batch",
				fmt.Sprintf("input %d panicked: %v", index, r), nil)
			details := services.Details(err)
			res = &Result{BatchIndex: index, State: StateFailed, Error: &details, Err: err, Context: story.NewRunContext(input)}
		}
		o.metrics.BatchInput(res.Success)
	}()

	res, _ = o.RunFullWorkflow(services.WithBatchIndex(ctx, index), input)
	res.BatchIndex = index
	return res
}

func compactResults(results []*Result) []*Result {
	out := make([]*Result, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}
