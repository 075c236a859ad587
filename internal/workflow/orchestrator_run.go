package workflow

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"promptflow/internal/execlog"
	"promptflow/internal/logging"
	"promptflow/internal/services"
	"promptflow/internal/story"
)

// RunFullWorkflow executes every enabled stage in order for one input. The
// first stage that fails after its retries stops the run; the returned Result
// then carries the partial log and the error is marked services.ErrWorkflow.
func (o *Orchestrator) RunFullWorkflow(ctx context.Context, input story.StoryInput) (*Result, error) {
	return o.run(ctx, story.NewRunContext(input), false)
}

// ResumeWorkflow continues from a partially populated context. With
// optimization.reuse_generated_content enabled, stages whose output is already
// present are skipped; otherwise every stage runs again.
func (o *Orchestrator) ResumeWorkflow(ctx context.Context, rc story.RunContext) (*Result, error) {
	return o.run(ctx, rc, o.cfg.Optimization.ReuseGeneratedContent)
}

func (o *Orchestrator) run(ctx context.Context, rc story.RunContext, reuse bool) (*Result, error) {
	runID := uuid.NewString()
	ctx = services.WithRunID(ctx, runID)
	runLog := execlog.New(runID)
	logger := logging.WithContext(ctx, o.logger)
	state := StatePending

	logger.Info("workflow started",
		logging.String(logging.FieldEventType, "workflow_start"),
		logging.String("title", rc.Input.Title),
		logging.String("genre", string(rc.Input.Genre)),
		logging.Int("target_duration", rc.Input.TargetDuration),
	)

	pipeline := o.stagesSnapshot()
	if len(pipeline) == 0 {
		return o.failRun(ctx, runLog, rc, "", services.Wrap(services.ErrWorkflow, "", "configure stages", "no stages configured", nil))
	}

	for _, p := range pipeline {
		if err := ctx.Err(); err != nil {
			return o.failRun(ctx, runLog, rc, p.name, err)
		}
		if settings, _ := o.cfg.Stage(p.name); !settings.Enabled {
			o.skipStage(logger, runLog, p.name, "disabled")
			continue
		}
		if reuse && rc.Has(p.name) {
			o.skipStage(logger, runLog, p.name, "reused")
			continue
		}

		next := stateFor(p.name)
		logger.Debug("run state changed",
			logging.String("from", string(state)),
			logging.String("to", string(next)),
		)
		state = next

		result, err := o.executeStage(ctx, runLog, p, rc)
		if err != nil {
			o.handleStageFailure(ctx, p.name, err)
			return o.failRun(ctx, runLog, rc, p.name, err)
		}
		rc = rc.Apply(result.Delta)
	}

	final := rc.FinalPrompt()
	if final == nil {
		return o.failRun(ctx, runLog, rc, "", services.Wrap(
			services.ErrWorkflow, "", "collect result",
			"run finished without a prompt; enable the prompt generation stage", nil))
	}

	summary := runLog.Finish()
	o.metrics.RunFinished(true)
	if rc.QualityReport != nil {
		o.metrics.QualityScored(rc.QualityReport.OverallScore, rc.QualityReport.Optimized, final.Metadata.EstimatedTokens)
	}
	logger.Info("workflow completed",
		logging.String(logging.FieldEventType, "workflow_complete"),
		logging.String("prompt_id", final.ID),
		logging.Int("steps_completed", summary.StepsCompleted),
		logging.Int("steps_skipped", summary.StepsSkipped),
		logging.Duration("total_duration", summary.TotalDuration),
	)
	return &Result{
		RunID:         runID,
		Success:       true,
		State:         StateDone,
		FinalPrompt:   final,
		QualityReport: rc.QualityReport,
		Log:           summary,
		Context:       rc,
	}, nil
}

func (o *Orchestrator) skipStage(logger *slog.Logger, runLog *execlog.Log, stageName, reason string) {
	runLog.Append(execlog.Step{Stage: stageName, StartedAt: time.Now(), Skipped: true, Reused: reason == "reused"})
	o.metrics.StageSkipped(stageName, reason)
	logger.Debug("stage skipped",
		logging.Stage(stageName),
		logging.String("reason", reason),
		logging.String(logging.FieldEventType, "stage_skipped"),
	)
}
