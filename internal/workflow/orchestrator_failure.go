package workflow

import (
	"context"
	"fmt"
	"strings"

	"promptflow/internal/execlog"
	"promptflow/internal/logging"
	"promptflow/internal/services"
	"promptflow/internal/story"
)

func (o *Orchestrator) handleStageFailure(ctx context.Context, stageName string, stageErr error) {
	logger := o.stageLogger(withStageContext(ctx, stageName, ""), stageName)
	details := services.Details(stageErr)
	attrs := []logging.Attr{
		logging.String("error_message", strings.TrimSpace(o.classifyStageFailure(stageName, stageErr))),
		logging.Alert("stage_failure"),
		logging.ErrorCode(string(details.Code)),
		logging.String("error_operation", details.Operation),
		logging.String(logging.FieldErrorHint, failureHint(details.Code)),
	}
	if details.Cause != nil {
		attrs = append(attrs, logging.Error(details.Cause))
	} else {
		attrs = append(attrs, logging.Error(stageErr))
	}
	attrs = append(attrs, logging.String(logging.FieldEventType, "stage_failure"))
	logger.Error("stage failed", logging.Args(attrs...)...)
	o.setLastError(stageErr)
}

func (o *Orchestrator) classifyStageFailure(stageName string, stageErr error) string {
	if stageErr == nil {
		return stageFailureMessage(stageName, "failed without error detail")
	}
	message := strings.TrimSpace(services.Details(stageErr).Message)
	if message == "" {
		message = strings.TrimSpace(stageErr.Error())
	}
	if message == "" {
		message = stageFailureMessage(stageName, "failed")
	}
	return message
}

func stageFailureMessage(stageName, defaultMsg string) string {
	if stageName != "" {
		return fmt.Sprintf("%s %s", stageName, defaultMsg)
	}
	return fmt.Sprintf("workflow %s", defaultMsg)
}

func failureHint(code services.Code) string {
	switch code {
	case services.CodeValidation:
		return "fix the story input or run the earlier stages first"
	case services.CodeSchemaValidation:
		return "the generated prompt violates the prompt schema; check generation settings"
	case services.CodeTimeout:
		return "raise the stage timeout_ms or investigate the slow stage"
	case services.CodeMaxRetries:
		return "the stage kept failing; inspect the execution log for each attempt"
	default:
		return "check logs for details"
	}
}

// failRun freezes the log and builds the failed Result together with the
// WORKFLOW_ERROR returned to the caller.
func (o *Orchestrator) failRun(ctx context.Context, runLog *execlog.Log, rc story.RunContext, stageName string, cause error) (*Result, error) {
	message := "workflow stopped"
	if stageName != "" {
		message = fmt.Sprintf("stage %s failed", stageName)
	}
	err := services.Wrap(services.ErrWorkflow, stageName, "run workflow", message, cause)
	details := services.Details(err)
	summary := runLog.Finish()
	o.metrics.RunFinished(false)
	o.setLastError(err)

	logging.ErrorWithContext(logging.WithContext(ctx, o.logger), "workflow failed", "workflow_failed",
		logging.String("failed_stage", stageName),
		logging.ErrorCode(string(details.Code)),
		logging.Int("steps_completed", summary.StepsCompleted),
		logging.Error(err),
	)
	return &Result{
		RunID:       runLog.RunID(),
		Success:     false,
		State:       StateFailed,
		FailedStage: stageName,
		Log:         summary,
		Error:       &details,
		Context:     rc,
		Err:         err,
	}, err
}
