package workflow

import (
	"context"
	"fmt"
	"strings"

	"promptflow/internal/logging"
	"promptflow/internal/preflight"
	"promptflow/internal/services"
)

// Preflight validates the configuration, the configured directories, and the
// health of every enabled stage before work starts. It returns nil when all checks pass, or a WORKFLOW_ERROR
// describing every failure.
func (o *Orchestrator) Preflight(ctx context.Context) error {
	logger := logging.WithContext(ctx, o.logger)
	var failures []string
	if err := o.cfg.Validate(); err != nil {
		failures = append(failures, fmt.Sprintf("config: %v", err))
	}
	for _, check := range preflight.Failed(preflight.RunAll(o.cfg)) {
		logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", check.Name),
			logging.String("detail", check.Detail),
			logging.String(logging.FieldErrorHint, "create the directory or fix its permissions"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", check.Name, check.Detail))
	}

	for _, status := range o.StageStatus(ctx) {
		if !status.Enabled {
			continue
		}
		if status.Health.Ready {
			logger.Debug("preflight check passed",
				logging.String("check", status.Name),
				logging.String("detail", status.Health.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logging.ErrorWithContext(logger, "preflight check failed", "preflight_failed",
			logging.String("check", status.Name),
			logging.String("detail", status.Health.Detail),
			logging.String(logging.FieldErrorHint, "fix the reported stage or disable it in the config"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", status.Name, status.Health.Detail))
	}

	if len(failures) > 0 {
		return services.Wrap(services.ErrWorkflow, "", "preflight",
			"preflight checks failed: "+strings.Join(failures, "; "), nil)
	}
	return nil
}
