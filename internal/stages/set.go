package stages

import (
	"log/slog"

	"promptflow/internal/config"
	"promptflow/internal/stage"
	"promptflow/internal/tokens"
)

// Defaults returns the five built-in stage handlers in pipeline order.
func Defaults(cfg *config.Config, counter tokens.Counter, logger *slog.Logger) []stage.Handler {
	return []stage.Handler{
		NewStoryAnalysis(logger),
		NewFourActGeneration(logger),
		NewShotBreakdown(logger),
		NewPromptGeneration(cfg, counter, logger),
		NewQualityValidation(cfg, counter, logger),
	}
}
