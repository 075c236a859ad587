package stages

import (
	"context"
	"log/slog"

	"promptflow/internal/config"
	"promptflow/internal/logging"
	"promptflow/internal/quality"
	"promptflow/internal/stage"
	"promptflow/internal/story"
	"promptflow/internal/tokens"
)

// QualityValidation scores the generated prompt and produces the optimized
// copy. It never fails a run because of a low score.
type QualityValidation struct {
	cfg     *config.Config
	counter tokens.Counter
	logger  *slog.Logger
}

// NewQualityValidation constructs the quality gate stage.
func NewQualityValidation(cfg *config.Config, counter tokens.Counter, logger *slog.Logger) *QualityValidation {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if counter == nil {
		counter = tokens.Heuristic{}
	}
	return &QualityValidation{
		cfg:     cfg,
		counter: counter,
		logger:  logging.NewComponentLogger(logger, "quality-validation"),
	}
}

func (q *QualityValidation) Name() string { return stage.QualityValidation }

type qualityKey struct {
	TargetDuration int                      `json:"targetDuration"`
	Characters     int                      `json:"characters"`
	Gates          config.QualityGates      `json:"gates"`
	Cost           bool                     `json:"costOptimization"`
	Concurrency    int                      `json:"concurrency"`
	Tokenizer      string                   `json:"tokenizer"`
	Prompt         *story.VideoPlanetPrompt `json:"prompt"`
}

func (q *QualityValidation) CacheKey(rc story.RunContext) any {
	return qualityKey{
		TargetDuration: rc.Input.TargetDuration,
		Characters:     len(rc.Input.Characters),
		Gates:          q.cfg.QualityGates,
		Cost:           q.cfg.Optimization.CostOptimization,
		Concurrency:    q.cfg.Generation.Concurrency,
		Tokenizer:      q.counter.Name(),
		Prompt:         rc.VideoPlanetPrompt,
	}
}

func (q *QualityValidation) Execute(ctx context.Context, rc story.RunContext) (story.Delta, error) {
	if err := ctx.Err(); err != nil {
		return story.Delta{}, err
	}
	if err := stage.Require(q.Name(), rc.VideoPlanetPrompt != nil, "videoPlanetPrompt"); err != nil {
		return story.Delta{}, err
	}

	report, optimized := quality.Evaluate(rc.VideoPlanetPrompt, q.options(rc.Input))
	logger := logging.WithContext(ctx, q.logger)
	attrs := []logging.Attr{
		logging.Float64("overall_score", report.OverallScore),
		logging.Float64("threshold", report.Threshold),
		logging.Int("issues", len(report.Issues)),
		logging.Bool("optimized", report.Optimized),
		logging.Float64("estimated_cost", report.EstimatedCost),
	}
	if report.Passed() {
		logger.Debug("quality gate passed", logging.Args(attrs...)...)
	} else {
		logging.WarnWithContext(logger, "quality gate below threshold", "quality_below_threshold",
			append(attrs,
				logging.String(logging.FieldErrorHint, "review the optimized prompt before generation"),
				logging.String(logging.FieldImpact, "prompt was deduplicated automatically"),
			)...,
		)
	}
	return story.Delta{QualityReport: &report, OptimizedPrompt: optimized}, nil
}

func (q *QualityValidation) HealthCheck(context.Context) stage.Health {
	h := stage.Healthy(q.Name())
	h.Detail = "tokenizer " + q.counter.Name()
	return h
}

func (q *QualityValidation) options(in story.StoryInput) quality.Options {
	gates := q.cfg.QualityGates
	return quality.Options{
		MinConsistencyScore:     gates.MinConsistencyScore,
		MaxRegenerationAttempts: gates.MaxRegenerationAttempts,
		RequireManualApproval:   gates.RequireManualApproval,
		CostOptimization:        q.cfg.Optimization.CostOptimization,
		Concurrency:             q.cfg.Generation.Concurrency,
		TargetDuration:          in.TargetDuration,
		Characters:              len(in.Characters),
		Counter:                 q.counter,
	}
}
