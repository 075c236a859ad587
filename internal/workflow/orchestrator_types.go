package workflow

import (
	"log/slog"
	"time"

	"promptflow/internal/config"
	"promptflow/internal/execlog"
	"promptflow/internal/services"
	"promptflow/internal/stage"
	"promptflow/internal/stages"
	"promptflow/internal/story"
	"promptflow/internal/tokens"
)

// StageSet bundles the concrete handlers the orchestrator runs. Nil handlers
// are left out of the pipeline.
type StageSet struct {
	StoryAnalysis     stage.Handler
	FourActGeneration stage.Handler
	ShotBreakdown     stage.Handler
	PromptGeneration  stage.Handler
	QualityValidation stage.Handler
}

// DefaultStageSet returns the built-in handlers.
func DefaultStageSet(cfg *config.Config, counter tokens.Counter, logger *slog.Logger) StageSet {
	handlers := stages.Defaults(cfg, counter, logger)
	return StageSet{
		StoryAnalysis:     handlers[0],
		FourActGeneration: handlers[1],
		ShotBreakdown:     handlers[2],
		PromptGeneration:  handlers[3],
		QualityValidation: handlers[4],
	}
}

type pipelineStage struct {
	name    string
	handler stage.Handler
}

// RunState tracks where a run is in the pipeline.
type RunState string

const (
	StatePending           RunState = "pending"
	StateStoryAnalysis     RunState = "analyzing_story"
	StateFourActGeneration RunState = "generating_acts"
	StateShotBreakdown     RunState = "breaking_down_shots"
	StatePromptGeneration  RunState = "generating_prompt"
	StateQualityValidation RunState = "validating_quality"
	StateDone              RunState = "done"
	StateFailed            RunState = "failed"
)

func stateFor(stageName string) RunState {
	switch stageName {
	case stage.StoryAnalysis:
		return StateStoryAnalysis
	case stage.FourActGeneration:
		return StateFourActGeneration
	case stage.ShotBreakdown:
		return StateShotBreakdown
	case stage.PromptGeneration:
		return StatePromptGeneration
	case stage.QualityValidation:
		return StateQualityValidation
	default:
		return StatePending
	}
}

// StageResult is the outcome of one stage execution.
type StageResult struct {
	Stage     string          `json:"stage"`
	Delta     story.Delta     `json:"delta"`
	FromCache bool            `json:"fromCache"`
	Skipped   bool            `json:"skipped,omitempty"`
	Retries   int             `json:"retries"`
	Duration  time.Duration   `json:"duration"`
	Log       execlog.Summary `json:"log"`
}

// Result is the outcome of one workflow run. Failed runs carry the partial
// log and the context as it stood when the run stopped.
type Result struct {
	RunID         string                   `json:"runId"`
	BatchIndex    int                      `json:"batchIndex"`
	Success       bool                     `json:"success"`
	State         RunState                 `json:"state"`
	FailedStage   string                   `json:"failedStage,omitempty"`
	Retried       bool                     `json:"retried,omitempty"`
	FinalPrompt   *story.VideoPlanetPrompt `json:"finalPrompt,omitempty"`
	QualityReport *story.QualityReport     `json:"qualityReport,omitempty"`
	Log           execlog.Summary          `json:"executionLog"`
	Error         *services.ErrorDetails   `json:"error,omitempty"`
	Context       story.RunContext         `json:"-"`
	Err           error                    `json:"-"`
}
