package stage

import (
	"context"

	"promptflow/internal/story"
)

// Handler describes the contract the orchestrator needs from each stage.
//
// Execute must be total: malformed context is reported as an error wrapping
// services.ErrValidation, never as a panic. CacheKey returns the subset of the
// context that determines the output; it must be JSON encodable.
type Handler interface {
	Name() string
	Execute(context.Context, story.RunContext) (story.Delta, error)
	CacheKey(story.RunContext) any
	HealthCheck(context.Context) Health
}

// Stage names in pipeline order.
const (
	StoryAnalysis     = story.StageStoryAnalysis
	FourActGeneration = story.StageFourActGeneration
	ShotBreakdown     = story.StageShotBreakdown
	PromptGeneration  = story.StagePromptGeneration
	QualityValidation = story.StageQualityValidation
)

var order = []string{StoryAnalysis, FourActGeneration, ShotBreakdown, PromptGeneration, QualityValidation}

// Names returns the stage names in execution order.
func Names() []string {
	return append([]string(nil), order...)
}

// Index returns the 0-based position of a stage, or -1 when unknown.
func Index(name string) int {
	for i, candidate := range order {
		if candidate == name {
			return i
		}
	}
	return -1
}

// Known reports whether name is a pipeline stage.
func Known(name string) bool {
	return Index(name) >= 0
}
