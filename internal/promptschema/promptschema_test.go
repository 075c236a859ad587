package promptschema_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"promptflow/internal/promptschema"
	"promptflow/internal/services"
	"promptflow/internal/story"
)

func validPrompt() *story.VideoPlanetPrompt {
	return &story.VideoPlanetPrompt{
		ID:        "prompt-1",
		Version:   "1.0.0",
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Metadata: story.PromptMetadata{
			Title:      "Rain",
			Category:   "drama",
			Tags:       []string{"drama"},
			Difficulty: story.DifficultyBeginner,
		},
		PromptStructure: story.PromptStructure{
			ShotBreakdown: []story.Shot{{
				Number:           1,
				ActID:            "act-1",
				Description:      "Wide shot: rain on glass",
				CameraAngle:      story.AngleWide,
				Duration:         2.5,
				VisualElements:   []string{"window"},
				GenerationPrompt: "wide shot, rain on glass",
			}},
			NarrativeFlow: story.NarrativeFlow{
				Pacing:               story.PacingSlow,
				ActBoundaries:        []int{1},
				Transitions:          []string{},
				EmotionalProgression: []string{"calm"},
			},
		},
		QualityAssurance: story.QualityAssurance{
			Thresholds: story.QualityThresholds{MinConsistencyScore: 0.8},
			Approval:   story.ApprovalWorkflow{MaxRegenerationAttempts: 3},
		},
	}
}

func TestReady(t *testing.T) {
	if err := promptschema.Ready(); err != nil {
		t.Fatalf("schema failed to resolve: %v", err)
	}
	if !json.Valid(promptschema.Schema()) {
		t.Fatal("embedded schema is not valid JSON")
	}
}

func TestValidateAcceptsMinimalPrompt(t *testing.T) {
	if err := promptschema.Validate(validPrompt()); err != nil {
		t.Fatalf("expected valid prompt, got %v", err)
	}
}

func TestValidateRejectsViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *story.VideoPlanetPrompt)
	}{
		{"empty id", func(p *story.VideoPlanetPrompt) { p.ID = "" }},
		{"bad version", func(p *story.VideoPlanetPrompt) { p.Version = "v1" }},
		{"no shots", func(p *story.VideoPlanetPrompt) { p.PromptStructure.ShotBreakdown = []story.Shot{} }},
		{"unknown camera angle", func(p *story.VideoPlanetPrompt) { p.PromptStructure.ShotBreakdown[0].CameraAngle = "fisheye" }},
		{"zero duration", func(p *story.VideoPlanetPrompt) { p.PromptStructure.ShotBreakdown[0].Duration = 0 }},
		{"unknown difficulty", func(p *story.VideoPlanetPrompt) { p.Metadata.Difficulty = "expert" }},
		{"nil tags", func(p *story.VideoPlanetPrompt) { p.Metadata.Tags = nil }},
		{"bad resolution", func(p *story.VideoPlanetPrompt) {
			p.GenerationSettings = &story.GenerationSettings{
				Provider:   "runway",
				Model:      "gen-3-alpha",
				Parameters: story.GenerationParameters{Resolution: "full-hd", FPS: 24, AspectRatio: "16:9"},
				Batch:      story.BatchSettings{Concurrency: 1},
			}
		}},
		{"score out of range", func(p *story.VideoPlanetPrompt) { p.QualityAssurance.Thresholds.MinConsistencyScore = 1.5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := validPrompt()
			tt.mutate(p)
			err := promptschema.Validate(p)
			if !errors.Is(err, services.ErrSchemaValidation) {
				t.Fatalf("expected schema validation error, got %v", err)
			}
			if services.CodeOf(err) != services.CodeSchemaValidation {
				t.Fatalf("unexpected code %s", services.CodeOf(err))
			}
		})
	}
}

func TestValidateNilPrompt(t *testing.T) {
	if err := promptschema.Validate(nil); !errors.Is(err, services.ErrSchemaValidation) {
		t.Fatalf("expected schema validation error, got %v", err)
	}
}

func TestValidateJSONRejectsGarbage(t *testing.T) {
	err := promptschema.ValidateJSON([]byte("{not json"))
	if err == nil || !strings.Contains(err.Error(), "not valid JSON") {
		t.Fatalf("expected decode failure, got %v", err)
	}
}
