package stages

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"promptflow/internal/config"
	"promptflow/internal/logging"
	"promptflow/internal/promptschema"
	"promptflow/internal/stage"
	"promptflow/internal/story"
	"promptflow/internal/tokens"
)

// PromptVersion is the artifact format version stamped on every prompt.
const PromptVersion = "1.0.0"

const (
	guidanceScale        = 7.5
	characterConsistency = 0.8
)

// PromptGeneration assembles the final VideoPlanetPrompt from the shot
// breakdown, the story style, and the generation settings.
type PromptGeneration struct {
	cfg     *config.Config
	counter tokens.Counter
	logger  *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewPromptGeneration constructs the prompt generation stage. A nil cfg uses
// the defaults and a nil counter uses the heuristic tokenizer.
func NewPromptGeneration(cfg *config.Config, counter tokens.Counter, logger *slog.Logger) *PromptGeneration {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if counter == nil {
		counter = tokens.Heuristic{}
	}
	return &PromptGeneration{
		cfg:     cfg,
		counter: counter,
		logger:  logging.NewComponentLogger(logger, "prompt-generation"),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

func (p *PromptGeneration) Name() string { return stage.PromptGeneration }

type generationFingerprint struct {
	Generation       config.Generation   `json:"generation"`
	QualityGates     config.QualityGates `json:"qualityGates"`
	CostOptimization bool                `json:"costOptimization"`
	BatchEnabled     bool                `json:"batchEnabled"`
	MaxRetries       int                 `json:"maxRetries"`
	Tokenizer        string              `json:"tokenizer"`
}

type promptGenerationKey struct {
	shotBreakdownKey
	Analyzed *story.AnalyzedStory  `json:"analyzed"`
	Shots    *story.ShotBreakdown  `json:"shots"`
	Config   generationFingerprint `json:"config"`
}

func (p *PromptGeneration) CacheKey(rc story.RunContext) any {
	in := rc.Input
	return promptGenerationKey{
		shotBreakdownKey: shotBreakdownKey{
			Title:          in.Title,
			Genre:          in.Genre,
			TargetDuration: in.TargetDuration,
			Style:          in.StylePreferences,
			Setting:        in.Setting,
			Characters:     characterKeys(in.Characters),
			Acts:           actsFor(rc),
		},
		Analyzed: analysisFor(rc),
		Shots:    rc.ShotBreakdown,
		Config: generationFingerprint{
			Generation:       p.cfg.Generation,
			QualityGates:     p.cfg.QualityGates,
			CostOptimization: p.cfg.Optimization.CostOptimization,
			BatchEnabled:     p.cfg.Batch.Enabled,
			MaxRetries:       p.cfg.Retry.MaxRetries,
			Tokenizer:        p.counter.Name(),
		},
	}
}

func (p *PromptGeneration) Execute(ctx context.Context, rc story.RunContext) (story.Delta, error) {
	if err := ctx.Err(); err != nil {
		return story.Delta{}, err
	}
	if err := stage.ValidateInput(p.Name(), rc.Input); err != nil {
		return story.Delta{}, err
	}
	breakdown, err := shotsFor(p.Name(), rc)
	if err != nil {
		return story.Delta{}, err
	}
	if err := stage.Require(p.Name(), len(breakdown.Shots) > 0, "shotBreakdown.shots"); err != nil {
		return story.Delta{}, err
	}

	prompt := p.build(rc.Input, analysisFor(rc), breakdown)
	if err := promptschema.Validate(prompt); err != nil {
		return story.Delta{}, err
	}
	logging.WithContext(ctx, p.logger).Debug(
		"prompt assembled",
		logging.String("prompt_id", prompt.ID),
		logging.String("difficulty", string(prompt.Metadata.Difficulty)),
		logging.Int("estimated_tokens", prompt.Metadata.EstimatedTokens),
		logging.String("tokenizer", p.counter.Name()),
	)
	return story.Delta{VideoPlanetPrompt: prompt}, nil
}

func (p *PromptGeneration) HealthCheck(context.Context) stage.Health {
	if err := promptschema.Ready(); err != nil {
		return stage.Unhealthy(p.Name(), err.Error())
	}
	return stage.Healthy(p.Name())
}

func (p *PromptGeneration) build(in story.StoryInput, analyzed *story.AnalyzedStory, breakdown *story.ShotBreakdown) *story.VideoPlanetPrompt {
	style := in.StylePreferences.WithDefaults()
	setting := in.Setting.WithDefaults()
	shots := story.CloneShots(breakdown.Shots)

	texts := make([]string, 0, len(shots))
	for _, shot := range shots {
		texts = append(texts, shot.GenerationPrompt)
	}

	tags := appendUnique(make([]string, 0, 5),
		string(in.Genre),
		string(style.ArtStyle),
		string(style.ColorPalette),
		string(analyzed.Pacing),
		string(setting.Location),
	)

	return &story.VideoPlanetPrompt{
		ID:        p.newID(),
		Version:   PromptVersion,
		CreatedAt: p.now(),
		Metadata: story.PromptMetadata{
			Title:           in.Title,
			Category:        string(in.Genre),
			Tags:            tags,
			Difficulty:      difficultyFor(in),
			EstimatedTokens: tokens.Sum(p.counter, texts...),
		},
		PromptStructure: story.PromptStructure{
			ShotBreakdown: shots,
			StyleGuide:    styleGuide(in, style, setting),
			NarrativeFlow: narrativeFlow(in.Genre, analyzed, shots),
		},
		GenerationSettings: p.generationSettings(style),
		QualityAssurance: story.QualityAssurance{
			Thresholds: story.QualityThresholds{
				MinConsistencyScore:  p.cfg.QualityGates.MinConsistencyScore,
				MinCompletenessScore: p.cfg.QualityGates.MinConsistencyScore,
				MinTechnicalScore:    p.cfg.QualityGates.MinConsistencyScore,
			},
			Approval: story.ApprovalWorkflow{
				RequireManualApproval:   p.cfg.QualityGates.RequireManualApproval,
				MaxRegenerationAttempts: p.cfg.QualityGates.MaxRegenerationAttempts,
			},
		},
	}
}

func difficultyFor(in story.StoryInput) story.Difficulty {
	switch {
	case len(in.Characters) > 2 || in.TargetDuration > 300:
		return story.DifficultyAdvanced
	case in.Genre == story.GenreAction || in.Genre == story.GenreSciFi || in.Genre == story.GenreFantasy:
		return story.DifficultyAdvanced
	case len(in.Characters) > 0 || in.TargetDuration > 60:
		return story.DifficultyIntermediate
	default:
		return story.DifficultyBeginner
	}
}

func styleGuide(in story.StoryInput, style story.StylePreferences, setting story.Setting) *story.StyleGuide {
	names := in.CharacterNames()
	consistency := story.CharacterConsistency{Strength: characterConsistency}
	if len(names) > 0 {
		consistency.Enabled = true
		consistency.ReferenceCharacters = names
	}
	return &story.StyleGuide{
		ArtStyle:             style.ArtStyle,
		ColorPalette:         style.ColorPalette,
		VisualMood:           style.VisualMood,
		AspectRatio:          style.AspectRatio,
		CharacterConsistency: consistency,
		EnvironmentStyle: story.EnvironmentStyle{
			Location:   setting.Location,
			TimeOfDay:  setting.TimeOfDay,
			Weather:    setting.Weather,
			Atmosphere: setting.Atmosphere,
		},
	}
}

// narrativeFlow marks the shot number that opens each act and the transition
// between consecutive acts.
func narrativeFlow(genre story.Genre, analyzed *story.AnalyzedStory, shots []story.Shot) story.NarrativeFlow {
	profile := profileFor(genre)
	boundaries := []int{}
	transitions := []string{}
	prevAct := ""
	for _, shot := range shots {
		if shot.ActID == prevAct {
			continue
		}
		if prevAct != "" {
			transitions = append(transitions, fmt.Sprintf("%s to %s: %s", prevAct, shot.ActID, profile.transition))
		}
		boundaries = append(boundaries, shot.Number)
		prevAct = shot.ActID
	}
	return story.NarrativeFlow{
		Pacing:        analyzed.Pacing,
		ActBoundaries: boundaries,
		Transitions:   transitions,
		EmotionalProgression: []string{
			analyzed.EmotionalArc.Beginning.Emotion,
			analyzed.EmotionalArc.Climax.Emotion,
			analyzed.EmotionalArc.Resolution.Emotion,
		},
	}
}

func (p *PromptGeneration) generationSettings(style story.StylePreferences) *story.GenerationSettings {
	gen := p.cfg.Generation
	params := story.GenerationParameters{
		Resolution:    gen.Resolution,
		FPS:           gen.FPS,
		AspectRatio:   style.AspectRatio,
		Seed:          gen.Seed,
		Quality:       "high",
		GuidanceScale: guidanceScale,
		Steps:         50,
	}
	if p.cfg.Optimization.CostOptimization {
		params.Quality = "standard"
		params.Steps = 30
	}
	return &story.GenerationSettings{
		Provider:   gen.Provider,
		Model:      gen.Model,
		Parameters: params,
		Batch: story.BatchSettings{
			Enabled:       p.cfg.Batch.Enabled,
			Concurrency:   gen.Concurrency,
			RetryAttempts: p.cfg.Retry.MaxRetries,
		},
		FallbackProvider: gen.FallbackProvider,
	}
}
