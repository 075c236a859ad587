package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"promptflow/internal/logging"
	"promptflow/internal/stage"
	"promptflow/internal/story"
)

const (
	minKeyMoments = 3
	maxKeyMoments = 6
	// peakPosition is where key moment intensity tops out.
	peakPosition = 0.75
)

// StoryAnalysis extracts themes, key moments, the emotional arc, and pacing
// from the story input.
type StoryAnalysis struct {
	logger *slog.Logger
}

// NewStoryAnalysis constructs the story analysis stage.
func NewStoryAnalysis(logger *slog.Logger) *StoryAnalysis {
	return &StoryAnalysis{logger: logging.NewComponentLogger(logger, "story-analysis")}
}

func (s *StoryAnalysis) Name() string { return stage.StoryAnalysis }

type storyAnalysisKey struct {
	Title          string         `json:"title"`
	Description    string         `json:"description"`
	Genre          story.Genre    `json:"genre"`
	TargetDuration int            `json:"targetDuration"`
	Mood           string         `json:"mood"`
	Setting        story.Setting  `json:"setting"`
	Characters     []characterKey `json:"characters"`
}

func (s *StoryAnalysis) CacheKey(rc story.RunContext) any {
	in := rc.Input
	return storyAnalysisKey{
		Title:          in.Title,
		Description:    in.Description,
		Genre:          in.Genre,
		TargetDuration: in.TargetDuration,
		Mood:           in.Mood,
		Setting:        in.Setting,
		Characters:     characterKeys(in.Characters),
	}
}

func (s *StoryAnalysis) Execute(ctx context.Context, rc story.RunContext) (story.Delta, error) {
	if err := ctx.Err(); err != nil {
		return story.Delta{}, err
	}
	if err := stage.ValidateInput(s.Name(), rc.Input); err != nil {
		return story.Delta{}, err
	}
	analyzed := analyzeStory(rc.Input)
	logging.WithContext(ctx, s.logger).Debug(
		"story analyzed",
		logging.String("genre", string(rc.Input.Genre)),
		logging.String("pacing", string(analyzed.Pacing)),
		logging.Int("key_moments", len(analyzed.KeyMoments)),
		logging.Int("characters", len(analyzed.CharacterDynamics)),
	)
	return story.Delta{AnalyzedStory: analyzed}, nil
}

func (s *StoryAnalysis) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.Name())
}

func analyzeStory(in story.StoryInput) *story.AnalyzedStory {
	profile := profileFor(in.Genre)
	themes := appendUnique(make([]string, 0, len(profile.themes)+1), profile.themes...)
	themes = appendUnique(themes, strings.ToLower(in.Mood))

	return &story.AnalyzedStory{
		Themes:            themes,
		KeyMoments:        keyMoments(in),
		EmotionalArc:      story.EmotionalArc{Beginning: profile.beginning, Climax: profile.climax, Resolution: profile.resolution},
		CharacterDynamics: characterDynamics(in.Characters),
		VisualKeywords:    visualKeywords(in),
		Pacing:            pacingFor(in.Genre, in.TargetDuration),
	}
}

func keyMomentCount(duration int) int {
	n := minKeyMoments + duration/60
	return max(minKeyMoments, min(n, maxKeyMoments))
}

func keyMoments(in story.StoryInput) []story.KeyMoment {
	n := keyMomentCount(in.TargetDuration)
	moments := make([]story.KeyMoment, 0, n)
	for i := range n {
		position := float64(i) / float64(n-1)
		beat := beats[(i*(len(beats)-1)+(n-1)/2)/(n-1)]
		moments = append(moments, story.KeyMoment{
			Order:       i + 1,
			Description: fmt.Sprintf("%s in %s", titleCase(beat), in.Title),
			Position:    round2(position),
			Intensity:   momentIntensity(position),
		})
	}
	return moments
}

// momentIntensity rises from 0.2 to 0.9 at the peak position and settles at
// 0.5 by the end.
func momentIntensity(position float64) float64 {
	if position <= peakPosition {
		return round2(0.2 + 0.7*position/peakPosition)
	}
	return round2(0.9 - 0.4*(position-peakPosition)/(1-peakPosition))
}

func characterDynamics(chars []story.Character) []story.CharacterDynamic {
	dynamics := make([]story.CharacterDynamic, 0, len(chars))
	for i, c := range chars {
		var related []string
		for j, other := range chars {
			if j != i {
				related = append(related, other.Name)
			}
		}
		arc := roleArcs[c.Role]
		if arc == "" {
			arc = "presence"
		}
		dynamics = append(dynamics, story.CharacterDynamic{
			Character:     c.Name,
			Role:          c.Role,
			Arc:           arc,
			Relationships: related,
		})
	}
	return dynamics
}

func visualKeywords(in story.StoryInput) []string {
	setting := in.Setting.WithDefaults()
	style := in.StylePreferences.WithDefaults()
	keywords := appendUnique(nil,
		string(setting.Location),
		string(setting.TimeOfDay),
		string(setting.Weather),
		setting.Atmosphere,
		string(style.ArtStyle),
		string(style.ColorPalette)+" palette",
		string(style.VisualMood)+" mood",
	)
	return keywords
}

func pacingFor(genre story.Genre, duration int) story.Pacing {
	pacing := profileFor(genre).pacing
	switch {
	case duration <= 30:
		if pacing == story.PacingSlow {
			return story.PacingMedium
		}
		return story.PacingFast
	case duration >= 300 && pacing == story.PacingFast:
		return story.PacingMedium
	}
	return pacing
}
