package stages

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"promptflow/internal/logging"
	"promptflow/internal/services"
	"promptflow/internal/stage"
	"promptflow/internal/story"
)

// ShotBreakdown expands the four acts into twelve shots, three per act.
type ShotBreakdown struct {
	logger *slog.Logger
}

// NewShotBreakdown constructs the shot breakdown stage.
func NewShotBreakdown(logger *slog.Logger) *ShotBreakdown {
	return &ShotBreakdown{logger: logging.NewComponentLogger(logger, "shot-breakdown")}
}

func (s *ShotBreakdown) Name() string { return stage.ShotBreakdown }

type shotBreakdownKey struct {
	Title          string                  `json:"title"`
	Genre          story.Genre             `json:"genre"`
	TargetDuration int                     `json:"targetDuration"`
	Style          story.StylePreferences  `json:"style"`
	Setting        story.Setting           `json:"setting"`
	Characters     []characterKey          `json:"characters"`
	Acts           *story.FourActStructure `json:"acts"`
}

func (s *ShotBreakdown) CacheKey(rc story.RunContext) any {
	in := rc.Input
	return shotBreakdownKey{
		Title:          in.Title,
		Genre:          in.Genre,
		TargetDuration: in.TargetDuration,
		Style:          in.StylePreferences,
		Setting:        in.Setting,
		Characters:     characterKeys(in.Characters),
		Acts:           actsFor(rc),
	}
}

func (s *ShotBreakdown) Execute(ctx context.Context, rc story.RunContext) (story.Delta, error) {
	if err := ctx.Err(); err != nil {
		return story.Delta{}, err
	}
	if err := stage.ValidateInput(s.Name(), rc.Input); err != nil {
		return story.Delta{}, err
	}
	acts := actsFor(rc)
	if err := checkActs(s.Name(), acts); err != nil {
		return story.Delta{}, err
	}

	breakdown := buildShots(rc.Input, acts)
	logging.WithContext(ctx, s.logger).Debug(
		"shots planned",
		logging.Int("shots", len(breakdown.Shots)),
		logging.Float64("total_duration", breakdown.TotalDuration),
	)
	return story.Delta{ShotBreakdown: breakdown}, nil
}

func (s *ShotBreakdown) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(s.Name())
}

func checkActs(stageName string, structure *story.FourActStructure) error {
	if len(structure.Acts) != len(actTemplates) {
		return services.Wrap(
			services.ErrValidation, stageName, "read acts",
			fmt.Sprintf("expected %d acts, got %d", len(actTemplates), len(structure.Acts)),
			nil,
		)
	}
	for _, act := range structure.Acts {
		if act.Duration <= 0 {
			return services.Wrap(
				services.ErrValidation, stageName, "read acts",
				fmt.Sprintf("act %s has non-positive duration %d", act.ID, act.Duration),
				nil,
			)
		}
	}
	return nil
}

// SplitAct divides an act into three shot durations at 0.1s precision. The
// last shot absorbs the remainder so the three sum to the act duration.
func SplitAct(duration int) [story.ShotsPerAct]float64 {
	base := math.Floor(float64(duration)*10/story.ShotsPerAct) / 10
	var out [story.ShotsPerAct]float64
	for i := range story.ShotsPerAct - 1 {
		out[i] = base
	}
	out[story.ShotsPerAct-1] = round1(float64(duration) - base*(story.ShotsPerAct-1))
	return out
}

func buildShots(in story.StoryInput, structure *story.FourActStructure) *story.ShotBreakdown {
	setting := in.Setting.WithDefaults()
	style := in.StylePreferences.WithDefaults()
	profile := profileFor(in.Genre)
	names := in.CharacterNames()

	shots := make([]story.Shot, 0, story.ShotCount)
	total := 0.0
	for actIdx, act := range structure.Acts {
		durations := SplitAct(act.Duration)
		for j := range story.ShotsPerAct {
			angle := shotPatterns[actIdx][j]
			if actIdx == 2 && j == 0 {
				angle = profile.climaxAngle
			}
			event := act.VisualFocus
			if len(act.KeyEvents) > 0 {
				event = act.KeyEvents[j%len(act.KeyEvents)]
			}
			shot := story.Shot{
				Number:         len(shots) + 1,
				ActID:          act.ID,
				Description:    fmt.Sprintf("%s: %s", titleCase(angleLabel(angle)), event),
				CameraAngle:    angle,
				Duration:       durations[j],
				VisualElements: shotElements(setting, style, act, names, j),
				TechnicalSpecs: &story.TechnicalSpecs{
					Movement:     angleMovement[angle],
					Lighting:     lightingFor(setting),
					DepthOfField: depthOfField(angle),
				},
			}
			shot.GenerationPrompt = shotPrompt(shot, event, act, setting, style, names)
			total += shot.Duration
			shots = append(shots, shot)
		}
	}
	return &story.ShotBreakdown{Shots: shots, TotalDuration: round1(total)}
}

func shotElements(setting story.Setting, style story.StylePreferences, act story.Act, names []string, idx int) []string {
	elements := []string{
		string(setting.Location) + " setting",
		string(setting.TimeOfDay) + " light",
	}
	if len(names) > 0 {
		elements = append(elements, names[idx%len(names)])
	} else {
		elements = append(elements, act.VisualFocus)
	}
	if setting.Weather != "" {
		elements = append(elements, string(setting.Weather)+" weather")
	}
	return append(elements, string(style.ColorPalette)+" tones")
}

func lightingFor(setting story.Setting) string {
	lighting := timeLighting[setting.TimeOfDay]
	if lighting == "" {
		lighting = "natural light"
	}
	if setting.Weather != "" {
		lighting += " through " + string(setting.Weather) + " skies"
	}
	return lighting
}

// shotPrompt renders a generation prompt as comma-separated phrases.
func shotPrompt(shot story.Shot, event string, act story.Act, setting story.Setting, style story.StylePreferences, names []string) string {
	phrases := []string{angleLabel(shot.CameraAngle), event}
	if len(names) > 0 {
		phrases = append(phrases, "featuring "+joinNames(names))
	}
	phrases = append(phrases, string(setting.Location)+" setting", string(setting.TimeOfDay))
	if setting.Weather != "" {
		phrases = append(phrases, string(setting.Weather))
	}
	if setting.Atmosphere != "" {
		phrases = append(phrases, setting.Atmosphere)
	}
	phrases = append(phrases,
		string(style.ArtStyle)+" style",
		string(style.ColorPalette)+" color palette",
		string(style.VisualMood)+" mood",
		act.EmotionalTone+" tone",
	)
	if shot.TechnicalSpecs != nil && shot.TechnicalSpecs.Movement != "" {
		phrases = append(phrases, shot.TechnicalSpecs.Movement)
	}
	return strings.Join(phrases, ", ")
}
