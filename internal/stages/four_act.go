package stages

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"promptflow/internal/logging"
	"promptflow/internal/services"
	"promptflow/internal/stage"
	"promptflow/internal/story"
)

// MinFourActDuration is the shortest target that still gives every act one
// second.
const MinFourActDuration = len(actTemplates)

// FourActGeneration splits the story into setup, confrontation, climax, and
// resolution.
type FourActGeneration struct {
	logger *slog.Logger
}

// NewFourActGeneration constructs the four-act generation stage.
func NewFourActGeneration(logger *slog.Logger) *FourActGeneration {
	return &FourActGeneration{logger: logging.NewComponentLogger(logger, "four-act-generation")}
}

func (f *FourActGeneration) Name() string { return stage.FourActGeneration }

type fourActKey struct {
	Title          string                 `json:"title"`
	Genre          story.Genre            `json:"genre"`
	TargetDuration int                    `json:"targetDuration"`
	Style          story.StylePreferences `json:"style"`
	Location       story.Location         `json:"location"`
	Analyzed       *story.AnalyzedStory   `json:"analyzed"`
}

func (f *FourActGeneration) CacheKey(rc story.RunContext) any {
	in := rc.Input
	return fourActKey{
		Title:          in.Title,
		Genre:          in.Genre,
		TargetDuration: in.TargetDuration,
		Style:          in.StylePreferences,
		Location:       in.Setting.Location,
		Analyzed:       analysisFor(rc),
	}
}

func (f *FourActGeneration) Execute(ctx context.Context, rc story.RunContext) (story.Delta, error) {
	if err := ctx.Err(); err != nil {
		return story.Delta{}, err
	}
	if err := stage.ValidateInput(f.Name(), rc.Input); err != nil {
		return story.Delta{}, err
	}
	if rc.Input.TargetDuration < MinFourActDuration {
		return story.Delta{}, services.Wrap(
			services.ErrValidation, f.Name(), "split duration",
			fmt.Sprintf("target duration %ds is too short for four acts (minimum %ds)", rc.Input.TargetDuration, MinFourActDuration),
			nil,
		)
	}

	structure := buildFourActs(rc.Input, analysisFor(rc))
	durations := make([]int, 0, len(structure.Acts))
	for _, act := range structure.Acts {
		durations = append(durations, act.Duration)
	}
	logging.WithContext(ctx, f.logger).Debug(
		"four acts generated",
		logging.Int("target_duration", structure.TotalDuration),
		logging.Any("act_durations", durations),
	)
	return story.Delta{FourActStructure: structure}, nil
}

func (f *FourActGeneration) HealthCheck(context.Context) stage.Health {
	return stage.Healthy(f.Name())
}

// SplitDuration divides total seconds across the four acts by the 25/35/30/10
// ratio using largest-remainder rounding. Ties go to the earlier act. Acts that
// round to zero borrow one second from the longest act, so every act is at
// least one second when total >= MinFourActDuration. The result always sums to
// total.
func SplitDuration(total int) [4]int {
	var durations [4]int
	remainders := make([]int, len(actTemplates))
	assigned := 0
	for i, tpl := range actTemplates {
		durations[i] = total * tpl.percent / 100
		remainders[i] = total * tpl.percent % 100
		assigned += durations[i]
	}

	order := []int{0, 1, 2, 3}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]] > remainders[order[b]]
	})
	for i := 0; assigned < total; i++ {
		durations[order[i%len(order)]]++
		assigned++
	}

	for i := range durations {
		if durations[i] > 0 {
			continue
		}
		longest := 0
		for j := range durations {
			if durations[j] > durations[longest] {
				longest = j
			}
		}
		if durations[longest] <= 1 {
			break
		}
		durations[longest]--
		durations[i]++
	}
	return durations
}

func buildFourActs(in story.StoryInput, analyzed *story.AnalyzedStory) *story.FourActStructure {
	durations := SplitDuration(in.TargetDuration)
	events := bucketMoments(analyzed.KeyMoments)
	location := in.Setting.WithDefaults().Location
	tones := [4]string{
		analyzed.EmotionalArc.Beginning.Emotion,
		"rising " + analyzed.EmotionalArc.Climax.Emotion,
		analyzed.EmotionalArc.Climax.Emotion,
		analyzed.EmotionalArc.Resolution.Emotion,
	}

	acts := make([]story.Act, 0, len(actTemplates))
	for i, tpl := range actTemplates {
		keyEvents := events[i]
		if len(keyEvents) == 0 {
			keyEvents = []string{fmt.Sprintf("%s of %s", titleCase(tpl.label), in.Title)}
		}
		acts = append(acts, story.Act{
			ID:            fmt.Sprintf("act-%d", i+1),
			Order:         i + 1,
			Title:         titleCase(tpl.label),
			Description:   fmt.Sprintf("Act %d "+tpl.summary+".", i+1, location),
			Duration:      durations[i],
			KeyEvents:     keyEvents,
			EmotionalTone: tones[i],
			VisualFocus:   tpl.visualFocus,
		})
	}
	return &story.FourActStructure{Acts: acts, TotalDuration: in.TargetDuration}
}

// bucketMoments assigns key moments to acts by their timeline position.
func bucketMoments(moments []story.KeyMoment) [4][]string {
	var buckets [4][]string
	for _, m := range moments {
		idx := 3
		switch {
		case m.Position < 0.25:
			idx = 0
		case m.Position < 0.6:
			idx = 1
		case m.Position < 0.9:
			idx = 2
		}
		buckets[idx] = append(buckets[idx], m.Description)
	}
	return buckets
}
