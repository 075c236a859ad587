package workflow_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"promptflow/internal/config"
	"promptflow/internal/logging"
	"promptflow/internal/services"
	"promptflow/internal/stage"
	"promptflow/internal/story"
	"promptflow/internal/tokens"
	"promptflow/internal/workflow"
)

func cafeInput() story.StoryInput {
	return story.StoryInput{
		Title:          "카페에서의 운명적 만남",
		Description:    "비 오는 오후, 작은 카페에서 두 사람이 우연히 같은 책을 집어 든다.",
		Genre:          story.GenreRomance,
		TargetDuration: 180,
		Mood:           "warm",
		Setting:        story.Setting{Location: "indoor", TimeOfDay: "afternoon", Weather: "rainy"},
		Characters: []story.Character{
			{Name: "지수", Role: story.RoleProtagonist},
			{Name: "민호", Role: story.RoleSupporting},
		},
		StylePreferences: story.StylePreferences{ArtStyle: "cinematic", ColorPalette: "warm", VisualMood: "dreamy"},
	}
}

func inputTitled(title string) story.StoryInput {
	in := cafeInput()
	in.Title = title
	return in
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.OutputDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()
	cfg.Retry.BaseDelayMS = 10
	cfg.Optimization.Tokenizer = config.TokenizerHeuristic
	return &cfg
}

func newOrchestrator(t *testing.T, cfg *config.Config, opts ...workflow.Option) *workflow.Orchestrator {
	t.Helper()
	opts = append([]workflow.Option{
		workflow.WithTokenizer(tokens.Heuristic{}),
		workflow.WithHeartbeatInterval(0),
	}, opts...)
	return workflow.New(cfg, logging.NewNop(), opts...)
}

// stageSet returns the built-in handlers with replace applied on top.
func stageSet(cfg *config.Config, replace func(*workflow.StageSet)) workflow.StageSet {
	set := workflow.DefaultStageSet(cfg, tokens.Heuristic{}, logging.NewNop())
	if replace != nil {
		replace(&set)
	}
	return set
}

// scriptedStage wraps a real handler and injects failures, delays, or panics.
type scriptedStage struct {
	stage.Handler

	failFirst  int32
	failErr    error
	delay      time.Duration
	ignoreCtx  bool
	health     *stage.Health
	panicTitle string

	calls atomic.Int32
}

func (s *scriptedStage) Execute(ctx context.Context, rc story.RunContext) (story.Delta, error) {
	n := s.calls.Add(1)
	if s.delay > 0 {
		if s.ignoreCtx {
			time.Sleep(s.delay)
		} else {
			select {
			case <-ctx.Done():
				return story.Delta{}, ctx.Err()
			case <-time.After(s.delay):
			}
		}
	}
	if n <= s.failFirst {
		err := s.failErr
		if err == nil {
			err = services.Wrap(services.ErrTransient, s.Name(), "execute", "scripted failure", nil)
		}
		return story.Delta{}, err
	}
	return s.Handler.Execute(ctx, rc)
}

func (s *scriptedStage) CacheKey(rc story.RunContext) any {
	if s.panicTitle != "" && rc.Input.Title == s.panicTitle {
		panic("cache key exploded")
	}
	return s.Handler.CacheKey(rc)
}

func (s *scriptedStage) HealthCheck(ctx context.Context) stage.Health {
	if s.health != nil {
		return *s.health
	}
	return s.Handler.HealthCheck(ctx)
}

// alwaysFail fails every attempt with err.
func alwaysFail(h stage.Handler, err error) *scriptedStage {
	return &scriptedStage{Handler: h, failFirst: 1 << 30, failErr: err}
}
