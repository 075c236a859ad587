package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"promptflow/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantOutput := filepath.Join(tempHome, ".local", "share", "promptflow", "output")
	if cfg.Paths.OutputDir != wantOutput {
		t.Fatalf("unexpected output dir: got %q want %q", cfg.Paths.OutputDir, wantOutput)
	}
	if cfg.Retry.MaxRetries != 3 {
		t.Fatalf("expected 3 retries by default, got %d", cfg.Retry.MaxRetries)
	}
	if cfg.Retry.BaseDelay() != time.Second {
		t.Fatalf("expected 1s base delay, got %s", cfg.Retry.BaseDelay())
	}
	if cfg.Batch.Enabled {
		t.Fatal("expected batch disabled by default")
	}
	if cfg.Batch.FailureHandling != config.FailureStopOnError {
		t.Fatalf("unexpected failure handling: %q", cfg.Batch.FailureHandling)
	}
	if cfg.QualityGates.MinConsistencyScore != 0.8 {
		t.Fatalf("unexpected min consistency score: %v", cfg.QualityGates.MinConsistencyScore)
	}
	if !cfg.Optimization.CacheResults {
		t.Fatal("expected cache enabled by default")
	}
	for _, name := range []string{"storyAnalysis", "fourActGeneration", "shotBreakdown", "promptGeneration", "qualityValidation"} {
		settings, ok := cfg.Stage(name)
		if !ok {
			t.Fatalf("expected settings for %s", name)
		}
		if !settings.Enabled {
			t.Fatalf("expected %s enabled", name)
		}
		if settings.Timeout() != 30*time.Second {
			t.Fatalf("expected 30s timeout for %s, got %s", name, settings.Timeout())
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "promptflow.toml")
	contents := `
[stages.shot_breakdown]
enabled = false
timeout_ms = 500

[retry]
max_retries = 1
base_delay_ms = 10

[batch]
enabled = true
batch_size = 5
failure_handling = "Continue_On_Error"

[logging.stage_overrides]
shotBreakdown = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	shot, _ := cfg.Stage("shotBreakdown")
	if shot.Enabled {
		t.Fatal("expected shot breakdown disabled")
	}
	if shot.Timeout() != 500*time.Millisecond {
		t.Fatalf("unexpected shot breakdown timeout %s", shot.Timeout())
	}
	story, _ := cfg.Stage("storyAnalysis")
	if !story.Enabled {
		t.Fatal("expected untouched stages to keep defaults")
	}
	if cfg.Retry.MaxRetries != 1 || cfg.Retry.BaseDelay() != 10*time.Millisecond {
		t.Fatalf("unexpected retry settings: %+v", cfg.Retry)
	}
	if !cfg.Batch.Enabled || cfg.Batch.BatchSize != 5 {
		t.Fatalf("unexpected batch settings: %+v", cfg.Batch)
	}
	if cfg.Batch.FailureHandling != config.FailureContinueOnError {
		t.Fatalf("expected normalized failure handling, got %q", cfg.Batch.FailureHandling)
	}
	if cfg.Logging.StageOverrides["shotBreakdown"] != "debug" {
		t.Fatalf("expected normalized override, got %v", cfg.Logging.StageOverrides)
	}
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "promptflow.toml")
	if err := os.WriteFile(configPath, []byte("[retry]\nmax_retires = 2\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, _, _, err := config.Load(configPath)
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
	if !strings.Contains(err.Error(), "max_retires") {
		t.Fatalf("expected error to name the key, got %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PROMPTFLOW_LOG_LEVEL", "debug")
	t.Setenv("PROMPTFLOW_TOKENIZER", "Heuristic")

	cfg, _, _, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected log level from env, got %q", cfg.Logging.Level)
	}
	if cfg.Optimization.Tokenizer != config.TokenizerHeuristic {
		t.Fatalf("expected tokenizer from env, got %q", cfg.Optimization.Tokenizer)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if !strings.Contains(cfg.Paths.OutputDir, "promptflow") {
		t.Fatalf("expected output dir to contain promptflow, got %q", cfg.Paths.OutputDir)
	}

	defaults := config.Default()
	if cfg.Stages != defaults.Stages {
		t.Fatalf("sample stages %+v differ from defaults %+v", cfg.Stages, defaults.Stages)
	}
	if cfg.Retry != defaults.Retry || cfg.Batch != defaults.Batch || cfg.QualityGates != defaults.QualityGates {
		t.Fatal("sample config drifted from defaults")
	}

	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("sample config does not load: %v", err)
	}
	if loaded.Generation.Concurrency != defaults.Generation.Concurrency {
		t.Fatalf("unexpected concurrency %d", loaded.Generation.Concurrency)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	cfg := config.Default()
	cfg.Batch.BatchSize = 7
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Batch.BatchSize != 7 {
		t.Fatalf("expected batch size 7, got %d", decoded.Batch.BatchSize)
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero stage timeout", func(c *config.Config) { c.Stages.PromptGeneration.TimeoutMS = 0 }},
		{"negative retries", func(c *config.Config) { c.Retry.MaxRetries = -1 }},
		{"zero batch size", func(c *config.Config) { c.Batch.BatchSize = 0 }},
		{"unknown failure handling", func(c *config.Config) { c.Batch.FailureHandling = "explode" }},
		{"score above one", func(c *config.Config) { c.QualityGates.MinConsistencyScore = 1.5 }},
		{"unknown tokenizer", func(c *config.Config) { c.Optimization.Tokenizer = "bpe" }},
		{"bad resolution", func(c *config.Config) { c.Generation.Resolution = "hd" }},
		{"zero concurrency", func(c *config.Config) { c.Generation.Concurrency = 0 }},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
