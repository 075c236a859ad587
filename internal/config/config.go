package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains output and log directory configuration.
type Paths struct {
	OutputDir string `toml:"output_dir"`
	LogDir    string `toml:"log_dir"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format         string            `toml:"format"`
	Level          string            `toml:"level"`
	StageOverrides map[string]string `toml:"stage_overrides"`
}

// StageSettings toggles a single workflow stage and bounds each attempt.
type StageSettings struct {
	Enabled   bool `toml:"enabled"`
	TimeoutMS int  `toml:"timeout_ms"`
}

// Timeout returns the per-attempt timeout as a duration.
func (s StageSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutMS) * time.Millisecond
}

// Stages holds per-stage settings keyed by their TOML table names.
type Stages struct {
	StoryAnalysis     StageSettings `toml:"story_analysis"`
	FourActGeneration StageSettings `toml:"four_act_generation"`
	ShotBreakdown     StageSettings `toml:"shot_breakdown"`
	PromptGeneration  StageSettings `toml:"prompt_generation"`
	QualityValidation StageSettings `toml:"quality_validation"`
}

// Retry configures the stage retry controller.
type Retry struct {
	MaxRetries  int `toml:"max_retries"`
	BaseDelayMS int `toml:"base_delay_ms"`
}

// BaseDelay returns the backoff base as a duration.
func (r Retry) BaseDelay() time.Duration {
	return time.Duration(r.BaseDelayMS) * time.Millisecond
}

// Failure handling strategies for batch runs.
const (
	FailureStopOnError     = "stop_on_error"
	FailureContinueOnError = "continue_on_error"
	FailureRetryFailed     = "retry_failed"
)

// Batch configures multi-input runs.
type Batch struct {
	Enabled         bool   `toml:"enabled"`
	BatchSize       int    `toml:"batch_size"`
	ParallelSteps   bool   `toml:"parallel_steps"`
	FailureHandling string `toml:"failure_handling"`
}

// QualityGates configures scoring thresholds and prompt optimization.
type QualityGates struct {
	MinConsistencyScore     float64 `toml:"min_consistency_score"`
	MaxRegenerationAttempts int     `toml:"max_regeneration_attempts"`
	RequireManualApproval   bool    `toml:"require_manual_approval"`
}

// Tokenizer names.
const (
	TokenizerTiktoken  = "tiktoken"
	TokenizerHeuristic = "heuristic"
)

// Optimization contains caching and cost knobs.
type Optimization struct {
	CacheResults          bool   `toml:"cache_results"`
	ReuseGeneratedContent bool   `toml:"reuse_generated_content"`
	CostOptimization      bool   `toml:"cost_optimization"`
	CacheMaxEntries       int    `toml:"cache_max_entries"`
	Tokenizer             string `toml:"tokenizer"`
	TokenizerEncoding     string `toml:"tokenizer_encoding"`
}

// Generation describes the downstream video generation target embedded in
// every prompt.
type Generation struct {
	Provider         string `toml:"provider"`
	Model            string `toml:"model"`
	FallbackProvider string `toml:"fallback_provider"`
	Concurrency      int    `toml:"concurrency"`
	FPS              int    `toml:"fps"`
	Resolution       string `toml:"resolution"`
	Seed             int64  `toml:"seed"`
}

// Config encapsulates all configuration values for promptflow.
//
// Configuration sections by subsystem:
//   - Paths: output and log directories
//   - Logging: log format, level, and per-stage overrides
//   - Stages: per-stage enablement and attempt timeouts
//   - Retry: retry count and exponential backoff base
//   - Batch: grouping, parallelism, and failure handling for batch runs
//   - QualityGates: quality thresholds and optimization passes
//   - Optimization: result cache, content reuse, cost mode, tokenizer
//   - Generation: provider/model settings copied into each prompt
type Config struct {
	Paths        Paths        `toml:"paths"`
	Logging      Logging      `toml:"logging"`
	Stages       Stages       `toml:"stages"`
	Retry        Retry        `toml:"retry"`
	Batch        Batch        `toml:"batch"`
	QualityGates QualityGates `toml:"quality_gates"`
	Optimization Optimization `toml:"optimization"`
	Generation   Generation   `toml:"generation"`
}

// Stage returns the settings for a workflow stage by its pipeline name
// (storyAnalysis, fourActGeneration, ...). Unknown names report false.
func (c *Config) Stage(name string) (StageSettings, bool) {
	switch name {
	case "storyAnalysis":
		return c.Stages.StoryAnalysis, true
	case "fourActGeneration":
		return c.Stages.FourActGeneration, true
	case "shotBreakdown":
		return c.Stages.ShotBreakdown, true
	case "promptGeneration":
		return c.Stages.PromptGeneration, true
	case "qualityValidation":
		return c.Stages.QualityValidation, true
	default:
		return StageSettings{}, false
	}
}

func (c *Config) stageRefs() []stageRef {
	return []stageRef{
		{"story_analysis", &c.Stages.StoryAnalysis},
		{"four_act_generation", &c.Stages.FourActGeneration},
		{"shot_breakdown", &c.Stages.ShotBreakdown},
		{"prompt_generation", &c.Stages.PromptGeneration},
		{"quality_validation", &c.Stages.QualityValidation},
	}
}

type stageRef struct {
	key      string
	settings *StageSettings
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return nil, "", false, fmt.Errorf("parse config: %s", strict.String())
			}
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("promptflow.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.OutputDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
