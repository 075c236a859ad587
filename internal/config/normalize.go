package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeBatch()
	c.normalizeOptimization()
	c.normalizeGeneration()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	if value, ok := os.LookupEnv("PROMPTFLOW_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if len(c.Logging.StageOverrides) > 0 {
		normalized := make(map[string]string, len(c.Logging.StageOverrides))
		for stage, level := range c.Logging.StageOverrides {
			stage = strings.TrimSpace(stage)
			level = strings.ToLower(strings.TrimSpace(level))
			if stage == "" || level == "" {
				continue
			}
			normalized[stage] = level
		}
		c.Logging.StageOverrides = normalized
	}
}

func (c *Config) normalizeBatch() {
	c.Batch.FailureHandling = strings.ToLower(strings.TrimSpace(c.Batch.FailureHandling))
	if c.Batch.FailureHandling == "" {
		c.Batch.FailureHandling = FailureStopOnError
	}
}

func (c *Config) normalizeOptimization() {
	if value, ok := os.LookupEnv("PROMPTFLOW_TOKENIZER"); ok && strings.TrimSpace(value) != "" {
		c.Optimization.Tokenizer = value
	}
	c.Optimization.Tokenizer = strings.ToLower(strings.TrimSpace(c.Optimization.Tokenizer))
	if c.Optimization.Tokenizer == "" {
		c.Optimization.Tokenizer = TokenizerTiktoken
	}
	c.Optimization.TokenizerEncoding = strings.TrimSpace(c.Optimization.TokenizerEncoding)
	if c.Optimization.TokenizerEncoding == "" {
		c.Optimization.TokenizerEncoding = defaultTokenizerEncoding
	}
}

func (c *Config) normalizeGeneration() {
	c.Generation.Provider = strings.TrimSpace(c.Generation.Provider)
	if c.Generation.Provider == "" {
		c.Generation.Provider = defaultProvider
	}
	c.Generation.Model = strings.TrimSpace(c.Generation.Model)
	if c.Generation.Model == "" {
		c.Generation.Model = defaultModel
	}
	c.Generation.FallbackProvider = strings.TrimSpace(c.Generation.FallbackProvider)
	c.Generation.Resolution = strings.TrimSpace(c.Generation.Resolution)
	if c.Generation.Resolution == "" {
		c.Generation.Resolution = defaultResolution
	}
}
