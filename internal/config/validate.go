package config

import (
	"errors"
	"fmt"
	"regexp"
)

var resolutionPattern = regexp.MustCompile(`^[0-9]{2,5}x[0-9]{2,5}$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateStages(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateBatch(); err != nil {
		return err
	}
	if err := c.validateQualityGates(); err != nil {
		return err
	}
	if err := c.validateOptimization(); err != nil {
		return err
	}
	if err := c.validateGeneration(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q (want console or json)", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateStages() error {
	for _, ref := range c.stageRefs() {
		if ref.settings.TimeoutMS <= 0 {
			return fmt.Errorf("stages.%s.timeout_ms must be positive", ref.key)
		}
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxRetries < 0 {
		return errors.New("retry.max_retries must be zero or greater")
	}
	if c.Retry.BaseDelayMS < 0 {
		return errors.New("retry.base_delay_ms must be zero or greater")
	}
	return nil
}

func (c *Config) validateBatch() error {
	if c.Batch.BatchSize <= 0 {
		return errors.New("batch.batch_size must be positive")
	}
	switch c.Batch.FailureHandling {
	case FailureStopOnError, FailureContinueOnError, FailureRetryFailed:
	default:
		return fmt.Errorf("batch.failure_handling: unsupported value %q", c.Batch.FailureHandling)
	}
	return nil
}

func (c *Config) validateQualityGates() error {
	if c.QualityGates.MinConsistencyScore < 0 || c.QualityGates.MinConsistencyScore > 1 {
		return errors.New("quality_gates.min_consistency_score must be between 0 and 1")
	}
	if c.QualityGates.MaxRegenerationAttempts < 0 {
		return errors.New("quality_gates.max_regeneration_attempts must be zero or greater")
	}
	return nil
}

func (c *Config) validateOptimization() error {
	if c.Optimization.CacheMaxEntries < 0 {
		return errors.New("optimization.cache_max_entries must be zero or greater")
	}
	switch c.Optimization.Tokenizer {
	case TokenizerTiktoken, TokenizerHeuristic:
	default:
		return fmt.Errorf("optimization.tokenizer: unsupported value %q", c.Optimization.Tokenizer)
	}
	return nil
}

func (c *Config) validateGeneration() error {
	if c.Generation.Concurrency <= 0 {
		return errors.New("generation.concurrency must be positive")
	}
	if c.Generation.FPS <= 0 || c.Generation.FPS > 120 {
		return errors.New("generation.fps must be between 1 and 120")
	}
	if !resolutionPattern.MatchString(c.Generation.Resolution) {
		return fmt.Errorf("generation.resolution: expected WIDTHxHEIGHT, got %q", c.Generation.Resolution)
	}
	return nil
}
