package config

const (
	defaultConfigPath              = "~/.config/promptflow/config.toml"
	defaultOutputDir               = "~/.local/share/promptflow/output"
	defaultLogDir                  = "~/.local/share/promptflow/logs"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
	defaultStageTimeoutMS          = 30000
	defaultMaxRetries              = 3
	defaultBaseDelayMS             = 1000
	defaultBatchSize               = 3
	defaultMinConsistencyScore     = 0.8
	defaultMaxRegenerationAttempts = 3
	defaultTokenizerEncoding       = "cl100k_base"
	defaultProvider                = "runway"
	defaultModel                   = "gen-3-alpha"
	defaultFallbackProvider        = "pika"
	defaultConcurrency             = 3
	defaultFPS                     = 24
	defaultResolution              = "1920x1080"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	stage := StageSettings{Enabled: true, TimeoutMS: defaultStageTimeoutMS}
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Stages: Stages{
			StoryAnalysis:     stage,
			FourActGeneration: stage,
			ShotBreakdown:     stage,
			PromptGeneration:  stage,
			QualityValidation: stage,
		},
		Retry: Retry{
			MaxRetries:  defaultMaxRetries,
			BaseDelayMS: defaultBaseDelayMS,
		},
		Batch: Batch{
			Enabled:         false,
			BatchSize:       defaultBatchSize,
			ParallelSteps:   true,
			FailureHandling: FailureStopOnError,
		},
		QualityGates: QualityGates{
			MinConsistencyScore:     defaultMinConsistencyScore,
			MaxRegenerationAttempts: defaultMaxRegenerationAttempts,
		},
		Optimization: Optimization{
			CacheResults:          true,
			ReuseGeneratedContent: true,
			Tokenizer:             TokenizerTiktoken,
			TokenizerEncoding:     defaultTokenizerEncoding,
		},
		Generation: Generation{
			Provider:         defaultProvider,
			Model:            defaultModel,
			FallbackProvider: defaultFallbackProvider,
			Concurrency:      defaultConcurrency,
			FPS:              defaultFPS,
			Resolution:       defaultResolution,
		},
	}
}
