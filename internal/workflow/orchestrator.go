package workflow

import (
	"log/slog"
	"sync"
	"time"

	"promptflow/internal/cache"
	"promptflow/internal/config"
	"promptflow/internal/logging"
	"promptflow/internal/metrics"
	"promptflow/internal/tokens"
)

const defaultHeartbeatInterval = 10 * time.Second

// Orchestrator coordinates workflow runs using registered stage handlers.
type Orchestrator struct {
	cfg       *config.Config
	logger    *slog.Logger
	cache     *cache.Cache
	metrics   *metrics.Metrics
	counter   tokens.Counter
	heartbeat heartbeat

	mu       sync.RWMutex
	pipeline []pipelineStage
	lastErr  error
}

// Option configures optional Orchestrator behavior.
type Option func(*options)

type options struct {
	stages            *StageSet
	cache             *cache.Cache
	cacheSet          bool
	metrics           *metrics.Metrics
	counter           tokens.Counter
	heartbeatInterval time.Duration
}

// WithStages replaces the built-in stage handlers.
func WithStages(set StageSet) Option {
	return func(o *options) {
		o.stages = &set
	}
}

// WithCache injects the result cache. A nil cache disables caching.
func WithCache(c *cache.Cache) Option {
	return func(o *options) {
		o.cache = c
		o.cacheSet = true
	}
}

// WithMetrics attaches Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTokenizer sets the token counter used by the built-in stages.
func WithTokenizer(counter tokens.Counter) Option {
	return func(o *options) {
		o.counter = counter
	}
}

// WithHeartbeatInterval sets how often a long-running stage logs progress.
// Zero disables the heartbeat.
func WithHeartbeatInterval(interval time.Duration) Option {
	return func(o *options) {
		o.heartbeatInterval = interval
	}
}

// New constructs an orchestrator. A nil cfg uses the defaults.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Orchestrator {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	o := &options{heartbeatInterval: defaultHeartbeatInterval}
	for _, opt := range opts {
		opt(o)
	}

	counter := o.counter
	if counter == nil {
		counter = tokens.New(cfg.Optimization.Tokenizer, cfg.Optimization.TokenizerEncoding, logger)
	}
	resultCache := o.cache
	if !o.cacheSet && cfg.Optimization.CacheResults {
		resultCache = cache.New(cfg.Optimization.CacheMaxEntries, logger)
	}

	orch := &Orchestrator{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		cache:     resultCache,
		metrics:   o.metrics,
		counter:   counter,
		heartbeat: heartbeat{interval: o.heartbeatInterval},
	}
	set := DefaultStageSet(cfg, counter, logger)
	if o.stages != nil {
		set = *o.stages
	}
	orch.ConfigureStages(set)
	return orch
}

// Cache returns the result cache, or nil when caching is disabled.
func (o *Orchestrator) Cache() *cache.Cache {
	return o.cache
}

// Metrics returns the attached instrumentation, which may be nil.
func (o *Orchestrator) Metrics() *metrics.Metrics {
	return o.metrics
}

// Config returns the configuration the orchestrator runs with.
func (o *Orchestrator) Config() *config.Config {
	return o.cfg
}
