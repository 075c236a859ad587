// Package metrics exposes Prometheus instruments for workflow runs.
//
// Every Metrics value owns its registry, so independently configured
// orchestrators in one process never share counters.
package metrics

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	dto "github.com/prometheus/client_model/go"

	"promptflow/internal/services"
)

const namespace = "promptflow"

// Metrics groups the counters and histograms recorded by the orchestrator.
type Metrics struct {
	Registry *prometheus.Registry

	stageAttempts  *prometheus.CounterVec
	stageRetries   *prometheus.CounterVec
	stageErrors    *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	cacheLookups   *prometheus.CounterVec
	stageSkips     *prometheus.CounterVec
	runs           *prometheus.CounterVec
	batchInputs    *prometheus.CounterVec
	qualityScore   prometheus.Histogram
	optimizations  prometheus.Counter
	tokensEstimate prometheus.Counter
}

// New registers a fresh set of instruments on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		stageAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_attempts_total",
			Help:      "Stage attempts partitioned by stage and outcome.",
		}, []string{"stage", "outcome"}),
		stageRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_retries_total",
			Help:      "Retries performed after a failed stage attempt.",
		}, []string{"stage"}),
		stageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_errors_total",
			Help:      "Failed stage attempts partitioned by error code.",
		}, []string{"stage", "code"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of stage attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"stage"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Stage cache lookups partitioned by result.",
		}, []string{"stage", "result"}),
		stageSkips: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_skips_total",
			Help:      "Stages skipped because they are disabled or their output was reused.",
		}, []string{"stage", "reason"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished workflow runs partitioned by result.",
		}, []string{"result"}),
		batchInputs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_inputs_total",
			Help:      "Batch members partitioned by result.",
		}, []string{"result"}),
		qualityScore: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "quality_overall_score",
			Help:      "Overall quality score of validated prompts.",
			Buckets:   prometheus.LinearBuckets(0.1, 0.1, 10),
		}),
		optimizations: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quality_optimizations_total",
			Help:      "Prompts rewritten by the quality optimizer.",
		}),
		tokensEstimate: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_tokens_estimated_total",
			Help:      "Estimated tokens across generated prompts.",
		}),
	}
}

// ObserveAttempt records one stage attempt.
func (m *Metrics) ObserveAttempt(stage string, retries int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if retries > 0 {
		m.stageRetries.WithLabelValues(stage).Inc()
	}
	if err != nil {
		m.stageAttempts.WithLabelValues(stage, "failure").Inc()
		m.stageErrors.WithLabelValues(stage, string(services.CodeOf(err))).Inc()
		return
	}
	m.stageAttempts.WithLabelValues(stage, "success").Inc()
}

// CacheLookup records a cache hit or miss for a stage.
func (m *Metrics) CacheLookup(stage string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(stage, result).Inc()
}

// StageSkipped records a stage that did not execute.
func (m *Metrics) StageSkipped(stage, reason string) {
	if m == nil {
		return
	}
	m.stageSkips.WithLabelValues(stage, reason).Inc()
}

// RunFinished records the result of a full workflow run.
func (m *Metrics) RunFinished(success bool) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(resultLabel(success)).Inc()
}

// BatchInput records one batch member result.
func (m *Metrics) BatchInput(success bool) {
	if m == nil {
		return
	}
	m.batchInputs.WithLabelValues(resultLabel(success)).Inc()
}

// QualityScored records a quality report.
func (m *Metrics) QualityScored(overall float64, optimized bool, tokens int) {
	if m == nil {
		return
	}
	m.qualityScore.Observe(overall)
	if optimized {
		m.optimizations.Inc()
	}
	if tokens > 0 {
		m.tokensEstimate.Add(float64(tokens))
	}
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Sample is one gathered series, flattened for display.
type Sample struct {
	Name   string
	Labels string
	Value  float64
}

// Snapshot gathers counters and histogram counts, sorted by name then labels.
// Histograms report their observation count.
func (m *Metrics) Snapshot() ([]Sample, error) {
	if m == nil {
		return nil, nil
	}
	families, err := m.Registry.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}
	var samples []Sample
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			sample := Sample{Name: family.GetName(), Labels: formatLabels(metric.GetLabel())}
			switch family.GetType() {
			case dto.MetricType_COUNTER:
				sample.Value = metric.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				sample.Value = metric.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				sample.Name += "_count"
				sample.Value = float64(metric.GetHistogram().GetSampleCount())
			default:
				continue
			}
			samples = append(samples, sample)
		}
	}
	sort.Slice(samples, func(i, j int) bool {
		if samples[i].Name != samples[j].Name {
			return samples[i].Name < samples[j].Name
		}
		return samples[i].Labels < samples[j].Labels
	})
	return samples, nil
}

func formatLabels(pairs []*dto.LabelPair) string {
	parts := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		parts = append(parts, pair.GetName()+"="+pair.GetValue())
	}
	return strings.Join(parts, ",")
}

// Push sends the registry to a Prometheus Pushgateway, grouped by instance.
func (m *Metrics) Push(ctx context.Context, gatewayURL, job string) error {
	if m == nil {
		return nil
	}
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	instance := fmt.Sprintf("%s-%d", hostname, os.Getpid())
	pusher := push.New(gatewayURL, job).Gatherer(m.Registry).Grouping("instance", instance)
	if err := pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
