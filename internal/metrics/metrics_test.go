package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"promptflow/internal/services"
)

func TestObserveAttempt(t *testing.T) {
	m := New()
	m.ObserveAttempt("shotBreakdown", 0, 5*time.Millisecond, errors.New("flaky"))
	m.ObserveAttempt("shotBreakdown", 1, 5*time.Millisecond, nil)
	timeout := services.Wrap(services.ErrTimeout, "shotBreakdown", "execute", "slow", nil)
	m.ObserveAttempt("shotBreakdown", 2, time.Millisecond, timeout)

	if got := testutil.ToFloat64(m.stageAttempts.WithLabelValues("shotBreakdown", "success")); got != 1 {
		t.Fatalf("expected 1 success, got %v", got)
	}
	if got := testutil.ToFloat64(m.stageAttempts.WithLabelValues("shotBreakdown", "failure")); got != 2 {
		t.Fatalf("expected 2 failures, got %v", got)
	}
	if got := testutil.ToFloat64(m.stageRetries.WithLabelValues("shotBreakdown")); got != 2 {
		t.Fatalf("expected 2 retries, got %v", got)
	}
	if got := testutil.ToFloat64(m.stageErrors.WithLabelValues("shotBreakdown", "TIMEOUT_ERROR")); got != 1 {
		t.Fatalf("expected 1 timeout, got %v", got)
	}
	if got := testutil.CollectAndCount(m.stageDuration); got != 1 {
		t.Fatalf("expected one duration series, got %d", got)
	}
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RunFinished(true)
	if got := testutil.ToFloat64(b.runs.WithLabelValues("success")); got != 0 {
		t.Fatalf("expected independent registries, got %v", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveAttempt("s", 0, 0, nil)
	m.CacheLookup("s", true)
	m.RunFinished(false)
	m.QualityScored(0.5, true, 10)
	if samples, err := m.Snapshot(); err != nil || samples != nil {
		t.Fatalf("expected empty snapshot, got %v %v", samples, err)
	}
}

func TestSnapshot(t *testing.T) {
	m := New()
	m.CacheLookup("storyAnalysis", true)
	m.CacheLookup("storyAnalysis", false)
	m.CacheLookup("storyAnalysis", false)
	m.QualityScored(0.9, false, 120)

	samples, err := m.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	values := map[string]float64{}
	for _, s := range samples {
		values[s.Name+"{"+s.Labels+"}"] = s.Value
	}
	if values["promptflow_cache_lookups_total{result=miss,stage=storyAnalysis}"] != 2 {
		t.Fatalf("unexpected cache misses in %v", values)
	}
	if values["promptflow_quality_overall_score_count{}"] != 1 {
		t.Fatalf("expected histogram count in %v", values)
	}
	if values["promptflow_prompt_tokens_estimated_total{}"] != 120 {
		t.Fatalf("expected token total in %v", values)
	}
}

func TestPush(t *testing.T) {
	var pushed atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/metrics/job/promptflow") {
			pushed.Add(1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	m := New()
	m.RunFinished(true)
	if err := m.Push(context.Background(), server.URL, "promptflow"); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if pushed.Load() != 1 {
		t.Fatal("expected one push request")
	}
}
