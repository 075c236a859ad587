package workflow

import (
	"context"
	"time"

	"promptflow/internal/stage"
)

// StageStatus describes a configured stage.
type StageStatus struct {
	Name       string        `json:"name"`
	Registered bool          `json:"registered"`
	Enabled    bool          `json:"enabled"`
	Timeout    time.Duration `json:"timeout"`
	Health     stage.Health  `json:"health"`
}

// StatusSummary represents lightweight workflow diagnostics.
type StatusSummary struct {
	Stages       []StageStatus `json:"stages"`
	CacheEntries int           `json:"cacheEntries"`
	CacheEnabled bool          `json:"cacheEnabled"`
	LastError    string        `json:"lastError,omitempty"`
}

// StageStatus reports every pipeline stage in order with its settings and
// health. Stages without a registered handler are reported unhealthy.
func (o *Orchestrator) StageStatus(ctx context.Context) []StageStatus {
	out := make([]StageStatus, 0, len(stage.Names()))
	for _, name := range stage.Names() {
		settings, _ := o.cfg.Stage(name)
		status := StageStatus{Name: name, Enabled: settings.Enabled, Timeout: settings.Timeout()}
		if p, ok := o.lookupStage(name); ok {
			status.Registered = true
			status.Health = p.handler.HealthCheck(ctx)
		} else {
			status.Health = stage.Unhealthy(name, "no handler registered")
		}
		out = append(out, status)
	}
	return out
}

// Status returns the latest workflow information.
func (o *Orchestrator) Status(ctx context.Context) StatusSummary {
	summary := StatusSummary{
		Stages:       o.StageStatus(ctx),
		CacheEntries: o.cache.Len(),
		CacheEnabled: o.cache != nil,
	}
	o.mu.RLock()
	lastErr := o.lastErr
	o.mu.RUnlock()
	if lastErr != nil {
		summary.LastError = lastErr.Error()
	}
	return summary
}

func (o *Orchestrator) setLastError(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
}
