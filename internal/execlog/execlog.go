// Package execlog records every stage attempt of a run.
package execlog

import (
	"sync"
	"time"

	"promptflow/internal/services"
)

// StepError is the structured failure of one attempt.
type StepError struct {
	Code    services.Code `json:"code"`
	Message string        `json:"message"`
}

// Step is one stage attempt. Skipped stages are recorded with Skipped set and
// never count as completed.
type Step struct {
	Stage      string        `json:"stage"`
	StartedAt  time.Time     `json:"startedAt"`
	Duration   time.Duration `json:"duration"`
	Success    bool          `json:"success"`
	RetryCount int           `json:"retryCount"`
	FromCache  bool          `json:"fromCache"`
	Skipped    bool          `json:"skipped,omitempty"`
	Reused     bool          `json:"reused,omitempty"`
	Error      *StepError    `json:"error,omitempty"`
}

// Summary is the frozen log of a finished run.
type Summary struct {
	RunID          string        `json:"runId"`
	Steps          []Step        `json:"steps"`
	StepsCompleted int           `json:"stepsCompleted"`
	StepsSkipped   int           `json:"stepsSkipped"`
	SkippedStages  []string      `json:"skippedStages,omitempty"`
	TotalDuration  time.Duration `json:"totalDuration"`
	ErrorCount     int           `json:"errorCount"`
}

// StepsFor returns the steps recorded for a stage.
func (s Summary) StepsFor(stage string) []Step {
	var out []Step
	for _, step := range s.Steps {
		if step.Stage == stage {
			out = append(out, step)
		}
	}
	return out
}

// Log accumulates steps for one run. It is safe for concurrent use so
// observers running on attempt goroutines may append.
type Log struct {
	runID   string
	started time.Time

	mu       sync.Mutex
	steps    []Step
	finished *Summary
}

// New starts an empty log.
func New(runID string) *Log {
	return &Log{runID: runID, started: time.Now()}
}

// RunID returns the run identifier the log belongs to.
func (l *Log) RunID() string {
	return l.runID
}

// Append records a step. Appends after Finish are ignored.
func (l *Log) Append(step Step) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finished != nil {
		return
	}
	l.steps = append(l.steps, step)
}

// Failure converts an error into a StepError.
func Failure(err error) *StepError {
	if err == nil {
		return nil
	}
	details := services.Details(err)
	return &StepError{Code: details.Code, Message: err.Error()}
}

// Snapshot summarizes the steps recorded so far without freezing the log.
func (l *Log) Snapshot() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finished != nil {
		return cloneSummary(*l.finished)
	}
	return l.summarizeLocked()
}

// Finish freezes the log and returns its summary. Later calls return the same
// summary.
func (l *Log) Finish() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.finished == nil {
		summary := l.summarizeLocked()
		l.finished = &summary
	}
	return cloneSummary(*l.finished)
}

func (l *Log) summarizeLocked() Summary {
	summary := Summary{
		RunID:         l.runID,
		Steps:         append([]Step(nil), l.steps...),
		TotalDuration: time.Since(l.started),
	}
	for _, step := range l.steps {
		switch {
		case step.Skipped:
			summary.StepsSkipped++
			summary.SkippedStages = append(summary.SkippedStages, step.Stage)
		case step.Success:
			summary.StepsCompleted++
		}
		if step.Error != nil {
			summary.ErrorCount++
		}
	}
	return summary
}

func cloneSummary(s Summary) Summary {
	s.Steps = append([]Step(nil), s.Steps...)
	s.SkippedStages = append([]string(nil), s.SkippedStages...)
	return s
}
