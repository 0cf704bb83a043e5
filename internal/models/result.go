package models

import "time"

// Phase status constants
const (
	StatusSucceeded = "SUCCEEDED" // Phase ran to completion
	StatusFailed    = "FAILED"    // Phase aborted the run
)

// PhaseResult records the outcome of a single build phase.
type PhaseResult struct {
	Phase     string        // Phase name, e.g. "compile-main"
	Status    string        // StatusSucceeded or StatusFailed
	StartedAt time.Time     // When the phase began
	Duration  time.Duration // Time taken by the phase
	Error     error         // Failure cause, nil on success
}

// RunResult is the aggregate outcome of one orchestrator run.
// Phases lists only the phases that actually started, in order.
type RunResult struct {
	RunID     string
	StartedAt time.Time
	Duration  time.Duration
	Phases    []PhaseResult
	Err       error
}

// Succeeded reports whether every started phase succeeded.
func (r *RunResult) Succeeded() bool {
	return r.Err == nil
}

// FailedPhase returns the phase that aborted the run, or nil.
func (r *RunResult) FailedPhase() *PhaseResult {
	for i := range r.Phases {
		if r.Phases[i].Status == StatusFailed {
			return &r.Phases[i]
		}
	}
	return nil
}
