package logger

import "github.com/harrison/modbuild/internal/models"

// Sink is the set of events a build run emits.
type Sink interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogError(message string)
	LogPhaseStart(phase string, description string)
	LogPhaseComplete(result models.PhaseResult)
	LogPhaseFailed(result models.PhaseResult)
	LogSummary(result models.RunResult)
}

// Multi forwards every event to each sink in order.
type Multi struct {
	sinks []Sink
}

// NewMulti returns a Multi over the non-nil sinks.
func NewMulti(sinks ...Sink) *Multi {
	m := &Multi{}
	for _, s := range sinks {
		if s != nil {
			m.sinks = append(m.sinks, s)
		}
	}
	return m
}

// LogTrace forwards a trace-level message.
func (m *Multi) LogTrace(message string) {
	for _, s := range m.sinks {
		s.LogTrace(message)
	}
}

// LogDebug forwards a debug-level message.
func (m *Multi) LogDebug(message string) {
	for _, s := range m.sinks {
		s.LogDebug(message)
	}
}

// LogInfo forwards an info-level message.
func (m *Multi) LogInfo(message string) {
	for _, s := range m.sinks {
		s.LogInfo(message)
	}
}

// LogWarn forwards a warning.
func (m *Multi) LogWarn(message string) {
	for _, s := range m.sinks {
		s.LogWarn(message)
	}
}

// LogError forwards an error message.
func (m *Multi) LogError(message string) {
	for _, s := range m.sinks {
		s.LogError(message)
	}
}

// LogPhaseStart announces a phase to every sink.
func (m *Multi) LogPhaseStart(phase string, description string) {
	for _, s := range m.sinks {
		s.LogPhaseStart(phase, description)
	}
}

// LogPhaseComplete reports a finished phase.
func (m *Multi) LogPhaseComplete(result models.PhaseResult) {
	for _, s := range m.sinks {
		s.LogPhaseComplete(result)
	}
}

// LogPhaseFailed reports the phase that aborted the run.
func (m *Multi) LogPhaseFailed(result models.PhaseResult) {
	for _, s := range m.sinks {
		s.LogPhaseFailed(result)
	}
}

// LogSummary writes the run summary to every sink.
func (m *Multi) LogSummary(result models.RunResult) {
	for _, s := range m.sinks {
		s.LogSummary(result)
	}
}
