// Package logger provides logging implementations for modbuild runs.
//
// The logger package records run progress at the phase and summary levels.
// Implementations are thread-safe and support console and file destinations;
// Multi fans a single stream of events out to several of them.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/harrison/modbuild/internal/models"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

// ConsoleLogger logs run progress to a writer with timestamps and thread safety.
// All output is prefixed with [HH:MM:SS] timestamps for tracking execution flow.
// It supports log level filtering to control message verbosity.
// Color output is enabled only for terminal output (os.Stdout/os.Stderr).
type ConsoleLogger struct {
	writer      io.Writer
	logLevel    string
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger that writes to the provided io.Writer.
// If writer is nil, messages are silently discarded.
// Valid levels: trace, debug, info, warn, error (case-insensitive).
// If logLevel is empty or invalid, defaults to "info".
func NewConsoleLogger(writer io.Writer, logLevel string) *ConsoleLogger {
	return &ConsoleLogger{
		writer:      writer,
		logLevel:    normalizeLogLevel(logLevel),
		colorOutput: isTerminal(writer),
	}
}

// isTerminal reports whether w is the process stdout/stderr attached to a TTY.
// NO_COLOR (via color.NoColor) always disables colour.
func isTerminal(w io.Writer) bool {
	if w == nil || color.NoColor {
		return false
	}
	f, ok := w.(*os.File)
	if !ok || (f != os.Stdout && f != os.Stderr) {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// normalizeLogLevel converts a log level string to lowercase and validates it.
// Returns "info" as default for empty or invalid levels.
func normalizeLogLevel(level string) string {
	normalized := strings.ToLower(strings.TrimSpace(level))

	switch normalized {
	case "trace", "debug", "info", "warn", "error":
		return normalized
	}
	return "info"
}

// logLevelToInt converts a log level string to its numeric value.
func logLevelToInt(level string) int {
	switch level {
	case "trace":
		return levelTrace
	case "debug":
		return levelDebug
	case "info":
		return levelInfo
	case "warn":
		return levelWarn
	case "error":
		return levelError
	default:
		return levelInfo
	}
}

func (cl *ConsoleLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(cl.logLevel)
}

// LogTrace logs a trace-level message.
func (cl *ConsoleLogger) LogTrace(message string) {
	cl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (cl *ConsoleLogger) LogDebug(message string) {
	cl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
// Format: "[HH:MM:SS] [INFO] <message>"
func (cl *ConsoleLogger) LogInfo(message string) {
	cl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (cl *ConsoleLogger) LogWarn(message string) {
	cl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (cl *ConsoleLogger) LogError(message string) {
	cl.logWithLevel("ERROR", message)
}

func (cl *ConsoleLogger) logWithLevel(level string, message string) {
	if cl.writer == nil || !cl.shouldLog(strings.ToLower(level)) {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	label := level
	if cl.colorOutput {
		label = levelColor(level).Sprint(level)
	}
	fmt.Fprintf(cl.writer, "[%s] [%s] %s\n", ts, label, message)
}

func levelColor(level string) *color.Color {
	switch level {
	case "TRACE":
		return color.New(color.FgHiBlack)
	case "DEBUG":
		return color.New(color.FgCyan)
	case "INFO":
		return color.New(color.FgBlue)
	case "WARN":
		return color.New(color.FgYellow)
	case "ERROR":
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

// LogPhaseStart logs the start of a phase at INFO level.
// Format: "[HH:MM:SS] [INFO] <description>"
func (cl *ConsoleLogger) LogPhaseStart(phase string, description string) {
	cl.LogInfo(description)
	cl.LogDebug(fmt.Sprintf("phase %s started", phase))
}

// LogPhaseComplete logs a finished phase at DEBUG level.
// Format: "[HH:MM:SS] [DEBUG] phase <name> complete (<duration>)"
func (cl *ConsoleLogger) LogPhaseComplete(result models.PhaseResult) {
	if cl.writer == nil || !cl.shouldLog("debug") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := formatDuration(result.Duration)
	if cl.colorOutput {
		name := color.New(color.Bold).Sprint(result.Phase)
		done := color.New(color.FgGreen).Sprint("complete")
		fmt.Fprintf(cl.writer, "[%s] [%s] phase %s %s (%s)\n", ts, levelColor("DEBUG").Sprint("DEBUG"), name, done, durationStr)
		return
	}
	fmt.Fprintf(cl.writer, "[%s] [DEBUG] phase %s complete (%s)\n", ts, result.Phase, durationStr)
}

// LogPhaseFailed logs a failed phase at ERROR level.
// Format: "[HH:MM:SS] [ERROR] phase <name> failed after <duration>: <error>"
func (cl *ConsoleLogger) LogPhaseFailed(result models.PhaseResult) {
	cl.LogError(fmt.Sprintf("phase %s failed after %s: %v", result.Phase, formatDuration(result.Duration), result.Error))
}

// LogSummary logs the run summary at INFO level.
func (cl *ConsoleLogger) LogSummary(result models.RunResult) {
	if cl.writer == nil || !cl.shouldLog("info") {
		return
	}

	cl.mutex.Lock()
	defer cl.mutex.Unlock()

	ts := timestamp()
	durationStr := formatDuration(result.Duration)

	var output string
	if cl.colorOutput {
		header := color.New(color.Bold).Sprint("=== Build Summary ===")
		output = fmt.Sprintf("[%s] %s\n", ts, header)
		for _, p := range result.Phases {
			status := color.New(color.FgGreen).Sprint(p.Status)
			if p.Status == models.StatusFailed {
				status = color.New(color.FgRed).Sprint(p.Status)
			}
			output += fmt.Sprintf("[%s]   %-13s %s (%s)\n", ts, p.Phase, status, formatDuration(p.Duration))
		}
		if result.Succeeded() {
			output += fmt.Sprintf("[%s] %s in %s\n", ts, color.New(color.FgGreen).Sprint("Build succeeded"), durationStr)
		} else {
			output += fmt.Sprintf("[%s] %s after %s\n", ts, color.New(color.FgRed).Sprint("Build failed"), durationStr)
		}
	} else {
		output = fmt.Sprintf("[%s] === Build Summary ===\n", ts)
		for _, p := range result.Phases {
			output += fmt.Sprintf("[%s]   %-13s %s (%s)\n", ts, p.Phase, p.Status, formatDuration(p.Duration))
		}
		if result.Succeeded() {
			output += fmt.Sprintf("[%s] Build succeeded in %s\n", ts, durationStr)
		} else {
			output += fmt.Sprintf("[%s] Build failed after %s\n", ts, durationStr)
		}
	}

	io.WriteString(cl.writer, output)
}

// timestamp returns the current time formatted as "15:04:05" (HH:MM:SS).
func timestamp() string {
	return time.Now().Format("15:04:05")
}

// formatDuration converts a time.Duration to a human-readable string.
// Examples: "5s", "1m30s", "2h15m"
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		hours := d / time.Hour
		remainder := d % time.Hour
		if remainder == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		minutes := remainder / time.Minute
		remainder = remainder % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
	case d >= time.Minute:
		minutes := d / time.Minute
		remainder := d % time.Minute
		if remainder == 0 {
			return fmt.Sprintf("%dm", minutes)
		}
		seconds := remainder / time.Second
		return fmt.Sprintf("%dm%ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", int64(d.Seconds()))
	}
}
