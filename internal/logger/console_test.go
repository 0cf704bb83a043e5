package logger

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/harrison/modbuild/internal/models"
)

// TestNewConsoleLogger verifies the constructor stores the writer and normalizes the level.
func TestNewConsoleLogger(t *testing.T) {
	t.Run("with valid writer", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := NewConsoleLogger(buf, "DEBUG")

		if logger.writer != buf {
			t.Error("writer not set correctly")
		}
		if logger.logLevel != "debug" {
			t.Errorf("expected log level %q, got %q", "debug", logger.logLevel)
		}
		if logger.colorOutput {
			t.Error("buffer output must never be colored")
		}
	})

	t.Run("with nil writer", func(t *testing.T) {
		logger := NewConsoleLogger(nil, "info")
		// Must not panic
		logger.LogInfo("dropped")
		logger.LogSummary(models.RunResult{})
	})

	t.Run("invalid level falls back to info", func(t *testing.T) {
		logger := NewConsoleLogger(&bytes.Buffer{}, "verbose")
		if logger.logLevel != "info" {
			t.Errorf("expected info, got %q", logger.logLevel)
		}
	})
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	tests := []struct {
		level   string
		visible []string
		hidden  []string
	}{
		{level: "trace", visible: []string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}},
		{level: "info", visible: []string{"INFO", "WARN", "ERROR"}, hidden: []string{"TRACE", "DEBUG"}},
		{level: "error", visible: []string{"ERROR"}, hidden: []string{"TRACE", "DEBUG", "INFO", "WARN"}},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := NewConsoleLogger(buf, tt.level)
			logger.LogTrace("trace msg")
			logger.LogDebug("debug msg")
			logger.LogInfo("info msg")
			logger.LogWarn("warn msg")
			logger.LogError("error msg")

			out := buf.String()
			for _, lvl := range tt.visible {
				if !strings.Contains(out, "["+lvl+"]") {
					t.Errorf("expected %s line in output:\n%s", lvl, out)
				}
			}
			for _, lvl := range tt.hidden {
				if strings.Contains(out, "["+lvl+"]") {
					t.Errorf("did not expect %s line in output:\n%s", lvl, out)
				}
			}
		})
	}
}

func TestConsoleLogger_TimestampFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	NewConsoleLogger(buf, "info").LogInfo("BEGIN.")

	line := strings.TrimSpace(buf.String())
	// [HH:MM:SS] [INFO] BEGIN.
	if len(line) < 10 || line[0] != '[' || line[9] != ']' {
		t.Fatalf("unexpected timestamp prefix: %q", line)
	}
	if _, err := time.Parse("15:04:05", line[1:9]); err != nil {
		t.Errorf("timestamp %q does not parse: %v", line[1:9], err)
	}
	if !strings.HasSuffix(line, "[INFO] BEGIN.") {
		t.Errorf("unexpected line: %q", line)
	}
}

func TestConsoleLogger_PhaseEvents(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "debug")

	logger.LogPhaseStart("compile-main", "compiling main modules")
	logger.LogPhaseComplete(models.PhaseResult{Phase: "compile-main", Status: models.StatusSucceeded, Duration: 90 * time.Second})
	logger.LogPhaseFailed(models.PhaseResult{Phase: "test", Status: models.StatusFailed, Duration: 2 * time.Second, Error: errors.New("java failed with error code 1")})

	out := buf.String()
	for _, want := range []string{
		"[INFO] compiling main modules",
		"phase compile-main started",
		"phase compile-main complete (1m30s)",
		"[ERROR] phase test failed after 2s: java failed with error code 1",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestConsoleLogger_PhaseCompleteHiddenAtInfo(t *testing.T) {
	buf := &bytes.Buffer{}
	NewConsoleLogger(buf, "info").LogPhaseComplete(models.PhaseResult{Phase: "clean"})
	if buf.Len() != 0 {
		t.Errorf("expected no output at info level, got %q", buf.String())
	}
}

func TestConsoleLogger_LogSummary(t *testing.T) {
	phases := []models.PhaseResult{
		{Phase: "clean", Status: models.StatusSucceeded, Duration: time.Second},
		{Phase: "resolve", Status: models.StatusFailed, Duration: 3 * time.Second},
	}

	t.Run("failed", func(t *testing.T) {
		buf := &bytes.Buffer{}
		NewConsoleLogger(buf, "info").LogSummary(models.RunResult{
			Phases:   phases,
			Duration: 4 * time.Second,
			Err:      errors.New("boom"),
		})
		out := buf.String()
		if !strings.Contains(out, "=== Build Summary ===") {
			t.Errorf("missing header:\n%s", out)
		}
		if !strings.Contains(out, "resolve") || !strings.Contains(out, "FAILED") {
			t.Errorf("missing failed phase:\n%s", out)
		}
		if !strings.Contains(out, "Build failed after 4s") {
			t.Errorf("missing failure line:\n%s", out)
		}
	})

	t.Run("succeeded", func(t *testing.T) {
		buf := &bytes.Buffer{}
		NewConsoleLogger(buf, "info").LogSummary(models.RunResult{Phases: phases[:1], Duration: 65 * time.Second})
		if !strings.Contains(buf.String(), "Build succeeded in 1m5s") {
			t.Errorf("missing success line:\n%s", buf.String())
		}
	})

	t.Run("suppressed at error level", func(t *testing.T) {
		buf := &bytes.Buffer{}
		NewConsoleLogger(buf, "error").LogSummary(models.RunResult{})
		if buf.Len() != 0 {
			t.Errorf("expected no output, got %q", buf.String())
		}
	})
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{1500 * time.Millisecond, "1s"},
		{time.Minute, "1m"},
		{90 * time.Second, "1m30s"},
		{2 * time.Hour, "2h"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
		{time.Hour + time.Minute + time.Second, "1h1m1s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.in); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestConsoleLogger_ConcurrentWrites(t *testing.T) {
	buf := &bytes.Buffer{}
	logger := NewConsoleLogger(buf, "info")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			logger.LogInfo(fmt.Sprintf("message %d", n))
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Errorf("expected 20 lines, got %d", len(lines))
	}
}
