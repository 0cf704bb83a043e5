package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/harrison/modbuild/internal/models"
)

// FileLogger logs build events to files in the .modbuild/logs/ directory.
// It creates a timestamped log file per run, a detail file per finished
// phase, and maintains a latest.log symlink pointing to the most recent run.
// It is thread-safe and supports log level filtering.
type FileLogger struct {
	logDir    string
	runLog    *os.File
	runFile   string
	phasesDir string
	runID     string
	logLevel  string
	mu        sync.Mutex
}

// NewFileLoggerWithDir creates a new FileLogger with a custom log directory
// and the default "info" level.
func NewFileLoggerWithDir(logDir string, runID string) (*FileLogger, error) {
	return NewFileLoggerWithDirAndLevel(logDir, runID, "info")
}

// NewFileLoggerWithDirAndLevel creates a new FileLogger with a custom log directory and log level.
// runID is written into the header so the file can be matched with the history store.
func NewFileLoggerWithDirAndLevel(logDir string, runID string, logLevel string) (*FileLogger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	phasesDir := filepath.Join(logDir, "phases")
	if err := os.MkdirAll(phasesDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create phases directory: %w", err)
	}

	// run-YYYYMMDD-HHMMSS.log
	timestamp := time.Now().Format("20060102-150405")
	runFile := filepath.Join(logDir, fmt.Sprintf("run-%s.log", timestamp))

	file, err := os.OpenFile(runFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create run log file: %w", err)
	}

	symlinkPath := filepath.Join(logDir, "latest.log")
	if _, err := os.Lstat(symlinkPath); err == nil {
		if err := os.Remove(symlinkPath); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to remove old symlink: %w", err)
		}
	}
	if err := os.Symlink(filepath.Base(runFile), symlinkPath); err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to create symlink: %w", err)
	}

	logger := &FileLogger{
		logDir:    logDir,
		runLog:    file,
		runFile:   runFile,
		phasesDir: phasesDir,
		runID:     runID,
		logLevel:  normalizeLogLevel(logLevel),
	}

	logger.writeRunLog("=== modbuild Run Log ===\n")
	logger.writeRunLog(fmt.Sprintf("Run ID: %s\n", runID))
	logger.writeRunLog(fmt.Sprintf("Started at: %s\n\n", time.Now().Format(time.RFC3339)))

	return logger, nil
}

// RunFile returns the path of the run log.
func (fl *FileLogger) RunFile() string {
	return fl.runFile
}

func (fl *FileLogger) shouldLog(messageLevel string) bool {
	return logLevelToInt(messageLevel) >= logLevelToInt(fl.logLevel)
}

// LogTrace logs a trace-level message (most verbose).
func (fl *FileLogger) LogTrace(message string) {
	fl.logWithLevel("TRACE", message)
}

// LogDebug logs a debug-level message.
func (fl *FileLogger) LogDebug(message string) {
	fl.logWithLevel("DEBUG", message)
}

// LogInfo logs an info-level message.
func (fl *FileLogger) LogInfo(message string) {
	fl.logWithLevel("INFO", message)
}

// LogWarn logs a warning-level message.
func (fl *FileLogger) LogWarn(message string) {
	fl.logWithLevel("WARN", message)
}

// LogError logs an error-level message.
func (fl *FileLogger) LogError(message string) {
	fl.logWithLevel("ERROR", message)
}

func (fl *FileLogger) logWithLevel(level string, message string) {
	if !fl.shouldLog(strings.ToLower(level)) {
		return
	}
	fl.writeRunLog(fmt.Sprintf("[%s] [%s] %s\n", time.Now().Format("15:04:05"), level, message))
}

// LogPhaseStart logs the phase description at INFO level.
func (fl *FileLogger) LogPhaseStart(phase string, description string) {
	fl.LogInfo(description)
}

// LogPhaseComplete records a succeeded phase in the run log and its detail file.
func (fl *FileLogger) LogPhaseComplete(result models.PhaseResult) {
	fl.LogDebug(fmt.Sprintf("phase %s complete: duration %.1fs", result.Phase, result.Duration.Seconds()))
	if err := fl.writePhaseLog(result); err != nil {
		fl.LogWarn(err.Error())
	}
}

// LogPhaseFailed records a failed phase in the run log and its detail file.
func (fl *FileLogger) LogPhaseFailed(result models.PhaseResult) {
	fl.LogError(fmt.Sprintf("phase %s failed after %.1fs: %v", result.Phase, result.Duration.Seconds(), result.Error))
	if err := fl.writePhaseLog(result); err != nil {
		fl.LogWarn(err.Error())
	}
}

// writePhaseLog writes phases/<phase>.log, replacing any earlier run's file.
func (fl *FileLogger) writePhaseLog(result models.PhaseResult) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	path := filepath.Join(fl.phasesDir, result.Phase+".log")
	content := fmt.Sprintf("=== Phase %s ===\n", result.Phase)
	content += fmt.Sprintf("Run ID: %s\n", fl.runID)
	content += fmt.Sprintf("Status: %s\n", result.Status)
	content += fmt.Sprintf("Started at: %s\n", result.StartedAt.Format(time.RFC3339))
	content += fmt.Sprintf("Duration: %.1fs\n", result.Duration.Seconds())
	if result.Error != nil {
		content += fmt.Sprintf("\nError:\n%v\n", result.Error)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write phase log: %w", err)
	}
	return nil
}

// LogSummary logs the run summary at INFO level.
func (fl *FileLogger) LogSummary(result models.RunResult) {
	if !fl.shouldLog("info") {
		return
	}

	timestamp := time.Now().Format("15:04:05")
	status := models.StatusSucceeded
	if !result.Succeeded() {
		status = models.StatusFailed
	}

	message := fmt.Sprintf("\n[%s] === BUILD SUMMARY ===\n", timestamp)
	message += fmt.Sprintf("[%s] Run ID:       %s\n", timestamp, result.RunID)
	for _, p := range result.Phases {
		message += fmt.Sprintf("[%s] %-13s %s (%.1fs)\n", timestamp, p.Phase+":", p.Status, p.Duration.Seconds())
	}
	message += fmt.Sprintf("[%s] Total time:   %.1fs\n", timestamp, result.Duration.Seconds())
	message += fmt.Sprintf("[%s] Status:       %s\n", timestamp, status)
	if result.Err != nil {
		message += fmt.Sprintf("[%s] Error:        %v\n", timestamp, result.Err)
	}
	message += fmt.Sprintf("[%s] Completed at: %s\n", timestamp, time.Now().Format(time.RFC3339))

	fl.writeRunLog(message)
}

// Close flushes and closes the run log file.
func (fl *FileLogger) Close() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		if err := fl.runLog.Sync(); err != nil {
			return fmt.Errorf("failed to sync run log: %w", err)
		}
		if err := fl.runLog.Close(); err != nil {
			return fmt.Errorf("failed to close run log: %w", err)
		}
		fl.runLog = nil
	}
	return nil
}

func (fl *FileLogger) writeRunLog(message string) {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.runLog != nil {
		fl.runLog.WriteString(message)
		// Flush after each write for real-time logging
		fl.runLog.Sync()
	}
}
