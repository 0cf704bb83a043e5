package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/harrison/modbuild/internal/build"
	"github.com/harrison/modbuild/internal/config"
	"github.com/harrison/modbuild/internal/filelock"
	"github.com/harrison/modbuild/internal/history"
	"github.com/harrison/modbuild/internal/logger"
	"github.com/harrison/modbuild/internal/resolver"
	"github.com/harrison/modbuild/internal/toolrun"
)

// newRegistry returns the in-process tools available to the runner.
// Tests replace it to avoid spawning a real compiler.
var newRegistry = func() *toolrun.Registry {
	return toolrun.NewRegistry()
}

// loadConfig loads the configuration file and applies CLI flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	configPath, _ := cmd.Flags().GetString("config")

	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadConfig(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", configPath, err)
		}
	} else {
		cfg, err = config.LoadConfigFromDir(".")
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	var logLevel, logDir, historyDB *string
	if cmd.Flags().Changed("log-level") {
		v, _ := cmd.Flags().GetString("log-level")
		logLevel = &v
	} else if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		v := "debug"
		logLevel = &v
	}
	if cmd.Flags().Changed("log-dir") {
		v, _ := cmd.Flags().GetString("log-dir")
		logDir = &v
	}
	if cmd.Flags().Changed("history-db") {
		v, _ := cmd.Flags().GetString("history-db")
		historyDB = &v
	}
	var lockTimeout *time.Duration
	if cmd.Flags().Changed("lock-timeout") {
		v, _ := cmd.Flags().GetDuration("lock-timeout")
		lockTimeout = &v
	}
	cfg.MergeWithFlags(logLevel, logDir, historyDB, lockTimeout)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// runPhases wires the console and file loggers, history store, run lock,
// tool runner and downloader into an orchestrator and runs phases.
func runPhases(cmd *cobra.Command, phases []build.Phase) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	runID := uuid.NewString()

	consoleLog := logger.NewConsoleLogger(out, cfg.LogLevel)
	sinks := []logger.Sink{consoleLog}

	fileLog, err := logger.NewFileLoggerWithDirAndLevel(cfg.LogDir, runID, cfg.LogLevel)
	if err != nil {
		consoleLog.LogWarn(fmt.Sprintf("file logging disabled: %v", err))
	} else {
		defer fileLog.Close()
		sinks = append(sinks, fileLog)
	}
	log := logger.NewMulti(sinks...)

	opts := []build.Option{
		build.WithLogger(log),
		build.WithRunID(runID),
		build.WithLocker(filelock.NewFileLock(cfg.LockFile)),
	}

	if cfg.HistoryDB != "" {
		store, err := history.NewStore(cfg.HistoryDB)
		if err != nil {
			log.LogWarn(fmt.Sprintf("run history disabled: %v", err))
		} else {
			defer store.Close()
			opts = append(opts, build.WithRecorder(store))
		}
	}

	registry := newRegistry()
	if names := registry.Names(); len(names) > 0 {
		log.LogDebug("in-process tools: " + strings.Join(names, ", "))
	}
	runner := toolrun.NewRunner(registry, toolrun.WithStreams(out, cmd.ErrOrStderr()))
	downloader := resolver.NewDownloader(resolver.WithOutput(out))

	orch := build.NewOrchestrator(cfg, runner, downloader, opts...)
	_, err = orch.Run(cmd.Context(), phases...)
	return err
}
