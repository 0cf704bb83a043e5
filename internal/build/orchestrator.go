// Package build sequences the clean, resolve, compile and test phases of a
// modular source tree. Phases run strictly in order and the first failure
// aborts the run.
package build

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/harrison/modbuild/internal/config"
	"github.com/harrison/modbuild/internal/fsutil"
	"github.com/harrison/modbuild/internal/models"
	"github.com/harrison/modbuild/internal/resolver"
)

// Logger defines the interface for logging build progress and results.
type Logger interface {
	LogTrace(message string)
	LogDebug(message string)
	LogInfo(message string)
	LogWarn(message string)
	LogPhaseStart(phase string, description string)
	LogPhaseComplete(result models.PhaseResult)
	LogPhaseFailed(result models.PhaseResult)
	LogSummary(result models.RunResult)
}

// ToolRunner runs a named tool and fails on a nonzero exit code.
type ToolRunner interface {
	Run(ctx context.Context, name string, args []string) error
}

// Resolver downloads artifacts into a directory in declaration order.
type Resolver interface {
	Resolve(ctx context.Context, artifacts []resolver.Artifact, directory string) ([]string, error)
}

// Recorder persists finished runs.
type Recorder interface {
	RecordRun(ctx context.Context, result models.RunResult) error
}

// Locker excludes concurrent runs in the same tree.
type Locker interface {
	Path() string
	TryLock() (bool, error)
	LockWithTimeout(ctx context.Context, timeout time.Duration) error
	Unlock() error
}

// Orchestrator runs build phases against one configuration.
type Orchestrator struct {
	cfg      *config.Config
	runner   ToolRunner
	resolver Resolver
	logger   Logger
	recorder Recorder
	locker   Locker
	runID    string
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Nil leaves logging disabled.
func WithLogger(l Logger) Option {
	return func(o *Orchestrator) {
		o.logger = l
	}
}

// WithRecorder records every run. Recording failures are logged, never returned.
func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		o.recorder = r
	}
}

// WithLocker holds l for the duration of each run.
func WithLocker(l Locker) Option {
	return func(o *Orchestrator) {
		o.locker = l
	}
}

// WithRunID fixes the ID of the first run instead of generating one.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// NewOrchestrator creates a new Orchestrator instance.
func NewOrchestrator(cfg *config.Config, runner ToolRunner, res Resolver, opts ...Option) *Orchestrator {
	if cfg == nil {
		panic("config cannot be nil")
	}
	if runner == nil {
		panic("tool runner cannot be nil")
	}
	if res == nil {
		panic("resolver cannot be nil")
	}

	o := &Orchestrator{
		cfg:      cfg,
		runner:   runner,
		resolver: res,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// Build runs every phase from clean to test.
func (o *Orchestrator) Build(ctx context.Context) (*models.RunResult, error) {
	return o.Run(ctx, AllPhases...)
}

// Run executes phases in the given order, stopping at the first failure.
// It handles SIGINT/SIGTERM by cancelling the running phase, holds the
// configured lock, logs a summary and records the run.
func (o *Orchestrator) Run(ctx context.Context, phases ...Phase) (*models.RunResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			o.logWarn("received interrupt signal, stopping build")
			cancel()
		case <-ctx.Done():
		}
	}()

	result := &models.RunResult{
		RunID:     o.nextRunID(),
		StartedAt: time.Now(),
	}

	if o.locker != nil {
		if err := o.acquireLock(ctx); err != nil {
			return nil, err
		}
		defer func() {
			if err := o.locker.Unlock(); err != nil {
				o.logWarn(err.Error())
			}
		}()
	}

	o.logInfo("BEGIN")
	for _, phase := range phases {
		pr, err := o.runPhase(ctx, phase)
		result.Phases = append(result.Phases, pr)
		if err != nil {
			result.Err = err
			break
		}
	}
	result.Duration = time.Since(result.StartedAt)
	if result.Err == nil {
		o.logInfo("END.")
	}

	if o.logger != nil {
		o.logger.LogSummary(*result)
	}
	o.record(ctx, *result)

	return result, result.Err
}

func (o *Orchestrator) nextRunID() string {
	if o.runID != "" {
		id := o.runID
		o.runID = ""
		return id
	}
	return uuid.NewString()
}

// acquireLock takes the run lock, announcing a wait when another build holds it.
func (o *Orchestrator) acquireLock(ctx context.Context) error {
	locked, err := o.locker.TryLock()
	if err != nil {
		return fmt.Errorf("acquire build lock: %w", err)
	}
	if locked {
		return nil
	}

	o.logInfo("waiting for build lock " + o.locker.Path())
	if err := o.locker.LockWithTimeout(ctx, o.cfg.LockTimeout); err != nil {
		return fmt.Errorf("another build is running: %w", err)
	}
	return nil
}

func (o *Orchestrator) runPhase(ctx context.Context, phase Phase) (models.PhaseResult, error) {
	pr := models.PhaseResult{
		Phase:     phase.String(),
		StartedAt: time.Now(),
	}
	if o.logger != nil {
		o.logger.LogPhaseStart(pr.Phase, phaseTitle(phase))
	}
	o.logDebug(o.describe(phase))

	var err error
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = &Error{Phase: phase, Op: "cancelled", Err: ctxErr}
	} else {
		err = o.execute(ctx, phase)
	}

	pr.Duration = time.Since(pr.StartedAt)
	if err != nil {
		pr.Status = models.StatusFailed
		pr.Error = err
		if o.logger != nil {
			o.logger.LogPhaseFailed(pr)
		}
		return pr, err
	}

	pr.Status = models.StatusSucceeded
	if o.logger != nil {
		o.logger.LogPhaseComplete(pr)
	}
	return pr, nil
}

func (o *Orchestrator) execute(ctx context.Context, phase Phase) error {
	switch phase {
	case PhaseClean:
		return o.Clean()
	case PhaseResolve:
		return o.Resolve(ctx)
	case PhaseCompileMain:
		return o.CompileMain(ctx)
	case PhaseCompileTest:
		return o.CompileTest(ctx)
	case PhaseCompileUser:
		return o.CompileUser(ctx)
	case PhaseTest:
		return o.Test(ctx)
	default:
		return &Error{Phase: phase, Op: fmt.Sprintf("unknown phase %d", int(phase))}
	}
}

// phaseTitle is the info line announcing a phase.
func phaseTitle(phase Phase) string {
	switch phase {
	case PhaseClean:
		return "Clean output directories"
	case PhaseResolve:
		return "Resolve dependencies"
	case PhaseCompileMain:
		return "Compile main application modules"
	case PhaseCompileTest:
		return "Compile test application modules"
	case PhaseCompileUser:
		return "Compile user-view test integration modules"
	case PhaseTest:
		return "Launch test runs"
	default:
		return phase.String()
	}
}

func (o *Orchestrator) describe(phase Phase) string {
	l := o.cfg.Layout
	switch phase {
	case PhaseClean:
		return fmt.Sprintf("cleaning %s", l.Mods)
	case PhaseResolve:
		return fmt.Sprintf("resolving %d artifacts into %s", len(o.cfg.Artifacts()), l.Deps)
	case PhaseCompileMain:
		return fmt.Sprintf("compiling %s into %s", l.MainSource, l.MainTarget)
	case PhaseCompileTest:
		return fmt.Sprintf("compiling %s into %s", l.TestSource, l.TestTarget)
	case PhaseCompileUser:
		return fmt.Sprintf("compiling %s into %s", l.UserSource, l.UserTarget)
	case PhaseTest:
		return fmt.Sprintf("testing %s and %s", l.TestTarget, l.UserTarget)
	default:
		return phase.String()
	}
}

// Clean removes all prior build output under the mods root.
func (o *Orchestrator) Clean() error {
	if err := fsutil.Clean(o.cfg.Layout.Mods); err != nil {
		return &Error{Phase: PhaseClean, Op: "remove " + o.cfg.Layout.Mods, Err: err}
	}
	return nil
}

// Resolve downloads the configured artifacts into deps.
func (o *Orchestrator) Resolve(ctx context.Context) error {
	paths, err := o.resolver.Resolve(ctx, o.cfg.Artifacts(), o.cfg.Layout.Deps)
	if err != nil {
		return &Error{Phase: PhaseResolve, Op: "download artifacts", Err: err}
	}
	for _, p := range paths {
		o.logDebug("resolved " + p)
	}
	return nil
}

// CompileMain compiles the main module group.
func (o *Orchestrator) CompileMain(ctx context.Context) error {
	args, err := o.MainCompileArgs()
	if err != nil {
		return &Error{Phase: PhaseCompileMain, Op: "collect sources", Err: err}
	}
	return o.compile(ctx, PhaseCompileMain, args)
}

// CompileTest compiles the test module group.
func (o *Orchestrator) CompileTest(ctx context.Context) error {
	args, err := o.TestCompileArgs()
	if err != nil {
		return &Error{Phase: PhaseCompileTest, Op: "collect sources", Err: err}
	}
	return o.compile(ctx, PhaseCompileTest, args)
}

// CompileUser compiles the user-integration module group.
func (o *Orchestrator) CompileUser(ctx context.Context) error {
	args, err := o.UserCompileArgs()
	if err != nil {
		return &Error{Phase: PhaseCompileUser, Op: "collect sources", Err: err}
	}
	return o.compile(ctx, PhaseCompileUser, args)
}

func (o *Orchestrator) compile(ctx context.Context, phase Phase, args []string) error {
	o.logTrace(fmt.Sprintf("%s: %d %s arguments", phase, len(args), o.cfg.Tools.Compiler))
	if err := o.runner.Run(ctx, o.cfg.Tools.Compiler, args); err != nil {
		return &Error{Phase: phase, Op: "run " + o.cfg.Tools.Compiler, Err: err}
	}
	return nil
}

// Test launches the test platform against the test output, then the user output.
func (o *Orchestrator) Test(ctx context.Context) error {
	for _, target := range []string{o.cfg.Layout.TestTarget, o.cfg.Layout.UserTarget} {
		o.logTrace("scanning " + target)
		if err := o.runner.Run(ctx, o.cfg.Tools.Launcher, o.TestArgs(target)); err != nil {
			return &Error{Phase: PhaseTest, Op: "run " + o.cfg.Tools.Launcher + " on " + target, Err: err}
		}
	}
	return nil
}

func (o *Orchestrator) record(ctx context.Context, result models.RunResult) {
	if o.recorder == nil {
		return
	}
	// Recorded even when the build was interrupted.
	if err := o.recorder.RecordRun(context.WithoutCancel(ctx), result); err != nil {
		o.logWarn(fmt.Sprintf("failed to record run history: %v", err))
	}
}

func (o *Orchestrator) logTrace(message string) {
	if o.logger != nil {
		o.logger.LogTrace(message)
	}
}

func (o *Orchestrator) logDebug(message string) {
	if o.logger != nil {
		o.logger.LogDebug(message)
	}
}

func (o *Orchestrator) logInfo(message string) {
	if o.logger != nil {
		o.logger.LogInfo(message)
	}
}

func (o *Orchestrator) logWarn(message string) {
	if o.logger != nil {
		o.logger.LogWarn(message)
	}
}
