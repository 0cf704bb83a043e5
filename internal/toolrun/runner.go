package toolrun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrToolFailed is matched (via errors.Is) by every ExitError.
var ErrToolFailed = errors.New("tool failed")

// ExitError reports a tool that ran and exited with a nonzero code.
type ExitError struct {
	Tool string
	Code int
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%s failed with error code %d", e.Tool, e.Code)
}

// Unwrap returns ErrToolFailed so callers can test with errors.Is.
func (e *ExitError) Unwrap() error {
	return ErrToolFailed
}

// Runner resolves a tool name against its registry, falling back to an
// external process, and runs it with the configured streams.
type Runner struct {
	registry *Registry
	stdout   io.Writer
	stderr   io.Writer
}

// Option configures a Runner.
type Option func(*Runner)

// WithStreams redirects tool output. Nil writers are ignored.
func WithStreams(stdout, stderr io.Writer) Option {
	return func(r *Runner) {
		if stdout != nil {
			r.stdout = stdout
		}
		if stderr != nil {
			r.stderr = stderr
		}
	}
}

// NewRunner creates a Runner. A nil registry means every tool is external.
func NewRunner(registry *Registry, opts ...Option) *Runner {
	if registry == nil {
		registry = NewRegistry()
	}
	r := &Runner{
		registry: registry,
		stdout:   os.Stdout,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Resolve returns the tool that Run would use for name.
func (r *Runner) Resolve(name string) Tool {
	if tool, ok := r.registry.Lookup(name); ok {
		return tool
	}
	return NewExternal(name)
}

// Run prints the invocation, runs the tool, and returns an *ExitError when it
// exits nonzero. Failures to start or wait for a process are returned wrapped.
// Nothing is retried.
func (r *Runner) Run(ctx context.Context, name string, args []string) error {
	fmt.Fprintln(r.stdout, FormatInvocation(name, args))

	code, err := r.Resolve(name).Run(ctx, r.stdout, r.stderr, args)
	if err != nil {
		return fmt.Errorf("process `%s` failed: %w", name, err)
	}
	if code != 0 {
		return &ExitError{Tool: name, Code: code}
	}
	return nil
}

// FormatInvocation renders a tool call as "name [arg1, arg2]".
func FormatInvocation(name string, args []string) string {
	return name + " [" + strings.Join(args, ", ") + "]"
}
