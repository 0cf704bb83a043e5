// Package toolrun executes named build tools. A tool is either registered
// in-process or spawned as an external executable found on PATH; both share
// the same (name, args) -> exit code contract.
package toolrun

import (
	"context"
	"errors"
	"io"
	"os/exec"
	"sort"
	"sync"
)

// Tool is a named command that reports an integer exit code.
// A non-nil error means the tool could not be run at all, as opposed to
// running and exiting nonzero.
type Tool interface {
	Name() string
	Run(ctx context.Context, stdout, stderr io.Writer, args []string) (int, error)
}

// Func is the signature of an in-process tool implementation.
type Func func(ctx context.Context, stdout, stderr io.Writer, args []string) int

// InProcess adapts a Func into a Tool.
type InProcess struct {
	name string
	fn   Func
}

// NewInProcess creates an in-process tool.
func NewInProcess(name string, fn Func) *InProcess {
	return &InProcess{name: name, fn: fn}
}

// Name returns the tool name.
func (t *InProcess) Name() string { return t.name }

// Run calls the tool function with the caller's streams.
func (t *InProcess) Run(ctx context.Context, stdout, stderr io.Writer, args []string) (int, error) {
	return t.fn(ctx, stdout, stderr, args), nil
}

// External spawns an executable. Its standard error is merged into standard
// output so both arrive at the caller's stdout in the order they were written.
type External struct {
	name string
}

// NewExternal creates a tool that spawns name from PATH in the current
// directory.
func NewExternal(name string) *External {
	return &External{name: name}
}

// Name returns the executable name.
func (t *External) Name() string { return t.name }

// Run starts the process and waits for it to exit.
func (t *External) Run(ctx context.Context, stdout, stderr io.Writer, args []string) (int, error) {
	cmd := exec.CommandContext(ctx, t.name, args...)
	cmd.Stdout = stdout
	cmd.Stderr = stdout

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && ctx.Err() == nil {
		return exitErr.ExitCode(), nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	return -1, err
}

// Registry maps tool names to in-process implementations.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range tools {
		r.Register(t)
	}
	return r
}

// Register adds or replaces a tool under its name.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name()] = t
}

// Lookup returns the tool registered under name.
func (r *Registry) Lookup(name string) (Tool, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
