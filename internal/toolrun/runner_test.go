package toolrun

import (
	"bytes"
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requirePOSIXShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func TestRunner_InProcessTool(t *testing.T) {
	var gotArgs []string
	tool := NewInProcess("javac", func(ctx context.Context, stdout, stderr io.Writer, args []string) int {
		gotArgs = args
		io.WriteString(stdout, "compiled\n")
		io.WriteString(stderr, "note\n")
		return 0
	})

	var out, errOut bytes.Buffer
	r := NewRunner(NewRegistry(tool), WithStreams(&out, &errOut))

	err := r.Run(context.Background(), "javac", []string{"-d", "mods/main"})
	require.NoError(t, err)

	assert.Equal(t, []string{"-d", "mods/main"}, gotArgs)
	assert.Equal(t, "javac [-d, mods/main]\ncompiled\n", out.String())
	assert.Equal(t, "note\n", errOut.String())
}

func TestRunner_InProcessNonzeroExit(t *testing.T) {
	tool := NewInProcess("javac", func(ctx context.Context, stdout, stderr io.Writer, args []string) int {
		return 2
	})
	r := NewRunner(NewRegistry(tool), WithStreams(io.Discard, io.Discard))

	err := r.Run(context.Background(), "javac", nil)
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, "javac", exitErr.Tool)
	assert.Equal(t, 2, exitErr.Code)
	assert.True(t, errors.Is(err, ErrToolFailed))
	assert.Equal(t, "javac failed with error code 2", err.Error())
}

func TestRunner_InProcessShadowsExternal(t *testing.T) {
	called := false
	tool := NewInProcess("sh", func(ctx context.Context, stdout, stderr io.Writer, args []string) int {
		called = true
		return 0
	})
	r := NewRunner(NewRegistry(tool), WithStreams(io.Discard, io.Discard))

	require.NoError(t, r.Run(context.Background(), "sh", []string{"-c", "exit 9"}))
	assert.True(t, called, "registered tool must win over PATH lookup")
	_, isInProcess := r.Resolve("sh").(*InProcess)
	assert.True(t, isInProcess)
}

func TestRunner_ExternalProcess(t *testing.T) {
	requirePOSIXShell(t)

	var out bytes.Buffer
	r := NewRunner(nil, WithStreams(&out, io.Discard))

	err := r.Run(context.Background(), "sh", []string{"-c", "echo to-stdout; echo to-stderr 1>&2"})
	require.NoError(t, err)

	output := out.String()
	assert.True(t, strings.HasPrefix(output, "sh [-c, "))
	assert.Contains(t, output, "to-stdout\n")
	assert.Contains(t, output, "to-stderr\n", "stderr must be merged into stdout")
}

func TestRunner_ExternalNonzeroExit(t *testing.T) {
	requirePOSIXShell(t)

	r := NewRunner(nil, WithStreams(io.Discard, io.Discard))
	err := r.Run(context.Background(), "sh", []string{"-c", "exit 3"})
	require.Error(t, err)

	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, 3, exitErr.Code)
	assert.Equal(t, "sh", exitErr.Tool)
}

func TestRunner_MissingExecutable(t *testing.T) {
	r := NewRunner(nil, WithStreams(io.Discard, io.Discard))

	err := r.Run(context.Background(), "modbuild-no-such-tool-xyz", []string{"--version"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "process `modbuild-no-such-tool-xyz` failed")

	var exitErr *ExitError
	assert.False(t, errors.As(err, &exitErr), "spawn failure is not an exit code")
}

func TestRunner_CancelledContext(t *testing.T) {
	requirePOSIXShell(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(nil, WithStreams(io.Discard, io.Discard))
	err := r.Run(ctx, "sh", []string{"-c", "sleep 5"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	noop := func(ctx context.Context, stdout, stderr io.Writer, args []string) int { return 0 }
	reg := NewRegistry(NewInProcess("java", noop))
	reg.Register(NewInProcess("javac", noop))

	_, ok := reg.Lookup("javac")
	assert.True(t, ok)
	_, ok = reg.Lookup("jar")
	assert.False(t, ok)
	assert.Equal(t, []string{"java", "javac"}, reg.Names())

	var nilReg *Registry
	_, ok = nilReg.Lookup("java")
	assert.False(t, ok)
}

func TestFormatInvocation(t *testing.T) {
	assert.Equal(t, "java []", FormatInvocation("java", nil))
	assert.Equal(t, "java [--module, org.junit.platform.console]",
		FormatInvocation("java", []string{"--module", "org.junit.platform.console"}))
}
