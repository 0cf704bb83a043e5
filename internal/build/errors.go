package build

import "fmt"

// Phase identifies one step of the build sequence.
type Phase int

const (
	// PhaseClean removes prior output under the mods root.
	PhaseClean Phase = iota
	// PhaseResolve downloads the artifact list into deps.
	PhaseResolve
	// PhaseCompileMain compiles the main module group.
	PhaseCompileMain
	// PhaseCompileTest compiles the test module group with main sources patched in.
	PhaseCompileTest
	// PhaseCompileUser compiles the user-integration module group.
	PhaseCompileUser
	// PhaseTest launches the test platform against the test and user outputs.
	PhaseTest
)

// AllPhases is the full build sequence in execution order.
var AllPhases = []Phase{
	PhaseClean,
	PhaseResolve,
	PhaseCompileMain,
	PhaseCompileTest,
	PhaseCompileUser,
	PhaseTest,
}

// CompilePhases is the compile-only subsequence.
var CompilePhases = []Phase{PhaseCompileMain, PhaseCompileTest, PhaseCompileUser}

// String returns the string representation of Phase.
func (p Phase) String() string {
	switch p {
	case PhaseClean:
		return "clean"
	case PhaseResolve:
		return "resolve"
	case PhaseCompileMain:
		return "compile-main"
	case PhaseCompileTest:
		return "compile-test"
	case PhaseCompileUser:
		return "compile-user"
	case PhaseTest:
		return "test"
	default:
		return "unknown"
	}
}

// Error is the fatal error returned when a phase aborts the run.
// Op describes what the phase was doing; Err is the underlying cause.
type Error struct {
	Phase Phase
	Op    string
	Err   error
}

// Error implements the error interface for Error.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s phase: %s", e.Phase, e.Op)
	}
	return fmt.Sprintf("%s phase: %s: %v", e.Phase, e.Op, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *Error) Unwrap() error {
	return e.Err
}
