// Package toolargs assembles command lines for external tool invocations.
package toolargs

import (
	"fmt"
	"os"
	"strings"

	"github.com/harrison/modbuild/internal/fsutil"
)

// Builder accumulates command-line tokens in order. It is append-only and
// owned by the single phase that builds it.
type Builder struct {
	list []string
}

// New returns an empty Builder.
func New() *Builder {
	return &Builder{list: make([]string, 0, 16)}
}

// Add appends the string form of value as a single token.
func (b *Builder) Add(value any) *Builder {
	b.list = append(b.list, fmt.Sprint(value))
	return b
}

// AddPaths joins paths with the host path-list separator (':' on POSIX,
// ';' on Windows) and appends the result as one token, as used for module
// path and class path arguments.
func (b *Builder) AddPaths(paths ...string) *Builder {
	b.list = append(b.list, JoinPaths(paths...))
	return b
}

// AddAll walks root and appends every path accepted by match as its own
// token, in walk order.
func (b *Builder) AddAll(root string, match fsutil.Predicate) error {
	files, err := fsutil.FindFiles(root, match)
	if err != nil {
		return fmt.Errorf("addAll failed for: %s: %w", root, err)
	}
	b.list = append(b.list, files...)
	return nil
}

// List returns a copy of the accumulated tokens.
func (b *Builder) List() []string {
	out := make([]string, len(b.list))
	copy(out, b.list)
	return out
}

// Len returns the number of tokens.
func (b *Builder) Len() int {
	return len(b.list)
}

// JoinPaths joins paths with os.PathListSeparator.
func JoinPaths(paths ...string) string {
	return strings.Join(paths, string(os.PathListSeparator))
}
