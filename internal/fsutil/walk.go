// Package fsutil provides the directory walking helpers used by the build
// phases: cleaning output roots, discovering module directories, and
// collecting source files.
//
// All listings are deterministic. filepath.WalkDir visits entries in lexical
// order, and directory listings are sorted before they are returned, so two
// runs over the same tree always produce the same compiler command line.
package fsutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Predicate selects entries during a recursive walk.
type Predicate func(path string, d fs.DirEntry) bool

// HasExtension returns a Predicate matching regular files whose name ends
// with ext (for example ".java").
func HasExtension(ext string) Predicate {
	return func(path string, d fs.DirEntry) bool {
		return !d.IsDir() && strings.HasSuffix(d.Name(), ext)
	}
}

// Clean deletes root and everything below it, children before parents.
// A missing root is not an error.
func Clean(root string) error {
	if _, err := os.Lstat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return fmt.Errorf("clean failed for: %s: %w", root, err)
	}

	// A descendant always sorts after its parent, so reverse lexical order
	// removes the deepest entries first.
	sort.Sort(sort.Reverse(sort.StringSlice(paths)))
	for _, path := range paths {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clean failed for: %s: %w", root, err)
		}
	}
	return nil
}

// FindDirectories returns the immediate subdirectories of root, excluding
// root itself. Symbolic links to directories count as subdirectories.
// A missing root yields an empty result.
func FindDirectories(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find directories failed for: %s: %w", root, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())
		isDir := entry.IsDir()
		if entry.Type()&fs.ModeSymlink != 0 {
			// Links are followed; a dangling link is not a directory.
			if info, err := os.Stat(path); err == nil {
				isDir = info.IsDir()
			}
		}
		if isDir {
			dirs = append(dirs, path)
		}
	}
	return dirs, nil
}

// FindDirectoryNames returns the immediate subdirectories of root relative
// to root, i.e. their bare names.
func FindDirectoryNames(root string) ([]string, error) {
	dirs, err := FindDirectories(root)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		rel, err := filepath.Rel(root, dir)
		if err != nil {
			return nil, fmt.Errorf("find directories failed for: %s: %w", root, err)
		}
		names = append(names, rel)
	}
	return names, nil
}

// FindFiles walks root recursively and returns every path accepted by match,
// in walk order. Unlike FindDirectories, a missing root is an error: callers
// asking for sources expect them to exist.
func FindFiles(root string, match Predicate) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if match(path, d) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("find files failed for: %s: %w", root, err)
	}
	return files, nil
}
