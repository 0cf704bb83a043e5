// Package resolver downloads external library artifacts into the dependency
// directory. Versions are fixed by configuration; there is no version
// resolution, retry, or checksum verification.
package resolver

import (
	"fmt"
	"strings"
)

// DefaultExtension is the artifact file extension used when none is set.
const DefaultExtension = "jar"

// Artifact identifies a downloadable dependency by repository base URL,
// name, and version.
type Artifact struct {
	Repository string
	Name       string
	Version    string
	Extension  string
}

// FileName returns "<name>-<version>.<ext>".
func (a Artifact) FileName() string {
	ext := a.Extension
	if ext == "" {
		ext = DefaultExtension
	}
	return fmt.Sprintf("%s-%s.%s", a.Name, a.Version, ext)
}

// URL returns the artifact location following the repository convention
// base/name/version/name-version.ext.
func (a Artifact) URL() string {
	base := strings.TrimRight(a.Repository, "/")
	return strings.Join([]string{base, a.Name, a.Version, a.FileName()}, "/")
}

// String returns "name:version".
func (a Artifact) String() string {
	return a.Name + ":" + a.Version
}
