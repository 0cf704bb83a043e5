package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/fatih/color"

	"github.com/harrison/modbuild/internal/filelock"
)

// Downloader fetches artifacts over HTTP(S) into a local directory.
// A file that already exists under the target name is returned as is and
// never re-fetched, whatever its contents.
type Downloader struct {
	client *http.Client
	out    io.Writer
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithHTTPClient sets the HTTP client used for fetches.
func WithHTTPClient(client *http.Client) Option {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithOutput sets where progress notices are written.
func WithOutput(w io.Writer) Option {
	return func(d *Downloader) {
		if w != nil {
			d.out = w
		}
	}
}

// NewDownloader creates a Downloader. The default client has no timeout.
func NewDownloader(opts ...Option) *Downloader {
	d := &Downloader{
		client: &http.Client{},
		out:    os.Stdout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// FileNameFromURI returns the last path segment of uri, without any query
// string or fragment.
func FileNameFromURI(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("invalid uri %q: %w", uri, err)
	}
	if u.Path == "" || strings.HasSuffix(u.Path, "/") {
		return "", fmt.Errorf("uri %q has no file name", uri)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return "", fmt.Errorf("uri %q has no file name", uri)
	}
	return name, nil
}

// Download stores the resource at uri in directory under its file name and
// returns the local path. The directory is created if needed.
func (d *Downloader) Download(ctx context.Context, uri string, directory string) (string, error) {
	fileName, err := FileNameFromURI(uri)
	if err != nil {
		return "", fmt.Errorf("download failed for: %s: %w", uri, err)
	}

	if err := os.MkdirAll(directory, 0755); err != nil {
		return "", fmt.Errorf("download failed for: %s: %w", uri, err)
	}

	target := filepath.Join(directory, fileName)
	if _, err := os.Stat(target); err == nil {
		return target, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("download failed for: %s: %w", uri, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return "", fmt.Errorf("download failed for: %s: %w", uri, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download failed for: %s: %w", uri, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("download failed for: %s: unexpected status %s", uri, resp.Status)
	}

	color.New(color.FgCyan).Fprintf(d.out, "Loading %s from %s...\n", fileName, req.URL.Host)

	if _, err := filelock.AtomicCopy(target, resp.Body); err != nil {
		return "", fmt.Errorf("download failed for: %s: %w", uri, err)
	}
	return target, nil
}

// Resolve downloads each artifact into directory in declaration order and
// returns the local paths. The first failure stops the sequence.
func (d *Downloader) Resolve(ctx context.Context, artifacts []Artifact, directory string) ([]string, error) {
	paths := make([]string, 0, len(artifacts))
	for _, a := range artifacts {
		p, err := d.Download(ctx, a.URL(), directory)
		if err != nil {
			return paths, fmt.Errorf("resolve %s: %w", a, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}
