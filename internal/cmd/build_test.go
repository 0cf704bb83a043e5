package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrison/modbuild/internal/filelock"
	"github.com/harrison/modbuild/internal/toolrun"
)

// project is a temporary source tree with a config file whose paths are absolute.
type project struct {
	dir        string
	configPath string
	javacCalls atomic.Int32
	javaCalls  atomic.Int32
	javacCode  int
}

func newProject(t *testing.T, repoURL string) *project {
	t.Helper()
	dir := t.TempDir()
	for _, f := range []string{
		"src/main/moduleA/module-info.java",
		"src/test/moduleA/ATest.java",
		"src/user/moduleU/UserTest.java",
	} {
		p := filepath.Join(dir, filepath.FromSlash(f))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte("// source"), 0644))
	}

	abs := func(parts ...string) string { return filepath.Join(append([]string{dir}, parts...)...) }
	cfg := fmt.Sprintf(`layout:
  deps: %q
  mods: %q
  main_source: %q
  test_source: %q
  user_source: %q
  main_target: %q
  test_target: %q
  user_target: %q
repositories:
  - url: %q
    version: "1.0.0"
    artifacts: [opentest4j]
log_dir: %q
history_db: %q
lock_file: %q
`,
		abs("deps"), abs("mods"),
		abs("src", "main"), abs("src", "test"), abs("src", "user"),
		abs("mods", "main"), abs("mods", "test"), abs("mods", "user"),
		repoURL,
		abs(".modbuild", "logs"), abs(".modbuild", "history.db"), abs(".modbuild", "build.lock"),
	)
	configPath := abs("modbuild.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(cfg), 0644))

	p := &project{dir: dir, configPath: configPath}

	prev := newRegistry
	newRegistry = func() *toolrun.Registry {
		return toolrun.NewRegistry(
			toolrun.NewInProcess("javac", func(ctx context.Context, stdout, stderr io.Writer, args []string) int {
				p.javacCalls.Add(1)
				out := args[1]
				if err := os.MkdirAll(out, 0755); err != nil {
					return 2
				}
				return p.javacCode
			}),
			toolrun.NewInProcess("java", func(ctx context.Context, stdout, stderr io.Writer, args []string) int {
				p.javaCalls.Add(1)
				fmt.Fprintln(stdout, "tests successful")
				return 0
			}),
		)
	}
	t.Cleanup(func() { newRegistry = prev })
	return p
}

func (p *project) execute(args ...string) (string, error) {
	root := NewRootCommand()
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(append(args, "--config", p.configPath))
	err := root.Execute()
	return buf.String(), err
}

func artifactServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.Write([]byte("jar"))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestFullBuild(t *testing.T) {
	srv, hits := artifactServer(t)
	p := newProject(t, srv.URL+"/org/opentest4j")

	out, err := p.execute()
	require.NoError(t, err, out)

	assert.Equal(t, int32(3), p.javacCalls.Load())
	assert.Equal(t, int32(2), p.javaCalls.Load())
	assert.Equal(t, int32(1), hits.Load())
	assert.FileExists(t, filepath.Join(p.dir, "deps", "opentest4j-1.0.0.jar"))
	assert.DirExists(t, filepath.Join(p.dir, "mods", "main"))

	assert.Contains(t, out, "[INFO] BEGIN")
	assert.Contains(t, out, "[INFO] END.")
	assert.Contains(t, out, "[INFO] Compile main application modules")
	assert.Contains(t, out, "Loading opentest4j-1.0.0.jar from ")
	assert.Contains(t, out, "javac [-d, "+filepath.Join(p.dir, "mods", "main"))
	assert.Contains(t, out, "tests successful")
	assert.Contains(t, out, "Build succeeded")

	latest := filepath.Join(p.dir, ".modbuild", "logs", "latest.log")
	data, err := os.ReadFile(latest)
	require.NoError(t, err)
	assert.Contains(t, string(data), "=== modbuild Run Log ===")
	assert.Contains(t, string(data), "Status:       SUCCEEDED")

	// A second build reuses the downloaded artifact.
	_, err = p.execute()
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestCompileFailureAbortsBuild(t *testing.T) {
	srv, _ := artifactServer(t)
	p := newProject(t, srv.URL)
	p.javacCode = 3

	out, err := p.execute()
	require.Error(t, err)
	assert.ErrorIs(t, err, toolrun.ErrToolFailed)
	assert.Contains(t, err.Error(), "compile-main phase: run javac: javac failed with error code 3")

	assert.Equal(t, int32(1), p.javacCalls.Load())
	assert.Equal(t, int32(0), p.javaCalls.Load())
	assert.NotContains(t, out, "END.")
	assert.Contains(t, out, "Build failed")
}

func TestPhaseSubcommands(t *testing.T) {
	srv, hits := artifactServer(t)
	p := newProject(t, srv.URL)

	_, err := p.execute("compile")
	require.NoError(t, err)
	assert.Equal(t, int32(3), p.javacCalls.Load())
	assert.Equal(t, int32(0), hits.Load())
	assert.DirExists(t, filepath.Join(p.dir, "mods", "user"))

	_, err = p.execute("clean")
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(p.dir, "mods"))

	_, err = p.execute("resolve")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	_, err = p.execute("test")
	require.NoError(t, err)
	assert.Equal(t, int32(2), p.javaCalls.Load())
}

func TestVerboseShowsPhaseTimings(t *testing.T) {
	srv, _ := artifactServer(t)
	p := newProject(t, srv.URL)

	out, err := p.execute("clean", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "[DEBUG] phase clean complete")
	assert.Contains(t, out, "[DEBUG] in-process tools: java, javac")

	out, err = p.execute("clean")
	require.NoError(t, err)
	assert.NotContains(t, out, "[DEBUG]")
}

func TestInvalidLogLevelFlag(t *testing.T) {
	p := newProject(t, "https://repo.example.com")

	_, err := p.execute("clean", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
	assert.Equal(t, int32(0), p.javacCalls.Load())
}

func TestLockTimeoutFlag(t *testing.T) {
	p := newProject(t, "https://repo.example.com")

	holder := filelock.NewFileLock(filepath.Join(p.dir, ".modbuild", "build.lock"))
	require.NoError(t, holder.Lock())
	defer holder.Unlock()

	start := time.Now()
	out, err := p.execute("clean", "--lock-timeout", "100ms")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "another build is running")
	assert.Contains(t, out, "waiting for build lock")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHistoryDisabledByFlag(t *testing.T) {
	p := newProject(t, "https://repo.example.com")

	_, err := p.execute("clean", "--history-db", "")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(p.dir, ".modbuild", "history.db"))

	out, err := p.execute("history", "--history-db", "")
	require.NoError(t, err)
	assert.Contains(t, out, "Run history is disabled")
}
