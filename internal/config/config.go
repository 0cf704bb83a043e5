package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/harrison/modbuild/internal/resolver"
)

// HomeDir is the per-project directory holding config, logs, history and the run lock.
const HomeDir = ".modbuild"

// Layout is the directory layout of the source tree and build outputs,
// relative to the working directory.
type Layout struct {
	// Deps holds downloaded artifacts
	Deps string `yaml:"deps" toml:"deps"`

	// Mods is the output root removed by the clean phase
	Mods string `yaml:"mods" toml:"mods"`

	MainSource string `yaml:"main_source" toml:"main_source"`
	TestSource string `yaml:"test_source" toml:"test_source"`
	UserSource string `yaml:"user_source" toml:"user_source"`

	MainTarget string `yaml:"main_target" toml:"main_target"`
	TestTarget string `yaml:"test_target" toml:"test_target"`
	UserTarget string `yaml:"user_target" toml:"user_target"`
}

// Tools names the external tools invoked by the build.
type Tools struct {
	// Compiler is invoked once per module group
	Compiler string `yaml:"compiler" toml:"compiler"`

	// Launcher runs the test platform
	Launcher string `yaml:"launcher" toml:"launcher"`
}

// Repository is a base URL and the artifacts fetched from it at one version.
type Repository struct {
	URL       string   `yaml:"url" toml:"url"`
	Version   string   `yaml:"version" toml:"version"`
	Artifacts []string `yaml:"artifacts" toml:"artifacts"`
}

// Config represents modbuild configuration options
type Config struct {
	Layout Layout
	Tools  Tools

	// SourceExtension selects compilation inputs
	SourceExtension string

	// LoggingConfig is passed to the launcher as its logging configuration file
	LoggingConfig string

	// TestLauncherModule is the module launched for test discovery
	TestLauncherModule string

	// Repositories lists the artifacts resolved into Layout.Deps, in order
	Repositories []Repository

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string

	// LogDir is the directory where run logs are written
	LogDir string

	// HistoryDB is the run history database path; empty disables history
	HistoryDB string

	// LockFile guards the build tree against concurrent runs
	LockFile string

	// LockTimeout bounds the wait for LockFile (0 = wait indefinitely)
	LockTimeout time.Duration
}

// fileConfig mirrors Config as it appears on disk. Durations are strings.
type fileConfig struct {
	Layout             Layout       `yaml:"layout" toml:"layout"`
	Tools              Tools        `yaml:"tools" toml:"tools"`
	SourceExtension    string       `yaml:"source_extension" toml:"source_extension"`
	LoggingConfig      string       `yaml:"logging_config" toml:"logging_config"`
	TestLauncherModule string       `yaml:"test_launcher_module" toml:"test_launcher_module"`
	Repositories       []Repository `yaml:"repositories" toml:"repositories"`
	LogLevel           string       `yaml:"log_level" toml:"log_level"`
	LogDir             string       `yaml:"log_dir" toml:"log_dir"`
	HistoryDB          *string      `yaml:"history_db" toml:"history_db"`
	LockFile           string       `yaml:"lock_file" toml:"lock_file"`
	LockTimeout        string       `yaml:"lock_timeout" toml:"lock_timeout"`
}

const (
	mavenCentral  = "https://repo.maven.apache.org/maven2/"
	jitpackJUnit5 = "https://jitpack.io/com/github/junit-team/junit5/"
	jigsawVersion = "jigsaw-r5.0.0-g8581c50-96"
)

// DefaultConfig returns the built-in layout, tools and artifact list.
func DefaultConfig() *Config {
	return &Config{
		Layout: Layout{
			Deps:       "deps",
			Mods:       "mods",
			MainSource: filepath.Join("src", "main"),
			TestSource: filepath.Join("src", "test"),
			UserSource: filepath.Join("src", "user"),
			MainTarget: filepath.Join("mods", "main"),
			TestTarget: filepath.Join("mods", "test"),
			UserTarget: filepath.Join("mods", "user"),
		},
		Tools: Tools{
			Compiler: "javac",
			Launcher: "java",
		},
		SourceExtension:    ".java",
		LoggingConfig:      "logging.properties",
		TestLauncherModule: "org.junit.platform.console",
		Repositories: []Repository{
			{URL: mavenCentral + "org/apiguardian", Version: "1.0.0", Artifacts: []string{"apiguardian-api"}},
			{URL: mavenCentral + "org/opentest4j", Version: "1.0.0", Artifacts: []string{"opentest4j"}},
			{
				URL:     jitpackJUnit5,
				Version: jigsawVersion,
				Artifacts: []string{
					"junit-jupiter-api",
					"junit-jupiter-engine",
					"junit-platform-commons",
					"junit-platform-console",
					"junit-platform-engine",
					"junit-platform-launcher",
				},
			},
		},
		LogLevel:    "info",
		LogDir:      filepath.Join(HomeDir, "logs"),
		HistoryDB:   filepath.Join(HomeDir, "history.db"),
		LockFile:    filepath.Join(HomeDir, "build.lock"),
		LockTimeout: 0,
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// Files ending in .toml are parsed as TOML, everything else as YAML.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.merge(fc); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfigFromDir loads .modbuild/config.yaml, or .modbuild/config.toml
// when only that exists, from dir.
func LoadConfigFromDir(dir string) (*Config, error) {
	yamlPath := filepath.Join(dir, HomeDir, "config.yaml")
	tomlPath := filepath.Join(dir, HomeDir, "config.toml")
	if _, err := os.Stat(yamlPath); errors.Is(err, fs.ErrNotExist) {
		if _, err := os.Stat(tomlPath); err == nil {
			return LoadConfig(tomlPath)
		}
	}
	return LoadConfig(yamlPath)
}

// merge applies non-zero values from the file over the defaults.
func (c *Config) merge(fc fileConfig) error {
	mergeString(&c.Layout.Deps, fc.Layout.Deps)
	mergeString(&c.Layout.Mods, fc.Layout.Mods)
	mergeString(&c.Layout.MainSource, fc.Layout.MainSource)
	mergeString(&c.Layout.TestSource, fc.Layout.TestSource)
	mergeString(&c.Layout.UserSource, fc.Layout.UserSource)
	mergeString(&c.Layout.MainTarget, fc.Layout.MainTarget)
	mergeString(&c.Layout.TestTarget, fc.Layout.TestTarget)
	mergeString(&c.Layout.UserTarget, fc.Layout.UserTarget)
	mergeString(&c.Tools.Compiler, fc.Tools.Compiler)
	mergeString(&c.Tools.Launcher, fc.Tools.Launcher)
	mergeString(&c.SourceExtension, fc.SourceExtension)
	mergeString(&c.LoggingConfig, fc.LoggingConfig)
	mergeString(&c.TestLauncherModule, fc.TestLauncherModule)
	mergeString(&c.LogLevel, fc.LogLevel)
	mergeString(&c.LogDir, fc.LogDir)
	mergeString(&c.LockFile, fc.LockFile)

	// A present repositories list replaces the defaults wholesale.
	if len(fc.Repositories) > 0 {
		c.Repositories = fc.Repositories
	}

	// history_db is a pointer so an explicit empty string disables history.
	if fc.HistoryDB != nil {
		c.HistoryDB = *fc.HistoryDB
	}

	if fc.LockTimeout != "" {
		timeout, err := time.ParseDuration(fc.LockTimeout)
		if err != nil {
			return fmt.Errorf("invalid lock_timeout format %q: %w", fc.LockTimeout, err)
		}
		c.LockTimeout = timeout
	}
	return nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(logLevel *string, logDir *string, historyDB *string, lockTimeout *time.Duration) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if historyDB != nil {
		c.HistoryDB = *historyDB
	}
	if lockTimeout != nil {
		c.LockTimeout = *lockTimeout
	}
}

// Artifacts flattens Repositories into the ordered artifact list.
func (c *Config) Artifacts() []resolver.Artifact {
	var artifacts []resolver.Artifact
	for _, repo := range c.Repositories {
		for _, name := range repo.Artifacts {
			artifacts = append(artifacts, resolver.Artifact{
				Repository: repo.URL,
				Name:       name,
				Version:    repo.Version,
			})
		}
	}
	return artifacts
}

// Validate validates the configuration values.
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	layout := map[string]string{
		"deps":        c.Layout.Deps,
		"mods":        c.Layout.Mods,
		"main_source": c.Layout.MainSource,
		"test_source": c.Layout.TestSource,
		"user_source": c.Layout.UserSource,
		"main_target": c.Layout.MainTarget,
		"test_target": c.Layout.TestTarget,
		"user_target": c.Layout.UserTarget,
	}
	for _, key := range []string{"deps", "mods", "main_source", "test_source", "user_source", "main_target", "test_target", "user_target"} {
		if strings.TrimSpace(layout[key]) == "" {
			return fmt.Errorf("layout.%s cannot be empty", key)
		}
	}

	if c.Tools.Compiler == "" {
		return fmt.Errorf("tools.compiler cannot be empty")
	}
	if c.Tools.Launcher == "" {
		return fmt.Errorf("tools.launcher cannot be empty")
	}
	if c.SourceExtension == "" {
		return fmt.Errorf("source_extension cannot be empty")
	}
	if c.LockFile == "" {
		return fmt.Errorf("lock_file cannot be empty")
	}
	if c.LockTimeout < 0 {
		return fmt.Errorf("lock_timeout must be >= 0, got %v", c.LockTimeout)
	}

	for i, repo := range c.Repositories {
		u, err := url.Parse(repo.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("repositories[%d].url %q must be an http(s) URL", i, repo.URL)
		}
		if repo.Version == "" {
			return fmt.Errorf("repositories[%d].version cannot be empty", i)
		}
		for j, name := range repo.Artifacts {
			if strings.TrimSpace(name) == "" {
				return fmt.Errorf("repositories[%d].artifacts[%d] cannot be empty", i, j)
			}
		}
	}

	return nil
}
