// Package config loads the server and CLI settings.
//
// Settings come from three layers, later ones winning:
//
//  1. Default()
//  2. an optional YAML file (path from WEBCONSOLE_CONFIG or --config)
//  3. environment variables (PORT, DB_PATH, SESSION_SECRET, ...)
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/sakif/webconsole/internal/console"
	"github.com/sakif/webconsole/internal/executor/docker"
)

// PathEnv names the variable holding the config file path.
const PathEnv = "WEBCONSOLE_CONFIG"

// Script runner choices for the JavaScript strategy.
const (
	RunnerGoja   = "goja"
	RunnerDocker = "docker"
)

// LogConfig selects the slog handler.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`
	// Format is text or json.
	Format string `yaml:"format"`
}

// Config is the complete application configuration.
type Config struct {
	Port          int    `yaml:"port"`
	DBPath        string `yaml:"db_path"`
	SessionSecret string `yaml:"session_secret"`
	// Runner picks the JavaScript runner: goja (embedded) or docker.
	Runner string `yaml:"runner"`
	// ExecutionTimeout bounds every execution the server runs.
	ExecutionTimeout time.Duration `yaml:"execution_timeout"`

	Log     LogConfig      `yaml:"log"`
	Console console.Config `yaml:"console"`
	Docker  docker.Config  `yaml:"docker"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Port:             8080,
		DBPath:           "data/webconsole.db",
		Runner:           RunnerGoja,
		ExecutionTimeout: 5 * time.Second,
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Console: console.DefaultConfig(),
		Docker:  docker.DefaultConfig(),
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty) and the variables visible through getenv. The result is
// validated.
func Load(fsys afero.Fs, path string, getenv func(string) string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return Config{}, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnvironment loads the process configuration from the OS filesystem
// and environment. A non-empty path overrides WEBCONSOLE_CONFIG.
func FromEnvironment(path string) (Config, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	return Load(afero.NewOsFs(), path, os.Getenv)
}

func (c *Config) applyEnv(getenv func(string) string) error {
	var errs []error

	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: invalid %s value %q", key, v))
				return
			}
			*dst = n
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v := getenv(key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: invalid %s value %q", key, v))
				return
			}
			*dst = d
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("config: invalid %s value %q", key, v))
				return
			}
			*dst = b
		}
	}

	integer("PORT", &c.Port)
	str("DB_PATH", &c.DBPath)
	str("SESSION_SECRET", &c.SessionSecret)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("RUNNER", &c.Runner)
	duration("EXECUTION_TIMEOUT", &c.ExecutionTimeout)
	boolean("SIMULATE_LATENCY", &c.Console.SimulateLatency)
	duration("SESSION_TTL", &c.Console.SessionTTL)
	integer("MAX_SESSIONS", &c.Console.MaxSessions)

	return errors.Join(errs...)
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("config: port %d out of range", c.Port))
	}
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("config: db_path is required"))
	}
	if c.SessionSecret != "" && len(c.SessionSecret) < 16 {
		errs = append(errs, errors.New("config: session_secret must be at least 16 characters"))
	}
	if c.Runner != RunnerGoja && c.Runner != RunnerDocker {
		errs = append(errs, fmt.Errorf("config: runner must be %q or %q, got %q", RunnerGoja, RunnerDocker, c.Runner))
	}
	if c.ExecutionTimeout <= 0 {
		errs = append(errs, errors.New("config: execution_timeout must be positive"))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errs = append(errs, fmt.Errorf("config: log format must be text or json, got %q", c.Log.Format))
	}
	if c.Console.SessionTTL < 0 {
		errs = append(errs, errors.New("config: console.session_ttl must not be negative"))
	}
	if c.Console.MaxSessions < 0 {
		errs = append(errs, errors.New("config: console.max_sessions must not be negative"))
	}
	if c.Runner == RunnerDocker {
		if c.Docker.Image == "" {
			errs = append(errs, errors.New("config: docker.image is required with the docker runner"))
		}
		if c.Docker.Timeout <= 0 {
			errs = append(errs, errors.New("config: docker.timeout must be positive"))
		}
	}

	return errors.Join(errs...)
}

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("config: invalid log level %q", s)
	}
	return level, nil
}
