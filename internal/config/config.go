// Package config resolves runtime settings. Later layers win:
// built-in defaults, then the YAML file, then MINDBIKE_* environment
// variables, then command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/talgya/mindbike/internal/analyzer"
)

// FileName is the per-user config file, looked up in the home directory.
const FileName = ".mindbike.yaml"

// Config holds every runtime setting.
type Config struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	FPS    int   `yaml:"fps"`
	Seed   int64 `yaml:"seed"` // 0 = random

	Analyzer analyzer.Config `yaml:"analyzer"`

	DBPath   string `yaml:"db_path"` // empty disables persistence
	SaveDir  string `yaml:"save_dir"`
	APIPort  int    `yaml:"api_port"`
	AdminKey string `yaml:"-"` // environment only
	LogFile  string `yaml:"log_file"`
	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Width:  1000,
		Height: 800,
		FPS:    60,
		Analyzer: analyzer.Config{
			Provider: "local",
			Timeout:  30 * time.Second,
		},
		DBPath:   filepath.Join("data", "mindbike.db"),
		SaveDir:  ".",
		APIPort:  8080,
		LogFile:  "mindbike.log",
		LogLevel: "info",
	}
}

// DefaultPath is ~/.mindbike.yaml, or "" when there is no home directory.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, FileName)
}

// Load layers the YAML file at path and the environment over the defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			slog.Debug("no config file", "path", path)
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := cfg.ApplyEnv(os.Getenv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from MINDBIKE_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	num("MINDBIKE_WIDTH", &c.Width)
	num("MINDBIKE_HEIGHT", &c.Height)
	num("MINDBIKE_FPS", &c.FPS)
	if v := getenv("MINDBIKE_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("MINDBIKE_SEED: %w", err))
		} else {
			c.Seed = n
		}
	}
	str("MINDBIKE_ANALYZER", &c.Analyzer.Provider)
	str("MINDBIKE_ANALYZER_URL", &c.Analyzer.URL)
	str("MINDBIKE_ANALYZER_MODEL", &c.Analyzer.Model)
	if v := getenv("MINDBIKE_ANALYZER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("MINDBIKE_ANALYZER_TIMEOUT: %w", err))
		} else {
			c.Analyzer.Timeout = d
		}
	}
	str("MINDBIKE_DB", &c.DBPath)
	str("MINDBIKE_SAVE_DIR", &c.SaveDir)
	num("MINDBIKE_API_PORT", &c.APIPort)
	str("MINDBIKE_ADMIN_KEY", &c.AdminKey)
	str("MINDBIKE_LOG_FILE", &c.LogFile)
	str("MINDBIKE_LOG_LEVEL", &c.LogLevel)

	return errors.Join(errs...)
}

// RegisterFlags defines the overridable settings on fs.
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.Int("width", d.Width, "canvas width in pixels")
	fs.Int("height", d.Height, "canvas height in pixels")
	fs.Int("fps", d.FPS, "frames per second")
	fs.Int64("seed", d.Seed, "random seed (0 = random)")
	fs.String("analyzer", d.Analyzer.Provider, "analyzer provider: local, backend, or ollama")
	fs.String("analyzer-url", d.Analyzer.URL, "analyzer base URL")
	fs.String("analyzer-model", d.Analyzer.Model, "embedding model (ollama)")
	fs.String("db", d.DBPath, "SQLite database path (empty disables persistence)")
	fs.String("save-dir", d.SaveDir, "directory for exported artwork and trajectory")
	fs.Int("port", d.APIPort, "HTTP API port")
	fs.String("log-file", d.LogFile, "log file used while the TUI owns the terminal")
	fs.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
}

// ApplyFlags copies flags the user actually set on fs.
func (c *Config) ApplyFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		switch f.Name {
		case "width":
			c.Width, err = fs.GetInt(f.Name)
		case "height":
			c.Height, err = fs.GetInt(f.Name)
		case "fps":
			c.FPS, err = fs.GetInt(f.Name)
		case "seed":
			c.Seed, err = fs.GetInt64(f.Name)
		case "analyzer":
			c.Analyzer.Provider = f.Value.String()
		case "analyzer-url":
			c.Analyzer.URL = f.Value.String()
		case "analyzer-model":
			c.Analyzer.Model = f.Value.String()
		case "db":
			c.DBPath = f.Value.String()
		case "save-dir":
			c.SaveDir = f.Value.String()
		case "port":
			c.APIPort, err = fs.GetInt(f.Name)
		case "log-file":
			c.LogFile = f.Value.String()
		case "log-level":
			c.LogLevel = f.Value.String()
		}
	})
	return err
}

// Validate rejects settings the sketch cannot run with.
func (c Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 {
		errs = append(errs, fmt.Errorf("canvas size %dx%d must be positive", c.Width, c.Height))
	}
	if c.FPS <= 0 || c.FPS > 240 {
		errs = append(errs, fmt.Errorf("fps %d out of range 1-240", c.FPS))
	}
	if c.APIPort < 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("api port %d out of range", c.APIPort))
	}
	switch strings.ToLower(c.Analyzer.Provider) {
	case "local", "backend", "ollama":
	default:
		errs = append(errs, fmt.Errorf("unknown analyzer provider %q", c.Analyzer.Provider))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}
