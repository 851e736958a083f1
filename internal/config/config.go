// Package config holds the process-wide settings shared by every component
// instance. Settings are read once at startup and never change afterward.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// FileName is the optional configuration file looked up by LoadOptional.
const FileName = "rendersync.yaml"

// SchemaVersion is the config schema this build understands. Files may
// declare any version with the same major.
const SchemaVersion = "v1.0.0"

// Config represents the optional rendersync.yaml configuration.
type Config struct {
	// Version is the config schema version ("v1", "v1.2.0"). Empty means
	// SchemaVersion.
	Version string `yaml:"version,omitempty"`

	// StrictDiff selects the path-containment aware diff strategy.
	StrictDiff bool `yaml:"strict_diff"`

	// IgnoreRenderError suppresses the warning emitted when an injected
	// render function fails and the flush degrades to a full render.
	IgnoreRenderError bool `yaml:"ignore_render_error"`

	// LogLevel is one of debug, info, warn, error. Empty means info.
	LogLevel string `yaml:"log_level,omitempty"`

	// MaxFieldDiffs bounds the field-level fan-out of a strict diff.
	// Zero selects the default; negative disables fan-out.
	MaxFieldDiffs int `yaml:"max_field_diffs,omitempty"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{Version: SchemaVersion, LogLevel: "info"}
}

// Load reads and validates the configuration at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data, path)
}

// LoadOptional reads rendersync.yaml from dir if present and falls back to
// Default otherwise.
func LoadOptional(dir string) (Config, error) {
	path := filepath.Join(dir, FileName)
	cfg, err := Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML configuration. name is used in error messages only.
func Parse(data []byte, name string) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if strings.TrimSpace(cfg.Version) == "" {
		cfg.Version = SchemaVersion
	}
	if strings.TrimSpace(cfg.LogLevel) == "" {
		cfg.LogLevel = "info"
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid %s: %w", name, err)
	}
	return cfg, nil
}

// Validate checks the schema version and the log level.
func (c Config) Validate() error {
	if c.Version != "" {
		v := c.Version
		if !strings.HasPrefix(v, "v") {
			v = "v" + v
		}
		if !semver.IsValid(v) {
			return fmt.Errorf("version %q is not a semantic version", c.Version)
		}
		if semver.Major(v) != semver.Major(SchemaVersion) {
			return fmt.Errorf("version %q is not supported (want %s.x)", c.Version, semver.Major(SchemaVersion))
		}
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level for LogLevel, defaulting to info.
func (c Config) Level() slog.Level {
	lvl, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// ParseLevel maps a level name to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}
