// Package config loads application configuration from defaults, an optional
// YAML file and PROSPECTOR_-prefixed environment variables, in that order of
// precedence (later sources override earlier ones).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ConfigPathEnvVar overrides the config file search path when set.
const ConfigPathEnvVar = "PROSPECTOR_CONFIG"

// envPrefix is stripped from environment variables before mapping them onto
// config keys, e.g. PROSPECTOR_DATABASE_PATH -> database.path. Config keys are single
// words so the underscore-to-dot mapping stays unambiguous.
const envPrefix = "PROSPECTOR_"

// Config is the root application configuration.
type Config struct {
	Journal  JournalConfig  `koanf:"journal"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
	Ingest   IngestConfig   `koanf:"ingest"`
	Watch    WatchConfig    `koanf:"watch"`
	Route    RouteConfig    `koanf:"route"`
	Voice    VoiceConfig    `koanf:"voice"`
}

// JournalConfig locates the game's journal directory.
type JournalConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// DatabaseConfig locates the hotspot database file.
type DatabaseConfig struct {
	Path string `koanf:"path" validate:"required"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error"`
	Format string `koanf:"format" validate:"oneof=console json auto"`
	File   string `koanf:"file"`
}

// IngestConfig tunes the ingestion run.
type IngestConfig struct {
	// RetryAttempts bounds busy-lock retries per write.
	RetryAttempts uint `koanf:"retries" validate:"min=1,max=20"`
	// RetryInterval is the initial backoff interval for busy-lock retries.
	RetryInterval time.Duration `koanf:"backoff" validate:"min=1ms"`
}

// WatchConfig tunes live journal watching.
type WatchConfig struct {
	// Debounce coalesces bursts of file-write notifications.
	Debounce time.Duration `koanf:"debounce" validate:"min=10ms"`
}

// RouteConfig tunes the jump-route planner.
type RouteConfig struct {
	// JumpRangeLY is the maximum single-jump distance in light years.
	JumpRangeLY float64 `koanf:"jumprange" validate:"gt=0"`
}

// VoiceConfig points at the voice-automation mailbox files.
type VoiceConfig struct {
	Dir          string        `koanf:"dir"`
	PollInterval time.Duration `koanf:"poll" validate:"min=10ms"`
	Timeout      time.Duration `koanf:"timeout" validate:"min=100ms"`
}

// Default returns the built-in configuration, applied before any file or
// environment overrides.
func Default() *Config {
	home, _ := os.UserHomeDir()
	return &Config{
		Journal: JournalConfig{
			Dir: filepath.Join(home, "Saved Games", "Frontier Developments", "Elite Dangerous"),
		},
		Database: DatabaseConfig{
			Path: filepath.Join(home, ".prospector", "hotspots.db"),
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Ingest: IngestConfig{
			RetryAttempts: 5,
			RetryInterval: 50 * time.Millisecond,
		},
		Watch: WatchConfig{
			Debounce: 250 * time.Millisecond,
		},
		Route: RouteConfig{
			JumpRangeLY: 60,
		},
		Voice: VoiceConfig{
			PollInterval: 200 * time.Millisecond,
			Timeout:      10 * time.Second,
		},
	}
}

// defaultPaths lists config file locations searched in order; the first one
// that exists wins.
func defaultPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		"config.yaml",
		"config.yml",
		filepath.Join(home, ".config", "prospector", "config.yaml"),
	}
}

// Load builds the effective configuration. An explicit path ("" means search
// the default locations) that does not exist is an error; a missing default
// path is not.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(ConfigPathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	} else {
		for _, p := range defaultPaths() {
			if _, err := os.Stat(p); err != nil {
				continue
			}
			if err := k.Load(file.Provider(p), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", p, err)
			}
			break
		}
	}

	err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks struct-level constraints on a configuration.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}
