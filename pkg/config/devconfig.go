package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// LocalConfigFile is the project-local developer config filename.
const LocalConfigFile = "srcdeps.local.toml"

// GlobalConfigFile is the developer config below GlobalConfigDir.
const GlobalConfigFile = "config.toml"

const (
	DefaultConcurrency = 4
	DefaultLogLevel    = "info"
)

// DevConfig holds developer-specific configuration that is NOT committed
// to version control. It is resolved with Viper precedence:
// CLI flags > srcdeps.local.toml (project-local) > ~/.srcdeps/config.toml (global).
type DevConfig struct {
	// Offline resolves only from selections recorded by earlier builds.
	Offline bool `toml:"offline,omitempty" mapstructure:"offline"`
	// StoreDir overrides where checkouts and the metadata cache live.
	StoreDir    string `toml:"storeDir,omitempty" mapstructure:"storeDir"`
	Concurrency int    `toml:"concurrency,omitempty" mapstructure:"concurrency"`
	LogLevel    string `toml:"logLevel,omitempty" mapstructure:"logLevel"`
}

// Overrides are values given on the command line. Nil fields are unset.
type Overrides struct {
	Offline     *bool
	StoreDir    *string
	Concurrency *int
	LogLevel    *string
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (c *DevConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return level, nil
}

// LoadDevConfig resolves developer configuration using Viper's merge semantics.
func LoadDevConfig(flags Overrides) (*DevConfig, error) {
	dir, err := GlobalConfigDir()
	if err != nil {
		return nil, err
	}
	return loadDevConfig(flags, filepath.Join(dir, GlobalConfigFile), LocalConfigFile)
}

// loadDevConfig is the internal implementation that accepts explicit paths,
// making it testable without touching the real home directory.
func loadDevConfig(flags Overrides, globalPath, localPath string) (*DevConfig, error) {
	v := viper.New()
	v.SetConfigType("toml")
	v.SetDefault("concurrency", DefaultConcurrency)
	v.SetDefault("logLevel", DefaultLogLevel)

	// Lowest priority: global config
	v.SetConfigFile(globalPath)
	// Read global config; ignore if missing.
	_ = v.ReadInConfig()

	// Higher priority: project-local config
	if _, err := os.Stat(localPath); err == nil {
		v.SetConfigFile(localPath)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", localPath, err)
		}
	}

	// Highest priority: CLI flags
	if flags.Offline != nil {
		v.Set("offline", *flags.Offline)
	}
	if flags.StoreDir != nil {
		v.Set("storeDir", *flags.StoreDir)
	}
	if flags.Concurrency != nil {
		v.Set("concurrency", *flags.Concurrency)
	}
	if flags.LogLevel != nil {
		v.Set("logLevel", *flags.LogLevel)
	}

	cfg := &DevConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling dev config: %w", err)
	}
	if cfg.Concurrency < 1 {
		return nil, fmt.Errorf("concurrency must be at least 1, got %d", cfg.Concurrency)
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// WriteLocalDevConfig persists developer config to srcdeps.local.toml in the
// given project directory.
func WriteLocalDevConfig(projectDir string, cfg *DevConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling dev config: %w", err)
	}

	path := filepath.Join(projectDir, LocalConfigFile)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}
