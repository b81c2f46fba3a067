// Package config loads prolog4go settings from YAML.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "prolog4go.yaml"

	EnvDriver   = "PROLOG4GO_DRIVER"
	EnvStore    = "PROLOG4GO_STORE"
	EnvLogLevel = "PROLOG4GO_LOG_LEVEL"
)

type Config struct {
	// Driver is used by provers that do not name one. Empty means the only
	// registered driver.
	Driver        string         `yaml:"driver"`
	GoalCacheSize int            `yaml:"goal_cache_size"`
	Logging       LoggingConfig  `yaml:"logging"`
	Provers       []ProverConfig `yaml:"provers"`
	Store         StoreConfig    `yaml:"store"`
	Diagnose      DiagnoseConfig `yaml:"diagnose"`
	Server        ServerConfig   `yaml:"server"`
	Watch         WatchConfig    `yaml:"watch"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// ProverConfig preloads a prover with theory files when it is opened.
type ProverConfig struct {
	Name     string   `yaml:"name"`
	Driver   string   `yaml:"driver"`
	Theories []string `yaml:"theories"`
}

type StoreConfig struct {
	// Path of the SQLite journal. Empty disables journaling.
	Path string `yaml:"path"`
}

type DiagnoseConfig struct {
	Solver   string `yaml:"solver"` // maxsat, gophersat, gini
	MaxLoops int    `yaml:"max_loops"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

func DefaultConfig() *Config {
	return &Config{
		GoalCacheSize: 512,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Diagnose: DiagnoseConfig{
			Solver:   "maxsat",
			MaxLoops: 1000,
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Watch: WatchConfig{
			Debounce: "200ms",
		},
	}
}

// Load reads path over the defaults. A missing file is not an error.
// Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(EnvDriver); v != "" {
		c.Driver = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		c.Store.Path = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) Validate() error {
	if _, err := c.DebounceDuration(); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, p := range c.Provers {
		if p.Name == "" {
			return fmt.Errorf("config: prover without a name")
		}
		if seen[p.Name] {
			return fmt.Errorf("config: prover %q listed twice", p.Name)
		}
		seen[p.Name] = true
	}
	return nil
}

// Prover returns the settings of the named prover.
func (c *Config) Prover(name string) (ProverConfig, bool) {
	for _, p := range c.Provers {
		if p.Name == name {
			return p, true
		}
	}
	return ProverConfig{}, false
}

func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("config: watch.debounce: %w", err)
	}
	return d, nil
}
