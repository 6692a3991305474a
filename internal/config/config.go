// Package config loads armature configuration from YAML with environment
// overrides. Each subsystem gets its own sub-struct so callers depend only
// on the slice of configuration they consume.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all armature configuration.
type Config struct {
	Name string `yaml:"name"`

	// Robot hardware connection
	Robot RobotConfig `yaml:"robot"`

	// Step execution / sequencer settings
	Execution ExecutionConfig `yaml:"execution"`

	// Analytics persistence
	Analytics AnalyticsConfig `yaml:"analytics"`

	// Assembly catalog
	Catalog CatalogConfig `yaml:"catalog"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// RobotConfig configures the robot handle.
type RobotConfig struct {
	// Mock selects the in-process mock follower instead of real hardware.
	Mock bool `yaml:"mock"`
	// Port is the serial port of the follower arm (unused when Mock).
	Port string `yaml:"port"`
}

// ExecutionConfig configures the sequencer and primitive library.
type ExecutionConfig struct {
	// SpeedFactor scales every synthetic-path sleep and the stub policy
	// delay. 1.0 = real time; tests use small values for fast runs.
	SpeedFactor float64 `yaml:"speed_factor"`
	// DefaultMaxRetries applies to steps that do not set maxRetries.
	DefaultMaxRetries int `yaml:"default_max_retries"`
}

// AnalyticsConfig configures the per-step run store.
type AnalyticsConfig struct {
	// DatabasePath is the SQLite file holding run history.
	DatabasePath string `yaml:"database_path"`
	// MaxStoredRuns caps the retained run history per step.
	MaxStoredRuns int `yaml:"max_stored_runs"`
}

// CatalogConfig configures the assembly catalog.
type CatalogConfig struct {
	// Dir holds assembly JSON files, one per plan.
	Dir string `yaml:"dir"`
	// Watch enables hot-reload of assembly files on change.
	Watch bool `yaml:"watch"`
}

// LoggingConfig configures the category file logger.
type LoggingConfig struct {
	Enabled    bool            `yaml:"enabled"`
	Dir        string          `yaml:"dir"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// Default returns the baseline configuration.
func Default() *Config {
	return &Config{
		Name: "armature",
		Robot: RobotConfig{
			Mock: true,
		},
		Execution: ExecutionConfig{
			SpeedFactor:       1.0,
			DefaultMaxRetries: 3,
		},
		Analytics: AnalyticsConfig{
			DatabasePath:  "data/analytics.db",
			MaxStoredRuns: 200,
		},
		Catalog: CatalogConfig{
			Dir:   "configs/assemblies",
			Watch: true,
		},
		Logging: LoggingConfig{
			Enabled: false,
			Dir:     "logs",
			Level:   "info",
		},
	}
}

// Load reads a YAML config file, applies defaults for unset fields, then
// applies environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.normalize()
	cfg.applyEnvOverrides()
	return cfg, nil
}

// normalize clamps nonsensical values back to the defaults.
func (c *Config) normalize() {
	if c.Execution.SpeedFactor <= 0 {
		c.Execution.SpeedFactor = 1.0
	}
	if c.Execution.DefaultMaxRetries <= 0 {
		c.Execution.DefaultMaxRetries = 3
	}
	if c.Analytics.MaxStoredRuns <= 0 {
		c.Analytics.MaxStoredRuns = 200
	}
}

// applyEnvOverrides applies ARMATURE_* environment variables on top of the
// loaded file. Empty values are ignored.
func (c *Config) applyEnvOverrides() {
	if port := os.Getenv("ARMATURE_ROBOT_PORT"); port != "" {
		c.Robot.Port = port
		c.Robot.Mock = false
	}
	if v := os.Getenv("ARMATURE_MOCK_ROBOT"); v != "" {
		if mock, err := strconv.ParseBool(v); err == nil {
			c.Robot.Mock = mock
		}
	}
	if v := os.Getenv("ARMATURE_SPEED_FACTOR"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.Execution.SpeedFactor = f
		}
	}
	if path := os.Getenv("ARMATURE_ANALYTICS_DB"); path != "" {
		c.Analytics.DatabasePath = path
	}
	if dir := os.Getenv("ARMATURE_ASSEMBLY_DIR"); dir != "" {
		c.Catalog.Dir = dir
	}
	if v := os.Getenv("ARMATURE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
		c.Logging.Enabled = true
	}
}
