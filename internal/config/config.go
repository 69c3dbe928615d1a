// Package config loads simulator settings from an optional YAML file and the
// process environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/supplychain-scenario-sim/core"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/logging"
	"github.com/signalsfoundry/supplychain-scenario-sim/internal/observability"
)

// Data drivers.
const (
	DriverFS     = "fs"
	DriverS3     = "s3"
	DriverSQLite = "sqlite"
)

// Config is the root simulator configuration.
type Config struct {
	Simulation SimulationConfig            `yaml:"simulation"`
	Data       DataConfig                  `yaml:"data"`
	Output     OutputConfig                `yaml:"output"`
	Logging    LoggingConfig               `yaml:"logging"`
	Tracing    observability.TracingConfig `yaml:"tracing"`
	Metrics    MetricsConfig               `yaml:"metrics"`
}

// SimulationConfig holds the run-level pricing inputs.
type SimulationConfig struct {
	PricePerUnit      float64 `yaml:"price_per_unit"`
	DefaultScenarioID string  `yaml:"default_scenario_id"`
	ClampMargins      bool    `yaml:"clamp_margins"`
	BlockedPolicy     string  `yaml:"blocked_policy"`
	Workers           int     `yaml:"workers"` // 0 means GOMAXPROCS
}

// DataConfig selects where reference tables are read from.
type DataConfig struct {
	Driver     string   `yaml:"driver"` // fs | s3 | sqlite
	Dir        string   `yaml:"dir"`
	S3         S3Config `yaml:"s3"`
	SQLitePath string   `yaml:"sqlite_path"`
}

// S3Config addresses reference tables in an S3-compatible bucket.
type S3Config struct {
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"` // optional, e.g. MinIO
	Prefix    string `yaml:"prefix"`
	PathStyle bool   `yaml:"path_style"`
}

// OutputConfig controls where and how reports are written.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // table | csv | json
}

// LoggingConfig mirrors logging.Config for the file format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig enables the Prometheus endpoint when Addr is set.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			PricePerUnit:      1.00,
			DefaultScenarioID: "S1",
			BlockedPolicy:     string(core.BlockedFullVolume),
		},
		Data: DataConfig{
			Driver: DriverFS,
			Dir:    "data",
			S3:     S3Config{Region: "us-east-1"},
		},
		Output: OutputConfig{
			Dir:    filepath.Join("outputs", "reports"),
			Format: "table",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
	}
}

// Load reads configuration from a YAML file, then applies environment
// overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// firstEnv returns the first non-empty variable among keys.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

// applyEnvOverrides applies environment variable overrides. The unprefixed
// names are the ones the dashboard-era .env files used.
func (c *Config) applyEnvOverrides() error {
	if v := firstEnv("SIM_PRICE_PER_UNIT", "DEFAULT_PRICE_PER_UNIT"); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return &core.InvalidConfigurationError{Field: "price_per_unit", Reason: fmt.Sprintf("cannot parse %q", v)}
		}
		c.Simulation.PricePerUnit = price
	}
	if v := firstEnv("SIM_DEFAULT_SCENARIO_ID", "DEFAULT_SCENARIO_ID"); v != "" {
		c.Simulation.DefaultScenarioID = v
	}
	if v := os.Getenv("SIM_CLAMP_MARGINS"); v != "" {
		clamp, err := strconv.ParseBool(v)
		if err != nil {
			return &core.InvalidConfigurationError{Field: "clamp_margins", Reason: fmt.Sprintf("cannot parse %q", v)}
		}
		c.Simulation.ClampMargins = clamp
	}
	if v := os.Getenv("SIM_BLOCKED_POLICY"); v != "" {
		c.Simulation.BlockedPolicy = v
	}
	if v := os.Getenv("SIM_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &core.InvalidConfigurationError{Field: "workers", Reason: fmt.Sprintf("cannot parse %q", v)}
		}
		c.Simulation.Workers = n
	}

	if v := os.Getenv("SIM_DATA_DRIVER"); v != "" {
		c.Data.Driver = strings.ToLower(v)
	}
	if v := os.Getenv("SIM_DATA_DIR"); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv("SIM_DATA_S3_BUCKET"); v != "" {
		c.Data.S3.Bucket = v
	}
	if v := os.Getenv("SIM_DATA_S3_REGION"); v != "" {
		c.Data.S3.Region = v
	}
	if v := os.Getenv("SIM_DATA_S3_ENDPOINT"); v != "" {
		c.Data.S3.Endpoint = v
	}
	if v := os.Getenv("SIM_DATA_S3_PREFIX"); v != "" {
		c.Data.S3.Prefix = v
	}
	if v := os.Getenv("SIM_DATA_S3_PATH_STYLE"); v != "" {
		c.Data.S3.PathStyle = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SIM_DATA_SQLITE_PATH"); v != "" {
		c.Data.SQLitePath = v
	}

	if v := firstEnv("SIM_OUTPUT_DIR", "DEFAULT_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := firstEnv("SIM_LOG_LEVEL", "STREAMLIT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("SIM_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("SIM_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}

	c.Tracing = observability.ApplyTracingEnv(c.Tracing)
	return nil
}

// Validate checks the settings a run cannot proceed without.
func (c *Config) Validate() error {
	if _, err := c.Pricing(); err != nil {
		return err
	}
	if _, err := c.BlockedPolicy(); err != nil {
		return err
	}
	if c.Simulation.Workers < 0 {
		return &core.InvalidConfigurationError{Field: "workers", Reason: "must be >= 0"}
	}

	switch c.Data.Driver {
	case DriverFS:
		if c.Data.Dir == "" {
			return &core.InvalidConfigurationError{Field: "data.dir", Reason: "required for the fs driver"}
		}
	case DriverS3:
		if c.Data.S3.Bucket == "" {
			return &core.InvalidConfigurationError{Field: "data.s3.bucket", Reason: "required for the s3 driver (set SIM_DATA_S3_BUCKET)"}
		}
	case DriverSQLite:
		if c.Data.SQLitePath == "" {
			return &core.InvalidConfigurationError{Field: "data.sqlite_path", Reason: "required for the sqlite driver"}
		}
	default:
		return &core.InvalidConfigurationError{Field: "data.driver", Reason: fmt.Sprintf("unknown driver %q (valid: fs, s3, sqlite)", c.Data.Driver)}
	}

	switch strings.ToLower(c.Output.Format) {
	case "table", "csv", "json":
	default:
		return &core.InvalidConfigurationError{Field: "output.format", Reason: fmt.Sprintf("unknown format %q", c.Output.Format)}
	}
	return nil
}

// Pricing returns the validated pricing settings.
func (c *Config) Pricing() (core.Pricing, error) {
	return core.NewPricing(c.Simulation.PricePerUnit, c.Simulation.ClampMargins)
}

// BlockedPolicy parses the configured blocked-route policy.
func (c *Config) BlockedPolicy() (core.BlockedPolicy, error) {
	return core.ParseBlockedPolicy(c.Simulation.BlockedPolicy)
}

// LoggerConfig converts the logging section for logging.New.
func (c *Config) LoggerConfig() logging.Config {
	return logging.Config{Level: c.Logging.Level, Format: c.Logging.Format}
}
