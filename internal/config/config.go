package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/njchilds90/goquad/integral"
	"github.com/njchilds90/goquad/quadrature"
)

// EnvVar names the environment variable holding a config file path.
const EnvVar = "GOQUAD_CONFIG"

// DefaultFile is read from the working directory when present.
const DefaultFile = "goquad.toml"

// MaxPrecision is the largest number of decimal places a report is
// rounded to.
const MaxPrecision = 15

// Config holds the complete goquad configuration
type Config struct {
	Quadrature QuadratureConfig `toml:"quadrature"`
	Exact      ExactConfig      `toml:"exact"`
	Output     OutputConfig     `toml:"output"`
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
}

// QuadratureConfig holds the engine defaults
type QuadratureConfig struct {
	Subintervals    int      `toml:"subintervals"`
	MaxSubintervals int      `toml:"max_subintervals"`
	Rules           []string `toml:"rules"`
	Bounds          bool     `toml:"bounds"`
}

// ExactConfig holds the symbolic exact-value settings
type ExactConfig struct {
	Timeout Duration `toml:"timeout"`
}

// OutputConfig holds report rendering settings
type OutputConfig struct {
	Format    string `toml:"format"`
	Precision int    `toml:"precision"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Addr         string   `toml:"addr"`
	ReadTimeout  Duration `toml:"read_timeout"`
	WriteTimeout Duration `toml:"write_timeout"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
}

// Duration wraps time.Duration for TOML parsing
type Duration struct {
	time.Duration
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText formats the duration as a string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Quadrature: QuadratureConfig{
			Subintervals:    10,
			MaxSubintervals: integral.DefaultMaxSubintervals,
			Rules:           []string{"trapezoidal", "midpoint", "simpson"},
		},
		Exact:  ExactConfig{Timeout: Duration{2 * time.Second}},
		Output: OutputConfig{Format: "text", Precision: 6},
		Log:    LogConfig{Level: "warn", Format: "console"},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  Duration{10 * time.Second},
			WriteTimeout: Duration{30 * time.Second},
			MaxBodyBytes: 1 << 20,
		},
	}
}

// Load reads a TOML file over the defaults. Keys missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	path = os.ExpandEnv(path)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	cfg := Default()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown config key %q in %s", undecoded[0].String(), path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Resolve picks the config file: the explicit path, then $GOQUAD_CONFIG,
// then ./goquad.toml. With none of them it returns the defaults.
func Resolve(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path == "" {
		return Default(), nil
	}
	return Load(path)
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var err error
	if c.Quadrature.Subintervals <= 0 {
		err = multierr.Append(err, fmt.Errorf("quadrature.subintervals must be positive, got %d", c.Quadrature.Subintervals))
	}
	if c.Quadrature.MaxSubintervals <= 0 {
		err = multierr.Append(err, fmt.Errorf("quadrature.max_subintervals must be positive, got %d", c.Quadrature.MaxSubintervals))
	} else if c.Quadrature.Subintervals > c.Quadrature.MaxSubintervals {
		err = multierr.Append(err, fmt.Errorf("quadrature.subintervals %d exceeds quadrature.max_subintervals %d",
			c.Quadrature.Subintervals, c.Quadrature.MaxSubintervals))
	}
	if _, rerr := c.ParsedRules(); rerr != nil {
		err = multierr.Append(err, rerr)
	}
	if c.Exact.Timeout.Duration <= 0 {
		err = multierr.Append(err, fmt.Errorf("exact.timeout must be positive, got %s", c.Exact.Timeout))
	}
	switch c.Output.Format {
	case "text", "json", "yaml":
	default:
		err = multierr.Append(err, fmt.Errorf("output.format must be text, json or yaml, got %q", c.Output.Format))
	}
	if c.Output.Precision < 0 || c.Output.Precision > MaxPrecision {
		err = multierr.Append(err, fmt.Errorf("output.precision must be in [0, %d], got %d", MaxPrecision, c.Output.Precision))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("log.format must be console or json, got %q", c.Log.Format))
	}
	if c.Server.MaxBodyBytes <= 0 {
		err = multierr.Append(err, fmt.Errorf("server.max_body_bytes must be positive, got %d", c.Server.MaxBodyBytes))
	}
	return err
}

// ParsedRules converts quadrature.rules into engine rules.
func (c *Config) ParsedRules() ([]quadrature.Rule, error) {
	if len(c.Quadrature.Rules) == 0 {
		return nil, fmt.Errorf("quadrature.rules must name at least one rule")
	}
	rules := make([]quadrature.Rule, 0, len(c.Quadrature.Rules))
	for _, name := range c.Quadrature.Rules {
		r, err := quadrature.ParseRule(name)
		if err != nil {
			return nil, fmt.Errorf("quadrature.rules: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}
