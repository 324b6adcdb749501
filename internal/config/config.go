// Package config loads the checker configuration file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/orizon-lang/tparams/internal/diagnostic"
	"github.com/orizon-lang/tparams/internal/errors"
)

// Config is the checker configuration.
type Config struct {
	Workers     int               `yaml:"workers" validate:"gte=1,lte=256"`
	LogLevel    string            `yaml:"log_level" validate:"oneof=debug info warn error"`
	Color       string            `yaml:"color" validate:"oneof=auto always never"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// DiagnosticsConfig mirrors diagnostic.DiagnosticConfig.
type DiagnosticsConfig struct {
	MaxErrors        int      `yaml:"max_errors" validate:"gte=0"`
	WarningsAsErrors bool     `yaml:"warnings_as_errors"`
	IgnoreCodes      []string `yaml:"ignore_codes" validate:"dive,startswith=TP,len=6"`
}

// MetricsConfig controls resolver metrics.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Addr, when set, serves /metrics while watching.
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Workers:  4,
		LogLevel: "info",
		Color:    "auto",
		Diagnostics: DiagnosticsConfig{
			MaxErrors: diagnostic.DefaultConfig().MaxErrors,
		},
	}
}

// Load reads path over the defaults, applies TPARAMS_* environment
// overrides and validates the result. An empty path loads the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("TPARAMS_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TPARAMS_WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("TPARAMS_LOG_LEVEL"); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	return nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var fields []string
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
		} else {
			fields = append(fields, err.Error())
		}
		return errors.InvalidInput("INVALID_CONFIG", "invalid configuration: %s", strings.Join(fields, ", "))
	}
	return nil
}

// SlogLevel maps LogLevel to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// DiagnosticConfig converts the diagnostics section for the engine.
func (c Config) DiagnosticConfig() diagnostic.DiagnosticConfig {
	dc := diagnostic.DefaultConfig()
	dc.MaxErrors = c.Diagnostics.MaxErrors
	dc.WarningsAsErrors = c.Diagnostics.WarningsAsErrors
	dc.IgnoreCodes = c.Diagnostics.IgnoreCodes
	return dc
}
