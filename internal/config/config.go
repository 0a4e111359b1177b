// Package config loads the optimizer configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"qzxopt/internal/zx"
)

// ErrInvalidConfig is returned when a configuration file parses but fails
// validation.
var ErrInvalidConfig = errors.New("invalid configuration")

type Config struct {
	Simplify SimplifyConfig `yaml:"simplify"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Log      LogConfig      `yaml:"log"`
}

type SimplifyConfig struct {
	// RuleOrder is the rule priority, highest first.
	RuleOrder []string `yaml:"rule_order" validate:"required,min=1,unique,dive,rule"`
	GraphLike bool     `yaml:"graph_like"`
	// MaxRounds bounds the rewrite rounds per segment; 0 means unlimited.
	MaxRounds int `yaml:"max_rounds" validate:"gte=0"`
}

type PipelineConfig struct {
	Verify          bool `yaml:"verify"`
	VerifyMaxQubits int  `yaml:"verify_max_qubits" validate:"gte=1,lte=16"`
	Workers         int  `yaml:"workers" validate:"gte=1,lte=256"`
}

type LogConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("rule", func(fl validator.FieldLevel) bool {
		_, err := zx.ParseRuleKind(fl.Field().String())
		return err == nil
	})
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	order := make([]string, len(zx.AllRules))
	for i, k := range zx.AllRules {
		order[i] = k.String()
	}
	return Config{
		Simplify: SimplifyConfig{
			RuleOrder: order,
			GraphLike: true,
		},
		Pipeline: PipelineConfig{
			VerifyMaxQubits: 8,
			Workers:         4,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path on top of the defaults, so a file only needs the keys it
// changes. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks field constraints and wraps failures in ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s fails %q (value %v)", ErrInvalidConfig, fe.Namespace(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// WriteDefault writes the default configuration to path, creating parent
// directories. It refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Strategy converts the simplify section into a zx.Strategy.
func (c Config) Strategy() (zx.Strategy, error) {
	order, err := zx.ParseRuleOrder(c.Simplify.RuleOrder)
	if err != nil {
		return zx.Strategy{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return zx.Strategy{
		Order:     order,
		GraphLike: c.Simplify.GraphLike,
		MaxRounds: c.Simplify.MaxRounds,
	}, nil
}

// ZapLevel returns the configured log level.
func (c Config) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.Log.Level)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
