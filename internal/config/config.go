// Package config loads the runtime configuration of the mamdani CLI from a
// TOML file. Rule bases themselves are declared in CUE; this file only holds
// the knobs around evaluation.
package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/mamdani/internal/engine"
	"github.com/roach88/mamdani/internal/fuzzy"
)

// Config is the top-level configuration.
type Config struct {
	Engine   EngineConfig   `toml:"engine"`
	Decision DecisionConfig `toml:"decision"`
	Batch    BatchConfig    `toml:"batch"`
}

// EngineConfig selects the fuzzy operators. Empty values keep the rule base's own.
type EngineConfig struct {
	And string `toml:"and,omitempty" validate:"omitempty,oneof=min product"`
	Or  string `toml:"or,omitempty" validate:"omitempty,oneof=max probsum"`
}

// DecisionConfig turns a crisp output into a binary action.
type DecisionConfig struct {
	Output         string  `toml:"output" validate:"required"`
	Threshold      float64 `toml:"threshold" validate:"gte=0,lte=1"`
	OnNoActivation string  `toml:"on_no_activation" validate:"oneof=error default"`
	DefaultValue   float64 `toml:"default_value" validate:"gte=0,lte=1"`
}

// BatchConfig controls `mamdani run`.
type BatchConfig struct {
	Workers int    `toml:"workers" validate:"gte=1,lte=256"`
	DBPath  string `toml:"db_path,omitempty"`
}

var validate = validator.New()

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Decision: DecisionConfig{
			Output:         "overtake_decision",
			Threshold:      0.5,
			OnNoActivation: engine.OnNoActivationError,
			DefaultValue:   0,
		},
		Batch: BatchConfig{Workers: 4},
	}
}

// Load reads path on top of Default. Unknown keys are an error.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes TOML on top of Default and validates the result.
func Parse(raw []byte) (Config, error) {
	cfg := Default()
	if err := toml.NewDecoder(bytes.NewReader(raw)).DisallowUnknownFields().Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// OverridesOperators reports whether the file names an operator, in which
// case it replaces the one declared by the rule base.
func (c Config) OverridesOperators() bool {
	return c.Engine.And != "" || c.Engine.Or != ""
}

// Operators resolves the configured operator pair. Unset names fall back to
// min and max.
func (c Config) Operators() (fuzzy.Operators, error) {
	return fuzzy.OperatorsByName(c.Engine.And, c.Engine.Or)
}

// Policy returns the decision policy.
func (c Config) Policy() engine.Policy {
	return engine.Policy{
		Output:         c.Decision.Output,
		Threshold:      c.Decision.Threshold,
		OnNoActivation: c.Decision.OnNoActivation,
		Default:        c.Decision.DefaultValue,
	}
}

// Encode writes c as TOML.
func (c Config) Encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
