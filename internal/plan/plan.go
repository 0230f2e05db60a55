// Package plan defines the typed transaction plan model: environment
// variables, contract creation steps, one-time setup calls, and repeatable
// spam calls, loaded from human-editable TOML files.
package plan

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Phase-absence errors. Accessors return these instead of synthesizing an
// empty phase, so a plan that omits a phase cannot be executed as if it
// declared zero steps.
var (
	ErrNoEnv    = errors.New("no environment variables found")
	ErrNoCreate = errors.New("no create steps found")
	ErrNoSetup  = errors.New("no setup steps found")
	ErrNoSpam   = errors.New("no spam steps found")
)

// Config is the full declarative plan for one load-test run. All four
// top-level fields are optional in the TOML form and round-trip losslessly.
type Config struct {
	Env    map[string]string        `toml:"env,omitempty"`
	Create []CreateDefinition       `toml:"create,omitempty"`
	Setup  []FunctionCallDefinition `toml:"setup,omitempty"`
	Spam   []FunctionCallDefinition `toml:"spam,omitempty"`
}

// CreateDefinition declares a contract deployment. Name becomes a
// placeholder key resolvable by later steps once the deployed address is
// known.
type CreateDefinition struct {
	Name     string `toml:"name"`
	Bytecode string `toml:"bytecode"`
	From     string `toml:"from"`
}

// FunctionCallDefinition declares one contract call. To, From, Args and
// Value may contain {name} placeholders resolved at generation time.
type FunctionCallDefinition struct {
	To        string      `toml:"to"`
	From      string      `toml:"from"`
	Signature string      `toml:"signature"`
	Args      []string    `toml:"args,omitempty"`
	Value     string      `toml:"value,omitempty"`
	Fuzz      []FuzzParam `toml:"fuzz,omitempty"`
}

// FuzzParam marks one named signature argument as fuzzed. Nil bounds
// default to the full domain of the argument's declared type.
type FuzzParam struct {
	Param string    `toml:"param"`
	Min   *Quantity `toml:"min,omitempty"`
	Max   *Quantity `toml:"max,omitempty"`
}

// LoadFile reads and decodes a TOML plan file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse plan file %s: %w", path, err)
	}
	return &cfg, nil
}

// EncodeTOML serializes the plan to its TOML form.
func (c *Config) EncodeTOML() (string, error) {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c); err != nil {
		return "", fmt.Errorf("failed to encode plan: %w", err)
	}
	return buf.String(), nil
}

// SaveFile writes the plan to a TOML file.
func (c *Config) SaveFile(path string) error {
	encoded, err := c.EncodeTOML()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(encoded), 0644); err != nil {
		return fmt.Errorf("failed to write plan file: %w", err)
	}
	return nil
}

// SpamSteps returns the spam phase or ErrNoSpam when absent.
func (c *Config) SpamSteps() ([]FunctionCallDefinition, error) {
	if c.Spam == nil {
		return nil, ErrNoSpam
	}
	return c.Spam, nil
}

// SetupSteps returns the setup phase or ErrNoSetup when absent.
func (c *Config) SetupSteps() ([]FunctionCallDefinition, error) {
	if c.Setup == nil {
		return nil, ErrNoSetup
	}
	return c.Setup, nil
}

// CreateSteps returns the create phase or ErrNoCreate when absent.
func (c *Config) CreateSteps() ([]CreateDefinition, error) {
	if c.Create == nil {
		return nil, ErrNoCreate
	}
	return c.Create, nil
}

// EnvVars returns the declared environment or ErrNoEnv when absent.
func (c *Config) EnvVars() (map[string]string, error) {
	if c.Env == nil {
		return nil, ErrNoEnv
	}
	return c.Env, nil
}
