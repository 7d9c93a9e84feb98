// Package config holds the settings of a fitting run. Values come from the
// defaults, an optional YAML run file and the command line, in that order.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Defaults.
const (
	DefaultGuess     = "morse.inp"
	DefaultSteps     = 50
	DefaultFactor    = 0.01
	DefaultTolerance = 1e-8
	DefaultTrunkSize = 10000
	DefaultLogLevel  = "info"
)

// Output selects the optional exports written after the fit.
type Output struct {
	XLSX            string `yaml:"xlsx"`
	ParityPlot      string `yaml:"parity_plot"`
	ConvergencePlot string `yaml:"convergence_plot"`
	Gnuplot         bool   `yaml:"gnuplot"`
}

// Config is one fitting run.
type Config struct {
	// Cutoff drops atom pairs farther apart than this distance. Nil keeps all.
	Cutoff *float64 `yaml:"cutoff,omitempty"`
	// Guess is the initial guess file.
	Guess string `yaml:"guess"`
	// Steps is the maximum number of solver chunks.
	Steps int `yaml:"steps"`
	// Factor bounds the first solver steps. Raising it lowers the initial
	// damping.
	Factor float64 `yaml:"factor"`
	// Tolerance of the solver.
	Tolerance float64 `yaml:"tolerance"`
	// TrunkSize is the function evaluation budget of one chunk.
	TrunkSize int    `yaml:"trunk_size"`
	LogLevel  string `yaml:"log_level"`

	Configurations []string `yaml:"configurations"`
	Output         Output   `yaml:"output"`
}

// Default returns the default run settings.
func Default() Config {
	return Config{
		Guess:     DefaultGuess,
		Steps:     DefaultSteps,
		Factor:    DefaultFactor,
		Tolerance: DefaultTolerance,
		TrunkSize: DefaultTrunkSize,
		LogLevel:  DefaultLogLevel,
	}
}

// Load reads a YAML run file on top of the defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read run file %s: %w", path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse run file %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the numeric settings. It does not require configuration
// files, which usually come from the command line.
func (c Config) Validate() error {
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}
	if c.Cutoff != nil && (math.IsNaN(*c.Cutoff) || *c.Cutoff < 0) {
		return fmt.Errorf("invalid cutoff %g", *c.Cutoff)
	}
	if c.Guess == "" {
		return errors.New("guess file cannot be empty")
	}
	if c.Steps < 1 {
		return fmt.Errorf("steps must be positive, got %d", c.Steps)
	}
	if c.TrunkSize < 1 {
		return fmt.Errorf("trunk_size must be positive, got %d", c.TrunkSize)
	}
	if !(c.Factor > 0) {
		return fmt.Errorf("factor must be positive, got %g", c.Factor)
	}
	if !(c.Tolerance >= 0) {
		return fmt.Errorf("tolerance must not be negative, got %g", c.Tolerance)
	}
	return nil
}
