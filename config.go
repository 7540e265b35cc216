// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Implements the YAML run configuration (synthetic scenario + solver options).

package gojones

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level run configuration
type Config struct {
	Solver   SolverConfig   `yaml:"solver"`
	Scenario ScenarioConfig `yaml:"scenario"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// SolverConfig holds the solver options
type SolverConfig struct {
	Mode        int      `yaml:"mode"`
	MaxIter     int      `yaml:"maxIter"`
	StopFrac    float64  `yaml:"stopFrac"`
	Tolerance   float64  `yaml:"tolerance"`
	SolvePer    SolvePer `yaml:"solvePer"`
	Workers     int      `yaml:"workers"`
	TrendWindow int      `yaml:"trendWindow"`
	StallRatio  float64  `yaml:"stallRatio"`
	FlagNoInfo  bool     `yaml:"flagNoInfo"`
	InitGain    float64  `yaml:"initGain"` // Starting amplitude of the solved term
}

// ScenarioConfig holds the synthetic observation settings
type ScenarioConfig struct {
	NAnt        int        `yaml:"antennas"`
	NTime       int        `yaml:"timeslots"`
	NChan       int        `yaml:"channels"`
	NDir        int        `yaml:"directions"`
	TimeInt     int        `yaml:"timeInterval"`
	FreqInt     int        `yaml:"freqInterval"`
	DD          bool       `yaml:"directionDependent"`
	Gain        [2]float64 `yaml:"gain"` // XX and YY amplitude of the mean true gain
	AmpJitter   float64    `yaml:"ampJitter"`
	PhaseJitter float64    `yaml:"phaseJitter"`
	Leakage     float64    `yaml:"leakage"`
	Flux        []float64  `yaml:"flux"`
	Noise       float64    `yaml:"noise"`
	FlagFrac    float64    `yaml:"flagFraction"` // Fraction of samples flagged at random
	Seed        int64      `yaml:"seed"`
}

// LoggingConfig holds the debug level
type LoggingConfig struct {
	Level int `yaml:"level"`
}

// MetricsConfig holds the Prometheus textfile output
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// DefaultConfig returns the configuration used when no file is given
func DefaultConfig() *Config {
	opt := NewSolverOpt()
	sc := NewScenario()
	return &Config{
		Solver: SolverConfig{
			Mode:        int(opt.Mode),
			MaxIter:     opt.MaxIter,
			StopFrac:    opt.StopFrac,
			Tolerance:   opt.Tolerance,
			SolvePer:    opt.SolvePer,
			Workers:     opt.Workers,
			TrendWindow: opt.Policy.TrendWindow,
			StallRatio:  opt.Policy.StallRatio,
			FlagNoInfo:  opt.Policy.FlagNoInfo,
			InitGain:    1,
		},
		Scenario: ScenarioConfig{
			NAnt:        sc.NAnt,
			NTime:       sc.NTime,
			NChan:       sc.NChan,
			NDir:        sc.NDir,
			TimeInt:     sc.TimeInt,
			FreqInt:     sc.FreqInt,
			DD:          sc.DD,
			Gain:        [2]float64{real(sc.Gain[XX]), real(sc.Gain[YY])},
			AmpJitter:   sc.AmpJitter,
			PhaseJitter: sc.PhaseJitter,
			Leakage:     sc.Leakage,
			Noise:       sc.Noise,
			Seed:        sc.Seed,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of the defaults
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := ReadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ReadConfig decodes a YAML configuration on top of the defaults
func ReadConfig(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that cannot be checked by the solver itself
func (c *Config) Validate() error {
	m := CorrMode(c.Solver.Mode)
	if !m.IsValid() {
		return fmt.Errorf("solver.mode: %d (1, 2 or 4)", c.Solver.Mode)
	}
	if c.Solver.InitGain <= 0 {
		return fmt.Errorf("solver.initGain: %v must be positive", c.Solver.InitGain)
	}
	if c.Scenario.FlagFrac < 0 || c.Scenario.FlagFrac >= 1 {
		return fmt.Errorf("scenario.flagFraction: %v out of range [0,1)", c.Scenario.FlagFrac)
	}
	if c.Scenario.Flux != nil && len(c.Scenario.Flux) != c.Scenario.NDir {
		return fmt.Errorf("scenario.flux: %d values for %d directions", len(c.Scenario.Flux), c.Scenario.NDir)
	}
	return nil
}

// ToSolverOpt converts the solver section into solver options
func (c *Config) ToSolverOpt() *SolverOpt {
	opt := NewSolverOpt()
	opt.Mode = CorrMode(c.Solver.Mode)
	opt.MaxIter = c.Solver.MaxIter
	opt.StopFrac = c.Solver.StopFrac
	opt.Tolerance = c.Solver.Tolerance
	opt.SolvePer = c.Solver.SolvePer
	opt.DD = c.Scenario.DD && c.Scenario.NDir > 1
	opt.Workers = c.Solver.Workers
	opt.Policy = FlagPolicy{
		TrendWindow: c.Solver.TrendWindow,
		StallRatio:  c.Solver.StallRatio,
		FlagNoInfo:  c.Solver.FlagNoInfo,
	}
	return opt
}

// ToScenario converts the scenario section into a synthetic scenario
func (c *Config) ToScenario() *Scenario {
	s := NewScenario()
	s.NAnt = c.Scenario.NAnt
	s.NTime = c.Scenario.NTime
	s.NChan = c.Scenario.NChan
	s.NDir = c.Scenario.NDir
	s.Mode = CorrMode(c.Solver.Mode)
	s.TimeInt = c.Scenario.TimeInt
	s.FreqInt = c.Scenario.FreqInt
	s.DD = c.Scenario.DD && c.Scenario.NDir > 1
	s.Gain = DiagJones(complex(c.Scenario.Gain[0], 0), complex(c.Scenario.Gain[1], 0))
	s.AmpJitter = c.Scenario.AmpJitter
	s.PhaseJitter = c.Scenario.PhaseJitter
	s.Leakage = c.Scenario.Leakage
	s.Flux = c.Scenario.Flux
	s.Noise = c.Scenario.Noise
	s.FlagFrac = c.Scenario.FlagFrac
	s.Seed = c.Scenario.Seed
	return s
}
