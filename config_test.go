// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadConfig_Defaults(t *testing.T) {
	cfg, err := ReadConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	opt := cfg.ToSolverOpt()
	assert.Equal(t, NewSolverOpt(), opt)

	sc := cfg.ToScenario()
	assert.Equal(t, NewScenario(), sc)
}

func TestReadConfig_Overrides(t *testing.T) {
	src := `
solver:
  mode: 2
  maxIter: 20
  tolerance: 1.0e-7
  solvePer: array
  trendWindow: 6
  stallRatio: 0.8
  flagNoInfo: true
scenario:
  antennas: 12
  directions: 2
  directionDependent: true
  gain: [1.5, 0.7]
  flux: [1.0, 0.3]
  flagFraction: 0.1
logging:
  level: 2
metrics:
  textfile: /tmp/gojones.prom
`
	cfg, err := ReadConfig(strings.NewReader(src))
	require.NoError(t, err)

	opt := cfg.ToSolverOpt()
	assert.Equal(t, Diagonal, opt.Mode)
	assert.Equal(t, 20, opt.MaxIter)
	assert.Equal(t, 1e-7, opt.Tolerance)
	assert.Equal(t, PerArray, opt.SolvePer)
	assert.True(t, opt.DD)
	assert.Equal(t, FlagPolicy{TrendWindow: 6, StallRatio: 0.8, FlagNoInfo: true}, opt.Policy)
	// Untouched keys keep their defaults
	assert.Equal(t, STOP_FRAC_DEFAULT, opt.StopFrac)

	sc := cfg.ToScenario()
	assert.Equal(t, 12, sc.NAnt)
	assert.Equal(t, Diagonal, sc.Mode)
	assert.True(t, sc.DD)
	assert.Equal(t, DiagJones(1.5, 0.7), sc.Gain)
	assert.Equal(t, []float64{1, 0.3}, sc.Flux)
	assert.Equal(t, 0.1, sc.FlagFrac)

	assert.Equal(t, 2, cfg.Logging.Level)
	assert.Equal(t, "/tmp/gojones.prom", cfg.Metrics.Textfile)
}

func TestReadConfig_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"unknown field", "solver:\n  maxIterations: 3\n"},
		{"invalid mode", "solver:\n  mode: 3\n"},
		{"invalid granularity", "solver:\n  solvePer: baseline\n"},
		{"flag fraction", "scenario:\n  flagFraction: 1.0\n"},
		{"flux length", "scenario:\n  directions: 2\n  flux: [1.0]\n"},
		{"initial gain", "solver:\n  initGain: 0\n"},
		{"malformed", "solver: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ReadConfig(strings.NewReader(tt.src))
			assert.Error(t, err)
			assert.Nil(t, cfg)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "gojones.yaml")
	require.NoError(t, os.WriteFile(fn, []byte("solver:\n  workers: 3\n"), 0o644))
	cfg, err := LoadConfig(fn)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Solver.Workers)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
