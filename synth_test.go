// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"errors"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulate_Shape(t *testing.T) {
	sim := newTestSim(t, func(s *Scenario) {
		s.NDir = 3
		s.DD = true
		s.TimeInt = 1
	})
	vis := sim.Vis
	require.NoError(t, vis.Validate())
	require.NoError(t, sim.Model.Validate(vis))

	assert.Equal(t, 2*10, vis.NRow)
	assert.Len(t, sim.Times, vis.NRow)
	for r := range vis.NRaw() {
		assert.Less(t, vis.Ant1[r], vis.Ant2[r])
	}
	assert.Equal(t, 2, sim.Truth.NTime)
	assert.Equal(t, 3, sim.Truth.NDir)
	assert.True(t, sim.Truth.DD)

	g := sim.NewTerm("G")
	require.NoError(t, g.Validate(vis, sim.Model))
	assert.Equal(t, sim.Truth.NCell(), g.NCell())
	assert.Equal(t, []complex128{1, 0, 0, 1}, g.Slots(g.NCell()-1))
}

// Noiseless data is exactly the prediction of the true gains
func TestSimulate_MatchesPrediction(t *testing.T) {
	for _, mode := range []CorrMode{Scalar, Diagonal, Full} {
		sim := newTestSim(t, func(s *Scenario) {
			s.Mode = mode
			s.Leakage = 0.1
		})
		out := make([]complex128, len(sim.Vis.Data))
		require.NoError(t, Predict(sim.Vis, sim.Model, TermChain{sim.Truth}, out))
		assert.Equal(t, sim.Vis.Data, out, "mode %d", mode)
	}
}

func TestSimulate_TruthSharedAcrossModes(t *testing.T) {
	s1 := newTestSim(t, func(s *Scenario) { s.Mode = Scalar })
	s4 := newTestSim(t, func(s *Scenario) { s.Mode = Full })
	for cell := range s1.Truth.NCell() {
		assert.Equal(t, s1.Truth.Slots(cell)[0], s4.Truth.Slots(cell)[XX])
		assert.Zero(t, s4.Truth.Slots(cell)[XY])
	}
}

func TestSimulate_Flags(t *testing.T) {
	sim := newTestSim(t, func(s *Scenario) {
		s.Mode = Diagonal
		s.NTime = 20
		s.FlagFrac = 0.3
	})
	n := 0
	for i := 0; i < len(sim.Vis.Flags); i += 2 {
		assert.Equal(t, sim.Vis.Flags[i], sim.Vis.Flags[i+1], "sample flags are per correlation pair")
		if sim.Vis.Flags[i] {
			n++
		}
	}
	frac := float64(n) / float64(len(sim.Vis.Flags)/2)
	assert.InDelta(t, 0.3, frac, 0.1)
}

func TestSimulate_Noise(t *testing.T) {
	clean := newTestSim(t, nil)
	noisy := newTestSim(t, func(s *Scenario) { s.Noise = 0.01 })
	worst := 0.0
	for i := range clean.Vis.Data {
		worst = max(worst, cmplx.Abs(clean.Vis.Data[i]-noisy.Vis.Data[i]))
	}
	assert.Positive(t, worst)
	assert.Less(t, worst, 0.1)
}

func TestSimulate_InvalidScenario(t *testing.T) {
	tests := []struct {
		name   string
		modify func(s *Scenario)
	}{
		{"mode", func(s *Scenario) { s.Mode = 3 }},
		{"one antenna", func(s *Scenario) { s.NAnt = 1 }},
		{"no channels", func(s *Scenario) { s.NChan = 0 }},
		{"flux length", func(s *Scenario) { s.Flux = []float64{1, 2} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScenario()
			tt.modify(s)
			sim, err := s.Simulate()
			assert.Nil(t, sim)
			assert.True(t, errors.Is(err, ErrPrecondition), "err= %v", err)
		})
	}
}
