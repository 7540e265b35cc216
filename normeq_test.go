// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildAll(p *normEq) {
	sc := p.newScratch()
	g := p.part.active
	for t := range g.NTime {
		for f := range g.NFreq {
			p.build(t, f, sc)
		}
	}
}

func TestBuild_HermitianBlocks(t *testing.T) {
	sim := newTestSim(t, func(s *Scenario) {
		s.Leakage = 0.05
		s.TimeInt = 2
	})
	g := sim.NewTerm("G")
	g.Fill(Jones{1.1, 0.02 + 0.01i, -0.03i, 0.95})

	p := newNormEq(sim.Vis, sim.Model, TermChain{g}, 0)
	p.loadData()
	buildAll(p)

	require.Equal(t, 16, p.bl)
	for cell := range g.NCell() {
		blk := p.jhj[cell*16 : (cell+1)*16]
		for i := range 4 {
			assert.Zero(t, imag(blk[i*4+i]), "cell %d diag %d", cell, i)
			assert.Greater(t, real(blk[i*4+i]), 0.0, "cell %d diag %d", cell, i)
			for j := range 4 {
				assert.Equal(t, blk[i*4+j], cmplx.Conj(blk[j*4+i]), "cell %d (%d,%d)", cell, i, j)
			}
		}
	}
}

// Flagged samples must not reach the sums even when they hold NaN
func TestBuild_FlaggedSamplesExcluded(t *testing.T) {
	for _, mode := range []CorrMode{Scalar, Diagonal, Full} {
		sim := newTestSim(t, func(s *Scenario) { s.Mode = mode })
		g := sim.NewTerm("G")

		ref := newNormEq(sim.Vis, sim.Model, TermChain{g}, 0)
		ref.loadData()
		// Zero weight instead of flag for the reference
		nc := int(mode)
		for i := 0; i < len(sim.Vis.Weight); i += 3 * nc {
			sim.Vis.Weight[i] = 0
		}
		buildAll(ref)
		want := append([]complex128(nil), ref.jhj...)
		wantR := append([]complex128(nil), ref.jhr...)

		for i := 0; i < len(sim.Vis.Weight); i += 3 * nc {
			sim.Vis.Weight[i] = 1
			sim.Vis.Flags[i] = true
			sim.Vis.Data[i] = complex(math.NaN(), math.Inf(1))
		}
		p := newNormEq(sim.Vis, sim.Model, TermChain{g}, 0)
		p.loadData()
		buildAll(p)

		assert.Equal(t, want, p.jhj, "mode %d", mode)
		assert.Equal(t, wantR, p.jhr, "mode %d", mode)
	}
}

func TestBuild_AllFlaggedIsNoInfo(t *testing.T) {
	sim := newTestSim(t, nil)
	for i := range sim.Vis.Flags {
		sim.Vis.Flags[i] = true
	}
	g := sim.NewTerm("G")
	p := newNormEq(sim.Vis, sim.Model, TermChain{g}, 0)
	p.loadData()
	buildAll(p)
	for _, v := range p.jhj {
		assert.Zero(t, v)
	}

	var s cellScratch
	for ti := range g.NTime {
		for fi := range g.NFreq {
			p.invert(ti, fi, &s)
		}
	}
	for cell := range g.NCell() {
		assert.True(t, p.noInfo[cell])
	}
	for _, v := range p.upd {
		assert.Zero(t, v)
	}
}

func TestBuild_AutocorrelationsSkipped(t *testing.T) {
	vis := NewVisibilityData(3, 1, 2, Diagonal)
	vis.Ant1 = []int{0, 0, 1}
	vis.Ant2 = []int{0, 1, 1}
	for i := range vis.Data {
		vis.Data[i] = 1
	}
	// Autocorrelations hold garbage
	copy(vis.Data[0:2], []complex128{complex(math.NaN(), 0), 1e30})
	copy(vis.Data[4:6], []complex128{complex(math.NaN(), 0), 1e30})
	model := NewModelData(3, 1, 1, Diagonal)
	for i := range model.Model {
		model.Model[i] = 1
	}
	g := NewGainTerm("G", Diagonal, 2, IntervalMap(3, 0), IntervalMap(1, 0), nil)
	require.NoError(t, g.Validate(vis, model))

	p := newNormEq(vis, model, TermChain{g}, 0)
	p.loadData()
	buildAll(p)

	// One cross-correlation per antenna, unit model and gains
	assert.Equal(t, []complex128{1, 1, 1, 1}, p.jhj)
	assert.Equal(t, []complex128{1, 1, 1, 1}, p.jhr)
}

// Terms before and after the active one must enter the Jacobian
func TestBuild_ChainPartition(t *testing.T) {
	sim := newTestSim(t, func(s *Scenario) { s.Mode = Scalar })
	a := sim.NewTerm("A")
	b := sim.NewTerm("B")
	c := sim.NewTerm("C")
	a.Fill(Jones{2})
	c.Fill(Jones{2i})

	// V = a b c M c^H b^H a^H: the Jacobian of b is scaled by |a|^2 |c|^2
	p := newNormEq(sim.Vis, sim.Model, TermChain{a, b, c}, 1)
	require.Len(t, p.part.before, 1)
	require.Len(t, p.part.after, 1)
	p.loadData()
	buildAll(p)

	q := newNormEq(sim.Vis, sim.Model, TermChain{b}, 0)
	q.loadData()
	buildAll(q)

	scale := 16.0 * 16.0
	for i := range p.jhj {
		assert.InDelta(t, scale*real(q.jhj[i]), real(p.jhj[i]), 1e-9)
	}
}

// Raw rows sharing a logical row split its weight between them
func TestBuild_RowMapEquivalent(t *testing.T) {
	sim := newTestSim(t, func(s *Scenario) { s.Leakage = 0.05 })
	j := Jones{1.1, 0.02 + 0.01i, -0.03i, 0.95}
	g := sim.NewTerm("G")
	g.Fill(j)
	p := newNormEq(sim.Vis, sim.Model, TermChain{g}, 0)
	p.loadData()
	buildAll(p)

	vis, model, gd := withDuplicateRows(t, sim)
	gd.Fill(j)
	q := newNormEq(vis, model, TermChain{gd}, 0)
	q.loadData()
	buildAll(q)

	require.Len(t, q.jhj, len(p.jhj))
	for i := range p.jhj {
		assert.InDelta(t, 0, cmplx.Abs(p.jhj[i]-q.jhj[i]), 1e-9, "jhj %d", i)
	}
	for i := range p.jhr {
		assert.InDelta(t, 0, cmplx.Abs(p.jhr[i]-q.jhr[i]), 1e-9, "jhr %d", i)
	}
}
