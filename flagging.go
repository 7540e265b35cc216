// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Implements convergence tracking and flagging of gain cells.

package gojones

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// FlagPolicy contains the parameters of the final trend-based flagging
//
// With FlagNoInfo off (the default) a cell that never receives information,
// e.g. a dead antenna, keeps its gains and stays unflagged, and its samples
// are not flagged in the data. This keeps an all-flagged interval unchanged.
// Set FlagNoInfo to flag such cells and propagate the flags instead.
type FlagPolicy struct {
	TrendWindow int     // Number of most recent changes kept per cell (>= 2)
	StallRatio  float64 // Flag when max change of the newer half >= StallRatio * max change of the older half
	FlagNoInfo  bool    // If true, flag cells that never received any information
}

// NewFlagPolicy creates a new FlagPolicy with default values
func NewFlagPolicy() FlagPolicy {
	return FlagPolicy{
		TrendWindow: TREND_WINDOW, // Changes kept per cell
		StallRatio:  STALL_RATIO,  // No decrease over the window
		FlagNoInfo:  false,        // Keep uninformed cells as they are
	}
}

func (p FlagPolicy) validate() error {
	if p.TrendWindow < 2 {
		return fmt.Errorf("%w: trend window %d < 2", ErrPrecondition, p.TrendWindow)
	}
	if !(p.StallRatio > 0) || !isFiniteF(p.StallRatio) {
		return fmt.Errorf("%w: stall ratio %v", ErrPrecondition, p.StallRatio)
	}
	return nil
}

// tracker follows the per-cell change of the active term across iterations
type tracker struct {
	g         *GainTerm
	tol2      float64
	policy    FlagPolicy
	prev      []complex128 // Gains before the current update
	sqDiff    []float64    // Relative squared change of the last iteration
	trend     []float64    // Ring buffer of changes, TrendWindow per cell
	count     []int        // Number of changes pushed per cell
	converged []bool       // Soft convergence markers
	informed  []bool       // Cell received information at least once
}

func newTracker(g *GainTerm, tol float64, policy FlagPolicy) *tracker {
	n := g.NCell()
	return &tracker{
		g:         g,
		tol2:      tol * tol,
		policy:    policy,
		prev:      slices.Clone(g.Gains),
		sqDiff:    make([]float64, n),
		trend:     make([]float64, n*policy.TrendWindow),
		count:     make([]int, n),
		converged: make([]bool, n),
		informed:  make([]bool, n),
	}
}

// Record the gains before an update
func (p *tracker) snapshot() {
	copy(p.prev, p.g.Gains)
}

// Compare the gains with the snapshot and return the converged fraction of unflagged cells
func (p *tracker) track(noInfo []bool) float64 {
	nc := int(p.g.Mode)
	w := p.policy.TrendWindow
	nUnflagged, nConv := 0, 0
	for cell := range p.g.NCell() {
		if p.g.Flags[cell] {
			p.converged[cell] = false
			continue
		}
		nUnflagged++
		if noInfo[cell] {
			p.converged[cell] = false
			continue
		}
		p.informed[cell] = true
		var diff, norm float64
		for i := cell * nc; i < (cell+1)*nc; i++ {
			diff += Abs2(p.g.Gains[i] - p.prev[i])
			norm += Abs2(p.g.Gains[i])
		}
		if norm > 0 {
			diff /= norm
		}
		p.sqDiff[cell] = diff
		p.trend[cell*w+p.count[cell]%w] = diff
		p.count[cell]++
		p.converged[cell] = diff < p.tol2
		if p.converged[cell] {
			nConv++
		}
	}
	if nUnflagged == 0 {
		return 1
	}
	return float64(nConv) / float64(nUnflagged)
}

// Oldest-first view of the trend window of a cell
func (p *tracker) window(cell int) []float64 {
	w := p.policy.TrendWindow
	buf := p.trend[cell*w : (cell+1)*w]
	n := p.count[cell]
	if n < w {
		return buf[:n]
	}
	k := n % w
	return append(slices.Clone(buf[k:]), buf[:k]...)
}

// The change never dropped below tolerance and did not shrink over the window
func (p *tracker) unstable(cell int) bool {
	win := p.window(cell)
	if len(win) < p.policy.TrendWindow {
		return false
	}
	if slices.ContainsFunc(win, func(v float64) bool { return v < p.tol2 }) {
		return false
	}
	h := len(win) / 2
	return slices.Max(win[h:]) >= p.policy.StallRatio*slices.Max(win[:h])
}

// Clear soft convergence and flag cells that never stabilized. Returns the number of newly flagged cells.
func (p *tracker) finalize(ly layout) int {
	n := 0
	for cell := range p.g.NCell() {
		conv := p.converged[cell]
		p.converged[cell] = false
		if p.g.Flags[cell] || conv {
			continue
		}
		bad := p.unstable(cell)
		if !bad && p.policy.FlagNoInfo && !p.informed[cell] {
			bad = true
		}
		if bad {
			p.g.Flags[cell] = true
			ly.identity(p.g.Slots(cell))
			n++
			if DBG_ >= 3 {
				Log.WithFields(log.Fields{
					"term":  p.g.Name,
					"cell":  cell,
					"trend": p.window(cell),
				}).Debug("flagging cell")
			}
		}
	}
	return n
}

// Flag every sample whose active-term cell is flagged for either antenna
func propagateFlags(vis *VisibilityData, g *GainTerm) int {
	nc := int(vis.Mode)
	n := 0
	for r := range vis.NRaw() {
		lr := vis.Logical(r)
		t := g.TimeMap[r]
		for c := range vis.NChan {
			f := g.FreqMap[c]
			bad := false
			for d := 0; d < g.NDir && !bad; d++ {
				bad = g.Flags[g.Cell(t, f, vis.Ant1[r], d)] || g.Flags[g.Cell(t, f, vis.Ant2[r], d)]
			}
			if !bad {
				continue
			}
			off := vis.Offset(lr, c)
			for i := range nc {
				if !vis.Flags[off+i] {
					vis.Flags[off+i] = true
					n++
				}
			}
		}
	}
	return n
}
