// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Structure to store one calibration term (a set of Jones matrices)
//
// Gains is indexed [time interval][freq interval][antenna][direction][correlation],
// Flags is indexed [time interval][freq interval][antenna][direction].
// A flagged cell always holds the identity.
type GainTerm struct {
	Name    string       // Name for display
	NTime   int          // Number of time intervals
	NFreq   int          // Number of frequency intervals
	NAnt    int          // Number of antennas
	NDir    int          // Number of directions of this term
	Mode    CorrMode     // Number of correlations per Jones cell
	DD      bool         // Direction dependent term
	Gains   []complex128 // Jones values
	Flags   []bool       // Cell flags
	TimeMap []int        // Raw row -> time interval
	FreqMap []int        // Channel -> frequency interval
	DirMap  []int        // Model direction -> direction of this term
}

// Constructor for the above structure with identity gains.
// A nil dirMap maps every model direction to direction 0 (direction independent).
func NewGainTerm(name string, mode CorrMode, nant int, timeMap, freqMap, dirMap []int) *GainTerm {
	ndir := 1
	dd := false
	if dirMap != nil {
		ndir = NumIntervals(dirMap)
		dd = ndir > 1
	}
	p := &GainTerm{
		Name:    name,
		NTime:   NumIntervals(timeMap),
		NFreq:   NumIntervals(freqMap),
		NAnt:    nant,
		NDir:    ndir,
		Mode:    mode,
		DD:      dd,
		TimeMap: timeMap,
		FreqMap: freqMap,
		DirMap:  dirMap,
	}
	p.Gains = make([]complex128, p.NCell()*int(mode))
	p.Flags = make([]bool, p.NCell())
	p.Reset()
	return p
}

// Number of Jones cells
func (p *GainTerm) NCell() int {
	return p.NTime * p.NFreq * p.NAnt * p.NDir
}

// Cell index
func (p *GainTerm) Cell(t, f, a, d int) int {
	return ((t*p.NFreq+f)*p.NAnt+a)*p.NDir + d
}

// Slots of one cell
func (p *GainTerm) Slots(cell int) []complex128 {
	nc := int(p.Mode)
	return p.Gains[cell*nc : (cell+1)*nc]
}

// Term direction of a model direction
func (p *GainTerm) Dir(d int) int {
	if p.DirMap == nil {
		return 0
	}
	return p.DirMap[d]
}

// Jones matrix of the cell covering the sample (row, ch) of antenna a in model direction d
func (p *GainTerm) At(ly layout, row, ch, a, d int) Jones {
	return ly.load(p.Slots(p.Cell(p.TimeMap[row], p.FreqMap[ch], a, p.Dir(d))))
}

// Set all cells to the identity and clear flags
func (p *GainTerm) Reset() {
	ly := newLayout(p.Mode)
	for c := range p.NCell() {
		ly.identity(p.Slots(c))
		p.Flags[c] = false
	}
}

// Set all unflagged cells to j
func (p *GainTerm) Fill(j Jones) {
	ly := newLayout(p.Mode)
	for c := range p.NCell() {
		if !p.Flags[c] {
			ly.store(p.Slots(c), j)
		}
	}
}

// Number of flagged cells
func (p *GainTerm) NumFlagged() int {
	n := 0
	for _, f := range p.Flags {
		if f {
			n++
		}
	}
	return n
}

// Deep copy of the term (maps are shared, they are never mutated)
func (p *GainTerm) Clone() *GainTerm {
	q := *p
	q.Gains = slices.Clone(p.Gains)
	q.Flags = slices.Clone(p.Flags)
	return &q
}

// Check that the term is consistent with the data it is applied to
func (p *GainTerm) Validate(vis *VisibilityData, model *ModelData) error {
	if p.Mode != vis.Mode {
		return fmt.Errorf("%w: term %q mode %d, data mode %d", ErrPrecondition, p.Name, int(p.Mode), int(vis.Mode))
	}
	if p.NAnt != vis.NAnt {
		return fmt.Errorf("%w: term %q has %d antennas, data %d", ErrPrecondition, p.Name, p.NAnt, vis.NAnt)
	}
	if len(p.Gains) != p.NCell()*int(p.Mode) || len(p.Flags) != p.NCell() {
		return fmt.Errorf("%w: term %q gains/flags length %d/%d", ErrPrecondition, p.Name, len(p.Gains), len(p.Flags))
	}
	if len(p.TimeMap) != vis.NRaw() {
		return fmt.Errorf("%w: term %q time map length %d, want %d", ErrPrecondition, p.Name, len(p.TimeMap), vis.NRaw())
	}
	if len(p.FreqMap) != vis.NChan {
		return fmt.Errorf("%w: term %q freq map length %d, want %d", ErrPrecondition, p.Name, len(p.FreqMap), vis.NChan)
	}
	if err := checkRange(p.TimeMap, p.NTime); err != nil {
		return fmt.Errorf("%w: term %q time map: %v", ErrPrecondition, p.Name, err)
	}
	if err := checkRange(p.FreqMap, p.NFreq); err != nil {
		return fmt.Errorf("%w: term %q freq map: %v", ErrPrecondition, p.Name, err)
	}
	if p.DirMap != nil {
		if len(p.DirMap) != model.NDir {
			return fmt.Errorf("%w: term %q direction map length %d, want %d", ErrPrecondition, p.Name, len(p.DirMap), model.NDir)
		}
		if err := checkRange(p.DirMap, p.NDir); err != nil {
			return fmt.Errorf("%w: term %q direction map: %v", ErrPrecondition, p.Name, err)
		}
	} else if p.NDir != 1 {
		return fmt.Errorf("%w: term %q has %d directions without a direction map", ErrPrecondition, p.Name, p.NDir)
	}
	return nil
}

func checkRange(m []int, n int) error {
	for i, v := range m {
		if v < 0 || v >= n {
			return fmt.Errorf("entry %d = %d out of range [0,%d)", i, v, n)
		}
	}
	return nil
}

// Ordered list of jointly solved terms:
// V = G_1 · G_2 · … · G_n · Model · G_n^H · … · G_1^H
type TermChain []*GainTerm

// Explicit partition of the chain around the active term
type chainPart struct {
	before []*GainTerm // Applied by left multiplication (outermost first)
	active *GainTerm
	after  []*GainTerm // Applied around the model (outermost first)
}

func (p TermChain) partition(active int) chainPart {
	return chainPart{
		before: slices.Clone(p[:active]),
		active: p[active],
		after:  slices.Clone(p[active+1:]),
	}
}

// Index of a term in the chain, -1 if not present
func (p TermChain) Index(name string) int {
	return slices.IndexFunc(p, func(g *GainTerm) bool { return g.Name == name })
}

// Check every term of the chain
func (p TermChain) Validate(vis *VisibilityData, model *ModelData) error {
	if len(p) == 0 {
		return fmt.Errorf("%w: empty term chain", ErrPrecondition)
	}
	for i, g := range p {
		if g == nil {
			return fmt.Errorf("%w: term %d is nil", ErrPrecondition, i)
		}
		if err := g.Validate(vis, model); err != nil {
			return err
		}
		if slices.Index(p, g) != i {
			return fmt.Errorf("%w: term %q appears twice in the chain", ErrPrecondition, g.Name)
		}
	}
	return nil
}
