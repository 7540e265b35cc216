// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"fmt"
	"strings"
)

// Structure to store measured visibilities of one data chunk
//
// Data, Weight and Flags are indexed [logical row][channel][correlation].
// Ant1, Ant2, RowMap and RowWeight are indexed by raw row. Several raw rows may
// share one logical row (pre-averaged data); RowWeight scales their contribution.
type VisibilityData struct {
	NRow      int          // Number of logical rows
	NChan     int          // Number of channels
	NAnt      int          // Number of antennas
	Mode      CorrMode     // Number of correlations per sample
	Data      []complex128 // Measured visibilities
	Weight    []float64    // Per-sample weights
	Flags     []bool       // Per-sample flags (true: do not use)
	Ant1      []int        // First antenna of each raw row
	Ant2      []int        // Second antenna of each raw row
	RowMap    []int        // Raw row -> logical row (nil: identity)
	RowWeight []float64    // Raw row weight (nil: 1)
}

// Constructor for the above structure. All samples unflagged with unit weight.
func NewVisibilityData(nrow, nchan, nant int, mode CorrMode) *VisibilityData {
	n := nrow * nchan * int(mode)
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return &VisibilityData{
		NRow:   nrow,
		NChan:  nchan,
		NAnt:   nant,
		Mode:   mode,
		Data:   make([]complex128, n),
		Weight: w,
		Flags:  make([]bool, n),
		Ant1:   make([]int, nrow),
		Ant2:   make([]int, nrow),
	}
}

// Number of raw rows
func (p *VisibilityData) NRaw() int {
	return len(p.Ant1)
}

// Logical row of a raw row
func (p *VisibilityData) Logical(row int) int {
	if p.RowMap == nil {
		return row
	}
	return p.RowMap[row]
}

// Weight of a raw row
func (p *VisibilityData) RowW(row int) float64 {
	if p.RowWeight == nil {
		return 1
	}
	return p.RowWeight[row]
}

// Offset of the first correlation of a logical sample
func (p *VisibilityData) Offset(lrow, ch int) int {
	return (lrow*p.NChan + ch) * int(p.Mode)
}

// Check consistency of array shapes and antenna indices
func (p *VisibilityData) Validate() error {
	if !p.Mode.IsValid() {
		return fmt.Errorf("%w: correlation mode %d", ErrPrecondition, int(p.Mode))
	}
	n := p.NRow * p.NChan * int(p.Mode)
	if len(p.Data) != n || len(p.Weight) != n || len(p.Flags) != n {
		return fmt.Errorf("%w: data/weight/flags length %d/%d/%d, want %d", ErrPrecondition, len(p.Data), len(p.Weight), len(p.Flags), n)
	}
	nraw := len(p.Ant1)
	if len(p.Ant2) != nraw {
		return fmt.Errorf("%w: ant1/ant2 length %d/%d", ErrPrecondition, nraw, len(p.Ant2))
	}
	if p.RowMap == nil && nraw != p.NRow {
		return fmt.Errorf("%w: %d raw rows without row map for %d logical rows", ErrPrecondition, nraw, p.NRow)
	}
	if p.RowMap != nil && len(p.RowMap) != nraw {
		return fmt.Errorf("%w: row map length %d, want %d", ErrPrecondition, len(p.RowMap), nraw)
	}
	if p.RowWeight != nil && len(p.RowWeight) != nraw {
		return fmt.Errorf("%w: row weight length %d, want %d", ErrPrecondition, len(p.RowWeight), nraw)
	}
	for r := range nraw {
		if p.Ant1[r] < 0 || p.Ant1[r] >= p.NAnt || p.Ant2[r] < 0 || p.Ant2[r] >= p.NAnt {
			return fmt.Errorf("%w: row %d antenna pair (%d,%d) out of range [0,%d)", ErrPrecondition, r, p.Ant1[r], p.Ant2[r], p.NAnt)
		}
		if lr := p.Logical(r); lr < 0 || lr >= p.NRow {
			return fmt.Errorf("%w: row %d maps to logical row %d out of range [0,%d)", ErrPrecondition, r, lr, p.NRow)
		}
	}
	return nil
}

// Display data overview
func (p *VisibilityData) String() string {
	nf := 0
	for _, f := range p.Flags {
		if f {
			nf++
		}
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("rows: %d (raw %d), chans: %d, ants: %d, corrs: %d\n", p.NRow, p.NRaw(), p.NChan, p.NAnt, int(p.Mode)))
	sb.WriteString(fmt.Sprintf("flagged: %d / %d", nf, len(p.Flags)))
	return sb.String()
}

// Structure to store model visibilities, one prediction per sky direction
//
// Model is indexed [raw row][channel][direction][correlation].
type ModelData struct {
	NRaw  int          // Number of raw rows
	NChan int          // Number of channels
	NDir  int          // Number of directions
	Mode  CorrMode     // Number of correlations per sample
	Model []complex128 // Predicted visibilities
}

// Constructor for the above structure
func NewModelData(nraw, nchan, ndir int, mode CorrMode) *ModelData {
	return &ModelData{
		NRaw:  nraw,
		NChan: nchan,
		NDir:  ndir,
		Mode:  mode,
		Model: make([]complex128, nraw*nchan*ndir*int(mode)),
	}
}

// Offset of the first correlation of a model sample
func (p *ModelData) Offset(row, ch, dir int) int {
	return ((row*p.NChan+ch)*p.NDir + dir) * int(p.Mode)
}

// Check consistency with the visibility data
func (p *ModelData) Validate(vis *VisibilityData) error {
	if p.Mode != vis.Mode {
		return fmt.Errorf("%w: model mode %d, data mode %d", ErrPrecondition, int(p.Mode), int(vis.Mode))
	}
	if p.NRaw != vis.NRaw() || p.NChan != vis.NChan {
		return fmt.Errorf("%w: model shape (%d,%d), data shape (%d,%d)", ErrPrecondition, p.NRaw, p.NChan, vis.NRaw(), vis.NChan)
	}
	if p.NDir < 1 {
		return fmt.Errorf("%w: model has no directions", ErrPrecondition)
	}
	if len(p.Model) != p.NRaw*p.NChan*p.NDir*int(p.Mode) {
		return fmt.Errorf("%w: model length %d, want %d", ErrPrecondition, len(p.Model), p.NRaw*p.NChan*p.NDir*int(p.Mode))
	}
	return nil
}
