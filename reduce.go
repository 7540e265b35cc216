// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

// Array-wide equations: one block per term direction, summed over every
// interval and antenna
type reducer struct {
	ndir   int
	jhj    []complex128
	jhr    []complex128
	upd    []complex128
	noInfo []bool
}

func newReducer(p *normEq) *reducer {
	nd := p.part.active.NDir
	return &reducer{
		ndir:   nd,
		jhj:    make([]complex128, nd*p.bl),
		jhr:    make([]complex128, nd*p.nc),
		upd:    make([]complex128, nd*p.nc),
		noInfo: make([]bool, nd),
	}
}

// Sum the per-cell equations per direction. Must run after every interval was built.
func (r *reducer) reduce(p *normEq) {
	clear(r.jhj)
	clear(r.jhr)
	g := p.part.active
	for cell := range g.NCell() {
		if g.Flags[cell] {
			continue
		}
		d := cell % g.NDir
		dst := r.jhj[d*p.bl : (d+1)*p.bl]
		for i, v := range p.jhj[cell*p.bl : (cell+1)*p.bl] {
			dst[i] += v
		}
		dst = r.jhr[d*p.nc : (d+1)*p.nc]
		for i, v := range p.jhr[cell*p.nc : (cell+1)*p.nc] {
			dst[i] += v
		}
	}
}

// Solve the summed equations once per direction
func (r *reducer) solve(p *normEq, s *cellScratch) {
	for d := range r.ndir {
		upd := r.upd[d*p.nc : (d+1)*p.nc]
		ok := p.kern.solve(r.jhj[d*p.bl:(d+1)*p.bl], r.jhr[d*p.nc:(d+1)*p.nc], upd, s)
		if !ok {
			clear(upd)
		}
		r.noInfo[d] = !ok
	}
}

// Copy the shared solution and equations into every cell of one interval
func (r *reducer) broadcast(p *normEq, t, f int) {
	c0, c1 := p.cells(t, f)
	g := p.part.active
	for cell := c0; cell < c1; cell++ {
		upd := p.upd[cell*p.nc : (cell+1)*p.nc]
		if g.Flags[cell] {
			clear(upd)
			p.noInfo[cell] = false
			continue
		}
		d := cell % g.NDir
		copy(p.jhj[cell*p.bl:(cell+1)*p.bl], r.jhj[d*p.bl:(d+1)*p.bl])
		copy(upd, r.upd[d*p.nc:(d+1)*p.nc])
		p.noInfo[cell] = r.noInfo[d]
	}
}
