// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Implements accumulation of the normal equations (JHJ, JHR) of the active term.

package gojones

import "math/cmplx"

// kernel holds the correlation-mode specific algebra of the normal equations.
// It is selected once per solver call.
type kernel interface {
	layout
	// Number of complex values in one JHJ block
	blockLen() int
	// Add the Jacobian of one model direction: V = L G Z
	addJacobian(jac *Block, l, z Jones)
	// Add J^H W J (upper triangle only) and J^H W r of one sample
	accumulate(jhj, jhr []complex128, jac *Block, r *[4]complex128, w *[4]float64)
	// Fill the lower triangle of a block from the upper one
	mirror(jhj []complex128)
	// Solve JHJ upd = JHR. Returns false when the block carries no information.
	solve(jhj, jhr, upd []complex128, s *cellScratch) bool
}

func newKernel(mode CorrMode) kernel {
	switch mode {
	case Scalar:
		return scalarKernel{}
	case Diagonal:
		return diagKernel{}
	default:
		return fullKernel{}
	}
}

// ------------------------------------
// Mode 1: one complex gain per cell
// ------------------------------------

type scalarKernel struct{ scalarLayout }

func (scalarKernel) blockLen() int { return 1 }

func (scalarKernel) addJacobian(jac *Block, l, z Jones) {
	jac[0] += l[XX] * z[XX]
}

func (scalarKernel) accumulate(jhj, jhr []complex128, jac *Block, r *[4]complex128, w *[4]float64) {
	j := jac[0]
	jhj[0] += complex(w[0]*Abs2(j), 0)
	jhr[0] += cmplx.Conj(j) * complex(w[0], 0) * r[0]
}

func (scalarKernel) mirror(jhj []complex128) {}

func (scalarKernel) solve(jhj, jhr, upd []complex128, s *cellScratch) bool {
	return divideCell(jhj[0], jhr[0], &upd[0])
}

// ------------------------------------
// Mode 2: independent XX and YY gains
// ------------------------------------

type diagKernel struct{ diagLayout }

func (diagKernel) blockLen() int { return 2 }

func (diagKernel) addJacobian(jac *Block, l, z Jones) {
	jac[0] += l[XX] * z[XX]
	jac[1] += l[YY] * z[YY]
}

func (diagKernel) accumulate(jhj, jhr []complex128, jac *Block, r *[4]complex128, w *[4]float64) {
	for c := range 2 {
		j := jac[c]
		jhj[c] += complex(w[c]*Abs2(j), 0)
		jhr[c] += cmplx.Conj(j) * complex(w[c], 0) * r[c]
	}
}

func (diagKernel) mirror(jhj []complex128) {}

func (diagKernel) solve(jhj, jhr, upd []complex128, s *cellScratch) bool {
	var u [2]complex128
	for c := range 2 {
		if !divideCell(jhj[c], jhr[c], &u[c]) {
			return false
		}
	}
	upd[0], upd[1] = u[0], u[1]
	return true
}

// ------------------------------------
// Mode 4: full 2x2 Jones, 4x4 blocks
// ------------------------------------

type fullKernel struct{ fullLayout }

func (fullKernel) blockLen() int { return 16 }

func (fullKernel) addJacobian(jac *Block, l, z Jones) {
	k := Kron(l, z.T())
	for i := range k {
		jac[i] += k[i]
	}
}

func (fullKernel) accumulate(jhj, jhr []complex128, jac *Block, r *[4]complex128, w *[4]float64) {
	for i := range 4 {
		for k := range 4 {
			if w[k] == 0 {
				continue
			}
			cw := cmplx.Conj(jac[k*4+i]) * complex(w[k], 0)
			jhr[i] += cw * r[k]
			for j := i; j < 4; j++ {
				jhj[i*4+j] += cw * jac[k*4+j]
			}
		}
	}
}

func (fullKernel) mirror(jhj []complex128) {
	for i := range 4 {
		jhj[i*4+i] = complex(real(jhj[i*4+i]), 0)
		for j := i + 1; j < 4; j++ {
			jhj[j*4+i] = cmplx.Conj(jhj[i*4+j])
		}
	}
}

func (fullKernel) solve(jhj, jhr, upd []complex128, s *cellScratch) bool {
	return solveCell4(jhj, jhr, upd, s)
}

// ------------------------------------
// Builder
// ------------------------------------

// normEq owns the scratch arrays of one solver call
type normEq struct {
	vis    *VisibilityData
	model  *ModelData
	chain  TermChain
	part   chainPart
	kern   kernel
	nc     int
	bl     int
	resid  []complex128 // Working buffer per raw sample: data (DI) or data - model (DD)
	jhj    []complex128 // Per cell JHJ blocks
	jhr    []complex128 // Per cell JHR vectors
	upd    []complex128 // Per cell raw updates
	noInfo []bool       // Per cell: JHJ was singular
	rows   [][]int      // Raw rows of each time interval of the active term
	chans  [][]int      // Channels of each frequency interval of the active term
}

func newNormEq(vis *VisibilityData, model *ModelData, chain TermChain, active int) *normEq {
	kern := newKernel(vis.Mode)
	part := chain.partition(active)
	g := part.active
	nc := kern.nc()
	bl := kern.blockLen()
	return &normEq{
		vis:    vis,
		model:  model,
		chain:  chain,
		part:   part,
		kern:   kern,
		nc:     nc,
		bl:     bl,
		resid:  make([]complex128, vis.NRaw()*vis.NChan*nc),
		jhj:    make([]complex128, g.NCell()*bl),
		jhr:    make([]complex128, g.NCell()*nc),
		upd:    make([]complex128, g.NCell()*nc),
		noInfo: make([]bool, g.NCell()),
		rows:   intervalMembers(g.TimeMap, g.NTime),
		chans:  intervalMembers(g.FreqMap, g.NFreq),
	}
}

// Range of cells [c0, c1) of one solution interval
func (p *normEq) cells(t, f int) (int, int) {
	g := p.part.active
	c0 := g.Cell(t, f, 0, 0)
	return c0, c0 + g.NAnt*g.NDir
}

// Copy the measured data into the working buffer
func (p *normEq) loadData() {
	for r := range p.vis.NRaw() {
		lr := p.vis.Logical(r)
		copy(p.resid[r*p.vis.NChan*p.nc:(r+1)*p.vis.NChan*p.nc], p.vis.Data[p.vis.Offset(lr, 0):p.vis.Offset(lr+1, 0)])
	}
}

// Recompute data - model for the samples of one interval
func (p *normEq) residual(t, f int) {
	vis := p.vis
	for _, r := range p.rows[t] {
		lr := vis.Logical(r)
		for _, c := range p.chans[f] {
			off := vis.Offset(lr, c)
			dst := p.resid[(r*vis.NChan+c)*p.nc:]
			m := predictSample(p.kern, p.model, p.chain, r, c, vis.Ant1[r], vis.Ant2[r])
			p.kern.store(dst, m)
			for i := range p.nc {
				dst[i] = vis.Data[off+i] - dst[i]
			}
		}
	}
}

// Per-interval scratch of the builder
type buildScratch struct {
	jac     []Block
	touched []bool
}

func (p *normEq) newScratch() *buildScratch {
	nd := p.part.active.NDir
	return &buildScratch{jac: make([]Block, nd), touched: make([]bool, nd)}
}

// Accumulate JHJ and JHR of every cell of one interval
func (p *normEq) build(t, f int, sc *buildScratch) {
	c0, c1 := p.cells(t, f)
	clear(p.jhj[c0*p.bl : c1*p.bl])
	clear(p.jhr[c0*p.nc : c1*p.nc])

	vis := p.vis
	g := p.part.active
	for _, r := range p.rows[t] {
		a1, a2 := vis.Ant1[r], vis.Ant2[r]
		if a1 == a2 {
			continue
		}
		// A flagged antenna of a single-direction term invalidates the baseline
		if g.NDir == 1 && (g.Flags[g.Cell(t, f, a1, 0)] || g.Flags[g.Cell(t, f, a2, 0)]) {
			continue
		}
		lr := vis.Logical(r)
		rw := vis.RowW(r)
		for _, c := range p.chans[f] {
			off := vis.Offset(lr, c)
			src := p.resid[(r*vis.NChan+c)*p.nc:]
			var rs [4]complex128
			var ws [4]float64
			use := false
			for i := range p.nc {
				w := vis.Weight[off+i] * rw
				if vis.Flags[off+i] || w == 0 {
					continue
				}
				rs[i] = src[i]
				ws[i] = w
				use = true
			}
			if !use {
				continue
			}
			p.addSample(t, f, r, c, a1, a2, false, &rs, &ws, sc)
			p.kern.flip(&rs, &ws)
			p.addSample(t, f, r, c, a2, a1, true, &rs, &ws, sc)
		}
	}

	for cell := c0; cell < c1; cell++ {
		p.kern.mirror(p.jhj[cell*p.bl : (cell+1)*p.bl])
	}
}

// Add one oriented sample to the equations of antenna ap
func (p *normEq) addSample(t, f, r, c, ap, aq int, flip bool, rs *[4]complex128, ws *[4]float64, sc *buildScratch) {
	ly := p.kern
	g := p.part.active
	for dk := range sc.jac {
		sc.jac[dk] = Block{}
		sc.touched[dk] = false
	}
	for d := range p.model.NDir {
		y := ly.load(p.model.Model[p.model.Offset(r, c, d):])
		if flip {
			y = y.H()
		}
		// Terms after the active one wrap the model, innermost first
		for j := len(p.part.after) - 1; j >= 0; j-- {
			h := p.part.after[j]
			y = Sandwich(h.At(ly, r, c, ap, d), y, h.At(ly, r, c, aq, d))
		}
		z := y.Mul(g.At(ly, r, c, aq, d).H())
		l := Identity()
		// Terms before the active one multiply from the left
		for j := len(p.part.before) - 1; j >= 0; j-- {
			h := p.part.before[j]
			l = h.At(ly, r, c, ap, d).Mul(l)
			z = z.Mul(h.At(ly, r, c, aq, d).H())
		}
		dk := g.Dir(d)
		p.kern.addJacobian(&sc.jac[dk], l, z)
		sc.touched[dk] = true
	}
	for dk, ok := range sc.touched {
		if !ok {
			continue
		}
		cell := g.Cell(t, f, ap, dk)
		if g.Flags[cell] {
			continue
		}
		p.kern.accumulate(p.jhj[cell*p.bl:(cell+1)*p.bl], p.jhr[cell*p.nc:(cell+1)*p.nc], &sc.jac[dk], rs, ws)
	}
}

// Solve the equations of every cell of one interval
func (p *normEq) invert(t, f int, s *cellScratch) {
	c0, c1 := p.cells(t, f)
	g := p.part.active
	for cell := c0; cell < c1; cell++ {
		upd := p.upd[cell*p.nc : (cell+1)*p.nc]
		if g.Flags[cell] {
			clear(upd)
			p.noInfo[cell] = false
			continue
		}
		ok := p.kern.solve(p.jhj[cell*p.bl:(cell+1)*p.bl], p.jhr[cell*p.nc:(cell+1)*p.nc], upd, s)
		if !ok {
			clear(upd)
		}
		p.noInfo[cell] = !ok
	}
}
