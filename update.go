// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

// Apply the raw updates of one interval to the gains of the active term
//   - flagged cell: reset to the identity
//   - cell without information: left unchanged
//   - direction dependent term: g = g + u/2
//   - otherwise, even iteration: g = u, odd iteration: g = (g + u)/2
func (p *normEq) apply(t, f, iter int, dd bool) {
	c0, c1 := p.cells(t, f)
	g := p.part.active
	nc := p.nc
	for cell := c0; cell < c1; cell++ {
		gs := g.Slots(cell)
		if g.Flags[cell] {
			p.kern.identity(gs)
			continue
		}
		if p.noInfo[cell] {
			continue
		}
		u := p.upd[cell*nc : (cell+1)*nc]
		switch {
		case dd:
			for i := range nc {
				gs[i] += u[i] / 2
			}
		case iter%2 == 0:
			copy(gs, u)
		default:
			for i := range nc {
				gs[i] = (gs[i] + u[i]) / 2
			}
		}
	}
}
