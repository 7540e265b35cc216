// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Implements prediction of visibilities through a chain of Jones terms.

package gojones

import "fmt"

// Predict computes the corrupted model visibilities
//
//	V_pq = Σ_d G_1p(d) ··· G_np(d) M_pq(d) G_nq(d)^H ··· G_1q(d)^H
//
// for every raw row and channel and writes them to out, indexed like the raw
// rows of the data ([raw row][channel][correlation]).
func Predict(vis *VisibilityData, model *ModelData, chain TermChain, out []complex128) error {
	if err := model.Validate(vis); err != nil {
		return err
	}
	if err := chain.Validate(vis, model); err != nil {
		return err
	}
	nc := int(vis.Mode)
	if len(out) != vis.NRaw()*vis.NChan*nc {
		return fmt.Errorf("%w: output length %d, want %d", ErrPrecondition, len(out), vis.NRaw()*vis.NChan*nc)
	}
	ly := newLayout(vis.Mode)
	for r := range vis.NRaw() {
		for c := range vis.NChan {
			v := predictSample(ly, model, chain, r, c, vis.Ant1[r], vis.Ant2[r])
			ly.store(out[(r*vis.NChan+c)*nc:], v)
		}
	}
	return nil
}

// Model visibility of one sample of baseline (p,q)
func predictSample(ly layout, model *ModelData, chain TermChain, row, ch, p, q int) Jones {
	var v Jones
	for d := range model.NDir {
		y := ly.load(model.Model[model.Offset(row, ch, d):])
		for j := len(chain) - 1; j >= 0; j-- {
			g := chain[j]
			y = Sandwich(g.At(ly, row, ch, p, d), y, g.At(ly, row, ch, q, d))
		}
		v = v.Add(y)
	}
	return v
}
