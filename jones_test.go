// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertJonesInDelta(t *testing.T, want, got Jones, delta float64, msgAndArgs ...any) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, 0, cmplx.Abs(want[i]-got[i]), delta, msgAndArgs...)
	}
}

func TestJones_MulIdentity(t *testing.T) {
	a := Jones{1 + 2i, 3 - 1i, -0.5i, 2}
	assert.Equal(t, a, a.Mul(Identity()))
	assert.Equal(t, a, Identity().Mul(a))
}

func TestJones_HermitianTranspose(t *testing.T) {
	a := Jones{1 + 2i, 3 - 1i, -0.5i, 2}
	assert.Equal(t, Jones{1 - 2i, 0.5i, 3 + 1i, 2}, a.H())
	assert.Equal(t, a, a.H().H())
	assert.Equal(t, Jones{1 + 2i, -0.5i, 3 - 1i, 2}, a.T())
}

func TestJones_Sandwich(t *testing.T) {
	g := DiagJones(2, 1i)
	m := Jones{1, 1, 1, 1}
	// g m g^H
	want := Jones{4, -2i, 2i, 1}
	assert.Equal(t, want, Sandwich(g, m, g))
}

// Kron(a, b) vec(x) must equal vec(a x b^T) in row-major order
func TestKron_MapsVec(t *testing.T) {
	a := Jones{1 + 1i, 2, -1i, 0.5}
	b := Jones{3, 1 - 2i, 0.25i, -1}
	x := Jones{0.7, -1.1i, 2 + 0.3i, 1}

	k := Kron(a, b)
	var got Jones
	for i := range 4 {
		for j := range 4 {
			got[i] += k[i*4+j] * x[j]
		}
	}
	assertJonesInDelta(t, a.Mul(x).Mul(b.T()), got, 1e-12)
}

func TestLayout_LoadStore(t *testing.T) {
	tests := []struct {
		mode CorrMode
		src  []complex128
		want Jones
	}{
		{Scalar, []complex128{2 + 1i}, Jones{2 + 1i, 0, 0, 2 + 1i}},
		{Diagonal, []complex128{2, 3i}, Jones{2, 0, 0, 3i}},
		{Full, []complex128{1, 2, 3, 4}, Jones{1, 2, 3, 4}},
	}
	for _, tt := range tests {
		ly := newLayout(tt.mode)
		assert.Equal(t, int(tt.mode), ly.nc())
		j := ly.load(tt.src)
		assert.Equal(t, tt.want, j)

		dst := make([]complex128, ly.nc())
		ly.store(dst, j)
		assert.Equal(t, tt.src, dst)

		ly.identity(dst)
		assert.Equal(t, Identity(), ly.load(dst))
	}
}

// A flipped full sample is the conjugate transpose with swapped cross-hand weights
func TestFullLayout_Flip(t *testing.T) {
	r := [4]complex128{1 + 1i, 2 + 2i, 3 + 3i, 4 + 4i}
	w := [4]float64{1, 2, 3, 4}
	fullLayout{}.flip(&r, &w)

	assert.Equal(t, [4]complex128(Jones{1 + 1i, 2 + 2i, 3 + 3i, 4 + 4i}.H()), r)
	assert.Equal(t, [4]float64{1, 3, 2, 4}, w)
}
