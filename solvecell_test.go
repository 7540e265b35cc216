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

func TestDivideCell(t *testing.T) {
	var x complex128
	require.True(t, divideCell(4, 2+2i, &x))
	assert.Equal(t, 0.5+0.5i, x)

	x = 7
	assert.False(t, divideCell(0, 1, &x))
	assert.False(t, divideCell(SINGULAR_EPS/2, 1, &x))
	assert.Equal(t, complex128(7), x, "x must be untouched on failure")
}

func TestSolveCell4_Hermitian(t *testing.T) {
	// Hermitian positive definite matrix requiring row interchanges
	a := []complex128{
		1, 2 + 1i, 0, 0.5i,
		2 - 1i, 9, 1, 0,
		0, 1, 4, 1 - 1i,
		-0.5i, 0, 1 + 1i, 3,
	}
	want := []complex128{1, -1i, 2 + 0.5i, -0.25}
	b := make([]complex128, 4)
	for i := range 4 {
		for j := range 4 {
			b[i] += a[i*4+j] * want[j]
		}
	}

	var s cellScratch
	x := make([]complex128, 4)
	require.True(t, solveCell4(a, b, x, &s))
	for i := range 4 {
		assert.InDelta(t, 0, cmplx.Abs(x[i]-want[i]), 1e-12)
	}
}

func TestSolveCell4_Singular(t *testing.T) {
	tests := []struct {
		name string
		a    []complex128
	}{
		{"zero", make([]complex128, 16)},
		{"rank one", []complex128{
			1, 1, 1, 1,
			1, 1, 1, 1,
			1, 1, 1, 1,
			1, 1, 1, 1,
		}},
		{"nan", []complex128{
			1, 0, 0, 0,
			0, complex(math.NaN(), 0), 0, 0,
			0, 0, 1, 0,
			0, 0, 0, 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s cellScratch
			x := []complex128{9, 9, 9, 9}
			assert.False(t, solveCell4(tt.a, []complex128{1, 1, 1, 1}, x, &s))
			assert.Equal(t, []complex128{9, 9, 9, 9}, x)
		})
	}
}
