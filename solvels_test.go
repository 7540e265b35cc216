// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"errors"
	"math"
	"math/cmplx"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolveLS(t *testing.T) {
	A := []complex128{
		4, 1 - 1i, 0, 0.5,
		1 + 1i, 3, 0.25i, 0,
		0, -0.25i, 2, 0,
		0.5, 0, 0, 1,
	}
	want := []complex128{1 + 1i, -2, 0.5i, 3}
	b := make([]complex128, 4)
	for i := range 4 {
		for j := range 4 {
			b[i] += A[i*4+j] * want[j]
		}
	}

	x, cov, err := SolveLS(A, b, 4)
	require.NoError(t, err)
	for i := range 4 {
		assert.InDelta(t, 0, cmplx.Abs(x[i]-want[i]), 1e-12)
	}
	// cov is the inverse of A
	for i := range 4 {
		for j := range 4 {
			var s complex128
			for k := range 4 {
				s += A[i*4+k] * cov[k*4+j]
			}
			e := complex128(0)
			if i == j {
				e = 1
			}
			assert.InDelta(t, 0, cmplx.Abs(s-e), 1e-12, "(%d,%d)", i, j)
		}
	}
}

func TestSolveLS_Errors(t *testing.T) {
	_, _, err := SolveLS(make([]complex128, 3), make([]complex128, 2), 2)
	assert.Error(t, err)
	_, _, err = SolveLS(make([]complex128, 4), make([]complex128, 3), 2)
	assert.Error(t, err)

	_, _, err = SolveLS(make([]complex128, 4), []complex128{1, 1}, 2)
	assert.True(t, errors.Is(err, ErrSingular), "err= %v", err)
}

func TestGainErrors(t *testing.T) {
	// Two diagonal cells, the second without information on YY
	sig, err := GainErrors([]complex128{4, 16, 1, 0}, 2)
	assert.True(t, errors.Is(err, ErrSingular))
	require.Len(t, sig, 4)
	assert.Equal(t, []float64{0.5, 0.25, 1}, sig[:3])
	assert.True(t, math.IsInf(sig[3], 1))

	sig, err = GainErrors([]complex128{0.25}, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{2}, sig)
}

func TestGainErrors_Full(t *testing.T) {
	jhj := make([]complex128, 32)
	for i, v := range []complex128{4, 16, 1, 0.25} {
		jhj[i*4+i] = v
	}
	sig, err := GainErrors(jhj, 16)
	assert.True(t, errors.Is(err, ErrSingular), "second block is all zero")
	require.Len(t, sig, 8)
	for i, want := range []float64{0.5, 0.25, 1, 2} {
		assert.InDelta(t, want, sig[i], 1e-12)
	}
	for _, v := range sig[4:] {
		assert.True(t, math.IsInf(v, 1))
	}

	_, err = GainErrors(jhj, 3)
	assert.True(t, errors.Is(err, ErrPrecondition))
	_, err = GainErrors(jhj[:20], 16)
	assert.True(t, errors.Is(err, ErrPrecondition))
}
