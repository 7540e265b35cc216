// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Solve the complex normal equations A x = b (A is n x n, row-major)
// - The complex system is solved through its real embedding [[Re A, -Im A], [Im A, Re A]]
// - Return the inverse of A as cov (row-major, n x n)
func SolveLS(A, b []complex128, n int) (x, cov []complex128, err error) {

	if len(A) != n*n {
		return nil, nil, fmt.Errorf("invalid matrix size. A(%d), want (%d x %d)", len(A), n, n)
	}
	if len(b) != n {
		return nil, nil, fmt.Errorf("invalid vector size. b(%d), want (%d)", len(b), n)
	}

	R := embed(A, n)
	r := mat.NewVecDense(2*n, nil)
	for i := range n {
		r.SetVec(i, real(b[i]))
		r.SetVec(n+i, imag(b[i]))
	}

	// Solve for x (x = A^-1 b)
	var y mat.VecDense
	err = y.SolveVec(R, r)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	x = make([]complex128, n)
	for i := range n {
		x[i] = complex(y.AtVec(i), y.AtVec(n+i))
	}

	// Set A^-1 as the covariance matrix
	var c mat.Dense
	err = c.Inverse(R)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	cov = make([]complex128, n*n)
	for i := range n {
		for j := range n {
			cov[i*n+j] = complex(c.At(i, j), c.At(n+i, j))
		}
	}
	if DBG_ >= 4 {
		PrintMat(&c)
	}

	return
}

// Real 2n x 2n embedding of a complex n x n matrix
func embed(A []complex128, n int) *mat.Dense {
	R := mat.NewDense(2*n, 2*n, nil)
	for i := range n {
		for j := range n {
			a := A[i*n+j]
			R.Set(i, j, real(a))
			R.Set(i, n+j, -imag(a))
			R.Set(n+i, j, imag(a))
			R.Set(n+i, n+j, real(a))
		}
	}
	return R
}

// Standard deviations of the gain parameters from the final JHJ blocks
// (square roots of the diagonal of each inverted block).
// Parameters of singular blocks are set to +Inf and an ErrSingular error is
// returned together with the values of the other blocks.
func GainErrors(jhj []complex128, blockLen int) ([]float64, error) {
	var np int
	switch blockLen {
	case 1:
		np = 1
	case 2:
		np = 2
	case 16:
		np = 4
	default:
		return nil, fmt.Errorf("%w: block length %d", ErrPrecondition, blockLen)
	}
	if len(jhj)%blockLen != 0 {
		return nil, fmt.Errorf("%w: jhj length %d is not a multiple of %d", ErrPrecondition, len(jhj), blockLen)
	}
	nblk := len(jhj) / blockLen
	sig := make([]float64, nblk*np)
	nbad := 0
	for k := range nblk {
		blk := jhj[k*blockLen : (k+1)*blockLen]
		out := sig[k*np : (k+1)*np]
		if blockLen < 16 {
			for i, v := range blk {
				if real(v) <= SINGULAR_EPS {
					out[i] = math.Inf(1)
					nbad++
					continue
				}
				out[i] = 1 / math.Sqrt(real(v))
			}
			continue
		}
		_, cov, err := SolveLS(blk, make([]complex128, 4), 4)
		if err != nil {
			for i := range out {
				out[i] = math.Inf(1)
			}
			nbad++
			continue
		}
		for i := range 4 {
			out[i] = math.Sqrt(math.Max(real(cov[i*4+i]), 0))
		}
	}
	if nbad > 0 {
		return sig, fmt.Errorf("%w: %d of %d blocks", ErrSingular, nbad, nblk)
	}
	return sig, nil
}
