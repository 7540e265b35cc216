// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

// Implements 2x2 complex Jones algebra and the per-mode views on it.

package gojones

import "math/cmplx"

// 2x2 complex matrix stored row-major: XX, XY, YX, YY
type Jones [4]complex128

// 4x4 complex matrix stored row-major (Kronecker product of two Jones matrices)
type Block [16]complex128

// Identity Jones matrix
func Identity() Jones {
	return Jones{1, 0, 0, 1}
}

// Diagonal Jones matrix
func DiagJones(x, y complex128) Jones {
	return Jones{x, 0, 0, y}
}

// Matrix product a b
func (a Jones) Mul(b Jones) Jones {
	return Jones{
		a[0]*b[0] + a[1]*b[2],
		a[0]*b[1] + a[1]*b[3],
		a[2]*b[0] + a[3]*b[2],
		a[2]*b[1] + a[3]*b[3],
	}
}

// Conjugate transpose a^H
func (a Jones) H() Jones {
	return Jones{cmplx.Conj(a[0]), cmplx.Conj(a[2]), cmplx.Conj(a[1]), cmplx.Conj(a[3])}
}

// Transpose a^T
func (a Jones) T() Jones {
	return Jones{a[0], a[2], a[1], a[3]}
}

func (a Jones) Add(b Jones) Jones {
	return Jones{a[0] + b[0], a[1] + b[1], a[2] + b[2], a[3] + b[3]}
}

func (a Jones) Sub(b Jones) Jones {
	return Jones{a[0] - b[0], a[1] - b[1], a[2] - b[2], a[3] - b[3]}
}

func (a Jones) Scale(s complex128) Jones {
	return Jones{a[0] * s, a[1] * s, a[2] * s, a[3] * s}
}

// Sandwich product g m h^H
func Sandwich(g, m, h Jones) Jones {
	return g.Mul(m).Mul(h.H())
}

// Kronecker product a ⊗ b, mapping vec(X) to vec(a X bᵀ) for row-major vec
func Kron(a, b Jones) Block {
	var k Block
	for i := range 2 {
		for j := range 2 {
			for m := range 2 {
				for n := range 2 {
					k[(2*i+j)*4+2*m+n] = a[2*i+m] * b[2*j+n]
				}
			}
		}
	}
	return k
}

// Squared Frobenius norm
func (a Jones) Norm2() float64 {
	return Abs2(a[0]) + Abs2(a[1]) + Abs2(a[2]) + Abs2(a[3])
}

// ------------------------------------
// Correlation layouts
// ------------------------------------

// layout converts between the packed per-mode correlation slots stored in the
// data, model and gain arrays and the 2x2 Jones form used by the chain algebra.
// One layout is selected per solver call.
type layout interface {
	nc() int
	load(src []complex128) Jones
	store(dst []complex128, j Jones)
	// flip turns a sample of baseline (p,q) into the sample of (q,p)
	flip(r *[4]complex128, w *[4]float64)
	identity(dst []complex128)
}

func newLayout(mode CorrMode) layout {
	switch mode {
	case Scalar:
		return scalarLayout{}
	case Diagonal:
		return diagLayout{}
	default:
		return fullLayout{}
	}
}

type scalarLayout struct{}

func (scalarLayout) nc() int { return 1 }

func (scalarLayout) load(src []complex128) Jones {
	return Jones{src[0], 0, 0, src[0]}
}

func (scalarLayout) store(dst []complex128, j Jones) {
	dst[0] = j[XX]
}

func (scalarLayout) flip(r *[4]complex128, w *[4]float64) {
	r[0] = cmplx.Conj(r[0])
}

func (scalarLayout) identity(dst []complex128) {
	dst[0] = 1
}

type diagLayout struct{}

func (diagLayout) nc() int { return 2 }

func (diagLayout) load(src []complex128) Jones {
	return Jones{src[0], 0, 0, src[1]}
}

func (diagLayout) store(dst []complex128, j Jones) {
	dst[0] = j[XX]
	dst[1] = j[YY]
}

func (diagLayout) flip(r *[4]complex128, w *[4]float64) {
	r[0] = cmplx.Conj(r[0])
	r[1] = cmplx.Conj(r[1])
}

func (diagLayout) identity(dst []complex128) {
	dst[0] = 1
	dst[1] = 1
}

type fullLayout struct{}

func (fullLayout) nc() int { return 4 }

func (fullLayout) load(src []complex128) Jones {
	return Jones{src[0], src[1], src[2], src[3]}
}

func (fullLayout) store(dst []complex128, j Jones) {
	copy(dst[:4], j[:])
}

func (fullLayout) flip(r *[4]complex128, w *[4]float64) {
	r[0], r[1], r[2], r[3] = cmplx.Conj(r[0]), cmplx.Conj(r[2]), cmplx.Conj(r[1]), cmplx.Conj(r[3])
	w[1], w[2] = w[2], w[1]
}

func (fullLayout) identity(dst []complex128) {
	dst[0], dst[1], dst[2], dst[3] = 1, 0, 0, 1
}
