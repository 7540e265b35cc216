// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2026.10.19
//

package gojones

import "math/cmplx"

// Scratch buffers of the 4x4 cell solver (one per worker)
type cellScratch struct {
	a    Block
	b    [4]complex128
	indx [4]int
}

// x = b / a for a real non-negative a
func divideCell(a, b complex128, x *complex128) bool {
	d := real(a)
	if d <= SINGULAR_EPS {
		return false
	}
	v := b / complex(d, 0)
	if !isFinite(v) {
		return false
	}
	*x = v
	return true
}

// Solve the 4x4 complex system a x = b by LU decomposition with partial pivoting.
// A pivot smaller than SINGULAR_EPS times the largest diagonal element is
// regarded as singular.
func solveCell4(a, b, x []complex128, s *cellScratch) bool {
	copy(s.a[:], a[:16])
	copy(s.b[:], b[:4])
	scale := 0.0
	for i := range 4 {
		scale = max(scale, cmplx.Abs(s.a[i*4+i]))
	}
	if scale <= SINGULAR_EPS {
		return false
	}
	if !ludcmp4(&s.a, &s.indx, scale*SINGULAR_EPS) {
		return false
	}
	lubksb4(&s.a, &s.indx, &s.b)
	for i := range 4 {
		if !isFinite(s.b[i]) {
			return false
		}
	}
	copy(x[:4], s.b[:])
	return true
}

// In-place LU decomposition (row-major) recording the row interchanges in indx
func ludcmp4(A *Block, indx *[4]int, tiny float64) bool {
	for j := range 4 {
		// Pivot search
		imax := j
		big := cmplx.Abs(A[j*4+j])
		for i := j + 1; i < 4; i++ {
			if v := cmplx.Abs(A[i*4+j]); v > big {
				big = v
				imax = i
			}
		}
		if big <= tiny {
			return false
		}
		if imax != j {
			for k := range 4 {
				A[imax*4+k], A[j*4+k] = A[j*4+k], A[imax*4+k]
			}
		}
		indx[j] = imax
		// Elimination below the pivot
		inv := 1 / A[j*4+j]
		for i := j + 1; i < 4; i++ {
			A[i*4+j] *= inv
			l := A[i*4+j]
			if l == 0 {
				continue
			}
			for k := j + 1; k < 4; k++ {
				A[i*4+k] -= l * A[j*4+k]
			}
		}
	}
	return true
}

// Forward and back substitution using the output of ludcmp4
func lubksb4(A *Block, indx *[4]int, b *[4]complex128) {
	for i := range 4 {
		if ip := indx[i]; ip != i {
			b[i], b[ip] = b[ip], b[i]
		}
	}
	for i := range 4 {
		s := b[i]
		for j := 0; j < i; j++ {
			s -= A[i*4+j] * b[j]
		}
		b[i] = s
	}
	for i := 3; i >= 0; i-- {
		s := b[i]
		for j := i + 1; j < 4; j++ {
			s -= A[i*4+j] * b[j]
		}
		b[i] = s / A[i*4+i]
	}
}
