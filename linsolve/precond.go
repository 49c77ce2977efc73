// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Preconditioner describes the preconditioner solve that stores into dst the
// solution of the system
//  M z = rhs,
// where M approximates A.
type Preconditioner interface {
	PSolve(dst, rhs []float64) error
}

// PSolveFunc is an adapter to allow the use of ordinary functions as
// preconditioners.
type PSolveFunc func(dst, rhs []float64) error

// PSolve calls f(dst, rhs).
func (f PSolveFunc) PSolve(dst, rhs []float64) error {
	return f(dst, rhs)
}

// Identity is the identity preconditioner. PCG with Identity produces the
// same iterates as CG.
type Identity struct{}

// PSolve implements the Preconditioner interface.
func (Identity) PSolve(dst, rhs []float64) error {
	if len(dst) != len(rhs) {
		return ErrDimensionMismatch
	}
	copy(dst, rhs)
	return nil
}

// Jacobi is the diagonal preconditioner M = diag(A).
type Jacobi struct {
	inv []float64
}

// NewJacobi returns the Jacobi preconditioner for a matrix with the given
// diagonal. All diagonal entries must be non-zero.
func NewJacobi(diag []float64) (*Jacobi, error) {
	inv := make([]float64, len(diag))
	for i, d := range diag {
		if d == 0 {
			return nil, fmt.Errorf("%w: row %d", ErrZeroDiagonal, i)
		}
		inv[i] = 1 / d
	}
	return &Jacobi{inv: inv}, nil
}

// NewJacobiFromMatrix returns the Jacobi preconditioner for the square
// matrix a.
func NewJacobiFromMatrix(a mat.Matrix) (*Jacobi, error) {
	r, c := a.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: %d×%d", ErrNotSquare, r, c)
	}
	diag := make([]float64, r)
	for i := range diag {
		diag[i] = a.At(i, i)
	}
	return NewJacobi(diag)
}

// PSolve implements the Preconditioner interface.
func (j *Jacobi) PSolve(dst, rhs []float64) error {
	if len(dst) != len(j.inv) || len(rhs) != len(j.inv) {
		return fmt.Errorf("%w: preconditioner of order %d", ErrDimensionMismatch, len(j.inv))
	}
	floats.MulTo(dst, j.inv, rhs)
	return nil
}
