// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MatrixOps describes the matrix of the
// linear system in terms of A*x and A^T*x
// operations.
type MatrixOps struct {
	// Compute A*x and store the result
	// into dst.
	// It must be non-nil.
	MatVec func(dst, x []float64)

	// Compute A^T*x and store the result
	// into dst.
	// If the matrix is symmetric and a
	// solver for symmetric systems is
	// used (like CG), MatTransVec can be
	// nil.
	MatTransVec func(dst, x []float64)

	// Dim is the order of the matrix.
	// If it is zero, the order is not
	// known and LinearSolve takes it from
	// the right-hand side.
	Dim int
}

// NewMatrixOps returns the operations of the square matrix a. The returned
// operations read a on every call, a is not copied.
func NewMatrixOps(a mat.Matrix) (MatrixOps, error) {
	r, c := a.Dims()
	if r != c {
		return MatrixOps{}, fmt.Errorf("%w: %d×%d", ErrNotSquare, r, c)
	}
	return MatrixOps{
		MatVec:      mulVec(a),
		MatTransVec: mulVec(a.T()),
		Dim:         r,
	}, nil
}

// Transpose returns the operations of A^T. MatTransVec must not be nil.
func (ops MatrixOps) Transpose() MatrixOps {
	if ops.MatTransVec == nil {
		panic("linsolve: nil transposed matrix-vector multiplication")
	}
	return MatrixOps{
		MatVec:      ops.MatTransVec,
		MatTransVec: ops.MatVec,
		Dim:         ops.Dim,
	}
}

// NewOverConstrained returns the operations of the c×c matrix A^T*A of the
// normal equations
//  A^T*A x = A^T*b
// for an r×c matrix a with r >= c. If a has full column rank, A^T*A is
// symmetric positive definite and the system can be solved with CG.
//
// The returned operations share a scratch vector and must not be used
// concurrently.
func NewOverConstrained(a mat.Matrix) (MatrixOps, error) {
	r, c := a.Dims()
	if r < c {
		return MatrixOps{}, fmt.Errorf("%w: over-constrained system needs rows >= columns, have %d×%d", ErrDimensionMismatch, r, c)
	}
	av, atv := mulVec(a), mulVec(a.T())
	tmp := make([]float64, r)
	normal := func(dst, x []float64) {
		av(tmp, x)
		atv(dst, tmp)
	}
	return MatrixOps{MatVec: normal, MatTransVec: normal, Dim: c}, nil
}

// NewUnderConstrained returns the operations of the r×r matrix A*A^T of the
// system
//  A*A^T y = b,  x = A^T*y
// whose solution x is the minimum-norm solution of A*x = b for an r×c
// matrix a with r <= c.
//
// The returned operations share a scratch vector and must not be used
// concurrently.
func NewUnderConstrained(a mat.Matrix) (MatrixOps, error) {
	r, c := a.Dims()
	if r > c {
		return MatrixOps{}, fmt.Errorf("%w: under-constrained system needs rows <= columns, have %d×%d", ErrDimensionMismatch, r, c)
	}
	av, atv := mulVec(a), mulVec(a.T())
	tmp := make([]float64, c)
	normal := func(dst, y []float64) {
		atv(tmp, y)
		av(dst, tmp)
	}
	return MatrixOps{MatVec: normal, MatTransVec: normal, Dim: r}, nil
}

// LeastSquares finds an approximate solution x of the r×c system
//  A*x = b.
// If r == c, the system is solved directly. If r > c, x minimizes |A*x - b|
// and is found by solving the normal equations. If r < c, x is the solution
// with the smallest norm; settings.X0 must be nil in this case because the
// iteration runs on the auxiliary vector y. In both non-square cases the
// residual reported in Result.Stats is the residual of the auxiliary square
// system.
func LeastSquares(a mat.Matrix, b []float64, method Method, settings Settings) (Result, error) {
	r, c := a.Dims()
	if len(b) != r {
		return Result{}, fmt.Errorf("%w: %d×%d matrix, right-hand side of length %d", ErrDimensionMismatch, r, c, len(b))
	}
	switch {
	case r == c:
		ops, err := NewMatrixOps(a)
		if err != nil {
			return Result{}, err
		}
		return LinearSolve(ops, b, method, settings)

	case r > c:
		ops, err := NewOverConstrained(a)
		if err != nil {
			return Result{}, err
		}
		atb := make([]float64, c)
		mulVec(a.T())(atb, b)
		return LinearSolve(ops, atb, method, settings)

	default:
		if settings.X0 != nil {
			return Result{}, ErrInitialGuess
		}
		ops, err := NewUnderConstrained(a)
		if err != nil {
			return Result{}, err
		}
		res, err := LinearSolve(ops, b, method, settings)
		if err != nil {
			return res, err
		}
		x := make([]float64, c)
		mulVec(a.T())(x, res.X)
		res.X0 = make([]float64, c)
		res.X = x
		return res, nil
	}
}

func mulVec(a mat.Matrix) func(dst, x []float64) {
	return func(dst, x []float64) {
		d := mat.NewVecDense(len(dst), dst)
		d.MulVec(a, mat.NewVecDense(len(x), x))
	}
}
