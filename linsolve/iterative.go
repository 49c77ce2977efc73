// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package linsolve provides iterative algorithms for solving linear systems
// and linear least-squares problems.
package linsolve

import (
	"errors"
	"fmt"
)

// Operation specifies the type of operation.
type Operation uint64

// Operations commanded by Method.Iterate.
const (
	NoOperation Operation = 0

	// Multiply A*x where x is stored
	// in Context.Src and the result will
	// be stored in Context.Dst.
	MatVec Operation = 1 << (iota - 1)

	// Multiply A^T*x where x is stored
	// in Context.Src and the result will
	// be stored in Context.Dst.
	MatTransVec

	// Do the preconditioner solve
	//  M z = r,
	// where r is stored in Context.Src,
	// and store the solution z in
	// Context.Dst.
	PSolve

	// Compute b - A*x where x is stored
	// in Context.X and store the result
	// into Context.Residual.
	ComputeResidual

	// Check convergence using the
	// current approximation in Context.X
	// and the residual norm in
	// Context.ResidualNorm.
	// If convergence is detected,
	// Context.Converged will be set to
	// true before Method.Iterate is
	// called again.
	CheckResidualNorm

	// EndIteration indicates that Method
	// has finished what it considers to
	// be one iteration. It is used to
	// update the iteration counter. If
	// Context.Converged is true, the
	// iterative process is terminated,
	// and Method.Init must be called
	// before calling Method.Iterate
	// again.
	EndIteration
)

func (op Operation) String() string {
	switch op {
	case NoOperation:
		return "NoOperation"
	case MatVec:
		return "MatVec"
	case MatTransVec:
		return "MatTransVec"
	case PSolve:
		return "PSolve"
	case ComputeResidual:
		return "ComputeResidual"
	case CheckResidualNorm:
		return "CheckResidualNorm"
	case EndIteration:
		return "EndIteration"
	}
	return fmt.Sprintf("Operation(%d)", uint64(op))
}

// Method is an iterative method that produces a sequence of vectors converging
// to the vector x satisfying a system of linear equations
//  A x = b,
// where A is non-singular dim×dim matrix, and x and b are vectors of dimension
// dim.
//
// Method uses a reverse-communication interface between the iterative algorithm
// and the caller. Method acts as a client that commands the caller to perform
// needed operations via Operation returned from Iterate methods. This provides
// independence of Method on representation of the matrix A, and enables
// automation of common operations like checking for convergence and maintaining
// statistics.
type Method interface {
	// Init initializes the method for solving a dim×dim linear system.
	// The scratch vectors of the method are allocated here and reused
	// by every subsequent call to Iterate.
	Init(dim int)

	// Iterate retrieves data from Context, updates it, and returns the next
	// operation. The caller must perform the Operation using data in
	// Context, and depending on the state call Iterate again.
	//
	// A *BreakdownError returned from Iterate terminates the solve with
	// the Breakdown status. Any other error is returned to the caller.
	Iterate(*Context) (Operation, error)
}

// releaser is implemented by methods that hold vectors of the problem
// dimension. They are dropped when a solve ends so that nothing is retained
// between independent solves.
type releaser interface {
	release()
}

// Context mediates the communication between a Method and the caller. It must
// not be modified or accessed apart from the commanded Operations.
type Context struct {
	// X is the current approximate solution. On the first call to
	// Method.Iterate, X contains the initial estimate. Method must
	// update X with the current estimate when it commands ComputeResidual
	// and EndIteration.
	X []float64
	// Residual is the current residual b-A*x. On the first call to
	// Method.Iterate, Residual contains the initial residual.
	Residual []float64
	// ResidualNorm is (an estimate of) the norm of the current residual.
	// Method must update it when it commands CheckResidualNorm.
	ResidualNorm float64
	// Converged indicates to Method that the ResidualNorm satisfies the
	// stopping criterion as a result of CheckResidualNorm operation.
	// If a Method commands EndIteration with Converged true, the caller
	// will not call Method.Iterate again without calling Method.Init first.
	Converged bool

	// Src and Dst are the source and destination vectors for various
	// Operations.
	Src, Dst []float64
}

// Status reports why a solve terminated. Positive values indicate
// convergence, negative values indicate that the returned solution is only
// an approximation.
type Status int

const (
	NotTerminated Status = 0
	Converged     Status = 1
)

const (
	// IterationLimit means that MaxIterations iterations have been done
	// without reaching the tolerance. The returned X is the last iterate.
	IterationLimit Status = -(iota + 1)
	// Breakdown means that the method could not make further progress,
	// for example because of zero curvature along the search direction.
	// The returned X is the last iterate.
	Breakdown
)

func (s Status) String() string {
	switch s {
	case NotTerminated:
		return "NotTerminated"
	case Converged:
		return "Converged"
	case IterationLimit:
		return "IterationLimit"
	case Breakdown:
		return "Breakdown"
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// BreakdownError is returned by a Method when a quantity it needs to divide
// by becomes (numerically) zero.
type BreakdownError struct {
	Method string
	Reason string
	Value  float64
}

func (e *BreakdownError) Error() string {
	return fmt.Sprintf("linsolve: %s breakdown: %s (%v)", e.Method, e.Reason, e.Value)
}

// Configuration errors returned by LinearSolve, LeastSquares and the
// operator constructors.
var (
	ErrNotSquare         = errors.New("linsolve: matrix is not square")
	ErrDimensionMismatch = errors.New("linsolve: dimension mismatch")
	ErrTolerance         = errors.New("linsolve: tolerance must be positive")
	ErrIterationLimit    = errors.New("linsolve: iteration limit must not be negative")
	ErrZeroDiagonal      = errors.New("linsolve: zero on the diagonal")
	ErrInitialGuess      = errors.New("linsolve: initial guess not supported for under-constrained system")
)

// Default values of Settings.
const (
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 100
	// DefaultRecompute is the number of iterations after which the
	// residual is recomputed from scratch instead of being updated.
	// The value is empirical and can be tuned per method.
	DefaultRecompute = 50
)

func reuse(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}

// recomputeDue reports whether iteration k (counted from 1) should
// recompute the residual from scratch.
func recomputeDue(k, period int) bool {
	if period <= 0 {
		period = DefaultRecompute
	}
	return k%period == 0
}

const dlamchE = 1.0 / (1 << 53)
