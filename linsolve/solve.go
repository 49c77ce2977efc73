// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Settings holds various settings for
// solving a linear system.
type Settings struct {
	// X0 is an initial guess.
	// If it is nil, the zero vector will
	// be used.
	// If it is not nil, the length of X0
	// must be equal to the dimension of
	// the system. X0 is copied and never
	// modified.
	X0 []float64

	// Tolerance is the bound on the
	// Euclidean norm of the residual
	//  |b - A*x_i| < Tolerance
	// at which the iterative process is
	// considered converged.
	// Tolerance must be positive.
	Tolerance float64

	// MaxIterations is the limit on the
	// number of iterations. If it is
	// zero, the initial guess is returned
	// without iterating. It must not be
	// negative.
	MaxIterations int

	// Preconditioner is used for the
	// PSolve operation. If it is nil, no
	// preconditioning will be used (M is
	// the identity).
	Preconditioner Preconditioner

	// Logger receives debug records
	// about the iterative process. If it
	// is nil, nothing is logged.
	Logger *slog.Logger
}

// DefaultSettings returns the default settings for LinearSolve.
func DefaultSettings() Settings {
	return Settings{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

// Result holds the result of an iterative solve.
type Result struct {
	// X0 is the initial guess the solve
	// started from.
	X0 []float64
	// X is the approximate solution.
	X []float64
	// Status reports why the iterative
	// process terminated.
	Status Status
	// Cause holds the reason of a
	// Breakdown.
	Cause error
	// Stats holds the statistics of the
	// solve.
	Stats Stats
}

// Stats holds statistics about an iterative solve.
type Stats struct {
	// Iterations is the number of
	// iteration done by Method.
	Iterations int
	// MatVec is the number of MatVec and
	// MatTransVec operations commanded
	// by a Method.
	MatVec int
	// PSolve is the number of PSolve
	// operations commanded by a Method.
	PSolve int
	// ResidualNorm is the final norm of
	// the residual.
	ResidualNorm float64
	// StartTime is an approximate time
	// when the solve was started.
	StartTime time.Time
	// Runtime is an approximate duration
	// of the solve.
	Runtime time.Duration
}

// LinearSolve solves the system of n linear equations
//  A*x = b,
// where the n×n matrix A is represented by the matrix-vector operations in a.
// The dimension of the problem n is determined by the length of b.
//
// method is an iterative method used for finding an approximate solution of the
// linear system. It must not be nil. The operations in a must provide what the
// method needs.
//
// Invalid settings and mismatched dimensions are reported as errors before
// any iteration. Reaching the iteration limit or a breakdown of the method is
// not an error; it is reported in Result.Status and Result.X holds the last
// iterate.
func LinearSolve(a MatrixOps, b []float64, method Method, settings Settings) (Result, error) {
	stats := Stats{StartTime: time.Now()}

	dim := len(b)
	if a.MatVec == nil {
		panic("linsolve: nil matrix-vector multiplication")
	}
	switch {
	case a.Dim != 0 && a.Dim != dim:
		return Result{}, fmt.Errorf("%w: %d×%d matrix, right-hand side of length %d", ErrDimensionMismatch, a.Dim, a.Dim, dim)
	case settings.X0 != nil && len(settings.X0) != dim:
		return Result{}, fmt.Errorf("%w: initial guess of length %d, right-hand side of length %d", ErrDimensionMismatch, len(settings.X0), dim)
	case !(settings.Tolerance > 0):
		return Result{}, fmt.Errorf("%w: %v", ErrTolerance, settings.Tolerance)
	case settings.MaxIterations < 0:
		return Result{}, fmt.Errorf("%w: %v", ErrIterationLimit, settings.MaxIterations)
	}

	if dim == 0 {
		return Result{Status: Converged, Stats: stats}, nil
	}

	logger := settings.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	x0 := make([]float64, dim)
	if settings.X0 != nil {
		copy(x0, settings.X0)
	}
	ctx := &Context{
		X:        make([]float64, dim),
		Residual: make([]float64, dim),
	}
	copy(ctx.X, x0)
	if settings.X0 != nil {
		a.MatVec(ctx.Residual, ctx.X)
		stats.MatVec++
		floats.AddScaledTo(ctx.Residual, b, -1, ctx.Residual) // r = b - Ax
	} else {
		copy(ctx.Residual, b) // r = b
	}

	ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
	stats.ResidualNorm = ctx.ResidualNorm

	var (
		status Status
		err    error
	)
	switch {
	case ctx.ResidualNorm < settings.Tolerance:
		status = Converged
	case settings.MaxIterations == 0:
		status = IterationLimit
	default:
		status, err = iterate(a, b, ctx, settings, method, &stats, logger)
	}

	var cause error
	var bd *BreakdownError
	if errors.As(err, &bd) {
		status = Breakdown
		cause = err
		err = nil
		logger.Debug("linsolve breakdown", "method", bd.Method, "reason", bd.Reason, "value", bd.Value)
	}

	stats.Runtime = time.Since(stats.StartTime)
	logger.Debug("linsolve done",
		"status", status,
		"iterations", stats.Iterations,
		"matvec", stats.MatVec,
		"residual", stats.ResidualNorm,
		"runtime", stats.Runtime,
	)
	return Result{
		X0:     x0,
		X:      ctx.X,
		Status: status,
		Cause:  cause,
		Stats:  stats,
	}, err
}

func iterate(a MatrixOps, b []float64, ctx *Context, settings Settings, method Method, stats *Stats, logger *slog.Logger) (Status, error) {
	method.Init(len(ctx.X))
	if r, ok := method.(releaser); ok {
		defer r.release()
	}

	for {
		op, err := method.Iterate(ctx)
		if err != nil {
			return NotTerminated, err
		}

		switch op {
		case NoOperation:

		case ComputeResidual:
			a.MatVec(ctx.Residual, ctx.X)
			stats.MatVec++
			floats.AddScaledTo(ctx.Residual, b, -1, ctx.Residual)

		case MatVec, MatTransVec:
			if op == MatVec {
				a.MatVec(ctx.Dst, ctx.Src)
			} else {
				if a.MatTransVec == nil {
					panic("linsolve: nil transposed matrix-vector multiplication")
				}
				a.MatTransVec(ctx.Dst, ctx.Src)
			}
			stats.MatVec++

		case PSolve:
			if settings.Preconditioner == nil {
				copy(ctx.Dst, ctx.Src)
				continue
			}
			err = settings.Preconditioner.PSolve(ctx.Dst, ctx.Src)
			if err != nil {
				return NotTerminated, err
			}
			stats.PSolve++

		case CheckResidualNorm:
			ctx.Converged = ctx.ResidualNorm < settings.Tolerance

		case EndIteration:
			stats.Iterations++
			stats.ResidualNorm = ctx.ResidualNorm
			logger.Debug("linsolve iteration", "iteration", stats.Iterations, "residual", ctx.ResidualNorm)
			if ctx.Converged {
				return Converged, nil
			}
			if stats.Iterations == settings.MaxIterations {
				return IterationLimit, nil
			}

		default:
			panic("linsolve: invalid operation")
		}
	}
}
