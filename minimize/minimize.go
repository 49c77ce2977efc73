// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package minimize implements algorithms for finding a local minimum of an
// unconstrained function of several variables.
//
// The algorithms are reverse-communication methods built on the types of
// gonum.org/v1/gonum/optimize. A Method never calls the objective function
// itself. Instead it commands Minimize to evaluate the function or its
// gradient at a point stored in an optimize.Location and resumes when the
// evaluation is done. Local adapts a Method so that it can also be run by
// optimize.Minimize.
package minimize

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// Method is an iterative minimization algorithm.
//
// Init and Iterate return one of optimize.FuncEvaluation,
// optimize.GradEvaluation (or both combined), optimize.MajorIteration or
// optimize.NoOperation.
type Method interface {
	// Init initializes the method for the
	// problem whose starting point,
	// function value and (if needed)
	// gradient are in loc, and returns
	// the first operation.
	Init(loc *optimize.Location) (optimize.Operation, error)

	// Iterate is called after the
	// operation returned previously has
	// been carried out and returns the
	// next one. Between a MajorIteration
	// and the next call of Iterate, loc
	// must not be modified.
	Iterate(loc *optimize.Location) (optimize.Operation, error)

	// NeedsGradient reports whether the
	// method uses the gradient.
	NeedsGradient() bool
}

// loggable is implemented by methods that report their degenerate steps.
type loggable interface {
	setLogger(*slog.Logger)
}

// releaser is implemented by methods that hold buffers sized to the problem.
// They are dropped when a run ends so that nothing is retained between
// independent runs.
type releaser interface {
	release()
}

// MethodStall is the status of a run in which the method could not make
// further progress, for example because the line search failed. The best
// point found so far is returned and Result.Stall holds the reason.
var MethodStall = optimize.NewStatus("MethodStall", true, errors.New("minimize: method cannot make further progress"))

// Configuration errors returned by Minimize.
var (
	ErrTolerance       = errors.New("minimize: tolerance must be positive")
	ErrIterationLimit  = errors.New("minimize: negative iteration limit")
	ErrEvaluationLimit = errors.New("minimize: negative function evaluation limit")
	ErrMissingFunc     = errors.New("minimize: nil objective function")
)

// stallErrors are the errors of a method that end a run with MethodStall.
var stallErrors = []error{
	optimize.ErrLinesearcherFailure,
	optimize.ErrLinesearcherBound,
	optimize.ErrNoProgress,
	optimize.ErrNonDescentDirection,
}

func isStall(err error) bool {
	for _, e := range stallErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return false
}

const (
	DefaultTolerance     = 1e-8
	DefaultMaxIterations = 100
)

// Settings holds the termination criteria of Minimize.
type Settings struct {
	// Tolerance is the threshold at which
	// the minimization is considered
	// converged. Methods using the
	// gradient stop when
	//  |∇f(x)|_2 < Tolerance.
	// Other methods stop when the
	// decrease of f over a major
	// iteration is small relative to f:
	//  2|f_{k-1} - f_k| <= Tolerance*(|f_{k-1}| + |f_k|).
	// Tolerance must be positive.
	Tolerance float64

	// MaxIterations is the limit on the
	// number of major iterations. If it
	// is zero, the starting point is
	// returned after a single evaluation.
	MaxIterations int

	// MaxFuncEvaluations is the limit on
	// the number of function evaluations,
	// including the one at the starting
	// point. Zero means no limit.
	MaxFuncEvaluations int

	// Logger receives debug records about
	// the minimization. If it is nil,
	// nothing is logged.
	Logger *slog.Logger

	// Recorder, if not nil, is given the
	// starting point, every major
	// iteration and the final point.
	Recorder optimize.Recorder
}

// DefaultSettings returns the default settings for Minimize.
func DefaultSettings() *Settings {
	return &Settings{
		Tolerance:     DefaultTolerance,
		MaxIterations: DefaultMaxIterations,
	}
}

// Result holds the best point found by Minimize.
type Result struct {
	optimize.Result

	// Stall holds the reason for the
	// MethodStall status.
	Stall error
}

// tiny guards the relative function test when the minimum is zero.
const tiny = 1e-20

// Minimize searches for a local minimum of p.Func starting from x0. x0 is
// copied and never modified. p.Hess is not used. If p.Status is not nil, it
// is consulted after every evaluation and ends the run when it reports a
// status other than optimize.NotTerminated.
//
// If method is nil, BFGS is used when p.Grad is not nil and Powell otherwise.
// If settings is nil, DefaultSettings is used.
//
// Invalid settings and problems are reported as errors before any iteration.
// Reaching a limit or a stall of the method is not an error; it is reported
// in Result.Status and Result holds the best point found.
func Minimize(p optimize.Problem, x0 []float64, settings *Settings, method Method) (*Result, error) {
	startTime := time.Now()

	dim := len(x0)
	if dim == 0 {
		return nil, optimize.ErrZeroDimensional
	}
	if p.Func == nil {
		return nil, ErrMissingFunc
	}
	if method == nil {
		if p.Grad != nil {
			method = &BFGS{}
		} else {
			method = &Powell{}
		}
	}
	needGrad := method.NeedsGradient()
	if needGrad && p.Grad == nil {
		return nil, fmt.Errorf("%w: %T", optimize.ErrMissingGrad, method)
	}
	if settings == nil {
		settings = DefaultSettings()
	}
	switch {
	case !(settings.Tolerance > 0):
		return nil, fmt.Errorf("%w: %v", ErrTolerance, settings.Tolerance)
	case settings.MaxIterations < 0:
		return nil, fmt.Errorf("%w: %v", ErrIterationLimit, settings.MaxIterations)
	case settings.MaxFuncEvaluations < 0:
		return nil, fmt.Errorf("%w: %v", ErrEvaluationLimit, settings.MaxFuncEvaluations)
	}
	recorder := settings.Recorder
	if recorder != nil {
		if err := recorder.Init(); err != nil {
			return nil, err
		}
	}

	logger := settings.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if l, ok := method.(loggable); ok {
		l.setLogger(logger)
	}
	if r, ok := method.(releaser); ok {
		defer r.release()
	}

	var stats optimize.Stats
	loc := &optimize.Location{X: make([]float64, dim)}
	copy(loc.X, x0)
	op := optimize.FuncEvaluation
	if needGrad {
		loc.Gradient = make([]float64, dim)
		op |= optimize.GradEvaluation
	}
	evaluate(p, loc, op, &stats)

	optLoc := &optimize.Location{}
	copyLocation(optLoc, loc)

	status, err := checkEvaluation(p, settings, &stats)
	if err == nil && recorder != nil {
		stats.Runtime = time.Since(startTime)
		err = recorder.Record(optLoc, optimize.InitIteration, &stats)
	}
	if err == nil {
		switch {
		case needGrad && floats.Norm(loc.Gradient, 2) < settings.Tolerance:
			status = optimize.GradientThreshold
		case status != optimize.NotTerminated:
		case settings.MaxIterations == 0:
			status = optimize.IterationLimit
		default:
			status, err = minimize(p, method, settings, loc, optLoc, &stats, startTime, logger)
		}
	}

	var stall error
	switch {
	case isStall(err):
		status = MethodStall
		stall = err
		err = nil
		logger.Debug("minimize stall", "reason", stall)
	case err != nil && status == optimize.NotTerminated:
		status = optimize.Failure
	}

	stats.Runtime = time.Since(startTime)
	if recorder != nil && err == nil {
		err = recorder.Record(optLoc, optimize.PostIteration, &stats)
	}
	logger.Debug("minimize done",
		"status", status,
		"iterations", stats.MajorIterations,
		"funcevals", stats.FuncEvaluations,
		"gradevals", stats.GradEvaluations,
		"f", optLoc.F,
		"runtime", stats.Runtime,
	)
	return &Result{
		Result: optimize.Result{
			Location: *optLoc,
			Stats:    stats,
			Status:   status,
		},
		Stall: stall,
	}, err
}

func minimize(p optimize.Problem, method Method, settings *Settings, loc, optLoc *optimize.Location, stats *optimize.Stats, startTime time.Time, logger *slog.Logger) (optimize.Status, error) {
	needGrad := method.NeedsGradient()
	fPrev := loc.F

	op, err := method.Init(loc)
	for {
		if err != nil {
			return optimize.NotTerminated, err
		}

		switch {
		case op == optimize.NoOperation:

		case op == optimize.MajorIteration:
			stats.MajorIterations++
			copyLocation(optLoc, loc)
			if settings.Recorder != nil {
				stats.Runtime = time.Since(startTime)
				if err := settings.Recorder.Record(optLoc, optimize.MajorIteration, stats); err != nil {
					return optimize.Failure, err
				}
			}
			if needGrad {
				gnorm := floats.Norm(loc.Gradient, 2)
				logger.Debug("minimize iteration", "iteration", stats.MajorIterations, "f", loc.F, "gradnorm", gnorm)
				if gnorm < settings.Tolerance {
					return optimize.GradientThreshold, nil
				}
			} else {
				logger.Debug("minimize iteration", "iteration", stats.MajorIterations, "f", loc.F)
				if 2*math.Abs(fPrev-loc.F) <= settings.Tolerance*(math.Abs(fPrev)+math.Abs(loc.F))+tiny {
					return optimize.FunctionConvergence, nil
				}
			}
			fPrev = loc.F
			if stats.MajorIterations == settings.MaxIterations {
				return optimize.IterationLimit, nil
			}

		case op&^(optimize.FuncEvaluation|optimize.GradEvaluation) == 0:
			if op&optimize.GradEvaluation != 0 && !needGrad {
				panic("minimize: gradient evaluation requested by a method that does not need it")
			}
			evaluate(p, loc, op, stats)
			if status, err := checkEvaluation(p, settings, stats); status != optimize.NotTerminated || err != nil {
				return status, err
			}

		default:
			panic(fmt.Sprintf("minimize: invalid operation %v", op))
		}

		op, err = method.Iterate(loc)
	}
}

// evaluate carries out the evaluations in op at loc.X.
func evaluate(p optimize.Problem, loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) {
	if op&optimize.FuncEvaluation != 0 {
		loc.F = p.Func(loc.X)
		stats.FuncEvaluations++
	}
	if op&optimize.GradEvaluation != 0 {
		p.Grad(loc.Gradient, loc.X)
		stats.GradEvaluations++
	}
}

// checkEvaluation checks the status of the problem and the evaluation limit
// after an evaluation.
func checkEvaluation(p optimize.Problem, settings *Settings, stats *optimize.Stats) (optimize.Status, error) {
	if p.Status != nil {
		if status, err := p.Status(); status != optimize.NotTerminated || err != nil {
			return status, err
		}
	}
	if settings.MaxFuncEvaluations > 0 && stats.FuncEvaluations >= settings.MaxFuncEvaluations {
		return optimize.FunctionEvaluationLimit, nil
	}
	return optimize.NotTerminated, nil
}

func copyLocation(dst, src *optimize.Location) {
	dst.X = resize(dst.X, len(src.X))
	copy(dst.X, src.X)
	dst.F = src.F
	if src.Gradient == nil {
		dst.Gradient = nil
		return
	}
	dst.Gradient = resize(dst.Gradient, len(src.Gradient))
	copy(dst.Gradient, src.Gradient)
}

// resize returns a slice of length n reusing the backing array of v when it
// is large enough. The contents are not cleared.
func resize(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}
