// Copyright ©2014 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minimize

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	defaultIterationRestartFactor = 6
	defaultAngleRestartThreshold  = -0.9
	cgCurvatureFactor             = 0.1
)

// CG implements the nonlinear conjugate gradient method. It stores only a
// few vectors of length n and is suitable for problems where the n×n matrix
// of BFGS would be too large. The search directions are computed by
// optimize.CG.
//
// CG restarts along the steepest descent direction when the new direction
// is not a descent direction, when β is zero, when consecutive gradients are
// nearly parallel and after every IterationRestartFactor*n iterations.
type CG struct {
	// Linesearcher selects the step along the
	// search direction. If it is nil, an
	// optimize.MoreThuente line search with
	// CurvatureFactor 0.1 is used.
	Linesearcher optimize.Linesearcher

	// Variant computes β. If it is nil,
	// optimize.PolakRibierePolyak is used.
	Variant optimize.CGVariant

	// InitialStep estimates the initial step
	// of every line search. If it is nil,
	// optimize.FirstOrderStepSize is used.
	InitialStep optimize.StepSizer

	// IterationRestartFactor determines the
	// period of restarts as a multiple of
	// the dimension. Zero selects 6.
	IterationRestartFactor float64

	// AngleRestartThreshold is the cosine of
	// the angle between consecutive
	// gradients below which CG restarts.
	// It must be in [-1, 0). Zero selects
	// -0.9.
	AngleRestartThreshold float64

	ls *Linesearch
}

// Init implements the Method interface.
func (cg *CG) Init(loc *optimize.Location) (optimize.Operation, error) {
	if cg.IterationRestartFactor < 0 {
		panic("cg: IterationRestartFactor is negative")
	}
	if cg.AngleRestartThreshold < -1 || cg.AngleRestartThreshold > 0 {
		panic("cg: AngleRestartThreshold not in [-1, 0]")
	}
	dir := &optimize.CG{
		Variant:                cg.Variant,
		InitialStep:            cg.InitialStep,
		IterationRestartFactor: cg.IterationRestartFactor,
		AngleRestartThreshold:  cg.AngleRestartThreshold,
	}
	if dir.Variant == nil {
		dir.Variant = &optimize.PolakRibierePolyak{}
	}
	if dir.InitialStep == nil {
		dir.InitialStep = &optimize.FirstOrderStepSize{}
	}
	if dir.IterationRestartFactor == 0 {
		dir.IterationRestartFactor = defaultIterationRestartFactor
	}
	if dir.AngleRestartThreshold == 0 {
		dir.AngleRestartThreshold = defaultAngleRestartThreshold
	}
	searcher := cg.Linesearcher
	if searcher == nil {
		searcher = &optimize.MoreThuente{CurvatureFactor: cgCurvatureFactor}
	}
	cg.ls = &Linesearch{NextDirectioner: dir, Linesearcher: searcher}
	return cg.ls.Init(loc)
}

// Iterate implements the Method interface.
func (cg *CG) Iterate(loc *optimize.Location) (optimize.Operation, error) {
	if cg.ls == nil {
		panic("cg: Init not called")
	}
	return cg.ls.Iterate(loc)
}

// NeedsGradient implements the Method interface.
func (*CG) NeedsGradient() bool {
	return true
}

func (cg *CG) release() {
	cg.ls = nil
}

// LiuStorey implements the Liu-Storey variant of the CG method that computes
// the scaling parameter β_k according to the formula
//  β_k = ∇f_{k+1}·(∇f_{k+1} - ∇f_k) / (-d_k·∇f_k).
// β is zero, and CG restarts, when the denominator is not positive or β is
// not finite.
type LiuStorey struct{}

// Init implements the optimize.CGVariant interface.
func (*LiuStorey) Init(loc *optimize.Location) {}

// Beta implements the optimize.CGVariant interface.
func (*LiuStorey) Beta(grad, gradPrev, dirPrev []float64) float64 {
	denom := -floats.Dot(dirPrev, gradPrev)
	if !(denom > 0) {
		return 0
	}
	beta := (floats.Dot(grad, grad) - floats.Dot(grad, gradPrev)) / denom
	if math.IsNaN(beta) || math.IsInf(beta, 0) {
		return 0
	}
	return beta
}
