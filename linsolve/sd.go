// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import "gonum.org/v1/gonum/floats"

// SteepestDescent implements the method of steepest descent for solving the
// system of linear equations
//  Ax = b,
// where A is a symmetric positive definite matrix. Each step minimizes the
// A-norm of the error along the current residual.
//
// SteepestDescent needs the MatVec matrix operation.
type SteepestDescent struct {
	// Recompute is the number of iterations
	// after which the residual is computed
	// as b - A*x instead of being updated.
	// If it is zero, DefaultRecompute is
	// used.
	Recompute int

	resume int
	k      int

	ar []float64
}

// Init implements the Method interface.
func (sd *SteepestDescent) Init(dim int) {
	if dim <= 0 {
		panic("linsolve: dimension not positive")
	}

	sd.ar = reuse(sd.ar, dim)
	sd.k = 0
	sd.resume = 1
}

// Iterate implements the Method interface.
func (sd *SteepestDescent) Iterate(ctx *Context) (Operation, error) {
	switch sd.resume {
	case 1:
		ctx.Src = ctx.Residual
		ctx.Dst = sd.ar
		sd.resume = 2
		return MatVec, nil
		// Compute Ar_i.
	case 2:
		r := ctx.Residual
		delta := floats.Dot(r, r)   // δ = r_i · r_i
		rAr := floats.Dot(r, sd.ar) // r_i · Ar_i
		if !(rAr > 0) {
			sd.resume = 0 // Calling Iterate again without Init will panic.
			return NoOperation, &BreakdownError{Method: "SteepestDescent", Reason: "non-positive curvature", Value: rAr}
		}
		alpha := delta / rAr
		floats.AddScaled(ctx.X, alpha, r) // x_{i+1} = x_i + α r_i
		sd.k++
		if recomputeDue(sd.k, sd.Recompute) {
			ctx.Src = nil
			ctx.Dst = nil
			sd.resume = 3
			return ComputeResidual, nil
		}
		floats.AddScaled(r, -alpha, sd.ar) // r_{i+1} = r_i - α Ar_i
		fallthrough
	case 3:
		ctx.Src = nil
		ctx.Dst = nil
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		ctx.Converged = false
		sd.resume = 4
		return CheckResidualNorm, nil
	case 4:
		if ctx.Converged {
			sd.resume = 0
			return EndIteration, nil
		}
		sd.resume = 1
		return EndIteration, nil

	default:
		panic("linsolve: SteepestDescent.Init not called")
	}
}

func (sd *SteepestDescent) release() {
	sd.ar = nil
}
