// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import "gonum.org/v1/gonum/floats"

// CG implements the Conjugate Gradient iterative method for solving the
// system of linear equations
//  Ax = b,
// where A is a symmetric positive definite matrix. In exact arithmetic CG
// finds the solution in at most dim iterations.
//
// CG needs the MatVec matrix operation. For a preconditioned variant use PCG.
type CG struct {
	// Recompute is the number of iterations
	// after which the residual is computed
	// as b - A*x instead of being updated.
	// If it is zero, DefaultRecompute is
	// used.
	Recompute int

	first        bool
	resume       int
	k            int
	rho, rhoPrev float64

	p  []float64
	ap []float64
}

// Init implements the Method interface.
func (cg *CG) Init(dim int) {
	if dim <= 0 {
		panic("linsolve: dimension not positive")
	}

	cg.p = reuse(cg.p, dim)
	cg.ap = reuse(cg.ap, dim)
	cg.first = true
	cg.k = 0
	cg.resume = 1
}

// Iterate implements the Method interface.
func (cg *CG) Iterate(ctx *Context) (Operation, error) {
	switch cg.resume {
	case 1:
		if cg.first {
			copy(cg.p, ctx.Residual)                        // p_0 = r_0
			cg.rho = floats.Dot(ctx.Residual, ctx.Residual) // δ_0 = r_0 · r_0
		}
		ctx.Src = cg.p
		ctx.Dst = cg.ap
		cg.resume = 2
		return MatVec, nil
		// Compute Ap_i.
	case 2:
		pAp := floats.Dot(cg.p, cg.ap)
		if !(pAp > 0) {
			cg.resume = 0 // Calling Iterate again without Init will panic.
			return NoOperation, &BreakdownError{Method: "CG", Reason: "non-positive curvature", Value: pAp}
		}
		alpha := cg.rho / pAp                // α = δ_i / (p_i · Ap_i)
		floats.AddScaled(ctx.X, alpha, cg.p) // x_{i+1} = x_i + α p_i
		cg.k++
		if recomputeDue(cg.k, cg.Recompute) {
			ctx.Src = nil
			ctx.Dst = nil
			cg.resume = 3
			return ComputeResidual, nil
		}
		floats.AddScaled(ctx.Residual, -alpha, cg.ap) // r_{i+1} = r_i - α Ap_i
		fallthrough
	case 3:
		cg.rhoPrev = cg.rho
		cg.rho = floats.Dot(ctx.Residual, ctx.Residual) // δ_{i+1} = r_{i+1} · r_{i+1}
		ctx.Src = nil
		ctx.Dst = nil
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		ctx.Converged = false
		cg.resume = 4
		return CheckResidualNorm, nil
	case 4:
		if ctx.Converged {
			cg.resume = 0
			return EndIteration, nil
		}
		beta := cg.rho / cg.rhoPrev                        // β = δ_{i+1} / δ_i
		floats.AddScaledTo(cg.p, ctx.Residual, beta, cg.p) // p_{i+1} = r_{i+1} + β p_i
		cg.first = false
		cg.resume = 1
		return EndIteration, nil

	default:
		panic("linsolve: CG.Init not called")
	}
}

func (cg *CG) release() {
	cg.p = nil
	cg.ap = nil
}
