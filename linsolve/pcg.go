// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import "gonum.org/v1/gonum/floats"

// PCG implements the preconditioned Conjugate Gradient iterative method for
// solving the system of linear equations
//  Ax = b,
// where A and the preconditioner M are symmetric positive definite. The
// updates of x and r are the same as in CG, the search directions are built
// from z = M^{-1} r.
//
// PCG needs the MatVec and PSolve matrix operations. With the identity
// preconditioner PCG produces the same iterates as CG.
type PCG struct {
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

	z  []float64
	p  []float64
	ap []float64
}

// Init implements the Method interface.
func (pcg *PCG) Init(dim int) {
	if dim <= 0 {
		panic("linsolve: dimension not positive")
	}

	pcg.z = reuse(pcg.z, dim)
	pcg.p = reuse(pcg.p, dim)
	pcg.ap = reuse(pcg.ap, dim)
	pcg.first = true
	pcg.k = 0
	pcg.resume = 1
}

// Iterate implements the Method interface.
func (pcg *PCG) Iterate(ctx *Context) (Operation, error) {
	switch pcg.resume {
	case 1:
		ctx.Src = ctx.Residual
		ctx.Dst = pcg.z
		pcg.resume = 2
		return PSolve, nil
		// Solve M z_i = r_i.
	case 2:
		pcg.rho = floats.Dot(ctx.Residual, pcg.z) // ρ_i = r_i · z_i
		if !(pcg.rho > 0) {
			pcg.resume = 0 // Calling Iterate again without Init will panic.
			return NoOperation, &BreakdownError{Method: "PCG", Reason: "preconditioner not positive definite", Value: pcg.rho}
		}
		if pcg.first {
			copy(pcg.p, pcg.z) // p_0 = z_0
		} else {
			beta := pcg.rho / pcg.rhoPrev                 // β = ρ_i / ρ_{i-1}
			floats.AddScaledTo(pcg.p, pcg.z, beta, pcg.p) // p_i = z_i + β p_{i-1}
		}
		ctx.Src = pcg.p
		ctx.Dst = pcg.ap
		pcg.resume = 3
		return MatVec, nil
		// Compute Ap_i.
	case 3:
		pAp := floats.Dot(pcg.p, pcg.ap)
		if !(pAp > 0) {
			pcg.resume = 0
			return NoOperation, &BreakdownError{Method: "PCG", Reason: "non-positive curvature", Value: pAp}
		}
		alpha := pcg.rho / pAp                // α = ρ_i / (p_i · Ap_i)
		floats.AddScaled(ctx.X, alpha, pcg.p) // x_{i+1} = x_i + α p_i
		pcg.k++
		if recomputeDue(pcg.k, pcg.Recompute) {
			ctx.Src = nil
			ctx.Dst = nil
			pcg.resume = 4
			return ComputeResidual, nil
		}
		floats.AddScaled(ctx.Residual, -alpha, pcg.ap) // r_{i+1} = r_i - α Ap_i
		fallthrough
	case 4:
		ctx.Src = nil
		ctx.Dst = nil
		ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
		ctx.Converged = false
		pcg.resume = 5
		return CheckResidualNorm, nil
	case 5:
		if ctx.Converged {
			pcg.resume = 0
			return EndIteration, nil
		}
		pcg.rhoPrev = pcg.rho
		pcg.first = false
		pcg.resume = 1
		return EndIteration, nil

	default:
		panic("linsolve: PCG.Init not called")
	}
}

func (pcg *PCG) release() {
	pcg.z = nil
	pcg.p = nil
	pcg.ap = nil
}
