// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// BiCGSTAB implements the BiConjugate Gradient STABilized iterative method with
// preconditioning for solving the system of linear equations
//  Ax = b,
// where A is a non-symmetric matrix. For symmetric positive definite systems
// use CG or PCG.
//
// An iteration consists of a BiCG half step along p followed by a minimal
// residual step along s. Convergence is checked after both of them.
//
// BiCGSTAB needs MatVec and PSolve matrix operations.
type BiCGSTAB struct {
	// Recompute is the number of iterations
	// after which the residual is computed
	// as b - A*x instead of being updated.
	// If it is zero, DefaultRecompute is
	// used.
	Recompute int

	first  bool
	resume int
	k      int

	rho, rhoPrev float64
	alpha        float64
	omega        float64

	rt   []float64 // Shadow residual r~.
	p    []float64
	phat []float64 // M^{-1} p.
	v    []float64 // A phat.
	s    []float64
	shat []float64 // M^{-1} s.
	t    []float64 // A shat.
}

// Init implements the Method interface.
func (b *BiCGSTAB) Init(dim int) {
	if dim <= 0 {
		panic("linsolve: dimension not positive")
	}

	b.rt = reuse(b.rt, dim)
	b.p = reuse(b.p, dim)
	b.phat = reuse(b.phat, dim)
	b.v = reuse(b.v, dim)
	b.s = reuse(b.s, dim)
	b.shat = reuse(b.shat, dim)
	b.t = reuse(b.t, dim)
	b.first = true
	b.k = 0
	b.resume = 1
}

// Iterate implements the Method interface.
func (b *BiCGSTAB) Iterate(ctx *Context) (Operation, error) {
	switch b.resume {
	case 1:
		r := ctx.Residual
		if b.first {
			copy(b.rt, r) // r~ = r_0
		}
		b.rho = floats.Dot(b.rt, r) // ρ_i = r~ · r_i
		if math.Abs(b.rho) < dlamchE*dlamchE {
			return b.breakdown("rho", b.rho)
		}
		if b.first {
			copy(b.p, r) // p_0 = r_0
		} else {
			beta := (b.rho / b.rhoPrev) * (b.alpha / b.omega)
			floats.AddScaled(b.p, -b.omega, b.v)  // p_i = p_{i-1} - ω v_{i-1}
			floats.AddScaledTo(b.p, r, beta, b.p) // p_i = r_i + β p_i
		}
		ctx.Src = b.p
		ctx.Dst = b.phat
		b.resume = 2
		return PSolve, nil
		// Solve M phat = p_i.
	case 2:
		ctx.Src = b.phat
		ctx.Dst = b.v
		b.resume = 3
		return MatVec, nil
		// Compute v_i = A phat.
	case 3:
		rtv := floats.Dot(b.rt, b.v)
		if math.Abs(rtv) < dlamchE*dlamchE {
			return b.breakdown("r~·v", rtv)
		}
		b.alpha = b.rho / rtv
		// The half step residual s = r - α v
		// is kept in ctx.Residual so that
		// convergence can be checked.
		floats.AddScaled(ctx.Residual, -b.alpha, b.v)
		copy(b.s, ctx.Residual)
		return b.checkResidual(ctx, 4)
	case 4:
		if ctx.Converged {
			floats.AddScaled(ctx.X, b.alpha, b.phat) // x_{i+1} = x_i + α phat
			b.resume = 0
			return EndIteration, nil
		}
		ctx.Src = b.s
		ctx.Dst = b.shat
		b.resume = 5
		return PSolve, nil
		// Solve M shat = s.
	case 5:
		ctx.Src = b.shat
		ctx.Dst = b.t
		b.resume = 6
		return MatVec, nil
		// Compute t = A shat.
	case 6:
		tt := floats.Dot(b.t, b.t)
		if tt == 0 {
			return b.breakdown("t·t", tt)
		}
		b.omega = floats.Dot(b.t, b.s) / tt      // ω = t·s / t·t
		floats.AddScaled(ctx.X, b.alpha, b.phat) // x_{i+1} = x_i + α phat + ω shat
		floats.AddScaled(ctx.X, b.omega, b.shat)
		b.k++
		if recomputeDue(b.k, b.Recompute) {
			ctx.Src = nil
			ctx.Dst = nil
			b.resume = 7
			return ComputeResidual, nil
		}
		floats.AddScaled(ctx.Residual, -b.omega, b.t) // r_{i+1} = s - ω t
		fallthrough
	case 7:
		return b.checkResidual(ctx, 8)
	case 8:
		if ctx.Converged {
			b.resume = 0
			return EndIteration, nil
		}
		if math.Abs(b.omega) < dlamchE*dlamchE {
			return b.breakdown("omega", b.omega)
		}
		b.rhoPrev = b.rho
		b.first = false
		b.resume = 1
		return EndIteration, nil

	default:
		panic("linsolve: BiCGSTAB.Init not called")
	}
}

func (b *BiCGSTAB) checkResidual(ctx *Context, next int) (Operation, error) {
	ctx.Src = nil
	ctx.Dst = nil
	ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
	ctx.Converged = false
	b.resume = next
	return CheckResidualNorm, nil
}

// breakdown stops the iteration. Calling Iterate again without Init panics.
func (b *BiCGSTAB) breakdown(quantity string, value float64) (Operation, error) {
	b.resume = 0
	return NoOperation, &BreakdownError{Method: "BiCGSTAB", Reason: quantity + " vanished", Value: value}
}

func (b *BiCGSTAB) release() {
	b.rt = nil
	b.p = nil
	b.phat = nil
	b.v = nil
	b.s = nil
	b.shat = nil
	b.t = nil
}
