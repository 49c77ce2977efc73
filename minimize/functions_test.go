// Copyright ©2015 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minimize

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// quadratic is the function
//  f(x) = (x-c)ᵀ A (x-c) + offset
// with a symmetric positive definite A. Its minimum is offset at c.
type quadratic struct {
	a      *mat.SymDense
	c      []float64
	offset float64
}

func newQuadratic(c []float64, offset float64) quadratic {
	a := mat.NewSymDense(3, []float64{
		2, 0.5, 0,
		0.5, 2, 0.5,
		0, 0.5, 2,
	})
	if c == nil {
		c = make([]float64, 3)
	}
	return quadratic{a: a, c: c, offset: offset}
}

func (q quadratic) Func(x []float64) float64 {
	d := make([]float64, len(x))
	floats.SubTo(d, x, q.c)
	dv := mat.NewVecDense(len(d), d)
	return mat.Inner(dv, q.a, dv) + q.offset
}

func (q quadratic) Grad(grad, x []float64) {
	d := make([]float64, len(x))
	floats.SubTo(d, x, q.c)
	g := mat.NewVecDense(len(grad), grad)
	g.MulVec(q.a, mat.NewVecDense(len(d), d))
	floats.Scale(2, grad)
}

// rosenbrock is the function
//  f(x, y) = (1-x)^2 + 100(y-x^2)^2
// with the global minimum 0 at (1, 1).
type rosenbrock struct{}

func (rosenbrock) Func(x []float64) float64 {
	t0 := x[1] - x[0]*x[0]
	t1 := 1 - x[0]
	return 100*t0*t0 + t1*t1
}

func (rosenbrock) Grad(grad, x []float64) {
	t0 := x[1] - x[0]*x[0]
	t1 := 1 - x[0]
	grad[0] = -400*t0*x[0] - 2*t1
	grad[1] = 200 * t0
}

// norm2 is the Euclidean norm, which is not differentiable at its minimum.
type norm2 struct{}

func (norm2) Func(x []float64) float64 {
	return floats.Norm(x, 2)
}

func (norm2) Grad(grad, x []float64) {
	n := floats.Norm(x, 2)
	if n == 0 {
		for i := range grad {
			grad[i] = 0
		}
		return
	}
	floats.ScaleTo(grad, 1/n, x)
}

// counted wraps a problem and counts the calls of its functions.
type counted struct {
	p                    optimize.Problem
	funcCalls, gradCalls int
}

func (c *counted) problem() optimize.Problem {
	return optimize.Problem{
		Func: func(x []float64) float64 {
			c.funcCalls++
			return c.p.Func(x)
		},
		Grad: func(grad, x []float64) {
			c.gradCalls++
			c.p.Grad(grad, x)
		},
	}
}
