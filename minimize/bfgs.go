// Copyright ©2014 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minimize

import (
	"log/slog"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

// BFGS implements the Broyden–Fletcher–Goldfarb–Shanno quasi-Newton method.
// It keeps an approximation H of the inverse Hessian, searches along -H*∇f
// and updates H after every step using the change in the location s and in
// the gradient y:
//  H_{k+1} = H_k + (sᵀy + yᵀH_k y)/(sᵀy)² s sᵀ - (H_k y sᵀ + s yᵀH_k)/sᵀy.
// The update is skipped when sᵀy <= 0 because H would lose positive
// definiteness.
//
// BFGS stores an n×n matrix. For large problems CG may be more suitable.
type BFGS struct {
	// Linesearcher selects the step along the
	// search direction. If it is nil, an
	// optimize.MoreThuente line search with
	// DecreaseFactor 1e-4 is used.
	Linesearcher optimize.Linesearcher

	logger *slog.Logger
	ls     *Linesearch
	qn     *quasiNewton
}

// Init implements the Method interface.
func (b *BFGS) Init(loc *optimize.Location) (optimize.Operation, error) {
	b.qn = &quasiNewton{name: "BFGS", update: bfgsUpdate, logger: b.logger}
	b.ls = newQuasiNewtonSearch(b.qn, b.Linesearcher)
	return b.ls.Init(loc)
}

// Iterate implements the Method interface.
func (b *BFGS) Iterate(loc *optimize.Location) (optimize.Operation, error) {
	if b.ls == nil {
		panic("bfgs: Init not called")
	}
	return b.ls.Iterate(loc)
}

// NeedsGradient implements the Method interface.
func (*BFGS) NeedsGradient() bool {
	return true
}

func (b *BFGS) setLogger(l *slog.Logger) {
	b.logger = l
}

func (b *BFGS) release() {
	b.ls = nil
	b.qn = nil
}

// DFP implements the Davidon–Fletcher–Powell quasi-Newton method. It differs
// from BFGS only in the update of the inverse Hessian approximation
//  H_{k+1} = H_k + s sᵀ/sᵀy - H_k y yᵀH_k/yᵀH_k y,
// which makes it more sensitive to inexact line searches. The update is
// skipped when sᵀy <= 0 or yᵀH_k y <= 0.
type DFP struct {
	// Linesearcher selects the step along the
	// search direction. If it is nil, an
	// optimize.MoreThuente line search with
	// DecreaseFactor 1e-4 is used.
	Linesearcher optimize.Linesearcher

	logger *slog.Logger
	ls     *Linesearch
	qn     *quasiNewton
}

// Init implements the Method interface.
func (d *DFP) Init(loc *optimize.Location) (optimize.Operation, error) {
	d.qn = &quasiNewton{name: "DFP", update: dfpUpdate, logger: d.logger}
	d.ls = newQuasiNewtonSearch(d.qn, d.Linesearcher)
	return d.ls.Init(loc)
}

// Iterate implements the Method interface.
func (d *DFP) Iterate(loc *optimize.Location) (optimize.Operation, error) {
	if d.ls == nil {
		panic("dfp: Init not called")
	}
	return d.ls.Iterate(loc)
}

// NeedsGradient implements the Method interface.
func (*DFP) NeedsGradient() bool {
	return true
}

func (d *DFP) setLogger(l *slog.Logger) {
	d.logger = l
}

func (d *DFP) release() {
	d.ls = nil
	d.qn = nil
}

func newQuasiNewtonSearch(qn *quasiNewton, searcher optimize.Linesearcher) *Linesearch {
	if searcher == nil {
		searcher = &optimize.MoreThuente{DecreaseFactor: 1e-4}
	}
	return &Linesearch{NextDirectioner: qn, Linesearcher: searcher}
}

// quasiNewton is the NextDirectioner shared by BFGS and DFP. The inverse
// Hessian approximation is stored row-major in the upper triangle of h.
type quasiNewton struct {
	name   string
	update func(n int, h, s, hy []float64, sy, yhy float64) bool
	logger *slog.Logger

	dim   int
	x     []float64 // Location of the previous iterate.
	grad  []float64 // Gradient at the previous iterate.
	s, y  []float64
	hy    []float64
	h     []float64
	first bool // H has not been scaled yet.
}

func (qn *quasiNewton) InitDirection(loc *optimize.Location, dir []float64) (step float64) {
	dim := len(loc.X)
	qn.dim = dim
	qn.x = resize(qn.x, dim)
	qn.grad = resize(qn.grad, dim)
	qn.s = resize(qn.s, dim)
	qn.y = resize(qn.y, dim)
	qn.hy = resize(qn.hy, dim)
	qn.h = resize(qn.h, dim*dim)
	copy(qn.x, loc.X)
	copy(qn.grad, loc.Gradient)
	qn.setIdentity()

	// The first step has length one.
	floats.ScaleTo(dir, -1, loc.Gradient)
	return initialStep(loc.Gradient)
}

func (qn *quasiNewton) NextDirection(loc *optimize.Location, dir []float64) (step float64) {
	n := qn.dim
	floats.SubTo(qn.s, loc.X, qn.x)
	floats.SubTo(qn.y, loc.Gradient, qn.grad)
	copy(qn.x, loc.X)
	copy(qn.grad, loc.Gradient)

	bi := blas64.Implementation()
	sy := floats.Dot(qn.s, qn.y)
	if sy > 0 {
		if qn.first {
			// Scale H_0 so that its size matches the curvature along s.
			qn.first = false
			scale := sy / floats.Dot(qn.y, qn.y)
			for i := 0; i < n; i++ {
				qn.h[i*n+i] = scale
			}
		}
		bi.Dsymv(blas.Upper, n, 1, qn.h, n, qn.y, 1, 0, qn.hy, 1)
		yhy := floats.Dot(qn.y, qn.hy)
		if !qn.update(n, qn.h, qn.s, qn.hy, sy, yhy) {
			qn.log("quasi-Newton update skipped", "yHy", yhy)
		}
	} else {
		qn.log("quasi-Newton update skipped", "sy", sy)
	}

	bi.Dsymv(blas.Upper, n, -1, qn.h, n, loc.Gradient, 1, 0, dir, 1)
	if !(floats.Dot(dir, loc.Gradient) < 0) {
		// H is no longer positive definite.
		qn.log("quasi-Newton reset")
		qn.setIdentity()
		floats.ScaleTo(dir, -1, loc.Gradient)
		return initialStep(loc.Gradient)
	}
	return 1
}

func (qn *quasiNewton) setIdentity() {
	n := qn.dim
	for i := range qn.h {
		qn.h[i] = 0
	}
	for i := 0; i < n; i++ {
		qn.h[i*n+i] = 1
	}
	qn.first = true
}

func (qn *quasiNewton) log(msg string, args ...any) {
	if qn.logger != nil {
		qn.logger.Debug(msg, append([]any{"method", qn.name}, args...)...)
	}
}

func bfgsUpdate(n int, h, s, hy []float64, sy, yhy float64) bool {
	bi := blas64.Implementation()
	bi.Dsyr(blas.Upper, n, (sy+yhy)/(sy*sy), s, 1, h, n)
	bi.Dsyr2(blas.Upper, n, -1/sy, hy, 1, s, 1, h, n)
	return true
}

func dfpUpdate(n int, h, s, hy []float64, sy, yhy float64) bool {
	if !(yhy > 0) {
		return false
	}
	bi := blas64.Implementation()
	bi.Dsyr(blas.Upper, n, 1/sy, s, 1, h, n)
	bi.Dsyr(blas.Upper, n, -1/yhy, hy, 1, h, n)
	return true
}

// initialStep returns the step that moves a unit distance along the
// gradient g.
func initialStep(g []float64) float64 {
	norm := floats.Norm(g, 2)
	if norm == 0 || math.IsInf(1/norm, 1) {
		return 1
	}
	return 1 / norm
}
