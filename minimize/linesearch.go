// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minimize

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// defaultMaximumStep is the largest step of a MoreThuente line search with
// MaximumStep zero.
const defaultMaximumStep = 1e20

// Linesearch is a Method that minimizes the function by successive line
// searches. In every major iteration NextDirectioner supplies a descent
// direction with an initial step and Linesearcher finds the step along it.
// Linesearch is the base of BFGS, DFP and CG and can be used directly with
// any optimize.NextDirectioner.
//
// The initial step is limited to the step bounds of Linesearcher, so the
// first trial point of every search honors them.
type Linesearch struct {
	NextDirectioner optimize.NextDirectioner
	// If Linesearcher is nil, optimize.MoreThuente
	// with default parameters is used.
	Linesearcher optimize.Linesearcher

	method *optimize.LinesearchMethod
}

// Init implements the Method interface.
func (l *Linesearch) Init(loc *optimize.Location) (optimize.Operation, error) {
	if l.NextDirectioner == nil {
		panic("minimize: Linesearch without NextDirectioner")
	}
	if l.Linesearcher == nil {
		l.Linesearcher = &optimize.MoreThuente{}
	}
	lo, hi := stepBounds(l.Linesearcher)
	l.method = &optimize.LinesearchMethod{
		NextDirectioner: boundedDirectioner{NextDirectioner: l.NextDirectioner, lo: lo, hi: hi},
		Linesearcher:    l.Linesearcher,
	}
	return l.method.Init(loc)
}

// Iterate implements the Method interface.
func (l *Linesearch) Iterate(loc *optimize.Location) (optimize.Operation, error) {
	if l.method == nil {
		panic("minimize: Linesearch.Init not called")
	}
	return l.method.Iterate(loc)
}

// NeedsGradient implements the Method interface.
func (*Linesearch) NeedsGradient() bool {
	return true
}

func (l *Linesearch) release() {
	l.method = nil
	if r, ok := l.NextDirectioner.(releaser); ok {
		r.release()
	}
}

// stepBounds returns the interval of steps that ls may accept.
func stepBounds(ls optimize.Linesearcher) (lo, hi float64) {
	if mt, ok := ls.(*optimize.MoreThuente); ok {
		hi = mt.MaximumStep
		if hi == 0 {
			hi = defaultMaximumStep
		}
		return mt.MinimumStep, hi
	}
	return 0, math.Inf(1)
}

// boundedDirectioner clamps the initial steps of a NextDirectioner to
// [lo, hi].
type boundedDirectioner struct {
	optimize.NextDirectioner
	lo, hi float64
}

func (b boundedDirectioner) InitDirection(loc *optimize.Location, dir []float64) float64 {
	return b.clamp(b.NextDirectioner.InitDirection(loc, dir))
}

func (b boundedDirectioner) NextDirection(loc *optimize.Location, dir []float64) float64 {
	return b.clamp(b.NextDirectioner.NextDirection(loc, dir))
}

func (b boundedDirectioner) clamp(step float64) float64 {
	return math.Max(b.lo, math.Min(step, b.hi))
}
