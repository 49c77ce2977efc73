// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minimize

import (
	"log/slog"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
)

const (
	powellLine = iota + 1
	powellExtrapolate
	powellReplace
	powellMajor
)

// Powell implements Powell's direction set method. It uses only function
// values and never evaluates the gradient.
//
// A major iteration minimizes f along each of n directions in turn, starting
// from the coordinate axes. The net displacement Δ of the cycle then replaces
// the direction along which f decreased the most, unless the extrapolated
// point x + Δ indicates that the direction set would become linearly
// dependent. The one-dimensional minimizations bracket a minimum and refine
// it by Brent's method.
type Powell struct {
	logger *slog.Logger

	stage int
	dim   int
	dirs  [][]float64
	i     int // Index of the current direction.

	x      []float64 // Current point.
	f      float64
	start  []float64 // Point at the start of the cycle.
	fStart float64
	delta  []float64 // Net displacement of the cycle.

	base  []float64 // Starting point of the line minimization.
	dir   []float64
	fBase float64

	big     int     // Direction with the largest decrease.
	bigDecr float64 // The largest decrease.

	lm lineMinimizer
}

// Init implements the Method interface.
func (p *Powell) Init(loc *optimize.Location) (optimize.Operation, error) {
	dim := len(loc.X)
	p.dim = dim
	if len(p.dirs) != dim {
		p.dirs = make([][]float64, dim)
	}
	for i := range p.dirs {
		p.dirs[i] = resize(p.dirs[i], dim)
		for j := range p.dirs[i] {
			p.dirs[i][j] = 0
		}
		p.dirs[i][i] = 1
	}
	p.x = resize(p.x, dim)
	p.start = resize(p.start, dim)
	p.delta = resize(p.delta, dim)
	p.base = resize(p.base, dim)
	copy(p.x, loc.X)
	p.f = loc.F
	copy(p.start, loc.X)
	return p.startCycle(loc), nil
}

// Iterate implements the Method interface.
func (p *Powell) Iterate(loc *optimize.Location) (optimize.Operation, error) {
	switch p.stage {
	case powellLine:
		if !p.lineSearch(loc) {
			return optimize.FuncEvaluation, nil
		}
		if decr := p.fBase - p.f; decr > p.bigDecr {
			p.big, p.bigDecr = p.i, decr
		}
		p.i++
		if p.i < p.dim {
			return p.startLine(loc, p.dirs[p.i]), nil
		}

		// Evaluate f at the extrapolated point 2*x - start.
		floats.SubTo(p.delta, p.x, p.start)
		floats.AddScaledTo(loc.X, p.x, 1, p.delta)
		copy(p.start, p.x)
		p.stage = powellExtrapolate
		return optimize.FuncEvaluation, nil

	case powellExtrapolate:
		fStart, fEnd, fExt := p.fStart, p.f, loc.F
		if fExt < fStart {
			// Replace the direction only if Δ is a good direction
			// and the decrease is not mostly due to one direction.
			a := fStart - fEnd - p.bigDecr
			b := fStart - fExt
			t := 2*(fStart-2*fEnd+fExt)*a*a - p.bigDecr*b*b
			if t < 0 {
				p.stage = powellReplace
				return p.startLine(loc, p.delta), nil
			}
		}
		return p.major(loc), nil

	case powellReplace:
		if !p.lineSearch(loc) {
			return optimize.FuncEvaluation, nil
		}
		last := p.dim - 1
		p.dirs[p.big], p.dirs[last] = p.dirs[last], p.dirs[p.big]
		copy(p.dirs[last], p.delta)
		if p.logger != nil {
			p.logger.Debug("powell direction replaced", "index", p.big)
		}
		return p.major(loc), nil

	case powellMajor:
		return p.startCycle(loc), nil

	default:
		panic("powell: Init not called")
	}
}

// NeedsGradient implements the Method interface.
func (*Powell) NeedsGradient() bool {
	return false
}

func (p *Powell) setLogger(l *slog.Logger) {
	p.logger = l
}

func (p *Powell) release() {
	p.dirs = nil
	p.x = nil
	p.start = nil
	p.delta = nil
	p.base = nil
	p.dir = nil
}

func (p *Powell) startCycle(loc *optimize.Location) optimize.Operation {
	p.fStart = p.f
	p.i = 0
	p.big = 0
	p.bigDecr = 0
	p.stage = powellLine
	return p.startLine(loc, p.dirs[0])
}

// startLine starts the minimization along dir from the current point.
func (p *Powell) startLine(loc *optimize.Location, dir []float64) optimize.Operation {
	copy(p.base, p.x)
	p.fBase = p.f
	p.dir = dir
	t := p.lm.init(p.f)
	floats.AddScaledTo(loc.X, p.base, t, p.dir)
	return optimize.FuncEvaluation
}

// lineSearch passes loc.F to the line minimization. It reports whether the
// line minimization has finished, otherwise loc.X is set to the next point.
func (p *Powell) lineSearch(loc *optimize.Location) bool {
	t, done := p.lm.iterate(loc.F)
	if !done {
		floats.AddScaledTo(loc.X, p.base, t, p.dir)
		return false
	}
	floats.AddScaledTo(p.x, p.base, p.lm.t, p.dir)
	p.f = p.lm.ft
	return true
}

func (p *Powell) major(loc *optimize.Location) optimize.Operation {
	copy(loc.X, p.x)
	loc.F = p.f
	p.stage = powellMajor
	return optimize.MajorIteration
}
