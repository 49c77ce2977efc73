// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minimize

import "math"

const (
	golden   = 1.618034  // Magnification of successive bracketing intervals.
	cgold    = 0.3819660 // 1 - 1/golden, the golden section ratio.
	zeps     = 1e-10     // Absolute accuracy near zero.
	brentTol = 3e-8      // About the square root of the machine epsilon.

	maxExpansions = 50
	maxBrentEvals = 100
)

const (
	lineFirst = iota + 1
	lineExpand
	lineBrent
)

// lineMinimizer finds a minimum of the univariate function φ(t) using only
// function values. It brackets a minimum by golden-ratio expansion from
// t = 0 and t = 1 and then locates it by Brent's method, a combination of
// golden section search and parabolic interpolation.
//
// The caller evaluates φ at the points returned by init and iterate until
// iterate reports done. The minimum found is then in t and ft.
type lineMinimizer struct {
	stage int
	evals int

	a, b, c    float64 // Bracketing triple.
	fa, fb, fc float64

	// Brent's method state. x is the best
	// point, w the second best and v the
	// previous value of w. u is the point
	// being evaluated.
	lo, hi     float64
	x, w, v, u float64
	fx, fw, fv float64
	d, e       float64

	t, ft float64
}

// init starts the search given φ(0) and returns the first point to evaluate.
func (lm *lineMinimizer) init(f0 float64) float64 {
	lm.stage = lineFirst
	lm.evals = 0
	lm.a, lm.fa = 0, f0
	lm.t, lm.ft = 0, f0
	return 1
}

// iterate receives φ at the point returned previously. It returns the next
// point to evaluate or done.
func (lm *lineMinimizer) iterate(f float64) (next float64, done bool) {
	lm.evals++
	switch lm.stage {
	case lineFirst:
		lm.b, lm.fb = 1, f
		if lm.fb > lm.fa {
			// Go downhill from a to b.
			lm.a, lm.b = lm.b, lm.a
			lm.fa, lm.fb = lm.fb, lm.fa
		}
		lm.c = lm.b + golden*(lm.b-lm.a)
		lm.stage = lineExpand
		return lm.c, false

	case lineExpand:
		lm.fc = f
		if lm.fb > lm.fc {
			if lm.evals > maxExpansions {
				// No bracket found, φ may be unbounded below.
				lm.t, lm.ft = lm.c, lm.fc
				return 0, true
			}
			lm.a, lm.fa = lm.b, lm.fb
			lm.b, lm.fb = lm.c, lm.fc
			lm.c = lm.b + golden*(lm.b-lm.a)
			return lm.c, false
		}
		lm.startBrent()
		lm.stage = lineBrent
		return lm.nextBrent()

	case lineBrent:
		lm.updateBrent(f)
		if lm.evals > maxExpansions+maxBrentEvals {
			lm.t, lm.ft = lm.x, lm.fx
			return 0, true
		}
		return lm.nextBrent()

	default:
		panic("minimize: lineMinimizer not initialized")
	}
}

func (lm *lineMinimizer) startBrent() {
	lm.lo, lm.hi = math.Min(lm.a, lm.c), math.Max(lm.a, lm.c)
	lm.x, lm.w, lm.v = lm.b, lm.b, lm.b
	lm.fx, lm.fw, lm.fv = lm.fb, lm.fb, lm.fb
	lm.d, lm.e = 0, 0
}

// nextBrent returns the next point of Brent's method or done when the
// interval is small enough.
func (lm *lineMinimizer) nextBrent() (float64, bool) {
	x := lm.x
	xm := 0.5 * (lm.lo + lm.hi)
	tol1 := brentTol*math.Abs(x) + zeps
	tol2 := 2 * tol1
	if math.Abs(x-xm) <= tol2-0.5*(lm.hi-lm.lo) {
		lm.t, lm.ft = lm.x, lm.fx
		return 0, true
	}

	useGolden := true
	if math.Abs(lm.e) > tol1 {
		// Fit a parabola through x, w and v.
		r := (x - lm.w) * (lm.fx - lm.fv)
		q := (x - lm.v) * (lm.fx - lm.fw)
		p := (x-lm.v)*q - (x-lm.w)*r
		q = 2 * (q - r)
		if q > 0 {
			p = -p
		}
		q = math.Abs(q)
		etemp := lm.e
		lm.e = lm.d
		// Accept the parabolic step if it falls within the interval and
		// is less than half of the step before last.
		if math.Abs(p) < math.Abs(0.5*q*etemp) && p > q*(lm.lo-x) && p < q*(lm.hi-x) {
			lm.d = p / q
			u := x + lm.d
			if u-lm.lo < tol2 || lm.hi-u < tol2 {
				lm.d = math.Copysign(tol1, xm-x)
			}
			useGolden = false
		}
	}
	if useGolden {
		if x >= xm {
			lm.e = lm.lo - x
		} else {
			lm.e = lm.hi - x
		}
		lm.d = cgold * lm.e
	}

	if math.Abs(lm.d) >= tol1 {
		lm.u = x + lm.d
	} else {
		lm.u = x + math.Copysign(tol1, lm.d)
	}
	return lm.u, false
}

func (lm *lineMinimizer) updateBrent(fu float64) {
	u, x := lm.u, lm.x
	if fu <= lm.fx {
		if u >= x {
			lm.lo = x
		} else {
			lm.hi = x
		}
		lm.v, lm.w, lm.x = lm.w, x, u
		lm.fv, lm.fw, lm.fx = lm.fw, lm.fx, fu
		return
	}
	if u < x {
		lm.lo = u
	} else {
		lm.hi = u
	}
	switch {
	case fu <= lm.fw || lm.w == x:
		lm.v, lm.w = lm.w, u
		lm.fv, lm.fw = lm.fw, fu
	case fu <= lm.fv || lm.v == x || lm.v == lm.w:
		lm.v, lm.fv = u, fu
	}
}
