// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

func TestCG(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, tc := range []testCase{
		randomSPD(1, rnd),
		randomSPD(2, rnd),
		randomSPD(3, rnd),
		randomSPD(4, rnd),
		randomSPD(5, rnd),
		randomSPD(10, rnd),
		randomSPD(20, rnd),
		randomSPD(50, rnd),
		randomSPD(100, rnd),
		randomSPD(200, rnd),
		laplacian(10),
		laplacian(50),
		laplacian(100),
	} {
		n := tc.n
		b, want := onesRHS(tc)

		r, err := LinearSolve(tc.a, b, &CG{}, Settings{
			MaxIterations: tc.iters,
			Tolerance:     1e-10,
		})
		if err != nil {
			t.Errorf("Case %v: unexpected error %v", tc.name, err)
			continue
		}
		if r.Status != Converged {
			t.Errorf("Case %v: unexpected status %v", tc.name, r.Status)
		}
		dist := floats.Distance(r.X, want, math.Inf(1))
		if dist > tc.tol {
			t.Errorf("Case %v: unexpected solution, |want-got|=%v", tc.name, dist)
		}
		if r.Stats.Iterations > n {
			t.Errorf("Case %v: more than n=%v iterations: %v", tc.name, n, r.Stats.Iterations)
		}
	}
}

func TestCGFromInitialGuess(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	tc := randomSPD(30, rnd)
	b, want := onesRHS(tc)

	x0 := make([]float64, tc.n)
	for i := range x0 {
		x0[i] = rnd.NormFloat64()
	}
	orig := append([]float64(nil), x0...)

	settings := DefaultSettings()
	settings.X0 = x0
	settings.Tolerance = 1e-10
	r, err := LinearSolve(tc.a, b, &CG{}, settings)
	require.NoError(t, err)
	assert.Equal(t, Converged, r.Status)
	assert.LessOrEqual(t, r.Stats.Iterations, tc.n)
	assert.InDeltaSlice(t, want, r.X, 1e-9)
	assert.Equal(t, orig, x0, "initial guess modified")
	assert.Equal(t, orig, r.X0)
}

func TestCGResidualRecompute(t *testing.T) {
	tc := laplacian(40)
	b, want := onesRHS(tc)

	for _, recompute := range []int{1, 2, 7, 0} {
		r, err := LinearSolve(tc.a, b, &CG{Recompute: recompute}, Settings{
			Tolerance:     1e-10,
			MaxIterations: tc.iters,
		})
		require.NoError(t, err)
		require.Equal(t, Converged, r.Status, "recompute=%d", recompute)
		assert.InDeltaSlice(t, want, r.X, 1e-6, "recompute=%d", recompute)

		period := recompute
		if period == 0 {
			period = DefaultRecompute
		}
		// One product per iteration plus one for each recomputed residual.
		wantMatVec := r.Stats.Iterations + r.Stats.Iterations/period
		assert.Equal(t, wantMatVec, r.Stats.MatVec, "recompute=%d", recompute)
	}
}

func TestCGBreakdown(t *testing.T) {
	// A is indefinite and p_0·Ap_0 = 0 for b = [1,1].
	a := MatrixOps{
		MatVec: func(dst, x []float64) {
			dst[0] = x[0]
			dst[1] = -x[1]
		},
		Dim: 2,
	}
	b := []float64{1, 1}
	for _, method := range []Method{&CG{}, &PCG{}, &SteepestDescent{}} {
		r, err := LinearSolve(a, b, method, DefaultSettings())
		require.NoError(t, err)
		assert.Equal(t, Breakdown, r.Status)
		var bd *BreakdownError
		assert.ErrorAs(t, r.Cause, &bd)
		assert.Equal(t, []float64{0, 0}, r.X)
		assert.Equal(t, 0, r.Stats.Iterations)
	}
}

func TestCGIterationLimit(t *testing.T) {
	tc := laplacian(100)
	b, _ := onesRHS(tc)
	r, err := LinearSolve(tc.a, b, &CG{}, Settings{Tolerance: 1e-12, MaxIterations: 5})
	require.NoError(t, err)
	assert.Equal(t, IterationLimit, r.Status)
	assert.Equal(t, 5, r.Stats.Iterations)
	assert.Greater(t, r.Stats.ResidualNorm, 1e-12)
}

func TestCGIdempotent(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	tc := randomSPD(25, rnd)
	b, _ := onesRHS(tc)
	settings := Settings{Tolerance: 1e-10, MaxIterations: 7}

	cg := &CG{}
	first, err := LinearSolve(tc.a, b, cg, settings)
	require.NoError(t, err)
	second, err := LinearSolve(tc.a, b, cg, settings)
	require.NoError(t, err)
	assert.Equal(t, first.X, second.X)
	assert.Equal(t, first.Stats.Iterations, second.Stats.Iterations)
}
