// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/floats"
)

func TestSteepestDescent(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, tc := range []testCase{
		randomSPD(1, rnd),
		randomSPD(2, rnd),
		randomSPD(5, rnd),
		randomSPD(10, rnd),
		randomSPD(50, rnd),
		laplacian(8),
	} {
		b, want := onesRHS(tc)
		for _, recompute := range []int{0, 3} {
			r, err := LinearSolve(tc.a, b, &SteepestDescent{Recompute: recompute}, Settings{
				MaxIterations: 2000,
				Tolerance:     1e-10,
			})
			if err != nil {
				t.Errorf("Case %v: unexpected error %v", tc.name, err)
				continue
			}
			if r.Status != Converged {
				t.Errorf("Case %v (recompute=%v): unexpected status %v after %v iterations",
					tc.name, recompute, r.Status, r.Stats.Iterations)
			}
			dist := floats.Distance(r.X, want, math.Inf(1))
			if dist > 1e-8 {
				t.Errorf("Case %v (recompute=%v): unexpected solution, |want-got|=%v", tc.name, recompute, dist)
			}
		}
	}
}

// Steepest descent takes more iterations than CG on an ill-conditioned system.
func TestSteepestDescentSlowerThanCG(t *testing.T) {
	tc := laplacian(8)
	b, _ := onesRHS(tc)
	settings := Settings{MaxIterations: 2000, Tolerance: 1e-8}

	sd, err := LinearSolve(tc.a, b, &SteepestDescent{}, settings)
	if err != nil {
		t.Fatal(err)
	}
	cg, err := LinearSolve(tc.a, b, &CG{}, settings)
	if err != nil {
		t.Fatal(err)
	}
	if sd.Stats.Iterations <= cg.Stats.Iterations {
		t.Errorf("steepest descent took %v iterations, CG %v", sd.Stats.Iterations, cg.Stats.Iterations)
	}
}
