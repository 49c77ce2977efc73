// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package linsolve

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas64"
	"gonum.org/v1/gonum/mat"

	"github.com/vladimir-ch/numopt/internal/triplet"
)

type testCase struct {
	name  string
	n     int
	a     MatrixOps
	diag  []float64
	iters int
	tol   float64
}

// randomSPD returns a random symmetric positive definite matrix of order n.
// The matrix is diagonally dominant and well conditioned.
func randomSPD(n int, rnd *rand.Rand) testCase {
	a := make([]float64, n*n)
	lda := n
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			a[i*lda+j] = rnd.Float64()
		}
	}
	for i := 0; i < n; i++ {
		a[i*lda+i] += float64(n)
	}
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = a[i*lda+i]
	}
	bi := blas64.Implementation()
	matvec := func(dst, x []float64) {
		bi.Dsymv(blas.Upper, n, 1, a, lda, x, 1, 0, dst, 1)
	}
	return testCase{
		name:  fmt.Sprintf("randomSPD%d", n),
		n:     n,
		a:     MatrixOps{MatVec: matvec, MatTransVec: matvec, Dim: n},
		diag:  diag,
		iters: 2 * n,
		tol:   1e-10,
	}
}

// scaledSPD returns a symmetric positive definite matrix of order n whose
// diagonal entries vary over several orders of magnitude.
func scaledSPD(n int, rnd *rand.Rand) (testCase, *mat.SymDense) {
	s := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s.SetSym(i, j, 0.1*rnd.Float64())
		}
		s.SetSym(i, i, float64(n)*float64(1+i*i))
	}
	ops, err := NewMatrixOps(s)
	if err != nil {
		panic(err)
	}
	diag := make([]float64, n)
	for i := range diag {
		diag[i] = s.At(i, i)
	}
	return testCase{
		name:  fmt.Sprintf("scaledSPD%d", n),
		n:     n,
		a:     ops,
		diag:  diag,
		iters: 10 * n,
		tol:   1e-8,
	}, s
}

// laplacian returns the sparse second-order finite difference matrix of
// order n.
func laplacian(n int) testCase {
	m := triplet.Laplacian(n)
	return testCase{
		name:  fmt.Sprintf("laplacian%d", n),
		n:     n,
		a:     MatrixOps{MatVec: m.MulVec, MatTransVec: m.MulTransVec, Dim: n},
		diag:  m.Diagonal(),
		iters: 2 * n,
		tol:   1e-6,
	}
}

// randomNonsymmetric returns a random diagonally dominant non-symmetric matrix
// of order n stored in coordinate format.
func randomNonsymmetric(n int, rnd *rand.Rand) testCase {
	m := triplet.New(n, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j && rnd.Float64() < 0.3 {
				m.Append(i, j, rnd.NormFloat64())
			}
		}
		m.Append(i, i, float64(n))
	}
	return testCase{
		name:  fmt.Sprintf("nonsymmetric%d", n),
		n:     n,
		a:     MatrixOps{MatVec: m.MulVec, MatTransVec: m.MulTransVec, Dim: n},
		diag:  m.Diagonal(),
		iters: 10 * n,
		tol:   1e-8,
	}
}

// onesRHS returns the right-hand side b such that the vector [1,1,...,1] is
// the solution of A*x = b, and the solution itself.
func onesRHS(tc testCase) (b, want []float64) {
	want = make([]float64, tc.n)
	for i := range want {
		want[i] = 1
	}
	b = make([]float64, tc.n)
	tc.a.MatVec(b, want)
	return b, want
}
