// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package triplet provides a sparse matrix in coordinate format that is used
// as an implicit linear operator.
package triplet

import "gonum.org/v1/gonum/mat"

type triplet struct {
	i, j int
	v    float64
}

// Matrix is a sparse matrix stored as a list of (row, column, value)
// triplets. Duplicate entries are summed.
type Matrix struct {
	r, c int
	data []triplet
}

// New returns an empty r×c matrix.
func New(r, c int) *Matrix {
	if r <= 0 || c <= 0 {
		panic("triplet: dimension not positive")
	}
	return &Matrix{
		r: r,
		c: c,
	}
}

// Laplacian returns the n×n matrix of the second-order finite difference
// approximation of -u'' with homogeneous Dirichlet boundary conditions,
// that is the tridiagonal matrix with 2 on the diagonal and -1 off it.
func Laplacian(n int) *Matrix {
	m := New(n, n)
	for i := 0; i < n; i++ {
		if i > 0 {
			m.Append(i, i-1, -1)
		}
		m.Append(i, i, 2)
		if i < n-1 {
			m.Append(i, i+1, -1)
		}
	}
	return m
}

// Dims returns the dimensions of the matrix.
func (m *Matrix) Dims() (r, c int) {
	return m.r, m.c
}

// NNZ returns the number of stored entries.
func (m *Matrix) NNZ() int {
	return len(m.data)
}

// Append adds v to the element (i,j).
func (m *Matrix) Append(i, j int, v float64) {
	if i < 0 || m.r <= i {
		panic("triplet: row index out of range")
	}
	if j < 0 || m.c <= j {
		panic("triplet: column index out of range")
	}
	m.data = append(m.data, triplet{i, j, v})
}

// MulVec computes A*x and stores the result into dst.
func (m *Matrix) MulVec(dst, x []float64) {
	if m.c != len(x) || m.r != len(dst) {
		panic("triplet: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, aij := range m.data {
		dst[aij.i] += aij.v * x[aij.j]
	}
}

// MulTransVec computes A^T*x and stores the result into dst.
func (m *Matrix) MulTransVec(dst, x []float64) {
	if m.c != len(dst) || m.r != len(x) {
		panic("triplet: dimension mismatch")
	}
	for i := range dst {
		dst[i] = 0
	}
	for _, aij := range m.data {
		dst[aij.j] += aij.v * x[aij.i]
	}
}

// Diagonal returns the diagonal of the matrix.
func (m *Matrix) Diagonal() []float64 {
	diag := make([]float64, min(m.r, m.c))
	for _, aij := range m.data {
		if aij.i == aij.j {
			diag[aij.i] += aij.v
		}
	}
	return diag
}

// Dense returns a dense copy of the matrix.
func (m *Matrix) Dense() *mat.Dense {
	d := mat.NewDense(m.r, m.c, nil)
	for _, aij := range m.data {
		d.Set(aij.i, aij.j, d.At(aij.i, aij.j)+aij.v)
	}
	return d
}
