// Copyright ©2014 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minimize

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

func debugLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// After an update with sᵀy > 0 both BFGS and DFP satisfy the secant
// equation H y = s.
func TestQuasiNewtonSecant(t *testing.T) {
	for _, test := range []struct {
		name   string
		update func(n int, h, s, hy []float64, sy, yhy float64) bool
	}{
		{"BFGS", bfgsUpdate},
		{"DFP", dfpUpdate},
	} {
		qn := &quasiNewton{name: test.name, update: test.update}
		dir := make([]float64, 2)
		qn.InitDirection(&optimize.Location{X: []float64{0, 0}, Gradient: []float64{1, 2}}, dir)
		assert.Equal(t, []float64{-1, -2}, dir, test.name)

		step := qn.NextDirection(&optimize.Location{X: []float64{-1, -1}, Gradient: []float64{0.5, 0.3}}, dir)
		assert.Equal(t, 1.0, step, test.name)
		assert.False(t, qn.first, test.name)

		h := mat.NewSymDense(2, append([]float64(nil), qn.h...))
		var hy mat.VecDense
		hy.MulVec(h, mat.NewVecDense(2, []float64{-0.5, -1.7}))
		assert.InDeltaSlice(t, []float64{-1, -1}, hy.RawVector().Data, 1e-12, test.name)
	}
}

// A step with sᵀy <= 0 leaves H unchanged.
func TestQuasiNewtonSkipsNegativeCurvature(t *testing.T) {
	for _, test := range []struct {
		name   string
		update func(n int, h, s, hy []float64, sy, yhy float64) bool
	}{
		{"BFGS", bfgsUpdate},
		{"DFP", dfpUpdate},
	} {
		var buf bytes.Buffer
		qn := &quasiNewton{name: test.name, update: test.update, logger: debugLogger(&buf)}
		dir := make([]float64, 2)
		qn.InitDirection(&optimize.Location{X: []float64{0, 0}, Gradient: []float64{-1, 0}}, dir)

		// s = (1, 0), y = (-1, 0.5) and sᵀy = -1.
		step := qn.NextDirection(&optimize.Location{X: []float64{1, 0}, Gradient: []float64{-2, 0.5}}, dir)
		assert.Equal(t, []float64{1, 0, 0, 1}, qn.h, test.name)
		assert.True(t, qn.first, test.name)
		assert.InDeltaSlice(t, []float64{2, -0.5}, dir, 0, test.name)
		assert.Equal(t, 1.0, step, test.name)
		assert.Contains(t, buf.String(), "quasi-Newton update skipped", test.name)
		assert.Contains(t, buf.String(), "sy=-1", test.name)
	}
}

// DFP skips the update when yᵀH y <= 0 even if sᵀy > 0.
func TestDFPSkipsIndefiniteUpdate(t *testing.T) {
	var buf bytes.Buffer
	qn := &quasiNewton{name: "DFP", update: dfpUpdate, logger: debugLogger(&buf)}
	dir := make([]float64, 2)
	qn.InitDirection(&optimize.Location{X: []float64{0, 0}, Gradient: []float64{1, -1}}, dir)
	qn.first = false
	copy(qn.h, []float64{1, 0, 0, -1})

	// s = y = (0, 1), sᵀy = 1 and yᵀH y = -1.
	step := qn.NextDirection(&optimize.Location{X: []float64{0, 1}, Gradient: []float64{1, 0}}, dir)
	assert.Equal(t, []float64{1, 0, 0, -1}, qn.h)
	assert.InDeltaSlice(t, []float64{-1, 0}, dir, 0)
	assert.Equal(t, 1.0, step)
	assert.Contains(t, buf.String(), "quasi-Newton update skipped")
	assert.Contains(t, buf.String(), "yHy=-1")
}

// A direction that is not a descent direction resets H to the identity.
func TestQuasiNewtonReset(t *testing.T) {
	var buf bytes.Buffer
	qn := &quasiNewton{name: "BFGS", update: bfgsUpdate, logger: debugLogger(&buf)}
	dir := make([]float64, 2)
	qn.InitDirection(&optimize.Location{X: []float64{0, 0}, Gradient: []float64{1, 0}}, dir)
	qn.first = false
	copy(qn.h, []float64{-1, 0, 0, 1})

	// sᵀy < 0 so H stays indefinite and -H g is an ascent direction.
	step := qn.NextDirection(&optimize.Location{X: []float64{-1, 0}, Gradient: []float64{2, 0}}, dir)
	assert.Equal(t, []float64{1, 0, 0, 1}, qn.h)
	assert.True(t, qn.first)
	assert.InDeltaSlice(t, []float64{-2, 0}, dir, 0)
	assert.Equal(t, 0.5, step)
	assert.Contains(t, buf.String(), "quasi-Newton reset")
}

// The first step from 0.5 crosses the inflection point of cos at π/2, so
// sᵀy < 0. The method skips the update and keeps descending to the minimum
// at π.
func TestBFGSConcave(t *testing.T) {
	p := optimize.Problem{
		Func: func(x []float64) float64 { return math.Cos(x[0]) },
		Grad: func(grad, x []float64) { grad[0] = -math.Sin(x[0]) },
	}
	var buf bytes.Buffer
	settings := DefaultSettings()
	settings.Logger = debugLogger(&buf)
	r, err := Minimize(p, []float64{0.5}, settings, &BFGS{Linesearcher: &optimize.Backtracking{}})
	require.NoError(t, err)
	assert.Contains(t, []optimize.Status{optimize.GradientThreshold, MethodStall}, r.Status)
	assert.InDelta(t, math.Pi, r.X[0], 1e-4)
	assert.InDelta(t, -1, r.F, 1e-8)
	assert.Contains(t, buf.String(), "quasi-Newton update skipped")
}
