// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package minimize

import (
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Local adapts a Method to the optimize.Method interface so that it can be
// run by optimize.Minimize with the settings, convergers and recorders of
// that package. The evaluations requested by Method are carried out one at a
// time.
//
// A stall of Method ends the run with the status MethodStall and no error.
// The reason is returned by Stall.
type Local struct {
	Method Method

	status optimize.Status
	err    error
	stall  error
}

var (
	_ optimize.Method   = (*Local)(nil)
	_ optimize.Statuser = (*Local)(nil)
)

// Init implements the optimize.Method interface.
func (l *Local) Init(dim, tasks int) int {
	if l.Method == nil {
		panic("minimize: Local without Method")
	}
	l.status = optimize.NotTerminated
	l.err = nil
	l.stall = nil
	return 1
}

// Uses implements the optimize.Method interface.
func (l *Local) Uses(has optimize.Available) (optimize.Available, error) {
	if !l.Method.NeedsGradient() {
		return optimize.Available{}, nil
	}
	if !has.Grad {
		return optimize.Available{}, optimize.ErrMissingGrad
	}
	return optimize.Available{Grad: true}, nil
}

// Status implements the optimize.Statuser interface.
func (l *Local) Status() (optimize.Status, error) {
	return l.status, l.err
}

// Stall returns the reason of the last MethodStall status.
func (l *Local) Stall() error {
	return l.stall
}

// Run implements the optimize.Method interface.
func (l *Local) Run(operation chan<- optimize.Task, result <-chan optimize.Task, tasks []optimize.Task) {
	l.status, l.err = l.run(operation, result, tasks[0])
	if r, ok := l.Method.(releaser); ok {
		r.release()
	}
	close(operation)
}

func (l *Local) run(operation chan<- optimize.Task, result <-chan optimize.Task, task optimize.Task) (optimize.Status, error) {
	// Complete the evaluations at the starting point.
	op := optimize.FuncEvaluation
	if l.Method.NeedsGradient() {
		op |= optimize.GradEvaluation
	}
	task.Op = op &^ task.Op
	operation <- task
	task = <-result
	if task.Op == optimize.PostIteration {
		drain(result)
		return optimize.NotTerminated, nil
	}
	if math.IsInf(task.F, 1) || math.IsNaN(task.F) {
		return l.stop(operation, result, task, optimize.ErrFunc(task.F))
	}

	// The starting point is the first major iteration.
	task.Op = optimize.MajorIteration
	operation <- task
	task = <-result
	if task.Op == optimize.PostIteration {
		drain(result)
		return optimize.NotTerminated, nil
	}

	op, err := l.Method.Init(task.Location)
	if err != nil {
		return l.stop(operation, result, task, err)
	}
	task.Op = op
	operation <- task
	for {
		r := <-result
		if r.Op == optimize.PostIteration {
			break
		}
		op, err := l.Method.Iterate(r.Location)
		if err != nil {
			return l.stop(operation, result, r, err)
		}
		r.Op = op
		operation <- r
	}
	drain(result)
	return optimize.NotTerminated, nil
}

// stop ends the run after Method returned err.
func (l *Local) stop(operation chan<- optimize.Task, result <-chan optimize.Task, task optimize.Task, err error) (optimize.Status, error) {
	status := optimize.Failure
	if isStall(err) {
		l.stall = err
		status, err = MethodStall, nil
	}
	task.Op = optimize.MethodDone
	operation <- task
	task = <-result
	if task.Op != optimize.PostIteration {
		panic("minimize: task should have returned post iteration")
	}
	drain(result)
	return status, err
}

func drain(result <-chan optimize.Task) {
	for range result {
	}
}
