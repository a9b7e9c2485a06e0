// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool limits the number of tasks running concurrently.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool runs tasks in goroutines, at most MaxParallelism at a time.
type Pool struct {
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Broadcast whenever numRunning decreases.
	numRunning     int
}

// New returns a new Pool running at most maxParallelism tasks at a time.
// If maxParallelism <= 0, runtime.NumCPU() is used.
func New(maxParallelism int) *Pool {
	if maxParallelism <= 0 {
		maxParallelism = runtime.NumCPU()
	}
	p := &Pool{maxParallelism: maxParallelism}
	p.cond = sync.Cond{L: &p.mu}
	return p
}

// MaxParallelism returns the maximum number of tasks running at the same time.
func (p *Pool) MaxParallelism() int {
	return p.maxParallelism
}

// WaitToStart blocks until a worker is available, and then runs task in a separate goroutine.
//
// It's up to the caller to synchronize on the end of the task, or to use Wait.
func (p *Pool) WaitToStart(task func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.numRunning >= p.maxParallelism {
		p.cond.Wait()
	}
	p.numRunning++
	go func() {
		defer func() {
			p.mu.Lock()
			p.numRunning--
			p.cond.Broadcast()
			p.mu.Unlock()
		}()
		task()
	}()
}

// Wait blocks until all tasks started so far are finished.
func (p *Pool) Wait() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for p.numRunning > 0 {
		p.cond.Wait()
	}
}
