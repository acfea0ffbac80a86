// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import "sync"

// Pool recycles surfaces keyed by dimensions so the composition engine can
// reuse destination buffers between frames instead of reallocating them.
//
// Get always returns a fully cleared surface: a recycled buffer is wiped
// before hand-off, so callers never observe pixels from a previous frame.
//
// Pool is safe for concurrent use.
type Pool struct {
	mu   sync.Mutex
	free map[[2]int][]*Surface

	// maxPerSize bounds how many surfaces are retained per dimension pair.
	// Surfaces returned beyond the bound are dropped for GC.
	maxPerSize int
}

// NewPool creates a surface pool retaining up to maxPerSize surfaces per
// distinct dimension pair. maxPerSize <= 0 selects a default of 4.
func NewPool(maxPerSize int) *Pool {
	if maxPerSize <= 0 {
		maxPerSize = 4
	}
	return &Pool{
		free:       make(map[[2]int][]*Surface),
		maxPerSize: maxPerSize,
	}
}

// Get returns a cleared surface with the given dimensions, recycling a
// previously returned one when available.
func (p *Pool) Get(width, height int) *Surface {
	key := [2]int{width, height}

	p.mu.Lock()
	list := p.free[key]
	if n := len(list); n > 0 {
		s := list[n-1]
		p.free[key] = list[:n-1]
		p.mu.Unlock()
		s.Clear(nil)
		return s
	}
	p.mu.Unlock()

	return New(width, height)
}

// Put returns a surface to the pool for reuse. Nil surfaces are ignored.
// The caller must not use the surface after Put.
func (p *Pool) Put(s *Surface) {
	if s == nil {
		return
	}
	key := [2]int{s.width, s.height}

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free[key]) >= p.maxPerSize {
		return
	}
	p.free[key] = append(p.free[key], s)
}

// Len returns the total number of surfaces currently held by the pool.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	total := 0
	for _, list := range p.free {
		total += len(list)
	}
	return total
}
