// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/pulseframe/pulseframe/stream"
)

// ErrNoInitialValue is returned by InitFromStream when the upstream
// source delivers no value before the context ends.
var ErrNoInitialValue = errors.New("render: no initial value from upstream")

// State holds a renderer's snapshot: an immutable value replaced
// wholesale on each update, never mutated in place. Render code reads
// one frozen pointer for the whole frame and can never observe a partial
// update.
//
// A State optionally owns exactly one live stream subscription that
// keeps replacing the snapshot in the background; Reset cancels it.
//
// State is safe for concurrent use. The publisher (Update or the
// subscription goroutine) must treat a value as frozen once stored.
type State[T any] struct {
	ptr atomic.Pointer[T]

	mu  sync.Mutex
	sub *stream.Subscription[T]
	wg  sync.WaitGroup
}

// NewState returns an uninitialized state holder.
func NewState[T any]() *State[T] {
	return &State[T]{}
}

// Init seeds the snapshot with v.
func (s *State[T]) Init(v T) {
	s.ptr.Store(&v)
}

// InitFromStream blocks for the subscription's first value, which
// becomes the initial snapshot, then keeps replacing the snapshot with
// each further value on a background goroutine until Reset or the stream
// closes. The state owns sub from this point.
func (s *State[T]) InitFromStream(ctx context.Context, sub *stream.Subscription[T]) error {
	select {
	case <-ctx.Done():
		sub.Cancel()
		return ctx.Err()
	case v, ok := <-sub.C():
		if !ok {
			return ErrNoInitialValue
		}
		s.ptr.Store(&v)
	}

	s.mu.Lock()
	if s.sub != nil {
		s.sub.Cancel()
		s.wg.Wait()
	}
	s.sub = sub
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		for v := range sub.C() {
			v := v
			s.ptr.Store(&v)
		}
	}()
	return nil
}

// Update replaces the snapshot wholesale.
func (s *State[T]) Update(v T) {
	s.ptr.Store(&v)
}

// Get returns the current frozen snapshot, or nil before initialization.
// Callers must not mutate the returned value.
func (s *State[T]) Get() *T {
	return s.ptr.Load()
}

// MustGet returns the current snapshot and panics if the state was never
// initialized. Rendering from an uninitialized state is a programming
// error, not a runtime condition to recover from.
func (s *State[T]) MustGet() *T {
	p := s.ptr.Load()
	if p == nil {
		panic("render: state read before initialization")
	}
	return p
}

// Initialized reports whether a snapshot has been published.
func (s *State[T]) Initialized() bool {
	return s.ptr.Load() != nil
}

// Reset cancels the owned subscription, waits for the background
// replacer to exit, and clears the snapshot.
func (s *State[T]) Reset() {
	s.mu.Lock()
	if s.sub != nil {
		s.sub.Cancel()
		s.wg.Wait()
		s.sub = nil
	}
	s.mu.Unlock()
	s.ptr.Store(nil)
}
