// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TimingStrategy selects how per-renderer averages are maintained.
type TimingStrategy int

const (
	// TimingEMA keeps an exponential moving average. The first sample
	// seeds the average exactly; later samples are blended with the
	// configured alpha.
	TimingEMA TimingStrategy = iota

	// TimingCumulative keeps a cumulative mean over all samples.
	TimingCumulative
)

// String returns the strategy name as it appears in configuration.
func (s TimingStrategy) String() string {
	switch s {
	case TimingEMA:
		return "ema"
	case TimingCumulative:
		return "cumulative"
	default:
		return fmt.Sprintf("timing(%d)", int(s))
	}
}

// TimingSnapshot is one renderer's current cost estimate.
type TimingSnapshot struct {
	Name    string
	Average time.Duration
	Last    time.Duration
	Samples uint64
}

// TimingTracker records render durations per renderer name and answers
// total-cost estimates for renderer sets.
//
// Every Record bumps a global version counter; plan caches compare the
// counter instead of deep-comparing estimates to detect that the cost
// model changed.
//
// TimingTracker supports concurrent readers during writes and
// serializes writers internally.
type TimingTracker struct {
	strategy TimingStrategy
	alpha    float64

	mu      sync.RWMutex
	entries map[string]*timingEntry

	version atomic.Uint64
}

type timingEntry struct {
	average float64 // milliseconds
	last    time.Duration
	samples uint64
}

// NewTimingTracker creates a tracker. For TimingEMA, alpha must lie in
// (0, 1]; alpha is ignored by TimingCumulative.
func NewTimingTracker(strategy TimingStrategy, alpha float64) (*TimingTracker, error) {
	switch strategy {
	case TimingEMA:
		if alpha <= 0 || alpha > 1 {
			return nil, fmt.Errorf("render: ema alpha must be in (0,1], got %v", alpha)
		}
	case TimingCumulative:
	default:
		return nil, fmt.Errorf("render: unknown timing strategy %d", int(strategy))
	}
	return &TimingTracker{
		strategy: strategy,
		alpha:    alpha,
		entries:  make(map[string]*timingEntry),
	}, nil
}

// Record folds one observed render duration into name's estimate.
func (t *TimingTracker) Record(name string, d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)

	t.mu.Lock()
	e := t.entries[name]
	if e == nil {
		e = &timingEntry{}
		t.entries[name] = e
	}
	switch {
	case e.samples == 0:
		e.average = ms
	case t.strategy == TimingEMA:
		e.average = t.alpha*ms + (1-t.alpha)*e.average
	default:
		e.average = (e.average*float64(e.samples) + ms) / float64(e.samples+1)
	}
	e.last = d
	e.samples++
	t.mu.Unlock()

	t.version.Add(1)
}

// Estimate sums the known averages for the named renderers. Renderers
// with no samples contribute zero; allKnown is false when any renderer
// in the set is still cold.
func (t *TimingTracker) Estimate(names []string) (total time.Duration, allKnown bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	allKnown = true
	var ms float64
	for _, name := range names {
		e := t.entries[name]
		if e == nil || e.samples == 0 {
			allKnown = false
			continue
		}
		ms += e.average
	}
	return time.Duration(ms * float64(time.Millisecond)), allKnown
}

// Snapshot returns name's current estimate.
func (t *TimingTracker) Snapshot(name string) (TimingSnapshot, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e := t.entries[name]
	if e == nil {
		return TimingSnapshot{}, false
	}
	return TimingSnapshot{
		Name:    name,
		Average: time.Duration(e.average * float64(time.Millisecond)),
		Last:    e.last,
		Samples: e.samples,
	}, true
}

// Names returns all tracked renderer names.
func (t *TimingTracker) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.entries))
	for name := range t.entries {
		names = append(names, name)
	}
	return names
}

// Version returns the change counter. It increments on every Record.
func (t *TimingTracker) Version() uint64 {
	return t.version.Load()
}
