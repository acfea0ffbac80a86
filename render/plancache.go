// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// RefreshPolicy selects when a cached plan expires.
type RefreshPolicy int

const (
	// RefreshOnChange keeps a plan valid, regardless of age, until any
	// tracked input (signature, override, default variant, timing
	// version) changes.
	RefreshOnChange RefreshPolicy = iota

	// RefreshTimeBoxed additionally expires a plan after a fixed age,
	// forcing periodic replanning even when no tracked input changed.
	// Useful when a renderer set's internal mix drifts slowly.
	RefreshTimeBoxed
)

// planKey is everything a cached plan's validity depends on.
type planKey struct {
	signature      string
	override       Variant
	defaultVariant Variant
	timingVersion  uint64
}

// PlanCache memoizes the planner's last decision. A hit returns the
// identical *Plan, which by construction is behaviorally equivalent to
// recomputation.
//
// PlanCache supports concurrent readers and serializes recomputation.
type PlanCache struct {
	planner *Planner
	tracker *TimingTracker
	policy  RefreshPolicy
	maxAge  time.Duration
	now     func() time.Time

	mu        sync.Mutex
	cached    *Plan
	cachedKey planKey
	cachedAt  time.Time

	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewPlanCache creates a cache in front of planner. For RefreshTimeBoxed,
// maxAge must be > 0; RefreshOnChange ignores maxAge.
func NewPlanCache(planner *Planner, tracker *TimingTracker, policy RefreshPolicy, maxAge time.Duration) (*PlanCache, error) {
	switch policy {
	case RefreshOnChange:
	case RefreshTimeBoxed:
		if maxAge <= 0 {
			return nil, fmt.Errorf("render: time-boxed refresh requires max age > 0, got %v", maxAge)
		}
	default:
		return nil, fmt.Errorf("render: unknown refresh policy %d", int(policy))
	}
	return &PlanCache{
		planner: planner,
		tracker: tracker,
		policy:  policy,
		maxAge:  maxAge,
		now:     planner.cfg.Now,
	}, nil
}

// Plan returns the cached plan when still valid, otherwise asks the
// planner for a fresh one and caches it.
func (c *PlanCache) Plan(handles []*Handle, override Variant) *Plan {
	key := planKey{
		signature:      Signature(handles, c.planner.cfg.Signature),
		override:       override,
		defaultVariant: c.planner.cfg.Default,
		timingVersion:  c.tracker.Version(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && c.cachedKey == key && c.fresh() {
		c.hits.Add(1)
		return c.cached
	}

	plan := c.planner.Plan(handles, override)
	if plan.Signature != key.signature {
		// The planner and cache disagree on what set this plan covers.
		// A plan served for the wrong signature would silently compose
		// the wrong renderers, so treat it as fatal.
		panic(fmt.Sprintf("render: plan signature %q does not match cache key %q",
			plan.Signature, key.signature))
	}
	c.cached = plan
	c.cachedKey = key
	c.cachedAt = c.now()
	c.misses.Add(1)
	return plan
}

// fresh applies the refresh policy to the cached entry's age.
func (c *PlanCache) fresh() bool {
	if c.policy == RefreshOnChange {
		return true
	}
	return c.now().Sub(c.cachedAt) < c.maxAge
}

// Invalidate drops the cached plan.
func (c *PlanCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

// Stats returns the hit and miss counts.
func (c *PlanCache) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}
