// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"testing"
	"time"
)

// testClock is an adjustable deterministic clock.
type testClock struct{ now time.Time }

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) advance(d time.Duration) { c.now = c.now.Add(d) }

func newCacheFixture(t *testing.T, policy RefreshPolicy, maxAge time.Duration) (*PlanCache, *TimingTracker, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Unix(1000, 0)}
	tracker, err := NewTimingTracker(TimingEMA, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	planner, err := NewPlanner(tracker, PlannerConfig{
		Default: VariantIterative,
		Now:     clock.Now,
	})
	if err != nil {
		t.Fatal(err)
	}
	cache, err := NewPlanCache(planner, tracker, policy, maxAge)
	if err != nil {
		t.Fatal(err)
	}
	return cache, tracker, clock
}

func TestPlanCacheHitReturnsIdenticalPlan(t *testing.T) {
	cache, _, _ := newCacheFixture(t, RefreshOnChange, 0)
	set := []*Handle{NewHandle(&stubRenderer{})}

	p1 := cache.Plan(set, VariantAuto)
	p2 := cache.Plan(set, VariantAuto)
	if p1 != p2 {
		t.Error("unchanged inputs recomputed the plan")
	}

	hits, misses := cache.Stats()
	if hits != 1 || misses != 1 {
		t.Errorf("stats = (%d hits, %d misses), want (1, 1)", hits, misses)
	}
}

func TestPlanCacheInvalidatedBySignatureChange(t *testing.T) {
	cache, _, _ := newCacheFixture(t, RefreshOnChange, 0)
	set := []*Handle{NewHandle(&stubRenderer{})}

	p1 := cache.Plan(set, VariantAuto)

	grown := append([]*Handle{}, set...)
	grown = append(grown, NewHandle(&stubRenderer{}))
	p2 := cache.Plan(grown, VariantAuto)
	if p1 == p2 {
		t.Error("signature change served the stale plan")
	}
}

func TestPlanCacheInvalidatedByOverrideChange(t *testing.T) {
	cache, _, _ := newCacheFixture(t, RefreshOnChange, 0)
	set := []*Handle{NewHandle(&stubRenderer{})}

	p1 := cache.Plan(set, VariantAuto)
	p2 := cache.Plan(set, VariantBinary)
	if p1 == p2 {
		t.Error("override change served the stale plan")
	}
	if p2.Variant != VariantBinary {
		t.Errorf("override variant = %v, want binary", p2.Variant)
	}
}

func TestPlanCacheInvalidatedByTimingVersion(t *testing.T) {
	cache, tracker, _ := newCacheFixture(t, RefreshOnChange, 0)
	set := []*Handle{NewHandle(&stubRenderer{})}

	p1 := cache.Plan(set, VariantAuto)
	tracker.Record("anything", time.Millisecond)
	p2 := cache.Plan(set, VariantAuto)
	if p1 == p2 {
		t.Error("timing version bump served the stale plan")
	}
}

func TestPlanCacheOnChangeIgnoresAge(t *testing.T) {
	cache, _, clock := newCacheFixture(t, RefreshOnChange, 0)
	set := []*Handle{NewHandle(&stubRenderer{})}

	p1 := cache.Plan(set, VariantAuto)
	clock.advance(time.Hour)
	if p2 := cache.Plan(set, VariantAuto); p1 != p2 {
		t.Error("on-change policy expired a plan by age")
	}
}

func TestPlanCacheTimeBoxedRefresh(t *testing.T) {
	cache, _, clock := newCacheFixture(t, RefreshTimeBoxed, 100*time.Millisecond)
	set := []*Handle{NewHandle(&stubRenderer{})}

	p1 := cache.Plan(set, VariantAuto)

	// Younger than the refresh interval: reused.
	clock.advance(99 * time.Millisecond)
	if p2 := cache.Plan(set, VariantAuto); p1 != p2 {
		t.Error("plan younger than refresh interval was recomputed")
	}

	// At the refresh age: replanned.
	clock.advance(1 * time.Millisecond)
	if p3 := cache.Plan(set, VariantAuto); p1 == p3 {
		t.Error("plan at refresh age was reused")
	}
}

func TestPlanCacheInvalidate(t *testing.T) {
	cache, _, _ := newCacheFixture(t, RefreshOnChange, 0)
	set := []*Handle{NewHandle(&stubRenderer{})}

	p1 := cache.Plan(set, VariantAuto)
	cache.Invalidate()
	if p2 := cache.Plan(set, VariantAuto); p1 == p2 {
		t.Error("Invalidate did not drop the cached plan")
	}
}

func TestNewPlanCacheValidation(t *testing.T) {
	cache, tracker, _ := newCacheFixture(t, RefreshOnChange, 0)
	_ = cache

	planner, _ := NewPlanner(tracker, PlannerConfig{Default: VariantIterative})
	if _, err := NewPlanCache(planner, tracker, RefreshTimeBoxed, 0); err == nil {
		t.Error("time-boxed policy with zero max age accepted")
	}
	if _, err := NewPlanCache(planner, tracker, RefreshPolicy(5), 0); err == nil {
		t.Error("unknown refresh policy accepted")
	}
}
