// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"strings"
	"time"
)

// Variant names a composition strategy choice.
type Variant int

const (
	// VariantAuto lets the planner pick from measured cost. Plans never
	// carry Auto; it appears only as a default or "no override" marker.
	VariantAuto Variant = iota

	// VariantIterative collects and composes serially.
	VariantIterative

	// VariantBinary collects across the worker pool and composes by
	// parallel pairwise reduction.
	VariantBinary
)

// String returns the variant name as it appears in configuration.
func (v Variant) String() string {
	switch v {
	case VariantAuto:
		return "auto"
	case VariantIterative:
		return "iterative"
	case VariantBinary:
		return "binary"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// SignatureStrategy selects how a renderer set is keyed for plan caching.
type SignatureStrategy int

const (
	// SignatureIdentity keys by renderer instance: two same-typed
	// renderers with different internal configuration never share a
	// plan. The safe default.
	SignatureIdentity SignatureStrategy = iota

	// SignatureType keys by concrete renderer type, treating same-typed
	// renderers as interchangeable. An opt-in optimization: it serves a
	// stale plan across behaviorally different same-typed instances.
	SignatureType
)

// String returns the strategy name as it appears in configuration.
func (s SignatureStrategy) String() string {
	switch s {
	case SignatureIdentity:
		return "identity"
	case SignatureType:
		return "type"
	default:
		return fmt.Sprintf("signature(%d)", int(s))
	}
}

// Signature derives the cache key for a renderer set. Order matters:
// composition is order-sensitive, so a reordered set is a different set.
func Signature(handles []*Handle, strategy SignatureStrategy) string {
	if len(handles) == 0 {
		return "empty"
	}
	parts := make([]string, len(handles))
	for i, h := range handles {
		if strategy == SignatureType {
			parts[i] = fmt.Sprintf("%T", h.Renderer())
		} else {
			parts[i] = h.ID()
		}
	}
	return strings.Join(parts, "|")
}

// Plan is the immutable outcome of one planning decision. Plans are
// recomputed, never mutated; a cache hit hands back the same *Plan.
type Plan struct {
	// Variant is the chosen strategy, always Iterative or Binary.
	Variant Variant

	// Signature identifies the renderer set the plan was computed for.
	Signature string

	// GeneratedAt is when the planner produced this plan.
	GeneratedAt time.Time
}

// PlannerConfig bounds the auto decision.
type PlannerConfig struct {
	// Default is the variant used when no override is given. Auto
	// consults the timing tracker.
	Default Variant

	// FrameBudget is the per-frame latency budget the auto decision
	// compares estimated serial cost against. Zero selects 1s/60.
	FrameBudget time.Duration

	// ParallelThreshold is the fraction of FrameBudget above which the
	// estimated serial cost tips the decision to VariantBinary. Zero
	// selects 0.5.
	ParallelThreshold float64

	// Fallback is the variant for sets with unestimated (cold)
	// renderers under Auto. Zero value selects VariantIterative.
	Fallback Variant

	// Signature selects the cache key strategy, also used to stamp
	// plans.
	Signature SignatureStrategy

	// Now supplies the clock, for tests. Nil selects time.Now.
	Now func() time.Time
}

// Planner decides, per frame, which composition variant to use.
type Planner struct {
	cfg     PlannerConfig
	tracker *TimingTracker
}

// NewPlanner creates a planner over the tracker's cost estimates.
func NewPlanner(tracker *TimingTracker, cfg PlannerConfig) (*Planner, error) {
	switch cfg.Default {
	case VariantAuto, VariantIterative, VariantBinary:
	default:
		return nil, fmt.Errorf("render: unknown default variant %d", int(cfg.Default))
	}
	if cfg.ParallelThreshold < 0 {
		return nil, fmt.Errorf("render: parallel threshold must be >= 0, got %v", cfg.ParallelThreshold)
	}
	if cfg.FrameBudget < 0 {
		return nil, fmt.Errorf("render: frame budget must be >= 0, got %v", cfg.FrameBudget)
	}
	if cfg.FrameBudget == 0 {
		cfg.FrameBudget = time.Second / 60
	}
	if cfg.ParallelThreshold == 0 {
		cfg.ParallelThreshold = 0.5
	}
	if cfg.Fallback == VariantAuto {
		cfg.Fallback = VariantIterative
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Planner{cfg: cfg, tracker: tracker}, nil
}

// Plan produces the plan for the renderer set. A non-Auto override wins
// immediately; otherwise the configured default applies, with Auto
// deciding from the tracker's total estimate. Sets containing cold
// renderers fall back to the configured fallback variant.
func (p *Planner) Plan(handles []*Handle, override Variant) *Plan {
	variant := override
	if variant == VariantAuto {
		variant = p.cfg.Default
	}
	if variant == VariantAuto {
		variant = p.decide(handles)
	}
	return &Plan{
		Variant:     variant,
		Signature:   Signature(handles, p.cfg.Signature),
		GeneratedAt: p.cfg.Now(),
	}
}

func (p *Planner) decide(handles []*Handle) Variant {
	names := make([]string, len(handles))
	for i, h := range handles {
		names[i] = h.Name()
	}
	estimate, allKnown := p.tracker.Estimate(names)
	if !allKnown {
		return p.cfg.Fallback
	}
	threshold := time.Duration(p.cfg.ParallelThreshold * float64(p.cfg.FrameBudget))
	if estimate > threshold {
		return VariantBinary
	}
	return VariantIterative
}
