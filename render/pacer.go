// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"fmt"
	"time"
)

// PacingStrategy selects how the frame loop spaces renders.
type PacingStrategy int

const (
	// PacingOff paces to the fixed interval derived from FPS and
	// MinInterval, ignoring measured cost. Late frames render
	// immediately; the pacer never sleeps negative and never skips
	// frames to catch up.
	PacingOff PacingStrategy = iota

	// PacingAdaptive additionally stretches the interval to
	// estimatedCost / Utilization, reserving headroom when the measured
	// cost approaches the frame budget.
	PacingAdaptive
)

// String returns the strategy name as it appears in configuration.
func (s PacingStrategy) String() string {
	switch s {
	case PacingOff:
		return "off"
	case PacingAdaptive:
		return "adaptive"
	default:
		return fmt.Sprintf("pacing(%d)", int(s))
	}
}

// PacerConfig configures a Pacer. All validation happens at
// construction; a pacer never produces a negative or non-finite target
// interval at runtime.
type PacerConfig struct {
	Strategy PacingStrategy

	// FPS is the target frame rate. Zero selects 60.
	FPS float64

	// MinInterval is a lower bound on the target interval regardless of
	// FPS. Zero means no bound.
	MinInterval time.Duration

	// Utilization is the fraction of wall time the adaptive strategy
	// lets rendering consume, in (0, 1]. 1.0 runs exactly as fast as
	// the slowest measured cost permits; lower values reserve headroom.
	// Ignored by PacingOff. Zero selects 1.0.
	Utilization float64
}

// Pacer decides when the next frame may render and how long to sleep
// until then. It keeps only the last-render timestamp; the caller
// supplies the clock, which keeps tests deterministic.
type Pacer struct {
	cfg          PacerConfig
	baseInterval time.Duration

	lastRender time.Time
	rendered   bool
}

// NewPacer validates cfg and creates a pacer.
func NewPacer(cfg PacerConfig) (*Pacer, error) {
	switch cfg.Strategy {
	case PacingOff, PacingAdaptive:
	default:
		return nil, fmt.Errorf("render: unknown pacing strategy %d", int(cfg.Strategy))
	}
	if cfg.FPS < 0 {
		return nil, fmt.Errorf("render: fps must be >= 0, got %v", cfg.FPS)
	}
	if cfg.MinInterval < 0 {
		return nil, fmt.Errorf("render: min interval must be >= 0, got %v", cfg.MinInterval)
	}
	if cfg.Strategy == PacingAdaptive {
		if cfg.Utilization < 0 || cfg.Utilization > 1 {
			return nil, fmt.Errorf("render: utilization target must be in (0,1], got %v", cfg.Utilization)
		}
		if cfg.Utilization == 0 {
			cfg.Utilization = 1.0
		}
	}
	if cfg.FPS == 0 {
		cfg.FPS = 60
	}
	return &Pacer{
		cfg:          cfg,
		baseInterval: time.Duration(float64(time.Second) / cfg.FPS),
	}, nil
}

// TargetInterval returns the interval the pacer is currently aiming for:
// the maximum of the FPS-derived base interval, the configured minimum,
// and (adaptive only) estimatedCost scaled by the utilization target.
func (p *Pacer) TargetInterval(estimatedCost time.Duration) time.Duration {
	interval := p.baseInterval
	if p.cfg.MinInterval > interval {
		interval = p.cfg.MinInterval
	}
	if p.cfg.Strategy == PacingAdaptive && estimatedCost > 0 {
		adaptive := time.Duration(float64(estimatedCost) / p.cfg.Utilization)
		if adaptive > interval {
			interval = adaptive
		}
	}
	return interval
}

// ShouldRender reports whether enough time has elapsed since the last
// render. The first call always renders.
func (p *Pacer) ShouldRender(now time.Time, estimatedCost time.Duration) bool {
	if !p.rendered {
		return true
	}
	return now.Sub(p.lastRender) >= p.TargetInterval(estimatedCost)
}

// Delay returns how long to sleep before the next render is due,
// clamped to zero when already late.
func (p *Pacer) Delay(now time.Time, estimatedCost time.Duration) time.Duration {
	if !p.rendered {
		return 0
	}
	remaining := p.TargetInterval(estimatedCost) - now.Sub(p.lastRender)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// MarkRendered records that a frame was presented at now.
func (p *Pacer) MarkRendered(now time.Time) {
	p.lastRender = now
	p.rendered = true
}
