// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package pulseframe

import (
	"github.com/pulseframe/pulseframe/bus"
	"github.com/pulseframe/pulseframe/display"
	"github.com/pulseframe/pulseframe/render"
)

// EngineOption configures an Engine during creation.
//
// Example:
//
//	target := display.NewPixmapTarget(320, 240)
//	eng, err := pulseframe.New(cfg, pulseframe.WithTarget(target))
type EngineOption func(*engineOptions)

// engineOptions holds optional wiring for Engine creation.
type engineOptions struct {
	target   display.Target
	bus      *bus.Bus
	observer FrameObserver
	override render.Variant
	workers  int
}

// WithTarget sets the display target composed frames are presented to.
// Without it the engine creates a PixmapTarget at frame size.
func WithTarget(t display.Target) EngineOption {
	return func(o *engineOptions) {
		o.target = t
	}
}

// WithBus attaches an existing event bus so renderers, virtual
// peripherals and the engine share one event domain. Without it the
// engine creates its own.
func WithBus(b *bus.Bus) EngineOption {
	return func(o *engineOptions) {
		o.bus = b
	}
}

// WithObserver sets the per-frame stats hook. The metrics package's
// Recorder is the usual observer.
func WithObserver(obs FrameObserver) EngineOption {
	return func(o *engineOptions) {
		o.observer = obs
	}
}

// WithPlanOverride pins every frame to one variant, bypassing the
// planner's decision. VariantAuto restores normal planning.
func WithPlanOverride(v render.Variant) EngineOption {
	return func(o *engineOptions) {
		o.override = v
	}
}

// WithWorkers overrides the configured worker pool size.
func WithWorkers(n int) EngineOption {
	return func(o *engineOptions) {
		o.workers = n
	}
}
