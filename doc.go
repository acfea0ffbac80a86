// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package pulseframe is the core of a real-time installation runtime:
// a renderer composition and scheduling engine paired with a
// peripheral event bus.
//
// The Engine drives the frame pipeline. Each frame it plans a
// composition strategy from measured renderer timings, collects one
// surface per renderer (serially or across a worker pool), composes
// the surfaces into a single frame and presents it to a display
// target. Input devices run as peripherals on background goroutines
// and publish into the event bus; renderers consume state snapshots
// derived from those events, never the devices themselves.
//
// Construction is configuration-driven:
//
//	cfg := pulseframe.DefaultConfig(320, 240)
//	eng, err := pulseframe.New(cfg, pulseframe.WithTarget(target))
//	if err != nil {
//		// invalid configuration is reported field by field
//	}
//	defer eng.Close()
//
//	handle, err := eng.Add(ctx, myRenderer)
//	...
//	err = eng.Run(ctx)
//
// The library is silent by default; pass a logger to SetLogger to see
// lifecycle and per-frame diagnostics.
package pulseframe
