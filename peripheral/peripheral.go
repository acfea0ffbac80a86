// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package peripheral runs input devices on background goroutines and
// forwards their events into the bus, keeping all device I/O off the
// render loop.
package peripheral

import (
	"context"

	"github.com/pulseframe/pulseframe/bus"
)

// Peripheral is one input device loop: physical hardware behind a
// driver, a simulator, or a network bridge. Run polls or listens until
// ctx is canceled, handing each observation to emit. Run's error is the
// reason the loop ended; context.Canceled is a clean shutdown.
//
// Peripherals never retry themselves; supervision belongs to the
// Runner.
type Peripheral interface {
	Name() string
	Run(ctx context.Context, emit func(bus.Event)) error
}

// Detector discovers attached peripherals. Implementations come from
// hardware collaborators (BLE scanners, serial enumerators); the core
// only iterates the result.
type Detector interface {
	Detect(ctx context.Context) ([]Peripheral, error)
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func(ctx context.Context) ([]Peripheral, error)

// Detect implements Detector.
func (f DetectorFunc) Detect(ctx context.Context) ([]Peripheral, error) {
	return f(ctx)
}
