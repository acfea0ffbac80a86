// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package bus

import (
	"fmt"
	"time"
)

// DoubleTapData is the payload of a derived double-tap event.
type DoubleTapData struct {
	// Interval is the observed gap between the two taps.
	Interval time.Duration
}

// doubleTapTransform detects two source events within a rolling window.
// The window state belongs exclusively to this instance.
type doubleTapTransform struct {
	window  time.Duration
	lastTap time.Time
	armed   bool
}

func (t *doubleTapTransform) Transform(e Event) []Event {
	now := e.Timestamp
	if t.armed && now.Sub(t.lastTap) <= t.window {
		// Second tap inside the window: emit one derived event and
		// disarm, so a triple tap yields exactly one double-tap.
		interval := now.Sub(t.lastTap)
		t.armed = false
		return []Event{{
			Data:      DoubleTapData{Interval: interval},
			Timestamp: now,
		}}
	}
	t.lastTap = now
	t.armed = true
	return nil
}

// DoubleTapDefinition builds a virtual peripheral that emits one
// outputType event whenever two inputType events from any producer
// arrive within window.
func DoubleTapDefinition(name, inputType, outputType string, outputProducer int, window time.Duration) (VirtualDefinition, error) {
	if window <= 0 {
		return VirtualDefinition{}, fmt.Errorf("bus: double-tap window must be > 0, got %v", window)
	}
	return VirtualDefinition{
		Name:           name,
		InputTypes:     []string{inputType},
		OutputType:     outputType,
		OutputProducer: outputProducer,
		NewTransform: func() Transform {
			return &doubleTapTransform{window: window}
		},
	}, nil
}
