// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package bus

import (
	"fmt"
	"time"
)

// Event is one immutable input observation. Events are identified by
// (Type, Producer, Seq) — not by timestamp, since multiple producers can
// share one. Seq is assigned by the bus at emission in per-bus order.
//
// Data is treated as frozen once emitted: neither the bus nor any
// consumer may mutate it.
type Event struct {
	// Type names the kind of observation ("button.press", "hr.sample").
	Type string

	// Data is the opaque structured payload.
	Data any

	// Producer distinguishes instances emitting the same type.
	Producer int

	// Seq is the bus-assigned emission order, starting at 1.
	Seq uint64

	// Timestamp is when the event was emitted.
	Timestamp time.Time
}

// Key returns the state-store key for this event.
func (e Event) Key() EventKey {
	return EventKey{Type: e.Type, Producer: e.Producer}
}

// String returns a compact diagnostic form.
func (e Event) String() string {
	return fmt.Sprintf("%s/%d#%d", e.Type, e.Producer, e.Seq)
}

// EventKey identifies one producer's stream of one event type.
type EventKey struct {
	Type     string
	Producer int
}
