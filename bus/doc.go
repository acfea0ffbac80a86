// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package bus is the peripheral event bus: pub/sub fan-out of device
// events plus a latest-value state store.
//
// Peripherals (physical or virtual) Emit events; consumers Subscribe by
// event type. Every emitted event also lands in the StateStore keyed by
// (event type, producer id), so renderers can read the most recent
// device state without subscribing. Handler failures are isolated: one
// panicking or erroring subscriber never blocks other subscribers or
// the store update.
//
// Virtual peripherals derive events from other events: a registered
// VirtualDefinition listens to its input types and re-emits transformed
// events under its own output type and producer id.
package bus
