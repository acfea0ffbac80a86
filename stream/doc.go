// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package stream multiplexes a single value source to many independent
// subscribers under a configurable sharing strategy.
//
// A Stream wraps a SourceFunc (a frame tick, a hardware poll loop, a bus
// subscription) and fans its values out over per-subscriber buffered
// channels. Settings decide whether late subscribers see replayed values
// (none, latest, or a buffer of n), when the source starts (first
// subscribe or an auto-connect threshold), and when it stops (ref-count
// to zero, optionally delayed by a grace window).
//
// The underlying source runs at most once regardless of subscriber
// count, so expensive work is never duplicated.
package stream
