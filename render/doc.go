// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render implements the composition and scheduling engine: it
// decides per frame how to combine the outputs of N renderers into one
// surface within a latency budget.
//
// The pipeline per frame is plan, collect, compose. A Planner consults a
// TimingTracker's per-renderer cost estimates to choose between the
// iterative (serial) and binary (parallel tree reduction) strategies; a
// PlanCache memoizes that decision until the renderer set, override, or
// cost model changes. A Collector gathers one surface per renderer,
// serially or across a worker pool, and a Composer reduces the surfaces
// to a single frame. A Pacer spaces frames to the configured rate.
package render
