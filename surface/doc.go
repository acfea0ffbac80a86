// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package surface provides the pixel buffers renderers draw into and the
// blit operations the composition engine reduces them with.
//
// A Surface is a plain CPU-side RGBA buffer. Renderers receive one Surface
// per frame, draw into it, and hand it back to the engine; the engine then
// merges all produced surfaces into a single output frame. Surfaces are not
// safe for concurrent use — the engine guarantees each surface is owned by
// exactly one goroutine at a time during collection and composition.
//
// The package also provides a Pool for recycling surfaces between frames
// (returned surfaces are cleared before reuse) and the mirror/scale blits
// used for the Mirrored display mode.
package surface
