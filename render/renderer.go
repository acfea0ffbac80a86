// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/pulseframe/pulseframe/surface"
)

// DisplayMode tags how a renderer's output participates in composition.
type DisplayMode int

const (
	// DisplayFull composes the renderer's surface as-is.
	DisplayFull DisplayMode = iota

	// DisplayMirrored reflects the left half of the surface onto the
	// right half before composition, for folded physical layouts.
	DisplayMirrored

	// DisplayGPU marks output destined for a GPU present target. The
	// engine composes it like DisplayFull; the display layer decides how
	// the composed frame reaches the device.
	DisplayGPU
)

// String returns the mode name.
func (m DisplayMode) String() string {
	switch m {
	case DisplayFull:
		return "full"
	case DisplayMirrored:
		return "mirrored"
	case DisplayGPU:
		return "gpu"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// Renderer is the unit of drawing the engine schedules. One renderer
// produces at most one surface per frame from its current state snapshot.
//
// Initialize establishes the first state snapshot and must be called
// before Render; calling Render first is a programming error and
// implementations are expected to panic. Render draws into dst and
// returns the surface to compose, which is usually dst itself; returning
// a nil surface (with nil error) skips this renderer for the frame.
// Reset discards state and subscriptions, returning the renderer to the
// uninitialized state.
//
// Render must use only the renderer's own frozen snapshot: the engine
// may invoke different renderers' Render concurrently, but never the
// same renderer twice in one frame.
type Renderer interface {
	Initialize(ctx context.Context) error
	Render(dst *surface.Surface) (*surface.Surface, error)
	Reset()
	DisplayMode() DisplayMode
}

// Handle pairs a renderer with a stable identity for plan signatures.
type Handle struct {
	id string
	r  Renderer
}

// NewHandle wraps a renderer with a generated stable id.
func NewHandle(r Renderer) *Handle {
	return &Handle{id: uuid.NewString(), r: r}
}

// ID returns the handle's stable identity.
func (h *Handle) ID() string { return h.id }

// Renderer returns the wrapped renderer.
func (h *Handle) Renderer() Renderer { return h.r }

// Name returns a diagnostic name for the handle: the renderer's concrete
// type plus the short id. Used as the timing-tracker key so estimates
// survive Reset but stay per-instance.
func (h *Handle) Name() string {
	return fmt.Sprintf("%T#%s", h.r, h.id[:8])
}
