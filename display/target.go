// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package display

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/pulseframe/pulseframe/surface"
)

// ErrTargetClosed is returned by Present after Close.
var ErrTargetClosed = errors.New("display: target closed")

// Target is one presentation sink for composed frames.
//
// Present is called once per frame from the render loop with the frame
// the compositor produced; the surface is only valid for the duration
// of the call, so targets that retain pixels must copy. A Present error
// fails the frame.
type Target interface {
	// Size returns the dimensions the target expects frames in.
	Size() (width, height int)

	Present(frame *surface.Surface) error

	Close() error
}

// PixmapTarget is a CPU target that retains a copy of the last
// presented frame. It backs headless installations and lets tests
// assert on final frame pixels without a device.
type PixmapTarget struct {
	width, height int

	mu     sync.Mutex
	last   *surface.Surface
	frames uint64
	closed bool
}

// NewPixmapTarget creates a CPU target of the given size.
// Panics on non-positive dimensions.
func NewPixmapTarget(width, height int) *PixmapTarget {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("display: invalid pixmap target size %dx%d", width, height))
	}
	return &PixmapTarget{width: width, height: height}
}

// Size returns the target dimensions.
func (t *PixmapTarget) Size() (int, int) { return t.width, t.height }

// Present copies frame into the retained pixmap. Frames of the wrong
// size are rejected.
func (t *PixmapTarget) Present(frame *surface.Surface) error {
	if frame.Width() != t.width || frame.Height() != t.height {
		return fmt.Errorf("display: frame %dx%d for %dx%d target: %w",
			frame.Width(), frame.Height(), t.width, t.height, surface.ErrSizeMismatch)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return ErrTargetClosed
	}
	if t.last == nil {
		t.last = surface.New(t.width, t.height)
	}
	surface.Copy(t.last, frame, surface.FilterNearest)
	t.frames++
	return nil
}

// Snapshot returns an independent copy of the last presented frame, or
// nil when nothing has been presented yet.
func (t *PixmapTarget) Snapshot() *image.RGBA {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return nil
	}
	return t.last.Snapshot()
}

// Frames returns how many frames have been presented.
func (t *PixmapTarget) Frames() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}

// SavePNG writes the last presented frame to path.
func (t *PixmapTarget) SavePNG(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return errors.New("display: no frame presented yet")
	}
	return t.last.SavePNG(path)
}

// Close releases the retained frame. Present returns ErrTargetClosed
// afterwards; Close is idempotent.
func (t *PixmapTarget) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.last = nil
	return nil
}

var _ Target = (*PixmapTarget)(nil)
