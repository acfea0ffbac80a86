// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"

	"github.com/pulseframe/pulseframe/surface"
)

// ErrNoSurfaces is returned when composition is asked to reduce an
// empty surface list.
var ErrNoSurfaces = errors.New("render: no surfaces to compose")

// MergeStrategy selects how the serial composer reduces surfaces.
type MergeStrategy int

const (
	// MergeInPlace blits surfaces[1..] successively onto surfaces[0].
	// Cheapest, but the first surface is consumed as the destination.
	MergeInPlace MergeStrategy = iota

	// MergeBatched queues every blit against one pre-cleared pooled
	// destination and flushes once, leaving the inputs untouched.
	MergeBatched
)

// String returns the strategy name as it appears in configuration.
func (m MergeStrategy) String() string {
	switch m {
	case MergeInPlace:
		return "in_place"
	case MergeBatched:
		return "batched"
	default:
		return fmt.Sprintf("merge(%d)", int(m))
	}
}

// TileStrategy selects the inner blit implementation.
type TileStrategy int

const (
	// TileBlits uses the standard library draw fast path.
	TileBlits TileStrategy = iota

	// TileLoop uses a direct pixel loop, cheaper for many small blits
	// where per-draw setup dominates.
	TileLoop
)

// String returns the strategy name as it appears in configuration.
func (s TileStrategy) String() string {
	switch s {
	case TileBlits:
		return "blits"
	case TileLoop:
		return "loop"
	default:
		return fmt.Sprintf("tile(%d)", int(s))
	}
}

// Composer reduces a list of equal-sized surfaces to one. The source-over
// blit it uses is associative, which the binary reduction depends on.
type Composer struct {
	merge MergeStrategy
	tile  TileStrategy
	pool  *surface.Pool
}

// NewComposer creates a composer. pool is required: batched composition
// draws into pooled destinations and every strategy recycles consumed
// inputs through it.
func NewComposer(merge MergeStrategy, tile TileStrategy, pool *surface.Pool) (*Composer, error) {
	switch merge {
	case MergeInPlace, MergeBatched:
	default:
		return nil, fmt.Errorf("render: unknown merge strategy %d", int(merge))
	}
	switch tile {
	case TileBlits, TileLoop:
	default:
		return nil, fmt.Errorf("render: unknown tile strategy %d", int(tile))
	}
	if pool == nil {
		return nil, fmt.Errorf("render: composer requires a surface pool")
	}
	return &Composer{merge: merge, tile: tile, pool: pool}, nil
}

// blit applies the configured inner blit. Source-over in either
// implementation.
func (c *Composer) blit(dst, src *surface.Surface) error {
	if c.tile == TileLoop {
		return surface.BlitOverPixels(dst, src)
	}
	return surface.BlitOver(dst, src)
}

// Compose reduces surfaces serially per the merge strategy. Inputs other
// than the returned surface are recycled into the pool; the caller owns
// the result and should Release it after presenting.
func (c *Composer) Compose(surfaces []*surface.Surface) (*surface.Surface, error) {
	switch len(surfaces) {
	case 0:
		return nil, ErrNoSurfaces
	case 1:
		return surfaces[0], nil
	}

	if c.merge == MergeBatched {
		return c.composeBatched(surfaces)
	}
	return c.composeInPlace(surfaces)
}

// composeInPlace folds surfaces[1..] onto surfaces[0] in order.
func (c *Composer) composeInPlace(surfaces []*surface.Surface) (*surface.Surface, error) {
	dst := surfaces[0]
	for _, src := range surfaces[1:] {
		if err := c.blit(dst, src); err != nil {
			return nil, err
		}
		c.pool.Put(src)
	}
	return dst, nil
}

// composeBatched queues every input against one cleared destination and
// flushes the queue in a single pass.
func (c *Composer) composeBatched(surfaces []*surface.Surface) (*surface.Surface, error) {
	first := surfaces[0]
	dst := c.pool.Get(first.Width(), first.Height())

	// The queue is the input list itself; flushing is one ordered pass.
	for _, src := range surfaces {
		if err := c.blit(dst, src); err != nil {
			c.pool.Put(dst)
			return nil, err
		}
	}
	for _, src := range surfaces {
		c.pool.Put(src)
	}
	return dst, nil
}

// Release returns a composed surface to the pool once presented.
func (c *Composer) Release(s *surface.Surface) {
	if s != nil {
		c.pool.Put(s)
	}
}
