// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pulseframe/pulseframe/internal/parallel"
	"github.com/pulseframe/pulseframe/surface"
)

// Collector gathers one surface per renderer, serially or across the
// worker pool. Output order always matches input order; a renderer that
// returns a nil surface is skipped. Observed render durations feed the
// timing tracker.
type Collector struct {
	width   int
	height  int
	tracker *TimingTracker
	pool    *parallel.WorkerPool
	sPool   *surface.Pool
	filter  surface.Filter
}

// NewCollector creates a collector producing width x height surfaces.
// tracker may be nil to skip timing; pool is required for parallel
// collection; sPool is required and supplies renderer surfaces.
func NewCollector(width, height int, tracker *TimingTracker, pool *parallel.WorkerPool, sPool *surface.Pool, filter surface.Filter) (*Collector, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("render: collector size must be positive, got %dx%d", width, height)
	}
	if sPool == nil {
		return nil, fmt.Errorf("render: collector requires a surface pool")
	}
	return &Collector{
		width:   width,
		height:  height,
		tracker: tracker,
		pool:    pool,
		sPool:   sPool,
		filter:  filter,
	}, nil
}

// Collect renders every handle and returns the produced surfaces in
// input order, nil entries elided. The first renderer error fails the
// whole collection; the engine treats that as a failed frame.
//
// ctx gates only the start of collection. Once started, a frame runs to
// completion; there is no mid-frame cancellation.
func (c *Collector) Collect(ctx context.Context, handles []*Handle, useParallel bool) ([]*surface.Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(handles) == 0 {
		return nil, nil
	}
	if useParallel && c.pool != nil && len(handles) > 1 {
		return c.collectParallel(handles)
	}
	return c.collectSerial(handles)
}

func (c *Collector) collectSerial(handles []*Handle) ([]*surface.Surface, error) {
	out := make([]*surface.Surface, 0, len(handles))
	for _, h := range handles {
		s, err := c.renderOne(h)
		if err != nil {
			c.release(out)
			return nil, err
		}
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (c *Collector) collectParallel(handles []*Handle) ([]*surface.Surface, error) {
	results := make([]*surface.Surface, len(handles))

	var mu sync.Mutex
	var firstErr error

	work := make([]func(), len(handles))
	for i, h := range handles {
		i, h := i, h
		work[i] = func() {
			s, err := c.renderOne(h)
			if err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				return
			}
			results[i] = s
		}
	}
	c.pool.ExecuteAll(work)

	if firstErr != nil {
		c.release(results)
		return nil, firstErr
	}

	// Compact while preserving input order.
	out := results[:0]
	for _, s := range results {
		if s != nil {
			out = append(out, s)
		}
	}
	return out, nil
}

// renderOne gives the handle a cleared pooled surface, times the render,
// and normalizes the output per display mode.
func (c *Collector) renderOne(h *Handle) (*surface.Surface, error) {
	dst := c.sPool.Get(c.width, c.height)

	start := time.Now()
	out, err := h.Renderer().Render(dst)
	elapsed := time.Since(start)

	if c.tracker != nil {
		c.tracker.Record(h.Name(), elapsed)
	}
	if err != nil {
		c.sPool.Put(dst)
		return nil, fmt.Errorf("render: renderer %s: %w", h.Name(), err)
	}
	if out == nil {
		c.sPool.Put(dst)
		return nil, nil
	}
	if out != dst {
		// Renderer substituted its own surface; recycle ours and
		// normalize the substitute to frame size.
		c.sPool.Put(dst)
		if out.Width() != c.width || out.Height() != c.height {
			scaled := c.sPool.Get(c.width, c.height)
			surface.ScaleInto(scaled, out, c.filter)
			out = scaled
		}
	}

	if h.Renderer().DisplayMode() == DisplayMirrored {
		// Mirror reads src while writing dst, so it needs distinct
		// buffers.
		mirrored := c.sPool.Get(c.width, c.height)
		surface.Mirror(mirrored, out, c.filter)
		c.sPool.Put(out)
		out = mirrored
	}
	return out, nil
}

// release returns surfaces to the pool after a failed collection.
func (c *Collector) release(surfaces []*surface.Surface) {
	for _, s := range surfaces {
		if s != nil {
			c.sPool.Put(s)
		}
	}
}
