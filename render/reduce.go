// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"sync"

	"github.com/pulseframe/pulseframe/internal/parallel"
	"github.com/pulseframe/pulseframe/surface"
)

// Reduce merges surfaces by parallel pairwise tree reduction across the
// pool: adjacent pairs merge concurrently each round, so n surfaces take
// O(log n) rounds instead of n-1 sequential merges. An odd tail surface
// is carried through unmerged to the next round.
//
// The merge operator is the composer's source-over blit, which is
// associative, so any pairing order yields the composite of the ordered
// input. No surface is touched by more than one task per round.
//
// A failed merge task fails the whole composition; there are no retries.
func (c *Composer) Reduce(pool *parallel.WorkerPool, surfaces []*surface.Surface) (*surface.Surface, error) {
	switch len(surfaces) {
	case 0:
		return nil, ErrNoSurfaces
	case 1:
		return surfaces[0], nil
	}
	if pool == nil {
		// No pool, no parallelism; fold serially.
		return c.composeInPlace(surfaces)
	}

	round := surfaces
	for len(round) > 1 {
		pairs := len(round) / 2
		next := make([]*surface.Surface, 0, pairs+1)

		var mu sync.Mutex
		var firstErr error

		work := make([]func(), pairs)
		for i := 0; i < pairs; i++ {
			dst := round[2*i]
			src := round[2*i+1]
			work[i] = func() {
				if err := c.blit(dst, src); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					return
				}
				c.pool.Put(src)
			}
			next = append(next, dst)
		}
		if len(round)%2 == 1 {
			next = append(next, round[len(round)-1])
		}

		pool.ExecuteAll(work)
		if firstErr != nil {
			return nil, firstErr
		}
		round = next
	}
	return round[0], nil
}
