// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package peripheral

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/pulseframe/pulseframe/bus"
)

// Runner supervises peripheral loops. Each started peripheral runs on
// its own goroutine and emits into the shared bus; a loop that fails is
// logged and left stopped — device recovery is a collaborator concern,
// not something the core retries.
//
// Runner is safe for concurrent use.
type Runner struct {
	bus    *bus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	closed  bool

	wg sync.WaitGroup
}

// NewRunner creates a runner emitting into b. logger may be nil for
// silence.
func NewRunner(b *bus.Bus, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(discardHandler{})
	}
	return &Runner{
		bus:     b,
		logger:  logger,
		cancels: make(map[string]context.CancelFunc),
	}
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

// Start launches p's loop. The returned id stops exactly this instance
// via Stop, even when several peripherals share a name.
func (r *Runner) Start(ctx context.Context, p Peripheral) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", errors.New("peripheral: runner closed")
	}

	id := uuid.NewString()
	loopCtx, cancel := context.WithCancel(ctx)
	r.cancels[id] = cancel

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			r.mu.Lock()
			delete(r.cancels, id)
			r.mu.Unlock()
		}()

		r.logger.Info("peripheral: started", "name", p.Name(), "id", id)
		err := p.Run(loopCtx, r.bus.Emit)
		switch {
		case err == nil, errors.Is(err, context.Canceled):
			r.logger.Info("peripheral: stopped", "name", p.Name(), "id", id)
		default:
			r.logger.Warn("peripheral: loop failed", "name", p.Name(), "id", id, "error", err)
		}
	}()
	return id, nil
}

// StartDetected runs detection and starts every discovered peripheral.
func (r *Runner) StartDetected(ctx context.Context, d Detector) ([]string, error) {
	found, err := d.Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("peripheral: detect: %w", err)
	}

	ids := make([]string, 0, len(found))
	for _, p := range found {
		id, err := r.Start(ctx, p)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Stop cancels one peripheral loop. Unknown ids are a no-op.
func (r *Runner) Stop(id string) {
	r.mu.Lock()
	cancel := r.cancels[id]
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Running returns the number of live peripheral loops.
func (r *Runner) Running() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cancels)
}

// Close cancels every loop and waits for all of them to exit, so the
// underlying device resources are released only after in-flight work
// finishes.
func (r *Runner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, cancel := range r.cancels {
		cancel()
	}
	r.mu.Unlock()

	r.wg.Wait()
}
