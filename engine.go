// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package pulseframe

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pulseframe/pulseframe/bus"
	"github.com/pulseframe/pulseframe/display"
	"github.com/pulseframe/pulseframe/internal/parallel"
	"github.com/pulseframe/pulseframe/render"
	"github.com/pulseframe/pulseframe/surface"
)

// ErrEngineClosed is returned by frame operations after Close.
var ErrEngineClosed = errors.New("pulseframe: engine closed")

// FrameErrorPolicy selects how Run reacts to a failed frame.
type FrameErrorPolicy int

const (
	// DropFailedFrames logs the failure, counts it, and continues with
	// the next frame.
	DropFailedFrames FrameErrorPolicy = iota

	// HaltOnFrameError stops the loop and returns the error.
	HaltOnFrameError
)

// FrameStats describes one completed frame for observers.
type FrameStats struct {
	// Duration is the wall time of the whole frame: plan, collect,
	// compose and present.
	Duration time.Duration

	// Renderers is how many renderers participated.
	Renderers int

	// Surfaces is how many surfaces the collection produced (renderers
	// minus per-frame skips).
	Surfaces int

	// Variant is the plan variant the frame ran under.
	Variant render.Variant

	// Width and Height are the composed frame dimensions.
	Width, Height int
}

// FrameObserver receives stats after every successfully presented
// frame. Observers run on the render loop and must be fast.
type FrameObserver interface {
	ObserveFrame(FrameStats)
}

// FrameObserverFunc adapts a function to FrameObserver.
type FrameObserverFunc func(FrameStats)

// ObserveFrame implements FrameObserver.
func (f FrameObserverFunc) ObserveFrame(s FrameStats) { f(s) }

// Engine drives the frame pipeline: plan, collect, compose, present.
// It owns the worker pool, surface pool and plan cache, and optionally
// the display target and event bus when none are supplied.
//
// Renderer registration and RenderFrame are safe for concurrent use,
// but frames themselves are produced one at a time.
type Engine struct {
	cfg      Config
	policy   FrameErrorPolicy
	override render.Variant

	tracker   *render.TimingTracker
	planner   *render.Planner
	cache     *render.PlanCache
	collector *render.Collector
	composer  *render.Composer
	pacer     *render.Pacer
	pool      *parallel.WorkerPool
	surfaces  *surface.Pool

	target    display.Target
	ownTarget bool
	bus       *bus.Bus
	ownBus    bool
	observer  FrameObserver

	mu      sync.Mutex
	handles []*render.Handle
	closed  bool

	frames  atomic.Uint64
	dropped atomic.Uint64
}

// New validates cfg and builds the engine with its full pipeline.
func New(cfg Config, opts ...EngineOption) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o engineOptions
	for _, opt := range opts {
		opt(&o)
	}

	strategy, alpha := cfg.timingStrategy()
	tracker, err := render.NewTimingTracker(strategy, alpha)
	if err != nil {
		return nil, err
	}
	planner, err := render.NewPlanner(tracker, render.PlannerConfig{
		Default:   cfg.defaultVariant(),
		Signature: cfg.signatureStrategy(),
	})
	if err != nil {
		return nil, err
	}
	policy, maxAge := cfg.refreshPolicy()
	cache, err := render.NewPlanCache(planner, tracker, policy, maxAge)
	if err != nil {
		return nil, err
	}

	workers := cfg.Workers
	if o.workers > 0 {
		workers = o.workers
	}
	pool := parallel.NewWorkerPool(workers)
	surfaces := surface.NewPool(0)

	collector, err := render.NewCollector(cfg.Width, cfg.Height, tracker, pool, surfaces, cfg.scaleFilter())
	if err != nil {
		pool.Close()
		return nil, err
	}
	composer, err := render.NewComposer(cfg.mergeStrategy(), cfg.tileStrategy(), surfaces)
	if err != nil {
		pool.Close()
		return nil, err
	}
	pacer, err := render.NewPacer(cfg.pacerConfig())
	if err != nil {
		pool.Close()
		return nil, err
	}

	e := &Engine{
		cfg:       cfg,
		policy:    cfg.frameErrorPolicy(),
		override:  o.override,
		tracker:   tracker,
		planner:   planner,
		cache:     cache,
		collector: collector,
		composer:  composer,
		pacer:     pacer,
		pool:      pool,
		surfaces:  surfaces,
		target:    o.target,
		bus:       o.bus,
		observer:  o.observer,
	}
	if e.target == nil {
		e.target = display.NewPixmapTarget(cfg.Width, cfg.Height)
		e.ownTarget = true
	}
	if e.bus == nil {
		e.bus = bus.New(bus.WithLogger(Logger()))
		e.ownBus = true
	}
	return e, nil
}

// Bus returns the engine's event bus.
func (e *Engine) Bus() *bus.Bus { return e.bus }

// Target returns the display target frames are presented to.
func (e *Engine) Target() display.Target { return e.target }

// Tracker returns the shared timing tracker, for metrics exporters.
func (e *Engine) Tracker() *render.TimingTracker { return e.tracker }

// PlanCache returns the engine's plan cache, for metrics exporters.
func (e *Engine) PlanCache() *render.PlanCache { return e.cache }

// Frames returns how many frames have been presented.
func (e *Engine) Frames() uint64 { return e.frames.Load() }

// Dropped returns how many frames failed under DropFailedFrames.
func (e *Engine) Dropped() uint64 { return e.dropped.Load() }

// Add initializes the renderer and registers it for subsequent frames.
// The returned handle's ID removes exactly this instance.
func (e *Engine) Add(ctx context.Context, r render.Renderer) (*render.Handle, error) {
	h := render.NewHandle(r)
	if err := r.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("pulseframe: initialize renderer %s: %w", h.Name(), err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		r.Reset()
		return nil, ErrEngineClosed
	}
	e.handles = append(e.handles, h)
	Logger().Info("pulseframe: renderer added", "name", h.Name(), "count", len(e.handles))
	return h, nil
}

// Remove unregisters a renderer and resets it. Unknown ids are a no-op.
func (e *Engine) Remove(id string) bool {
	e.mu.Lock()
	var removed *render.Handle
	for i, h := range e.handles {
		if h.ID() == id {
			removed = h
			e.handles = append(e.handles[:i], e.handles[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	if removed == nil {
		return false
	}
	removed.Renderer().Reset()
	Logger().Info("pulseframe: renderer removed", "name", removed.Name())
	return true
}

// Renderers returns how many renderers are registered.
func (e *Engine) Renderers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.handles)
}

// snapshotHandles copies the registration list so a frame sees a stable
// set even while Add/Remove run concurrently.
func (e *Engine) snapshotHandles() ([]*render.Handle, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrEngineClosed
	}
	out := make([]*render.Handle, len(e.handles))
	copy(out, e.handles)
	return out, nil
}

// RenderFrame produces and presents one frame: plan, collect, compose,
// present, observe. With no renderers registered, or when every
// renderer skips, the frame is a no-op and nothing is presented.
//
// ctx gates only the start of the frame; once collection begins the
// frame runs to completion.
func (e *Engine) RenderFrame(ctx context.Context) error {
	handles, err := e.snapshotHandles()
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()

	plan := e.cache.Plan(handles, e.override)
	useParallel := plan.Variant == render.VariantBinary
	Logger().Debug("pulseframe: frame planned", "variant", plan.Variant, "renderers", len(handles))

	surfaces, err := e.collector.Collect(ctx, handles, useParallel)
	if err != nil {
		return err
	}
	if len(surfaces) == 0 {
		return nil
	}
	produced := len(surfaces)

	var frame *surface.Surface
	if useParallel {
		frame, err = e.composer.Reduce(e.pool, surfaces)
	} else {
		frame, err = e.composer.Compose(surfaces)
	}
	if err != nil {
		return err
	}

	err = e.target.Present(frame)
	e.composer.Release(frame)
	if err != nil {
		return fmt.Errorf("pulseframe: present: %w", err)
	}

	e.pacer.MarkRendered(time.Now())
	e.frames.Add(1)

	if e.observer != nil {
		e.observer.ObserveFrame(FrameStats{
			Duration:  time.Since(start),
			Renderers: len(handles),
			Surfaces:  produced,
			Variant:   plan.Variant,
			Width:     e.cfg.Width,
			Height:    e.cfg.Height,
		})
	}
	return nil
}

// estimatedCost asks the tracker for the serial cost of the current
// renderer set, for the pacer. Cold sets estimate zero.
func (e *Engine) estimatedCost() time.Duration {
	e.mu.Lock()
	names := make([]string, len(e.handles))
	for i, h := range e.handles {
		names[i] = h.Name()
	}
	e.mu.Unlock()

	estimate, _ := e.tracker.Estimate(names)
	return estimate
}

// Run drives the paced frame loop until ctx is canceled or, under
// HaltOnFrameError, a frame fails. Cancellation is honored between
// frames only; an in-flight frame always completes.
func (e *Engine) Run(ctx context.Context) error {
	Logger().Info("pulseframe: engine running",
		"size", fmt.Sprintf("%dx%d", e.cfg.Width, e.cfg.Height),
		"pacing", e.cfg.pacerConfig().Strategy.String())

	timer := time.NewTimer(time.Hour)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		if err := ctx.Err(); err != nil {
			Logger().Info("pulseframe: engine stopped")
			return err
		}

		cost := e.estimatedCost()
		if delay := e.pacer.Delay(time.Now(), cost); delay > 0 {
			timer.Reset(delay)
			select {
			case <-ctx.Done():
				Logger().Info("pulseframe: engine stopped")
				return ctx.Err()
			case <-timer.C:
			}
		}

		err := e.RenderFrame(ctx)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			Logger().Info("pulseframe: engine stopped")
			return err
		case errors.Is(err, ErrEngineClosed):
			return err
		case e.policy == HaltOnFrameError:
			Logger().Warn("pulseframe: frame failed, halting", "error", err)
			return err
		default:
			e.dropped.Add(1)
			Logger().Warn("pulseframe: frame dropped", "error", err)
		}
	}
}

// Close resets every renderer, stops the worker pool and releases the
// resources the engine owns. Idempotent; a supplied target or bus stays
// open for its owner.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	handles := e.handles
	e.handles = nil
	e.mu.Unlock()

	for _, h := range handles {
		h.Renderer().Reset()
	}
	e.pool.Close()

	var err error
	if e.ownTarget {
		err = e.target.Close()
	}
	if e.ownBus {
		e.bus.Close()
	}
	Logger().Info("pulseframe: engine closed")
	return err
}
