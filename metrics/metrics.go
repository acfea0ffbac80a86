// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package metrics exports engine, bus and plan cache statistics to
// Prometheus. The Recorder is a FrameObserver: push metrics (frame
// durations) update as frames complete, while counters held by the
// engine and bus are pulled at scrape time.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pulseframe/pulseframe"
	"github.com/pulseframe/pulseframe/bus"
)

// Recorder holds the Prometheus collectors for one engine.
type Recorder struct {
	registry *prometheus.Registry

	frameDuration  prometheus.Histogram
	framesTotal    prometheus.Counter
	framesVariant  *prometheus.CounterVec
	framesDropped  prometheus.Gauge
	rendererAvg    *prometheus.GaugeVec
	planCacheHits  prometheus.Gauge
	planCacheMiss  prometheus.Gauge
	busEmitted     prometheus.Gauge
	busHandlerErrs prometheus.Gauge

	mu     sync.Mutex
	engine *pulseframe.Engine
	bus    *bus.Bus
}

// New creates and registers the pulseframe metrics on a fresh registry.
func New() *Recorder {
	registry := prometheus.NewRegistry()

	frameDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pulseframe_frame_duration_seconds",
		Help:    "Wall time of one frame: plan, collect, compose, present",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
	})
	framesTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pulseframe_frames_total",
		Help: "Total number of frames presented",
	})
	framesVariant := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pulseframe_frames_by_variant_total",
		Help: "Frames presented per composition variant",
	}, []string{"variant"})
	framesDropped := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulseframe_frames_dropped",
		Help: "Frames that failed and were dropped by the loop",
	})
	rendererAvg := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pulseframe_renderer_avg_seconds",
		Help: "Tracked average render duration per renderer",
	}, []string{"renderer"})
	planCacheHits := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulseframe_plan_cache_hits",
		Help: "Plan cache hits",
	})
	planCacheMiss := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulseframe_plan_cache_misses",
		Help: "Plan cache misses (plans recomputed)",
	})
	busEmitted := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulseframe_bus_events_emitted",
		Help: "Events emitted on the bus",
	})
	busHandlerErrs := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pulseframe_bus_handler_errors",
		Help: "Bus handler failures (errors and recovered panics)",
	})

	registry.MustRegister(
		frameDuration,
		framesTotal,
		framesVariant,
		framesDropped,
		rendererAvg,
		planCacheHits,
		planCacheMiss,
		busEmitted,
		busHandlerErrs,
	)

	return &Recorder{
		registry:       registry,
		frameDuration:  frameDuration,
		framesTotal:    framesTotal,
		framesVariant:  framesVariant,
		framesDropped:  framesDropped,
		rendererAvg:    rendererAvg,
		planCacheHits:  planCacheHits,
		planCacheMiss:  planCacheMiss,
		busEmitted:     busEmitted,
		busHandlerErrs: busHandlerErrs,
	}
}

// ObserveFrame implements pulseframe.FrameObserver.
func (r *Recorder) ObserveFrame(s pulseframe.FrameStats) {
	r.frameDuration.Observe(s.Duration.Seconds())
	r.framesTotal.Inc()
	r.framesVariant.WithLabelValues(s.Variant.String()).Inc()
}

// AttachEngine wires the engine's pull-side stats (dropped frames,
// renderer timings, plan cache) into scrapes.
func (r *Recorder) AttachEngine(e *pulseframe.Engine) {
	r.mu.Lock()
	r.engine = e
	r.mu.Unlock()
}

// AttachBus wires the bus counters into scrapes.
func (r *Recorder) AttachBus(b *bus.Bus) {
	r.mu.Lock()
	r.bus = b
	r.mu.Unlock()
}

// refresh pulls current values from the attached engine and bus into
// the gauges. Called before each scrape.
func (r *Recorder) refresh() {
	r.mu.Lock()
	e, b := r.engine, r.bus
	r.mu.Unlock()

	if e != nil {
		r.framesDropped.Set(float64(e.Dropped()))

		hits, misses := e.PlanCache().Stats()
		r.planCacheHits.Set(float64(hits))
		r.planCacheMiss.Set(float64(misses))

		tracker := e.Tracker()
		for _, name := range tracker.Names() {
			if snap, ok := tracker.Snapshot(name); ok {
				r.rendererAvg.WithLabelValues(name).Set(snap.Average.Seconds())
			}
		}
	}
	if b != nil {
		r.busEmitted.Set(float64(b.Emitted()))
		r.busHandlerErrs.Set(float64(b.HandlerErrors()))
	}
}

// Handler returns an http.Handler serving the registry, refreshing
// pull-side gauges before each scrape.
func (r *Recorder) Handler() http.Handler {
	promHandler := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.refresh()
		promHandler.ServeHTTP(w, req)
	})
}

// Registry exposes the underlying registry for embedding into an
// existing metrics endpoint.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
