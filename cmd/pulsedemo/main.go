// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

// Command pulsedemo runs a headless pulseframe installation: a
// simulated heart-rate peripheral feeding the bus, a renderer that
// draws the latest sample, and an HTTP endpoint exposing metrics.
package main

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/pulseframe/pulseframe"
	"github.com/pulseframe/pulseframe/bus"
	"github.com/pulseframe/pulseframe/display"
	"github.com/pulseframe/pulseframe/metrics"
	"github.com/pulseframe/pulseframe/peripheral"
	"github.com/pulseframe/pulseframe/render"
	"github.com/pulseframe/pulseframe/surface"
)

const shutdownTimeout = 10 * time.Second

func getenv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

func main() {
	// .env is optional; system env wins when both define a key.
	_ = godotenv.Load()

	addr := getenv("PULSEDEMO_ADDR", ":8080")
	configPath := getenv("PULSEDEMO_CONFIG", "")
	width := getenvInt("PULSEDEMO_WIDTH", 320)
	height := getenvInt("PULSEDEMO_HEIGHT", 240)

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	pulseframe.SetLogger(log)

	cfg := pulseframe.DefaultConfig(width, height)
	if configPath != "" {
		var err error
		cfg, err = pulseframe.LoadConfig(configPath)
		if err != nil {
			log.Error("config load failed", "path", configPath, "error", err)
			os.Exit(1)
		}
	}

	target := display.NewPixmapTarget(cfg.Width, cfg.Height)
	rec := metrics.New()

	eng, err := pulseframe.New(cfg,
		pulseframe.WithTarget(target),
		pulseframe.WithObserver(rec),
	)
	if err != nil {
		log.Error("engine construction failed", "error", err)
		os.Exit(1)
	}
	rec.AttachEngine(eng)
	rec.AttachBus(eng.Bus())

	// Double taps on the simulated device derive a "pulse.double_tap"
	// event for anything listening on the bus.
	registry := bus.NewVirtualRegistry(eng.Bus())
	dt, err := bus.DoubleTapDefinition("double-tap", "pulse.tap", "pulse.double_tap", 100, 400*time.Millisecond)
	if err != nil {
		log.Error("virtual peripheral definition failed", "error", err)
		os.Exit(1)
	}
	if err := registry.Register(dt); err != nil {
		log.Error("virtual peripheral registration failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := peripheral.NewRunner(eng.Bus(), log)
	if _, err := runner.Start(ctx, &simulatedPulse{producer: 1}); err != nil {
		log.Error("peripheral start failed", "error", err)
		os.Exit(1)
	}

	if _, err := eng.Add(ctx, &pulseRenderer{bus: eng.Bus(), producer: 1}); err != nil {
		log.Error("renderer registration failed", "error", err)
		os.Exit(1)
	}

	r := chi.NewRouter()
	r.Handle("/metrics", rec.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server error", "error", err)
			stop()
		}
	}()
	log.Info("pulsedemo running", "addr", addr,
		"frame", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))

	err = eng.Run(ctx)
	if err != nil && ctx.Err() == nil {
		log.Error("engine loop failed", "error", err)
	}

	log.Info("shutting down")
	runner.Close()
	eng.Close()

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.Error("http shutdown error", "error", err)
	}
	log.Info("stopped", "frames", eng.Frames(), "dropped", eng.Dropped())
}

// simulatedPulse emits a sinusoidal heart-rate sample at 10Hz and a tap
// every beat.
type simulatedPulse struct {
	producer int
}

func (p *simulatedPulse) Name() string { return "simulated-pulse" }

func (p *simulatedPulse) Run(ctx context.Context, emit func(bus.Event)) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	start := time.Now()
	lastBeat := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			bpm := 70 + 20*math.Sin(t/5)
			emit(bus.Event{Type: "pulse.sample", Producer: p.producer, Data: bpm})

			beat := int(t * bpm / 60)
			if beat != lastBeat {
				lastBeat = beat
				emit(bus.Event{Type: "pulse.tap", Producer: p.producer})
			}
		}
	}
}

// pulseRenderer draws the latest sample as a horizontal bar.
type pulseRenderer struct {
	bus      *bus.Bus
	producer int

	initialized bool
}

func (r *pulseRenderer) Initialize(context.Context) error {
	r.initialized = true
	return nil
}

func (r *pulseRenderer) Render(dst *surface.Surface) (*surface.Surface, error) {
	if !r.initialized {
		panic("pulsedemo: render before initialize")
	}

	e, ok := r.bus.Latest("pulse.sample", r.producer)
	if !ok {
		return nil, nil // no sample yet, skip the frame
	}
	bpm, _ := e.Data.(float64)

	// Bar width scales 40..120 bpm across the surface.
	frac := (bpm - 40) / 80
	if frac < 0 {
		frac = 0
	} else if frac > 1 {
		frac = 1
	}
	barW := int(frac * float64(dst.Width()))

	barTop := dst.Height()/2 - dst.Height()/8
	barBottom := dst.Height()/2 + dst.Height()/8
	red := color.RGBA{R: 230, G: 40, B: 60, A: 255}
	for y := barTop; y < barBottom; y++ {
		for x := 0; x < barW; x++ {
			dst.SetPixel(x, y, red)
		}
	}
	return dst, nil
}

func (r *pulseRenderer) Reset() { r.initialized = false }

func (r *pulseRenderer) DisplayMode() render.DisplayMode { return render.DisplayFull }
