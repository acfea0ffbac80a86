// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package pulseframe

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/pulseframe/pulseframe/display"
	"github.com/pulseframe/pulseframe/render"
	"github.com/pulseframe/pulseframe/surface"
)

// fillRenderer fills its surface with one color.
type fillRenderer struct {
	c           color.RGBA
	mode        render.DisplayMode
	fail        error
	skip        bool
	initialized bool
	renders     int
}

func (r *fillRenderer) Initialize(context.Context) error {
	r.initialized = true
	return nil
}

func (r *fillRenderer) Render(dst *surface.Surface) (*surface.Surface, error) {
	if !r.initialized {
		panic("render before initialize")
	}
	r.renders++
	if r.fail != nil {
		return nil, r.fail
	}
	if r.skip {
		return nil, nil
	}
	dst.Clear(r.c)
	return dst, nil
}

func (r *fillRenderer) Reset() { r.initialized = false }

func (r *fillRenderer) DisplayMode() render.DisplayMode { return r.mode }

func newTestEngine(t *testing.T, cfg Config, opts ...EngineOption) (*Engine, *display.PixmapTarget) {
	t.Helper()
	target := display.NewPixmapTarget(cfg.Width, cfg.Height)
	eng, err := New(cfg, append([]EngineOption{WithTarget(target)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		eng.Close()
		target.Close()
	})
	return eng, target
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	if _, err := New(Config{Width: 0, Height: 10}); err == nil {
		t.Error("invalid config accepted")
	}
}

func TestAddRemove(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig(16, 16))

	r := &fillRenderer{c: color.RGBA{R: 255, A: 255}}
	h, err := eng.Add(context.Background(), r)
	if err != nil {
		t.Fatal(err)
	}
	if !r.initialized {
		t.Error("Add did not initialize the renderer")
	}
	if eng.Renderers() != 1 {
		t.Errorf("Renderers() = %d, want 1", eng.Renderers())
	}

	if !eng.Remove(h.ID()) {
		t.Error("Remove of known id returned false")
	}
	if r.initialized {
		t.Error("Remove did not reset the renderer")
	}
	if eng.Remove("unknown") {
		t.Error("Remove of unknown id returned true")
	}
}

func TestRenderFrameComposesAndPresents(t *testing.T) {
	eng, target := newTestEngine(t, DefaultConfig(16, 16))

	ctx := context.Background()
	if _, err := eng.Add(ctx, &fillRenderer{c: color.RGBA{R: 255, A: 255}}); err != nil {
		t.Fatal(err)
	}
	// Opaque green on top: source-over leaves only green.
	if _, err := eng.Add(ctx, &fillRenderer{c: color.RGBA{G: 255, A: 255}}); err != nil {
		t.Fatal(err)
	}

	if err := eng.RenderFrame(ctx); err != nil {
		t.Fatal(err)
	}
	if eng.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", eng.Frames())
	}

	snap := target.Snapshot()
	if snap == nil {
		t.Fatal("nothing presented")
	}
	if got := snap.RGBAAt(8, 8); got.G != 255 || got.R != 0 {
		t.Errorf("composed pixel = %+v, want opaque green", got)
	}
}

func TestRenderFrameWithNoRenderersIsNoOp(t *testing.T) {
	eng, target := newTestEngine(t, DefaultConfig(8, 8))

	if err := eng.RenderFrame(context.Background()); err != nil {
		t.Fatal(err)
	}
	if target.Frames() != 0 {
		t.Error("empty frame was presented")
	}
}

func TestRenderFrameAllSkipped(t *testing.T) {
	eng, target := newTestEngine(t, DefaultConfig(8, 8))

	if _, err := eng.Add(context.Background(), &fillRenderer{skip: true}); err != nil {
		t.Fatal(err)
	}
	if err := eng.RenderFrame(context.Background()); err != nil {
		t.Fatal(err)
	}
	if target.Frames() != 0 {
		t.Error("skipped frame was presented")
	}
}

func TestObserverSeesFrameStats(t *testing.T) {
	var stats []FrameStats
	obs := FrameObserverFunc(func(s FrameStats) { stats = append(stats, s) })

	eng, _ := newTestEngine(t, DefaultConfig(16, 16),
		WithObserver(obs), WithPlanOverride(render.VariantIterative))

	ctx := context.Background()
	if _, err := eng.Add(ctx, &fillRenderer{c: color.RGBA{B: 255, A: 255}}); err != nil {
		t.Fatal(err)
	}
	if _, err := eng.Add(ctx, &fillRenderer{skip: true}); err != nil {
		t.Fatal(err)
	}
	if err := eng.RenderFrame(ctx); err != nil {
		t.Fatal(err)
	}

	if len(stats) != 1 {
		t.Fatalf("observer saw %d frames, want 1", len(stats))
	}
	s := stats[0]
	if s.Renderers != 2 || s.Surfaces != 1 {
		t.Errorf("stats = %+v, want 2 renderers / 1 surface", s)
	}
	if s.Variant != render.VariantIterative {
		t.Errorf("variant = %v", s.Variant)
	}
	if s.Width != 16 || s.Height != 16 {
		t.Errorf("frame size = %dx%d", s.Width, s.Height)
	}
}

func TestBinaryOverrideMatchesIterative(t *testing.T) {
	ctx := context.Background()

	run := func(override render.Variant) color.RGBA {
		eng, target := newTestEngine(t, DefaultConfig(16, 16), WithPlanOverride(override))
		for _, c := range []color.RGBA{
			{R: 255, A: 255}, {G: 255, A: 255}, {B: 255, A: 255},
		} {
			if _, err := eng.Add(ctx, &fillRenderer{c: c}); err != nil {
				t.Fatal(err)
			}
		}
		if err := eng.RenderFrame(ctx); err != nil {
			t.Fatal(err)
		}
		return target.Snapshot().RGBAAt(4, 4)
	}

	iter := run(render.VariantIterative)
	bin := run(render.VariantBinary)
	if iter != bin {
		t.Errorf("iterative %+v != binary %+v", iter, bin)
	}
}

func TestRenderFrameFails(t *testing.T) {
	eng, target := newTestEngine(t, DefaultConfig(8, 8))

	boom := errors.New("shader died")
	if _, err := eng.Add(context.Background(), &fillRenderer{fail: boom}); err != nil {
		t.Fatal(err)
	}
	if err := eng.RenderFrame(context.Background()); !errors.Is(err, boom) {
		t.Errorf("RenderFrame = %v, want wrapped renderer error", err)
	}
	if target.Frames() != 0 {
		t.Error("failed frame was presented")
	}
}

func TestRunHaltsOnFrameError(t *testing.T) {
	cfg := DefaultConfig(8, 8)
	cfg.FrameError = "halt"
	eng, _ := newTestEngine(t, cfg)

	boom := errors.New("device lost")
	if _, err := eng.Add(context.Background(), &fillRenderer{fail: boom}); err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() { done <- eng.Run(context.Background()) }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("Run = %v, want renderer error", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not halt on frame error")
	}
}

func TestRunDropsFailedFrames(t *testing.T) {
	cfg := DefaultConfig(8, 8)
	cfg.FPS = 500
	eng, _ := newTestEngine(t, cfg)

	if _, err := eng.Add(context.Background(), &fillRenderer{fail: errors.New("flaky")}); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- eng.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for eng.Dropped() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if eng.Dropped() == 0 {
		t.Error("no frames counted as dropped")
	}
}

func TestCloseStopsFrameOperations(t *testing.T) {
	eng, _ := newTestEngine(t, DefaultConfig(8, 8))

	r := &fillRenderer{c: color.RGBA{A: 255}}
	if _, err := eng.Add(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}
	if err := eng.Close(); err != nil {
		t.Fatal(err)
	}
	if r.initialized {
		t.Error("Close did not reset renderers")
	}
	if err := eng.RenderFrame(context.Background()); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("RenderFrame after Close = %v, want ErrEngineClosed", err)
	}
	if _, err := eng.Add(context.Background(), &fillRenderer{}); !errors.Is(err, ErrEngineClosed) {
		t.Errorf("Add after Close = %v, want ErrEngineClosed", err)
	}
}

func TestMirroredRendererIsReflected(t *testing.T) {
	cfg := DefaultConfig(16, 16)
	cfg.Filter = "nearest"
	eng, target := newTestEngine(t, cfg)

	// Draws two red columns at the left edge; the mirrored mode must
	// reflect them onto the right edge.
	r := &edgeRenderer{}
	if _, err := eng.Add(context.Background(), r); err != nil {
		t.Fatal(err)
	}
	if err := eng.RenderFrame(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := target.Snapshot()
	if got := snap.RGBAAt(15, 8); got.R != 255 {
		t.Errorf("right edge pixel = %+v, want mirrored red", got)
	}
}

// edgeRenderer draws the two leftmost columns red, display mode mirrored.
type edgeRenderer struct {
	initialized bool
}

func (r *edgeRenderer) Initialize(context.Context) error {
	r.initialized = true
	return nil
}

func (r *edgeRenderer) Render(dst *surface.Surface) (*surface.Surface, error) {
	if !r.initialized {
		panic("render before initialize")
	}
	for y := 0; y < dst.Height(); y++ {
		dst.SetPixel(0, y, color.RGBA{R: 255, A: 255})
		dst.SetPixel(1, y, color.RGBA{R: 255, A: 255})
	}
	return dst, nil
}

func (r *edgeRenderer) Reset() { r.initialized = false }

func (r *edgeRenderer) DisplayMode() render.DisplayMode { return render.DisplayMirrored }
