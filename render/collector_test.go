// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/pulseframe/pulseframe/internal/parallel"
	"github.com/pulseframe/pulseframe/surface"
)

// colorRenderer draws one opaque column, identifying itself by position.
func colorRenderer(col int, c color.RGBA) *stubRenderer {
	return &stubRenderer{
		render: func(dst *surface.Surface) (*surface.Surface, error) {
			for y := 0; y < dst.Height(); y++ {
				dst.SetPixel(col, y, c)
			}
			return dst, nil
		},
	}
}

func newTestCollector(t *testing.T, pool *parallel.WorkerPool) (*Collector, *TimingTracker) {
	t.Helper()
	tracker, err := NewTimingTracker(TimingEMA, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCollector(8, 8, tracker, pool, surface.NewPool(16), surface.FilterNearest)
	if err != nil {
		t.Fatal(err)
	}
	return c, tracker
}

func TestNewCollectorValidation(t *testing.T) {
	if _, err := NewCollector(0, 8, nil, nil, surface.NewPool(1), surface.FilterNearest); err == nil {
		t.Error("zero width accepted")
	}
	if _, err := NewCollector(8, 8, nil, nil, nil, surface.FilterNearest); err == nil {
		t.Error("nil surface pool accepted")
	}
}

func TestCollectSerialMatchesParallel(t *testing.T) {
	pool := parallel.NewWorkerPool(4)
	defer pool.Close()

	mkHandles := func() []*Handle {
		return []*Handle{
			NewHandle(colorRenderer(0, color.RGBA{R: 255, A: 255})),
			NewHandle(colorRenderer(1, color.RGBA{G: 255, A: 255})),
			NewHandle(colorRenderer(2, color.RGBA{B: 255, A: 255})),
			NewHandle(colorRenderer(3, color.RGBA{R: 255, G: 255, A: 255})),
			NewHandle(colorRenderer(4, color.RGBA{G: 128, A: 255})),
		}
	}

	serialC, _ := newTestCollector(t, nil)
	serial, err := serialC.Collect(context.Background(), mkHandles(), false)
	if err != nil {
		t.Fatal(err)
	}

	parallelC, _ := newTestCollector(t, pool)
	par, err := parallelC.Collect(context.Background(), mkHandles(), true)
	if err != nil {
		t.Fatal(err)
	}

	if len(serial) != 5 || len(par) != 5 {
		t.Fatalf("collected %d serial, %d parallel, want 5 each", len(serial), len(par))
	}
	for i := range serial {
		sp, pp := serial[i].Pix(), par[i].Pix()
		for j := range sp {
			if sp[j] != pp[j] {
				t.Fatalf("surface %d byte %d: serial=%d parallel=%d", i, j, sp[j], pp[j])
			}
		}
	}
}

func TestCollectSkipsNilSurfaces(t *testing.T) {
	skip := &stubRenderer{
		render: func(*surface.Surface) (*surface.Surface, error) { return nil, nil },
	}
	handles := []*Handle{
		NewHandle(colorRenderer(0, color.RGBA{R: 255, A: 255})),
		NewHandle(skip),
		NewHandle(colorRenderer(2, color.RGBA{B: 255, A: 255})),
	}

	c, _ := newTestCollector(t, nil)
	out, err := c.Collect(context.Background(), handles, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 {
		t.Errorf("collected %d surfaces, want 2 (nil skipped)", len(out))
	}
}

func TestCollectRendererErrorFailsFrame(t *testing.T) {
	boom := errors.New("device lost")
	bad := &stubRenderer{
		render: func(*surface.Surface) (*surface.Surface, error) { return nil, boom },
	}
	handles := []*Handle{
		NewHandle(colorRenderer(0, color.RGBA{R: 255, A: 255})),
		NewHandle(bad),
	}

	c, _ := newTestCollector(t, nil)
	if _, err := c.Collect(context.Background(), handles, false); !errors.Is(err, boom) {
		t.Errorf("serial collect err = %v, want wrapped renderer error", err)
	}

	pool := parallel.NewWorkerPool(2)
	defer pool.Close()
	cp, _ := newTestCollector(t, pool)
	if _, err := cp.Collect(context.Background(), handles, true); !errors.Is(err, boom) {
		t.Errorf("parallel collect err = %v, want wrapped renderer error", err)
	}
}

func TestCollectRecordsTimings(t *testing.T) {
	h := NewHandle(&stubRenderer{
		render: func(dst *surface.Surface) (*surface.Surface, error) {
			time.Sleep(2 * time.Millisecond)
			return dst, nil
		},
	})

	c, tracker := newTestCollector(t, nil)
	if _, err := c.Collect(context.Background(), []*Handle{h}, false); err != nil {
		t.Fatal(err)
	}

	snap, ok := tracker.Snapshot(h.Name())
	if !ok {
		t.Fatal("no timing recorded for rendered handle")
	}
	if snap.Samples != 1 || snap.Last <= 0 {
		t.Errorf("snapshot = %+v, want one positive sample", snap)
	}
}

func TestCollectMirroredMode(t *testing.T) {
	h := NewHandle(&stubRenderer{
		mode: DisplayMirrored,
		render: func(dst *surface.Surface) (*surface.Surface, error) {
			// Mark the two leftmost columns so the half-width
			// downscale keeps the marker regardless of sampling.
			for y := 0; y < dst.Height(); y++ {
				dst.SetPixel(0, y, color.RGBA{R: 200, A: 255})
				dst.SetPixel(1, y, color.RGBA{R: 200, A: 255})
			}
			return dst, nil
		},
	})

	c, _ := newTestCollector(t, nil)
	out, err := c.Collect(context.Background(), []*Handle{h}, false)
	if err != nil {
		t.Fatal(err)
	}
	s := out[0]
	pix, stride := s.Pix(), s.Stride()
	if pix[0] == 0 {
		t.Error("left column lost in mirror")
	}
	if pix[(s.Width()-1)*4] != pix[0] {
		t.Error("right edge does not mirror left column")
	}
	_ = stride
}

func TestCollectCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c, _ := newTestCollector(t, nil)
	handles := []*Handle{NewHandle(colorRenderer(0, color.RGBA{A: 255}))}
	if _, err := c.Collect(ctx, handles, false); !errors.Is(err, context.Canceled) {
		t.Errorf("canceled collect err = %v, want context.Canceled", err)
	}
}
