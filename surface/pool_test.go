// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image/color"
	"testing"
)

func TestPoolReusesSurfaces(t *testing.T) {
	p := NewPool(4)

	s1 := p.Get(16, 16)
	p.Put(s1)

	s2 := p.Get(16, 16)
	if s2 != s1 {
		t.Error("expected pooled surface to be reused")
	}
	if p.Len() != 0 {
		t.Errorf("pool Len = %d after Get, want 0", p.Len())
	}
}

func TestPoolClearsRecycledSurface(t *testing.T) {
	p := NewPool(4)

	s := p.Get(8, 8)
	s.Clear(color.RGBA{R: 255, G: 255, B: 255, A: 255})
	p.Put(s)

	reused := p.Get(8, 8)
	for _, b := range reused.Pix() {
		if b != 0 {
			t.Fatal("recycled surface was not cleared")
		}
	}
}

func TestPoolKeyedByDimensions(t *testing.T) {
	p := NewPool(4)

	small := p.Get(4, 4)
	p.Put(small)

	big := p.Get(8, 8)
	if big == small {
		t.Error("pool returned a surface with wrong dimensions")
	}
	if big.Width() != 8 || big.Height() != 8 {
		t.Errorf("got %dx%d, want 8x8", big.Width(), big.Height())
	}
}

func TestPoolBoundsRetention(t *testing.T) {
	p := NewPool(2)

	for range 5 {
		p.Put(New(4, 4))
	}
	if p.Len() != 2 {
		t.Errorf("pool retained %d surfaces, want 2", p.Len())
	}

	p.Put(nil) // ignored
	if p.Len() != 2 {
		t.Error("Put(nil) changed pool size")
	}
}
