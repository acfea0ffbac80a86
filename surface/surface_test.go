// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image/color"
	"testing"
)

func TestNewClampsDimensions(t *testing.T) {
	tests := []struct {
		name           string
		w, h           int
		wantW, wantH   int
	}{
		{"normal", 64, 32, 64, 32},
		{"zero width", 0, 10, 1, 10},
		{"negative height", 10, -5, 10, 1},
		{"both invalid", 0, 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := New(tt.w, tt.h)
			if s.Width() != tt.wantW || s.Height() != tt.wantH {
				t.Errorf("New(%d, %d) = %dx%d, want %dx%d",
					tt.w, tt.h, s.Width(), s.Height(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestClear(t *testing.T) {
	s := New(4, 4)
	s.SetPixel(1, 1, color.RGBA{R: 255, A: 255})

	s.Clear(nil)
	for _, b := range s.Pix() {
		if b != 0 {
			t.Fatal("Clear(nil) left non-zero pixel data")
		}
	}

	s.Clear(color.RGBA{R: 10, G: 20, B: 30, A: 255})
	pix := s.Pix()
	if pix[0] != 10 || pix[1] != 20 || pix[2] != 30 || pix[3] != 255 {
		t.Errorf("Clear(color) first pixel = %v, want [10 20 30 255]", pix[:4])
	}
}

func TestSetPixelOutOfBoundsIgnored(t *testing.T) {
	s := New(2, 2)
	s.SetPixel(-1, 0, color.White)
	s.SetPixel(0, -1, color.White)
	s.SetPixel(2, 0, color.White)
	s.SetPixel(0, 2, color.White)

	for _, b := range s.Pix() {
		if b != 0 {
			t.Fatal("out-of-bounds SetPixel modified the surface")
		}
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := New(2, 2)
	s.SetPixel(0, 0, color.RGBA{R: 200, A: 255})

	snap := s.Snapshot()
	s.SetPixel(0, 0, color.RGBA{G: 200, A: 255})

	if snap.Pix[0] != 200 {
		t.Errorf("snapshot red = %d, want 200", snap.Pix[0])
	}
	if snap.Pix[1] != 0 {
		t.Error("snapshot observed mutation after copy")
	}
}

func TestSameSize(t *testing.T) {
	a := New(8, 8)
	b := New(8, 8)
	c := New(8, 4)

	if !SameSize(a, b) {
		t.Error("SameSize(8x8, 8x8) = false")
	}
	if SameSize(a, c) {
		t.Error("SameSize(8x8, 8x4) = true")
	}
}
