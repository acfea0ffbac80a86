// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
)

// Surface is a rectangular RGBA pixel buffer.
//
// Surfaces are NOT thread-safe. During a frame, each surface belongs to a
// single renderer or merge task; external synchronization is required for
// any other sharing.
type Surface struct {
	width  int
	height int
	img    *image.RGBA
}

// New creates a surface with the given dimensions.
// Dimensions smaller than 1 are clamped to 1.
func New(width, height int) *Surface {
	if width <= 0 {
		width = 1
	}
	if height <= 0 {
		height = 1
	}
	return &Surface{
		width:  width,
		height: height,
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
	}
}

// FromImage wraps an existing *image.RGBA as a surface.
// The image is used directly without copying.
func FromImage(img *image.RGBA) *Surface {
	bounds := img.Bounds()
	return &Surface{
		width:  bounds.Dx(),
		height: bounds.Dy(),
		img:    img,
	}
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int {
	return s.width
}

// Height returns the surface height in pixels.
func (s *Surface) Height() int {
	return s.height
}

// Image returns the underlying *image.RGBA.
// This is a direct reference, not a copy.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

// Pix returns the raw pixel data (RGBA, 4 bytes per pixel, row by row).
func (s *Surface) Pix() []uint8 {
	return s.img.Pix
}

// Stride returns the number of bytes per row.
func (s *Surface) Stride() int {
	return s.img.Stride
}

// Clear fills the entire surface with the given color.
// Clear(nil) fills with transparent black, the state renderers expect at
// the start of a frame.
func (s *Surface) Clear(c color.Color) {
	if c == nil {
		for i := range s.img.Pix {
			s.img.Pix[i] = 0
		}
		return
	}
	r, g, b, a := c.RGBA()
	rgba := color.RGBA{
		R: uint8(r >> 8),
		G: uint8(g >> 8),
		B: uint8(b >> 8),
		A: uint8(a >> 8),
	}
	draw.Draw(s.img, s.img.Bounds(), &image.Uniform{rgba}, image.Point{}, draw.Src)
}

// SetPixel sets the color of a single pixel. Out-of-bounds writes are ignored.
func (s *Surface) SetPixel(x, y int, c color.Color) {
	if x < 0 || x >= s.width || y < 0 || y >= s.height {
		return
	}
	s.img.Set(x, y, c)
}

// At implements the image.Image interface.
func (s *Surface) At(x, y int) color.Color {
	return s.img.At(x, y)
}

// Bounds implements the image.Image interface.
func (s *Surface) Bounds() image.Rectangle {
	return image.Rect(0, 0, s.width, s.height)
}

// ColorModel implements the image.Image interface.
func (s *Surface) ColorModel() color.Model {
	return color.RGBAModel
}

// Snapshot returns a copy of the current surface contents.
// Modifications to the returned image do not affect the surface.
func (s *Surface) Snapshot() *image.RGBA {
	result := image.NewRGBA(image.Rect(0, 0, s.width, s.height))
	copy(result.Pix, s.img.Pix)
	return result
}

// SavePNG writes the surface contents to a PNG file.
func (s *Surface) SavePNG(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is caller-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()
	return png.Encode(f, s.img)
}

// SameSize reports whether two surfaces have identical dimensions.
func SameSize(a, b *Surface) bool {
	return a.width == b.width && a.height == b.height
}

// Verify Surface implements image.Image.
var _ image.Image = (*Surface)(nil)
