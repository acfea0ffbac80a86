// Copyright 2026 The pulseframe Authors
// SPDX-License-Identifier: BSD-3-Clause

package surface

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

// ErrSizeMismatch is returned by blit operations that require equal-sized
// surfaces when the sizes differ.
var ErrSizeMismatch = errors.New("surface: size mismatch")

// Filter selects the interpolation quality for scaling blits.
type Filter int

const (
	// FilterNearest is nearest-neighbor: fastest, blocky under upscaling.
	FilterNearest Filter = iota

	// FilterBilinear is approximate bilinear interpolation, the default.
	FilterBilinear

	// FilterCatmullRom is Catmull-Rom interpolation: slowest, sharpest.
	FilterCatmullRom
)

// scaler returns the x/image scaler for the filter.
func (f Filter) scaler() xdraw.Scaler {
	switch f {
	case FilterNearest:
		return xdraw.NearestNeighbor
	case FilterCatmullRom:
		return xdraw.CatmullRom
	default:
		return xdraw.ApproxBiLinear
	}
}

// String returns the filter name.
func (f Filter) String() string {
	switch f {
	case FilterNearest:
		return "nearest"
	case FilterBilinear:
		return "bilinear"
	case FilterCatmullRom:
		return "catmull-rom"
	default:
		return fmt.Sprintf("filter(%d)", int(f))
	}
}

// BlitOver composites src onto dst with source-over blending using the
// standard library draw fast path. Both surfaces must be the same size.
func BlitOver(dst, src *Surface) error {
	if !SameSize(dst, src) {
		return fmt.Errorf("%w: dst %dx%d, src %dx%d",
			ErrSizeMismatch, dst.width, dst.height, src.width, src.height)
	}
	draw.Draw(dst.img, dst.img.Bounds(), src.img, image.Point{}, draw.Over)
	return nil
}

// BlitOverPixels composites src onto dst with source-over blending using a
// direct pixel loop. Semantically identical to BlitOver; exists so the
// composition engine can select the loop strategy where per-blit draw
// setup dominates (many small surfaces).
func BlitOverPixels(dst, src *Surface) error {
	if !SameSize(dst, src) {
		return fmt.Errorf("%w: dst %dx%d, src %dx%d",
			ErrSizeMismatch, dst.width, dst.height, src.width, src.height)
	}
	dp := dst.img.Pix
	sp := src.img.Pix
	for i := 0; i < len(sp); i += 4 {
		srcA := uint32(sp[i+3])
		if srcA == 0 {
			continue
		}
		if srcA == 255 {
			dp[i+0] = sp[i+0]
			dp[i+1] = sp[i+1]
			dp[i+2] = sp[i+2]
			dp[i+3] = 255
			continue
		}
		invA := 255 - srcA
		dp[i+0] = uint8((uint32(sp[i+0])*255 + uint32(dp[i+0])*invA) / 255)
		dp[i+1] = uint8((uint32(sp[i+1])*255 + uint32(dp[i+1])*invA) / 255)
		dp[i+2] = uint8((uint32(sp[i+2])*255 + uint32(dp[i+2])*invA) / 255)
		dp[i+3] = uint8(srcA + uint32(dp[i+3])*invA/255)
	}
	return nil
}

// Copy replaces dst contents with src, scaling when sizes differ.
func Copy(dst, src *Surface, filter Filter) {
	if SameSize(dst, src) {
		copy(dst.img.Pix, src.img.Pix)
		return
	}
	ScaleInto(dst, src, filter)
}

// ScaleInto scales src to fill dst entirely using the given filter.
func ScaleInto(dst, src *Surface, filter Filter) {
	filter.scaler().Scale(dst.img, dst.img.Bounds(), src.img, src.img.Bounds(), xdraw.Src, nil)
}

// Mirror renders src onto the left half of dst and its horizontal
// reflection onto the right half, scaling src to the half width as needed.
// dst and src must be distinct surfaces.
// This implements the Mirrored display mode: installations with a folded or
// reflected physical layout render half the pixels and mirror the rest.
func Mirror(dst, src *Surface, filter Filter) {
	leftW := (dst.width + 1) / 2
	leftRect := image.Rect(0, 0, leftW, dst.height)
	filter.scaler().Scale(dst.img, leftRect, src.img, src.img.Bounds(), xdraw.Src, nil)

	// Reflect the left half column by column into the right half.
	pix := dst.img.Pix
	stride := dst.img.Stride
	for y := 0; y < dst.height; y++ {
		row := y * stride
		for x := leftW; x < dst.width; x++ {
			si := row + (dst.width-1-x)*4
			di := row + x*4
			pix[di+0] = pix[si+0]
			pix[di+1] = pix[si+1]
			pix[di+2] = pix[si+2]
			pix[di+3] = pix[si+3]
		}
	}
}
