// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import "image/color"

// TracePixel computes the color of pixel index p.
func TracePixel(p int, params Params, s *Scene) color.RGBA {
	r := PixelRay(p, params)
	return Shade(Nearest(r.Dir, s), r, s)
}

// TraceRange writes pixels [lo, hi) into dst at offset 4*p.
// dst must hold at least 4*hi bytes.
func TraceRange(lo, hi int, params Params, s *Scene, dst []byte) {
	for p := lo; p < hi; p++ {
		c := TracePixel(p, params, s)
		o := p * BytesPerPixel
		dst[o+0] = c.R
		dst[o+1] = c.G
		dst[o+2] = c.B
		dst[o+3] = c.A
	}
}

// Trace fills dst sequentially and returns the number of pixels written.
// dst must hold 4*OutputPixels(params, s) bytes.
func Trace(params Params, s *Scene, dst []byte) int {
	n := OutputPixels(params, s)
	TraceRange(0, n, params, s, dst)
	return n
}
