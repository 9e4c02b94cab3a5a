// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"image/color"
	"math"
)

// Quantize converts a channel value to a byte as floor(255*v + 0.5) after
// clamping to [0, 1]. Half-way values round up, matching the GPU kernel.
// NaN quantizes to 0.
func Quantize(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	x := 255*v + 0.5
	return uint8(math.Floor(float64(x)))
}

// Dequantize maps a byte back to [0, 1].
func Dequantize(b uint8) float32 {
	return float32(b) / 255
}

// Ambient returns the positional tint for a ray direction. Surfaces and
// misses both use it; there is no shadow ray.
func Ambient(r Ray) color.RGBA {
	return color.RGBA{
		R: Quantize(AmbientBase + AmbientScale*abs32(r.Dir[0])),
		G: Quantize(AmbientBase + AmbientScale*abs32(r.Dir[1])),
		B: Quantize(AmbientBase + AmbientScale*abs32(r.Dir[2])),
		A: Quantize(1),
	}
}

// Shade resolves a hit into an opaque pixel color. Lights render their
// stored color flat.
func Shade(hit Hit, r Ray, s *Scene) color.RGBA {
	if hit.Kind == HitLight {
		c := s.Lights.Colors[hit.Index]
		c.A = 255
		return c
	}
	return Ambient(r)
}

func abs32(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}
