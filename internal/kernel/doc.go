// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package kernel is the CPU reference of the sphere ray-trace kernel.
//
// Every pixel is traced independently: a camera-local ray is built from
// the pixel index, intersected against every surface sphere and then every
// light sphere with one shared routine, and the nearest hit is shaded into
// an RGBA byte quad. The WGSL kernel in internal/gpu mirrors this package
// line for line, and the tests here are the baseline it is compared with.
//
// Coordinates are camera-local: the camera sits at the origin looking down
// +x, with +y to the right and +z up.
package kernel

// SentinelDistance is the distance assigned to a ray that misses a sphere.
// Hits at or beyond it do not count as hits.
const SentinelDistance float32 = 100.0

// DefaultWorkGroupSize is the number of pixels scheduled together.
const DefaultWorkGroupSize = 64

// Ambient tint coefficients: channel = AmbientBase + AmbientScale*|dir|.
const (
	AmbientBase  float32 = 0.3
	AmbientScale float32 = 0.5
)

// BytesPerPixel is the size of one packed RGBA pixel.
const BytesPerPixel = 4
