// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"image/color"

	"github.com/go-gl/mathgl/mgl32"
)

// Spheres is a read-only view over parallel sphere arrays.
type Spheres struct {
	Centers []mgl32.Vec3
	Radii   []float32
	Colors  []color.RGBA
}

// Len returns the number of spheres in the view.
func (s Spheres) Len() int { return len(s.Centers) }

// Scene is the kernel input: surfaces are scanned before lights.
type Scene struct {
	Surfaces Spheres
	Lights   Spheres
}

// Split builds a Scene view over concatenated arrays whose first
// numSurfaces entries are surfaces and the rest lights.
// The caller guarantees the arrays agree in length.
func Split(centers []mgl32.Vec3, radii []float32, colors []color.RGBA, numSurfaces int) Scene {
	return Scene{
		Surfaces: Spheres{
			Centers: centers[:numSurfaces],
			Radii:   radii[:numSurfaces],
			Colors:  colors[:numSurfaces],
		},
		Lights: Spheres{
			Centers: centers[numSurfaces:],
			Radii:   radii[numSurfaces:],
			Colors:  colors[numSurfaces:],
		},
	}
}

// Empty reports whether the scene holds no spheres at all.
func (s *Scene) Empty() bool {
	return s.Surfaces.Len()+s.Lights.Len() == 0
}

// Params are the per-dispatch image dimensions.
type Params struct {
	Width  int
	Height int
}

// OutputPixels returns how many pixels a dispatch writes.
// An empty scene is forced to a single pixel regardless of dimensions.
func OutputPixels(p Params, s *Scene) int {
	if s.Empty() {
		return 1
	}
	return p.Width * p.Height
}
