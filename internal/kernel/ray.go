// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Ray is a unit direction from the camera origin.
type Ray struct {
	Dir mgl32.Vec3
}

// PixelRay returns the camera ray through pixel index p of a width x height
// image. The focal distance equals the width, which fixes the horizontal
// field of view at 90 degrees.
func PixelRay(p int, params Params) Ray {
	w := float32(params.Width)
	h := float32(params.Height)
	col := float32(p % params.Width)
	row := float32(p / params.Width)

	raw := mgl32.Vec3{w, col - w*0.5, h*0.5 - row}
	length := float32(math.Sqrt(float64(raw.Dot(raw))))
	return Ray{Dir: mgl32.Vec3{raw[0] / length, raw[1] / length, raw[2] / length}}
}
