// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package kernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// HitKind tags which sphere list produced a hit.
type HitKind uint8

const (
	// HitNone means the ray missed every sphere.
	HitNone HitKind = iota
	// HitSurface means a surface sphere is nearest.
	HitSurface
	// HitLight means a light sphere is nearest.
	HitLight
)

// String returns the hit kind name.
func (k HitKind) String() string {
	switch k {
	case HitNone:
		return "none"
	case HitSurface:
		return "surface"
	case HitLight:
		return "light"
	default:
		return "unknown"
	}
}

// Hit is the result of the nearest-hit reduction. Index is relative to
// the list named by Kind.
type Hit struct {
	Kind     HitKind
	Index    int
	Distance float32
}

// Miss is the Hit of a ray that reaches nothing.
var Miss = Hit{Kind: HitNone, Distance: SentinelDistance}

// Intersect returns the distance along the unit direction dir from the
// origin to the front of a sphere, or SentinelDistance when there is no
// hit in front of the camera.
func Intersect(dir, center mgl32.Vec3, radius float32) float32 {
	b := dir.Dot(center)
	c := center.Dot(center) - radius*radius
	disc := b*b - c
	if disc < 0 {
		return SentinelDistance
	}
	t := b - float32(math.Sqrt(float64(disc)))
	if t <= 0 {
		return SentinelDistance
	}
	return t
}

// scan folds one sphere list into best, keeping the first strict minimum.
func scan(dir mgl32.Vec3, list Spheres, kind HitKind, best Hit) Hit {
	for i := range list.Centers {
		t := Intersect(dir, list.Centers[i], list.Radii[i])
		if t < best.Distance {
			best = Hit{Kind: kind, Index: i, Distance: t}
		}
	}
	return best
}

// Nearest returns the closest hit along dir. Surfaces are scanned in index
// order before lights, so ties go to the earliest surface.
func Nearest(dir mgl32.Vec3, s *Scene) Hit {
	best := scan(dir, s.Surfaces, HitSurface, Miss)
	return scan(dir, s.Lights, HitLight, best)
}
