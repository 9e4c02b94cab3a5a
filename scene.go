package rt

import (
	"image/color"
	"slices"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/rt/internal/kernel"
)

// Sphere is a renderable surface or a point light.
// Center is in whatever frame the owning Scene uses; the tracer expects
// camera-local coordinates (see Camera.ToLocal).
type Sphere struct {
	Center mgl32.Vec3
	Radius float32
	Color  color.RGBA
}

// Scene is the kernel input as three parallel arrays. The first NumSurfaces
// entries are surfaces and the remaining NumLights entries are lights; the
// order is part of the contract, as surfaces win ties against lights.
//
// A Scene built by NewScene or SceneBuilder is valid. Mutating the arrays
// afterwards is allowed but must be followed by Validate.
type Scene struct {
	Positions   []mgl32.Vec3
	Radii       []float32
	Colors      []color.RGBA
	NumSurfaces int
	NumLights   int
}

// NewScene validates and wraps the given arrays. The arrays are not copied.
// It returns a *ShapeMismatchError when the lengths disagree.
func NewScene(positions []mgl32.Vec3, radii []float32, colors []color.RGBA, numSurfaces, numLights int) (*Scene, error) {
	s := &Scene{
		Positions:   positions,
		Radii:       radii,
		Colors:      colors,
		NumSurfaces: numSurfaces,
		NumLights:   numLights,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks that the three arrays share one length and that it equals
// NumSurfaces+NumLights. Radii and colors are measured against positions;
// a negative count or a count total that disagrees with the arrays is
// reported on the "counts" dimension.
func (s *Scene) Validate() error {
	n := len(s.Positions)
	switch {
	case s.NumSurfaces < 0:
		return &ShapeMismatchError{Dimension: "counts", Got: s.NumSurfaces, Want: 0}
	case s.NumLights < 0:
		return &ShapeMismatchError{Dimension: "counts", Got: s.NumLights, Want: 0}
	case len(s.Radii) != n:
		return &ShapeMismatchError{Dimension: "radii", Got: len(s.Radii), Want: n}
	case len(s.Colors) != n:
		return &ShapeMismatchError{Dimension: "colors", Got: len(s.Colors), Want: n}
	case s.NumSurfaces+s.NumLights != n:
		return &ShapeMismatchError{Dimension: "counts", Got: s.NumSurfaces + s.NumLights, Want: n}
	}
	return nil
}

// Len returns the total number of spheres.
func (s *Scene) Len() int { return len(s.Positions) }

// IsEmpty reports whether the scene holds neither surfaces nor lights.
func (s *Scene) IsEmpty() bool { return s.NumSurfaces+s.NumLights == 0 }

// Sphere returns entry i of the concatenated arrays.
func (s *Scene) Sphere(i int) Sphere {
	return Sphere{Center: s.Positions[i], Radius: s.Radii[i], Color: s.Colors[i]}
}

// Surfaces returns the surface spheres.
func (s *Scene) Surfaces() []Sphere {
	out := make([]Sphere, s.NumSurfaces)
	for i := range out {
		out[i] = s.Sphere(i)
	}
	return out
}

// Lights returns the light spheres.
func (s *Scene) Lights() []Sphere {
	out := make([]Sphere, s.NumLights)
	for i := range out {
		out[i] = s.Sphere(s.NumSurfaces + i)
	}
	return out
}

// Clone returns a deep copy of the scene.
func (s *Scene) Clone() *Scene {
	return &Scene{
		Positions:   slices.Clone(s.Positions),
		Radii:       slices.Clone(s.Radii),
		Colors:      slices.Clone(s.Colors),
		NumSurfaces: s.NumSurfaces,
		NumLights:   s.NumLights,
	}
}

// KernelScene returns the kernel view over a validated scene.
func (s *Scene) KernelScene() kernel.Scene {
	return kernel.Split(s.Positions, s.Radii, s.Colors, s.NumSurfaces)
}

// SceneBuilder collects spheres and produces a Scene with surfaces ahead
// of lights regardless of insertion order.
type SceneBuilder struct {
	surfaces []Sphere
	lights   []Sphere
}

// AddSurface appends a surface sphere.
func (b *SceneBuilder) AddSurface(s Sphere) *SceneBuilder {
	b.surfaces = append(b.surfaces, s)
	return b
}

// AddLight appends a light sphere.
func (b *SceneBuilder) AddLight(s Sphere) *SceneBuilder {
	b.lights = append(b.lights, s)
	return b
}

// Reset drops all collected spheres.
func (b *SceneBuilder) Reset() {
	b.surfaces = b.surfaces[:0]
	b.lights = b.lights[:0]
}

// Build assembles the parallel arrays.
func (b *SceneBuilder) Build() (*Scene, error) {
	n := len(b.surfaces) + len(b.lights)
	positions := make([]mgl32.Vec3, 0, n)
	radii := make([]float32, 0, n)
	colors := make([]color.RGBA, 0, n)
	for _, s := range slices.Concat(b.surfaces, b.lights) {
		positions = append(positions, s.Center)
		radii = append(radii, s.Radius)
		colors = append(colors, s.Color)
	}
	return NewScene(positions, radii, colors, len(b.surfaces), len(b.lights))
}
