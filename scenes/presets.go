package scenes

import (
	"pgregory.net/rand"
)

// Default is a small scene: three colored spheres in front of a camera at
// the origin looking along +x, lit by one light.
func Default() *File {
	return &File{
		Camera: Camera{LookAt: Vec{1, 0, 0}},
		Surfaces: []Sphere{
			{Center: Vec{10, 0, 0}, Radius: 2, Color: Color{204, 51, 51, 255}},
			{Center: Vec{14, -5, 1}, Radius: 2.5, Color: Color{51, 204, 51, 255}},
			{Center: Vec{12, 5, -1}, Radius: 1.5, Color: Color{51, 51, 204, 255}},
		},
		Lights: []Sphere{
			{Center: Vec{8, 2, 4}, Radius: 0.5, Color: Color{255, 250, 220, 255}},
		},
	}
}

// Grid is an n x n wall of unit spheres at x = 20 facing the camera, with
// a light in each corner.
func Grid(n int) *File {
	f := &File{Camera: Camera{LookAt: Vec{1, 0, 0}}}
	if n <= 0 {
		return f
	}
	const spacing = 2.5
	half := float32(n-1) * spacing / 2
	for i := range n {
		for j := range n {
			f.Surfaces = append(f.Surfaces, Sphere{
				Center: Vec{20, float32(i)*spacing - half, float32(j)*spacing - half},
				Radius: 1,
				Color:  Color{uint8(255 * i / max(n-1, 1)), uint8(255 * j / max(n-1, 1)), 128, 255},
			})
		}
	}
	for _, y := range []float32{-half - spacing, half + spacing} {
		for _, z := range []float32{-half - spacing, half + spacing} {
			f.Lights = append(f.Lights, Sphere{Center: Vec{18, y, z}, Radius: 0.5, Color: Color{255, 255, 255, 255}})
		}
	}
	return f
}

// Random scatters n spheres in a box in front of the camera; roughly one
// in eight is a light. The same seed always yields the same scene.
func Random(seed uint64, n int) *File {
	r := rand.New(seed)
	f := &File{Camera: Camera{LookAt: Vec{1, 0, 0}}}
	for range n {
		s := Sphere{
			Center: Vec{5 + 45*r.Float32(), 40*r.Float32() - 20, 20*r.Float32() - 10},
			Radius: 0.25 + 2*r.Float32(),
			Color:  Color{uint8(r.Intn(256)), uint8(r.Intn(256)), uint8(r.Intn(256)), 255},
		}
		if r.Intn(8) == 0 {
			s.Radius /= 2
			f.Lights = append(f.Lights, s)
			continue
		}
		f.Surfaces = append(f.Surfaces, s)
	}
	return f
}

// Preset returns a named preset: "default", "grid" or "random". n sizes
// the grid and random presets; seed feeds the random one.
func Preset(name string, n int, seed uint64) (*File, bool) {
	switch name {
	case "default", "":
		return Default(), true
	case "grid":
		return Grid(n), true
	case "random":
		return Random(seed, n), true
	}
	return nil, false
}
