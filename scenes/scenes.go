// Package scenes loads tracer scenes from YAML files and builds preset
// scenes for demos and tests.
//
// A scene file places a camera and two lists of spheres in world space:
//
//	camera:
//	  position: [0, 0, 0]
//	  look_at: [10, 0, 0]
//	  up: [0, 0, 1]
//	surfaces:
//	  - {center: [10, 0, 0], radius: 2, color: "#cc3333"}
//	lights:
//	  - {center: [8, 3, 4], radius: 0.5, color: [255, 255, 220]}
//
// Colors are "#rrggbb", "#rrggbbaa" or a list of three or four bytes.
// An omitted up vector means +z.
package scenes

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"

	"github.com/gogpu/rt"
)

// ErrInvalidColor is returned for colors that are neither hex strings nor
// byte lists.
var ErrInvalidColor = errors.New("scenes: invalid color")

// File is the YAML document of a scene.
type File struct {
	Camera   Camera   `yaml:"camera"`
	Surfaces []Sphere `yaml:"surfaces,omitempty"`
	Lights   []Sphere `yaml:"lights,omitempty"`
}

// Camera is the camera section of a scene file.
type Camera struct {
	Position Vec  `yaml:"position"`
	LookAt   Vec  `yaml:"look_at"`
	Up       *Vec `yaml:"up,omitempty"`
}

// Sphere is one entry of the surfaces or lights list.
type Sphere struct {
	Center Vec     `yaml:"center"`
	Radius float32 `yaml:"radius"`
	Color  Color   `yaml:"color"`
}

// Vec is a 3-vector written as a YAML flow sequence.
type Vec [3]float32

// Color is an RGBA color with hex or list YAML forms.
type Color color.RGBA

// UnmarshalYAML accepts "#rrggbb", "#rrggbbaa" or [r, g, b] / [r, g, b, a].
// A missing alpha is 255.
func (c *Color) UnmarshalYAML(n *yaml.Node) error {
	switch n.Kind {
	case yaml.ScalarNode:
		var r, g, b uint8
		a := uint8(255)
		s := n.Value
		var err error
		switch len(s) {
		case 7:
			_, err = fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b)
		case 9:
			_, err = fmt.Sscanf(s, "#%02x%02x%02x%02x", &r, &g, &b, &a)
		default:
			err = errors.New("want #rrggbb or #rrggbbaa")
		}
		if err != nil {
			return fmt.Errorf("%w %q at line %d: %v", ErrInvalidColor, s, n.Line, err)
		}
		*c = Color{r, g, b, a}
		return nil

	case yaml.SequenceNode:
		var v []int
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("%w at line %d: %v", ErrInvalidColor, n.Line, err)
		}
		for _, x := range v {
			if x < 0 || x > 255 {
				return fmt.Errorf("%w at line %d: component %d out of range", ErrInvalidColor, n.Line, x)
			}
		}
		switch len(v) {
		case 3:
			*c = Color{uint8(v[0]), uint8(v[1]), uint8(v[2]), 255}
		case 4:
			*c = Color{uint8(v[0]), uint8(v[1]), uint8(v[2]), uint8(v[3])}
		default:
			return fmt.Errorf("%w at line %d: %d components", ErrInvalidColor, n.Line, len(v))
		}
		return nil
	}
	return fmt.Errorf("%w at line %d", ErrInvalidColor, n.Line)
}

// MarshalYAML writes the hex form.
func (c Color) MarshalYAML() (any, error) {
	if c.A == 255 {
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B), nil
	}
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A), nil
}

// MarshalYAML writes vectors in flow style.
func (v Vec) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, f := range v {
		n.Content = append(n.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: fmt.Sprint(f)})
	}
	return n, nil
}

// Parse decodes a scene document. Unknown fields are errors.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("scenes: %w", err)
	}
	return &f, nil
}

// Load reads and parses a scene file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenes: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Encode writes f as YAML.
func (f *File) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return fmt.Errorf("scenes: %w", err)
	}
	return enc.Close()
}

// RTCamera returns the camera described by the file.
func (f *File) RTCamera() rt.Camera {
	up := mgl32.Vec3{0, 0, 1}
	if f.Camera.Up != nil {
		up = mgl32.Vec3(*f.Camera.Up)
	}
	return rt.LookAt(mgl32.Vec3(f.Camera.Position), mgl32.Vec3(f.Camera.LookAt), up)
}

// Build returns the world-space scene and its camera.
func (f *File) Build() (*rt.Scene, rt.Camera, error) {
	var b rt.SceneBuilder
	for _, s := range f.Surfaces {
		b.AddSurface(s.rtSphere())
	}
	for _, s := range f.Lights {
		b.AddLight(s.rtSphere())
	}
	scene, err := b.Build()
	if err != nil {
		return nil, rt.Camera{}, err
	}
	return scene, f.RTCamera(), nil
}

// BuildLocal returns the scene already transformed into camera space,
// ready for rt.Renderer.SetScene.
func (f *File) BuildLocal() (*rt.Scene, error) {
	world, cam, err := f.Build()
	if err != nil {
		return nil, err
	}
	return cam.ToLocal(world)
}

func (s Sphere) rtSphere() rt.Sphere {
	return rt.Sphere{Center: mgl32.Vec3(s.Center), Radius: s.Radius, Color: color.RGBA(s.Color)}
}
