package rt

import (
	"errors"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/go-cmp/cmp"
)

func vecs(n int) []mgl32.Vec3 { return make([]mgl32.Vec3, n) }

func TestNewSceneShapeMismatch(t *testing.T) {
	tests := []struct {
		name      string
		positions int
		radii     int
		colors    int
		surfaces  int
		lights    int
		want      *ShapeMismatchError
	}{
		{"valid", 3, 3, 3, 2, 1, nil},
		{"empty", 0, 0, 0, 0, 0, nil},
		{"radii short", 3, 2, 3, 2, 1, &ShapeMismatchError{"radii", 2, 3}},
		{"colors long", 3, 3, 4, 2, 1, &ShapeMismatchError{"colors", 4, 3}},
		{"counts disagree", 3, 3, 3, 2, 2, &ShapeMismatchError{"counts", 4, 3}},
		{"negative surfaces", 0, 0, 0, -1, 1, &ShapeMismatchError{"counts", -1, 0}},
		{"negative lights", 0, 0, 0, 1, -1, &ShapeMismatchError{"counts", -1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewScene(vecs(tt.positions), make([]float32, tt.radii), make([]color.RGBA, tt.colors), tt.surfaces, tt.lights)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("NewScene() error = %v", err)
				}
				if s.Len() != tt.positions {
					t.Errorf("Len() = %d, want %d", s.Len(), tt.positions)
				}
				return
			}
			if !errors.Is(err, ErrShapeMismatch) {
				t.Fatalf("NewScene() error = %v, want ShapeMismatchError", err)
			}
			var got *ShapeMismatchError
			errors.As(err, &got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ShapeMismatchError mismatch (-want +got):\n%s", diff)
			}
			if s != nil {
				t.Error("NewScene() returned a scene alongside an error")
			}
		})
	}
}

func TestSceneBuilderOrdersSurfacesFirst(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	white := color.RGBA{255, 255, 255, 255}

	var b SceneBuilder
	b.AddLight(Sphere{Center: mgl32.Vec3{9, 0, 0}, Radius: 0.5, Color: white})
	b.AddSurface(Sphere{Center: mgl32.Vec3{5, 0, 0}, Radius: 1, Color: red})
	b.AddSurface(Sphere{Center: mgl32.Vec3{6, 1, 0}, Radius: 2, Color: red})

	s, err := b.Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if s.NumSurfaces != 2 || s.NumLights != 1 {
		t.Fatalf("counts = (%d, %d), want (2, 1)", s.NumSurfaces, s.NumLights)
	}
	wantRadii := []float32{1, 2, 0.5}
	if diff := cmp.Diff(wantRadii, s.Radii); diff != "" {
		t.Errorf("Radii mismatch (-want +got):\n%s", diff)
	}
	if got := s.Lights(); len(got) != 1 || got[0].Color != white {
		t.Errorf("Lights() = %v, want one white light", got)
	}
	if got := s.Surfaces(); len(got) != 2 || got[1].Center != (mgl32.Vec3{6, 1, 0}) {
		t.Errorf("Surfaces() = %v", got)
	}

	b.Reset()
	empty, err := b.Build()
	if err != nil {
		t.Fatalf("Build() after Reset error = %v", err)
	}
	if !empty.IsEmpty() {
		t.Error("Build() after Reset should be empty")
	}
}

func TestSceneClone(t *testing.T) {
	s, err := NewScene([]mgl32.Vec3{{1, 2, 3}}, []float32{1}, []color.RGBA{{1, 2, 3, 4}}, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	c := s.Clone()
	c.Positions[0] = mgl32.Vec3{}
	c.Radii[0] = 9
	if s.Positions[0] != (mgl32.Vec3{1, 2, 3}) || s.Radii[0] != 1 {
		t.Error("Clone() shares storage with the original")
	}
}

func TestSceneKernelScene(t *testing.T) {
	s, err := NewScene(vecs(3), []float32{1, 2, 3}, make([]color.RGBA, 3), 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	k := s.KernelScene()
	if k.Surfaces.Len() != 1 || k.Lights.Len() != 2 {
		t.Errorf("KernelScene() split = (%d, %d), want (1, 2)", k.Surfaces.Len(), k.Lights.Len())
	}
	if k.Lights.Radii[0] != 2 {
		t.Errorf("first light radius = %v, want 2", k.Lights.Radii[0])
	}
}
