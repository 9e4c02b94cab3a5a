package rt

import (
	"bytes"
	"context"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/gogpu/rt/internal/kernel"
)

func testScene(t *testing.T) *Scene {
	t.Helper()
	var b SceneBuilder
	b.AddSurface(Sphere{Center: mgl32.Vec3{8, 1, 0}, Radius: 2, Color: color.RGBA{200, 0, 0, 255}})
	b.AddSurface(Sphere{Center: mgl32.Vec3{12, -4, -1}, Radius: 3, Color: color.RGBA{0, 200, 0, 255}})
	b.AddLight(Sphere{Center: mgl32.Vec3{6, -2, 2}, Radius: 1, Color: color.RGBA{255, 240, 120, 255}})
	s, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSoftwareBackendMatchesKernel(t *testing.T) {
	s := testScene(t)
	b := NewSoftwareBackend(4)
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.Upload(s); err != nil {
		t.Fatal(err)
	}

	params := kernel.Params{Width: 37, Height: 23}
	ks := s.KernelScene()
	want := make([]byte, 4*params.Width*params.Height)
	kernel.Trace(params, &ks, want)

	for _, group := range []int{1, 7, 64, 1000} {
		got := make([]byte, len(want))
		req := DispatchRequest{Width: params.Width, Height: params.Height, WorkGroupSize: group}
		if err := b.Dispatch(context.Background(), req, got); err != nil {
			t.Fatalf("Dispatch(group=%d) error = %v", group, err)
		}
		if !bytes.Equal(got, want) {
			t.Errorf("Dispatch(group=%d) output differs from sequential kernel", group)
		}
	}
}

func TestSoftwareBackendNotInitialized(t *testing.T) {
	b := NewSoftwareBackend(1)
	err := b.Dispatch(context.Background(), DispatchRequest{Width: 1, Height: 1}, make([]byte, 4))
	if err == nil {
		t.Error("Dispatch() before Init should fail")
	}
}

func TestSoftwareBackendUploadCopies(t *testing.T) {
	s := testScene(t)
	b := NewSoftwareBackend(1)
	if err := b.Init(); err != nil {
		t.Fatal(err)
	}
	defer b.Close()
	if err := b.Upload(s); err != nil {
		t.Fatal(err)
	}

	req := DispatchRequest{Width: 16, Height: 16}
	before := make([]byte, 4*16*16)
	if err := b.Dispatch(context.Background(), req, before); err != nil {
		t.Fatal(err)
	}
	s.Radii[0] = 0.01
	after := make([]byte, len(before))
	if err := b.Dispatch(context.Background(), req, after); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("mutating the scene after Upload changed the output")
	}
}
