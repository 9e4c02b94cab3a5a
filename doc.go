// Package rt is a sphere ray tracer with a GPU compute kernel and a CPU
// reference backend.
//
// # Overview
//
// A scene is three parallel arrays (positions, radii, colors) whose first
// NumSurfaces entries are surfaces and whose remaining NumLights entries are
// lights. Every pixel casts one ray from the camera origin, finds the
// nearest sphere, and is shaded: lights render their own color, surfaces
// and misses render a fixed ambient tint derived from the ray direction.
// There are no shadow rays, bounces or acceleration structures.
//
// # Quick Start
//
//	import "github.com/gogpu/rt"
//
//	var b rt.SceneBuilder
//	b.AddSurface(rt.Sphere{Center: mgl32.Vec3{5, 0, 0}, Radius: 1})
//	b.AddLight(rt.Sphere{Center: mgl32.Vec3{8, 2, 2}, Radius: 0.5, Color: color.RGBA{255, 240, 200, 255}})
//	scene, err := b.Build()
//
//	r, err := rt.NewRenderer()
//	defer r.Close()
//	err = r.SetScene(scene)
//	frame, err := r.Render(ctx, 640, 480)
//	png.Encode(w, frame.Image())
//
// # Coordinates
//
// The tracer works in camera-local space: camera at the origin, looking
// down +x, +y to the right, +z up. Camera.ToLocal converts world scenes.
//
// # Backends
//
// Without further setup renderers trace on the CPU. Importing the gpu
// package registers a WebGPU compute backend when a device is available:
//
//	import _ "github.com/gogpu/rt/gpu"
//
// # Errors
//
// Scene validation fails with *ShapeMismatchError before any device work.
// Device acquisition and kernel compilation fail with *DeviceSetupError;
// per-frame allocation, submission or readback failures with
// *DeviceRuntimeError. A failed frame is never returned.
package rt
