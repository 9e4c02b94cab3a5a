//go:build !nogpu

// Package gpu runs the sphere ray-trace kernel as a WebGPU compute shader
// through gogpu/wgpu (Vulkan, Metal, DX12 or GLES, zero CGO).
//
// The kernel source lives in shaders/raytrace.wgsl. It is validated and
// compiled to SPIR-V by gogpu/naga when the backend initializes, so a
// malformed kernel surfaces as an rt.DeviceSetupError carrying the
// compiler log.
//
// # Data layout
//
// The scene is uploaded once per change as three storage buffers:
//
//	binding 1  positions  array<vec4<f32>>  (w unused)
//	binding 2  radii      array<f32>
//	binding 3  colors     array<u32>        (RGBA, red in the low byte)
//
// Binding 0 is a uniform holding width, height and the surface and light
// counts. Binding 4 receives one packed RGBA u32 per pixel, which is read
// back through a staging buffer and copied verbatim into the frame.
//
// Work groups hold 64 invocations. Large frames are dispatched as a 2-D
// grid and flattened in the shader, so the per-dimension limit of 65535
// groups never caps the image size.
//
// # Memory
//
// Device buffers are owned by a BufferCache keyed by purpose. Buffers are
// reused across frames while large enough, scene buffers are retained,
// and idle buffers are evicted least recently used first when the budget
// (Config.MaxMemoryMB) is exceeded.
package gpu
