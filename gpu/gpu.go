//go:build !nogpu

// Package gpu registers the WebGPU ray-trace backend.
//
// Import it for side effects to trace on the GPU. Renderers created
// without rt.WithBackend then use the shared GPU backend:
//
//	import _ "github.com/gogpu/rt/gpu" // trace on the GPU
//
// If the kernel cannot be compiled or no Vulkan, Metal, DX12 or GLES
// device is available, registration is skipped with a warning and
// renderers fall back to the software backend.
package gpu

import (
	"github.com/gogpu/rt"
	gpuimpl "github.com/gogpu/rt/internal/gpu"
)

func init() {
	if err := rt.RegisterBackend(gpuimpl.NewBackend(gpuimpl.Config{})); err != nil {
		rt.Logger().Warn("GPU backend not available", "err", err)
	}
}

// Config configures a GPU backend created with NewBackend.
type Config = gpuimpl.Config

// NewBackend returns an uninitialized GPU backend, for use with
// rt.WithBackend when a renderer needs its own device or settings.
func NewBackend(cfg Config) rt.Backend {
	return gpuimpl.NewBackend(cfg)
}

// SetDeviceProvider makes the registered GPU backend share the device of
// an external gpucontext.DeviceProvider, such as a window, instead of its
// own. Scenes already uploaded are uploaded again on the shared device.
func SetDeviceProvider(provider any) error {
	return rt.SetBackendDeviceProvider(provider)
}
