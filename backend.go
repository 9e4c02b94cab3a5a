package rt

import (
	"context"
	"errors"
	"sync"
)

// DispatchRequest describes one kernel dispatch.
type DispatchRequest struct {
	// Width and Height are the image dimensions used to build pixel rays.
	Width, Height int

	// WorkGroupSize is the number of pixels scheduled together.
	// Backends with a fixed group size may ignore it.
	WorkGroupSize int
}

// Backend executes the ray-trace kernel on some device.
//
// A Backend holds at most one uploaded scene. Calls are serialized by the
// Renderer owning it, so implementations need not lock around Upload and
// Dispatch.
//
// GPU backends live outside this package and opt in via blank import:
//
//	import _ "github.com/gogpu/rt/gpu" // enables GPU tracing
type Backend interface {
	// Name returns the backend name (e.g., "software", "wgpu").
	Name() string

	// Init acquires the device and builds the kernel.
	Init() error

	// Close releases every device resource.
	Close()

	// Upload copies a validated scene to the device, replacing any
	// previous one. It runs once per scene change.
	Upload(scene *Scene) error

	// Dispatch traces every output pixel of the uploaded scene into dst,
	// which holds exactly 4 bytes per output pixel.
	Dispatch(ctx context.Context, req DispatchRequest, dst []byte) error
}

// DeviceProviderAware is implemented by backends that can share a GPU
// device with an external provider such as a window. The provider is
// typically a gpucontext.DeviceProvider.
type DeviceProviderAware interface {
	SetDeviceProvider(provider any) error
}

var (
	backendMu sync.RWMutex
	backend   Backend
)

// RegisterBackend initializes b and makes it the default backend for new
// renderers. If Init fails, b is not registered and the error is returned.
// A previously registered backend is closed.
//
//	func init() {
//	    rt.RegisterBackend(gpu.NewBackend(gpu.Config{}))
//	}
func RegisterBackend(b Backend) error {
	if b == nil {
		return errors.New("rt: backend must not be nil")
	}
	if err := b.Init(); err != nil {
		return err
	}
	propagateLogger(b, Logger())

	backendMu.Lock()
	old := backend
	backend = b
	backendMu.Unlock()
	if old != nil && old != b {
		old.Close()
	}
	return nil
}

// RegisteredBackend returns the registered backend, or nil if none.
func RegisteredBackend() Backend {
	backendMu.RLock()
	b := backend
	backendMu.RUnlock()
	return b
}

// UnregisterBackend removes and closes the registered backend.
func UnregisterBackend() {
	backendMu.Lock()
	old := backend
	backend = nil
	backendMu.Unlock()
	if old != nil {
		old.Close()
	}
}

// SetBackendDeviceProvider passes a device provider to the registered
// backend. It is a no-op when no backend is registered or the backend
// cannot share devices.
func SetBackendDeviceProvider(provider any) error {
	b := RegisteredBackend()
	if b == nil {
		return nil
	}
	if dpa, ok := b.(DeviceProviderAware); ok {
		return dpa.SetDeviceProvider(provider)
	}
	return nil
}
