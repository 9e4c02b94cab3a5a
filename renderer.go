package rt

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

// SkinPass is a sibling GPU pass, such as vertex skinning, that shares the
// device with the tracer. RenderFrame runs its three steps in order under
// the device lock before tracing.
type SkinPass interface {
	// UploadBones writes the bone transforms of an animation frame.
	UploadBones(frame int) error

	// Run starts the pass. It may return before the work completes.
	Run(ctx context.Context) error

	// Wait blocks until the pass has finished writing shared resources.
	Wait(ctx context.Context) error
}

// RenderStats summarizes a renderer's activity.
type RenderStats struct {
	Backend      string
	Frames       uint64
	Uploads      uint64
	LastDispatch time.Duration
}

// device is a backend shared by every renderer using it. Its mutex is the
// synchronization point between scene uploads, sibling passes and traces.
type device struct {
	mu      sync.Mutex
	backend Backend
	owner   *Renderer // renderer whose scene is currently uploaded
}

var (
	devicesMu sync.Mutex
	devices   = map[Backend]*devRef{}
)

type devRef struct {
	dev   *device
	refs  int
	owned bool // close the backend when the last renderer goes away
}

func acquireDevice(b Backend, owned bool) *device {
	devicesMu.Lock()
	defer devicesMu.Unlock()
	ref, ok := devices[b]
	if !ok {
		ref = &devRef{dev: &device{backend: b}, owned: owned}
		devices[b] = ref
	}
	ref.refs++
	return ref.dev
}

func releaseDevice(d *device) {
	devicesMu.Lock()
	ref := devices[d.backend]
	ref.refs--
	last := ref.refs == 0
	if last {
		delete(devices, d.backend)
	}
	devicesMu.Unlock()
	// The registry closes its backend when it is replaced.
	if last && ref.owned && d.backend != RegisteredBackend() {
		d.backend.Close()
	}
}

// Renderer is the tracing context: it owns a device handle, the current
// scene and the last frame. Every device operation serializes on the
// device lock, so a Renderer is safe for concurrent use.
type Renderer struct {
	dev           *device
	workGroupSize int
	log           *slog.Logger

	// Guarded by dev.mu.
	scene  *Scene
	last   *Frame
	stats  RenderStats
	closed bool
}

// NewRenderer acquires a backend and returns a renderer without a scene.
//
// The backend is the one given by WithBackend, else the registered one,
// else a new SoftwareBackend. Backends the renderer creates or is handed
// are initialized here, so Init must tolerate being called again on a
// backend shared by several renderers. A failure is returned as a
// *DeviceSetupError.
func NewRenderer(opts ...Option) (*Renderer, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	b, owned := o.backend, true
	if b == nil || b == RegisteredBackend() {
		if b = RegisteredBackend(); b != nil {
			owned = false
		} else {
			b = NewSoftwareBackend(0)
		}
	}
	if owned {
		if err := b.Init(); err != nil {
			var setup *DeviceSetupError
			if !errors.As(err, &setup) {
				err = &DeviceSetupError{Stage: "init", Err: err}
			}
			return nil, err
		}
		propagateLogger(b, Logger())
	}

	r := &Renderer{
		dev:           acquireDevice(b, owned),
		workGroupSize: o.workGroupSize,
		log:           o.logger,
	}
	r.stats.Backend = b.Name()
	r.logger().Info("rt: renderer created", "backend", b.Name(), "workGroupSize", r.workGroupSize)
	return r, nil
}

func (r *Renderer) logger() *slog.Logger {
	if r.log != nil {
		return r.log
	}
	return Logger()
}

// Backend returns the backend the renderer dispatches to.
func (r *Renderer) Backend() Backend { return r.dev.backend }

// SetScene validates s, keeps a private copy and uploads it, replacing the
// previous scene. On a *ShapeMismatchError nothing is uploaded and the
// previous scene stays current.
func (r *Renderer) SetScene(s *Scene) error {
	if s == nil {
		return ErrNoScene
	}
	if err := s.Validate(); err != nil {
		return err
	}
	c := s.Clone()

	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	r.scene = c
	return r.uploadLocked()
}

// SetSceneArrays is SetScene over raw parallel arrays.
func (r *Renderer) SetSceneArrays(positions []mgl32.Vec3, radii []float32, colors []color.RGBA, numSurfaces, numLights int) error {
	s, err := NewScene(positions, radii, colors, numSurfaces, numLights)
	if err != nil {
		return err
	}
	return r.SetScene(s)
}

// uploadLocked copies r.scene to the device. Callers hold dev.mu.
func (r *Renderer) uploadLocked() error {
	if err := r.dev.backend.Upload(r.scene); err != nil {
		r.dev.owner = nil
		r.scene = nil
		var runtimeErr *DeviceRuntimeError
		if !errors.As(err, &runtimeErr) {
			err = &DeviceRuntimeError{Op: "upload scene", Err: err}
		}
		return err
	}
	r.dev.owner = r
	r.stats.Uploads++
	r.logger().Debug("rt: scene uploaded",
		"surfaces", r.scene.NumSurfaces, "lights", r.scene.NumLights)
	return nil
}

// Render traces the current scene at width x height and returns the frame,
// which also becomes LastFrame. An empty scene yields a 1x1 frame.
func (r *Renderer) Render(ctx context.Context, width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	return r.renderLocked(ctx, width, height)
}

// RenderFrame sequences a sibling pass before tracing: it uploads the
// pass's bones for frame, runs the pass and waits for it, then traces.
// No other renderer sharing the device can interleave. A nil pass traces
// only.
func (r *Renderer) RenderFrame(ctx context.Context, pass SkinPass, frame, width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.closed {
		return nil, ErrRendererClosed
	}

	if pass != nil {
		if err := pass.UploadBones(frame); err != nil {
			return nil, fmt.Errorf("rt: upload bones for frame %d: %w", frame, err)
		}
		if err := pass.Run(ctx); err != nil {
			return nil, fmt.Errorf("rt: run skin pass: %w", err)
		}
		if err := pass.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rt: wait for skin pass: %w", err)
		}
	}
	return r.renderLocked(ctx, width, height)
}

func (r *Renderer) renderLocked(ctx context.Context, width, height int) (*Frame, error) {
	if r.closed {
		return nil, ErrRendererClosed
	}
	if r.scene == nil {
		return nil, ErrNoScene
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.dev.owner != r {
		if err := r.uploadLocked(); err != nil {
			return nil, err
		}
	}

	var f *Frame
	if r.scene.IsEmpty() {
		f = NewFrame(1, 1)
	} else {
		f = NewFrame(width, height)
	}

	req := DispatchRequest{Width: width, Height: height, WorkGroupSize: r.workGroupSize}
	start := time.Now()
	if err := r.dev.backend.Dispatch(ctx, req, f.Pix); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return nil, err
		}
		var runtimeErr *DeviceRuntimeError
		if !errors.As(err, &runtimeErr) {
			err = &DeviceRuntimeError{Op: "dispatch", Err: err}
		}
		return nil, err
	}
	elapsed := time.Since(start)

	r.last = f
	r.stats.Frames++
	r.stats.LastDispatch = elapsed
	r.logger().Debug("rt: frame rendered",
		"width", width, "height", height, "pixels", f.Len(), "elapsed", elapsed)
	return f, nil
}

// Sync runs fn while holding the device lock, for collaborator work that
// must not overlap a scene upload or a trace.
func (r *Renderer) Sync(fn func() error) error {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	if r.closed {
		return ErrRendererClosed
	}
	return fn()
}

// Scene returns the current scene, or nil. The result must not be modified.
func (r *Renderer) Scene() *Scene {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	return r.scene
}

// LastFrame returns the most recent frame, or nil before the first Render.
func (r *Renderer) LastFrame() *Frame {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	return r.last
}

// Stats returns a snapshot of the renderer's counters.
func (r *Renderer) Stats() RenderStats {
	r.dev.mu.Lock()
	defer r.dev.mu.Unlock()
	return r.stats
}

// Close releases the renderer's hold on its backend. The backend is closed
// when no renderer uses it, unless it is the registered backend.
// Close is safe to call multiple times.
func (r *Renderer) Close() error {
	r.dev.mu.Lock()
	if r.closed {
		r.dev.mu.Unlock()
		return nil
	}
	r.closed = true
	r.scene = nil
	if r.dev.owner == r {
		r.dev.owner = nil
	}
	r.dev.mu.Unlock()

	releaseDevice(r.dev)
	return nil
}
