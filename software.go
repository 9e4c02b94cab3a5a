package rt

import (
	"context"
	"sync"

	"github.com/gogpu/rt/internal/kernel"
	"github.com/gogpu/rt/internal/parallel"
)

// SoftwareBackend runs the kernel on the CPU, one work group of pixels per
// pool task. Its output is the reference the GPU backend is tested against.
type SoftwareBackend struct {
	workers int

	mu    sync.Mutex
	pool  *parallel.WorkerPool
	scene kernel.Scene
}

// NewSoftwareBackend returns a CPU backend using the given number of
// workers; 0 or less means GOMAXPROCS.
func NewSoftwareBackend(workers int) *SoftwareBackend {
	return &SoftwareBackend{workers: workers}
}

// Name returns "software".
func (b *SoftwareBackend) Name() string { return "software" }

// Init starts the worker pool.
func (b *SoftwareBackend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pool == nil {
		b.pool = parallel.NewWorkerPool(b.workers)
	}
	return nil
}

// Close stops the worker pool.
func (b *SoftwareBackend) Close() {
	b.mu.Lock()
	pool := b.pool
	b.pool = nil
	b.scene = kernel.Scene{}
	b.mu.Unlock()
	if pool != nil {
		pool.Close()
	}
}

// Upload keeps a private copy of the scene.
func (b *SoftwareBackend) Upload(scene *Scene) error {
	c := scene.Clone()
	b.mu.Lock()
	b.scene = c.KernelScene()
	b.mu.Unlock()
	return nil
}

// Dispatch traces the uploaded scene into dst.
func (b *SoftwareBackend) Dispatch(ctx context.Context, req DispatchRequest, dst []byte) error {
	b.mu.Lock()
	pool, scene := b.pool, b.scene
	b.mu.Unlock()
	if pool == nil {
		return &DeviceRuntimeError{Op: "software dispatch", Err: ErrRendererClosed}
	}

	params := kernel.Params{Width: req.Width, Height: req.Height}
	n := kernel.OutputPixels(params, &scene)
	groupSize := req.WorkGroupSize
	if groupSize <= 0 {
		groupSize = kernel.DefaultWorkGroupSize
	}

	Logger().Debug("rt: software dispatch",
		"pixels", n, "groups", parallel.GroupCount(n, groupSize), "workers", pool.Workers())

	return pool.Dispatch(ctx, n, groupSize, func(lo, hi int) {
		kernel.TraceRange(lo, hi, params, &scene, dst)
	})
}
