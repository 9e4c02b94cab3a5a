//go:build !nogpu

package gpu

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"
	_ "github.com/gogpu/wgpu/hal/allbackends" // register Vulkan, Metal, DX12, GLES

	"github.com/gogpu/rt"
)

// BackendName is the name reported by the wgpu backend.
const BackendName = "wgpu"

// DefaultMapTimeout bounds how long Dispatch waits for the readback map.
const DefaultMapTimeout = 10 * time.Second

// Binding numbers of shaders/raytrace.wgsl.
const (
	bindingParams uint32 = iota
	bindingPositions
	bindingRadii
	bindingColors
	bindingPixels
)

// Buffer cache tags.
const (
	tagParams    = "params"
	tagPositions = "positions"
	tagRadii     = "radii"
	tagColors    = "colors"
	tagPixels    = "pixels"
	tagStaging   = "staging"
)

// Config configures the wgpu backend.
type Config struct {
	// MaxMemoryMB is the device buffer budget. 0 selects DefaultMaxMemoryMB.
	MaxMemoryMB int

	// PowerPreference selects the adapter. The zero value asks for high
	// performance.
	PowerPreference wgpu.PowerPreference

	// ForceFallbackAdapter requests a software adapter.
	ForceFallbackAdapter bool

	// MapTimeout bounds the readback wait. 0 selects DefaultMapTimeout.
	MapTimeout time.Duration
}

// GPUInfo describes the adapter the backend runs on.
type GPUInfo struct {
	Name       string
	Vendor     string
	DeviceType gputypes.DeviceType
	Driver     string
	Shared     bool
}

// String returns a human-readable summary.
func (i *GPUInfo) String() string {
	if i == nil {
		return "no GPU"
	}
	s := fmt.Sprintf("%s (%s, %s)", i.Name, i.Vendor, i.DeviceType)
	if i.Shared {
		s += " [shared]"
	}
	return s
}

// Backend runs the ray-trace kernel as a WebGPU compute pipeline.
//
// Init compiles the kernel before touching the device, so a broken shader
// is reported as a compile failure even on machines without a GPU.
type Backend struct {
	cfg Config

	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	external bool // device belongs to a DeviceProvider
	info     *GPUInfo

	spirv    []uint32
	module   *wgpu.ShaderModule
	layout   *wgpu.BindGroupLayout
	pipeLay  *wgpu.PipelineLayout
	pipeline *wgpu.ComputePipeline

	buffers *BufferCache[*wgpu.Buffer]

	scene   *packedScene
	pending bool // scene must be written before the next dispatch

	initialized bool
}

// NewBackend returns an uninitialized backend.
func NewBackend(cfg Config) *Backend {
	if cfg.PowerPreference == gputypes.PowerPreferenceNone {
		cfg.PowerPreference = wgpu.PowerPreferenceHighPerformance
	}
	if cfg.MapTimeout <= 0 {
		cfg.MapTimeout = DefaultMapTimeout
	}
	return &Backend{cfg: cfg}
}

// Name returns "wgpu".
func (b *Backend) Name() string { return BackendName }

// SetLogger sets the package logger. Called by rt.SetLogger.
func (b *Backend) SetLogger(l *slog.Logger) { setLogger(l) }

// Info returns the adapter description, or nil before Init.
func (b *Backend) Info() *GPUInfo {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.info
}

// MemoryStats returns the buffer cache counters.
func (b *Backend) MemoryStats() BufferStats {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffers == nil {
		return BufferStats{}
	}
	return b.buffers.Stats()
}

// Init compiles the kernel, opens a device and builds the pipeline.
// Calling Init on an initialized backend does nothing.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.initialized {
		return nil
	}

	spirv, err := compileKernel(raytraceShaderSource)
	if err != nil {
		return err
	}
	b.spirv = spirv

	if err := b.openDevice(); err != nil {
		b.releaseLocked()
		return err
	}
	if err := b.createPipeline(); err != nil {
		b.releaseLocked()
		return err
	}

	b.buffers = NewBufferCache(b.allocBuffer, BufferCacheConfig{MaxMemoryMB: b.cfg.MaxMemoryMB})
	b.initialized = true
	slogger().Info("rt/gpu: backend initialized", "gpu", b.info.String())
	return nil
}

func (b *Backend) openDevice() error {
	instance, err := wgpu.CreateInstance(&wgpu.InstanceDescriptor{Backends: wgpu.BackendsPrimary})
	if err != nil {
		return &rt.DeviceSetupError{Stage: "instance", Err: err}
	}
	b.instance = instance

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      b.cfg.PowerPreference,
		ForceFallbackAdapter: b.cfg.ForceFallbackAdapter,
	})
	if err != nil {
		return &rt.DeviceSetupError{Stage: "adapter", Err: err}
	}
	b.adapter = adapter

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return &rt.DeviceSetupError{Stage: "device", Err: err}
	}
	b.device = device
	b.queue = device.Queue()

	ai := adapter.Info()
	b.info = &GPUInfo{Name: ai.Name, Vendor: ai.Vendor, DeviceType: ai.DeviceType, Driver: ai.Driver}
	return nil
}

// createPipeline builds the shader module, the bind group layout and the
// compute pipeline on the current device.
func (b *Backend) createPipeline() error {
	module, err := b.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "rt_raytrace",
		SPIRV: b.spirv,
	})
	if err != nil {
		return &rt.DeviceSetupError{Stage: "pipeline", Err: fmt.Errorf("shader module: %w", err)}
	}
	b.module = module

	layout, err := b.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "rt_raytrace_bgl",
		Entries: []wgpu.BindGroupLayoutEntry{
			bufferLayoutEntry(bindingParams, gputypes.BufferBindingTypeUniform),
			bufferLayoutEntry(bindingPositions, gputypes.BufferBindingTypeReadOnlyStorage),
			bufferLayoutEntry(bindingRadii, gputypes.BufferBindingTypeReadOnlyStorage),
			bufferLayoutEntry(bindingColors, gputypes.BufferBindingTypeReadOnlyStorage),
			bufferLayoutEntry(bindingPixels, gputypes.BufferBindingTypeStorage),
		},
	})
	if err != nil {
		return &rt.DeviceSetupError{Stage: "pipeline", Err: fmt.Errorf("bind group layout: %w", err)}
	}
	b.layout = layout

	pipeLay, err := b.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "rt_raytrace_layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{layout},
	})
	if err != nil {
		return &rt.DeviceSetupError{Stage: "pipeline", Err: fmt.Errorf("pipeline layout: %w", err)}
	}
	b.pipeLay = pipeLay

	pipeline, err := b.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:      "rt_raytrace_pipeline",
		Layout:     pipeLay,
		Module:     module,
		EntryPoint: kernelEntryPoint,
	})
	if err != nil {
		return &rt.DeviceSetupError{Stage: "pipeline", Err: fmt.Errorf("compute pipeline: %w", err)}
	}
	b.pipeline = pipeline
	return nil
}

func bufferLayoutEntry(binding uint32, typ gputypes.BufferBindingType) wgpu.BindGroupLayoutEntry {
	return wgpu.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: wgpu.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: typ},
	}
}

func (b *Backend) allocBuffer(tag string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error) {
	return b.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "rt_" + tag,
		Size:  size,
		Usage: usage,
	})
}

// SetDeviceProvider switches the backend to a device owned by provider,
// which must be a gpucontext.DeviceProvider backed by a *wgpu.Device.
// The pipeline is rebuilt on the shared device and the current scene is
// uploaded again before the next dispatch.
func (b *Backend) SetDeviceProvider(provider any) error {
	dp, ok := provider.(gpucontext.DeviceProvider)
	if !ok {
		return fmt.Errorf("rt/gpu: provider %T is not a gpucontext.DeviceProvider", provider)
	}
	device, ok := dp.Device().(*wgpu.Device)
	if !ok || device == nil {
		return fmt.Errorf("rt/gpu: provider device %T is not a *wgpu.Device", dp.Device())
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.spirv == nil {
		spirv, err := compileKernel(raytraceShaderSource)
		if err != nil {
			return err
		}
		b.spirv = spirv
	}

	b.releaseLocked()
	b.device = device
	b.queue = device.Queue()
	b.external = true

	ai := dp.AdapterInfo()
	b.info = &GPUInfo{Name: ai.Name, DeviceType: deviceType(ai.Type), Shared: true}

	if err := b.createPipeline(); err != nil {
		b.releaseLocked()
		return err
	}
	b.buffers = NewBufferCache(b.allocBuffer, BufferCacheConfig{MaxMemoryMB: b.cfg.MaxMemoryMB})
	b.pending = b.scene != nil
	b.initialized = true
	slogger().Info("rt/gpu: using shared device", "gpu", b.info.String())
	return nil
}

func deviceType(t gpucontext.AdapterType) gputypes.DeviceType {
	switch t {
	case gpucontext.AdapterTypeDiscrete:
		return gputypes.DeviceTypeDiscreteGPU
	case gpucontext.AdapterTypeIntegrated:
		return gputypes.DeviceTypeIntegratedGPU
	case gpucontext.AdapterTypeSoftware:
		return gputypes.DeviceTypeCPU
	default:
		return gputypes.DeviceTypeOther
	}
}

// Upload packs the scene and writes it to the retained scene buffers.
func (b *Backend) Upload(scene *rt.Scene) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return rt.ErrRendererClosed
	}
	b.scene = packScene(scene.Positions, scene.Radii, scene.Colors, scene.NumSurfaces, scene.NumLights)
	b.pending = true
	return b.writeSceneLocked()
}

func (b *Backend) writeSceneLocked() error {
	storage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst
	for _, part := range []struct {
		tag  string
		data []byte
	}{
		{tagPositions, b.scene.positions},
		{tagRadii, b.scene.radii},
		{tagColors, b.scene.colors},
	} {
		buf, err := b.buffers.Acquire(part.tag, uint64(len(part.data)), storage)
		if err != nil {
			return err
		}
		b.buffers.Retain(part.tag, true)
		if err := b.queue.WriteBuffer(buf, 0, part.data); err != nil {
			return fmt.Errorf("write %s: %w", part.tag, err)
		}
	}
	b.pending = false
	slogger().Debug("rt/gpu: scene uploaded",
		"surfaces", b.scene.numSurfaces, "lights", b.scene.numLights, "memory", b.buffers.Stats().String())
	return nil
}

// Dispatch traces the uploaded scene and reads the pixels back into dst.
func (b *Backend) Dispatch(ctx context.Context, req rt.DispatchRequest, dst []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.initialized {
		return rt.ErrRendererClosed
	}
	if b.scene == nil {
		return rt.ErrNoScene
	}
	if b.pending {
		if err := b.writeSceneLocked(); err != nil {
			return err
		}
	}

	params := kernelParams{
		width:       uint32(req.Width),  //nolint:gosec // validated positive by the renderer
		height:      uint32(req.Height), //nolint:gosec // validated positive by the renderer
		numSurfaces: b.scene.numSurfaces,
		numLights:   b.scene.numLights,
	}
	n := params.outputPixels()
	size := uint64(n) * 4
	if uint64(len(dst)) != size {
		return fmt.Errorf("rt/gpu: destination holds %d bytes, want %d", len(dst), size)
	}

	b.buffers.BeginFrame()
	paramsBuf, err := b.buffers.Acquire(tagParams, paramsSize, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	pixels, err := b.buffers.Acquire(tagPixels, size, wgpu.BufferUsageStorage|wgpu.BufferUsageCopySrc)
	if err != nil {
		return err
	}
	staging, err := b.buffers.Acquire(tagStaging, size, wgpu.BufferUsageMapRead|wgpu.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	if err := b.queue.WriteBuffer(paramsBuf, 0, params.toBytes()); err != nil {
		return fmt.Errorf("write params: %w", err)
	}

	bindGroup, err := b.createBindGroup(paramsBuf, pixels, size)
	if err != nil {
		return err
	}
	defer bindGroup.Release()

	err = b.encodeAndSubmit(bindGroup, pixels, staging, n, size)
	if err == nil {
		err = b.readback(ctx, staging, size, dst)
	}
	if errors.Is(err, wgpu.ErrDeviceLost) || errors.Is(err, wgpu.ErrOutOfMemory) {
		slogger().Error("rt/gpu: dispatch failed", "err", err)
		return &rt.DeviceRuntimeError{Op: "dispatch", Err: err}
	}
	return err
}

func (b *Backend) createBindGroup(paramsBuf, pixels *wgpu.Buffer, pixelBytes uint64) (*wgpu.BindGroup, error) {
	entries := []wgpu.BindGroupEntry{{Binding: bindingParams, Buffer: paramsBuf, Size: paramsSize}}
	for _, s := range []struct {
		binding uint32
		tag     string
		size    int
	}{
		{bindingPositions, tagPositions, len(b.scene.positions)},
		{bindingRadii, tagRadii, len(b.scene.radii)},
		{bindingColors, tagColors, len(b.scene.colors)},
	} {
		buf, ok := b.buffers.Lookup(s.tag)
		if !ok {
			return nil, fmt.Errorf("bind group: %s buffer missing", s.tag)
		}
		entries = append(entries, wgpu.BindGroupEntry{Binding: s.binding, Buffer: buf, Size: uint64(s.size)})
	}
	entries = append(entries, wgpu.BindGroupEntry{Binding: bindingPixels, Buffer: pixels, Size: pixelBytes})

	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   "rt_raytrace_bg",
		Layout:  b.layout,
		Entries: entries,
	})
	if err != nil {
		return nil, fmt.Errorf("bind group: %w", err)
	}
	return bg, nil
}

func (b *Backend) encodeAndSubmit(bg *wgpu.BindGroup, pixels, staging *wgpu.Buffer, n uint32, size uint64) error {
	enc, err := b.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("command encoder: %w", err)
	}
	pass, err := enc.BeginComputePass(nil)
	if err != nil {
		return fmt.Errorf("compute pass: %w", err)
	}
	x, y := dispatchGrid(n)
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(x, y, 1)
	if err := pass.End(); err != nil {
		return fmt.Errorf("end compute pass: %w", err)
	}
	enc.CopyBufferToBuffer(pixels, 0, staging, 0, size)

	cmd, err := enc.Finish()
	if err != nil {
		return fmt.Errorf("finish encoder: %w", err)
	}
	defer cmd.Release()
	if _, err := b.queue.Submit(cmd); err != nil {
		return fmt.Errorf("submit: %w", err)
	}
	slogger().Debug("rt/gpu: dispatched", "pixels", n, "groups_x", x, "groups_y", y)
	return nil
}

func (b *Backend) readback(ctx context.Context, staging *wgpu.Buffer, size uint64, dst []byte) error {
	mapCtx, cancel := context.WithTimeout(ctx, b.cfg.MapTimeout)
	defer cancel()

	if err := staging.Map(mapCtx, wgpu.MapModeRead, 0, size); err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return fmt.Errorf("map readback buffer: timed out after %v: %w", b.cfg.MapTimeout, err)
		}
		return fmt.Errorf("map readback buffer: %w", err)
	}
	defer staging.Unmap() //nolint:errcheck // nothing to recover after copying

	rng, err := staging.MappedRange(0, size)
	if err != nil {
		return fmt.Errorf("mapped range: %w", err)
	}
	copy(dst, rng.Bytes())
	return nil
}

// Close releases every device resource. A shared device is left open.
func (b *Backend) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.releaseLocked()
	b.scene = nil
	b.spirv = nil
}

func (b *Backend) releaseLocked() {
	if b.buffers != nil {
		b.buffers.Close()
		b.buffers = nil
	}
	if b.pipeline != nil {
		b.pipeline.Release()
		b.pipeline = nil
	}
	if b.pipeLay != nil {
		b.pipeLay.Release()
		b.pipeLay = nil
	}
	if b.layout != nil {
		b.layout.Release()
		b.layout = nil
	}
	if b.module != nil {
		b.module.Release()
		b.module = nil
	}
	if b.device != nil && !b.external {
		if err := b.device.WaitIdle(); err != nil {
			slogger().Warn("rt/gpu: wait idle on close", "err", err)
		}
		b.device.Release()
	}
	b.device = nil
	b.queue = nil
	b.external = false
	if b.adapter != nil {
		b.adapter.Release()
		b.adapter = nil
	}
	if b.instance != nil {
		b.instance.Release()
		b.instance = nil
	}
	b.info = nil
	b.initialized = false
}
