//go:build !nogpu

package gpu

import (
	"encoding/binary"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Device data layout shared with shaders/raytrace.wgsl.
const (
	// paramsSize is the size of the Params uniform (4 x u32).
	paramsSize = 16

	// positionStride is one vec4<f32> per sphere center; w is unused.
	positionStride = 16

	// radiusStride and colorStride are one f32 and one packed u32.
	radiusStride = 4
	colorStride  = 4

	// minBindingSize keeps storage bindings non-empty for empty scenes.
	minBindingSize = 16

	// bufferAlignment is the allocation granularity of the buffer cache.
	bufferAlignment = 256

	// workgroupSize must match @workgroup_size in the kernel.
	workgroupSize = 64

	// maxGroupsPerDimension is the WebGPU default limit per dispatch axis.
	maxGroupsPerDimension = 65535
)

// kernelParams mirrors the WGSL Params struct.
type kernelParams struct {
	width       uint32
	height      uint32
	numSurfaces uint32
	numLights   uint32
}

func (p kernelParams) toBytes() []byte {
	buf := make([]byte, paramsSize)
	binary.LittleEndian.PutUint32(buf[0:], p.width)
	binary.LittleEndian.PutUint32(buf[4:], p.height)
	binary.LittleEndian.PutUint32(buf[8:], p.numSurfaces)
	binary.LittleEndian.PutUint32(buf[12:], p.numLights)
	return buf
}

// outputPixels is the number of pixels the kernel writes.
func (p kernelParams) outputPixels() uint32 {
	if p.numSurfaces+p.numLights == 0 {
		return 1
	}
	return p.width * p.height
}

// packedScene is a scene in device layout, kept on the host so it can be
// uploaded again after a device change.
type packedScene struct {
	positions   []byte
	radii       []byte
	colors      []byte
	numSurfaces uint32
	numLights   uint32
}

// packScene converts the parallel arrays to device layout. Every array is
// padded to at least minBindingSize bytes.
func packScene(positions []mgl32.Vec3, radii []float32, colors []color.RGBA, numSurfaces, numLights int) *packedScene {
	return &packedScene{
		positions:   packPositions(positions),
		radii:       packRadii(radii),
		colors:      packColors(colors),
		numSurfaces: uint32(numSurfaces), //nolint:gosec // validated non-negative
		numLights:   uint32(numLights),   //nolint:gosec // validated non-negative
	}
}

func packPositions(ps []mgl32.Vec3) []byte {
	buf := make([]byte, bindingSize(uint64(len(ps)*positionStride)))
	for i, p := range ps {
		o := i * positionStride
		binary.LittleEndian.PutUint32(buf[o:], math.Float32bits(p[0]))
		binary.LittleEndian.PutUint32(buf[o+4:], math.Float32bits(p[1]))
		binary.LittleEndian.PutUint32(buf[o+8:], math.Float32bits(p[2]))
	}
	return buf
}

func packRadii(rs []float32) []byte {
	buf := make([]byte, bindingSize(uint64(len(rs)*radiusStride)))
	for i, r := range rs {
		binary.LittleEndian.PutUint32(buf[i*radiusStride:], math.Float32bits(r))
	}
	return buf
}

// packColors stores RGBA as a little-endian u32, red in the low byte, which
// is also the byte order of the output pixels.
func packColors(cs []color.RGBA) []byte {
	buf := make([]byte, bindingSize(uint64(len(cs)*colorStride)))
	for i, c := range cs {
		o := i * colorStride
		buf[o], buf[o+1], buf[o+2], buf[o+3] = c.R, c.G, c.B, c.A
	}
	return buf
}

func bindingSize(n uint64) uint64 {
	return max(n, minBindingSize)
}

// alignSize rounds n up to the cache allocation granularity.
func alignSize(n uint64) uint64 {
	n = bindingSize(n)
	return (n + bufferAlignment - 1) &^ (bufferAlignment - 1)
}

// dispatchGrid splits a workgroup count into a 2-D grid that respects the
// per-dimension limit. The kernel flattens it back with num_workgroups.
func dispatchGrid(pixels uint32) (x, y uint32) {
	groups := (pixels + workgroupSize - 1) / workgroupSize
	if groups == 0 {
		return 0, 0
	}
	x = min(groups, maxGroupsPerDimension)
	y = (groups + x - 1) / x
	return x, y
}
