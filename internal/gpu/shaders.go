//go:build !nogpu

package gpu

import (
	_ "embed"
	"encoding/binary"
	"fmt"

	"github.com/gogpu/naga"

	"github.com/gogpu/rt"
)

//go:embed shaders/raytrace.wgsl
var raytraceShaderSource string

// kernelEntryPoint is the compute entry point of the ray-trace kernel.
const kernelEntryPoint = "main"

// compileKernel validates the kernel with naga and returns its SPIR-V.
// A failure is a *rt.DeviceSetupError carrying the compiler diagnostics.
func compileKernel(source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		return nil, &rt.DeviceSetupError{Stage: "compile", Log: err.Error(), Err: fmt.Errorf("ray-trace kernel: %w", err)}
	}
	if len(spirvBytes)%4 != 0 {
		return nil, &rt.DeviceSetupError{Stage: "compile", Err: fmt.Errorf("ray-trace kernel: SPIR-V length %d is not word aligned", len(spirvBytes))}
	}

	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(spirvBytes[i*4:])
	}
	return words, nil
}
