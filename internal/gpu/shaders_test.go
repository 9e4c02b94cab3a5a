//go:build !nogpu

package gpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/rt"
)

// spirvMagic is the first word of every SPIR-V module.
const spirvMagic = 0x07230203

func TestCompileKernel(t *testing.T) {
	words, err := compileKernel(raytraceShaderSource)
	if err != nil {
		t.Fatalf("compileKernel: %v", err)
	}
	if len(words) < 5 {
		t.Fatalf("SPIR-V has %d words, want a header at least", len(words))
	}
	if words[0] != spirvMagic {
		t.Errorf("magic = %#x, want %#x", words[0], spirvMagic)
	}
}

func TestKernelSourceMatchesLayout(t *testing.T) {
	for _, want := range []string{
		"@workgroup_size(64)",
		"@binding(0) var<uniform> params",
		"@binding(4) var<storage, read_write> pixels",
		"fn " + kernelEntryPoint + "(",
	} {
		if !strings.Contains(raytraceShaderSource, want) {
			t.Errorf("kernel source lacks %q", want)
		}
	}
}

func TestCompileKernelFailure(t *testing.T) {
	broken := strings.Replace(raytraceShaderSource, "let b = dot(dir, center);", "let b = dot(dir, center)", 1)

	_, err := compileKernel(broken)
	if err == nil {
		t.Fatal("compileKernel accepted a malformed kernel")
	}
	if !errors.Is(err, rt.ErrDeviceSetup) {
		t.Errorf("error %v is not ErrDeviceSetup", err)
	}
	var setupErr *rt.DeviceSetupError
	if !errors.As(err, &setupErr) {
		t.Fatalf("error %T is not *rt.DeviceSetupError", err)
	}
	if setupErr.Stage != "compile" {
		t.Errorf("Stage = %q, want %q", setupErr.Stage, "compile")
	}
	if setupErr.Log == "" {
		t.Error("compiler log is empty")
	}
}
