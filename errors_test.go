package rt

import (
	"errors"
	"strings"
	"testing"
)

func TestShapeMismatchError(t *testing.T) {
	err := error(&ShapeMismatchError{Dimension: "radii", Got: 2, Want: 3})
	if !errors.Is(err, ErrShapeMismatch) {
		t.Error("errors.Is(ShapeMismatchError, ErrShapeMismatch) = false")
	}
	if errors.Is(err, ErrDeviceSetup) {
		t.Error("ShapeMismatchError should not match ErrDeviceSetup")
	}
	want := "rt: shape mismatch: radii = 2, want 3"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestDeviceSetupError(t *testing.T) {
	cause := errors.New("unknown identifier")
	err := error(&DeviceSetupError{Stage: "compile", Log: "line 3: bad token", Err: cause})
	if !errors.Is(err, ErrDeviceSetup) {
		t.Error("errors.Is(DeviceSetupError, ErrDeviceSetup) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("DeviceSetupError should unwrap to its cause")
	}
	msg := err.Error()
	for _, part := range []string{"compile", "unknown identifier", "line 3: bad token"} {
		if !strings.Contains(msg, part) {
			t.Errorf("Error() = %q, missing %q", msg, part)
		}
	}

	var setup *DeviceSetupError
	if !errors.As(err, &setup) || setup.Stage != "compile" {
		t.Errorf("errors.As() stage = %v, want compile", setup)
	}
}

func TestDeviceRuntimeError(t *testing.T) {
	cause := errors.New("out of memory")
	err := error(&DeviceRuntimeError{Op: "allocate pixels", Err: cause})
	if !errors.Is(err, ErrDeviceRuntime) {
		t.Error("errors.Is(DeviceRuntimeError, ErrDeviceRuntime) = false")
	}
	if !errors.Is(err, cause) {
		t.Error("DeviceRuntimeError should unwrap to its cause")
	}
	if want := "rt: allocate pixels: out of memory"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
