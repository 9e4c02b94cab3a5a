package rt

import (
	"errors"
	"fmt"
)

var (
	// ErrShapeMismatch matches every *ShapeMismatchError via errors.Is.
	ErrShapeMismatch = errors.New("rt: shape mismatch")

	// ErrDeviceSetup matches every *DeviceSetupError via errors.Is.
	ErrDeviceSetup = errors.New("rt: device setup failed")

	// ErrDeviceRuntime matches every *DeviceRuntimeError via errors.Is.
	ErrDeviceRuntime = errors.New("rt: device runtime failure")

	// ErrNoScene is returned by Render before any scene has been set.
	ErrNoScene = errors.New("rt: no scene set")

	// ErrRendererClosed is returned by operations on a closed Renderer.
	ErrRendererClosed = errors.New("rt: renderer closed")

	// ErrInvalidDimensions is returned for a non-positive width or height.
	ErrInvalidDimensions = errors.New("rt: width and height must be positive")

	// ErrDegenerateCamera is returned when a camera basis cannot be built.
	ErrDegenerateCamera = errors.New("rt: degenerate camera basis")
)

// ShapeMismatchError reports scene arrays whose lengths disagree with each
// other or with the declared surface and light counts. Dimension is
// "radii" or "colors" when that array's length differs from positions, and
// "counts" when a count is negative or the counts do not add up to the
// array length.
type ShapeMismatchError struct {
	Dimension string
	Got       int
	Want      int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("rt: shape mismatch: %s = %d, want %d", e.Dimension, e.Got, e.Want)
}

// Is reports whether target is ErrShapeMismatch.
func (e *ShapeMismatchError) Is(target error) bool { return target == ErrShapeMismatch }

// DeviceSetupError is a fatal failure while acquiring a device or building
// the kernel. Stage names the step ("adapter", "device", "compile",
// "pipeline") and Log carries compiler diagnostics when there are any.
type DeviceSetupError struct {
	Stage string
	Log   string
	Err   error
}

func (e *DeviceSetupError) Error() string {
	msg := fmt.Sprintf("rt: device setup failed at %s: %v", e.Stage, e.Err)
	if e.Log != "" {
		msg += "\n" + e.Log
	}
	return msg
}

func (e *DeviceSetupError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDeviceSetup.
func (e *DeviceSetupError) Is(target error) bool { return target == ErrDeviceSetup }

// DeviceRuntimeError is a failure of one dispatch: an allocation, upload,
// submission or readback. The frame it belonged to is not produced.
type DeviceRuntimeError struct {
	Op  string
	Err error
}

func (e *DeviceRuntimeError) Error() string {
	return fmt.Sprintf("rt: %s: %v", e.Op, e.Err)
}

func (e *DeviceRuntimeError) Unwrap() error { return e.Err }

// Is reports whether target is ErrDeviceRuntime.
func (e *DeviceRuntimeError) Is(target error) bool { return target == ErrDeviceRuntime }
