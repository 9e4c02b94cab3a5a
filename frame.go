package rt

import (
	"image"
	"image/color"

	"github.com/gogpu/rt/internal/kernel"
)

// Frame is one rendered image as packed RGBA bytes, row by row.
// The empty-scene fallback is a 1x1 frame.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*kernel.BytesPerPixel),
	}
}

// Len returns the number of pixels.
func (f *Frame) Len() int { return f.Width * f.Height }

// Stride returns the number of bytes per row.
func (f *Frame) Stride() int { return f.Width * kernel.BytesPerPixel }

// At returns the pixel at (x, y).
func (f *Frame) At(x, y int) color.RGBA {
	o := y*f.Stride() + x*kernel.BytesPerPixel
	return color.RGBA{R: f.Pix[o], G: f.Pix[o+1], B: f.Pix[o+2], A: f.Pix[o+3]}
}

// Image returns an *image.RGBA sharing the frame's pixels.
// All kernel output is opaque, so premultiplication is a no-op.
func (f *Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Stride(),
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{Width: f.Width, Height: f.Height, Pix: make([]byte, len(f.Pix))}
	copy(out.Pix, f.Pix)
	return out
}
