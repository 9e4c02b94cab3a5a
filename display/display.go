// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package display presents traced frames on a host window through the
// gpucontext texture interfaces, so the tracer does not depend on any
// particular windowing library.
//
//	p := display.New()
//	app.OnDraw(func(dc *gogpu.Context) {
//	    frame, _ := renderer.Render(ctx, w, h)
//	    p.Present(dc.AsTextureDrawer(), frame, 0, 0)
//	})
package display

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/rt"
)

// Presentation errors.
var (
	// ErrPresenterClosed is returned when presenting after Close.
	ErrPresenterClosed = errors.New("display: presenter is closed")

	// ErrNoTextureCreator is returned when the drawer cannot create textures.
	ErrNoTextureCreator = errors.New("display: drawer has no texture creator")

	// ErrNilFrame is returned when presenting a nil frame.
	ErrNilFrame = errors.New("display: nil frame")
)

// textureDestroyer matches gogpu.Texture.Destroy.
type textureDestroyer interface {
	Destroy()
}

// Presenter uploads frames into one texture and draws it.
//
// The texture is created on the first frame, updated in place while the
// frame size stays the same, and recreated on resize. A replaced texture
// is destroyed only after its successor exists, since creation waits for
// the GPU and the old texture may still be referenced by in-flight work.
//
// Presenter is not safe for concurrent use.
type Presenter struct {
	texture gpucontext.Texture
	width   int
	height  int
	closed  bool

	created int
	updated int
}

// New returns a presenter with no texture.
func New() *Presenter {
	return &Presenter{}
}

// Present uploads f and draws it at (x, y) in window pixels.
func (p *Presenter) Present(dc gpucontext.TextureDrawer, f *rt.Frame, x, y float32) error {
	if p.closed {
		return ErrPresenterClosed
	}
	if f == nil {
		return ErrNilFrame
	}
	if err := p.upload(dc, f); err != nil {
		return err
	}
	return dc.DrawTexture(p.texture, x, y)
}

func (p *Presenter) upload(dc gpucontext.TextureDrawer, f *rt.Frame) error {
	if p.texture != nil && f.Width == p.width && f.Height == p.height {
		if u, ok := p.texture.(gpucontext.TextureUpdater); ok {
			if err := u.UpdateData(f.Pix); err != nil {
				return fmt.Errorf("display: texture update failed: %w", err)
			}
			p.updated++
			return nil
		}
	}

	creator := dc.TextureCreator()
	if creator == nil {
		return ErrNoTextureCreator
	}
	tex, err := creator.NewTextureFromRGBA(f.Width, f.Height, f.Pix)
	if err != nil {
		return fmt.Errorf("display: texture creation failed: %w", err)
	}
	destroy(p.texture)
	p.texture = tex
	p.width, p.height = f.Width, f.Height
	p.created++
	return nil
}

// Texture returns the current texture, or nil before the first frame.
func (p *Presenter) Texture() gpucontext.Texture { return p.texture }

// Counts returns how many textures were created and how many in-place
// updates were made.
func (p *Presenter) Counts() (created, updated int) { return p.created, p.updated }

// Close destroys the texture. Close is idempotent.
func (p *Presenter) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	destroy(p.texture)
	p.texture = nil
	return nil
}

func destroy(t gpucontext.Texture) {
	if d, ok := t.(textureDestroyer); ok {
		d.Destroy()
	}
}
