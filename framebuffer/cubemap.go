// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package framebuffer

import (
	"errors"
	"fmt"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/texture"
)

// Side is a side of a cube map.
type Side int

// Cube map sides, in the order that NextSide binds them.
const (
	PositiveX Side = iota
	NegativeX
	PositiveY
	NegativeY
	PositiveZ
	NegativeZ
)

// Target returns the texture target of s.
func (s Side) Target() driver.Enum { return driver.CubeFace(int(s)) }

func (s Side) String() string {
	if s < PositiveX || s > NegativeZ {
		return fmt.Sprintf("Side(%d)", int(s))
	}
	return [...]string{"+X", "-X", "+Y", "-Y", "+Z", "-Z"}[s]
}

// CubemapFramebuffer is a Framebuffer whose color
// attachments are cube maps.
// Rendering to it follows a Begin, NextSide, End
// protocol:
//
//	if err := fb.Begin(); err != nil { ... }
//	for {
//		side, ok, err := fb.NextSide()
//		if err != nil { ... }
//		if !ok {
//			break
//		}
//		// Draw side.
//	}
//	if err := fb.End(); err != nil { ... }
type CubemapFramebuffer struct {
	Framebuffer
	side   int
	active bool
}

var errNotActive = errors.New("framebuffer: cubemap framebuffer is not active")

// Begin binds f and sets the viewport.
// No side is bound until NextSide is called.
func (f *CubemapFramebuffer) Begin() error {
	if err := f.Framebuffer.Begin(); err != nil {
		return err
	}
	f.side = -1
	f.active = true
	return nil
}

// NextSide binds the next side of the color attachments.
// It returns false after the sixth side.
func (f *CubemapFramebuffer) NextSide() (Side, bool, error) {
	switch {
	case !f.active:
		return 0, false, errNotActive
	case f.side >= int(NegativeZ):
		return NegativeZ, false, nil
	}
	f.side++
	s := Side(f.side)
	for _, a := range f.attachs {
		if a.Class == Color && a.Source == TextureSource {
			f.gpu.FramebufferTexture2D(a.Point, s.Target(), a.Texture.Handle(), 0)
		}
	}
	return s, true, nil
}

// End binds the default framebuffer.
// It returns glerr.ErrIncompleteCubemap if fewer than six
// sides were bound since Begin.
func (f *CubemapFramebuffer) End() error {
	if !f.active {
		return errNotActive
	}
	f.active = false
	f.Framebuffer.End()
	if f.side < int(NegativeZ) {
		return glerr.ErrIncompleteCubemap
	}
	return nil
}

// EndViewport calls End and sets the viewport.
func (f *CubemapFramebuffer) EndViewport(x, y, width, height int) error {
	err := f.End()
	f.gpu.Viewport(x, y, width, height)
	return err
}

// Size returns the length of the sides.
func (f *CubemapFramebuffer) Size() int { return f.width }

// ColorCubemap returns the cube map of the i-th color
// texture attachment, or nil if there is none.
func (f *CubemapFramebuffer) ColorCubemap(i int) *texture.Cubemap {
	if i < 0 || i >= len(f.cubes) {
		return nil
	}
	return f.cubes[i]
}
