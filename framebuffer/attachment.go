// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package framebuffer

import (
	"fmt"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/texture"
)

// Class is the class of an attachment format.
type Class int

// Attachment classes.
const (
	Color Class = iota
	Depth
	Stencil
	DepthStencil
)

func (c Class) String() string {
	switch c {
	case Color:
		return "color"
	case Depth:
		return "depth"
	case Stencil:
		return "stencil"
	case DepthStencil:
		return "depth/stencil"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Source identifies the storage backing an attachment.
type Source int

// Attachment sources.
const (
	TextureSource Source = iota
	RenderbufferSource
)

func (s Source) String() string {
	if s == RenderbufferSource {
		return "renderbuffer"
	}
	return "texture"
}

// Attachment is one binding point of a framebuffer.
// Source selects which of Texture and Renderbuffer is
// valid.
type Attachment struct {
	Source Source
	Class  Class
	// Point is the attachment point. Packed depth/stencil
	// renderbuffers use driver.DepthStencilAttachment even
	// when bound to the depth and stencil points separately.
	Point    driver.Enum
	Internal driver.Enum
	// Float is set for float color attachments.
	Float bool

	// Texture is valid if Source is TextureSource.
	// For cubemap framebuffers, it is the Texture of a
	// *texture.Cubemap.
	Texture *texture.Texture
	// Renderbuffer is valid if Source is
	// RenderbufferSource.
	Renderbuffer driver.Handle
}

// Handle returns the texture or renderbuffer object.
func (a *Attachment) Handle() driver.Handle {
	switch a.Source {
	case TextureSource:
		return a.Texture.Handle()
	case RenderbufferSource:
		return a.Renderbuffer
	}
	panic("framebuffer: undefined attachment source")
}

func (a Attachment) String() string {
	return fmt.Sprintf("%v %v %v at %v", a.Class, a.Source, a.Internal, a.Point)
}

// request is an attachment that was asked for but not yet
// created.
type request struct {
	source   Source
	class    Class
	internal driver.Enum
	format   driver.Enum
	typ      driver.Enum
	float    bool
}

var (
	colorFormats = []driver.Enum{
		driver.RGBA, driver.RGB, driver.RGBA8, driver.RGB8, driver.RGBA4,
		driver.RGB5A1, driver.RGB565, driver.R8, driver.RG8, driver.SRGB8Alpha8,
	}
	floatColorFormats = []driver.Enum{
		driver.R16F, driver.RG16F, driver.RGB16F, driver.RGBA16F,
		driver.R32F, driver.RG32F, driver.RGB32F, driver.RGBA32F,
	}
	depthFormats = []driver.Enum{
		driver.DepthComponent, driver.DepthComponent16, driver.DepthComponent24, driver.DepthComponent32F,
	}
	stencilFormats      = []driver.Enum{driver.StencilIndex8}
	depthStencilFormats = []driver.Enum{driver.Depth24Stencil8, driver.Depth32FStencil8}
)

// allowed returns the allow-list of a class.
func allowed(c Class, float bool) []driver.Enum {
	switch c {
	case Color:
		if float {
			return floatColorFormats
		}
		return colorFormats
	case Depth:
		return depthFormats
	case Stencil:
		return stencilFormats
	}
	return depthStencilFormats
}
