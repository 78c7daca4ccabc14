// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package framebuffer

import (
	"slices"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
	"github.com/gviegas/glrt/texture"
)

// Builder collects attachment requests for a Framebuffer.
// Requests are validated by Build, before any GPU call.
type Builder struct {
	width  int
	height int
	reqs   []request
	params texture.Params
}

// NewBuilder creates a Builder for framebuffers of the
// given dimensions.
func NewBuilder(width, height int) *Builder {
	return &Builder{width: width, height: height, params: texture.DefaultParams()}
}

func (b *Builder) add(r request) *Builder {
	b.reqs = append(b.reqs, r)
	return b
}

// SetTextureParams sets the sampling parameters of the
// texture attachments.
func (b *Builder) SetTextureParams(p texture.Params) *Builder {
	b.params = p
	return b
}

// AddColorTexture requests a color texture.
func (b *Builder) AddColorTexture(internal, format, typ driver.Enum) *Builder {
	return b.add(request{source: TextureSource, class: Color, internal: internal, format: format, typ: typ})
}

// AddBasicColorTexture requests a color texture whose
// format is derived from f.
func (b *Builder) AddBasicColorTexture(f texture.PixelFormat) *Builder {
	internal, format, typ := basicFormat(f)
	return b.AddColorTexture(internal, format, typ)
}

func basicFormat(f texture.PixelFormat) (internal, format, typ driver.Enum) {
	switch f {
	case texture.RGB888:
		return driver.RGB, driver.RGB, driver.UnsignedByte
	case texture.RGB565:
		return driver.RGB, driver.RGB, driver.UnsignedShort565
	case texture.RGBA4444:
		return driver.RGBA, driver.RGBA, driver.UnsignedShort4444
	}
	return driver.RGBA, driver.RGBA, driver.UnsignedByte
}

// AddFloatTexture requests a float color texture.
// A zero format means RGBA.
func (b *Builder) AddFloatTexture(internal, format driver.Enum) *Builder {
	if format == 0 {
		format = driver.RGBA
	}
	return b.add(request{source: TextureSource, class: Color, internal: internal, format: format, typ: driver.Float, float: true})
}

// AddDepthTexture requests a depth texture.
func (b *Builder) AddDepthTexture(internal, typ driver.Enum) *Builder {
	return b.add(request{source: TextureSource, class: Depth, internal: internal, format: driver.DepthComponent, typ: typ})
}

// AddStencilTexture requests a stencil texture.
func (b *Builder) AddStencilTexture(internal, typ driver.Enum) *Builder {
	return b.add(request{source: TextureSource, class: Stencil, internal: internal, format: driver.StencilIndex, typ: typ})
}

// AddColorRenderbuffer requests a color renderbuffer.
func (b *Builder) AddColorRenderbuffer(internal driver.Enum) *Builder {
	return b.add(request{source: RenderbufferSource, class: Color, internal: internal})
}

// AddDepthRenderbuffer requests a depth renderbuffer.
func (b *Builder) AddDepthRenderbuffer(internal driver.Enum) *Builder {
	return b.add(request{source: RenderbufferSource, class: Depth, internal: internal})
}

// AddStencilRenderbuffer requests a stencil renderbuffer.
func (b *Builder) AddStencilRenderbuffer(internal driver.Enum) *Builder {
	return b.add(request{source: RenderbufferSource, class: Stencil, internal: internal})
}

// AddPackedDepthStencilRenderbuffer requests a packed
// depth/stencil renderbuffer.
func (b *Builder) AddPackedDepthStencilRenderbuffer(internal driver.Enum) *Builder {
	return b.add(request{source: RenderbufferSource, class: DepthStencil, internal: internal})
}

// validate checks the requests against the allow-lists
// and the capabilities in caps.
func (b *Builder) validate(caps driver.Caps, cube bool) error {
	const op = "framebuffer.Build"
	lim := min(caps.Limits.MaxTextureSize, caps.Limits.MaxRenderbufferSize)
	switch {
	case b.width < 1 || b.height < 1:
		return glerr.Configf(op, "invalid dimensions %dx%d", b.width, b.height)
	case b.width > lim || b.height > lim:
		return glerr.Configf(op, "dimensions %dx%d exceed the limit of %d", b.width, b.height, lim)
	case cube && b.width != b.height:
		return glerr.Configf(op, "cubemap dimensions %dx%d are not square", b.width, b.height)
	case len(b.reqs) == 0:
		return glerr.Configf(op, "no attachments")
	}
	var colors, depths, stencils int
	for _, r := range b.reqs {
		if !slices.Contains(allowed(r.class, r.float), r.internal) {
			if r.class == Color && slices.Contains(floatColorFormats, r.internal) {
				return glerr.Configf(op, "float format %v requested as a non-float color attachment", r.internal)
			}
			return glerr.Configf(op, "format %v is not a valid %v %v format", r.internal, r.class, r.source)
		}
		switch r.class {
		case Color:
			colors++
			if r.float {
				if !caps.Has(driver.FeatureFloatColorBuffers) {
					return glerr.Configf(op, "float color attachments not supported by %v", caps.Version)
				}
				if r.source == TextureSource && !caps.Has(driver.FeatureFloatTextures) {
					return glerr.Configf(op, "float textures not supported by %v", caps.Version)
				}
			}
		case Depth:
			depths++
		case Stencil:
			stencils++
		case DepthStencil:
			depths++
			stencils++
			if !caps.Has(driver.FeaturePackedDepthStencil) {
				return glerr.Configf(op, "packed depth/stencil not supported by %v", caps.Version)
			}
			if r.internal == driver.Depth32FStencil8 && caps.Version.Major < 3 {
				return glerr.Configf(op, "%v requires version 3", r.internal)
			}
		}
		if r.class != Color && r.source == TextureSource {
			if cube {
				return glerr.Configf(op, "cubemap %v attachments must be renderbuffers", r.class)
			}
			if !caps.Has(driver.FeatureDepthTextures) {
				return glerr.Configf(op, "%v textures not supported by %v", r.class, caps.Version)
			}
			if r.class == Stencil && caps.Version.Major < 3 {
				return glerr.Configf(op, "stencil textures require version 3")
			}
		}
	}
	switch {
	case colors > 1 && !caps.Has(driver.FeatureMultipleRenderTargets):
		return glerr.Configf(op, "%d color attachments requested, multiple render targets not supported by %v", colors, caps.Version)
	case colors > caps.Limits.MaxColorAttachments:
		return glerr.Configf(op, "%d color attachments requested, at most %d allowed", colors, caps.Limits.MaxColorAttachments)
	case depths > 1:
		return glerr.Configf(op, "more than one depth attachment requested")
	case stencils > 1:
		return glerr.Configf(op, "more than one stencil attachment requested")
	case cube && colors == 0:
		return glerr.Configf(op, "cubemap framebuffers need a color attachment")
	}
	return nil
}

// Build validates the requests and creates a Framebuffer.
// Validation errors are *glerr.ConfigurationError and
// completeness errors are *glerr.CompletenessError; in
// either case no GPU object is left behind.
func (b *Builder) Build(ctx *resource.Context) (*Framebuffer, error) {
	f := &Framebuffer{}
	if err := f.init(ctx, b, false); err != nil {
		return nil, err
	}
	return f, nil
}

// BuildCubemap validates the requests and creates a
// CubemapFramebuffer.
// Color attachments become cube map textures, and depth
// and stencil attachments must be renderbuffers.
func (b *Builder) BuildCubemap(ctx *resource.Context) (*CubemapFramebuffer, error) {
	c := &CubemapFramebuffer{side: -1}
	if err := c.init(ctx, b, true); err != nil {
		return nil, err
	}
	return c, nil
}

// separateDepthStencil returns whether reqs has both a
// depth and a stencil renderbuffer.
func separateDepthStencil(reqs []request) bool {
	var d, s bool
	for _, r := range reqs {
		if r.source == RenderbufferSource {
			d = d || r.class == Depth
			s = s || r.class == Stencil
		}
	}
	return d && s
}

// packDepthStencil returns reqs with the depth and stencil
// renderbuffers replaced by one packed renderbuffer.
func packDepthStencil(reqs []request) []request {
	packed := make([]request, 0, len(reqs))
	for _, r := range reqs {
		if r.source == RenderbufferSource && (r.class == Depth || r.class == Stencil) {
			continue
		}
		packed = append(packed, r)
	}
	return append(packed, request{source: RenderbufferSource, class: DepthStencil, internal: driver.Depth24Stencil8})
}
