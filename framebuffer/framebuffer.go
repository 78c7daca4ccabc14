// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package framebuffer implements off-screen render
// targets.
// A Framebuffer is created from a Builder, which
// validates the requested attachments against the
// capabilities of the context before creating any GPU
// object.
package framebuffer

import (
	"slices"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
	"github.com/gviegas/glrt/texture"
)

// Framebuffer is a framebuffer object and its
// attachments.
// Framebuffers are always managed: the texture
// attachments are rebuilt by the textures themselves,
// and Invalidate recreates the renderbuffers and the
// framebuffer object.
type Framebuffer struct {
	ctx      *resource.Context
	gpu      driver.GPU
	id       resource.ID
	width    int
	height   int
	cube     bool
	reqs     []request
	params   texture.Params
	attachs  []Attachment
	cubes    []*texture.Cubemap
	handle   driver.Handle
	fallback bool
	disposed bool
}

func (f *Framebuffer) init(ctx *resource.Context, b *Builder, cube bool) error {
	caps := ctx.Caps()
	if err := b.validate(caps, cube); err != nil {
		return err
	}
	*f = Framebuffer{
		ctx:    ctx,
		gpu:    ctx.GPU(),
		width:  b.width,
		height: b.height,
		cube:   cube,
		reqs:   slices.Clone(b.reqs),
		params: b.params,
	}
	if err := f.newTextures(); err != nil {
		f.disposeTextures()
		return err
	}
	status, err := f.attach()
	if err != nil {
		f.release()
		f.disposeTextures()
		return err
	}
	if status == driver.FramebufferUnsupported && separateDepthStencil(f.reqs) && caps.Has(driver.FeaturePackedDepthStencil) {
		glrt.Logger().Warn("separate depth/stencil unsupported, retrying with packed renderbuffer",
			"width", f.width, "height", f.height)
		f.release()
		f.reqs = packDepthStencil(f.reqs)
		f.fallback = true
		f.rebuildAttachments()
		status, err = f.attach()
		if err != nil {
			f.release()
			f.disposeTextures()
			return err
		}
	}
	if status != driver.FramebufferComplete {
		err := f.completenessError(status)
		f.release()
		f.disposeTextures()
		return err
	}
	f.id = ctx.Register(resource.KindFramebuffer, f)
	glrt.Logger().Debug("framebuffer created", "handle", f.handle, "width", f.width, "height", f.height,
		"attachments", len(f.attachs), "fallback", f.fallback)
	return nil
}

// newTextures creates the texture attachments and
// initializes f.attachs.
func (f *Framebuffer) newTextures() error {
	f.rebuildAttachments()
	for i := range f.attachs {
		a := &f.attachs[i]
		if a.Source != TextureSource {
			continue
		}
		r := f.reqs[i]
		if f.cube {
			var faces [6]texture.Data
			for j := range faces {
				faces[j] = f.textureData(r)
			}
			c, err := texture.NewCubemap(f.ctx, texture.NewCubemapData(faces, false), f.params)
			if err != nil {
				return err
			}
			f.cubes = append(f.cubes, c)
			a.Texture = &c.Texture
			continue
		}
		t, err := texture.New(f.ctx, f.textureData(r), f.params)
		if err != nil {
			return err
		}
		a.Texture = t
	}
	return nil
}

func (f *Framebuffer) textureData(r request) texture.Data {
	if r.float {
		return texture.NewFloatData(f.width, f.height, r.internal, r.format, true)
	}
	return texture.NewGPUOnlyData(f.width, f.height, r.internal, r.format, r.typ, false)
}

// rebuildAttachments sets f.attachs from f.reqs, keeping
// the textures that were already created.
func (f *Framebuffer) rebuildAttachments() {
	var texs []*texture.Texture
	for _, a := range f.attachs {
		if a.Source == TextureSource && a.Texture != nil {
			texs = append(texs, a.Texture)
		}
	}
	f.attachs = make([]Attachment, len(f.reqs))
	color := 0
	for i, r := range f.reqs {
		a := Attachment{
			Source:   r.source,
			Class:    r.class,
			Internal: r.internal,
			Float:    r.float,
		}
		switch r.class {
		case Color:
			a.Point = driver.ColorAttachment0 + driver.Enum(color)
			color++
		case Depth:
			a.Point = driver.DepthAttachment
		case Stencil:
			a.Point = driver.StencilAttachment
		case DepthStencil:
			a.Point = driver.DepthStencilAttachment
		}
		if a.Source == TextureSource && len(texs) > 0 {
			a.Texture, texs = texs[0], texs[1:]
		}
		f.attachs[i] = a
	}
}

// attach creates the renderbuffers and the framebuffer
// object, attaches everything and queries completeness.
// The default framebuffer is bound on return.
func (f *Framebuffer) attach() (driver.Enum, error) {
	fb, err := f.gpu.NewFramebuffer()
	if err != nil {
		return 0, err
	}
	f.handle = fb
	f.gpu.BindFramebuffer(fb)
	defer f.gpu.BindFramebuffer(f.gpu.DefaultFramebuffer())
	var bufs []driver.Enum
	for i := range f.attachs {
		a := &f.attachs[i]
		switch a.Source {
		case TextureSource:
			target := driver.Texture2D
			if f.cube {
				target = driver.CubeFace(0)
			}
			f.gpu.FramebufferTexture2D(a.Point, target, a.Texture.Handle(), 0)
		case RenderbufferSource:
			rb, err := f.gpu.NewRenderbuffer()
			if err != nil {
				return 0, err
			}
			a.Renderbuffer = rb
			f.gpu.BindRenderbuffer(rb)
			f.gpu.RenderbufferStorage(a.Internal, f.width, f.height)
			f.gpu.BindRenderbuffer(0)
			if a.Class == DepthStencil && f.ctx.Caps().Version.Major < 3 {
				f.gpu.FramebufferRenderbuffer(driver.DepthAttachment, rb)
				f.gpu.FramebufferRenderbuffer(driver.StencilAttachment, rb)
			} else {
				f.gpu.FramebufferRenderbuffer(a.Point, rb)
			}
		}
		if a.Class == Color {
			bufs = append(bufs, a.Point)
		}
	}
	if len(bufs) > 1 {
		f.gpu.DrawBuffers(bufs)
	}
	return f.gpu.CheckFramebufferStatus(), nil
}

// release deletes the renderbuffers and the framebuffer
// object.
func (f *Framebuffer) release() {
	for i := range f.attachs {
		a := &f.attachs[i]
		if a.Source == RenderbufferSource && a.Renderbuffer != 0 {
			f.gpu.DeleteRenderbuffer(a.Renderbuffer)
			a.Renderbuffer = 0
		}
	}
	if f.handle != 0 {
		f.gpu.DeleteFramebuffer(f.handle)
		f.handle = 0
	}
}

func (f *Framebuffer) disposeTextures() {
	for i := range f.attachs {
		if t := f.attachs[i].Texture; t != nil {
			t.Dispose()
		}
	}
	f.cubes = nil
}

func (f *Framebuffer) completenessError(status driver.Enum) *glerr.CompletenessError {
	fmts := make([]driver.Enum, len(f.attachs))
	for i, a := range f.attachs {
		fmts[i] = a.Internal
	}
	return &glerr.CompletenessError{
		Status:      status,
		Width:       f.width,
		Height:      f.height,
		Attachments: fmts,
		Fallback:    f.fallback,
	}
}

// Name implements resource.Resource.
func (f *Framebuffer) Name() string {
	if f.cube {
		return "cubemap framebuffer " + f.id.String()
	}
	return "framebuffer " + f.id.String()
}

// Invalidate implements resource.Resource.
// It recreates the renderbuffers and the framebuffer
// object and attaches the textures again.
// Texture attachments must have been rebuilt already.
func (f *Framebuffer) Invalidate() error {
	if f.disposed {
		return nil
	}
	for i := range f.attachs {
		f.attachs[i].Renderbuffer = 0
	}
	f.handle = 0
	status, err := f.attach()
	if err != nil {
		f.release()
		return err
	}
	if status != driver.FramebufferComplete {
		err := f.completenessError(status)
		f.release()
		return err
	}
	return nil
}

// Handle returns the framebuffer object.
func (f *Framebuffer) Handle() driver.Handle { return f.handle }

// Width returns the width of the attachments.
func (f *Framebuffer) Width() int { return f.width }

// Height returns the height of the attachments.
func (f *Framebuffer) Height() int { return f.height }

// Attachments returns a copy of the attachments.
func (f *Framebuffer) Attachments() []Attachment { return slices.Clone(f.attachs) }

// Packed returns whether separate depth and stencil
// requests were replaced by a packed renderbuffer.
func (f *Framebuffer) Packed() bool { return f.fallback }

// ColorTexture returns the texture of the i-th color
// attachment, or nil if the attachment is a renderbuffer
// or does not exist.
func (f *Framebuffer) ColorTexture(i int) *texture.Texture {
	for _, a := range f.attachs {
		if a.Class == Color && a.Point == driver.ColorAttachment0+driver.Enum(i) {
			return a.Texture
		}
	}
	return nil
}

// DepthTexture returns the texture of the depth
// attachment, or nil if there is none.
func (f *Framebuffer) DepthTexture() *texture.Texture {
	for _, a := range f.attachs {
		if a.Class == Depth {
			return a.Texture
		}
	}
	return nil
}

// Begin binds f and sets the viewport to its
// dimensions.
func (f *Framebuffer) Begin() error {
	if f.disposed {
		return glerr.ErrDisposed
	}
	f.gpu.BindFramebuffer(f.handle)
	f.gpu.Viewport(0, 0, f.width, f.height)
	return nil
}

// End binds the default framebuffer.
// The viewport is left unchanged.
func (f *Framebuffer) End() {
	f.gpu.BindFramebuffer(f.gpu.DefaultFramebuffer())
}

// EndViewport binds the default framebuffer and sets the
// viewport.
func (f *Framebuffer) EndViewport(x, y, width, height int) {
	f.End()
	f.gpu.Viewport(x, y, width, height)
}

// Dispose deletes the framebuffer object and its
// attachments.
func (f *Framebuffer) Dispose() {
	if f.disposed {
		return
	}
	f.ctx.Unregister(f.id)
	f.release()
	f.disposeTextures()
	f.disposed = true
}
