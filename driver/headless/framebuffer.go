// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package headless

import (
	"maps"
	"slices"

	"github.com/gviegas/glrt/driver"
)

type fbAttach struct {
	tex       driver.Handle
	texTarget driver.Enum
	level     int
	rb        driver.Handle
}

type framebufObj struct {
	attach   map[driver.Enum]fbAttach
	drawBufs []driver.Enum
}

// DefaultFramebuffer implements driver.GPU.
func (g *GPU) DefaultFramebuffer() driver.Handle { return 0 }

// NewFramebuffer implements driver.GPU.
func (g *GPU) NewFramebuffer() (driver.Handle, error) {
	h, err := g.newHandle()
	if err != nil {
		return 0, err
	}
	g.framebuffers[h] = &framebufObj{attach: make(map[driver.Enum]fbAttach)}
	return h, nil
}

// BindFramebuffer implements driver.GPU.
func (g *GPU) BindFramebuffer(h driver.Handle) {
	if h != 0 && g.framebuffers[h] == nil {
		g.stats.Errors++
		return
	}
	g.boundFB = h
}

// BoundFramebuffer returns the framebuffer currently
// bound.
func (g *GPU) BoundFramebuffer() driver.Handle { return g.boundFB }

func (g *GPU) validPoint(p driver.Enum) bool {
	switch p {
	case driver.DepthAttachment, driver.StencilAttachment, driver.DepthStencilAttachment:
		return true
	}
	return p >= driver.ColorAttachment0 &&
		p < driver.ColorAttachment0+driver.Enum(g.caps.Limits.MaxColorAttachments)
}

// FramebufferTexture2D implements driver.GPU.
func (g *GPU) FramebufferTexture2D(attachment, texTarget driver.Enum, tex driver.Handle, level int) {
	fb := g.framebuffers[g.boundFB]
	if fb == nil || !g.validPoint(attachment) {
		g.stats.Errors++
		return
	}
	if tex == 0 {
		delete(fb.attach, attachment)
		return
	}
	fb.attach[attachment] = fbAttach{tex: tex, texTarget: texTarget, level: level}
}

// FramebufferRenderbuffer implements driver.GPU.
func (g *GPU) FramebufferRenderbuffer(attachment driver.Enum, rb driver.Handle) {
	fb := g.framebuffers[g.boundFB]
	if fb == nil || !g.validPoint(attachment) {
		g.stats.Errors++
		return
	}
	if rb == 0 {
		delete(fb.attach, attachment)
		return
	}
	fb.attach[attachment] = fbAttach{rb: rb}
}

// DrawBuffers implements driver.GPU.
func (g *GPU) DrawBuffers(bufs []driver.Enum) {
	fb := g.framebuffers[g.boundFB]
	if fb == nil || (len(bufs) > 1 && !g.caps.Has(driver.FeatureMultipleRenderTargets)) {
		g.stats.Errors++
		return
	}
	fb.drawBufs = slices.Clone(bufs)
}

// DeleteFramebuffer implements driver.GPU.
func (g *GPU) DeleteFramebuffer(h driver.Handle) {
	delete(g.framebuffers, h)
	if g.boundFB == h {
		g.boundFB = 0
	}
}

// FramebufferAttachments returns the attachment points
// in use by the framebuffer h, in ascending order.
func (g *GPU) FramebufferAttachments(h driver.Handle) []driver.Enum {
	fb := g.framebuffers[h]
	if fb == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(fb.attach))
}

// resolve returns the storage of an attachment.
func (g *GPU) resolve(a fbAttach) (internal driver.Enum, width, height int, ok bool) {
	if a.rb != 0 {
		rb := g.renderbufs[a.rb]
		if rb == nil || rb.internal == 0 {
			return
		}
		return rb.internal, rb.width, rb.height, true
	}
	t := g.textures[a.tex]
	if t == nil {
		return
	}
	img, found := t.images[imageKey{a.texTarget, a.level}]
	if !found {
		return
	}
	return img.Internal, img.Width, img.Height, true
}

func (g *GPU) colorRenderable(f driver.Enum) bool {
	switch f {
	case driver.RGBA, driver.RGB, driver.RGBA8, driver.RGB8, driver.RGBA4,
		driver.RGB5A1, driver.RGB565, driver.R8, driver.RG8, driver.SRGB8Alpha8:
		return true
	case driver.R16F, driver.RG16F, driver.RGB16F, driver.RGBA16F,
		driver.R32F, driver.RG32F, driver.RGB32F, driver.RGBA32F:
		return g.caps.Has(driver.FeatureFloatColorBuffers)
	}
	return false
}

func isPacked(f driver.Enum) bool {
	return f == driver.Depth24Stencil8 || f == driver.Depth32FStencil8 || f == driver.DepthStencil
}

func (g *GPU) renderable(point, f driver.Enum) bool {
	switch point {
	case driver.DepthAttachment:
		switch f {
		case driver.DepthComponent, driver.DepthComponent16, driver.DepthComponent24, driver.DepthComponent32F:
			return true
		}
		return isPacked(f)
	case driver.StencilAttachment:
		return f == driver.StencilIndex8 || isPacked(f)
	case driver.DepthStencilAttachment:
		return isPacked(f)
	}
	return g.colorRenderable(f)
}

// CheckFramebufferStatus implements driver.GPU.
// Attachments are checked in ascending order of
// attachment point.
func (g *GPU) CheckFramebufferStatus() driver.Enum {
	g.stats.StatusChecks++
	if g.boundFB == 0 {
		return driver.FramebufferComplete
	}
	fb := g.framebuffers[g.boundFB]
	if len(fb.attach) == 0 {
		return driver.FramebufferIncompleteMissingAttachent
	}
	w, h := -1, -1
	packed := false
	for _, p := range slices.Sorted(maps.Keys(fb.attach)) {
		f, aw, ah, ok := g.resolve(fb.attach[p])
		if !ok || aw == 0 || ah == 0 || !g.renderable(p, f) {
			return driver.FramebufferIncompleteAttachment
		}
		if w < 0 {
			w, h = aw, ah
		} else if w != aw || h != ah {
			return driver.FramebufferIncompleteDimensions
		}
		packed = packed || (isPacked(f) && fb.attach[p].rb != 0)
	}
	if packed && !g.caps.Has(driver.FeaturePackedDepthStencil) {
		return driver.FramebufferUnsupported
	}
	d, okd := fb.attach[driver.DepthAttachment]
	s, oks := fb.attach[driver.StencilAttachment]
	if okd && oks && d.rb != 0 && s.rb != 0 && d.rb != s.rb && g.opts.RejectSeparateDepthStencil {
		return driver.FramebufferUnsupported
	}
	return driver.FramebufferComplete
}
