// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package headless

import (
	"errors"
	"math/bits"

	"github.com/gviegas/glrt/driver"
)

func errNoFeature(what string) error {
	return errors.New("headless: " + what + " not supported")
}

// Image describes one level of one face of a texture.
type Image struct {
	Internal   driver.Enum
	Width      int
	Height     int
	Format     driver.Enum
	Type       driver.Enum
	Size       int
	Compressed bool
	Generated  bool
}

type imageKey struct {
	face  driver.Enum
	level int
}

type textureObj struct {
	target driver.Enum
	images map[imageKey]Image
	params map[driver.Enum]driver.Enum
}

type renderbufObj struct {
	internal driver.Enum
	width    int
	height   int
}

// NewTexture implements driver.GPU.
func (g *GPU) NewTexture() (driver.Handle, error) {
	h, err := g.newHandle()
	if err != nil {
		return 0, err
	}
	g.textures[h] = &textureObj{
		images: make(map[imageKey]Image),
		params: make(map[driver.Enum]driver.Enum),
	}
	return h, nil
}

// BindTexture implements driver.GPU.
func (g *GPU) BindTexture(target driver.Enum, h driver.Handle) {
	if t := g.textures[h]; t != nil {
		switch t.target {
		case 0:
			t.target = target
		case target:
		default:
			g.stats.Errors++
			return
		}
	}
	g.boundTex[target] = h
}

// texFor returns the texture bound for the given image
// target.
func (g *GPU) texFor(target driver.Enum) *textureObj {
	switch target {
	case driver.TextureCubeMapPositiveX, driver.TextureCubeMapNegativeX,
		driver.TextureCubeMapPositiveY, driver.TextureCubeMapNegativeY,
		driver.TextureCubeMapPositiveZ, driver.TextureCubeMapNegativeZ:
		return g.textures[g.boundTex[driver.TextureCubeMap]]
	}
	return g.textures[g.boundTex[target]]
}

func isDepthFormat(f driver.Enum) bool {
	switch f {
	case driver.DepthComponent, driver.DepthStencil,
		driver.DepthComponent16, driver.DepthComponent24, driver.DepthComponent32F,
		driver.Depth24Stencil8, driver.Depth32FStencil8:
		return true
	}
	return false
}

func (g *GPU) validImage(target driver.Enum, level, width, height int) bool {
	if target == driver.Texture3D || target == driver.Texture2DArray {
		return false
	}
	m := g.caps.Limits.MaxTextureSize
	return level >= 0 && width >= 0 && height >= 0 && width <= m && height <= m
}

// TexImage2D implements driver.GPU.
func (g *GPU) TexImage2D(target driver.Enum, level int, internalFormat driver.Enum, width, height int, format, typ driver.Enum, data []byte) {
	t := g.texFor(target)
	switch {
	case t == nil, !g.validImage(target, level, width, height):
		g.stats.Errors++
		return
	case (typ == driver.Float || typ == driver.HalfFloat || typ == driver.HalfFloatOES) &&
		!g.caps.Has(driver.FeatureFloatTextures):
		g.stats.Errors++
		return
	case isDepthFormat(format) && !g.caps.Has(driver.FeatureDepthTextures):
		g.stats.Errors++
		return
	}
	t.images[imageKey{target, level}] = Image{
		Internal: internalFormat,
		Width:    width,
		Height:   height,
		Format:   format,
		Type:     typ,
		Size:     len(data),
	}
	g.stats.TexUploads++
}

// CompressedTexImage2D implements driver.GPU.
func (g *GPU) CompressedTexImage2D(target driver.Enum, level int, internalFormat driver.Enum, width, height int, data []byte) {
	t := g.texFor(target)
	switch {
	case t == nil, !g.validImage(target, level, width, height):
		g.stats.Errors++
		return
	case internalFormat == driver.ETC1RGB8 && !g.caps.Has(driver.FeatureETC1):
		g.stats.Errors++
		return
	}
	t.images[imageKey{target, level}] = Image{
		Internal:   internalFormat,
		Width:      width,
		Height:     height,
		Size:       len(data),
		Compressed: true,
	}
	g.stats.TexUploads++
}

// TexParameter implements driver.GPU.
func (g *GPU) TexParameter(target driver.Enum, param, value driver.Enum) {
	if t := g.textures[g.boundTex[target]]; t != nil {
		t.params[param] = value
	}
}

func isPOT(n int) bool { return n > 0 && n&(n-1) == 0 }

// GenerateMipmap implements driver.GPU.
func (g *GPU) GenerateMipmap(target driver.Enum) {
	t := g.textures[g.boundTex[target]]
	if t == nil {
		g.stats.Errors++
		return
	}
	faces := []driver.Enum{driver.Texture2D}
	if target == driver.TextureCubeMap {
		faces = faces[:0]
		for i := range 6 {
			faces = append(faces, driver.CubeFace(i))
		}
	}
	for _, f := range faces {
		base, ok := t.images[imageKey{f, 0}]
		if !ok || base.Compressed {
			g.stats.Errors++
			return
		}
		if (!isPOT(base.Width) || !isPOT(base.Height)) && !g.caps.Has(driver.FeatureNPOTMipmap) {
			g.stats.Errors++
			return
		}
		n := bits.Len(uint(max(base.Width, base.Height)))
		w, h := base.Width, base.Height
		for i := 1; i < n; i++ {
			w, h = max(1, w/2), max(1, h/2)
			img := base
			img.Width, img.Height = w, h
			img.Size = 0
			img.Generated = true
			t.images[imageKey{f, i}] = img
		}
	}
	g.stats.MipmapsGenerated++
}

// PixelStore implements driver.GPU.
func (g *GPU) PixelStore(param driver.Enum, value int) {
	if param == driver.UnpackAlignment {
		g.unpack = value
	}
}

// UnpackAlignment returns the current unpack alignment.
func (g *GPU) UnpackAlignment() int { return g.unpack }

// DeleteTexture implements driver.GPU.
func (g *GPU) DeleteTexture(h driver.Handle) {
	delete(g.textures, h)
	for t, x := range g.boundTex {
		if x == h {
			g.boundTex[t] = 0
		}
	}
}

// TexImage returns the image of a texture at the given
// image target (Texture2D or a cube face) and level.
func (g *GPU) TexImage(h driver.Handle, target driver.Enum, level int) (Image, bool) {
	t := g.textures[h]
	if t == nil {
		return Image{}, false
	}
	img, ok := t.images[imageKey{target, level}]
	return img, ok
}

// TexLevels returns the number of levels of a texture
// at the given image target.
func (g *GPU) TexLevels(h driver.Handle, target driver.Enum) int {
	t := g.textures[h]
	if t == nil {
		return 0
	}
	n := 0
	for k := range t.images {
		if k.face == target {
			n++
		}
	}
	return n
}

// TexParam returns a texture parameter.
func (g *GPU) TexParam(h driver.Handle, param driver.Enum) driver.Enum {
	if t := g.textures[h]; t != nil {
		return t.params[param]
	}
	return 0
}

// TexTarget returns the target that the texture h was
// first bound to.
func (g *GPU) TexTarget(h driver.Handle) driver.Enum {
	if t := g.textures[h]; t != nil {
		return t.target
	}
	return 0
}

// NewRenderbuffer implements driver.GPU.
func (g *GPU) NewRenderbuffer() (driver.Handle, error) {
	h, err := g.newHandle()
	if err != nil {
		return 0, err
	}
	g.renderbufs[h] = &renderbufObj{}
	return h, nil
}

// BindRenderbuffer implements driver.GPU.
func (g *GPU) BindRenderbuffer(h driver.Handle) { g.boundRB = h }

// RenderbufferStorage implements driver.GPU.
func (g *GPU) RenderbufferStorage(internalFormat driver.Enum, width, height int) {
	rb := g.renderbufs[g.boundRB]
	m := g.caps.Limits.MaxRenderbufferSize
	if rb == nil || width < 0 || height < 0 || width > m || height > m {
		g.stats.Errors++
		return
	}
	rb.internal = internalFormat
	rb.width = width
	rb.height = height
}

// DeleteRenderbuffer implements driver.GPU.
func (g *GPU) DeleteRenderbuffer(h driver.Handle) {
	delete(g.renderbufs, h)
	if g.boundRB == h {
		g.boundRB = 0
	}
}

// Renderbuffer returns the storage of the renderbuffer h.
func (g *GPU) Renderbuffer(h driver.Handle) (internal driver.Enum, width, height int, ok bool) {
	rb := g.renderbufs[h]
	if rb == nil {
		return
	}
	return rb.internal, rb.width, rb.height, true
}
