// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package texture

import (
	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
)

// Params are the sampling parameters of a texture.
type Params struct {
	MinFilter driver.Enum
	MagFilter driver.Enum
	WrapS     driver.Enum
	WrapT     driver.Enum
}

// DefaultParams returns nearest filtering with edge
// clamping.
func DefaultParams() Params {
	return Params{
		MinFilter: driver.Nearest,
		MagFilter: driver.Nearest,
		WrapS:     driver.ClampToEdge,
		WrapT:     driver.ClampToEdge,
	}
}

// Texture is a texture object created from a Data.
// If the Data is managed, the texture is registered in
// its context and reloaded from the Data when the
// context is restored.
type Texture struct {
	ctx      *resource.Context
	gpu      driver.GPU
	id       resource.ID
	managed  bool
	target   driver.Enum
	data     Data
	params   Params
	handle   driver.Handle
	width    int
	height   int
	format   driver.Enum
	disposed bool
}

// New creates a 2D texture from data.
// data is prepared if needed and then consumed.
func New(ctx *resource.Context, data Data, params Params) (*Texture, error) {
	t := &Texture{}
	if err := t.init(ctx, driver.Texture2D, data, params); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Texture) init(ctx *resource.Context, target driver.Enum, data Data, params Params) error {
	*t = Texture{
		ctx:    ctx,
		gpu:    ctx.GPU(),
		target: target,
		data:   data,
		params: params,
	}
	if ctx.Options().KeepTextureData {
		data.SetDispose(false)
	}
	if err := t.load(); err != nil {
		return err
	}
	if t.managed = data.Managed(); t.managed {
		t.id = ctx.Register(resource.KindTexture, t)
	}
	return nil
}

func (t *Texture) load() error {
	d := t.data
	if !d.Prepared() {
		if err := d.Prepare(); err != nil {
			return err
		}
	}
	h, err := t.gpu.NewTexture()
	if err != nil {
		return err
	}
	t.gpu.BindTexture(t.target, h)
	if err := d.Consume(t.gpu, t.target, 0); err != nil {
		t.gpu.BindTexture(t.target, 0)
		t.gpu.DeleteTexture(h)
		return err
	}
	t.handle = h
	t.width, t.height, t.format = d.Width(), d.Height(), d.Format()
	t.apply()
	t.gpu.BindTexture(t.target, 0)
	glrt.Logger().Debug("texture created", "target", t.target, "handle", h, "width", t.width, "height", t.height, "format", t.format)
	return nil
}

// apply sets the parameters on the bound texture.
func (t *Texture) apply() {
	t.gpu.TexParameter(t.target, driver.TextureMinFilter, t.params.MinFilter)
	t.gpu.TexParameter(t.target, driver.TextureMagFilter, t.params.MagFilter)
	t.gpu.TexParameter(t.target, driver.TextureWrapS, t.params.WrapS)
	t.gpu.TexParameter(t.target, driver.TextureWrapT, t.params.WrapT)
}

// Name implements resource.Resource.
// Unmanaged textures are not registered and have no ID.
func (t *Texture) Name() string {
	s := "texture " + t.data.Kind().String()
	if t.target == driver.TextureCubeMap {
		s = "cubemap " + t.data.Kind().String()
	}
	if t.managed {
		s += " " + t.id.String()
	}
	return s
}

// Handle returns the texture object.
func (t *Texture) Handle() driver.Handle { return t.handle }

// Target returns the texture target.
func (t *Texture) Target() driver.Enum { return t.target }

// Width returns the width of the base level.
func (t *Texture) Width() int { return t.width }

// Height returns the height of the base level.
func (t *Texture) Height() int { return t.height }

// Format returns the internal format.
func (t *Texture) Format() driver.Enum { return t.format }

// Data returns the Data that t was created from.
func (t *Texture) Data() Data { return t.data }

// Managed returns whether t is reloaded when its context
// is restored.
func (t *Texture) Managed() bool { return t.managed }

// Params returns the sampling parameters.
func (t *Texture) Params() Params { return t.params }

// SetParams sets the sampling parameters.
func (t *Texture) SetParams(p Params) error {
	if t.disposed {
		return glerr.ErrDisposed
	}
	t.params = p
	t.gpu.BindTexture(t.target, t.handle)
	t.apply()
	return nil
}

// SetFilter sets the minification and magnification
// filters.
func (t *Texture) SetFilter(minFilter, magFilter driver.Enum) error {
	p := t.params
	p.MinFilter, p.MagFilter = minFilter, magFilter
	return t.SetParams(p)
}

// SetWrap sets the wrap modes.
func (t *Texture) SetWrap(wrapS, wrapT driver.Enum) error {
	p := t.params
	p.WrapS, p.WrapT = wrapS, wrapT
	return t.SetParams(p)
}

// Bind binds t to its target.
func (t *Texture) Bind() error {
	if t.disposed {
		return glerr.ErrDisposed
	}
	t.gpu.BindTexture(t.target, t.handle)
	return nil
}

// Invalidate implements resource.Resource.
// It reloads the texture from its Data.
func (t *Texture) Invalidate() error {
	if t.disposed {
		return nil
	}
	if !t.managed {
		return glerr.Configf("texture.Invalidate", "%s is not managed", t.Name())
	}
	t.handle = 0
	return t.load()
}

// Dispose deletes the texture object.
func (t *Texture) Dispose() {
	if t.disposed {
		return
	}
	if t.managed {
		t.ctx.Unregister(t.id)
	}
	if t.handle != 0 {
		t.gpu.DeleteTexture(t.handle)
		t.handle = 0
	}
	t.disposed = true
}

// Cubemap is a cube map texture.
type Cubemap struct {
	Texture
}

// NewCubemap creates a cube map texture from data, which
// must be a *CubemapData or a *KTXData holding six faces.
func NewCubemap(ctx *resource.Context, data Data, params Params) (*Cubemap, error) {
	switch d := data.(type) {
	case *CubemapData:
	case *KTXData:
		if !d.Prepared() {
			if err := d.Prepare(); err != nil {
				return nil, err
			}
		}
		if !d.Cube() {
			return nil, glerr.Configf("texture.NewCubemap", "KTX data has %d face(s)", d.header.Faces)
		}
	default:
		return nil, glerr.Configf("texture.NewCubemap", "%s data cannot be a cubemap", data.Kind())
	}
	c := &Cubemap{}
	if err := c.init(ctx, driver.TextureCubeMap, data, params); err != nil {
		return nil, err
	}
	return c, nil
}

// Size returns the length of the sides.
func (c *Cubemap) Size() int { return c.width }
