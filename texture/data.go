// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package texture implements sources of texture images
// and the textures created from them.
//
// A Data goes through two phases. Prepare determines the
// dimensions and format of the images, decoding or
// parsing them if needed, without touching the GPU.
// Consume uploads the images to the texture bound to a
// given target. A consumed Data may be prepared again,
// which is how textures are rebuilt after a context loss.
package texture

import (
	"fmt"
	"image"
	"io/fs"
	"math/bits"
	"slices"
	"strconv"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
)

// Kind identifies the payload of a Data.
type Kind int

// Payload kinds.
const (
	// Decoded pixels (ImageData).
	KindPixels Kind = iota
	// ETC1 blocks (ETC1Data).
	KindETC1
	// KTX levels and faces (KTXData).
	KindContainer
	// Storage without pixels, or with optional float
	// pixels (GPUOnlyData, FloatData).
	KindAllocation
	// One Data per mip level (MipChainData).
	KindChain
	// One Data per cube face (CubemapData).
	KindFaces
	// One Data per array layer (ArrayData).
	KindLayers
)

var kindNames = [...]string{
	KindPixels:     "pixels",
	KindETC1:       "etc1",
	KindContainer:  "container",
	KindAllocation: "allocation",
	KindChain:      "chain",
	KindFaces:      "faces",
	KindLayers:     "layers",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

// Data is a source of texture images.
// The implementations are ImageData, ETC1Data, KTXData,
// GPUOnlyData, FloatData, MipChainData, CubemapData and
// ArrayData; no others can be defined.
type Data interface {
	// Kind returns the payload kind.
	Kind() Kind

	// Prepare readies the data for Consume.
	// It fails with glerr.ErrAlreadyPrepared if called
	// twice without an intervening Consume.
	Prepare() error

	// Prepared returns whether Prepare has succeeded
	// and Consume was not called since.
	Prepared() bool

	// Width and Height return the dimensions of the
	// first level. They are valid after Prepare.
	Width() int
	Height() int

	// Format returns the internal format of the images.
	Format() driver.Enum

	// Mipmaps returns whether a full mip chain is to be
	// created.
	Mipmaps() bool

	// Managed returns whether the data can be prepared
	// again after Consume.
	Managed() bool

	// SetDispose sets whether CPU copies of the images
	// are released by Consume. The default is true.
	SetDispose(dispose bool)

	// Consume uploads the images to the texture bound
	// to target, starting at the given level.
	// It fails with glerr.ErrNotPrepared if the data is
	// not prepared. A composite that fails after some of
	// its parts were consumed is left unprepared.
	Consume(gpu driver.GPU, target driver.Enum, level int) error

	payload() payload
	discard()
}

// state implements the preparation state machine shared
// by every Data.
type state struct {
	prepared bool
	keep     bool
}

func (s *state) Prepared() bool { return s.prepared }

func (s *state) SetDispose(dispose bool) { s.keep = !dispose }

func (s *state) dispose() bool { return !s.keep }

func (s *state) begin() error {
	if s.prepared {
		return glerr.ErrAlreadyPrepared
	}
	return nil
}

// payload is the closed set of upload paths.
// consume switches over its implementations.
type payload interface{ kind() Kind }

type pixelPayload struct {
	img     *image.NRGBA
	format  PixelFormat
	mipmaps bool
}

type etc1Payload struct{ d *ETC1Data }

type containerPayload struct{ d *KTXData }

type allocPayload struct {
	width, height int
	internal      driver.Enum
	format        driver.Enum
	typ           driver.Enum
	data          []byte
	float         bool
	mipmaps       bool
}

type chainPayload struct{ levels []Data }

type facesPayload struct {
	faces   *[6]Data
	mipmaps bool
}

type layersPayload struct{ layers int }

func (*pixelPayload) kind() Kind     { return KindPixels }
func (*etc1Payload) kind() Kind      { return KindETC1 }
func (*containerPayload) kind() Kind { return KindContainer }
func (*allocPayload) kind() Kind     { return KindAllocation }
func (*chainPayload) kind() Kind     { return KindChain }
func (*facesPayload) kind() Kind     { return KindFaces }
func (*layersPayload) kind() Kind    { return KindLayers }

// consume uploads d's payload and ends its preparation.
func consume(d Data, s *state, gpu driver.GPU, target driver.Enum, level int) error {
	if !s.prepared {
		return glerr.ErrNotPrepared
	}
	var err error
	pl := d.payload()
	switch p := pl.(type) {
	case *pixelPayload:
		err = p.upload(gpu, target, level)
	case *etc1Payload:
		err = p.d.upload(gpu, target, level)
	case *containerPayload:
		err = p.d.upload(gpu, target, level)
	case *allocPayload:
		err = p.upload(gpu, target, level)
	case *chainPayload:
		for i, l := range p.levels {
			if err = l.Consume(gpu, target, level+i); err != nil {
				break
			}
		}
	case *facesPayload:
		err = p.upload(gpu, target, level)
	case *layersPayload:
		err = &glerr.NotSupportedError{Feature: fmt.Sprintf("2D array texture upload (%d layers)", p.layers)}
	default:
		panic("texture: undefined payload " + p.kind().String())
	}
	if err != nil {
		// Parts consumed before the failure are no longer
		// prepared, so neither is the whole.
		if slices.ContainsFunc(parts(pl), func(p Data) bool { return !p.Prepared() }) {
			s.prepared = false
			glrt.Logger().Debug("composite texture data reset", "kind", pl.kind().String(), "error", err)
		}
		return err
	}
	s.prepared = false
	if s.dispose() {
		d.discard()
	}
	return nil
}

// parts returns the Data that a composite payload is
// made of, or nil.
func parts(p payload) []Data {
	switch p := p.(type) {
	case *chainPayload:
		return p.levels
	case *facesPayload:
		return p.faces[:]
	}
	return nil
}

// isFace returns whether target is one of the six cube
// faces.
func isFace(target driver.Enum) bool {
	return target >= driver.TextureCubeMapPositiveX && target <= driver.TextureCubeMapNegativeZ
}

func isPOT(n int) bool { return n > 0 && n&(n-1) == 0 }

// numLevels returns the length of a full mip chain.
func numLevels(width, height int) int { return bits.Len(uint(max(width, height, 1))) }

// hardwareMipmaps returns whether gpu can generate the
// mip chain of an image of the given dimensions.
func hardwareMipmaps(gpu driver.GPU, width, height int) bool {
	caps := gpu.Caps()
	if !caps.Has(driver.FeatureGenerateMipmap) {
		return false
	}
	return (isPOT(width) && isPOT(height)) || caps.Has(driver.FeatureNPOTMipmap)
}

func (p *pixelPayload) upload(gpu driver.GPU, target driver.Enum, level int) error {
	internal, format, typ := p.format.gl()
	w, h := p.img.Rect.Dx(), p.img.Rect.Dy()
	levels := []*image.NRGBA{p.img}
	generate := false
	if p.mipmaps && !isFace(target) {
		if hardwareMipmaps(gpu, w, h) {
			generate = true
		} else {
			levels = mipChain(p.img)
			glrt.Logger().Debug("mip chain computed on CPU", "width", w, "height", h, "levels", len(levels))
		}
	}
	gpu.PixelStore(driver.UnpackAlignment, 1)
	for i, l := range levels {
		gpu.TexImage2D(target, level+i, internal, l.Rect.Dx(), l.Rect.Dy(), format, typ, p.format.pack(l))
	}
	gpu.PixelStore(driver.UnpackAlignment, 4)
	if generate {
		gpu.GenerateMipmap(target)
	}
	return nil
}

func (p *allocPayload) upload(gpu driver.GPU, target driver.Enum, level int) error {
	internal := p.internal
	if p.float {
		caps := gpu.Caps()
		if !caps.Has(driver.FeatureFloatTextures) {
			return glerr.Configf("texture.FloatData", "float textures not supported by %v", caps.Version)
		}
		// Sized float formats are not valid in GLES 2.
		if caps.Version.ES && caps.Version.Major < 3 {
			internal = p.format
		}
	}
	gpu.TexImage2D(target, level, internal, p.width, p.height, p.format, p.typ, p.data)
	if p.mipmaps && !isFace(target) {
		if !hardwareMipmaps(gpu, p.width, p.height) {
			return &glerr.NotSupportedError{Feature: "mipmap generation for this allocation"}
		}
		gpu.GenerateMipmap(target)
	}
	return nil
}

func (p *facesPayload) upload(gpu driver.GPU, target driver.Enum, level int) error {
	if target != driver.TextureCubeMap {
		return glerr.Configf("texture.Consume", "six faces uploaded to %v", target)
	}
	for i, f := range p.faces {
		if err := f.Consume(gpu, driver.CubeFace(i), level); err != nil {
			return fmt.Errorf("face %d: %w", i, err)
		}
	}
	if p.mipmaps {
		w, h := p.faces[0].Width(), p.faces[0].Height()
		if hardwareMipmaps(gpu, w, h) {
			gpu.GenerateMipmap(target)
		} else {
			glrt.Logger().Warn("cubemap mipmaps not generated", "width", w, "height", h)
		}
	}
	return nil
}

// PixelSize returns the size in bytes of one pixel of
// the given format and type.
// Unknown pairs are reported as *glerr.FormatError.
func PixelSize(format, typ driver.Enum) (int, error) {
	var n int
	switch format {
	case driver.Alpha, driver.Luminance, driver.Red, driver.DepthComponent, driver.StencilIndex:
		n = 1
	case driver.LuminanceAlpha, driver.RG:
		n = 2
	case driver.RGB:
		n = 3
	case driver.RGBA:
		n = 4
	case driver.DepthStencil:
		if typ == driver.UnsignedInt248 {
			return 4, nil
		}
	}
	var size int
	switch typ {
	case driver.UnsignedByte, driver.Byte:
		size = n
	case driver.UnsignedShort, driver.Short, driver.HalfFloat, driver.HalfFloatOES:
		size = n * 2
	case driver.UnsignedInt, driver.Int, driver.Float:
		size = n * 4
	case driver.UnsignedShort565:
		if format == driver.RGB {
			size = 2
		}
	case driver.UnsignedShort4444, driver.UnsignedShort5551:
		if format == driver.RGBA {
			size = 2
		}
	}
	if size == 0 {
		return 0, &glerr.FormatError{
			Container: "texture",
			Offset:    -1,
			Reason:    fmt.Sprintf("unknown format/type pair %v/%v", format, typ),
		}
	}
	return size, nil
}

// source is where encoded data is read from: a path in
// a file system or a byte slice.
type source struct {
	fsys fs.FS
	path string
	b    []byte
}

func (s *source) read() ([]byte, error) {
	if s.fsys == nil {
		if s.b == nil {
			return nil, glerr.Configf("texture.Prepare", "in-memory data was disposed")
		}
		return s.b, nil
	}
	return fs.ReadFile(s.fsys, s.path)
}

func (s *source) name() string {
	if s.fsys != nil {
		return s.path
	}
	return "<memory>"
}

// managed returns whether the source can be read again
// after disposal.
func (s *source) managed(st *state) bool { return s.fsys != nil || !st.dispose() }

// release drops in-memory bytes.
func (s *source) release() {
	if s.fsys == nil {
		s.b = nil
	}
}
