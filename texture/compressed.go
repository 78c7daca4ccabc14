// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package texture

import (
	"fmt"
	"io/fs"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/texture/etc1"
	"github.com/gviegas/glrt/texture/ktx"
)

// ETC1Fallback selects the format that ETC1 images are
// decoded to when the GPU cannot sample them directly.
type ETC1Fallback int

// ETC1 fallback formats.
const (
	FallbackRGB565 ETC1Fallback = iota
	FallbackRGB888
)

func (f ETC1Fallback) String() string {
	if f == FallbackRGB888 {
		return "RGB888"
	}
	return "RGB565"
}

// ParseETC1Fallback returns the ETC1Fallback named s
// ("RGB565" or "RGB888").
func ParseETC1Fallback(s string) (ETC1Fallback, bool) {
	switch s {
	case "RGB565":
		return FallbackRGB565, true
	case "RGB888":
		return FallbackRGB888, true
	}
	return 0, false
}

func (f ETC1Fallback) format() PixelFormat {
	if f == FallbackRGB888 {
		return RGB888
	}
	return RGB565
}

// decodeETC1 decodes d into pixels of the fallback
// format.
func decodeETC1(d *etc1.Data, f ETC1Fallback) (pix []byte, format, typ driver.Enum, err error) {
	_, format, typ = f.format().gl()
	pix, err = etc1.DecodeImage(d, f.format().Size())
	return
}

// ETC1Data is a Data holding one ETC1 compressed image,
// read from a PKM file (optionally zipped).
type ETC1Data struct {
	state
	src      source
	data     *etc1.Data
	mipmaps  bool
	fallback ETC1Fallback
	width    int
	height   int
}

// NewETC1Data creates an ETC1Data that reads the PKM file
// at path in fsys.
func NewETC1Data(fsys fs.FS, path string, mipmaps bool) *ETC1Data {
	return &ETC1Data{src: source{fsys: fsys, path: path}, mipmaps: mipmaps}
}

// FromETC1 creates an ETC1Data from parsed data.
func FromETC1(d *etc1.Data, mipmaps bool) *ETC1Data {
	return &ETC1Data{src: source{b: d.WithHeader().Bytes}, mipmaps: mipmaps}
}

// SetFallback sets the format used when ETC1 is not
// supported. The default is FallbackRGB565.
func (d *ETC1Data) SetFallback(f ETC1Fallback) { d.fallback = f }

// Kind implements Data.
func (d *ETC1Data) Kind() Kind { return KindETC1 }

// Prepare implements Data.
// Only the header is validated; missing blocks are
// reported by Consume.
func (d *ETC1Data) Prepare() error {
	if err := d.begin(); err != nil {
		return err
	}
	b, err := d.src.read()
	if err != nil {
		return err
	}
	e, err := etc1.Parse(b)
	if err != nil {
		return err
	}
	d.data = e
	d.width, d.height = e.Width, e.Height
	if !isPOT(e.Width) || !isPOT(e.Height) {
		glrt.Logger().Warn("ETC1 image is not power of two", "source", d.src.name(), "width", e.Width, "height", e.Height)
	}
	d.prepared = true
	return nil
}

// Width implements Data.
func (d *ETC1Data) Width() int { return d.width }

// Height implements Data.
func (d *ETC1Data) Height() int { return d.height }

// Format implements Data.
func (d *ETC1Data) Format() driver.Enum { return driver.ETC1RGB8 }

// Mipmaps implements Data.
func (d *ETC1Data) Mipmaps() bool { return d.mipmaps }

// Managed implements Data.
func (d *ETC1Data) Managed() bool { return d.src.managed(&d.state) }

// ETC1 returns the parsed data.
// It is nil if d is not prepared.
func (d *ETC1Data) ETC1() *etc1.Data { return d.data }

// Consume implements Data.
func (d *ETC1Data) Consume(gpu driver.GPU, target driver.Enum, level int) error {
	return consume(d, &d.state, gpu, target, level)
}

func (d *ETC1Data) payload() payload { return &etc1Payload{d} }

func (d *ETC1Data) discard() {
	d.data = nil
	d.src.release()
}

func (d *ETC1Data) upload(gpu driver.GPU, target driver.Enum, level int) error {
	e := d.data
	if !e.Complete() {
		return &glerr.FormatError{
			Container: "pkm",
			Offset:    e.DataOffset + len(e.Blocks()),
			Reason:    fmt.Sprintf("%d bytes of blocks, %d expected", len(e.Blocks()), etc1.EncodedSize(e.Width, e.Height)),
		}
	}
	if gpu.Caps().Has(driver.FeatureETC1) {
		blocks := e.Blocks()[:etc1.EncodedSize(e.Width, e.Height)]
		gpu.CompressedTexImage2D(target, level, driver.ETC1RGB8, e.Width, e.Height, blocks)
		if d.mipmaps {
			glrt.Logger().Warn("mipmaps not generated for compressed ETC1 image", "source", d.src.name())
		}
		return nil
	}
	glrt.Logger().Warn("ETC1 not supported, decoding on CPU", "source", d.src.name(), "format", d.fallback.String())
	pix, format, typ, err := decodeETC1(e, d.fallback)
	if err != nil {
		return err
	}
	gpu.PixelStore(driver.UnpackAlignment, 1)
	gpu.TexImage2D(target, level, format, e.Width, e.Height, format, typ, pix)
	gpu.PixelStore(driver.UnpackAlignment, 4)
	if d.mipmaps && !isFace(target) && hardwareMipmaps(gpu, e.Width, e.Height) {
		gpu.GenerateMipmap(target)
	}
	return nil
}

// KTXData is a Data holding the images of a KTX or ZKTX
// file.
// 2D and cubemap images are supported; 1D, 3D and array
// images are parsed but cannot be consumed.
type KTXData struct {
	state
	src      source
	file     *ktx.File
	mipmaps  bool
	fallback ETC1Fallback
	header   ktx.Header
}

// NewKTXData creates a KTXData that reads the file at
// path in fsys.
// If mipmaps is set and the file stores a single level
// with a mip level count of zero, the remaining levels
// are generated by the GPU.
func NewKTXData(fsys fs.FS, path string, mipmaps bool) *KTXData {
	return &KTXData{src: source{fsys: fsys, path: path}, mipmaps: mipmaps}
}

// FromKTX creates a KTXData from an encoded KTX or ZKTX
// stream.
func FromKTX(b []byte, mipmaps bool) *KTXData {
	return &KTXData{src: source{b: b}, mipmaps: mipmaps}
}

// SetFallback sets the format used for ETC1 images when
// ETC1 is not supported. The default is FallbackRGB565.
func (d *KTXData) SetFallback(f ETC1Fallback) { d.fallback = f }

// Kind implements Data.
func (d *KTXData) Kind() Kind { return KindContainer }

// Prepare implements Data.
func (d *KTXData) Prepare() error {
	if err := d.begin(); err != nil {
		return err
	}
	b, err := d.src.read()
	if err != nil {
		return err
	}
	f, err := ktx.Parse(b)
	if err != nil {
		return err
	}
	d.file = f
	d.header = f.Header
	d.prepared = true
	return nil
}

// Width implements Data.
func (d *KTXData) Width() int { return d.header.Width }

// Height implements Data.
func (d *KTXData) Height() int { return d.header.Height }

// Format implements Data.
func (d *KTXData) Format() driver.Enum { return d.header.InternalFormat }

// Mipmaps implements Data.
func (d *KTXData) Mipmaps() bool { return d.mipmaps || d.header.MipLevels > 1 }

// Managed implements Data.
func (d *KTXData) Managed() bool { return d.src.managed(&d.state) }

// Cube returns whether the file holds a cubemap.
// It is valid after Prepare.
func (d *KTXData) Cube() bool { return d.header.IsCube() }

// File returns the parsed file.
// It is nil if d is not prepared.
func (d *KTXData) File() *ktx.File { return d.file }

// Consume implements Data.
func (d *KTXData) Consume(gpu driver.GPU, target driver.Enum, level int) error {
	return consume(d, &d.state, gpu, target, level)
}

func (d *KTXData) payload() payload { return &containerPayload{d} }

func (d *KTXData) discard() {
	d.file = nil
	d.src.release()
}

func (d *KTXData) upload(gpu driver.GPU, target driver.Enum, level int) error {
	f := d.file
	switch {
	case f.Is1D():
		return &glerr.NotSupportedError{Feature: "1D texture upload"}
	case f.Is3D():
		return &glerr.NotSupportedError{Feature: "3D texture upload"}
	case f.IsArray():
		return &glerr.NotSupportedError{Feature: "array texture upload"}
	}
	targets := []driver.Enum{target}
	if f.IsCube() {
		if target != driver.TextureCubeMap {
			return glerr.Configf("texture.Consume", "cubemap KTX uploaded to %v", target)
		}
		targets = targets[:0]
		for i := range 6 {
			targets = append(targets, driver.CubeFace(i))
		}
	} else if target == driver.TextureCubeMap {
		return glerr.Configf("texture.Consume", "2D KTX uploaded to %v", target)
	}

	decode := f.Compressed() && f.InternalFormat == driver.ETC1RGB8 && !gpu.Caps().Has(driver.FeatureETC1)
	if decode {
		glrt.Logger().Warn("ETC1 not supported, decoding on CPU", "source", d.src.name(), "format", d.fallback.String())
	}
	gpu.PixelStore(driver.UnpackAlignment, 4)
	for l := range f.Levels() {
		w, h := f.LevelSize(l)
		for i, t := range targets {
			img := f.Image(l, i)
			switch {
			case decode:
				e, err := etc1.New(w, h, img)
				if err != nil {
					return fmt.Errorf("level %d face %d: %w", l, i, err)
				}
				pix, format, typ, err := decodeETC1(e, d.fallback)
				if err != nil {
					return err
				}
				gpu.PixelStore(driver.UnpackAlignment, 1)
				gpu.TexImage2D(t, level+l, format, w, h, format, typ, pix)
				gpu.PixelStore(driver.UnpackAlignment, 4)
			case f.Compressed():
				gpu.CompressedTexImage2D(t, level+l, f.InternalFormat, w, h, img)
			default:
				gpu.TexImage2D(t, level+l, f.InternalFormat, w, h, f.Format, f.Type, img)
			}
		}
	}
	glrt.Logger().Debug("KTX uploaded", "source", d.src.name(), "levels", f.Levels(), "faces", f.Faces)

	if f.MipLevels != 0 || !d.mipmaps || isFace(target) {
		return nil
	}
	switch {
	case f.Compressed() && !decode:
		glrt.Logger().Warn("mipmaps not generated for compressed KTX", "source", d.src.name())
	case !hardwareMipmaps(gpu, f.Width, f.Height):
		glrt.Logger().Warn("mipmaps not generated", "source", d.src.name(), "width", f.Width, "height", f.Height)
	default:
		gpu.GenerateMipmap(target)
	}
	return nil
}
