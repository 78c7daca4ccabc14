// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package texture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"strconv"

	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/internal/zpack"
	"github.com/gviegas/glrt/texture/etc1"
	"github.com/gviegas/glrt/texture/ktx"
)

// PixelFormat is the CPU-side layout of decoded pixels.
type PixelFormat int

// Pixel formats.
const (
	RGBA8888 PixelFormat = iota
	RGB888
	RGB565
	RGBA4444
	Alpha
	Luminance
	LuminanceAlpha
)

var pixelFormatNames = [...]string{
	RGBA8888:       "RGBA8888",
	RGB888:         "RGB888",
	RGB565:         "RGB565",
	RGBA4444:       "RGBA4444",
	Alpha:          "Alpha",
	Luminance:      "Luminance",
	LuminanceAlpha: "LuminanceAlpha",
}

func (f PixelFormat) String() string {
	if f >= 0 && int(f) < len(pixelFormatNames) {
		return pixelFormatNames[f]
	}
	return "PixelFormat(" + strconv.Itoa(int(f)) + ")"
}

// ParsePixelFormat returns the PixelFormat named s.
func ParsePixelFormat(s string) (PixelFormat, bool) {
	for i, n := range pixelFormatNames {
		if n == s {
			return PixelFormat(i), true
		}
	}
	return 0, false
}

// gl returns the unsized internal format, the format
// and the type used to upload pixels of format f.
func (f PixelFormat) gl() (internal, format, typ driver.Enum) {
	switch f {
	case RGB888:
		return driver.RGB, driver.RGB, driver.UnsignedByte
	case RGB565:
		return driver.RGB, driver.RGB, driver.UnsignedShort565
	case RGBA4444:
		return driver.RGBA, driver.RGBA, driver.UnsignedShort4444
	case Alpha:
		return driver.Alpha, driver.Alpha, driver.UnsignedByte
	case Luminance:
		return driver.Luminance, driver.Luminance, driver.UnsignedByte
	case LuminanceAlpha:
		return driver.LuminanceAlpha, driver.LuminanceAlpha, driver.UnsignedByte
	}
	return driver.RGBA, driver.RGBA, driver.UnsignedByte
}

// Size returns the size in bytes of one pixel.
func (f PixelFormat) Size() int {
	_, format, typ := f.gl()
	n, _ := PixelSize(format, typ)
	return n
}

func luma(r, g, b uint8) uint8 {
	return uint8((19595*uint32(r) + 38470*uint32(g) + 7471*uint32(b) + 1<<15) >> 16)
}

// pack converts img to tightly packed pixels of format f.
// Packed 16-bit pixels are stored little-endian.
func (f PixelFormat) pack(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if f == RGBA8888 && img.Stride == w*4 {
		return img.Pix[:w*h*4]
	}
	n := f.Size()
	out := make([]byte, w*h*n)
	le := binary.LittleEndian
	i := 0
	for y := range h {
		row := img.Pix[y*img.Stride:]
		for x := range w {
			r, g, b, a := row[x*4], row[x*4+1], row[x*4+2], row[x*4+3]
			p := out[i:]
			switch f {
			case RGBA8888:
				p[0], p[1], p[2], p[3] = r, g, b, a
			case RGB888:
				p[0], p[1], p[2] = r, g, b
			case RGB565:
				le.PutUint16(p, uint16(r>>3)<<11|uint16(g>>2)<<5|uint16(b>>3))
			case RGBA4444:
				le.PutUint16(p, uint16(r>>4)<<12|uint16(g>>4)<<8|uint16(b>>4)<<4|uint16(a>>4))
			case Alpha:
				p[0] = a
			case Luminance:
				p[0] = luma(r, g, b)
			case LuminanceAlpha:
				p[0], p[1] = luma(r, g, b), a
			}
			i += n
		}
	}
	return out
}

// toNRGBA returns img as a zero-based *image.NRGBA.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// mipChain returns the full mip chain of img, starting
// with img itself.
func mipChain(img *image.NRGBA) []*image.NRGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	chain := make([]*image.NRGBA, 0, numLevels(w, h))
	chain = append(chain, img)
	for len(chain) < cap(chain) {
		w, h = max(1, w/2), max(1, h/2)
		dst := image.NewNRGBA(image.Rect(0, 0, w, h))
		draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
		chain = append(chain, dst)
		img = dst
	}
	return chain
}

// MipChain returns the full mip chain of img, computed
// with bilinear filtering. The first level is img
// converted to NRGBA.
func MipChain(img image.Image) []*image.NRGBA { return mipChain(toNRGBA(img)) }

// ImageData is a Data whose images are decoded from a
// common image format (PNG, JPEG, GIF, BMP, TIFF or
// WebP), or given as an image.Image.
type ImageData struct {
	state
	src     source
	img     image.Image
	format  PixelFormat
	mipmaps bool
	width   int
	height  int
	pix     *image.NRGBA
}

// NewImageData creates an ImageData that decodes the file
// at path in fsys.
// Decoding is deferred until Prepare.
func NewImageData(fsys fs.FS, path string, format PixelFormat, mipmaps bool) *ImageData {
	return &ImageData{src: source{fsys: fsys, path: path}, format: format, mipmaps: mipmaps}
}

// FromImage creates an ImageData from img.
func FromImage(img image.Image, format PixelFormat, mipmaps bool) *ImageData {
	b := img.Bounds()
	return &ImageData{
		img:     img,
		format:  format,
		mipmaps: mipmaps,
		width:   b.Dx(),
		height:  b.Dy(),
	}
}

// Kind implements Data.
func (d *ImageData) Kind() Kind { return KindPixels }

// Prepare implements Data.
func (d *ImageData) Prepare() error {
	if err := d.begin(); err != nil {
		return err
	}
	img := d.img
	if d.src.fsys != nil {
		b, err := d.src.read()
		if err != nil {
			return err
		}
		if img, err = decodeImage(b); err != nil {
			return err
		}
	} else if img == nil {
		return glerr.Configf("texture.Prepare", "in-memory image was disposed")
	}
	d.pix = toNRGBA(img)
	d.width, d.height = d.pix.Rect.Dx(), d.pix.Rect.Dy()
	if d.width < 1 || d.height < 1 {
		d.pix = nil
		return &glerr.FormatError{Container: "image", Offset: -1, Reason: "empty image"}
	}
	d.prepared = true
	return nil
}

// Width implements Data.
func (d *ImageData) Width() int { return d.width }

// Height implements Data.
func (d *ImageData) Height() int { return d.height }

// Format implements Data.
func (d *ImageData) Format() driver.Enum {
	internal, _, _ := d.format.gl()
	return internal
}

// PixelFormat returns the format of the uploaded pixels.
func (d *ImageData) PixelFormat() PixelFormat { return d.format }

// Mipmaps implements Data.
func (d *ImageData) Mipmaps() bool { return d.mipmaps }

// Managed implements Data.
func (d *ImageData) Managed() bool { return d.src.managed(&d.state) }

// Image returns the decoded image.
// It is nil if d is not prepared.
func (d *ImageData) Image() *image.NRGBA { return d.pix }

// Consume implements Data.
func (d *ImageData) Consume(gpu driver.GPU, target driver.Enum, level int) error {
	return consume(d, &d.state, gpu, target, level)
}

func (d *ImageData) payload() payload {
	return &pixelPayload{img: d.pix, format: d.format, mipmaps: d.mipmaps}
}

func (d *ImageData) discard() {
	d.pix = nil
	if d.src.fsys == nil {
		d.img = nil
	}
}

func decodeImage(b []byte) (image.Image, error) {
	if !filetype.IsImage(b) {
		return nil, &glerr.FormatError{Container: "image", Offset: 0, Reason: "unknown image type"}
	}
	img, _, err := image.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, &glerr.FormatError{Container: "image", Offset: -1, Reason: err.Error()}
	}
	return img, nil
}

var (
	ktxType = filetype.NewType("ktx", "image/ktx")
	pkmType = filetype.NewType("pkm", "image/x-pkm")
)

func init() {
	filetype.AddMatcher(ktxType, ktx.IsKTX)
	filetype.AddMatcher(pkmType, etc1.IsPKM)
}

// sniffLen is the length of the header that filetype
// inspects.
const sniffLen = 262

// Load creates a Data for the file at path in fsys,
// chosen by the file's contents: KTX, ZKTX, PKM, zipped
// PKM or one of the image formats that ImageData decodes.
// format applies to ImageData only.
func Load(fsys fs.FS, path string, format PixelFormat, mipmaps bool) (Data, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, err
	}
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	f.Close()
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	head = head[:n]
	kind, err := filetype.Match(head)
	if err != nil {
		return nil, &glerr.FormatError{Container: path, Offset: 0, Reason: err.Error()}
	}
	switch {
	case kind == ktxType:
		return NewKTXData(fsys, path, mipmaps), nil
	case kind == pkmType:
		return NewETC1Data(fsys, path, mipmaps), nil
	case kind.Extension == "gz":
		b, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, err
		}
		p, err := zpack.Decode(b)
		if err != nil {
			return nil, &glerr.FormatError{Container: path, Offset: -1, Reason: err.Error()}
		}
		switch {
		case ktx.IsKTX(p):
			return NewKTXData(fsys, path, mipmaps), nil
		case etc1.IsPKM(p):
			return NewETC1Data(fsys, path, mipmaps), nil
		}
	case filetype.IsImage(head):
		return NewImageData(fsys, path, format, mipmaps), nil
	}
	return nil, &glerr.FormatError{Container: path, Offset: 0, Reason: "unknown texture container (" + kind.Extension + ")"}
}
