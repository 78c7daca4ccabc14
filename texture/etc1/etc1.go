// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package etc1 parses PKM files and decodes ETC1
// compressed images.
package etc1

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"io"

	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/internal/zpack"
)

// Sizes in bytes.
const (
	HeaderSize = 16
	BlockSize  = 8
)

var magic = [6]byte{'P', 'K', 'M', ' ', '1', '0'}

// Offsets in the PKM header.
const (
	formatOffset        = 6
	encodedWidthOffset  = 8
	encodedHeightOffset = 10
	widthOffset         = 12
	heightOffset        = 14
)

// Format value of RGB data without mipmaps.
const rgbNoMipmaps = 0

// Data is ETC1 compressed image data.
type Data struct {
	Width  int
	Height int
	// Bytes holds the header (if any) followed by the
	// compressed blocks.
	Bytes []byte
	// DataOffset is the offset of the first block in
	// Bytes: HeaderSize if a PKM header is present and
	// zero otherwise.
	DataOffset int
}

// HasHeader returns whether d has a PKM header.
func (d *Data) HasHeader() bool { return d.DataOffset == HeaderSize }

// Blocks returns the compressed blocks.
func (d *Data) Blocks() []byte { return d.Bytes[d.DataOffset:] }

// Complete returns whether d holds every block that its
// dimensions require.
func (d *Data) Complete() bool { return len(d.Blocks()) >= EncodedSize(d.Width, d.Height) }

func (d *Data) String() string {
	return fmt.Sprintf("ETC1 %dx%d, header: %t, blocks: %d bytes", d.Width, d.Height, d.HasHeader(), len(d.Blocks()))
}

// EncodedSize returns the size of the compressed blocks
// of an image of the given dimensions.
func EncodedSize(width, height int) int {
	return (width + 3) / 4 * ((height + 3) / 4) * BlockSize
}

func formatErr(off int, format string, args ...any) error {
	return &glerr.FormatError{Container: "pkm", Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// IsPKM returns whether b starts with a valid PKM header.
func IsPKM(b []byte) bool { return checkHeader(b) == nil }

func checkHeader(b []byte) error {
	if len(b) < HeaderSize {
		return formatErr(len(b), "truncated header")
	}
	if !bytes.Equal(b[:len(magic)], magic[:]) {
		return formatErr(0, "bad magic")
	}
	be := binary.BigEndian
	format := be.Uint16(b[formatOffset:])
	ew := int(be.Uint16(b[encodedWidthOffset:]))
	eh := int(be.Uint16(b[encodedHeightOffset:]))
	w := int(be.Uint16(b[widthOffset:]))
	h := int(be.Uint16(b[heightOffset:]))
	switch {
	case format != rgbNoMipmaps:
		return formatErr(formatOffset, "unknown format %d", format)
	case ew < w || ew-w >= 4:
		return formatErr(encodedWidthOffset, "encoded width %d does not match width %d", ew, w)
	case eh < h || eh-h >= 4:
		return formatErr(encodedHeightOffset, "encoded height %d does not match height %d", eh, h)
	}
	return nil
}

// Parse parses a PKM file.
// The header must be valid; the block data is not
// checked (see Data.Complete).
// Zipped files (see package zpack) are inflated first.
func Parse(b []byte) (*Data, error) {
	if zpack.IsGzip(b) {
		p, err := zpack.Decode(b)
		if err != nil {
			return nil, formatErr(-1, "%v", err)
		}
		b = p
	}
	if err := checkHeader(b); err != nil {
		return nil, err
	}
	return &Data{
		Width:      int(binary.BigEndian.Uint16(b[widthOffset:])),
		Height:     int(binary.BigEndian.Uint16(b[heightOffset:])),
		Bytes:      b,
		DataOffset: HeaderSize,
	}, nil
}

// Decode reads r to completion and parses the result.
func Decode(r io.Reader) (*Data, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

// New creates headerless Data from compressed blocks.
func New(width, height int, blocks []byte) (*Data, error) {
	if width < 1 || height < 1 || width > 0xffff || height > 0xffff {
		return nil, formatErr(-1, "invalid dimensions %dx%d", width, height)
	}
	d := &Data{Width: width, Height: height, Bytes: blocks}
	if !d.Complete() {
		return nil, formatErr(-1, "%d bytes of blocks, %d expected", len(blocks), EncodedSize(width, height))
	}
	return d, nil
}

// Header formats a PKM header for the given dimensions.
func Header(width, height int) []byte {
	b := make([]byte, HeaderSize)
	copy(b, magic[:])
	be := binary.BigEndian
	be.PutUint16(b[formatOffset:], rgbNoMipmaps)
	be.PutUint16(b[encodedWidthOffset:], uint16((width+3)&^3))
	be.PutUint16(b[encodedHeightOffset:], uint16((height+3)&^3))
	be.PutUint16(b[widthOffset:], uint16(width))
	be.PutUint16(b[heightOffset:], uint16(height))
	return b
}

// WithHeader returns d with a PKM header.
func (d *Data) WithHeader() *Data {
	if d.HasHeader() {
		return d
	}
	b := append(Header(d.Width, d.Height), d.Blocks()...)
	return &Data{Width: d.Width, Height: d.Height, Bytes: b, DataOffset: HeaderSize}
}

// Intensity modifiers, indexed by table codeword and
// pixel index.
var modifiers = [8][4]int{
	{2, 8, -2, -8},
	{5, 17, -5, -17},
	{9, 29, -9, -29},
	{13, 42, -13, -42},
	{18, 60, -18, -60},
	{24, 80, -24, -80},
	{33, 106, -33, -106},
	{47, 183, -47, -183},
}

var diffLookup = [8]int{0, 1, 2, 3, -4, -3, -2, -1}

func clamp(x int) byte { return byte(min(max(x, 0), 255)) }

func expand4(b uint32) int {
	c := int(b & 0xf)
	return c<<4 | c
}

func expand5(b int) int {
	c := b & 0x1f
	return c<<3 | c>>2
}

func expandDiff(base, diff uint32) int { return expand5(int(base&0x1f) + diffLookup[diff&7]) }

// DecodeBlock decodes one 8-byte block into 4x4 RGB
// pixels, row by row.
func DecodeBlock(in []byte, out *[48]byte) {
	high := binary.BigEndian.Uint32(in)
	low := binary.BigEndian.Uint32(in[4:])
	var r1, r2, g1, g2, b1, b2 int
	if high&2 != 0 {
		rb, gb, bb := high>>27, high>>19, high>>11
		r1, r2 = expand5(int(rb)), expandDiff(rb, high>>24)
		g1, g2 = expand5(int(gb)), expandDiff(gb, high>>16)
		b1, b2 = expand5(int(bb)), expandDiff(bb, high>>8)
	} else {
		r1, r2 = expand4(high>>28), expand4(high>>24)
		g1, g2 = expand4(high>>20), expand4(high>>16)
		b1, b2 = expand4(high>>12), expand4(high>>8)
	}
	flipped := high&1 != 0
	subblock(out, r1, g1, b1, &modifiers[7&(high>>5)], low, false, flipped)
	subblock(out, r2, g2, b2, &modifiers[7&(high>>2)], low, true, flipped)
}

func subblock(out *[48]byte, r, g, b int, table *[4]int, low uint32, second, flipped bool) {
	var bx, by int
	if second {
		if flipped {
			by = 2
		} else {
			bx = 2
		}
	}
	for i := range 8 {
		var x, y int
		if flipped {
			x, y = bx+i>>1, by+i&1
		} else {
			x, y = bx+i>>2, by+i&3
		}
		k := y + x*4
		idx := (low>>k)&1 | (low>>(k+15))&2
		delta := table[idx]
		p := 3 * (x + 4*y)
		out[p] = clamp(r + delta)
		out[p+1] = clamp(g + delta)
		out[p+2] = clamp(b + delta)
	}
}

// DecodeImage decodes d into pixels of the given size:
// 3 for RGB888 and 2 for little-endian RGB565.
// Rows are tightly packed.
func DecodeImage(d *Data, pixelSize int) ([]byte, error) {
	if pixelSize != 2 && pixelSize != 3 {
		return nil, fmt.Errorf("etc1: invalid pixel size %d", pixelSize)
	}
	if !d.Complete() {
		return nil, formatErr(d.DataOffset+len(d.Blocks()), "%d bytes of blocks, %d expected",
			len(d.Blocks()), EncodedSize(d.Width, d.Height))
	}
	w, h := d.Width, d.Height
	stride := w * pixelSize
	out := make([]byte, stride*h)
	in := d.Blocks()
	var block [48]byte
	for y := 0; y < h; y += 4 {
		yEnd := min(h-y, 4)
		for x := 0; x < w; x += 4 {
			xEnd := min(w-x, 4)
			DecodeBlock(in, &block)
			in = in[BlockSize:]
			for cy := range yEnd {
				q := block[cy*4*3:]
				p := out[pixelSize*x+stride*(y+cy):]
				if pixelSize == 3 {
					copy(p, q[:xEnd*3])
					continue
				}
				for cx := range xEnd {
					r, g, b := q[cx*3], q[cx*3+1], q[cx*3+2]
					px := uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
					binary.LittleEndian.PutUint16(p[cx*2:], px)
				}
			}
		}
	}
	return out, nil
}

// Image decodes d into an image.Image.
func Image(d *Data) (*image.NRGBA, error) {
	rgb, err := DecodeImage(d, 3)
	if err != nil {
		return nil, err
	}
	img := image.NewNRGBA(image.Rect(0, 0, d.Width, d.Height))
	for i := range d.Width * d.Height {
		img.Pix[i*4+0] = rgb[i*3+0]
		img.Pix[i*4+1] = rgb[i*3+1]
		img.Pix[i*4+2] = rgb[i*3+2]
		img.Pix[i*4+3] = 0xff
	}
	return img, nil
}
