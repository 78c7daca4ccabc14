// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package ktx parses and writes KTX (version 1.1)
// texture containers and their gzip-wrapped variant,
// ZKTX.
package ktx

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/internal/zpack"
)

// Magic is the KTX file identifier.
var Magic = [12]byte{0xAB, 'K', 'T', 'X', ' ', '1', '1', 0xBB, '\r', '\n', 0x1A, '\n'}

// EndianTag is the value of the endianness field as
// read in the file's byte order.
const EndianTag = 0x04030201

// Sizes in bytes.
const (
	// Magic, endianness and the 12 header fields
	// that precede the key/value data.
	HeaderSize = 12 + 13*4
)

// Header is the fixed part of a KTX file.
type Header struct {
	Type               driver.Enum
	TypeSize           int
	Format             driver.Enum
	InternalFormat     driver.Enum
	BaseInternalFormat driver.Enum
	Width              int
	Height             int
	Depth              int
	ArrayElements      int
	Faces              int
	// MipLevels is the value stored in the file.
	// Zero means that a single level is stored and
	// that the remaining levels should be generated.
	MipLevels int
}

// Compressed returns whether the image data is in a
// compressed format.
func (h *Header) Compressed() bool { return h.Type == 0 }

// Levels returns the number of levels stored in the file.
func (h *Header) Levels() int { return max(h.MipLevels, 1) }

// Is1D returns whether the file describes 1D images.
func (h *Header) Is1D() bool { return h.Height == 0 }

// Is3D returns whether the file describes 3D images.
func (h *Header) Is3D() bool { return h.Depth > 0 }

// IsArray returns whether the file describes an array.
func (h *Header) IsArray() bool { return h.ArrayElements > 0 }

// IsCube returns whether the file describes a cubemap.
func (h *Header) IsCube() bool { return h.Faces == 6 }

// LevelSize returns the dimensions of a mip level.
func (h *Header) LevelSize(level int) (width, height int) {
	return max(1, h.Width>>level), max(1, h.Height>>level)
}

// KeyValue is one entry of the key/value data.
type KeyValue struct {
	Key   string
	Value []byte
}

// Block locates the image data of one face of one mip
// level within the parsed stream.
type Block struct {
	Level  int
	Face   int
	Offset int
	Size   int
}

// File is a parsed KTX file.
type File struct {
	Header
	// Order is the byte order of the source stream.
	// Image data is always converted to little-endian.
	Order     binary.ByteOrder
	KeyValues []KeyValue
	// Blocks lists the image blocks in stream order.
	Blocks []Block
	// levels[level][face].
	levels [][][]byte
}

// Image returns the image data of the given level and
// face (without padding).
func (f *File) Image(level, face int) []byte {
	if level < 0 || level >= len(f.levels) || face < 0 || face >= len(f.levels[level]) {
		return nil
	}
	return f.levels[level][face]
}

// Value returns the value associated with key.
func (f *File) Value(key string) ([]byte, bool) {
	for _, kv := range f.KeyValues {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return nil, false
}

// DataSize returns the total size of the image data.
func (f *File) DataSize() (n int) {
	for _, b := range f.Blocks {
		n += b.Size
	}
	return
}

// IsKTX returns whether b starts with the KTX magic.
func IsKTX(b []byte) bool { return len(b) >= len(Magic) && bytes.Equal(b[:len(Magic)], Magic[:]) }

// IsZKTX returns whether b looks like a ZKTX stream.
func IsZKTX(b []byte) bool { return zpack.IsGzip(b) }

func formatErr(off int, format string, args ...any) error {
	return &glerr.FormatError{Container: "ktx", Offset: off, Reason: fmt.Sprintf(format, args...)}
}

// round4 rounds n up to a multiple of 4.
func round4(n int) int { return (n + 3) &^ 3 }

// Parse parses a KTX or ZKTX stream.
func Parse(b []byte) (*File, error) {
	if IsZKTX(b) {
		p, err := zpack.Decode(b)
		if err != nil {
			return nil, &glerr.FormatError{Container: "zktx", Offset: -1, Reason: err.Error()}
		}
		b = p
	}
	return parse(b)
}

// Decode reads r to completion and parses the result.
func Decode(r io.Reader) (*File, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Parse(b)
}

func parse(b []byte) (*File, error) {
	if !IsKTX(b) {
		return nil, formatErr(0, "bad magic")
	}
	if len(b) < HeaderSize {
		return nil, formatErr(len(b), "truncated header")
	}
	f := &File{}
	switch tag := binary.LittleEndian.Uint32(b[12:]); tag {
	case EndianTag:
		f.Order = binary.LittleEndian
	case 0x01020304:
		f.Order = binary.BigEndian
	default:
		return nil, formatErr(12, "invalid endianness 0x%08x", tag)
	}

	var fields [12]uint32
	for i := range fields {
		fields[i] = f.Order.Uint32(b[16+i*4:])
	}
	for i, x := range fields[5:11] {
		if x > 1<<16 {
			return nil, formatErr(16+(5+i)*4, "field value %d out of range", x)
		}
	}
	f.Header = Header{
		Type:               driver.Enum(fields[0]),
		TypeSize:           int(fields[1]),
		Format:             driver.Enum(fields[2]),
		InternalFormat:     driver.Enum(fields[3]),
		BaseInternalFormat: driver.Enum(fields[4]),
		Width:              int(fields[5]),
		Height:             int(fields[6]),
		Depth:              int(fields[7]),
		ArrayElements:      int(fields[8]),
		Faces:              int(fields[9]),
		MipLevels:          int(fields[10]),
	}
	kvLen := int(fields[11])
	switch {
	case f.Width == 0:
		return nil, formatErr(16+5*4, "zero width")
	case f.Faces != 1 && f.Faces != 6:
		return nil, formatErr(16+9*4, "number of faces must be 1 or 6, not %d", f.Faces)
	case f.Faces == 6 && f.Width != f.Height:
		return nil, formatErr(16+6*4, "cubemap faces must be square, not %dx%d", f.Width, f.Height)
	case kvLen%4 != 0:
		return nil, formatErr(16+11*4, "key/value data size %d is not a multiple of 4", kvLen)
	case f.Compressed() && (f.Format != 0 || f.TypeSize != 1):
		return nil, formatErr(16, "compressed data must have zero format and type size 1")
	case f.TypeSize != 1 && f.TypeSize != 2 && f.TypeSize != 4:
		return nil, formatErr(16+4, "invalid type size %d", f.TypeSize)
	case f.MipLevels > 32:
		return nil, formatErr(16+10*4, "too many mip levels (%d)", f.MipLevels)
	}

	off := HeaderSize
	if kvLen > len(b)-off {
		return nil, formatErr(off-4, "key/value data exceeds stream length")
	}
	kvs, err := parseKeyValues(b[off:off+kvLen], f.Order, off)
	if err != nil {
		return nil, err
	}
	f.KeyValues = kvs
	off += kvLen

	f.levels = make([][][]byte, f.Levels())
	f.Blocks = make([]Block, 0, f.Levels()*f.Faces)
	for level := range f.levels {
		if off+4 > len(b) {
			return nil, formatErr(off, "missing image size of level %d", level)
		}
		size := int(f.Order.Uint32(b[off:]))
		off += 4
		f.levels[level] = make([][]byte, f.Faces)
		for face := range f.Faces {
			if size > len(b)-off {
				return nil, formatErr(off, "level %d face %d: %d bytes of image data expected, %d available",
					level, face, size, len(b)-off)
			}
			img := b[off : off+size : off+size]
			if f.Order != binary.LittleEndian && f.TypeSize > 1 {
				img = swap(img, f.TypeSize)
			}
			f.levels[level][face] = img
			f.Blocks = append(f.Blocks, Block{Level: level, Face: face, Offset: off, Size: size})
			off += round4(size)
			off = min(off, len(b))
		}
	}
	return f, nil
}

func parseKeyValues(b []byte, order binary.ByteOrder, base int) ([]KeyValue, error) {
	var kvs []KeyValue
	for off := 0; off < len(b); {
		if off+4 > len(b) {
			return nil, formatErr(base+off, "truncated key/value size")
		}
		n := int(order.Uint32(b[off:]))
		off += 4
		if n > len(b)-off {
			return nil, formatErr(base+off, "key/value pair exceeds key/value data")
		}
		kv := b[off : off+n]
		k := bytes.IndexByte(kv, 0)
		if k < 0 {
			return nil, formatErr(base+off, "key not NUL-terminated")
		}
		kvs = append(kvs, KeyValue{Key: string(kv[:k]), Value: bytes.Clone(kv[k+1:])})
		off = min(off+round4(n), len(b))
	}
	return kvs, nil
}

// swap returns a copy of b with each unit of the given
// size byte-swapped.
func swap(b []byte, unit int) []byte {
	s := make([]byte, len(b))
	for i := 0; i+unit <= len(b); i += unit {
		for j := range unit {
			s[i+j] = b[i+unit-1-j]
		}
	}
	return s
}

// New creates a File from a header and its images,
// given as images[level][face].
// Every face of a level must have the same size.
func New(h Header, kvs []KeyValue, images [][][]byte) (*File, error) {
	f := &File{Header: h, Order: binary.LittleEndian, KeyValues: kvs}
	switch {
	case h.Width < 1:
		return nil, formatErr(-1, "zero width")
	case h.Faces != 1 && h.Faces != 6:
		return nil, formatErr(-1, "number of faces must be 1 or 6, not %d", h.Faces)
	case h.Faces == 6 && h.Width != h.Height:
		return nil, formatErr(-1, "cubemap faces must be square, not %dx%d", h.Width, h.Height)
	case len(images) != h.Levels():
		return nil, formatErr(-1, "%d levels given, header says %d", len(images), h.Levels())
	}
	for level, faces := range images {
		if len(faces) != h.Faces {
			return nil, formatErr(-1, "level %d: %d faces given, header says %d", level, len(faces), h.Faces)
		}
		for face := range faces {
			if len(faces[face]) != len(faces[0]) {
				return nil, formatErr(-1, "level %d: faces differ in size", level)
			}
		}
	}
	f.levels = images
	var buf bytes.Buffer
	if err := f.Write(&buf, binary.LittleEndian); err != nil {
		return nil, err
	}
	return parse(buf.Bytes())
}

// Write writes f to w as a KTX stream in the given byte
// order.
func (f *File) Write(w io.Writer, order binary.ByteOrder) error {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	var word [4]byte
	put := func(x uint32) {
		order.PutUint32(word[:], x)
		buf.Write(word[:])
	}
	put(EndianTag)
	var kv bytes.Buffer
	for _, x := range f.KeyValues {
		n := len(x.Key) + 1 + len(x.Value)
		order.PutUint32(word[:], uint32(n))
		kv.Write(word[:])
		kv.WriteString(x.Key)
		kv.WriteByte(0)
		kv.Write(x.Value)
		kv.Write(make([]byte, round4(n)-n))
	}
	for _, x := range [...]int{
		int(f.Type), f.TypeSize, int(f.Format), int(f.InternalFormat),
		int(f.BaseInternalFormat), f.Width, f.Height, f.Depth,
		f.ArrayElements, f.Faces, f.MipLevels, kv.Len(),
	} {
		put(uint32(x))
	}
	buf.Write(kv.Bytes())
	for _, faces := range f.levels {
		size := 0
		if len(faces) > 0 {
			size = len(faces[0])
		}
		put(uint32(size))
		for _, img := range faces {
			if order != binary.LittleEndian && f.TypeSize > 1 {
				img = swap(img, f.TypeSize)
			}
			buf.Write(img)
			buf.Write(make([]byte, round4(size)-size))
		}
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// WriteZ writes f to w as a ZKTX stream.
func (f *File) WriteZ(w io.Writer, order binary.ByteOrder) error {
	var buf bytes.Buffer
	if err := f.Write(&buf, order); err != nil {
		return err
	}
	return zpack.Encode(w, buf.Bytes())
}
