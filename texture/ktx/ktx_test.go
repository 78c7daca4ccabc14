// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package ktx

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
)

// stream builds a KTX stream the way a big-endian writer
// would.
func stream(order binary.ByteOrder, fields [12]uint32, kv []byte, levels ...[]byte) []byte {
	var b []byte
	put := func(x uint32) {
		var w [4]byte
		order.PutUint32(w[:], x)
		b = append(b, w[:]...)
	}
	b = append(b, Magic[:]...)
	put(EndianTag)
	for _, x := range fields {
		put(x)
	}
	b = append(b, kv...)
	faces := int(fields[9])
	for _, l := range levels {
		put(uint32(len(l)))
		for range faces {
			b = append(b, l...)
			b = append(b, make([]byte, round4(len(l))-len(l))...)
		}
	}
	return b
}

func TestParse(t *testing.T) {
	kv := []byte{0, 0, 0, 18}
	kv = append(kv, "KTXorientation\x00S=r"...)
	kv = append(kv, 0, 0)
	lvl0 := bytes.Repeat([]byte{1, 2, 3, 4}, 4*2)
	lvl1 := []byte{5, 6, 7, 8, 9, 10, 11, 12}
	fields := [12]uint32{
		uint32(driver.UnsignedByte), 1, uint32(driver.RGBA), uint32(driver.RGBA8), uint32(driver.RGBA),
		4, 2, 0, 0, 1, 2, uint32(len(kv)),
	}
	for _, order := range []binary.ByteOrder{binary.BigEndian, binary.LittleEndian} {
		if order == binary.LittleEndian {
			binary.LittleEndian.PutUint32(kv, 18)
		}
		f, err := Parse(stream(order, fields, kv, lvl0, lvl1))
		if err != nil {
			t.Fatalf("Parse: unexpected error:\n%#v", err)
		}
		if f.Order != order {
			t.Fatalf("File.Order:\nhave %v\nwant %v", f.Order, order)
		}
		want := Header{
			Type:               driver.UnsignedByte,
			TypeSize:           1,
			Format:             driver.RGBA,
			InternalFormat:     driver.RGBA8,
			BaseInternalFormat: driver.RGBA,
			Width:              4,
			Height:             2,
			Faces:              1,
			MipLevels:          2,
		}
		if f.Header != want {
			t.Fatalf("File.Header:\nhave %+v\nwant %+v", f.Header, want)
		}
		if v, ok := f.Value("KTXorientation"); !ok || string(v) != "S=r" {
			t.Fatalf("File.Value:\nhave %q, %t\nwant \"S=r\", true", v, ok)
		}
		if x := f.Image(0, 0); !bytes.Equal(x, lvl0) {
			t.Fatalf("File.Image(0, 0):\nhave %v\nwant %v", x, lvl0)
		}
		if x := f.Image(1, 0); !bytes.Equal(x, lvl1) {
			t.Fatalf("File.Image(1, 0):\nhave %v\nwant %v", x, lvl1)
		}
		if x := f.Image(2, 0); x != nil {
			t.Fatalf("File.Image(2, 0):\nhave %v\nwant nil", x)
		}
		if w, h := f.LevelSize(1); w != 2 || h != 1 {
			t.Fatalf("File.LevelSize(1):\nhave %d, %d\nwant 2, 1", w, h)
		}
		if n := f.DataSize(); n != 40 {
			t.Fatalf("File.DataSize:\nhave %d\nwant 40", n)
		}
	}
}

func TestBlocks(t *testing.T) {
	// RGB levels of 3x3, 1x1 with 6 faces: sizes are
	// not multiples of 4.
	fields := [12]uint32{
		uint32(driver.UnsignedByte), 1, uint32(driver.RGB), uint32(driver.RGB8), uint32(driver.RGB),
		3, 3, 0, 0, 6, 2, 0,
	}
	lvl0 := bytes.Repeat([]byte{0xff}, 27)
	lvl1 := []byte{1, 2, 3}
	f, err := Parse(stream(binary.BigEndian, fields, nil, lvl0, lvl1))
	if err != nil {
		t.Fatalf("Parse: unexpected error:\n%#v", err)
	}
	if !f.IsCube() {
		t.Fatal("File.IsCube:\nhave false\nwant true")
	}
	if n := len(f.Blocks); n != 2*6 {
		t.Fatalf("len(File.Blocks):\nhave %d\nwant 12", n)
	}
	prev := -1
	for i, b := range f.Blocks {
		if b.Offset%4 != 0 {
			t.Fatalf("File.Blocks[%d].Offset:\nhave %d\nwant multiple of 4", i, b.Offset)
		}
		if b.Offset <= prev {
			t.Fatalf("File.Blocks[%d].Offset:\nhave %d\nwant > %d", i, b.Offset, prev)
		}
		prev = b.Offset
		if b.Level != i/6 || b.Face != i%6 {
			t.Fatalf("File.Blocks[%d]:\nhave level %d face %d\nwant level %d face %d", i, b.Level, b.Face, i/6, i%6)
		}
	}
	if x := f.Image(1, 5); !bytes.Equal(x, lvl1) {
		t.Fatalf("File.Image(1, 5):\nhave %v\nwant %v", x, lvl1)
	}
}

func TestSwap(t *testing.T) {
	fields := [12]uint32{
		uint32(driver.UnsignedShort565), 2, uint32(driver.RGB), uint32(driver.RGB565), uint32(driver.RGB),
		2, 1, 0, 0, 1, 1, 0,
	}
	f, err := Parse(stream(binary.BigEndian, fields, nil, []byte{0x12, 0x34, 0x56, 0x78}))
	if err != nil {
		t.Fatalf("Parse: unexpected error:\n%#v", err)
	}
	want := []byte{0x34, 0x12, 0x78, 0x56}
	if x := f.Image(0, 0); !bytes.Equal(x, want) {
		t.Fatalf("File.Image(0, 0):\nhave %v\nwant %v", x, want)
	}
}

func TestWrite(t *testing.T) {
	h := Header{
		Type:               driver.UnsignedByte,
		TypeSize:           1,
		Format:             driver.RGB,
		InternalFormat:     driver.RGB8,
		BaseInternalFormat: driver.RGB,
		Width:              2,
		Height:             2,
		Faces:              1,
		MipLevels:          2,
	}
	images := [][][]byte{{bytes.Repeat([]byte{7}, 12)}, {{1, 2, 3}}}
	kvs := []KeyValue{{Key: "tool", Value: []byte("texinfo")}}
	f, err := New(h, kvs, images)
	if err != nil {
		t.Fatalf("New: unexpected error:\n%#v", err)
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		for _, z := range [2]bool{false, true} {
			var buf bytes.Buffer
			if z {
				err = f.WriteZ(&buf, order)
			} else {
				err = f.Write(&buf, order)
			}
			if err != nil {
				t.Fatalf("File.Write: unexpected error:\n%#v", err)
			}
			if z != IsZKTX(buf.Bytes()) || z == IsKTX(buf.Bytes()) {
				t.Fatalf("IsZKTX/IsKTX: wrong detection (zipped: %t)", z)
			}
			g, err := Decode(&buf)
			if err != nil {
				t.Fatalf("Decode: unexpected error:\n%#v", err)
			}
			if g.Header != h {
				t.Fatalf("Decode: Header:\nhave %+v\nwant %+v", g.Header, h)
			}
			if v, _ := g.Value("tool"); string(v) != "texinfo" {
				t.Fatalf("Decode: Value:\nhave %q\nwant \"texinfo\"", v)
			}
			for l := range images {
				if x := g.Image(l, 0); !bytes.Equal(x, images[l][0]) {
					t.Fatalf("Decode: Image(%d, 0):\nhave %v\nwant %v", l, x, images[l][0])
				}
			}
		}
	}

	if _, err := New(h, nil, images[:1]); err == nil {
		t.Fatal("New: unexpected success")
	}
	h.Faces = 6
	if _, err := New(h, nil, images); err == nil {
		t.Fatal("New: unexpected success")
	}
	cube := make([][][]byte, len(images))
	for l := range images {
		for range 6 {
			cube[l] = append(cube[l], images[l][0])
		}
	}
	if _, err := New(h, nil, cube); err != nil {
		t.Fatalf("New: unexpected error:\n%#v", err)
	}
	h.Height = 1
	var fe *glerr.FormatError
	if _, err := New(h, nil, cube); !errors.As(err, &fe) || fe.Offset != -1 {
		t.Fatalf("New:\nhave %v\nwant *glerr.FormatError for non-square faces", err)
	}
}

func TestParseInvalid(t *testing.T) {
	fields := [12]uint32{
		uint32(driver.UnsignedByte), 1, uint32(driver.RGBA), uint32(driver.RGBA8), uint32(driver.RGBA),
		1, 1, 0, 0, 1, 1, 0,
	}
	valid := stream(binary.LittleEndian, fields, nil, []byte{1, 2, 3, 4})
	if _, err := Parse(valid); err != nil {
		t.Fatalf("Parse: unexpected error:\n%#v", err)
	}

	badMagic := bytes.Clone(valid)
	badMagic[1] = 'X'
	badTag := bytes.Clone(valid)
	badTag[12] = 0xff
	faces := fields
	faces[9] = 2
	compressed := fields
	compressed[0] = 0
	kv := fields
	kv[11] = 1000
	// A 2-byte pair with no padding leaves the data
	// size unaligned.
	kvOdd := fields
	kvOdd[11] = 6
	oddPair := []byte{2, 0, 0, 0, 'k', 0}
	cube := fields
	cube[5], cube[6], cube[9] = 2, 1, 6

	for i, b := range [][]byte{
		nil,
		badMagic,
		valid[:40],
		badTag,
		stream(binary.LittleEndian, faces, nil, []byte{1, 2, 3, 4}),
		stream(binary.LittleEndian, compressed, nil, []byte{1, 2, 3, 4}),
		stream(binary.LittleEndian, kv, nil, []byte{1, 2, 3, 4}),
		stream(binary.LittleEndian, kvOdd, oddPair, []byte{1, 2, 3, 4}),
		stream(binary.LittleEndian, cube, nil, []byte{1, 2, 3, 4, 5, 6, 7, 8}),
		valid[:HeaderSize+2],
		valid[:len(valid)-1],
		{0x1f, 0x8b, 0, 0},
	} {
		_, err := Parse(b)
		var fe *glerr.FormatError
		if !errors.As(err, &fe) {
			t.Fatalf("Parse [%d]:\nhave %v\nwant *glerr.FormatError", i, err)
		}
	}

	// Pairs need not be aligned as long as the padding
	// is present.
	kvPadded := fields
	kvPadded[11] = 8
	f, err := Parse(stream(binary.LittleEndian, kvPadded, []byte{3, 0, 0, 0, 'k', 0, 'v', 0}, []byte{1, 2, 3, 4}))
	if err != nil {
		t.Fatalf("Parse: unexpected error:\n%#v", err)
	}
	if len(f.KeyValues) != 1 || f.KeyValues[0].Key != "k" || string(f.KeyValues[0].Value) != "v" {
		t.Fatalf("File.KeyValues:\nhave %+v\nwant [{k v}]", f.KeyValues)
	}
	cube[5] = 1
	if _, err := Parse(stream(binary.LittleEndian, cube, nil, []byte{1, 2, 3, 4})); err != nil {
		t.Fatalf("Parse: unexpected error for square cubemap:\n%#v", err)
	}
}
