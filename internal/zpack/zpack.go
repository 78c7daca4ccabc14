// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package zpack reads and writes gzip streams whose
// inflated content is a 4-byte big-endian length followed
// by that many bytes of payload.
// ZKTX textures and zipped ETC1 files use this framing.
package zpack

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const prefix = "zpack: "

// IsGzip returns whether b starts with the gzip magic.
func IsGzip(b []byte) bool { return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b }

// Decode inflates b and returns the payload.
// The payload length must match the length prefix.
func Decode(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf(prefix+"%w", err)
	}
	defer zr.Close()
	var n uint32
	if err := binary.Read(zr, binary.BigEndian, &n); err != nil {
		return nil, errors.New(prefix + "missing length prefix")
	}
	p, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf(prefix+"%w", err)
	}
	if len(p) < int(n) {
		return nil, fmt.Errorf(prefix+"payload has %d bytes, length prefix says %d", len(p), n)
	}
	return p[:n], nil
}

// Encode writes payload to w with the length prefix,
// gzip-compressed.
func Encode(w io.Writer, payload []byte) error {
	zw := gzip.NewWriter(w)
	var n [4]byte
	binary.BigEndian.PutUint32(n[:], uint32(len(payload)))
	if _, err := zw.Write(n[:]); err != nil {
		return err
	}
	if _, err := zw.Write(payload); err != nil {
		return err
	}
	return zw.Close()
}
