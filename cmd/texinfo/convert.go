// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/texture"
	"github.com/gviegas/glrt/texture/ktx"
)

func (a *app) convertCmd() *cobra.Command {
	var mipmaps, bigEndian bool
	cmd := &cobra.Command{
		Use:   "convert IN... OUT",
		Short: "Convert images to an RGBA8 KTX or ZKTX file",
		Long: `Convert one image to a 2D texture, or six images (+X, -X, +Y, -Y, +Z, -Z)
to a cubemap. The output is compressed with gzip if OUT ends in .zktx.`,
		Args: func(_ *cobra.Command, args []string) error {
			if n := len(args) - 1; n != 1 && n != 6 {
				return fmt.Errorf("need 1 or 6 inputs, have %d", max(n, 0))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			var order binary.ByteOrder = binary.LittleEndian
			if bigEndian {
				order = binary.BigEndian
			}
			out := args[len(args)-1]
			f, err := convert(args[:len(args)-1], mipmaps)
			if err != nil {
				return err
			}
			if err := write(out, f, order); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %dx%d, %d face(s), %d level(s)\n", out, f.Width, f.Height, f.Faces, f.Levels())
			return nil
		},
	}
	cmd.Flags().BoolVar(&mipmaps, "mipmaps", false, "store a full mip chain")
	cmd.Flags().BoolVar(&bigEndian, "big-endian", false, "write a big-endian stream")
	return cmd
}

// rows returns the pixels of img without row padding.
func rows(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if img.Stride == w*4 {
		return img.Pix[:w*h*4]
	}
	b := make([]byte, 0, w*h*4)
	for y := range h {
		b = append(b, img.Pix[y*img.Stride:y*img.Stride+w*4]...)
	}
	return b
}

func convert(inputs []string, mipmaps bool) (*ktx.File, error) {
	var chains [][]*image.NRGBA
	for _, path := range inputs {
		dir, name := split(path)
		d := texture.NewImageData(os.DirFS(dir), name, texture.RGBA8888, false)
		if err := d.Prepare(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		chain := []*image.NRGBA{d.Image()}
		if mipmaps {
			chain = texture.MipChain(d.Image())
		}
		if len(chains) > 0 && chain[0].Rect.Size() != chains[0][0].Rect.Size() {
			return nil, fmt.Errorf("%s: size %v differs from %v", path, chain[0].Rect.Size(), chains[0][0].Rect.Size())
		}
		chains = append(chains, chain)
	}
	size := chains[0][0].Rect.Size()
	if len(chains) == 6 && size.X != size.Y {
		return nil, errors.New("cubemap faces must be square")
	}
	images := make([][][]byte, len(chains[0]))
	for level := range images {
		for _, chain := range chains {
			images[level] = append(images[level], rows(chain[level]))
		}
	}
	h := ktx.Header{
		Type:               driver.UnsignedByte,
		TypeSize:           1,
		Format:             driver.RGBA,
		InternalFormat:     driver.RGBA8,
		BaseInternalFormat: driver.RGBA,
		Width:              size.X,
		Height:             size.Y,
		Faces:              len(chains),
		MipLevels:          len(images),
	}
	kvs := []ktx.KeyValue{{Key: "KTXorientation", Value: []byte("S=r,T=d\x00")}}
	return ktx.New(h, kvs, images)
}

func write(path string, f *ktx.File, order binary.ByteOrder) (err error) {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(file)
	if strings.HasSuffix(strings.ToLower(path), ".zktx") {
		err = f.WriteZ(w, order)
	} else {
		err = f.Write(w, order)
	}
	if err != nil {
		return err
	}
	return w.Flush()
}
