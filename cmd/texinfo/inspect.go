// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gviegas/glrt/texture"
)

func (a *app) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Print the contents of texture files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				if err := inspect(cmd.OutOrStdout(), path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}
}

func inspect(w io.Writer, path string) error {
	dir, name := split(path)
	d, err := texture.Load(os.DirFS(dir), name, texture.RGBA8888, false)
	if err != nil {
		return err
	}
	if err := d.Prepare(); err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s %dx%d %v\n", path, d.Kind(), d.Width(), d.Height(), d.Format())
	switch d := d.(type) {
	case *texture.KTXData:
		f := d.File()
		fmt.Fprintf(w, "\ttype %v (size %d), format %v, base %v\n", f.Type, f.TypeSize, f.Format, f.BaseInternalFormat)
		fmt.Fprintf(w, "\tfaces %d, levels %d, stored %s, %d bytes of image data\n",
			f.Faces, f.MipLevels, f.Order, f.DataSize())
		for _, kv := range f.KeyValues {
			fmt.Fprintf(w, "\t%s = %q\n", kv.Key, strings.TrimRight(string(kv.Value), "\x00"))
		}
	case *texture.ETC1Data:
		e := d.ETC1()
		fmt.Fprintf(w, "\theader %t, complete %t, %d bytes of blocks\n", e.HasHeader(), e.Complete(), len(e.Blocks()))
	case *texture.ImageData:
		fmt.Fprintf(w, "\tdecoded as %v\n", d.PixelFormat())
	}
	return nil
}
