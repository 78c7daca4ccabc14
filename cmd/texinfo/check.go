// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/gviegas/glrt/driver/headless"
	"github.com/gviegas/glrt/resource"
	"github.com/gviegas/glrt/texture"
)

func (a *app) checkCmd() *cobra.Command {
	var lose bool
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Upload texture files with the configured driver",
		Long: `Prepare and upload each file as a texture, reporting failures.
With the headless driver, the capability tier is taken from the configuration.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.check(cmd.OutOrStdout(), args, lose)
		},
	}
	cmd.Flags().BoolVar(&lose, "lose", false, "simulate a context loss after uploading (headless only)")
	return cmd
}

func (a *app) check(w io.Writer, paths []string, lose bool) error {
	gpu, err := a.cfg.OpenGPU()
	if err != nil {
		return err
	}
	reg := resource.NewRegistry()
	ctx := reg.NewContext(gpu, a.cfg.Resource())
	fmt.Fprintf(w, "driver %s, %v\n", a.cfg.Driver, gpu.Caps().Version)

	var errs []error
	for _, path := range paths {
		t, err := a.upload(ctx, path)
		if err != nil {
			fmt.Fprintf(w, "FAIL %s: %v\n", path, err)
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			continue
		}
		fmt.Fprintf(w, "ok   %s: %s %dx%d %v\n", path, t.Name(), t.Width(), t.Height(), t.Format())
	}
	if lose {
		h, ok := gpu.(*headless.GPU)
		if !ok {
			return errors.New("--lose requires the headless driver")
		}
		h.LoseContext()
		if err := reg.Handle(resource.Event{Kind: resource.Lost, Context: ctx}); err != nil {
			return err
		}
		h.Restore()
		if err := reg.Handle(resource.Event{Kind: resource.Restored, Context: ctx}); err != nil {
			fmt.Fprintf(w, "restore: %v\n", err)
			errs = append(errs, err)
		} else {
			fmt.Fprintf(w, "restored %d texture(s)\n", ctx.Count(resource.KindTexture))
		}
	}
	return errors.Join(errs...)
}

func (a *app) upload(ctx *resource.Context, path string) (*texture.Texture, error) {
	dir, name := split(path)
	d, err := texture.Load(os.DirFS(dir), name, texture.RGBA8888, true)
	if err != nil {
		return nil, err
	}
	switch d := d.(type) {
	case *texture.KTXData:
		d.SetFallback(a.cfg.Fallback())
		if err := d.Prepare(); err != nil {
			return nil, err
		}
		if d.Cube() {
			c, err := texture.NewCubemap(ctx, d, texture.DefaultParams())
			if err != nil {
				return nil, err
			}
			return &c.Texture, nil
		}
	case *texture.ETC1Data:
		d.SetFallback(a.cfg.Fallback())
	}
	return texture.New(ctx, d, texture.DefaultParams())
}
