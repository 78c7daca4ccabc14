// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Texinfo inspects, converts and checks texture files.
//
// Usage:
//
//	texinfo inspect FILE...
//	texinfo convert [--mipmaps] [--big-endian] IN... OUT
//	texinfo check [--config FILE] [--lose] FILE...
package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/config"
)

func main() {
	if err := newRoot().Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the state shared by the subcommands.
type app struct {
	configPath string
	verbose    bool
	cfg        *config.Options
}

func newRoot() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "texinfo",
		Short:        "Inspect, convert and check texture files",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "log at debug level")
	root.AddCommand(a.inspectCmd(), a.convertCmd(), a.checkCmd())
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	if a.configPath != "" {
		cfg, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		a.cfg = cfg
	} else {
		a.cfg = config.Default()
	}
	if a.verbose {
		a.cfg.Log.Level = "debug"
	}
	l, err := a.cfg.Logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	glrt.SetLogger(l)
	return nil
}

// split returns a file system rooted at the directory of
// path and the name of path within it.
func split(path string) (dir, name string) {
	return filepath.Dir(path), filepath.Base(path)
}
