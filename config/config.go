// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package config loads runtime options from TOML.
package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/driver/headless"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
	"github.com/gviegas/glrt/texture"
)

// Options are the runtime options.
type Options struct {
	// Driver is the name of the driver to open.
	// Any driver whose name contains Driver is a match.
	Driver   string          `toml:"driver"`
	Log      LogOptions      `toml:"log"`
	Shader   ShaderOptions   `toml:"shader"`
	Texture  TextureOptions  `toml:"texture"`
	Headless HeadlessOptions `toml:"headless"`
}

// LogOptions configure logging.
type LogOptions struct {
	// Level is one of "debug", "info", "warn" or "error".
	Level string `toml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format"`
}

// ShaderOptions configure shader programs.
type ShaderOptions struct {
	StrictUniforms bool `toml:"strict_uniforms"`
}

// TextureOptions configure texture data.
type TextureOptions struct {
	// KeepData causes texture data to keep its CPU copy
	// after upload, so in-memory textures survive context
	// loss.
	KeepData bool `toml:"keep_data"`
	// ETC1Fallback is the format that ETC1 data is decoded
	// to when the GPU lacks ETC1 support.
	ETC1Fallback string `toml:"etc1_fallback"`
}

// HeadlessOptions configure the headless driver.
type HeadlessOptions struct {
	// Tier is the name of a headless.Tiers entry.
	Tier string `toml:"tier"`
	// MaxObjects limits the number of live GPU objects.
	// Zero means no limit.
	MaxObjects int `toml:"max_objects"`
}

// Default returns the default options.
func Default() *Options {
	return &Options{
		Driver: "headless",
		Log: LogOptions{
			Level:  "warn",
			Format: "text",
		},
		Shader:   ShaderOptions{StrictUniforms: true},
		Texture:  TextureOptions{ETC1Fallback: texture.FallbackRGB565.String()},
		Headless: HeadlessOptions{Tier: "gles3"},
	}
}

// Decode parses s on top of the defaults.
// Unknown keys are an error.
func Decode(s string) (*Options, error) {
	o := Default()
	md, err := toml.Decode(s, o)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		ks := make([]string, len(keys))
		for i, k := range keys {
			ks[i] = k.String()
		}
		return nil, glerr.Configf("config.Decode", "unknown keys %s", strings.Join(ks, ", "))
	}
	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Load reads and decodes the file at path.
func Load(path string) (*Options, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return Decode(string(b))
}

// Write encodes o as TOML to w.
func (o *Options) Write(w io.Writer) error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(o); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

// Validate checks that every option has a known value.
func (o *Options) Validate() error {
	const op = "config.Validate"
	if _, err := o.level(); err != nil {
		return err
	}
	if !slices.Contains([]string{"text", "json"}, o.Log.Format) {
		return glerr.Configf(op, "unknown log format %q", o.Log.Format)
	}
	if _, ok := texture.ParseETC1Fallback(o.Texture.ETC1Fallback); !ok {
		return glerr.Configf(op, "unknown ETC1 fallback %q", o.Texture.ETC1Fallback)
	}
	if o.Headless.Tier != "" {
		if _, err := headless.Tier(o.Headless.Tier); err != nil {
			return glerr.Configf(op, "%v", err)
		}
	}
	if o.Headless.MaxObjects < 0 {
		return glerr.Configf(op, "negative object limit %d", o.Headless.MaxObjects)
	}
	if o.Driver == "" {
		return glerr.Configf(op, "no driver")
	}
	return nil
}

func (o *Options) level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(o.Log.Level)); err != nil {
		return 0, glerr.Configf("config.Validate", "unknown log level %q", o.Log.Level)
	}
	return l, nil
}

// Logger creates a logger that writes to w with the
// configured level and format.
func (o *Options) Logger(w io.Writer) (*slog.Logger, error) {
	l, err := o.level()
	if err != nil {
		return nil, err
	}
	hopts := &slog.HandlerOptions{Level: l}
	if o.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopts)), nil
	}
	return slog.New(slog.NewTextHandler(w, hopts)), nil
}

// Resource returns the options of resource contexts.
func (o *Options) Resource() resource.Options {
	return resource.Options{
		StrictUniforms:  o.Shader.StrictUniforms,
		KeepTextureData: o.Texture.KeepData,
	}
}

// Fallback returns the ETC1 fallback format.
func (o *Options) Fallback() texture.ETC1Fallback {
	f, _ := texture.ParseETC1Fallback(o.Texture.ETC1Fallback)
	return f
}

// OpenGPU opens the configured driver.
// The headless driver is opened with the configured
// tier.
func (o *Options) OpenGPU() (driver.GPU, error) {
	if strings.EqualFold(o.Driver, "headless") && o.Headless.Tier != "" {
		opts, err := headless.Tier(o.Headless.Tier)
		if err != nil {
			return nil, err
		}
		opts.MaxObjects = o.Headless.MaxObjects
		return headless.NewDriver(opts).Open()
	}
	_, gpu, err := driver.Open(o.Driver)
	return gpu, err
}
