// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package framebuffer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/driver/headless"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
	"github.com/gviegas/glrt/texture"
)

func newContext(t *testing.T, tier string) (*headless.GPU, *resource.Registry, *resource.Context) {
	t.Helper()
	opts, err := headless.Tier(tier)
	require.NoError(t, err)
	return withOptions(opts)
}

func withOptions(opts headless.Options) (*headless.GPU, *resource.Registry, *resource.Context) {
	gpu := headless.New(opts)
	reg := resource.NewRegistry()
	return gpu, reg, reg.NewContext(gpu, resource.Options{})
}

func TestBuild(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles3")
	fb, err := NewBuilder(64, 64).
		AddColorTexture(driver.RGBA8, driver.RGBA, driver.UnsignedByte).
		AddPackedDepthStencilRenderbuffer(driver.Depth24Stencil8).
		Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 64, fb.Width())
	assert.Equal(t, 64, fb.Height())
	assert.False(t, fb.Packed())

	as := fb.Attachments()
	require.Len(t, as, 2)
	assert.Equal(t, TextureSource, as[0].Source)
	assert.Equal(t, driver.ColorAttachment0, as[0].Point)
	assert.Equal(t, fb.ColorTexture(0).Handle(), as[0].Handle())
	assert.Equal(t, RenderbufferSource, as[1].Source)
	assert.Equal(t, DepthStencil, as[1].Class)
	assert.Equal(t, driver.DepthStencilAttachment, as[1].Point)
	internal, w, h, ok := gpu.Renderbuffer(as[1].Handle())
	require.True(t, ok)
	assert.Equal(t, driver.Depth24Stencil8, internal)
	assert.Equal(t, [2]int{64, 64}, [2]int{w, h})
	assert.Equal(t, []driver.Enum{driver.DepthStencilAttachment, driver.ColorAttachment0},
		gpu.FramebufferAttachments(fb.Handle()))
	assert.Nil(t, fb.ColorTexture(1))

	// Attachments returns a copy.
	as[0].Internal = driver.RGB565
	assert.Equal(t, driver.RGBA8, fb.Attachments()[0].Internal)

	assert.Equal(t, 1, ctx.Count(resource.KindFramebuffer))
	assert.Equal(t, 1, ctx.Count(resource.KindTexture))
	assert.Equal(t, 3, gpu.Objects())
	assert.Equal(t, driver.Handle(0), gpu.BoundFramebuffer())
	assert.Zero(t, gpu.Stats().Errors)

	require.NoError(t, fb.Begin())
	assert.Equal(t, fb.Handle(), gpu.BoundFramebuffer())
	x, y, vw, vh := gpu.CurrentViewport()
	assert.Equal(t, [4]int{0, 0, 64, 64}, [4]int{x, y, vw, vh})
	fb.EndViewport(0, 0, 800, 600)
	assert.Equal(t, driver.Handle(0), gpu.BoundFramebuffer())
	x, y, vw, vh = gpu.CurrentViewport()
	assert.Equal(t, [4]int{0, 0, 800, 600}, [4]int{x, y, vw, vh})

	fb.Dispose()
	fb.Dispose()
	assert.Equal(t, 0, gpu.Objects())
	assert.Equal(t, 0, ctx.Count(resource.KindFramebuffer))
	assert.Equal(t, 0, ctx.Count(resource.KindTexture))
	assert.ErrorIs(t, fb.Begin(), glerr.ErrDisposed)
}

func TestBuildMRT(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles3")
	fb, err := NewBuilder(32, 16).
		AddBasicColorTexture(texture.RGBA8888).
		AddFloatTexture(driver.RGBA16F, 0).
		AddColorRenderbuffer(driver.RGB565).
		AddDepthTexture(driver.DepthComponent24, driver.UnsignedInt).
		Build(ctx)
	require.NoError(t, err)
	as := fb.Attachments()
	require.Len(t, as, 4)
	for i, p := range []driver.Enum{driver.ColorAttachment0, driver.ColorAttachment0 + 1, driver.ColorAttachment0 + 2, driver.DepthAttachment} {
		assert.Equal(t, p, as[i].Point, "attachment %d", i)
	}
	assert.True(t, as[1].Float)
	require.NotNil(t, fb.ColorTexture(1))
	assert.Equal(t, driver.RGBA16F, fb.ColorTexture(1).Format())
	assert.Nil(t, fb.ColorTexture(2))
	require.NotNil(t, fb.DepthTexture())
	img, ok := gpu.TexImage(fb.DepthTexture().Handle(), driver.Texture2D, 0)
	require.True(t, ok)
	assert.Equal(t, driver.DepthComponent24, img.Internal)
	assert.Zero(t, gpu.Stats().Errors)
}

func TestPackedFallback(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles2-ext")
	fb, err := NewBuilder(64, 64).
		AddBasicColorTexture(texture.RGBA8888).
		AddDepthRenderbuffer(driver.DepthComponent16).
		AddStencilRenderbuffer(driver.StencilIndex8).
		Build(ctx)
	require.NoError(t, err)
	assert.True(t, fb.Packed())
	assert.Equal(t, 2, gpu.Stats().StatusChecks)

	as := fb.Attachments()
	require.Len(t, as, 2)
	assert.Equal(t, DepthStencil, as[1].Class)
	assert.Equal(t, driver.Depth24Stencil8, as[1].Internal)
	// Packed storage goes to both points before version 3.
	assert.Equal(t, []driver.Enum{driver.ColorAttachment0, driver.DepthAttachment, driver.StencilAttachment},
		gpu.FramebufferAttachments(fb.Handle()))
	// One texture, one renderbuffer and the framebuffer.
	assert.Equal(t, 3, gpu.Objects())
	assert.Zero(t, gpu.Stats().Errors)
}

func TestSeparateDepthStencil(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles2")
	fb, err := NewBuilder(64, 64).
		AddColorRenderbuffer(driver.RGBA4).
		AddDepthRenderbuffer(driver.DepthComponent16).
		AddStencilRenderbuffer(driver.StencilIndex8).
		Build(ctx)
	require.NoError(t, err)
	assert.False(t, fb.Packed())
	assert.Len(t, fb.Attachments(), 3)
	assert.Equal(t, 1, gpu.Stats().StatusChecks)
}

func TestCompletenessError(t *testing.T) {
	opts := headless.Tiers["gles2"]
	opts.RejectSeparateDepthStencil = true
	gpu, _, ctx := withOptions(opts)

	_, err := NewBuilder(64, 64).
		AddBasicColorTexture(texture.RGB565).
		AddDepthRenderbuffer(driver.DepthComponent16).
		AddStencilRenderbuffer(driver.StencilIndex8).
		Build(ctx)
	var ce *glerr.CompletenessError
	require.True(t, errors.As(err, &ce), "have %v", err)
	assert.Equal(t, driver.FramebufferUnsupported, ce.Status)
	assert.False(t, ce.Fallback)
	assert.Equal(t, 64, ce.Width)
	assert.Equal(t, []driver.Enum{driver.RGB, driver.DepthComponent16, driver.StencilIndex8}, ce.Attachments)
	assert.Equal(t, 0, gpu.Objects())
	assert.Equal(t, 0, ctx.Count(resource.KindFramebuffer))
	assert.Equal(t, 0, ctx.Count(resource.KindTexture))
}

func TestValidation(t *testing.T) {
	for _, x := range [...]struct {
		tier string
		b    *Builder
	}{
		{"gles3", NewBuilder(0, 64).AddBasicColorTexture(texture.RGBA8888)},
		{"gles3", NewBuilder(8192, 64).AddBasicColorTexture(texture.RGBA8888)},
		{"gles3", NewBuilder(64, 64)},
		{"gles3", NewBuilder(64, 64).AddColorTexture(driver.DepthComponent16, driver.DepthComponent, driver.UnsignedShort)},
		{"gles3", NewBuilder(64, 64).AddColorRenderbuffer(driver.RGBA16F)},
		{"gles3", NewBuilder(64, 64).AddDepthRenderbuffer(driver.RGBA8)},
		{"gles3", NewBuilder(64, 64).AddStencilRenderbuffer(driver.DepthComponent16)},
		{"gles3", NewBuilder(64, 64).AddPackedDepthStencilRenderbuffer(driver.StencilIndex8)},
		{"gles3", NewBuilder(64, 64).AddDepthRenderbuffer(driver.DepthComponent16).AddPackedDepthStencilRenderbuffer(driver.Depth24Stencil8)},
		{"gles3", NewBuilder(64, 64).AddDepthRenderbuffer(driver.DepthComponent16).AddDepthTexture(driver.DepthComponent16, driver.UnsignedShort)},
		{"gles3", NewBuilder(64, 64).AddStencilRenderbuffer(driver.StencilIndex8).AddPackedDepthStencilRenderbuffer(driver.Depth24Stencil8)},
		{"gles3", NewBuilder(64, 64).
			AddBasicColorTexture(texture.RGBA8888).AddBasicColorTexture(texture.RGBA8888).
			AddBasicColorTexture(texture.RGBA8888).AddBasicColorTexture(texture.RGBA8888).
			AddBasicColorTexture(texture.RGBA8888)},
		{"gles2", NewBuilder(64, 64).AddBasicColorTexture(texture.RGBA8888).AddColorRenderbuffer(driver.RGBA4)},
		{"gles2", NewBuilder(64, 64).AddFloatTexture(driver.RGBA32F, driver.RGBA)},
		{"gles2-ext", NewBuilder(64, 64).AddFloatTexture(driver.RGBA32F, driver.RGBA)},
		{"gles2", NewBuilder(64, 64).AddBasicColorTexture(texture.RGBA8888).AddDepthTexture(driver.DepthComponent16, driver.UnsignedShort)},
		{"gles2", NewBuilder(64, 64).AddBasicColorTexture(texture.RGBA8888).AddPackedDepthStencilRenderbuffer(driver.Depth24Stencil8)},
		{"gles2-ext", NewBuilder(64, 64).AddPackedDepthStencilRenderbuffer(driver.Depth32FStencil8)},
		{"gles2-ext", NewBuilder(64, 64).AddStencilTexture(driver.StencilIndex8, driver.UnsignedByte)},
	} {
		gpu, _, ctx := newContext(t, x.tier)
		_, err := x.b.Build(ctx)
		var ce *glerr.ConfigurationError
		if !errors.As(err, &ce) {
			t.Fatalf("Builder.Build (%s, %v):\nhave %v\nwant *glerr.ConfigurationError", x.tier, x.b.reqs, err)
		}
		if n := gpu.Objects(); n != 0 {
			t.Fatalf("Builder.Build (%s): %d objects created before failing validation", x.tier, n)
		}
		if n := gpu.Stats().StatusChecks; n != 0 {
			t.Fatalf("Builder.Build (%s): status checked %d time(s) before failing validation", x.tier, n)
		}
	}
}

func TestContextRestored(t *testing.T) {
	gpu, reg, ctx := newContext(t, "gles2-ext")
	fb, err := NewBuilder(64, 32).
		AddBasicColorTexture(texture.RGBA4444).
		AddDepthRenderbuffer(driver.DepthComponent16).
		AddStencilRenderbuffer(driver.StencilIndex8).
		Build(ctx)
	require.NoError(t, err)
	oldFB := fb.Handle()
	oldTex := fb.ColorTexture(0).Handle()
	oldRB := fb.Attachments()[1].Handle()

	gpu.LoseContext()
	require.NoError(t, reg.Handle(resource.Event{Kind: resource.Lost, Context: ctx}))
	gpu.Restore()
	require.NoError(t, reg.Handle(resource.Event{Kind: resource.Restored, Context: ctx}))

	assert.NotEqual(t, oldFB, fb.Handle())
	assert.NotEqual(t, oldTex, fb.ColorTexture(0).Handle())
	as := fb.Attachments()
	assert.NotEqual(t, oldRB, as[1].Handle())
	assert.Equal(t, fb.ColorTexture(0).Handle(), as[0].Handle())
	// The fallback is kept.
	assert.True(t, fb.Packed())
	assert.Len(t, as, 2)
	assert.Equal(t, []driver.Enum{driver.ColorAttachment0, driver.DepthAttachment, driver.StencilAttachment},
		gpu.FramebufferAttachments(fb.Handle()))
	assert.Equal(t, 3, gpu.Objects())
	assert.Zero(t, gpu.Stats().Errors)

	require.NoError(t, fb.Begin())
	fb.End()
	assert.Equal(t, driver.Handle(0), gpu.BoundFramebuffer())
}

func TestOutOfMemory(t *testing.T) {
	opts, err := headless.Tier("gles3")
	require.NoError(t, err)
	opts.MaxObjects = 3
	gpu, _, ctx := withOptions(opts)
	_, err = NewBuilder(16, 16).
		AddColorTexture(driver.RGBA8, driver.RGBA, driver.UnsignedByte).
		AddDepthRenderbuffer(driver.DepthComponent16).
		AddStencilRenderbuffer(driver.StencilIndex8).
		Build(ctx)
	assert.ErrorIs(t, err, driver.ErrNoDeviceMemory)
	assert.Zero(t, gpu.Objects())
	assert.Zero(t, ctx.Count(resource.KindTexture))
	assert.Zero(t, ctx.Count(resource.KindFramebuffer))
}

func TestCubemap(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles3")
	fb, err := NewBuilder(32, 32).
		AddBasicColorTexture(texture.RGBA8888).
		AddDepthRenderbuffer(driver.DepthComponent16).
		BuildCubemap(ctx)
	require.NoError(t, err)
	assert.Equal(t, 32, fb.Size())
	require.NotNil(t, fb.ColorCubemap(0))
	assert.Nil(t, fb.ColorCubemap(1))
	assert.Equal(t, driver.TextureCubeMap, gpu.TexTarget(fb.ColorCubemap(0).Handle()))
	assert.Equal(t, "cubemap framebuffer #1", fb.Name())

	_, _, err = fb.NextSide()
	assert.Error(t, err)
	assert.Error(t, fb.End())

	require.NoError(t, fb.Begin())
	for range 3 {
		_, ok, err := fb.NextSide()
		require.NoError(t, err)
		require.True(t, ok)
	}
	assert.ErrorIs(t, fb.End(), glerr.ErrIncompleteCubemap)
	assert.Equal(t, driver.Handle(0), gpu.BoundFramebuffer())

	require.NoError(t, fb.Begin())
	var sides []Side
	for {
		s, ok, err := fb.NextSide()
		require.NoError(t, err)
		if !ok {
			break
		}
		sides = append(sides, s)
	}
	assert.Equal(t, []Side{PositiveX, NegativeX, PositiveY, NegativeY, PositiveZ, NegativeZ}, sides)
	assert.Equal(t, "-Z", sides[5].String())
	assert.NoError(t, fb.EndViewport(0, 0, 640, 480))
	assert.Zero(t, gpu.Stats().Errors)

	fb.Dispose()
	assert.Equal(t, 0, gpu.Objects())

	var ce *glerr.ConfigurationError
	_, err = NewBuilder(32, 16).AddBasicColorTexture(texture.RGBA8888).BuildCubemap(ctx)
	assert.True(t, errors.As(err, &ce), "have %v", err)
	_, err = NewBuilder(32, 32).
		AddBasicColorTexture(texture.RGBA8888).
		AddDepthTexture(driver.DepthComponent16, driver.UnsignedShort).
		BuildCubemap(ctx)
	assert.True(t, errors.As(err, &ce), "have %v", err)
	_, err = NewBuilder(32, 32).AddDepthRenderbuffer(driver.DepthComponent16).BuildCubemap(ctx)
	assert.True(t, errors.As(err, &ce), "have %v", err)
	assert.Equal(t, 0, gpu.Objects())
}
