// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package buffer

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/gputypes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/driver/headless"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
)

func newContext(t *testing.T, tier string) (*headless.GPU, *resource.Registry, *resource.Context) {
	t.Helper()
	opts, err := headless.Tier(tier)
	require.NoError(t, err)
	gpu := headless.New(opts)
	reg := resource.NewRegistry()
	return gpu, reg, reg.NewContext(gpu, resource.Options{})
}

type locator map[string]int

func (l locator) AttributeLocation(name string) int {
	if loc, ok := l[name]; ok {
		return loc
	}
	return -1
}

var testLayout = MustLayout(PositionAttr(3), PackedColorAttr(), TexCoordsAttr(0))

func TestLayout(t *testing.T) {
	l := testLayout
	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 24, l.Stride())
	assert.Equal(t, 6, l.Floats())
	for i, off := range []int{0, 12, 16} {
		assert.Equal(t, off, l.At(i).Offset, "attribute %d", i)
	}
	a, ok := l.Find(TexCoords)
	require.True(t, ok)
	assert.Equal(t, "a_texCoord0", a.Alias)
	_, ok = l.Find(Normal)
	assert.False(t, ok)
	assert.Equal(t, uint64(1<<Position|1<<ColorPacked|1<<TexCoords), l.Mask())

	for _, attrs := range [][]Attribute{
		nil,
		{{Semantic: Position, Components: 5, Type: driver.Float, Alias: "a_position"}},
		{{Semantic: ColorPacked, Components: 3, Type: driver.UnsignedByte, Alias: "a_color"}},
		{{Semantic: Generic, Components: 2, Type: driver.Enum(0xdead), Alias: "a_x"}},
		{{Semantic: Generic, Components: 1, Type: driver.Float}},
		{{Semantic: Generic, Components: 2, Type: driver.UnsignedByte, Alias: "a_x"}},
	} {
		_, err := NewLayout(attrs...)
		var ce *glerr.ConfigurationError
		assert.True(t, errors.As(err, &ce), "NewLayout(%v): have %v", attrs, err)
	}
}

func TestWebGPU(t *testing.T) {
	wl, err := testLayout.WebGPU(PerInstance, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(24), wl.ArrayStride)
	assert.Equal(t, gputypes.VertexStepModeInstance, wl.StepMode)
	require.Len(t, wl.Attributes, 3)
	assert.Equal(t, gputypes.VertexFormatFloat32x3, wl.Attributes[0].Format)
	assert.Equal(t, gputypes.VertexFormatUnorm8x4, wl.Attributes[1].Format)
	assert.Equal(t, gputypes.VertexFormatFloat32x2, wl.Attributes[2].Format)
	assert.Equal(t, uint64(16), wl.Attributes[2].Offset)
	assert.Equal(t, uint32(4), wl.Attributes[2].ShaderLocation)

	l := MustLayout(Attribute{Semantic: Generic, Components: 2, Type: driver.Short, Alias: "a_s"})
	_, err = l.WebGPU(PerVertex, 0)
	var ne *glerr.NotSupportedError
	assert.True(t, errors.As(err, &ne))
}

func TestBindConsecutive(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles2")
	vb, err := NewVertexBuffer(ctx, Static, 4, testLayout)
	require.NoError(t, err)
	src := vertices(4, 1)
	require.NoError(t, vb.SetVertices(src, 0, len(src)))
	require.NoError(t, vb.Bind(nil, nil))
	for i := range testLayout.Len() {
		a := gpu.Attrib(i)
		assert.True(t, a.Enabled, "location %d", i)
		assert.Equal(t, testLayout.At(i).Offset, a.Attrib.Offset, "location %d", i)
	}
	assert.True(t, gpu.Attrib(1).Attrib.Normalized)
	vb.Unbind(nil, nil)
	assert.False(t, gpu.Attrib(0).Enabled)

	l := MustLayout(Attribute{Semantic: Generic, Components: 2, Type: driver.Short, Alias: "a_s"})
	sb, err := NewVertexBuffer(ctx, Static, 1, l)
	require.NoError(t, err)
	var ne *glerr.NotSupportedError
	assert.True(t, errors.As(sb.Bind(nil, nil), &ne))
	assert.False(t, gpu.Attrib(0).Enabled)
}

func vertices(n int, seed float32) []float32 {
	s := make([]float32, n*testLayout.Floats())
	for i := range s {
		s[i] = seed + float32(i)
	}
	return s
}

func TestCapacity(t *testing.T) {
	_, _, ctx := newContext(t, "gles2")
	vb, err := NewVertexBuffer(ctx, Static, 4, testLayout)
	require.NoError(t, err)
	ib, err := NewIndexBuffer(ctx, Static, 6)
	require.NoError(t, err)

	src := vertices(4, 1)
	require.NoError(t, vb.SetVertices(src, 0, len(src)))
	require.NoError(t, ib.SetIndices([]uint16{0, 1, 2, 2, 3, 0}, 0, 6))
	assert.Equal(t, 4, vb.NumVertices())

	var ce *glerr.ConfigurationError
	err = vb.SetVertices(vertices(5, 100), 0, 5*testLayout.Floats())
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, src, vb.Vertices(), "content changed by failed SetVertices")

	err = vb.UpdateVertices(18, vertices(2, 100), 0, 12)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, src, vb.Vertices(), "content changed by failed UpdateVertices")

	err = ib.SetIndices(make([]uint16, 7), 0, 7)
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, []uint16{0, 1, 2, 2, 3, 0}, ib.Indices())

	err = vb.SetVertices(src, 6, len(src))
	assert.True(t, errors.As(err, &ce), "source range not checked")
}

func TestZeroCapacity(t *testing.T) {
	_, _, ctx := newContext(t, "gles2")
	va := NewVertexArray(ctx, 0, testLayout)
	assert.Equal(t, 0, va.NumMaxVertices())
	assert.Len(t, va.data, testLayout.Floats())
	assert.NoError(t, va.SetVertices(nil, 0, 0))
	assert.Error(t, va.SetVertices(vertices(1, 0), 0, testLayout.Floats()))

	ia := NewIndexArray(0)
	assert.Equal(t, 0, ia.NumMaxIndices())
	assert.Len(t, ia.data, 1)
	assert.Error(t, ia.SetIndices([]uint16{1}, 0, 1))
}

func TestUploadOnce(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles2")
	vb, err := NewVertexBuffer(ctx, Dynamic, 8, testLayout)
	require.NoError(t, err)
	assert.False(t, vb.Dirty())

	src := vertices(3, 0)
	require.NoError(t, vb.SetVertices(src, 0, len(src)))
	assert.True(t, vb.Dirty())
	locs := []int{0, 1, 2}
	for range 3 {
		require.NoError(t, vb.Bind(nil, locs))
		assert.False(t, vb.Dirty())
	}
	assert.Equal(t, 1, gpu.Stats().BufferUploads)

	require.NoError(t, vb.UpdateVertices(6, []float32{-1, -2}, 0, 2))
	assert.True(t, vb.Dirty())
	require.NoError(t, vb.Bind(nil, locs))
	require.NoError(t, vb.Bind(nil, locs))
	assert.Equal(t, 2, gpu.Stats().BufferUploads)

	data, ok := gpu.BufferContents(vb.Handle())
	require.True(t, ok)
	assert.Equal(t, floatBytes(vb.Vertices()), data)
	assert.Equal(t, 3*24, len(data))

	a := gpu.Attrib(2)
	assert.True(t, a.Enabled)
	assert.Equal(t, vb.Handle(), a.Buffer)
	assert.Equal(t, driver.VertexAttrib{Size: 2, Type: driver.Float, Stride: 24, Offset: 16}, a.Attrib)
	vb.Unbind(nil, locs)
	assert.False(t, gpu.Attrib(2).Enabled)
	assert.Equal(t, driver.Handle(0), gpu.BoundBuffer(driver.ArrayBuffer))
}

func TestBindByAlias(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles2")
	va := NewVertexArray(ctx, 4, testLayout)
	require.NoError(t, va.SetVertices(vertices(4, 0), 0, 4*testLayout.Floats()))
	shader := locator{"a_position": 3, "a_texCoord0": 5}
	require.NoError(t, va.Bind(shader, nil))
	assert.False(t, va.Dirty())
	assert.True(t, gpu.Attrib(3).Client)
	assert.True(t, gpu.Attrib(5).Enabled)
	assert.False(t, gpu.Attrib(4).Enabled, "a_color is not in the shader")
	va.Unbind(shader, nil)
	assert.False(t, gpu.Attrib(3).Enabled)

	var ce *glerr.ConfigurationError
	assert.True(t, errors.As(va.Bind(nil, nil), &ce))
	assert.True(t, errors.As(va.Bind(nil, []int{0}), &ce))
}

func TestCachedVertexBuffer(t *testing.T) {
	_, _, ctx := newContext(t, "gles2")
	_, err := NewCachedVertexBuffer(ctx, Static, 4, testLayout)
	var ce *glerr.ConfigurationError
	require.True(t, errors.As(err, &ce))

	gpu, _, ctx := newContext(t, "gles3")
	vd, err := New(ctx, Static, 4, testLayout)
	require.NoError(t, err)
	cb, ok := vd.(*CachedVertexBuffer)
	require.True(t, ok, "New: have %T", vd)

	require.NoError(t, cb.SetVertices(vertices(2, 0), 0, 2*testLayout.Floats()))
	locs := []int{0, 1, 2}
	require.NoError(t, cb.Bind(nil, locs))
	assert.Equal(t, 3, gpu.Stats().AttribPointers)
	assert.Equal(t, cb.VertexArrayObject(), gpu.BoundVertexArray())

	// Same location set: only the vertex array is bound.
	cb.Unbind(nil, locs)
	require.NoError(t, cb.SetVertices(vertices(1, 9), 0, testLayout.Floats()))
	require.NoError(t, cb.Bind(nil, slices.Clone(locs)))
	assert.Equal(t, 3, gpu.Stats().AttribPointers)
	assert.Equal(t, 2, gpu.Stats().BufferUploads)

	require.NoError(t, cb.Bind(nil, []int{4, 1, 2}))
	assert.Equal(t, 6, gpu.Stats().AttribPointers)
	assert.False(t, gpu.Attrib(0).Enabled)
	assert.True(t, gpu.Attrib(4).Enabled)

	_, _, ctx2 := newContext(t, "gles2")
	vd, err = New(ctx2, Static, 4, testLayout)
	require.NoError(t, err)
	_, ok = vd.(*VertexBuffer)
	assert.True(t, ok, "New: have %T", vd)
}

func TestInstanceBuffer(t *testing.T) {
	_, _, ctx := newContext(t, "gles2")
	l := MustLayout(Attribute{Semantic: Generic, Components: 4, Type: driver.Float, Alias: "i_offset"})
	_, err := NewInstanceBuffer(ctx, Static, 16, l)
	var ce *glerr.ConfigurationError
	require.True(t, errors.As(err, &ce))

	gpu, _, ctx := newContext(t, "gles2-ext")
	ib, err := NewInstanceBuffer(ctx, Dynamic, 16, l)
	require.NoError(t, err)
	require.NoError(t, ib.SetVertices(make([]float32, 8), 0, 8))
	assert.Equal(t, 2, ib.NumInstances())
	require.NoError(t, ib.Bind(locator{"i_offset": 7}, nil))
	assert.Equal(t, 1, gpu.Attrib(7).Divisor)
	ib.Unbind(locator{"i_offset": 7}, nil)
	assert.Equal(t, 0, gpu.Attrib(7).Divisor)
	assert.False(t, gpu.Attrib(7).Enabled)
}

func TestDispose(t *testing.T) {
	gpu, _, ctx := newContext(t, "gles3")
	vb, err := NewCachedVertexBuffer(ctx, Static, 4, testLayout)
	require.NoError(t, err)
	ib, err := NewIndexBuffer(ctx, Static, 4)
	require.NoError(t, err)
	assert.Equal(t, 2, ctx.Count(resource.KindBuffer))
	h := vb.Handle()

	vb.Dispose()
	vb.Dispose()
	ib.Dispose()
	assert.Equal(t, 0, ctx.Count(resource.KindBuffer))
	_, ok := gpu.BufferContents(h)
	assert.False(t, ok)
	assert.ErrorIs(t, vb.Bind(nil, []int{0, 1, 2}), glerr.ErrDisposed)
	assert.ErrorIs(t, ib.Bind(), glerr.ErrDisposed)
	assert.Equal(t, 0, gpu.Objects())
}

// Every registered buffer must be dirty with a new handle
// after the context is restored.
func TestContextRestored(t *testing.T) {
	for _, tier := range []string{"gles2-ext", "gles3"} {
		gpu, reg, ctx := newContext(t, tier)
		vb, err := NewVertexBuffer(ctx, Static, 4, testLayout)
		require.NoError(t, err)
		cb, err := NewCachedVertexBuffer(ctx, Static, 4, testLayout)
		require.NoError(t, err)
		inst, err := NewInstanceBuffer(ctx, Static, 4, testLayout)
		require.NoError(t, err)
		ib, err := NewIndexBuffer(ctx, Static, 6)
		require.NoError(t, err)

		type buf interface {
			Bind(AttributeLocator, []int) error
			Handle() driver.Handle
			Dirty() bool
			Vertices() []float32
		}
		bufs := []buf{vb, cb, inst}
		locs := []int{0, 1, 2}
		old := make([]driver.Handle, len(bufs))
		for i, b := range bufs {
			src := vertices(4, float32(i))
			require.NoError(t, b.(VertexData).SetVertices(src, 0, len(src)))
			require.NoError(t, b.Bind(nil, locs))
			require.False(t, b.Dirty())
			old[i] = b.Handle()
		}
		require.NoError(t, ib.SetIndices([]uint16{0, 1, 2, 2, 3, 0}, 0, 6))
		require.NoError(t, ib.Bind())
		oldIndex := ib.Handle()

		gpu.LoseContext()
		require.NoError(t, reg.Handle(resource.Event{Kind: resource.Lost, Context: ctx}))
		gpu.Restore()
		require.NoError(t, reg.Handle(resource.Event{Kind: resource.Restored, Context: ctx}))

		for i, b := range bufs {
			assert.True(t, b.Dirty(), "%s: buffer %d not dirty", tier, i)
			require.NoError(t, b.Bind(nil, locs))
			assert.False(t, b.Dirty())
			assert.NotEqual(t, old[i], b.Handle(), "%s: buffer %d kept its handle", tier, i)
			data, ok := gpu.BufferContents(b.Handle())
			require.True(t, ok)
			assert.Equal(t, floatBytes(b.Vertices()), data)
		}
		assert.True(t, ib.Dirty())
		require.NoError(t, ib.Bind())
		assert.NotEqual(t, oldIndex, ib.Handle())
		assert.False(t, ib.Dirty())
	}
}
