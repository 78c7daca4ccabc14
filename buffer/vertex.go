// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package buffer implements vertex, instance and index
// data.
// Data is staged in CPU memory and reaches the GPU in one
// of four ways: as a client array resubmitted on every
// bind (VertexArray), as a buffer object uploaded lazily
// (VertexBuffer), as a buffer object whose attribute
// specification is cached in a vertex array object
// (CachedVertexBuffer), or as a per-instance buffer
// object (InstanceBuffer).
package buffer

import (
	"unsafe"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
)

// Usage is a hint of how often buffer contents change.
type Usage int

// Usage hints.
const (
	Static Usage = iota
	Dynamic
	Stream
)

func (u Usage) enum() driver.Enum {
	switch u {
	case Dynamic:
		return driver.DynamicDraw
	case Stream:
		return driver.StreamDraw
	}
	return driver.StaticDraw
}

// AttributeLocator resolves shader attribute names to
// locations. A missing attribute has location -1.
// *shader.Program implements this interface.
type AttributeLocator interface {
	AttributeLocation(name string) int
}

// VertexData is the interface that the vertex data
// strategies implement.
// Offsets and counts are given in float32 values.
type VertexData interface {
	// Layout returns the vertex layout.
	Layout() *Layout

	// NumVertices returns the number of vertices in use.
	NumVertices() int

	// NumMaxVertices returns the capacity in vertices.
	NumMaxVertices() int

	// Vertices returns the staged values in use.
	// The slice must not be modified.
	Vertices() []float32

	// SetVertices replaces the contents with count
	// values of src starting at offset.
	SetVertices(src []float32, offset, count int) error

	// UpdateVertices copies count values of src starting
	// at sourceOffset to the staged data starting at
	// targetOffset.
	UpdateVertices(targetOffset int, src []float32, sourceOffset, count int) error

	// Bind makes the data the source of the attributes.
	// If locations is nil, locations are resolved by
	// alias through shader. If shader is nil too, the
	// attributes take the consecutive locations that a
	// WebGPU vertex buffer layout would assign, as WGSL
	// programs declare with @location.
	Bind(shader AttributeLocator, locations []int) error

	// Unbind disables the attributes enabled by Bind.
	Unbind(shader AttributeLocator, locations []int)

	// Dirty returns whether the staged data differs
	// from what the GPU last received.
	Dirty() bool

	// Invalidate recreates the GPU objects and marks
	// the data dirty.
	Invalidate() error

	// Dispose releases the GPU objects.
	Dispose()
}

// store is the CPU staging area shared by every vertex
// data strategy.
type store struct {
	layout *Layout
	data   []float32
	limit  int
	max    int
	dirty  bool
}

func newStore(layout *Layout, maxVertices int) store {
	n := max(maxVertices, 1) * layout.Floats()
	return store{
		layout: layout,
		data:   make([]float32, n),
		max:    max(maxVertices, 0),
	}
}

func (s *store) capacity() int { return s.max * s.layout.Floats() }

func (s *store) Layout() *Layout     { return s.layout }
func (s *store) NumMaxVertices() int { return s.max }
func (s *store) NumVertices() int    { return s.limit / s.layout.Floats() }
func (s *store) Vertices() []float32 { return s.data[:s.limit] }
func (s *store) Dirty() bool         { return s.dirty }
func (s *store) bytes() []byte       { return floatBytes(s.data[:s.limit]) }

func (s *store) SetVertices(src []float32, offset, count int) error {
	const op = "buffer.SetVertices"
	switch {
	case offset < 0 || count < 0 || offset+count > len(src):
		return glerr.Configf(op, "range [%d, %d) out of bounds of source (%d)", offset, offset+count, len(src))
	case count > s.capacity():
		return glerr.Configf(op, "%d values exceed the capacity of %d vertices (%d values)", count, s.max, s.capacity())
	}
	copy(s.data, src[offset:offset+count])
	s.limit = count
	s.dirty = true
	return nil
}

func (s *store) UpdateVertices(targetOffset int, src []float32, sourceOffset, count int) error {
	const op = "buffer.UpdateVertices"
	switch {
	case sourceOffset < 0 || count < 0 || sourceOffset+count > len(src):
		return glerr.Configf(op, "range [%d, %d) out of bounds of source (%d)", sourceOffset, sourceOffset+count, len(src))
	case targetOffset < 0 || targetOffset+count > s.capacity():
		return glerr.Configf(op, "range [%d, %d) exceeds the capacity of %d values", targetOffset, targetOffset+count, s.capacity())
	}
	copy(s.data[targetOffset:], src[sourceOffset:sourceOffset+count])
	s.limit = max(s.limit, targetOffset+count)
	s.dirty = true
	return nil
}

// locations resolves the attribute locations for a bind.
func (s *store) locations(shader AttributeLocator, locations []int) ([]int, error) {
	n := s.layout.Len()
	if locations != nil {
		if len(locations) < n {
			return nil, glerr.Configf("buffer.Bind", "%d locations given for %d attributes", len(locations), n)
		}
		return locations[:n], nil
	}
	if shader == nil {
		wl, err := s.layout.WebGPU(PerVertex, 0)
		if err != nil {
			return nil, err
		}
		locs := make([]int, n)
		for i, a := range wl.Attributes {
			locs[i] = int(a.ShaderLocation)
		}
		return locs, nil
	}
	locs := make([]int, n)
	for i := range locs {
		locs[i] = shader.AttributeLocation(s.layout.At(i).Alias)
	}
	return locs, nil
}

// floatBytes reinterprets s as a byte slice.
func floatBytes(s []float32) []byte {
	if len(s) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s[0])), len(s)*4)
}

// VertexArray is vertex data kept in client memory.
// It is resubmitted on every bind and has no GPU object,
// so it is not registered for rebuild.
type VertexArray struct {
	store
	gpu driver.GPU
}

// NewVertexArray creates a VertexArray.
func NewVertexArray(ctx *resource.Context, maxVertices int, layout *Layout) *VertexArray {
	return &VertexArray{store: newStore(layout, maxVertices), gpu: ctx.GPU()}
}

// Bind implements VertexData.
func (v *VertexArray) Bind(shader AttributeLocator, locations []int) error {
	locs, err := v.locations(shader, locations)
	if err != nil {
		return err
	}
	v.gpu.BindBuffer(driver.ArrayBuffer, 0)
	data := v.bytes()
	stride := v.layout.Stride()
	for i, loc := range locs {
		if loc < 0 {
			continue
		}
		a := v.layout.At(i)
		v.gpu.EnableVertexAttrib(loc)
		var p []byte
		if a.Offset < len(data) {
			p = data[a.Offset:]
		}
		v.gpu.VertexAttribClientPointer(loc, a.vertexAttrib(stride), p)
	}
	v.dirty = false
	return nil
}

// Unbind implements VertexData.
func (v *VertexArray) Unbind(shader AttributeLocator, locations []int) {
	locs, err := v.locations(shader, locations)
	if err != nil {
		return
	}
	for _, loc := range locs {
		if loc >= 0 {
			v.gpu.DisableVertexAttrib(loc)
		}
	}
}

// Invalidate implements VertexData.
func (v *VertexArray) Invalidate() error {
	v.dirty = true
	return nil
}

// Dispose implements VertexData.
func (v *VertexArray) Dispose() {}

// New creates vertex data using the best strategy that
// ctx supports: a cached vertex buffer when vertex array
// objects are available and a plain vertex buffer
// otherwise.
func New(ctx *resource.Context, usage Usage, maxVertices int, layout *Layout) (VertexData, error) {
	caps := ctx.Caps()
	if caps.Has(driver.FeatureVertexArrays) {
		return NewCachedVertexBuffer(ctx, usage, maxVertices, layout)
	}
	glrt.Logger().Debug("vertex array objects not available", "version", caps.Version.String())
	return NewVertexBuffer(ctx, usage, maxVertices, layout)
}
