// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package buffer

import (
	"slices"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
)

// gpuVertex is the state shared by the buffer object
// strategies.
type gpuVertex struct {
	store
	ctx      *resource.Context
	gpu      driver.GPU
	id       resource.ID
	usage    Usage
	handle   driver.Handle
	disposed bool
}

func newGPUVertex(ctx *resource.Context, usage Usage, maxVertices int, layout *Layout) (gpuVertex, error) {
	b := gpuVertex{
		store: newStore(layout, maxVertices),
		ctx:   ctx,
		gpu:   ctx.GPU(),
		usage: usage,
	}
	if err := b.create(); err != nil {
		return gpuVertex{}, err
	}
	return b, nil
}

func (b *gpuVertex) create() error {
	h, err := b.gpu.NewBuffer()
	if err != nil {
		b.handle = 0
		return err
	}
	b.handle = h
	return nil
}

// Handle returns the buffer object.
func (b *gpuVertex) Handle() driver.Handle { return b.handle }

// upload binds the buffer object and uploads the staged
// data if it is dirty.
func (b *gpuVertex) upload() error {
	if b.disposed {
		return glerr.ErrDisposed
	}
	if b.handle == 0 {
		if err := b.create(); err != nil {
			return err
		}
	}
	b.gpu.BindBuffer(driver.ArrayBuffer, b.handle)
	if b.dirty {
		data := b.bytes()
		b.gpu.BufferData(driver.ArrayBuffer, data, b.usage.enum())
		b.dirty = false
		glrt.Logger().Debug("vertex data uploaded", "buffer", b.handle, "bytes", len(data))
	}
	return nil
}

func (b *gpuVertex) pointers(locs []int) {
	stride := b.layout.Stride()
	for i, loc := range locs {
		if loc < 0 {
			continue
		}
		b.gpu.EnableVertexAttrib(loc)
		b.gpu.VertexAttribPointer(loc, b.layout.At(i).vertexAttrib(stride))
	}
}

func (b *gpuVertex) disable(locs []int) {
	for _, loc := range locs {
		if loc >= 0 {
			b.gpu.DisableVertexAttrib(loc)
		}
	}
}

// renew replaces the buffer object and marks the data
// dirty. The previous handle is assumed to be void.
func (b *gpuVertex) renew() error {
	b.dirty = true
	if b.disposed {
		return nil
	}
	return b.create()
}

func (b *gpuVertex) release() bool {
	if b.disposed {
		return false
	}
	b.ctx.Unregister(b.id)
	if b.handle != 0 {
		b.gpu.DeleteBuffer(b.handle)
		b.handle = 0
	}
	b.disposed = true
	return true
}

// VertexBuffer is vertex data kept in a buffer object.
// The staged data is uploaded on bind, if dirty.
type VertexBuffer struct {
	gpuVertex
}

// NewVertexBuffer creates a VertexBuffer.
func NewVertexBuffer(ctx *resource.Context, usage Usage, maxVertices int, layout *Layout) (*VertexBuffer, error) {
	gv, err := newGPUVertex(ctx, usage, maxVertices, layout)
	if err != nil {
		return nil, err
	}
	b := &VertexBuffer{gv}
	b.id = ctx.Register(resource.KindBuffer, b)
	return b, nil
}

// Name implements resource.Resource.
func (b *VertexBuffer) Name() string {
	return "vertex buffer " + b.id.String() + " " + b.layout.String()
}

// Bind implements VertexData.
func (b *VertexBuffer) Bind(shader AttributeLocator, locations []int) error {
	locs, err := b.locations(shader, locations)
	if err != nil {
		return err
	}
	if err := b.upload(); err != nil {
		return err
	}
	b.pointers(locs)
	return nil
}

// Unbind implements VertexData.
func (b *VertexBuffer) Unbind(shader AttributeLocator, locations []int) {
	if locs, err := b.locations(shader, locations); err == nil {
		b.disable(locs)
	}
	b.gpu.BindBuffer(driver.ArrayBuffer, 0)
}

// Invalidate implements VertexData.
func (b *VertexBuffer) Invalidate() error { return b.renew() }

// Dispose implements VertexData.
func (b *VertexBuffer) Dispose() { b.release() }

// CachedVertexBuffer is vertex data kept in a buffer
// object whose attribute specification is recorded in a
// vertex array object.
// Binding with the same locations as the previous bind
// only binds the vertex array object.
type CachedVertexBuffer struct {
	gpuVertex
	vao    driver.Handle
	cached []int
}

// NewCachedVertexBuffer creates a CachedVertexBuffer.
// It requires driver.FeatureVertexArrays.
func NewCachedVertexBuffer(ctx *resource.Context, usage Usage, maxVertices int, layout *Layout) (*CachedVertexBuffer, error) {
	if !ctx.Caps().Has(driver.FeatureVertexArrays) {
		return nil, glerr.Configf("buffer.NewCachedVertexBuffer", "vertex array objects not supported")
	}
	gv, err := newGPUVertex(ctx, usage, maxVertices, layout)
	if err != nil {
		return nil, err
	}
	b := &CachedVertexBuffer{gpuVertex: gv}
	if b.vao, err = b.gpu.NewVertexArray(); err != nil {
		b.gpu.DeleteBuffer(b.handle)
		return nil, err
	}
	b.id = ctx.Register(resource.KindBuffer, b)
	return b, nil
}

// Name implements resource.Resource.
func (b *CachedVertexBuffer) Name() string {
	return "cached vertex buffer " + b.id.String() + " " + b.layout.String()
}

// VertexArrayObject returns the vertex array object.
func (b *CachedVertexBuffer) VertexArrayObject() driver.Handle { return b.vao }

// Bind implements VertexData.
func (b *CachedVertexBuffer) Bind(shader AttributeLocator, locations []int) error {
	locs, err := b.locations(shader, locations)
	if err != nil {
		return err
	}
	if b.disposed {
		return glerr.ErrDisposed
	}
	if b.vao == 0 {
		if b.vao, err = b.gpu.NewVertexArray(); err != nil {
			return err
		}
		b.cached = nil
	}
	b.gpu.BindVertexArray(b.vao)
	if b.handle == 0 {
		b.cached = nil
	}
	if err := b.upload(); err != nil {
		return err
	}
	if b.cached != nil && slices.Equal(b.cached, locs) {
		return nil
	}
	if b.cached != nil {
		b.disable(b.cached)
	}
	b.pointers(locs)
	b.cached = slices.Clone(locs)
	return nil
}

// Unbind implements VertexData.
// The attribute specification is kept in the vertex
// array object, so only the binding is undone.
func (b *CachedVertexBuffer) Unbind(AttributeLocator, []int) {
	b.gpu.BindVertexArray(0)
}

// Invalidate implements VertexData.
func (b *CachedVertexBuffer) Invalidate() error {
	b.cached = nil
	b.vao = 0
	if err := b.renew(); err != nil {
		return err
	}
	if b.disposed {
		return nil
	}
	var err error
	b.vao, err = b.gpu.NewVertexArray()
	return err
}

// Dispose implements VertexData.
func (b *CachedVertexBuffer) Dispose() {
	if b.release() && b.vao != 0 {
		b.gpu.DeleteVertexArray(b.vao)
		b.vao = 0
	}
}

// InstanceBuffer is per-instance data kept in a buffer
// object. Every attribute advances once per instance.
type InstanceBuffer struct {
	gpuVertex
}

// NewInstanceBuffer creates an InstanceBuffer.
// It requires driver.FeatureInstancing.
func NewInstanceBuffer(ctx *resource.Context, usage Usage, maxInstances int, layout *Layout) (*InstanceBuffer, error) {
	if !ctx.Caps().Has(driver.FeatureInstancing) {
		return nil, glerr.Configf("buffer.NewInstanceBuffer", "instanced arrays not supported")
	}
	gv, err := newGPUVertex(ctx, usage, maxInstances, layout)
	if err != nil {
		return nil, err
	}
	b := &InstanceBuffer{gv}
	b.id = ctx.Register(resource.KindBuffer, b)
	return b, nil
}

// Name implements resource.Resource.
func (b *InstanceBuffer) Name() string {
	return "instance buffer " + b.id.String() + " " + b.layout.String()
}

// NumInstances is the same as NumVertices.
func (b *InstanceBuffer) NumInstances() int { return b.NumVertices() }

// Bind implements VertexData.
func (b *InstanceBuffer) Bind(shader AttributeLocator, locations []int) error {
	locs, err := b.locations(shader, locations)
	if err != nil {
		return err
	}
	if err := b.upload(); err != nil {
		return err
	}
	b.pointers(locs)
	for _, loc := range locs {
		if loc >= 0 {
			b.gpu.VertexAttribDivisor(loc, 1)
		}
	}
	return nil
}

// Unbind implements VertexData.
// Divisors are reset so that the locations can be reused
// by per-vertex data.
func (b *InstanceBuffer) Unbind(shader AttributeLocator, locations []int) {
	if locs, err := b.locations(shader, locations); err == nil {
		for _, loc := range locs {
			if loc >= 0 {
				b.gpu.VertexAttribDivisor(loc, 0)
			}
		}
		b.disable(locs)
	}
	b.gpu.BindBuffer(driver.ArrayBuffer, 0)
}

// Invalidate implements VertexData.
func (b *InstanceBuffer) Invalidate() error { return b.renew() }

// Dispose implements VertexData.
func (b *InstanceBuffer) Dispose() { b.release() }
