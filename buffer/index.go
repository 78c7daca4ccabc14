// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package buffer

import (
	"unsafe"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
)

// IndexData is the interface that the index data
// strategies implement.
// Indices are unsigned 16-bit values.
type IndexData interface {
	NumIndices() int
	NumMaxIndices() int

	// Indices returns the staged indices in use.
	// The slice must not be modified.
	Indices() []uint16

	SetIndices(src []uint16, offset, count int) error
	UpdateIndices(targetOffset int, src []uint16, sourceOffset, count int) error

	Bind() error
	Unbind()
	Dirty() bool
	Invalidate() error
	Dispose()
}

type indexStore struct {
	data  []uint16
	limit int
	max   int
	dirty bool
}

func newIndexStore(maxIndices int) indexStore {
	return indexStore{
		data: make([]uint16, max(maxIndices, 1)),
		max:  max(maxIndices, 0),
	}
}

func (s *indexStore) NumIndices() int    { return s.limit }
func (s *indexStore) NumMaxIndices() int { return s.max }
func (s *indexStore) Indices() []uint16  { return s.data[:s.limit] }
func (s *indexStore) Dirty() bool        { return s.dirty }

func (s *indexStore) SetIndices(src []uint16, offset, count int) error {
	const op = "buffer.SetIndices"
	switch {
	case offset < 0 || count < 0 || offset+count > len(src):
		return glerr.Configf(op, "range [%d, %d) out of bounds of source (%d)", offset, offset+count, len(src))
	case count > s.max:
		return glerr.Configf(op, "%d indices exceed the capacity of %d", count, s.max)
	}
	copy(s.data, src[offset:offset+count])
	s.limit = count
	s.dirty = true
	return nil
}

func (s *indexStore) UpdateIndices(targetOffset int, src []uint16, sourceOffset, count int) error {
	const op = "buffer.UpdateIndices"
	switch {
	case sourceOffset < 0 || count < 0 || sourceOffset+count > len(src):
		return glerr.Configf(op, "range [%d, %d) out of bounds of source (%d)", sourceOffset, sourceOffset+count, len(src))
	case targetOffset < 0 || targetOffset+count > s.max:
		return glerr.Configf(op, "range [%d, %d) exceeds the capacity of %d", targetOffset, targetOffset+count, s.max)
	}
	copy(s.data[targetOffset:], src[sourceOffset:sourceOffset+count])
	s.limit = max(s.limit, targetOffset+count)
	s.dirty = true
	return nil
}

func (s *indexStore) bytes() []byte {
	if s.limit == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&s.data[0])), s.limit*2)
}

// IndexArray is index data kept in client memory.
// Draw calls read Indices directly.
type IndexArray struct {
	indexStore
}

// NewIndexArray creates an IndexArray.
func NewIndexArray(maxIndices int) *IndexArray {
	return &IndexArray{newIndexStore(maxIndices)}
}

// Bind implements IndexData.
func (a *IndexArray) Bind() error {
	a.dirty = false
	return nil
}

// Unbind implements IndexData.
func (a *IndexArray) Unbind() {}

// Invalidate implements IndexData.
func (a *IndexArray) Invalidate() error {
	a.dirty = true
	return nil
}

// Dispose implements IndexData.
func (a *IndexArray) Dispose() {}

// IndexBuffer is index data kept in a buffer object.
type IndexBuffer struct {
	indexStore
	ctx      *resource.Context
	gpu      driver.GPU
	id       resource.ID
	usage    Usage
	handle   driver.Handle
	disposed bool
}

// NewIndexBuffer creates an IndexBuffer.
func NewIndexBuffer(ctx *resource.Context, usage Usage, maxIndices int) (*IndexBuffer, error) {
	b := &IndexBuffer{
		indexStore: newIndexStore(maxIndices),
		ctx:        ctx,
		gpu:        ctx.GPU(),
		usage:      usage,
	}
	var err error
	if b.handle, err = b.gpu.NewBuffer(); err != nil {
		return nil, err
	}
	b.id = ctx.Register(resource.KindBuffer, b)
	return b, nil
}

// Name implements resource.Resource.
func (b *IndexBuffer) Name() string { return "index buffer " + b.id.String() }

// Handle returns the buffer object.
func (b *IndexBuffer) Handle() driver.Handle { return b.handle }

// Bind implements IndexData.
func (b *IndexBuffer) Bind() error {
	if b.disposed {
		return glerr.ErrDisposed
	}
	if b.handle == 0 {
		h, err := b.gpu.NewBuffer()
		if err != nil {
			return err
		}
		b.handle = h
	}
	b.gpu.BindBuffer(driver.ElementArrayBuffer, b.handle)
	if b.dirty {
		data := b.bytes()
		b.gpu.BufferData(driver.ElementArrayBuffer, data, b.usage.enum())
		b.dirty = false
		glrt.Logger().Debug("index data uploaded", "buffer", b.handle, "bytes", len(data))
	}
	return nil
}

// Unbind implements IndexData.
func (b *IndexBuffer) Unbind() { b.gpu.BindBuffer(driver.ElementArrayBuffer, 0) }

// Invalidate implements IndexData.
func (b *IndexBuffer) Invalidate() error {
	b.dirty = true
	if b.disposed {
		return nil
	}
	h, err := b.gpu.NewBuffer()
	b.handle = h
	return err
}

// Dispose implements IndexData.
func (b *IndexBuffer) Dispose() {
	if b.disposed {
		return
	}
	b.ctx.Unregister(b.id)
	if b.handle != 0 {
		b.gpu.DeleteBuffer(b.handle)
		b.handle = 0
	}
	b.disposed = true
}
