// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package headless

import (
	"github.com/gviegas/glrt/driver"
)

type bufferObj struct {
	data  []byte
	usage driver.Enum
}

type attribState struct {
	enabled bool
	attr    driver.VertexAttrib
	buf     driver.Handle
	client  []byte
	divisor int
}

type vaoObj struct {
	attribs map[int]*attribState
	index   driver.Handle
}

func newVAO() *vaoObj { return &vaoObj{attribs: make(map[int]*attribState)} }

func (g *GPU) vao() *vaoObj {
	if g.curVAO == 0 {
		return g.defaultVAO
	}
	return g.vaos[g.curVAO]
}

func (v *vaoObj) attrib(loc int) *attribState {
	a, ok := v.attribs[loc]
	if !ok {
		a = &attribState{}
		v.attribs[loc] = a
	}
	return a
}

// NewBuffer implements driver.GPU.
func (g *GPU) NewBuffer() (driver.Handle, error) {
	h, err := g.newHandle()
	if err != nil {
		return 0, err
	}
	g.buffers[h] = &bufferObj{}
	return h, nil
}

// BindBuffer implements driver.GPU.
func (g *GPU) BindBuffer(target driver.Enum, h driver.Handle) {
	if target == driver.ElementArrayBuffer {
		if v := g.vao(); v != nil {
			v.index = h
		}
	}
	g.boundBuf[target] = h
}

// BufferData implements driver.GPU.
func (g *GPU) BufferData(target driver.Enum, data []byte, usage driver.Enum) {
	b := g.buffers[g.boundBuf[target]]
	if b == nil {
		return
	}
	b.data = append(b.data[:0], data...)
	b.usage = usage
	g.stats.BufferUploads++
	g.stats.BufferBytes += len(data)
}

// BufferSubData implements driver.GPU.
func (g *GPU) BufferSubData(target driver.Enum, off int, data []byte) {
	b := g.buffers[g.boundBuf[target]]
	if b == nil || off < 0 || off+len(data) > len(b.data) {
		return
	}
	copy(b.data[off:], data)
	g.stats.BufferSubUploads++
	g.stats.BufferBytes += len(data)
}

// DeleteBuffer implements driver.GPU.
func (g *GPU) DeleteBuffer(h driver.Handle) {
	delete(g.buffers, h)
	for t, x := range g.boundBuf {
		if x == h {
			g.boundBuf[t] = 0
		}
	}
}

// BufferContents returns a copy of the storage of the
// buffer h.
func (g *GPU) BufferContents(h driver.Handle) ([]byte, bool) {
	b, ok := g.buffers[h]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), b.data...), true
}

// BoundBuffer returns the buffer bound to target.
func (g *GPU) BoundBuffer(target driver.Enum) driver.Handle { return g.boundBuf[target] }

// NewVertexArray implements driver.GPU.
func (g *GPU) NewVertexArray() (driver.Handle, error) {
	if !g.caps.Has(driver.FeatureVertexArrays) {
		return 0, errNoFeature("vertex arrays")
	}
	h, err := g.newHandle()
	if err != nil {
		return 0, err
	}
	g.vaos[h] = newVAO()
	return h, nil
}

// BindVertexArray implements driver.GPU.
func (g *GPU) BindVertexArray(h driver.Handle) {
	if h != 0 && g.vaos[h] == nil {
		return
	}
	g.curVAO = h
}

// DeleteVertexArray implements driver.GPU.
func (g *GPU) DeleteVertexArray(h driver.Handle) {
	delete(g.vaos, h)
	if g.curVAO == h {
		g.curVAO = 0
	}
}

// EnableVertexAttrib implements driver.GPU.
func (g *GPU) EnableVertexAttrib(loc int) {
	if v := g.vao(); v != nil && loc >= 0 {
		v.attrib(loc).enabled = true
	}
}

// DisableVertexAttrib implements driver.GPU.
func (g *GPU) DisableVertexAttrib(loc int) {
	if v := g.vao(); v != nil && loc >= 0 {
		v.attrib(loc).enabled = false
	}
}

// VertexAttribPointer implements driver.GPU.
func (g *GPU) VertexAttribPointer(loc int, attr driver.VertexAttrib) {
	v := g.vao()
	if v == nil || loc < 0 {
		return
	}
	a := v.attrib(loc)
	a.attr = attr
	a.buf = g.boundBuf[driver.ArrayBuffer]
	a.client = nil
	g.stats.AttribPointers++
}

// VertexAttribClientPointer implements driver.GPU.
func (g *GPU) VertexAttribClientPointer(loc int, attr driver.VertexAttrib, data []byte) {
	v := g.vao()
	if v == nil || loc < 0 {
		return
	}
	a := v.attrib(loc)
	a.attr = attr
	a.buf = 0
	a.client = data
	g.stats.AttribPointers++
}

// VertexAttribDivisor implements driver.GPU.
func (g *GPU) VertexAttribDivisor(loc int, divisor int) {
	if !g.caps.Has(driver.FeatureInstancing) {
		return
	}
	if v := g.vao(); v != nil && loc >= 0 {
		v.attrib(loc).divisor = divisor
	}
}

// AttribState describes a vertex attribute as seen by the
// vertex array currently bound.
type AttribState struct {
	Enabled bool
	Attrib  driver.VertexAttrib
	Buffer  driver.Handle
	Client  bool
	Divisor int
}

// Attrib returns the state of the attribute at loc.
func (g *GPU) Attrib(loc int) AttribState {
	v := g.vao()
	if v == nil {
		return AttribState{}
	}
	a, ok := v.attribs[loc]
	if !ok {
		return AttribState{}
	}
	return AttribState{
		Enabled: a.enabled,
		Attrib:  a.attr,
		Buffer:  a.buf,
		Client:  a.client != nil,
		Divisor: a.divisor,
	}
}

// BoundVertexArray returns the vertex array currently
// bound.
func (g *GPU) BoundVertexArray() driver.Handle { return g.curVAO }
