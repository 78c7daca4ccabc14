// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package shader

import (
	"errors"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/linear"
)

var errComps = errors.New(prefix + "uniform values must have 1 to 4 components")

// location returns the location of the uniform name of
// the active program p.
// A location of -1 is not an error; setting it is a
// no-op, as in the GPU.
func (p *Program) location(name string) (int, error) {
	if !p.Active() {
		if p.disposed {
			return -1, glerr.ErrDisposed
		}
		return -1, glerr.ErrProgramNotActive
	}
	return p.FetchUniformLocation(name)
}

// SetUniformi sets an int, ivecN, bool or sampler
// uniform. v must have 1 to 4 elements.
func (p *Program) SetUniformi(name string, v ...int32) error {
	if len(v) < 1 || len(v) > 4 {
		return errComps
	}
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	p.gpu.Uniformi(loc, len(v), v)
	return nil
}

// SetUniformf sets a float or vecN uniform.
// v must have 1 to 4 elements.
func (p *Program) SetUniformf(name string, v ...float32) error {
	if len(v) < 1 || len(v) > 4 {
		return errComps
	}
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	p.gpu.Uniformf(loc, len(v), v)
	return nil
}

// SetUniformfv sets an array of float or vecN uniforms.
// comps is the number of components per element.
func (p *Program) SetUniformfv(name string, comps int, v []float32) error {
	if comps < 1 || comps > 4 {
		return errComps
	}
	if len(v)%comps != 0 {
		return glerr.Configf("shader.SetUniformfv", "%d values do not divide into %d-component elements", len(v), comps)
	}
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	p.gpu.Uniformf(loc, comps, v)
	return nil
}

// SetUniformV3 sets a vec3 uniform.
func (p *Program) SetUniformV3(name string, v linear.V3) error {
	return p.SetUniformf(name, v[:]...)
}

// SetUniformV4 sets a vec4 uniform.
func (p *Program) SetUniformV4(name string, v linear.V4) error {
	return p.SetUniformf(name, v[:]...)
}

// SetUniformMatrix3 sets a mat3 uniform.
func (p *Program) SetUniformMatrix3(name string, m *linear.M3) error {
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	f := m.Floats()
	p.gpu.UniformMatrix(loc, 3, false, f[:])
	return nil
}

// SetUniformMatrix4 sets a mat4 uniform.
func (p *Program) SetUniformMatrix4(name string, m *linear.M4) error {
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	f := m.Floats()
	p.gpu.UniformMatrix(loc, 4, false, f[:])
	return nil
}

// SetUniformMatrix4v sets an array of mat4 uniforms.
func (p *Program) SetUniformMatrix4v(name string, ms []linear.M4) error {
	loc, err := p.location(name)
	if err != nil {
		return err
	}
	f := make([]float32, 0, 16*len(ms))
	for i := range ms {
		m := ms[i].Floats()
		f = append(f, m[:]...)
	}
	p.gpu.UniformMatrix(loc, 4, false, f)
	return nil
}

// attribute returns the location of the attribute name
// of the active program p.
func (p *Program) attribute(name string) (int, error) {
	if !p.Active() {
		if p.disposed {
			return -1, glerr.ErrDisposed
		}
		return -1, glerr.ErrProgramNotActive
	}
	return p.FetchAttributeLocation(name)
}

// EnableAttribute enables the attribute array name.
// Inactive attributes are ignored.
func (p *Program) EnableAttribute(name string) error {
	loc, err := p.attribute(name)
	if err != nil || loc < 0 {
		return err
	}
	p.gpu.EnableVertexAttrib(loc)
	return nil
}

// DisableAttribute disables the attribute array name.
// Inactive attributes are ignored.
func (p *Program) DisableAttribute(name string) error {
	loc, err := p.attribute(name)
	if err != nil || loc < 0 {
		return err
	}
	p.gpu.DisableVertexAttrib(loc)
	return nil
}

// SetVertexAttribute sources the attribute name from the
// buffer bound to driver.ArrayBuffer.
// The attribute array must be enabled separately.
func (p *Program) SetVertexAttribute(name string, attr driver.VertexAttrib) error {
	loc, err := p.attribute(name)
	if err != nil || loc < 0 {
		return err
	}
	p.gpu.VertexAttribPointer(loc, attr)
	return nil
}
