// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package shader implements linked shader programs.
// A Program reflects its active attributes and uniforms
// once per link, so lookups by name never query the GPU.
package shader

import (
	"cmp"
	"slices"
	"strings"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
	"github.com/gviegas/glrt/resource"
)

const prefix = "shader: "

// Program is a linked shader program.
// It retains its sources so it can be rebuilt when the
// context is restored; locations may change across
// rebuilds, but lookups by name remain valid.
type Program struct {
	ctx      *resource.Context
	gpu      driver.GPU
	id       resource.ID
	vsrc     string
	fsrc     string
	vs       driver.Handle
	fs       driver.Handle
	handle   driver.Handle
	log      string
	attribs  map[string]driver.Active
	uniforms map[string]driver.Active
	disposed bool
}

// New compiles vertexSrc and fragmentSrc and links them
// into a Program.
// If a stage fails to compile or the program fails to
// link, it returns a *glerr.CompileError and no GPU
// object is retained.
func New(ctx *resource.Context, vertexSrc, fragmentSrc string) (*Program, error) {
	p := &Program{
		ctx:  ctx,
		gpu:  ctx.GPU(),
		vsrc: vertexSrc,
		fsrc: fragmentSrc,
	}
	if err := p.build(); err != nil {
		return nil, err
	}
	p.id = ctx.Register(resource.KindShader, p)
	return p, nil
}

// compile compiles one stage.
func (p *Program) compile(stage driver.Enum, src string) (driver.Handle, error) {
	h, err := p.gpu.NewShader(stage)
	if err != nil {
		return 0, err
	}
	p.gpu.ShaderSource(h, src)
	p.gpu.CompileShader(h)
	if !p.gpu.ShaderCompiled(h) {
		p.log = p.gpu.ShaderInfoLog(h)
		p.gpu.DeleteShader(h)
		return 0, &glerr.CompileError{Stage: stage, Log: p.log}
	}
	return h, nil
}

// build compiles, links and reflects p.
func (p *Program) build() error {
	vs, err := p.compile(driver.VertexShader, p.vsrc)
	if err != nil {
		return err
	}
	fs, err := p.compile(driver.FragmentShader, p.fsrc)
	if err != nil {
		p.gpu.DeleteShader(vs)
		return err
	}
	free := func() {
		p.gpu.DeleteShader(vs)
		p.gpu.DeleteShader(fs)
	}
	h, err := p.gpu.NewProgram()
	if err != nil {
		free()
		return err
	}
	p.gpu.AttachShader(h, vs)
	p.gpu.AttachShader(h, fs)
	p.gpu.LinkProgram(h)
	if !p.gpu.ProgramLinked(h) {
		p.log = p.gpu.ProgramInfoLog(h)
		p.gpu.DeleteProgram(h)
		free()
		return &glerr.CompileError{Stage: driver.None, Log: p.log}
	}
	p.vs, p.fs, p.handle = vs, fs, h
	p.log = p.gpu.ProgramInfoLog(h)
	p.reflect()
	glrt.Logger().Debug("shader program linked", "handle", h,
		"attributes", len(p.attribs), "uniforms", len(p.uniforms))
	return nil
}

// reflect fills the attribute and uniform caches.
// Array uniforms are reachable both with and without the
// "[0]" suffix.
func (p *Program) reflect() {
	as := p.gpu.ActiveAttribs(p.handle)
	p.attribs = make(map[string]driver.Active, len(as))
	for _, a := range as {
		p.attribs[a.Name] = a
	}
	us := p.gpu.ActiveUniforms(p.handle)
	p.uniforms = make(map[string]driver.Active, len(us))
	for _, u := range us {
		p.uniforms[u.Name] = u
		if base, ok := strings.CutSuffix(u.Name, "[0]"); ok {
			p.uniforms[base] = u
		}
	}
}

// Name implements resource.Resource.
func (p *Program) Name() string { return "shader program " + p.id.String() }

// Invalidate implements resource.Resource.
// It compiles and links the retained sources again.
func (p *Program) Invalidate() error {
	if p.disposed {
		return nil
	}
	active := p.handle != 0 &&
		(p.ctx.ActiveProgram() == p.handle || p.ctx.LastProgram() == p.handle)
	p.vs, p.fs, p.handle = 0, 0, 0
	p.attribs, p.uniforms = nil, nil
	if err := p.build(); err != nil {
		return err
	}
	if active {
		p.gpu.UseProgram(p.handle)
		p.ctx.SetActiveProgram(p.handle)
	}
	return nil
}

// Handle returns the program object.
func (p *Program) Handle() driver.Handle { return p.handle }

// Log returns the info log of the last compilation or
// link.
func (p *Program) Log() string { return p.log }

// VertexSource returns the vertex shader source.
func (p *Program) VertexSource() string { return p.vsrc }

// FragmentSource returns the fragment shader source.
func (p *Program) FragmentSource() string { return p.fsrc }

// Begin makes p the active program of its context.
func (p *Program) Begin() error {
	if p.disposed {
		return glerr.ErrDisposed
	}
	p.gpu.UseProgram(p.handle)
	p.ctx.SetActiveProgram(p.handle)
	return nil
}

// End makes no program active.
func (p *Program) End() {
	if p.Active() {
		p.gpu.UseProgram(0)
		p.ctx.SetActiveProgram(0)
	}
}

// Active returns whether p is the active program.
func (p *Program) Active() bool {
	return !p.disposed && p.handle != 0 && p.ctx.ActiveProgram() == p.handle
}

// AttributeLocation returns the location of the active
// attribute name, or -1 if there is none.
func (p *Program) AttributeLocation(name string) int {
	if a, ok := p.attribs[name]; ok {
		return a.Location
	}
	return -1
}

// UniformLocation returns the location of the active
// uniform name, or -1 if there is none.
func (p *Program) UniformLocation(name string) int {
	if u, ok := p.uniforms[name]; ok {
		return u.Location
	}
	return -1
}

// HasAttribute returns whether name is an active
// attribute.
func (p *Program) HasAttribute(name string) bool {
	_, ok := p.attribs[name]
	return ok
}

// HasUniform returns whether name is an active uniform.
func (p *Program) HasUniform(name string) bool {
	_, ok := p.uniforms[name]
	return ok
}

// FetchAttributeLocation is like AttributeLocation, but
// it fails if the context has strict uniforms and name
// is not an active attribute.
func (p *Program) FetchAttributeLocation(name string) (int, error) {
	loc := p.AttributeLocation(name)
	if loc < 0 && p.ctx.Options().StrictUniforms {
		return -1, glerr.Configf("shader.FetchAttributeLocation", "no attribute with name '%s' in shader", name)
	}
	return loc, nil
}

// FetchUniformLocation is like UniformLocation, but it
// fails if the context has strict uniforms and name is
// not an active uniform.
func (p *Program) FetchUniformLocation(name string) (int, error) {
	loc := p.UniformLocation(name)
	if loc < 0 && p.ctx.Options().StrictUniforms {
		return -1, glerr.Configf("shader.FetchUniformLocation", "no uniform with name '%s' in shader", name)
	}
	return loc, nil
}

// Attribute returns the description of the active
// attribute name.
func (p *Program) Attribute(name string) (driver.Active, bool) {
	a, ok := p.attribs[name]
	return a, ok
}

// Uniform returns the description of the active uniform
// name.
func (p *Program) Uniform(name string) (driver.Active, bool) {
	u, ok := p.uniforms[name]
	return u, ok
}

func snapshot(m map[string]driver.Active, skipAlias bool) []driver.Active {
	s := make([]driver.Active, 0, len(m))
	for k, v := range m {
		if skipAlias && k != v.Name {
			continue
		}
		s = append(s, v)
	}
	slices.SortFunc(s, func(a, b driver.Active) int { return cmp.Compare(a.Name, b.Name) })
	return s
}

// Attributes returns the active attributes sorted by name.
func (p *Program) Attributes() []driver.Active { return snapshot(p.attribs, false) }

// Uniforms returns the active uniforms sorted by name.
// Arrays are listed once, with the "[0]" suffix.
func (p *Program) Uniforms() []driver.Active { return snapshot(p.uniforms, true) }

// Dispose deletes the program and its shaders.
func (p *Program) Dispose() {
	if p.disposed {
		return
	}
	p.End()
	p.ctx.Unregister(p.id)
	if p.handle != 0 {
		p.gpu.DeleteProgram(p.handle)
		p.gpu.DeleteShader(p.vs)
		p.gpu.DeleteShader(p.fs)
		p.vs, p.fs, p.handle = 0, 0, 0
	}
	p.disposed = true
}
