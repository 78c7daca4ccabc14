// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package resource implements the registry of managed
// GPU resources.
// A managed resource retains enough CPU-side state to
// recreate its GPU objects after the graphics context
// is lost. The Registry tracks such resources per
// Context and rebuilds them when told that the context
// was restored.
package resource

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
)

// Resource is the interface that managed resources
// implement.
type Resource interface {
	// Name identifies the resource in diagnostics.
	Name() string

	// Invalidate recreates the resource's GPU objects.
	// It must assume that the handles it held are void.
	Invalidate() error
}

// Kind is the kind of a Resource.
// Kinds are rebuilt in ascending order.
type Kind int

// Resource kinds.
const (
	KindTexture Kind = iota
	KindBuffer
	KindShader
	KindFramebuffer
	numKinds
)

func (k Kind) String() string {
	switch k {
	case KindTexture:
		return "textures"
	case KindBuffer:
		return "buffers"
	case KindShader:
		return "shaders"
	case KindFramebuffer:
		return "framebuffers"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ID identifies a Resource within its Context.
type ID int

// String returns "#N".
func (id ID) String() string { return "#" + strconv.Itoa(int(id)) }

// Options configures a Context.
type Options struct {
	// StrictUniforms causes shader programs to fail
	// lookups of uniforms that are not active.
	StrictUniforms bool

	// KeepTextureData causes texture data to retain its
	// CPU-side copy after upload.
	KeepTextureData bool
}

type entry struct {
	id   ID
	kind Kind
	res  Resource
	seq  uint64
}

// Context is a graphics context as seen by managed
// resources.
// It must only be used from the goroutine that owns
// the underlying GPU.
type Context struct {
	reg     *Registry
	id      int
	gpu     driver.GPU
	opts    Options
	res     table
	seq     uint64
	lost    bool
	gen     int
	program driver.Handle

	// lastProgram is the program that was active when c
	// was lost. It is kept until the next rebuild ends.
	lastProgram driver.Handle
}

// GPU returns the GPU of c.
func (c *Context) GPU() driver.GPU { return c.gpu }

// Caps returns the capabilities of c's GPU.
func (c *Context) Caps() driver.Caps { return c.gpu.Caps() }

// Options returns the options c was created with.
func (c *Context) Options() Options { return c.opts }

// Lost returns whether c was lost and not yet restored.
func (c *Context) Lost() bool { return c.lost }

// Generation returns the number of times that c was lost.
func (c *Context) Generation() int { return c.gen }

// String returns "ctx#N".
func (c *Context) String() string { return fmt.Sprintf("ctx#%d", c.id) }

// ActiveProgram returns the shader program in use.
func (c *Context) ActiveProgram() driver.Handle { return c.program }

// SetActiveProgram records the shader program in use.
// It does not call the GPU.
func (c *Context) SetActiveProgram(h driver.Handle) { c.program = h }

// LastProgram returns the shader program that was active
// before the current rebuild started, or driver.None.
// Shader programs use it to become active again after
// they are rebuilt.
func (c *Context) LastProgram() driver.Handle { return c.lastProgram }

// lose marks c as lost, remembering the active program.
func (c *Context) lose() {
	if !c.lost {
		c.lastProgram = c.program
	}
	c.lost = true
	c.gen++
	c.program = 0
}

// Register adds r to c.
// Resource constructors call this method; the returned
// ID must be given to Unregister on disposal.
func (c *Context) Register(kind Kind, r Resource) ID {
	if kind < 0 || kind >= numKinds {
		panic("resource.Context.Register: invalid Kind")
	}
	c.seq++
	id := c.res.add(entry{kind: kind, res: r, seq: c.seq})
	glrt.Logger().Debug("resource registered", "ctx", c.String(), "kind", kind.String(), "id", id.String())
	return id
}

// Unregister removes the Resource identified by id.
// Unregistering an ID that is not in use has no effect.
func (c *Context) Unregister(id ID) {
	if e, ok := c.res.drop(id); ok {
		glrt.Logger().Debug("resource unregistered", "ctx", c.String(), "kind", e.kind.String(), "name", e.res.Name())
	}
}

// Count returns the number of registered resources of the
// given kind.
func (c *Context) Count(kind Kind) int {
	n := 0
	for _, e := range c.res.ents {
		if e.kind == kind {
			n++
		}
	}
	return n
}

// Resources returns the registered resources in rebuild
// order: by kind, then by order of registration.
func (c *Context) Resources() []Resource {
	ents := slices.Clone(c.res.ents)
	slices.SortFunc(ents, func(a, b entry) int {
		if a.kind != b.kind {
			return cmp.Compare(a.kind, b.kind)
		}
		return cmp.Compare(a.seq, b.seq)
	})
	rs := make([]Resource, len(ents))
	for i := range ents {
		rs[i] = ents[i].res
	}
	return rs
}

// Registry tracks the managed resources of every Context
// that it creates.
// It must only be used from the rendering goroutine.
type Registry struct {
	ctxs []*Context
	next int
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry { return &Registry{} }

// NewContext creates a Context for gpu and adds it to r.
func (r *Registry) NewContext(gpu driver.GPU, opts Options) *Context {
	r.next++
	c := &Context{
		reg:  r,
		id:   r.next,
		gpu:  gpu,
		opts: opts,
	}
	r.ctxs = append(r.ctxs, c)
	return c
}

// Contexts returns the contexts of r.
func (r *Registry) Contexts() []*Context { return slices.Clone(r.ctxs) }

func (r *Registry) check(c *Context) {
	if c.reg != r {
		panic("resource: Context belongs to a different Registry")
	}
}

// InvalidateAll rebuilds every resource of c.
// The GPU objects held by the resources are assumed to
// be void. Resources are rebuilt by kind (textures,
// buffers, shaders, framebuffers) and then by order of
// registration.
// A failed rebuild does not prevent the remaining ones.
// Failures are reported as *glerr.RebuildError values
// joined in the returned error.
func (r *Registry) InvalidateAll(c *Context) error {
	r.check(c)
	if !c.lost {
		c.lastProgram = c.program
	}
	c.lost = false
	c.program = 0
	defer func() { c.lastProgram = 0 }()
	var errs []error
	rs := c.Resources()
	for _, res := range rs {
		if err := res.Invalidate(); err != nil {
			err = &glerr.RebuildError{Name: res.Name(), Err: err}
			glrt.Logger().Warn("resource rebuild failed", "ctx", c.String(), "name", res.Name(), "err", err)
			errs = append(errs, err)
		}
	}
	glrt.Logger().Info("context resources rebuilt", "ctx", c.String(), "count", len(rs), "failed", len(errs))
	return errors.Join(errs...)
}

// ClearAll drops every resource of c and removes c from r.
// No GPU calls are made.
// It is meant for a context that was destroyed.
func (r *Registry) ClearAll(c *Context) {
	r.check(c)
	n := len(c.res.ents)
	c.res.clear()
	c.program, c.lastProgram = 0, 0
	if i := slices.Index(r.ctxs, c); i >= 0 {
		r.ctxs = slices.Delete(r.ctxs, i, i+1)
	}
	glrt.Logger().Debug("context resources cleared", "ctx", c.String(), "count", n)
}

// Status describes the managed resources of every
// context of r.
func (r *Registry) Status() string {
	var sb strings.Builder
	sb.WriteString("managed resources:")
	if len(r.ctxs) == 0 {
		sb.WriteString(" none")
	}
	for _, c := range r.ctxs {
		fmt.Fprintf(&sb, " %s {", c)
		for k := range numKinds {
			if k > 0 {
				sb.WriteByte(',')
			}
			fmt.Fprintf(&sb, " %s: %d", k, c.Count(k))
		}
		sb.WriteString(" }")
	}
	return sb.String()
}
