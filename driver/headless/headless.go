// Copyright 2024 Gustavo C. Viegas. All rights reserved.

// Package headless implements driver.GPU in memory.
// It keeps every object that a GL context would keep,
// validates framebuffer completeness and program linkage,
// and can simulate the loss of the context.
// It registers itself as "headless" on init.
package headless

import (
	"fmt"
	"strings"

	"github.com/gviegas/glrt"
	"github.com/gviegas/glrt/driver"
)

const driverName = "headless"

func init() {
	driver.Register(&Driver{opts: Tiers["gles3"]})
}

// Options configures the capability tier of a GPU.
type Options struct {
	Version    driver.Version
	Extensions []string
	Limits     driver.Limits

	// RejectSeparateDepthStencil causes framebuffers with
	// distinct depth and stencil renderbuffers to report
	// driver.FramebufferUnsupported, as many GLES2
	// implementations do.
	RejectSeparateDepthStencil bool

	// MaxObjects, if positive, limits the number of live
	// objects. Creating more fails with
	// driver.ErrNoDeviceMemory.
	MaxObjects int
}

var defaultLimits = driver.Limits{
	MaxTextureSize:      4096,
	MaxRenderbufferSize: 4096,
	MaxColorAttachments: 4,
	MaxVertexAttribs:    16,
	MaxTextureUnits:     16,
}

// Tiers contains preset Options indexed by name.
var Tiers = map[string]Options{
	// Bare GLES2: client arrays only, no packed
	// depth/stencil, no MRT.
	"gles2": {
		Version: driver.GLES2,
		Limits:  defaultLimits,
	},
	// GLES2 with the usual mobile extensions.
	"gles2-ext": {
		Version: driver.GLES2,
		Extensions: []string{
			driver.ExtVertexArrayObject,
			driver.ExtInstancedArrays,
			driver.ExtOESPackedDepth,
			driver.ExtDepthTexture,
			driver.ExtTextureFloat,
			driver.ExtETC1,
		},
		Limits:                     defaultLimits,
		RejectSeparateDepthStencil: true,
	},
	"gles3": {
		Version:    driver.GLES3,
		Extensions: []string{driver.ExtColorBufferFloat, driver.ExtETC1},
		Limits:     defaultLimits,
	},
	"gl3": {
		Version: driver.GL3,
		Limits:  defaultLimits,
	},
}

// Tier returns the preset Options named name.
func Tier(name string) (Options, error) {
	opts, ok := Tiers[strings.ToLower(name)]
	if !ok {
		return Options{}, fmt.Errorf("headless: unknown tier %q", name)
	}
	return opts, nil
}

// Driver implements driver.Driver.
type Driver struct {
	opts Options
	gpu  *GPU
}

// NewDriver creates a Driver whose GPU uses opts.
// Unlike the registered Driver, it is not shared.
func NewDriver(opts Options) *Driver { return &Driver{opts: opts} }

// Open creates the GPU.
func (d *Driver) Open() (driver.GPU, error) {
	if d.gpu == nil {
		d.gpu = newGPU(d, d.opts)
		glrt.Logger().Debug("headless GPU created", "version", d.opts.Version.String())
	}
	return d.gpu, nil
}

// Name returns "headless".
func (d *Driver) Name() string { return driverName }

// Close discards the GPU.
func (d *Driver) Close() { d.gpu = nil }

// New creates a GPU with the given Options.
func New(opts Options) *GPU { return newGPU(nil, opts) }

// Stats counts driver calls of interest.
type Stats struct {
	BufferUploads    int
	BufferBytes      int
	BufferSubUploads int
	TexUploads       int
	MipmapsGenerated int
	AttribPointers   int
	StatusChecks     int
	Compiles         int
	Links            int
	Errors           int
}

// GPU implements driver.GPU.
type GPU struct {
	drv   driver.Driver
	caps  driver.Caps
	opts  Options
	lost  bool
	next  driver.Handle
	stats Stats
	links int

	buffers      map[driver.Handle]*bufferObj
	boundBuf     map[driver.Enum]driver.Handle
	vaos         map[driver.Handle]*vaoObj
	defaultVAO   *vaoObj
	curVAO       driver.Handle
	textures     map[driver.Handle]*textureObj
	boundTex     map[driver.Enum]driver.Handle
	renderbufs   map[driver.Handle]*renderbufObj
	boundRB      driver.Handle
	framebuffers map[driver.Handle]*framebufObj
	boundFB      driver.Handle
	viewport     [4]int
	unpack       int
	shaders      map[driver.Handle]*shaderObj
	programs     map[driver.Handle]*programObj
	curProg      driver.Handle
}

func newGPU(drv driver.Driver, opts Options) *GPU {
	g := &GPU{
		drv:  drv,
		caps: driver.NewCaps(opts.Version, opts.Extensions, opts.Limits),
		opts: opts,
	}
	g.reset()
	return g
}

// reset discards every object.
func (g *GPU) reset() {
	g.buffers = make(map[driver.Handle]*bufferObj)
	g.boundBuf = make(map[driver.Enum]driver.Handle)
	g.vaos = make(map[driver.Handle]*vaoObj)
	g.defaultVAO = newVAO()
	g.curVAO = 0
	g.textures = make(map[driver.Handle]*textureObj)
	g.boundTex = make(map[driver.Enum]driver.Handle)
	g.renderbufs = make(map[driver.Handle]*renderbufObj)
	g.boundRB = 0
	g.framebuffers = make(map[driver.Handle]*framebufObj)
	g.boundFB = 0
	g.viewport = [4]int{}
	g.unpack = 4
	g.shaders = make(map[driver.Handle]*shaderObj)
	g.programs = make(map[driver.Handle]*programObj)
	g.curProg = 0
}

// newHandle returns a Handle that was never returned
// before, not even prior to a context loss.
func (g *GPU) newHandle() (driver.Handle, error) {
	if g.lost {
		return 0, driver.ErrContextLost
	}
	if g.opts.MaxObjects > 0 && g.Objects() >= g.opts.MaxObjects {
		return 0, driver.ErrNoDeviceMemory
	}
	g.next++
	return g.next, nil
}

// LoseContext simulates the loss of the context.
// Every object is discarded.
func (g *GPU) LoseContext() {
	g.lost = true
	g.reset()
	glrt.Logger().Debug("headless context lost")
}

// Restore makes the context usable again.
// Objects created prior to the loss are not restored.
func (g *GPU) Restore() { g.lost = false }

// Stats returns the call counters.
func (g *GPU) Stats() Stats { return g.stats }

// ResetStats zeroes the call counters.
func (g *GPU) ResetStats() { g.stats = Stats{} }

// Objects returns the number of live objects of all kinds.
func (g *GPU) Objects() int {
	return len(g.buffers) + len(g.vaos) + len(g.textures) + len(g.renderbufs) +
		len(g.framebuffers) + len(g.shaders) + len(g.programs)
}

// Driver implements driver.GPU.
func (g *GPU) Driver() driver.Driver {
	if g.drv == nil {
		return &Driver{opts: g.opts, gpu: g}
	}
	return g.drv
}

// Caps implements driver.GPU.
func (g *GPU) Caps() driver.Caps { return g.caps }

// SupportsExtension implements driver.GPU.
func (g *GPU) SupportsExtension(name string) bool { return g.caps.Supports(name) }

// Lost implements driver.GPU.
func (g *GPU) Lost() bool { return g.lost }

// Viewport implements driver.GPU.
func (g *GPU) Viewport(x, y, width, height int) { g.viewport = [4]int{x, y, width, height} }

// CurrentViewport returns the last viewport set.
func (g *GPU) CurrentViewport() (x, y, width, height int) {
	return g.viewport[0], g.viewport[1], g.viewport[2], g.viewport[3]
}
