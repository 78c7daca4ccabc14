// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

// Handle is the name of a GPU object.
// The zero Handle refers to no object (or to the default
// framebuffer, when used as such).
type Handle uint32

// GPU is the interface that defines the operations of
// a graphics context.
// Calls must be made from the goroutine that owns the
// context. Once the context is lost, every Handle that
// it returned is void and object creation fails with
// ErrContextLost.
type GPU interface {
	// Driver returns the Driver that owns the GPU.
	Driver() Driver

	// Caps returns the capability tier of the GPU.
	Caps() Caps

	// SupportsExtension is a shorthand for Caps().Supports.
	SupportsExtension(name string) bool

	// Lost returns whether the context has been lost and
	// not yet restored.
	Lost() bool

	BufferAPI
	VertexAPI
	TextureAPI
	FramebufferAPI
	ProgramAPI
}

// BufferAPI is the set of buffer object operations.
type BufferAPI interface {
	// NewBuffer creates a new buffer object.
	NewBuffer() (Handle, error)

	// BindBuffer binds a buffer to target.
	// h may be zero, in which case the target is unbound.
	BindBuffer(target Enum, h Handle)

	// BufferData replaces the whole storage of the buffer
	// bound to target.
	BufferData(target Enum, data []byte, usage Enum)

	// BufferSubData updates a range of the storage of the
	// buffer bound to target.
	BufferSubData(target Enum, off int, data []byte)

	// DeleteBuffer deletes a buffer object.
	DeleteBuffer(h Handle)
}

// VertexAttrib describes the format of a vertex attribute
// array.
type VertexAttrib struct {
	Size       int
	Type       Enum
	Normalized bool
	Stride     int
	Offset     int
}

// VertexAPI is the set of vertex specification operations.
type VertexAPI interface {
	// NewVertexArray creates a vertex array object.
	// It requires FeatureVertexArrays.
	NewVertexArray() (Handle, error)

	// BindVertexArray binds a vertex array object.
	// h may be zero, in which case the default vertex
	// array is bound.
	BindVertexArray(h Handle)

	// DeleteVertexArray deletes a vertex array object.
	DeleteVertexArray(h Handle)

	EnableVertexAttrib(loc int)
	DisableVertexAttrib(loc int)

	// VertexAttribPointer sources the attribute at loc from
	// the buffer currently bound to ArrayBuffer.
	VertexAttribPointer(loc int, attr VertexAttrib)

	// VertexAttribClientPointer sources the attribute at loc
	// from client memory.
	// The data is read at draw time, so it must remain valid
	// until then.
	VertexAttribClientPointer(loc int, attr VertexAttrib, data []byte)

	// VertexAttribDivisor sets the instancing divisor of the
	// attribute at loc.
	// It requires FeatureInstancing.
	VertexAttribDivisor(loc int, divisor int)
}

// TextureAPI is the set of texture and renderbuffer
// operations.
type TextureAPI interface {
	NewTexture() (Handle, error)
	BindTexture(target Enum, h Handle)

	// TexImage2D specifies a level of the texture bound to
	// the given target (Texture2D or one of the cube faces).
	// data may be nil, in which case storage is allocated
	// but left undefined.
	TexImage2D(target Enum, level int, internalFormat Enum, width, height int, format, typ Enum, data []byte)

	// CompressedTexImage2D is like TexImage2D for
	// compressed formats.
	CompressedTexImage2D(target Enum, level int, internalFormat Enum, width, height int, data []byte)

	TexParameter(target Enum, param, value Enum)

	// GenerateMipmap generates the full mip chain of the
	// texture bound to target from its base level.
	GenerateMipmap(target Enum)

	// PixelStore sets a pixel storage parameter.
	PixelStore(param Enum, value int)

	DeleteTexture(h Handle)

	NewRenderbuffer() (Handle, error)
	BindRenderbuffer(h Handle)
	RenderbufferStorage(internalFormat Enum, width, height int)
	DeleteRenderbuffer(h Handle)
}

// FramebufferAPI is the set of framebuffer operations.
type FramebufferAPI interface {
	// DefaultFramebuffer returns the handle of the
	// window-system provided framebuffer.
	DefaultFramebuffer() Handle

	NewFramebuffer() (Handle, error)
	BindFramebuffer(h Handle)

	// FramebufferTexture2D attaches a texture image to the
	// bound framebuffer.
	FramebufferTexture2D(attachment, texTarget Enum, tex Handle, level int)

	// FramebufferRenderbuffer attaches a renderbuffer to the
	// bound framebuffer.
	FramebufferRenderbuffer(attachment Enum, rb Handle)

	// DrawBuffers sets the color attachments that fragment
	// outputs are written to.
	// It requires FeatureMultipleRenderTargets when more
	// than one buffer is given.
	DrawBuffers(bufs []Enum)

	// CheckFramebufferStatus returns the completeness status
	// of the bound framebuffer.
	CheckFramebufferStatus() Enum

	DeleteFramebuffer(h Handle)

	Viewport(x, y, width, height int)
}

// Active describes an active program variable.
type Active struct {
	Name     string
	Location int
	Size     int
	Type     Enum
}

// ProgramAPI is the set of shader and program operations.
type ProgramAPI interface {
	NewShader(stage Enum) (Handle, error)
	ShaderSource(h Handle, src string)
	CompileShader(h Handle)
	ShaderCompiled(h Handle) bool
	ShaderInfoLog(h Handle) string
	DeleteShader(h Handle)

	NewProgram() (Handle, error)
	AttachShader(prog, shader Handle)
	LinkProgram(prog Handle)
	ProgramLinked(prog Handle) bool
	ProgramInfoLog(prog Handle) string

	// ActiveAttribs returns the active attributes of a
	// linked program.
	ActiveAttribs(prog Handle) []Active

	// ActiveUniforms returns the active uniforms of a
	// linked program.
	ActiveUniforms(prog Handle) []Active

	UseProgram(prog Handle)
	DeleteProgram(prog Handle)

	// Uniformi sets an integer uniform (or array thereof)
	// of the program in use.
	// comps is the number of components per element.
	Uniformi(loc int, comps int, v []int32)

	// Uniformf is the float counterpart of Uniformi.
	Uniformf(loc int, comps int, v []float32)

	// UniformMatrix sets a dim×dim matrix uniform (or array
	// thereof) of the program in use.
	UniformMatrix(loc int, dim int, transpose bool, v []float32)
}
