// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import (
	"slices"
	"strconv"
	"strings"
)

// Feature is the type of a capability that a GPU may or
// may not provide, depending on its version and on the
// extensions it advertises.
type Feature uint32

// Features.
const (
	// Vertex array objects (i.e., cached attribute
	// specification).
	FeatureVertexArrays Feature = 1 << iota
	// Per-instance vertex attributes (attribute divisors).
	FeatureInstancing
	// More than one color attachment per framebuffer.
	FeatureMultipleRenderTargets
	// Depth (and depth/stencil) textures as attachments.
	FeatureDepthTextures
	// Float textures.
	FeatureFloatTextures
	// Float color attachments.
	FeatureFloatColorBuffers
	// Packed depth/stencil renderbuffers.
	FeaturePackedDepthStencil
	// Hardware mipmap generation.
	FeatureGenerateMipmap
	// Mipmaps for non-power-of-two textures.
	FeatureNPOTMipmap
	// ETC1 compressed textures.
	FeatureETC1
)

var featureNames = [...]string{
	"vertex-arrays",
	"instancing",
	"multiple-render-targets",
	"depth-textures",
	"float-textures",
	"float-color-buffers",
	"packed-depth-stencil",
	"generate-mipmap",
	"npot-mipmap",
	"etc1",
}

// String returns a comma-separated list of feature names.
func (f Feature) String() string {
	var s []string
	for i, n := range featureNames {
		if f&(1<<i) != 0 {
			s = append(s, n)
		}
	}
	return strings.Join(s, ",")
}

// ParseFeature returns the Feature named s.
// s uses the same spelling as Feature.String.
func ParseFeature(s string) (Feature, bool) {
	i := slices.Index(featureNames[:], strings.ToLower(strings.TrimSpace(s)))
	if i < 0 {
		return 0, false
	}
	return 1 << i, true
}

// Extension names that affect Features.
const (
	ExtVertexArrayObject    = "GL_OES_vertex_array_object"
	ExtInstancedArrays      = "GL_EXT_instanced_arrays"
	ExtANGLEInstancedArrays = "GL_ANGLE_instanced_arrays"
	ExtDrawBuffers          = "GL_EXT_draw_buffers"
	ExtDepthTexture         = "GL_OES_depth_texture"
	ExtTextureFloat         = "GL_OES_texture_float"
	ExtColorBufferFloat     = "GL_EXT_color_buffer_float"
	ExtOESPackedDepth       = "GL_OES_packed_depth_stencil"
	ExtEXTPackedDepth       = "GL_EXT_packed_depth_stencil"
	ExtTextureNPOT          = "GL_OES_texture_npot"
	ExtETC1                 = "GL_OES_compressed_ETC1_RGB8_texture"
)

// Version identifies a GL API and its major version.
type Version struct {
	ES    bool
	Major int
}

// Known API versions.
var (
	GLES2 = Version{ES: true, Major: 2}
	GLES3 = Version{ES: true, Major: 3}
	GL3   = Version{Major: 3}
)

// String returns "OpenGL ES N" or "OpenGL N".
func (v Version) String() string {
	s := "OpenGL "
	if v.ES {
		s += "ES "
	}
	return s + strconv.Itoa(v.Major)
}

// Limits describes implementation limits.
type Limits struct {
	MaxTextureSize      int
	MaxRenderbufferSize int
	MaxColorAttachments int
	MaxVertexAttribs    int
	MaxTextureUnits     int
}

// Caps describes the capability tier of a GPU.
type Caps struct {
	Version    Version
	Features   Feature
	Extensions []string
	Limits     Limits
}

// NewCaps derives a Caps from an API version and a list
// of extension names.
// Features that are core in the given version are set
// regardless of exts.
func NewCaps(v Version, exts []string, lim Limits) Caps {
	c := Caps{
		Version:    v,
		Extensions: slices.Clone(exts),
		Limits:     lim,
	}
	c.Features = FeatureGenerateMipmap
	if v.Major >= 3 {
		c.Features |= FeatureVertexArrays | FeatureInstancing |
			FeatureMultipleRenderTargets | FeatureDepthTextures |
			FeatureFloatTextures | FeaturePackedDepthStencil |
			FeatureNPOTMipmap
		if !v.ES {
			c.Features |= FeatureFloatColorBuffers
		}
	}
	for _, x := range [...]struct {
		ext  string
		feat Feature
	}{
		{ExtVertexArrayObject, FeatureVertexArrays},
		{ExtInstancedArrays, FeatureInstancing},
		{ExtANGLEInstancedArrays, FeatureInstancing},
		{ExtDrawBuffers, FeatureMultipleRenderTargets},
		{ExtDepthTexture, FeatureDepthTextures},
		{ExtTextureFloat, FeatureFloatTextures},
		{ExtColorBufferFloat, FeatureFloatColorBuffers},
		{ExtOESPackedDepth, FeaturePackedDepthStencil},
		{ExtEXTPackedDepth, FeaturePackedDepthStencil},
		{ExtTextureNPOT, FeatureNPOTMipmap},
		{ExtETC1, FeatureETC1},
	} {
		if c.Supports(x.ext) {
			c.Features |= x.feat
		}
	}
	if c.Limits.MaxColorAttachments < 1 {
		c.Limits.MaxColorAttachments = 1
	}
	if !c.Has(FeatureMultipleRenderTargets) {
		c.Limits.MaxColorAttachments = 1
	}
	return c
}

// Has returns whether every feature in f is present.
func (c Caps) Has(f Feature) bool { return c.Features&f == f }

// Supports returns whether the extension named ext is
// advertised.
func (c Caps) Supports(ext string) bool { return slices.Contains(c.Extensions, ext) }
