// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package buffer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gogpu/gputypes"

	"github.com/gviegas/glrt/driver"
	"github.com/gviegas/glrt/glerr"
)

// Semantic describes what a vertex attribute holds.
type Semantic int

// Attribute semantics.
const (
	Position Semantic = iota
	ColorUnpacked
	ColorPacked
	Normal
	TexCoords
	Generic
	BoneWeight
	Tangent
	Binormal
)

var semanticNames = [...]string{
	Position:      "position",
	ColorUnpacked: "color",
	ColorPacked:   "packed-color",
	Normal:        "normal",
	TexCoords:     "texcoords",
	Generic:       "generic",
	BoneWeight:    "boneweight",
	Tangent:       "tangent",
	Binormal:      "binormal",
}

func (s Semantic) String() string {
	if s >= 0 && int(s) < len(semanticNames) {
		return semanticNames[s]
	}
	return "Semantic(" + strconv.Itoa(int(s)) + ")"
}

// Attribute describes one vertex attribute.
type Attribute struct {
	Semantic   Semantic
	Components int
	Type       driver.Enum
	Normalized bool
	// Alias is the name of the shader input that the
	// attribute feeds.
	Alias string
	// Unit distinguishes multiple attributes of the same
	// semantic (e.g., texture coordinate sets).
	Unit int
	// Offset is the byte offset within a vertex.
	// It is computed by NewLayout.
	Offset int
}

// PositionAttr returns a float position attribute with
// comps components, aliased "a_position".
func PositionAttr(comps int) Attribute {
	return Attribute{Semantic: Position, Components: comps, Type: driver.Float, Alias: "a_position"}
}

// ColorAttr returns an RGBA float color attribute.
func ColorAttr() Attribute {
	return Attribute{Semantic: ColorUnpacked, Components: 4, Type: driver.Float, Alias: "a_color"}
}

// PackedColorAttr returns an RGBA color attribute packed
// into four normalized unsigned bytes.
// It shares the "a_color" alias with ColorAttr.
func PackedColorAttr() Attribute {
	return Attribute{Semantic: ColorPacked, Components: 4, Type: driver.UnsignedByte, Normalized: true, Alias: "a_color"}
}

// NormalAttr returns a 3-component normal attribute.
func NormalAttr() Attribute {
	return Attribute{Semantic: Normal, Components: 3, Type: driver.Float, Alias: "a_normal"}
}

// TexCoordsAttr returns the texture coordinates of the
// given set. The alias is "a_texCoord" followed by unit.
func TexCoordsAttr(unit int) Attribute {
	return Attribute{Semantic: TexCoords, Components: 2, Type: driver.Float, Alias: "a_texCoord" + strconv.Itoa(unit), Unit: unit}
}

// BoneWeightAttr returns a bone index/weight pair.
// The alias is "a_boneWeight" followed by unit.
func BoneWeightAttr(unit int) Attribute {
	return Attribute{Semantic: BoneWeight, Components: 2, Type: driver.Float, Alias: "a_boneWeight" + strconv.Itoa(unit), Unit: unit}
}

// TangentAttr returns a 3-component tangent attribute.
func TangentAttr() Attribute {
	return Attribute{Semantic: Tangent, Components: 3, Type: driver.Float, Alias: "a_tangent"}
}

// BinormalAttr returns a 3-component binormal attribute.
func BinormalAttr() Attribute {
	return Attribute{Semantic: Binormal, Components: 3, Type: driver.Float, Alias: "a_binormal"}
}

// typeSize returns the size in bytes of one component.
func typeSize(t driver.Enum) int {
	switch t {
	case driver.Byte, driver.UnsignedByte:
		return 1
	case driver.Short, driver.UnsignedShort, driver.HalfFloat:
		return 2
	case driver.Int, driver.UnsignedInt, driver.Float, driver.Fixed:
		return 4
	}
	return 0
}

// Size returns the size of a in bytes.
func (a Attribute) Size() int { return a.Components * typeSize(a.Type) }

// Layout is an immutable sequence of attributes.
type Layout struct {
	attrs  []Attribute
	stride int
}

// NewLayout creates a Layout from the given attributes,
// computing their offsets in order.
// The stride must be a multiple of 4 bytes, since vertex
// data is staged as float32 values.
func NewLayout(attrs ...Attribute) (*Layout, error) {
	const op = "buffer.NewLayout"
	if len(attrs) == 0 {
		return nil, glerr.Configf(op, "no attributes")
	}
	l := &Layout{attrs: make([]Attribute, len(attrs))}
	for i, a := range attrs {
		var reason string
		switch {
		case a.Components < 1 || a.Components > 4:
			reason = "component count must be in the range [1, 4]"
		case typeSize(a.Type) == 0:
			reason = "invalid component type " + a.Type.String()
		case a.Semantic == ColorPacked && (a.Type != driver.UnsignedByte || a.Components != 4):
			reason = "packed color must have 4 unsigned byte components"
		case a.Alias == "":
			reason = "missing alias"
		}
		if reason != "" {
			return nil, glerr.Configf(op, "attribute %d (%s): %s", i, a.Semantic, reason)
		}
		a.Offset = l.stride
		l.attrs[i] = a
		l.stride += a.Size()
	}
	if l.stride%4 != 0 {
		return nil, glerr.Configf(op, "stride of %d bytes is not a multiple of 4", l.stride)
	}
	return l, nil
}

// MustLayout is like NewLayout but panics on error.
func MustLayout(attrs ...Attribute) *Layout {
	l, err := NewLayout(attrs...)
	if err != nil {
		panic(err)
	}
	return l
}

// Len returns the number of attributes in l.
func (l *Layout) Len() int { return len(l.attrs) }

// At returns the ith attribute of l.
func (l *Layout) At(i int) Attribute { return l.attrs[i] }

// Stride returns the size of a vertex in bytes.
// It is the sum of the attribute sizes.
func (l *Layout) Stride() int { return l.stride }

// Floats returns the size of a vertex in float32 values.
func (l *Layout) Floats() int { return l.stride / 4 }

// Find returns the first attribute with the given semantic.
func (l *Layout) Find(s Semantic) (Attribute, bool) {
	for _, a := range l.attrs {
		if a.Semantic == s {
			return a, true
		}
	}
	return Attribute{}, false
}

// Mask returns a bit mask of the semantics in l.
// Layouts with equal masks can feed the same shaders.
func (l *Layout) Mask() uint64 {
	var m uint64
	for _, a := range l.attrs {
		m |= 1 << a.Semantic
	}
	return m
}

func (l *Layout) String() string {
	s := make([]string, len(l.attrs))
	for i, a := range l.attrs {
		s[i] = fmt.Sprintf("%s:%d@%d", a.Alias, a.Components, a.Offset)
	}
	return "[" + strings.Join(s, " ") + "]"
}

func (a Attribute) vertexAttrib(stride int) driver.VertexAttrib {
	return driver.VertexAttrib{
		Size:       a.Components,
		Type:       a.Type,
		Normalized: a.Normalized,
		Stride:     stride,
		Offset:     a.Offset,
	}
}

// StepMode selects per-vertex or per-instance data.
type StepMode int

// Step modes.
const (
	PerVertex StepMode = iota
	PerInstance
)

// WebGPU converts l to a WebGPU vertex buffer layout.
// Attributes are assigned consecutive shader locations
// starting at firstLocation.
// Only float and normalized unsigned byte (×4)
// attributes have a WebGPU counterpart.
func (l *Layout) WebGPU(step StepMode, firstLocation int) (gputypes.VertexBufferLayout, error) {
	mode := gputypes.VertexStepModeVertex
	if step == PerInstance {
		mode = gputypes.VertexStepModeInstance
	}
	attrs := make([]gputypes.VertexAttribute, len(l.attrs))
	for i, a := range l.attrs {
		var f gputypes.VertexFormat
		switch {
		case a.Type == driver.Float && a.Components == 1:
			f = gputypes.VertexFormatFloat32
		case a.Type == driver.Float && a.Components == 2:
			f = gputypes.VertexFormatFloat32x2
		case a.Type == driver.Float && a.Components == 3:
			f = gputypes.VertexFormatFloat32x3
		case a.Type == driver.Float && a.Components == 4:
			f = gputypes.VertexFormatFloat32x4
		case a.Type == driver.UnsignedByte && a.Components == 4 && a.Normalized:
			f = gputypes.VertexFormatUnorm8x4
		default:
			return gputypes.VertexBufferLayout{}, &glerr.NotSupportedError{
				Feature: fmt.Sprintf("WebGPU vertex format for %s (%d × %v)", a.Alias, a.Components, a.Type),
			}
		}
		attrs[i] = gputypes.VertexAttribute{
			Format:         f,
			Offset:         uint64(a.Offset),
			ShaderLocation: uint32(firstLocation + i),
		}
	}
	return gputypes.VertexBufferLayout{
		ArrayStride: uint64(l.stride),
		StepMode:    mode,
		Attributes:  attrs,
	}, nil
}
