// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package driver

import "fmt"

// Enum is a GL enumerant.
// Values match the GL/GLES registry so that container
// formats such as KTX can be consumed without translation.
type Enum uint32

// None is the zero Enum.
const None Enum = 0

// Buffer targets and usage hints.
const (
	ArrayBuffer        Enum = 0x8892
	ElementArrayBuffer Enum = 0x8893
	StreamDraw         Enum = 0x88E0
	StaticDraw         Enum = 0x88E4
	DynamicDraw        Enum = 0x88E8
)

// Data types.
const (
	Byte              Enum = 0x1400
	UnsignedByte      Enum = 0x1401
	Short             Enum = 0x1402
	UnsignedShort     Enum = 0x1403
	Int               Enum = 0x1404
	UnsignedInt       Enum = 0x1405
	Float             Enum = 0x1406
	Fixed             Enum = 0x140C
	HalfFloat         Enum = 0x140B
	HalfFloatOES      Enum = 0x8D61
	UnsignedShort4444 Enum = 0x8033
	UnsignedShort5551 Enum = 0x8034
	UnsignedShort565  Enum = 0x8363
	UnsignedInt248    Enum = 0x84FA
)

// Pixel formats.
const (
	StencilIndex   Enum = 0x1901
	DepthComponent Enum = 0x1902
	Red            Enum = 0x1903
	Alpha          Enum = 0x1906
	RGB            Enum = 0x1907
	RGBA           Enum = 0x1908
	Luminance      Enum = 0x1909
	LuminanceAlpha Enum = 0x190A
	RG             Enum = 0x8227
	DepthStencil   Enum = 0x84F9
)

// Sized internal formats.
const (
	R8                Enum = 0x8229
	RG8               Enum = 0x822B
	RGB8              Enum = 0x8051
	RGBA8             Enum = 0x8058
	RGBA4             Enum = 0x8056
	RGB5A1            Enum = 0x8057
	RGB565            Enum = 0x8D62
	SRGB8Alpha8       Enum = 0x8C43
	R16F              Enum = 0x822D
	RG16F             Enum = 0x822F
	RGB16F            Enum = 0x881B
	RGBA16F           Enum = 0x881A
	R32F              Enum = 0x822E
	RG32F             Enum = 0x8230
	RGB32F            Enum = 0x8815
	RGBA32F           Enum = 0x8814
	DepthComponent16  Enum = 0x81A5
	DepthComponent24  Enum = 0x81A6
	DepthComponent32F Enum = 0x8CAC
	Depth24Stencil8   Enum = 0x88F0
	Depth32FStencil8  Enum = 0x8CAD
	StencilIndex8     Enum = 0x8D48
	ETC1RGB8          Enum = 0x8D64
)

// Texture targets.
const (
	Texture2D               Enum = 0x0DE1
	Texture3D               Enum = 0x806F
	Texture2DArray          Enum = 0x8C1A
	TextureCubeMap          Enum = 0x8513
	TextureCubeMapPositiveX Enum = 0x8515
	TextureCubeMapNegativeX Enum = 0x8516
	TextureCubeMapPositiveY Enum = 0x8517
	TextureCubeMapNegativeY Enum = 0x8518
	TextureCubeMapPositiveZ Enum = 0x8519
	TextureCubeMapNegativeZ Enum = 0x851A
)

// Texture parameters and their values.
const (
	TextureMagFilter     Enum = 0x2800
	TextureMinFilter     Enum = 0x2801
	TextureWrapS         Enum = 0x2802
	TextureWrapT         Enum = 0x2803
	Nearest              Enum = 0x2600
	Linear               Enum = 0x2601
	NearestMipmapNearest Enum = 0x2700
	LinearMipmapNearest  Enum = 0x2701
	NearestMipmapLinear  Enum = 0x2702
	LinearMipmapLinear   Enum = 0x2703
	Repeat               Enum = 0x2901
	ClampToEdge          Enum = 0x812F
	MirroredRepeat       Enum = 0x8370
)

// Framebuffer attachment points.
const (
	ColorAttachment0       Enum = 0x8CE0
	DepthAttachment        Enum = 0x8D00
	StencilAttachment      Enum = 0x8D20
	DepthStencilAttachment Enum = 0x821A
)

// Framebuffer status values.
const (
	FramebufferComplete                   Enum = 0x8CD5
	FramebufferIncompleteAttachment       Enum = 0x8CD6
	FramebufferIncompleteMissingAttachent Enum = 0x8CD7
	FramebufferIncompleteDimensions       Enum = 0x8CD9
	FramebufferUnsupported                Enum = 0x8CDD
)

// Shader stages.
const (
	FragmentShader Enum = 0x8B30
	VertexShader   Enum = 0x8B31
)

// Active variable types reported by program reflection.
const (
	FloatVec2   Enum = 0x8B50
	FloatVec3   Enum = 0x8B51
	FloatVec4   Enum = 0x8B52
	IntVec2     Enum = 0x8B53
	IntVec3     Enum = 0x8B54
	IntVec4     Enum = 0x8B55
	Bool        Enum = 0x8B56
	FloatMat2   Enum = 0x8B5A
	FloatMat3   Enum = 0x8B5B
	FloatMat4   Enum = 0x8B5C
	Sampler2D   Enum = 0x8B5E
	SamplerCube Enum = 0x8B60
)

// Pixel store parameters.
const UnpackAlignment Enum = 0x0CF5

var enumNames = map[Enum]string{
	ArrayBuffer:                           "ARRAY_BUFFER",
	ElementArrayBuffer:                    "ELEMENT_ARRAY_BUFFER",
	StreamDraw:                            "STREAM_DRAW",
	StaticDraw:                            "STATIC_DRAW",
	DynamicDraw:                           "DYNAMIC_DRAW",
	Byte:                                  "BYTE",
	UnsignedByte:                          "UNSIGNED_BYTE",
	Short:                                 "SHORT",
	UnsignedShort:                         "UNSIGNED_SHORT",
	Int:                                   "INT",
	UnsignedInt:                           "UNSIGNED_INT",
	Float:                                 "FLOAT",
	Fixed:                                 "FIXED",
	HalfFloat:                             "HALF_FLOAT",
	HalfFloatOES:                          "HALF_FLOAT_OES",
	UnsignedShort4444:                     "UNSIGNED_SHORT_4_4_4_4",
	UnsignedShort5551:                     "UNSIGNED_SHORT_5_5_5_1",
	UnsignedShort565:                      "UNSIGNED_SHORT_5_6_5",
	UnsignedInt248:                        "UNSIGNED_INT_24_8",
	StencilIndex:                          "STENCIL_INDEX",
	DepthComponent:                        "DEPTH_COMPONENT",
	Red:                                   "RED",
	Alpha:                                 "ALPHA",
	RGB:                                   "RGB",
	RGBA:                                  "RGBA",
	Luminance:                             "LUMINANCE",
	LuminanceAlpha:                        "LUMINANCE_ALPHA",
	RG:                                    "RG",
	DepthStencil:                          "DEPTH_STENCIL",
	R8:                                    "R8",
	RG8:                                   "RG8",
	RGB8:                                  "RGB8",
	RGBA8:                                 "RGBA8",
	RGBA4:                                 "RGBA4",
	RGB5A1:                                "RGB5_A1",
	RGB565:                                "RGB565",
	SRGB8Alpha8:                           "SRGB8_ALPHA8",
	R16F:                                  "R16F",
	RG16F:                                 "RG16F",
	RGB16F:                                "RGB16F",
	RGBA16F:                               "RGBA16F",
	R32F:                                  "R32F",
	RG32F:                                 "RG32F",
	RGB32F:                                "RGB32F",
	RGBA32F:                               "RGBA32F",
	DepthComponent16:                      "DEPTH_COMPONENT16",
	DepthComponent24:                      "DEPTH_COMPONENT24",
	DepthComponent32F:                     "DEPTH_COMPONENT32F",
	Depth24Stencil8:                       "DEPTH24_STENCIL8",
	Depth32FStencil8:                      "DEPTH32F_STENCIL8",
	StencilIndex8:                         "STENCIL_INDEX8",
	ETC1RGB8:                              "ETC1_RGB8_OES",
	Texture2D:                             "TEXTURE_2D",
	Texture3D:                             "TEXTURE_3D",
	Texture2DArray:                        "TEXTURE_2D_ARRAY",
	TextureCubeMap:                        "TEXTURE_CUBE_MAP",
	TextureCubeMapPositiveX:               "TEXTURE_CUBE_MAP_POSITIVE_X",
	TextureCubeMapNegativeX:               "TEXTURE_CUBE_MAP_NEGATIVE_X",
	TextureCubeMapPositiveY:               "TEXTURE_CUBE_MAP_POSITIVE_Y",
	TextureCubeMapNegativeY:               "TEXTURE_CUBE_MAP_NEGATIVE_Y",
	TextureCubeMapPositiveZ:               "TEXTURE_CUBE_MAP_POSITIVE_Z",
	TextureCubeMapNegativeZ:               "TEXTURE_CUBE_MAP_NEGATIVE_Z",
	ColorAttachment0:                      "COLOR_ATTACHMENT0",
	DepthAttachment:                       "DEPTH_ATTACHMENT",
	StencilAttachment:                     "STENCIL_ATTACHMENT",
	DepthStencilAttachment:                "DEPTH_STENCIL_ATTACHMENT",
	FramebufferComplete:                   "FRAMEBUFFER_COMPLETE",
	FramebufferIncompleteAttachment:       "FRAMEBUFFER_INCOMPLETE_ATTACHMENT",
	FramebufferIncompleteMissingAttachent: "FRAMEBUFFER_INCOMPLETE_MISSING_ATTACHMENT",
	FramebufferIncompleteDimensions:       "FRAMEBUFFER_INCOMPLETE_DIMENSIONS",
	FramebufferUnsupported:                "FRAMEBUFFER_UNSUPPORTED",
	FragmentShader:                        "FRAGMENT_SHADER",
	VertexShader:                          "VERTEX_SHADER",
	FloatVec2:                             "FLOAT_VEC2",
	FloatVec3:                             "FLOAT_VEC3",
	FloatVec4:                             "FLOAT_VEC4",
	IntVec2:                               "INT_VEC2",
	IntVec3:                               "INT_VEC3",
	IntVec4:                               "INT_VEC4",
	Bool:                                  "BOOL",
	FloatMat2:                             "FLOAT_MAT2",
	FloatMat3:                             "FLOAT_MAT3",
	FloatMat4:                             "FLOAT_MAT4",
	Sampler2D:                             "SAMPLER_2D",
	SamplerCube:                           "SAMPLER_CUBE",
}

// String returns the GL name of e followed by its value,
// or just the hexadecimal value if e is not known.
func (e Enum) String() string {
	if s, ok := enumNames[e]; ok {
		return fmt.Sprintf("%s(0x%04X)", s, uint32(e))
	}
	return fmt.Sprintf("0x%04X", uint32(e))
}

// CubeFace returns the texture target of the given cube
// face, in the order +X, -X, +Y, -Y, +Z, -Z.
// i must be in the range [0, 6).
func CubeFace(i int) Enum {
	if i < 0 || i > 5 {
		panic("driver.CubeFace: face index out of range")
	}
	return TextureCubeMapPositiveX + Enum(i)
}
