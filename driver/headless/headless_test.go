// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package headless

import (
	"errors"
	"strings"
	"testing"

	"github.com/gviegas/glrt/driver"
)

func TestTier(t *testing.T) {
	for name := range Tiers {
		if _, err := Tier(strings.ToUpper(name)); err != nil {
			t.Fatalf("Tier(%s):\nhave %v\nwant nil", name, err)
		}
	}
	if _, err := Tier("gles1"); err == nil {
		t.Fatal("Tier(gles1): unexpected success")
	}
	var _ driver.GPU = New(Tiers["gles2"])
}

func TestLoseContext(t *testing.T) {
	g := New(Tiers["gles3"])
	b, err := g.NewBuffer()
	if err != nil {
		t.Fatalf("GPU.NewBuffer:\nhave %v\nwant nil", err)
	}
	g.BindBuffer(driver.ArrayBuffer, b)
	g.BufferData(driver.ArrayBuffer, []byte{1, 2, 3, 4}, driver.StaticDraw)
	if _, ok := g.BufferContents(b); !ok {
		t.Fatal("GPU.BufferContents: buffer not found")
	}

	g.LoseContext()
	if !g.Lost() {
		t.Fatal("GPU.Lost:\nhave false\nwant true")
	}
	if n := g.Objects(); n != 0 {
		t.Fatalf("GPU.Objects:\nhave %d\nwant 0", n)
	}
	if _, err := g.NewTexture(); !errors.Is(err, driver.ErrContextLost) {
		t.Fatalf("GPU.NewTexture:\nhave %v\nwant %v", err, driver.ErrContextLost)
	}

	g.Restore()
	b2, err := g.NewBuffer()
	if err != nil {
		t.Fatalf("GPU.NewBuffer:\nhave %v\nwant nil", err)
	}
	if b2 == b {
		t.Fatal("GPU.NewBuffer: handle reused after context loss")
	}
}

func TestMaxObjects(t *testing.T) {
	opts := Tiers["gles2"]
	opts.MaxObjects = 2
	g := New(opts)
	b, err := g.NewBuffer()
	if err != nil {
		t.Fatalf("GPU.NewBuffer:\nhave %v\nwant nil", err)
	}
	if _, err := g.NewTexture(); err != nil {
		t.Fatalf("GPU.NewTexture:\nhave %v\nwant nil", err)
	}
	if _, err := g.NewRenderbuffer(); !errors.Is(err, driver.ErrNoDeviceMemory) {
		t.Fatalf("GPU.NewRenderbuffer:\nhave %v\nwant %v", err, driver.ErrNoDeviceMemory)
	}
	g.DeleteBuffer(b)
	if _, err := g.NewRenderbuffer(); err != nil {
		t.Fatalf("GPU.NewRenderbuffer:\nhave %v\nwant nil", err)
	}
	if n := g.Objects(); n != 2 {
		t.Fatalf("GPU.Objects:\nhave %d\nwant 2", n)
	}
}

func TestBufferData(t *testing.T) {
	g := New(Tiers["gles2"])
	b, _ := g.NewBuffer()
	g.BindBuffer(driver.ArrayBuffer, b)
	g.BufferData(driver.ArrayBuffer, []byte{1, 2, 3, 4}, driver.DynamicDraw)
	g.BufferSubData(driver.ArrayBuffer, 2, []byte{9, 9})
	g.BufferSubData(driver.ArrayBuffer, 3, []byte{7, 7})
	data, _ := g.BufferContents(b)
	if string(data) != string([]byte{1, 2, 9, 9}) {
		t.Fatalf("GPU.BufferContents:\nhave %v\nwant [1 2 9 9]", data)
	}
	s := g.Stats()
	if s.BufferUploads != 1 || s.BufferSubUploads != 1 {
		t.Fatalf("GPU.Stats:\nhave %+v\nwant 1 upload and 1 sub-upload", s)
	}
	if _, err := g.NewVertexArray(); err == nil {
		t.Fatal("GPU.NewVertexArray: unexpected success on gles2")
	}
}

func TestVertexArray(t *testing.T) {
	g := New(Tiers["gles3"])
	vao, err := g.NewVertexArray()
	if err != nil {
		t.Fatalf("GPU.NewVertexArray:\nhave %v\nwant nil", err)
	}
	b, _ := g.NewBuffer()
	g.BindVertexArray(vao)
	g.BindBuffer(driver.ArrayBuffer, b)
	g.EnableVertexAttrib(2)
	g.VertexAttribPointer(2, driver.VertexAttrib{Size: 3, Type: driver.Float, Stride: 12})
	g.VertexAttribDivisor(2, 1)
	a := g.Attrib(2)
	if !a.Enabled || a.Buffer != b || a.Divisor != 1 || a.Attrib.Size != 3 {
		t.Fatalf("GPU.Attrib:\nhave %+v", a)
	}
	g.BindVertexArray(0)
	if a := g.Attrib(2); a.Enabled {
		t.Fatal("GPU.Attrib: vertex array state leaked into default vertex array")
	}
	g.BindVertexArray(vao)
	if a := g.Attrib(2); !a.Enabled {
		t.Fatal("GPU.Attrib: vertex array state not retained")
	}
}

func TestGenerateMipmap(t *testing.T) {
	g := New(Tiers["gles2"])
	tex, _ := g.NewTexture()
	g.BindTexture(driver.Texture2D, tex)
	g.TexImage2D(driver.Texture2D, 0, driver.RGBA, 16, 4, driver.RGBA, driver.UnsignedByte, make([]byte, 16*4*4))
	g.GenerateMipmap(driver.Texture2D)
	if n := g.TexLevels(tex, driver.Texture2D); n != 5 {
		t.Fatalf("GPU.TexLevels:\nhave %d\nwant 5", n)
	}
	img, _ := g.TexImage(tex, driver.Texture2D, 4)
	if img.Width != 1 || img.Height != 1 || !img.Generated {
		t.Fatalf("GPU.TexImage:\nhave %+v\nwant 1x1 generated", img)
	}

	// NPOT mipmaps are not available on gles2.
	tex2, _ := g.NewTexture()
	g.BindTexture(driver.Texture2D, tex2)
	g.TexImage2D(driver.Texture2D, 0, driver.RGB, 17, 33, driver.RGB, driver.UnsignedByte, nil)
	errs := g.Stats().Errors
	g.GenerateMipmap(driver.Texture2D)
	if g.Stats().Errors != errs+1 {
		t.Fatal("GPU.GenerateMipmap: expected an error for NPOT texture")
	}

	// Float textures need an extension.
	g.TexImage2D(driver.Texture2D, 0, driver.RGBA, 4, 4, driver.RGBA, driver.Float, nil)
	if g.Stats().Errors != errs+2 {
		t.Fatal("GPU.TexImage2D: expected an error for float texture")
	}
}

func newRB(g *GPU, f driver.Enum, w, h int) driver.Handle {
	rb, _ := g.NewRenderbuffer()
	g.BindRenderbuffer(rb)
	g.RenderbufferStorage(f, w, h)
	return rb
}

func TestFramebufferStatus(t *testing.T) {
	g := New(Tiers["gles2-ext"])
	fb, _ := g.NewFramebuffer()
	g.BindFramebuffer(fb)
	if s := g.CheckFramebufferStatus(); s != driver.FramebufferIncompleteMissingAttachent {
		t.Fatalf("GPU.CheckFramebufferStatus:\nhave %v\nwant %v", s, driver.FramebufferIncompleteMissingAttachent)
	}

	tex, _ := g.NewTexture()
	g.BindTexture(driver.Texture2D, tex)
	g.TexImage2D(driver.Texture2D, 0, driver.RGBA, 64, 64, driver.RGBA, driver.UnsignedByte, nil)
	g.FramebufferTexture2D(driver.ColorAttachment0, driver.Texture2D, tex, 0)
	if s := g.CheckFramebufferStatus(); s != driver.FramebufferComplete {
		t.Fatalf("GPU.CheckFramebufferStatus:\nhave %v\nwant %v", s, driver.FramebufferComplete)
	}

	d := newRB(g, driver.DepthComponent16, 32, 64)
	g.FramebufferRenderbuffer(driver.DepthAttachment, d)
	if s := g.CheckFramebufferStatus(); s != driver.FramebufferIncompleteDimensions {
		t.Fatalf("GPU.CheckFramebufferStatus:\nhave %v\nwant %v", s, driver.FramebufferIncompleteDimensions)
	}

	d = newRB(g, driver.DepthComponent16, 64, 64)
	s := newRB(g, driver.StencilIndex8, 64, 64)
	g.FramebufferRenderbuffer(driver.DepthAttachment, d)
	g.FramebufferRenderbuffer(driver.StencilAttachment, s)
	if st := g.CheckFramebufferStatus(); st != driver.FramebufferUnsupported {
		t.Fatalf("GPU.CheckFramebufferStatus:\nhave %v\nwant %v", st, driver.FramebufferUnsupported)
	}

	p := newRB(g, driver.Depth24Stencil8, 64, 64)
	g.FramebufferRenderbuffer(driver.DepthAttachment, p)
	g.FramebufferRenderbuffer(driver.StencilAttachment, p)
	if st := g.CheckFramebufferStatus(); st != driver.FramebufferComplete {
		t.Fatalf("GPU.CheckFramebufferStatus:\nhave %v\nwant %v", st, driver.FramebufferComplete)
	}

	c := newRB(g, driver.DepthComponent16, 64, 64)
	g.FramebufferRenderbuffer(driver.ColorAttachment0, c)
	if st := g.CheckFramebufferStatus(); st != driver.FramebufferIncompleteAttachment {
		t.Fatalf("GPU.CheckFramebufferStatus:\nhave %v\nwant %v", st, driver.FramebufferIncompleteAttachment)
	}
}

const (
	vertSrc = `
attribute vec4 a_position;
attribute vec2 a_texCoord0;
attribute vec4 a_unused;
uniform mat4 u_projTrans;
varying vec2 v_texCoords;
void main() {
	v_texCoords = a_texCoord0;
	gl_Position = u_projTrans * a_position;
}
`
	fragSrc = `
precision mediump float;
varying vec2 v_texCoords;
uniform sampler2D u_texture;
uniform vec4 u_tint[2];
void main() {
	gl_FragColor = texture2D(u_texture, v_texCoords) * u_tint[1];
}
`
)

func link(t *testing.T, g *GPU, vs, fs string) driver.Handle {
	t.Helper()
	prog, _ := g.NewProgram()
	for _, x := range [...]struct {
		stage driver.Enum
		src   string
	}{
		{driver.VertexShader, vs},
		{driver.FragmentShader, fs},
	} {
		s, _ := g.NewShader(x.stage)
		g.ShaderSource(s, x.src)
		g.CompileShader(s)
		if !g.ShaderCompiled(s) {
			t.Fatalf("GPU.CompileShader(%v): %s", x.stage, g.ShaderInfoLog(s))
		}
		g.AttachShader(prog, s)
	}
	g.LinkProgram(prog)
	return prog
}

func TestProgram(t *testing.T) {
	g := New(Tiers["gles2"])
	prog := link(t, g, vertSrc, fragSrc)
	if !g.ProgramLinked(prog) {
		t.Fatalf("GPU.LinkProgram: %s", g.ProgramInfoLog(prog))
	}
	attrs := g.ActiveAttribs(prog)
	if len(attrs) != 2 || attrs[0].Name != "a_position" || attrs[1].Name != "a_texCoord0" {
		t.Fatalf("GPU.ActiveAttribs:\nhave %+v\nwant a_position, a_texCoord0", attrs)
	}
	if attrs[0].Location != 0 || attrs[1].Location != 1 {
		t.Fatalf("GPU.ActiveAttribs: unexpected locations %+v", attrs)
	}
	unifs := g.ActiveUniforms(prog)
	names := make([]string, len(unifs))
	for i := range unifs {
		names[i] = unifs[i].Name
	}
	if strings.Join(names, " ") != "u_projTrans u_texture u_tint[0]" {
		t.Fatalf("GPU.ActiveUniforms:\nhave %v\nwant [u_projTrans u_texture u_tint[0]]", names)
	}
	if unifs[2].Size != 2 || unifs[2].Type != driver.FloatVec4 {
		t.Fatalf("GPU.ActiveUniforms: unexpected u_tint %+v", unifs[2])
	}

	g.UseProgram(prog)
	g.UniformMatrix(unifs[0].Location, 2, true, []float32{1, 2, 3, 4})
	fv, _, ok := g.UniformValue(prog, unifs[0].Location)
	if !ok || fv[1] != 3 || fv[2] != 2 {
		t.Fatalf("GPU.UniformValue:\nhave %v\nwant [1 3 2 4]", fv)
	}

	// Relinking assigns new uniform locations.
	g.LinkProgram(prog)
	if u := g.ActiveUniforms(prog); u[0].Location == unifs[0].Location {
		t.Fatal("GPU.LinkProgram: uniform locations did not change")
	}
}

func TestCompileError(t *testing.T) {
	g := New(Tiers["gles2"])
	s, _ := g.NewShader(driver.FragmentShader)
	g.ShaderSource(s, "void main() {\n#error bad precision\n}\n")
	g.CompileShader(s)
	if g.ShaderCompiled(s) {
		t.Fatal("GPU.CompileShader: unexpected success")
	}
	if log := g.ShaderInfoLog(s); log != "ERROR: 0:2: '#error' : bad precision" {
		t.Fatalf("GPU.ShaderInfoLog:\nhave %q", log)
	}

	s, _ = g.NewShader(driver.VertexShader)
	g.ShaderSource(s, "attribute vec4 a;\n")
	g.CompileShader(s)
	if log := g.ShaderInfoLog(s); !strings.Contains(log, "'main'") {
		t.Fatalf("GPU.ShaderInfoLog:\nhave %q", log)
	}
}

func TestLinkError(t *testing.T) {
	g := New(Tiers["gles2"])
	fs := "precision mediump float;\nvarying vec4 v_color;\nvoid main() { gl_FragColor = v_color; }\n"
	prog := link(t, g, vertSrc, fs)
	if g.ProgramLinked(prog) {
		t.Fatal("GPU.LinkProgram: unexpected success")
	}
	if log := g.ProgramInfoLog(prog); !strings.Contains(log, "v_color") {
		t.Fatalf("GPU.ProgramInfoLog:\nhave %q", log)
	}
}

func TestWGSL(t *testing.T) {
	const src = `
struct Globals {
    mvp: mat4x4<f32>,
}

@group(0) @binding(0) var<uniform> globals: Globals;

@vertex
fn vs_main(@location(0) position: vec2<f32>, @location(1) color: vec4<f32>) -> @builtin(position) vec4<f32> {
    return globals.mvp * vec4<f32>(position, 0.0, 1.0) + color * 0.0;
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`
	g := New(Tiers["gles3"])
	prog := link(t, g, src, src)
	if !g.ProgramLinked(prog) {
		t.Fatalf("GPU.LinkProgram: %s", g.ProgramInfoLog(prog))
	}
	attrs := g.ActiveAttribs(prog)
	if len(attrs) != 2 || attrs[1].Name != "color" || attrs[1].Location != 1 || attrs[1].Type != driver.FloatVec4 {
		t.Fatalf("GPU.ActiveAttribs:\nhave %+v", attrs)
	}
	if u := g.ActiveUniforms(prog); len(u) != 1 || u[0].Name != "globals" {
		t.Fatalf("GPU.ActiveUniforms:\nhave %+v", u)
	}

	const structSrc = `
struct VertexIn {
    @location(0) position: vec3<f32>,
    @location(2) uv: vec2<f32>,
}

@group(0) @binding(0) var<uniform> scale: f32;

@vertex
fn vs_main(v: VertexIn) -> @builtin(position) vec4<f32> {
    return vec4<f32>(v.position * scale, 1.0) + vec4<f32>(v.uv, 0.0, 0.0);
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`
	prog = link(t, g, structSrc, structSrc)
	if !g.ProgramLinked(prog) {
		t.Fatalf("GPU.LinkProgram: %s", g.ProgramInfoLog(prog))
	}
	byName := make(map[string]driver.Active)
	for _, a := range g.ActiveAttribs(prog) {
		byName[a.Name] = a
	}
	for _, x := range [...]driver.Active{
		{Name: "position", Location: 0, Size: 1, Type: driver.FloatVec3},
		{Name: "uv", Location: 2, Size: 1, Type: driver.FloatVec2},
	} {
		if have := byName[x.Name]; have != x {
			t.Fatalf("GPU.ActiveAttribs[%s]:\nhave %+v\nwant %+v", x.Name, have, x)
		}
	}
	if u := g.ActiveUniforms(prog); len(u) != 1 || u[0].Name != "scale" || u[0].Type != driver.Float {
		t.Fatalf("GPU.ActiveUniforms:\nhave %+v", u)
	}

	s, _ := g.NewShader(driver.VertexShader)
	g.ShaderSource(s, "@vertex\nfn vs_main( -> {\n")
	g.CompileShader(s)
	if g.ShaderCompiled(s) || g.ShaderInfoLog(s) == "" {
		t.Fatal("GPU.CompileShader: expected a naga error")
	}
}
