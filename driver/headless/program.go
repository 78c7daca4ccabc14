// Copyright 2024 Gustavo C. Viegas. All rights reserved.

package headless

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"

	"github.com/gviegas/glrt/driver"
)

// decl is a variable declared by a shader stage.
type decl struct {
	name    string
	typ     driver.Enum
	size    int
	loc     int
	storage string
	used    bool
}

type shaderObj struct {
	stage    driver.Enum
	src      string
	compiled bool
	log      string
	decls    []decl
}

type programObj struct {
	shaders  []driver.Handle
	linked   bool
	log      string
	attribs  []driver.Active
	uniforms []driver.Active
	fvals    map[int][]float32
	ivals    map[int][]int32
}

// NewShader implements driver.GPU.
func (g *GPU) NewShader(stage driver.Enum) (driver.Handle, error) {
	if stage != driver.VertexShader && stage != driver.FragmentShader {
		return 0, fmt.Errorf("headless: invalid shader stage %v", stage)
	}
	h, err := g.newHandle()
	if err != nil {
		return 0, err
	}
	g.shaders[h] = &shaderObj{stage: stage}
	return h, nil
}

// ShaderSource implements driver.GPU.
func (g *GPU) ShaderSource(h driver.Handle, src string) {
	if s := g.shaders[h]; s != nil {
		s.src = src
	}
}

// CompileShader implements driver.GPU.
// Sources containing WGSL entry point attributes are
// compiled with naga; anything else is treated as GLSL.
func (g *GPU) CompileShader(h driver.Handle) {
	s := g.shaders[h]
	if s == nil {
		g.stats.Errors++
		return
	}
	g.stats.Compiles++
	s.decls = nil
	var err error
	if isWGSL(s.src) {
		s.decls, err = compileWGSL(s.stage, s.src)
	} else {
		s.decls, err = compileGLSL(s.stage, s.src)
	}
	s.compiled = err == nil
	if err != nil {
		s.log = err.Error()
	} else {
		s.log = ""
	}
}

// ShaderCompiled implements driver.GPU.
func (g *GPU) ShaderCompiled(h driver.Handle) bool {
	s := g.shaders[h]
	return s != nil && s.compiled
}

// ShaderInfoLog implements driver.GPU.
func (g *GPU) ShaderInfoLog(h driver.Handle) string {
	if s := g.shaders[h]; s != nil {
		return s.log
	}
	return ""
}

// DeleteShader implements driver.GPU.
func (g *GPU) DeleteShader(h driver.Handle) { delete(g.shaders, h) }

// NewProgram implements driver.GPU.
func (g *GPU) NewProgram() (driver.Handle, error) {
	h, err := g.newHandle()
	if err != nil {
		return 0, err
	}
	g.programs[h] = &programObj{}
	return h, nil
}

// AttachShader implements driver.GPU.
func (g *GPU) AttachShader(prog, shader driver.Handle) {
	p := g.programs[prog]
	if p == nil || g.shaders[shader] == nil || slices.Contains(p.shaders, shader) {
		g.stats.Errors++
		return
	}
	p.shaders = append(p.shaders, shader)
}

// LinkProgram implements driver.GPU.
// Uniform locations depend on how many links were made
// by the GPU, so they are not stable across relinks.
func (g *GPU) LinkProgram(prog driver.Handle) {
	p := g.programs[prog]
	if p == nil {
		g.stats.Errors++
		return
	}
	g.stats.Links++
	p.linked = false
	p.attribs, p.uniforms = nil, nil
	p.fvals = make(map[int][]float32)
	p.ivals = make(map[int][]int32)

	var vs, fs *shaderObj
	for _, h := range p.shaders {
		s := g.shaders[h]
		switch {
		case s == nil:
			continue
		case !s.compiled:
			p.log = "error: attached shader is not compiled"
			return
		case s.stage == driver.VertexShader:
			vs = s
		default:
			fs = s
		}
	}
	switch {
	case vs == nil:
		p.log = "error: missing vertex shader"
		return
	case fs == nil:
		p.log = "error: missing fragment shader"
		return
	}

	// Fragment inputs must be written by the vertex stage.
	for _, in := range fs.decls {
		if in.storage != "in" {
			continue
		}
		i := slices.IndexFunc(vs.decls, func(d decl) bool { return d.storage == "out" && d.name == in.name })
		switch {
		case i < 0:
			p.log = fmt.Sprintf("error: varying '%s' is not written by the vertex shader", in.name)
			return
		case vs.decls[i].typ != in.typ:
			p.log = fmt.Sprintf("error: varying '%s' has mismatched types", in.name)
			return
		}
	}

	nloc := 0
	for _, d := range vs.decls {
		if d.storage == "attribute" && d.loc >= 0 {
			nloc = max(nloc, d.loc+1)
		}
	}
	for _, d := range vs.decls {
		if d.storage != "attribute" || !d.used {
			continue
		}
		loc := d.loc
		if loc < 0 {
			loc = nloc
			nloc++
		}
		p.attribs = append(p.attribs, driver.Active{Name: d.name, Location: loc, Size: d.size, Type: d.typ})
	}

	g.links++
	base := (g.links * 3) % 7
	seen := make(map[string]driver.Enum)
	for _, s := range [2]*shaderObj{vs, fs} {
		for _, d := range s.decls {
			if d.storage != "uniform" {
				continue
			}
			if t, ok := seen[d.name]; ok {
				if t != d.typ {
					p.log = fmt.Sprintf("error: uniform '%s' declared with different types", d.name)
					p.attribs, p.uniforms = nil, nil
					return
				}
				continue
			}
			seen[d.name] = d.typ
			if !d.used {
				continue
			}
			name := d.name
			if d.size > 1 {
				name += "[0]"
			}
			p.uniforms = append(p.uniforms, driver.Active{Name: name, Location: base, Size: d.size, Type: d.typ})
			base += d.size
		}
	}
	p.linked = true
	p.log = ""
}

// ProgramLinked implements driver.GPU.
func (g *GPU) ProgramLinked(prog driver.Handle) bool {
	p := g.programs[prog]
	return p != nil && p.linked
}

// ProgramInfoLog implements driver.GPU.
func (g *GPU) ProgramInfoLog(prog driver.Handle) string {
	if p := g.programs[prog]; p != nil {
		return p.log
	}
	return ""
}

// ActiveAttribs implements driver.GPU.
func (g *GPU) ActiveAttribs(prog driver.Handle) []driver.Active {
	if p := g.programs[prog]; p != nil && p.linked {
		return slices.Clone(p.attribs)
	}
	return nil
}

// ActiveUniforms implements driver.GPU.
func (g *GPU) ActiveUniforms(prog driver.Handle) []driver.Active {
	if p := g.programs[prog]; p != nil && p.linked {
		return slices.Clone(p.uniforms)
	}
	return nil
}

// UseProgram implements driver.GPU.
func (g *GPU) UseProgram(prog driver.Handle) {
	if prog != 0 && !g.ProgramLinked(prog) {
		g.stats.Errors++
		return
	}
	g.curProg = prog
}

// CurrentProgram returns the program in use.
func (g *GPU) CurrentProgram() driver.Handle { return g.curProg }

// DeleteProgram implements driver.GPU.
func (g *GPU) DeleteProgram(prog driver.Handle) {
	delete(g.programs, prog)
	if g.curProg == prog {
		g.curProg = 0
	}
}

func (g *GPU) uniformTarget(loc int) *programObj {
	if loc == -1 {
		return nil
	}
	p := g.programs[g.curProg]
	if p == nil {
		g.stats.Errors++
	}
	return p
}

// Uniformi implements driver.GPU.
func (g *GPU) Uniformi(loc int, comps int, v []int32) {
	if p := g.uniformTarget(loc); p != nil {
		p.ivals[loc] = slices.Clone(v)
	}
}

// Uniformf implements driver.GPU.
func (g *GPU) Uniformf(loc int, comps int, v []float32) {
	if p := g.uniformTarget(loc); p != nil {
		p.fvals[loc] = slices.Clone(v)
	}
}

// UniformMatrix implements driver.GPU.
func (g *GPU) UniformMatrix(loc int, dim int, transpose bool, v []float32) {
	p := g.uniformTarget(loc)
	if p == nil {
		return
	}
	if transpose {
		v = slices.Clone(v)
		n := dim * dim
		for m := 0; m+n <= len(v); m += n {
			for i := range dim {
				for j := i + 1; j < dim; j++ {
					v[m+i*dim+j], v[m+j*dim+i] = v[m+j*dim+i], v[m+i*dim+j]
				}
			}
		}
	}
	p.fvals[loc] = slices.Clone(v)
}

// UniformValue returns the last value set for the uniform
// at loc of prog. Only one of fv and iv is non-nil.
func (g *GPU) UniformValue(prog driver.Handle, loc int) (fv []float32, iv []int32, ok bool) {
	p := g.programs[prog]
	if p == nil {
		return
	}
	if fv, ok = p.fvals[loc]; ok {
		return
	}
	iv, ok = p.ivals[loc]
	return
}

var (
	lineComment  = regexp.MustCompile(`//[^\n]*`)
	blockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	glslMain     = regexp.MustCompile(`\bvoid\s+main\s*\(`)
	glslDecl     = regexp.MustCompile(`(?m)^\s*(?:layout\s*\(\s*location\s*=\s*(\d+)\s*\)\s*)?` +
		`(attribute|uniform|varying|in|out)\s+(?:(?:highp|mediump|lowp|flat|smooth)\s+)*` +
		`(\w+)\s+(\w+)\s*(?:\[\s*(\d+)\s*\])?\s*;`)
)

var glslTypes = map[string]driver.Enum{
	"float":       driver.Float,
	"vec2":        driver.FloatVec2,
	"vec3":        driver.FloatVec3,
	"vec4":        driver.FloatVec4,
	"int":         driver.Int,
	"ivec2":       driver.IntVec2,
	"ivec3":       driver.IntVec3,
	"ivec4":       driver.IntVec4,
	"bool":        driver.Bool,
	"mat2":        driver.FloatMat2,
	"mat3":        driver.FloatMat3,
	"mat4":        driver.FloatMat4,
	"sampler2D":   driver.Sampler2D,
	"samplerCube": driver.SamplerCube,
}

// stripComments replaces comments with spaces so that
// byte offsets (and thus line numbers) are preserved.
func stripComments(src string) string {
	blank := func(s string) string {
		return strings.Map(func(r rune) rune {
			if r == '\n' {
				return r
			}
			return ' '
		}, s)
	}
	src = blockComment.ReplaceAllStringFunc(src, blank)
	return lineComment.ReplaceAllStringFunc(src, blank)
}

func lineOf(src string, off int) int { return 1 + strings.Count(src[:off], "\n") }

// compileGLSL checks the structure of a GLSL stage and
// collects its interface declarations.
// Only one variable per declaration is recognized.
func compileGLSL(stage driver.Enum, src string) ([]decl, error) {
	code := stripComments(src)
	if i := strings.Index(code, "#error"); i >= 0 {
		end := strings.IndexByte(code[i:], '\n')
		if end < 0 {
			end = len(code) - i
		}
		msg := strings.TrimSpace(code[i+len("#error") : i+end])
		return nil, fmt.Errorf("ERROR: 0:%d: '#error' : %s", lineOf(code, i), msg)
	}
	if strings.Count(code, "{") != strings.Count(code, "}") {
		return nil, fmt.Errorf("ERROR: 0:%d: '' : syntax error: unbalanced braces", lineOf(code, len(code)))
	}
	if !glslMain.MatchString(code) {
		return nil, fmt.Errorf("ERROR: 0:%d: 'main' : function not defined", lineOf(code, len(code)))
	}
	var decls []decl
	for _, m := range glslDecl.FindAllStringSubmatchIndex(code, -1) {
		storage := code[m[4]:m[5]]
		tname := code[m[6]:m[7]]
		name := code[m[8]:m[9]]
		typ, ok := glslTypes[tname]
		if !ok {
			return nil, fmt.Errorf("ERROR: 0:%d: '%s' : syntax error", lineOf(code, m[6]), tname)
		}
		switch storage {
		case "varying":
			if stage == driver.VertexShader {
				storage = "out"
			} else {
				storage = "in"
			}
		case "in":
			if stage == driver.VertexShader {
				storage = "attribute"
			}
		case "out":
			if stage == driver.FragmentShader {
				continue
			}
		case "attribute":
			if stage == driver.FragmentShader {
				return nil, fmt.Errorf("ERROR: 0:%d: 'attribute' : supported in vertex shaders only", lineOf(code, m[4]))
			}
		}
		d := decl{name: name, typ: typ, size: 1, loc: -1, storage: storage}
		if m[2] >= 0 {
			d.loc, _ = strconv.Atoi(code[m[2]:m[3]])
		}
		if m[10] >= 0 {
			d.size, _ = strconv.Atoi(code[m[10]:m[11]])
		}
		rest := code[:m[0]] + code[m[1]:]
		d.used = regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`).MatchString(rest)
		decls = append(decls, d)
	}
	return decls, nil
}

func isWGSL(src string) bool {
	return strings.Contains(src, "@vertex") || strings.Contains(src, "@fragment")
}

// compileWGSL parses, lowers and validates a WGSL module
// with naga, then reflects the inputs of its vertex entry
// point and its uniform bindings from the IR.
// Uniforms of struct type are reported with a zero type.
func compileWGSL(stage driver.Enum, src string) ([]decl, error) {
	want, name := ir.StageVertex, "vertex"
	if stage == driver.FragmentShader {
		want, name = ir.StageFragment, "fragment"
	}
	ast, err := naga.Parse(src)
	if err != nil {
		return nil, err
	}
	m, err := naga.LowerWithSource(ast, src)
	if err != nil {
		return nil, err
	}
	verrs, err := naga.Validate(m)
	if err != nil {
		return nil, err
	}
	if len(verrs) > 0 {
		return nil, verrs[0]
	}
	i := slices.IndexFunc(m.EntryPoints, func(e ir.EntryPoint) bool { return e.Stage == want })
	if i < 0 {
		return nil, fmt.Errorf("error: missing @%s entry point", name)
	}
	var decls []decl
	if stage == driver.VertexShader {
		for _, a := range m.EntryPoints[i].Function.Arguments {
			decls = wgslInputs(decls, m, a.Name, a.Type, a.Binding)
		}
	}
	for _, v := range m.GlobalVariables {
		if v.Space != ir.SpaceUniform {
			continue
		}
		decls = append(decls, decl{
			name:    v.Name,
			typ:     wgslType(m, v.Type),
			size:    1,
			loc:     -1,
			storage: "uniform",
			used:    true,
		})
	}
	return decls, nil
}

// wgslInputs appends the vertex inputs of an entry point
// argument to decls. Struct arguments contribute one
// input per member with a location; built-ins are
// skipped.
func wgslInputs(decls []decl, m *ir.Module, name string, typ ir.TypeHandle, b *ir.Binding) []decl {
	if b != nil {
		if lb, ok := (*b).(ir.LocationBinding); ok {
			decls = append(decls, decl{
				name:    name,
				typ:     wgslType(m, typ),
				size:    1,
				loc:     int(lb.Location),
				storage: "attribute",
				used:    true,
			})
		}
		return decls
	}
	if int(typ) >= len(m.Types) {
		return decls
	}
	if st, ok := m.Types[typ].Inner.(ir.StructType); ok {
		for _, mem := range st.Members {
			decls = wgslInputs(decls, m, mem.Name, mem.Type, mem.Binding)
		}
	}
	return decls
}

// wgslType maps an IR type to the type reported by
// ActiveAttribs and ActiveUniforms.
func wgslType(m *ir.Module, typ ir.TypeHandle) driver.Enum {
	if int(typ) >= len(m.Types) {
		return 0
	}
	switch t := m.Types[typ].Inner.(type) {
	case ir.ScalarType:
		switch t.Kind {
		case ir.ScalarFloat:
			return driver.Float
		case ir.ScalarSint:
			return driver.Int
		case ir.ScalarBool:
			return driver.Bool
		}
	case ir.VectorType:
		var vecs [3]driver.Enum
		switch t.Scalar.Kind {
		case ir.ScalarFloat:
			vecs = [3]driver.Enum{driver.FloatVec2, driver.FloatVec3, driver.FloatVec4}
		case ir.ScalarSint:
			vecs = [3]driver.Enum{driver.IntVec2, driver.IntVec3, driver.IntVec4}
		default:
			return 0
		}
		if t.Size >= ir.Vec2 && t.Size <= ir.Vec4 {
			return vecs[t.Size-ir.Vec2]
		}
	case ir.MatrixType:
		if t.Scalar.Kind != ir.ScalarFloat || t.Columns != t.Rows {
			return 0
		}
		switch t.Columns {
		case ir.Vec2:
			return driver.FloatMat2
		case ir.Vec3:
			return driver.FloatMat3
		case ir.Vec4:
			return driver.FloatMat4
		}
	}
	return 0
}
