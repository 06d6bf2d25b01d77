package shader

import (
	"errors"
	"fmt"
	"os"
	"sort"
)

// ShaderType identifies one stage section of a shader file.
type ShaderType int

const (
	// ShaderTypeCompute indicates a section containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex stage of a render program.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment stage, paired with a vertex stage.
	ShaderTypeFragment

	// ShaderTypeGeometry is accepted by the section splitter but no backend executes it.
	ShaderTypeGeometry
)

// ErrGeometryStage is returned for shaders that declare a geometry section.
var ErrGeometryStage = errors.New("shader: geometry stage is not supported")

func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	case ShaderTypeGeometry:
		return "geometry"
	}
	return fmt.Sprintf("ShaderType(%d)", int(t))
}

// ParseShaderType maps a section marker name to its ShaderType.
func ParseShaderType(name string) (ShaderType, bool) {
	switch name {
	case "vertex":
		return ShaderTypeVertex, true
	case "fragment", "pixel":
		return ShaderTypeFragment, true
	case "geometry":
		return ShaderTypeGeometry, true
	case "compute":
		return ShaderTypeCompute, true
	}
	return 0, false
}

// StageMask is a set of shader stages.
type StageMask uint8

const (
	StageVertex StageMask = 1 << iota
	StageFragment
	StageCompute
)

// Stage returns the mask bit of t.
func (t ShaderType) Stage() StageMask {
	switch t {
	case ShaderTypeVertex:
		return StageVertex
	case ShaderTypeFragment:
		return StageFragment
	case ShaderTypeCompute:
		return StageCompute
	}
	return 0
}

// shader is the implementation of the Shader interface.
type shader struct {
	key           string
	sections      Sections
	source        string
	entryPoints   map[ShaderType]string
	workGroupSize [3]uint32
	bindings      []Binding
	uniforms      *UniformLayout
	vertexInputs  map[int]string
	included      []string
}

// Shader is a parsed program source: its stage sections and the reflection data backends
// need to build pipelines and bind resources by name.
type Shader interface {
	// Key retrieves the unique identifier for this shader.
	Key() string

	// Source retrieves the processed module source (prelude plus every section).
	Source() string

	// Stage retrieves the source of a single stage (prelude plus that section).
	//
	// Parameters:
	//   - t: the stage to retrieve
	//
	// Returns:
	//   - string: the stage source
	//   - bool: false if the file declares no such section
	Stage(t ShaderType) (string, bool)

	// Stages lists declared stages in file order.
	Stages() []ShaderType

	// IsCompute reports whether the shader is a compute program.
	IsCompute() bool

	// EntryPoint returns the entry function for a stage, or "" when absent.
	EntryPoint(t ShaderType) string

	// WorkgroupSize returns the compute workgroup size, [0, 0, 0] for render programs.
	WorkgroupSize() [3]uint32

	// Bindings returns every reflected resource, sorted by group and binding.
	Bindings() []Binding

	// Binding looks up a resource by its variable name.
	//
	// Parameters:
	//   - name: the WGSL variable name
	//
	// Returns:
	//   - Binding: the reflected resource
	//   - bool: false if no resource has that name
	Binding(name string) (Binding, bool)

	// Uniforms returns the flattened uniform buffer layout, or nil if the shader declares none.
	Uniforms() *UniformLayout

	// VertexInputs returns the vertex input locations and their WGSL types.
	VertexInputs() map[int]string

	// Included lists the snippets expanded into the source.
	Included() []string
}

var _ Shader = &shader{}

// ShaderOption configures NewShader.
type ShaderOption func(*shaderOptions)

type shaderOptions struct {
	resolver IncludeResolver
}

// WithIncludes sets the resolver used for `// #include` directives.
func WithIncludes(resolver IncludeResolver) ShaderOption {
	return func(o *shaderOptions) {
		o.resolver = resolver
	}
}

// NewShader preprocesses, splits and reflects a shader source.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - source: the raw file text with `// type` section markers
//   - opts: optional include resolver
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if preprocessing or splitting fails, or the file has a geometry section
func NewShader(key, source string, opts ...ShaderOption) (Shader, error) {
	o := shaderOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	pp := NewPreProcessor(o.resolver)
	processed, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	sections, err := SplitSections(processed)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	if _, ok := sections.Stages[ShaderTypeGeometry]; ok {
		return nil, fmt.Errorf("shader %s: %w", key, ErrGeometryStage)
	}

	s := &shader{
		key:         key,
		sections:    sections,
		source:      sections.Module(),
		entryPoints: make(map[ShaderType]string),
		included:    append([]string(nil), pp.Included()...),
	}
	s.reflect()
	return s, nil
}

// NewShaderFromFile reads a shader file and parses it with NewShader.
func NewShaderFromFile(key, path string, opts ...ShaderOption) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %s: read %q: %w", key, path, err)
	}
	return NewShader(key, string(data), opts...)
}

// reflect collects entry points, bindings with per-stage visibility, the uniform layout,
// the vertex inputs and the workgroup size.
func (s *shader) reflect() {
	var all StageMask
	for _, t := range s.sections.Order {
		all |= t.Stage()
	}

	byName := make(map[string]int)
	add := func(bs []Binding) {
		for _, b := range bs {
			if i, ok := byName[b.Name]; ok {
				s.bindings[i].Stages |= b.Stages
				continue
			}
			byName[b.Name] = len(s.bindings)
			s.bindings = append(s.bindings, b)
		}
	}
	add(parseBindings(s.sections.Prelude, all))
	for _, t := range s.sections.Order {
		add(parseBindings(s.sections.Stages[t], t.Stage()))
		stageSrc, _ := s.sections.Stage(t)
		s.entryPoints[t] = parseEntryPoint(stageSrc, t)
	}
	// Sizes of buffers declared in one section may depend on structs in another.
	for _, b := range parseBindings(s.source, all) {
		if j, ok := byName[b.Name]; ok && s.bindings[j].Size == 0 {
			s.bindings[j].Size = b.Size
		}
	}
	sort.SliceStable(s.bindings, func(i, j int) bool {
		if s.bindings[i].Group != s.bindings[j].Group {
			return s.bindings[i].Group < s.bindings[j].Group
		}
		return s.bindings[i].Binding < s.bindings[j].Binding
	})

	s.uniforms = parseUniformLayout(s.source, s.bindings)
	if src, ok := s.sections.Stage(ShaderTypeVertex); ok {
		s.vertexInputs = parseVertexInputs(src)
	}
	if src, ok := s.sections.Stage(ShaderTypeCompute); ok {
		s.workGroupSize = parseWorkgroupSize(src)
	}
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) Stage(t ShaderType) (string, bool) {
	return s.sections.Stage(t)
}

func (s *shader) Stages() []ShaderType {
	return s.sections.Order
}

func (s *shader) IsCompute() bool {
	_, ok := s.sections.Stages[ShaderTypeCompute]
	return ok
}

func (s *shader) EntryPoint(t ShaderType) string {
	return s.entryPoints[t]
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) Bindings() []Binding {
	return s.bindings
}

func (s *shader) Binding(name string) (Binding, bool) {
	for _, b := range s.bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

func (s *shader) Uniforms() *UniformLayout {
	return s.uniforms
}

func (s *shader) VertexInputs() map[int]string {
	return s.vertexInputs
}

func (s *shader) Included() []string {
	return s.included
}
