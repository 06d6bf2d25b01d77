package graph

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
)

// Kind selects how the graph begins and ends a pass.
type Kind int

const (
	// KindBase passes render into a framebuffer.
	KindBase Kind = iota
	// KindCompute passes dispatch a compute program.
	KindCompute
	// KindMultiPass passes expand into child passes and do no work of their own.
	KindMultiPass
)

func (k Kind) String() string {
	switch k {
	case KindBase:
		return "Base"
	case KindCompute:
		return "Compute"
	case KindMultiPass:
		return "MultiPass"
	}
	panic(fmt.Sprintf("graph: unknown pass kind %d", int(k)))
}

type targetDeclaration struct {
	name  string
	spec  resource.AttachmentSpec
	depth bool
}

type targetReference struct {
	name  string
	depth bool
}

type declaration struct {
	name    string
	texture bool
	publish func(g *Graph) any
}

type reference struct {
	name    string
	texture bool
	resolve func(value any) bool
	want    string
}

// Parameters is the declared state of one pass: its render state, the render targets it
// creates and attaches, and the named values it publishes to and reads from the graph.
// Declarations and references are processed in the order they were added.
type Parameters struct {
	Name string
	Kind Kind

	// Program names the shader the graph creates for the pass. Empty for none.
	Program string

	Blend      backend.BlendState
	Depth      backend.DepthState
	Cull       backend.CullMode
	DepthBias  float32
	ClearColor *common.Vec4
	ClearDepth *float32

	// Size maps the graph size to the pass framebuffer size. Nil renders at graph size.
	Size func(viewport common.Size) common.Size

	targetDecls []targetDeclaration
	targetRefs  []targetReference
	decls       []declaration
	refs        []reference

	framebuffer resource.Framebuffer
	shader      *resource.Shader
	owned       bool
}

// NewParameters returns parameters for a pass of the given kind.
func NewParameters(name string, kind Kind) *Parameters {
	return &Parameters{Name: name, Kind: kind}
}

// DeclareTarget makes the pass create a color attachment registered under name.
func (p *Parameters) DeclareTarget(name string, spec resource.AttachmentSpec) *Parameters {
	if spec.Name == "" {
		spec.Name = name
	}
	p.targetDecls = append(p.targetDecls, targetDeclaration{name: name, spec: spec})
	return p
}

// DeclareDepthTarget makes the pass create its depth attachment, registered under name.
func (p *Parameters) DeclareDepthTarget(name string, spec resource.AttachmentSpec) *Parameters {
	if spec.Name == "" {
		spec.Name = name
	}
	if !spec.Format.IsDepth() {
		spec.Format = backend.FormatDepth32F
	}
	p.targetDecls = append(p.targetDecls, targetDeclaration{name: name, spec: spec, depth: true})
	return p
}

// ReferenceTarget attaches the render target registered under name as the next color
// attachment of the pass.
func (p *Parameters) ReferenceTarget(name string) *Parameters {
	p.targetRefs = append(p.targetRefs, targetReference{name: name})
	return p
}

// ReferenceDepthTarget attaches the render target registered under name as the depth
// attachment of the pass.
func (p *Parameters) ReferenceDepthTarget(name string) *Parameters {
	p.targetRefs = append(p.targetRefs, targetReference{name: name, depth: true})
	return p
}

// DeclareTexture publishes a texture created at build time under name without attaching it.
// The graph owns the texture and releases it when it is rebuilt or released.
func (p *Parameters) DeclareTexture(name string, create func(g *Graph) resource.Texture, dst *resource.Texture) *Parameters {
	p.decls = append(p.decls, declaration{name: name, texture: true, publish: func(g *Graph) any {
		tex := create(g)
		if dst != nil {
			*dst = tex
		}
		return tex
	}})
	return p
}

// ReferenceTexture stores the texture registered under name into dst.
func (p *Parameters) ReferenceTexture(name string, dst *resource.Texture) *Parameters {
	p.refs = append(p.refs, reference{name: name, texture: true, want: "resource.Texture", resolve: func(v any) bool {
		tex, ok := v.(resource.Texture)
		if ok {
			*dst = tex
		}
		return ok
	}})
	return p
}

// Declare publishes the value create returns as the graph parameter name.
func Declare[T any](p *Parameters, name string, create func(g *Graph) T, dst *T) *Parameters {
	p.decls = append(p.decls, declaration{name: name, publish: func(g *Graph) any {
		v := create(g)
		if dst != nil {
			*dst = v
		}
		return v
	}})
	return p
}

// Reference stores the graph parameter name into dst. The build panics when the parameter
// is missing or holds a different type.
func Reference[T any](p *Parameters, name string, dst *T) *Parameters {
	p.refs = append(p.refs, reference{name: name, want: fmt.Sprintf("%T", dst)[1:], resolve: func(v any) bool {
		x, ok := v.(T)
		if ok {
			*dst = x
		}
		return ok
	}})
	return p
}

// Framebuffer is the framebuffer the graph built for the pass, nil for compute and
// multi-pass kinds.
func (p *Parameters) Framebuffer() resource.Framebuffer { return p.framebuffer }

// Shader is the program created from Program, nil when none was named.
func (p *Parameters) Shader() *resource.Shader { return p.shader }

// SetShader replaces the pass program.
func (p *Parameters) SetShader(s *resource.Shader) { p.shader = s }

func (p *Parameters) sizeFor(viewport common.Size) common.Size {
	if p.Size == nil {
		return viewport
	}
	return p.Size(viewport)
}
