// Package graph implements the render graph: an ordered list of passes whose render targets
// and named parameters are wired together by a two-phase build before any pass runs.
//
// Build first processes every declaration of every pass, including multi-pass children, then
// every reference, then initializes the passes. A pass may therefore reference a name
// declared by a pass added after it. Unknown or duplicate names are programming errors and
// panic.
package graph

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
)

// Graph owns passes and the name maps wiring them.
type Graph struct {
	ctx  *rendering.Context
	size common.Size

	passes []Pass
	// flat is every pass in processing order: each top-level pass followed by its children.
	flat []Pass

	resources     map[string]resource.Texture
	resourceOrder []string
	parameters    map[string]any
	paramOrder    []string
	external      map[string]any
	// declared holds the textures DeclareTexture created, which the graph owns.
	declared []resource.Texture

	built bool
}

// New creates an empty graph rendering at size.
func New(ctx *rendering.Context, size common.Size) *Graph {
	return &Graph{
		ctx:        ctx,
		size:       size,
		resources:  make(map[string]resource.Texture),
		parameters: make(map[string]any),
		external:   make(map[string]any),
	}
}

// Context returns the rendering context passes draw through.
func (g *Graph) Context() *rendering.Context { return g.ctx }

// Size returns the viewport size of the graph.
func (g *Graph) Size() common.Size { return g.size }

// AddPass appends a pass. Multi-passes are expanded into their children immediately.
// Panics when a pass is added twice or a multi-pass child is itself a multi-pass.
func (g *Graph) AddPass(p Pass) {
	g.attach(p)
	g.passes = append(g.passes, p)
	g.flat = append(g.flat, p)

	mp, ok := p.(MultiPass)
	if !ok {
		if p.Parameters().Kind == KindMultiPass {
			panic(fmt.Sprintf("graph: pass %q has kind MultiPass but does not create passes", p.Parameters().Name))
		}
		return
	}
	children := mp.CreatePasses()
	for _, c := range children {
		if _, nested := c.(MultiPass); nested || c.Parameters().Kind == KindMultiPass {
			panic(fmt.Sprintf("graph: multi-pass %q has nested multi-pass %q", p.Parameters().Name, c.Parameters().Name))
		}
		g.attach(c)
		g.flat = append(g.flat, c)
	}
	p.base().children = children
}

func (g *Graph) attach(p Pass) {
	b := p.base()
	if b.graph != nil {
		panic(fmt.Sprintf("graph: pass %q added twice", p.Parameters().Name))
	}
	b.graph = g
}

// Passes returns the top-level passes in add order.
func (g *Graph) Passes() []Pass { return append([]Pass(nil), g.passes...) }

// SetParameter publishes a value from outside any pass, typically frame data owned by the
// renderer. It must be called before Build.
func (g *Graph) SetParameter(name string, v any) {
	if g.built {
		panic(fmt.Sprintf("graph: parameter %q set after build", name))
	}
	g.external[name] = v
}

// Build resolves every declaration and reference and initializes the passes. Building again
// releases the framebuffers and declared textures of the previous build and repeats the
// process.
func (g *Graph) Build() {
	if g.built {
		g.release()
	}
	g.resources = make(map[string]resource.Texture)
	g.parameters = make(map[string]any)
	g.resourceOrder = g.resourceOrder[:0]
	g.paramOrder = g.paramOrder[:0]
	for name, v := range g.external {
		g.parameters[name] = v
	}

	for _, p := range g.flat {
		g.processDeclarations(p.Parameters())
	}
	for _, p := range g.flat {
		g.processReferences(p.Parameters())
	}
	for _, p := range g.flat {
		params := p.Parameters()
		if params.Program != "" && params.shader == nil {
			params.shader = g.ctx.CreateShader(params.Program)
		}
		p.Initialize(g)
	}
	g.built = true
	logger.Logger().Debug("render graph built", "passes", len(g.flat), "resources", len(g.resourceOrder), "parameters", len(g.paramOrder))
}

func (g *Graph) processDeclarations(p *Parameters) {
	if p.Kind == KindBase {
		var colors []resource.AttachmentSpec
		var depth *resource.AttachmentSpec
		for _, d := range p.targetDecls {
			if d.depth {
				if depth != nil {
					panic(fmt.Sprintf("graph: pass %q declares two depth targets", p.Name))
				}
				spec := d.spec
				depth = &spec
				continue
			}
			colors = append(colors, d.spec)
		}
		fb, err := resource.NewFramebuffer(g.ctx.Device(), p.Name, p.sizeFor(g.size), colors, depth)
		if err != nil {
			panic(fmt.Sprintf("graph: pass %q framebuffer: %v", p.Name, err))
		}
		p.framebuffer, p.owned = fb, true

		color := 0
		for _, d := range p.targetDecls {
			if d.depth {
				g.registerResource(p.Name, d.name, fb.DepthAttachment())
				continue
			}
			g.registerResource(p.Name, d.name, fb.Attachment(color))
			color++
		}
	} else if len(p.targetDecls) > 0 {
		panic(fmt.Sprintf("graph: %s pass %q cannot declare render targets", p.Kind, p.Name))
	}

	for _, d := range p.decls {
		v := d.publish(g)
		if d.texture {
			tex, ok := v.(resource.Texture)
			if !ok || tex == nil {
				panic(fmt.Sprintf("graph: pass %q declared texture %q as %T", p.Name, d.name, v))
			}
			g.registerResource(p.Name, d.name, tex)
			g.declared = append(g.declared, tex)
			continue
		}
		if _, dup := g.parameters[d.name]; dup {
			panic(fmt.Sprintf("graph: pass %q redeclares parameter %q", p.Name, d.name))
		}
		g.parameters[d.name] = v
		g.paramOrder = append(g.paramOrder, d.name)
	}
}

func (g *Graph) registerResource(pass, name string, tex resource.Texture) {
	if _, dup := g.resources[name]; dup {
		panic(fmt.Sprintf("graph: pass %q redeclares resource %q", pass, name))
	}
	g.resources[name] = tex
	g.resourceOrder = append(g.resourceOrder, name)
}

func (g *Graph) processReferences(p *Parameters) {
	if p.Kind == KindBase && p.framebuffer == nil {
		fb, err := resource.NewFramebuffer(g.ctx.Device(), p.Name, p.sizeFor(g.size), nil, nil)
		if err != nil {
			panic(fmt.Sprintf("graph: pass %q framebuffer: %v", p.Name, err))
		}
		p.framebuffer, p.owned = fb, true
	}
	if p.Kind != KindBase && len(p.targetRefs) > 0 {
		panic(fmt.Sprintf("graph: %s pass %q cannot reference render targets", p.Kind, p.Name))
	}

	next := 0
	if p.framebuffer != nil {
		next = len(p.framebuffer.Attachments())
	}
	for _, r := range p.targetRefs {
		tex := g.Resource(r.name)
		if r.depth {
			if p.framebuffer.DepthAttachment() != nil {
				panic(fmt.Sprintf("graph: pass %q references depth %q but already has a depth target", p.Name, r.name))
			}
			p.framebuffer.SetDepthAttachment(tex)
			continue
		}
		p.framebuffer.SetAttachment(next, tex)
		next++
	}

	for _, r := range p.refs {
		var v any
		if r.texture {
			v = g.Resource(r.name)
		} else {
			v = g.Parameter(r.name)
		}
		if !r.resolve(v) {
			panic(fmt.Sprintf("graph: pass %q references %q as %s but it holds %T", p.Name, r.name, r.want, v))
		}
	}
}

// Resource returns the texture registered under name. Panics when none is.
func (g *Graph) Resource(name string) resource.Texture {
	tex, ok := g.resources[name]
	if !ok {
		panic(fmt.Sprintf("graph: unknown resource %q", name))
	}
	return tex
}

// HasResource reports whether name is registered.
func (g *Graph) HasResource(name string) bool {
	_, ok := g.resources[name]
	return ok
}

// Parameter returns the parameter published under name. Panics when none is.
func (g *Graph) Parameter(name string) any {
	v, ok := g.parameters[name]
	if !ok {
		panic(fmt.Sprintf("graph: unknown parameter %q", name))
	}
	return v
}

// ResourceNames returns registered resource names in declaration order.
func (g *Graph) ResourceNames() []string { return append([]string(nil), g.resourceOrder...) }

// ParameterNames returns pass-declared parameter names in declaration order.
func (g *Graph) ParameterNames() []string { return append([]string(nil), g.paramOrder...) }

// Resize resizes every pass framebuffer to the pass's size for viewport. Unchanged sizes
// are no-ops. Passes are visited in processing order.
func (g *Graph) Resize(viewport common.Size) {
	g.size = viewport
	for _, p := range g.flat {
		resizeFramebuffer(p.Parameters(), viewport)
	}
}

// ResizePass resizes the framebuffer of p and of its children for viewport. It lets the
// owner of a group of passes resize them without touching the rest of the graph.
func (g *Graph) ResizePass(p Pass, viewport common.Size) {
	resizeFramebuffer(p.Parameters(), viewport)
	for _, c := range p.base().children {
		resizeFramebuffer(c.Parameters(), viewport)
	}
}

func resizeFramebuffer(params *Parameters, viewport common.Size) {
	if params.framebuffer == nil {
		return
	}
	s := params.sizeFor(viewport)
	params.framebuffer.Resize(s.Width, s.Height)
}

// Shaders returns the shaders the graph created for pass programs, in processing order.
func (g *Graph) Shaders() []*resource.Shader {
	var shaders []*resource.Shader
	for _, p := range g.flat {
		if s := p.Parameters().shader; s != nil && p.Parameters().Program != "" {
			shaders = append(shaders, s)
		}
	}
	return shaders
}

// Update runs every top-level pass in add order.
func (g *Graph) Update(dt float32) {
	for _, p := range g.passes {
		g.Execute(p, dt)
	}
}

// Execute runs one pass: PreUpdate, begin, push shader parameters, Update, end. Multi-passes
// only get PreUpdate and Update; they execute their children themselves.
func (g *Graph) Execute(p Pass, dt float32) {
	if !g.built {
		panic(fmt.Sprintf("graph: pass %q executed before build", p.Parameters().Name))
	}
	p.PreUpdate()
	params := p.Parameters()
	if params.Kind == KindMultiPass {
		p.Update(dt)
		return
	}
	g.BeginPass(params)
	p.ShaderParameters().Push(g.ctx)
	p.Update(dt)
	g.EndPass(params)
}

// BeginPass binds the pass's framebuffer and shader and applies its render state.
func (g *Graph) BeginPass(p *Parameters) {
	switch p.Kind {
	case KindBase:
		g.ctx.BeginRenderPass(&rendering.PassSpecification{
			Name:        p.Name,
			Framebuffer: p.framebuffer,
			Shader:      p.shader,
			Blend:       p.Blend,
			Depth:       p.Depth,
			Cull:        p.Cull,
			DepthBias:   p.DepthBias,
			ClearColor:  p.ClearColor,
			ClearDepth:  p.ClearDepth,
		})
	case KindCompute:
		g.ctx.BeginRenderPass(&rendering.PassSpecification{Name: p.Name, Compute: true, Shader: p.shader})
	case KindMultiPass:
	default:
		panic(fmt.Sprintf("graph: unknown pass kind %d", int(p.Kind)))
	}
}

// EndPass rebinds the default framebuffer and resets per-pass context state.
func (g *Graph) EndPass(p *Parameters) {
	if p.Kind == KindMultiPass {
		return
	}
	g.ctx.EndRenderPass()
}

// Release frees every framebuffer and shader the graph created.
func (g *Graph) Release() {
	g.release()
	g.built = false
}

func (g *Graph) release() {
	for _, p := range g.flat {
		params := p.Parameters()
		if params.owned && params.framebuffer != nil {
			params.framebuffer.Release()
		}
		params.framebuffer, params.owned = nil, false
		if params.Program != "" && params.shader != nil {
			params.shader.Release()
			params.shader = nil
		}
	}
	for _, tex := range g.declared {
		tex.Release()
	}
	g.declared = g.declared[:0]
}
