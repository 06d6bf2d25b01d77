package graph

import "github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"

// Pass is one unit of GPU work in a graph. Implementations embed BasePass and override the
// lifecycle methods they need.
type Pass interface {
	Parameters() *Parameters
	ShaderParameters() *ShaderParameters

	// Initialize runs once after every declaration and reference has been resolved.
	Initialize(g *Graph)

	// PreUpdate runs every frame before the pass is begun.
	PreUpdate()

	// Update issues the pass's draws. The pass has been begun and its shader parameters
	// pushed.
	Update(dt float32)

	base() *BasePass
}

// MultiPass is a pass that expands into children when added to a graph. Children must be
// Base or Compute passes; the container runs them itself from Update.
type MultiPass interface {
	Pass
	CreatePasses() []Pass
}

// BasePass holds the state every pass shares.
type BasePass struct {
	graph    *Graph
	params   *Parameters
	shader   *ShaderParameters
	children []Pass
}

// NewBasePass returns the shared state of a pass.
//
// Parameters:
//   - name: pass name, used in labels and diagnostics
//   - kind: how the graph begins and ends the pass
//
// Returns:
//   - BasePass: value to embed in a pass implementation
func NewBasePass(name string, kind Kind) BasePass {
	return BasePass{params: NewParameters(name, kind), shader: NewShaderParameters()}
}

func (b *BasePass) base() *BasePass                     { return b }
func (b *BasePass) Parameters() *Parameters             { return b.params }
func (b *BasePass) ShaderParameters() *ShaderParameters { return b.shader }
func (b *BasePass) Name() string                        { return b.params.Name }
func (b *BasePass) Initialize(*Graph)                   {}
func (b *BasePass) PreUpdate()                          {}
func (b *BasePass) Update(float32)                      {}

// Graph returns the graph the pass was added to.
func (b *BasePass) Graph() *Graph { return b.graph }

// Context returns the rendering context of the owning graph.
func (b *BasePass) Context() *rendering.Context { return b.graph.ctx }

// Children returns the expanded children of a multi-pass.
func (b *BasePass) Children() []Pass { return b.children }
