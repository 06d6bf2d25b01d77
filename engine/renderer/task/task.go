// Package task holds the render tasks the renderer composes into a frame. A task owns a group
// of passes in the renderer's graph: Setup adds them before the graph is built, Run executes
// them once per frame and Resize keeps their framebuffers in step with the viewport.
package task

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/temporal"
)

// Placeholder selects one of the constant 1x1 textures bound in place of disabled effects.
type Placeholder int

const (
	// White reads as fully lit, the neutral ambient occlusion value.
	White Placeholder = iota
	// Black reads as no contribution.
	Black
)

// Frame is the camera and viewport state of the frame being rendered.
type Frame struct {
	View       common.Mat4
	Projection common.Mat4
	// ViewProjection carries the TAA jitter when it is active.
	ViewProjection           common.Mat4
	UnjitteredViewProjection common.Mat4
	PreviousViewProjection   common.Mat4
	InverseView              common.Mat4

	CameraPosition common.Vec3
	Fov            float32
	Aspect         float32
	Near           float32
	Far            float32

	Jitter         common.Vec2
	PreviousJitter common.Vec2

	// Frustum is extracted from the unjittered view projection.
	Frustum common.Frustum

	DeltaTime    float32
	RenderSize   common.Size
	ViewportSize common.Size
}

// Host is the renderer as tasks see it.
type Host interface {
	Context() *rendering.Context
	Graph() *graph.Graph
	Settings() *config.RendererConfig

	// Frame returns the state of the current frame. The pointer stays valid for the life
	// of the renderer, so passes may bind its fields once.
	Frame() *Frame

	// GetRenderTarget returns the texture currently backing t. Panics when no task has
	// provided one.
	GetRenderTarget(t target.RenderTarget) resource.Texture

	// SetRenderTarget makes tex back t from now on.
	SetRenderTarget(t target.RenderTarget, tex resource.Texture)

	Placeholder(p Placeholder) resource.Texture

	// History returns the TAA history ring.
	History() *temporal.HistoryRing[resource.Texture]

	// VolumeMesh returns a built-in mesh used to bound light volumes.
	VolumeMesh(id string) *asset.Mesh
}

// Task is one effect of the frame pipeline.
type Task interface {
	Name() string

	// Setup adds the task's passes to the host graph. It runs once, before the graph is
	// built.
	Setup(h Host)

	// Run executes the task's passes for this frame.
	//
	// Parameters:
	//   - components: every scene component, in scene order
	//   - cam: the camera the frame is rendered from
	Run(components []*component.Component, cam camera.Camera)

	// Resize resizes the task's framebuffers for a viewport of size rendered at upscale
	// times its resolution. Repeating a size reallocates nothing.
	Resize(size common.Size, upscale float32)

	// Release frees resources the task created outside the graph.
	Release()
}

// passGroup tracks the top-level passes a task added to the graph.
type passGroup struct {
	host   Host
	passes []graph.Pass
}

func (g *passGroup) add(h Host, passes ...graph.Pass) {
	g.host = h
	for _, p := range passes {
		h.Graph().AddPass(p)
		g.passes = append(g.passes, p)
	}
}

// Resize resizes every pass of the group for the render size of the viewport.
func (g *passGroup) Resize(size common.Size, upscale float32) {
	if g.host == nil {
		return
	}
	render := size.Scaled(upscale)
	for _, p := range g.passes {
		g.host.Graph().ResizePass(p, render)
	}
}

func (g *passGroup) Release() {}

func (g *passGroup) execute(p graph.Pass) {
	g.host.Graph().Execute(p, g.host.Frame().DeltaTime)
}

// fullscreenPass runs its program once over the whole framebuffer.
type fullscreenPass struct {
	graph.BasePass
}

func newFullscreenPass(name, program string) *fullscreenPass {
	p := &fullscreenPass{BasePass: graph.NewBasePass(name, graph.KindBase)}
	p.Parameters().Program = program
	return p
}

func (p *fullscreenPass) Update(float32) { p.Context().DrawFullscreen() }

// containerPass is a multi-pass whose Update hands control to the owning task.
type containerPass struct {
	graph.BasePass
	children []graph.Pass
	run      func(dt float32)
}

func newContainerPass(name string, run func(dt float32), children ...graph.Pass) *containerPass {
	return &containerPass{BasePass: graph.NewBasePass(name, graph.KindMultiPass), children: children, run: run}
}

func (p *containerPass) CreatePasses() []graph.Pass { return p.children }
func (p *containerPass) Update(dt float32)          { p.run(dt) }

// halfSize is the size of passes rendering at half resolution.
func halfSize(render common.Size) common.Size { return render.Scaled(0.5) }

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

// Pipeline returns the built-in tasks in frame order. Emission runs before the lights
// since it clears the light buffer they add to.
func Pipeline() []Task {
	return []Task{
		NewGBuffer(),
		NewEmission(),
		NewPointLight(),
		NewSpotLight(),
		NewDirectionalLight(),
		NewAmbient(),
		NewCombination(),
		NewAntiAliasing(),
		NewBloom(),
		NewResolution(),
	}
}
