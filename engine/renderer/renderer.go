// Package renderer composes the render tasks into a deferred frame. The renderer owns the
// render graph, the logical render target map, the TAA jitter and history state and the
// tunables every task reads.
package renderer

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/profiler"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/task"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/temporal"
	"github.com/KlishchD/EdEngine-sub000/engine/scene"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	ctx      *rendering.Context
	assets   asset.Manager
	library  *programs.Library
	settings config.RendererConfig

	graph   *graph.Graph
	tasks   []task.Task
	targets map[target.RenderTarget]resource.Texture

	frame    task.Frame
	viewport common.Size
	pending  common.Size

	history     *temporal.HistoryRing[resource.Texture]
	jitter      *temporal.JitterSequence
	jitterIndex int
	jittering   bool
	previous    common.Mat4
	hasPrevious bool

	volumes      map[string]*asset.Mesh
	placeholders map[task.Placeholder]*asset.Texture

	profiler *profiler.Profiler
	frames   uint64
}

// Renderer defines the interface for the deferred renderer.
//
// The renderer runs a fixed sequence of render tasks every frame: G-buffer, emission,
// point, spot and directional lights, ambient occlusion, combination, anti-aliasing,
// bloom and resolution. Tasks find each other's outputs through logical render targets,
// so the texture behind a target can change from frame to frame.
//
// A Renderer is driven from one goroutine. Other goroutines reach it through
// Context().SubmitRenderCommand, whose commands run at the start of the next Update.
type Renderer interface {
	task.Host
	Tunables

	// Update renders one frame of s seen through cam and presents the viewport texture.
	//
	// Parameters:
	//   - dt: elapsed time since the previous frame in seconds
	//   - s: the scene to draw
	//   - cam: the camera to draw from; nil uses the scene's camera
	//
	// Returns:
	//   - error: a device failure beginning, ending or presenting the frame
	Update(dt float32, s scene.Scene, cam camera.Camera) error

	// GetViewportTexture returns the texture shown in the viewport: the debug target when
	// one is selected, the Viewport target otherwise.
	GetViewportTexture() resource.Texture

	// ResizeViewport records the viewport size. Framebuffers follow at the start of the
	// next Update.
	//
	// Parameters:
	//   - size: the new viewport size in pixels
	ResizeViewport(size common.Size)

	// ViewportSize returns the size framebuffers currently match.
	ViewportSize() common.Size

	// Tasks returns the tasks in frame order.
	Tasks() []task.Task

	// HistoryIndex returns the active slot of the TAA history ring.
	HistoryIndex() int

	// JitterIndex returns the position of the next frame in the jitter sequence.
	JitterIndex() int

	// Frames returns the number of frames rendered.
	Frames() uint64

	// WatchShaders recompiles programs when their sources below dir change. Recompilation
	// runs as a render command, between frames.
	//
	// Parameters:
	//   - dir: the shader override directory
	//
	// Returns:
	//   - func() error: stops watching
	//   - error: an error if the directory cannot be watched
	WatchShaders(dir string) (func() error, error)

	// DumpRenderTarget reads a target back and writes it as an image. The format follows
	// the file extension: .png, .jpg/.jpeg or .bmp.
	//
	// Parameters:
	//   - t: the target to dump
	//   - path: the output file
	//
	// Returns:
	//   - error: a readback, encode or write failure
	DumpRenderTarget(t target.RenderTarget, path string) error

	// Timings returns the average run time of every task over the last profiling interval.
	Timings() []profiler.Timing

	// Release frees every resource the renderer and its tasks created.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a renderer drawing through ctx and runs every task's Setup.
//
// Parameters:
//   - ctx: the rendering context of the device to draw on
//   - assets: the manager the built-in volume meshes and placeholder textures load from
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the renderer, ready for Update
//   - error: invalid settings or a failure creating renderer-owned resources
func NewRenderer(ctx *rendering.Context, assets asset.Manager, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		ctx:          ctx,
		assets:       assets,
		settings:     config.Default().Renderer,
		viewport:     common.Size{Width: 1280, Height: 720},
		targets:      make(map[target.RenderTarget]resource.Texture),
		volumes:      make(map[string]*asset.Mesh),
		placeholders: make(map[task.Placeholder]*asset.Texture),
	}
	for _, option := range options {
		option(r)
	}
	if err := r.settings.Validate(); err != nil {
		return nil, err
	}
	if r.settings.DebugTarget != "" {
		if _, err := target.Parse(r.settings.DebugTarget); err != nil {
			return nil, fmt.Errorf("%w: %w", config.ErrInvalid, err)
		}
	}
	if r.viewport.Empty() {
		return nil, fmt.Errorf("%w: viewport size %s", config.ErrInvalid, r.viewport)
	}
	if r.tasks == nil {
		r.tasks = task.Pipeline()
	}
	if r.profiler == nil {
		r.profiler = profiler.NewProfiler()
	}
	r.pending = r.viewport
	r.frame.ViewportSize = r.viewport
	r.frame.RenderSize = r.viewport.Scaled(r.settings.RenderScale)

	if err := r.loadBuiltins(); err != nil {
		r.releaseBuiltins()
		return nil, err
	}
	if err := r.createHistory(); err != nil {
		r.releaseBuiltins()
		return nil, err
	}
	r.jitter = temporal.NewJitterSequence(r.settings.JitterLength)

	r.graph = graph.New(ctx, r.frame.RenderSize)
	for _, t := range r.tasks {
		t.Setup(r)
	}
	r.graph.Build()
	ctx.Device().Resize(r.viewport)
	for _, t := range target.All() {
		if r.graph.HasResource(t.String()) {
			r.targets[t] = r.graph.Resource(t.String())
		}
	}

	logger.Logger().Info("renderer created",
		"backend", ctx.Device().Type(),
		"viewport", r.viewport.String(),
		"render", r.frame.RenderSize.String(),
		"tasks", len(r.tasks),
		"aa", string(r.settings.AA))
	return r, nil
}

func (r *renderer) loadBuiltins() error {
	for _, id := range []string{asset.SphereMesh, asset.ConeMesh} {
		m, err := r.assets.LoadMesh(id)
		if err != nil {
			return fmt.Errorf("failed to load light volume %s: %w", id, err)
		}
		r.volumes[id] = m
	}
	for p, id := range map[task.Placeholder]string{task.White: asset.WhiteTexture, task.Black: asset.BlackTexture} {
		tex, err := r.assets.LoadTexture(id)
		if err != nil {
			return fmt.Errorf("failed to load placeholder %s: %w", id, err)
		}
		r.placeholders[p] = tex
	}
	return nil
}

func (r *renderer) releaseBuiltins() {
	for id, m := range r.volumes {
		r.assets.Release(m)
		delete(r.volumes, id)
	}
	for p, tex := range r.placeholders {
		r.assets.Release(tex)
		delete(r.placeholders, p)
	}
	if r.history != nil {
		for _, slot := range r.history.Slots() {
			slot.Release()
		}
		r.history = nil
	}
}

func (r *renderer) createHistory() error {
	slots := make([]resource.Texture, r.settings.HistorySize)
	for i := range slots {
		tex, err := resource.NewTexture2D(r.ctx.Device(), fmt.Sprintf("TAAHistory%d", i), backend.FormatRGBA16F, r.frame.RenderSize)
		if err != nil {
			for _, s := range slots[:i] {
				s.Release()
			}
			return fmt.Errorf("failed to create TAA history: %w", err)
		}
		slots[i] = tex
	}
	r.history = temporal.NewHistoryRing(slots)
	return nil
}

func (r *renderer) Context() *rendering.Context                      { return r.ctx }
func (r *renderer) Graph() *graph.Graph                              { return r.graph }
func (r *renderer) Settings() *config.RendererConfig                 { return &r.settings }
func (r *renderer) Frame() *task.Frame                               { return &r.frame }
func (r *renderer) Tasks() []task.Task                               { return append([]task.Task(nil), r.tasks...) }
func (r *renderer) History() *temporal.HistoryRing[resource.Texture] { return r.history }
func (r *renderer) HistoryIndex() int                                { return r.history.ActiveIndex() }
func (r *renderer) JitterIndex() int                                 { return r.jitterIndex }
func (r *renderer) Frames() uint64                                   { return r.frames }
func (r *renderer) ViewportSize() common.Size                        { return r.viewport }
func (r *renderer) Timings() []profiler.Timing                       { return r.profiler.Timings() }

func (r *renderer) GetRenderTarget(t target.RenderTarget) resource.Texture {
	tex, ok := r.targets[t]
	if !ok || tex == nil {
		panic(fmt.Sprintf("renderer: render target %s has no texture", t))
	}
	return tex
}

func (r *renderer) SetRenderTarget(t target.RenderTarget, tex resource.Texture) {
	r.targets[t] = tex
}

func (r *renderer) GetViewportTexture() resource.Texture {
	if t, ok := r.DebugTarget(); ok {
		if tex, ok := r.targets[t]; ok && tex != nil {
			return tex
		}
	}
	return r.GetRenderTarget(target.Viewport)
}

func (r *renderer) Placeholder(p task.Placeholder) resource.Texture {
	tex, ok := r.placeholders[p]
	if !ok {
		panic(fmt.Sprintf("renderer: unknown placeholder %d", int(p)))
	}
	return tex.Texture
}

func (r *renderer) VolumeMesh(id string) *asset.Mesh {
	m, ok := r.volumes[id]
	if !ok {
		panic(fmt.Sprintf("renderer: no light volume mesh %q", id))
	}
	return m
}

func (r *renderer) ResizeViewport(size common.Size) {
	if size.Empty() {
		return
	}
	r.pending = size
}

func (r *renderer) Update(dt float32, s scene.Scene, cam camera.Camera) error {
	if cam == nil {
		cam = s.Camera()
	}
	r.applyResize()
	r.ctx.ExecuteCommands()
	r.prepareFrame(dt, cam)

	if err := r.ctx.BeginFrame(); err != nil {
		return fmt.Errorf("failed to begin frame: %w", err)
	}
	components := s.GetAllComponents()
	for _, t := range r.tasks {
		r.profiler.Measure(t.Name(), func() { t.Run(components, cam) })
	}
	r.ctx.RenderUI()
	if err := r.ctx.EndFrame(); err != nil {
		return fmt.Errorf("failed to end frame: %w", err)
	}
	if err := r.ctx.Present(r.GetViewportTexture()); err != nil {
		return fmt.Errorf("failed to present frame: %w", err)
	}

	r.previous = r.frame.UnjitteredViewProjection
	r.hasPrevious = true
	s.SnapshotTransforms()
	r.frames++
	r.profiler.Tick()
	return nil
}

// applyResize resizes every task for the pending viewport size, in task order, before
// any pass of the frame runs.
func (r *renderer) applyResize() {
	if r.pending == r.viewport {
		return
	}
	r.viewport = r.pending
	r.frame.ViewportSize = r.viewport
	r.frame.RenderSize = r.viewport.Scaled(r.settings.RenderScale)
	for _, t := range r.tasks {
		t.Resize(r.viewport, r.settings.RenderScale)
	}
	resized := false
	for _, slot := range r.history.Slots() {
		resized = slot.Resize(r.frame.RenderSize.Width, r.frame.RenderSize.Height) || resized
	}
	if resized {
		r.history.Reset()
	}
	r.ctx.Device().Resize(r.viewport)
	logger.Logger().Debug("renderer resized", "viewport", r.viewport.String(), "render", r.frame.RenderSize.String())
}

// prepareFrame computes the camera state of the frame. While TAA is active the projection
// is offset by the next jitter sample; entering TAA invalidates the history.
func (r *renderer) prepareFrame(dt float32, cam camera.Camera) {
	f := &r.frame
	if aspect := f.ViewportSize.Aspect(); cam.Aspect() != aspect {
		cam.SetAspect(aspect)
	}

	taa := r.settings.AA == config.AATAA
	if taa && !r.jittering {
		r.history.Reset()
	}
	r.jittering = taa

	view := cam.ViewMatrix()
	projection := cam.ProjectionMatrix()
	unjittered := projection.Mul(view)

	f.PreviousJitter = f.Jitter
	f.Jitter = common.Vec2{}
	if r.jittering {
		f.Jitter = r.jitter.Jitter(r.jitterIndex, f.RenderSize)
		r.jitterIndex = (r.jitterIndex + 1) % r.jitter.Len()
		projection = common.Translate(common.Vec3{f.Jitter[0], f.Jitter[1], 0}).Mul(projection)
	}

	f.View = view
	f.Projection = projection
	f.ViewProjection = projection.Mul(view)
	f.UnjitteredViewProjection = unjittered
	f.PreviousViewProjection = unjittered
	if r.hasPrevious {
		f.PreviousViewProjection = r.previous
	}
	f.InverseView = cam.InverseViewMatrix()
	f.CameraPosition = cam.Position()
	f.Fov, f.Aspect, f.Near, f.Far = cam.Fov(), cam.Aspect(), cam.Near(), cam.Far()
	f.Frustum = common.ExtractFrustum(unjittered)
	f.DeltaTime = dt
}

func (r *renderer) Release() {
	for i := len(r.tasks) - 1; i >= 0; i-- {
		r.tasks[i].Release()
	}
	if r.graph != nil {
		r.graph.Release()
	}
	r.releaseBuiltins()
	clear(r.targets)
}
