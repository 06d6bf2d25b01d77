// Package rendering implements the RenderingContext: the stateful facade passes draw
// through. It tracks the bound framebuffer, shader, fixed-function state, uniforms and
// texture slots, and opens backend render passes lazily so that switching targets inside
// one logical pass (cube faces, cascades) only costs a backend pass boundary.
package rendering

import (
	"fmt"
	"sync"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
)

// Command is a closure queued for execution on the render thread.
type Command func(ctx *Context)

// ProgramProvider supplies program sources by name.
type ProgramProvider interface {
	Program(name string) (backend.ProgramSource, error)
}

// PassSpecification is the state a pass begins with.
type PassSpecification struct {
	Name        string
	Compute     bool
	Framebuffer resource.Framebuffer
	Shader      *resource.Shader

	Blend      backend.BlendState
	Depth      backend.DepthState
	Cull       backend.CullMode
	DepthBias  float32
	ClearColor *common.Vec4
	ClearDepth *float32
}

type slot struct {
	name string
	tex  resource.Texture
}

// Context is the RenderingContext. Its drawing state is owned by the render thread; only
// SubmitRenderCommand may be called from other goroutines.
type Context struct {
	dev      backend.Device
	programs ProgramProvider

	mu       sync.Mutex
	commands []Command

	framebuffer resource.Framebuffer
	shader      *resource.Shader
	state       backend.PipelineState
	clearColor  *common.Vec4
	clearDepth  *float32
	passOpen    bool

	uniforms  backend.Uniforms
	slots     []slot
	slotIndex map[string]int
	images    []backend.TextureBinding

	active       *PassSpecification
	lightCounter int
	drawCalls    int
	ui           func(ctx *Context)

}

// NewContext creates a context drawing on dev. programs may be nil when shaders are only
// created from explicit sources.
func NewContext(dev backend.Device, programs ProgramProvider) *Context {
	return &Context{
		dev:       dev,
		programs:  programs,
		uniforms:  make(backend.Uniforms),
		slotIndex: make(map[string]int),
	}
}

// Device returns the backend device.
func (c *Context) Device() backend.Device { return c.dev }

// MaxTextureSlots is the per-pass texture slot capacity.
func (c *Context) MaxTextureSlots() int { return c.dev.Limits().MaxTextureSlots }

// SubmitRenderCommand queues cmd to run at the next ExecuteCommands. Safe for concurrent use.
func (c *Context) SubmitRenderCommand(cmd Command) {
	c.mu.Lock()
	c.commands = append(c.commands, cmd)
	c.mu.Unlock()
}

// ExecuteCommands runs, in submission order, every command queued before the call.
// Commands queued while draining run on the next call.
func (c *Context) ExecuteCommands() int {
	c.mu.Lock()
	pending := c.commands
	c.commands = nil
	c.mu.Unlock()

	for _, cmd := range pending {
		cmd(c)
	}
	return len(pending)
}

// PendingCommands reports the number of queued commands.
func (c *Context) PendingCommands() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.commands)
}

// BeginFrame starts a frame on the device and resets the frame's draw counter.
func (c *Context) BeginFrame() error {
	if err := c.dev.BeginFrame(); err != nil {
		return err
	}
	c.drawCalls = 0
	return nil
}

// EndFrame closes any open pass and submits the frame.
func (c *Context) EndFrame() error {
	c.closePass()
	return c.dev.EndFrame()
}

func (c *Context) DrawCalls() int { return c.drawCalls }

// ReadTexture reads one layer of tex back after flushing the open pass.
//
// Parameters:
//   - tex: the texture to read
//   - layer: the cube face or array layer, 0 for 2D textures
//
// Returns:
//   - []common.Vec4: row-major pixels, row 0 at the top
//   - error: the device readback error
func (c *Context) ReadTexture(tex resource.Texture, layer int) ([]common.Vec4, error) {
	c.closePass()
	return c.dev.ReadTexture(tex.Handle(), layer)
}

// Present shows tex on the device surface.
func (c *Context) Present(tex resource.Texture) error {
	c.closePass()
	return c.dev.Present(tex.Handle())
}

// CreateTexture allocates a texture.
func (c *Context) CreateTexture(desc backend.TextureDescriptor) (resource.Texture, error) {
	return resource.NewTexture(c.dev, desc)
}

// CreateFramebuffer allocates a framebuffer with owned attachments.
func (c *Context) CreateFramebuffer(name string, size common.Size, colors []resource.AttachmentSpec, depth *resource.AttachmentSpec) (resource.Framebuffer, error) {
	return resource.NewFramebuffer(c.dev, name, size, colors, depth)
}

// CreateCubeFramebuffer allocates a depth-only cube framebuffer.
func (c *Context) CreateCubeFramebuffer(name string, edge int) (resource.Framebuffer, error) {
	return resource.NewCubeFramebuffer(c.dev, name, edge)
}

// CreateVertexBuffer uploads vertices.
func (c *Context) CreateVertexBuffer(vertices []common.Vertex) (*resource.VertexBuffer, error) {
	return resource.NewVertexBuffer(c.dev, vertices)
}

// CreateIndexBuffer uploads indices.
func (c *Context) CreateIndexBuffer(indices []uint32) (*resource.IndexBuffer, error) {
	return resource.NewIndexBuffer(c.dev, indices)
}

// CreateShader builds the named program from the provider. Missing programs and compile
// failures yield an invalid shader rather than an error.
func (c *Context) CreateShader(name string) *resource.Shader {
	if c.programs == nil {
		return resource.NewShader(c.dev, backend.ProgramSource{Name: name})
	}
	src, err := c.programs.Program(name)
	if err != nil {
		logger.Logger().Error("shader source unavailable", "shader", name, "err", err)
		src = backend.ProgramSource{Name: name}
	}
	return resource.NewShader(c.dev, src)
}

// ReloadShader rebuilds s from the provider.
func (c *Context) ReloadShader(s *resource.Shader) error {
	if c.programs == nil {
		return fmt.Errorf("rendering: no program provider")
	}
	src, err := c.programs.Program(s.Name())
	if err != nil {
		return err
	}
	return s.Reload(src)
}

// BeginRenderPass makes spec the active specification and applies its state.
// Panics if another pass is active.
func (c *Context) BeginRenderPass(spec *PassSpecification) {
	if c.active != nil {
		panic(fmt.Sprintf("rendering: pass %q begun while %q is active", spec.Name, c.active.Name))
	}
	c.active = spec
	c.BindShader(spec.Shader)
	if spec.Compute {
		return
	}
	c.BindFramebuffer(spec.Framebuffer)
	c.state = backend.PipelineState{Blend: spec.Blend, Depth: spec.Depth, Cull: spec.Cull, DepthBias: spec.DepthBias}
	if spec.ClearColor != nil {
		c.ClearColor(*spec.ClearColor)
	}
	if spec.ClearDepth != nil {
		c.ClearDepth(*spec.ClearDepth)
	}
}

// EndRenderPass flushes pending clears, rebinds the default framebuffer and resets the
// active specification, light counter, uniforms and texture slots.
func (c *Context) EndRenderPass() {
	c.BindDefaultFramebuffer()
	c.active = nil
	c.lightCounter = 0
	c.resetBindings()
	c.state = backend.PipelineState{}
}

// ActiveSpecification returns the specification of the running pass, nil between passes.
func (c *Context) ActiveSpecification() *PassSpecification { return c.active }

// NextLight returns the index of the next light drawn in this pass.
func (c *Context) NextLight() int {
	i := c.lightCounter
	c.lightCounter++
	return i
}

// LightCount is the number of lights drawn in the current pass.
func (c *Context) LightCount() int { return c.lightCounter }

// BindFramebuffer makes fb the render target of following draws.
func (c *Context) BindFramebuffer(fb resource.Framebuffer) {
	c.closePass()
	c.framebuffer = fb
}

// BindDefaultFramebuffer unbinds any framebuffer.
func (c *Context) BindDefaultFramebuffer() {
	c.BindFramebuffer(nil)
}

// Framebuffer returns the bound framebuffer.
func (c *Context) Framebuffer() resource.Framebuffer { return c.framebuffer }

// SetTargetLayer selects the layer of the bound framebuffer's layered attachments.
func (c *Context) SetTargetLayer(layer int) {
	if c.framebuffer == nil {
		panic("rendering: SetTargetLayer without a bound framebuffer")
	}
	c.closePass()
	c.framebuffer.SetTargetLayer(layer)
}

// BindShader selects the program for following draws and resets uniforms.
func (c *Context) BindShader(s *resource.Shader) {
	c.shader = s
	c.uniforms = make(backend.Uniforms)
}

// Shader returns the bound shader.
func (c *Context) Shader() *resource.Shader { return c.shader }

func (c *Context) SetBlend(src, dst backend.BlendFactor) {
	c.state.Blend = backend.BlendState{Enabled: true, Src: src, Dst: dst}
}

func (c *Context) DisableBlend() { c.state.Blend = backend.BlendState{} }

func (c *Context) SetDepthTest(compare backend.CompareFunc, write bool) {
	c.state.Depth = backend.DepthState{Test: true, Compare: compare, Write: write}
}

func (c *Context) DisableDepthTest() { c.state.Depth = backend.DepthState{} }

func (c *Context) SetCull(mode backend.CullMode) { c.state.Cull = mode }

func (c *Context) DisableCull() { c.state.Cull = backend.CullNone }

func (c *Context) SetDepthBias(bias float32) { c.state.DepthBias = bias }

// State returns the fixed-function state of the next draw.
func (c *Context) State() backend.PipelineState { return c.state }

// ClearColor schedules a color clear of the bound framebuffer.
func (c *Context) ClearColor(v common.Vec4) {
	c.closePass()
	c.clearColor = &v
}

// ClearDepth schedules a depth clear of the bound framebuffer.
func (c *Context) ClearDepth(v float32) {
	c.closePass()
	c.clearDepth = &v
}

func (c *Context) SetFloat(name string, v float32)           { c.uniforms[name] = v }
func (c *Context) SetInt(name string, v int32)               { c.uniforms[name] = v }
func (c *Context) SetBool(name string, v bool)               { c.uniforms[name] = boolToInt(v) }
func (c *Context) SetVec2(name string, v common.Vec2)        { c.uniforms[name] = v }
func (c *Context) SetVec3(name string, v common.Vec3)        { c.uniforms[name] = v }
func (c *Context) SetVec4(name string, v common.Vec4)        { c.uniforms[name] = v }
func (c *Context) SetMat4(name string, v common.Mat4)        { c.uniforms[name] = v }
func (c *Context) SetVec4Array(name string, v []common.Vec4) { c.uniforms[name] = v }
func (c *Context) SetMat4Array(name string, v []common.Mat4) { c.uniforms[name] = v }

// SetUniform stores a value of any supported uniform type.
func (c *Context) SetUniform(name string, v any) {
	switch x := v.(type) {
	case bool:
		c.uniforms[name] = boolToInt(x)
	case int:
		c.uniforms[name] = int32(x)
	case float64:
		c.uniforms[name] = float32(x)
	default:
		c.uniforms[name] = v
	}
}

// Uniform returns the current value of a uniform.
func (c *Context) Uniform(name string) any { return c.uniforms[name] }

// SetTexture binds tex to the sampler variable name. Rebinding a name reuses its slot.
// Panics when a pass binds more distinct names than the device has slots.
func (c *Context) SetTexture(name string, tex resource.Texture) {
	if i, ok := c.slotIndex[name]; ok {
		c.slots[i].tex = tex
		return
	}
	if len(c.slots) >= c.MaxTextureSlots() {
		pass := ""
		if c.active != nil {
			pass = c.active.Name
		}
		panic(fmt.Sprintf("rendering: pass %q binds more than %d textures (binding %q)", pass, c.MaxTextureSlots(), name))
	}
	c.slotIndex[name] = len(c.slots)
	c.slots = append(c.slots, slot{name: name, tex: tex})
}

// BoundTexture returns the texture bound to name in the current pass.
func (c *Context) BoundTexture(name string) (resource.Texture, bool) {
	i, ok := c.slotIndex[name]
	if !ok {
		return nil, false
	}
	return c.slots[i].tex, true
}

// TextureSlot returns the slot index of name, -1 when unbound.
func (c *Context) TextureSlot(name string) int {
	if i, ok := c.slotIndex[name]; ok {
		return i
	}
	return -1
}

// SetImage binds tex as the storage image name of the next dispatch.
func (c *Context) SetImage(name string, tex resource.Texture) {
	for i := range c.images {
		if c.images[i].Name == name {
			c.images[i].Texture = tex.Handle()
			return
		}
	}
	c.images = append(c.images, backend.TextureBinding{Name: name, Texture: tex.Handle()})
}

// DrawMesh draws indexed geometry with the bound shader.
func (c *Context) DrawMesh(vb *resource.VertexBuffer, ib *resource.IndexBuffer) {
	var indices backend.Buffer
	if ib != nil {
		indices = ib.Handle()
	}
	c.draw(vb.Handle(), indices)
}

// DrawFullscreen draws the fullscreen triangle with the bound shader.
func (c *Context) DrawFullscreen() {
	c.draw(nil, nil)
}

// Dispatch runs the bound compute shader over x*y*z workgroups.
func (c *Context) Dispatch(x, y, z int) {
	if !c.usable() {
		return
	}
	c.closePass()
	err := c.dev.Dispatch(backend.DispatchCall{
		Program:  c.shader.Program(),
		Groups:   [3]int{x, y, z},
		Uniforms: c.uniforms,
		Textures: c.textureBindings(),
		Images:   c.images,
	})
	c.check("dispatch", err)
	c.drawCalls++
}

// SetUI installs a callback run by RenderUI after the frame is resolved.
func (c *Context) SetUI(fn func(ctx *Context)) { c.ui = fn }

// BeginUI and EndUI bracket the UI callback.
func (c *Context) BeginUI() { c.closePass() }
func (c *Context) EndUI()   { c.closePass() }

// RenderUI runs the installed UI callback, if any.
func (c *Context) RenderUI() {
	if c.ui == nil {
		return
	}
	c.BeginUI()
	c.ui(c)
	c.EndUI()
}

func (c *Context) draw(vertices, indices backend.Buffer) {
	if !c.usable() {
		return
	}
	if c.framebuffer == nil {
		panic(fmt.Sprintf("rendering: draw with shader %q and no framebuffer bound", c.shader.Name()))
	}
	c.openPass()
	err := c.dev.Draw(backend.DrawCall{
		Program:  c.shader.Program(),
		Vertices: vertices,
		Indices:  indices,
		Uniforms: c.uniforms,
		Textures: c.textureBindings(),
		State:    c.state,
	})
	c.check("draw", err)
	c.drawCalls++
}

func (c *Context) usable() bool {
	if c.shader == nil {
		panic("rendering: draw without a bound shader")
	}
	if !c.shader.Valid() {
		c.shader.WarnInvalid()
		return false
	}
	return true
}

func (c *Context) textureBindings() []backend.TextureBinding {
	out := make([]backend.TextureBinding, 0, len(c.slots))
	for _, s := range c.slots {
		if s.tex == nil {
			continue
		}
		out = append(out, backend.TextureBinding{Name: s.name, Texture: s.tex.Handle()})
	}
	return out
}

func (c *Context) openPass() {
	if c.passOpen {
		return
	}
	desc := c.framebuffer.PassDescriptor()
	if c.clearColor != nil {
		desc.ClearColor, desc.ClearColorValue = true, *c.clearColor
	}
	if c.clearDepth != nil {
		desc.ClearDepth, desc.ClearDepthValue = true, *c.clearDepth
	}
	c.clearColor, c.clearDepth = nil, nil
	if err := c.dev.BeginRenderPass(desc); err != nil {
		panic(fmt.Sprintf("rendering: begin pass on %q: %v", c.framebuffer.Name(), err))
	}
	c.passOpen = true
}

// closePass ends the open backend pass. Clears scheduled without a following draw still
// reach the target.
func (c *Context) closePass() {
	if !c.passOpen && (c.clearColor != nil || c.clearDepth != nil) && c.framebuffer != nil {
		c.openPass()
	}
	if c.passOpen {
		c.dev.EndRenderPass()
		c.passOpen = false
	}
	c.clearColor, c.clearDepth = nil, nil
}

func (c *Context) resetBindings() {
	c.uniforms = make(backend.Uniforms)
	c.slots = c.slots[:0]
	clear(c.slotIndex)
	c.images = nil
	c.shader = nil
}

func (c *Context) check(op string, err error) {
	if err == nil {
		return
	}
	pass := ""
	if c.active != nil {
		pass = c.active.Name
	}
	panic(fmt.Sprintf("rendering: %s in pass %q with shader %q: %v", op, pass, c.shader.Name(), err))
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
