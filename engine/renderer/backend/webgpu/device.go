// Package webgpu implements backend.Device on top of cogentcore/webgpu. Programs run their
// WGSL; bind group layouts come from shader reflection, uniform structs are packed from the
// reflected layout on every draw and samplers are derived from the wrap and filter of the
// texture each one is paired with in the source.
package webgpu

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoFrame is returned when work is recorded outside BeginFrame/EndFrame.
var ErrNoFrame = errors.New("webgpu: no active frame")

type config struct {
	surface      *wgpu.SurfaceDescriptor
	fallback     bool
	vsync        bool
	textureSlots int
	lockOSThread bool
}

// Option configures New.
type Option func(*config)

// WithSurface presents to the window the descriptor was created for. Without a surface the
// device is headless and Present only records the texture.
func WithSurface(desc *wgpu.SurfaceDescriptor) Option {
	return func(c *config) {
		c.surface = desc
	}
}

// WithFallbackAdapter forces the software adapter of the WebGPU implementation.
func WithFallbackAdapter(force bool) Option {
	return func(c *config) {
		c.fallback = force
	}
}

// WithVSync selects FIFO presentation instead of immediate.
func WithVSync(enabled bool) Option {
	return func(c *config) {
		c.vsync = enabled
	}
}

// WithMaxTextureSlots overrides the reported texture slot limit.
func WithMaxTextureSlots(n int) Option {
	return func(c *config) {
		c.textureSlots = n
	}
}

// WithoutThreadLock leaves the calling goroutine unlocked from its OS thread. Only headless
// devices should use it.
func WithoutThreadLock() Option {
	return func(c *config) {
		c.lockOSThread = false
	}
}

// device is the implementation of backend.Device for WebGPU.
type device struct {
	mu sync.Mutex

	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	surface  *wgpu.Surface
	device   *wgpu.Device
	queue    *wgpu.Queue

	limits        backend.Limits
	presentMode   wgpu.PresentMode
	surfaceFormat wgpu.TextureFormat
	size          common.Size

	// Frame recording state.
	encoder  *wgpu.CommandEncoder
	pass     *wgpu.RenderPassEncoder
	passDesc backend.RenderPassDescriptor
	passKey  targetKey
	recorded bool
	garbage  []releaser

	samplers     map[samplerKey]*wgpu.Sampler
	placeholders map[placeholderKey]*texture
	presenter    *presenter
	presented    *texture
}

type releaser interface {
	Release()
}

var _ backend.Device = &device{}

// New creates a WebGPU device.
//
// Parameters:
//   - opts: surface, adapter and presentation options
//
// Returns:
//   - backend.Device: the device
//   - error: an error if no adapter or device could be acquired
func New(opts ...Option) (backend.Device, error) {
	cfg := &config{lockOSThread: true}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.lockOSThread {
		runtime.LockOSThread()
	}

	d := &device{
		instance:     wgpu.CreateInstance(nil),
		presentMode:  wgpu.PresentModeImmediate,
		samplers:     make(map[samplerKey]*wgpu.Sampler),
		placeholders: make(map[placeholderKey]*texture),
	}
	if cfg.vsync {
		d.presentMode = wgpu.PresentModeFifo
	}
	if cfg.surface != nil {
		d.surface = d.instance.CreateSurface(cfg.surface)
	}

	adapter, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: cfg.fallback,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("webgpu: request adapter: %w", err)
	}
	d.adapter = adapter

	limits := wgpu.DefaultLimits()
	dev, err := adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "EdEngine Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: limits,
		},
	})
	if err != nil {
		d.Release()
		return nil, fmt.Errorf("webgpu: request device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	d.limits = backend.Limits{
		MaxTextureSlots:     int(limits.MaxSampledTexturesPerShaderStage),
		MaxColorAttachments: int(limits.MaxColorAttachments),
	}
	if cfg.textureSlots > 0 {
		d.limits.MaxTextureSlots = cfg.textureSlots
	}
	return d, nil
}

func (d *device) Type() backend.Type     { return backend.TypeWGPU }
func (d *device) Limits() backend.Limits { return d.limits }

func (d *device) BeginFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder != nil {
		return errors.New("webgpu: frame begun twice")
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("webgpu: begin frame: %w", err)
	}
	d.encoder = encoder
	return nil
}

func (d *device) BeginRenderPass(desc backend.RenderPassDescriptor) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return ErrNoFrame
	}
	if d.pass != nil {
		return fmt.Errorf("webgpu: render pass %q begun inside %q", desc.Label, d.passDesc.Label)
	}
	if len(desc.Colors) > d.limits.MaxColorAttachments {
		return fmt.Errorf("webgpu: render pass %q has %d color attachments, limit %d", desc.Label, len(desc.Colors), d.limits.MaxColorAttachments)
	}

	var key targetKey
	rp := &wgpu.RenderPassDescriptor{Label: desc.Label}
	for i, c := range desc.Colors {
		tex, err := asTexture(c.Texture)
		if err != nil {
			return err
		}
		view, err := tex.layerView(c.Layer)
		if err != nil {
			return err
		}
		att := wgpu.RenderPassColorAttachment{
			View:    view,
			LoadOp:  wgpu.LoadOpLoad,
			StoreOp: wgpu.StoreOpStore,
		}
		if desc.ClearColor {
			v := desc.ClearColorValue
			att.LoadOp = wgpu.LoadOpClear
			att.ClearValue = wgpu.Color{R: float64(v[0]), G: float64(v[1]), B: float64(v[2]), A: float64(v[3])}
		}
		rp.ColorAttachments = append(rp.ColorAttachments, att)
		key.colors[i] = textureFormat(tex.desc.Format)
	}
	key.count = len(desc.Colors)

	if desc.Depth != nil {
		tex, err := asTexture(desc.Depth.Texture)
		if err != nil {
			return err
		}
		if !tex.desc.Format.IsDepth() {
			return fmt.Errorf("webgpu: render pass %q depth attachment %q has format %v", desc.Label, tex.desc.Label, tex.desc.Format)
		}
		view, err := tex.layerView(desc.Depth.Layer)
		if err != nil {
			return err
		}
		depth := &wgpu.RenderPassDepthStencilAttachment{
			View:         view,
			DepthLoadOp:  wgpu.LoadOpLoad,
			DepthStoreOp: wgpu.StoreOpStore,
		}
		if desc.ClearDepth {
			depth.DepthLoadOp = wgpu.LoadOpClear
			depth.DepthClearValue = desc.ClearDepthValue
		}
		rp.DepthStencilAttachment = depth
		key.depth = true
	}
	if key.count == 0 && !key.depth {
		return fmt.Errorf("webgpu: render pass %q has no attachments", desc.Label)
	}

	d.pass = d.encoder.BeginRenderPass(rp)
	d.passDesc = desc
	d.passKey = key
	d.recorded = true
	return nil
}

func (d *device) EndRenderPass() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pass == nil {
		return
	}
	d.pass.End()
	d.pass.Release()
	d.pass = nil
}

func (d *device) Draw(call backend.DrawCall) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pass == nil {
		return backend.ErrNoPass
	}
	prog, err := asProgram(call.Program)
	if err != nil {
		return err
	}
	if prog.shader.IsCompute() {
		return fmt.Errorf("webgpu: compute program %q used in a draw", prog.name)
	}

	key := pipelineKey{state: call.State, targets: d.passKey, vertices: call.Vertices != nil}
	pipeline, err := prog.renderPipeline(d.device, key)
	if err != nil {
		return err
	}
	groups, err := d.bindGroups(prog, call.Uniforms, call.Textures, nil)
	if err != nil {
		return err
	}

	d.pass.SetPipeline(pipeline)
	for i, g := range groups {
		d.pass.SetBindGroup(uint32(i), g, nil)
	}

	if call.Vertices == nil {
		d.pass.Draw(3, 1, 0, 0)
		return nil
	}
	vb, err := asBuffer(call.Vertices)
	if err != nil {
		return err
	}
	d.pass.SetVertexBuffer(0, vb.buffer, 0, wgpu.WholeSize)
	if call.Indices == nil {
		d.pass.Draw(uint32(vb.count), 1, 0, 0)
		return nil
	}
	ib, err := asBuffer(call.Indices)
	if err != nil {
		return err
	}
	d.pass.SetIndexBuffer(ib.buffer, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	d.pass.DrawIndexed(uint32(ib.count), 1, 0, 0, 0)
	return nil
}

func (d *device) Dispatch(call backend.DispatchCall) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return ErrNoFrame
	}
	if d.pass != nil {
		return fmt.Errorf("webgpu: dispatch inside render pass %q", d.passDesc.Label)
	}
	prog, err := asProgram(call.Program)
	if err != nil {
		return err
	}
	if !prog.shader.IsCompute() {
		return fmt.Errorf("webgpu: dispatch needs a compute program, %q is not", prog.name)
	}
	pipeline, err := prog.computePipeline(d.device)
	if err != nil {
		return err
	}
	groups, err := d.bindGroups(prog, call.Uniforms, call.Textures, call.Images)
	if err != nil {
		return err
	}
	if call.Groups[0] <= 0 || call.Groups[1] <= 0 || call.Groups[2] <= 0 {
		return nil
	}

	pass := d.encoder.BeginComputePass(nil)
	pass.SetPipeline(pipeline)
	for i, g := range groups {
		pass.SetBindGroup(uint32(i), g, nil)
	}
	pass.DispatchWorkgroups(uint32(call.Groups[0]), uint32(call.Groups[1]), uint32(call.Groups[2]))
	pass.End()
	pass.Release()
	d.recorded = true
	return nil
}

func (d *device) EndFrame() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		return ErrNoFrame
	}
	if d.pass != nil {
		logger.Logger().Warn("webgpu: frame ended inside a render pass", "pass", d.passDesc.Label)
		d.pass.End()
		d.pass.Release()
		d.pass = nil
	}
	err := d.submit()
	d.encoder = nil
	return err
}

// submit finishes the current encoder and frees everything the frame allocated.
func (d *device) submit() error {
	defer d.collect()

	cmd, err := d.encoder.Finish(nil)
	d.encoder.Release()
	if err != nil {
		return fmt.Errorf("webgpu: finish frame: %w", err)
	}
	d.queue.Submit(cmd)
	cmd.Release()
	d.recorded = false
	return nil
}

// flush submits recorded work so queue writes and reads observe it in order. It is a no-op
// outside a frame and inside a render pass.
func (d *device) flush() error {
	if d.encoder == nil || d.pass != nil || !d.recorded {
		return nil
	}
	if err := d.submit(); err != nil {
		return err
	}
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		d.encoder = nil
		return fmt.Errorf("webgpu: restart frame: %w", err)
	}
	d.encoder = encoder
	return nil
}

func (d *device) collect() {
	for _, r := range d.garbage {
		r.Release()
	}
	d.garbage = d.garbage[:0]
}

func (d *device) Resize(size common.Size) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.size = size
	if d.surface == nil || size.Empty() {
		return
	}

	capabilities := d.surface.GetCapabilities(d.adapter)
	format := capabilities.Formats[0]
	for _, f := range capabilities.Formats {
		if !isSrgb(f) {
			format = f
			break
		}
	}
	d.surface.Configure(d.adapter, d.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      format,
		Width:       uint32(size.Width),
		Height:      uint32(size.Height),
		PresentMode: d.presentMode,
		AlphaMode:   capabilities.AlphaModes[0],
	})
	if d.presenter != nil && d.surfaceFormat != format {
		d.presenter.Release()
		d.presenter = nil
	}
	d.surfaceFormat = format
}

func (d *device) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder != nil {
		d.encoder.Release()
		d.encoder = nil
	}
	d.collect()
	for k, s := range d.samplers {
		s.Release()
		delete(d.samplers, k)
	}
	for k, t := range d.placeholders {
		t.release()
		delete(d.placeholders, k)
	}
	if d.presenter != nil {
		d.presenter.Release()
		d.presenter = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.surface != nil {
		d.surface.Release()
		d.surface = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}

func isSrgb(f wgpu.TextureFormat) bool {
	return f == wgpu.TextureFormatBGRA8UnormSrgb || f == wgpu.TextureFormatRGBA8UnormSrgb
}
