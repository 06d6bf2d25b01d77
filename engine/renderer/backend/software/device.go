// Package software implements backend.Device on the CPU. Draws run the programs' CPU
// kernels through a perspective-correct rasterizer; rows of the target are split into bands
// that the automation worker pool shades in parallel, each band walking the triangles in
// submission order so results do not depend on scheduling.
package software

import (
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/shader"
)

const (
	defaultTextureSlots = 16
	maxColorAttachments = 8
	bandHeight          = 16
)

// program pairs the parsed shader with its CPU kernels.
type program struct {
	name   string
	shader shader.Shader
	cpu    *backend.CPUProgram
}

func (p *program) Name() string          { return p.name }
func (p *program) Shader() shader.Shader { return p.shader }

type attachment struct {
	t     *texture
	layer int
}

type pass struct {
	desc   backend.RenderPassDescriptor
	colors []attachment
	depth  *attachment
	size   common.Size
}

// device is the implementation of backend.Device for the software backend.
type device struct {
	workers   int
	pool      worker.DynamicWorkerPool
	limits    backend.Limits
	pass      *pass
	inFrame   bool
	presented *texture
	size      common.Size
	taskID    int
}

var _ backend.Device = &device{}

// Option configures a software device.
type Option func(*device)

// WithWorkerCount sets the number of shading workers; values below 1 use GOMAXPROCS.
func WithWorkerCount(n int) Option {
	return func(d *device) {
		d.workers = n
	}
}

// WithMaxTextureSlots overrides the reported texture slot limit.
func WithMaxTextureSlots(n int) Option {
	return func(d *device) {
		d.limits.MaxTextureSlots = n
	}
}

// New creates a software device.
//
// Parameters:
//   - opts: worker count and limit overrides
//
// Returns:
//   - backend.Device: the device
func New(opts ...Option) backend.Device {
	d := &device{
		limits: backend.Limits{
			MaxTextureSlots:     defaultTextureSlots,
			MaxColorAttachments: maxColorAttachments,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.workers < 1 {
		d.workers = runtime.GOMAXPROCS(0)
	}
	if d.workers > 1 {
		d.pool = worker.NewDynamicWorkerPool(d.workers, 1024, time.Second)
	}
	return d
}

// Presented returns the texture last passed to Present on a software device, or nil.
func Presented(d backend.Device) backend.Texture {
	if sd, ok := d.(*device); ok && sd.presented != nil {
		return sd.presented
	}
	return nil
}

func (d *device) Type() backend.Type     { return backend.TypeSoftware }
func (d *device) Limits() backend.Limits { return d.limits }

func (d *device) CreateTexture(desc backend.TextureDescriptor) (backend.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newTexture(desc), nil
}

func (d *device) WriteTexture(t backend.Texture, layer int, pixels []common.Vec4) error {
	tex, err := asTexture(t)
	if err != nil {
		return err
	}
	if err := tex.checkLayer(layer); err != nil {
		return err
	}
	if len(pixels) != tex.desc.Width*tex.desc.Height {
		return fmt.Errorf("texture %q: got %d pixels, want %d", tex.desc.Label, len(pixels), tex.desc.Width*tex.desc.Height)
	}
	dst := tex.layers[layer]
	for i, p := range pixels {
		dst[i] = tex.encode(p)
	}
	return nil
}

func (d *device) ReadTexture(t backend.Texture, layer int) ([]common.Vec4, error) {
	tex, err := asTexture(t)
	if err != nil {
		return nil, err
	}
	if err := tex.checkLayer(layer); err != nil {
		return nil, err
	}
	return append([]common.Vec4(nil), tex.layers[layer]...), nil
}

func (d *device) ReleaseTexture(t backend.Texture) {
	if tex, err := asTexture(t); err == nil {
		tex.released = true
		tex.layers = nil
	}
}

func (d *device) CreateBuffer(usage backend.BufferUsage, data []byte) (backend.Buffer, error) {
	b := &buffer{usage: usage}
	if err := b.set(data); err != nil {
		return nil, fmt.Errorf("software: create buffer: %w", err)
	}
	return b, nil
}

func (d *device) WriteBuffer(b backend.Buffer, data []byte) error {
	buf, ok := b.(*buffer)
	if !ok || buf == nil {
		return fmt.Errorf("software: foreign buffer %T", b)
	}
	if buf.released {
		return backend.ErrReleased
	}
	return buf.set(data)
}

func (d *device) ReleaseBuffer(b backend.Buffer) {
	if buf, ok := b.(*buffer); ok && buf != nil {
		buf.released = true
		buf.vertices, buf.indices = nil, nil
	}
}

func (d *device) CreateProgram(src backend.ProgramSource) (backend.Program, error) {
	if src.CPU == nil {
		return nil, fmt.Errorf("software: program %q has no CPU kernels: %w", src.Name, backend.ErrUnsupported)
	}
	if !src.CPU.IsCompute() && (src.CPU.Vertex == nil || src.CPU.Fragment == nil) {
		return nil, fmt.Errorf("software: program %q needs vertex and fragment kernels", src.Name)
	}
	return &program{name: src.Name, shader: src.Shader, cpu: src.CPU}, nil
}

func (d *device) ReleaseProgram(backend.Program) {}

func (d *device) BeginFrame() error {
	d.inFrame = true
	return nil
}

func (d *device) BeginRenderPass(desc backend.RenderPassDescriptor) error {
	if d.pass != nil {
		return fmt.Errorf("software: render pass %q begun inside %q", desc.Label, d.pass.desc.Label)
	}
	if len(desc.Colors) > d.limits.MaxColorAttachments {
		return fmt.Errorf("software: render pass %q has %d color attachments, limit %d", desc.Label, len(desc.Colors), d.limits.MaxColorAttachments)
	}

	p := &pass{desc: desc}
	bind := func(a backend.Attachment) (attachment, error) {
		tex, err := asTexture(a.Texture)
		if err != nil {
			return attachment{}, err
		}
		if err := tex.checkLayer(a.Layer); err != nil {
			return attachment{}, err
		}
		s := tex.size()
		if p.size.Empty() {
			p.size = s
		} else if s != p.size {
			return attachment{}, fmt.Errorf("software: render pass %q attachment %q is %v, pass is %v", desc.Label, tex.desc.Label, s, p.size)
		}
		return attachment{t: tex, layer: a.Layer}, nil
	}

	for _, c := range desc.Colors {
		a, err := bind(c)
		if err != nil {
			return err
		}
		p.colors = append(p.colors, a)
	}
	if desc.Depth != nil {
		a, err := bind(*desc.Depth)
		if err != nil {
			return err
		}
		if !a.t.desc.Format.IsDepth() {
			return fmt.Errorf("software: render pass %q depth attachment %q has format %v", desc.Label, a.t.desc.Label, a.t.desc.Format)
		}
		p.depth = &a
	}
	if p.size.Empty() {
		return fmt.Errorf("software: render pass %q has no attachments", desc.Label)
	}

	if desc.ClearColor {
		for _, c := range p.colors {
			v := c.t.encode(desc.ClearColorValue)
			dst := c.t.layers[c.layer]
			for i := range dst {
				dst[i] = v
			}
		}
	}
	if desc.ClearDepth && p.depth != nil {
		v := common.Vec4{desc.ClearDepthValue, 0, 0, 1}
		dst := p.depth.t.layers[p.depth.layer]
		for i := range dst {
			dst[i] = v
		}
	}

	d.pass = p
	return nil
}

func (d *device) EndRenderPass() {
	d.pass = nil
}

func (d *device) Draw(call backend.DrawCall) error {
	if d.pass == nil {
		return backend.ErrNoPass
	}
	prog, ok := call.Program.(*program)
	if !ok || prog == nil {
		return fmt.Errorf("software: draw without a software program (%T)", call.Program)
	}
	if prog.cpu.IsCompute() {
		return fmt.Errorf("software: compute program %q used in a draw", prog.name)
	}

	b := &backend.Bindings{
		Uniforms: call.Uniforms,
		Samplers: make(map[string]backend.Sampler, len(call.Textures)),
		Target:   d.pass.size,
	}
	for _, tb := range call.Textures {
		tex, err := asTexture(tb.Texture)
		if err != nil {
			return fmt.Errorf("software: draw %q texture %q: %w", prog.name, tb.Name, err)
		}
		b.Samplers[tb.Name] = sampler{t: tex}
	}
	var state any = b
	if prog.cpu.Bind != nil {
		state = prog.cpu.Bind(b)
	}

	tris, err := d.assemble(prog, state, call)
	if err != nil {
		return err
	}
	if len(tris) == 0 {
		return nil
	}
	d.rasterize(prog, state, call.State, tris)
	return nil
}

func (d *device) Dispatch(call backend.DispatchCall) error {
	if d.pass != nil {
		return fmt.Errorf("software: dispatch inside render pass %q", d.pass.desc.Label)
	}
	prog, ok := call.Program.(*program)
	if !ok || prog == nil || !prog.cpu.IsCompute() {
		return fmt.Errorf("software: dispatch needs a software compute program (%T)", call.Program)
	}

	b := &backend.Bindings{
		Uniforms: call.Uniforms,
		Samplers: make(map[string]backend.Sampler, len(call.Textures)),
		Images:   make(map[string]backend.Image, len(call.Images)),
	}
	for _, tb := range call.Textures {
		tex, err := asTexture(tb.Texture)
		if err != nil {
			return fmt.Errorf("software: dispatch %q texture %q: %w", prog.name, tb.Name, err)
		}
		b.Samplers[tb.Name] = sampler{t: tex}
	}
	for i, ib := range call.Images {
		tex, err := asTexture(ib.Texture)
		if err != nil {
			return fmt.Errorf("software: dispatch %q image %q: %w", prog.name, ib.Name, err)
		}
		if !tex.desc.Storage {
			return fmt.Errorf("software: dispatch %q image %q is not a storage texture", prog.name, ib.Name)
		}
		b.Images[ib.Name] = image{t: tex}
		if i == 0 {
			b.Target = tex.size()
		}
	}
	var state any = b
	if prog.cpu.Bind != nil {
		state = prog.cpu.Bind(b)
	}

	wg := prog.cpu.WorkgroupSize
	for i := range wg {
		if wg[i] < 1 {
			wg[i] = 1
		}
	}
	nx, ny, nz := call.Groups[0]*wg[0], call.Groups[1]*wg[1], call.Groups[2]*wg[2]
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil
	}
	rows := ny * nz
	bands := (rows + bandHeight - 1) / bandHeight
	d.parallel(bands, func(band int) {
		end := min((band+1)*bandHeight, rows)
		for r := band * bandHeight; r < end; r++ {
			y, z := r%ny, r/ny
			for x := 0; x < nx; x++ {
				prog.cpu.Compute(state, x, y, z)
			}
		}
	})
	return nil
}

func (d *device) EndFrame() error {
	if d.pass != nil {
		logger.Logger().Warn("software: frame ended inside a render pass", "pass", d.pass.desc.Label)
		d.pass = nil
	}
	d.inFrame = false
	return nil
}

// Present records the texture; a software device has no surface.
func (d *device) Present(t backend.Texture) error {
	tex, err := asTexture(t)
	if err != nil {
		return err
	}
	d.presented = tex
	return nil
}

func (d *device) Resize(size common.Size) {
	d.size = size
}

func (d *device) Release() {
	if d.pool != nil {
		d.pool.Stop()
		d.pool = nil
	}
}

// parallel runs fn(0..n-1) on the worker pool and waits for all of them.
func (d *device) parallel(n int, fn func(i int)) {
	if d.pool == nil || n <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		d.taskID++
		d.pool.SubmitTask(worker.Task{
			ID: d.taskID,
			Do: func() (any, error) {
				defer wg.Done()
				fn(i)
				return nil, nil
			},
		})
	}
	wg.Wait()
}

func asTexture(t backend.Texture) (*texture, error) {
	tex, ok := t.(*texture)
	if !ok || tex == nil {
		return nil, fmt.Errorf("software: foreign or nil texture %T", t)
	}
	if tex.released {
		return nil, fmt.Errorf("texture %q: %w", tex.desc.Label, backend.ErrReleased)
	}
	return tex, nil
}
