package webgpu

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/cogentcore/webgpu/wgpu"
)

const presentSource = `
@group(0) @binding(0) var frame: texture_2d<f32>;
@group(0) @binding(1) var frameSampler: sampler;

struct Output {
    @builtin(position) position: vec4f,
    @location(0) uv: vec2f,
}

@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> Output {
    let corner = vec2f(f32((index << 1u) & 2u), f32(index & 2u));
    var out: Output;
    out.position = vec4f(corner * 2.0 - 1.0, 0.0, 1.0);
    out.uv = vec2f(corner.x, 1.0 - corner.y);
    return out;
}

@fragment
fn fs_main(in: Output) -> @location(0) vec4f {
    return vec4f(textureSample(frame, frameSampler, in.uv).rgb, 1.0);
}
`

// presenter blits a texture onto the surface.
type presenter struct {
	module   *wgpu.ShaderModule
	group    *wgpu.BindGroupLayout
	layout   *wgpu.PipelineLayout
	pipeline *wgpu.RenderPipeline
}

func newPresenter(dev *wgpu.Device, format wgpu.TextureFormat) (*presenter, error) {
	p := &presenter{}
	var err error
	p.module, err = dev.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Present",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: presentSource},
	})
	if err != nil {
		return nil, err
	}
	p.group, err = dev.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "Present",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler:    wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	p.layout, err = dev.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Present",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.group},
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	p.pipeline, err = dev.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Present",
		Layout: p.layout,
		Vertex: wgpu.VertexState{Module: p.module, EntryPoint: "vs_main"},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{Format: format, WriteMask: wgpu.ColorWriteMaskAll},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.Release()
		return nil, err
	}
	return p, nil
}

func (p *presenter) Release() {
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.group != nil {
		p.group.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}

// Present blits t onto the surface. Headless devices only remember t.
func (d *device) Present(t backend.Texture) error {
	tex, err := asTexture(t)
	if err != nil {
		return err
	}
	if tex.desc.Format.IsDepth() || tex.desc.Dimension != backend.Dimension2D {
		return fmt.Errorf("webgpu: cannot present texture %q", tex.desc.Label)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.presented = tex
	if d.surface == nil || d.size.Empty() {
		return nil
	}
	if d.presenter == nil {
		if d.presenter, err = newPresenter(d.device, d.surfaceFormat); err != nil {
			return fmt.Errorf("webgpu: present pipeline: %w", err)
		}
	}

	surfaceTexture, err := d.surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("webgpu: acquire surface: %w", err)
	}
	defer surfaceTexture.Release()
	view, err := surfaceTexture.CreateView(nil)
	if err != nil {
		return err
	}
	defer view.Release()

	s, err := d.sampler(samplerKey{filter: backend.FilterLinear, wrap: backend.WrapClamp})
	if err != nil {
		return err
	}
	group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "Present",
		Layout: d.presenter.group,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: tex.view},
			{Binding: 1, Sampler: s},
		},
	})
	if err != nil {
		return err
	}
	defer group.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	defer encoder.Release()
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		Label: "Present",
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       view,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{A: 1},
			},
		},
	})
	pass.SetPipeline(d.presenter.pipeline)
	pass.SetBindGroup(0, group, nil)
	pass.Draw(3, 1, 0, 0)
	pass.End()
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		return err
	}
	d.queue.Submit(cmd)
	cmd.Release()
	d.surface.Present()
	return nil
}

// Presented returns the texture last passed to Present on a webgpu device, or nil.
func Presented(dev backend.Device) backend.Texture {
	if d, ok := dev.(*device); ok && d.presented != nil {
		return d.presented
	}
	return nil
}
