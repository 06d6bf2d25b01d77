package webgpu

import (
	"fmt"
	"regexp"
	"slices"
	"sync"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// samplePattern matches the texture and sampler operands of textureSample* calls.
var samplePattern = regexp.MustCompile(`textureSample\w*\(\s*(\w+)\s*,\s*(\w+)`)

// targetKey describes the attachments of the active render pass.
type targetKey struct {
	colors [8]wgpu.TextureFormat
	count  int
	depth  bool
}

type pipelineKey struct {
	state    backend.PipelineState
	targets  targetKey
	vertices bool
}

type program struct {
	name   string
	shader shader.Shader
	module *wgpu.ShaderModule
	groups []*wgpu.BindGroupLayout
	layout *wgpu.PipelineLayout

	// sampled holds textures read through a sampler; the rest only need textureLoad.
	sampled map[string]bool
	// pairs maps each sampler to the first texture it samples.
	pairs map[string]string

	mu        sync.Mutex
	pipelines map[pipelineKey]*wgpu.RenderPipeline
	compute   *wgpu.ComputePipeline
}

func (p *program) Name() string          { return p.name }
func (p *program) Shader() shader.Shader { return p.shader }

func asProgram(p backend.Program) (*program, error) {
	prog, ok := p.(*program)
	if !ok || prog == nil {
		return nil, fmt.Errorf("webgpu: draw without a webgpu program (%T)", p)
	}
	return prog, nil
}

// CreateProgram compiles the WGSL module and builds bind group layouts from reflection.
func (d *device) CreateProgram(src backend.ProgramSource) (backend.Program, error) {
	if src.Shader == nil {
		return nil, fmt.Errorf("webgpu: program %q has no shader: %w", src.Name, backend.ErrUnsupported)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	p := &program{
		name:      src.Name,
		shader:    src.Shader,
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
	}
	p.sampled, p.pairs = samplerPairs(src.Shader.Source())

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: src.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: src.Shader.Source(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: program %q: %w", src.Name, err)
	}
	p.module = module

	for g, desc := range layoutDescriptors(src.Name, src.Shader.Bindings(), p.sampled) {
		layout, err := d.device.CreateBindGroupLayout(&desc)
		if err != nil {
			p.release()
			return nil, fmt.Errorf("webgpu: program %q bind group layout %d: %w", src.Name, g, err)
		}
		p.groups = append(p.groups, layout)
	}
	p.layout, err = d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            src.Name,
		BindGroupLayouts: p.groups,
	})
	if err != nil {
		p.release()
		return nil, fmt.Errorf("webgpu: program %q pipeline layout: %w", src.Name, err)
	}
	return p, nil
}

func (d *device) ReleaseProgram(bp backend.Program) {
	if p, ok := bp.(*program); ok && p != nil {
		p.release()
	}
}

func (p *program) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for k, rp := range p.pipelines {
		rp.Release()
		delete(p.pipelines, k)
	}
	if p.compute != nil {
		p.compute.Release()
		p.compute = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	for _, g := range p.groups {
		g.Release()
	}
	p.groups = nil
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}

// renderPipeline returns the pipeline for one combination of fixed-function state and
// targets, creating it on first use.
func (p *program) renderPipeline(dev *wgpu.Device, key pipelineKey) (*wgpu.RenderPipeline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if rp, ok := p.pipelines[key]; ok {
		return rp, nil
	}

	desc := &wgpu.RenderPipelineDescriptor{
		Label:  p.name,
		Layout: p.layout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: p.shader.EntryPoint(shader.ShaderTypeVertex),
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  cullMode(key.state.Cull),
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	}
	if key.vertices {
		desc.Vertex.Buffers = []wgpu.VertexBufferLayout{vertexLayout(p.shader.VertexInputs())}
	}
	if entry := p.shader.EntryPoint(shader.ShaderTypeFragment); entry != "" {
		targets := make([]wgpu.ColorTargetState, key.targets.count)
		for i := range targets {
			targets[i] = wgpu.ColorTargetState{
				Format:    key.targets.colors[i],
				Blend:     blendState(key.state.Blend),
				WriteMask: wgpu.ColorWriteMaskAll,
			}
		}
		desc.Fragment = &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: entry,
			Targets:    targets,
		}
	}
	if key.targets.depth {
		desc.DepthStencil = depthState(key.state)
	}

	rp, err := dev.CreateRenderPipeline(desc)
	if err != nil {
		return nil, fmt.Errorf("webgpu: program %q pipeline: %w", p.name, err)
	}
	p.pipelines[key] = rp
	return rp, nil
}

func (p *program) computePipeline(dev *wgpu.Device) (*wgpu.ComputePipeline, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.compute != nil {
		return p.compute, nil
	}
	cp, err := dev.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  p.name,
		Layout: p.layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     p.module,
			EntryPoint: p.shader.EntryPoint(shader.ShaderTypeCompute),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("webgpu: program %q compute pipeline: %w", p.name, err)
	}
	p.compute = cp
	return cp, nil
}

// samplerPairs scans textureSample* calls for the textures read through samplers.
func samplerPairs(source string) (map[string]bool, map[string]string) {
	sampled := make(map[string]bool)
	pairs := make(map[string]string)
	for _, m := range samplePattern.FindAllStringSubmatch(source, -1) {
		sampled[m[1]] = true
		if _, ok := pairs[m[2]]; !ok {
			pairs[m[2]] = m[1]
		}
	}
	return sampled, pairs
}

// layoutDescriptors groups reflected bindings into one descriptor per bind group index,
// filling gaps with empty groups.
func layoutDescriptors(label string, bindings []shader.Binding, sampled map[string]bool) []wgpu.BindGroupLayoutDescriptor {
	count := 0
	for _, b := range bindings {
		count = max(count, b.Group+1)
	}
	out := make([]wgpu.BindGroupLayoutDescriptor, count)
	for g := range out {
		out[g].Label = fmt.Sprintf("%s group %d", label, g)
	}
	for _, b := range bindings {
		out[b.Group].Entries = append(out[b.Group].Entries, layoutEntry(b, sampled[b.Name]))
	}
	return out
}

func layoutEntry(b shader.Binding, sampled bool) wgpu.BindGroupLayoutEntry {
	e := wgpu.BindGroupLayoutEntry{
		Binding:    uint32(b.Binding),
		Visibility: stageVisibility(b.Stages),
	}
	switch b.Kind {
	case shader.ResourceUniformBuffer:
		e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeUniform, MinBindingSize: b.Size}
	case shader.ResourceStorageBuffer:
		e.Buffer = wgpu.BufferBindingLayout{Type: wgpu.BufferBindingTypeReadOnlyStorage, MinBindingSize: b.Size}
		if b.ReadWrite {
			e.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
	case shader.ResourceTexture:
		e.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeUnfilterableFloat,
			ViewDimension: bindingDimension(b.ViewDimension),
		}
		if sampled {
			e.Texture.SampleType = wgpu.TextureSampleTypeFloat
		}
	case shader.ResourceDepthTexture:
		e.Texture = wgpu.TextureBindingLayout{
			SampleType:    wgpu.TextureSampleTypeDepth,
			ViewDimension: bindingDimension(b.ViewDimension),
		}
	case shader.ResourceSampler:
		e.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeFiltering}
	case shader.ResourceComparisonSampler:
		e.Sampler = wgpu.SamplerBindingLayout{Type: wgpu.SamplerBindingTypeComparison}
	case shader.ResourceStorageTexture:
		e.StorageTexture = wgpu.StorageTextureBindingLayout{
			Access:        wgpu.StorageTextureAccessWriteOnly,
			Format:        storageFormat(b.TexelFormat),
			ViewDimension: bindingDimension(b.ViewDimension),
		}
	}
	return e
}

func stageVisibility(m shader.StageMask) wgpu.ShaderStage {
	var v wgpu.ShaderStage
	if m&shader.StageVertex != 0 {
		v |= wgpu.ShaderStageVertex
	}
	if m&shader.StageFragment != 0 {
		v |= wgpu.ShaderStageFragment
	}
	if m&shader.StageCompute != 0 {
		v |= wgpu.ShaderStageCompute
	}
	return v
}

func bindingDimension(dim string) wgpu.TextureViewDimension {
	switch dim {
	case "cube":
		return wgpu.TextureViewDimensionCube
	case "2d_array":
		return wgpu.TextureViewDimension2DArray
	}
	return wgpu.TextureViewDimension2D
}

func storageFormat(texel string) wgpu.TextureFormat {
	switch texel {
	case "rgba8unorm":
		return wgpu.TextureFormatRGBA8Unorm
	case "rgba32float":
		return wgpu.TextureFormatRGBA32Float
	case "r32float":
		return wgpu.TextureFormatR32Float
	}
	return wgpu.TextureFormatRGBA16Float
}

// vertexLayout maps the shader's vertex inputs onto common.Vertex.
func vertexLayout(inputs map[int]string) wgpu.VertexBufferLayout {
	offsets := map[int]uint64{0: 0, 1: 12, 2: 24}
	locations := make([]int, 0, len(inputs))
	for loc := range inputs {
		locations = append(locations, loc)
	}
	slices.Sort(locations)

	layout := wgpu.VertexBufferLayout{
		ArrayStride: common.VertexStride,
		StepMode:    wgpu.VertexStepModeVertex,
	}
	for _, loc := range locations {
		offset, ok := offsets[loc]
		if !ok {
			continue
		}
		format := wgpu.VertexFormatFloat32x3
		if inputs[loc] == "vec2f" || inputs[loc] == "vec2<f32>" {
			format = wgpu.VertexFormatFloat32x2
		}
		layout.Attributes = append(layout.Attributes, wgpu.VertexAttribute{
			Format:         format,
			Offset:         offset,
			ShaderLocation: uint32(loc),
		})
	}
	return layout
}

func cullMode(c backend.CullMode) wgpu.CullMode {
	switch c {
	case backend.CullFront:
		return wgpu.CullModeFront
	case backend.CullBack:
		return wgpu.CullModeBack
	}
	return wgpu.CullModeNone
}

func blendState(b backend.BlendState) *wgpu.BlendState {
	if !b.Enabled {
		return nil
	}
	component := wgpu.BlendComponent{
		SrcFactor: blendFactor(b.Src),
		DstFactor: blendFactor(b.Dst),
		Operation: wgpu.BlendOperationAdd,
	}
	return &wgpu.BlendState{Color: component, Alpha: component}
}

func blendFactor(f backend.BlendFactor) wgpu.BlendFactor {
	switch f {
	case backend.BlendOne:
		return wgpu.BlendFactorOne
	case backend.BlendSrcAlpha:
		return wgpu.BlendFactorSrcAlpha
	case backend.BlendOneMinusSrcAlpha:
		return wgpu.BlendFactorOneMinusSrcAlpha
	case backend.BlendSrcColor:
		return wgpu.BlendFactorSrc
	case backend.BlendDstColor:
		return wgpu.BlendFactorDst
	}
	return wgpu.BlendFactorZero
}

func compareFunction(c backend.CompareFunc) wgpu.CompareFunction {
	switch c {
	case backend.CompareLess:
		return wgpu.CompareFunctionLess
	case backend.CompareLessEqual:
		return wgpu.CompareFunctionLessEqual
	case backend.CompareGreater:
		return wgpu.CompareFunctionGreater
	case backend.CompareGreaterEqual:
		return wgpu.CompareFunctionGreaterEqual
	case backend.CompareEqual:
		return wgpu.CompareFunctionEqual
	case backend.CompareNotEqual:
		return wgpu.CompareFunctionNotEqual
	case backend.CompareNever:
		return wgpu.CompareFunctionNever
	}
	return wgpu.CompareFunctionAlways
}

// depthState converts the depth test and bias. Depth32Float biases in units of 2^-24 for
// depths in [0.5, 1).
func depthState(st backend.PipelineState) *wgpu.DepthStencilState {
	compare := wgpu.CompareFunctionAlways
	if st.Depth.Test {
		compare = compareFunction(st.Depth.Compare)
	}
	return &wgpu.DepthStencilState{
		Format:            wgpu.TextureFormatDepth32Float,
		DepthWriteEnabled: st.Depth.Write,
		DepthCompare:      compare,
		DepthBias:         int32(st.DepthBias * (1 << 24)),
		StencilFront: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
		StencilBack: wgpu.StencilFaceState{
			Compare: wgpu.CompareFunctionAlways,
		},
	}
}
