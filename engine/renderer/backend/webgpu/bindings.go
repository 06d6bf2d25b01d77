package webgpu

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

type buffer struct {
	usage  backend.BufferUsage
	buffer *wgpu.Buffer
	size   uint64
	count  int
}

func (b *buffer) Usage() backend.BufferUsage { return b.usage }
func (b *buffer) Len() int                   { return b.count }

func asBuffer(b backend.Buffer) (*buffer, error) {
	buf, ok := b.(*buffer)
	if !ok || buf == nil {
		return nil, fmt.Errorf("webgpu: foreign buffer %T", b)
	}
	if buf.buffer == nil {
		return nil, backend.ErrReleased
	}
	return buf, nil
}

func elementSize(usage backend.BufferUsage) int {
	if usage == backend.BufferIndex {
		return 4
	}
	return common.VertexStride
}

func (d *device) CreateBuffer(usage backend.BufferUsage, data []byte) (backend.Buffer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	b := &buffer{usage: usage}
	if err := d.fillBuffer(b, data); err != nil {
		return nil, err
	}
	return b, nil
}

func (d *device) WriteBuffer(bb backend.Buffer, data []byte) error {
	b, err := asBuffer(bb)
	if err != nil {
		return err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.flush(); err != nil {
		return err
	}
	return d.fillBuffer(b, data)
}

// fillBuffer uploads data, growing the GPU buffer when it does not fit.
func (d *device) fillBuffer(b *buffer, data []byte) error {
	if len(data)%elementSize(b.usage) != 0 {
		return fmt.Errorf("webgpu: buffer data of %d bytes is not a multiple of %d", len(data), elementSize(b.usage))
	}
	need := uint64(alignUp(max(len(data), 4), 4))
	if b.buffer == nil || b.size < need {
		usage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
		if b.usage == backend.BufferIndex {
			usage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
		}
		created, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Mesh Buffer",
			Size:  need,
			Usage: usage,
		})
		if err != nil {
			return fmt.Errorf("webgpu: create buffer: %w", err)
		}
		if b.buffer != nil {
			d.garbage = append(d.garbage, b.buffer)
		}
		b.buffer, b.size = created, need
	}
	if len(data) > 0 {
		d.queue.WriteBuffer(b.buffer, 0, data)
	}
	b.count = len(data) / elementSize(b.usage)
	return nil
}

func (d *device) ReleaseBuffer(bb backend.Buffer) {
	b, ok := bb.(*buffer)
	if !ok || b == nil || b.buffer == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.encoder != nil {
		d.garbage = append(d.garbage, b.buffer)
	} else {
		b.buffer.Release()
	}
	b.buffer = nil
}

// bindGroups creates one bind group per layout of prog for a single draw or dispatch. The
// uniform buffer and bind groups are freed when the frame is submitted.
func (d *device) bindGroups(prog *program, uniforms backend.Uniforms, textures, images []backend.TextureBinding) ([]*wgpu.BindGroup, error) {
	byName := make(map[string]*texture, len(textures)+len(images))
	for _, list := range [][]backend.TextureBinding{textures, images} {
		for _, tb := range list {
			tex, err := asTexture(tb.Texture)
			if err != nil {
				return nil, fmt.Errorf("webgpu: %s binding %q: %w", prog.name, tb.Name, err)
			}
			byName[tb.Name] = tex
		}
	}

	entries := make([][]wgpu.BindGroupEntry, len(prog.groups))
	for _, b := range prog.shader.Bindings() {
		entry := wgpu.BindGroupEntry{Binding: uint32(b.Binding)}
		switch b.Kind {
		case shader.ResourceUniformBuffer:
			data := packUniforms(prog.shader.Uniforms(), uniforms)
			buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
				Label: prog.name + " Uniforms",
				Size:  uint64(len(data)),
				Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
			})
			if err != nil {
				return nil, fmt.Errorf("webgpu: %s uniforms: %w", prog.name, err)
			}
			d.queue.WriteBuffer(buf, 0, data)
			d.garbage = append(d.garbage, buf)
			entry.Buffer, entry.Size = buf, wgpu.WholeSize
		case shader.ResourceTexture, shader.ResourceDepthTexture:
			tex, ok := byName[b.Name]
			if !ok {
				var err error
				if tex, err = d.placeholder(b); err != nil {
					return nil, err
				}
			}
			entry.TextureView = tex.view
		case shader.ResourceStorageTexture:
			tex, ok := byName[b.Name]
			if !ok {
				return nil, fmt.Errorf("webgpu: %s has no image bound to %q", prog.name, b.Name)
			}
			entry.TextureView = tex.view
		case shader.ResourceSampler, shader.ResourceComparisonSampler:
			key := samplerKey{compare: b.Kind == shader.ResourceComparisonSampler}
			if tex, ok := byName[prog.pairs[b.Name]]; ok {
				key.filter, key.wrap = tex.desc.Filter, tex.desc.Wrap
			}
			s, err := d.sampler(key)
			if err != nil {
				return nil, err
			}
			entry.Sampler = s
		default:
			return nil, fmt.Errorf("webgpu: %s binding %q of kind %v is not supported", prog.name, b.Name, b.Kind)
		}
		entries[b.Group] = append(entries[b.Group], entry)
	}

	groups := make([]*wgpu.BindGroup, len(prog.groups))
	for g, layout := range prog.groups {
		group, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:   fmt.Sprintf("%s group %d", prog.name, g),
			Layout:  layout,
			Entries: entries[g],
		})
		if err != nil {
			return nil, fmt.Errorf("webgpu: %s bind group %d: %w", prog.name, g, err)
		}
		d.garbage = append(d.garbage, group)
		groups[g] = group
	}
	return groups, nil
}

type samplerKey struct {
	filter  backend.Filter
	wrap    backend.Wrap
	compare bool
}

func (d *device) sampler(key samplerKey) (*wgpu.Sampler, error) {
	if s, ok := d.samplers[key]; ok {
		return s, nil
	}
	address := wgpu.AddressModeClampToEdge
	if key.wrap == backend.WrapRepeat {
		address = wgpu.AddressModeRepeat
	}
	filter := wgpu.FilterModeLinear
	if key.filter == backend.FilterNearest {
		filter = wgpu.FilterModeNearest
	}
	desc := &wgpu.SamplerDescriptor{
		Label:         "Sampler",
		AddressModeU:  address,
		AddressModeV:  address,
		AddressModeW:  address,
		MagFilter:     filter,
		MinFilter:     filter,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	}
	if key.compare {
		// Shadow maps compare reference <= stored.
		desc.Label = "Comparison Sampler"
		desc.Compare = wgpu.CompareFunctionLessEqual
	}
	s, err := d.device.CreateSampler(desc)
	if err != nil {
		return nil, fmt.Errorf("webgpu: create sampler: %w", err)
	}
	d.samplers[key] = s
	return s, nil
}

type placeholderKey struct {
	dimension backend.Dimension
	depth     bool
}

// placeholder returns a 1x1 texture of the binding's shape for unbound textures. Color
// placeholders read zero; depth placeholders read the far plane.
func (d *device) placeholder(b shader.Binding) (*texture, error) {
	key := placeholderKey{depth: b.Kind == shader.ResourceDepthTexture}
	switch b.ViewDimension {
	case "cube":
		key.dimension = backend.DimensionCube
	case "2d_array":
		key.dimension = backend.Dimension2DArray
	}
	if t, ok := d.placeholders[key]; ok {
		return t, nil
	}
	format := backend.FormatRGBA16F
	if key.depth {
		format = backend.FormatDepth32F
	}
	t, err := d.createTexture(backend.TextureDescriptor{
		Label:     "Placeholder " + b.ViewDimension,
		Format:    format,
		Dimension: key.dimension,
		Width:     1,
		Height:    1,
	})
	if err != nil {
		return nil, err
	}
	if key.depth {
		if err := d.clearDepth(t); err != nil {
			t.release()
			return nil, err
		}
	}
	d.placeholders[key] = t
	return t, nil
}

// clearDepth records a clear of every layer to 1 ahead of the current frame's work.
func (d *device) clearDepth(t *texture) error {
	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return err
	}
	for _, view := range t.layers {
		pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
			Label: t.desc.Label,
			DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
				View:            view,
				DepthLoadOp:     wgpu.LoadOpClear,
				DepthStoreOp:    wgpu.StoreOpStore,
				DepthClearValue: 1,
			},
		})
		pass.End()
		pass.Release()
	}
	cmd, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return err
	}
	d.queue.Submit(cmd)
	cmd.Release()
	return nil
}

// packUniforms writes values into the reflected uniform struct layout. Missing values stay
// zero except matrices, which default to identity.
func packUniforms(layout *shader.UniformLayout, values backend.Uniforms) []byte {
	if layout == nil {
		return make([]byte, 16)
	}
	size := layout.Size
	for _, f := range layout.Fields {
		end := f.Offset + f.Size
		if f.Count > 0 {
			end = f.Offset + f.Stride*uint64(f.Count)
		}
		size = max(size, end)
	}
	out := make([]byte, alignUp(max(int(size), 16), 16))

	for name, f := range layout.Fields {
		if f.Count > 0 {
			switch f.Type {
			case "vec4f", "vec4<f32>":
				for i, v := range values.Vec4Array(name) {
					if i >= f.Count {
						break
					}
					putFloats(out[f.Offset+uint64(i)*f.Stride:], v[:])
				}
			case "mat4x4f", "mat4x4<f32>":
				for i, m := range values.Mat4Array(name) {
					if i >= f.Count {
						break
					}
					putFloats(out[f.Offset+uint64(i)*f.Stride:], m[:])
				}
			}
			continue
		}
		dst := out[f.Offset:]
		switch f.Type {
		case "f32":
			putFloats(dst, []float32{values.Float(name)})
		case "i32", "u32":
			binary.LittleEndian.PutUint32(dst, uint32(values.Int(name)))
		case "vec2f", "vec2<f32>":
			v := values.Vec2(name)
			putFloats(dst, v[:])
		case "vec3f", "vec3<f32>":
			v := values.Vec3(name)
			putFloats(dst, v[:])
		case "vec4f", "vec4<f32>":
			v := values.Vec4(name)
			putFloats(dst, v[:])
		case "mat4x4f", "mat4x4<f32>":
			m := values.Mat4(name)
			putFloats(dst, m[:])
		}
	}
	return out
}

func putFloats(dst []byte, vs []float32) {
	for i, v := range vs {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(v))
	}
}
