package webgpu

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHalfTexelEncoding(t *testing.T) {
	encodes := []struct {
		in   float32
		bits uint16
	}{
		{0, 0x0000},
		{1, 0x3c00},
		{-2, 0xc000},
		{0.5, 0x3800},
		{65504, 0x7bff},
		{1e6, 0x7c00},
		{float32(math.Pow(2, -24)), 0x0001},
	}
	for _, tc := range encodes {
		data := encodeTexels(backend.FormatRG16F, []common.Vec4{{tc.in, 0, 0, 1}})
		assert.Equal(t, tc.bits, binary.LittleEndian.Uint16(data), "%v", tc.in)
	}

	exact := []float32{0, 1, -2, 0.5, 65504, float32(math.Pow(2, -24))}
	for _, in := range exact {
		out := decodeTexels(backend.FormatRG16F, encodeTexels(backend.FormatRG16F, []common.Vec4{{in, in, 0, 1}}), 1, 1, 4)
		assert.Equal(t, in, out[0][0], "%v", in)
		assert.Equal(t, in, out[0][1], "%v", in)
	}

	overflow := decodeTexels(backend.FormatRG16F, encodeTexels(backend.FormatRG16F, []common.Vec4{{1e6, -1e6, 0, 1}}), 1, 1, 4)
	assert.True(t, math.IsInf(float64(overflow[0][0]), 1))
	assert.True(t, math.IsInf(float64(overflow[0][1]), -1))

	approx := decodeTexels(backend.FormatRGBA16F, encodeTexels(backend.FormatRGBA16F, []common.Vec4{{0.1, float32(math.NaN()), 0, 1}}), 1, 1, 8)
	assert.InDelta(t, 0.1, approx[0][0], 1e-4)
	assert.True(t, math.IsNaN(float64(approx[0][1])))
}

func TestTexelRoundTrip(t *testing.T) {
	pixels := []common.Vec4{{0.25, 0.5, 0.75, 1}, {1, 0, 2, 0.5}}
	formats := []backend.Format{backend.FormatRGBA8, backend.FormatRGBA8Srgb, backend.FormatRGBA16F, backend.FormatRGBA32F, backend.FormatRG16F, backend.FormatR32F}
	for _, f := range formats {
		t.Run(f.String(), func(t *testing.T) {
			data := encodeTexels(f, pixels)
			require.Len(t, data, len(pixels)*texelSize(f))
			out := decodeTexels(f, data, 2, 1, 2*texelSize(f))
			require.Len(t, out, 2)
			assert.InDelta(t, 0.25, out[0][0], 0.01)
			if f.Channels() >= 2 {
				assert.InDelta(t, 0.5, out[0][1], 0.01)
			}
			if f.IsNormalized() {
				assert.InDelta(t, 1, out[1][2], 0.01)
			} else if f.Channels() == 4 {
				assert.InDelta(t, 2, out[1][2], 0.01)
			}
		})
	}
}

func TestDecodeHonoursRowPitch(t *testing.T) {
	pitch := alignUp(4*3, copyPitchAlignment)
	data := make([]byte, pitch*2)
	binary.LittleEndian.PutUint32(data[pitch:], math.Float32bits(7))
	out := decodeTexels(backend.FormatR32F, data, 3, 2, pitch)
	require.Len(t, out, 6)
	assert.Equal(t, float32(7), out[3][0])
	assert.Equal(t, float32(1), out[3][3])
}

const uniformSource = `
struct Light {
    position: vec3f,
    intensity: f32,
}

struct Uniforms {
    model: mat4x4f,
    light: Light,
    shadowed: i32,
    kernel: array<vec4f, 4>,
}

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(1) @binding(0) var albedo: texture_2d<f32>;
@group(1) @binding(1) var position: texture_2d<f32>;
@group(1) @binding(2) var linearSampler: sampler;
@group(1) @binding(3) var shadowMap: texture_depth_cube;
@group(1) @binding(4) var shadowSampler: sampler_comparison;

// type vertex
@vertex
fn vs_main(@builtin(vertex_index) index: u32) -> @builtin(position) vec4f {
    return u.model * vec4f(0.0, 0.0, 0.0, 1.0);
}

// type fragment
@fragment
fn fs_main() -> @location(0) vec4f {
    let p = textureLoad(position, vec2i(0), 0);
    let s = textureSampleCompareLevel(shadowMap, shadowSampler, vec3f(1.0), 0.5);
    return textureSample(albedo, linearSampler, vec2f(0.5)) * p * s;
}
`

func TestPackUniforms(t *testing.T) {
	s, err := shader.NewShader("uniforms", uniformSource)
	require.NoError(t, err)
	layout := s.Uniforms()
	require.NotNil(t, layout)

	data := packUniforms(layout, backend.Uniforms{
		"light.position":  common.Vec3{1, 2, 3},
		"light.intensity": float32(5),
		"shadowed":        true,
		"kernel":          []common.Vec4{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}, {9, 9, 9, 9}},
	})
	require.Zero(t, len(data)%16)

	f32 := func(off uint64) float32 { return math.Float32frombits(binary.LittleEndian.Uint32(data[off:])) }
	// An unset matrix packs as identity.
	model := layout.Fields["model"]
	assert.Equal(t, float32(1), f32(model.Offset))
	assert.Equal(t, float32(1), f32(model.Offset+5*4))

	pos := layout.Fields["light.position"]
	assert.Equal(t, float32(3), f32(pos.Offset+8))
	assert.Equal(t, float32(5), f32(layout.Fields["light.intensity"].Offset))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(data[layout.Fields["shadowed"].Offset:]))

	kernel := layout.Fields["kernel"]
	assert.Equal(t, 4, kernel.Count)
	assert.Equal(t, float32(1), f32(kernel.Offset+3*kernel.Stride+12))
	assert.LessOrEqual(t, kernel.Offset+4*kernel.Stride, uint64(len(data)))
}

func TestLayoutFromReflection(t *testing.T) {
	s, err := shader.NewShader("layout", uniformSource)
	require.NoError(t, err)

	sampled, pairs := samplerPairs(s.Source())
	assert.True(t, sampled["albedo"])
	assert.True(t, sampled["shadowMap"])
	assert.False(t, sampled["position"])
	assert.Equal(t, "albedo", pairs["linearSampler"])
	assert.Equal(t, "shadowMap", pairs["shadowSampler"])

	descs := layoutDescriptors("layout", s.Bindings(), sampled)
	require.Len(t, descs, 2)
	require.Len(t, descs[0].Entries, 1)
	assert.Equal(t, wgpu.BufferBindingTypeUniform, descs[0].Entries[0].Buffer.Type)

	byBinding := make(map[uint32]wgpu.BindGroupLayoutEntry)
	for _, e := range descs[1].Entries {
		byBinding[e.Binding] = e
	}
	assert.Equal(t, wgpu.TextureSampleTypeFloat, byBinding[0].Texture.SampleType)
	assert.Equal(t, wgpu.TextureSampleTypeUnfilterableFloat, byBinding[1].Texture.SampleType)
	assert.Equal(t, wgpu.SamplerBindingTypeFiltering, byBinding[2].Sampler.Type)
	assert.Equal(t, wgpu.TextureSampleTypeDepth, byBinding[3].Texture.SampleType)
	assert.Equal(t, wgpu.TextureViewDimensionCube, byBinding[3].Texture.ViewDimension)
	assert.Equal(t, wgpu.SamplerBindingTypeComparison, byBinding[4].Sampler.Type)
}

func TestPipelineStateMapping(t *testing.T) {
	st := backend.PipelineState{
		Depth: backend.DepthState{Test: false, Compare: backend.CompareLess, Write: true},
		Cull: backend.CullBack,
	}
	ds := depthState(st)
	assert.Equal(t, wgpu.CompareFunctionAlways, ds.DepthCompare)
	assert.True(t, ds.DepthWriteEnabled)
	assert.Equal(t, wgpu.CullModeBack, cullMode(st.Cull))
	assert.Nil(t, blendState(st.Blend))

	b := blendState(backend.BlendState{Enabled: true, Src: backend.BlendOne, Dst: backend.BlendOne})
	require.NotNil(t, b)
	assert.Equal(t, wgpu.BlendFactorOne, b.Color.DstFactor)

	layout := vertexLayout(map[int]string{0: "vec3f", 1: "vec3f", 2: "vec2f"})
	require.Len(t, layout.Attributes, 3)
	assert.Equal(t, uint64(24), layout.Attributes[2].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32x2, layout.Attributes[2].Format)
	assert.Equal(t, uint64(common.VertexStride), layout.ArrayStride)
}

func TestHeadlessReadback(t *testing.T) {
	dev, err := New(WithoutThreadLock())
	if err != nil {
		t.Skipf("no webgpu adapter: %v", err)
	}
	defer dev.Release()

	tex, err := dev.CreateTexture(backend.TextureDescriptor{
		Label:  "Readback",
		Format: backend.FormatRGBA16F,
		Width:  3,
		Height: 2,
	})
	require.NoError(t, err)
	pixels := make([]common.Vec4, 6)
	for i := range pixels {
		pixels[i] = common.Vec4{float32(i), 0.5, 0, 1}
	}
	require.NoError(t, dev.WriteTexture(tex, 0, pixels))

	out, err := dev.ReadTexture(tex, 0)
	require.NoError(t, err)
	assert.Equal(t, pixels, out)

	require.NoError(t, dev.Present(tex))
	assert.Equal(t, tex, Presented(dev))
}
