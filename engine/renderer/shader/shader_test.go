package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lightSource = `
// #include <common>

struct Light {
    position: vec3f,
    radius: f32,
    color: vec3f,
    intensity: f32,
}

struct Uniforms {
    model: mat4x4f,
    light: Light,
    kernel: array<vec4f, 4>,
    count: i32,
}

@group(0) @binding(0) var<uniform> u: Uniforms;
@group(1) @binding(0) var albedo: texture_2d<f32>;
@group(1) @binding(1) var shadowMap: texture_depth_cube;
@group(1) @binding(2) var shadowSampler: sampler_comparison;

// type vertex
struct VertexInput {
    @location(0) position: vec3f,
    @location(1) normal: vec3f,
    @location(2) uv: vec2f,
}

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4f {
    return u.model * vec4f(in.position, 1.0);
}

// type fragment
@group(1) @binding(3) var linearSampler: sampler;

@fragment
fn fs_main(@builtin(position) p: vec4f) -> @location(0) vec4f {
    return textureSample(albedo, linearSampler, p.xy) * helper();
}
`

const commonSnippet = `fn helper() -> f32 { return 1.0; }`

func TestSplitSections(t *testing.T) {
	src := "shared\n// type vertex\nv1\n//type fragment\nf1\nf2\n"
	sec, err := SplitSections(src)
	require.NoError(t, err)

	assert.Equal(t, "shared\n", sec.Prelude)
	assert.Equal(t, []ShaderType{ShaderTypeVertex, ShaderTypeFragment}, sec.Order)
	assert.Equal(t, "v1\n", sec.Stages[ShaderTypeVertex])
	assert.Equal(t, "f1\nf2\n", sec.Stages[ShaderTypeFragment])

	stage, ok := sec.Stage(ShaderTypeFragment)
	require.True(t, ok)
	assert.Equal(t, "shared\nf1\nf2\n", stage)
	assert.Equal(t, "shared\nv1\nf1\nf2\n", sec.Module())
}

func TestSplitSectionsErrors(t *testing.T) {
	cases := map[string]string{
		"no markers": "fn main() {}",
		"unknown":    "// type tessellation\n",
		"duplicate":  "// type vertex\na\n// type vertex\nb\n",
	}
	for name, src := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := SplitSections(src)
			assert.Error(t, err)
		})
	}
}

func TestNewShaderReflection(t *testing.T) {
	s, err := NewShader("light", lightSource, WithIncludes(MapResolver(map[string]string{"common": commonSnippet})))
	require.NoError(t, err)

	assert.False(t, s.IsCompute())
	assert.Equal(t, "vs_main", s.EntryPoint(ShaderTypeVertex))
	assert.Equal(t, "fs_main", s.EntryPoint(ShaderTypeFragment))
	assert.Equal(t, []string{"common"}, s.Included())
	assert.Contains(t, s.Source(), "fn helper()")

	bindings := s.Bindings()
	require.Len(t, bindings, 5)
	assert.Equal(t, "u", bindings[0].Name)
	assert.Equal(t, ResourceUniformBuffer, bindings[0].Kind)

	shadow, ok := s.Binding("shadowMap")
	require.True(t, ok)
	assert.Equal(t, ResourceDepthTexture, shadow.Kind)
	assert.Equal(t, "cube", shadow.ViewDimension)
	assert.Equal(t, StageVertex|StageFragment, shadow.Stages)

	sampler, ok := s.Binding("linearSampler")
	require.True(t, ok)
	assert.Equal(t, ResourceSampler, sampler.Kind)
	assert.Equal(t, StageFragment, sampler.Stages)

	cmp, _ := s.Binding("shadowSampler")
	assert.Equal(t, ResourceComparisonSampler, cmp.Kind)

	assert.Equal(t, map[int]string{0: "vec3f", 1: "vec3f", 2: "vec2f"}, s.VertexInputs())
}

func TestUniformLayoutOffsets(t *testing.T) {
	s, err := NewShader("light", lightSource, WithIncludes(MapResolver(map[string]string{"common": commonSnippet})))
	require.NoError(t, err)

	u := s.Uniforms()
	require.NotNil(t, u)
	assert.Equal(t, "Uniforms", u.Struct)

	// model 0..64, Light{position 64, radius 76, color 80, intensity 92} 64..96,
	// kernel 96..160, count 160, size rounded to 176.
	assert.Equal(t, uint64(0), u.Fields["model"].Offset)
	assert.Equal(t, uint64(64), u.Fields["light.position"].Offset)
	assert.Equal(t, uint64(76), u.Fields["light.radius"].Offset)
	assert.Equal(t, uint64(80), u.Fields["light.color"].Offset)
	assert.Equal(t, uint64(92), u.Fields["light.intensity"].Offset)

	kernel := u.Fields["kernel"]
	assert.Equal(t, uint64(96), kernel.Offset)
	assert.Equal(t, 4, kernel.Count)
	assert.Equal(t, uint64(16), kernel.Stride)

	assert.Equal(t, uint64(160), u.Fields["count"].Offset)
	assert.Equal(t, uint64(176), u.Size)
}

func TestComputeShader(t *testing.T) {
	src := `
@group(0) @binding(0) var<uniform> u: Params;
struct Params { threshold: f32, }
@group(1) @binding(0) var source: texture_2d<f32>;
@group(1) @binding(1) var target: texture_storage_2d<rgba16float, write>;
// type compute
@compute @workgroup_size(8, 8)
fn cs_main(@builtin(global_invocation_id) id: vec3u) {}
`
	s, err := NewShader("fxaa", src)
	require.NoError(t, err)

	assert.True(t, s.IsCompute())
	assert.Equal(t, "cs_main", s.EntryPoint(ShaderTypeCompute))
	assert.Equal(t, [3]uint32{8, 8, 1}, s.WorkgroupSize())

	target, ok := s.Binding("target")
	require.True(t, ok)
	assert.Equal(t, ResourceStorageTexture, target.Kind)
	assert.Equal(t, "rgba16float", target.TexelFormat)
	assert.Equal(t, "write", target.Access)
	assert.Equal(t, uint64(4), s.Uniforms().Size)
}

func TestGeometrySectionRejected(t *testing.T) {
	_, err := NewShader("geo", "// type vertex\n// type geometry\n")
	assert.ErrorIs(t, err, ErrGeometryStage)
}

func TestPreProcessorIncludes(t *testing.T) {
	snippets := map[string]string{
		"a": "// #include <b>\nA",
		"b": "B",
		"x": "// #include <y>",
		"y": "// #include <x>",
	}
	pp := NewPreProcessor(MapResolver(snippets))

	out, err := pp.Process("// #include <a>\n// #include \"b\"\nmain")
	require.NoError(t, err)
	assert.Equal(t, "B\nA\nmain", out)
	assert.Equal(t, []string{"b", "a"}, pp.Included())

	_, err = pp.Process("// #include <x>")
	assert.ErrorContains(t, err, "cycle")

	_, err = pp.Process("// #include <missing>")
	assert.ErrorContains(t, err, "unknown include")
}
