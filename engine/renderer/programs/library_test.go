package programs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend/software"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/shader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEveryProgramParses(t *testing.T) {
	lib := NewLibrary()
	require.Len(t, Names(), 15)
	for _, name := range Names() {
		t.Run(name, func(t *testing.T) {
			src, err := lib.Program(name)
			require.NoError(t, err)
			require.NotNil(t, src.CPU)
			assert.Equal(t, src.CPU.IsCompute(), src.Shader.IsCompute())
			if src.Shader.IsCompute() {
				assert.Equal(t, "cs_main", src.Shader.EntryPoint(shader.ShaderTypeCompute))
				ws := src.Shader.WorkgroupSize()
				assert.Equal(t, src.CPU.WorkgroupSize, [3]int{int(ws[0]), int(ws[1]), int(ws[2])})
				return
			}
			assert.Equal(t, "vs_main", src.Shader.EntryPoint(shader.ShaderTypeVertex))
			assert.Equal(t, "fs_main", src.Shader.EntryPoint(shader.ShaderTypeFragment))
		})
	}
}

func TestProgramBindings(t *testing.T) {
	cases := map[string]struct {
		textures []string
		uniforms []string
	}{
		GBuffer:          {[]string{"albedoMap"}, []string{"model", "previousModel", "viewProjection", "unjitteredViewProjection", "previousViewProjection", "baseColor", "roughness", "metallic", "emission"}},
		Emission:         {[]string{"GAlbedo", "GMaterial"}, nil},
		PointLight:       {[]string{"GAlbedo", "GPosition", "GNormal", "GMaterial", "shadowMap"}, []string{"model", "viewProjection", "cameraPosition", "light.position", "light.radius", "light.color", "light.intensity", "light.shadowed", "light.near", "light.far", "light.bias"}},
		SpotLight:        {[]string{"GAlbedo", "GPosition", "GNormal", "GMaterial", "shadowMap"}, []string{"light.direction", "light.range", "light.innerCutoff", "light.outerCutoff", "light.viewProjection"}},
		DirectionalLight: {[]string{"GAlbedo", "GPosition", "GNormal", "GMaterial", "shadowMap"}, []string{"view", "light.cascadeCount", "cascadeSplits", "cascadeMatrices"}},
		SSAO:             {[]string{"GPosition", "GNormal", "noise"}, []string{"view", "projection", "kernel", "radius", "bias", "sampleCount"}},
		SSDO:             {[]string{"GPosition", "GNormal", "Light", "noise"}, []string{"kernel", "radius", "strength", "sampleCount"}},
		Combination:      {[]string{"GAlbedo", "GPosition", "Light", "AmbientOcclusion", "DiffuseOcclusion"}, []string{"background", "ambientIntensity"}},
		TAA:              {[]string{"current", "history", "GVelocity", "GDepth"}, []string{"feedback", "historyValid"}},
		FXAA:             {[]string{"source", "destination"}, []string{"contrastThreshold", "relativeThreshold", "subpixelBlending"}},
		BloomUpsample:    {[]string{"source", "base"}, []string{"mixStrength"}},
		Resolution:       {[]string{"scene", "bloom"}, []string{"gamma", "bloomStrength", "bloomIntensity", "bloomEnabled"}},
	}
	lib := NewLibrary()
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			src, err := lib.Program(name)
			require.NoError(t, err)
			for _, tex := range tc.textures {
				_, ok := src.Shader.Binding(tex)
				assert.True(t, ok, "texture %s", tex)
			}
			if tc.uniforms == nil {
				return
			}
			layout := src.Shader.Uniforms()
			require.NotNil(t, layout)
			for _, u := range tc.uniforms {
				assert.Contains(t, layout.Fields, u)
			}
		})
	}
}

func TestSSAOKernelUniformCapacity(t *testing.T) {
	src, err := NewLibrary().Program(SSAO)
	require.NoError(t, err)
	field := src.Shader.Uniforms().Fields["kernel"]
	assert.Equal(t, MaxKernelSamples, field.Count)

	src, err = NewLibrary().Program(DirectionalLight)
	require.NoError(t, err)
	assert.Equal(t, MaxCascades, src.Shader.Uniforms().Fields["cascadeMatrices"].Count)
}

func TestUnknownProgram(t *testing.T) {
	_, err := NewLibrary().Program("nope")
	assert.ErrorIs(t, err, ErrUnknownProgram)
}

func TestDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "include"), 0o755))
	blur := "@group(1) @binding(0) var source: texture_2d<f32>;\n@group(1) @binding(1) var extra: texture_2d<f32>;\n// type vertex\n// #include <fullscreen>\n// type fragment\n@fragment\nfn fs_main() -> @location(0) vec4f { return vec4f(1.0); }\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blur.wgsl"), []byte(blur), 0o644))

	lib := NewLibrary(WithDirectory(dir))
	src, err := lib.Program(Blur)
	require.NoError(t, err)
	_, ok := src.Shader.Binding("extra")
	assert.True(t, ok)
	assert.Equal(t, []string{"fullscreen"}, src.Shader.Included())

	// Programs without an override fall back to the embedded source.
	_, err = lib.Program(Resolution)
	require.NoError(t, err)

	assert.Equal(t, []string{Blur}, lib.Affected(filepath.Join(dir, "blur.wgsl")))
	assert.Contains(t, lib.Affected(filepath.Join(dir, "include", "lighting.wgsl")), PointLight)
	assert.NotContains(t, lib.Affected(filepath.Join(dir, "include", "lighting.wgsl")), Blur)
	assert.Nil(t, lib.Affected(filepath.Join(dir, "notes.txt")))
}

func TestLightingMath(t *testing.T) {
	assert.InDelta(t, 0, attenuation(5, 5), 1e-6)
	assert.Greater(t, attenuation(1, 5), attenuation(2, 5))

	n := common.Vec3{0, 1, 0}
	lit := shade(common.Vec3{1, 1, 1}, n, n, n, 1, 0)
	assert.Greater(t, lit[0], float32(0))
	assert.Equal(t, common.Vec3{}, shade(common.Vec3{1, 1, 1}, n, n, n.Negate(), 1, 0))

	basis := hemisphereBasis(common.Vec3{1, 0, 0}, common.Vec3{1, 0, 0})
	assert.InDelta(t, 0, basis[0].Dot(basis[2]), 1e-6)
	assert.InDelta(t, 1, basis[1].Length(), 1e-5)
}

func TestResolutionKernelAppliesGamma(t *testing.T) {
	dev := software.New(software.WithWorkerCount(1))
	scene, err := dev.CreateTexture(backend.TextureDescriptor{Label: "scene", Format: backend.FormatRGBA16F, Width: 2, Height: 2})
	require.NoError(t, err)
	pixels := make([]common.Vec4, 4)
	for i := range pixels {
		pixels[i] = common.Vec4{0.25, 4, 0.25, 1}
	}
	require.NoError(t, dev.WriteTexture(scene, 0, pixels))
	out, err := dev.CreateTexture(backend.TextureDescriptor{Label: "out", Format: backend.FormatRGBA16F, Width: 2, Height: 2})
	require.NoError(t, err)

	src, err := NewLibrary().Program(Resolution)
	require.NoError(t, err)
	prog, err := dev.CreateProgram(src)
	require.NoError(t, err)

	require.NoError(t, dev.BeginFrame())
	require.NoError(t, dev.BeginRenderPass(backend.RenderPassDescriptor{Colors: []backend.Attachment{{Texture: out}}}))
	require.NoError(t, dev.Draw(backend.DrawCall{
		Program:  prog,
		Uniforms: backend.Uniforms{"gamma": float32(2)},
		Textures: []backend.TextureBinding{{Name: "scene", Texture: scene}},
	}))
	dev.EndRenderPass()
	require.NoError(t, dev.EndFrame())

	result, err := dev.ReadTexture(out, 0)
	require.NoError(t, err)
	for _, px := range result {
		assert.InDelta(t, 0.5, px[0], 1e-3)
		assert.InDelta(t, 1, px[1], 1e-3)
	}
}

func TestTAAReprojectsWithNearestSurfaceVelocity(t *testing.T) {
	dev := software.New(software.WithWorkerCount(1))
	texture := func(label string, format backend.Format, fill common.Vec4, corner common.Vec4) backend.Texture {
		tex, err := dev.CreateTexture(backend.TextureDescriptor{Label: label, Format: format, Width: 3, Height: 3})
		require.NoError(t, err)
		pixels := make([]common.Vec4, 9)
		for i := range pixels {
			pixels[i] = fill
		}
		pixels[0] = corner
		require.NoError(t, dev.WriteTexture(tex, 0, pixels))
		return tex
	}

	src, err := NewLibrary().Program(TAA)
	require.NoError(t, err)
	prog, err := dev.CreateProgram(src)
	require.NoError(t, err)

	current := texture("current", backend.FormatRGBA16F, common.Vec4{0.5, 0.5, 0.5, 1}, common.Vec4{1, 1, 1, 1})
	history := texture("history", backend.FormatRGBA16F, common.Vec4{1, 1, 1, 1}, common.Vec4{1, 1, 1, 1})
	velocity := texture("velocity", backend.FormatRG16F, common.Vec4{}, common.Vec4{10, 0, 0, 1})

	resolve := func(depth backend.Texture) float32 {
		out, err := dev.CreateTexture(backend.TextureDescriptor{Label: "out", Format: backend.FormatRGBA16F, Width: 3, Height: 3})
		require.NoError(t, err)
		require.NoError(t, dev.BeginFrame())
		require.NoError(t, dev.BeginRenderPass(backend.RenderPassDescriptor{Colors: []backend.Attachment{{Texture: out}}}))
		require.NoError(t, dev.Draw(backend.DrawCall{
			Program:  prog,
			Uniforms: backend.Uniforms{"feedback": float32(0.5), "historyValid": int32(1)},
			Textures: []backend.TextureBinding{
				{Name: "current", Texture: current},
				{Name: "history", Texture: history},
				{Name: "GVelocity", Texture: velocity},
				{Name: "GDepth", Texture: depth},
			},
		}))
		dev.EndRenderPass()
		require.NoError(t, dev.EndFrame())
		result, err := dev.ReadTexture(out, 0)
		require.NoError(t, err)
		return result[4][0]
	}

	flat := texture("flat", backend.FormatDepth32F, common.Vec4{1}, common.Vec4{1})
	assert.InDelta(t, 0.75, resolve(flat), 1e-3, "own velocity reprojects into history")

	edge := texture("edge", backend.FormatDepth32F, common.Vec4{1}, common.Vec4{0.1})
	assert.InDelta(t, 0.5, resolve(edge), 1e-3, "the nearer neighbour's velocity leaves the screen")
}
