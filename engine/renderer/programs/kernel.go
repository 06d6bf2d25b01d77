package programs

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
)

// EmissionRange maps the emission strength stored in GMaterial.z back to radiance.
const EmissionRange = 10

// MaxKernelSamples is the capacity of the SSAO and SSDO sample kernel uniform.
const MaxKernelSamples = 64

// MaxCascades is the capacity of the directional shadow cascade uniforms.
const MaxCascades = 4

func fullscreenVertex(_ any, index int, _ common.Vertex, out *backend.Varyings) common.Vec4 {
	x := float32((index << 1) & 2)
	y := float32(index & 2)
	out.SetVec2(0, common.Vec2{x, 1 - y})
	return common.Vec4{x*2 - 1, y*2 - 1, 0, 1}
}

type transformed interface {
	clip(p common.Vec3) common.Vec4
}

// meshTransform is embedded by the state of programs drawing meshes with a plain
// model-view-projection transform.
type meshTransform struct {
	mvp common.Mat4
}

func newMeshTransform(u backend.Uniforms) meshTransform {
	return meshTransform{mvp: u.Mat4("viewProjection").Mul(u.Mat4("model"))}
}

func (m *meshTransform) clip(p common.Vec3) common.Vec4 { return m.mvp.MulVec4(p.Vec4(1)) }

func meshVertex(state any, _ int, v common.Vertex, _ *backend.Varyings) common.Vec4 {
	return state.(transformed).clip(v.Position)
}

func pixelOf(in *backend.Fragment) (int, int) {
	return int(in.Coord[0]), int(in.Coord[1])
}

// gbufferPixel maps uv to a texel of s, clamped to its extent.
func gbufferPixel(uv common.Vec2, s backend.Sampler) (int, int) {
	size := s.Size()
	x := min(max(int(uv[0]*float32(size.Width)), 0), size.Width-1)
	y := min(max(int(uv[1]*float32(size.Height)), 0), size.Height-1)
	return x, y
}

func loadUV(s backend.Sampler, uv common.Vec2) common.Vec4 {
	x, y := gbufferPixel(uv, s)
	return s.Load(x, y, 0)
}

func projectUV(clip common.Vec4) common.Vec3 {
	x, y, z := clip[0]/clip[3], clip[1]/clip[3], clip[2]/clip[3]
	return common.Vec3{x*0.5 + 0.5, 0.5 - y*0.5, z}
}

func insideUnit(uv common.Vec2) bool {
	return uv[0] >= 0 && uv[0] <= 1 && uv[1] >= 0 && uv[1] <= 1
}

func attenuation(distance, radius float32) float32 {
	ratio := distance / radius
	window := common.Saturate(1 - ratio*ratio*ratio*ratio)
	return window * window / (distance*distance + 1)
}

func shade(albedo, normal, view, light common.Vec3, roughness, metallic float32) common.Vec3 {
	nDotL := max(normal.Dot(light), 0)
	if nDotL <= 0 {
		return common.Vec3{}
	}
	halfway := light.Add(view).Normalize()
	shininess := common.Mix(256, 2, common.Saturate(roughness))
	specular := (shininess + 8) / (8 * math32.Pi) * math32.Pow(max(normal.Dot(halfway), 0), shininess)
	f0 := common.Vec3{0.04, 0.04, 0.04}.Lerp(albedo, metallic)
	return albedo.Scale(1 - metallic).Add(f0.Scale(specular)).Scale(nDotL)
}

// surface is one G-buffer texel.
type surface struct {
	albedo   common.Vec3
	position common.Vec3
	normal   common.Vec3
	material common.Vec4
}

type gbufferSamplers struct {
	albedo, position, normal, material backend.Sampler
}

func bindGBuffer(b *backend.Bindings) gbufferSamplers {
	return gbufferSamplers{
		albedo:   b.Sampler("GAlbedo"),
		position: b.Sampler("GPosition"),
		normal:   b.Sampler("GNormal"),
		material: b.Sampler("GMaterial"),
	}
}

// fetch loads the surface at pixel x, y. ok is false where no geometry was drawn.
func (g *gbufferSamplers) fetch(x, y int) (s surface, ok bool) {
	p := g.position.Load(x, y, 0)
	if p[3] == 0 {
		return s, false
	}
	s.position = p.XYZ()
	s.albedo = g.albedo.Load(x, y, 0).XYZ()
	s.normal = g.normal.Load(x, y, 0).XYZ().Normalize()
	s.material = g.material.Load(x, y, 0)
	return s, true
}
