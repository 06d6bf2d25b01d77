package programs

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
)

type pointLightState struct {
	meshTransform
	gbufferSamplers
	camera    common.Vec3
	position  common.Vec3
	color     common.Vec3
	radius    float32
	intensity float32
	shadowed  bool
	near, far float32
	bias      float32
	shadowMap backend.Sampler
}

var pointLightProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		u := b.Uniforms
		return &pointLightState{
			meshTransform:   newMeshTransform(u),
			gbufferSamplers: bindGBuffer(b),
			camera:          u.Vec3("cameraPosition"),
			position:        u.Vec3("light.position"),
			color:           u.Vec3("light.color"),
			radius:          u.Float("light.radius"),
			intensity:       u.Float("light.intensity"),
			shadowed:        u.Int("light.shadowed") != 0,
			near:            u.Float("light.near"),
			far:             u.Float("light.far"),
			bias:            u.Float("light.bias"),
			shadowMap:       b.Sampler("shadowMap"),
		}
	},
	Vertex: meshVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*pointLightState)
		surf, ok := s.fetch(pixelOf(in))
		if !ok {
			return false
		}
		toLight := s.position.Sub(surf.position)
		distance := toLight.Length()
		if distance >= s.radius || distance == 0 {
			return false
		}

		visibility := float32(1)
		if s.shadowed {
			dir := surf.position.Sub(s.position)
			major := max(math32.Abs(dir[0]), math32.Abs(dir[1]), math32.Abs(dir[2]))
			visibility = s.shadowMap.CompareCube(dir, common.CubeDepth(major, s.near, s.far)-s.bias)
		}

		view := s.camera.Sub(surf.position).Normalize()
		radiance := s.color.Scale(s.intensity * attenuation(distance, s.radius) * visibility)
		lit := shade(surf.albedo, surf.normal, view, toLight.Scale(1/distance), surf.material[0], surf.material[1])
		out.Colors[0] = lit.Mul(radiance).Vec4(1)
		return true
	},
}

type spotLightState struct {
	meshTransform
	gbufferSamplers
	camera         common.Vec3
	position       common.Vec3
	direction      common.Vec3
	color          common.Vec3
	rangeLimit     float32
	intensity      float32
	inner, outer   float32
	shadowed       bool
	bias           float32
	viewProjection common.Mat4
	shadowMap      backend.Sampler
}

var spotLightProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		u := b.Uniforms
		return &spotLightState{
			meshTransform:   newMeshTransform(u),
			gbufferSamplers: bindGBuffer(b),
			camera:          u.Vec3("cameraPosition"),
			position:        u.Vec3("light.position"),
			direction:       u.Vec3("light.direction").Normalize(),
			color:           u.Vec3("light.color"),
			rangeLimit:      u.Float("light.range"),
			intensity:       u.Float("light.intensity"),
			inner:           u.Float("light.innerCutoff"),
			outer:           u.Float("light.outerCutoff"),
			shadowed:        u.Int("light.shadowed") != 0,
			bias:            u.Float("light.bias"),
			viewProjection:  u.Mat4("light.viewProjection"),
			shadowMap:       b.Sampler("shadowMap"),
		}
	},
	Vertex: meshVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*spotLightState)
		surf, ok := s.fetch(pixelOf(in))
		if !ok {
			return false
		}
		toLight := s.position.Sub(surf.position)
		distance := toLight.Length()
		if distance >= s.rangeLimit || distance == 0 {
			return false
		}
		l := toLight.Scale(1 / distance)
		cone := common.SmoothStep(s.outer, s.inner, l.Negate().Dot(s.direction))
		if cone <= 0 {
			return false
		}

		visibility := float32(1)
		if s.shadowed {
			p := projectUV(s.viewProjection.MulVec4(surf.position.Vec4(1)))
			if uv := (common.Vec2{p[0], p[1]}); insideUnit(uv) && p[2] <= 1 {
				visibility = s.shadowMap.CompareLayer(uv, 0, p[2]-s.bias)
			}
		}

		view := s.camera.Sub(surf.position).Normalize()
		radiance := s.color.Scale(s.intensity * attenuation(distance, s.rangeLimit) * cone * visibility)
		out.Colors[0] = shade(surf.albedo, surf.normal, view, l, surf.material[0], surf.material[1]).Mul(radiance).Vec4(1)
		return true
	},
}

type directionalLightState struct {
	gbufferSamplers
	view      common.Mat4
	camera    common.Vec3
	direction common.Vec3
	color     common.Vec3
	intensity float32
	shadowed  bool
	bias      float32
	splits    common.Vec4
	cascades  []common.Mat4
	shadowMap backend.Sampler
}

func (s *directionalLightState) cascadeIndex(viewDepth float32) int {
	for i := 0; i < len(s.cascades)-1; i++ {
		if viewDepth < s.splits[i] {
			return i
		}
	}
	return max(len(s.cascades)-1, 0)
}

var directionalLightProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		u := b.Uniforms
		cascades := u.Mat4Array("cascadeMatrices")
		if n := int(u.Int("light.cascadeCount")); n < len(cascades) {
			cascades = cascades[:max(n, 0)]
		}
		return &directionalLightState{
			gbufferSamplers: bindGBuffer(b),
			view:            u.Mat4("view"),
			camera:          u.Vec3("cameraPosition"),
			direction:       u.Vec3("light.direction").Normalize(),
			color:           u.Vec3("light.color"),
			intensity:       u.Float("light.intensity"),
			shadowed:        u.Int("light.shadowed") != 0,
			bias:            u.Float("light.bias"),
			splits:          u.Vec4("cascadeSplits"),
			cascades:        cascades,
			shadowMap:       b.Sampler("shadowMap"),
		}
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*directionalLightState)
		surf, ok := s.fetch(pixelOf(in))
		if !ok {
			return false
		}

		visibility := float32(1)
		if s.shadowed && len(s.cascades) > 0 {
			viewDepth := -s.view.TransformPoint(surf.position)[2]
			cascade := s.cascadeIndex(viewDepth)
			p := projectUV(s.cascades[cascade].MulVec4(surf.position.Vec4(1)))
			if uv := (common.Vec2{p[0], p[1]}); insideUnit(uv) && p[2] <= 1 {
				visibility = s.shadowMap.CompareLayer(uv, cascade, p[2]-s.bias)
			}
		}

		view := s.camera.Sub(surf.position).Normalize()
		radiance := s.color.Scale(s.intensity * visibility)
		out.Colors[0] = shade(surf.albedo, surf.normal, view, s.direction.Negate(), surf.material[0], surf.material[1]).Mul(radiance).Vec4(1)
		return true
	},
}
