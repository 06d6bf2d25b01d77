package programs

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
)

type gbufferState struct {
	model, previousModel              common.Mat4
	viewProjection, current, previous common.Mat4
	baseColor                         common.Vec4
	roughness, metallic, emission     float32
	albedoMap                         backend.Sampler
}

var gbufferProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		u := b.Uniforms
		return &gbufferState{
			model:          u.Mat4("model"),
			previousModel:  u.Mat4("previousModel"),
			viewProjection: u.Mat4("viewProjection"),
			current:        u.Mat4("unjitteredViewProjection"),
			previous:       u.Mat4("previousViewProjection"),
			baseColor:      u.Vec4("baseColor"),
			roughness:      u.Float("roughness"),
			metallic:       u.Float("metallic"),
			emission:       u.Float("emission"),
			albedoMap:      b.Sampler("albedoMap"),
		}
	},
	Vertex: func(state any, _ int, v common.Vertex, out *backend.Varyings) common.Vec4 {
		s := state.(*gbufferState)
		world := s.model.MulVec4(v.Position.Vec4(1))
		current := s.current.MulVec4(world)
		previous := s.previous.MulVec4(s.previousModel.MulVec4(v.Position.Vec4(1)))

		out.SetVec3(0, world.XYZ())
		out.SetVec3(3, s.model.TransformDirection(v.Normal))
		out.SetVec2(6, v.UV)
		out.SetVec3(8, common.Vec3{current[0], current[1], current[3]})
		out.SetVec3(11, common.Vec3{previous[0], previous[1], previous[3]})
		return s.viewProjection.MulVec4(world)
	},
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*gbufferState)
		current, previous := in.Varyings.Vec3(8), in.Varyings.Vec3(11)
		velocity := common.Vec2{
			current[0]/current[2] - previous[0]/previous[2],
			current[1]/current[2] - previous[1]/previous[2],
		}

		out.Colors[0] = s.baseColor.Mul(s.albedoMap.Sample(in.Varyings.Vec2(6)))
		out.Colors[1] = in.Varyings.Vec3(0).Vec4(1)
		out.Colors[2] = in.Varyings.Vec3(3).Normalize().Vec4(0)
		out.Colors[3] = common.Vec4{s.roughness, s.metallic, common.Saturate(s.emission / EmissionRange), 1}
		out.Colors[4] = common.Vec4{velocity[0], velocity[1], 0, 0}
		return true
	},
}

type emissionState struct {
	albedo, material backend.Sampler
}

var emissionProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return &emissionState{albedo: b.Sampler("GAlbedo"), material: b.Sampler("GMaterial")}
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*emissionState)
		x, y := pixelOf(in)
		strength := s.material.Load(x, y, 0)[2] * EmissionRange
		out.Colors[0] = s.albedo.Load(x, y, 0).XYZ().Scale(strength).Vec4(1)
		return true
	},
}

type shadowDepthState struct {
	meshTransform
}

var shadowDepthProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return &shadowDepthState{meshTransform: newMeshTransform(b.Uniforms)}
	},
	Vertex: meshVertex,
	Fragment: func(any, *backend.Fragment, *backend.FragmentOutput) bool {
		return true
	},
}
