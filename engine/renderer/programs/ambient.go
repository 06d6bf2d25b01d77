package programs

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
)

// hemisphere holds what SSAO and SSDO share: the view-space reconstruction and the rotated
// sample kernel.
type hemisphere struct {
	view, projection common.Mat4
	kernel           []common.Vec4
	radius           float32
	position, normal backend.Sampler
	noise            backend.Sampler
}

func bindHemisphere(b *backend.Bindings) hemisphere {
	u := b.Uniforms
	kernel := u.Vec4Array("kernel")
	if n := int(u.Int("sampleCount")); n < len(kernel) {
		kernel = kernel[:max(n, 0)]
	}
	return hemisphere{
		view:       u.Mat4("view"),
		projection: u.Mat4("projection"),
		kernel:     kernel,
		radius:     u.Float("radius"),
		position:   b.Sampler("GPosition"),
		normal:     b.Sampler("GNormal"),
		noise:      b.Sampler("noise"),
	}
}

// hemisphereBasis returns tangent, bitangent and normal columns.
func hemisphereBasis(normal, noise common.Vec3) [3]common.Vec3 {
	tangent := noise.Sub(normal.Scale(noise.Dot(normal)))
	if tangent.Length() < 1e-4 {
		axis := common.Vec3{1, 0, 0}
		if math32.Abs(normal[0]) > 0.9 {
			axis = common.Vec3{0, 1, 0}
		}
		tangent = normal.Cross(axis)
	}
	tangent = tangent.Normalize()
	return [3]common.Vec3{tangent, normal.Cross(tangent), normal}
}

// hemisphereSample is one kernel tap that landed on geometry.
type hemisphereSample struct {
	sample common.Vec3
	scene  common.Vec3
	uv     common.Vec2
}

// walk reconstructs the fragment at uv and calls visit for every kernel sample that
// projects onto geometry. ok is false where the fragment has no geometry.
func (h *hemisphere) walk(in *backend.Fragment, visit func(position, normal common.Vec3, s hemisphereSample)) (ok bool) {
	world := loadUV(h.position, in.UV)
	if world[3] == 0 || len(h.kernel) == 0 {
		return false
	}
	position := h.view.TransformPoint(world.XYZ())
	normal := h.view.TransformDirection(loadUV(h.normal, in.UV).XYZ()).Normalize()

	x, y := pixelOf(in)
	ns := h.noise.Size()
	rotation := h.noise.Load(x%ns.Width, y%ns.Height, 0).XYZ()
	basis := hemisphereBasis(normal, rotation)

	for _, k := range h.kernel {
		offset := basis[0].Scale(k[0]).Add(basis[1].Scale(k[1])).Add(basis[2].Scale(k[2]))
		sample := position.Add(offset.Scale(h.radius))
		p := projectUV(h.projection.MulVec4(sample.Vec4(1)))
		uv := common.Vec2{p[0], p[1]}
		if !insideUnit(uv) {
			continue
		}
		scene := loadUV(h.position, uv)
		if scene[3] == 0 {
			continue
		}
		visit(position, normal, hemisphereSample{sample: sample, scene: h.view.TransformPoint(scene.XYZ()), uv: uv})
	}
	return true
}

type ssaoState struct {
	hemisphere
	bias float32
}

var ssaoProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return &ssaoState{hemisphere: bindHemisphere(b), bias: b.Uniforms.Float("bias")}
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*ssaoState)
		var occlusion float32
		ok := s.walk(in, func(position, _ common.Vec3, h hemisphereSample) {
			rangeCheck := common.SmoothStep(0, 1, s.radius/math32.Abs(position[2]-h.scene[2]))
			if h.scene[2] >= h.sample[2]+s.bias {
				occlusion += rangeCheck
			}
		})
		if !ok {
			out.Colors[0] = common.Vec4{1, 1, 1, 1}
			return true
		}
		ao := 1 - occlusion/float32(len(s.kernel))
		out.Colors[0] = common.Vec4{ao, ao, ao, 1}
		return true
	},
}

type ssdoState struct {
	hemisphere
	strength float32
	light    backend.Sampler
}

var ssdoProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return &ssdoState{hemisphere: bindHemisphere(b), strength: b.Uniforms.Float("strength"), light: b.Sampler("Light")}
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*ssdoState)
		var indirect common.Vec3
		ok := s.walk(in, func(position, normal common.Vec3, h hemisphereSample) {
			if h.scene[2] < h.sample[2] {
				return
			}
			toOccluder := h.scene.Sub(position)
			distance := toOccluder.Length()
			if distance < 1e-4 {
				return
			}
			rangeCheck := common.SmoothStep(0, 1, s.radius/distance)
			weight := max(normal.Dot(toOccluder.Scale(1/distance)), 0) * rangeCheck
			indirect = indirect.Add(loadUV(s.light, h.uv).XYZ().Scale(weight))
		})
		if !ok {
			out.Colors[0] = common.Vec4{0, 0, 0, 1}
			return true
		}
		out.Colors[0] = indirect.Scale(s.strength / float32(len(s.kernel))).Vec4(1)
		return true
	},
}

var blurProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return b.Sampler("source")
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		src := state.(backend.Sampler)
		size := src.Size()
		cx, cy := pixelOf(in)
		var sum common.Vec4
		for y := -2; y < 2; y++ {
			for x := -2; x < 2; x++ {
				px := min(max(cx+x, 0), size.Width-1)
				py := min(max(cy+y, 0), size.Height-1)
				sum = sum.Add(src.Load(px, py, 0))
			}
		}
		out.Colors[0] = sum.Scale(1.0 / 16)
		return true
	},
}
