package programs

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/chewxy/math32"
)

type combinationState struct {
	background       common.Vec3
	ambient          float32
	albedo, position backend.Sampler
	light            backend.Sampler
	ao, ssdo         backend.Sampler
}

var combinationProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return &combinationState{
			background: b.Uniforms.Vec4("background").XYZ(),
			ambient:    b.Uniforms.Float("ambientIntensity"),
			albedo:     b.Sampler("GAlbedo"),
			position:   b.Sampler("GPosition"),
			light:      b.Sampler("Light"),
			ao:         b.Sampler("AmbientOcclusion"),
			ssdo:       b.Sampler("DiffuseOcclusion"),
		}
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*combinationState)
		x, y := pixelOf(in)
		if s.position.Load(x, y, 0)[3] == 0 {
			out.Colors[0] = s.background.Vec4(1)
			return true
		}
		albedo := s.albedo.Load(x, y, 0).XYZ()
		light := s.light.Load(x, y, 0).XYZ()
		ao := s.ao.Sample(in.UV)[0]
		indirect := s.ssdo.Sample(in.UV).XYZ()
		out.Colors[0] = light.Add(albedo.Scale(s.ambient * ao)).Add(albedo.Mul(indirect)).Vec4(1)
		return true
	},
}

type taaState struct {
	feedback                          float32
	historyValid                      bool
	current, history, velocity, depth backend.Sampler
}

var taaProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return &taaState{
			feedback:     b.Uniforms.Float("feedback"),
			historyValid: b.Uniforms.Int("historyValid") != 0,
			current:      b.Sampler("current"),
			history:      b.Sampler("history"),
			velocity:     b.Sampler("GVelocity"),
			depth:        b.Sampler("GDepth"),
		}
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*taaState)
		size := s.current.Size()
		px, py := pixelOf(in)
		color := s.current.Load(px, py, 0)

		low, high := color, color
		nx, ny, nearest := px, py, s.depth.Load(px, py, 0)[0]
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				qx, qy := min(max(px+x, 0), size.Width-1), min(max(py+y, 0), size.Height-1)
				n := s.current.Load(qx, qy, 0)
				low, high = low.Min(n), high.Max(n)
				if d := s.depth.Load(qx, qy, 0)[0]; d < nearest {
					nx, ny, nearest = qx, qy, d
				}
			}
		}

		velocity := s.velocity.Load(nx, ny, 0)
		previous := common.Vec2{in.UV[0] - velocity[0]*0.5, in.UV[1] + velocity[1]*0.5}
		if !s.historyValid || !insideUnit(previous) {
			out.Colors[0] = color
			return true
		}
		clamped := s.history.Sample(previous).Clamp(low, high)
		out.Colors[0] = color.Lerp(clamped, s.feedback)
		return true
	},
}

type fxaaState struct {
	contrast, relative, subpixel float32
	source                       backend.Sampler
	destination                  backend.Image
	size                         common.Size
}

func (s *fxaaState) luma(x, y int) float32 {
	x = min(max(x, 0), s.size.Width-1)
	y = min(max(y, 0), s.size.Height-1)
	return s.source.Load(x, y, 0).Luma()
}

var fxaaProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		src := b.Sampler("source")
		return &fxaaState{
			contrast:    b.Uniforms.Float("contrastThreshold"),
			relative:    b.Uniforms.Float("relativeThreshold"),
			subpixel:    b.Uniforms.Float("subpixelBlending"),
			source:      src,
			destination: b.Image("destination"),
			size:        src.Size(),
		}
	},
	Compute: func(state any, x, y, _ int) {
		s := state.(*fxaaState)
		if s.destination == nil || x >= s.size.Width || y >= s.size.Height {
			return
		}
		center := s.source.Load(x, y, 0)
		m := center.Luma()
		n, so, e, w := s.luma(x, y-1), s.luma(x, y+1), s.luma(x+1, y), s.luma(x-1, y)
		highest := max(n, so, e, w, m)
		lowest := min(n, so, e, w, m)
		contrast := highest - lowest
		if contrast < max(s.contrast, s.relative*highest) {
			s.destination.Store(x, y, center)
			return
		}

		ne, nw, se, sw := s.luma(x+1, y-1), s.luma(x-1, y-1), s.luma(x+1, y+1), s.luma(x-1, y+1)
		average := (2*(n+so+e+w) + ne + nw + se + sw) / 12
		sub := common.SmoothStep(0, 1, common.Saturate(math32.Abs(average-m)/contrast))
		blend := sub * sub * s.subpixel

		horizontal := math32.Abs(n+so-2*m)*2 + math32.Abs(ne+se-2*e) + math32.Abs(nw+sw-2*w)
		vertical := math32.Abs(e+w-2*m)*2 + math32.Abs(ne+nw-2*n) + math32.Abs(se+sw-2*so)
		offset := common.Vec2{0, 1}
		positive, negative := math32.Abs(so-m), math32.Abs(n-m)
		if horizontal < vertical {
			offset = common.Vec2{1, 0}
			positive, negative = math32.Abs(e-m), math32.Abs(w-m)
		}
		if positive < negative {
			offset = offset.Scale(-1)
		}

		uv := common.Vec2{float32(x) + 0.5, float32(y) + 0.5}.Add(offset.Scale(blend)).Div(s.size.Vec2())
		s.destination.Store(x, y, s.source.Sample(uv))
	},
	WorkgroupSize: [3]int{8, 8, 1},
}

var bloomDownsampleProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return b.Sampler("source")
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		src := state.(backend.Sampler)
		texel := common.Vec2{1, 1}.Div(src.Size().Vec2())
		var sum common.Vec4
		for _, o := range [4]common.Vec2{{-1, -1}, {1, -1}, {-1, 1}, {1, 1}} {
			sum = sum.Add(src.Sample(in.UV.Add(texel.Mul(o))))
		}
		out.Colors[0] = sum.XYZ().Scale(0.25).Vec4(1)
		return true
	},
}

type bloomUpsampleState struct {
	mix          float32
	source, base backend.Sampler
}

var bloomUpsampleProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		return &bloomUpsampleState{mix: b.Uniforms.Float("mixStrength"), source: b.Sampler("source"), base: b.Sampler("base")}
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*bloomUpsampleState)
		texel := common.Vec2{1, 1}.Div(s.source.Size().Vec2())
		var tent common.Vec3
		for y := -1; y <= 1; y++ {
			for x := -1; x <= 1; x++ {
				weight := float32((2 - abs(x)) * (2 - abs(y)))
				uv := in.UV.Add(texel.Mul(common.Vec2{float32(x), float32(y)}))
				tent = tent.Add(s.source.Sample(uv).XYZ().Scale(weight))
			}
		}
		larger := s.base.Sample(in.UV).XYZ()
		out.Colors[0] = larger.Lerp(tent.Scale(1.0/16), s.mix).Vec4(1)
		return true
	},
}

type resolutionState struct {
	gamma             float32
	strength, glow    float32
	bloomEnabled      bool
	scene, bloomLevel backend.Sampler
}

var resolutionProgram = &backend.CPUProgram{
	Bind: func(b *backend.Bindings) any {
		u := b.Uniforms
		return &resolutionState{
			gamma:        u.Float("gamma"),
			strength:     u.Float("bloomStrength"),
			glow:         u.Float("bloomIntensity"),
			bloomEnabled: u.Int("bloomEnabled") != 0,
			scene:        b.Sampler("scene"),
			bloomLevel:   b.Sampler("bloom"),
		}
	},
	Vertex: fullscreenVertex,
	Fragment: func(state any, in *backend.Fragment, out *backend.FragmentOutput) bool {
		s := state.(*resolutionState)
		color := s.scene.Sample(in.UV).XYZ()
		if s.bloomEnabled {
			color = color.Lerp(s.bloomLevel.Sample(in.UV).XYZ().Scale(s.glow), s.strength)
		}
		inv := 1 / s.gamma
		for i := range color {
			color[i] = math32.Pow(common.Saturate(color[i]), inv)
		}
		out.Colors[0] = color.Vec4(1)
		return true
	},
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
