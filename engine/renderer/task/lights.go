package task

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/light"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
)

// Names the shadow maps are declared under in the graph.
const (
	PointShadowMap       = "PointShadowMap"
	SpotShadowMap        = "SpotShadowMap"
	DirectionalShadowMap = "DirectionalShadowMap"
)

var additive = backend.BlendState{Enabled: true, Src: backend.BlendOne, Dst: backend.BlendOne}

// collectLights returns the visible lights of one type in scene order.
func collectLights(components []*component.Component, kind light.Type) []light.View {
	var out []light.View
	for _, c := range components {
		v, ok := light.FromComponent(c)
		if !ok || v.Type != kind || !v.Visible() {
			continue
		}
		out = append(out, v)
	}
	return out
}

// collectCasters returns the static meshes that can be drawn into a shadow map.
func collectCasters(components []*component.Component) []*component.Component {
	var out []*component.Component
	for _, c := range components {
		if m, ok := c.AsStaticMesh(); ok && m.Mesh != nil {
			out = append(out, c)
		}
	}
	return out
}

// castersWithin keeps the casters whose bounds reach the sphere at center.
func castersWithin(casters []*component.Component, center common.Vec3, radius float32) []*component.Component {
	var out []*component.Component
	for _, c := range casters {
		m, _ := c.AsStaticMesh()
		pos, r := worldBounds(c.WorldTransform(), m.Mesh.Bounds)
		if pos.Distance(center) <= r+radius {
			out = append(out, c)
		}
	}
	return out
}

// shadowPass renders caster depth into one layer of a light's shadow map. The map is
// declared by the pass and attached as its depth target.
type shadowPass struct {
	graph.BasePass
	casters        []*component.Component
	viewProjection common.Mat4
	shadowMap      resource.Texture
}

func newShadowPass(name, mapName string, size func(render common.Size) common.Size, create func(g *graph.Graph) resource.Texture) *shadowPass {
	p := &shadowPass{BasePass: graph.NewBasePass(name, graph.KindBase)}
	params := p.Parameters()
	params.Program = programs.ShadowDepth
	params.Depth = backend.DepthState{Test: true, Compare: backend.CompareLess, Write: true}
	params.Cull = backend.CullNone
	params.ClearDepth = &clearFar
	params.Size = size
	params.DeclareTexture(mapName, create, &p.shadowMap).ReferenceDepthTarget(mapName)
	p.ShaderParameters().Mat4("viewProjection", &p.viewProjection)
	return p
}

func (p *shadowPass) Update(float32) {
	ctx := p.Context()
	for _, c := range p.casters {
		m, _ := c.AsStaticMesh()
		ctx.SetMat4("model", c.WorldTransform())
		ctx.DrawMesh(m.Mesh.Vertices, m.Mesh.Indices)
	}
}

// renderLayer clears and renders one layer of the shadow map.
func (p *shadowPass) renderLayer(layer int, viewProjection common.Mat4, dt float32) {
	p.Parameters().Framebuffer().SetTargetLayer(layer)
	p.viewProjection = viewProjection
	p.Graph().Execute(p, dt)
}

// shadingPass adds one light's contribution to the light buffer. Point and spot lights
// draw their bounding volume; directional lights cover the screen.
type shadingPass struct {
	graph.BasePass
	volume *asset.Mesh

	albedo, position, normal, surface resource.Texture
	shadowMap                         resource.Texture

	light    light.View
	shadowed int32
	model    common.Mat4
}

func newShadingPass(h Host, name, program, shadowMap string, volume *asset.Mesh) *shadingPass {
	p := &shadingPass{BasePass: graph.NewBasePass(name, graph.KindBase), volume: volume}
	params := p.Parameters()
	params.Program = program
	params.Blend = additive
	params.
		ReferenceTarget(target.Light.String()).
		ReferenceDepthTarget(target.GDepth.String()).
		ReferenceTexture(target.GAlbedo.String(), &p.albedo).
		ReferenceTexture(target.GPosition.String(), &p.position).
		ReferenceTexture(target.GNormal.String(), &p.normal).
		ReferenceTexture(target.GMaterial.String(), &p.surface).
		ReferenceTexture(shadowMap, &p.shadowMap)

	frame := h.Frame()
	p.ShaderParameters().
		Mat4("viewProjection", &frame.ViewProjection).
		Mat4("model", &p.model).
		Vec3("cameraPosition", &frame.CameraPosition).
		Texture("GAlbedo", &p.albedo).
		Texture("GPosition", &p.position).
		Texture("GNormal", &p.normal).
		Texture("GMaterial", &p.surface).
		Texture("shadowMap", &p.shadowMap)
	return p
}

// lightParameters returns the bindings of the light struct uniform.
func (p *shadingPass) lightParameters() *graph.ShaderParameters {
	return p.ShaderParameters().Sub("light")
}

// draw runs the pass for v with the given volume transform and render state.
func (p *shadingPass) draw(v light.View, model common.Mat4, cull backend.CullMode, depth backend.DepthState, dt float32) {
	p.light = v
	p.shadowed = v.Shadowed()
	p.model = model
	params := p.Parameters()
	params.Cull, params.Depth = cull, depth
	p.Graph().Execute(p, dt)
}

func (p *shadingPass) Update(float32) {
	ctx := p.Context()
	ctx.NextLight()
	if p.volume == nil {
		ctx.DrawFullscreen()
		return
	}
	ctx.DrawMesh(p.volume.Vertices, p.volume.Indices)
}

// drawVolume runs the pass for a point or spot light, choosing culling by whether the eye
// is inside the volume.
func (p *shadingPass) drawVolume(v light.View, model common.Mat4, frame *Frame, dt float32) {
	cull, depth := light.VolumeState(light.InsideVolume(v, frame.CameraPosition, frame.Near))
	p.draw(v, model, cull, depth, dt)
}

func squareSize(edge int) common.Size { return common.Size{Width: edge, Height: edge} }
