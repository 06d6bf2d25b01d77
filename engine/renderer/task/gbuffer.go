package task

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/chewxy/math32"
)

var (
	clearBlack = common.Vec4{}
	clearFar   = float32(1)
)

// GBuffer renders every static mesh into the geometry targets the lighting passes read.
type GBuffer struct {
	passGroup
	pass *gbufferPass
}

var _ Task = &GBuffer{}

// NewGBuffer creates the geometry task.
func NewGBuffer() *GBuffer { return &GBuffer{} }

func (t *GBuffer) Name() string { return "GBuffer" }

func (t *GBuffer) Setup(h Host) {
	t.pass = newGBufferPass(h)
	t.add(h, t.pass)
}

func (t *GBuffer) Run(components []*component.Component, _ camera.Camera) {
	frustum := t.host.Frame().Frustum
	t.pass.meshes = t.pass.meshes[:0]
	for _, c := range components {
		m, ok := c.AsStaticMesh()
		if !ok || m.Mesh == nil {
			continue
		}
		center, radius := worldBounds(c.WorldTransform(), m.Mesh.Bounds)
		if !frustum.IntersectsSphere(center, radius) {
			continue
		}
		t.pass.meshes = append(t.pass.meshes, c)
	}
	t.execute(t.pass)
}

// worldBounds returns a sphere around bounds transformed by model.
func worldBounds(model common.Mat4, bounds asset.Bounds) (common.Vec3, float32) {
	scale := max(
		model.TransformDirection(common.Vec3{1, 0, 0}).Length(),
		model.TransformDirection(common.Vec3{0, 1, 0}).Length(),
		model.TransformDirection(common.Vec3{0, 0, 1}).Length(),
	)
	return model.TransformPoint(bounds.Center()), bounds.Radius()*scale + 1e-4
}

type gbufferPass struct {
	graph.BasePass
	host   Host
	meshes []*component.Component
	white  resource.Texture
}

func newGBufferPass(h Host) *gbufferPass {
	p := &gbufferPass{BasePass: graph.NewBasePass("GBuffer", graph.KindBase), host: h}
	params := p.Parameters()
	params.Program = programs.GBuffer
	params.Depth = backend.DepthState{Test: true, Compare: backend.CompareLess, Write: true}
	params.Cull = backend.CullBack
	params.ClearColor = &clearBlack
	params.ClearDepth = &clearFar
	params.
		DeclareTarget(target.GAlbedo.String(), resource.AttachmentSpec{Format: backend.FormatRGBA8}).
		DeclareTarget(target.GPosition.String(), resource.AttachmentSpec{Format: backend.FormatRGBA16F}).
		DeclareTarget(target.GNormal.String(), resource.AttachmentSpec{Format: backend.FormatRGBA16F}).
		DeclareTarget(target.GMaterial.String(), resource.AttachmentSpec{Format: backend.FormatRGBA8}).
		DeclareTarget(target.GVelocity.String(), resource.AttachmentSpec{Format: backend.FormatRG16F}).
		DeclareDepthTarget(target.GDepth.String(), resource.AttachmentSpec{})

	frame := h.Frame()
	p.ShaderParameters().
		Mat4("viewProjection", &frame.ViewProjection).
		Mat4("unjitteredViewProjection", &frame.UnjitteredViewProjection).
		Mat4("previousViewProjection", &frame.PreviousViewProjection)
	return p
}

func (p *gbufferPass) Initialize(*graph.Graph) {
	p.white = p.host.Placeholder(White)
}

func (p *gbufferPass) Update(float32) {
	ctx := p.Context()
	for _, c := range p.meshes {
		m, _ := c.AsStaticMesh()
		surface := defaultSurface
		if m.Material != nil {
			surface = surfaceOf(m.Material)
		}
		albedo := p.white
		if m.Material != nil && m.Material.AlbedoMap != nil {
			albedo = m.Material.AlbedoMap.Texture
		}
		ctx.SetMat4("model", c.WorldTransform())
		ctx.SetMat4("previousModel", c.PreviousWorldTransform())
		ctx.SetVec4("baseColor", surface.baseColor)
		ctx.SetFloat("roughness", surface.roughness)
		ctx.SetFloat("metallic", surface.metallic)
		ctx.SetFloat("emission", surface.emission)
		ctx.SetTexture("albedoMap", albedo)
		ctx.DrawMesh(m.Mesh.Vertices, m.Mesh.Indices)
	}
}

type surface struct {
	baseColor                     common.Vec4
	roughness, metallic, emission float32
}

var defaultSurface = func() surface {
	d := asset.DefaultMaterial()
	return surface{baseColor: common.Vec4(d.BaseColor), roughness: d.Roughness, metallic: d.Metallic, emission: d.Emission}
}()

func surfaceOf(m *asset.Material) surface {
	return surface{
		baseColor: m.BaseColor,
		roughness: common.Saturate(m.Roughness),
		metallic:  common.Saturate(m.Metallic),
		emission:  math32.Max(m.Emission, 0),
	}
}
