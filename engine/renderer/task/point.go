package task

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/light"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
)

// PointLight renders a cube shadow map for every shadow-casting point light and adds each
// light to the light buffer through its bounding sphere.
type PointLight struct {
	passGroup
	container *containerPass
	shadow    *shadowPass
	shade     *shadingPass

	lights  []light.View
	casters []*component.Component
	near    float32
}

var _ Task = &PointLight{}

// NewPointLight creates the point light task.
func NewPointLight() *PointLight { return &PointLight{near: light.ShadowNear} }

func (t *PointLight) Name() string { return "PointLight" }

func (t *PointLight) Setup(h Host) {
	maxEdge := h.Settings().ShadowMapSize
	size := func(render common.Size) common.Size {
		return squareSize(light.PointShadowSize(maxEdge, render))
	}
	dev := h.Context().Device()
	t.shadow = newShadowPass("PointShadow", PointShadowMap, size, func(g *graph.Graph) resource.Texture {
		return must(resource.NewCubeTexture(dev, PointShadowMap, backend.FormatDepth32F, size(g.Size()).Width))
	})

	t.shade = newShadingPass(h, "PointShading", programs.PointLight, PointShadowMap, h.VolumeMesh(asset.SphereMesh))
	v := &t.shade.light
	t.shade.lightParameters().
		Vec3("position", &v.Position).
		Vec3("color", &v.Color).
		Float("radius", &v.Range).
		Float("intensity", &v.Intensity).
		Int("shadowed", &t.shade.shadowed).
		Float("near", &t.near).
		Float("far", &v.Range).
		Float("bias", &v.Bias)

	t.container = newContainerPass("PointLight", t.render, t.shadow, t.shade)
	t.add(h, t.container)
}

func (t *PointLight) Run(components []*component.Component, _ camera.Camera) {
	t.lights = collectLights(components, light.TypePoint)
	if len(t.lights) == 0 {
		return
	}
	t.casters = collectCasters(components)
	t.execute(t.container)
}

func (t *PointLight) render(dt float32) {
	frame := t.host.Frame()
	for _, v := range t.lights {
		center, radius := light.BoundingSphere(v)
		if !frame.Frustum.IntersectsSphere(center, radius) {
			continue
		}
		if v.RendersShadow() {
			t.shadow.casters = castersWithin(t.casters, center, radius)
			for face, vp := range light.PointFaceMatrices(v.Position, v.Range) {
				t.shadow.renderLayer(face, vp, dt)
			}
		}
		t.shade.drawVolume(v, light.PointVolume(v), frame, dt)
	}
}
