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
	"github.com/chewxy/math32"
)

// SpotLight renders a perspective shadow map for every shadow-casting spot light and adds
// each light to the light buffer through its bounding cone.
type SpotLight struct {
	passGroup
	container *containerPass
	shadow    *shadowPass
	shade     *shadingPass

	lights  []light.View
	casters []*component.Component

	// Cone cutoffs as the cosines the program compares against.
	inner, outer   float32
	viewProjection common.Mat4
}

var _ Task = &SpotLight{}

// NewSpotLight creates the spot light task.
func NewSpotLight() *SpotLight { return &SpotLight{} }

func (t *SpotLight) Name() string { return "SpotLight" }

func (t *SpotLight) Setup(h Host) {
	edge := max(h.Settings().ShadowMapSize, 1)
	size := func(common.Size) common.Size { return squareSize(edge) }
	dev := h.Context().Device()
	t.shadow = newShadowPass("SpotShadow", SpotShadowMap, size, func(*graph.Graph) resource.Texture {
		return must(resource.NewTexture2D(dev, SpotShadowMap, backend.FormatDepth32F, squareSize(edge)))
	})

	t.shade = newShadingPass(h, "SpotShading", programs.SpotLight, SpotShadowMap, h.VolumeMesh(asset.ConeMesh))
	v := &t.shade.light
	t.shade.lightParameters().
		Vec3("position", &v.Position).
		Vec3("direction", &v.Direction).
		Vec3("color", &v.Color).
		Float("range", &v.Range).
		Float("intensity", &v.Intensity).
		Float("innerCutoff", &t.inner).
		Float("outerCutoff", &t.outer).
		Int("shadowed", &t.shade.shadowed).
		Float("bias", &v.Bias).
		Mat4("viewProjection", &t.viewProjection)

	t.container = newContainerPass("SpotLight", t.render, t.shadow, t.shade)
	t.add(h, t.container)
}

func (t *SpotLight) Run(components []*component.Component, _ camera.Camera) {
	t.lights = collectLights(components, light.TypeSpot)
	if len(t.lights) == 0 {
		return
	}
	t.casters = collectCasters(components)
	t.execute(t.container)
}

func (t *SpotLight) render(dt float32) {
	frame := t.host.Frame()
	for _, v := range t.lights {
		center, radius := light.BoundingSphere(v)
		if !frame.Frustum.IntersectsSphere(center, radius) {
			continue
		}
		t.viewProjection = light.SpotViewProjection(v)
		t.inner, t.outer = math32.Cos(v.InnerCutoff), math32.Cos(v.OuterCutoff)
		if v.RendersShadow() {
			t.shadow.casters = castersWithin(t.casters, center, radius)
			t.shadow.renderLayer(0, t.viewProjection, dt)
		}
		t.shade.drawVolume(v, light.SpotVolume(v), frame, dt)
	}
}
