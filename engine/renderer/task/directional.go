package task

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/light"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
)

// DirectionalLight renders cascaded shadow maps for shadow-casting directional lights and
// adds every directional light to the light buffer over the whole screen.
type DirectionalLight struct {
	passGroup
	container *containerPass
	shadow    *shadowPass
	shade     *shadingPass

	lights   []light.View
	casters  []*component.Component
	cascades int
	edge     int

	splits   common.Vec4
	matrices []common.Mat4
	count    int32
}

var _ Task = &DirectionalLight{}

// NewDirectionalLight creates the directional light task.
func NewDirectionalLight() *DirectionalLight { return &DirectionalLight{} }

func (t *DirectionalLight) Name() string { return "DirectionalLight" }

func (t *DirectionalLight) Setup(h Host) {
	t.cascades = min(max(h.Settings().Cascades, 1), programs.MaxCascades)
	t.edge = max(h.Settings().ShadowMapSize, 1)
	size := func(common.Size) common.Size { return squareSize(t.edge) }
	dev := h.Context().Device()
	t.shadow = newShadowPass("DirectionalShadow", DirectionalShadowMap, size, func(*graph.Graph) resource.Texture {
		return must(resource.NewTexture2DArray(dev, DirectionalShadowMap, backend.FormatDepth32F, squareSize(t.edge), t.cascades))
	})

	t.shade = newShadingPass(h, "DirectionalShading", programs.DirectionalLight, DirectionalShadowMap, nil)
	frame := h.Frame()
	t.shade.ShaderParameters().
		Mat4("view", &frame.View).
		Vec4("cascadeSplits", &t.splits).
		Func("cascadeMatrices", func() any { return t.matrices })
	v := &t.shade.light
	t.shade.lightParameters().
		Vec3("direction", &v.Direction).
		Vec3("color", &v.Color).
		Float("intensity", &v.Intensity).
		Int("shadowed", &t.shade.shadowed).
		Float("bias", &v.Bias).
		Int("cascadeCount", &t.count)

	t.container = newContainerPass("DirectionalLight", t.render, t.shadow, t.shade)
	t.add(h, t.container)
}

func (t *DirectionalLight) Run(components []*component.Component, _ camera.Camera) {
	t.lights = collectLights(components, light.TypeDirectional)
	if len(t.lights) == 0 {
		return
	}
	t.casters = collectCasters(components)
	t.execute(t.container)
}

func (t *DirectionalLight) render(dt float32) {
	frame := t.host.Frame()
	for _, v := range t.lights {
		t.matrices, t.count, t.splits = nil, 0, common.Vec4{}
		if v.RendersShadow() {
			t.renderCascades(v, frame, dt)
		}
		t.shade.draw(v, common.Identity(), backend.CullNone, backend.DepthState{}, dt)
	}
}

func (t *DirectionalLight) renderCascades(v light.View, frame *Frame, dt float32) {
	far := frame.Far
	if v.ShadowDistance > 0 {
		far = min(v.ShadowDistance, far)
	}
	splits := light.CascadeSplits(frame.Near, far, t.cascades, light.DefaultSplitLambda)
	cam := light.CascadeCamera{InverseView: frame.InverseView, Fov: frame.Fov, Aspect: frame.Aspect, Near: frame.Near}
	t.matrices = light.CascadeMatrices(cam, v.Direction, splits, t.edge)
	copy(t.splits[:], splits)
	t.count = int32(len(t.matrices))

	t.shadow.casters = t.casters
	for i, vp := range t.matrices {
		t.shadow.renderLayer(i, vp, dt)
	}
}
