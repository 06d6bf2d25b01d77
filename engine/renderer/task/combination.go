package task

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
)

// Combination merges the light buffer with the ambient terms into the HDR scene color.
type Combination struct {
	passGroup
	pass *fullscreenPass

	// Background is the color of pixels no geometry covers.
	Background common.Vec4

	albedo, position, light resource.Texture
	ao, diffuse             resource.Texture
}

var _ Task = &Combination{}

// NewCombination creates the combination task.
func NewCombination() *Combination { return &Combination{} }

func (t *Combination) Name() string { return "Combination" }

// Pass returns the combination pass.
func (t *Combination) Pass() graph.Pass { return t.pass }

func (t *Combination) Setup(h Host) {
	t.pass = newFullscreenPass("Combination", programs.Combination)
	params := t.pass.Parameters()
	params.ClearColor = &clearBlack
	params.
		DeclareTarget(target.Combination.String(), resource.AttachmentSpec{Format: backend.FormatRGBA16F}).
		ReferenceTexture(target.GAlbedo.String(), &t.albedo).
		ReferenceTexture(target.GPosition.String(), &t.position).
		ReferenceTexture(target.Light.String(), &t.light)
	t.pass.ShaderParameters().
		Vec4("background", &t.Background).
		Float("ambientIntensity", &h.Settings().AmbientIntensity).
		Texture("GAlbedo", &t.albedo).
		Texture("GPosition", &t.position).
		Texture("Light", &t.light).
		Texture(target.AmbientOcclusion.String(), &t.ao).
		Texture(target.DiffuseOcclusion.String(), &t.diffuse)
	t.add(h, t.pass)
}

func (t *Combination) Run([]*component.Component, camera.Camera) {
	t.ao = t.host.GetRenderTarget(target.AmbientOcclusion)
	t.diffuse = t.host.GetRenderTarget(target.DiffuseOcclusion)
	t.execute(t.pass)
}
