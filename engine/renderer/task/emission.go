package task

import (
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
)

// Emission clears the light buffer and seeds it with the emissive surfaces of the G-buffer.
// It runs before any light adds to the buffer.
type Emission struct {
	passGroup
	pass    *fullscreenPass
	albedo  resource.Texture
	surface resource.Texture
}

var _ Task = &Emission{}

// NewEmission creates the emission task.
func NewEmission() *Emission { return &Emission{} }

func (t *Emission) Name() string { return "Emission" }

func (t *Emission) Setup(h Host) {
	t.pass = newFullscreenPass("Emission", programs.Emission)
	t.pass.Parameters().ClearColor = &clearBlack
	t.pass.Parameters().
		DeclareTarget(target.Light.String(), resource.AttachmentSpec{Format: backend.FormatRGBA16F}).
		ReferenceTexture(target.GAlbedo.String(), &t.albedo).
		ReferenceTexture(target.GMaterial.String(), &t.surface)
	t.pass.ShaderParameters().
		Texture("GAlbedo", &t.albedo).
		Texture("GMaterial", &t.surface)
	t.add(h, t.pass)
}

func (t *Emission) Run([]*component.Component, camera.Camera) {
	t.execute(t.pass)
}
