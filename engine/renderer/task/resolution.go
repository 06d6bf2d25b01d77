package task

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
)

// Resolution mixes in bloom, applies gamma and writes the Viewport target at display size.
type Resolution struct {
	passGroup
	pass *fullscreenPass

	scene, bloom resource.Texture
	bloomEnabled int32
}

var _ Task = &Resolution{}

// NewResolution creates the resolution task.
func NewResolution() *Resolution { return &Resolution{} }

func (t *Resolution) Name() string { return "Resolution" }

func (t *Resolution) Setup(h Host) {
	settings := h.Settings()
	frame := h.Frame()
	t.pass = newFullscreenPass("Resolution", programs.Resolution)
	params := t.pass.Parameters()
	params.Size = func(render common.Size) common.Size {
		if frame.ViewportSize.Empty() {
			return render
		}
		return frame.ViewportSize
	}
	params.DeclareTarget(target.Viewport.String(), resource.AttachmentSpec{Format: backend.FormatRGBA8})
	t.pass.ShaderParameters().
		Float("gamma", &settings.Gamma).
		Float("bloomStrength", &settings.Bloom.Strength).
		Float("bloomIntensity", &settings.Bloom.Intensity).
		Int("bloomEnabled", &t.bloomEnabled).
		Texture("scene", &t.scene).
		Texture("bloom", &t.bloom)
	t.add(h, t.pass)
}

func (t *Resolution) Run([]*component.Component, camera.Camera) {
	t.scene = t.host.GetRenderTarget(target.AntiAliasing)
	t.bloom = t.host.GetRenderTarget(target.Bloom)
	t.bloomEnabled = 0
	if t.host.Settings().Bloom.Enabled {
		t.bloomEnabled = 1
	}
	t.execute(t.pass)
}
