package task

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
)

// FXAAOutput is the graph name of the FXAA storage texture.
const FXAAOutput = "FXAA"

// fxaaGroup is the workgroup edge of the FXAA compute program.
const fxaaGroup = 8

// AntiAliasing runs the active anti-aliasing method over the combined scene and publishes
// its result as the AntiAliasing target. Only one method runs per frame.
type AntiAliasing struct {
	passGroup
	taa  *fullscreenPass
	fxaa *computePass

	source       resource.Texture
	history      resource.Texture
	velocity     resource.Texture
	depth        resource.Texture
	output       resource.Texture
	historyValid int32
}

var _ Task = &AntiAliasing{}

// NewAntiAliasing creates the anti-aliasing task.
func NewAntiAliasing() *AntiAliasing { return &AntiAliasing{} }

func (t *AntiAliasing) Name() string { return "AntiAliasing" }

// TemporalPass returns the TAA resolve pass.
func (t *AntiAliasing) TemporalPass() graph.Pass { return t.taa }

func (t *AntiAliasing) Setup(h Host) {
	settings := h.Settings()

	t.taa = newFullscreenPass("TAA", programs.TAA)
	t.taa.Parameters().
		ReferenceTexture(target.GVelocity.String(), &t.velocity).
		ReferenceTexture(target.GDepth.String(), &t.depth)
	t.taa.ShaderParameters().
		Float("feedback", &settings.TAAFeedback).
		Int("historyValid", &t.historyValid).
		Texture("current", &t.source).
		Texture("history", &t.history).
		Texture("GVelocity", &t.velocity).
		Texture("GDepth", &t.depth)

	dev := h.Context().Device()
	t.fxaa = newComputePass("FXAA", programs.FXAA)
	t.fxaa.Parameters().DeclareTexture(FXAAOutput, func(g *graph.Graph) resource.Texture {
		size := g.Size()
		return must(resource.NewTexture(dev, backend.TextureDescriptor{
			Label: FXAAOutput, Format: backend.FormatRGBA16F, Dimension: backend.Dimension2D,
			Width: size.Width, Height: size.Height, Storage: true,
		}))
	}, &t.output)
	t.fxaa.ShaderParameters().
		Float("contrastThreshold", &settings.FXAA.ContrastThreshold).
		Float("relativeThreshold", &settings.FXAA.RelativeThreshold).
		Float("subpixelBlending", &settings.FXAA.SubpixelBlending).
		Texture("source", &t.source).
		Image("destination", &t.output)

	t.add(h, t.taa, t.fxaa)
}

// Resize also resizes the FXAA output, which no framebuffer owns.
func (t *AntiAliasing) Resize(size common.Size, upscale float32) {
	t.passGroup.Resize(size, upscale)
	if t.output != nil {
		render := size.Scaled(upscale)
		t.output.Resize(render.Width, render.Height)
	}
}

func (t *AntiAliasing) Run([]*component.Component, camera.Camera) {
	t.source = t.host.GetRenderTarget(target.Combination)
	switch t.host.Settings().AA {
	case config.AATAA:
		ring := t.host.History()
		current := ring.Advance()
		t.taa.Parameters().Framebuffer().SetAttachment(0, current)
		t.history = ring.Previous()
		t.historyValid = 0
		if ring.Frames() >= 2 {
			t.historyValid = 1
		}
		t.execute(t.taa)
		t.host.SetRenderTarget(target.AntiAliasing, current)
	case config.AAFXAA:
		size := t.output.Size()
		t.fxaa.groups = [3]int{groupCount(size.Width), groupCount(size.Height), 1}
		t.execute(t.fxaa)
		t.host.SetRenderTarget(target.AntiAliasing, t.output)
	default:
		t.host.SetRenderTarget(target.AntiAliasing, t.source)
	}
}

func groupCount(n int) int { return (n + fxaaGroup - 1) / fxaaGroup }

// computePass dispatches its program over a grid of workgroups.
type computePass struct {
	graph.BasePass
	groups [3]int
}

func newComputePass(name, program string) *computePass {
	p := &computePass{BasePass: graph.NewBasePass(name, graph.KindCompute)}
	p.Parameters().Program = program
	return p
}

func (p *computePass) Update(float32) {
	p.Context().Dispatch(p.groups[0], p.groups[1], p.groups[2])
}
