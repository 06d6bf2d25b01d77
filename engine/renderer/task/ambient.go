package task

import (
	"math/rand/v2"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
)

// Graph names of the ambient passes' outputs.
const (
	SSAONoisy = "SSAONoisy"
	SSAO      = "SSAO"
	SSDONoisy = "SSDONoisy"
	SSDO      = "SSDO"
)

// NoiseSize is the edge of the tiled rotation noise texture.
const NoiseSize = 4

// AmbientKernel returns n hemisphere samples around +Z generated from seed. Samples are
// denser near the origin and the same seed always yields the same kernel.
func AmbientKernel(seed uint64, n int) []common.Vec4 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	kernel := make([]common.Vec4, n)
	for i := range kernel {
		dir := common.Vec3{rng.Float32()*2 - 1, rng.Float32()*2 - 1, rng.Float32()}
		if dir.Length() < 1e-4 {
			dir = common.Vec3{0, 0, 1}
		}
		scale := float32(i) / float32(n)
		scale = common.Mix(0.1, 1, scale*scale)
		kernel[i] = dir.Normalize().Scale(rng.Float32() * scale).Vec4(0)
	}
	return kernel
}

// AmbientNoise returns the NoiseSize x NoiseSize rotation vectors tiled over the screen.
func AmbientNoise(seed uint64) []common.Vec4 {
	rng := rand.New(rand.NewPCG(^seed, seed))
	noise := make([]common.Vec4, NoiseSize*NoiseSize)
	for i := range noise {
		noise[i] = common.Vec4{rng.Float32()*2 - 1, rng.Float32()*2 - 1, 0, 0}
	}
	return noise
}

// Ambient computes screen-space ambient occlusion and directional occlusion at half
// resolution, each followed by a blur. Disabled effects publish a placeholder instead.
type Ambient struct {
	passGroup
	ssao, ssaoBlur *fullscreenPass
	ssdo, ssdoBlur *fullscreenPass

	kernel []common.Vec4
	noise  resource.Texture

	position, normal, light resource.Texture
	ssaoNoisy, ssdoNoisy    resource.Texture

	ssaoSamples, ssdoSamples int32
}

var _ Task = &Ambient{}

// NewAmbient creates the ambient task.
func NewAmbient() *Ambient { return &Ambient{} }

func (t *Ambient) Name() string { return "Ambient" }

func (t *Ambient) Setup(h Host) {
	settings := h.Settings()
	t.kernel = AmbientKernel(settings.SSAO.Seed, programs.MaxKernelSamples)
	t.noise = must(resource.ImportTexture(h.Context().Device(), "AmbientNoise", backend.FormatRGBA16F,
		squareSize(NoiseSize), AmbientNoise(settings.SSAO.Seed),
		resource.ImportParameters{Filter: backend.FilterNearest, Wrap: backend.WrapRepeat}))

	t.ssao = t.hemispherePass(h, "SSAO", programs.SSAO, SSAONoisy, &t.ssaoSamples, &settings.SSAO.Radius)
	t.ssao.ShaderParameters().Float("bias", &settings.SSAO.Bias)
	t.ssaoBlur = newBlurPass("SSAOBlur", SSAONoisy, SSAO, &t.ssaoNoisy)

	t.ssdo = t.hemispherePass(h, "SSDO", programs.SSDO, SSDONoisy, &t.ssdoSamples, &settings.SSDO.Radius)
	t.ssdo.Parameters().ReferenceTexture(target.Light.String(), &t.light)
	t.ssdo.ShaderParameters().
		Float("strength", &settings.SSDO.Strength).
		Texture("Light", &t.light)
	t.ssdoBlur = newBlurPass("SSDOBlur", SSDONoisy, SSDO, &t.ssdoNoisy)

	t.add(h, t.ssao, t.ssaoBlur, t.ssdo, t.ssdoBlur)
}

// hemispherePass creates a half resolution pass sampling the kernel around G-buffer
// surfaces.
func (t *Ambient) hemispherePass(h Host, name, program, output string, samples *int32, radius *float32) *fullscreenPass {
	p := newFullscreenPass(name, program)
	params := p.Parameters()
	params.Size = halfSize
	params.
		DeclareTarget(output, resource.AttachmentSpec{Format: backend.FormatRGBA16F}).
		ReferenceTexture(target.GPosition.String(), &t.position).
		ReferenceTexture(target.GNormal.String(), &t.normal)
	frame := h.Frame()
	p.ShaderParameters().
		Mat4("view", &frame.View).
		Mat4("projection", &frame.Projection).
		Vec4Array("kernel", &t.kernel).
		Int("sampleCount", samples).
		Float("radius", radius).
		Texture("GPosition", &t.position).
		Texture("GNormal", &t.normal).
		Texture("noise", &t.noise)
	return p
}

func newBlurPass(name, input, output string, source *resource.Texture) *fullscreenPass {
	p := newFullscreenPass(name, programs.Blur)
	params := p.Parameters()
	params.Size = halfSize
	params.
		DeclareTarget(output, resource.AttachmentSpec{Format: backend.FormatRGBA16F}).
		ReferenceTexture(input, source)
	p.ShaderParameters().Texture("source", source)
	return p
}

func (t *Ambient) Release() {
	if t.noise != nil {
		t.noise.Release()
		t.noise = nil
	}
}

func (t *Ambient) Run([]*component.Component, camera.Camera) {
	settings := t.host.Settings()
	g := t.host.Graph()

	if settings.SSAO.Enabled {
		t.ssaoSamples = sampleCount(settings.SSAO.Samples)
		t.execute(t.ssao)
		t.execute(t.ssaoBlur)
		t.host.SetRenderTarget(target.AmbientOcclusion, g.Resource(SSAO))
	} else {
		t.host.SetRenderTarget(target.AmbientOcclusion, t.host.Placeholder(White))
	}

	if settings.SSDO.Enabled {
		t.ssdoSamples = sampleCount(settings.SSDO.Samples)
		t.execute(t.ssdo)
		t.execute(t.ssdoBlur)
		t.host.SetRenderTarget(target.DiffuseOcclusion, g.Resource(SSDO))
	} else {
		t.host.SetRenderTarget(target.DiffuseOcclusion, t.host.Placeholder(Black))
	}
}

func sampleCount(n int) int32 {
	return int32(min(max(n, 1), config.MaxAmbientSamples, programs.MaxKernelSamples))
}
