package task

import (
	"fmt"

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

// Bloom blurs the anti-aliased scene through a chain of half-size levels and back up. The
// chain is built for config.MaxBloomDownscale levels; the configured count selects how
// many run.
type Bloom struct {
	passGroup
	down  []*bloomPass
	up    []*bloomPass
	final *bloomPass
}

var _ Task = &Bloom{}

// NewBloom creates the bloom task.
func NewBloom() *Bloom { return &Bloom{} }

func (t *Bloom) Name() string { return "Bloom" }

// bloomLevelSize returns the size of chain level i, which halves the render size i+1 times.
func bloomLevelSize(i int) func(common.Size) common.Size {
	return func(render common.Size) common.Size {
		return render.Scaled(1 / float32(int(1)<<(i+1)))
	}
}

func (t *Bloom) Setup(h Host) {
	mix := &h.Settings().Bloom.MixStrength
	var passes []graph.Pass
	for i := range config.MaxBloomDownscale {
		d := newBloomPass(fmt.Sprintf("BloomDown%d", i), programs.BloomDownsample, bloomLevelSize(i))
		t.down = append(t.down, d)
		passes = append(passes, d)
	}
	for i := range config.MaxBloomDownscale - 1 {
		u := newBloomPass(fmt.Sprintf("BloomUp%d", i), programs.BloomUpsample, bloomLevelSize(i))
		u.blend(mix)
		t.up = append(t.up, u)
		passes = append(passes, u)
	}
	t.final = newBloomPass(target.Bloom.String(), programs.BloomUpsample, nil)
	t.final.blend(mix)
	passes = append(passes, t.final)
	t.add(h, passes...)
}

func (t *Bloom) Run([]*component.Component, camera.Camera) {
	settings := t.host.Settings().Bloom
	if !settings.Enabled {
		t.host.SetRenderTarget(target.Bloom, t.host.Placeholder(Black))
		return
	}
	count := min(max(settings.DownscaleCount, 1), config.MaxBloomDownscale)
	scene := t.host.GetRenderTarget(target.AntiAliasing)

	source := scene
	for _, d := range t.down[:count] {
		d.source = source
		t.execute(d)
		source = d.output
	}
	for i := count - 2; i >= 0; i-- {
		u := t.up[i]
		u.source, u.base = source, t.down[i].output
		t.execute(u)
		source = u.output
	}
	t.final.source, t.final.base = source, scene
	t.execute(t.final)
	t.host.SetRenderTarget(target.Bloom, t.final.output)
}

// bloomPass is one level of the chain. Its inputs are chosen every frame.
type bloomPass struct {
	graph.BasePass
	source, base resource.Texture
	output       resource.Texture
}

func newBloomPass(name, program string, size func(common.Size) common.Size) *bloomPass {
	p := &bloomPass{BasePass: graph.NewBasePass(name, graph.KindBase)}
	params := p.Parameters()
	params.Program = program
	params.Size = size
	params.
		DeclareTarget(name, resource.AttachmentSpec{Format: backend.FormatRGBA16F}).
		ReferenceTexture(name, &p.output)
	p.ShaderParameters().Texture("source", &p.source)
	return p
}

// blend makes the pass mix its upsampled source into base.
func (p *bloomPass) blend(mix *float32) {
	p.ShaderParameters().
		Float("mixStrength", mix).
		Texture("base", &p.base)
}

func (p *bloomPass) Update(float32) { p.Context().DrawFullscreen() }
