package graph

import (
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend/software"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPass struct {
	BasePass
	log      *[]string
	update   func(p *recordingPass)
	children []Pass
}

func newRecordingPass(name string, kind Kind, log *[]string) *recordingPass {
	return &recordingPass{BasePass: NewBasePass(name, kind), log: log}
}

func (p *recordingPass) Initialize(*Graph) { *p.log = append(*p.log, "init "+p.Name()) }
func (p *recordingPass) PreUpdate()        { *p.log = append(*p.log, "pre "+p.Name()) }

func (p *recordingPass) Update(float32) {
	*p.log = append(*p.log, "update "+p.Name())
	if p.update != nil {
		p.update(p)
	}
}

type recordingMultiPass struct {
	*recordingPass
}

func (m recordingMultiPass) CreatePasses() []Pass { return m.children }

func newGraph(t *testing.T) *Graph {
	t.Helper()
	ctx := rendering.NewContext(software.New(software.WithWorkerCount(1)), nil)
	require.NoError(t, ctx.BeginFrame())
	return New(ctx, common.Size{Width: 8, Height: 8})
}

var color16 = resource.AttachmentSpec{Format: backend.FormatRGBA16F}

func TestReferenceResolvesDeclarationOfLaterPass(t *testing.T) {
	g := newGraph(t)
	var log []string

	var sampled resource.Texture
	var count *int
	reader := newRecordingPass("Reader", KindBase, &log)
	reader.Parameters().ReferenceTarget("A").ReferenceTexture("B", &sampled)
	Reference(reader.Parameters(), "count", &count)

	writer := newRecordingPass("Writer", KindBase, &log)
	writer.Parameters().DeclareTarget("A", color16).DeclareTarget("B", color16)
	Declare(writer.Parameters(), "count", func(*Graph) *int { return new(int) }, nil)

	g.AddPass(reader)
	g.AddPass(writer)
	g.Build()

	assert.Same(t, g.Resource("A"), reader.Parameters().Framebuffer().Attachment(0))
	assert.Same(t, g.Resource("B"), sampled)
	assert.Same(t, g.Parameter("count"), any(count))
	assert.Equal(t, []string{"init Reader", "init Writer"}, log)
}

func TestBuildIsDeterministic(t *testing.T) {
	build := func() ([]string, []string) {
		g := newGraph(t)
		var log []string
		for _, name := range []string{"G", "Light", "Combine"} {
			p := newRecordingPass(name, KindBase, &log)
			p.Parameters().DeclareTarget(name+"0", color16).DeclareTarget(name+"1", color16)
			Declare(p.Parameters(), name+"Param", func(*Graph) int { return len(name) }, nil)
			g.AddPass(p)
		}
		g.Build()
		first := g.ResourceNames()
		g.Build()
		assert.Equal(t, first, g.ResourceNames())
		return g.ResourceNames(), g.ParameterNames()
	}

	r1, p1 := build()
	r2, p2 := build()
	assert.Equal(t, r1, r2)
	assert.Equal(t, p1, p2)
	assert.Equal(t, []string{"G0", "G1", "Light0", "Light1", "Combine0", "Combine1"}, r1)
}

func TestRebuildRewiresReferences(t *testing.T) {
	g := newGraph(t)
	var log []string
	writer := newRecordingPass("Writer", KindBase, &log)
	writer.Parameters().DeclareTarget("A", color16)
	reader := newRecordingPass("Reader", KindBase, &log)
	reader.Parameters().ReferenceTarget("A")
	g.AddPass(writer)
	g.AddPass(reader)

	for range 2 {
		g.Build()
		assert.Same(t, g.Resource("A"), reader.Parameters().Framebuffer().Attachment(0))
		assert.Same(t, writer.Parameters().Framebuffer().Attachment(0), reader.Parameters().Framebuffer().Attachment(0))
	}
}

func TestBuildPanicsOnUnknownOrDuplicateNames(t *testing.T) {
	cases := []struct {
		name  string
		setup func(a, b *Parameters)
	}{
		{"missing target", func(a, _ *Parameters) { a.ReferenceTarget("Nope") }},
		{"missing parameter", func(a, _ *Parameters) {
			var v int
			Reference(a, "nope", &v)
		}},
		{"duplicate target", func(a, b *Parameters) {
			a.DeclareTarget("A", color16)
			b.DeclareTarget("A", color16)
		}},
		{"duplicate parameter", func(a, b *Parameters) {
			Declare(a, "p", func(*Graph) int { return 1 }, nil)
			Declare(b, "p", func(*Graph) int { return 2 }, nil)
		}},
		{"type mismatch", func(a, b *Parameters) {
			Declare(a, "p", func(*Graph) int { return 1 }, nil)
			var s string
			Reference(b, "p", &s)
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newGraph(t)
			var log []string
			a := newRecordingPass("A", KindBase, &log)
			b := newRecordingPass("B", KindBase, &log)
			tc.setup(a.Parameters(), b.Parameters())
			g.AddPass(a)
			g.AddPass(b)
			assert.Panics(t, g.Build)
			assert.Empty(t, log, "no pass may initialize after a failed resolution")
		})
	}
}

func TestRebuildReleasesDeclaredTextures(t *testing.T) {
	g := newGraph(t)
	var log []string
	var tex resource.Texture
	p := newRecordingPass("Shadow", KindCompute, &log)
	p.Parameters().DeclareTexture("ShadowMap", func(g *Graph) resource.Texture {
		size := g.Size()
		out, err := resource.NewTexture(g.Context().Device(), backend.TextureDescriptor{
			Label: "ShadowMap", Format: backend.FormatDepth32F, Width: size.Width, Height: size.Height,
		})
		require.NoError(t, err)
		return out
	}, &tex)
	g.AddPass(p)

	g.Build()
	first := tex
	require.NotNil(t, first.Handle())

	g.Build()
	assert.Nil(t, first.Handle(), "the previous build's texture is released")
	assert.NotSame(t, first, tex)
	assert.Same(t, tex, g.Resource("ShadowMap"))

	g.Release()
	assert.Nil(t, tex.Handle())
}

func TestExternalParameters(t *testing.T) {
	g := newGraph(t)
	var log []string
	frame := &struct{ N int }{N: 3}
	g.SetParameter("frame", frame)

	var got *struct{ N int }
	p := newRecordingPass("P", KindCompute, &log)
	Reference(p.Parameters(), "frame", &got)
	g.AddPass(p)
	g.Build()

	assert.Same(t, frame, got)
	assert.Panics(t, func() { g.SetParameter("late", 1) })
}

func TestMultiPassExpansion(t *testing.T) {
	g := newGraph(t)
	var log []string

	shadow := newRecordingPass("Shadow", KindBase, &log)
	shadow.Parameters().DeclareDepthTarget("ShadowDepth", resource.AttachmentSpec{})
	light := newRecordingPass("Shade", KindBase, &log)
	light.Parameters().DeclareTarget("Light", color16)

	container := recordingMultiPass{newRecordingPass("PointLight", KindMultiPass, &log)}
	container.children = []Pass{shadow, light}
	container.update = func(p *recordingPass) {
		for _, c := range p.Children() {
			p.Graph().Execute(c, 0)
		}
	}

	g.AddPass(container)
	g.Build()
	assert.Equal(t, []string{"init PointLight", "init Shadow", "init Shade"}, log)
	assert.Len(t, g.Passes(), 1)
	assert.True(t, g.HasResource("ShadowDepth"))
	assert.Nil(t, container.Parameters().Framebuffer())

	log = log[:0]
	g.Update(0.016)
	assert.Equal(t, []string{"pre PointLight", "update PointLight", "pre Shadow", "update Shadow", "pre Shade", "update Shade"}, log)
}

func TestNestedMultiPassPanics(t *testing.T) {
	g := newGraph(t)
	var log []string
	inner := recordingMultiPass{newRecordingPass("Inner", KindMultiPass, &log)}
	outer := recordingMultiPass{newRecordingPass("Outer", KindMultiPass, &log)}
	outer.children = []Pass{inner}
	assert.Panics(t, func() { g.AddPass(outer) })
}

func TestExecutePushesShaderParameters(t *testing.T) {
	g := newGraph(t)
	var log []string
	intensity := float32(5)
	color := common.Vec3{1, 0.5, 0}

	p := newRecordingPass("Light", KindBase, &log)
	p.Parameters().DeclareTarget("Light", color16)
	p.ShaderParameters().Float("intensity", &intensity)
	p.ShaderParameters().Sub("light").Vec3("color", &color)

	var seen []any
	p.update = func(rp *recordingPass) {
		ctx := rp.Context()
		seen = append(seen, ctx.Uniform("intensity"), ctx.Uniform("light.color"))
		assert.Same(t, rp.Parameters().Framebuffer(), ctx.Framebuffer())
	}
	g.AddPass(p)
	g.Build()

	intensity = 7
	g.Update(0)
	assert.Equal(t, []any{float32(7), color}, seen)
	assert.Nil(t, g.Context().ActiveSpecification())
	assert.Equal(t, []string{"intensity", "light.color"}, names(p.ShaderParameters()))
}

func names(s *ShaderParameters) []string {
	var out []string
	for _, b := range s.Bindings() {
		out = append(out, b.Name())
	}
	return out
}

func TestResizeIsIdempotentPerPass(t *testing.T) {
	g := newGraph(t)
	var log []string
	full := newRecordingPass("Full", KindBase, &log)
	full.Parameters().DeclareTarget("Full", color16)
	half := newRecordingPass("Half", KindBase, &log)
	half.Parameters().DeclareTarget("Half", color16)
	half.Parameters().Size = func(s common.Size) common.Size { return common.Size{Width: s.Width / 2, Height: s.Height / 2} }
	g.AddPass(full)
	g.AddPass(half)
	g.Build()

	assert.Equal(t, common.Size{Width: 4, Height: 4}, g.Resource("Half").Size())

	g.Resize(common.Size{Width: 16, Height: 12})
	assert.Equal(t, common.Size{Width: 16, Height: 12}, g.Resource("Full").Size())
	assert.Equal(t, common.Size{Width: 8, Height: 6}, g.Resource("Half").Size())
	gen := g.Resource("Full").Generation()

	g.Resize(common.Size{Width: 16, Height: 12})
	assert.Equal(t, gen, g.Resource("Full").Generation())
}

func TestAddPassTwicePanics(t *testing.T) {
	g := newGraph(t)
	var log []string
	p := newRecordingPass("P", KindBase, &log)
	g.AddPass(p)
	assert.Panics(t, func() { g.AddPass(p) })
}

func TestResizePassTouchesOnlyItsFramebuffers(t *testing.T) {
	g := newGraph(t)
	var log []string
	scene := newRecordingPass("Scene", KindBase, &log)
	scene.Parameters().DeclareTarget("Scene", color16)

	shadow := newRecordingPass("Shadow", KindBase, &log)
	shadow.Parameters().DeclareTarget("Shadow", color16)
	container := recordingMultiPass{newRecordingPass("Spot", KindMultiPass, &log)}
	container.children = []Pass{shadow}

	g.AddPass(scene)
	g.AddPass(container)
	g.Build()

	g.ResizePass(container, common.Size{Width: 4, Height: 2})
	assert.Equal(t, common.Size{Width: 4, Height: 2}, g.Resource("Shadow").Size())
	assert.Equal(t, common.Size{Width: 8, Height: 8}, g.Resource("Scene").Size())
}

func TestShadersFollowPrograms(t *testing.T) {
	g := newGraph(t)
	var log []string
	a := newRecordingPass("A", KindBase, &log)
	a.Parameters().Program = "blur"
	b := newRecordingPass("B", KindBase, &log)
	g.AddPass(a)
	g.AddPass(b)
	g.Build()

	shaders := g.Shaders()
	require.Len(t, shaders, 1)
	assert.Same(t, a.Parameters().Shader(), shaders[0])
	assert.Equal(t, "blur", shaders[0].Name())
}
