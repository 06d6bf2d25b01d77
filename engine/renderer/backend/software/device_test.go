package software

import (
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatProgram draws vertex positions as given (already clip space) with a constant color
// taken from the "color" uniform.
func flatProgram() *backend.CPUProgram {
	return &backend.CPUProgram{
		Bind: func(b *backend.Bindings) any { return b.Uniforms.Vec4("color") },
		Vertex: func(_ any, _ int, v common.Vertex, _ *backend.Varyings) common.Vec4 {
			return v.Position.Vec4(1)
		},
		Fragment: func(state any, _ *backend.Fragment, out *backend.FragmentOutput) bool {
			out.Colors[0] = state.(common.Vec4)
			return true
		},
	}
}

// fullscreenProgram outputs the interpolated uv of the fullscreen triangle.
func fullscreenProgram() *backend.CPUProgram {
	return &backend.CPUProgram{
		Vertex: func(_ any, index int, _ common.Vertex, out *backend.Varyings) common.Vec4 {
			x := float32((index<<1)&2)*2 - 1
			y := float32(index&2)*2 - 1
			out.SetVec2(0, common.Vec2{(x + 1) * 0.5, (1 - y) * 0.5})
			return common.Vec4{x, y, 0, 1}
		},
		Fragment: func(_ any, in *backend.Fragment, out *backend.FragmentOutput) bool {
			uv := in.Varyings.Vec2(0)
			out.Colors[0] = common.Vec4{uv[0], uv[1], 0, 1}
			return true
		},
	}
}

func newTarget(t *testing.T, d backend.Device, format backend.Format, w, h int) backend.Texture {
	t.Helper()
	tex, err := d.CreateTexture(backend.TextureDescriptor{Label: "target", Format: format, Width: w, Height: h})
	require.NoError(t, err)
	return tex
}

func quadBuffer(t *testing.T, d backend.Device, z float32, ccw bool) backend.Buffer {
	t.Helper()
	verts := []common.Vertex{
		{Position: common.Vec3{-1, -1, z}}, {Position: common.Vec3{1, -1, z}}, {Position: common.Vec3{1, 1, z}},
		{Position: common.Vec3{-1, -1, z}}, {Position: common.Vec3{1, 1, z}}, {Position: common.Vec3{-1, 1, z}},
	}
	if !ccw {
		verts[1], verts[2] = verts[2], verts[1]
		verts[4], verts[5] = verts[5], verts[4]
	}
	b, err := d.CreateBuffer(backend.BufferVertex, common.SliceToBytes(verts))
	require.NoError(t, err)
	return b
}

func TestFullscreenTriangleCoversTarget(t *testing.T) {
	for _, workers := range []int{1, 4} {
		d := New(WithWorkerCount(workers))
		defer d.Release()

		target := newTarget(t, d, backend.FormatRGBA32F, 8, 4)
		prog, err := d.CreateProgram(backend.ProgramSource{Name: "fullscreen", CPU: fullscreenProgram()})
		require.NoError(t, err)

		require.NoError(t, d.BeginRenderPass(backend.RenderPassDescriptor{Colors: []backend.Attachment{{Texture: target}}}))
		require.NoError(t, d.Draw(backend.DrawCall{Program: prog}))
		d.EndRenderPass()

		pixels, err := d.ReadTexture(target, 0)
		require.NoError(t, err)
		for y := 0; y < 4; y++ {
			for x := 0; x < 8; x++ {
				p := pixels[y*8+x]
				assert.InDelta(t, (float32(x)+0.5)/8, p[0], 1e-4)
				assert.InDelta(t, (float32(y)+0.5)/4, p[1], 1e-4)
			}
		}
	}
}

func TestAdditiveQuadHasNoSeam(t *testing.T) {
	d := New(WithWorkerCount(2))
	defer d.Release()

	target := newTarget(t, d, backend.FormatRGBA16F, 16, 16)
	prog, err := d.CreateProgram(backend.ProgramSource{Name: "flat", CPU: flatProgram()})
	require.NoError(t, err)
	quad := quadBuffer(t, d, 0.5, true)

	require.NoError(t, d.BeginRenderPass(backend.RenderPassDescriptor{
		Colors:     []backend.Attachment{{Texture: target}},
		ClearColor: true,
	}))
	require.NoError(t, d.Draw(backend.DrawCall{
		Program:  prog,
		Vertices: quad,
		Uniforms: backend.Uniforms{"color": common.Vec4{0.25, 0, 0, 0}},
		State:    backend.PipelineState{Blend: backend.BlendState{Enabled: true, Src: backend.BlendOne, Dst: backend.BlendOne}},
	}))
	d.EndRenderPass()

	pixels, err := d.ReadTexture(target, 0)
	require.NoError(t, err)
	for i, p := range pixels {
		require.InDelta(t, 0.25, p[0], 1e-6, "pixel %d", i)
	}
}

func TestDepthTestKeepsNearest(t *testing.T) {
	d := New(WithWorkerCount(1))
	defer d.Release()

	color := newTarget(t, d, backend.FormatRGBA8, 4, 4)
	depth := newTarget(t, d, backend.FormatDepth32F, 4, 4)
	prog, err := d.CreateProgram(backend.ProgramSource{Name: "flat", CPU: flatProgram()})
	require.NoError(t, err)

	near := quadBuffer(t, d, 0.2, true)
	far := quadBuffer(t, d, 0.8, true)
	state := backend.PipelineState{Depth: backend.DepthState{Test: true, Compare: backend.CompareLess, Write: true}}

	require.NoError(t, d.BeginRenderPass(backend.RenderPassDescriptor{
		Colors:          []backend.Attachment{{Texture: color}},
		Depth:           &backend.Attachment{Texture: depth},
		ClearColor:      true,
		ClearDepth:      true,
		ClearDepthValue: 1,
	}))
	require.NoError(t, d.Draw(backend.DrawCall{Program: prog, Vertices: near, Uniforms: backend.Uniforms{"color": common.Vec4{1, 0, 0, 1}}, State: state}))
	require.NoError(t, d.Draw(backend.DrawCall{Program: prog, Vertices: far, Uniforms: backend.Uniforms{"color": common.Vec4{0, 1, 0, 1}}, State: state}))
	d.EndRenderPass()

	pixels, err := d.ReadTexture(color, 0)
	require.NoError(t, err)
	assert.Equal(t, common.Vec4{1, 0, 0, 1}, pixels[5])

	depths, err := d.ReadTexture(depth, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, depths[5][0], 1e-6)
}

func TestBackFaceCulling(t *testing.T) {
	d := New(WithWorkerCount(1))
	defer d.Release()

	target := newTarget(t, d, backend.FormatRGBA8, 4, 4)
	prog, err := d.CreateProgram(backend.ProgramSource{Name: "flat", CPU: flatProgram()})
	require.NoError(t, err)
	cw := quadBuffer(t, d, 0.5, false)

	draw := func(cull backend.CullMode) common.Vec4 {
		require.NoError(t, d.BeginRenderPass(backend.RenderPassDescriptor{Colors: []backend.Attachment{{Texture: target}}, ClearColor: true}))
		require.NoError(t, d.Draw(backend.DrawCall{Program: prog, Vertices: cw, Uniforms: backend.Uniforms{"color": common.Vec4{1, 1, 1, 1}}, State: backend.PipelineState{Cull: cull}}))
		d.EndRenderPass()
		pixels, err := d.ReadTexture(target, 0)
		require.NoError(t, err)
		return pixels[5]
	}

	assert.Equal(t, common.Vec4{}, draw(backend.CullBack))
	assert.Equal(t, common.Vec4{1, 1, 1, 1}, draw(backend.CullFront))
	assert.Equal(t, common.Vec4{1, 1, 1, 1}, draw(backend.CullNone))
}

func TestNormalizedFormatClamps(t *testing.T) {
	d := New(WithWorkerCount(1))
	tex := newTarget(t, d, backend.FormatRGBA8, 1, 1)
	require.NoError(t, d.WriteTexture(tex, 0, []common.Vec4{{2, -1, 0.5, 1}}))
	pixels, err := d.ReadTexture(tex, 0)
	require.NoError(t, err)
	assert.Equal(t, common.Vec4{1, 0, 0.5, 1}, pixels[0])

	assert.Error(t, d.WriteTexture(tex, 0, make([]common.Vec4, 2)))
	assert.Error(t, d.WriteTexture(tex, 1, make([]common.Vec4, 1)))
}

func TestCubeSampling(t *testing.T) {
	d := New(WithWorkerCount(1))
	cube, err := d.CreateTexture(backend.TextureDescriptor{Format: backend.FormatR32F, Dimension: backend.DimensionCube, Width: 2, Height: 2, Filter: backend.FilterNearest})
	require.NoError(t, err)
	for face := 0; face < 6; face++ {
		px := make([]common.Vec4, 4)
		for i := range px {
			px[i] = common.Vec4{float32(face) / 10}
		}
		require.NoError(t, d.WriteTexture(cube, face, px))
	}

	s := sampler{t: cube.(*texture)}
	dirs := []common.Vec3{{1, 0, 0}, {-1, 0, 0}, {0, 1, 0}, {0, -1, 0}, {0, 0, 1}, {0, 0, -1}}
	for face, dir := range dirs {
		assert.InDelta(t, float32(face)/10, s.SampleCube(dir)[0], 1e-6)
		assert.Equal(t, float32(1), s.CompareCube(dir, float32(face)/10))
		assert.Equal(t, float32(0), s.CompareCube(dir, float32(face)/10+0.01))
	}
}

func TestDispatchWritesImage(t *testing.T) {
	d := New(WithWorkerCount(3))
	defer d.Release()

	out, err := d.CreateTexture(backend.TextureDescriptor{Format: backend.FormatRGBA16F, Width: 10, Height: 7, Storage: true})
	require.NoError(t, err)
	prog, err := d.CreateProgram(backend.ProgramSource{Name: "ids", CPU: &backend.CPUProgram{
		Bind: func(b *backend.Bindings) any { return b.Image("out") },
		Compute: func(state any, x, y, _ int) {
			state.(backend.Image).Store(x, y, common.Vec4{float32(x), float32(y), 0, 1})
		},
		WorkgroupSize: [3]int{8, 8, 1},
	}})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(backend.DispatchCall{Program: prog, Groups: [3]int{2, 1, 1}, Images: []backend.TextureBinding{{Name: "out", Texture: out}}}))

	pixels, err := d.ReadTexture(out, 0)
	require.NoError(t, err)
	assert.Equal(t, common.Vec4{9, 6, 0, 1}, pixels[6*10+9])
	assert.Equal(t, common.Vec4{3, 2, 0, 1}, pixels[2*10+3])
}

func TestDrawOutsidePass(t *testing.T) {
	d := New(WithWorkerCount(1))
	prog, err := d.CreateProgram(backend.ProgramSource{Name: "flat", CPU: flatProgram()})
	require.NoError(t, err)
	assert.ErrorIs(t, d.Draw(backend.DrawCall{Program: prog}), backend.ErrNoPass)

	_, err = d.CreateProgram(backend.ProgramSource{Name: "gpu-only"})
	assert.ErrorIs(t, err, backend.ErrUnsupported)
}
