package renderer

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/component"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend/software"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/graph"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/resource"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/task"
	"github.com/KlishchD/EdEngine-sub000/engine/scene"
	"github.com/anthonynsimon/bild/imgio"
	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSize = common.Size{Width: 48, Height: 48}

func testSettings() config.RendererConfig {
	s := config.Default().Renderer
	s.Backend = "software"
	s.ShadowMapSize = 32
	s.HistorySize = 3
	s.JitterLength = 4
	return s
}

type fixture struct {
	r      *renderer
	assets asset.Manager
	scene  scene.Scene
}

// newFixture builds a renderer over the software backend and a scene with one cube at the
// origin seen from +Z.
func newFixture(t *testing.T, settings config.RendererConfig, options ...RendererBuilderOption) *fixture {
	t.Helper()
	lib := programs.NewLibrary()
	ctx := rendering.NewContext(software.New(software.WithWorkerCount(2)), lib)
	assets := asset.NewManager(ctx)

	opts := append([]RendererBuilderOption{WithSettings(settings), WithSize(testSize), WithShaderLibrary(lib)}, options...)
	r, err := NewRenderer(ctx, assets, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Release()
		assets.ReleaseAll()
	})

	mesh, err := assets.LoadMesh(asset.CubeMesh)
	require.NoError(t, err)
	material, err := assets.LoadMaterial(asset.DefaultMaterialID)
	require.NoError(t, err)
	cube := component.NewStaticMesh("Cube", component.StaticMesh{Mesh: mesh, Material: material})

	cam := camera.NewCamera(camera.WithPose(common.Vec3{0, 0, 8}, common.Vec3{}))
	return &fixture{
		r:      r.(*renderer),
		assets: assets,
		scene:  scene.NewScene(scene.WithCamera(cam), scene.WithComponents(cube)),
	}
}

func (f *fixture) frame(t *testing.T) {
	t.Helper()
	require.NoError(t, f.r.Update(1.0/60, f.scene, nil))
}

func (f *fixture) read(t *testing.T, tex resource.Texture, layer int) []common.Vec4 {
	t.Helper()
	pixels, err := f.r.Context().ReadTexture(tex, layer)
	require.NoError(t, err)
	return pixels
}

func TestPointLitCubeFrame(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AANone
	f := newFixture(t, settings)
	lamp := component.NewPointLight("Lamp", component.PointLight{
		Color: common.Vec3{1, 1, 1}, Intensity: 5, Radius: 5, ShadowCasting: true,
	})
	lamp.Transform.Position = common.Vec3{1.5, 1.5, 1.5}
	f.scene.Add(lamp)

	f.frame(t)

	albedo := f.read(t, f.r.GetRenderTarget(target.GAlbedo), 0)
	center := testSize.Width*(testSize.Height/2) + testSize.Width/2
	assert.NotEqual(t, common.Vec4{}, albedo[center], "the cube covers the center of the view")

	shadowMap := f.r.Graph().Resource(task.PointShadowMap)
	require.Equal(t, 6, shadowMap.Layers())
	occluded := false
	for face := range 6 {
		for _, p := range f.read(t, shadowMap, face) {
			occluded = occluded || p[0] < 1
		}
	}
	assert.True(t, occluded, "the cube is drawn into the cube shadow map")

	position := f.read(t, f.r.GetRenderTarget(target.GPosition), 0)
	lightBuffer := f.read(t, f.r.GetRenderTarget(target.Light), 0)
	lit := false
	for i, p := range position {
		if p[3] == 1 && lightBuffer[i].XYZ().Length() > 0 {
			lit = true
			break
		}
	}
	assert.True(t, lit, "the light adds to the cube's pixels")

	viewport := f.r.GetViewportTexture()
	assert.Equal(t, testSize, viewport.Size())
	for i, p := range f.read(t, viewport, 0) {
		for c, v := range p {
			require.False(t, math32.IsNaN(v), "pixel %d channel %d is NaN", i, c)
			require.True(t, v >= 0 && v <= 1, "pixel %d channel %d = %v", i, c, v)
		}
	}
}

func TestHistoryRingAdvancesPerTAAFrame(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AATAA
	f := newFixture(t, settings)
	ring := f.r.History()
	n := ring.Len()

	for k := 1; k <= 5; k++ {
		f.frame(t)
		assert.Equal(t, k%n, f.r.HistoryIndex())
		assert.NotSame(t, ring.Current(), ring.Previous())
		assert.Same(t, ring.Current(), f.r.GetRenderTarget(target.AntiAliasing))
	}
}

func TestTAAReadsVelocityAndDepth(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AATAA
	f := newFixture(t, settings)
	var aa *task.AntiAliasing
	for _, tk := range f.r.Tasks() {
		if a, ok := tk.(*task.AntiAliasing); ok {
			aa = a
		}
	}
	require.NotNil(t, aa)

	f.frame(t)
	for _, name := range []target.RenderTarget{target.GVelocity, target.GDepth} {
		bound, ok := boundInput(f.r, aa.TemporalPass(), name.String())
		require.True(t, ok, name.String())
		assert.Same(t, f.r.Graph().Resource(name.String()), bound, name.String())
	}
}

func TestAAMethodsAreExclusive(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AATAA
	f := newFixture(t, settings)

	f.frame(t)
	f.frame(t)
	history, jitter := f.r.HistoryIndex(), f.r.JitterIndex()

	f.r.SetAAMethod(config.AAFXAA)
	f.frame(t)
	assert.Equal(t, history, f.r.HistoryIndex(), "FXAA frames leave the TAA history alone")
	assert.Equal(t, jitter, f.r.JitterIndex())
	assert.Same(t, f.r.Graph().Resource(task.FXAAOutput), f.r.GetRenderTarget(target.AntiAliasing))
	assert.Equal(t, common.Vec2{}, f.r.Frame().Jitter)

	f.r.SetAAMethod(config.AANone)
	f.frame(t)
	assert.Equal(t, history, f.r.HistoryIndex())
	assert.Same(t, f.r.GetRenderTarget(target.Combination), f.r.GetRenderTarget(target.AntiAliasing))

	f.r.SetAAMethod(config.AATAA)
	f.frame(t)
	assert.Equal(t, (history+1)%f.r.History().Len(), f.r.HistoryIndex())
	assert.Equal(t, 1, f.r.History().Frames(), "entering TAA starts a fresh history")
}

func TestJitterOnlyWhileTAA(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AANone
	f := newFixture(t, settings)

	f.frame(t)
	frame := f.r.Frame()
	assert.Equal(t, common.Vec2{}, frame.Jitter)
	assert.Equal(t, frame.UnjitteredViewProjection, frame.ViewProjection)
	assert.Zero(t, f.r.JitterIndex())

	f.r.SetAAMethod(config.AATAA)
	var seen []common.Vec2
	for range settings.JitterLength + 1 {
		f.frame(t)
		seen = append(seen, frame.Jitter)
		assert.NotEqual(t, frame.UnjitteredViewProjection, frame.ViewProjection)
	}
	assert.NotEqual(t, common.Vec2{}, seen[0])
	assert.Equal(t, seen[0], seen[settings.JitterLength], "the sequence wraps around")
	assert.Equal(t, 1, f.r.JitterIndex())
}

func TestPreviousViewProjectionTrailsOneFrame(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AANone
	f := newFixture(t, settings)

	f.frame(t)
	first := f.r.Frame().UnjitteredViewProjection
	assert.Equal(t, first, f.r.Frame().PreviousViewProjection, "the first frame has no motion")

	f.scene.Camera().SetPose(common.Vec3{1, 0, 8}, common.Vec3{})
	f.frame(t)
	assert.Equal(t, first, f.r.Frame().PreviousViewProjection)
	assert.NotEqual(t, first, f.r.Frame().UnjitteredViewProjection)
}

func combinationTask(t *testing.T, r *renderer) *task.Combination {
	t.Helper()
	for _, tk := range r.Tasks() {
		if c, ok := tk.(*task.Combination); ok {
			return c
		}
	}
	t.Fatal("no combination task")
	return nil
}

// boundInput begins the pass, pushes its shader parameters and reports what name is bound to.
func boundInput(r *renderer, pass graph.Pass, name string) (resource.Texture, bool) {
	g := r.Graph()
	g.BeginPass(pass.Parameters())
	defer g.EndPass(pass.Parameters())
	pass.ShaderParameters().Push(r.Context())
	return r.Context().BoundTexture(name)
}

func TestDisabledSSAOBindsWhitePlaceholder(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AANone
	settings.SSAO.Enabled = false
	f := newFixture(t, settings)
	combination := combinationTask(t, f.r)

	f.frame(t)
	bound, ok := boundInput(f.r, combination.Pass(), target.AmbientOcclusion.String())
	require.True(t, ok)
	assert.Same(t, f.r.Placeholder(task.White), bound)

	f.r.SetSSAOEnabled(true)
	f.frame(t)
	bound, ok = boundInput(f.r, combination.Pass(), target.AmbientOcclusion.String())
	require.True(t, ok)
	assert.Same(t, f.r.Graph().Resource(task.SSAO), bound)
}

func TestResizeAppliesBeforeTheFrame(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AATAA
	settings.RenderScale = 0.5
	f := newFixture(t, settings)
	f.frame(t)

	size := common.Size{Width: 40, Height: 24}
	f.r.ResizeViewport(size)
	assert.Equal(t, testSize, f.r.ViewportSize(), "resizing waits for the next frame")
	f.frame(t)

	render := size.Scaled(0.5)
	assert.Equal(t, size, f.r.ViewportSize())
	assert.Equal(t, render, f.r.GetRenderTarget(target.GAlbedo).Size())
	assert.Equal(t, render, f.r.GetRenderTarget(target.Combination).Size())
	assert.Equal(t, size, f.r.GetRenderTarget(target.Viewport).Size())
	for _, slot := range f.r.History().Slots() {
		assert.Equal(t, render, slot.Size())
	}

	albedo := f.r.GetRenderTarget(target.GAlbedo)
	generation := albedo.Generation()
	f.r.ResizeViewport(size)
	f.frame(t)
	assert.Equal(t, generation, albedo.Generation(), "repeating a size reallocates nothing")
}

func TestGetRenderTargetPanicsWithoutProvider(t *testing.T) {
	f := newFixture(t, testSettings(), WithTasks(task.NewGBuffer()))
	assert.NotNil(t, f.r.GetRenderTarget(target.GAlbedo))
	assert.Panics(t, func() { f.r.GetRenderTarget(target.Bloom) })
}

func TestDebugTargetReplacesViewport(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AANone
	f := newFixture(t, settings)

	f.r.SetDebugTarget(target.GNormal)
	f.frame(t)
	assert.Same(t, f.r.GetRenderTarget(target.GNormal), f.r.GetViewportTexture())
	assert.Equal(t, f.r.GetRenderTarget(target.GNormal).Handle(), software.Presented(f.r.Context().Device()))

	f.r.SetDebugTarget(target.Viewport)
	assert.Same(t, f.r.GetRenderTarget(target.Viewport), f.r.GetViewportTexture())
}

func TestRenderCommandsRunBeforeTheFrame(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AANone
	f := newFixture(t, settings)

	f.r.Context().SubmitRenderCommand(func(*rendering.Context) { f.r.SetBloomEnabled(false) })
	f.frame(t)
	assert.Same(t, f.r.Placeholder(task.Black), f.r.GetRenderTarget(target.Bloom))
	assert.Zero(t, f.r.Context().PendingCommands())
}

func TestTunablesClamp(t *testing.T) {
	f := newFixture(t, testSettings())

	f.r.SetBloomDownscaleCount(100)
	assert.Equal(t, config.MaxBloomDownscale, f.r.BloomDownscaleCount())
	f.r.SetSSAOSamples(0)
	assert.Equal(t, 1, f.r.SSAOSamples())
	f.r.SetGamma(-1)
	assert.Equal(t, config.Default().Renderer.Gamma, f.r.Gamma())
	f.r.SetAAMethod("msaa")
	assert.Equal(t, config.AATAA, f.r.AAMethod())
	f.r.SetBloomMixStrength(3)
	assert.Equal(t, float32(1), f.r.Settings().Bloom.MixStrength)
}

func TestReloadProgramsRebuildsMatchingShaders(t *testing.T) {
	f := newFixture(t, testSettings())
	assert.Equal(t, 2, f.r.reloadPrograms([]string{programs.Blur}), "both ambient blurs run the blur program")
	assert.Zero(t, f.r.reloadPrograms([]string{"missing"}))
}

func TestWatchShadersQueuesReload(t *testing.T) {
	f := newFixture(t, testSettings())
	dir := t.TempDir()
	stop, err := f.r.WatchShaders(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = stop() })

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, programs.Blur+".wgsl"), []byte("// edited"), 0o644))
	assert.Eventually(t, func() bool { return f.r.Context().PendingCommands() > 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestWatchShadersNeedsLibrary(t *testing.T) {
	ctx := rendering.NewContext(software.New(software.WithWorkerCount(1)), nil)
	assets := asset.NewManager(ctx)
	r, err := NewRenderer(ctx, assets, WithSettings(testSettings()), WithSize(testSize))
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Release()
		assets.ReleaseAll()
	})
	_, err = r.WatchShaders(t.TempDir())
	assert.ErrorIs(t, err, ErrNoShaderLibrary)
}

func TestDumpRenderTargetWritesImage(t *testing.T) {
	settings := testSettings()
	settings.AA = config.AANone
	f := newFixture(t, settings)
	f.frame(t)

	path := filepath.Join(t.TempDir(), "viewport.png")
	require.NoError(t, f.r.DumpRenderTarget(target.Viewport, path))
	img, err := imgio.Open(path)
	require.NoError(t, err)
	assert.Equal(t, testSize.Width, img.Bounds().Dx())
	assert.Equal(t, testSize.Height, img.Bounds().Dy())

	assert.Error(t, f.r.DumpRenderTarget(target.Viewport, filepath.Join(t.TempDir(), "viewport.gif")))
}

func TestToImageClampsAndGraysDepth(t *testing.T) {
	img := ToImage([]common.Vec4{{2, -1, 0.5, 1}, {0.25, 9, 9, 9}}, common.Size{Width: 2, Height: 1}, false)
	assert.Equal(t, uint8(255), img.NRGBAAt(0, 0).R)
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).G)
	assert.Equal(t, uint8(128), img.NRGBAAt(0, 0).B)

	depth := ToImage([]common.Vec4{{0.25, 0, 0, 0}}, common.Size{Width: 1, Height: 1}, true)
	assert.Equal(t, uint8(64), depth.NRGBAAt(0, 0).G)
	assert.Equal(t, uint8(255), depth.NRGBAAt(0, 0).A)
}
