package engine

import (
	"sync/atomic"
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/asset"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend/software"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/KlishchD/EdEngine-sub000/engine/scene"
	"github.com/KlishchD/EdEngine-sub000/engine/window"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRenderer(t *testing.T) renderer.Renderer {
	t.Helper()
	settings := config.Default().Renderer
	settings.Backend = "software"
	settings.ShadowMapSize = 16

	ctx := rendering.NewContext(software.New(software.WithWorkerCount(2)), programs.NewLibrary())
	assets := asset.NewManager(ctx)
	r, err := renderer.NewRenderer(ctx, assets,
		renderer.WithSettings(settings),
		renderer.WithSize(common.Size{Width: 32, Height: 32}))
	require.NoError(t, err)
	t.Cleanup(func() {
		r.Release()
		assets.ReleaseAll()
	})
	return r
}

func TestRunHeadlessStopsAfterFrameBudget(t *testing.T) {
	var rendered atomic.Int32
	e := NewEngine(
		WithRenderer(newTestRenderer(t)),
		WithScene(0, scene.NewScene(scene.WithName("main"))),
		WithFrameBudget(3),
	)
	e.SetRenderCallback(func(float32) { rendered.Add(1) })

	require.NoError(t, e.Run())
	assert.Equal(t, uint64(3), e.Frames())
	assert.Equal(t, int32(3), rendered.Load())
	assert.Equal(t, uint64(3), e.Renderer().Frames())
}

func TestQuitFromTickCallbackStopsRun(t *testing.T) {
	e := NewEngine(
		WithRenderer(newTestRenderer(t)),
		WithScene(0, scene.NewScene()),
		WithTickRate(1000),
	)
	e.SetTickCallback(func(float32) { e.Quit() })

	require.NoError(t, e.Run())
	e.Quit()
}

func TestRunRequiresRenderer(t *testing.T) {
	assert.ErrorIs(t, NewEngine().Run(), ErrNoRenderer)
}

func TestStepRendersLowestActiveScene(t *testing.T) {
	e := NewEngine(WithRenderer(newTestRenderer(t)))
	require.ErrorIs(t, e.Step(0.016), ErrNoActiveScene)

	background := scene.NewScene(scene.WithName("background"))
	hidden := scene.NewScene(scene.WithName("hidden"), scene.WithActive(false))
	e.AddScene(5, background)
	e.AddScene(1, hidden)
	assert.Same(t, background, e.ActiveScene())

	hidden.SetActive(true)
	assert.Same(t, hidden, e.ActiveScene())
	require.NoError(t, e.Step(0.016))
	assert.Equal(t, uint64(1), e.Frames())

	e.RemoveScene(1)
	assert.Nil(t, e.Scene(1))
	assert.Len(t, e.Scenes(), 1)
}

func TestShortcutsCycleRendererSettings(t *testing.T) {
	r := newTestRenderer(t)
	e := NewEngine(WithRenderer(r)).(*engine)

	e.handleKey(window.KeyF2)
	assert.Equal(t, config.AAFXAA, r.AAMethod())
	e.handleKey(window.KeyF2)
	e.handleKey(window.KeyF2)
	assert.Equal(t, config.AATAA, r.AAMethod())

	e.handleKey(window.KeyF1)
	debug, ok := r.DebugTarget()
	require.True(t, ok)
	assert.Equal(t, target.All()[0], debug)

	ssao := r.SSAOEnabled()
	e.handleKey(window.KeyF3)
	assert.Equal(t, !ssao, r.SSAOEnabled())
}

func TestNextOfWraps(t *testing.T) {
	assert.Equal(t, 1, nextOf([]int{0, 1, 2}, 0))
	assert.Equal(t, 0, nextOf([]int{0, 1, 2}, 2))
	assert.Equal(t, 0, nextOf([]int{0, 1, 2}, 7))
}
