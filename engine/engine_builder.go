package engine

import (
	"github.com/KlishchD/EdEngine-sub000/engine/profiler"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer"
	"github.com/KlishchD/EdEngine-sub000/engine/scene"
	"github.com/KlishchD/EdEngine-sub000/engine/window"
)

// EngineBuilderOption is a functional option for configuring an Engine.
type EngineBuilderOption func(*engine)

// WithProfiling enables or disables frame timing output.
func WithProfiling(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.profilingEnabled = enabled
	}
}

// WithProfiler replaces the frame profiler.
func WithProfiler(p *profiler.Profiler) EngineBuilderOption {
	return func(e *engine) {
		e.profiler = p
	}
}

// WithTickRate sets the engine tick rate in ticks per second. Values <= 0 mean 60.
//
// Parameters:
//   - fps: target ticks per second
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithTickRate(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.engineTickRate = tickInterval(fps)
	}
}

// WithWindow renders into w and forwards its resize and input events. Without a window the
// engine runs headless.
func WithWindow(w window.Window) EngineBuilderOption {
	return func(e *engine) {
		e.window = w
	}
}

// WithRenderer sets the renderer frames are drawn with.
func WithRenderer(r renderer.Renderer) EngineBuilderOption {
	return func(e *engine) {
		e.renderer = r
	}
}

// WithScene registers a scene at the given z-index key.
//
// Parameters:
//   - key: the z-index; the active scene with the lowest key is rendered
//   - s: the Scene to register
//
// Returns:
//   - EngineBuilderOption: option function to apply
func WithScene(key int, s scene.Scene) EngineBuilderOption {
	return func(e *engine) {
		e.scenes[key] = s
	}
}

// WithRenderFrameLimit caps the render loop in frames per second. 0 uncaps it.
func WithRenderFrameLimit(fps float64) EngineBuilderOption {
	return func(e *engine) {
		e.renderFrameLimit = frameInterval(fps)
	}
}

// WithFrameBudget stops Run after n frames. 0 renders until quit.
func WithFrameBudget(n uint64) EngineBuilderOption {
	return func(e *engine) {
		e.frameBudget = n
	}
}

// WithCameraControls lets mouse drags and the scroll wheel drive the orbit controller of
// the active scene's camera.
func WithCameraControls(enabled bool) EngineBuilderOption {
	return func(e *engine) {
		e.controls = enabled
	}
}
