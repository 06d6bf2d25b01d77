package renderer

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/profiler"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/programs"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/task"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithSettings replaces the default renderer settings. The settings are validated by
// NewRenderer.
//
// Parameters:
//   - settings: the renderer section of the configuration
//
// Returns:
//   - RendererBuilderOption: a function that applies the settings option to a renderer
func WithSettings(settings config.RendererConfig) RendererBuilderOption {
	return func(r *renderer) {
		r.settings = settings
	}
}

// WithSize sets the initial viewport size. Defaults to 1280x720.
//
// Parameters:
//   - size: the viewport size in pixels
//
// Returns:
//   - RendererBuilderOption: a function that applies the size option to a renderer
func WithSize(size common.Size) RendererBuilderOption {
	return func(r *renderer) {
		r.viewport = size
	}
}

// WithUpscale sets the ratio of render resolution to viewport resolution, overriding the
// render_scale setting.
func WithUpscale(scale float32) RendererBuilderOption {
	return func(r *renderer) {
		r.settings.RenderScale = scale
	}
}

// WithTasks replaces the built-in task pipeline. Tasks run in the given order.
//
// Parameters:
//   - tasks: the tasks to run each frame
//
// Returns:
//   - RendererBuilderOption: a function that applies the tasks option to a renderer
func WithTasks(tasks ...task.Task) RendererBuilderOption {
	return func(r *renderer) {
		r.tasks = tasks
	}
}

// WithShaderLibrary sets the program library WatchShaders resolves changed files against.
// It should be the library the rendering context loads programs from.
func WithShaderLibrary(lib *programs.Library) RendererBuilderOption {
	return func(r *renderer) {
		r.library = lib
	}
}

// WithProfiler sets the profiler task timings are recorded in.
func WithProfiler(p *profiler.Profiler) RendererBuilderOption {
	return func(r *renderer) {
		r.profiler = p
	}
}
