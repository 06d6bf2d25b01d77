package renderer

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/rendering"
	"github.com/fsnotify/fsnotify"
)

// ErrNoShaderLibrary is returned by WatchShaders when the renderer was built without
// WithShaderLibrary.
var ErrNoShaderLibrary = errors.New("renderer: no shader library")

const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

func (r *renderer) WatchShaders(dir string) (func() error, error) {
	if r.library == nil {
		return nil, ErrNoShaderLibrary
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create shader watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	if err := w.Add(filepath.Join(dir, "include")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s includes: %w", dir, err)
	}
	r.library.SetDirectory(dir)

	go func() {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&reloadOps == 0 {
					continue
				}
				names := r.library.Affected(event.Name)
				if len(names) == 0 {
					continue
				}
				logger.Logger().Debug("shader source changed", "file", event.Name, "programs", names)
				r.ctx.SubmitRenderCommand(func(*rendering.Context) { r.reloadPrograms(names) })
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Logger().Warn("shader watcher error", "err", err)
			}
		}
	}()
	return w.Close, nil
}

// reloadPrograms recompiles every graph shader running one of names. A failed compile
// keeps the shader's previous program. A shader that never compiled stays invalid, and
// its draws are skipped until a later reload succeeds.
func (r *renderer) reloadPrograms(names []string) int {
	reloaded := 0
	for _, s := range r.graph.Shaders() {
		if !slices.Contains(names, s.Name()) {
			continue
		}
		if err := r.ctx.ReloadShader(s); err != nil {
			logger.Logger().Warn("shader reload failed", "shader", s.Name(), "err", err)
			continue
		}
		reloaded++
	}
	logger.Logger().Info("shaders reloaded", "programs", names, "shaders", reloaded)
	return reloaded
}
