package main

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend/software"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend/webgpu"
	"github.com/KlishchD/EdEngine-sub000/engine/window"
)

// newDevice creates the backend named by the renderer configuration. A WebGPU device presents
// to win when one is given and runs headless otherwise.
func newDevice(cfg config.Config, win window.Window) (backend.Device, error) {
	switch cfg.Renderer.Backend {
	case "software":
		return software.New(software.WithWorkerCount(cfg.Renderer.WorkerCount)), nil
	case "wgpu":
		opts := []webgpu.Option{webgpu.WithVSync(cfg.Window.VSync)}
		if win != nil {
			opts = append(opts, webgpu.WithSurface(win.SurfaceDescriptor()))
		}
		dev, err := webgpu.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create wgpu device: %w", err)
		}
		return dev, nil
	}
	return nil, fmt.Errorf("%w: backend %q", config.ErrInvalid, cfg.Renderer.Backend)
}
