package engine

import (
	"slices"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/camera"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/target"
	"github.com/KlishchD/EdEngine-sub000/engine/window"
)

const (
	orbitRadiansPerPixel = 0.005
	panUnitsPerPixel     = 0.01
)

var aaCycle = []config.AAMethod{config.AATAA, config.AAFXAA, config.AANone}

// bindWindow forwards window events. Every callback runs on the window thread, which is also
// the render thread, so they may touch the renderer directly.
func (e *engine) bindWindow() {
	e.window.SetResizeCallback(func(size common.Size) {
		if e.renderer != nil {
			e.renderer.ResizeViewport(size)
		}
	})
	e.window.SetKeyCallback(func(key int, pressed bool) {
		if pressed {
			e.handleKey(key)
		}
	})
	e.window.SetDragCallback(func(button window.MouseButton, dx, dy float32) {
		ctrl := e.controller()
		if ctrl == nil {
			return
		}
		switch button {
		case window.MouseLeft:
			ctrl.Orbit(-dx*orbitRadiansPerPixel, dy*orbitRadiansPerPixel)
		case window.MouseMiddle:
			ctrl.Pan(-dx*panUnitsPerPixel, dy*panUnitsPerPixel)
		}
	})
	e.window.SetScrollCallback(func(delta float32) {
		if ctrl := e.controller(); ctrl != nil {
			ctrl.Zoom(delta)
		}
	})
}

// controller returns the orbit controller of the active scene's camera when camera controls
// are enabled.
func (e *engine) controller() camera.Controller {
	if !e.controls {
		return nil
	}
	s := e.ActiveScene()
	if s == nil || s.Camera().Controller() == nil {
		return nil
	}
	return s.Camera().Controller()
}

// handleKey applies the editor shortcuts: F1 cycles the debug target, F2 the AA method,
// F3 toggles SSAO and F4 toggles bloom.
func (e *engine) handleKey(key int) {
	r := e.renderer
	if r == nil {
		return
	}
	switch key {
	case window.KeyF1:
		current, ok := r.DebugTarget()
		if !ok {
			current = target.Viewport
		}
		next := nextOf(target.All(), current)
		r.SetDebugTarget(next)
		logger.Logger().Info("debug target", "target", next.String())
	case window.KeyF2:
		r.SetAAMethod(nextOf(aaCycle, r.AAMethod()))
		logger.Logger().Info("anti-aliasing", "aa", string(r.AAMethod()))
	case window.KeyF3:
		r.SetSSAOEnabled(!r.SSAOEnabled())
	case window.KeyF4:
		r.SetBloomEnabled(!r.BloomEnabled())
	}
}

// nextOf returns the element after current in values, wrapping around.
func nextOf[T comparable](values []T, current T) T {
	i := slices.Index(values, current)
	return values[(i+1)%len(values)]
}
