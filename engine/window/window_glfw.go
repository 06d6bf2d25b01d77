package window

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow holds the GLFW-specific window state.
type glfwWindow struct {
	window  *glfw.Window
	running bool

	dragging bool
	button   MouseButton
	lastX    float64
	lastY    float64
}

var glfwButtons = map[glfw.MouseButton]MouseButton{
	glfw.MouseButtonLeft:   MouseLeft,
	glfw.MouseButtonRight:  MouseRight,
	glfw.MouseButtonMiddle: MouseMiddle,
}

// newPlatformWindow creates the GLFW window without a client API, since WebGPU presents
// through its own surface, and registers the input callbacks.
//
// GLFW reference: https://www.glfw.org/docs/latest/window_guide.html
func newPlatformWindow(w *engineWindow) error {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.size.Width, w.size.Height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("failed to create GLFW window: %w", err)
	}
	maxW, maxH := glfw.DontCare, glfw.DontCare
	if !w.maxSize.Empty() {
		maxW, maxH = w.maxSize.Width, w.maxSize.Height
	}
	win.SetSizeLimits(w.minSize.Width, w.minSize.Height, maxW, maxH)

	gw := &glfwWindow{window: win, running: true}
	w.internal = gw

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.running = false
			win.SetShouldClose(true)
			return
		}
		if w.onKey == nil {
			return
		}
		switch action {
		case glfw.Press, glfw.Repeat:
			w.onKey(int(key), true)
		case glfw.Release:
			w.onKey(int(key), false)
		}
	})

	win.SetScrollCallback(func(_ *glfw.Window, _, yoff float64) {
		if w.onScroll != nil {
			w.onScroll(float32(yoff))
		}
	})

	win.SetMouseButtonCallback(func(_ *glfw.Window, button glfw.MouseButton, action glfw.Action, _ glfw.ModifierKey) {
		b, ok := glfwButtons[button]
		if !ok {
			return
		}
		switch action {
		case glfw.Press:
			gw.dragging, gw.button = true, b
			gw.lastX, gw.lastY = win.GetCursorPos()
		case glfw.Release:
			if gw.button == b {
				gw.dragging = false
			}
		}
	})

	win.SetCursorPosCallback(func(_ *glfw.Window, x, y float64) {
		if !gw.dragging {
			return
		}
		dx, dy := x-gw.lastX, y-gw.lastY
		gw.lastX, gw.lastY = x, y
		if w.onDrag != nil {
			w.onDrag(gw.button, float32(dx), float32(dy))
		}
	})

	// Framebuffer size differs from window size on high-DPI displays; the renderer needs pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.resized(common.Size{Width: width, Height: height})
	})

	fbWidth, fbHeight := win.GetFramebufferSize()
	w.size = common.Size{Width: fbWidth, Height: fbHeight}
	return nil
}

// platformGetSurfaceDescriptor creates a platform-appropriate surface descriptor through the
// wgpuglfw bridge (Windows, X11, Wayland, macOS).
func platformGetSurfaceDescriptor(w *engineWindow) *wgpu.SurfaceDescriptor {
	if w.internal == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.internal.window)
}

func platformIsRunningCheck(w *engineWindow) bool {
	if w.internal == nil {
		return false
	}
	return w.internal.running && !w.internal.window.ShouldClose()
}

// platformCloseWindow destroys the GLFW window and terminates the GLFW library.
func platformCloseWindow(w *engineWindow) error {
	if w.internal == nil {
		return errors.New("window is not initialized")
	}
	gw := w.internal
	w.internal = nil
	gw.running = false
	gw.window.Destroy()
	glfw.Terminate()
	return nil
}

// platformProcessMessages polls GLFW for pending events without blocking.
func platformProcessMessages(w *engineWindow) bool {
	glfw.PollEvents()
	return platformIsRunningCheck(w)
}

// Key codes the engine binds editor shortcuts to.
const (
	KeyF1 = int(glfw.KeyF1)
	KeyF2 = int(glfw.KeyF2)
	KeyF3 = int(glfw.KeyF3)
	KeyF4 = int(glfw.KeyF4)
)
