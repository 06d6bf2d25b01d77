// Package window opens the native window the engine presents to and forwards its input.
package window

import (
	"fmt"
	"runtime"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// MouseButton identifies the button held during a drag.
type MouseButton int

const (
	MouseLeft MouseButton = iota
	MouseRight
	MouseMiddle
)

// Window provides platform windowing and input event handling.
type Window interface {
	// SetUpdateCallback sets the function called once per message loop iteration, on the
	// thread that created the window.
	SetUpdateCallback(callback func())

	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving the new framebuffer size in pixels
	SetResizeCallback(callback func(size common.Size))

	// SetScrollCallback sets the callback for mouse wheel events. Positive deltas scroll up.
	SetScrollCallback(callback func(delta float32))

	// SetKeyCallback sets the callback for key presses and releases. Escape always closes the
	// window and is not forwarded.
	//
	// Parameters:
	//   - callback: function receiving the GLFW key code and whether it was pressed
	SetKeyCallback(callback func(key int, pressed bool))

	// SetDragCallback sets the callback for cursor movement while a mouse button is held.
	//
	// Parameters:
	//   - callback: function receiving the held button and the cursor delta in pixels
	SetDragCallback(callback func(button MouseButton, dx, dy float32))

	// SetTitle replaces the title bar text.
	SetTitle(title string)

	// SurfaceDescriptor returns a descriptor for creating a WebGPU surface on this window,
	// nil when the window is not initialized.
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	IsRunning() bool

	// Close destroys the window and releases platform resources.
	Close() error

	// ProcessMessages runs the message loop until the window closes.
	ProcessMessages()

	// Size returns the framebuffer size in pixels.
	Size() common.Size
}

type engineWindow struct {
	title    string
	size     common.Size
	minSize  common.Size
	maxSize  common.Size
	internal *glfwWindow

	onUpdate func()
	onResize func(size common.Size)
	onScroll func(delta float32)
	onKey    func(key int, pressed bool)
	onDrag   func(button MouseButton, dx, dy float32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a window.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the window
//   - error: an error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title: "EdEngine",
		size:    common.Size{Width: 1280, Height: 720},
		minSize: common.Size{Width: 320, Height: 200},
	}
	for _, opt := range options {
		opt(w)
	}
	if w.size.Empty() {
		return nil, fmt.Errorf("window: invalid size %s", w.size)
	}
	if err := newPlatformWindow(w); err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	return w, nil
}

func (w *engineWindow) SetUpdateCallback(callback func())                                 { w.onUpdate = callback }
func (w *engineWindow) SetResizeCallback(callback func(size common.Size))                 { w.onResize = callback }
func (w *engineWindow) SetScrollCallback(callback func(delta float32))                    { w.onScroll = callback }
func (w *engineWindow) SetKeyCallback(callback func(key int, pressed bool))               { w.onKey = callback }
func (w *engineWindow) SetDragCallback(callback func(button MouseButton, dx, dy float32)) { w.onDrag = callback }

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	if w.internal != nil {
		w.internal.window.SetTitle(title)
	}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	return platformGetSurfaceDescriptor(w)
}

func (w *engineWindow) IsRunning() bool {
	return platformIsRunningCheck(w)
}

func (w *engineWindow) Close() error {
	return platformCloseWindow(w)
}

func (w *engineWindow) ProcessMessages() {
	for w.IsRunning() {
		if !platformProcessMessages(w) {
			break
		}
		if w.onUpdate != nil {
			w.onUpdate()
		}
		runtime.Gosched()
	}
}

func (w *engineWindow) Size() common.Size { return w.size }

// resized records a framebuffer size reported by the platform. Minimized windows report an
// empty size, which is not forwarded.
func (w *engineWindow) resized(size common.Size) {
	if size.Empty() || size == w.size {
		return
	}
	w.size = size
	if w.onResize != nil {
		w.onResize(size)
	}
}
