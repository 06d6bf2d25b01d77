package window

import (
	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/config"
)

// WindowBuilderOption is a functional option for configuring a window.
type WindowBuilderOption func(w *engineWindow)

// WithTitle sets the window title displayed in the title bar.
func WithTitle(title string) WindowBuilderOption {
	return func(w *engineWindow) {
		w.title = title
	}
}

// WithSize sets the initial client area size.
//
// Parameters:
//   - size: initial size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSize(size common.Size) WindowBuilderOption {
	return func(w *engineWindow) {
		w.size = size
	}
}

// WithSizeLimits bounds interactive resizing. An empty maximum leaves the size unbounded.
//
// Parameters:
//   - minSize: smallest allowed size in pixels
//   - maxSize: largest allowed size in pixels
//
// Returns:
//   - WindowBuilderOption: option function to apply
func WithSizeLimits(minSize, maxSize common.Size) WindowBuilderOption {
	return func(w *engineWindow) {
		w.minSize = minSize
		w.maxSize = maxSize
	}
}

// WithConfig applies the title and size of a window configuration section.
func WithConfig(c config.WindowConfig) WindowBuilderOption {
	return func(w *engineWindow) {
		if c.Title != "" {
			w.title = c.Title
		}
		w.size = common.Size{Width: c.Width, Height: c.Height}
	}
}
