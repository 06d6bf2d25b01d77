package backend

import "fmt"

// Format is a texel format.
type Format int

const (
	FormatRGBA8 Format = iota
	FormatRGBA8Srgb
	FormatRGBA16F
	FormatRGBA32F
	FormatRG16F
	FormatR32F
	FormatDepth32F
)

var formatNames = [...]string{"RGBA8", "RGBA8Srgb", "RGBA16F", "RGBA32F", "RG16F", "R32F", "Depth32F"}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", int(f))
}

// IsDepth reports whether f is a depth format.
func (f Format) IsDepth() bool { return f == FormatDepth32F }

// IsNormalized reports whether stored values are clamped to [0, 1].
func (f Format) IsNormalized() bool { return f == FormatRGBA8 || f == FormatRGBA8Srgb }

// Channels is the number of stored components.
func (f Format) Channels() int {
	switch f {
	case FormatRG16F:
		return 2
	case FormatR32F, FormatDepth32F:
		return 1
	}
	return 4
}

// Dimension is the shape of a texture.
type Dimension int

const (
	Dimension2D Dimension = iota
	// DimensionCube has six layers ordered +X, -X, +Y, -Y, +Z, -Z.
	DimensionCube
	Dimension2DArray
)

func (d Dimension) String() string {
	switch d {
	case Dimension2D:
		return "2D"
	case DimensionCube:
		return "Cube"
	case Dimension2DArray:
		return "2DArray"
	}
	return fmt.Sprintf("Dimension(%d)", int(d))
}

// Filter selects texel filtering.
type Filter int

const (
	FilterLinear Filter = iota
	FilterNearest
)

// Wrap selects the addressing mode outside [0, 1].
type Wrap int

const (
	WrapClamp Wrap = iota
	WrapRepeat
)

// TextureDescriptor describes a texture allocation.
type TextureDescriptor struct {
	Label     string
	Format    Format
	Dimension Dimension
	Width     int
	Height    int
	// Layers is the layer count of 2D arrays; cube maps always have six.
	Layers int
	Filter Filter
	Wrap   Wrap
	// Storage allows the texture to be written by compute programs.
	Storage bool
}

// LayerCount returns the number of layers the descriptor allocates.
func (d TextureDescriptor) LayerCount() int {
	switch d.Dimension {
	case DimensionCube:
		return 6
	case Dimension2DArray:
		return max(d.Layers, 1)
	}
	return 1
}

// Validate checks the descriptor for sizes and combinations no device accepts.
func (d TextureDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("backend: texture %q has invalid size %dx%d", d.Label, d.Width, d.Height)
	}
	if d.Dimension == DimensionCube && d.Width != d.Height {
		return fmt.Errorf("backend: cube texture %q must be square, got %dx%d", d.Label, d.Width, d.Height)
	}
	if d.Storage && d.Format.IsDepth() {
		return fmt.Errorf("backend: depth texture %q cannot be a storage texture", d.Label)
	}
	return nil
}
