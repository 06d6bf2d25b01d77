// Package resource wraps backend objects in the handles passes hold on to. Handles survive
// reallocation: a resized texture keeps its identity and bumps its generation while the
// backend texture behind it is replaced.
package resource

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/logger"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
)

// ImportParameters control how pixel data handed to a texture is kept.
type ImportParameters struct {
	// Editable keeps a CPU copy of the pixels after upload so they can be read and changed.
	Editable bool
	Filter   backend.Filter
	Wrap     backend.Wrap
}

// Texture is a device texture that can be resized in place.
type Texture interface {
	Name() string
	Descriptor() backend.TextureDescriptor
	Dimension() backend.Dimension
	Format() backend.Format
	Size() common.Size
	Layers() int

	// Handle returns the backend texture of the current generation.
	Handle() backend.Texture

	// Resize reallocates the texture when the size differs. Contents are lost.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - bool: false when the size was unchanged and nothing was reallocated
	Resize(width, height int) bool

	// Generation counts reallocations, starting at 1.
	Generation() uint64

	// SetData uploads pixels to layer 0.
	SetData(pixels []common.Vec4) error

	// SetLayerData uploads pixels to one layer.
	SetLayerData(layer int, pixels []common.Vec4) error

	// Data returns the retained CPU copy of layer 0, nil unless imported as editable.
	Data() []common.Vec4

	Release()
}

type texture struct {
	dev        backend.Device
	desc       backend.TextureDescriptor
	handle     backend.Texture
	generation uint64
	editable   bool
	data       []common.Vec4
}

var _ Texture = &texture{}

// NewTexture allocates a texture from a full descriptor.
//
// Parameters:
//   - dev: the device to allocate on
//   - desc: texture description; Label is used as the name
//
// Returns:
//   - Texture: the texture handle
//   - error: an error if the device rejects the descriptor
func NewTexture(dev backend.Device, desc backend.TextureDescriptor) (Texture, error) {
	t := &texture{dev: dev, desc: desc}
	if err := t.allocate(); err != nil {
		return nil, err
	}
	return t, nil
}

// NewTexture2D allocates a 2D texture.
func NewTexture2D(dev backend.Device, name string, format backend.Format, size common.Size) (Texture, error) {
	return NewTexture(dev, backend.TextureDescriptor{
		Label: name, Format: format, Dimension: backend.Dimension2D,
		Width: size.Width, Height: size.Height, Filter: defaultFilter(format),
	})
}

// NewCubeTexture allocates a cube texture with square faces of the given edge.
func NewCubeTexture(dev backend.Device, name string, format backend.Format, edge int) (Texture, error) {
	return NewTexture(dev, backend.TextureDescriptor{
		Label: name, Format: format, Dimension: backend.DimensionCube,
		Width: edge, Height: edge, Filter: defaultFilter(format),
	})
}

// NewTexture2DArray allocates an array of 2D layers.
func NewTexture2DArray(dev backend.Device, name string, format backend.Format, size common.Size, layers int) (Texture, error) {
	return NewTexture(dev, backend.TextureDescriptor{
		Label: name, Format: format, Dimension: backend.Dimension2DArray,
		Width: size.Width, Height: size.Height, Layers: layers, Filter: defaultFilter(format),
	})
}

// ImportTexture creates a 2D texture and uploads pixels. The CPU copy is dropped after
// upload unless params.Editable is set.
func ImportTexture(dev backend.Device, name string, format backend.Format, size common.Size, pixels []common.Vec4, params ImportParameters) (Texture, error) {
	t := &texture{
		dev:      dev,
		editable: params.Editable,
		desc: backend.TextureDescriptor{
			Label: name, Format: format, Dimension: backend.Dimension2D,
			Width: size.Width, Height: size.Height, Filter: params.Filter, Wrap: params.Wrap,
		},
	}
	if err := t.allocate(); err != nil {
		return nil, err
	}
	if err := t.SetData(pixels); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

// NewSolidTexture creates a 1x1 texture filled with one color, used as a placeholder input.
func NewSolidTexture(dev backend.Device, name string, color common.Vec4) (Texture, error) {
	return ImportTexture(dev, name, backend.FormatRGBA8, common.Size{Width: 1, Height: 1}, []common.Vec4{color}, ImportParameters{Filter: backend.FilterNearest})
}

func defaultFilter(format backend.Format) backend.Filter {
	if format.IsDepth() || format == backend.FormatRGBA32F || format == backend.FormatR32F {
		return backend.FilterNearest
	}
	return backend.FilterLinear
}

func (t *texture) allocate() error {
	h, err := t.dev.CreateTexture(t.desc)
	if err != nil {
		return fmt.Errorf("resource: texture %q: %w", t.desc.Label, err)
	}
	t.handle = h
	t.generation++
	return nil
}

func (t *texture) Name() string                          { return t.desc.Label }
func (t *texture) Descriptor() backend.TextureDescriptor { return t.desc }
func (t *texture) Dimension() backend.Dimension          { return t.desc.Dimension }
func (t *texture) Format() backend.Format                { return t.desc.Format }
func (t *texture) Layers() int                           { return t.desc.LayerCount() }
func (t *texture) Handle() backend.Texture               { return t.handle }
func (t *texture) Generation() uint64                    { return t.generation }
func (t *texture) Data() []common.Vec4                   { return t.data }

func (t *texture) Size() common.Size {
	return common.Size{Width: t.desc.Width, Height: t.desc.Height}
}

func (t *texture) Resize(width, height int) bool {
	if width == t.desc.Width && height == t.desc.Height {
		return false
	}
	if t.desc.Dimension == backend.DimensionCube {
		height = width
	}
	old := t.handle
	t.desc.Width, t.desc.Height = width, height
	if err := t.allocate(); err != nil {
		panic(err)
	}
	if old != nil {
		t.dev.ReleaseTexture(old)
	}
	if t.editable {
		t.data = nil
	}
	logger.Logger().Debug("texture resized", "texture", t.desc.Label, "size", t.Size(), "generation", t.generation)
	return true
}

func (t *texture) SetData(pixels []common.Vec4) error {
	return t.SetLayerData(0, pixels)
}

func (t *texture) SetLayerData(layer int, pixels []common.Vec4) error {
	if err := t.dev.WriteTexture(t.handle, layer, pixels); err != nil {
		return fmt.Errorf("resource: texture %q: %w", t.desc.Label, err)
	}
	if t.editable && layer == 0 {
		t.data = append(t.data[:0], pixels...)
	}
	return nil
}

func (t *texture) Release() {
	if t.handle != nil {
		t.dev.ReleaseTexture(t.handle)
		t.handle = nil
	}
	t.data = nil
}
