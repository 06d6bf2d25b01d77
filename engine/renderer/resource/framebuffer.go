package resource

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
)

// MaxColorAttachments is the number of color attachment slots a framebuffer has.
const MaxColorAttachments = 8

// Framebuffer groups color attachments and an optional depth attachment rendered together.
type Framebuffer interface {
	Name() string
	Size() common.Size

	// Resize resizes every attachment. Calling it again with the same size is a no-op.
	//
	// Parameters:
	//   - width, height: the new size in pixels
	//
	// Returns:
	//   - bool: false when the size was unchanged
	Resize(width, height int) bool

	// Generation counts effective resizes, starting at 1.
	Generation() uint64

	// Attachment returns color attachment index, nil when unset. Panics when out of range.
	Attachment(index int) Texture

	// Attachments returns the set color attachments in index order up to the last set one.
	Attachments() []Texture

	// SetAttachment replaces color attachment index. Panics when out of range.
	SetAttachment(index int, tex Texture)

	DepthAttachment() Texture
	SetDepthAttachment(tex Texture)

	// TargetLayer selects the cube face or array layer rendered to.
	TargetLayer() int
	SetTargetLayer(layer int)

	// PassDescriptor builds the backend description of a pass rendering to this framebuffer.
	PassDescriptor() backend.RenderPassDescriptor

	// Release frees every attachment the framebuffer created.
	Release()
}

type framebuffer struct {
	dev        backend.Device
	name       string
	size       common.Size
	generation uint64
	colors     [MaxColorAttachments]Texture
	depth      Texture
	owned      map[Texture]bool
	layer      int
}

var _ Framebuffer = &framebuffer{}

// AttachmentSpec describes an attachment a framebuffer creates and owns.
type AttachmentSpec struct {
	Name   string
	Format backend.Format
	Filter backend.Filter
	Wrap   backend.Wrap
	// Storage lets compute programs write the attachment.
	Storage bool
}

// NewFramebuffer creates a framebuffer with owned 2D attachments.
//
// Parameters:
//   - dev: the device to allocate on
//   - name: framebuffer name, used in pass labels
//   - size: initial size
//   - colors: color attachments in index order
//   - depth: optional depth attachment
//
// Returns:
//   - Framebuffer: the framebuffer
//   - error: an error if any attachment cannot be allocated
func NewFramebuffer(dev backend.Device, name string, size common.Size, colors []AttachmentSpec, depth *AttachmentSpec) (Framebuffer, error) {
	if len(colors) > MaxColorAttachments {
		return nil, fmt.Errorf("resource: framebuffer %q has %d color attachments, limit %d", name, len(colors), MaxColorAttachments)
	}
	fb := &framebuffer{dev: dev, name: name, size: size, generation: 1, owned: make(map[Texture]bool)}
	create := func(spec AttachmentSpec) (Texture, error) {
		return NewTexture(dev, backend.TextureDescriptor{
			Label: spec.Name, Format: spec.Format, Dimension: backend.Dimension2D,
			Width: size.Width, Height: size.Height, Filter: spec.Filter, Wrap: spec.Wrap, Storage: spec.Storage,
		})
	}
	for i, spec := range colors {
		tex, err := create(spec)
		if err != nil {
			fb.Release()
			return nil, err
		}
		fb.colors[i] = tex
		fb.owned[tex] = true
	}
	if depth != nil {
		tex, err := create(*depth)
		if err != nil {
			fb.Release()
			return nil, err
		}
		fb.depth = tex
		fb.owned[tex] = true
	}
	return fb, nil
}

// NewCubeFramebuffer creates a depth-only framebuffer over a cube texture. Each face is
// rendered by selecting it with SetTargetLayer.
func NewCubeFramebuffer(dev backend.Device, name string, edge int) (Framebuffer, error) {
	tex, err := NewCubeTexture(dev, name, backend.FormatDepth32F, edge)
	if err != nil {
		return nil, err
	}
	return &framebuffer{
		dev: dev, name: name, size: common.Size{Width: edge, Height: edge}, generation: 1,
		depth: tex, owned: map[Texture]bool{tex: true},
	}, nil
}

// NewArrayFramebuffer creates a depth-only framebuffer over a 2D array texture.
func NewArrayFramebuffer(dev backend.Device, name string, size common.Size, layers int) (Framebuffer, error) {
	tex, err := NewTexture2DArray(dev, name, backend.FormatDepth32F, size, layers)
	if err != nil {
		return nil, err
	}
	return &framebuffer{
		dev: dev, name: name, size: size, generation: 1,
		depth: tex, owned: map[Texture]bool{tex: true},
	}, nil
}

func (f *framebuffer) Name() string             { return f.name }
func (f *framebuffer) Size() common.Size        { return f.size }
func (f *framebuffer) Generation() uint64       { return f.generation }
func (f *framebuffer) DepthAttachment() Texture { return f.depth }
func (f *framebuffer) TargetLayer() int         { return f.layer }

func (f *framebuffer) Resize(width, height int) bool {
	if width == f.size.Width && height == f.size.Height {
		return false
	}
	f.size = common.Size{Width: width, Height: height}
	for _, c := range f.colors {
		if c != nil {
			c.Resize(width, height)
		}
	}
	if f.depth != nil {
		f.depth.Resize(width, height)
	}
	f.generation++
	return true
}

func (f *framebuffer) checkIndex(index int) {
	if index < 0 || index >= MaxColorAttachments {
		panic(fmt.Sprintf("resource: framebuffer %q attachment index %d out of range [0, %d)", f.name, index, MaxColorAttachments))
	}
}

func (f *framebuffer) Attachment(index int) Texture {
	f.checkIndex(index)
	return f.colors[index]
}

func (f *framebuffer) Attachments() []Texture {
	last := -1
	for i, c := range f.colors {
		if c != nil {
			last = i
		}
	}
	return append([]Texture(nil), f.colors[:last+1]...)
}

func (f *framebuffer) SetAttachment(index int, tex Texture) {
	f.checkIndex(index)
	f.colors[index] = tex
}

func (f *framebuffer) SetDepthAttachment(tex Texture) {
	f.depth = tex
}

func (f *framebuffer) SetTargetLayer(layer int) {
	f.layer = layer
}

func (f *framebuffer) PassDescriptor() backend.RenderPassDescriptor {
	desc := backend.RenderPassDescriptor{Label: f.name}
	for _, c := range f.Attachments() {
		if c == nil {
			panic(fmt.Sprintf("resource: framebuffer %q has a gap in its color attachments", f.name))
		}
		desc.Colors = append(desc.Colors, backend.Attachment{Texture: c.Handle(), Layer: f.layerOf(c)})
	}
	if f.depth != nil {
		desc.Depth = &backend.Attachment{Texture: f.depth.Handle(), Layer: f.layerOf(f.depth)}
	}
	return desc
}

func (f *framebuffer) layerOf(t Texture) int {
	if t.Layers() > 1 {
		return f.layer
	}
	return 0
}

func (f *framebuffer) Release() {
	for tex := range f.owned {
		tex.Release()
	}
	f.owned = nil
}
