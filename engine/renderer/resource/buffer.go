package resource

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
)

// VertexBuffer holds mesh vertices on the device.
type VertexBuffer struct {
	dev    backend.Device
	handle backend.Buffer
	count  int
}

// NewVertexBuffer uploads vertices.
func NewVertexBuffer(dev backend.Device, vertices []common.Vertex) (*VertexBuffer, error) {
	h, err := dev.CreateBuffer(backend.BufferVertex, common.SliceToBytes(vertices))
	if err != nil {
		return nil, fmt.Errorf("resource: vertex buffer: %w", err)
	}
	return &VertexBuffer{dev: dev, handle: h, count: len(vertices)}, nil
}

func (b *VertexBuffer) Handle() backend.Buffer { return b.handle }
func (b *VertexBuffer) Count() int             { return b.count }

// SetData replaces the vertices.
func (b *VertexBuffer) SetData(vertices []common.Vertex) error {
	if err := b.dev.WriteBuffer(b.handle, common.SliceToBytes(vertices)); err != nil {
		return fmt.Errorf("resource: vertex buffer: %w", err)
	}
	b.count = len(vertices)
	return nil
}

func (b *VertexBuffer) Release() {
	if b.handle != nil {
		b.dev.ReleaseBuffer(b.handle)
		b.handle = nil
	}
}

// IndexBuffer holds uint32 triangle indices on the device.
type IndexBuffer struct {
	dev    backend.Device
	handle backend.Buffer
	count  int
}

// NewIndexBuffer uploads indices.
func NewIndexBuffer(dev backend.Device, indices []uint32) (*IndexBuffer, error) {
	h, err := dev.CreateBuffer(backend.BufferIndex, common.SliceToBytes(indices))
	if err != nil {
		return nil, fmt.Errorf("resource: index buffer: %w", err)
	}
	return &IndexBuffer{dev: dev, handle: h, count: len(indices)}, nil
}

func (b *IndexBuffer) Handle() backend.Buffer { return b.handle }
func (b *IndexBuffer) Count() int             { return b.count }

// SetData replaces the indices.
func (b *IndexBuffer) SetData(indices []uint32) error {
	if err := b.dev.WriteBuffer(b.handle, common.SliceToBytes(indices)); err != nil {
		return fmt.Errorf("resource: index buffer: %w", err)
	}
	b.count = len(indices)
	return nil
}

func (b *IndexBuffer) Release() {
	if b.handle != nil {
		b.dev.ReleaseBuffer(b.handle)
		b.handle = nil
	}
}
