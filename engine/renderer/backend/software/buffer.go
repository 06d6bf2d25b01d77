package software

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/KlishchD/EdEngine-sub000/engine/renderer/backend"
)

// buffer keeps vertex and index data decoded so draws do not reinterpret bytes.
type buffer struct {
	usage    backend.BufferUsage
	vertices []common.Vertex
	indices  []uint32
	released bool
}

func (b *buffer) Usage() backend.BufferUsage { return b.usage }

func (b *buffer) Len() int {
	if b.usage == backend.BufferIndex {
		return len(b.indices)
	}
	return len(b.vertices)
}

func (b *buffer) set(data []byte) error {
	switch b.usage {
	case backend.BufferVertex:
		if len(data)%common.VertexStride != 0 {
			return fmt.Errorf("vertex data length %d is not a multiple of %d", len(data), common.VertexStride)
		}
		b.vertices = common.BytesToSlice[common.Vertex](data)
	case backend.BufferIndex:
		if len(data)%4 != 0 {
			return fmt.Errorf("index data length %d is not a multiple of 4", len(data))
		}
		b.indices = common.BytesToSlice[uint32](data)
	default:
		return fmt.Errorf("unknown buffer usage %d", b.usage)
	}
	return nil
}
