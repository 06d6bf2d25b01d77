// Package temporal holds the frame-to-frame state of temporal anti-aliasing: the sub-pixel
// jitter sequence and the ring of history textures.
package temporal

import (
	"fmt"

	"github.com/KlishchD/EdEngine-sub000/common"
)

// DefaultJitterLength is the number of jitter offsets before the sequence repeats.
const DefaultJitterLength = 16

// Halton returns element index of the radical inverse sequence in the given base.
func Halton(index, base int) float32 {
	f := float32(1)
	r := float32(0)
	for i := index; i > 0; i /= base {
		f /= float32(base)
		r += f * float32(i%base)
	}
	return r
}

// JitterSequence is a periodic sequence of sub-pixel offsets in [-1, 1], built from the
// Halton sequences in bases 2 and 3.
type JitterSequence struct {
	offsets []common.Vec2
}

// NewJitterSequence builds a sequence of length n. Panics if n < 1.
func NewJitterSequence(n int) *JitterSequence {
	if n < 1 {
		panic(fmt.Sprintf("temporal: jitter sequence length %d", n))
	}
	s := &JitterSequence{offsets: make([]common.Vec2, n)}
	for i := range s.offsets {
		s.offsets[i] = common.Vec2{2*Halton(i+1, 2) - 1, 2*Halton(i+1, 3) - 1}
	}
	return s
}

// Len is the period of the sequence.
func (s *JitterSequence) Len() int { return len(s.offsets) }

// At returns the offset at index i, wrapping around the period.
func (s *JitterSequence) At(i int) common.Vec2 {
	n := len(s.offsets)
	return s.offsets[((i%n)+n)%n]
}

// Jitter returns the offset at index i scaled to the pixel size of a target.
func (s *JitterSequence) Jitter(i int, size common.Size) common.Vec2 {
	if size.Empty() {
		return common.Vec2{}
	}
	return s.At(i).Div(size.Vec2())
}
