package temporal

import (
	"testing"

	"github.com/KlishchD/EdEngine-sub000/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHalton(t *testing.T) {
	assert.InDelta(t, 0.5, Halton(1, 2), 1e-6)
	assert.InDelta(t, 0.25, Halton(2, 2), 1e-6)
	assert.InDelta(t, 0.75, Halton(3, 2), 1e-6)
	assert.InDelta(t, 1.0/3, Halton(1, 3), 1e-6)
	assert.InDelta(t, 2.0/3, Halton(2, 3), 1e-6)
	assert.InDelta(t, 1.0/9, Halton(3, 3), 1e-6)
}

func TestJitterSequenceWrapsAround(t *testing.T) {
	for _, n := range []int{1, 8, DefaultJitterLength} {
		s := NewJitterSequence(n)
		size := common.Size{Width: 640, Height: 360}
		assert.Equal(t, s.Jitter(0, size), s.Jitter(n, size))
		assert.Equal(t, s.At(n-1), s.At(-1))
		for i := 0; i < n; i++ {
			o := s.At(i)
			assert.True(t, o[0] >= -1 && o[0] <= 1 && o[1] >= -1 && o[1] <= 1)
		}
	}
	assert.Panics(t, func() { NewJitterSequence(0) })
}

func TestJitterScaledByTargetSize(t *testing.T) {
	s := NewJitterSequence(4)
	j := s.Jitter(0, common.Size{Width: 100, Height: 50})
	assert.InDelta(t, 0, j[0], 1e-6) // 2*0.5-1
	assert.InDelta(t, (2.0/3-1)/50, j[1], 1e-6)
	assert.Equal(t, common.Vec2{}, s.Jitter(0, common.Size{}))
}

func TestHistoryRingInvariant(t *testing.T) {
	for _, n := range []int{2, 3, 5} {
		slots := make([]int, n)
		for i := range slots {
			slots[i] = 100 + i
		}
		ring := NewHistoryRing(slots)
		for k := 1; k <= 3*n+1; k++ {
			ring.Advance()
			require.Equal(t, k%n, ring.ActiveIndex())
			assert.NotEqual(t, ring.Current(), ring.Previous())
			assert.Equal(t, (k-1)%n, ring.PreviousIndex())
		}
	}
	assert.Panics(t, func() { NewHistoryRing([]int{1}) })
}
