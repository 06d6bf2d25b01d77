package temporal

import "fmt"

// HistoryRing rotates through a fixed set of history slots. The active slot receives this
// frame's resolved output; the previous slot holds last frame's.
type HistoryRing[T comparable] struct {
	slots  []T
	active int
	frames int
}

// NewHistoryRing creates a ring over slots. Panics with fewer than two slots, since the
// current and previous frames would share a texture.
func NewHistoryRing[T comparable](slots []T) *HistoryRing[T] {
	if len(slots) < 2 {
		panic(fmt.Sprintf("temporal: history ring needs at least 2 slots, got %d", len(slots)))
	}
	return &HistoryRing[T]{slots: slots}
}

// Advance moves the active slot forward and returns it.
func (h *HistoryRing[T]) Advance() T {
	h.active = (h.active + 1) % len(h.slots)
	h.frames++
	return h.slots[h.active]
}

// ActiveIndex is the slot written this frame.
func (h *HistoryRing[T]) ActiveIndex() int { return h.active }

// PreviousIndex is the slot written by the previous advanced frame.
func (h *HistoryRing[T]) PreviousIndex() int { return (h.active - 1 + len(h.slots)) % len(h.slots) }

func (h *HistoryRing[T]) Current() T  { return h.slots[h.active] }
func (h *HistoryRing[T]) Previous() T { return h.slots[h.PreviousIndex()] }

// Frames counts Advance calls since creation or the last Reset.
func (h *HistoryRing[T]) Frames() int { return h.frames }

// Len is the number of slots.
func (h *HistoryRing[T]) Len() int { return len(h.slots) }

// Slots returns the slots in index order.
func (h *HistoryRing[T]) Slots() []T { return h.slots }

// Reset invalidates the history, used after a resize when slot contents are stale.
func (h *HistoryRing[T]) Reset() {
	h.frames = 0
}
