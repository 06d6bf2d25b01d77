package profiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestTickReportsOncePerInterval(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithInterval(time.Second), WithClock(clock.now))

	for range 9 {
		clock.advance(100 * time.Millisecond)
		assert.False(t, p.Tick())
	}
	clock.advance(100 * time.Millisecond)
	require.True(t, p.Tick())
	assert.InDelta(t, 10, p.FPS(), 1e-9)
}

func TestSectionAveragesKeepFirstRecordedOrder(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	p := NewProfiler(WithClock(clock.now))

	p.Record("GBuffer", 2*time.Millisecond)
	p.Record("Bloom", time.Millisecond)
	p.Record("GBuffer", 4*time.Millisecond)
	p.Measure("Resolution", func() { clock.advance(3 * time.Millisecond) })
	assert.Empty(t, p.Timings(), "averages appear once an interval completes")

	clock.advance(time.Second)
	require.True(t, p.Tick())
	assert.Equal(t, []Timing{
		{Name: "GBuffer", Average: 3 * time.Millisecond, Samples: 2},
		{Name: "Bloom", Average: time.Millisecond, Samples: 1},
		{Name: "Resolution", Average: 3 * time.Millisecond, Samples: 1},
	}, p.Timings())
}
