// Package profiler tracks frame rate, memory statistics and per-section frame timings.
package profiler

import (
	"log/slog"
	"runtime"
	"time"

	"github.com/KlishchD/EdEngine-sub000/engine/logger"
)

// Timing is the average duration of one named section over the last reporting interval.
type Timing struct {
	Name    string
	Average time.Duration
	Samples int
}

type section struct {
	total   time.Duration
	samples int
	last    Timing
}

// Profiler tracks frame rate, memory statistics and named section timings. Reports are
// logged at Debug level once per interval.
// Not safe for concurrent use; it is driven from the render loop.
type Profiler struct {
	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
	now            func() time.Time

	sections map[string]*section
	order    []string
	fps      float64
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		updateInterval: time.Second,
		now:            time.Now,
		sections:       make(map[string]*section),
	}
	for _, option := range options {
		option(p)
	}
	p.lastTime = p.now()
	return p
}

// Measure runs fn and adds its duration to the named section.
//
// Parameters:
//   - name: the section, typically a render task name
//   - fn: the work to time
func (p *Profiler) Measure(name string, fn func()) {
	start := p.now()
	fn()
	p.Record(name, p.now().Sub(start))
}

// Record adds one sample to the named section. Sections are reported in the order they
// were first recorded.
func (p *Profiler) Record(name string, d time.Duration) {
	s, ok := p.sections[name]
	if !ok {
		s = &section{}
		p.sections[name] = s
		p.order = append(p.order, name)
	}
	s.total += d
	s.samples++
}

// Timings returns the section averages of the last completed interval, in first-recorded
// order.
func (p *Profiler) Timings() []Timing {
	out := make([]Timing, 0, len(p.order))
	for _, name := range p.order {
		if t := p.sections[name].last; t.Samples > 0 {
			out = append(out, t)
		}
	}
	return out
}

// FPS returns the frame rate measured over the last completed interval.
func (p *Profiler) FPS() float64 { return p.fps }

// Tick should be called once per frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, heap usage, allocation rate, GC count/pause times, total memory,
// and the average duration of every recorded section.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	p.fps = float64(p.frameCount) / elapsed.Seconds()
	runtime.ReadMemStats(&p.memStats)
	allocMB := float64(p.memStats.Alloc) / 1024 / 1024
	sysMB := float64(p.memStats.Sys) / 1024 / 1024
	allocRateMB := float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()

	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of the last 256 pauses.
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000
		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	attrs := []any{
		"fps", p.fps,
		"heap_mb", allocMB,
		"alloc_rate_mb_s", allocRateMB,
		"gc", gcCount,
		"gc_last_us", lastPauseUs,
		"gc_max_us", maxPauseUs,
		"sys_mb", sysMB,
	}
	for _, name := range p.order {
		s := p.sections[name]
		s.last = Timing{Name: name, Samples: s.samples}
		if s.samples > 0 {
			s.last.Average = s.total / time.Duration(s.samples)
			attrs = append(attrs, slog.Duration(name, s.last.Average))
		}
		s.total, s.samples = 0, 0
	}
	logger.Logger().Debug("profiler", attrs...)

	p.frameCount = 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
