package profiler

import "time"

// ProfilerBuilderOption is a functional option applied to a Profiler by NewProfiler.
type ProfilerBuilderOption func(*Profiler)

// WithInterval sets how often Tick reports. Non-positive values keep the default.
//
// Parameters:
//   - d: the reporting interval
//
// Returns:
//   - ProfilerBuilderOption: option function to apply
func WithInterval(d time.Duration) ProfilerBuilderOption {
	return func(p *Profiler) {
		if d > 0 {
			p.updateInterval = d
		}
	}
}

// WithClock replaces the time source, used by tests to control elapsed time.
func WithClock(now func() time.Time) ProfilerBuilderOption {
	return func(p *Profiler) {
		p.now = now
	}
}
