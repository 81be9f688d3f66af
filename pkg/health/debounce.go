package health

import (
	"sync/atomic"
	"time"
)

// debouncer coalesces bursts of triggers into one delayed execution. Each
// trigger bumps a generation counter and schedules a check; only the check
// whose generation is still current when the delay elapses runs the
// callback, so rapid structural changes produce a single recheck.
type debouncer struct {
	delay      time.Duration
	generation atomic.Uint64
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{delay: delay}
}

func (d *debouncer) trigger(fn func()) {
	gen := d.generation.Add(1)
	time.AfterFunc(d.delay, func() {
		if d.generation.Load() == gen {
			fn()
		}
	})
}
