package session

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of events into one delayed task per key.
// Scheduling a task cancels any pending task for the same key, so the
// task only fires after the key has been quiet for the full delay.
type Debouncer struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

// NewDebouncer creates a Debouncer with the given quiet period.
func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule runs fn after the quiet period, replacing any pending task
// for key. fn runs on its own goroutine.
func (d *Debouncer) Schedule(key string, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
	}
	d.timers[key] = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
}

// Cancel drops any pending task for key.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if timer, ok := d.timers[key]; ok {
		timer.Stop()
		delete(d.timers, key)
	}
}

// Stop cancels every pending task.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
