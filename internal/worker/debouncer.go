package worker

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of keyed triggers. After the window passes
// without a new trigger, fn receives every key seen during the burst.
type Debouncer struct {
	window time.Duration
	fn     func(keys []string)

	mu      sync.Mutex
	pending map[string]struct{}
	order   []string
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer calling fn after window of quiet.
func NewDebouncer(window time.Duration, fn func(keys []string)) *Debouncer {
	return &Debouncer{window: window, fn: fn, pending: make(map[string]struct{})}
}

// Trigger records key and restarts the quiet window.
func (d *Debouncer) Trigger(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if _, ok := d.pending[key]; !ok {
		d.pending[key] = struct{}{}
		d.order = append(d.order, key)
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	keys := d.order
	d.order = nil
	d.pending = make(map[string]struct{})
	d.timer = nil
	stopped := d.stopped
	d.mu.Unlock()

	if len(keys) > 0 && !stopped {
		d.fn(keys)
	}
}

// Flush runs fn immediately with the pending keys, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.flush()
}

// Stop cancels any pending call. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
}
