package lookup

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period callers typically use between a
// keystroke burst and the lookup it triggers.
const DefaultDebounce = 450 * time.Millisecond

// Debouncer delays a function until a quiet period has passed since the last
// call; each new call replaces the pending one.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Do schedules fn after the quiet period, cancelling any pending schedule.
func (d *Debouncer) Do(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop cancels the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
