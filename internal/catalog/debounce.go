package catalog

import (
	"sync"
	"time"
)

// DefaultSearchDebounce is the quiet period before a typed search commits.
const DefaultSearchDebounce = 400 * time.Millisecond

// Debouncer runs the most recently triggered task once no new trigger has
// arrived for the wait period. Every Trigger bumps a generation counter and
// a timer only fires its task if its generation is still current, so at most
// one task runs per quiet period even when a stopped timer was already due.
type Debouncer struct {
	wait time.Duration

	mu      sync.Mutex
	gen     uint64
	task    func()
	timer   *time.Timer
	stopped bool
}

func NewDebouncer(wait time.Duration) *Debouncer {
	if wait <= 0 {
		wait = DefaultSearchDebounce
	}
	return &Debouncer{wait: wait}
}

// Trigger schedules fn, cancelling whatever was scheduled before.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.gen++
	gen := d.gen
	d.task = fn
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if d.stopped || gen != d.gen || d.task == nil {
		d.mu.Unlock()
		return
	}
	fn := d.task
	d.task = nil
	d.timer = nil
	d.mu.Unlock()
	fn()
}

// Flush runs the scheduled task now, if there is one.
func (d *Debouncer) Flush() {
	fn := d.take()
	if fn != nil {
		fn()
	}
}

// Cancel drops the scheduled task without running it.
func (d *Debouncer) Cancel() {
	d.take()
}

func (d *Debouncer) take() func() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	fn := d.task
	d.task = nil
	return fn
}

// Pending reports whether a task is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.task != nil
}

// Stop cancels the scheduled task and ignores later triggers.
func (d *Debouncer) Stop() {
	d.take()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}
