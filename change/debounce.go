package change

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Debouncer calls fn once Trigger has not been called for the quiet
// period.
type Debouncer struct {
	mu     sync.Mutex
	clock  clock.Clock
	wait   time.Duration
	fn     func()
	timer  *clock.Timer
	seq    uint64
	closed bool
}

// NewDebouncer returns a debouncer on clk. A nil clk uses the wall clock.
func NewDebouncer(clk clock.Clock, wait time.Duration, fn func()) *Debouncer {
	if clk == nil {
		clk = clock.New()
	}
	return &Debouncer{clock: clk, wait: wait, fn: fn}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(seq) })
}

// Stop cancels any pending call. Triggers after Stop are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.closed = true
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	// A timer that was already firing when it got replaced must not run.
	if d.closed || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.fn()
}
