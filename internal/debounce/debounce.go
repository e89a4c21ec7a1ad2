// Package debounce coalesces bursts of input changes into a single delayed notification.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiescence period of the search box.
const DefaultWindow = 500 * time.Millisecond

// Debouncer emits the latest pushed value once no new value has arrived for
// a full window. Each Push cancels the pending emission and restarts the
// window. Cancel drops the pending emission, Stop drops it for good.
//
// Safe for concurrent use. Emissions are serialised and run on the clock's
// callback goroutine. The emit function may call Push but must not call Cancel or Stop.
type Debouncer struct {
	window time.Duration
	emit   func(string)
	clock  Clock

	emitMu sync.Mutex // held while an emission is in flight

	mu         sync.Mutex
	timer      Timer
	gen        uint64
	pending    string
	hasPending bool
	stopped    bool
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock replaces the real clock, mainly for tests.
func WithClock(c Clock) Option {
	return func(d *Debouncer) {
		d.clock = c
	}
}

// New creates a Debouncer that calls emit after window of quiescence.
// A non-positive window falls back to DefaultWindow.
func New(window time.Duration, emit func(string), opts ...Option) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	d := &Debouncer{
		window: window,
		emit:   emit,
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Push records value as the latest input and restarts the window.
// Calls after Stop are ignored.
func (d *Debouncer) Push(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.pending, d.hasPending = value, true
	d.timer = d.clock.AfterFunc(d.window, func() { d.fire(gen) })
}

// Pending returns the value waiting to be emitted, if any.
func (d *Debouncer) Pending() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending, d.hasPending
}

// Cancel drops the pending value without stopping the debouncer. When Cancel
// returns no emission is in flight, so a value applied afterwards is newer
// than anything emitted before. Later pushes are debounced as usual.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	d.dropLocked()
	d.mu.Unlock()
	d.awaitEmission()
}

// Stop cancels the pending emission. When Stop returns no emission is in
// flight and none will happen later. Stop is idempotent.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.dropLocked()
	d.mu.Unlock()
	d.awaitEmission()
}

func (d *Debouncer) dropLocked() {
	d.gen++
	d.hasPending = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// awaitEmission waits for an emission that passed its checks before the caller got the lock.
func (d *Debouncer) awaitEmission() {
	d.emitMu.Lock()
	d.emitMu.Unlock()
}

// fire runs when the window of generation gen elapsed. A timer that lost the
// race with a newer Push or with Stop finds a different generation and does nothing.
func (d *Debouncer) fire(gen uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.stopped || gen != d.gen || !d.hasPending {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.hasPending = false
	d.timer = nil
	d.mu.Unlock()

	d.emit(value)
}
