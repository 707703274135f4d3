// Package debounce turns a fast-changing value, such as a search box, into
// one that only changes after the input has been still for a while.
package debounce

import (
	"sync"
	"time"
)

// Debouncer holds a raw value and a debounced copy of it. The debounced copy
// takes the latest raw value once delay has passed without a new Set.
type Debouncer[T comparable] struct {
	delay    time.Duration
	onChange func(T)

	// deliver serializes onChange calls.
	deliver sync.Mutex

	mu      sync.Mutex
	raw     T
	value   T
	timer   *time.Timer
	seq     uint64
	stopped bool
}

// New returns a debouncer whose debounced value starts at initial. onChange,
// if not nil, is called from a timer goroutine whenever the debounced value
// changes; calls never overlap.
func New[T comparable](delay time.Duration, initial T, onChange func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, onChange: onChange, raw: initial, value: initial}
}

// Set records a raw value and restarts the delay.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.raw = v
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(seq) })
	d.mu.Unlock()
}

// Value returns the debounced value.
func (d *Debouncer[T]) Value() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value
}

// Raw returns the latest value passed to Set.
func (d *Debouncer[T]) Raw() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Pending reports whether a Set is waiting for its delay to pass.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Flush applies the pending raw value now.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer == nil || d.stopped {
		d.mu.Unlock()
		return
	}
	d.timer.Stop()
	d.timer = nil
	seq := d.seq
	d.mu.Unlock()
	d.fire(seq)
}

// Stop cancels a pending update. No update is delivered after Stop returns,
// except one whose onChange call was already running.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// fire applies the raw value of generation seq unless a newer Set or a Stop
// overtook it.
func (d *Debouncer[T]) fire(seq uint64) {
	d.deliver.Lock()
	defer d.deliver.Unlock()

	d.mu.Lock()
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	changed := d.value != d.raw
	d.value = d.raw
	v := d.value
	d.seq++
	d.mu.Unlock()

	if changed && d.onChange != nil {
		d.onChange(v)
	}
}
