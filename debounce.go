package ripple

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Debounced holds an immediate value and a settled value that trails it by
// a quiet period. Every accepted Set updates the immediate value, signals,
// and restarts the quiet-period timer; when the timer survives untouched,
// the settled value catches up and signals again. Setting the identical
// value is a complete no-op and does not restart the timer.
//
// All methods are safe for concurrent use.
type Debounced[T any] struct {
	signal *Signal
	clock  clockz.Clock

	mu        sync.Mutex
	immediate T
	settled   T
	delay     time.Duration
	gen       uint64
	pending   bool
	started   bool
	closed    bool

	kick chan struct{}
	done chan struct{}
}

// NewDebounced creates a debounced value holding initial in both positions.
// A nil signal allocates a private one. The timer goroutine starts lazily
// on the first accepted Set.
func NewDebounced[T any](initial T, delay time.Duration, signal *Signal) *Debounced[T] {
	if signal == nil {
		signal = NewSignal()
	}
	return &Debounced[T]{
		signal:    signal,
		clock:     clockz.RealClock,
		immediate: initial,
		settled:   initial,
		delay:     delay,
		kick:      make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

// Clock sets a custom clock for testing.
// Must be called before the first Set.
func (d *Debounced[T]) Clock(clock clockz.Clock) *Debounced[T] {
	d.clock = clock
	return d
}

// Get returns the settled value.
func (d *Debounced[T]) Get() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled
}

// Peek returns the immediate value, ahead of any pending settle.
func (d *Debounced[T]) Peek() T {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.immediate
}

// Pending reports whether a settle is waiting on the quiet period.
func (d *Debounced[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Version returns the bound signal's current generation.
func (d *Debounced[T]) Version() uint64 {
	return d.signal.Version()
}

// Set updates the immediate value, signals, and restarts the quiet-period
// timer. A value identical to the current immediate one is ignored
// entirely. After Close the immediate value still updates and signals, but
// nothing settles anymore.
func (d *Debounced[T]) Set(value T) {
	d.mu.Lock()
	if identical(d.immediate, value) {
		d.mu.Unlock()
		return
	}
	d.immediate = value
	if d.closed {
		d.mu.Unlock()
		d.signal.Emit()
		return
	}
	d.pending = true
	d.gen++
	if !d.started {
		d.started = true
		go d.run()
	}
	d.mu.Unlock()

	d.wake()
	d.signal.Emit()
}

// wake nudges the runner to re-arm. The channel holds one pending nudge;
// coalesced nudges are fine because the runner reads the latest state when
// it arms.
func (d *Debounced[T]) wake() {
	select {
	case d.kick <- struct{}{}:
	default:
	}
}

// run owns the single debounce timer. A generation counter guards settles:
// a timer armed for an older Set fires into nothing.
func (d *Debounced[T]) run() {
	var (
		timer    clockz.Timer
		armedFor uint64
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-d.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case <-d.kick:
			d.mu.Lock()
			gen := d.gen
			delay := d.delay
			arm := d.pending
			d.mu.Unlock()
			if !arm {
				continue
			}
			armedFor = gen
			if timer == nil {
				timer = d.clock.NewTimer(delay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(delay)
			}

		case <-timerC:
			d.mu.Lock()
			if !d.pending || armedFor != d.gen {
				d.mu.Unlock()
				continue
			}
			d.pending = false
			d.settled = d.immediate
			d.mu.Unlock()
			d.signal.Emit()
		}
	}
}

// SetDelay changes the quiet period. A pending settle is restarted with the
// new delay measured from now.
func (d *Debounced[T]) SetDelay(delay time.Duration) {
	d.mu.Lock()
	d.delay = delay
	rearm := d.pending && !d.closed
	if rearm {
		d.gen++
	}
	d.mu.Unlock()

	if rearm {
		d.wake()
	}
}

// Flush settles the immediate value right now, abandoning the pending
// timer, and signals. Without a pending settle it does nothing.
func (d *Debounced[T]) Flush() {
	d.mu.Lock()
	if !d.pending {
		d.mu.Unlock()
		return
	}
	d.pending = false
	d.gen++
	d.settled = d.immediate
	d.mu.Unlock()

	d.signal.Emit()
}

// Cancel abandons the pending settle without touching either value.
func (d *Debounced[T]) Cancel() {
	d.mu.Lock()
	d.pending = false
	d.gen++
	d.mu.Unlock()
}

// Close stops the timer goroutine without settling. The values remain
// readable and the immediate one remains settable. Closing twice is
// harmless.
func (d *Debounced[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.pending = false
	d.gen++
	started := d.started
	d.mu.Unlock()

	if started {
		close(d.done)
	}
}
