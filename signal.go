package ripple

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Signal is the change-notification channel between containers and their
// host. Containers call Emit after every observed mutation; the host
// subscribes whatever re-evaluation it needs. ripple makes no assumption
// about how the host schedules or batches the resulting work.
//
// The zero value is not usable. Create signals with NewSignal. Container
// constructors accept a nil *Signal and allocate a private one, for
// containers whose consumers only care about the values, not the
// notifications.
type Signal struct {
	version atomic.Uint64

	mu   sync.Mutex
	subs []*subscriber
}

// subscriber wraps the callback so removal can match by identity even when
// the same func value is subscribed twice.
type subscriber struct {
	fn func()
}

// NewSignal returns a signal with no subscribers and generation zero.
func NewSignal() *Signal {
	return &Signal{}
}

// Version returns the current generation token. Tokens are per-signal
// monotonic; hosts compare them for change, never for magnitude.
func (s *Signal) Version() uint64 {
	return s.version.Load()
}

// Emit advances the generation and synchronously invokes every subscriber
// on the caller's goroutine. The subscriber list is snapshotted first, so
// callbacks that subscribe or unsubscribe during notification do not affect
// the in-flight pass.
func (s *Signal) Emit() {
	s.version.Add(1)

	s.mu.Lock()
	subs := slices.Clone(s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn()
	}
}

// Subscribe registers fn to run on every emission and returns its removal
// function. Removal is idempotent and safe to call concurrently with Emit.
func (s *Signal) Subscribe(fn func()) func() {
	sub := &subscriber{fn: fn}

	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, candidate := range s.subs {
			if candidate == sub {
				s.subs = slices.Delete(s.subs, i, i+1)
				return
			}
		}
	}
}
