package ripple

import (
	"context"
	"sync"
)

// Set is a membership collection that signals on every visible mutation.
// Adding a present element, deleting an absent one, and clearing an empty
// set do not signal. Toggle always signals, since membership always flips.
//
// All methods are safe for concurrent use.
type Set[E comparable] struct {
	signal *Signal
	id     string

	mu       sync.Mutex
	elements map[E]struct{}
	redefine func(*Set[E])
}

// NewSet copies elements into a fresh signaling set. A nil signal allocates
// a private one.
func NewSet[E comparable](elements []E, signal *Signal) *Set[E] {
	if signal == nil {
		signal = NewSignal()
	}
	s := &Set[E]{
		signal:   signal,
		id:       newContainerID(),
		elements: make(map[E]struct{}, len(elements)),
	}
	for _, e := range elements {
		s.elements[e] = struct{}{}
	}
	return s
}

// ID returns the container's stable identity. Replacements built by Reset
// keep it.
func (s *Set[E]) ID() string {
	return s.id
}

// Has reports membership.
func (s *Set[E]) Has(element E) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.elements[element]
	return ok
}

// Len returns the number of elements.
func (s *Set[E]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.elements)
}

// Add inserts element, signaling if it was absent, and reports whether it
// was inserted.
func (s *Set[E]) Add(element E) bool {
	s.mu.Lock()
	_, existed := s.elements[element]
	s.elements[element] = struct{}{}
	s.mu.Unlock()

	if !existed {
		s.signal.Emit()
	}
	return !existed
}

// AddMany inserts every element, signaling at most once and only if at
// least one was absent.
func (s *Set[E]) AddMany(elements []E) {
	s.mu.Lock()
	changed := false
	for _, e := range elements {
		if _, existed := s.elements[e]; !existed {
			s.elements[e] = struct{}{}
			changed = true
		}
	}
	s.mu.Unlock()

	if changed {
		s.signal.Emit()
	}
}

// Delete removes element, signaling if it was present, and reports whether
// it was.
func (s *Set[E]) Delete(element E) bool {
	s.mu.Lock()
	_, existed := s.elements[element]
	delete(s.elements, element)
	s.mu.Unlock()

	if existed {
		s.signal.Emit()
	}
	return existed
}

// Toggle flips membership, always signals, and reports the new state: true
// when element is now present.
func (s *Set[E]) Toggle(element E) bool {
	s.mu.Lock()
	_, existed := s.elements[element]
	if existed {
		delete(s.elements, element)
	} else {
		s.elements[element] = struct{}{}
	}
	s.mu.Unlock()

	s.signal.Emit()
	return !existed
}

// Clear removes every element, signaling unless the set was already empty.
func (s *Set[E]) Clear() {
	s.mu.Lock()
	n := len(s.elements)
	s.elements = make(map[E]struct{})
	s.mu.Unlock()

	if n > 0 {
		s.signal.Emit()
	}
}

// Values returns the elements in unspecified order.
func (s *Set[E]) Values() []E {
	s.mu.Lock()
	defer s.mu.Unlock()
	values := make([]E, 0, len(s.elements))
	for e := range s.elements {
		values = append(values, e)
	}
	return values
}

// ForceUpdate signals without mutating.
func (s *Set[E]) ForceUpdate() {
	s.signal.Emit()
}

// Version returns the bound signal's current generation.
func (s *Set[E]) Version() uint64 {
	return s.signal.Version()
}

// Attach binds the redefinition callback Reset hands replacement instances
// to. Calling Attach again rebinds.
func (s *Set[E]) Attach(redefine func(*Set[E])) {
	s.mu.Lock()
	s.redefine = redefine
	s.mu.Unlock()
}

// Reset builds a replacement set with the given elements on the same signal
// and identity, hands it to the attached redefinition callback, and signals
// exactly once afterwards. The callback binding moves to the replacement,
// severing this instance, so a second Reset here returns ErrNotAttached.
func (s *Set[E]) Reset(ctx context.Context, elements []E) (*Set[E], error) {
	s.mu.Lock()
	redefine := s.redefine
	if redefine == nil {
		s.mu.Unlock()
		return nil, ErrNotAttached
	}
	s.redefine = nil
	s.mu.Unlock()

	fresh := NewSet(elements, s.signal)
	fresh.id = s.id
	fresh.redefine = redefine
	redefine(fresh)

	emitReset(ctx, "set", fresh.id)
	s.signal.Emit()
	return fresh, nil
}
