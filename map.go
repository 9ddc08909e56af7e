package ripple

import (
	"context"
	"maps"
	"sync"
)

// Map is a keyed collection that signals on every visible mutation. Writes
// that leave an entry identical, deletes of absent keys, and clears of an
// already-empty map do not signal. Iteration order is unspecified.
//
// All methods are safe for concurrent use.
type Map[K comparable, V any] struct {
	signal *Signal
	id     string

	mu       sync.Mutex
	entries  map[K]V
	redefine func(*Map[K, V])
}

// NewMap copies entries into a fresh signaling map. A nil signal allocates
// a private one. A nil entries starts empty.
func NewMap[K comparable, V any](entries map[K]V, signal *Signal) *Map[K, V] {
	if signal == nil {
		signal = NewSignal()
	}
	m := &Map[K, V]{
		signal:  signal,
		id:      newContainerID(),
		entries: make(map[K]V, len(entries)),
	}
	maps.Copy(m.entries, entries)
	return m
}

// ID returns the container's stable identity. Replacements built by Reset
// keep it.
func (m *Map[K, V]) ID() string {
	return m.id
}

// Get returns the value stored under key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

// Has reports whether key is present.
func (m *Map[K, V]) Has(key K) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[key]
	return ok
}

// Len returns the number of entries.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Set writes value under key, signaling unless an identical value was
// already there.
func (m *Map[K, V]) Set(key K, value V) {
	m.mu.Lock()
	old, existed := m.entries[key]
	m.entries[key] = value
	m.mu.Unlock()

	if !existed || !identical(old, value) {
		m.signal.Emit()
	}
}

// SetMany writes every item under the key derived by key, signaling at most
// once and only if at least one entry changed. Later items win duplicate
// keys.
func (m *Map[K, V]) SetMany(items []V, key func(V) K) {
	m.mu.Lock()
	changed := false
	for _, item := range items {
		k := key(item)
		old, existed := m.entries[k]
		m.entries[k] = item
		if !existed || !identical(old, item) {
			changed = true
		}
	}
	m.mu.Unlock()

	if changed {
		m.signal.Emit()
	}
}

// Delete removes key, signaling if it was present, and reports whether it
// was.
func (m *Map[K, V]) Delete(key K) bool {
	m.mu.Lock()
	_, existed := m.entries[key]
	delete(m.entries, key)
	m.mu.Unlock()

	if existed {
		m.signal.Emit()
	}
	return existed
}

// Clear removes every entry, signaling unless the map was already empty.
func (m *Map[K, V]) Clear() {
	m.mu.Lock()
	n := len(m.entries)
	m.entries = make(map[K]V)
	m.mu.Unlock()

	if n > 0 {
		m.signal.Emit()
	}
}

// Keys returns the keys in unspecified order.
func (m *Map[K, V]) Keys() []K {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]K, 0, len(m.entries))
	for k := range m.entries {
		keys = append(keys, k)
	}
	return keys
}

// Values returns the values in unspecified order.
func (m *Map[K, V]) Values() []V {
	m.mu.Lock()
	defer m.mu.Unlock()
	values := make([]V, 0, len(m.entries))
	for _, v := range m.entries {
		values = append(values, v)
	}
	return values
}

// Snapshot returns a copy of the entries.
func (m *Map[K, V]) Snapshot() map[K]V {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := make(map[K]V, len(m.entries))
	maps.Copy(snap, m.entries)
	return snap
}

// ForceUpdate signals without mutating, for consumers that changed a value's
// interior state in place.
func (m *Map[K, V]) ForceUpdate() {
	m.signal.Emit()
}

// Version returns the bound signal's current generation.
func (m *Map[K, V]) Version() uint64 {
	return m.signal.Version()
}

// Attach binds the redefinition callback Reset hands replacement instances
// to. Calling Attach again rebinds.
func (m *Map[K, V]) Attach(redefine func(*Map[K, V])) {
	m.mu.Lock()
	m.redefine = redefine
	m.mu.Unlock()
}

// Reset builds a replacement map with the given entries on the same signal
// and identity, hands it to the attached redefinition callback, and signals
// exactly once afterwards. The callback binding moves to the replacement,
// severing this instance, so a second Reset here returns ErrNotAttached.
func (m *Map[K, V]) Reset(ctx context.Context, entries map[K]V) (*Map[K, V], error) {
	m.mu.Lock()
	redefine := m.redefine
	if redefine == nil {
		m.mu.Unlock()
		return nil, ErrNotAttached
	}
	m.redefine = nil
	m.mu.Unlock()

	fresh := NewMap(entries, m.signal)
	fresh.id = m.id
	fresh.redefine = redefine
	redefine(fresh)

	emitReset(ctx, "map", fresh.id)
	m.signal.Emit()
	return fresh, nil
}
