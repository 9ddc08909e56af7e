package ripple

import (
	"maps"
	"slices"
	"sync"
)

// Store observes a Record tree. Reads through Get return nested Records as
// child stores bound to the same signal, so a mutation anywhere in the tree
// signals the root's subscribers. Writes signal only when they change
// something.
//
// A store can be revoked. Revocation cascades to every child wrapper the
// node handed out and turns the whole subtree into a transparent,
// non-signaling view of the underlying record. The host typically revokes
// the root when the state's owner goes away, guaranteeing that late writes
// from stale references never trigger another notification.
//
// All methods are safe for concurrent use. Nodes of one tree share a single
// mutex, so operations on a child and teardown of its parent cannot
// interleave.
type Store struct {
	signal *Signal

	mu       *sync.Mutex
	data     Record
	children map[string]*Store
	revoked  bool
}

// NewStore wraps data for observation and binds mutations to signal. A nil
// signal allocates a private one. A nil data starts an empty record. Nested
// Record values already present in data are wrapped lazily, on first access.
func NewStore(data Record, signal *Signal) *Store {
	if signal == nil {
		signal = NewSignal()
	}
	if data == nil {
		data = Record{}
	}
	return &Store{
		signal: signal,
		mu:     &sync.Mutex{},
		data:   data,
	}
}

// child builds a wrapper for a nested record sharing this node's signal and
// mutex.
func (s *Store) child(data Record) *Store {
	return &Store{
		signal: s.signal,
		mu:     s.mu,
		data:   data,
	}
}

// trackLocked caches a child wrapper for key. Callers hold mu.
func (s *Store) trackLocked(key string, child *Store) {
	if s.children == nil {
		s.children = make(map[string]*Store)
	}
	s.children[key] = child
}

// dropChildLocked revokes and forgets the child wrapper for key, if one was
// ever created. Callers hold mu.
func (s *Store) dropChildLocked(key string) {
	if child, ok := s.children[key]; ok {
		child.revokeLocked()
		delete(s.children, key)
	}
}

// Get returns the value under key. A nested Record comes back as a child
// store; repeated gets of the same key return the same child. Every other
// value is returned exactly as stored. After revocation values are returned
// raw, without wrapping.
func (s *Store) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if s.revoked {
		return v, true
	}
	if child, ok := s.children[key]; ok {
		return child, true
	}
	if rec, ok := v.(Record); ok {
		child := s.child(rec)
		s.trackLocked(key, child)
		return child, true
	}
	return v, true
}

// Set writes value under key and signals if it differs from what was
// already there. Writing the identical value is a complete no-op. Assigning
// a Record revokes the previous child wrapper for that key and tracks a new
// one, so the replaced subtree can never signal again. After revocation
// writes pass straight through without wrapping or signaling.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	if s.revoked {
		s.data[key] = value
		s.mu.Unlock()
		return
	}
	old, existed := s.data[key]
	if existed && identical(old, value) {
		s.mu.Unlock()
		return
	}
	s.dropChildLocked(key)
	s.data[key] = value
	if rec, ok := value.(Record); ok {
		s.trackLocked(key, s.child(rec))
	}
	s.mu.Unlock()

	s.signal.Emit()
}

// Delete removes key and signals if it was present. Deleting an absent key
// does nothing. The child wrapper for a deleted Record is revoked. After
// revocation deletes pass through without signaling.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	if s.revoked {
		delete(s.data, key)
		s.mu.Unlock()
		return
	}
	if _, existed := s.data[key]; !existed {
		s.mu.Unlock()
		return
	}
	s.dropChildLocked(key)
	delete(s.data, key)
	s.mu.Unlock()

	s.signal.Emit()
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	return ok
}

// Len returns the number of keys in this node's record.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.data)
}

// Keys returns this node's keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Version returns the bound signal's current generation.
func (s *Store) Version() uint64 {
	return s.signal.Version()
}

// Revoke disables observation for this node and every descendant wrapper
// created during its lifetime, then forgets them. Subsequent operations on
// any handle in the subtree pass through to the underlying data without
// wrapping or signaling. Revoking twice is harmless. The underlying record
// is left exactly as it was.
func (s *Store) Revoke() {
	s.mu.Lock()
	s.revokeLocked()
	s.mu.Unlock()
}

func (s *Store) revokeLocked() {
	if s.revoked {
		return
	}
	s.revoked = true
	for _, child := range s.children {
		child.revokeLocked()
	}
	s.children = nil
}

// Revoked reports whether this node has been revoked, directly or through
// an ancestor.
func (s *Store) Revoked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revoked
}

// Unwrap returns the live underlying record. Mutations made directly on it
// bypass observation entirely.
func (s *Store) Unwrap() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

// Snapshot returns a shallow copy of this node's record. Nested Records in
// the copy are shared with the original.
func (s *Store) Snapshot() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := make(Record, len(s.data))
	maps.Copy(snap, s.data)
	return snap
}
