package ripple

import (
	"slices"
	"sync"
)

// errorRing keeps the most recent errors, oldest first. A nil ring is
// disabled: every method is a safe no-op.
type errorRing struct {
	mu   sync.RWMutex
	size int
	errs []error
}

// newErrorRing creates a ring holding up to size errors. A size of zero or
// less disables the ring.
func newErrorRing(size int) *errorRing {
	if size <= 0 {
		return nil
	}
	return &errorRing{size: size}
}

// push appends an error, evicting the oldest when full.
func (r *errorRing) push(err error) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs = append(r.errs, err)
	if len(r.errs) > r.size {
		r.errs = slices.Delete(r.errs, 0, len(r.errs)-r.size)
	}
}

// clear drops every stored error.
func (r *errorRing) clear() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.errs = nil
}

// all returns the stored errors, oldest first.
func (r *errorRing) all() []error {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.errs) == 0 {
		return nil
	}
	return slices.Clone(r.errs)
}
