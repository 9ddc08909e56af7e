package ripple

import (
	"context"
	"slices"
	"sync"
)

// List is an index-addressed collection that signals on every visible
// mutation. Removals from an empty list, out-of-range writes, and reversing
// or sorting fewer than two elements do not signal. Reordering two or more
// elements always signals, even when the order happens to come out the
// same.
//
// Index arguments follow JavaScript array conventions: negative values
// count from the end and ranges are clamped, never panicking.
//
// All methods are safe for concurrent use.
type List[T any] struct {
	signal *Signal
	id     string

	mu       sync.Mutex
	items    []T
	redefine func(*List[T])
}

// NewList copies items into a fresh signaling list. A nil signal allocates
// a private one.
func NewList[T any](items []T, signal *Signal) *List[T] {
	if signal == nil {
		signal = NewSignal()
	}
	return &List[T]{
		signal: signal,
		id:     newContainerID(),
		items:  slices.Clone(items),
	}
}

// normIndex maps a relative index into [0, n], counting negatives from the
// end and clamping.
func normIndex(i, n int) int {
	if i < 0 {
		i += n
	}
	return min(max(i, 0), n)
}

// ID returns the container's stable identity. Replacements built by Reset
// keep it.
func (l *List[T]) ID() string {
	return l.id
}

// Len returns the number of items.
func (l *List[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// At returns the item at index. Negative indexes count from the end.
func (l *List[T]) At(index int) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if index < 0 {
		index += len(l.items)
	}
	if index < 0 || index >= len(l.items) {
		var zero T
		return zero, false
	}
	return l.items[index], true
}

// Set writes value at index, signaling unless an identical value was
// already there, and reports whether the index was in range. Out-of-range
// writes do nothing.
func (l *List[T]) Set(index int, value T) bool {
	l.mu.Lock()
	if index < 0 {
		index += len(l.items)
	}
	if index < 0 || index >= len(l.items) {
		l.mu.Unlock()
		return false
	}
	old := l.items[index]
	l.items[index] = value
	l.mu.Unlock()

	if !identical(old, value) {
		l.signal.Emit()
	}
	return true
}

// Push appends items and returns the new length, signaling if anything was
// appended.
func (l *List[T]) Push(items ...T) int {
	l.mu.Lock()
	l.items = append(l.items, items...)
	n := len(l.items)
	l.mu.Unlock()

	if len(items) > 0 {
		l.signal.Emit()
	}
	return n
}

// Pop removes and returns the last item, signaling if the list was
// non-empty.
func (l *List[T]) Pop() (T, bool) {
	l.mu.Lock()
	if len(l.items) == 0 {
		l.mu.Unlock()
		var zero T
		return zero, false
	}
	last := l.items[len(l.items)-1]
	l.items = l.items[:len(l.items)-1]
	l.mu.Unlock()

	l.signal.Emit()
	return last, true
}

// Shift removes and returns the first item, signaling if the list was
// non-empty.
func (l *List[T]) Shift() (T, bool) {
	l.mu.Lock()
	if len(l.items) == 0 {
		l.mu.Unlock()
		var zero T
		return zero, false
	}
	first := l.items[0]
	l.items = slices.Delete(l.items, 0, 1)
	l.mu.Unlock()

	l.signal.Emit()
	return first, true
}

// Unshift prepends items and returns the new length, signaling if anything
// was prepended.
func (l *List[T]) Unshift(items ...T) int {
	l.mu.Lock()
	l.items = slices.Insert(l.items, 0, items...)
	n := len(l.items)
	l.mu.Unlock()

	if len(items) > 0 {
		l.signal.Emit()
	}
	return n
}

// Splice removes deleteCount items at start, inserts items in their place,
// and returns the removed items. Start may be negative; both it and
// deleteCount are clamped. Signals if anything was removed or inserted.
func (l *List[T]) Splice(start, deleteCount int, items ...T) []T {
	l.mu.Lock()
	n := len(l.items)
	start = normIndex(start, n)
	deleteCount = min(max(deleteCount, 0), n-start)

	removed := slices.Clone(l.items[start : start+deleteCount])
	l.items = slices.Delete(l.items, start, start+deleteCount)
	l.items = slices.Insert(l.items, start, items...)
	l.mu.Unlock()

	if deleteCount > 0 || len(items) > 0 {
		l.signal.Emit()
	}
	return removed
}

// Fill writes value over the half-open range [start, end), signaling if any
// element actually changed. Negative bounds count from the end and both are
// clamped.
func (l *List[T]) Fill(value T, start, end int) {
	l.mu.Lock()
	n := len(l.items)
	start = normIndex(start, n)
	end = normIndex(end, n)

	changed := false
	for i := start; i < end; i++ {
		if !identical(l.items[i], value) {
			changed = true
		}
		l.items[i] = value
	}
	l.mu.Unlock()

	if changed {
		l.signal.Emit()
	}
}

// CopyWithin copies the range [start, end) over the items beginning at
// target, leaving the length unchanged, and signals if any element actually
// changed. Overlapping ranges behave as if the source were copied out
// first. Negative indexes count from the end and all three are clamped.
func (l *List[T]) CopyWithin(target, start, end int) {
	l.mu.Lock()
	n := len(l.items)
	target = normIndex(target, n)
	start = normIndex(start, n)
	end = normIndex(end, n)

	count := min(end-start, n-target)
	if count <= 0 {
		l.mu.Unlock()
		return
	}
	source := slices.Clone(l.items[start : start+count])

	changed := false
	for i, v := range source {
		if !identical(l.items[target+i], v) {
			changed = true
		}
		l.items[target+i] = v
	}
	l.mu.Unlock()

	if changed {
		l.signal.Emit()
	}
}

// Reverse reverses the items in place. Lists shorter than two items are
// left alone without signaling; everything else signals.
func (l *List[T]) Reverse() {
	l.mu.Lock()
	if len(l.items) < 2 {
		l.mu.Unlock()
		return
	}
	slices.Reverse(l.items)
	l.mu.Unlock()

	l.signal.Emit()
}

// Sort stably sorts the items by cmp, which returns a negative number when
// a orders before b. Lists shorter than two items are left alone without
// signaling; everything else signals.
func (l *List[T]) Sort(cmp func(a, b T) int) {
	l.mu.Lock()
	if len(l.items) < 2 {
		l.mu.Unlock()
		return
	}
	slices.SortStableFunc(l.items, cmp)
	l.mu.Unlock()

	l.signal.Emit()
}

// Values returns a copy of the items.
func (l *List[T]) Values() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// ForceUpdate signals without mutating.
func (l *List[T]) ForceUpdate() {
	l.signal.Emit()
}

// Version returns the bound signal's current generation.
func (l *List[T]) Version() uint64 {
	return l.signal.Version()
}

// Attach binds the redefinition callback Reset hands replacement instances
// to. Calling Attach again rebinds.
func (l *List[T]) Attach(redefine func(*List[T])) {
	l.mu.Lock()
	l.redefine = redefine
	l.mu.Unlock()
}

// Reset builds a replacement list with the given items on the same signal
// and identity, hands it to the attached redefinition callback, and signals
// exactly once afterwards. The callback binding moves to the replacement,
// severing this instance, so a second Reset here returns ErrNotAttached.
func (l *List[T]) Reset(ctx context.Context, items []T) (*List[T], error) {
	l.mu.Lock()
	redefine := l.redefine
	if redefine == nil {
		l.mu.Unlock()
		return nil, ErrNotAttached
	}
	l.redefine = nil
	l.mu.Unlock()

	fresh := NewList(items, l.signal)
	fresh.id = l.id
	fresh.redefine = redefine
	redefine(fresh)

	emitReset(ctx, "list", fresh.id)
	l.signal.Emit()
	return fresh, nil
}
