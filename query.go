package ripple

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

const defaultErrorHistorySize = 10

// Operation is one cancelable unit of async work produced for a query
// cycle. The context is canceled when the cycle is superseded or the query
// is closed.
type Operation[T any] func(ctx context.Context) (T, error)

// Factory produces the operation for a query cycle. It runs synchronously
// on the goroutine that accepted the cycle, once per cycle, so it can
// capture fresh inputs. Returning nil skips the cycle: the query stays
// waiting until a later reload.
type Factory[T any] func() Operation[T]

// Attempt carries one query cycle through the processing pipeline.
type Attempt[T any] struct {
	// Deps is the dependency list that started this cycle.
	Deps []any

	// Result is populated by the terminal stage on success. Middleware may
	// modify it before it is committed.
	Result T

	run Operation[T]
}

// Query tracks one async operation whose lifecycle is keyed to a
// dependency list. Reload compares the list element-wise by identity
// against the previous one; a change cancels whatever is in flight, forces
// the waiting state, and runs a fresh operation from the factory. Only the
// newest cycle may commit: completions from superseded cycles are
// discarded, so the observed state never goes backwards.
//
// Every committed transition signals, and entering waiting signals even
// when the state was already waiting, since the cycle identity changed.
//
// Basic usage:
//
//	q := ripple.NewQuery(func() ripple.Operation[Profile] {
//	    return func(ctx context.Context) (Profile, error) {
//	        return loadProfile(ctx, userID)
//	    }
//	}, signal, ripple.WithQueryTimeout[Profile](5*time.Second))
//
//	q.Reload(ctx, userID)
//
//	switch q.State() {
//	case ripple.StateResolved:
//	    profile, _ := q.Result()
//	    render(profile)
//	case ripple.StateRejected:
//	    renderError(q.Err())
//	}
//
// All methods are safe for concurrent use.
type Query[T any] struct {
	factory  Factory[T]
	signal   *Signal
	pipeline pipz.Chainable[*Attempt[T]]
	clock    clockz.Clock
	metrics  MetricsProvider
	history  *errorRing
	persist  bool

	state atomic.Int32

	mu      sync.Mutex
	deps    []any
	hasDeps bool
	gen     uint64
	cancel  context.CancelFunc
	result  *T
	err     error
	closed  bool
}

// NewQuery creates a query in the waiting state. Nothing runs until the
// first Reload. A nil signal allocates a private one. Options wrap the
// operation with pipeline middleware; instance configuration uses the
// chainable methods before the first Reload.
func NewQuery[T any](factory Factory[T], signal *Signal, opts ...QueryOption[T]) *Query[T] {
	if signal == nil {
		signal = NewSignal()
	}
	q := &Query[T]{
		factory: factory,
		signal:  signal,
		clock:   clockz.RealClock,
		history: newErrorRing(defaultErrorHistorySize),
	}

	terminal := pipz.Apply(pipz.Name("operation"), func(ctx context.Context, a *Attempt[T]) (*Attempt[T], error) {
		result, err := a.run(ctx)
		if err != nil {
			return a, err
		}
		a.Result = result
		return a, nil
	})
	q.pipeline = buildQueryPipeline(terminal, opts)
	q.state.Store(int32(StateWaiting))
	return q
}

// Persist keeps the previous cycle's result and error visible while the
// next cycle is waiting, instead of clearing them.
// Must be called before the first Reload.
func (q *Query[T]) Persist() *Query[T] {
	q.persist = true
	return q
}

// Clock sets a custom clock for testing.
// Must be called before the first Reload.
func (q *Query[T]) Clock(clock clockz.Clock) *Query[T] {
	q.clock = clock
	return q
}

// Metrics sets the metrics provider for operational callbacks.
// Must be called before the first Reload.
func (q *Query[T]) Metrics(provider MetricsProvider) *Query[T] {
	q.metrics = provider
	return q
}

// ErrorHistorySize sets how many recent consecutive errors are retained.
// Zero disables the history.
// Must be called before the first Reload.
func (q *Query[T]) ErrorHistorySize(size int) *Query[T] {
	q.history = newErrorRing(size)
	return q
}

// Reload starts a new cycle when deps differs, element-wise by identity,
// from the previous dependency list. An unchanged list is a complete no-op:
// nothing cancels, nothing signals. The very first Reload always starts a
// cycle, whatever its deps.
func (q *Query[T]) Reload(ctx context.Context, deps ...any) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	if q.hasDeps && sameDeps(q.deps, deps) {
		q.mu.Unlock()
		return
	}
	q.hasDeps = true
	q.deps = slices.Clone(deps)
	snapshot := slices.Clone(q.deps)
	gen := q.beginLocked()
	q.mu.Unlock()

	q.start(ctx, gen, snapshot)
}

// Invalidate forces a fresh cycle with the current dependency list even
// though it has not changed. Any in-flight operation is superseded.
func (q *Query[T]) Invalidate(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.hasDeps = true
	snapshot := slices.Clone(q.deps)
	gen := q.beginLocked()
	q.mu.Unlock()

	q.start(ctx, gen, snapshot)
}

// beginLocked supersedes the in-flight cycle and opens a new one. Callers
// hold mu.
func (q *Query[T]) beginLocked() uint64 {
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.gen++
	if !q.persist {
		q.result = nil
		q.err = nil
	}
	return q.gen
}

// start forces the waiting state, obtains the cycle's operation from the
// factory, and launches it. The factory runs synchronously here, before
// start returns.
func (q *Query[T]) start(ctx context.Context, gen uint64, deps []any) {
	q.transition(ctx, StateWaiting)
	q.signal.Emit()
	capitan.Emit(ctx, QueryStarted,
		KeyDeps.Field(len(deps)),
	)

	op := q.factory()
	if op == nil {
		capitan.Emit(ctx, QuerySkipped)
		return
	}

	opCtx, cancel := context.WithCancel(ctx)
	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		cancel()
		return
	}
	q.cancel = cancel
	q.mu.Unlock()

	started := q.clock.Now()
	go func() {
		attempt := &Attempt[T]{Deps: deps, run: op}
		processed, err := q.pipeline.Process(opCtx, attempt)
		q.commit(ctx, gen, processed, err, started)
	}()
}

// commit stores a cycle's outcome unless a newer cycle has started since,
// in which case the completion is discarded.
func (q *Query[T]) commit(ctx context.Context, gen uint64, attempt *Attempt[T], opErr error, started time.Time) {
	elapsed := q.clock.Since(started)

	q.mu.Lock()
	if q.closed || gen != q.gen {
		q.mu.Unlock()
		capitan.Emit(ctx, QuerySuperseded)
		return
	}
	q.cancel = nil
	if opErr != nil {
		q.result = nil
		q.err = opErr
		q.history.push(opErr)
	} else {
		result := attempt.Result
		q.result = &result
		q.err = nil
		q.history.clear()
	}
	q.mu.Unlock()

	if opErr != nil {
		q.transition(ctx, StateRejected)
		capitan.Emit(ctx, QueryRejected,
			KeyError.Field(opErr.Error()),
		)
		if q.metrics != nil {
			q.metrics.OnProcessFailure("operation", elapsed)
		}
	} else {
		q.transition(ctx, StateResolved)
		capitan.Emit(ctx, QueryResolved)
		if q.metrics != nil {
			q.metrics.OnProcessSuccess(elapsed)
		}
	}
	q.signal.Emit()
}

// transition swaps the state, emitting the change event and metrics when it
// actually changed.
func (q *Query[T]) transition(ctx context.Context, to State) {
	from := State(q.state.Swap(int32(to)))
	if from == to {
		return
	}
	capitan.Emit(ctx, QueryStateChanged,
		KeyOldState.Field(from.String()),
		KeyNewState.Field(to.String()),
	)
	if q.metrics != nil {
		q.metrics.OnStateChange(from, to)
	}
}

// State returns the current cycle phase.
func (q *Query[T]) State() State {
	return State(q.state.Load())
}

// Result returns the most recently committed result. The second return is
// false while no result is visible: before the first resolution, after a
// rejection, and while waiting without Persist.
func (q *Query[T]) Result() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.result == nil {
		var zero T
		return zero, false
	}
	return *q.result, true
}

// Err returns the most recently committed error, or nil.
func (q *Query[T]) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// ErrorHistory returns recent consecutive errors, oldest first. The
// history clears on the next success.
func (q *Query[T]) ErrorHistory() []error {
	return q.history.all()
}

// Deps returns a copy of the current dependency list.
func (q *Query[T]) Deps() []any {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.deps)
}

// Version returns the bound signal's current generation.
func (q *Query[T]) Version() uint64 {
	return q.signal.Version()
}

// Close cancels any in-flight operation and refuses further cycles. The
// committed state, result, and error remain readable. Closing twice is
// harmless.
func (q *Query[T]) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	q.mu.Unlock()
}

// sameDeps reports element-wise identity between dependency lists.
func sameDeps(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !identical(a[i], b[i]) {
			return false
		}
	}
	return true
}
