package ripple

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// Reducer merges the decoded snapshots of a composite feed's sources into
// a single value. Snapshots arrive in source order. On the first merge
// prev is nil; afterwards it holds the snapshots that produced the last
// applied value.
type Reducer[T Validator] func(ctx context.Context, prev, curr []T) (T, error)

// SourceError identifies which source of a composite feed failed.
type SourceError struct {
	Index int
	Err   error
}

// CompositeFeed drives containers from several sources at once. Each
// source's emissions are decoded and validated independently; once every
// source has reported, the reducer merges the snapshots and the result
// goes through the same apply pipeline a single-source Feed uses.
//
// A typical use is layered state: defaults from a bundled file, overrides
// from a remote store, with the reducer expressing precedence.
//
// All methods are safe for concurrent use.
type CompositeFeed[T Validator] struct {
	sources        []Source
	reduce         Reducer[T]
	pipeline       pipz.Chainable[*Change[T]]
	debounce       time.Duration
	startupTimeout time.Duration
	syncMode       bool
	tagValidate    bool
	clock          clockz.Clock
	codec          Codec
	metrics        MetricsProvider
	onStop         func(error)

	current      atomic.Pointer[T]
	lastError    atomic.Pointer[error]
	history      *errorRing
	sourceErrors atomic.Pointer[[]SourceError]

	// Snapshots that produced the last applied value, fed back to the
	// reducer as prev.
	lastDecoded atomic.Pointer[[]T]

	mu      sync.Mutex
	started bool

	sourceChans []<-chan []byte

	// latest holds the newest raw bytes per source. Guarded by latestMu
	// because source goroutines write while processing reads.
	latestMu sync.Mutex
	latest   [][]byte
}

// NewCompositeFeed creates a feed that merges snapshots from several
// sources.
//
// Bytes from each source are decoded to T with the configured codec and
// validated. When every source has emitted at least once, reduce merges
// the per-source values and apply is invoked with the previous and merged
// results. Later emissions from any source re-run the merge after the
// debounce quiet period.
//
// Example:
//
//	feed := ripple.NewCompositeFeed[Settings](
//	    []ripple.Source{defaults, overrides},
//	    func(ctx context.Context, prev, curr []Settings) (Settings, error) {
//	        merged := curr[0]
//	        if curr[1].Theme != "" {
//	            merged.Theme = curr[1].Theme
//	        }
//	        return merged, nil
//	    },
//	    func(ctx context.Context, prev, curr Settings) error {
//	        return applySettings(store, curr)
//	    },
//	)
func NewCompositeFeed[T Validator](
	sources []Source,
	reduce Reducer[T],
	apply func(ctx context.Context, prev, curr T) error,
	opts ...FeedOption[T],
) *CompositeFeed[T] {
	terminal := pipz.Effect(pipz.Name("apply"), func(ctx context.Context, change *Change[T]) error {
		if err := apply(ctx, change.Previous, change.Current); err != nil {
			return err
		}
		change.applied = true
		return nil
	})

	return &CompositeFeed[T]{
		sources:  sources,
		reduce:   reduce,
		pipeline: buildFeedPipeline(terminal, opts),
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
		codec:    JSONCodec{},
		history:  newErrorRing(0),
		latest:   make([][]byte, len(sources)),
	}
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Debounce sets the quiet period for change coalescing across all sources.
// Default: 100ms. Must be called before Run().
func (f *CompositeFeed[T]) Debounce(d time.Duration) *CompositeFeed[T] {
	f.debounce = d
	return f
}

// SyncMode enables synchronous processing for testing. In sync mode
// changes are processed via Step(), without debouncing or goroutines.
// Must be called before Run().
func (f *CompositeFeed[T]) SyncMode() *CompositeFeed[T] {
	f.syncMode = true
	return f
}

// Clock sets a custom clock for time operations. Must be called before
// Run().
func (f *CompositeFeed[T]) Clock(clock clockz.Clock) *CompositeFeed[T] {
	f.clock = clock
	return f
}

// Codec sets the codec for decoding snapshots from every source.
// Default: JSONCodec. Must be called before Run().
func (f *CompositeFeed[T]) Codec(codec Codec) *CompositeFeed[T] {
	f.codec = codec
	return f
}

// TagValidation enables struct tag validation via go-playground/validator
// for each source's decoded snapshot. T must be a struct type.
// Must be called before Run().
func (f *CompositeFeed[T]) TagValidation() *CompositeFeed[T] {
	f.tagValidate = true
	return f
}

// StartupTimeout sets the maximum duration to wait for the initial
// snapshot from every source combined. If any source fails to emit within
// this duration, Run() returns an error. Default: no timeout.
// Must be called before Run().
func (f *CompositeFeed[T]) StartupTimeout(d time.Duration) *CompositeFeed[T] {
	f.startupTimeout = d
	return f
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Run().
func (f *CompositeFeed[T]) Metrics(provider MetricsProvider) *CompositeFeed[T] {
	f.metrics = provider
	return f
}

// OnStop sets a callback invoked when the feed stops watching. It receives
// the last error, or nil if the final merge applied cleanly.
// Must be called before Run().
func (f *CompositeFeed[T]) OnStop(fn func(error)) *CompositeFeed[T] {
	f.onStop = fn
	return f
}

// ErrorHistorySize sets the number of recent errors to retain. Use 0
// (default) to retain only the most recent error via LastError().
// Must be called before Run().
func (f *CompositeFeed[T]) ErrorHistorySize(n int) *CompositeFeed[T] {
	f.history = newErrorRing(n)
	return f
}

// Current returns the most recently applied merged value and true, or the
// zero value and false if nothing has been applied yet.
func (f *CompositeFeed[T]) Current() (T, bool) {
	ptr := f.current.Load()
	if ptr == nil {
		var zero T
		return zero, false
	}
	return *ptr, true
}

// LastError returns the last error encountered, or nil. It clears on the
// next successful apply.
func (f *CompositeFeed[T]) LastError() error {
	ptr := f.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent error history, oldest first. Returns nil
// unless enabled with ErrorHistorySize.
func (f *CompositeFeed[T]) ErrorHistory() []error {
	return f.history.all()
}

// SourceErrors reports which sources failed during the last processing
// attempt, or nil after a successful apply. Use it to tell a bad override
// layer apart from a bad base layer.
func (f *CompositeFeed[T]) SourceErrors() []SourceError {
	ptr := f.sourceErrors.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// Run begins watching all sources. It blocks until every source has
// emitted its initial snapshot and the first merge is processed (success
// or failure), then continues watching asynchronously.
//
// If the initial merge fails, Run returns the error but keeps watching in
// the background for valid updates.
//
// Run can only be called once. Subsequent calls return ErrFeedStarted.
func (f *CompositeFeed[T]) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrFeedStarted
	}
	f.started = true
	f.mu.Unlock()

	if len(f.sources) == 0 {
		return fmt.Errorf("ripple: composite feed requires at least one source")
	}

	capitan.Emit(ctx, FeedStarted,
		KeyDebounce.Field(f.debounce),
		KeySources.Field(len(f.sources)),
	)

	f.sourceChans = make([]<-chan []byte, len(f.sources))
	for i, src := range f.sources {
		ch, err := src.Watch(ctx)
		if err != nil {
			return fmt.Errorf("ripple: start source %d: %w", i, err)
		}
		f.sourceChans[i] = ch
	}

	// The startup deadline covers all sources together.
	startupCtx := ctx
	if f.startupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = f.clock.WithTimeout(ctx, f.startupTimeout)
		defer cancel()
	}

	for i, ch := range f.sourceChans {
		select {
		case <-startupCtx.Done():
			if f.startupTimeout > 0 && startupCtx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("ripple: startup timeout: source %d did not emit initial value within %v", i, f.startupTimeout)
			}
			return startupCtx.Err()
		case raw, ok := <-ch:
			if !ok {
				return fmt.Errorf("ripple: source %d: %w", i, ErrSourceClosed)
			}
			f.latest[i] = raw
		}
	}

	capitan.Emit(ctx, FeedChangeReceived)
	if f.metrics != nil {
		f.metrics.OnChangeReceived()
	}

	initialErr := f.process(ctx)

	if f.syncMode {
		return initialErr
	}

	go f.watch(ctx)

	return initialErr
}

// Step polls every source for a newer snapshot and, if any arrived,
// re-runs the merge. This is only available in sync mode and is used for
// deterministic testing. Returns false when nothing changed.
func (f *CompositeFeed[T]) Step(ctx context.Context) bool {
	if !f.syncMode {
		return false
	}

	changed := false
	for i, ch := range f.sourceChans {
		select {
		case raw, ok := <-ch:
			if !ok {
				continue
			}
			f.latestMu.Lock()
			f.latest[i] = raw
			f.latestMu.Unlock()
			changed = true
		default:
		}
	}

	if !changed {
		return false
	}

	capitan.Emit(ctx, FeedChangeReceived)
	if f.metrics != nil {
		f.metrics.OnChangeReceived()
	}
	_ = f.process(ctx) //nolint:errcheck // Errors stored via setError
	return true
}

// process decodes and validates every source, merges, and applies.
func (f *CompositeFeed[T]) process(ctx context.Context) error {
	start := f.clock.Now()

	f.latestMu.Lock()
	raws := make([][]byte, len(f.latest))
	copy(raws, f.latest)
	f.latestMu.Unlock()

	results := make([]T, len(raws))
	for i, raw := range raws {
		var result T
		if err := f.codec.Unmarshal(raw, &result); err != nil {
			f.setError(err)
			f.sourceErrors.Store(&[]SourceError{{Index: i, Err: err}})
			capitan.Emit(ctx, FeedDecodeFailed,
				KeyError.Field(err.Error()),
				KeySource.Field(i),
				KeyContentType.Field(f.codec.ContentType()),
			)
			if f.metrics != nil {
				f.metrics.OnProcessFailure("decode", f.clock.Since(start))
			}
			return fmt.Errorf("ripple: decode source %d: %w", i, err)
		}

		if err := f.validateResult(result); err != nil {
			f.setError(err)
			f.sourceErrors.Store(&[]SourceError{{Index: i, Err: err}})
			capitan.Emit(ctx, FeedValidationFailed,
				KeyError.Field(err.Error()),
				KeySource.Field(i),
			)
			if f.metrics != nil {
				f.metrics.OnProcessFailure("validate", f.clock.Since(start))
			}
			return fmt.Errorf("ripple: validate source %d: %w", i, err)
		}

		results[i] = result
	}

	var prevDecoded []T
	if ptr := f.lastDecoded.Load(); ptr != nil {
		prevDecoded = *ptr
	}

	merged, err := f.reduce(ctx, prevDecoded, results)
	if err != nil {
		f.setError(err)
		capitan.Emit(ctx, FeedReduceFailed,
			KeyError.Field(err.Error()),
		)
		if f.metrics != nil {
			f.metrics.OnProcessFailure("reduce", f.clock.Since(start))
		}
		return fmt.Errorf("ripple: reduce failed: %w", err)
	}

	var prev T
	if ptr := f.current.Load(); ptr != nil {
		prev = *ptr
	}

	change := &Change[T]{Previous: prev, Current: merged}
	processed, err := f.pipeline.Process(ctx, change)
	if err != nil {
		f.setError(err)
		capitan.Emit(ctx, FeedApplyFailed,
			KeyError.Field(err.Error()),
		)
		if f.metrics != nil {
			f.metrics.OnProcessFailure("apply", f.clock.Since(start))
		}
		return fmt.Errorf("ripple: apply failed: %w", err)
	}
	if !processed.applied {
		// A filter dropped the change. The previous merge stays current.
		return nil
	}

	f.current.Store(&processed.Current)
	f.lastDecoded.Store(&results)
	f.lastError.Store(nil)
	f.history.clear()
	f.sourceErrors.Store(nil)
	capitan.Emit(ctx, FeedApplySucceeded)
	if f.metrics != nil {
		f.metrics.OnProcessSuccess(f.clock.Since(start))
	}

	return nil
}

func (f *CompositeFeed[T]) validateResult(result T) error {
	if err := result.Validate(); err != nil {
		return err
	}
	if f.tagValidate {
		if err := validate.Struct(result); err != nil {
			return err
		}
	}
	return nil
}

// setError stores an error atomically and adds it to the error history.
func (f *CompositeFeed[T]) setError(err error) {
	e := err
	f.lastError.Store(&e)
	f.history.push(err)
}

// watch fans all sources into a single debounced processing loop.
func (f *CompositeFeed[T]) watch(ctx context.Context) {
	defer func() {
		if err := f.LastError(); err != nil {
			capitan.Emit(ctx, FeedStopped,
				KeyError.Field(err.Error()),
			)
		} else {
			capitan.Emit(ctx, FeedStopped)
		}
		if f.onStop != nil {
			f.onStop(f.LastError())
		}
	}()

	// Source goroutines record the newest bytes and signal the loop below.
	changed := make(chan int, len(f.sourceChans))

	var wg sync.WaitGroup
	wg.Add(len(f.sourceChans))
	for i, ch := range f.sourceChans {
		go func(idx int, ch <-chan []byte) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case raw, ok := <-ch:
					if !ok {
						return
					}
					f.latestMu.Lock()
					f.latest[idx] = raw
					f.latestMu.Unlock()
					select {
					case changed <- idx:
					case <-ctx.Done():
						return
					}
				}
			}
		}(i, ch)
	}

	go func() {
		wg.Wait()
		close(changed)
	}()

	var (
		timer      clockz.Timer
		hasPending bool
	)

	for {
		var timerC <-chan time.Time
		if timer != nil {
			timerC = timer.C()
		}

		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case _, ok := <-changed:
			if !ok {
				// All sources closed. Apply any pending merge.
				if hasPending {
					_ = f.process(ctx) //nolint:errcheck // Errors stored via setError
				}
				return
			}

			capitan.Emit(ctx, FeedChangeReceived)
			if f.metrics != nil {
				f.metrics.OnChangeReceived()
			}
			hasPending = true

			// Reset or start debounce timer
			if timer == nil {
				timer = f.clock.NewTimer(f.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C():
					default:
					}
				}
				timer.Reset(f.debounce)
			}

		case <-timerC:
			if hasPending {
				_ = f.process(ctx) //nolint:errcheck // Errors stored via setError
				hasPending = false
			}
		}
	}
}
