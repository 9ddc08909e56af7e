package ripple

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/zoobzio/capitan"
	"github.com/zoobzio/clockz"
	"github.com/zoobzio/pipz"
)

// DefaultDebounce is the default quiet period for feed change coalescing.
const DefaultDebounce = 100 * time.Millisecond

// validate is the shared validator instance for struct tag validation.
var validate = validator.New()

// Feed lifecycle errors.
var (
	// ErrFeedStarted is returned by Run when the feed has already been
	// started.
	ErrFeedStarted = errors.New("ripple: feed already started")

	// ErrSourceClosed is returned by Run when the source closes before
	// emitting an initial snapshot.
	ErrSourceClosed = errors.New("ripple: source closed before emitting initial value")
)

// Change carries one snapshot through a feed's apply pipeline. Stages see
// both the previous and current values, so they can decide based on what
// changed.
type Change[T Validator] struct {
	// Previous is the last successfully applied snapshot. On initial load
	// it is the zero value of T.
	Previous T

	// Current is the newly decoded and validated snapshot. Pipeline stages
	// may modify it before it is stored.
	Current T

	// Raw contains the original bytes received from the source.
	Raw []byte

	// applied marks that the apply stage ran. Filtered-out changes come back
	// from the pipeline without it.
	applied bool
}

// Feed drives containers from an external source of raw state. Each
// emission is decoded with the codec, validated, and handed to the apply
// pipeline; the apply function typically writes into stores and
// collections, which do their own change signaling. When any stage fails
// the previous snapshot stays applied and the feed keeps watching.
//
// Bursts of emissions are coalesced: a change is applied only after the
// debounce quiet period passes without another one arriving.
//
// All methods are safe for concurrent use.
type Feed[T Validator] struct {
	source         Source
	pipeline       pipz.Chainable[*Change[T]]
	debounce       time.Duration
	startupTimeout time.Duration
	syncMode       bool
	tagValidate    bool
	clock          clockz.Clock
	codec          Codec
	metrics        MetricsProvider
	onStop         func(error)

	current   atomic.Pointer[T]
	lastError atomic.Pointer[error]
	history   *errorRing

	mu      sync.Mutex
	started bool

	// For sync mode: channel to receive changes
	changes <-chan []byte
}

// NewFeed creates a feed that watches a source for snapshots of type T.
//
// The source emits raw bytes when the state changes. Bytes are decoded to T
// using the configured codec, validated by calling T.Validate(), and on
// success the apply function is invoked with previous and current values.
//
// Pipeline options (WithFeed*) configure the processing pipeline. Instance
// configuration uses chainable methods before calling Run().
//
// Example:
//
//	feed := ripple.NewFeed[Board](
//	    ripple.NewFileSource("board.json"),
//	    func(ctx context.Context, prev, curr Board) error {
//	        return applyBoard(columns, cards, curr)
//	    },
//	).Debounce(200 * time.Millisecond)
func NewFeed[T Validator](
	source Source,
	apply func(ctx context.Context, prev, curr T) error,
	opts ...FeedOption[T],
) *Feed[T] {
	terminal := pipz.Effect(pipz.Name("apply"), func(ctx context.Context, change *Change[T]) error {
		if err := apply(ctx, change.Previous, change.Current); err != nil {
			return err
		}
		change.applied = true
		return nil
	})

	return &Feed[T]{
		source:   source,
		pipeline: buildFeedPipeline(terminal, opts),
		debounce: DefaultDebounce,
		clock:    clockz.RealClock,
		codec:    JSONCodec{},
		history:  newErrorRing(0),
	}
}

// -----------------------------------------------------------------------------
// Chainable Instance Configuration
// -----------------------------------------------------------------------------

// Debounce sets the quiet period for change coalescing. Emissions arriving
// within this duration collapse into a single apply of the newest bytes.
// Default: 100ms. Must be called before Run().
func (f *Feed[T]) Debounce(d time.Duration) *Feed[T] {
	f.debounce = d
	return f
}

// SyncMode enables synchronous processing for testing. In sync mode
// changes are processed immediately via Step(), without debouncing or
// goroutines, making tests deterministic. Must be called before Run().
func (f *Feed[T]) SyncMode() *Feed[T] {
	f.syncMode = true
	return f
}

// Clock sets a custom clock for time operations. Use this with
// clockz.FakeClock for deterministic debounce testing.
// Must be called before Run().
func (f *Feed[T]) Clock(clock clockz.Clock) *Feed[T] {
	f.clock = clock
	return f
}

// Codec sets the codec for decoding snapshots.
// Default: JSONCodec. Must be called before Run().
func (f *Feed[T]) Codec(codec Codec) *Feed[T] {
	f.codec = codec
	return f
}

// TagValidation enables struct tag validation via go-playground/validator.
// Decoded snapshots are checked against `validate` tags after T.Validate()
// passes. T must be a struct type. Must be called before Run().
//
// Example:
//
//	type Board struct {
//	    Name string `json:"name" validate:"required"`
//	    Slot int    `json:"slot" validate:"min=0,max=9"`
//	}
func (f *Feed[T]) TagValidation() *Feed[T] {
	f.tagValidate = true
	return f
}

// StartupTimeout sets the maximum duration to wait for the initial
// snapshot. If the source fails to emit within this duration, Run()
// returns an error. Default: no timeout. Must be called before Run().
func (f *Feed[T]) StartupTimeout(d time.Duration) *Feed[T] {
	f.startupTimeout = d
	return f
}

// Metrics sets a metrics provider for observability integration.
// Must be called before Run().
func (f *Feed[T]) Metrics(provider MetricsProvider) *Feed[T] {
	f.metrics = provider
	return f
}

// OnStop sets a callback invoked when the feed stops watching. It receives
// the last error, or nil if the final snapshot applied cleanly.
// Must be called before Run().
func (f *Feed[T]) OnStop(fn func(error)) *Feed[T] {
	f.onStop = fn
	return f
}

// ErrorHistorySize sets the number of recent errors to retain. Use 0
// (default) to retain only the most recent error via LastError().
// Must be called before Run().
func (f *Feed[T]) ErrorHistorySize(n int) *Feed[T] {
	f.history = newErrorRing(n)
	return f
}

// Current returns the most recently applied snapshot and true, or the zero
// value and false if nothing has been applied yet.
func (f *Feed[T]) Current() (T, bool) {
	ptr := f.current.Load()
	if ptr == nil {
		var zero T
		return zero, false
	}
	return *ptr, true
}

// LastError returns the last error encountered, or nil. It clears on the
// next successful apply.
func (f *Feed[T]) LastError() error {
	ptr := f.lastError.Load()
	if ptr == nil {
		return nil
	}
	return *ptr
}

// ErrorHistory returns the recent error history, oldest first. Returns nil
// unless enabled with ErrorHistorySize.
func (f *Feed[T]) ErrorHistory() []error {
	return f.history.all()
}

// Run begins watching the source. It blocks until the first snapshot is
// processed (success or failure), then continues watching asynchronously.
//
// If the initial snapshot fails, Run returns the error but keeps watching
// in the background for valid updates.
//
// In sync mode, Run only processes the initial value. Use Step() to
// process subsequent values manually.
//
// Run can only be called once. Subsequent calls return ErrFeedStarted.
func (f *Feed[T]) Run(ctx context.Context) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrFeedStarted
	}
	f.started = true
	f.mu.Unlock()

	capitan.Emit(ctx, FeedStarted,
		KeyDebounce.Field(f.debounce),
		KeySourceType.Field(fmt.Sprintf("%T", f.source)),
	)

	changes, err := f.source.Watch(ctx)
	if err != nil {
		return fmt.Errorf("ripple: start source: %w", err)
	}

	// Wait for the first value and process it synchronously
	var initialErr error

	startupCtx := ctx
	if f.startupTimeout > 0 {
		var cancel context.CancelFunc
		startupCtx, cancel = f.clock.WithTimeout(ctx, f.startupTimeout)
		defer cancel()
	}

	select {
	case <-startupCtx.Done():
		if f.startupTimeout > 0 && startupCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("ripple: startup timeout: source did not emit initial value within %v", f.startupTimeout)
		}
		return startupCtx.Err()
	case raw, ok := <-changes:
		if !ok {
			return ErrSourceClosed
		}
		capitan.Emit(ctx, FeedChangeReceived)
		if f.metrics != nil {
			f.metrics.OnChangeReceived()
		}
		initialErr = f.process(ctx, raw)
	}

	if f.syncMode {
		// In sync mode, store channel for manual processing
		f.changes = changes
		return initialErr
	}

	// Continue watching asynchronously
	go f.watch(ctx, changes)

	return initialErr
}

// Step reads and processes the next value from the source. This is only
// available in sync mode and is used for deterministic testing. Returns
// false if no value is available or the channel is closed.
func (f *Feed[T]) Step(ctx context.Context) bool {
	if !f.syncMode {
		return false
	}

	select {
	case raw, ok := <-f.changes:
		if !ok {
			return false
		}
		capitan.Emit(ctx, FeedChangeReceived)
		if f.metrics != nil {
			f.metrics.OnChangeReceived()
		}
		_ = f.process(ctx, raw) //nolint:errcheck // Errors stored via setError
		return true
	default:
		return false
	}
}

// process decodes, validates, and applies a single snapshot.
func (f *Feed[T]) process(ctx context.Context, raw []byte) error {
	start := f.clock.Now()

	// Decode
	var result T
	if err := f.codec.Unmarshal(raw, &result); err != nil {
		f.setError(err)
		capitan.Emit(ctx, FeedDecodeFailed,
			KeyError.Field(err.Error()),
			KeyContentType.Field(f.codec.ContentType()),
		)
		if f.metrics != nil {
			f.metrics.OnProcessFailure("decode", f.clock.Since(start))
		}
		return fmt.Errorf("ripple: decode failed: %w", err)
	}

	// Validate
	if err := result.Validate(); err != nil {
		f.setError(err)
		capitan.Emit(ctx, FeedValidationFailed,
			KeyError.Field(err.Error()),
		)
		if f.metrics != nil {
			f.metrics.OnProcessFailure("validate", f.clock.Since(start))
		}
		return fmt.Errorf("ripple: validation failed: %w", err)
	}
	if f.tagValidate {
		if err := validate.Struct(result); err != nil {
			f.setError(err)
			capitan.Emit(ctx, FeedValidationFailed,
				KeyError.Field(err.Error()),
			)
			if f.metrics != nil {
				f.metrics.OnProcessFailure("validate", f.clock.Since(start))
			}
			return fmt.Errorf("ripple: validation failed: %w", err)
		}
	}

	// Previous value for the pipeline (zero value if none)
	var prev T
	if ptr := f.current.Load(); ptr != nil {
		prev = *ptr
	}

	change := &Change[T]{Previous: prev, Current: result, Raw: raw}
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
		// A filter dropped the change. The previous snapshot stays current.
		return nil
	}

	// Success - store the snapshot and clear errors
	f.current.Store(&processed.Current)
	f.lastError.Store(nil)
	f.history.clear()
	capitan.Emit(ctx, FeedApplySucceeded)
	if f.metrics != nil {
		f.metrics.OnProcessSuccess(f.clock.Since(start))
	}

	return nil
}

// setError stores an error atomically and adds it to the error history.
func (f *Feed[T]) setError(err error) {
	e := err
	f.lastError.Store(&e)
	f.history.push(err)
}

// watch processes changes from the source channel with debouncing.
func (f *Feed[T]) watch(ctx context.Context, changes <-chan []byte) {
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

	var (
		timer      clockz.Timer
		pending    []byte
		hasPending bool
	)

	for {
		// Get timer channel or nil if no timer
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

		case raw, ok := <-changes:
			if !ok {
				// Channel closed, apply any pending change
				if hasPending {
					_ = f.process(ctx, pending) //nolint:errcheck // Errors stored via setError
				}
				return
			}

			capitan.Emit(ctx, FeedChangeReceived)
			if f.metrics != nil {
				f.metrics.OnChangeReceived()
			}
			pending = raw
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
				_ = f.process(ctx, pending) //nolint:errcheck // Errors stored via setError
				hasPending = false
			}
		}
	}
}
