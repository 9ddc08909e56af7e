package ripple

import (
	"context"
	"time"

	"github.com/zoobzio/pipz"
)

// QueryOption configures the processing pipeline around a query's
// operation. Pipeline options wrap the operation with middleware for
// timeouts, error observation, and custom stages.
//
// Instance configuration (persist, clock, metrics, error history) is
// handled via chainable methods on the Query before the first Reload.
type QueryOption[T any] func(pipz.Chainable[*Attempt[T]]) pipz.Chainable[*Attempt[T]]

// FeedOption configures the processing pipeline around a feed's apply
// stage. Pipeline options wrap the stage with filtering, timeouts, error
// observation, and custom stages.
//
// Instance configuration (debounce, codec, sync mode, etc.) is handled via
// chainable methods on the Feed before Run.
type FeedOption[T Validator] func(pipz.Chainable[*Change[T]]) pipz.Chainable[*Change[T]]

// buildQueryPipeline wraps a terminal with pipeline options.
func buildQueryPipeline[T any](terminal pipz.Chainable[*Attempt[T]], opts []QueryOption[T]) pipz.Chainable[*Attempt[T]] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// buildFeedPipeline wraps a terminal with pipeline options.
func buildFeedPipeline[T Validator](terminal pipz.Chainable[*Change[T]], opts []FeedOption[T]) pipz.Chainable[*Change[T]] {
	pipeline := terminal
	for _, opt := range opts {
		pipeline = opt(pipeline)
	}
	return pipeline
}

// -----------------------------------------------------------------------------
// Query Pipeline Options
// -----------------------------------------------------------------------------

// WithQueryTimeout wraps the operation with a deadline. A cycle that takes
// longer commits a timeout error. There is deliberately no retry
// counterpart: a query re-runs only when its dependencies change or
// Invalidate is called.
func WithQueryTimeout[T any](d time.Duration) QueryOption[T] {
	return func(p pipz.Chainable[*Attempt[T]]) pipz.Chainable[*Attempt[T]] {
		return pipz.NewTimeout("timeout", p, d)
	}
}

// WithQueryErrorHandler adds error observation to the pipeline. Errors are
// passed to the handler for logging, metrics, or alerting, but still
// propagate to rejection. Use this for observability, not recovery.
func WithQueryErrorHandler[T any](handler pipz.Chainable[*pipz.Error[*Attempt[T]]]) QueryOption[T] {
	return func(p pipz.Chainable[*Attempt[T]]) pipz.Chainable[*Attempt[T]] {
		return pipz.NewHandle("error-handler", p, handler)
	}
}

// WithQueryMiddleware wraps the pipeline with a sequence of processors.
// Processors execute in order, with the operation last.
//
// Use QueryEffect, QueryApply, and QueryTransform to create processors for
// common patterns, or provide custom pipz.Chainable implementations
// directly.
func WithQueryMiddleware[T any](processors ...pipz.Chainable[*Attempt[T]]) QueryOption[T] {
	return func(p pipz.Chainable[*Attempt[T]]) pipz.Chainable[*Attempt[T]] {
		all := make([]pipz.Chainable[*Attempt[T]], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence("middleware", all...)
	}
}

// QueryEffect creates a processor that performs a side effect. The attempt
// passes through unchanged. Use for logging, metrics, or notifications.
func QueryEffect[T any](name string, fn func(context.Context, *Attempt[T]) error) pipz.Chainable[*Attempt[T]] {
	return pipz.Effect(pipz.Name(name), fn)
}

// QueryApply creates a processor that can transform the attempt and fail.
func QueryApply[T any](name string, fn func(context.Context, *Attempt[T]) (*Attempt[T], error)) pipz.Chainable[*Attempt[T]] {
	return pipz.Apply(pipz.Name(name), fn)
}

// QueryTransform creates a processor that transforms the attempt and
// cannot fail.
func QueryTransform[T any](name string, fn func(context.Context, *Attempt[T]) *Attempt[T]) pipz.Chainable[*Attempt[T]] {
	return pipz.Transform(pipz.Name(name), fn)
}

// -----------------------------------------------------------------------------
// Feed Pipeline Options
// -----------------------------------------------------------------------------

// WithFeedFilter applies changes selectively. When the condition returns
// false the change is dropped without error and the previous value remains
// applied.
func WithFeedFilter[T Validator](condition func(context.Context, *Change[T]) bool) FeedOption[T] {
	return func(p pipz.Chainable[*Change[T]]) pipz.Chainable[*Change[T]] {
		return pipz.NewFilter("filter", condition, p)
	}
}

// WithFeedTimeout wraps the apply pipeline with a deadline.
func WithFeedTimeout[T Validator](d time.Duration) FeedOption[T] {
	return func(p pipz.Chainable[*Change[T]]) pipz.Chainable[*Change[T]] {
		return pipz.NewTimeout("timeout", p, d)
	}
}

// WithFeedErrorHandler adds error observation to the pipeline. Errors are
// passed to the handler but still propagate; the feed keeps its previous
// value either way.
func WithFeedErrorHandler[T Validator](handler pipz.Chainable[*pipz.Error[*Change[T]]]) FeedOption[T] {
	return func(p pipz.Chainable[*Change[T]]) pipz.Chainable[*Change[T]] {
		return pipz.NewHandle("error-handler", p, handler)
	}
}

// WithFeedMiddleware wraps the pipeline with a sequence of processors.
// Processors execute in order, with the apply stage last.
//
// Use FeedEffect, FeedApply, FeedTransform, and FeedEnrich to create
// processors for common patterns, or provide custom pipz.Chainable
// implementations directly.
func WithFeedMiddleware[T Validator](processors ...pipz.Chainable[*Change[T]]) FeedOption[T] {
	return func(p pipz.Chainable[*Change[T]]) pipz.Chainable[*Change[T]] {
		all := make([]pipz.Chainable[*Change[T]], 0, len(processors)+1)
		all = append(all, processors...)
		all = append(all, p)
		return pipz.NewSequence("middleware", all...)
	}
}

// FeedEffect creates a processor that performs a side effect. The change
// passes through unchanged.
func FeedEffect[T Validator](name string, fn func(context.Context, *Change[T]) error) pipz.Chainable[*Change[T]] {
	return pipz.Effect(pipz.Name(name), fn)
}

// FeedApply creates a processor that can transform the change and fail.
func FeedApply[T Validator](name string, fn func(context.Context, *Change[T]) (*Change[T], error)) pipz.Chainable[*Change[T]] {
	return pipz.Apply(pipz.Name(name), fn)
}

// FeedTransform creates a processor that transforms the change and cannot
// fail.
func FeedTransform[T Validator](name string, fn func(context.Context, *Change[T]) *Change[T]) pipz.Chainable[*Change[T]] {
	return pipz.Transform(pipz.Name(name), fn)
}

// FeedEnrich creates a processor that attempts optional enhancement. If
// the enrichment fails the change continues unmodified. Use for
// non-critical additions to the incoming snapshot.
func FeedEnrich[T Validator](name string, fn func(context.Context, *Change[T]) (*Change[T], error)) pipz.Chainable[*Change[T]] {
	return pipz.Enrich(pipz.Name(name), fn)
}
