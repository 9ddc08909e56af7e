package ripple

import "github.com/zoobzio/capitan"

// Query lifecycle signals.
var (
	// QueryStarted is emitted when a query cycle begins.
	QueryStarted = capitan.NewSignal(
		"ripple.query.started",
		"Query cycle started",
	)

	// QuerySkipped is emitted when the factory declines a cycle by
	// returning nil.
	QuerySkipped = capitan.NewSignal(
		"ripple.query.skipped",
		"Query cycle skipped by factory",
	)

	// QueryResolved is emitted when a cycle commits a result.
	QueryResolved = capitan.NewSignal(
		"ripple.query.resolved",
		"Query cycle committed a result",
	)

	// QueryRejected is emitted when a cycle commits an error.
	QueryRejected = capitan.NewSignal(
		"ripple.query.rejected",
		"Query cycle committed an error",
	)

	// QuerySuperseded is emitted when a completion arrives for a cycle
	// that is no longer current and is discarded.
	QuerySuperseded = capitan.NewSignal(
		"ripple.query.superseded",
		"Stale query completion discarded",
	)

	// QueryStateChanged is emitted when a query transitions between states.
	QueryStateChanged = capitan.NewSignal(
		"ripple.query.state.changed",
		"Query state transition",
	)
)

// Feed lifecycle signals.
var (
	// FeedStarted is emitted when a feed begins watching its source.
	FeedStarted = capitan.NewSignal(
		"ripple.feed.started",
		"Feed watching started",
	)

	// FeedStopped is emitted when a feed stops watching.
	FeedStopped = capitan.NewSignal(
		"ripple.feed.stopped",
		"Feed watching stopped",
	)

	// FeedChangeReceived is emitted when raw data is received from the source.
	FeedChangeReceived = capitan.NewSignal(
		"ripple.feed.change.received",
		"Raw change received from source",
	)

	// FeedDecodeFailed is emitted when a snapshot fails to decode.
	FeedDecodeFailed = capitan.NewSignal(
		"ripple.feed.decode.failed",
		"Snapshot decoding failed",
	)

	// FeedValidationFailed is emitted when a decoded snapshot fails validation.
	FeedValidationFailed = capitan.NewSignal(
		"ripple.feed.validation.failed",
		"Snapshot validation failed",
	)

	// FeedReduceFailed is emitted when a composite feed's reducer fails to
	// merge its source snapshots.
	FeedReduceFailed = capitan.NewSignal(
		"ripple.feed.reduce.failed",
		"Snapshot merge failed",
	)

	// FeedApplyFailed is emitted when the apply pipeline fails.
	FeedApplyFailed = capitan.NewSignal(
		"ripple.feed.apply.failed",
		"Apply pipeline failed",
	)

	// FeedApplySucceeded is emitted when a snapshot is successfully applied.
	FeedApplySucceeded = capitan.NewSignal(
		"ripple.feed.apply.succeeded",
		"Snapshot applied successfully",
	)
)

// Collection signals.
var (
	// CollectionReset is emitted when a collection instance is replaced
	// through Reset.
	CollectionReset = capitan.NewSignal(
		"ripple.collection.reset",
		"Collection instance replaced",
	)
)

// Guard signals.
var (
	// GuardArmed is emitted when unsaved changes arm a navigation guard.
	GuardArmed = capitan.NewSignal(
		"ripple.guard.armed",
		"Navigation guard armed",
	)

	// GuardDisarmed is emitted when a navigation guard stands down.
	GuardDisarmed = capitan.NewSignal(
		"ripple.guard.disarmed",
		"Navigation guard disarmed",
	)

	// NavigationAllowed is emitted when an armed guard lets a navigation
	// through.
	NavigationAllowed = capitan.NewSignal(
		"ripple.guard.navigation.allowed",
		"Navigation allowed through armed guard",
	)

	// NavigationBlocked is emitted when an armed guard blocks a navigation.
	NavigationBlocked = capitan.NewSignal(
		"ripple.guard.navigation.blocked",
		"Navigation blocked by armed guard",
	)
)
