package ripple

import "github.com/zoobzio/capitan"

// Field keys for ripple events.
var (
	// KeyState is the current state of a query.
	KeyState = capitan.NewStringKey("state")

	// KeyOldState is the previous state before a transition.
	KeyOldState = capitan.NewStringKey("old_state")

	// KeyNewState is the new state after a transition.
	KeyNewState = capitan.NewStringKey("new_state")

	// KeyError is the error message when an operation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyDebounce is the configured debounce duration.
	KeyDebounce = capitan.NewDurationKey("debounce")

	// KeySourceType is the type name of the source implementation.
	KeySourceType = capitan.NewStringKey("source_type")

	// KeySource is the index of the source an event concerns within a
	// composite feed.
	KeySource = capitan.NewIntKey("source")

	// KeySources is the number of sources a composite feed watches.
	KeySources = capitan.NewIntKey("sources")

	// KeyContentType is the codec's MIME type.
	KeyContentType = capitan.NewStringKey("content_type")

	// KeyKind is the collection kind an event concerns.
	KeyKind = capitan.NewStringKey("kind")

	// KeyContainer is the stable identity of a collection instance.
	KeyContainer = capitan.NewStringKey("container")

	// KeyDeps is the length of the dependency list that started a cycle.
	KeyDeps = capitan.NewIntKey("deps")

	// KeyRoute is the current route when a guard decides.
	KeyRoute = capitan.NewStringKey("route")

	// KeyTarget is the route a navigation is heading to.
	KeyTarget = capitan.NewStringKey("target")

	// KeyReason is why a guard decision went the way it did.
	KeyReason = capitan.NewStringKey("reason")
)
