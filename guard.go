package ripple

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/zoobzio/capitan"
)

// ErrNavigationBlocked is returned to the router when an armed guard
// refuses a navigation.
var ErrNavigationBlocked = errors.New("ripple: navigation blocked")

// DefaultUnsavedMessage is the exit prompt used unless Message overrides
// it.
const DefaultUnsavedMessage = "You have unsaved changes. Are you sure you want to leave?"

// Router is the navigation surface a guard hooks into.
type Router interface {
	// Current returns the active route path.
	Current() string

	// OnBeforeNavigate registers fn to run before each navigation. A
	// non-nil error from fn aborts the navigation. The returned function
	// removes the registration.
	OnBeforeNavigate(fn func(target string) error) (remove func())
}

// ExitHook is the page-exit surface a guard hooks into.
type ExitHook interface {
	// OnExit registers fn to run when the page or process is about to
	// exit. A non-empty return prompts the user with that message before
	// leaving. The returned function removes the registration.
	OnExit(fn func() string) (remove func())
}

// Guard blocks navigation and exit while unsaved changes exist. Arming it
// registers hooks on the router and exit surfaces; disarming removes them,
// so a disarmed guard costs nothing per navigation.
//
// While armed, a navigation to the same route (parameter segments
// wildcarded) passes, a navigation approved by the confirmer passes, and
// everything else is refused with ErrNavigationBlocked.
//
// All methods are safe for concurrent use.
type Guard struct {
	router  Router
	exit    ExitHook
	confirm func(target string) bool
	message string

	mu         sync.Mutex
	ctx        context.Context
	unsaved    bool
	closed     bool
	removeNav  func()
	removeExit func()
}

// NewGuard creates a disarmed guard. Either surface may be nil when only
// the other applies.
func NewGuard(router Router, exit ExitHook) *Guard {
	return &Guard{
		router:  router,
		exit:    exit,
		message: DefaultUnsavedMessage,
	}
}

// Confirm sets the callback consulted when an armed guard meets a
// cross-route navigation. Returning true lets the navigation through.
// Without a confirmer every cross-route navigation is refused while armed.
// Must be called before the first SetUnsaved.
func (g *Guard) Confirm(fn func(target string) bool) *Guard {
	g.confirm = fn
	return g
}

// Message sets the exit prompt.
// Must be called before the first SetUnsaved.
func (g *Guard) Message(message string) *Guard {
	g.message = message
	return g
}

// SetUnsaved arms or disarms the guard. Arming registers the navigation
// and exit hooks; disarming removes them. Redundant calls do nothing. The
// context is retained for events emitted by later navigation decisions.
func (g *Guard) SetUnsaved(ctx context.Context, unsaved bool) {
	g.mu.Lock()
	if g.closed || unsaved == g.unsaved {
		g.mu.Unlock()
		return
	}
	g.unsaved = unsaved
	if unsaved {
		g.ctx = ctx
		if g.router != nil {
			g.removeNav = g.router.OnBeforeNavigate(g.beforeNavigate)
		}
		if g.exit != nil {
			g.removeExit = g.exit.OnExit(g.exitMessage)
		}
	} else {
		g.detachLocked()
	}
	g.mu.Unlock()

	if unsaved {
		capitan.Emit(ctx, GuardArmed)
	} else {
		capitan.Emit(ctx, GuardDisarmed)
	}
}

// Unsaved reports whether the guard is armed.
func (g *Guard) Unsaved() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.unsaved
}

// detachLocked removes hook registrations. Callers hold mu.
func (g *Guard) detachLocked() {
	if g.removeNav != nil {
		g.removeNav()
		g.removeNav = nil
	}
	if g.removeExit != nil {
		g.removeExit()
		g.removeExit = nil
	}
	g.ctx = nil
}

// Close disarms the guard and prevents further arming. Closing twice is
// harmless.
func (g *Guard) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.unsaved = false
	g.detachLocked()
	g.mu.Unlock()
}

// beforeNavigate decides a navigation while armed. The hook can fire after
// a disarm the router hasn't observed yet, so the armed state is
// re-checked here.
func (g *Guard) beforeNavigate(target string) error {
	g.mu.Lock()
	armed := g.unsaved && !g.closed
	ctx := g.ctx
	confirm := g.confirm
	router := g.router
	g.mu.Unlock()

	if !armed {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	current := router.Current()
	if SameRoute(current, target) {
		capitan.Emit(ctx, NavigationAllowed,
			KeyRoute.Field(current),
			KeyTarget.Field(target),
			KeyReason.Field("same-route"),
		)
		return nil
	}
	if confirm != nil && confirm(target) {
		capitan.Emit(ctx, NavigationAllowed,
			KeyRoute.Field(current),
			KeyTarget.Field(target),
			KeyReason.Field("confirmed"),
		)
		return nil
	}
	capitan.Emit(ctx, NavigationBlocked,
		KeyRoute.Field(current),
		KeyTarget.Field(target),
	)
	return ErrNavigationBlocked
}

// exitMessage supplies the exit prompt while armed.
func (g *Guard) exitMessage() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.unsaved || g.closed {
		return ""
	}
	return g.message
}

// SameRoute reports whether two route paths address the same page. Paths
// compare segment by segment; a [bracketed] parameter segment on either
// side matches any value in that position. Query strings and fragments are
// ignored. Paths with different segment counts are never the same.
func SameRoute(a, b string) bool {
	as := routeSegments(a)
	bs := routeSegments(b)
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if as[i] == bs[i] {
			continue
		}
		if isParam(as[i]) || isParam(bs[i]) {
			continue
		}
		return false
	}
	return true
}

// routeSegments splits a path into segments, dropping the query string,
// fragment, and surrounding slashes.
func routeSegments(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

// isParam reports whether a segment is a [bracketed] route parameter.
func isParam(segment string) bool {
	return len(segment) >= 2 && segment[0] == '[' && segment[len(segment)-1] == ']'
}
