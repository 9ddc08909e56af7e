/*
Package ripple provides change-signaling state containers for view-model and
host-driven code: observable records, mutation-aware collections, debounced
values, dependency-tracked async queries, and navigation guards.

Every container is bound to a Signal. Mutating a container through its API
bumps the signal's generation and synchronously notifies subscribers, so a
host can re-evaluate whatever depends on the container without polling or
diffing. Containers never signal for writes that change nothing.

# Observable Records

Store wraps a Record (a named map type) and observes it recursively. Nested
Record values come back as child stores sharing the root's signal; anything
else is stored and returned as-is:

	state := ripple.NewStore(ripple.Record{
	    "name": "ada",
	    "address": ripple.Record{"city": "london"},
	}, signal)

	state.Set("name", "grace")        // signals
	state.Set("name", "grace")        // no-op, same value

	v, _ := state.Get("address")
	addr := v.(*ripple.Store)         // child store, same signal
	addr.Set("city", "new york")      // signals through the root

Revoke tears the tree down. Afterwards the store passes reads and writes
straight through to the underlying record without signaling.

# Collections

Map, Set, and List mirror their plain counterparts but emit on every visible
mutation. Batch operations signal at most once:

	users := ripple.NewMap(nil, signal)
	users.SetMany(rows, func(u User) string { return u.ID })

	tags := ripple.NewSet([]string{"go"}, signal)
	tags.Toggle("draft")              // reports new membership

	queue := ripple.NewList([]int{1, 2, 3}, signal)
	queue.Splice(1, 1, 9, 9)          // JavaScript-style index handling

A collection can be attached to a redefinition callback and later replaced
wholesale with Reset, which builds a fresh instance on the same signal.

# Debounced Values

Debounced keeps an immediate value and a settled value that trails it by a
quiet period:

	search := ripple.NewDebounced("", 300*time.Millisecond, signal)
	search.Set("r")
	search.Set("ri")                  // timer restarts
	// 300ms later the settled value becomes "ri" and the signal fires

# Queries

Query runs an operation whenever its dependency list changes identity,
tracking waiting/resolved/rejected state. Stale completions from superseded
cycles are discarded:

	q := ripple.NewQuery(func() ripple.Operation[[]User] {
	    return func(ctx context.Context) ([]User, error) {
	        return fetchUsers(ctx)
	    }
	}, signal, ripple.WithQueryTimeout[[]User](5*time.Second))

	q.Reload(ctx, orgID, page)

# Feeds

Feed drives containers from an external source of raw bytes: watch, decode,
validate, apply, with debounced bursts and last-known-good retention on
failure:

	feed := ripple.NewFeed(ripple.NewFileSource("state.json"), applyFn).
	    Debounce(100 * time.Millisecond)
	err := feed.Run(ctx)

CompositeFeed merges several sources through a reducer before applying, for
layered state such as bundled defaults under remote overrides. Sources for
common backends (redis, postgres, kubernetes, consul, etcd, nats, zookeeper,
firestore) live in submodules under pkg/.

# Navigation Guards

Guard blocks route changes and page exits while unsaved changes exist,
letting same-route transitions and confirmed departures through.

The package is built on top of:
  - pipz: composable processing pipelines around query and feed operations
  - capitan: signal-based observability events
  - clockz: injectable clocks for deterministic time in tests
*/
package ripple
