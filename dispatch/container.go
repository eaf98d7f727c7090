/*
Package dispatch owns the single mutable State reference.

PURPOSE:
  The Container is the process-wide holder of the current ledger State and
  the only place it is ever replaced. Dispatch discipline is synchronous
  and strictly ordered: one action runs the reducer to completion before
  the next is applied, so there is never an in-flight mutation to race
  with. The reducer itself is pure; all the locking lives here, around the
  one shared reference.

SWAP SEMANTICS:
  The old State value is discarded only after the new value is fully
  computed. Readers holding an earlier Snapshot keep a consistent, frozen
  view - the reducer's copy-on-write guarantees their slices are never
  grown under them.

AUDIT SINK:
  Audit entries are produced by the reducer as part of the State itself.
  The container additionally forwards each transition's NEW entries to an
  optional sink (e.g. the sqlite archive), outside the lock-free reader
  path but inside dispatch order.

SEE ALSO:
  - ledger/reducer.go: the transition function this drives
  - store/sqlite: a persistence collaborator fed via the audit sink
*/
package dispatch

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/warp/freight-ledger/ledger"
)

// AuditSink receives the audit entries a single transition produced, in
// order, after the swap. Implementations must not call back into the
// container.
type AuditSink func(entries []ledger.AuditLog)

// Container holds the current State and applies actions in dispatch order.
type Container struct {
	mu      sync.RWMutex
	state   ledger.State
	reducer ledger.Reducer
	clock   func() time.Time
	log     zerolog.Logger
	sinks   []AuditSink
}

// Option configures a Container.
type Option func(*Container)

// WithReducer replaces the default reducer configuration.
func WithReducer(r ledger.Reducer) Option {
	return func(c *Container) { c.reducer = r }
}

// WithClock injects the time source. Tests pass a fixed clock; production
// uses time.Now.
func WithClock(clock func() time.Time) Option {
	return func(c *Container) { c.clock = clock }
}

// WithLogger sets the structured logger for dispatch events.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Container) { c.log = log }
}

// WithAuditSink registers a sink for newly produced audit entries.
func WithAuditSink(sink AuditSink) Option {
	return func(c *Container) { c.sinks = append(c.sinks, sink) }
}

// New creates a container around an initial State.
func New(initial ledger.State, opts ...Option) *Container {
	c := &Container{
		state: initial,
		clock: time.Now,
		log:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dispatch applies one action and returns the resulting snapshot.
// Actions are serialized: at most one reducer invocation is in flight.
func (c *Container) Dispatch(a ledger.Action) ledger.State {
	c.mu.Lock()
	start := c.clock()
	prev := c.state
	next := c.reducer.Reduce(prev, a, start)
	c.state = next

	// Audit entries are append-only, so the transition's output is exactly
	// the tail beyond the previous length. Sinks run under the dispatch
	// lock so they observe batches in dispatch order.
	if produced := next.AuditLogs[len(prev.AuditLogs):]; len(produced) > 0 {
		for _, sink := range c.sinks {
			sink(produced)
		}
	}
	c.mu.Unlock()

	c.log.Debug().
		Str("action", a.Name()).
		Int("audit_entries", len(next.AuditLogs)-len(prev.AuditLogs)).
		Int("notifications", len(next.Notifications)-len(prev.Notifications)).
		Msg("action dispatched")

	return next
}

// Snapshot returns the current State. The returned value is safe to read
// concurrently with dispatches; callers must treat it as immutable.
func (c *Container) Snapshot() ledger.State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}
