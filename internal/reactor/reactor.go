package reactor

import (
	"log/slog"
	"sync"

	"github.com/clsnc/TritiumDB/internal/engine"
	"github.com/clsnc/TritiumDB/internal/expr"
	"github.com/clsnc/TritiumDB/internal/store"
)

// Callback is an arity-zero side-effectful subscriber procedure.
type Callback func()

// Unsubscribe detaches exactly the subscription that returned it.
// Calling it more than once is a no-op.
type Unsubscribe func()

// Option configures a Reactor.
type Option func(*Reactor)

// WithMaxCascadeDepth sets the cascade depth quota applied to writes.
func WithMaxCascadeDepth(n int) Option {
	return func(r *Reactor) { r.maxCascade = n }
}

// WithTokenGenerator sets the subscription token source. Tests use
// NewFixedGenerator for deterministic tokens.
func WithTokenGenerator(g TokenGenerator) Option {
	return func(r *Reactor) { r.tokens = g }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reactor) { r.log = l }
}

type subscription struct {
	token string
	cb    Callback
}

type bucket struct {
	e    expr.Expr
	subs []subscription
}

// Reactor holds the current store version, the subscriber table, and the
// pending-notification set.
//
// Thread-safety model:
//   - all operations are safe from any goroutine; the mutex serializes them
//     into the single logical engine task
//   - subscriber callbacks and future continuations run outside the lock
//     and may re-enter the reactor
type Reactor struct {
	mu         sync.Mutex
	db         *store.Store
	clock      *engine.Clock
	subs       map[string]*bucket
	pending    *pendingSet
	tokens     TokenGenerator
	maxCascade int
	log        *slog.Logger
}

// New creates a Reactor over an empty store.
func New(opts ...Option) *Reactor {
	r := &Reactor{
		db:         store.Empty(),
		clock:      engine.NewClock(),
		subs:       make(map[string]*bucket),
		pending:    newPendingSet(),
		tokens:     UUIDv7Generator{},
		maxCascade: store.DefaultMaxCascadeDepth,
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store returns the current store snapshot.
func (r *Reactor) Store() *store.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db
}

// Version returns the logical version of the current store.
func (r *Reactor) Version() int64 {
	return r.clock.Current()
}

// PendingLen returns the number of coalesced notifications awaiting flush.
func (r *Reactor) PendingLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pending.Len()
}

// Set writes a value at the normalized expression and queues the affected
// set for notification.
func (r *Reactor) Set(q any, value any) error {
	e, err := expr.Normalize(q)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked(e, store.Value(value), "set")
}

// SetError writes a thrown cell at the normalized expression.
func (r *Reactor) SetError(q any, cause error) error {
	e, err := expr.Normalize(q)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.writeLocked(e, store.Thrown(cause), "set-error")
}

// Modify writes f applied to the current value of the expression. Resolving
// the current value may evaluate.
func (r *Reactor) Modify(q any, f func(any) any) error {
	e, err := expr.Normalize(q)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	tx := r.beginLocked()
	if err := tx.Modify(e, f); err != nil {
		return err
	}
	r.commitLocked(tx.Store(), tx.Affected(), "modify", e)
	return nil
}

// Get resolves the normalized expression against the current store and
// publishes the warmed cache.
func (r *Reactor) Get(q any) (any, error) {
	e, err := expr.Normalize(q)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evalLocked(e)
}

// Subscribe registers cb for notifications about the normalized expression.
// The expression is resolved once to seed its dependency edges; the outcome
// of that read, value or error, is deliberately discarded.
func (r *Reactor) Subscribe(q any, cb Callback) (Unsubscribe, error) {
	e, err := expr.Normalize(q)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = r.evalLocked(e)
	return r.subscribeLocked(e, cb), nil
}

// Flush delivers the coalesced pending notifications. Each subscription is
// invoked at most once per flush; delivery order is unspecified. Callback
// panics are logged and do not affect the remaining deliveries.
func (r *Reactor) Flush() {
	r.mu.Lock()
	batch := r.pending.Drain()
	var deliveries []subscription
	delivered := make(map[string]struct{})
	for _, e := range batch {
		b := r.subs[e.Digest()]
		if b == nil {
			continue
		}
		for _, sub := range b.subs {
			if _, dup := delivered[sub.token]; dup {
				continue
			}
			delivered[sub.token] = struct{}{}
			deliveries = append(deliveries, sub)
		}
	}
	r.mu.Unlock()

	if len(batch) > 0 {
		r.log.Debug("flush", "invalidated", len(batch), "deliveries", len(deliveries))
	}
	for _, sub := range deliveries {
		r.deliver(sub)
	}
}

func (r *Reactor) deliver(sub subscription) {
	defer func() {
		if p := recover(); p != nil {
			// Log and continue: one failing subscriber must not corrupt
			// delivery for the rest.
			r.log.Error("subscriber callback panicked", "token", sub.token, "panic", p)
		}
	}()
	sub.cb()
}

// beginLocked opens an evaluation transaction against the current store.
func (r *Reactor) beginLocked() *engine.Tx {
	return engine.Begin(r.db, engine.WithMaxCascadeDepth(r.maxCascade))
}

// evalLocked resolves e, publishes the warmed working store, and queues any
// affected sets produced by explicit writes during evaluation.
func (r *Reactor) evalLocked(e expr.Expr) (any, error) {
	tx := r.beginLocked()
	v, err := tx.Get(e)
	r.db = tx.Store()
	r.pending.AddAll(tx.Affected())
	return v, err
}

// writeLocked applies an invalidating write and commits it.
func (r *Reactor) writeLocked(e expr.Expr, cell store.Result, op string) error {
	st, affected, err := r.db.Write(e, cell, r.maxCascade)
	if err != nil {
		return err
	}
	r.commitLocked(st, affected, op, e)
	return nil
}

// commitLocked publishes a new store version and queues its affected set.
func (r *Reactor) commitLocked(st *store.Store, affected store.ExprSet, op string, e expr.Expr) {
	r.db = st
	r.pending.AddAll(affected)
	version := r.clock.Next()
	r.log.Debug("store committed",
		"op", op,
		"expr", e.String(),
		"affected", affected.Len(),
		"version", version,
	)
}

// subscribeLocked registers a callback without seeding. Callers are
// responsible for having resolved e at least once so its edges exist.
func (r *Reactor) subscribeLocked(e expr.Expr, cb Callback) Unsubscribe {
	digest := e.Digest()
	b := r.subs[digest]
	if b == nil {
		b = &bucket{e: e}
		r.subs[digest] = b
	}
	token := r.tokens.Generate()
	b.subs = append(b.subs, subscription{token: token, cb: cb})

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			b := r.subs[digest]
			if b == nil {
				return
			}
			kept := b.subs[:0]
			for _, sub := range b.subs {
				if sub.token != token {
					kept = append(kept, sub)
				}
			}
			b.subs = kept
			if len(b.subs) == 0 {
				delete(r.subs, digest)
			}
		})
	}
}
