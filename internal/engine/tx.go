package engine

import (
	"github.com/clsnc/TritiumDB/internal/expr"
	"github.com/clsnc/TritiumDB/internal/store"
)

// Tx is an evaluation transaction over a working store. It resolves
// expressions on demand, records dependency edges through Spy, detects
// recursion, and applies explicit writes whose affected sets accumulate for
// the caller to publish.
//
// A Tx is single-use and single-threaded: begin one against a store
// snapshot, run operations, then take Store() as the new version.
type Tx struct {
	s          *store.Store
	stack      []expr.Expr // in-flight computations, innermost last
	computing  map[string]struct{}
	affected   store.ExprSet
	maxCascade int
}

var _ expr.Evaluator = (*Tx)(nil)

// TxOption configures a transaction.
type TxOption func(*Tx)

// WithMaxCascadeDepth overrides the cascade depth quota applied to writes
// made through this transaction.
func WithMaxCascadeDepth(n int) TxOption {
	return func(tx *Tx) {
		tx.maxCascade = n
	}
}

// Begin opens a transaction against a store snapshot.
func Begin(s *store.Store, opts ...TxOption) *Tx {
	tx := &Tx{
		s:          s,
		computing:  make(map[string]struct{}),
		affected:   store.EmptySet(),
		maxCascade: store.DefaultMaxCascadeDepth,
	}
	for _, opt := range opts {
		opt(tx)
	}
	return tx
}

// Store returns the working store, including every cell and edge resolution
// has produced so far.
func (tx *Tx) Store() *store.Store {
	return tx.s
}

// Affected returns the union of the affected sets of all explicit writes
// applied through this transaction.
func (tx *Tx) Affected() store.ExprSet {
	return tx.affected
}

// Get resolves an expression without recording a dependency edge.
func (tx *Tx) Get(e expr.Expr) (any, error) {
	return tx.resolve(e, false)
}

// Spy resolves an expression and records it as a contributor of the
// innermost in-flight computation, if one exists.
func (tx *Tx) Spy(e expr.Expr) (any, error) {
	return tx.resolve(e, true)
}

// deepest returns the innermost in-flight computation, nil outside one.
func (tx *Tx) deepest() *expr.Expr {
	if len(tx.stack) == 0 {
		return nil
	}
	return &tx.stack[len(tx.stack)-1]
}

func (tx *Tx) resolve(e expr.Expr, spied bool) (any, error) {
	if d := tx.deepest(); spied && d != nil {
		tx.s = tx.s.WithEdge(*d, e)
	}

	if cell, ok := tx.s.Cached(e); ok {
		return cell.Unwrap()
	}

	if head, ok := e.Head().(*expr.Func); ok && head.Evaluable() {
		return tx.evaluate(e, head)
	}

	// Derivative revival: a derivative expression becomes available after
	// its creator runs. The creator's own outcome is deliberately ignored.
	revived := false
	for i := 0; i < e.Len(); i++ {
		if d, ok := e.Term(i).(*expr.DerivativeID); ok {
			if _, cached := tx.s.Cached(d.Creator()); !cached {
				_, _ = tx.resolve(d.Creator(), false)
				revived = true
			}
		}
	}
	if revived {
		if cell, ok := tx.s.Cached(e); ok {
			return cell.Unwrap()
		}
	}
	return nil, nil
}

func (tx *Tx) evaluate(e expr.Expr, head *expr.Func) (any, error) {
	digest := e.Digest()
	if _, inFlight := tx.computing[digest]; inFlight {
		return nil, store.NewRecursionError(e)
	}

	tx.computing[digest] = struct{}{}
	tx.stack = append(tx.stack, e)

	value, err := head.Compute(tx, e.Args()...)

	tx.stack = tx.stack[:len(tx.stack)-1]
	delete(tx.computing, digest)

	if err != nil && store.IsEngineMisuse(err) {
		// Never cached. Unwind the edges this partial evaluation recorded so
		// the uncached expression carries no contributor edges.
		tx.s = tx.s.DropContributors(e)
		return nil, err
	}

	var cell store.Result
	if err != nil {
		cell = store.Thrown(err)
	} else {
		cell = store.Value(value)
	}
	tx.s = tx.s.WithCell(e, cell)
	return cell.Unwrap()
}

// Set applies an invalidating write on the working store.
func (tx *Tx) Set(e expr.Expr, value any) error {
	return tx.write(e, store.Value(value))
}

// SetError applies an invalidating write of a thrown cell.
func (tx *Tx) SetError(e expr.Expr, err error) error {
	return tx.write(e, store.Thrown(err))
}

func (tx *Tx) write(e expr.Expr, cell store.Result) error {
	st, aff, err := tx.s.Write(e, cell, tx.maxCascade)
	if err != nil {
		return err
	}
	tx.s = st
	tx.affected = tx.affected.Union(aff)
	return nil
}

// Modify writes f applied to the current value of e. Resolving the current
// value may itself evaluate.
func (tx *Tx) Modify(e expr.Expr, f func(any) any) error {
	cur, err := tx.Get(e)
	if err != nil {
		return err
	}
	return tx.Set(e, f(cur))
}

// DerivativeID mints an id owned by the innermost in-flight computation.
func (tx *Tx) DerivativeID(key expr.Term) (*expr.DerivativeID, error) {
	d := tx.deepest()
	if d == nil {
		return nil, store.NewDerivativeMisuseError("DerivativeID")
	}
	return expr.NewDerivativeID(*d, key), nil
}

// SetDerivative writes a derivative expression and records it as a
// dependent of the innermost in-flight computation, so invalidating the
// creator invalidates every derivative it published.
func (tx *Tx) SetDerivative(d expr.Expr, value any) error {
	creator := tx.deepest()
	if creator == nil {
		return store.NewDerivativeMisuseError("SetDerivative")
	}
	st, aff, err := tx.s.WriteDerivative(d, store.Value(value), *creator, tx.maxCascade)
	if err != nil {
		return err
	}
	tx.s = st
	tx.affected = tx.affected.Union(aff)
	return nil
}
