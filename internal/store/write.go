package store

import (
	"fmt"

	"github.com/clsnc/TritiumDB/internal/expr"
)

// DefaultMaxCascadeDepth bounds transitive cascades. A self-triggering
// cascading predicate would otherwise write forever.
const DefaultMaxCascadeDepth = 1000

// writer applies an invalidating write and owns the shared cascade state:
// the affected accumulator, the current cascade attribution target, and the
// depth quota. The outermost write creates the writer; nested cascades
// contribute to it.
type writer struct {
	s        *Store
	affected ExprSet
	deepest  *expr.Expr
	depth    int
	maxDepth int
}

var _ expr.Writer = (*writer)(nil)

// Write applies an invalidating write of cell at e with the given cascade
// depth quota (<= 0 selects the default). It returns the new store and the
// affected set: the dependent closure of e plus e itself, unioned with the
// affected sets of every cascade consequence.
func (s *Store) Write(e expr.Expr, cell Result, maxCascade int) (*Store, ExprSet, error) {
	if maxCascade <= 0 {
		maxCascade = DefaultMaxCascadeDepth
	}
	w := &writer{s: s, affected: EmptySet(), maxDepth: maxCascade}
	if err := w.write(e, cell, nil); err != nil {
		return nil, EmptySet(), err
	}
	return w.s, w.affected, nil
}

// WriteDerivative is Write with an additional creator edge: the written
// expression is recorded as a dependent of creator, coupling its lifetime to
// the creator's next invalidation. The cascade attribution target starts at
// creator, matching an in-flight computation publishing derivatives.
func (s *Store) WriteDerivative(d expr.Expr, cell Result, creator expr.Expr, maxCascade int) (*Store, ExprSet, error) {
	if maxCascade <= 0 {
		maxCascade = DefaultMaxCascadeDepth
	}
	w := &writer{s: s, affected: EmptySet(), deepest: &creator, maxDepth: maxCascade}
	if err := w.write(d, cell, &creator); err != nil {
		return nil, EmptySet(), err
	}
	return w.s, w.affected, nil
}

// WithResult applies an invalidating write with the default cascade quota.
func (s *Store) WithResult(e expr.Expr, cell Result) (*Store, ExprSet, error) {
	return s.Write(e, cell, DefaultMaxCascadeDepth)
}

// With writes a value cell.
func (s *Store) With(e expr.Expr, value any) (*Store, ExprSet, error) {
	return s.WithResult(e, Value(value))
}

// WithError writes a thrown cell.
func (s *Store) WithError(e expr.Expr, err error) (*Store, ExprSet, error) {
	return s.WithResult(e, Thrown(err))
}

// write is the single write path: invalidate, insert, record the optional
// creator edge, cascade.
func (w *writer) write(e expr.Expr, cell Result, creator *expr.Expr) error {
	// Closure over the pre-write dependent index, before any deletion.
	aff := w.s.affectedClosure(e)

	st := w.s
	aff.Each(func(a expr.Expr) bool {
		st = st.evict(a)
		return true
	})
	st = st.WithCell(e, cell)
	if creator != nil {
		st = st.WithEdge(e, *creator)
	}
	w.s = st
	w.affected = w.affected.Union(aff)

	head, ok := e.Head().(*expr.Func)
	if !ok || !head.Cascading() || cell.IsThrown() {
		return nil
	}

	// Cascade protocol: consequences run against the already-updated store,
	// with derivative attribution redirected to the cascading write.
	if w.depth >= w.maxDepth {
		return NewCascadeDepthError(e, w.depth, w.maxDepth)
	}
	w.depth++
	prev := w.deepest
	cur := e
	w.deepest = &cur
	err := head.Cascade(w, e, cell.value)
	w.deepest = prev
	w.depth--
	if err != nil {
		return fmt.Errorf("cascade for %s: %w", e, err)
	}
	return nil
}

// Set lets a cascade setter write further expressions; their affected sets
// accumulate into the outer write's.
func (w *writer) Set(e expr.Expr, value any) error {
	return w.write(e, Value(value), nil)
}

// SetDerivative lets a cascade setter publish derivative entries attributed
// to the cascading write.
func (w *writer) SetDerivative(d expr.Expr, value any) error {
	if w.deepest == nil {
		return NewDerivativeMisuseError("SetDerivative")
	}
	return w.write(d, Value(value), w.deepest)
}
