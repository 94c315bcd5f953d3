package reactor

import (
	"github.com/clsnc/TritiumDB/internal/expr"
	"github.com/clsnc/TritiumDB/internal/store"
)

// pendingSet coalesces invalidated expressions between flushes. Insertion
// order is preserved so delivery is reproducible, though callers must not
// rely on any particular order.
type pendingSet struct {
	order []expr.Expr
	seen  map[string]struct{}
}

func newPendingSet() *pendingSet {
	return &pendingSet{seen: make(map[string]struct{})}
}

// Add records an expression, coalescing duplicates. Reports whether the
// expression was newly added.
func (p *pendingSet) Add(e expr.Expr) bool {
	digest := e.Digest()
	if _, dup := p.seen[digest]; dup {
		return false
	}
	p.seen[digest] = struct{}{}
	p.order = append(p.order, e)
	return true
}

// AddAll records every member of an affected set.
func (p *pendingSet) AddAll(set store.ExprSet) {
	set.Each(func(e expr.Expr) bool {
		p.Add(e)
		return true
	})
}

// Drain returns the coalesced batch and resets the set.
func (p *pendingSet) Drain() []expr.Expr {
	batch := p.order
	p.order = nil
	p.seen = make(map[string]struct{})
	return batch
}

// Len returns the number of coalesced expressions.
func (p *pendingSet) Len() int {
	return len(p.order)
}
