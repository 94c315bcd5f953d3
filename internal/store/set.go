package store

import (
	"github.com/benbjohnson/immutable"

	"github.com/clsnc/TritiumDB/internal/expr"
)

// exprHasher adapts the precomputed expression hash to the persistent map's
// hasher interface.
type exprHasher struct{}

func (exprHasher) Hash(e expr.Expr) uint32 {
	h := e.Hash()
	return uint32(h ^ (h >> 32))
}

func (exprHasher) Equal(a, b expr.Expr) bool {
	return a.Equal(b)
}

var emptyExprSet = immutable.NewMap[expr.Expr, struct{}](exprHasher{})

// ExprSet is a persistent set of expressions. The zero value is the empty
// set; every mutation returns a new set.
type ExprSet struct {
	m *immutable.Map[expr.Expr, struct{}]
}

// EmptySet returns the empty expression set.
func EmptySet() ExprSet {
	return ExprSet{m: emptyExprSet}
}

func (s ExprSet) mp() *immutable.Map[expr.Expr, struct{}] {
	if s.m == nil {
		return emptyExprSet
	}
	return s.m
}

// Len returns the number of members.
func (s ExprSet) Len() int { return s.mp().Len() }

// IsEmpty reports whether the set has no members.
func (s ExprSet) IsEmpty() bool { return s.Len() == 0 }

// Has reports membership.
func (s ExprSet) Has(e expr.Expr) bool {
	_, ok := s.mp().Get(e)
	return ok
}

// Add returns the set with e as a member.
func (s ExprSet) Add(e expr.Expr) ExprSet {
	return ExprSet{m: s.mp().Set(e, struct{}{})}
}

// Remove returns the set without e.
func (s ExprSet) Remove(e expr.Expr) ExprSet {
	return ExprSet{m: s.mp().Delete(e)}
}

// Union returns the set of members of either set.
func (s ExprSet) Union(o ExprSet) ExprSet {
	// Merge the smaller into the larger.
	a, b := s, o
	if a.Len() < b.Len() {
		a, b = b, a
	}
	m := a.mp()
	itr := b.mp().Iterator()
	for !itr.Done() {
		e, _, _ := itr.Next()
		m = m.Set(e, struct{}{})
	}
	return ExprSet{m: m}
}

// Each calls fn for every member until fn returns false.
func (s ExprSet) Each(fn func(expr.Expr) bool) {
	itr := s.mp().Iterator()
	for !itr.Done() {
		e, _, _ := itr.Next()
		if !fn(e) {
			return
		}
	}
}

// Slice returns the members in iteration order.
func (s ExprSet) Slice() []expr.Expr {
	out := make([]expr.Expr, 0, s.Len())
	s.Each(func(e expr.Expr) bool {
		out = append(out, e)
		return true
	})
	return out
}
