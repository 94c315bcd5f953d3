package store

import (
	"fmt"

	"github.com/benbjohnson/immutable"

	"github.com/clsnc/TritiumDB/internal/expr"
)

// Store is the persistent expression store: the result cache plus the
// bidirectional dependency index. Purely data; evaluation lives in the
// engine package.
type Store struct {
	cache        *immutable.Map[expr.Expr, Result]
	contributors *immutable.Map[expr.Expr, ExprSet]
	dependents   *immutable.Map[expr.Expr, ExprSet]
}

var empty = &Store{
	cache:        immutable.NewMap[expr.Expr, Result](exprHasher{}),
	contributors: immutable.NewMap[expr.Expr, ExprSet](exprHasher{}),
	dependents:   immutable.NewMap[expr.Expr, ExprSet](exprHasher{}),
}

// Empty returns the empty store.
func Empty() *Store {
	return empty
}

// Cached returns the result cell for e, if present.
func (s *Store) Cached(e expr.Expr) (Result, bool) {
	return s.cache.Get(e)
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	return s.cache.Len()
}

// Contributors returns the expressions e consulted during its most recent
// evaluation. Empty for uncached expressions.
func (s *Store) Contributors(e expr.Expr) ExprSet {
	set, ok := s.contributors.Get(e)
	if !ok {
		return EmptySet()
	}
	return set
}

// Dependents returns the expressions whose most recent evaluation consulted
// e.
func (s *Store) Dependents(e expr.Expr) ExprSet {
	set, ok := s.dependents.Get(e)
	if !ok {
		return EmptySet()
	}
	return set
}

// WithCell inserts a result cell without invalidation. This is the
// evaluator's completion step: a freshly evaluated expression was
// necessarily uncached, so it has no stale dependents to evict, and a
// full invalidating write here would erase the derivative edges its
// computation just recorded.
func (s *Store) WithCell(e expr.Expr, cell Result) *Store {
	return &Store{
		cache:        s.cache.Set(e, cell),
		contributors: s.contributors,
		dependents:   s.dependents,
	}
}

// WithEdge records that from consulted to: to joins contributors[from] and
// from joins dependents[to].
func (s *Store) WithEdge(from, to expr.Expr) *Store {
	return &Store{
		cache:        s.cache,
		contributors: s.contributors.Set(from, s.Contributors(from).Add(to)),
		dependents:   s.dependents.Set(to, s.Dependents(to).Add(from)),
	}
}

// DropContributors clears the outgoing contributor edges of e, symmetrically
// removing e from the dependent sets of its contributors. Used by the
// evaluator to unwind edges recorded by a computation that failed with an
// engine error and therefore left no cache entry.
func (s *Store) DropContributors(e expr.Expr) *Store {
	contribs, ok := s.contributors.Get(e)
	if !ok {
		return s
	}
	deps := s.dependents
	contribs.Each(func(c expr.Expr) bool {
		remaining := s.depsOf(deps, c).Remove(e)
		if remaining.IsEmpty() {
			deps = deps.Delete(c)
		} else {
			deps = deps.Set(c, remaining)
		}
		return true
	})
	return &Store{
		cache:        s.cache,
		contributors: s.contributors.Delete(e),
		dependents:   deps,
	}
}

func (s *Store) depsOf(deps *immutable.Map[expr.Expr, ExprSet], e expr.Expr) ExprSet {
	set, ok := deps.Get(e)
	if !ok {
		return EmptySet()
	}
	return set
}

// affectedClosure computes dependents*(e) ∪ {e} by BFS over the dependent
// index. The closure is computed before any deletion, so the transitive set
// is complete and order-independent.
func (s *Store) affectedClosure(e expr.Expr) ExprSet {
	visited := EmptySet().Add(e)
	queue := []expr.Expr{e}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		s.Dependents(cur).Each(func(d expr.Expr) bool {
			if !visited.Has(d) {
				visited = visited.Add(d)
				queue = append(queue, d)
			}
			return true
		})
	}
	return visited
}

// evict removes e's cache entry and clears its outgoing contributor edges.
// Callers evict a full dependent closure, so the symmetric removals across
// the closure leave no dangling dependent entries.
func (s *Store) evict(e expr.Expr) *Store {
	return (&Store{
		cache:        s.cache.Delete(e),
		contributors: s.contributors,
		dependents:   s.dependents,
	}).DropContributors(e)
}

// Validate checks the index invariants: contributors and dependents are
// exact inverses, and uncached expressions carry no contributor edges.
// Used by tests after every operation sequence.
func (s *Store) Validate() error {
	itr := s.contributors.Iterator()
	for !itr.Done() {
		f, contribs, _ := itr.Next()
		if _, cached := s.cache.Get(f); !cached && !contribs.IsEmpty() {
			return fmt.Errorf("store: uncached %s has %d contributor edges", f, contribs.Len())
		}
		var err error
		contribs.Each(func(c expr.Expr) bool {
			if !s.Dependents(c).Has(f) {
				err = fmt.Errorf("store: %s in contributors[%s] but %s not in dependents[%s]", c, f, f, c)
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
	}

	ditr := s.dependents.Iterator()
	for !ditr.Done() {
		e, deps, _ := ditr.Next()
		var err error
		deps.Each(func(f expr.Expr) bool {
			if !s.Contributors(f).Has(e) {
				err = fmt.Errorf("store: %s in dependents[%s] but %s not in contributors[%s]", f, e, e, f)
				return false
			}
			return true
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// Stats reports store sizes: cached entries and the edge counts of each
// index.
type Stats struct {
	CacheLen         int
	ContributorEdges int
	DependentEdges   int
}

// Stats computes current sizes.
func (s *Store) Stats() Stats {
	st := Stats{CacheLen: s.cache.Len()}
	itr := s.contributors.Iterator()
	for !itr.Done() {
		_, set, _ := itr.Next()
		st.ContributorEdges += set.Len()
	}
	ditr := s.dependents.Iterator()
	for !ditr.Done() {
		_, set, _ := ditr.Next()
		st.DependentEdges += set.Len()
	}
	return st
}
