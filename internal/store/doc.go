// Package store provides the persistent expression store for TritiumDB.
//
// A Store is a purely functional triple of maps keyed by canonical
// expressions:
//
//   - cache: expression -> result cell (value or thrown error)
//   - contributors: expression -> set of expressions it consulted during its
//     most recent evaluation
//   - dependents: the exact inverse index
//
// Every mutation returns a new Store; the receiver is never altered. The
// maps are hash-array-mapped tries keyed by the expression's precomputed
// hash, so versions share structure.
//
// # Invariants
//
// At every externally observable point:
//
//   - contributors and dependents are exact inverses.
//   - An uncached expression has no contributor edges (invalidation clears
//     them).
//   - A cached cell is the captured outcome of an actual evaluation against
//     a store state consistent with its current contributors.
//   - No contributor cycle exists among cached expressions.
//
// Validate checks the index invariants; tests run it after every sequence
// of operations.
//
// # Writes
//
// An invalidating write computes the affected set (the transitive dependent
// closure of the target, plus the target) by BFS over dependents BEFORE any
// deletion, evicts every affected entry, inserts the new cell, and then runs
// the cascade protocol when the head is a cascading predicate. Cascade
// consequences run against the already-updated store, so the outer
// invalidation cannot erase them, and their affected sets accumulate into
// the outer write's. Transitive cascades are bounded by a depth quota;
// exceeding the quota is an engine error, never a cached result.
package store
