// Package engine implements the TritiumDB on-demand evaluator.
//
// Evaluation happens inside a transaction (Tx) wrapping a working store.
// The per-computation stacks - the recursion membership set and the
// innermost-expression pointer - live on the Tx, never on the persistent
// store: they are strictly scoped to one synchronous resolution and have no
// meaning once it returns.
//
// Resolution contract for Get(e):
//
//  1. Cached: value cells return their value, thrown cells re-raise.
//  2. Evaluable head: run the predicate with a recursion check. Engine
//     errors (recursion, derivative misuse, cascade quota) are never
//     cached; every other predicate failure is captured as a thrown cell
//     and participates in invalidation like a value.
//  3. Otherwise: derivative revival. Any derivative id term whose creator
//     is uncached triggers a recursive Get of the creator, outcome ignored,
//     followed by one cache re-probe. Failing that, the undefined outcome
//     (nil, nil).
//
// Spy is Get plus edge recording: the innermost in-flight computation is
// recorded as a dependent of the consulted expression. It is the only way a
// predicate legitimately consults another expression - a direct Get leaves
// no edge, so the cached result would never be invalidated by changes to
// what it read.
//
// The engine is designed for correctness and determinism, not throughput.
// All resolution is strictly single-threaded; a Tx must not be shared
// across goroutines.
package engine
