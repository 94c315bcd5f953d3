// Package async lifts external asynchronous computations into the
// expression world.
//
// A call (fn, args...) headed by an async function is tracked through three
// bookkeeping expressions, each headed by a tag:
//
//	(async.status  fn args...) -> Status
//	(async.result  fn args...) -> resolved value, or a thrown cell on rejection
//	(async.promise fn args...) -> the in-flight future
//
// The reactor owns the tag expressions: EnsureAsyncRun writes Executing,
// stores the future, and on settlement writes the result then Complete and
// flushes. This package provides the tags, the status values, and four
// helper predicates that are themselves ordinary cacheable expression
// heads, so readiness composes through the dependency graph like any other
// computed value.
//
// IncompleteError is an expected sentinel, not a failure: SpyEffectResult
// raises it while the call it targets has not completed, ResultReady
// catches it, and everything else propagates it outward so enclosing
// computations also read as "not ready".
package async
