// Package reactor turns the pure store into a live data-flow system.
//
// A Reactor owns the current store version, a subscriber table keyed by
// expression digest, and a coalescing set of pending notifications.
//
// Single-writer model: every operation takes the reactor mutex, applies a
// pure store transition, and publishes the new store. Writes stamp the new
// version from the logical clock; reads publish their warmed cache without
// advancing it. Subscriber callbacks are invoked outside the lock, so they
// may re-enter the reactor (read, write, subscribe, unsubscribe).
//
// Notification flow:
//
//  1. A write commits and unions its affected set into pending.
//  2. Flush drains pending and invokes each matching subscription at most
//     once. A callback panic is logged and never corrupts delivery to the
//     remaining callbacks.
//  3. Re-notification requires an intervening recompute: invalidation
//     removed the dependency edge along with the cache entry, so a second
//     write of the same input leaves the subscribed expression out of the
//     affected set until something re-evaluates it.
//
// Asynchronous effects enter through EnsureAsyncRun, which is idempotent
// per call expression, and through the promise-returning readiness queries
// ResultPromise and EnsuredResultPromise. Future settlement re-enters the
// reactor on the settling goroutine and flushes, which is the only way
// pending notifications are delivered without an explicit Flush.
package reactor
