// Package harness executes declarative conformance scenarios against a
// reactor.
//
// A scenario is a YAML file of steps - writes, reads, expectations,
// subscriptions, flushes, and notification-count assertions - whose
// expressions reference predicates and tags by name through a Registry.
// Executing a scenario produces a deterministic trace snapshot suitable for
// golden-file comparison.
//
// Scenarios cover what unit tests express awkwardly: long operation
// sequences whose observable behavior (values, invalidation, notification
// gating) should be reviewable as data.
package harness
