// Package expr provides the canonical expression representation for TritiumDB.
//
// This package contains term and expression definitions only. All other
// internal packages import expr; expr imports nothing internal except the
// future collaborator. This keeps expressions the foundational layer with no
// circular dependencies.
//
// Key design constraints:
//   - Term is a sealed sum type: only the types defined here implement it.
//   - Numeric terms are int64 only; floats are forbidden in canonical
//     identity (they break deterministic content addressing).
//   - Tags, predicate functions, and async functions compare by reference
//     identity, rendered hashable through a stable id allocated on first
//     registration.
//   - DerivativeIDs compare structurally over (creator expression, key term).
//   - Every expression carries a precomputed 64-bit hash and a
//     domain-separated SHA-256 digest over its canonical byte encoding.
package expr
