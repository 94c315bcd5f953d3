// Package testutil provides deterministic helpers shared by tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/clsnc/TritiumDB/internal/store"
)

// Tokens returns n sequential tokens with a prefix, for use with the
// reactor's fixed token generator.
func Tokens(prefix string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s-%d", prefix, i+1)
	}
	return out
}

// RequireValid fails the test when the store's index invariants do not
// hold. Tests call this after every operation sequence.
func RequireValid(t testing.TB, s *store.Store) {
	t.Helper()
	if err := s.Validate(); err != nil {
		t.Fatalf("store invariants violated: %v", err)
	}
}
