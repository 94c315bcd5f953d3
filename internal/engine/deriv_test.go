package engine

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clsnc/TritiumDB/internal/expr"
	"github.com/clsnc/TritiumDB/internal/store"
	"github.com/clsnc/TritiumDB/internal/testutil"
)

// derivCreator publishes [deriv <id> <base-value>] := "v-"+<base-value>
// every time it runs, with an id keyed by "k" and owned by the creator.
func derivCreator(base, deriv *expr.Tag, captured **expr.DerivativeID) *expr.Func {
	return expr.NewFunc("creator", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		v, err := ev.Spy(expr.New(base))
		if err != nil {
			return nil, err
		}
		baseVal, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("creator: base is %T, not string", v)
		}
		id, err := ev.DerivativeID(expr.String("k"))
		if err != nil {
			return nil, err
		}
		if captured != nil {
			*captured = id
		}
		derivExpr := expr.New(deriv, id, expr.String(baseVal))
		if err := ev.SetDerivative(derivExpr, "v-"+baseVal); err != nil {
			return nil, err
		}
		return "ok", nil
	})
}

func TestTx_Derivative_Lifecycle(t *testing.T) {
	base := expr.NewTag("base")
	deriv := expr.NewTag("deriv")
	var id *expr.DerivativeID
	creator := derivCreator(base, deriv, &id)
	creatorExpr := expr.New(creator)

	s, _, err := store.Empty().With(expr.New(base), "x")
	require.NoError(t, err)

	tx := Begin(s)
	v, err := tx.Get(creatorExpr)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	require.NotNil(t, id)
	assert.True(t, id.Creator().Equal(creatorExpr), "the id captures the in-flight computation")

	// The derivative is readable under the captured id.
	derivX := expr.New(deriv, id, expr.String("x"))
	v, err = tx.Get(derivX)
	require.NoError(t, err)
	assert.Equal(t, "v-x", v)
	testutil.RequireValid(t, tx.Store())

	// Rewriting the base invalidates the creator and, through the creator
	// edge, every derivative it published.
	s2, affected, err := tx.Store().With(expr.New(base), "y")
	require.NoError(t, err)
	assert.True(t, affected.Has(creatorExpr))
	assert.True(t, affected.Has(derivX))
	_, ok := s2.Cached(derivX)
	assert.False(t, ok)

	// A structurally equal id minted by the next generation names the new
	// derivative; resolving it revives the creator on demand.
	id2 := expr.NewDerivativeID(creatorExpr, expr.String("k"))
	derivY := expr.New(deriv, id2, expr.String("y"))

	tx2 := Begin(s2)
	v, err = tx2.Get(derivY)
	require.NoError(t, err)
	assert.Equal(t, "v-y", v)

	// The old generation's entry stays dead: the creator is cached now, so
	// no revival runs and the stale key resolves to the undefined outcome.
	v, err = tx2.Get(derivX)
	require.NoError(t, err)
	assert.Nil(t, v)
	testutil.RequireValid(t, tx2.Store())
}

func TestTx_Derivative_RevivalIgnoresCreatorFailure(t *testing.T) {
	failing := expr.NewFunc("failing-creator", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		return nil, fmt.Errorf("creator broke")
	})
	creatorExpr := expr.New(failing)
	id := expr.NewDerivativeID(creatorExpr, expr.String("k"))

	tx := Begin(store.Empty())
	v, err := tx.Get(expr.New(expr.NewTag("deriv"), id))
	require.NoError(t, err, "the creator's outcome is ignored")
	assert.Nil(t, v)

	// The creator's failure itself was cached as usual.
	cell, ok := tx.Store().Cached(creatorExpr)
	require.True(t, ok)
	assert.True(t, cell.IsThrown())
}

func TestTx_Derivative_NestedComputationAttribution(t *testing.T) {
	base := expr.NewTag("base")
	deriv := expr.NewTag("deriv")
	var id *expr.DerivativeID
	creator := derivCreator(base, deriv, &id)
	creatorExpr := expr.New(creator)

	// An outer computation spying the creator must not steal the
	// attribution: the id belongs to the innermost computation.
	outer := expr.NewFunc("outer", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		return ev.Spy(creatorExpr)
	})

	s, _, err := store.Empty().With(expr.New(base), "x")
	require.NoError(t, err)

	tx := Begin(s)
	_, err = tx.Get(expr.New(outer))
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.True(t, id.Creator().Equal(creatorExpr))
	testutil.RequireValid(t, tx.Store())
}
