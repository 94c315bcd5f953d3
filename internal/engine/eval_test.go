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

// doubler builds the classic dependent pair: [double] spies [base] and
// doubles it.
func doubler(base *expr.Tag) *expr.Func {
	return expr.NewFunc("double", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		v, err := ev.Spy(expr.New(base))
		if err != nil {
			return nil, err
		}
		return v.(int) * 2, nil
	})
}

func TestTx_Get_ComputesAndRecomputes(t *testing.T) {
	base := expr.NewTag("base")
	double := doubler(base)
	baseExpr := expr.New(base)
	doubleExpr := expr.New(double)

	s, _, err := store.Empty().With(baseExpr, 10)
	require.NoError(t, err)

	tx := Begin(s)
	v, err := tx.Get(doubleExpr)
	require.NoError(t, err)
	assert.Equal(t, 20, v)
	testutil.RequireValid(t, tx.Store())

	// The spy recorded the edge both ways.
	assert.True(t, tx.Store().Contributors(doubleExpr).Has(baseExpr))
	assert.True(t, tx.Store().Dependents(baseExpr).Has(doubleExpr))

	// A write to the base invalidates the dependent; re-resolution sees the
	// new value.
	s2, affected, err := tx.Store().With(baseExpr, 7)
	require.NoError(t, err)
	assert.True(t, affected.Has(doubleExpr))

	tx2 := Begin(s2)
	v, err = tx2.Get(doubleExpr)
	require.NoError(t, err)
	assert.Equal(t, 14, v)
	testutil.RequireValid(t, tx2.Store())
}

func TestTx_Get_IdempotentRead(t *testing.T) {
	base := expr.NewTag("base")
	calls := 0
	counting := expr.NewFunc("counting", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		calls++
		return ev.Spy(expr.New(base))
	})

	s, _, err := store.Empty().With(expr.New(base), 1)
	require.NoError(t, err)

	tx := Begin(s)
	v1, err := tx.Get(expr.New(counting))
	require.NoError(t, err)
	after1 := tx.Store()

	v2, err := tx.Get(expr.New(counting))
	require.NoError(t, err)
	after2 := tx.Store()

	assert.Equal(t, v1, v2)
	assert.Equal(t, 1, calls, "second read hits the cache")
	assert.Same(t, after1, after2, "a cache hit leaves the store untouched")
}

func TestTx_Get_CachesPredicateFailure(t *testing.T) {
	calls := 0
	failing := expr.NewFunc("failing", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		calls++
		return nil, fmt.Errorf("boom %d", calls)
	})
	e := expr.New(failing)

	tx := Begin(store.Empty())
	_, err1 := tx.Get(e)
	require.EqualError(t, err1, "boom 1")

	_, err2 := tx.Get(e)
	require.EqualError(t, err2, "boom 1", "the captured failure is re-raised, not recomputed")
	assert.Equal(t, 1, calls)

	cell, ok := tx.Store().Cached(e)
	require.True(t, ok)
	assert.True(t, cell.IsThrown())

	// Thrown cells participate in invalidation like values.
	s2, affected, err := tx.Store().With(e, "fixed")
	require.NoError(t, err)
	assert.True(t, affected.Has(e))
	v, err := Begin(s2).Get(e)
	require.NoError(t, err)
	assert.Equal(t, "fixed", v)
}

func TestTx_Get_SelfSpyRaisesRecursion(t *testing.T) {
	recurse := true
	var rec *expr.Func
	rec = expr.NewFunc("rec", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		if recurse {
			return ev.Spy(expr.New(rec))
		}
		return "settled", nil
	})
	e := expr.New(rec)

	tx := Begin(store.Empty())
	_, err := tx.Get(e)
	require.Error(t, err)
	assert.True(t, store.IsRecursion(err), "want recursion error, got %v", err)

	// Recursion is never cached, and the unwound evaluation left no edges.
	_, ok := tx.Store().Cached(e)
	assert.False(t, ok)
	testutil.RequireValid(t, tx.Store())

	// Once the recursive call is gone, resolution succeeds normally.
	recurse = false
	v, err := tx.Get(e)
	require.NoError(t, err)
	assert.Equal(t, "settled", v)
}

func TestTx_Get_MutualRecursion(t *testing.T) {
	var a, b *expr.Func
	a = expr.NewFunc("a", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		return ev.Spy(expr.New(b))
	})
	b = expr.NewFunc("b", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		return ev.Spy(expr.New(a))
	})

	tx := Begin(store.Empty())
	_, err := tx.Get(expr.New(a))
	require.Error(t, err)
	assert.True(t, store.IsRecursion(err))

	_, ok := tx.Store().Cached(expr.New(a))
	assert.False(t, ok)
	_, ok = tx.Store().Cached(expr.New(b))
	assert.False(t, ok)
	testutil.RequireValid(t, tx.Store())
}

func TestTx_Get_UncachedDataExpressionIsUndefined(t *testing.T) {
	tx := Begin(store.Empty())
	v, err := tx.Get(expr.New(expr.NewTag("nothing"), expr.String("here")))
	require.NoError(t, err)
	assert.Nil(t, v)

	// Nothing was cached for the data expression.
	assert.Equal(t, 0, tx.Store().Len())
}

func TestTx_Spy_NoComputationNoEdge(t *testing.T) {
	base := expr.New(expr.NewTag("base"))
	s, _, err := store.Empty().With(base, 5)
	require.NoError(t, err)

	tx := Begin(s)
	v, err := tx.Spy(base)
	require.NoError(t, err)
	assert.Equal(t, 5, v)
	assert.True(t, tx.Store().Dependents(base).IsEmpty(), "spy outside a computation records nothing")
}

func TestTx_Set_AccumulatesAffected(t *testing.T) {
	base := expr.NewTag("base")
	double := doubler(base)

	s, _, err := store.Empty().With(expr.New(base), 3)
	require.NoError(t, err)

	tx := Begin(s)
	_, err = tx.Get(expr.New(double))
	require.NoError(t, err)

	require.NoError(t, tx.Set(expr.New(base), 4))
	assert.True(t, tx.Affected().Has(expr.New(base)))
	assert.True(t, tx.Affected().Has(expr.New(double)), "the dependent joined the affected set")

	v, err := tx.Get(expr.New(double))
	require.NoError(t, err)
	assert.Equal(t, 8, v)
}

func TestTx_Modify(t *testing.T) {
	base := expr.New(expr.NewTag("base"))
	s, _, err := store.Empty().With(base, 10)
	require.NoError(t, err)

	tx := Begin(s)
	require.NoError(t, tx.Modify(base, func(v any) any { return v.(int) + 1 }))

	v, err := tx.Get(base)
	require.NoError(t, err)
	assert.Equal(t, 11, v)
	assert.True(t, tx.Affected().Has(base))
}

func TestTx_Modify_PropagatesReadError(t *testing.T) {
	failing := expr.NewFunc("failing", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		return nil, fmt.Errorf("no value")
	})

	tx := Begin(store.Empty())
	err := tx.Modify(expr.New(failing), func(v any) any { return v })
	require.EqualError(t, err, "no value")
}

func TestTx_DerivativeID_OutsideComputationFails(t *testing.T) {
	tx := Begin(store.Empty())

	_, err := tx.DerivativeID(expr.String("k"))
	require.Error(t, err)
	assert.True(t, store.IsDerivativeMisuse(err))

	err = tx.SetDerivative(expr.New(expr.NewTag("d")), 1)
	require.Error(t, err)
	assert.True(t, store.IsDerivativeMisuse(err))
}

func TestClockAdaptation_VersionsAreMonotonic(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())

	resumed := NewClockAt(100)
	assert.Equal(t, int64(101), resumed.Next())
}
