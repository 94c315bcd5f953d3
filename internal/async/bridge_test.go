package async

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clsnc/TritiumDB/internal/engine"
	"github.com/clsnc/TritiumDB/internal/expr"
	"github.com/clsnc/TritiumDB/internal/future"
	"github.com/clsnc/TritiumDB/internal/store"
)

func testCall(t *testing.T) expr.Expr {
	t.Helper()
	fn := expr.NewAsyncFunc("fetch", func(args ...expr.Term) *future.Future {
		return future.New()
	})
	return CallExpr(fn, expr.String("arg"))
}

func TestCallStatus_AbsentIsNotStarted(t *testing.T) {
	call := testCall(t)
	statusQuery := expr.Prepend(CallStatus, call)

	tx := engine.Begin(store.Empty())
	v, err := tx.Get(statusQuery)
	require.NoError(t, err)
	assert.Equal(t, StatusNotStarted, v)
}

func TestCallStatus_TracksStatusCell(t *testing.T) {
	call := testCall(t)
	statusQuery := expr.Prepend(CallStatus, call)

	s, _, err := store.Empty().With(StatusExpr(call), StatusExecuting)
	require.NoError(t, err)

	tx := engine.Begin(s)
	v, err := tx.Get(statusQuery)
	require.NoError(t, err)
	assert.Equal(t, StatusExecuting, v)

	// The status predicate spies the status cell, so the transition to
	// Complete invalidates its cached answer.
	s2, affected, err := tx.Store().With(StatusExpr(call), StatusComplete)
	require.NoError(t, err)
	assert.True(t, affected.Has(statusQuery))

	v, err = engine.Begin(s2).Get(statusQuery)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, v)
}

func TestCallResult_AbsentIsNil(t *testing.T) {
	call := testCall(t)

	tx := engine.Begin(store.Empty())
	v, err := tx.Get(expr.Prepend(CallResult, call))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestSpyEffectResult_IncompleteSentinel(t *testing.T) {
	call := testCall(t)
	query := expr.Prepend(SpyEffectResult, call)

	tx := engine.Begin(store.Empty())
	_, err := tx.Get(query)
	require.Error(t, err)

	ie, ok := AsIncomplete(err)
	require.True(t, ok, "want incomplete sentinel, got %v", err)
	assert.True(t, ie.Call.Equal(call), "the sentinel carries the extracted call")

	// The sentinel is an ordinary predicate failure: cached, and
	// invalidated when the status transitions.
	cell, ok := tx.Store().Cached(query)
	require.True(t, ok)
	assert.True(t, cell.IsThrown())
}

func TestSpyEffectResult_CompleteReturnsResult(t *testing.T) {
	call := testCall(t)
	query := expr.Prepend(SpyEffectResult, call)

	s := store.Empty()
	var err error
	s, _, err = s.With(StatusExpr(call), StatusComplete)
	require.NoError(t, err)
	s, _, err = s.With(ResultExpr(call), "payload")
	require.NoError(t, err)

	v, err := engine.Begin(s).Get(query)
	require.NoError(t, err)
	assert.Equal(t, "payload", v)
}

func TestSpyEffectResult_RejectedCallReRaises(t *testing.T) {
	call := testCall(t)
	cause := fmt.Errorf("network down")

	s := store.Empty()
	var err error
	s, _, err = s.With(StatusExpr(call), StatusComplete)
	require.NoError(t, err)
	s, _, err = s.WithError(ResultExpr(call), cause)
	require.NoError(t, err)

	_, err = engine.Begin(s).Get(expr.Prepend(SpyEffectResult, call))
	assert.Equal(t, cause, err)
}

func TestResultReady_TrueForPlainValue(t *testing.T) {
	base := expr.New(expr.NewTag("base"))
	s, _, err := store.Empty().With(base, 5)
	require.NoError(t, err)

	v, err := engine.Begin(s).Get(ReadyExpr(base))
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestResultReady_FalseWhileIncomplete(t *testing.T) {
	call := testCall(t)
	inner := expr.Prepend(SpyEffectResult, call)

	tx := engine.Begin(store.Empty())
	v, err := tx.Get(ReadyExpr(inner))
	require.NoError(t, err)
	assert.Equal(t, false, v)

	// Completion invalidates the readiness answer through the status edge.
	s := tx.Store()
	s, _, err = s.With(ResultExpr(call), "done")
	require.NoError(t, err)
	s, affected, err := s.With(StatusExpr(call), StatusComplete)
	require.NoError(t, err)
	assert.True(t, affected.Has(ReadyExpr(inner)))

	v, err = engine.Begin(s).Get(ReadyExpr(inner))
	require.NoError(t, err)
	assert.Equal(t, true, v)
}

func TestResultReady_NonAsyncFailureIsReady(t *testing.T) {
	failing := expr.NewFunc("failing", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		return nil, fmt.Errorf("plain failure")
	})

	v, err := engine.Begin(store.Empty()).Get(ReadyExpr(expr.New(failing)))
	require.NoError(t, err)
	assert.Equal(t, true, v, "a determined failure is still a determined result")
}

func TestResultReady_EngineErrorsSurface(t *testing.T) {
	var rec *expr.Func
	rec = expr.NewFunc("rec", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		return ev.Spy(expr.New(rec))
	})

	_, err := engine.Begin(store.Empty()).Get(ReadyExpr(expr.New(rec)))
	require.Error(t, err)
	assert.True(t, store.IsRecursion(err))
}

func TestResultReady_PropagationThroughOuterPredicates(t *testing.T) {
	// An outer predicate that does not catch the sentinel also reads as not
	// ready.
	call := testCall(t)
	outer := expr.NewFunc("outer", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		v, err := ev.Spy(expr.Prepend(SpyEffectResult, call))
		if err != nil {
			return nil, err
		}
		return fmt.Sprintf("composed:%v", v), nil
	})

	v, err := engine.Begin(store.Empty()).Get(ReadyExpr(expr.New(outer)))
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestIncompleteError_Classifiers(t *testing.T) {
	call := testCall(t)
	ie := &IncompleteError{Call: call}

	assert.True(t, IsIncomplete(ie))
	assert.True(t, IsIncomplete(fmt.Errorf("wrapped: %w", ie)))
	assert.False(t, IsIncomplete(fmt.Errorf("plain")))
	assert.Contains(t, ie.Error(), "async call incomplete")

	got, ok := AsIncomplete(fmt.Errorf("wrapped: %w", ie))
	require.True(t, ok)
	assert.True(t, got.Call.Equal(call))
}
