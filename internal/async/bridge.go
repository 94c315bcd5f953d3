package async

import (
	"errors"
	"fmt"

	"github.com/clsnc/TritiumDB/internal/expr"
	"github.com/clsnc/TritiumDB/internal/store"
)

// Bookkeeping tags heading the status/result/promise expressions.
var (
	StatusTag  = expr.NewTag("async.status")
	ResultTag  = expr.NewTag("async.result")
	PromiseTag = expr.NewTag("async.promise")
)

// Status is the lifecycle state of an async call.
type Status string

const (
	// StatusNotStarted is the implicit state of an absent status cell.
	StatusNotStarted Status = "not-started"
	// StatusExecuting means the call's future has been obtained but has not
	// settled.
	StatusExecuting Status = "executing"
	// StatusComplete means the call settled and its result cell is written.
	StatusComplete Status = "complete"
)

// CallExpr builds the call expression (fn, args...).
func CallExpr(fn *expr.AsyncFunc, args ...expr.Term) expr.Expr {
	terms := make([]expr.Term, 0, len(args)+1)
	terms = append(terms, fn)
	terms = append(terms, args...)
	return expr.New(terms...)
}

// StatusExpr wraps a call expression in the status tag.
func StatusExpr(call expr.Expr) expr.Expr { return expr.Prepend(StatusTag, call) }

// ResultExpr wraps a call expression in the result tag.
func ResultExpr(call expr.Expr) expr.Expr { return expr.Prepend(ResultTag, call) }

// PromiseExpr wraps a call expression in the promise tag.
func PromiseExpr(call expr.Expr) expr.Expr { return expr.Prepend(PromiseTag, call) }

// ReadyExpr builds the readiness expression [ResultReady, e...].
func ReadyExpr(e expr.Expr) expr.Expr { return expr.Prepend(ResultReady, e) }

// IncompleteError is the sentinel raised while an async call a computation
// depends on has not completed. Call identifies the extracted (fn, args...)
// expression, so the reactor can schedule it.
type IncompleteError struct {
	Call expr.Expr
}

// Error implements the error interface.
func (e *IncompleteError) Error() string {
	return fmt.Sprintf("async call incomplete: %s", e.Call)
}

// IsIncomplete reports whether err is an async-incomplete sentinel.
// Uses errors.As to handle wrapped errors.
func IsIncomplete(err error) bool {
	var ie *IncompleteError
	return errors.As(err, &ie)
}

// AsIncomplete extracts the sentinel from err, if present.
func AsIncomplete(err error) (*IncompleteError, bool) {
	var ie *IncompleteError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

// CallStatus is the predicate [CallStatus, fn, args...] reporting the
// lifecycle state of a call, treating an absent status cell as NotStarted.
var CallStatus = expr.NewFunc("asyncCallStatus", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
	v, err := ev.Spy(expr.New(prepend(StatusTag, args)...))
	if err != nil {
		return nil, err
	}
	if v == nil {
		return StatusNotStarted, nil
	}
	status, ok := v.(Status)
	if !ok {
		return nil, fmt.Errorf("asyncCallStatus: unexpected status cell %T", v)
	}
	return status, nil
})

// CallResult is the predicate [CallResult, fn, args...] reporting the
// resolved value of a call, nil while absent. A rejected call stores a
// thrown result cell, so reading it re-raises the rejection error.
var CallResult = expr.NewFunc("asyncCallResult", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
	return ev.Spy(expr.New(prepend(ResultTag, args)...))
})

// ResultReady is the predicate [ResultReady, head, rest...] reporting
// whether the inner expression (head rest...) evaluates without raising the
// async-incomplete sentinel. A cached non-async failure still counts as
// ready: the value is determined, it just happens to be a thrown cell.
// Engine errors surface unchanged.
var ResultReady = expr.NewFunc("resultIsReady", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("resultIsReady: empty inner expression")
	}
	_, err := ev.Spy(expr.New(args...))
	switch {
	case err == nil:
		return true, nil
	case IsIncomplete(err):
		return false, nil
	case store.IsEngineMisuse(err):
		return nil, err
	default:
		return true, nil
	}
})

// SpyEffectResult is the predicate [SpyEffectResult, fn, args...]: the
// call's result when Complete, otherwise the async-incomplete sentinel
// carrying the extracted call expression.
var SpyEffectResult = expr.NewFunc("spyAsyncEffectResult", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
	call := expr.New(args...)
	v, err := ev.Spy(StatusExpr(call))
	if err != nil {
		return nil, err
	}
	if status, ok := v.(Status); ok && status == StatusComplete {
		return ev.Spy(ResultExpr(call))
	}
	return nil, &IncompleteError{Call: call}
})

func prepend(head expr.Term, args []expr.Term) []expr.Term {
	terms := make([]expr.Term, 0, len(args)+1)
	terms = append(terms, head)
	terms = append(terms, args...)
	return terms
}
