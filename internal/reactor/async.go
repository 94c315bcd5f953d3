package reactor

import (
	"fmt"

	"github.com/clsnc/TritiumDB/internal/async"
	"github.com/clsnc/TritiumDB/internal/expr"
	"github.com/clsnc/TritiumDB/internal/future"
	"github.com/clsnc/TritiumDB/internal/store"
)

// EnsureAsyncRun starts the asynchronous call (fn, args...) unless it has
// already been started, keyed by the presence of its status cell. The
// returned future is the same for every caller of the same call expression;
// fn runs at most once per distinct argument list.
//
// On settlement the reactor writes the result cell (a thrown cell for a
// rejection), transitions the status to Complete, and flushes.
func (r *Reactor) EnsureAsyncRun(fn *expr.AsyncFunc, args ...any) (*future.Future, error) {
	terms := make([]expr.Term, len(args))
	for i, a := range args {
		t, err := expr.NormalizeTerm(a)
		if err != nil {
			return nil, fmt.Errorf("ensure async run: arg %d: %w", i, err)
		}
		terms[i] = t
	}
	return r.ensureCall(async.CallExpr(fn, terms...))
}

func (r *Reactor) ensureCall(call expr.Expr) (*future.Future, error) {
	fn, ok := call.Head().(*expr.AsyncFunc)
	if !ok {
		return nil, fmt.Errorf("ensure async run: head of %s is not an async function", call)
	}
	statusE := async.StatusExpr(call)
	resultE := async.ResultExpr(call)
	promiseE := async.PromiseExpr(call)

	r.mu.Lock()
	if _, started := r.db.Cached(statusE); started {
		cell, ok := r.db.Cached(promiseE)
		r.mu.Unlock()
		if !ok {
			return nil, fmt.Errorf("ensure async run: %s has a status but no stored future", call)
		}
		f, ok := cell.ValueOrNil().(*future.Future)
		if !ok {
			return nil, fmt.Errorf("ensure async run: stored future for %s has type %T", call, cell.ValueOrNil())
		}
		return f, nil
	}

	if err := r.writeLocked(statusE, store.Value(async.StatusExecuting), "async-executing"); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	// Start the effect. The function must kick off its work and return a
	// future promptly; it must not synchronously re-enter the reactor.
	f := fn.Run(call.Args()...)
	if err := r.writeLocked(promiseE, store.Value(f), "async-promise"); err != nil {
		r.mu.Unlock()
		return nil, err
	}
	r.mu.Unlock()

	f.Then(func(value any, err error) {
		r.mu.Lock()
		var cell store.Result
		if err != nil {
			cell = store.Thrown(err)
		} else {
			cell = store.Value(value)
		}
		if werr := r.writeLocked(resultE, cell, "async-result"); werr != nil {
			r.log.Error("async result write failed", "call", call.String(), "error", werr)
		}
		if werr := r.writeLocked(statusE, store.Value(async.StatusComplete), "async-complete"); werr != nil {
			r.log.Error("async status write failed", "call", call.String(), "error", werr)
		}
		r.mu.Unlock()
		r.Flush()
	})
	return f, nil
}

// ResultPromise returns a future for the value of the normalized
// expression.
//
// The readiness expression [resultIsReady, q...] is evaluated synchronously
// first: an evaluation error rejects immediately; a ready expression
// settles immediately with the value (thrown cells reject); otherwise the
// future settles on the first flush that reports readiness, after which the
// internal subscription is removed.
func (r *Reactor) ResultPromise(q any) *future.Future {
	return r.resultPromise(q, false)
}

// EnsuredResultPromise is ResultPromise, and additionally schedules the
// asynchronous work the expression transitively depends on: every
// async-incomplete sentinel surfaced while probing the expression causes an
// EnsureAsyncRun of the extracted call, repeated on each readiness
// notification until all transitive sub-calls have been started.
func (r *Reactor) EnsuredResultPromise(q any) *future.Future {
	return r.resultPromise(q, true)
}

func (r *Reactor) resultPromise(q any, ensure bool) *future.Future {
	e, err := expr.Normalize(q)
	if err != nil {
		return future.Rejected(err)
	}
	readyE := async.ReadyExpr(e)

	r.mu.Lock()
	settled, v, verr, pendingCall := r.probeLocked(e, readyE, ensure)
	if settled {
		r.mu.Unlock()
		if verr != nil {
			return future.Rejected(verr)
		}
		return future.Resolved(v)
	}

	f := future.New()
	var unsub Unsubscribe
	unsub = r.subscribeLocked(readyE, func() {
		r.mu.Lock()
		settled, v, verr, pendingCall := r.probeLocked(e, readyE, ensure)
		r.mu.Unlock()
		if settled {
			if verr != nil {
				f.Reject(verr)
			} else {
				f.Resolve(v)
			}
			unsub()
			return
		}
		if !pendingCall.IsZero() {
			r.startCall(pendingCall)
		}
	})
	r.mu.Unlock()

	if !pendingCall.IsZero() {
		r.startCall(pendingCall)
	}
	return f
}

// probeLocked evaluates readiness and, when ready, the value. When not
// ready and ensure is set, it extracts the async call named by the
// incomplete sentinel blocking the expression; that call may already be
// running, in which case starting it again is a no-op.
func (r *Reactor) probeLocked(e, readyE expr.Expr, ensure bool) (settled bool, value any, verr error, pendingCall expr.Expr) {
	ready, err := r.evalLocked(readyE)
	if err != nil {
		return true, nil, err, expr.Expr{}
	}
	if isReady, _ := ready.(bool); isReady {
		v, gerr := r.evalLocked(e)
		return true, v, gerr, expr.Expr{}
	}
	if ensure {
		_, perr := r.evalLocked(e)
		if ie, ok := async.AsIncomplete(perr); ok {
			return false, nil, nil, ie.Call
		}
	}
	return false, nil, nil, expr.Expr{}
}

func (r *Reactor) startCall(call expr.Expr) {
	if _, err := r.ensureCall(call); err != nil {
		r.log.Error("ensure async run failed", "call", call.String(), "error", err)
	}
}
