package store

import (
	"errors"
	"fmt"

	"github.com/clsnc/TritiumDB/internal/expr"
)

// EngineError represents an engine-misuse failure detected during evaluation
// or writing. Engine errors are never cached: they surface to the caller and
// leave no result cell behind, unlike predicate failures, which are captured
// as thrown cells and re-raised on read.
type EngineError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Expr identifies the affected expression, when one applies.
	Expr expr.Expr

	// Message is a human-readable description.
	Message string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// ErrCodeRecursiveComputation indicates an expression consulted itself,
	// directly or transitively, while it was still being computed.
	ErrCodeRecursiveComputation ErrorCode = "RECURSIVE_COMPUTATION"

	// ErrCodeDerivativeMisuse indicates a derivative operation outside an
	// in-flight evaluation or cascade.
	ErrCodeDerivativeMisuse ErrorCode = "DERIVATIVE_MISUSE"

	// ErrCodeCascadeDepthExceeded indicates a transitive cascade exceeded
	// the configured depth quota.
	ErrCodeCascadeDepthExceeded ErrorCode = "CASCADE_DEPTH_EXCEEDED"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Expr.IsZero() {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (expr=%s)", e.Code, e.Message, e.Expr)
}

// NewRecursionError builds the error raised when evaluating an expression
// that is already being computed.
func NewRecursionError(e expr.Expr) *EngineError {
	return &EngineError{
		Code:    ErrCodeRecursiveComputation,
		Expr:    e,
		Message: "expression consulted while it is being computed",
	}
}

// NewDerivativeMisuseError builds the error raised by derivative operations
// invoked outside an in-flight evaluation or cascade.
func NewDerivativeMisuseError(op string) *EngineError {
	return &EngineError{
		Code:    ErrCodeDerivativeMisuse,
		Message: op + " requires an in-flight computation",
	}
}

// NewCascadeDepthError builds the error raised when a transitive cascade
// exceeds the depth quota.
func NewCascadeDepthError(e expr.Expr, depth, max int) *EngineError {
	return &EngineError{
		Code:    ErrCodeCascadeDepthExceeded,
		Expr:    e,
		Message: fmt.Sprintf("cascade exceeded max depth (%d >= %d)", depth, max),
	}
}

// IsRecursion reports whether err is a recursive-computation error.
// Uses errors.As to handle wrapped errors.
func IsRecursion(err error) bool {
	return hasCode(err, ErrCodeRecursiveComputation)
}

// IsDerivativeMisuse reports whether err is a derivative-misuse error.
func IsDerivativeMisuse(err error) bool {
	return hasCode(err, ErrCodeDerivativeMisuse)
}

// IsCascadeDepth reports whether err is a cascade-depth error.
func IsCascadeDepth(err error) bool {
	return hasCode(err, ErrCodeCascadeDepthExceeded)
}

// IsEngineMisuse reports whether err is any engine error. The evaluator uses
// this to decide what must never be captured into a result cell.
func IsEngineMisuse(err error) bool {
	var ee *EngineError
	return errors.As(err, &ee)
}

func hasCode(err error, code ErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}
