package expr

import "fmt"

// The public surface accepts two shapes for an expression: the canonical
// Expr form and a plain "listy" sequence of Go values. Everything is
// normalized to Expr before any lookup, so user code never observes two
// unequal internal representations of the same expression.

// Normalize converts a query value into canonical form.
// Accepted shapes: Expr, []Term, []any (elements normalized per NormalizeTerm),
// or a single Term.
func Normalize(q any) (Expr, error) {
	switch v := q.(type) {
	case Expr:
		return v, nil
	case []Term:
		return New(v...), nil
	case []any:
		return List(v...)
	case Term:
		return New(v), nil
	default:
		return Expr{}, fmt.Errorf("expr: cannot normalize %T into an expression", q)
	}
}

// List builds an expression from plain Go values.
func List(items ...any) (Expr, error) {
	terms := make([]Term, len(items))
	for i, item := range items {
		t, err := NormalizeTerm(item)
		if err != nil {
			return Expr{}, fmt.Errorf("expr: item %d: %w", i, err)
		}
		terms[i] = t
	}
	return New(terms...), nil
}

// MustList is List panicking on error. Use only in tests or with inputs
// known to be valid.
func MustList(items ...any) Expr {
	e, err := List(items...)
	if err != nil {
		panic(err)
	}
	return e
}

// NormalizeTerm converts a plain Go value into a term. Floats are rejected:
// they have no canonical identity.
func NormalizeTerm(item any) (Term, error) {
	switch v := item.(type) {
	case nil:
		return Null{}, nil
	case Term:
		return v, nil
	case string:
		return String(v), nil
	case int:
		return Int(int64(v)), nil
	case int32:
		return Int(int64(v)), nil
	case int64:
		return Int(v), nil
	case bool:
		return Bool(v), nil
	case float32, float64:
		return nil, fmt.Errorf("floats are forbidden in expression terms: %v", v)
	default:
		return nil, fmt.Errorf("unsupported term type %T", item)
	}
}
