package harness

import (
	"fmt"
	"strings"

	"github.com/clsnc/TritiumDB/internal/expr"
)

// Registry resolves scenario term references. Strings of the form
// "fn:NAME" resolve to registered predicates; "tag:NAME" resolve to tags,
// created on first reference so scenarios need no tag pre-declaration.
// Every other value is normalized as a plain term.
type Registry struct {
	funcs map[string]*expr.Func
	tags  map[string]*expr.Tag
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		funcs: make(map[string]*expr.Func),
		tags:  make(map[string]*expr.Tag),
	}
}

// RegisterFunc makes a predicate referenceable as "fn:name".
func (reg *Registry) RegisterFunc(name string, f *expr.Func) {
	reg.funcs[name] = f
}

// Tag returns the tag registered under name, creating it on first use.
func (reg *Registry) Tag(name string) *expr.Tag {
	t, ok := reg.tags[name]
	if !ok {
		t = expr.NewTag(name)
		reg.tags[name] = t
	}
	return t
}

// Resolve normalizes a scenario expression list into canonical form.
func (reg *Registry) Resolve(items []any) (expr.Expr, error) {
	terms := make([]expr.Term, len(items))
	for i, item := range items {
		t, err := reg.resolveTerm(item)
		if err != nil {
			return expr.Expr{}, fmt.Errorf("item %d: %w", i, err)
		}
		terms[i] = t
	}
	return expr.New(terms...), nil
}

func (reg *Registry) resolveTerm(item any) (expr.Term, error) {
	if s, ok := item.(string); ok {
		switch {
		case strings.HasPrefix(s, "fn:"):
			name := strings.TrimPrefix(s, "fn:")
			f, ok := reg.funcs[name]
			if !ok {
				return nil, fmt.Errorf("unknown predicate %q", name)
			}
			return f, nil
		case strings.HasPrefix(s, "tag:"):
			return reg.Tag(strings.TrimPrefix(s, "tag:")), nil
		}
	}
	return expr.NormalizeTerm(item)
}

// Default returns a registry preloaded with the demo predicates used by the
// bundled scenarios and the CLI.
func Default() *Registry {
	reg := NewRegistry()

	reg.RegisterFunc("double", expr.NewFunc("double", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("double: want 1 arg, got %d", len(args))
		}
		v, err := ev.Spy(expr.New(args[0]))
		if err != nil {
			return nil, err
		}
		n, ok := asInt64(v)
		if !ok {
			return nil, fmt.Errorf("double: %v is not an integer", v)
		}
		return n * 2, nil
	}))

	reg.RegisterFunc("sum", expr.NewFunc("sum", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		var total int64
		for _, arg := range args {
			v, err := ev.Spy(expr.New(arg))
			if err != nil {
				return nil, err
			}
			n, ok := asInt64(v)
			if !ok {
				return nil, fmt.Errorf("sum: %v is not an integer", v)
			}
			total += n
		}
		return total, nil
	}))

	reg.RegisterFunc("concat", expr.NewFunc("concat", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		var b strings.Builder
		for _, arg := range args {
			v, err := ev.Spy(expr.New(arg))
			if err != nil {
				return nil, err
			}
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("concat: %v is not a string", v)
			}
			b.WriteString(s)
		}
		return b.String(), nil
	}))

	reg.RegisterFunc("upper", expr.NewFunc("upper", func(ev expr.Evaluator, args ...expr.Term) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("upper: want 1 arg, got %d", len(args))
		}
		v, err := ev.Spy(expr.New(args[0]))
		if err != nil {
			return nil, err
		}
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("upper: %v is not a string", v)
		}
		return strings.ToUpper(s), nil
	}))

	return reg
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}
