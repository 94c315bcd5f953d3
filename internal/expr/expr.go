package expr

import (
	"fmt"
	"strings"
	"sync"
)

// Expr is a canonical, immutable, ordered sequence of terms. The head term
// is the predicate; the remainder are arguments.
//
// Expr is a small value type sharing its backing data; copying is cheap.
// Two expressions are equal iff their term sequences are element-wise equal
// under TermEqual. The 64-bit hash and the content-addressed digest are
// computed once at construction.
type Expr struct {
	d *exprData
}

type exprData struct {
	terms  []Term
	canon  []byte
	hash   uint64
	digest string
}

var (
	emptyDataOnce sync.Once
	emptyDataVal  *exprData
)

func emptyDataInit() *exprData {
	emptyDataOnce.Do(func() {
		canon := canonicalBytes(nil)
		emptyDataVal = &exprData{canon: canon, hash: hashBytes(canon), digest: digestBytes(canon)}
	})
	return emptyDataVal
}

// New builds an expression from terms. The slice is copied.
func New(terms ...Term) Expr {
	if len(terms) == 0 {
		return Expr{d: emptyDataInit()}
	}
	ts := make([]Term, len(terms))
	copy(ts, terms)
	canon := canonicalBytes(ts)
	return Expr{d: &exprData{
		terms:  ts,
		canon:  canon,
		hash:   hashBytes(canon),
		digest: digestBytes(canon),
	}}
}

// Prepend builds a new expression with head in front of e's terms.
// Used by the async bridge to wrap expressions in bookkeeping heads.
func Prepend(head Term, e Expr) Expr {
	terms := make([]Term, 0, e.Len()+1)
	terms = append(terms, head)
	terms = append(terms, e.terms()...)
	return New(terms...)
}

func (e Expr) data() *exprData {
	if e.d == nil {
		return emptyDataInit()
	}
	return e.d
}

func (e Expr) terms() []Term {
	return e.data().terms
}

// Len returns the number of terms.
func (e Expr) Len() int { return len(e.terms()) }

// IsZero reports whether the expression has no terms.
func (e Expr) IsZero() bool { return e.Len() == 0 }

// Head returns the first term, or nil for an empty expression.
func (e Expr) Head() Term {
	ts := e.terms()
	if len(ts) == 0 {
		return nil
	}
	return ts[0]
}

// Term returns the i'th term.
func (e Expr) Term(i int) Term { return e.terms()[i] }

// Args returns a copy of the terms after the head.
func (e Expr) Args() []Term {
	ts := e.terms()
	if len(ts) <= 1 {
		return nil
	}
	args := make([]Term, len(ts)-1)
	copy(args, ts[1:])
	return args
}

// Terms returns a copy of all terms.
func (e Expr) Terms() []Term {
	ts := e.terms()
	out := make([]Term, len(ts))
	copy(out, ts)
	return out
}

// Hash returns the precomputed 64-bit hash of the canonical encoding.
func (e Expr) Hash() uint64 { return e.data().hash }

// Digest returns the domain-separated SHA-256 digest of the canonical
// encoding, hex-encoded. Digests are the content-addressed identity used to
// key subscriber tables and recursion membership.
func (e Expr) Digest() string { return e.data().digest }

// Equal reports element-wise structural equality.
func (e Expr) Equal(o Expr) bool {
	a, b := e.data(), o.data()
	if a == b {
		return true
	}
	if a.hash != b.hash || len(a.terms) != len(b.terms) {
		return false
	}
	for i := range a.terms {
		if !TermEqual(a.terms[i], b.terms[i]) {
			return false
		}
	}
	return true
}

// String renders the expression for logs and errors, e.g. `[double "x" 42]`.
func (e Expr) String() string {
	var b strings.Builder
	b.WriteByte('[')
	for i, t := range e.terms() {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatTerm(t))
	}
	b.WriteByte(']')
	return b.String()
}

func formatTerm(t Term) string {
	switch tt := t.(type) {
	case String:
		return fmt.Sprintf("%q", string(tt))
	case Int:
		return fmt.Sprintf("%d", int64(tt))
	case Bool:
		return fmt.Sprintf("%t", bool(tt))
	case Null:
		return "null"
	case *Tag:
		return tt.name
	case *Func:
		return tt.name
	case *AsyncFunc:
		return tt.name + "!"
	case *DerivativeID:
		return fmt.Sprintf("deriv(%s %s)", tt.creator, formatTerm(tt.key))
	default:
		return fmt.Sprintf("%v", t)
	}
}
