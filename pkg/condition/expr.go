package condition

import (
	"fmt"
	"strings"
)

// Expr is a node of a parsed condition.
// The set of implementations is closed; see Literal, Var, Not, Neg, And, Or and Compare.
type Expr interface {
	Eval(scope Scope) Value
	String() string
	sealed()
}

// Op is a binary comparison operator.
type Op string

const (
	OpEq         Op = "=="
	OpNe         Op = "!="
	OpLt         Op = "<"
	OpLe         Op = "<="
	OpGt         Op = ">"
	OpGe         Op = ">="
	OpContains   Op = "contains"
	OpStartsWith Op = "startsWith"
	OpEndsWith   Op = "endsWith"
)

// Literal is a constant.
type Literal struct {
	Val Value
}

// Var reads an identifier from the scope. Dotted names (a.b) are looked up verbatim.
type Var struct {
	Name string
}

// Not negates the truthiness of X.
type Not struct {
	X Expr
}

// Neg is arithmetic negation.
type Neg struct {
	X Expr
}

// And is short-circuit conjunction.
type And struct {
	L, R Expr
}

// Or is short-circuit disjunction.
type Or struct {
	L, R Expr
}

// Compare applies Op to L and R.
type Compare struct {
	Op   Op
	L, R Expr
}

func (Literal) sealed() {}
func (Var) sealed()     {}
func (Not) sealed()     {}
func (Neg) sealed()     {}
func (And) sealed()     {}
func (Or) sealed()      {}
func (Compare) sealed() {}

func (e Literal) Eval(Scope) Value { return e.Val }

func (e Var) Eval(scope Scope) Value {
	if v, ok := scope[e.Name]; ok {
		return v
	}
	return Null
}

func (e Not) Eval(scope Scope) Value { return Bool(!e.X.Eval(scope).Truthy()) }

func (e Neg) Eval(scope Scope) Value {
	n, ok := e.X.Eval(scope).number()
	if !ok {
		return Null
	}
	return Number(-n)
}

func (e And) Eval(scope Scope) Value {
	if !e.L.Eval(scope).Truthy() {
		return Bool(false)
	}
	return Bool(e.R.Eval(scope).Truthy())
}

func (e Or) Eval(scope Scope) Value {
	if e.L.Eval(scope).Truthy() {
		return Bool(true)
	}
	return Bool(e.R.Eval(scope).Truthy())
}

func (e Compare) Eval(scope Scope) Value {
	return Bool(compare(e.Op, e.L.Eval(scope), e.R.Eval(scope)))
}

func (e Literal) String() string { return e.Val.String() }
func (e Var) String() string     { return e.Name }
func (e Not) String() string     { return "!" + e.X.String() }
func (e Neg) String() string     { return "-" + e.X.String() }
func (e And) String() string     { return fmt.Sprintf("(%s && %s)", e.L, e.R) }
func (e Or) String() string      { return fmt.Sprintf("(%s || %s)", e.L, e.R) }
func (e Compare) String() string { return fmt.Sprintf("(%s %s %s)", e.L, e.Op, e.R) }

func compare(op Op, l, r Value) bool {
	switch op {
	case OpEq:
		return equal(l, r)
	case OpNe:
		return !equal(l, r)
	case OpContains:
		return l.kind != KindNull && strings.Contains(l.text(), r.text())
	case OpStartsWith:
		return l.kind != KindNull && strings.HasPrefix(l.text(), r.text())
	case OpEndsWith:
		return l.kind != KindNull && strings.HasSuffix(l.text(), r.text())
	}

	// Ordering: numeric when both sides read as decimals, lexical when both are plain strings.
	ln, lok := l.number()
	rn, rok := r.number()
	if lok && rok {
		switch op {
		case OpLt:
			return ln < rn
		case OpLe:
			return ln <= rn
		case OpGt:
			return ln > rn
		case OpGe:
			return ln >= rn
		}
		return false
	}
	if l.kind == KindString && r.kind == KindString {
		switch op {
		case OpLt:
			return l.s < r.s
		case OpLe:
			return l.s <= r.s
		case OpGt:
			return l.s > r.s
		case OpGe:
			return l.s >= r.s
		}
	}
	return false
}

func equal(l, r Value) bool {
	if l.kind == KindNull || r.kind == KindNull {
		return l.kind == r.kind
	}
	if l.kind == KindBool || r.kind == KindBool {
		return l.Truthy() == r.Truthy()
	}
	// Stored codes and PINs compare as text: "0000" is not "0".
	if l.kind == KindString && r.kind == KindString {
		return l.s == r.s
	}
	if ln, ok := l.number(); ok {
		if rn, ok := r.number(); ok {
			return ln == rn
		}
	}
	return l.text() == r.text()
}

// Eval evaluates e for truthiness. A nil expression is always true.
func Eval(e Expr, scope Scope) bool {
	if e == nil {
		return true
	}
	return e.Eval(scope).Truthy()
}

// Vars returns the identifiers referenced by e, in order of first appearance.
func Vars(e Expr) []string {
	var out []string
	seen := make(map[string]bool)
	var walk func(Expr)
	walk = func(e Expr) {
		switch n := e.(type) {
		case Var:
			if !seen[n.Name] {
				seen[n.Name] = true
				out = append(out, n.Name)
			}
		case Not:
			walk(n.X)
		case Neg:
			walk(n.X)
		case And:
			walk(n.L)
			walk(n.R)
		case Or:
			walk(n.L)
			walk(n.R)
		case Compare:
			walk(n.L)
			walk(n.R)
		}
	}
	if e != nil {
		walk(e)
	}
	return out
}
