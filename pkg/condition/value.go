package condition

import (
	"strconv"
	"strings"
)

// Kind tags the dynamic type of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	default:
		return "null"
	}
}

// Value is the result of evaluating an expression node.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
}

// Null is the zero Value.
var Null = Value{}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps a float.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Kind returns the tag of the value.
func (v Value) Kind() Kind { return v.kind }

// Truthy reports whether the value counts as true in a boolean position.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		switch strings.ToLower(strings.TrimSpace(v.s)) {
		case "", "false", "0", "no":
			return false
		}
		return true
	default:
		return false
	}
}

// number returns the numeric interpretation of v, if it has one.
func (v Value) number() (float64, bool) {
	switch v.kind {
	case KindNumber:
		return v.n, true
	case KindString:
		t := strings.TrimSpace(v.s)
		if !isDecimal(t) {
			return 0, false
		}
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// isDecimal reports whether s is a plain decimal numeral such as "-12" or
// "3.50". Exponents, hex, Inf and NaN are not numbers for a subscriber.
func isDecimal(s string) bool {
	if s != "" && (s[0] == '+' || s[0] == '-') {
		s = s[1:]
	}
	digits, dot := 0, false
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c >= '0' && c <= '9':
			digits++
		case c == '.' && !dot && digits > 0 && i < len(s)-1:
			dot = true
		default:
			return false
		}
	}
	return digits > 0
}

// text returns the string interpretation of v.
func (v Value) text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return ""
}

func (v Value) String() string {
	if v.kind == KindString {
		return strconv.Quote(v.s)
	}
	if v.kind == KindNull {
		return "nil"
	}
	return v.text()
}

// Scope maps identifiers to values during evaluation.
type Scope map[string]Value

// ScopeFrom builds a Scope holding each variable as a string value.
func ScopeFrom(vars map[string]string) Scope {
	s := make(Scope, len(vars)+4)
	for k, v := range vars {
		s[k] = String(v)
	}
	return s
}
