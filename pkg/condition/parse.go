package condition

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
)

// Parse compiles a condition string into an expression tree.
// The surface syntax is the expr-lang grammar restricted to literals,
// identifiers, member access, !/not, unary minus, &&/and, ||/or, the six
// comparison operators and contains/startsWith/endsWith.
func Parse(src string) (Expr, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("empty condition")
	}

	tree, err := parser.Parse(src)
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", src, err)
	}

	e, err := convert(tree.Node)
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", src, err)
	}
	return e, nil
}

// MustParse is like Parse but panics on error. Intended for tests and static tables.
func MustParse(src string) Expr {
	e, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return e
}

func convert(n ast.Node) (Expr, error) {
	switch node := n.(type) {
	case *ast.NilNode:
		return Literal{Val: Null}, nil
	case *ast.BoolNode:
		return Literal{Val: Bool(node.Value)}, nil
	case *ast.IntegerNode:
		return Literal{Val: Number(float64(node.Value))}, nil
	case *ast.FloatNode:
		return Literal{Val: Number(node.Value)}, nil
	case *ast.StringNode:
		return Literal{Val: String(node.Value)}, nil
	case *ast.IdentifierNode:
		return Var{Name: node.Value}, nil
	case *ast.MemberNode:
		name, ok := memberPath(node)
		if !ok {
			return nil, fmt.Errorf("unsupported member access")
		}
		return Var{Name: name}, nil
	case *ast.UnaryNode:
		x, err := convert(node.Node)
		if err != nil {
			return nil, err
		}
		switch node.Operator {
		case "!", "not":
			return Not{X: x}, nil
		case "-":
			return Neg{X: x}, nil
		case "+":
			return x, nil
		}
		return nil, fmt.Errorf("unsupported unary operator %q", node.Operator)
	case *ast.BinaryNode:
		l, err := convert(node.Left)
		if err != nil {
			return nil, err
		}
		r, err := convert(node.Right)
		if err != nil {
			return nil, err
		}
		switch node.Operator {
		case "&&", "and":
			return And{L: l, R: r}, nil
		case "||", "or":
			return Or{L: l, R: r}, nil
		case "==", "!=", "<", "<=", ">", ">=", "contains", "startsWith", "endsWith":
			return Compare{Op: Op(node.Operator), L: l, R: r}, nil
		}
		return nil, fmt.Errorf("unsupported operator %q", node.Operator)
	}
	return nil, fmt.Errorf("unsupported expression %T", n)
}

// memberPath flattens a.b.c into the dotted identifier "a.b.c".
func memberPath(m *ast.MemberNode) (string, bool) {
	prop, ok := m.Property.(*ast.StringNode)
	if !ok {
		return "", false
	}
	switch base := m.Node.(type) {
	case *ast.IdentifierNode:
		return base.Value + "." + prop.Value, true
	case *ast.MemberNode:
		head, ok := memberPath(base)
		if !ok {
			return "", false
		}
		return head + "." + prop.Value, true
	}
	return "", false
}
