// Package ast defines the formula abstract syntax tree (spec 4.4
// "Lexing & parsing"). The Node/Expression split and the concrete node
// shapes mirror the teacher's ast.go (TokenLiteral/String on every node,
// Prefix/Infix expression wrappers), narrowed to the expression-only
// grammar a formula is: there are no statements, only one expression
// tree per cell.
package ast

import (
	"strings"

	"gridcore/internal/a1"
	"gridcore/internal/formula/token"
)

type Node interface {
	TokenLiteral() string
	String() string
}

type Expression interface {
	Node
	expressionNode()
}

// NumberLiteral is a decimal or scientific-notation numeric literal.
type NumberLiteral struct {
	Token token.Token
	Value string // kept as text; the evaluator parses it into decimal.Decimal
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *NumberLiteral) String() string       { return n.Value }

// StringLiteral is a double-quoted formula string.
type StringLiteral struct {
	Token token.Token
	Value string
}

func (n *StringLiteral) expressionNode()      {}
func (n *StringLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *StringLiteral) String() string       { return `"` + strings.ReplaceAll(n.Value, `"`, `""`) + `"` }

// Reference is a parsed CellRefRange, either a plain sheet range or (via
// a1.TableRange) a structured table reference (spec 3.3).
type Reference struct {
	Token     token.Token
	SheetName string // "" means unqualified (use the evaluation context's current sheet)
	Range     a1.CellRefRange
}

func (n *Reference) expressionNode()      {}
func (n *Reference) TokenLiteral() string { return n.Token.Literal }
func (n *Reference) String() string       { return n.Token.Literal }

// FunctionCall is a named function applied to argument expressions
// (spec 4.4 FunctionCall(name, args)).
type FunctionCall struct {
	Token token.Token
	Name  string
	Args  []Expression
}

func (n *FunctionCall) expressionNode()      {}
func (n *FunctionCall) TokenLiteral() string { return n.Token.Literal }
func (n *FunctionCall) String() string {
	args := make([]string, len(n.Args))
	for i, a := range n.Args {
		args[i] = a.String()
	}
	return n.Name + "(" + strings.Join(args, ",") + ")"
}

// BinaryOp covers arithmetic, concatenation (&), and comparisons (spec
// 6.3 operator precedence table).
type BinaryOp struct {
	Token token.Token
	Op    string
	Left  Expression
	Right Expression
}

func (n *BinaryOp) expressionNode()      {}
func (n *BinaryOp) TokenLiteral() string { return n.Token.Literal }
func (n *BinaryOp) String() string {
	return "(" + n.Left.String() + n.Op + n.Right.String() + ")"
}

// UnaryOp covers unary minus/plus and the postfix percent operator.
type UnaryOp struct {
	Token    token.Token
	Op       string
	Operand  Expression
	Postfix  bool // true for `%`, which follows its operand
}

func (n *UnaryOp) expressionNode()      {}
func (n *UnaryOp) TokenLiteral() string { return n.Token.Literal }
func (n *UnaryOp) String() string {
	if n.Postfix {
		return n.Operand.String() + n.Op
	}
	return n.Op + n.Operand.String()
}

// ArrayLiteral is a `{row; row}` literal: rows separated by `;`,
// elements within a row separated by `,` (spec 6.3).
type ArrayLiteral struct {
	Token token.Token
	Rows  [][]Expression
}

func (n *ArrayLiteral) expressionNode()      {}
func (n *ArrayLiteral) TokenLiteral() string { return n.Token.Literal }
func (n *ArrayLiteral) String() string {
	rows := make([]string, len(n.Rows))
	for i, row := range n.Rows {
		cells := make([]string, len(row))
		for j, c := range row {
			cells[j] = c.String()
		}
		rows[i] = strings.Join(cells, ",")
	}
	return "{" + strings.Join(rows, ";") + "}"
}
