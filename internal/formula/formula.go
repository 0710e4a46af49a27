// Package formula is the public face of the formula engine: parsing
// formula text to an AST, evaluating it, and the critical
// adjust_references contract conditional formatting depends on (spec
// 4.4). Subpackages (token, lexer, ast, parser, eval, functions) do the
// actual work; this file wires them together the way the teacher's
// top-level interpreter.go wires its lexer/parser/evaluator trio
// together behind one entry point.
package formula

import (
	"fmt"
	"strings"

	"gridcore/internal/a1"
	"gridcore/internal/formula/ast"
	"gridcore/internal/formula/eval"
	"gridcore/internal/formula/parser"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

// Ctx re-exports eval.Ctx so callers outside the formula package only
// ever import this package, not its internal subpackages.
type Ctx = eval.Ctx

// Parse parses formula text (without its leading "=") into an AST,
// returning a combined error if the parser accumulated any.
func Parse(text string) (ast.Expression, error) {
	expr, errs := parser.ParseFormula(text)
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return expr, fmt.Errorf("formula: %s", strings.Join(msgs, "; "))
	}
	return expr, nil
}

// Eval parses and evaluates formula text in one step, returning a
// RunError CellValue (not a Go error) for any evaluation failure, since
// formula errors are data that lives in a cell rather than aborting the
// caller (spec 7).
func Eval(text string, ctx *Ctx) grid.CellValue {
	expr, err := Parse(text)
	if err != nil {
		return grid.Error(grid.ErrInvalidArgument, err.Error())
	}
	v, err := eval.Eval(expr, ctx)
	if err != nil {
		return grid.Error(grid.ErrInvalidArgument, err.Error())
	}
	return v
}

// AdjustReferences shifts every relative reference in formula text by
// (dx, dy), leaving absolute axes untouched. This is the sole mechanism
// conditional-format rule translation uses to re-anchor a rule written
// against one cell onto another cell in the same range (spec 4.4
// "critical contract", spec 6 conditional formatting anchor/translation
// rule).
func AdjustReferences(text string, dx, dy int64) (string, error) {
	expr, err := Parse(text)
	if err != nil {
		return "", err
	}
	shifted := shiftNode(expr, dx, dy)
	return Print(shifted), nil
}

func shiftNode(node ast.Expression, dx, dy int64) ast.Expression {
	switch n := node.(type) {
	case *ast.Reference:
		shifted := *n
		shifted.Range = n.Range.Translate(dx, dy)
		return &shifted
	case *ast.BinaryOp:
		shifted := *n
		shifted.Left = shiftNode(n.Left, dx, dy)
		shifted.Right = shiftNode(n.Right, dx, dy)
		return &shifted
	case *ast.UnaryOp:
		shifted := *n
		shifted.Operand = shiftNode(n.Operand, dx, dy)
		return &shifted
	case *ast.FunctionCall:
		shifted := *n
		shifted.Args = make([]ast.Expression, len(n.Args))
		for i, a := range n.Args {
			shifted.Args[i] = shiftNode(a, dx, dy)
		}
		return &shifted
	case *ast.ArrayLiteral:
		shifted := *n
		shifted.Rows = make([][]ast.Expression, len(n.Rows))
		for i, row := range n.Rows {
			newRow := make([]ast.Expression, len(row))
			for j, c := range row {
				newRow[j] = shiftNode(c, dx, dy)
			}
			shifted.Rows[i] = newRow
		}
		return &shifted
	default:
		return node
	}
}

// Print renders an AST back to formula text. Reference nodes print
// through a1's canonical formatter rather than the node's original
// token literal, so a shifted reference's text reflects its new
// position instead of the text it was parsed from.
func Print(node ast.Expression) string {
	var b strings.Builder
	printNode(node, &b)
	return b.String()
}

func printNode(node ast.Expression, b *strings.Builder) {
	switch n := node.(type) {
	case *ast.Reference:
		if n.SheetName != "" {
			b.WriteString(a1.QuoteSheetName(n.SheetName))
			b.WriteString("!")
		}
		b.WriteString(n.Range.String())
	case *ast.BinaryOp:
		b.WriteString("(")
		printNode(n.Left, b)
		b.WriteString(n.Op)
		printNode(n.Right, b)
		b.WriteString(")")
	case *ast.UnaryOp:
		if n.Postfix {
			printNode(n.Operand, b)
			b.WriteString(n.Op)
		} else {
			b.WriteString(n.Op)
			printNode(n.Operand, b)
		}
	case *ast.FunctionCall:
		b.WriteString(n.Name)
		b.WriteString("(")
		for i, a := range n.Args {
			if i > 0 {
				b.WriteString(",")
			}
			printNode(a, b)
		}
		b.WriteString(")")
	case *ast.ArrayLiteral:
		b.WriteString("{")
		for i, row := range n.Rows {
			if i > 0 {
				b.WriteString(";")
			}
			for j, c := range row {
				if j > 0 {
					b.WriteString(",")
				}
				printNode(c, b)
			}
		}
		b.WriteString("}")
	default:
		b.WriteString(node.String())
	}
}

// CellLookup resolves a cross-sheet absolute cell lookup from
// within an evaluation, the shape eval.Ctx.GetCell implementations
// follow (spec 4.4 get_cell_for_formula).
type CellLookup func(sp geom.SheetPos) grid.CellValue
