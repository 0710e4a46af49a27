// Package eval tree-walks a formula AST to a grid.CellValue (spec 4.4
// "Evaluation semantics"). The dispatch shape is the teacher's
// Eval/evalNode split (interpreter/eval_core.go): a thin Eval wrapper
// that does bookkeeping around a type-switching evalNode, generalized
// from a full scripting-language node set down to the six expression
// kinds a formula AST has.
package eval

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"gridcore/internal/a1"
	"gridcore/internal/formula/ast"
	"gridcore/internal/formula/functions"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

// Ctx is the evaluation context a formula runs against: cell lookup
// scoped to the current sheet/position, and the conditional-format mode
// flag, which is passed through to every function call (spec 4.4, 6.4).
type Ctx struct {
	A1           a1.Context
	CurrentSheet geom.SheetID
	CurrentPos   geom.Pos
	CondFormat   bool

	// GetCell resolves a single absolute cell; GetRange resolves a
	// rectangular or unbounded range to a dense grid.CellValues block
	// clipped to the sheet's data bounds (spec 3.5/4.4).
	GetCell  func(sp geom.SheetPos) grid.CellValue
	GetRange func(sheetID geom.SheetID, rect geom.Rect) grid.CellValues
}

// Eval evaluates a formula expression to a single CellValue, collapsing
// any array result to its top-left element (spec 4.4 "scalar context").
func Eval(node ast.Expression, ctx *Ctx) (grid.CellValue, error) {
	v, err := evalNode(node, ctx)
	if err != nil {
		return grid.CellValue{}, err
	}
	return v.scalar(), nil
}

// EvalArray evaluates a formula expression preserving array shape, used
// by spill/array-formula callers (spec 4.4 array broadcasting).
func EvalArray(node ast.Expression, ctx *Ctx) (Array, error) {
	return evalNode(node, ctx)
}

// Array is a rectangular block of CellValue produced by evaluation. A
// scalar value is represented as a 1x1 Array.
type Array struct {
	Width, Height int
	Values        []grid.CellValue
}

func scalarArray(v grid.CellValue) Array {
	return Array{Width: 1, Height: 1, Values: []grid.CellValue{v}}
}

func (a Array) scalar() grid.CellValue {
	if len(a.Values) == 0 {
		return grid.Blank()
	}
	return a.Values[0]
}

func (a Array) at(x, y int) grid.CellValue {
	if a.Width == 1 && a.Height == 1 {
		return a.Values[0]
	}
	cx, cy := x, y
	if a.Width == 1 {
		cx = 0
	}
	if a.Height == 1 {
		cy = 0
	}
	if cx >= a.Width || cy >= a.Height {
		return grid.Error(grid.ErrNotAvailable, "out of range")
	}
	return a.Values[cy*a.Width+cx]
}

func evalNode(node ast.Expression, ctx *Ctx) (Array, error) {
	switch n := node.(type) {
	case *ast.NumberLiteral:
		d, err := decimal.NewFromString(n.Value)
		if err != nil {
			return Array{}, fmt.Errorf("eval: bad number literal %q: %w", n.Value, err)
		}
		return scalarArray(grid.Number(d)), nil
	case *ast.StringLiteral:
		return scalarArray(grid.Text(n.Value)), nil
	case *ast.Reference:
		return evalReference(n, ctx)
	case *ast.FunctionCall:
		return evalFunctionCall(n, ctx)
	case *ast.UnaryOp:
		return evalUnary(n, ctx)
	case *ast.BinaryOp:
		return evalBinary(n, ctx)
	case *ast.ArrayLiteral:
		return evalArrayLiteral(n, ctx)
	default:
		return Array{}, fmt.Errorf("eval: unhandled node type %T", node)
	}
}

func evalReference(n *ast.Reference, ctx *Ctx) (Array, error) {
	sheetID := ctx.CurrentSheet
	if n.SheetName != "" {
		id, ok := ctx.A1.SheetIDByName(n.SheetName)
		if !ok {
			return scalarArray(grid.Error(grid.ErrNotAvailable, "unknown sheet "+n.SheetName)), nil
		}
		sheetID = id
	}
	rect, ok := n.Range.ToRect(sheetID, ctx.A1)
	if !ok {
		rect = n.Range.LargestRectFinite(sheetID, ctx.A1)
	}
	if rect.Width() == 1 && rect.Height() == 1 {
		v := ctx.GetCell(geom.SheetPos{SheetID: sheetID, Pos: rect.Min})
		return scalarArray(v), nil
	}
	block := ctx.GetRange(sheetID, rect)
	return Array{Width: block.Width, Height: block.Height, Values: block.Values}, nil
}

func evalArrayLiteral(n *ast.ArrayLiteral, ctx *Ctx) (Array, error) {
	height := len(n.Rows)
	width := 0
	if height > 0 {
		width = len(n.Rows[0])
	}
	values := make([]grid.CellValue, 0, width*height)
	for _, row := range n.Rows {
		if len(row) != width {
			return Array{}, fmt.Errorf("eval: ragged array literal row")
		}
		for _, cell := range row {
			v, err := Eval(cell, ctx)
			if err != nil {
				return Array{}, err
			}
			values = append(values, v)
		}
	}
	return Array{Width: width, Height: height, Values: values}, nil
}

func evalUnary(n *ast.UnaryOp, ctx *Ctx) (Array, error) {
	operand, err := evalNode(n.Operand, ctx)
	if err != nil {
		return Array{}, err
	}
	return broadcastUnary(operand, func(v grid.CellValue) grid.CellValue {
		if v.IsError() {
			return v
		}
		num := v.NumericOrZero()
		switch n.Op {
		case "-":
			return grid.Number(num.Neg())
		case "+":
			return grid.Number(num)
		case "%":
			return grid.Number(num.Div(decimal.NewFromInt(100)))
		default:
			return grid.Error(grid.ErrInvalidArgument, "unknown unary operator "+n.Op)
		}
	}), nil
}

func evalFunctionCall(n *ast.FunctionCall, ctx *Ctx) (Array, error) {
	name := strings.ToUpper(n.Name)
	fn, ok := functions.Lookup(name)
	if !ok {
		return scalarArray(grid.Error(grid.ErrInvalidArgument, "unknown function "+n.Name)), nil
	}
	args := make([]functions.Value, len(n.Args))
	for i, argNode := range n.Args {
		arr, err := evalNode(argNode, ctx)
		if err != nil {
			return Array{}, err
		}
		args[i] = functions.Value{Width: arr.Width, Height: arr.Height, Cells: arr.Values}
	}
	if err := fn.CheckArity(args); err != nil {
		return scalarArray(grid.Error(grid.ErrMissingRequiredArg, err.Error())), nil
	}
	result, err := fn.Call(args, functions.EvalContext{CondFormat: ctx.CondFormat})
	if err != nil {
		if re, ok := err.(grid.RunError); ok {
			return scalarArray(grid.CellValue{Kind: grid.KindError, Err: re}), nil
		}
		return scalarArray(grid.Error(grid.ErrInvalidArgument, err.Error())), nil
	}
	return Array{Width: result.Width, Height: result.Height, Values: result.Cells}, nil
}

func evalBinary(n *ast.BinaryOp, ctx *Ctx) (Array, error) {
	left, err := evalNode(n.Left, ctx)
	if err != nil {
		return Array{}, err
	}
	right, err := evalNode(n.Right, ctx)
	if err != nil {
		return Array{}, err
	}
	return broadcastBinary(left, right, func(l, r grid.CellValue) grid.CellValue {
		return applyBinaryOp(n.Op, l, r)
	}), nil
}

// broadcastUnary/broadcastBinary implement spec 4.4's array zip-map
// rule: a 1x1 operand broadcasts against any shape; otherwise shapes
// must match and the op is applied element-wise.
func broadcastUnary(a Array, fn func(grid.CellValue) grid.CellValue) Array {
	out := make([]grid.CellValue, len(a.Values))
	for i, v := range a.Values {
		out[i] = fn(v)
	}
	return Array{Width: a.Width, Height: a.Height, Values: out}
}

func broadcastBinary(a, b Array, fn func(x, y grid.CellValue) grid.CellValue) Array {
	width := a.Width
	if b.Width > width {
		width = b.Width
	}
	height := a.Height
	if b.Height > height {
		height = b.Height
	}
	out := make([]grid.CellValue, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			out[y*width+x] = fn(a.at(x, y), b.at(x, y))
		}
	}
	return Array{Width: width, Height: height, Values: out}
}

func applyBinaryOp(op string, l, r grid.CellValue) grid.CellValue {
	if l.IsError() {
		return l
	}
	if r.IsError() {
		return r
	}
	switch op {
	case "+", "-", "*", "/", "^":
		return arithmetic(op, l, r)
	case "&":
		return grid.Text(l.ToDisplay() + r.ToDisplay())
	case "=", "<>", "<", ">", "<=", ">=":
		return compare(op, l, r)
	default:
		return grid.Error(grid.ErrInvalidArgument, "unknown operator "+op)
	}
}

func arithmetic(op string, l, r grid.CellValue) grid.CellValue {
	a := l.NumericOrZero()
	b := r.NumericOrZero()
	switch op {
	case "+":
		return grid.Number(a.Add(b))
	case "-":
		return grid.Number(a.Sub(b))
	case "*":
		return grid.Number(a.Mul(b))
	case "/":
		if b.IsZero() {
			return grid.Error(grid.ErrDivideByZero, "division by zero")
		}
		return grid.Number(a.Div(b))
	case "^":
		f, _ := b.Float64()
		return grid.Number(a.Pow(decimal.NewFromFloat(f)))
	default:
		return grid.Error(grid.ErrInvalidArgument, "unknown arithmetic operator "+op)
	}
}

// compare implements spec 4.4's comparison ladder: numbers compare
// numerically, text compares case-insensitively, blank compares as the
// empty string/zero, and a number is always "less than" any text value.
func compare(op string, l, r grid.CellValue) grid.CellValue {
	res := compareValues(l, r)
	var truth bool
	switch op {
	case "=":
		truth = res == 0
	case "<>":
		truth = res != 0
	case "<":
		truth = res < 0
	case ">":
		truth = res > 0
	case "<=":
		truth = res <= 0
	case ">=":
		truth = res >= 0
	}
	return grid.Logical(truth)
}

func compareValues(l, r grid.CellValue) int {
	lNum, lIsNum := numericValue(l)
	rNum, rIsNum := numericValue(r)
	if lIsNum && rIsNum {
		return lNum.Cmp(rNum)
	}
	if lIsNum != rIsNum {
		if lIsNum {
			return -1
		}
		return 1
	}
	ls := strings.ToLower(l.ToDisplay())
	rs := strings.ToLower(r.ToDisplay())
	switch {
	case ls < rs:
		return -1
	case ls > rs:
		return 1
	default:
		return 0
	}
}

func numericValue(v grid.CellValue) (decimal.Decimal, bool) {
	if v.IsBlank() {
		return decimal.Zero, true
	}
	if v.IsNumeric() {
		return v.NumericOrZero(), true
	}
	if v.Kind == grid.KindLogical {
		if v.Logical {
			return decimal.NewFromInt(1), true
		}
		return decimal.Zero, true
	}
	return decimal.Zero, false
}
