package functions

import (
	"strings"

	"gridcore/internal/grid"
)

func init() {
	register(Fn{Name: "VLOOKUP", MinArgs: 3, MaxArgs: 4, Category: "lookup", Call: fnVlookup})
	register(Fn{Name: "HLOOKUP", MinArgs: 3, MaxArgs: 4, Category: "lookup", Call: fnHlookup})
	register(Fn{Name: "INDEX", MinArgs: 2, MaxArgs: 3, Category: "lookup", Call: fnIndex})
	register(Fn{Name: "MATCH", MinArgs: 2, MaxArgs: 3, Category: "lookup", Call: fnMatch})
}

func valuesEqual(a, b grid.CellValue) bool {
	return compareValuesForMatch(a, b) == 0
}

// compareValuesForMatch mirrors eval.compareValues' ladder (numeric,
// then case-insensitive text) without importing the eval package, which
// would create an eval <-> functions import cycle.
func compareValuesForMatch(l, r grid.CellValue) int {
	if l.IsNumeric() && r.IsNumeric() {
		return l.Number.Cmp(r.Number)
	}
	ls, rs := strings.ToLower(l.ToDisplay()), strings.ToLower(r.ToDisplay())
	switch {
	case ls < rs:
		return -1
	case ls > rs:
		return 1
	default:
		return 0
	}
}

func fnVlookup(args []Value, ctx EvalContext) (Value, error) {
	key := args[0].First()
	table := args[1]
	col := int(args[2].First().NumericOrZero().IntPart())
	approximate := len(args) < 4 || args[3].First().Truthy()
	if col < 1 || col > table.Width {
		return Value{}, grid.RunError{Kind: grid.ErrInvalidArgument, Msg: "VLOOKUP: column index out of range"}
	}
	rowAt := func(r int) grid.CellValue { return table.Cells[r*table.Width] }
	match := -1
	if approximate {
		best := -1
		for r := 0; r < table.Height; r++ {
			if compareValuesForMatch(rowAt(r), key) <= 0 {
				best = r
			}
		}
		match = best
	} else {
		for r := 0; r < table.Height; r++ {
			if valuesEqual(rowAt(r), key) {
				match = r
				break
			}
		}
	}
	if match < 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "VLOOKUP: no match"}
	}
	return Scalar(table.Cells[match*table.Width+(col-1)]), nil
}

func fnHlookup(args []Value, ctx EvalContext) (Value, error) {
	key := args[0].First()
	table := args[1]
	row := int(args[2].First().NumericOrZero().IntPart())
	approximate := len(args) < 4 || args[3].First().Truthy()
	if row < 1 || row > table.Height {
		return Value{}, grid.RunError{Kind: grid.ErrInvalidArgument, Msg: "HLOOKUP: row index out of range"}
	}
	colAt := func(c int) grid.CellValue { return table.Cells[c] }
	match := -1
	if approximate {
		best := -1
		for c := 0; c < table.Width; c++ {
			if compareValuesForMatch(colAt(c), key) <= 0 {
				best = c
			}
		}
		match = best
	} else {
		for c := 0; c < table.Width; c++ {
			if valuesEqual(colAt(c), key) {
				match = c
				break
			}
		}
	}
	if match < 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "HLOOKUP: no match"}
	}
	return Scalar(table.Cells[(row-1)*table.Width+match]), nil
}

func fnIndex(args []Value, ctx EvalContext) (Value, error) {
	table := args[0]
	row := int(args[1].First().NumericOrZero().IntPart())
	col := 1
	if len(args) == 3 {
		col = int(args[2].First().NumericOrZero().IntPart())
	}
	if table.Height == 1 && len(args) == 2 {
		// INDEX(range, n) over a single row indexes by column position.
		col = row
		row = 1
	}
	if row < 1 || row > table.Height || col < 1 || col > table.Width {
		return Value{}, grid.RunError{Kind: grid.ErrInvalidArgument, Msg: "INDEX: subscript out of range"}
	}
	return Scalar(table.Cells[(row-1)*table.Width+(col-1)]), nil
}

func fnMatch(args []Value, ctx EvalContext) (Value, error) {
	key := args[0].First()
	arr := args[1]
	matchType := 1
	if len(args) == 3 {
		matchType = int(args[2].First().NumericOrZero().IntPart())
	}
	switch matchType {
	case 0:
		for i, c := range arr.Cells {
			if valuesEqual(c, key) {
				return Scalar(grid.NumberFromInt(int64(i + 1))), nil
			}
		}
	case 1:
		best := -1
		for i, c := range arr.Cells {
			if compareValuesForMatch(c, key) <= 0 {
				best = i
			}
		}
		if best >= 0 {
			return Scalar(grid.NumberFromInt(int64(best + 1))), nil
		}
	case -1:
		best := -1
		for i, c := range arr.Cells {
			if compareValuesForMatch(c, key) >= 0 {
				best = i
			}
		}
		if best >= 0 {
			return Scalar(grid.NumberFromInt(int64(best + 1))), nil
		}
	}
	return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "MATCH: no match"}
}
