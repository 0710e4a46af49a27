package functions

import "gridcore/internal/grid"

func init() {
	register(Fn{Name: "IF", MinArgs: 2, MaxArgs: 3, Category: "logical", Call: fnIf})
	register(Fn{Name: "AND", MinArgs: 1, MaxArgs: -1, Category: "logical", Call: fnAnd})
	register(Fn{Name: "OR", MinArgs: 1, MaxArgs: -1, Category: "logical", Call: fnOr})
	register(Fn{Name: "NOT", MinArgs: 1, MaxArgs: 1, Category: "logical", Call: fnNot})
	register(Fn{Name: "XOR", MinArgs: 1, MaxArgs: -1, Category: "logical", Call: fnXor})
	register(Fn{Name: "IFERROR", MinArgs: 2, MaxArgs: 2, Category: "logical", Call: fnIferror})
	register(Fn{Name: "IFNA", MinArgs: 2, MaxArgs: 2, Category: "logical", Call: fnIfna})
	register(Fn{Name: "TRUE", MinArgs: 0, MaxArgs: 0, Category: "logical", Call: fnTrue})
	register(Fn{Name: "FALSE", MinArgs: 0, MaxArgs: 0, Category: "logical", Call: fnFalse})
}

func fnIf(args []Value, ctx EvalContext) (Value, error) {
	cond := args[0].First().Truthy()
	if cond {
		return args[1], nil
	}
	if len(args) == 3 {
		return args[2], nil
	}
	return Scalar(grid.Logical(false)), nil
}

func fnAnd(args []Value, ctx EvalContext) (Value, error) {
	result := true
	for _, a := range args {
		for _, c := range a.Cells {
			if !c.Truthy() {
				result = false
			}
		}
	}
	return Scalar(grid.Logical(result)), nil
}

func fnOr(args []Value, ctx EvalContext) (Value, error) {
	result := false
	for _, a := range args {
		for _, c := range a.Cells {
			if c.Truthy() {
				result = true
			}
		}
	}
	return Scalar(grid.Logical(result)), nil
}

func fnNot(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Logical(!args[0].First().Truthy())), nil
}

func fnXor(args []Value, ctx EvalContext) (Value, error) {
	count := 0
	for _, a := range args {
		for _, c := range a.Cells {
			if c.Truthy() {
				count++
			}
		}
	}
	return Scalar(grid.Logical(count%2 == 1)), nil
}

func fnIferror(args []Value, ctx EvalContext) (Value, error) {
	if args[0].First().IsError() {
		return args[1], nil
	}
	return args[0], nil
}

func fnIfna(args []Value, ctx EvalContext) (Value, error) {
	v := args[0].First()
	if v.IsError() && v.Err.Kind == grid.ErrNotAvailable {
		return args[1], nil
	}
	return args[0], nil
}

func fnTrue(args []Value, ctx EvalContext) (Value, error)  { return Scalar(grid.Logical(true)), nil }
func fnFalse(args []Value, ctx EvalContext) (Value, error) { return Scalar(grid.Logical(false)), nil }
