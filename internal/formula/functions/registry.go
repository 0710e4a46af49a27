// Package functions is the formula function registry (spec 4.4, 6.4
// category lists). Grounded on the teacher's builtins table
// (interpreter/builtins.go: a name -> descriptor map populated by
// per-category init() registration functions) generalized from
// general-purpose builtins (print, len, map) to spreadsheet functions
// operating on rectangular Value arrays instead of scalar script values.
package functions

import (
	"fmt"

	"gridcore/internal/grid"
)

// Value is a rectangular block of cells passed to and returned from a
// function, the functions package's view of eval.Array kept separate so
// this package never imports the evaluator (avoiding an import cycle:
// eval calls functions, not the reverse).
type Value struct {
	Width, Height int
	Cells         []grid.CellValue
}

func Scalar(v grid.CellValue) Value { return Value{Width: 1, Height: 1, Cells: []grid.CellValue{v}} }

func (v Value) First() grid.CellValue {
	if len(v.Cells) == 0 {
		return grid.Blank()
	}
	return v.Cells[0]
}

func (v Value) IsScalar() bool { return v.Width == 1 && v.Height == 1 }

// EvalContext carries the evaluation-mode flags passed to a function
// body. CondFormat is set while a conditional-format rule is evaluated;
// none of the registered functions reads it.
type EvalContext struct {
	CondFormat bool
}

// Fn is one registered function. MinArgs/MaxArgs declare its arity,
// which the evaluator enforces through CheckArity before Call; checks of
// argument shape are left to each implementation.
type Fn struct {
	Name     string
	MinArgs  int
	MaxArgs  int // -1 means unbounded
	Category string
	Call     func(args []Value, ctx EvalContext) (Value, error)
}

var registry = map[string]Fn{}

func register(fn Fn) {
	if _, exists := registry[fn.Name]; exists {
		panic("functions: duplicate registration for " + fn.Name)
	}
	registry[fn.Name] = fn
}

// Lookup resolves a formula function name (already upper-cased by the
// caller) to its descriptor.
func Lookup(name string) (Fn, bool) {
	fn, ok := registry[name]
	return fn, ok
}

// CheckArity returns an error for a call whose argument count falls
// outside [fn.MinArgs, fn.MaxArgs] (MaxArgs < 0 means unbounded); the
// evaluator reports it as a MissingRequiredArgument cell error. The
// evaluator calls this once before Call so every
// Fn body can assume its declared arity already holds.
func (fn Fn) CheckArity(args []Value) error {
	n := len(args)
	if n < fn.MinArgs || (fn.MaxArgs >= 0 && n > fn.MaxArgs) {
		return fmt.Errorf("%s: expected between %d and %d arguments, got %d", fn.Name, fn.MinArgs, fn.MaxArgs, n)
	}
	return nil
}

// flattenNumbers collects every numeric cell across args, skipping
// blanks (not coercing them to zero) and text, matching the "ignore
// non-numeric, ignore blank" rule most statistics functions use for
// their range arguments (spec 6.4 statistics category).
func flattenNumbers(args []Value) []float64 {
	var out []float64
	for _, a := range args {
		for _, c := range a.Cells {
			if c.IsNumeric() {
				f, _ := c.Number.Float64()
				out = append(out, f)
			}
		}
	}
	return out
}
