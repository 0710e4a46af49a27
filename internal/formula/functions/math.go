package functions

import (
	"math"

	"github.com/shopspring/decimal"

	"gridcore/internal/grid"
)

func init() {
	register(Fn{Name: "ABS", MinArgs: 1, MaxArgs: 1, Category: "math", Call: fnAbs})
	register(Fn{Name: "ROUND", MinArgs: 2, MaxArgs: 2, Category: "math", Call: fnRound})
	register(Fn{Name: "ROUNDUP", MinArgs: 2, MaxArgs: 2, Category: "math", Call: fnRoundUp})
	register(Fn{Name: "ROUNDDOWN", MinArgs: 2, MaxArgs: 2, Category: "math", Call: fnRoundDown})
	register(Fn{Name: "INT", MinArgs: 1, MaxArgs: 1, Category: "math", Call: fnInt})
	register(Fn{Name: "MOD", MinArgs: 2, MaxArgs: 2, Category: "math", Call: fnMod})
	register(Fn{Name: "SQRT", MinArgs: 1, MaxArgs: 1, Category: "math", Call: fnSqrt})
	register(Fn{Name: "POWER", MinArgs: 2, MaxArgs: 2, Category: "math", Call: fnPower})
	register(Fn{Name: "EXP", MinArgs: 1, MaxArgs: 1, Category: "math", Call: fnExp})
	register(Fn{Name: "LN", MinArgs: 1, MaxArgs: 1, Category: "math", Call: fnLn})
	register(Fn{Name: "LOG", MinArgs: 1, MaxArgs: 2, Category: "math", Call: fnLog})
	register(Fn{Name: "LOG10", MinArgs: 1, MaxArgs: 1, Category: "math", Call: fnLog10})
	register(Fn{Name: "PI", MinArgs: 0, MaxArgs: 0, Category: "math", Call: fnPi})
	register(Fn{Name: "SIGN", MinArgs: 1, MaxArgs: 1, Category: "math", Call: fnSign})
	register(Fn{Name: "TRUNC", MinArgs: 1, MaxArgs: 2, Category: "math", Call: fnTrunc})
}

func fnAbs(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Number(args[0].First().NumericOrZero().Abs())), nil
}

func fnRound(args []Value, ctx EvalContext) (Value, error) {
	n := args[1].First().NumericOrZero().IntPart()
	return Scalar(grid.Number(args[0].First().NumericOrZero().Round(int32(n)))), nil
}

func fnRoundUp(args []Value, ctx EvalContext) (Value, error) {
	n := int32(args[1].First().NumericOrZero().IntPart())
	x := args[0].First().NumericOrZero()
	scale := decimal.New(1, n)
	scaled := x.Mul(scale)
	rounded := scaled.Ceil()
	if scaled.Sign() < 0 {
		rounded = scaled.Floor()
	}
	return Scalar(grid.Number(rounded.Div(scale))), nil
}

func fnRoundDown(args []Value, ctx EvalContext) (Value, error) {
	n := int32(args[1].First().NumericOrZero().IntPart())
	x := args[0].First().NumericOrZero()
	scale := decimal.New(1, n)
	scaled := x.Mul(scale)
	var rounded decimal.Decimal
	if scaled.Sign() < 0 {
		rounded = scaled.Ceil()
	} else {
		rounded = scaled.Floor()
	}
	return Scalar(grid.Number(rounded.Div(scale))), nil
}

func fnInt(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Number(args[0].First().NumericOrZero().Floor())), nil
}

func fnMod(args []Value, ctx EvalContext) (Value, error) {
	a := args[0].First().NumericOrZero()
	b := args[1].First().NumericOrZero()
	if b.IsZero() {
		return Value{}, grid.RunError{Kind: grid.ErrDivideByZero, Msg: "MOD: division by zero"}
	}
	m := a.Mod(b)
	if m.Sign() != 0 && m.Sign() != b.Sign() {
		m = m.Add(b)
	}
	return Scalar(grid.Number(m)), nil
}

func fnSqrt(args []Value, ctx EvalContext) (Value, error) {
	f, _ := args[0].First().NumericOrZero().Float64()
	if f < 0 {
		return Value{}, errNum()
	}
	return numResult(math.Sqrt(f))
}

func fnPower(args []Value, ctx EvalContext) (Value, error) {
	base, _ := args[0].First().NumericOrZero().Float64()
	exp, _ := args[1].First().NumericOrZero().Float64()
	return numResult(math.Pow(base, exp))
}

func fnExp(args []Value, ctx EvalContext) (Value, error) {
	f, _ := args[0].First().NumericOrZero().Float64()
	return numResult(math.Exp(f))
}

func fnLn(args []Value, ctx EvalContext) (Value, error) {
	f, _ := args[0].First().NumericOrZero().Float64()
	if f <= 0 {
		return Value{}, errNum()
	}
	return numResult(math.Log(f))
}

func fnLog(args []Value, ctx EvalContext) (Value, error) {
	f, _ := args[0].First().NumericOrZero().Float64()
	base := 10.0
	if len(args) == 2 {
		base, _ = args[1].First().NumericOrZero().Float64()
	}
	if f <= 0 || base <= 0 || base == 1 {
		return Value{}, errNum()
	}
	return numResult(math.Log(f) / math.Log(base))
}

func fnLog10(args []Value, ctx EvalContext) (Value, error) {
	f, _ := args[0].First().NumericOrZero().Float64()
	if f <= 0 {
		return Value{}, errNum()
	}
	return numResult(math.Log10(f))
}

func fnPi(args []Value, ctx EvalContext) (Value, error) { return numResult(math.Pi) }

func fnSign(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.NumberFromInt(int64(args[0].First().NumericOrZero().Sign()))), nil
}

func fnTrunc(args []Value, ctx EvalContext) (Value, error) {
	n := int32(0)
	if len(args) == 2 {
		n = int32(args[1].First().NumericOrZero().IntPart())
	}
	x := args[0].First().NumericOrZero()
	scale := decimal.New(1, n)
	scaled := x.Mul(scale)
	var truncated decimal.Decimal
	if scaled.Sign() < 0 {
		truncated = scaled.Ceil()
	} else {
		truncated = scaled.Floor()
	}
	return Scalar(grid.Number(truncated.Div(scale))), nil
}
