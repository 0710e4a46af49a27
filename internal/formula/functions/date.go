package functions

import (
	"time"

	"gridcore/internal/grid"
)

func init() {
	register(Fn{Name: "TODAY", MinArgs: 0, MaxArgs: 0, Category: "date", Call: fnToday})
	register(Fn{Name: "NOW", MinArgs: 0, MaxArgs: 0, Category: "date", Call: fnNow})
	register(Fn{Name: "DATE", MinArgs: 3, MaxArgs: 3, Category: "date", Call: fnDate})
	register(Fn{Name: "YEAR", MinArgs: 1, MaxArgs: 1, Category: "date", Call: fnYear})
	register(Fn{Name: "MONTH", MinArgs: 1, MaxArgs: 1, Category: "date", Call: fnMonth})
	register(Fn{Name: "DAY", MinArgs: 1, MaxArgs: 1, Category: "date", Call: fnDay})
}

func dateOf(v grid.CellValue) time.Time {
	switch v.Kind {
	case grid.KindDate:
		return v.Date
	case grid.KindDateTime:
		return v.DateTime
	default:
		return time.Time{}
	}
}

func fnToday(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.CellValue{Kind: grid.KindDate, Date: time.Now().Truncate(24 * time.Hour)}), nil
}

func fnNow(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.CellValue{Kind: grid.KindDateTime, DateTime: time.Now()}), nil
}

func fnDate(args []Value, ctx EvalContext) (Value, error) {
	y := int(args[0].First().NumericOrZero().IntPart())
	m := int(args[1].First().NumericOrZero().IntPart())
	d := int(args[2].First().NumericOrZero().IntPart())
	t := time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
	return Scalar(grid.CellValue{Kind: grid.KindDate, Date: t}), nil
}

func fnYear(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.NumberFromInt(int64(dateOf(args[0].First()).Year()))), nil
}

func fnMonth(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.NumberFromInt(int64(dateOf(args[0].First()).Month()))), nil
}

func fnDay(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.NumberFromInt(int64(dateOf(args[0].First()).Day()))), nil
}
