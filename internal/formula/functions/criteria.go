package functions

import (
	"strconv"
	"strings"

	"gridcore/internal/grid"
)

func init() {
	register(Fn{Name: "COUNTIF", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnCountif})
	register(Fn{Name: "COUNTIFS", MinArgs: 2, MaxArgs: -1, Category: "statistics", Call: fnCountifs})
	register(Fn{Name: "AVERAGEIF", MinArgs: 2, MaxArgs: 3, Category: "statistics", Call: fnAverageif})
	register(Fn{Name: "AVERAGEIFS", MinArgs: 3, MaxArgs: -1, Category: "statistics", Call: fnAverageifs})
	register(Fn{Name: "MAXIFS", MinArgs: 3, MaxArgs: -1, Category: "statistics", Call: fnMaxifs})
	register(Fn{Name: "MINIFS", MinArgs: 3, MaxArgs: -1, Category: "statistics", Call: fnMinifs})
}

// matchCriteria implements the shared *IF/*IFS criteria grammar: a bare
// value means equality, a leading comparison operator (">", "<", ">=",
// "<=", "<>", "=") drives a numeric or text comparison, and anything
// else (including "?"/"*") falls back to the FIND/SEARCH wildcard
// matcher, the same one COUNTIF's Excel counterpart documents.
func matchCriteria(cell grid.CellValue, criteria grid.CellValue) bool {
	text := criteria.ToDisplay()
	for _, op := range []string{">=", "<=", "<>", ">", "<", "="} {
		if strings.HasPrefix(text, op) {
			rhs := strings.TrimSpace(strings.TrimPrefix(text, op))
			return compareCriteria(cell, rhs, op)
		}
	}
	if strings.ContainsAny(text, "?*") {
		re, err := wildcardToRegexp(text)
		if err == nil {
			return re.MatchString(cell.ToDisplay())
		}
	}
	return compareValuesForMatch(cell, criteria) == 0
}

func compareCriteria(cell grid.CellValue, rhs, op string) bool {
	var cmp int
	if f, err := strconv.ParseFloat(rhs, 64); err == nil && cell.IsNumeric() {
		cf, _ := cell.Number.Float64()
		switch {
		case cf < f:
			cmp = -1
		case cf > f:
			cmp = 1
		default:
			cmp = 0
		}
	} else {
		cmp = strings.Compare(strings.ToLower(cell.ToDisplay()), strings.ToLower(rhs))
	}
	switch op {
	case ">":
		return cmp > 0
	case "<":
		return cmp < 0
	case ">=":
		return cmp >= 0
	case "<=":
		return cmp <= 0
	case "<>":
		return cmp != 0
	default:
		return cmp == 0
	}
}

func fnCountif(args []Value, ctx EvalContext) (Value, error) {
	rng := args[0]
	criteria := args[1].First()
	n := 0
	for _, c := range rng.Cells {
		if matchCriteria(c, criteria) {
			n++
		}
	}
	return Scalar(grid.NumberFromInt(int64(n))), nil
}

// criteriaMask builds a per-row pass/fail mask from a flat (range,
// criteria) pair list, all of which must share one shape with the
// aggregated range (Excel's *IFS contract).
func criteriaMask(size int, pairs []Value) []bool {
	mask := make([]bool, size)
	for i := range mask {
		mask[i] = true
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		rng := pairs[i]
		crit := pairs[i+1].First()
		for j := 0; j < size && j < len(rng.Cells); j++ {
			if !matchCriteria(rng.Cells[j], crit) {
				mask[j] = false
			}
		}
	}
	return mask
}

func fnCountifs(args []Value, ctx EvalContext) (Value, error) {
	size := args[0].Width * args[0].Height
	mask := criteriaMask(size, args)
	n := 0
	for _, ok := range mask {
		if ok {
			n++
		}
	}
	return Scalar(grid.NumberFromInt(int64(n))), nil
}

func fnAverageif(args []Value, ctx EvalContext) (Value, error) {
	rng := args[0]
	criteria := args[1].First()
	sumRange := rng
	if len(args) == 3 {
		sumRange = args[2]
	}
	sum := 0.0
	count := 0
	for i, c := range rng.Cells {
		if i >= len(sumRange.Cells) {
			break
		}
		if matchCriteria(c, criteria) && sumRange.Cells[i].IsNumeric() {
			f, _ := sumRange.Cells[i].Number.Float64()
			sum += f
			count++
		}
	}
	if count == 0 {
		return Value{}, grid.RunError{Kind: grid.ErrDivideByZero, Msg: "AVERAGEIF: no matches"}
	}
	return numResult(sum / float64(count))
}

func fnAverageifs(args []Value, ctx EvalContext) (Value, error) {
	sumRange := args[0]
	mask := criteriaMask(len(sumRange.Cells), args[1:])
	sum := 0.0
	count := 0
	for i, ok := range mask {
		if ok && sumRange.Cells[i].IsNumeric() {
			f, _ := sumRange.Cells[i].Number.Float64()
			sum += f
			count++
		}
	}
	if count == 0 {
		return Value{}, grid.RunError{Kind: grid.ErrDivideByZero, Msg: "AVERAGEIFS: no matches"}
	}
	return numResult(sum / float64(count))
}

func fnMaxifs(args []Value, ctx EvalContext) (Value, error) {
	valRange := args[0]
	mask := criteriaMask(len(valRange.Cells), args[1:])
	best := 0.0
	found := false
	for i, ok := range mask {
		if ok && valRange.Cells[i].IsNumeric() {
			f, _ := valRange.Cells[i].Number.Float64()
			if !found || f > best {
				best = f
				found = true
			}
		}
	}
	return numResult(best)
}

func fnMinifs(args []Value, ctx EvalContext) (Value, error) {
	valRange := args[0]
	mask := criteriaMask(len(valRange.Cells), args[1:])
	best := 0.0
	found := false
	for i, ok := range mask {
		if ok && valRange.Cells[i].IsNumeric() {
			f, _ := valRange.Cells[i].Number.Float64()
			if !found || f < best {
				best = f
				found = true
			}
		}
	}
	return numResult(best)
}
