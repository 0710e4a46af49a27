package functions

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"gridcore/internal/grid"
)

func init() {
	register(Fn{Name: "SUM", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnSum})
	register(Fn{Name: "AVERAGE", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnAverage})
	register(Fn{Name: "COUNT", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnCount})
	register(Fn{Name: "COUNTA", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnCounta})
	register(Fn{Name: "COUNTBLANK", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnCountblank})
	register(Fn{Name: "MIN", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnMin})
	register(Fn{Name: "MAX", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnMax})
	register(Fn{Name: "MEDIAN", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnMedian})
	register(Fn{Name: "VAR.P", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: varCall(false)})
	register(Fn{Name: "VAR.S", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: varCall(true)})
	register(Fn{Name: "STDEV.P", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: stdevCall(false)})
	register(Fn{Name: "STDEV.S", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: stdevCall(true)})
	register(Fn{Name: "LARGE", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnLarge})
	register(Fn{Name: "SMALL", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnSmall})
	register(Fn{Name: "PERCENTILE.INC", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnPercentileInc})
	register(Fn{Name: "QUARTILE.INC", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnQuartileInc})
	register(Fn{Name: "MODE.SNGL", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnModeSngl})
	register(Fn{Name: "RANK.EQ", MinArgs: 2, MaxArgs: 3, Category: "statistics", Call: fnRankEq})
	register(Fn{Name: "CORREL", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnCorrel})
	register(Fn{Name: "PEARSON", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnCorrel})
	register(Fn{Name: "RSQ", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnRsq})
	register(Fn{Name: "SLOPE", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnSlope})
	register(Fn{Name: "INTERCEPT", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnIntercept})
	register(Fn{Name: "COVARIANCE.P", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: covCall(false)})
	register(Fn{Name: "COVARIANCE.S", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: covCall(true)})
	register(Fn{Name: "FORECAST.LINEAR", MinArgs: 3, MaxArgs: 3, Category: "statistics", Call: fnForecastLinear})
	register(Fn{Name: "PERCENTRANK.INC", MinArgs: 2, MaxArgs: 3, Category: "statistics", Call: fnPercentrankInc})
	register(Fn{Name: "AVEDEV", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnAvedev})
	register(Fn{Name: "DEVSQ", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnDevsq})
	register(Fn{Name: "GEOMEAN", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnGeomean})
	register(Fn{Name: "HARMEAN", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnHarmean})
	register(Fn{Name: "TRIMMEAN", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnTrimmean})
	register(Fn{Name: "SKEW", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnSkew})
	register(Fn{Name: "KURT", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnKurt})
	register(Fn{Name: "STANDARDIZE", MinArgs: 3, MaxArgs: 3, Category: "statistics", Call: fnStandardize})
	register(Fn{Name: "FISHER", MinArgs: 1, MaxArgs: 1, Category: "statistics", Call: fnFisher})
	register(Fn{Name: "FREQUENCY", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnFrequency})
	register(Fn{Name: "MAXA", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnMaxa})
	register(Fn{Name: "MINA", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnMina})
	register(Fn{Name: "AVERAGEA", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnAveragea})
	register(Fn{Name: "VARA", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: varaCall(true)})
	register(Fn{Name: "VARPA", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: varaCall(false)})
	register(Fn{Name: "STDEVA", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: stdevaCall(true)})
	register(Fn{Name: "STDEVPA", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: stdevaCall(false)})
	register(Fn{Name: "MODE.MULT", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnModeMult})
	register(Fn{Name: "PERCENTILE.EXC", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnPercentileExc})
	register(Fn{Name: "QUARTILE.EXC", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnQuartileExc})
	register(Fn{Name: "PERCENTRANK.EXC", MinArgs: 2, MaxArgs: 3, Category: "statistics", Call: fnPercentrankExc})
	register(Fn{Name: "COVAR", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: covCall(false)})
	register(Fn{Name: "FISHERINV", MinArgs: 1, MaxArgs: 1, Category: "statistics", Call: fnFisherinv})
	register(Fn{Name: "STEYX", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnSteyx})
	register(Fn{Name: "TREND", MinArgs: 1, MaxArgs: 3, Category: "statistics", Call: fnTrend})
	register(Fn{Name: "GROWTH", MinArgs: 1, MaxArgs: 3, Category: "statistics", Call: fnGrowth})

	// Bare legacy names spec 4.4 lists alongside their dotted/suffixed
	// siblings (e.g. "VAR/VAR.S/VAR.P"): pre-2010 Excel spellings kept
	// for compatibility, sharing the dotted form's implementation except
	// where the bare name denotes genuinely different math (RANK.AVG's
	// tie-averaging, SKEW.P's population moment).
	register(Fn{Name: "VAR", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: varCall(true)})
	register(Fn{Name: "STDEV", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: stdevCall(true)})
	register(Fn{Name: "PERCENTILE", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnPercentileInc})
	register(Fn{Name: "QUARTILE", MinArgs: 2, MaxArgs: 2, Category: "statistics", Call: fnQuartileInc})
	register(Fn{Name: "MODE", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnModeSngl})
	register(Fn{Name: "RANK", MinArgs: 2, MaxArgs: 3, Category: "statistics", Call: fnRankEq})
	register(Fn{Name: "RANK.AVG", MinArgs: 2, MaxArgs: 3, Category: "statistics", Call: fnRankAvg})
	register(Fn{Name: "FORECAST", MinArgs: 3, MaxArgs: 3, Category: "statistics", Call: fnForecastLinear})
	register(Fn{Name: "SKEW.P", MinArgs: 1, MaxArgs: -1, Category: "statistics", Call: fnSkewP})
}

// fnRankAvg is RANK.AVG: like RANK.EQ but ties share the average of the
// ranks they'd occupy instead of all taking the best one.
func fnRankAvg(args []Value, ctx EvalContext) (Value, error) {
	x, _ := args[0].First().Number.Float64()
	nums := flattenNumbers(args[1:2])
	ascending := len(args) == 3 && args[2].First().Truthy()
	better, equal := 0, 0
	for _, n := range nums {
		switch {
		case ascending && n < x, !ascending && n > x:
			better++
		case n == x:
			equal++
		}
	}
	if equal == 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "RANK.AVG: value not found"}
	}
	return numResult(float64(better+1) + float64(equal-1)/2)
}

// fnSkewP is SKEW.P: skewness computed from population moments (divide
// by n) rather than SKEW's sample moments (divide by n-1 in the
// standard-deviation term).
func fnSkewP(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	n := len(nums)
	if n < 2 {
		return Value{}, errNum()
	}
	m := mean(nums)
	var s2, s3 float64
	for _, x := range nums {
		d := x - m
		s2 += d * d
		s3 += d * d * d
	}
	fn := float64(n)
	m2 := s2 / fn
	if m2 == 0 {
		return Value{}, errNum()
	}
	return numResult((s3 / fn) / math.Pow(m2, 1.5))
}

// numericOrLogical treats numbers and booleans (as 1/0) as numeric and
// non-empty text as zero, skipping blanks and empty text: the
// "A"-suffixed statistics functions' broadened
// coercion rule (they count/average logicals and text-as-zero where
// the bare functions skip non-numeric cells entirely).
func numericOrLogical(cells []grid.CellValue) []float64 {
	out := make([]float64, 0, len(cells))
	for _, c := range cells {
		switch {
		case c.IsNumeric():
			f, _ := c.Number.Float64()
			out = append(out, f)
		case c.Kind == grid.KindLogical:
			if c.Logical {
				out = append(out, 1)
			} else {
				out = append(out, 0)
			}
		case c.Kind == grid.KindText && c.Text != "":
			out = append(out, 0)
		}
	}
	return out
}

func flattenA(args []Value) []float64 {
	var cells []grid.CellValue
	for _, a := range args {
		cells = append(cells, a.Cells...)
	}
	return numericOrLogical(cells)
}

func fnMaxa(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenA(args)
	if len(nums) == 0 {
		return Scalar(grid.NumberFromInt(0)), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return numResult(m)
}

func fnMina(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenA(args)
	if len(nums) == 0 {
		return Scalar(grid.NumberFromInt(0)), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return numResult(m)
}

func fnAveragea(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenA(args)
	if len(nums) == 0 {
		return Value{}, grid.RunError{Kind: grid.ErrDivideByZero, Msg: "AVERAGEA of empty range"}
	}
	return numResult(mean(nums))
}

func varaCall(sample bool) func([]Value, EvalContext) (Value, error) {
	return func(args []Value, ctx EvalContext) (Value, error) {
		v, err := variance(flattenA(args), sample)
		if err != nil {
			return Value{}, err
		}
		return numResult(v)
	}
}

func stdevaCall(sample bool) func([]Value, EvalContext) (Value, error) {
	return func(args []Value, ctx EvalContext) (Value, error) {
		v, err := variance(flattenA(args), sample)
		if err != nil {
			return Value{}, err
		}
		return numResult(math.Sqrt(v))
	}
}

// fnModeMult returns every most frequent value, in first-seen order, as
// a one-column array; a scalar call site sees only the first of them.
func fnModeMult(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	counts := map[float64]int{}
	order := []float64{}
	for _, n := range nums {
		if counts[n] == 0 {
			order = append(order, n)
		}
		counts[n]++
	}
	best := 0
	for _, n := range order {
		if counts[n] > best {
			best = counts[n]
		}
	}
	if best < 2 {
		return Value{}, grid.RunError{Kind: grid.ErrNoMatch, Msg: "MODE.MULT: no repeated value"}
	}
	var modes []grid.CellValue
	for _, n := range order {
		if counts[n] == best {
			modes = append(modes, grid.NumberFromFloat(n))
		}
	}
	return Value{Width: 1, Height: len(modes), Cells: modes}, nil
}

func percentileExc(nums []float64, p float64) (float64, error) {
	if len(nums) < 2 || p <= 0 || p >= 1 {
		return 0, errNum()
	}
	sort.Float64s(nums)
	n := float64(len(nums))
	rank := p * (n + 1)
	if rank < 1 || rank > n {
		return 0, errNum()
	}
	lo := int(math.Floor(rank)) - 1
	frac := rank - math.Floor(rank)
	if lo+1 >= len(nums) {
		return nums[lo], nil
	}
	return nums[lo] + frac*(nums[lo+1]-nums[lo]), nil
}

func fnPercentileExc(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	p, _ := args[1].First().Number.Float64()
	v, err := percentileExc(nums, p)
	if err != nil {
		return Value{}, err
	}
	return numResult(v)
}

func fnQuartileExc(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	q := int(args[1].First().NumericOrZero().IntPart())
	if q < 1 || q > 3 {
		return Value{}, errNum()
	}
	v, err := percentileExc(nums, float64(q)/4)
	if err != nil {
		return Value{}, err
	}
	return numResult(v)
}

func fnPercentrankExc(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	x, _ := args[1].First().Number.Float64()
	sort.Float64s(nums)
	n := len(nums)
	if n < 2 {
		return Value{}, errNum()
	}
	below := 0
	for _, v := range nums {
		if v < x {
			below++
		}
	}
	rank := float64(below+1) / float64(n+1)
	if rank <= 0 || rank >= 1 {
		return Value{}, errNum()
	}
	return numResult(rank)
}

func fnFisherinv(args []Value, ctx EvalContext) (Value, error) {
	y, _ := args[0].First().Number.Float64()
	e2y := math.Exp(2 * y)
	return numResult((e2y - 1) / (e2y + 1))
}

func fnSteyx(args []Value, ctx EvalContext) (Value, error) {
	ys, xs := pairwise(args[0], args[1])
	slope, intercept, err := linreg(xs, ys)
	if err != nil {
		return Value{}, err
	}
	if len(xs) < 3 {
		return Value{}, errNum()
	}
	sum := 0.0
	for i := range xs {
		resid := ys[i] - (slope*xs[i] + intercept)
		sum += resid * resid
	}
	return numResult(math.Sqrt(sum / float64(len(xs)-2)))
}

func fnTrend(args []Value, ctx EvalContext) (Value, error) {
	ys := flattenNumbers(args[:1])
	var xs []float64
	if len(args) >= 2 {
		xs = flattenNumbers(args[1:2])
	} else {
		for i := range ys {
			xs = append(xs, float64(i+1))
		}
	}
	newXs := xs
	if len(args) >= 3 {
		newXs = flattenNumbers(args[2:3])
	}
	slope, intercept, err := linreg(xs, ys)
	if err != nil {
		return Value{}, err
	}
	cells := make([]grid.CellValue, len(newXs))
	for i, x := range newXs {
		cells[i] = grid.NumberFromFloat(slope*x + intercept)
	}
	return Value{Width: 1, Height: len(cells), Cells: cells}, nil
}

func fnGrowth(args []Value, ctx EvalContext) (Value, error) {
	ys := flattenNumbers(args[:1])
	logYs := make([]float64, len(ys))
	for i, y := range ys {
		if y <= 0 {
			return Value{}, errNum()
		}
		logYs[i] = math.Log(y)
	}
	var xs []float64
	if len(args) >= 2 {
		xs = flattenNumbers(args[1:2])
	} else {
		for i := range ys {
			xs = append(xs, float64(i+1))
		}
	}
	newXs := xs
	if len(args) >= 3 {
		newXs = flattenNumbers(args[2:3])
	}
	slope, intercept, err := linreg(xs, logYs)
	if err != nil {
		return Value{}, err
	}
	cells := make([]grid.CellValue, len(newXs))
	for i, x := range newXs {
		cells[i] = grid.NumberFromFloat(math.Exp(slope*x + intercept))
	}
	return Value{Width: 1, Height: len(cells), Cells: cells}, nil
}

func numResult(f float64) (Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Value{}, errNum()
	}
	return Scalar(grid.NumberFromFloat(f)), nil
}

func errNum() error { return grid.RunError{Kind: grid.ErrNum, Msg: "invalid numeric result"} }

func fnSum(args []Value, ctx EvalContext) (Value, error) {
	sum := decimal.Zero
	for _, a := range args {
		for _, c := range a.Cells {
			if c.IsNumeric() {
				sum = sum.Add(c.Number)
			}
		}
	}
	return Scalar(grid.Number(sum)), nil
}

func fnAverage(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	if len(nums) == 0 {
		return Value{}, grid.RunError{Kind: grid.ErrDivideByZero, Msg: "AVERAGE of empty range"}
	}
	return numResult(mean(nums))
}

func fnCount(args []Value, ctx EvalContext) (Value, error) {
	n := 0
	for _, a := range args {
		for _, c := range a.Cells {
			if c.IsNumeric() {
				n++
			}
		}
	}
	return Scalar(grid.NumberFromInt(int64(n))), nil
}

func fnCounta(args []Value, ctx EvalContext) (Value, error) {
	n := 0
	for _, a := range args {
		for _, c := range a.Cells {
			if !c.IsBlank() {
				n++
			}
		}
	}
	return Scalar(grid.NumberFromInt(int64(n))), nil
}

func fnCountblank(args []Value, ctx EvalContext) (Value, error) {
	n := 0
	for _, a := range args {
		for _, c := range a.Cells {
			if c.IsBlank() {
				n++
			}
		}
	}
	return Scalar(grid.NumberFromInt(int64(n))), nil
}

func fnMin(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	if len(nums) == 0 {
		return Scalar(grid.NumberFromInt(0)), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n < m {
			m = n
		}
	}
	return numResult(m)
}

func fnMax(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	if len(nums) == 0 {
		return Scalar(grid.NumberFromInt(0)), nil
	}
	m := nums[0]
	for _, n := range nums[1:] {
		if n > m {
			m = n
		}
	}
	return numResult(m)
}

func fnMedian(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	if len(nums) == 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNum, Msg: "MEDIAN of empty range"}
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 1 {
		return numResult(nums[mid])
	}
	return numResult((nums[mid-1] + nums[mid]) / 2)
}

func mean(nums []float64) float64 {
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

func variance(nums []float64, sample bool) (float64, error) {
	if len(nums) < 2 && sample {
		return 0, errNum()
	}
	if len(nums) == 0 {
		return 0, errNum()
	}
	m := mean(nums)
	sumSq := 0.0
	for _, n := range nums {
		d := n - m
		sumSq += d * d
	}
	denom := float64(len(nums))
	if sample {
		denom = float64(len(nums) - 1)
	}
	return sumSq / denom, nil
}

func varCall(sample bool) func([]Value, EvalContext) (Value, error) {
	return func(args []Value, ctx EvalContext) (Value, error) {
		v, err := variance(flattenNumbers(args), sample)
		if err != nil {
			return Value{}, err
		}
		return numResult(v)
	}
}

func stdevCall(sample bool) func([]Value, EvalContext) (Value, error) {
	return func(args []Value, ctx EvalContext) (Value, error) {
		v, err := variance(flattenNumbers(args), sample)
		if err != nil {
			return Value{}, err
		}
		return numResult(math.Sqrt(v))
	}
}

func fnLarge(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	k := int(args[1].First().NumericOrZero().IntPart())
	if k < 1 || k > len(nums) {
		return Value{}, grid.RunError{Kind: grid.ErrNum, Msg: "LARGE: k out of range"}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(nums)))
	return numResult(nums[k-1])
}

func fnSmall(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	k := int(args[1].First().NumericOrZero().IntPart())
	if k < 1 || k > len(nums) {
		return Value{}, grid.RunError{Kind: grid.ErrNum, Msg: "SMALL: k out of range"}
	}
	sort.Float64s(nums)
	return numResult(nums[k-1])
}

func percentile(nums []float64, p float64) (float64, error) {
	if len(nums) == 0 || p < 0 || p > 1 {
		return 0, errNum()
	}
	sort.Float64s(nums)
	if len(nums) == 1 {
		return nums[0], nil
	}
	rank := p * float64(len(nums)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return nums[lo], nil
	}
	frac := rank - float64(lo)
	return nums[lo] + frac*(nums[hi]-nums[lo]), nil
}

func fnPercentileInc(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	p, _ := args[1].First().Number.Float64()
	v, err := percentile(nums, p)
	if err != nil {
		return Value{}, err
	}
	return numResult(v)
}

func fnQuartileInc(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	q := int(args[1].First().NumericOrZero().IntPart())
	if q < 0 || q > 4 {
		return Value{}, errNum()
	}
	v, err := percentile(nums, float64(q)/4)
	if err != nil {
		return Value{}, err
	}
	return numResult(v)
}

func fnModeSngl(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	counts := map[float64]int{}
	for _, n := range nums {
		counts[n]++
	}
	best := 0.0
	bestCount := 0
	found := false
	for _, n := range nums {
		if counts[n] > bestCount {
			bestCount = counts[n]
			best = n
			found = true
		}
	}
	if !found || bestCount < 2 {
		return Value{}, grid.RunError{Kind: grid.ErrNoMatch, Msg: "MODE.SNGL: no repeated value"}
	}
	return numResult(best)
}

func fnRankEq(args []Value, ctx EvalContext) (Value, error) {
	x, _ := args[0].First().Number.Float64()
	nums := flattenNumbers(args[1:2])
	ascending := len(args) == 3 && args[2].First().Truthy()
	rank := 1
	for _, n := range nums {
		if ascending {
			if n < x {
				rank++
			}
		} else {
			if n > x {
				rank++
			}
		}
	}
	return Scalar(grid.NumberFromInt(int64(rank))), nil
}

func pairwise(a, b Value) ([]float64, []float64) {
	xs := flattenNumbers([]Value{a})
	ys := flattenNumbers([]Value{b})
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	return xs[:n], ys[:n]
}

func correl(xs, ys []float64) (float64, error) {
	if len(xs) < 2 {
		return 0, errNum()
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx, syy float64
	for i := range xs {
		dx := xs[i] - mx
		dy := ys[i] - my
		sxy += dx * dy
		sxx += dx * dx
		syy += dy * dy
	}
	if sxx == 0 || syy == 0 {
		return 0, errNum()
	}
	return sxy / math.Sqrt(sxx*syy), nil
}

func fnCorrel(args []Value, ctx EvalContext) (Value, error) {
	xs, ys := pairwise(args[0], args[1])
	v, err := correl(xs, ys)
	if err != nil {
		return Value{}, err
	}
	return numResult(v)
}

func fnRsq(args []Value, ctx EvalContext) (Value, error) {
	xs, ys := pairwise(args[0], args[1])
	v, err := correl(xs, ys)
	if err != nil {
		return Value{}, err
	}
	return numResult(v * v)
}

func linreg(xs, ys []float64) (slope, intercept float64, err error) {
	if len(xs) < 2 {
		return 0, 0, errNum()
	}
	mx, my := mean(xs), mean(ys)
	var sxy, sxx float64
	for i := range xs {
		dx := xs[i] - mx
		sxy += dx * (ys[i] - my)
		sxx += dx * dx
	}
	if sxx == 0 {
		return 0, 0, errNum()
	}
	slope = sxy / sxx
	intercept = my - slope*mx
	return slope, intercept, nil
}

func fnSlope(args []Value, ctx EvalContext) (Value, error) {
	ys, xs := pairwise(args[0], args[1])
	s, _, err := linreg(xs, ys)
	if err != nil {
		return Value{}, err
	}
	return numResult(s)
}

func fnIntercept(args []Value, ctx EvalContext) (Value, error) {
	ys, xs := pairwise(args[0], args[1])
	_, b, err := linreg(xs, ys)
	if err != nil {
		return Value{}, err
	}
	return numResult(b)
}

func fnForecastLinear(args []Value, ctx EvalContext) (Value, error) {
	x, _ := args[0].First().Number.Float64()
	ys, xs := pairwise(args[1], args[2])
	slope, intercept, err := linreg(xs, ys)
	if err != nil {
		return Value{}, err
	}
	return numResult(slope*x + intercept)
}

func covCall(sample bool) func([]Value, EvalContext) (Value, error) {
	return func(args []Value, ctx EvalContext) (Value, error) {
		xs, ys := pairwise(args[0], args[1])
		if len(xs) == 0 || (sample && len(xs) < 2) {
			return Value{}, errNum()
		}
		mx, my := mean(xs), mean(ys)
		sum := 0.0
		for i := range xs {
			sum += (xs[i] - mx) * (ys[i] - my)
		}
		denom := float64(len(xs))
		if sample {
			denom = float64(len(xs) - 1)
		}
		return numResult(sum / denom)
	}
}

func fnPercentrankInc(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	x, _ := args[1].First().Number.Float64()
	sort.Float64s(nums)
	if len(nums) == 0 {
		return Value{}, errNum()
	}
	below := 0
	for _, n := range nums {
		if n < x {
			below++
		}
	}
	return numResult(float64(below) / float64(len(nums)-1+1))
}

func fnAvedev(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	if len(nums) == 0 {
		return Value{}, errNum()
	}
	m := mean(nums)
	sum := 0.0
	for _, n := range nums {
		sum += math.Abs(n - m)
	}
	return numResult(sum / float64(len(nums)))
}

func fnDevsq(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	if len(nums) == 0 {
		return Value{}, errNum()
	}
	m := mean(nums)
	sum := 0.0
	for _, n := range nums {
		d := n - m
		sum += d * d
	}
	return numResult(sum)
}

func fnGeomean(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	if len(nums) == 0 {
		return Value{}, errNum()
	}
	product := 1.0
	for _, n := range nums {
		if n <= 0 {
			return Value{}, errNum()
		}
		product *= n
	}
	return numResult(math.Pow(product, 1/float64(len(nums))))
}

func fnHarmean(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	if len(nums) == 0 {
		return Value{}, errNum()
	}
	sum := 0.0
	for _, n := range nums {
		if n == 0 {
			return Value{}, errNum()
		}
		sum += 1 / n
	}
	return numResult(float64(len(nums)) / sum)
}

func fnTrimmean(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args[:1])
	percent, _ := args[1].First().Number.Float64()
	if percent < 0 || percent >= 1 || len(nums) == 0 {
		return Value{}, errNum()
	}
	sort.Float64s(nums)
	trim := int(math.Floor(float64(len(nums)) * percent / 2))
	trimmed := nums[trim : len(nums)-trim]
	if len(trimmed) == 0 {
		return Value{}, errNum()
	}
	return numResult(mean(trimmed))
}

func fnSkew(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	n := len(nums)
	if n < 3 {
		return Value{}, errNum()
	}
	m := mean(nums)
	var s2, s3 float64
	for _, x := range nums {
		d := x - m
		s2 += d * d
		s3 += d * d * d
	}
	stdev := math.Sqrt(s2 / float64(n-1))
	if stdev == 0 {
		return Value{}, errNum()
	}
	fn := float64(n)
	return numResult((fn / ((fn - 1) * (fn - 2))) * (s3 / (stdev * stdev * stdev)))
}

func fnKurt(args []Value, ctx EvalContext) (Value, error) {
	nums := flattenNumbers(args)
	n := len(nums)
	if n < 4 {
		return Value{}, errNum()
	}
	m := mean(nums)
	var s2, s4 float64
	for _, x := range nums {
		d := x - m
		s2 += d * d
		s4 += d * d * d * d
	}
	fn := float64(n)
	variance := s2 / fn
	if variance == 0 {
		return Value{}, errNum()
	}
	term1 := (fn * (fn + 1)) / ((fn - 1) * (fn - 2) * (fn - 3))
	term2 := s4 / (variance * variance)
	term3 := 3 * (fn - 1) * (fn - 1) / ((fn - 2) * (fn - 3))
	return numResult(term1*term2 - term3)
}

func fnStandardize(args []Value, ctx EvalContext) (Value, error) {
	x, _ := args[0].First().Number.Float64()
	m, _ := args[1].First().Number.Float64()
	sd, _ := args[2].First().Number.Float64()
	if sd <= 0 {
		return Value{}, errNum()
	}
	return numResult((x - m) / sd)
}

func fnFisher(args []Value, ctx EvalContext) (Value, error) {
	x, _ := args[0].First().Number.Float64()
	if x <= -1 || x >= 1 {
		return Value{}, errNum()
	}
	return numResult(0.5 * math.Log((1+x)/(1-x)))
}

func fnFrequency(args []Value, ctx EvalContext) (Value, error) {
	data := flattenNumbers(args[:1])
	bins := flattenNumbers(args[1:2])
	sorted := append([]float64(nil), bins...)
	sort.Float64s(sorted)
	counts := make([]int64, len(sorted)+1)
	for _, d := range data {
		placed := false
		for i, b := range sorted {
			if d <= b {
				counts[i]++
				placed = true
				break
			}
		}
		if !placed {
			counts[len(sorted)]++
		}
	}
	cells := make([]grid.CellValue, len(counts))
	for i, c := range counts {
		cells[i] = grid.NumberFromInt(c)
	}
	return Value{Width: 1, Height: len(cells), Cells: cells}, nil
}
