package functions

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"gridcore/internal/grid"
)

func init() {
	register(Fn{Name: "CONCAT", MinArgs: 1, MaxArgs: -1, Category: "string", Call: fnConcat})
	register(Fn{Name: "CONCATENATE", MinArgs: 1, MaxArgs: -1, Category: "string", Call: fnConcat})
	register(Fn{Name: "LEFT", MinArgs: 1, MaxArgs: 2, Category: "string", Call: fnLeft})
	register(Fn{Name: "RIGHT", MinArgs: 1, MaxArgs: 2, Category: "string", Call: fnRight})
	register(Fn{Name: "MID", MinArgs: 3, MaxArgs: 3, Category: "string", Call: fnMid})
	register(Fn{Name: "LEFTB", MinArgs: 1, MaxArgs: 2, Category: "string", Call: fnLeftB})
	register(Fn{Name: "RIGHTB", MinArgs: 1, MaxArgs: 2, Category: "string", Call: fnRightB})
	register(Fn{Name: "MIDB", MinArgs: 3, MaxArgs: 3, Category: "string", Call: fnMidB})
	register(Fn{Name: "LEN", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnLen})
	register(Fn{Name: "LENB", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnLenB})
	register(Fn{Name: "UNICODE", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnUnicode})
	register(Fn{Name: "CODE", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnUnicode})
	register(Fn{Name: "CLEAN", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnClean})
	register(Fn{Name: "TRIM", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnTrim})
	register(Fn{Name: "LOWER", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnLower})
	register(Fn{Name: "UPPER", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnUpper})
	register(Fn{Name: "PROPER", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnProper})
	register(Fn{Name: "NUMBERVALUE", MinArgs: 1, MaxArgs: 3, Category: "string", Call: fnNumberValue})
	register(Fn{Name: "EXACT", MinArgs: 2, MaxArgs: 2, Category: "string", Call: fnExact})
	register(Fn{Name: "FIND", MinArgs: 2, MaxArgs: 3, Category: "string", Call: fnFind})
	register(Fn{Name: "SEARCH", MinArgs: 2, MaxArgs: 3, Category: "string", Call: fnSearch})
	register(Fn{Name: "REPLACE", MinArgs: 4, MaxArgs: 4, Category: "string", Call: fnReplace})
	register(Fn{Name: "SUBSTITUTE", MinArgs: 3, MaxArgs: 4, Category: "string", Call: fnSubstitute})
	register(Fn{Name: "REPT", MinArgs: 2, MaxArgs: 2, Category: "string", Call: fnRept})
	register(Fn{Name: "TEXTJOIN", MinArgs: 3, MaxArgs: -1, Category: "string", Call: fnTextjoin})
	register(Fn{Name: "TEXT", MinArgs: 2, MaxArgs: 2, Category: "string", Call: fnText})
	register(Fn{Name: "TEXTAFTER", MinArgs: 2, MaxArgs: 2, Category: "string", Call: fnTextafter})
	register(Fn{Name: "TEXTBEFORE", MinArgs: 2, MaxArgs: 2, Category: "string", Call: fnTextbefore})
	register(Fn{Name: "TEXTSPLIT", MinArgs: 2, MaxArgs: 2, Category: "string", Call: fnTextsplit})
	register(Fn{Name: "VALUE", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnValue})
	register(Fn{Name: "CHAR", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnChar})
	register(Fn{Name: "UNICHAR", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnChar})
	register(Fn{Name: "T", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnT})
	register(Fn{Name: "VALUETOTEXT", MinArgs: 1, MaxArgs: 2, Category: "string", Call: fnValuetotext})
	register(Fn{Name: "ARRAYTOTEXT", MinArgs: 1, MaxArgs: 2, Category: "string", Call: fnArraytotext})
	register(Fn{Name: "DOLLAR", MinArgs: 1, MaxArgs: 2, Category: "string", Call: fnDollar})
	register(Fn{Name: "FIXED", MinArgs: 1, MaxArgs: 3, Category: "string", Call: fnFixed})
	register(Fn{Name: "FINDB", MinArgs: 2, MaxArgs: 3, Category: "string", Call: fnFindB})
	register(Fn{Name: "SEARCHB", MinArgs: 2, MaxArgs: 3, Category: "string", Call: fnSearchB})
	register(Fn{Name: "REPLACEB", MinArgs: 4, MaxArgs: 4, Category: "string", Call: fnReplaceB})
	register(Fn{Name: "ASC", MinArgs: 1, MaxArgs: 1, Category: "string", Call: fnAsc})
}

func fnChar(args []Value, ctx EvalContext) (Value, error) {
	n := int(args[0].First().NumericOrZero().IntPart())
	if n <= 0 {
		return Value{}, errNum()
	}
	return Scalar(grid.Text(string(rune(n)))), nil
}

// fnT is Excel's type filter: text passes through, everything else
// (numbers, logicals, errors, blanks) becomes an empty string.
func fnT(args []Value, ctx EvalContext) (Value, error) {
	v := args[0].First()
	if v.Kind == grid.KindText {
		return Scalar(v), nil
	}
	return Scalar(grid.Text("")), nil
}

func fnValuetotext(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Text(args[0].First().Repr())), nil
}

func fnArraytotext(args []Value, ctx EvalContext) (Value, error) {
	strict := len(args) == 2 && args[1].First().NumericOrZero().IntPart() == 1
	parts := make([]string, len(args[0].Cells))
	for i, c := range args[0].Cells {
		if strict {
			parts[i] = c.Repr()
		} else {
			parts[i] = c.ToDisplay()
		}
	}
	return Scalar(grid.Text(strings.Join(parts, ", "))), nil
}

func fnDollar(args []Value, ctx EvalContext) (Value, error) {
	v := args[0].First()
	if !v.IsNumeric() {
		return Value{}, errNum()
	}
	decimals := 2
	if len(args) == 2 {
		decimals = int(args[1].First().NumericOrZero().IntPart())
	}
	f, _ := v.Number.Float64()
	if decimals < 0 {
		scale := math.Pow(10, float64(-decimals))
		f = math.Round(f/scale) * scale
		decimals = 0
	}
	return Scalar(grid.Text("$" + strconv.FormatFloat(f, 'f', decimals, 64))), nil
}

func fnFixed(args []Value, ctx EvalContext) (Value, error) {
	v := args[0].First()
	if !v.IsNumeric() {
		return Value{}, errNum()
	}
	decimals := 2
	if len(args) >= 2 {
		decimals = int(args[1].First().NumericOrZero().IntPart())
	}
	noCommas := len(args) == 3 && args[2].First().Truthy()
	f, _ := v.Number.Float64()
	s := strconv.FormatFloat(f, 'f', decimals, 64)
	if noCommas {
		return Scalar(grid.Text(s)), nil
	}
	return Scalar(grid.Text(groupThousands(s))), nil
}

func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	intPart, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if hasFrac {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}

func fnFindB(args []Value, ctx EvalContext) (Value, error) {
	needle := str(args[0])
	hay := str(args[1])
	startByte := 0
	if len(args) == 3 {
		start := int(args[2].First().NumericOrZero().IntPart())
		startByte = byteOffsetAtRune(hay, start-1)
	}
	if startByte < 0 || startByte > len(hay) {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "FINDB: start out of range"}
	}
	idx := strings.Index(hay[startByte:], needle)
	if idx < 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "FINDB: not found"}
	}
	return Scalar(grid.NumberFromInt(int64(startByte + idx + 1))), nil
}

func fnSearchB(args []Value, ctx EvalContext) (Value, error) {
	pattern := str(args[0])
	hay := str(args[1])
	startByte := 0
	if len(args) == 3 {
		start := int(args[2].First().NumericOrZero().IntPart())
		startByte = byteOffsetAtRune(hay, start-1)
	}
	idx := strings.Index(strings.ToLower(hay[startByte:]), strings.ToLower(pattern))
	if idx < 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "SEARCHB: not found"}
	}
	return Scalar(grid.NumberFromInt(int64(startByte + idx + 1))), nil
}

func fnReplaceB(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	start := int(args[1].First().NumericOrZero().IntPart())
	n := int(args[2].First().NumericOrZero().IntPart())
	repl := str(args[3])
	if start < 1 || n < 0 {
		return Value{}, errNum()
	}
	startByte := byteOffsetAtRune(s, start-1)
	endByte := byteOffsetAtRune(s, startByte+n)
	if startByte > len(s) {
		startByte = len(s)
	}
	if endByte > len(s) {
		endByte = len(s)
	}
	return Scalar(grid.Text(s[:startByte] + repl + s[endByte:])), nil
}

// fnAsc is the double/single-byte width fold; without a DBCS code table
// in scope, this engine has nothing to fold (no wide characters can
// reach it, since everything is stored as UTF-8), so it returns the
// input unchanged, matching Excel's own no-op behavior for text with no
// full-width characters.
func fnAsc(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Text(str(args[0]))), nil
}

// fnTextsplit supports the single-delimiter form; the row/column
// dual-delimiter overload is left for a fuller lookup-category pass.
func fnTextsplit(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	delim := str(args[1])
	parts := strings.Split(s, delim)
	cells := make([]grid.CellValue, len(parts))
	for i, p := range parts {
		cells[i] = grid.Text(p)
	}
	return Value{Width: len(cells), Height: 1, Cells: cells}, nil
}

func str(v Value) string { return v.First().ToDisplay() }

func fnConcat(args []Value, ctx EvalContext) (Value, error) {
	var b strings.Builder
	for _, a := range args {
		for _, c := range a.Cells {
			b.WriteString(c.ToDisplay())
		}
	}
	return Scalar(grid.Text(b.String())), nil
}

func runeSlice(s string) []rune { return []rune(s) }

func fnLeft(args []Value, ctx EvalContext) (Value, error) {
	n := 1
	if len(args) == 2 {
		n = int(args[1].First().NumericOrZero().IntPart())
	}
	r := runeSlice(str(args[0]))
	if n < 0 {
		return Value{}, errNum()
	}
	if n > len(r) {
		n = len(r)
	}
	return Scalar(grid.Text(string(r[:n]))), nil
}

func fnRight(args []Value, ctx EvalContext) (Value, error) {
	n := 1
	if len(args) == 2 {
		n = int(args[1].First().NumericOrZero().IntPart())
	}
	r := runeSlice(str(args[0]))
	if n < 0 {
		return Value{}, errNum()
	}
	if n > len(r) {
		n = len(r)
	}
	return Scalar(grid.Text(string(r[len(r)-n:]))), nil
}

func fnMid(args []Value, ctx EvalContext) (Value, error) {
	r := runeSlice(str(args[0]))
	start := int(args[1].First().NumericOrZero().IntPart())
	n := int(args[2].First().NumericOrZero().IntPart())
	if start < 1 || n < 0 {
		return Value{}, errNum()
	}
	start--
	if start >= len(r) {
		return Scalar(grid.Text("")), nil
	}
	end := start + n
	if end > len(r) {
		end = len(r)
	}
	return Scalar(grid.Text(string(r[start:end]))), nil
}

// byteOffsetAtRune rounds a byte-count cursor down to the nearest
// UTF-8 rune boundary at or before n bytes into s, which is the
// *B-suffixed functions' documented "doesn't split a multi-byte
// character" behavior (spec 6.4 string category).
func byteOffsetAtRune(s string, n int) int {
	if n >= len(s) {
		return len(s)
	}
	if n <= 0 {
		return 0
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}

func fnLeftB(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	n := 1
	if len(args) == 2 {
		n = int(args[1].First().NumericOrZero().IntPart())
	}
	if n < 0 {
		return Value{}, errNum()
	}
	cut := byteOffsetAtRune(s, n)
	return Scalar(grid.Text(s[:cut])), nil
}

func fnRightB(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	n := 1
	if len(args) == 2 {
		n = int(args[1].First().NumericOrZero().IntPart())
	}
	if n < 0 {
		return Value{}, errNum()
	}
	from := len(s) - n
	if from < 0 {
		from = 0
	}
	for from < len(s) && !utf8.RuneStart(s[from]) {
		from++
	}
	return Scalar(grid.Text(s[from:])), nil
}

func fnMidB(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	start := int(args[1].First().NumericOrZero().IntPart())
	n := int(args[2].First().NumericOrZero().IntPart())
	if start < 1 || n < 0 {
		return Value{}, errNum()
	}
	startByte := byteOffsetAtRune(s, start-1)
	endByte := byteOffsetAtRune(s, startByte+n)
	if startByte > len(s) {
		return Scalar(grid.Text("")), nil
	}
	return Scalar(grid.Text(s[startByte:endByte])), nil
}

func fnLen(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.NumberFromInt(int64(utf8.RuneCountInString(str(args[0]))))), nil
}

func fnLenB(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.NumberFromInt(int64(len(str(args[0]))))), nil
}

func fnUnicode(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	if s == "" {
		return Value{}, grid.RunError{Kind: grid.ErrInvalidArgument, Msg: "UNICODE: empty string"}
	}
	r, _ := utf8.DecodeRuneInString(s)
	return Scalar(grid.NumberFromInt(int64(r))), nil
}

func fnClean(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	var b strings.Builder
	for _, r := range s {
		if r >= 32 {
			b.WriteRune(r)
		}
	}
	return Scalar(grid.Text(b.String())), nil
}

func fnTrim(args []Value, ctx EvalContext) (Value, error) {
	fields := strings.Fields(str(args[0]))
	return Scalar(grid.Text(strings.Join(fields, " "))), nil
}

func fnLower(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Text(strings.ToLower(str(args[0])))), nil
}

func fnUpper(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Text(strings.ToUpper(str(args[0])))), nil
}

func fnProper(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Text(strings.Title(strings.ToLower(str(args[0]))))), nil
}

func fnNumberValue(args []Value, ctx EvalContext) (Value, error) {
	s := strings.TrimSpace(str(args[0]))
	decSep := "."
	if len(args) >= 2 {
		decSep = str(args[1])
	}
	s = strings.ReplaceAll(s, decSep, ".")
	s = strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' || r == '-' {
			return r
		}
		return -1
	}, s)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, grid.RunError{Kind: grid.ErrInvalidArgument, Msg: "NUMBERVALUE: not a number"}
	}
	return Scalar(grid.NumberFromFloat(f)), nil
}

func fnExact(args []Value, ctx EvalContext) (Value, error) {
	return Scalar(grid.Logical(str(args[0]) == str(args[1]))), nil
}

// wildcardToRegexp compiles an Excel-style `?`/`*` pattern, anchored
// and case-insensitive, per spec 6.4's FIND/SEARCH wildcard note.
func wildcardToRegexp(pattern string) (*regexp.Regexp, error) {
	var b strings.Builder
	b.WriteString("(?i)^")
	for _, r := range pattern {
		switch r {
		case '?':
			b.WriteString(".")
		case '*':
			b.WriteString(".*")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.Compile(b.String())
}

func fnFind(args []Value, ctx EvalContext) (Value, error) {
	needle := str(args[0])
	hay := str(args[1])
	start := 1
	if len(args) == 3 {
		start = int(args[2].First().NumericOrZero().IntPart())
	}
	if start < 1 || start > len(hay)+1 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "FIND: start out of range"}
	}
	idx := strings.Index(hay[start-1:], needle)
	if idx < 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "FIND: not found"}
	}
	return Scalar(grid.NumberFromInt(int64(start + idx))), nil
}

func fnSearch(args []Value, ctx EvalContext) (Value, error) {
	pattern := str(args[0])
	hay := str(args[1])
	start := 1
	if len(args) == 3 {
		start = int(args[2].First().NumericOrZero().IntPart())
	}
	if start < 1 || start > len(hay)+1 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "SEARCH: start out of range"}
	}
	re, err := wildcardToRegexp(pattern)
	if err == nil && strings.ContainsAny(pattern, "?*") {
		sub := hay[start-1:]
		for i := range sub {
			if re.MatchString(sub[i:]) {
				return Scalar(grid.NumberFromInt(int64(start + i))), nil
			}
		}
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "SEARCH: not found"}
	}
	idx := strings.Index(strings.ToLower(hay[start-1:]), strings.ToLower(pattern))
	if idx < 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "SEARCH: not found"}
	}
	return Scalar(grid.NumberFromInt(int64(start + idx))), nil
}

func fnReplace(args []Value, ctx EvalContext) (Value, error) {
	r := runeSlice(str(args[0]))
	start := int(args[1].First().NumericOrZero().IntPart())
	n := int(args[2].First().NumericOrZero().IntPart())
	repl := str(args[3])
	if start < 1 || n < 0 {
		return Value{}, errNum()
	}
	start--
	if start > len(r) {
		start = len(r)
	}
	end := start + n
	if end > len(r) {
		end = len(r)
	}
	return Scalar(grid.Text(string(r[:start]) + repl + string(r[end:]))), nil
}

func fnSubstitute(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	old := str(args[1])
	new := str(args[2])
	if len(args) == 4 {
		occurrence := int(args[3].First().NumericOrZero().IntPart())
		count := 0
		idx := 0
		for {
			pos := strings.Index(s[idx:], old)
			if pos < 0 {
				break
			}
			count++
			abs := idx + pos
			if count == occurrence {
				return Scalar(grid.Text(s[:abs] + new + s[abs+len(old):])), nil
			}
			idx = abs + len(old)
		}
		return Scalar(grid.Text(s)), nil
	}
	return Scalar(grid.Text(strings.ReplaceAll(s, old, new))), nil
}

func fnRept(args []Value, ctx EvalContext) (Value, error) {
	n := int(args[1].First().NumericOrZero().IntPart())
	if n < 0 {
		return Value{}, errNum()
	}
	return Scalar(grid.Text(strings.Repeat(str(args[0]), n))), nil
}

func fnTextjoin(args []Value, ctx EvalContext) (Value, error) {
	delim := str(args[0])
	skipEmpty := args[1].First().Truthy()
	var parts []string
	for _, a := range args[2:] {
		for _, c := range a.Cells {
			s := c.ToDisplay()
			if skipEmpty && s == "" {
				continue
			}
			parts = append(parts, s)
		}
	}
	return Scalar(grid.Text(strings.Join(parts, delim))), nil
}

// fnText formats a value against a small set of common number-format
// codes; full Excel format-code parsing lives in the importer's format
// detector, not here, since TEXT() only ever sees one value at a time.
func fnText(args []Value, ctx EvalContext) (Value, error) {
	v := args[0].First()
	format := str(args[1])
	if !v.IsNumeric() {
		return Scalar(grid.Text(v.ToDisplay())), nil
	}
	f, _ := v.Number.Float64()
	switch {
	case strings.Contains(format, "%"):
		return Scalar(grid.Text(strconv.FormatFloat(f*100, 'f', 2, 64) + "%")), nil
	case strings.Contains(format, "0.00"):
		return Scalar(grid.Text(strconv.FormatFloat(f, 'f', 2, 64))), nil
	case strings.Contains(format, "0"):
		return Scalar(grid.Text(strconv.FormatFloat(f, 'f', 0, 64))), nil
	default:
		return Scalar(grid.Text(v.Number.String())), nil
	}
}

func fnTextafter(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	delim := str(args[1])
	idx := strings.Index(s, delim)
	if idx < 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "TEXTAFTER: delimiter not found"}
	}
	return Scalar(grid.Text(s[idx+len(delim):])), nil
}

func fnTextbefore(args []Value, ctx EvalContext) (Value, error) {
	s := str(args[0])
	delim := str(args[1])
	idx := strings.Index(s, delim)
	if idx < 0 {
		return Value{}, grid.RunError{Kind: grid.ErrNotAvailable, Msg: "TEXTBEFORE: delimiter not found"}
	}
	return Scalar(grid.Text(s[:idx])), nil
}

func fnValue(args []Value, ctx EvalContext) (Value, error) {
	v := args[0].First()
	if v.IsNumeric() {
		return Scalar(v), nil
	}
	s := strings.TrimSpace(v.ToDisplay())
	s = strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Value{}, grid.RunError{Kind: grid.ErrInvalidArgument, Msg: "VALUE: not a number"}
	}
	if strings.HasSuffix(v.ToDisplay(), "%") {
		f /= 100
	}
	return Scalar(grid.NumberFromFloat(f)), nil
}
