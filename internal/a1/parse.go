package a1

import (
	"fmt"
	"strconv"
	"strings"

	"gridcore/internal/geom"
)

// ParseSelection parses A1 text into a well-formed A1Selection (spec
// 4.1 "Parsing A1 text to a selection", grammar summary spec 6.2).
// Grammar: comma-separated items; each item is `Sheet!Range`, `Range`,
// or `TableName[column spec]`.
func ParseSelection(text string, defaultSheet geom.SheetID, ctx Context) (A1Selection, error) {
	items := splitTopLevel(text, ',')
	if len(items) == 0 {
		return A1Selection{}, fmt.Errorf("a1: empty selection")
	}
	sel := A1Selection{SheetID: defaultSheet}
	var first geom.Pos
	haveFirst := false
	for _, raw := range items {
		item := strings.TrimSpace(raw)
		if item == "" {
			continue
		}
		sheetID, body, err := splitSheetQualifier(item, defaultSheet, ctx)
		if err != nil {
			return A1Selection{}, err
		}
		if sel.SheetID == "" {
			sel.SheetID = sheetID
		}
		rng, anchor, err := parseRangeOrTable(body)
		if err != nil {
			return A1Selection{}, err
		}
		sel.Ranges = append(sel.Ranges, rng)
		if !haveFirst {
			first = anchor
			haveFirst = true
		}
	}
	if len(sel.Ranges) == 0 {
		return A1Selection{}, fmt.Errorf("a1: no ranges parsed from %q", text)
	}
	sel.Cursor = first
	return sel, nil
}

// splitTopLevel splits s on sep, ignoring separators inside [...] or
// '...' quoted spans (table column specs and quoted sheet names).
func splitTopLevel(s string, sep byte) []string {
	var out []string
	depth := 0
	inQuote := false
	start := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
			// inside quotes, nothing else special
		case c == '[':
			depth++
		case c == ']':
			if depth > 0 {
				depth--
			}
		case c == sep && depth == 0:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

func splitSheetQualifier(item string, defaultSheet geom.SheetID, ctx Context) (geom.SheetID, string, error) {
	bang := -1
	inQuote := false
	for i := 0; i < len(item); i++ {
		switch item[i] {
		case '\'':
			inQuote = !inQuote
		case '!':
			if !inQuote {
				bang = i
			}
		}
		if bang >= 0 {
			break
		}
	}
	if bang < 0 {
		return defaultSheet, item, nil
	}
	name := strings.TrimSpace(item[:bang])
	name = unquoteSheetName(name)
	rest := item[bang+1:]
	if ctx == nil {
		return defaultSheet, rest, nil
	}
	id, ok := ctx.SheetIDByName(name)
	if !ok {
		return "", "", fmt.Errorf("a1: unknown sheet %q", name)
	}
	return id, rest, nil
}

func unquoteSheetName(s string) string {
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		inner := s[1 : len(s)-1]
		return strings.ReplaceAll(inner, "''", "'")
	}
	return s
}

// QuoteSheetName quotes name with ' if it needs it (has spaces or
// special characters), doubling any embedded quote (spec 6.2).
func QuoteSheetName(name string) string {
	needsQuote := false
	for _, r := range name {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			needsQuote = true
			break
		}
	}
	if name == "" {
		needsQuote = true
	}
	if !needsQuote {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func parseRangeOrTable(body string) (CellRefRange, geom.Pos, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return CellRefRange{}, geom.Pos{}, fmt.Errorf("a1: empty range item")
	}
	if idx := strings.IndexByte(body, '['); idx >= 0 && strings.HasSuffix(body, "]") {
		t, err := parseTableRef(body[:idx], body[idx+1:len(body)-1])
		if err != nil {
			return CellRefRange{}, geom.Pos{}, err
		}
		return TableRange(t), geom.Pos{X: 1, Y: 1}, nil
	}
	bounds, err := parseRangeBounds(body)
	if err != nil {
		return CellRefRange{}, geom.Pos{}, err
	}
	return SheetRange(bounds), bounds.Start(), nil
}

func parseTableRef(name, spec string) (TableRef, error) {
	t := TableRef{Name: strings.TrimSpace(name)}
	parts := splitTopLevel(spec, ',')
	var cols []string
	for _, raw := range parts {
		p := strings.TrimSpace(raw)
		p = strings.TrimPrefix(p, "[")
		p = strings.TrimSuffix(p, "]")
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			continue
		case strings.EqualFold(p, "#Headers"):
			t.Headers = true
		case strings.EqualFold(p, "#Totals"):
			t.Totals = true
		case strings.Contains(p, ":"):
			t.RowSpan = true
			for _, c := range strings.SplitN(p, ":", 2) {
				c = strings.TrimSpace(strings.Trim(c, "[]"))
				cols = append(cols, c)
			}
		default:
			cols = append(cols, p)
		}
	}
	t.Columns = cols
	return t, nil
}

func parseRangeBounds(s string) (RefRangeBounds, error) {
	parts := strings.SplitN(s, ":", 2)
	left := strings.TrimSpace(parts[0])
	var right string
	hasRight := len(parts) == 2
	if hasRight {
		right = strings.TrimSpace(parts[1])
	} else {
		right = left
	}
	startCol, startRow, err := parseEndpoint(left)
	if err != nil {
		return RefRangeBounds{}, err
	}
	var endCol, endRow Coord
	if hasRight {
		endCol, endRow, err = parseEndpoint(right)
		if err != nil {
			return RefRangeBounds{}, err
		}
	} else {
		endCol, endRow = startCol, startRow
	}
	return RefRangeBounds{StartCol: startCol, StartRow: startRow, EndCol: endCol, EndRow: endRow}, nil
}

// parseEndpoint parses one side of a range: "", "A", "$A", "1", "$1",
// "A1", "$A$1", "A$1", "$A1".
func parseEndpoint(s string) (col, row Coord, err error) {
	if s == "" {
		return Coord{Value: geom.Unbounded}, Coord{Value: geom.Unbounded}, nil
	}
	i := 0
	colAbs := false
	if i < len(s) && s[i] == '$' {
		colAbs = true
		i++
	}
	letterStart := i
	for i < len(s) && isAlpha(s[i]) {
		i++
	}
	letters := s[letterStart:i]

	rowAbs := false
	if i < len(s) && s[i] == '$' {
		rowAbs = true
		i++
	}
	digitStart := i
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	digits := s[digitStart:i]

	if i != len(s) {
		return Coord{}, Coord{}, fmt.Errorf("a1: invalid range endpoint %q", s)
	}

	switch {
	case letters != "" && digits != "":
		c, e := geom.ParseA1Column(letters)
		if e != nil {
			return Coord{}, Coord{}, e
		}
		r, e := strconv.ParseInt(digits, 10, 64)
		if e != nil {
			return Coord{}, Coord{}, e
		}
		return Coord{Value: c, Absolute: colAbs}, Coord{Value: r, Absolute: rowAbs}, nil
	case letters != "":
		c, e := geom.ParseA1Column(letters)
		if e != nil {
			return Coord{}, Coord{}, e
		}
		return Coord{Value: c, Absolute: colAbs}, Coord{Value: geom.Unbounded}, nil
	case digits != "":
		r, e := strconv.ParseInt(digits, 10, 64)
		if e != nil {
			return Coord{}, Coord{}, e
		}
		// A row-only endpoint's single '$' ("$1") is read as colAbs above.
		return Coord{Value: geom.Unbounded}, Coord{Value: r, Absolute: rowAbs || colAbs}, nil
	default:
		return Coord{}, Coord{}, fmt.Errorf("a1: invalid range endpoint %q", s)
	}
}

func isAlpha(c byte) bool { return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
