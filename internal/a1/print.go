package a1

import (
	"strconv"
	"strings"

	"gridcore/internal/geom"
)

// String renders sel back to A1 text (spec 6.2). Sheet-qualifies only
// when name differs from the selection's own sheet context is handled
// by callers that know the "current" sheet; here we always qualify if
// sheetName is non-empty, since this is primarily used for persistence
// (conditional-format selection text, spec 6.5) where the sheet must be
// explicit.
func (s A1Selection) String(sheetName string) string {
	parts := make([]string, 0, len(s.Ranges))
	for _, r := range s.Ranges {
		parts = append(parts, r.String())
	}
	body := strings.Join(parts, ",")
	if sheetName == "" {
		return body
	}
	return QuoteSheetName(sheetName) + "!" + body
}

func (r CellRefRange) String() string {
	switch r.Kind {
	case RangeSheet:
		return r.Sheet.String()
	case RangeTable:
		return r.Table.String()
	}
	return ""
}

func (t TableRef) String() string {
	var b strings.Builder
	b.WriteString(t.Name)
	b.WriteByte('[')
	first := true
	writeComma := func() {
		if !first {
			b.WriteByte(',')
		}
		first = false
	}
	if t.Headers {
		writeComma()
		b.WriteString("[#Headers]")
	}
	if t.Totals {
		writeComma()
		b.WriteString("[#Totals]")
	}
	if len(t.Columns) == 1 {
		writeComma()
		b.WriteByte('[')
		b.WriteString(t.Columns[0])
		b.WriteByte(']')
	} else if len(t.Columns) > 1 {
		writeComma()
		b.WriteByte('[')
		b.WriteString(t.Columns[0])
		b.WriteString("]:[")
		b.WriteString(t.Columns[len(t.Columns)-1])
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

func (b RefRangeBounds) String() string {
	start := formatEndpoint(b.StartCol, b.StartRow)
	end := formatEndpoint(b.EndCol, b.EndRow)
	if start == end {
		return start
	}
	return start + ":" + end
}

func formatEndpoint(col, row Coord) string {
	var b strings.Builder
	if !col.IsUnbounded() {
		if col.Absolute {
			b.WriteByte('$')
		}
		b.WriteString(geom.A1Column(col.Value))
	}
	if !row.IsUnbounded() {
		if row.Absolute {
			b.WriteByte('$')
		}
		b.WriteString(strconv.FormatInt(row.Value, 10))
	}
	return b.String()
}
