package a1

import "gridcore/internal/geom"

// Context is the read-only catalog a1 parsing/printing and selection
// queries resolve names against (spec component C3). internal/a1ctx
// implements this; a1 itself stays ignorant of how the catalog is
// built so parsing/printing/geometry have no dependency on the mutable
// controller state that rebuilds the catalog after each transaction.
type Context interface {
	// SheetIDByName resolves a sheet name to its id, case-insensitive
	// with exact-match priority (spec 4.3).
	SheetIDByName(name string) (geom.SheetID, bool)
	SheetName(id geom.SheetID) (string, bool)

	// TableInfo resolves a table name to its catalog entry.
	TableInfo(name string) (TableInfo, bool)

	// SheetDataBounds returns the finite bounds used to clamp unbounded
	// ranges (spec 4.1 largest_rect_finite).
	SheetDataBounds(id geom.SheetID) geom.Rect
}

// TableInfo is the per-table catalog entry spec 4.3 describes:
// "name -> { sheet_id, anchor, columns: [name], bounds }".
type TableInfo struct {
	SheetID geom.SheetID
	Anchor  geom.Pos
	Columns []string
	// Bounds is the table's full displayed rect, UI rows included.
	Bounds geom.Rect
	// DataBounds is Bounds minus the name/header UI rows.
	DataBounds geom.Rect
}

// ColumnRect resolves a TableRef's addressed columns (or the whole data
// rect if Columns is empty) to a concrete rectangle on ti's sheet.
func (ti TableInfo) ColumnRect(t TableRef) (geom.Rect, bool) {
	rect := ti.DataBounds
	if t.Headers {
		rect = geom.NewRect(ti.Bounds.Min.X, ti.Bounds.Min.Y, ti.Bounds.Max.X, ti.Bounds.Min.Y)
	}
	if len(t.Columns) == 0 {
		return rect, true
	}
	minIdx, maxIdx := -1, -1
	for _, want := range t.Columns {
		idx := indexOfFold(ti.Columns, want)
		if idx < 0 {
			return geom.Rect{}, false
		}
		if minIdx < 0 || idx < minIdx {
			minIdx = idx
		}
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	return geom.NewRect(rect.Min.X+int64(minIdx), rect.Min.Y, rect.Min.X+int64(maxIdx), rect.Max.Y), true
}

func indexOfFold(names []string, want string) int {
	for i, n := range names {
		if equalFold(n, want) {
			return i
		}
	}
	return -1
}

func equalFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := 0; i < len(a); i++ {
		ca, cb := a[i], b[i]
		if 'A' <= ca && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if 'A' <= cb && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
