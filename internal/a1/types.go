// Package a1 implements A1-style reference parsing/printing and the
// CellRefRange / A1Selection algebra (spec component C1). It is the
// spreadsheet-domain analogue of the teacher's cell-id parsing in
// spreadsheet/engine.go (parseCellID/expandRange), generalized from
// single "A1:B2" substitution into the full range/selection grammar the
// spec requires (unbounded ranges, absolutes, table refs, unions).
package a1

import "gridcore/internal/geom"

// Coord is one axis of a range endpoint: a column or row number plus
// whether it was authored with a `$` absolute marker. Value may be
// geom.Unbounded to represent an open-ended side ("A:A", ":B3").
type Coord struct {
	Value    int64
	Absolute bool
}

func (c Coord) IsUnbounded() bool { return c.Value == geom.Unbounded }

// RefRangeBounds is a geometric range as authored: Start and End may be
// in either order (spec 3.3 "denormalized-tolerant"); Start is preserved
// as the formula anchor for conditional-format translation.
type RefRangeBounds struct {
	StartCol, StartRow Coord
	EndCol, EndRow     Coord
}

// CellRangeBounds builds a simple, fully-bounded, non-absolute range
// from two positions, useful for constructing ranges programmatically
// (selection mutation ops, import coordinators).
func CellRangeBounds(a, b geom.Pos) RefRangeBounds {
	return RefRangeBounds{
		StartCol: Coord{Value: a.X}, StartRow: Coord{Value: a.Y},
		EndCol: Coord{Value: b.X}, EndRow: Coord{Value: b.Y},
	}
}

func SingleCellBounds(p geom.Pos) RefRangeBounds {
	return CellRangeBounds(p, p)
}

// Start returns the authored anchor position (not normalized).
func (b RefRangeBounds) Start() geom.Pos {
	return geom.Pos{X: b.StartCol.Value, Y: b.StartRow.Value}
}

// End returns the authored second position (not normalized).
func (b RefRangeBounds) End() geom.Pos {
	return geom.Pos{X: b.EndCol.Value, Y: b.EndRow.Value}
}

// IsUnbounded reports whether either side is open-ended.
func (b RefRangeBounds) IsUnbounded() bool {
	return b.StartCol.IsUnbounded() || b.StartRow.IsUnbounded() ||
		b.EndCol.IsUnbounded() || b.EndRow.IsUnbounded()
}

// Normalized returns the min/max-componentwise rect, per spec 3.3
// "geometric queries normalize via (min(s.c,e.c), min(s.r,e.r))-(max,max)".
func (b RefRangeBounds) Normalized() geom.Rect {
	return geom.RectFromPoints(b.Start(), b.End())
}

// ToRect returns the normalized rect only if the range is fully bounded
// (spec 3.3: "to_rect() returns None for unbounded").
func (b RefRangeBounds) ToRect() (geom.Rect, bool) {
	if b.IsUnbounded() {
		return geom.Rect{}, false
	}
	return b.Normalized(), true
}

// Translate shifts both authored endpoints by (dx, dy), skipping any
// axis marked Absolute — the core of reference adjustment (spec 4.4).
// Unbounded coordinates are also left untouched.
func (b RefRangeBounds) Translate(dx, dy int64) RefRangeBounds {
	shift := func(c Coord, d int64) Coord {
		if c.Absolute || c.IsUnbounded() {
			return c
		}
		c.Value += d
		return c
	}
	return RefRangeBounds{
		StartCol: shift(b.StartCol, dx), StartRow: shift(b.StartRow, dy),
		EndCol: shift(b.EndCol, dx), EndRow: shift(b.EndRow, dy),
	}
}

// TableRef is a structured reference into a data table (spec 3.3).
type TableRef struct {
	Name    string
	Columns []string // empty means "all data columns"
	RowSpan bool      // true if authored with a range of columns (Col1:Col2)
	Headers bool       // [#Headers]
	Totals  bool       // [#Totals]
}

// RangeKind tags the CellRefRange sum type.
type RangeKind int

const (
	RangeSheet RangeKind = iota
	RangeTable
)

// CellRefRange is the sum type from spec 3.3: either a geometric sheet
// range or a structured table reference.
type CellRefRange struct {
	Kind  RangeKind
	Sheet RefRangeBounds
	Table TableRef
}

func SheetRange(b RefRangeBounds) CellRefRange {
	return CellRefRange{Kind: RangeSheet, Sheet: b}
}

func TableRange(t TableRef) CellRefRange {
	return CellRefRange{Kind: RangeTable, Table: t}
}
