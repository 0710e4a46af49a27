package a1

import "gridcore/internal/geom"

// A1Selection is the selection model from spec 3.4: a cursor (active
// cell, not necessarily inside any range after mutation) plus a
// non-empty ordered list of ranges. Ranges[0] supplies the formula
// anchor for conditional-format rules and for shift-style selection
// replacement.
type A1Selection struct {
	SheetID geom.SheetID
	Cursor  geom.Pos
	Ranges  []CellRefRange // invariant: len >= 1, enforced by constructors
}

// NewA1Selection builds a selection around a single cell, the starting
// point move_to/select_to operate on.
func NewA1Selection(sheetID geom.SheetID, cursor geom.Pos) A1Selection {
	return A1Selection{
		SheetID: sheetID,
		Cursor:  cursor,
		Ranges:  []CellRefRange{SheetRange(SingleCellBounds(cursor))},
	}
}

// ContainsPos is the union over ranges (spec 3.4).
func (s A1Selection) ContainsPos(pos geom.Pos, ctx Context) bool {
	for _, r := range s.Ranges {
		if r.ContainsPos(s.SheetID, pos, ctx) {
			return true
		}
	}
	return false
}

func (s A1Selection) IntersectsRect(rect geom.Rect, ctx Context) bool {
	for _, r := range s.Ranges {
		if r.IntersectsRect(s.SheetID, rect, ctx) {
			return true
		}
	}
	return false
}

// Anchor returns the formula/shift anchor: the top-left (componentwise
// min) of Ranges[0] (spec 3.7 "selection.ranges[0] top-left is the
// formula anchor").
func (s A1Selection) Anchor() geom.Pos {
	if len(s.Ranges) == 0 {
		return s.Cursor
	}
	r := s.Ranges[0]
	if r.Kind == RangeSheet {
		return r.Sheet.Normalized().Min
	}
	return s.Cursor
}

// LastRange returns the range shift/append mutations act on.
func (s A1Selection) LastRange() CellRefRange {
	return s.Ranges[len(s.Ranges)-1]
}

// replaceLast returns a copy of s with its final range replaced.
func (s A1Selection) replaceLast(r CellRefRange) A1Selection {
	out := s
	out.Ranges = append([]CellRefRange(nil), s.Ranges...)
	out.Ranges[len(out.Ranges)-1] = r
	return out
}

// appendRange returns a copy of s with r appended as a new range
// (spec 4.1 "Append mode").
func (s A1Selection) appendRange(r CellRefRange) A1Selection {
	out := s
	out.Ranges = append(append([]CellRefRange(nil), s.Ranges...), r)
	return out
}

// MoveTo sets the cursor and replaces (or appends to) the selection
// with a single-cell range at (x, y) (spec 4.1 move_to).
func MoveTo(s A1Selection, x, y int64, append bool) A1Selection {
	p := geom.Pos{X: max1(x), Y: max1(y)}
	out := s
	out.Cursor = p
	single := SheetRange(SingleCellBounds(p))
	if append {
		return out.appendRange(single)
	}
	return out.replaceLast(single)
}

// SelectRect replaces (or appends) the last range with the rectangle
// (x1,y1)-(x2,y2) and moves the cursor to (x1, y1) (spec 4.1 select_rect).
func SelectRect(s A1Selection, x1, y1, x2, y2 int64, append bool) A1Selection {
	a := geom.Pos{X: max1(x1), Y: max1(y1)}
	b := geom.Pos{X: max1(x2), Y: max1(y2)}
	out := s
	out.Cursor = a
	rng := SheetRange(CellRangeBounds(a, b))
	if append {
		return out.appendRange(rng)
	}
	return out.replaceLast(rng)
}

func max1(v int64) int64 {
	if v < 1 {
		return 1
	}
	return v
}
