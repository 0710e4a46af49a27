package a1

import "gridcore/internal/geom"

// ContainsPos reports whether pos is covered by r, resolving table refs
// against ctx (spec 3.4 contains_pos).
func (r CellRefRange) ContainsPos(sheetID geom.SheetID, pos geom.Pos, ctx Context) bool {
	switch r.Kind {
	case RangeSheet:
		return r.Sheet.Normalized().Contains(pos)
	case RangeTable:
		ti, ok := ctx.TableInfo(r.Table.Name)
		if !ok || ti.SheetID != sheetID {
			return false
		}
		rect, ok := ti.ColumnRect(r.Table)
		if !ok {
			return false
		}
		return rect.Contains(pos)
	}
	return false
}

// IntersectsRect reports whether r overlaps rect, short-circuiting via
// table bounds when applicable (spec 4.1).
func (r CellRefRange) IntersectsRect(sheetID geom.SheetID, rect geom.Rect, ctx Context) bool {
	switch r.Kind {
	case RangeSheet:
		finite := r.Sheet.Normalized()
		if r.Sheet.IsUnbounded() {
			finite = finite.ClampTo(ctx.SheetDataBounds(sheetID).Union(rect))
		}
		return finite.Intersects(rect)
	case RangeTable:
		ti, ok := ctx.TableInfo(r.Table.Name)
		if !ok || ti.SheetID != sheetID {
			return false
		}
		tr, ok := ti.ColumnRect(r.Table)
		if !ok {
			return false
		}
		return tr.Intersects(rect)
	}
	return false
}

// ToRect returns the finite rect for r, or (zero, false) for an
// unbounded sheet range or an unresolvable table ref.
func (r CellRefRange) ToRect(sheetID geom.SheetID, ctx Context) (geom.Rect, bool) {
	switch r.Kind {
	case RangeSheet:
		return r.Sheet.ToRect()
	case RangeTable:
		ti, ok := ctx.TableInfo(r.Table.Name)
		if !ok || ti.SheetID != sheetID {
			return geom.Rect{}, false
		}
		return ti.ColumnRect(r.Table)
	}
	return geom.Rect{}, false
}

// LargestRectFinite clamps unbounded sides to the sheet's data bounds
// (spec 4.1 largest_rect_finite).
func (r CellRefRange) LargestRectFinite(sheetID geom.SheetID, ctx Context) geom.Rect {
	if rect, ok := r.ToRect(sheetID, ctx); ok {
		return rect
	}
	if r.Kind == RangeSheet {
		return r.Sheet.Normalized().ClampTo(ctx.SheetDataBounds(sheetID))
	}
	return geom.Rect{}
}

// IterPositions enumerates every position in r, bounded via ctx for
// unbounded/table ranges (spec 4.1 iter_positions).
func (r CellRefRange) IterPositions(sheetID geom.SheetID, ctx Context) []geom.Pos {
	rect := r.LargestRectFinite(sheetID, ctx)
	var out []geom.Pos
	for y := rect.Min.Y; y <= rect.Max.Y; y++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			out = append(out, geom.Pos{X: x, Y: y})
		}
	}
	return out
}

// Translate shifts a Sheet-kind range by (dx, dy); Table-kind ranges are
// unaffected (structured references aren't subject to relative-offset
// translation).
func (r CellRefRange) Translate(dx, dy int64) CellRefRange {
	if r.Kind != RangeSheet {
		return r
	}
	out := r
	out.Sheet = r.Sheet.Translate(dx, dy)
	return out
}
