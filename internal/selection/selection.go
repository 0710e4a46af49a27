// Package selection implements the select_to state machine (spec
// component C8): anchor tracking for mouse-drag vs keyboard-shift
// selection, merged-cell expansion to fixpoint, and the boundary/
// unbounded-clamp edge cases. Grounded on a1.MoveTo/SelectRect's
// replace-or-append shape (a1/selection.go), generalized to track an
// explicit anchor across repeated calls the way a UI cursor does.
package selection

import (
	"gridcore/internal/a1"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

// Mode tags which anchor rule select_to should use (spec 4.8).
type Mode int

const (
	// None: the caller is constructing a selection afresh; the anchor is
	// the last range's own start.
	None Mode = iota
	// ForMouseDrag: the cursor position is treated as the anchor; range
	// runs anchor -> target, cursor stays at the anchor.
	ForMouseDrag
	// ForKeyboardShift: an explicit anchor is supplied; the cursor stays
	// fixed at that anchor while the range's far end moves.
	ForKeyboardShift
)

// State carries the anchor position for ForMouseDrag/ForKeyboardShift;
// ignored when Mode is None.
type State struct {
	Mode   Mode
	Anchor geom.Pos
}

// SelectTo implements spec 4.8's select_to contract. merges may be nil
// (no merged cells to expand through).
func SelectTo(sel a1.A1Selection, x, y int64, append bool, ctx a1.Context, merges *grid.MergeCells, state State) a1.A1Selection {
	last := sel.LastRange()

	if state.Mode == ForKeyboardShift && atSheetEdge(x, y, last) {
		return sel
	}

	target := geom.Pos{X: clamp1(x), Y: clamp1(y)}

	if !append && state.Mode == None && last.Kind == a1.RangeSheet && last.Sheet.End() == target {
		return sel
	}

	anchor := anchorFor(sel, last, state)

	rect := geom.RectFromPoints(anchor, target)

	if last.Kind == a1.RangeTable {
		return selectTableColumn(sel, last, target, ctx)
	}

	if merges != nil {
		rect = expandThroughMerges(rect, merges)
	}

	newRange := a1.SheetRange(a1.CellRangeBounds(rect.Min, rect.Max))

	out := sel
	switch state.Mode {
	case ForKeyboardShift, ForMouseDrag:
		out.Cursor = state.Anchor
	default:
		out.Cursor = anchor
	}

	if append {
		return appendRange(out, newRange)
	}
	return replaceLastRange(out, newRange)
}

// anchorFor resolves the anchor position per spec 4.8 step 2. An
// unbounded starting coordinate (the last range was e.g. "A:B") has no
// fixed anchor on that axis, so it clamps to 1 here — the same value
// select_rect/move_to use for the minimum addressable position — letting
// the unbounded-clamp rule (step 6) fall out of ordinary rect math
// instead of a special case.
func anchorFor(sel a1.A1Selection, last a1.CellRefRange, state State) geom.Pos {
	switch state.Mode {
	case ForKeyboardShift, ForMouseDrag:
		return state.Anchor
	default:
		if last.Kind == a1.RangeSheet {
			start := last.Sheet.Start()
			if start.X == geom.Unbounded {
				start.X = 1
			}
			if start.Y == geom.Unbounded {
				start.Y = 1
			}
			return start
		}
		return sel.Cursor
	}
}

// atSheetEdge implements the keyboard boundary no-op (spec 4.8 step 5):
// if the previous selection's end is already at a sheet edge (x or y ==
// 1, the minimum addressable position) and the raw requested move would
// cross it, the keystroke is swallowed before any clamping happens —
// clamping the target first would make this case unreachable, since a
// clamped target can never fall below the edge it's being compared to.
func atSheetEdge(x, y int64, last a1.CellRefRange) bool {
	if last.Kind != a1.RangeSheet {
		return false
	}
	end := last.Sheet.End()
	if end.X == 1 && x < end.X {
		return true
	}
	if end.Y == 1 && y < end.Y {
		return true
	}
	return false
}

// expandThroughMerges repeats rect union with any intersecting-but-not-
// contained merge until a fixpoint is reached (spec 4.8 step 4): a merge
// is always either wholly inside or wholly outside the result.
func expandThroughMerges(rect geom.Rect, merges *grid.MergeCells) geom.Rect {
	for {
		grown := false
		for _, m := range merges.MergesIntersecting(rect) {
			if rect.ContainsRect(m) {
				continue
			}
			rect = rect.Union(m)
			grown = true
		}
		if !grown {
			return rect
		}
	}
}

// selectTableColumn implements the table-column delegation of spec 4.8
// step 7: dragging across a table-column reference grows (or shrinks)
// the addressed column span rather than falling back to raw coordinate
// math, which has no notion of "this column's name".
func selectTableColumn(sel a1.A1Selection, last a1.CellRefRange, target geom.Pos, ctx a1.Context) a1.A1Selection {
	ti, ok := ctx.TableInfo(last.Table.Name)
	if !ok || len(last.Table.Columns) == 0 {
		return sel
	}
	dataRect := ti.DataBounds
	if !dataRect.Contains(geom.Pos{X: target.X, Y: dataRect.Min.Y}) {
		return sel
	}
	targetIdx := int(target.X - dataRect.Min.X)
	if targetIdx < 0 || targetIdx >= len(ti.Columns) {
		return sel
	}
	anchorIdx := indexOfColumn(ti.Columns, last.Table.Columns[0])
	if anchorIdx < 0 {
		return sel
	}
	lo, hi := anchorIdx, targetIdx
	if lo > hi {
		lo, hi = hi, lo
	}
	newTable := last.Table
	newTable.Columns = append([]string(nil), ti.Columns[lo:hi+1]...)
	newTable.RowSpan = hi > lo
	return replaceLastRange(sel, a1.TableRange(newTable))
}

func indexOfColumn(columns []string, name string) int {
	for i, c := range columns {
		if c == name {
			return i
		}
	}
	return -1
}

func appendRange(s a1.A1Selection, r a1.CellRefRange) a1.A1Selection {
	out := s
	out.Ranges = append(append([]a1.CellRefRange(nil), s.Ranges...), r)
	return out
}

func replaceLastRange(s a1.A1Selection, r a1.CellRefRange) a1.A1Selection {
	out := s
	out.Ranges = append([]a1.CellRefRange(nil), s.Ranges...)
	out.Ranges[len(out.Ranges)-1] = r
	return out
}

func clamp1(v int64) int64 {
	if v < 1 {
		return 1
	}
	return v
}
