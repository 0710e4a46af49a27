package selection

import (
	"testing"

	"gridcore/internal/a1"
	"gridcore/internal/a1ctx"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

func newCtx(sheetID geom.SheetID) a1.Context {
	return a1ctx.NewBuilder().AddSheet(sheetID, "Sheet1", geom.NewRect(1, 1, 100, 100)).Build()
}

func TestKeyboardShiftAnchorPreservation(t *testing.T) {
	sheetID := geom.NewSheetID()
	ctx := newCtx(sheetID)
	sel := a1.NewA1Selection(sheetID, geom.Pos{X: 1, Y: 1})

	state := State{Mode: ForKeyboardShift, Anchor: geom.Pos{X: 1, Y: 1}}
	sel = SelectTo(sel, 2, 1, true, ctx, nil, state)
	if sel.Cursor != (geom.Pos{X: 1, Y: 1}) {
		t.Fatalf("cursor moved: %+v", sel.Cursor)
	}
	last := sel.LastRange()
	if last.Sheet.Normalized() != geom.NewRect(1, 1, 2, 1) {
		t.Fatalf("unexpected range %+v", last.Sheet)
	}

	sel = SelectTo(sel, 3, 1, true, ctx, nil, state)
	last = sel.LastRange()
	if last.Sheet.Normalized() != geom.NewRect(1, 1, 3, 1) {
		t.Fatalf("unexpected range after second shift %+v", last.Sheet)
	}
	if sel.Cursor != (geom.Pos{X: 1, Y: 1}) {
		t.Fatalf("cursor moved on second shift: %+v", sel.Cursor)
	}
}

func TestSelectThroughMergedCell(t *testing.T) {
	sheetID := geom.NewSheetID()
	ctx := newCtx(sheetID)
	merges := grid.NewMergeCells()
	merges.Add(geom.NewRect(2, 3, 5, 3)) // B3:E3

	sel := a1.NewA1Selection(sheetID, geom.Pos{X: 3, Y: 2}) // C2
	state := State{Mode: ForKeyboardShift, Anchor: geom.Pos{X: 3, Y: 2}}

	sel = SelectTo(sel, 3, 3, true, ctx, merges, state)
	rect := sel.LastRange().Sheet.Normalized()
	if !rect.ContainsRect(geom.NewRect(2, 2, 5, 3)) {
		t.Fatalf("merge not fully covered: %+v", rect)
	}

	sel = SelectTo(sel, 3, 4, true, ctx, merges, state)
	rect = sel.LastRange().Sheet.Normalized()
	if !rect.ContainsRect(geom.NewRect(2, 2, 5, 4)) {
		t.Fatalf("merge not fully covered after second drag: %+v", rect)
	}
}

func TestUnboundedSideClampsToTarget(t *testing.T) {
	sheetID := geom.NewSheetID()
	ctx := newCtx(sheetID)
	sel := a1.NewA1Selection(sheetID, geom.Pos{X: 1, Y: 1})
	sel = a1.SelectRect(sel, 1, 1, 2, geom.Unbounded, false) // A:B

	state := State{Mode: ForKeyboardShift, Anchor: geom.Pos{X: 1, Y: 1}}
	sel = SelectTo(sel, 3, 5, false, ctx, nil, state)
	rect := sel.LastRange().Sheet.Normalized()
	want := geom.NewRect(1, 1, 3, 5)
	if rect != want {
		t.Fatalf("got %+v, want %+v", rect, want)
	}
}

func TestBoundaryNoOpAtSheetEdge(t *testing.T) {
	sheetID := geom.NewSheetID()
	ctx := newCtx(sheetID)
	sel := a1.NewA1Selection(sheetID, geom.Pos{X: 1, Y: 1})
	state := State{Mode: ForKeyboardShift, Anchor: geom.Pos{X: 1, Y: 1}}

	got := SelectTo(sel, 0, 1, true, ctx, nil, state)
	if got.LastRange().Sheet.End() != sel.LastRange().Sheet.End() {
		t.Fatalf("expected no-op at left edge, got %+v", got.LastRange().Sheet)
	}
}
