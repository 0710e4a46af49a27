package formula

import (
	"testing"

	"gridcore/internal/a1ctx"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

func TestAdjustReferencesShiftsRelativeOnly(t *testing.T) {
	got, err := AdjustReferences("A1+$B$2", 1, 1)
	if err != nil {
		t.Fatalf("AdjustReferences: %v", err)
	}
	want := "(B2+$B$2)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestAdjustReferencesShiftsRange(t *testing.T) {
	got, err := AdjustReferences("SUM(A1:B2)", 2, 3)
	if err != nil {
		t.Fatalf("AdjustReferences: %v", err)
	}
	want := "SUM(C4:D5)"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestEvalTopLevel(t *testing.T) {
	sheetID := geom.NewSheetID()
	a1c := a1ctx.NewBuilder().AddSheet(sheetID, "Sheet1", geom.NewRect(1, 1, 10, 10)).Build()
	ctx := &Ctx{
		A1:           a1c,
		CurrentSheet: sheetID,
		GetCell:      func(sp geom.SheetPos) grid.CellValue { return grid.Blank() },
		GetRange: func(sheetID geom.SheetID, rect geom.Rect) grid.CellValues {
			return *grid.NewCellValues(int(rect.Width()), int(rect.Height()))
		},
	}
	v := Eval("1+1", ctx)
	if v.ToDisplay() != "2" {
		t.Fatalf("expected 2, got %s", v.ToDisplay())
	}
}

func TestEvalSurfacesParseErrorsAsCellError(t *testing.T) {
	ctx := &Ctx{}
	v := Eval("1 2", ctx)
	if !v.IsError() {
		t.Fatalf("expected error cell, got %s", v.ToDisplay())
	}
}
