package eval

import (
	"testing"

	"gridcore/internal/a1ctx"
	"gridcore/internal/formula/parser"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

func newTestCtx(t *testing.T, cells map[geom.Pos]grid.CellValue) (*Ctx, geom.SheetID) {
	t.Helper()
	sheetID := geom.NewSheetID()
	a1c := a1ctx.NewBuilder().AddSheet(sheetID, "Sheet1", geom.NewRect(1, 1, 10, 10)).Build()
	return &Ctx{
		A1:           a1c,
		CurrentSheet: sheetID,
		GetCell: func(sp geom.SheetPos) grid.CellValue {
			if v, ok := cells[sp.Pos]; ok {
				return v
			}
			return grid.Blank()
		},
		GetRange: func(sheetID geom.SheetID, rect geom.Rect) grid.CellValues {
			width := int(rect.Width())
			height := int(rect.Height())
			block := grid.NewCellValues(width, height)
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					pos := geom.NewPos(rect.Min.X+int64(x), rect.Min.Y+int64(y))
					if v, ok := cells[pos]; ok {
						block.Set(x, y, v)
					}
				}
			}
			return *block
		},
	}, sheetID
}

func evalText(t *testing.T, text string, ctx *Ctx) grid.CellValue {
	t.Helper()
	expr, errs := parser.ParseFormula(text)
	if len(errs) > 0 {
		t.Fatalf("parse %q: %v", text, errs)
	}
	v, err := Eval(expr, ctx)
	if err != nil {
		t.Fatalf("eval %q: %v", text, err)
	}
	return v
}

func TestEvalArithmetic(t *testing.T) {
	ctx, _ := newTestCtx(t, nil)
	v := evalText(t, "1+2*3", ctx)
	if v.ToDisplay() != "7" {
		t.Fatalf("expected 7, got %s", v.ToDisplay())
	}
}

func TestEvalReferenceAndSum(t *testing.T) {
	sheetID := geom.NewSheetID()
	_ = sheetID
	cells := map[geom.Pos]grid.CellValue{
		geom.NewPos(1, 1): grid.NumberFromInt(1),
		geom.NewPos(1, 2): grid.NumberFromInt(2),
		geom.NewPos(1, 3): grid.NumberFromInt(3),
	}
	ctx, _ := newTestCtx(t, cells)
	v := evalText(t, "SUM(A1:A3)", ctx)
	if v.ToDisplay() != "6" {
		t.Fatalf("expected 6, got %s", v.ToDisplay())
	}
}

func TestEvalDivideByZero(t *testing.T) {
	ctx, _ := newTestCtx(t, nil)
	v := evalText(t, "1/0", ctx)
	if !v.IsError() {
		t.Fatalf("expected error value, got %s", v.ToDisplay())
	}
	if v.Err.Kind != grid.ErrDivideByZero {
		t.Fatalf("expected DivideByZero, got %s", v.Err.Kind)
	}
}

func TestEvalBlankCoercesToZero(t *testing.T) {
	ctx, _ := newTestCtx(t, nil)
	v := evalText(t, "A1+1", ctx)
	if v.ToDisplay() != "1" {
		t.Fatalf("expected 1, got %s", v.ToDisplay())
	}
}

func TestEvalConcatenation(t *testing.T) {
	ctx, _ := newTestCtx(t, nil)
	v := evalText(t, `"foo"&"bar"`, ctx)
	if v.ToDisplay() != "foobar" {
		t.Fatalf("expected foobar, got %s", v.ToDisplay())
	}
}

func TestEvalComparisonTextVsNumber(t *testing.T) {
	ctx, _ := newTestCtx(t, nil)
	v := evalText(t, `1<"a"`, ctx)
	if v.ToDisplay() != "TRUE" {
		t.Fatalf("expected TRUE (numbers sort below text), got %s", v.ToDisplay())
	}
}

func TestEvalIfFunction(t *testing.T) {
	ctx, _ := newTestCtx(t, nil)
	v := evalText(t, `IF(1=1,"yes","no")`, ctx)
	if v.ToDisplay() != "yes" {
		t.Fatalf("expected yes, got %s", v.ToDisplay())
	}
}
