package condformat

import (
	"testing"

	"gridcore/internal/a1"
	"gridcore/internal/a1ctx"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

func setup(t *testing.T) (geom.SheetID, *grid.Sheet, a1.Context) {
	t.Helper()
	sheetID := geom.NewSheetID()
	sheet := grid.NewSheet(sheetID, "Sheet1")
	ctx := a1ctx.NewBuilder().AddSheet(sheetID, "Sheet1", geom.NewRect(1, 1, 100, 100)).Build()
	return sheetID, sheet, ctx
}

func reader(sheet *grid.Sheet) CellReader {
	return CellReader{
		GetCell: func(sp geom.SheetPos) grid.CellValue { return sheet.GetCell(sp.Pos) },
		GetRange: func(sheetID geom.SheetID, rect geom.Rect) grid.CellValues {
			cv := *grid.NewCellValues(int(rect.Width()), int(rect.Height()))
			for y := rect.Min.Y; y <= rect.Max.Y; y++ {
				for x := rect.Min.X; x <= rect.Max.X; x++ {
					cv.Set(int(x-rect.Min.X), int(y-rect.Min.Y), sheet.GetCell(geom.Pos{X: x, Y: y}))
				}
			}
			return cv
		},
	}
}

// Spec 8 scenario 3: denormalized selection B1:A10 anchored at A1.
func TestDenormalizedSelectionAnchorsAtTopLeft(t *testing.T) {
	sheetID, sheet, ctx := setup(t)
	sheet.SetCell(geom.Pos{X: 1, Y: 1}, grid.NumberFromInt(10)) // A1
	sheet.SetCell(geom.Pos{X: 1, Y: 2}, grid.NumberFromInt(3))  // A2
	sheet.SetCell(geom.Pos{X: 2, Y: 1}, grid.NumberFromInt(8))  // B1
	sheet.SetCell(geom.Pos{X: 2, Y: 2}, grid.NumberFromInt(2))  // B2
	sheet.SetCell(geom.Pos{X: 3, Y: 1}, grid.NumberFromInt(99)) // C1, outside

	sel := a1.A1Selection{
		SheetID: sheetID,
		Cursor:  geom.Pos{X: 2, Y: 1},
		Ranges: []a1.CellRefRange{a1.SheetRange(a1.RefRangeBounds{
			StartCol: a1.Coord{Value: 2}, StartRow: a1.Coord{Value: 1},
			EndCol: a1.Coord{Value: 1}, EndRow: a1.Coord{Value: 10},
		})},
	}
	cf := &ConditionalFormat{
		ID:        "cf1",
		Selection: sel,
		Config:    Config{FormulaText: "A1>5", StructuredKind: KindCustom},
	}

	cases := []struct {
		pos     geom.Pos
		matches bool
	}{
		{geom.Pos{X: 1, Y: 1}, true},  // A1
		{geom.Pos{X: 2, Y: 1}, true},  // B1
		{geom.Pos{X: 1, Y: 2}, false}, // A2
		{geom.Pos{X: 2, Y: 2}, false}, // B2
		{geom.Pos{X: 3, Y: 1}, false}, // C1 outside selection entirely
	}
	for _, c := range cases {
		if !sel.ContainsPos(c.pos, ctx) && c.pos != (geom.Pos{X: 3, Y: 1}) {
			t.Fatalf("selection should contain %v", c.pos)
		}
		if c.pos == (geom.Pos{X: 3, Y: 1}) {
			continue
		}
		matched, err := EvaluateFormula(cf, sheetID, sheet, c.pos, ctx, reader(sheet))
		if err != nil {
			t.Fatalf("eval error at %v: %v", c.pos, err)
		}
		if matched != c.matches {
			t.Fatalf("at %v: matched=%v, want %v", c.pos, matched, c.matches)
		}
	}
}

// Spec 8 scenario 4: color scale ignores blanks for min/max.
func TestColorScaleIgnoresBlanksForMinMax(t *testing.T) {
	sheetID, sheet, ctx := setup(t)
	for i := int64(1); i <= 10; i++ {
		sheet.SetCell(geom.Pos{X: 1, Y: i}, grid.NumberFromInt(i))
	}
	// A15 stays blank.

	sel := a1.NewA1Selection(sheetID, geom.Pos{X: 1, Y: 1})
	sel.Ranges = []a1.CellRefRange{a1.SheetRange(a1.RefRangeBounds{
		StartCol: a1.Coord{Value: 1}, StartRow: a1.Coord{Value: 1},
		EndCol: a1.Coord{Value: 1}, EndRow: a1.Coord{Value: geom.Unbounded},
	})}
	red := grid.Rgb{R: 255, G: 0, B: 0}
	green := grid.Rgb{R: 0, G: 255, B: 0}
	cf := &ConditionalFormat{
		ID:        "cs1",
		Selection: sel,
		Config: Config{
			IsColorScale: true,
			Thresholds: []Threshold{
				{Type: ThresholdMin, Color: red},
				{Type: ThresholdMax, Color: green},
			},
		},
	}
	cache := NewThresholdCache()

	color, ok := ResolveColorScale(cf, sheetID, sheet, geom.Pos{X: 1, Y: 1}, ctx, cache)
	if !ok || color != red {
		t.Fatalf("A1 color = %+v, ok=%v, want red", color, ok)
	}
	color, ok = ResolveColorScale(cf, sheetID, sheet, geom.Pos{X: 1, Y: 10}, ctx, cache)
	if !ok || color != green {
		t.Fatalf("A10 color = %+v, ok=%v, want green", color, ok)
	}
	_, ok = ResolveColorScale(cf, sheetID, sheet, geom.Pos{X: 1, Y: 15}, ctx, cache)
	if ok {
		t.Fatalf("blank A15 should have no fill")
	}

	first := cache.values(cf, sheetID, sheet, ctx)
	second := cache.values(cf, sheetID, sheet, ctx)
	if len(first) != len(second) {
		t.Fatalf("threshold cache not stable across calls within a transaction")
	}
	cache.Clear(sheetID)
	if _, ok := cache.bySheet[sheetID]; ok {
		t.Fatalf("cache not cleared")
	}
}
