package gridcore

import (
	"testing"

	"gridcore/internal/a1"
	"gridcore/internal/condformat"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
	"gridcore/internal/ops"
	"gridcore/internal/table"
)

func newTestFormat(sheetID geom.SheetID) *condformat.ConditionalFormat {
	return &condformat.ConditionalFormat{
		ID:        condformat.FormatID("cf-1"),
		Selection: a1.NewA1Selection(sheetID, geom.Pos{X: 1, Y: 1}),
		Config: condformat.Config{
			StructuredKind: "EqualCell",
			FormulaText:    "TRUE",
			Style:          grid.FormatUpdate{},
		},
	}
}

func newSheet(t *testing.T, c *Controller) geom.SheetID {
	t.Helper()
	id := geom.NewSheetID()
	if _, err := c.RunTransaction(ops.SourceUser, []ops.Operation{
		{Kind: ops.KindAddSheet, SheetID: id, SheetName: "Sheet1"},
	}); err != nil {
		t.Fatalf("add sheet: %v", err)
	}
	return id
}

func TestSetCellValuesAndUndoRoundTrip(t *testing.T) {
	c := New(nil)
	sheetID := newSheet(t, c)

	vals := grid.NewCellValues(1, 1)
	vals.Set(0, 0, grid.Text("hello"))
	tx, err := c.RunTransaction(ops.SourceUser, []ops.Operation{
		{Kind: ops.KindSetCellValues, SheetID: sheetID, Pos: geom.Pos{X: 1, Y: 1}, CellValues: vals},
	})
	if err != nil {
		t.Fatalf("set cell values: %v", err)
	}
	if got := c.Sheet(sheetID).GetCell(geom.Pos{X: 1, Y: 1}); got.Text != "hello" {
		t.Fatalf("unexpected cell value: %+v", got)
	}
	if len(tx.ReverseOperations) != 1 {
		t.Fatalf("expected one reverse op, got %d", len(tx.ReverseOperations))
	}

	if _, err := c.RunTransaction(ops.SourceUndo, tx.ReverseOperations); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := c.Sheet(sheetID).GetCell(geom.Pos{X: 1, Y: 1}); !got.IsBlank() {
		t.Fatalf("expected blank cell after undo, got %+v", got)
	}
}

func TestWriteIntoCodeTableAbortsAndRestores(t *testing.T) {
	c := New(nil)
	sheetID := newSheet(t, c)

	dt := table.New("Codes", 2, 2)
	dt.Kind = table.KindCodeFormula
	if _, err := c.RunTransaction(ops.SourceUser, []ops.Operation{
		{Kind: ops.KindAddDataTable, SheetID: sheetID, Pos: geom.Pos{X: 1, Y: 1}, DataTable: dt},
	}); err != nil {
		t.Fatalf("add table: %v", err)
	}

	before := c.Sheet(sheetID).DataBounds()

	vals := grid.NewCellValues(1, 1)
	vals.Set(0, 0, grid.Text("nope"))
	_, err := c.RunTransaction(ops.SourceUser, []ops.Operation{
		{Kind: ops.KindSetCellValues, SheetID: sheetID, Pos: geom.Pos{X: 1, Y: 2}, CellValues: vals},
	})
	if err == nil {
		t.Fatalf("expected guard error writing into code table")
	}
	if _, ok := err.(*ops.GuardError); !ok {
		t.Fatalf("expected *ops.GuardError, got %T: %v", err, err)
	}

	after := c.Sheet(sheetID).DataBounds()
	if before != after {
		t.Fatalf("sheet state changed after aborted transaction: %+v -> %+v", before, after)
	}
	if got := c.tables[sheetID][geom.Pos{X: 1, Y: 1}]; got == nil {
		t.Fatalf("code table was lost on abort")
	}
}

func TestDeleteDataTableAlreadyGoneIsNoOp(t *testing.T) {
	c := New(nil)
	sheetID := newSheet(t, c)

	_, err := c.RunTransaction(ops.SourceUser, []ops.Operation{
		{Kind: ops.KindDeleteDataTable, SheetID: sheetID, Pos: geom.Pos{X: 5, Y: 5}},
	})
	if err != nil {
		t.Fatalf("expected silent no-op for already-deleted table, got %v", err)
	}
}

func TestAddSheetAbortRemovesFromOrder(t *testing.T) {
	c := New(nil)
	first := newSheet(t, c)

	second := geom.NewSheetID()
	codeDT := table.New("Codes", 1, 1)
	codeDT.Kind = table.KindCodeFormula

	_, err := c.RunTransaction(ops.SourceUser, []ops.Operation{
		{Kind: ops.KindAddSheet, SheetID: second, SheetName: "Sheet2"},
		{Kind: ops.KindAddDataTable, SheetID: second, Pos: geom.Pos{X: 1, Y: 1}, DataTable: codeDT},
		{Kind: ops.KindSetCellValues, SheetID: second, Pos: geom.Pos{X: 1, Y: 1}, CellValues: grid.NewCellValues(1, 1)},
	})
	if err == nil {
		t.Fatalf("expected the third op to guard-abort")
	}

	if c.Sheet(second) != nil {
		t.Fatalf("aborted AddSheet should have been rolled back")
	}
	if len(c.sheetOrder) != 1 || c.sheetOrder[0] != first {
		t.Fatalf("sheetOrder should only contain the original sheet, got %v", c.sheetOrder)
	}
}

func TestConditionalFormatAddRemoveRoundTrip(t *testing.T) {
	c := New(nil)
	sheetID := newSheet(t, c)

	cf := newTestFormat(sheetID)
	tx, err := c.RunTransaction(ops.SourceUser, []ops.Operation{
		{Kind: ops.KindAddConditionalFormat, ConditionalFormat: cf},
	})
	if err != nil {
		t.Fatalf("add cf: %v", err)
	}
	if len(c.condFormats[sheetID]) != 1 {
		t.Fatalf("expected 1 conditional format, got %d", len(c.condFormats[sheetID]))
	}

	if _, err := c.RunTransaction(ops.SourceUndo, tx.ReverseOperations); err != nil {
		t.Fatalf("undo remove cf: %v", err)
	}
	if len(c.condFormats[sheetID]) != 0 {
		t.Fatalf("expected 0 conditional formats after undo, got %d", len(c.condFormats[sheetID]))
	}
}
