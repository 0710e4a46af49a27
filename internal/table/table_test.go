package table

import (
	"testing"

	"gridcore/internal/grid"
)

func newGrid(w, h int, fill func(col, row int) grid.CellValue) *DataTable {
	dt := New("Data", w, h)
	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			dt.Set(col, row, fill(col, row))
		}
	}
	return dt
}

func TestColumnValueIndexIntegrity(t *testing.T) {
	dt := newGrid(3, 2, func(col, row int) grid.CellValue { return grid.NumberFromInt(int64(col)) })
	dt.InsertColumn(1, "Mid", nil)
	for i, h := range dt.ColumnHeaders {
		if h.ValueIndex != i {
			t.Fatalf("column %d has ValueIndex %d", i, h.ValueIndex)
		}
	}
	dt.DeleteColumns([]int{0})
	for i, h := range dt.ColumnHeaders {
		if h.ValueIndex != i {
			t.Fatalf("after delete, column %d has ValueIndex %d", i, h.ValueIndex)
		}
	}
}

func TestSortAllProducesPermutation(t *testing.T) {
	dt := newGrid(1, 4, func(col, row int) grid.CellValue {
		vals := []int64{300, 100, 400, 200}
		return grid.NumberFromInt(vals[row])
	})
	dt.Sort = []SortSpec{{ColumnIndex: 0, Direction: SortAscending}}
	dt.SortAll()

	if len(dt.DisplayBuffer) != dt.Height {
		t.Fatalf("display buffer length %d, want %d", len(dt.DisplayBuffer), dt.Height)
	}
	seen := make(map[int]bool)
	for _, row := range dt.DisplayBuffer {
		if row < 0 || row >= dt.Height || seen[row] {
			t.Fatalf("display buffer is not a permutation: %v", dt.DisplayBuffer)
		}
		seen[row] = true
	}
	want := []int64{100, 200, 300, 400}
	for i, wantVal := range want {
		got := dt.GetDisplay(0, i)
		if !got.Number.Equal(grid.NumberFromInt(wantVal).Number) {
			t.Fatalf("display row %d = %v, want %d", i, got, wantVal)
		}
	}
}

func TestSortBlankAlwaysLast(t *testing.T) {
	dt := newGrid(1, 3, func(col, row int) grid.CellValue {
		if row == 1 {
			return grid.Blank()
		}
		return grid.NumberFromInt(int64(row))
	})
	dt.Sort = []SortSpec{{ColumnIndex: 0, Direction: SortDescending}}
	dt.SortAll()
	last := dt.GetDisplay(0, dt.Height-1)
	if !last.IsBlank() {
		t.Fatalf("blank cell not sorted last: %+v", last)
	}
}

func TestDeleteAllRowsLeavesOneBlankRow(t *testing.T) {
	dt := newGrid(2, 3, func(col, row int) grid.CellValue { return grid.NumberFromInt(1) })
	dt.DeleteRows([]int{0, 1, 2})
	if dt.Height != 1 {
		t.Fatalf("height = %d, want 1", dt.Height)
	}
	if !dt.Get(0, 0).IsBlank() || !dt.Get(1, 0).IsBlank() {
		t.Fatalf("remaining row is not blank: %+v", dt.Values)
	}
}

func TestFirstRowAsHeaderRoundTrip(t *testing.T) {
	dt := newGrid(2, 3, func(col, row int) grid.CellValue {
		if row == 0 {
			return grid.Text([]string{"Name", "Age"}[col])
		}
		return grid.NumberFromInt(int64(row))
	})
	dt.SetFirstRowAsHeader(true)
	if dt.Height != 2 {
		t.Fatalf("height after promoting header = %d, want 2", dt.Height)
	}
	if dt.ColumnHeaders[0].Name.ToDisplay() != "Name" || dt.ColumnHeaders[1].Name.ToDisplay() != "Age" {
		t.Fatalf("headers not promoted: %+v", dt.ColumnHeaders)
	}

	dt.SetFirstRowAsHeader(false)
	if dt.Height != 3 {
		t.Fatalf("height after demoting header = %d, want 3", dt.Height)
	}
	if dt.Get(0, 0).ToDisplay() != "Name" || dt.Get(1, 0).ToDisplay() != "Age" {
		t.Fatalf("header row not reinserted: %+v", dt.Values)
	}
}

func TestUniquifyColumnNames(t *testing.T) {
	dt := New("Data", 3, 1)
	dt.ColumnHeaders[0].Name = grid.Text("Total")
	dt.ColumnHeaders[1].Name = grid.Text("Total")
	dt.ColumnHeaders[2].Name = grid.Text("total") // collides case-insensitively
	dt.UniquifyColumnNames()

	seen := make(map[string]bool)
	for _, h := range dt.ColumnHeaders {
		key := h.Name.ToDisplay()
		if seen[key] {
			t.Fatalf("duplicate column name after uniquify: %v", dt.ColumnHeaders)
		}
		seen[key] = true
	}
}
