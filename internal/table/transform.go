package table

import "gridcore/internal/grid"

// SetFirstRowAsHeader toggles header_is_first_row (spec 4.5). When
// turning it on, the first data row is promoted into the column header
// names and removed from the value array (sans the one row eaten);
// when turning it off, the reverse happens: headers become a prepended
// data row with letter-named columns.
func (t *DataTable) SetFirstRowAsHeader(on bool) {
	if on == t.HeaderIsFirstRow {
		return
	}
	if on {
		if t.Height == 0 {
			t.HeaderIsFirstRow = true
			return
		}
		for i := range t.ColumnHeaders {
			t.ColumnHeaders[i].Name = t.Get(i, 0)
		}
		t.UniquifyColumnNames()
		t.DeleteRows([]int{0})
		t.HeaderIsFirstRow = true
		return
	}
	headerRow := make([]grid.CellValue, t.Width)
	for i, h := range t.ColumnHeaders {
		headerRow[i] = h.Name
		t.ColumnHeaders[i].Name = grid.Text(nameForIndex(i))
	}
	t.InsertRows(0, 1)
	for i, v := range headerRow {
		t.Set(i, 0, v)
	}
	t.HeaderIsFirstRow = false
}

func nameForIndex(i int) string {
	col := i + 1
	var b []byte
	for col > 0 {
		col--
		b = append([]byte{byte('A' + col%26)}, b...)
		col /= 26
	}
	return string(b)
}

// ToDisplayValues materializes the full displayed block (data rows only,
// honoring the sort permutation) as a CellValues block, the shape
// Flatten (spec 4.5) writes back to the sheet.
func (t *DataTable) ToDisplayValues() *grid.CellValues {
	out := grid.NewCellValues(t.Width, t.Height)
	for row := 0; row < t.Height; row++ {
		for col := 0; col < t.Width; col++ {
			out.Set(col, row, t.GetDisplay(col, row))
		}
	}
	return out
}
