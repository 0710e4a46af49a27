// Package table implements the data-table overlay (spec component C5):
// a structured array anchored on the sheet, with sortable display
// buffers, hidden/typed columns, header modes, and table-local formats.
// Grounded structurally on grid.Sheet's map-backed storage (spec 3.5),
// generalized from "one flat cell map" to "one flat value array plus a
// permutation for display order".
package table

import (
	"fmt"
	"sort"
	"strings"

	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

// Kind tags whether a table's values are owned by an import or produced
// by a code run (spec 3.6).
type Kind int

const (
	KindImport Kind = iota
	KindCodeFormula
	KindCodePython
	KindCodeJS
)

func (k Kind) IsCode() bool { return k != KindImport }

// ColumnHeader is one column's metadata (spec 3.6).
type ColumnHeader struct {
	Name       grid.CellValue
	Display    bool
	ValueIndex int
}

// SortDirection is a column's sort order.
type SortDirection int

const (
	SortAscending SortDirection = iota
	SortDescending
)

// SortSpec is one key in a table's multi-column sort (spec 3.6).
type SortSpec struct {
	ColumnIndex int
	Direction   SortDirection
}

// DataTable is the overlay described in spec 3.6.
type DataTable struct {
	Name string
	Kind Kind

	// Width/Height describe the stored value array, which is always in
	// unsorted ("actual row") order; DisplayBuffer (if non-nil) maps
	// display row -> actual row.
	Width, Height int
	Values        []grid.CellValue // row-major actual order, len = Width*Height

	ColumnHeaders []ColumnHeader

	HeaderIsFirstRow bool
	ShowName         bool
	ShowColumns      bool

	Sort          []SortSpec
	DisplayBuffer []int // len == Height when non-nil; permutation of 0..Height-1

	Formats *TableFormats
	Borders *TableBorders

	AlternatingColors *bool
}

// TableFormats holds per-cell format overlays local to the table,
// addressed in data-row/column coordinates (0-based), overlaying sheet
// formats at the equivalent sheet position (spec 4.5 "format transfer").
type TableFormats struct {
	Cells *grid.Contiguous2D[grid.Style]
}

// TableBorders mirrors TableFormats for border edges.
type TableBorders struct {
	Cells *grid.Contiguous2D[grid.CellBorders]
}

// New builds an empty import-kind table of the given size, every cell
// blank, with one display-mode column header per column named by its
// A1 column letters (a new table's default naming, overwritten by
// callers who set explicit names).
func New(name string, width, height int) *DataTable {
	values := make([]grid.CellValue, width*height)
	for i := range values {
		values[i] = grid.Blank()
	}
	headers := make([]ColumnHeader, width)
	for i := range headers {
		headers[i] = ColumnHeader{
			Name:       grid.Text(geom.A1Column(int64(i + 1))),
			Display:    true,
			ValueIndex: i,
		}
	}
	return &DataTable{
		Name:          name,
		Kind:          KindImport,
		Width:         width,
		Height:        height,
		Values:        values,
		ColumnHeaders: headers,
		ShowName:      true,
		ShowColumns:   true,
	}
}

// Get returns the value at actual (unsorted) row/col, 0-based.
func (t *DataTable) Get(col, row int) grid.CellValue {
	if col < 0 || row < 0 || col >= t.Width || row >= t.Height {
		return grid.Blank()
	}
	return t.Values[row*t.Width+col]
}

func (t *DataTable) Set(col, row int, v grid.CellValue) {
	if col < 0 || row < 0 || col >= t.Width || row >= t.Height {
		return
	}
	t.Values[row*t.Width+col] = v
}

// DisplayRow resolves a display-order row to its actual storage row
// (spec 3.6 "display_row -> actual_row").
func (t *DataTable) DisplayRow(displayRow int) int {
	if t.DisplayBuffer == nil {
		return displayRow
	}
	if displayRow < 0 || displayRow >= len(t.DisplayBuffer) {
		return displayRow
	}
	return t.DisplayBuffer[displayRow]
}

// GetDisplay returns the value at (col, displayRow) honoring the sort
// permutation, the read path spec 4.4's get_cell_for_formula relies on.
func (t *DataTable) GetDisplay(col, displayRow int) grid.CellValue {
	return t.Get(col, t.DisplayRow(displayRow))
}

// YAdjustment is the number of display rows consumed by the table's UI
// (name row + column-header row), derived from ShowName/ShowColumns and
// HeaderIsFirstRow (spec 3.6).
func (t *DataTable) YAdjustment() int {
	adj := 0
	if t.ShowName {
		adj++
	}
	if t.ShowColumns && !t.HeaderIsFirstRow {
		adj++
	}
	return adj
}

// RectWithUI is the table's full displayed rect anchored at anchor,
// including name/column UI rows (spec 3.6 "rect with UI").
func (t *DataTable) RectWithUI(anchor geom.Pos) geom.Rect {
	h := t.Height + t.YAdjustment()
	return geom.NewRect(anchor.X, anchor.Y, anchor.X+int64(t.Width)-1, anchor.Y+int64(h)-1)
}

// RectData is the rect covering only data rows (UI rows excluded).
func (t *DataTable) RectData(anchor geom.Pos) geom.Rect {
	y0 := anchor.Y + int64(t.YAdjustment())
	return geom.NewRect(anchor.X, y0, anchor.X+int64(t.Width)-1, y0+int64(t.Height)-1)
}

// DataRowToSheetPos maps (col, displayRow) to the sheet position it
// renders at, honoring YAdjustment.
func (t *DataTable) DataRowToSheetPos(anchor geom.Pos, col, displayRow int) geom.Pos {
	return geom.Pos{X: anchor.X + int64(col), Y: anchor.Y + int64(t.YAdjustment()) + int64(displayRow)}
}

// IsReadonlyData reports whether cell-level data mutation is refused
// for this table (spec 3.6: "code tables are readonly for data
// mutation but writable for metadata").
func (t *DataTable) IsReadonlyData() bool { return t.Kind.IsCode() }

// --- Sort (spec 4.5) ---

// columnRank orders distinct value kinds for sort comparisons: numbers <
// text < booleans < date-like < blank, blank always last (spec 4.5).
func columnRank(v grid.CellValue) int {
	switch v.Kind {
	case grid.KindBlank:
		return 5
	case grid.KindText:
		if v.Text == "" {
			return 5
		}
		return 1
	case grid.KindNumber:
		return 0
	case grid.KindLogical:
		return 2
	case grid.KindDate, grid.KindTime, grid.KindDateTime, grid.KindInstant:
		return 3
	default:
		return 4
	}
}

// lessForSort implements spec 4.5's column ordering: within numbers,
// natural order; within text, case-insensitive with case as tie-break.
func lessForSort(a, b grid.CellValue) bool {
	ra, rb := columnRank(a), columnRank(b)
	if ra != rb {
		return ra < rb
	}
	switch a.Kind {
	case grid.KindNumber:
		return a.Number.LessThan(b.Number)
	case grid.KindText:
		la, lb := strings.ToLower(a.Text), strings.ToLower(b.Text)
		if la != lb {
			return la < lb
		}
		return a.Text < b.Text
	case grid.KindLogical:
		return !a.Logical && b.Logical
	default:
		return a.ToDisplay() < b.ToDisplay()
	}
}

// SortAll recomputes DisplayBuffer from scratch using t.Sort, stable on
// original row index (spec 4.5 sort_all).
func (t *DataTable) SortAll() {
	if len(t.Sort) == 0 {
		t.DisplayBuffer = nil
		return
	}
	rows := make([]int, t.Height)
	for i := range rows {
		rows[i] = i
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ri, rj := rows[i], rows[j]
		for _, spec := range t.Sort {
			a, b := t.Get(spec.ColumnIndex, ri), t.Get(spec.ColumnIndex, rj)
			if lessForSort(a, b) == lessForSort(b, a) {
				continue // equal under this key, fall through to next
			}
			if spec.Direction == SortDescending {
				// Blanks stay last in descending order too.
				if ra, rb := columnRank(a), columnRank(b); ra != rb && (ra == 5 || rb == 5) {
					return rb == 5
				}
				return lessForSort(b, a)
			}
			return lessForSort(a, b)
		}
		return false
	})
	t.DisplayBuffer = rows
}

// CheckSort re-derives the display buffer after a structural or value
// mutation (spec 4.5 check_sort), a no-op when the table is unsorted.
func (t *DataTable) CheckSort() {
	if len(t.Sort) == 0 {
		t.DisplayBuffer = nil
		return
	}
	t.SortAll()
}

// --- Column insert/delete (spec 4.5) ---

// InsertColumn inserts a new column at index (0-based) with the given
// header name; values defaults to blank for every row if nil. Rewrites
// every column's ValueIndex afterward (spec 3.6 invariant).
func (t *DataTable) InsertColumn(index int, headerName string, values []grid.CellValue) {
	if index < 0 {
		index = 0
	}
	if index > t.Width {
		index = t.Width
	}
	newValues := make([]grid.CellValue, (t.Width+1)*t.Height)
	for row := 0; row < t.Height; row++ {
		for col := 0; col < t.Width+1; col++ {
			dst := row*(t.Width+1) + col
			switch {
			case col < index:
				newValues[dst] = t.Get(col, row)
			case col == index:
				if values != nil && row < len(values) {
					newValues[dst] = values[row]
				} else {
					newValues[dst] = grid.Blank()
				}
			default:
				newValues[dst] = t.Get(col-1, row)
			}
		}
	}
	newHeaders := make([]ColumnHeader, 0, len(t.ColumnHeaders)+1)
	newHeaders = append(newHeaders, t.ColumnHeaders[:index]...)
	newHeaders = append(newHeaders, ColumnHeader{Name: grid.Text(headerName), Display: true})
	newHeaders = append(newHeaders, t.ColumnHeaders[index:]...)

	t.Width++
	t.Values = newValues
	t.ColumnHeaders = newHeaders
	t.renumberColumns()
	t.UniquifyColumnNames()
	t.CheckSort()
}

// InsertColumnSwallowed is InsertColumn's swallow variant (spec 4.5
// "swallow"): the caller has already read values (and, if any, styles)
// out of the adjacent sheet cells the new column is replacing, rather
// than leaving the column blank. Styles is addressed row-for-row
// against values (nil entries mean "no sheet format at that row").
func (t *DataTable) InsertColumnSwallowed(index int, headerName string, values []grid.CellValue, styles []*grid.Style) {
	t.InsertColumn(index, headerName, values)
	if len(styles) == 0 {
		return
	}
	for row, style := range styles {
		if style == nil {
			continue
		}
		if t.Formats == nil {
			t.Formats = &TableFormats{Cells: grid.NewContiguous2D[grid.Style]()}
		}
		t.Formats.Cells.Set(geom.Pos{X: int64(index), Y: int64(row)}, *style)
	}
}

// DeleteColumns removes the columns at the given 0-based indices
// (deduplicated and order-independent).
func (t *DataTable) DeleteColumns(indices []int) {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	keep := make([]int, 0, t.Width)
	for i := 0; i < t.Width; i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	newValues := make([]grid.CellValue, len(keep)*t.Height)
	for row := 0; row < t.Height; row++ {
		for j, col := range keep {
			newValues[row*len(keep)+j] = t.Get(col, row)
		}
	}
	newHeaders := make([]ColumnHeader, len(keep))
	for j, col := range keep {
		newHeaders[j] = t.ColumnHeaders[col]
	}
	t.Width = len(keep)
	t.Values = newValues
	t.ColumnHeaders = newHeaders
	t.renumberColumns()
	t.CheckSort()
}

// ColumnValues returns index's (0-based) values in actual row order,
// the snapshot a flatten delete (spec 4.5) must take before
// DeleteColumns discards the column.
func (t *DataTable) ColumnValues(index int) []grid.CellValue {
	vals := make([]grid.CellValue, t.Height)
	for row := 0; row < t.Height; row++ {
		vals[row] = t.Get(index, row)
	}
	return vals
}

func (t *DataTable) renumberColumns() {
	for i := range t.ColumnHeaders {
		t.ColumnHeaders[i].ValueIndex = i
	}
}

// --- Row insert/delete (spec 4.5) ---

// InsertRows inserts blankHeight blank rows at the given actual-row
// index.
func (t *DataTable) InsertRows(index int, blankHeight int) {
	if index < 0 {
		index = 0
	}
	if index > t.Height {
		index = t.Height
	}
	newHeight := t.Height + blankHeight
	newValues := make([]grid.CellValue, t.Width*newHeight)
	for i := range newValues {
		newValues[i] = grid.Blank()
	}
	for row := 0; row < index; row++ {
		copy(newValues[row*t.Width:(row+1)*t.Width], t.Values[row*t.Width:(row+1)*t.Width])
	}
	for row := index; row < t.Height; row++ {
		dst := row + blankHeight
		copy(newValues[dst*t.Width:(dst+1)*t.Width], t.Values[row*t.Width:(row+1)*t.Width])
	}
	t.Height = newHeight
	t.Values = newValues
	t.CheckSort()
}

// DeleteRows removes the actual rows at the given indices. If the
// result would be empty, a single blank row is appended so the table
// remains non-empty (spec 4.5 "deleting all rows").
func (t *DataTable) DeleteRows(indices []int) {
	drop := make(map[int]bool, len(indices))
	for _, i := range indices {
		drop[i] = true
	}
	var keep []int
	for i := 0; i < t.Height; i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	if len(keep) == 0 {
		t.Values = make([]grid.CellValue, t.Width)
		for i := range t.Values {
			t.Values[i] = grid.Blank()
		}
		t.Height = 1
		t.DisplayBuffer = nil
		return
	}
	newValues := make([]grid.CellValue, t.Width*len(keep))
	for j, row := range keep {
		copy(newValues[j*t.Width:(j+1)*t.Width], t.Values[row*t.Width:(row+1)*t.Width])
	}
	t.Height = len(keep)
	t.Values = newValues
	t.CheckSort()
}

// --- Naming (spec 4.5) ---

// Sanitize strips characters disallowed in table/column names: anything
// that isn't a letter, digit, underscore, or space, then trims.
func Sanitize(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r == '_' || r == ' ' || (r >= '0' && r <= '9') ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// Uniquify appends a numeric suffix to name only if it collides with an
// entry in existing (spec 4.5 "append numeric suffixes only when
// necessary").
func Uniquify(name string, existing map[string]bool) string {
	if !existing[strings.ToLower(name)] {
		return name
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s%d", name, i)
		if !existing[strings.ToLower(candidate)] {
			return candidate
		}
	}
}

// UniquifyColumnNames renormalizes column header names to be unique
// within the table (spec 4.5 "insert/delete column must re-normalize
// header names to be unique").
func (t *DataTable) UniquifyColumnNames() {
	seen := make(map[string]bool, len(t.ColumnHeaders))
	for i := range t.ColumnHeaders {
		raw := Sanitize(t.ColumnHeaders[i].Name.ToDisplay())
		if raw == "" {
			raw = geom.A1Column(int64(i + 1))
		}
		unique := Uniquify(raw, seen)
		seen[strings.ToLower(unique)] = true
		t.ColumnHeaders[i].Name = grid.Text(unique)
	}
}

// ColumnNames returns the display names in order, used to populate
// a1.TableInfo.Columns.
func (t *DataTable) ColumnNames() []string {
	out := make([]string, len(t.ColumnHeaders))
	for i, h := range t.ColumnHeaders {
		out[i] = h.Name.ToDisplay()
	}
	return out
}

// Clone returns an independent deep-enough copy of t, used by the
// operation executor's transaction snapshot (spec 7 abort-restore
// contract).
func (t *DataTable) Clone() *DataTable {
	out := *t
	out.Values = append([]grid.CellValue(nil), t.Values...)
	out.ColumnHeaders = append([]ColumnHeader(nil), t.ColumnHeaders...)
	if t.Sort != nil {
		out.Sort = append([]SortSpec(nil), t.Sort...)
	}
	if t.DisplayBuffer != nil {
		out.DisplayBuffer = append([]int(nil), t.DisplayBuffer...)
	}
	if t.Formats != nil {
		out.Formats = &TableFormats{Cells: t.Formats.Cells.Clone()}
	}
	if t.Borders != nil {
		out.Borders = &TableBorders{Cells: t.Borders.Cells.Clone()}
	}
	return &out
}
