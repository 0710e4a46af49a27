package grid

import "gridcore/internal/geom"

// Sheet is the sparse cell store plus the ranged attribute stores for
// one sheet (spec 3.5). Data tables and conditional formats are owned
// one layer up, by the gridcore.Controller, rather than nested directly
// in this struct: table.DataTable needs grid.CellValue and geom.Pos, so
// nesting it inside grid.Sheet would create an import cycle (table ->
// grid -> table). The Controller composes a Sheet with the table
// catalog and conditional-format list that share its SheetID — the same
// disjoint-ownership shape the spec describes, expressed as sibling maps
// keyed by SheetID instead of embedded fields. See DESIGN.md.
type Sheet struct {
	ID   geom.SheetID
	Name string

	cells map[geom.Pos]CellValue

	ColumnWidths map[int64]float64
	RowHeights   map[int64]float64

	Formats *Contiguous2D[Style]
	Borders *Contiguous2D[CellBorders]
	Merges  *MergeCells
}

func NewSheet(id geom.SheetID, name string) *Sheet {
	return &Sheet{
		ID:           id,
		Name:         name,
		cells:        make(map[geom.Pos]CellValue),
		ColumnWidths: make(map[int64]float64),
		RowHeights:   make(map[int64]float64),
		Formats:      NewContiguous2D[Style](),
		Borders:      NewContiguous2D[CellBorders](),
		Merges:       NewMergeCells(),
	}
}

// GetCell returns the value at pos; missing cells are Blank (spec 4.2).
func (s *Sheet) GetCell(pos geom.Pos) CellValue {
	if v, ok := s.cells[pos]; ok {
		return v
	}
	return Blank()
}

// SetCell stores v at pos. Storing Blank removes the sparse entry
// entirely so the map doesn't grow unboundedly as cells are cleared.
func (s *Sheet) SetCell(pos geom.Pos, v CellValue) {
	if v.Kind == KindBlank {
		delete(s.cells, pos)
		return
	}
	s.cells[pos] = v
}

// SetCellValues bulk-writes a CellValues block anchored at origin.
func (s *Sheet) SetCellValues(origin geom.Pos, values *CellValues) {
	for y := 0; y < values.Height; y++ {
		for x := 0; x < values.Width; x++ {
			pos := geom.Pos{X: origin.X + int64(x), Y: origin.Y + int64(y)}
			s.SetCell(pos, values.Get(x, y))
		}
	}
}

// DeleteRect clears every cell in rect.
func (s *Sheet) DeleteRect(rect geom.Rect) {
	for y := rect.Min.Y; y <= rect.Max.Y; y++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			delete(s.cells, geom.Pos{X: x, Y: y})
		}
	}
}

// IsCodeCell reports whether pos holds a CellValue::Code, used by the
// insert/swallow guards in the table overlay (spec 4.5) to refuse
// swallowing formula output into a new column.
func (s *Sheet) IsCodeCell(pos geom.Pos) bool {
	return s.GetCell(pos).Kind == KindCode
}

// DataBounds returns the smallest rect containing every stored
// (non-blank) cell on the sheet, or a zero-area rect if the sheet is
// empty; column width and row height overrides are not included. This
// is the "sheet's data
// bounds" used by color-scale threshold computation (spec 4.6) to
// resolve unbounded selection sides — deliberately distinct from the
// "formatting bounds" spec 4.1 warns largest_rect_finite must not use
// for that purpose.
func (s *Sheet) DataBounds() geom.Rect {
	first := true
	var bounds geom.Rect
	extend := func(p geom.Pos) {
		if first {
			bounds = geom.Rect{Min: p, Max: p}
			first = false
			return
		}
		bounds = bounds.Union(geom.Rect{Min: p, Max: p})
	}
	for pos := range s.cells {
		extend(pos)
	}
	if first {
		return geom.Rect{Min: geom.Pos{X: 1, Y: 1}, Max: geom.Pos{X: 0, Y: 0}}
	}
	return bounds
}

// CellsInRect iterates stored (non-blank) cells within rect, used by the
// color-scale threshold cache.
func (s *Sheet) CellsInRect(rect geom.Rect) map[geom.Pos]CellValue {
	out := make(map[geom.Pos]CellValue)
	for pos, v := range s.cells {
		if rect.Contains(pos) {
			out[pos] = v
		}
	}
	return out
}

// Clone returns an independent deep-enough copy of s, used by the
// operation executor to snapshot sheet state before a transaction that
// might abort partway through (spec 7 "the executor always restores
// the pre-transaction state on abort").
func (s *Sheet) Clone() *Sheet {
	out := &Sheet{
		ID:           s.ID,
		Name:         s.Name,
		cells:        make(map[geom.Pos]CellValue, len(s.cells)),
		ColumnWidths: make(map[int64]float64, len(s.ColumnWidths)),
		RowHeights:   make(map[int64]float64, len(s.RowHeights)),
		Formats:      s.Formats.Clone(),
		Borders:      s.Borders.Clone(),
		Merges:       s.Merges.Clone(),
	}
	for k, v := range s.cells {
		out.cells[k] = v
	}
	for k, v := range s.ColumnWidths {
		out.ColumnWidths[k] = v
	}
	for k, v := range s.RowHeights {
		out.RowHeights[k] = v
	}
	return out
}
