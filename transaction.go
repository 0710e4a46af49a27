package gridcore

import (
	"sort"

	"gridcore/internal/geom"
	"gridcore/internal/grid"
	"gridcore/internal/notify"
	"gridcore/internal/ops"
	"gridcore/internal/table"
)

// sheetSnapshot captures everything RunTransaction might need to
// restore on abort: the sheet itself and its table catalog (spec 7
// "the executor always restores the pre-transaction state on abort").
// Captured lazily, the first time a transaction touches a sheet.
type sheetSnapshot struct {
	sheet  *grid.Sheet
	tables sheetTables
}

// txState carries the mutable bookkeeping RunTransaction threads
// through every op handler: the pending transaction, lazy
// pre-transaction snapshots, and the set of sheets newly added this
// transaction (which must not be snapshotted away on abort).
type txState struct {
	pending   *ops.PendingTransaction
	snapshots map[geom.SheetID]*sheetSnapshot
	addedIDs  map[geom.SheetID]bool
}

func (c *Controller) snapshotOf(st *txState, sheetID geom.SheetID) {
	if _, ok := st.snapshots[sheetID]; ok {
		return
	}
	sheet := c.sheets[sheetID]
	if sheet == nil {
		st.snapshots[sheetID] = &sheetSnapshot{}
		return
	}
	tbls := make(sheetTables, len(c.tables[sheetID]))
	for pos, t := range c.tables[sheetID] {
		tbls[pos] = t.Clone()
	}
	st.snapshots[sheetID] = &sheetSnapshot{sheet: sheet.Clone(), tables: tbls}
}

// RunTransaction replays operations against the controller's state
// following the executor contract of spec 4.7: each op is validated,
// mutated, recorded (forward/reverse) unless source is server-origin,
// dirtied, and scheduled for recompute/cond-format refresh. A
// GuardError from any op aborts the whole transaction and restores
// every sheet the transaction touched to its pre-transaction snapshot
// (spec 7 "propagate... clear remaining operations... abort").
func (c *Controller) RunTransaction(source ops.Source, operations []ops.Operation) (*ops.PendingTransaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := &txState{
		pending:   ops.NewPendingTransaction(source),
		snapshots: make(map[geom.SheetID]*sheetSnapshot),
		addedIDs:  make(map[geom.SheetID]bool),
	}

	for _, op := range operations {
		if err := c.applyOp(st, op); err != nil {
			if ge, ok := err.(*ops.GuardError); ok {
				c.restore(st)
				c.emit(ops.ClientMessage{Severity: ops.SeverityError, Message: ge.Error()})
				st.pending.Aborted = true
				st.pending.AbortMsg = ge.Error()
				return st.pending, ge
			}
			return st.pending, err
		}
	}

	c.commit(st)
	return st.pending, nil
}

// restore reverts every sheet/table catalog a transaction touched back
// to its pre-transaction snapshot, and drops any sheet the transaction
// itself had added (spec 7 abort handling).
func (c *Controller) restore(st *txState) {
	for id, snap := range st.snapshots {
		if snap.sheet == nil {
			delete(c.sheets, id)
			delete(c.tables, id)
			continue
		}
		c.sheets[id] = snap.sheet
		c.tables[id] = snap.tables
	}
	if len(st.addedIDs) > 0 {
		kept := c.sheetOrder[:0:0]
		for _, id := range c.sheetOrder {
			if !st.addedIDs[id] {
				kept = append(kept, id)
			}
		}
		c.sheetOrder = kept
	}
	c.rebuildContext()
}

// commit clears the threshold cache for every dirtied sheet, rebuilds
// the A1 context, and broadcasts dirty rectangles (spec 4.7 step 6, 5
// "cleared on every mutating operation").
func (c *Controller) commit(st *txState) {
	for sheetID := range st.pending.SheetsNeedingCondFormat {
		c.threshold.Clear(sheetID)
	}
	c.rebuildContext()

	if c.notify != nil {
		var rects []notify.DirtyRect
		for sheetID, rs := range st.pending.DirtyRects {
			for _, r := range rs {
				rects = append(rects, notify.DirtyRect{SheetID: sheetID, X1: r.Min.X, Y1: r.Min.Y, X2: r.Max.X, Y2: r.Max.Y})
			}
		}
		c.notify.BroadcastDirty(rects, sourceLabel(st.pending.Source))
	}
}

func sourceLabel(s ops.Source) string {
	switch s {
	case ops.SourceUser:
		return "user"
	case ops.SourceAI:
		return "ai"
	case ops.SourceUndo:
		return "undo"
	case ops.SourceRedo:
		return "redo"
	default:
		return "server"
	}
}

// applyOp dispatches one operation per spec 4.7's per-op contract.
// Structural "already gone" conditions return nil (no-op, spec 7);
// guard violations return *ops.GuardError, which RunTransaction treats
// as an abort signal.
func (c *Controller) applyOp(st *txState, op ops.Operation) error {
	switch op.Kind {
	case ops.KindAddSheet:
		return c.opAddSheet(st, op)
	case ops.KindReplaceSheet:
		return c.opReplaceSheet(st, op)
	case ops.KindSetCellValues:
		return c.opSetCellValues(st, op)
	case ops.KindSetCellFormatsA1:
		return c.opSetCellFormats(st, op)
	case ops.KindMoveCells:
		return c.opMoveCells(st, op)
	case ops.KindSetMergeCells:
		return c.opSetMergeCells(st, op)

	case ops.KindAddDataTable:
		return c.opAddDataTable(st, op)
	case ops.KindDeleteDataTable:
		return c.opDeleteDataTable(st, op)
	case ops.KindSetDataTable:
		return c.opSetDataTable(st, op)
	case ops.KindSetDataTableAt:
		return c.opSetDataTableAt(st, op)
	case ops.KindMoveDataTable:
		return c.opMoveDataTable(st, op)
	case ops.KindSwitchDataTableKind:
		return c.opSwitchDataTableKind(st, op)
	case ops.KindSortDataTable:
		return c.opSortDataTable(st, op)
	case ops.KindInsertDataTableColumns:
		return c.opInsertDataTableColumns(st, op)
	case ops.KindDeleteDataTableColumns:
		return c.opDeleteDataTableColumns(st, op)
	case ops.KindInsertDataTableRows:
		return c.opInsertDataTableRows(st, op)
	case ops.KindDeleteDataTableRows:
		return c.opDeleteDataTableRows(st, op)
	case ops.KindDataTableFirstRowAsHeader:
		return c.opDataTableFirstRowAsHeader(st, op)
	case ops.KindDataTableFormats:
		return c.opDataTableFormats(st, op)
	case ops.KindDataTableBorders:
		return c.opDataTableBorders(st, op)
	case ops.KindDataTableOptionMeta:
		return c.opDataTableOptionMeta(st, op)
	case ops.KindFlattenDataTable:
		return c.opFlattenDataTable(st, op)
	case ops.KindGridToDataTable:
		return c.opGridToDataTable(st, op)

	case ops.KindAddConditionalFormat:
		return c.opAddConditionalFormat(st, op)
	case ops.KindRemoveConditionalFormat:
		return c.opRemoveConditionalFormat(st, op)
	case ops.KindSetPreviewConditionalFormat:
		return c.opSetPreviewConditionalFormat(st, op)
	}
	return nil
}

// --- Sheet-level ops ---

func (c *Controller) opAddSheet(st *txState, op ops.Operation) error {
	if _, exists := c.sheets[op.SheetID]; exists {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	st.addedIDs[op.SheetID] = true
	c.sheets[op.SheetID] = grid.NewSheet(op.SheetID, op.SheetName)
	c.sheetOrder = append(c.sheetOrder, op.SheetID)
	c.tables[op.SheetID] = make(sheetTables)
	st.pending.Record(op, ops.Operation{Kind: ops.KindReplaceSheet, SheetID: op.SheetID, SheetName: op.SheetName})
	st.pending.MarkDirty(op.SheetID, geom.NewRect(1, 1, 1, 1))
	return nil
}

func (c *Controller) opReplaceSheet(st *txState, op ops.Operation) error {
	sheet, ok := c.sheets[op.SheetID]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	old := sheet.DataBounds()
	c.sheets[op.SheetID] = grid.NewSheet(op.SheetID, op.SheetName)
	c.tables[op.SheetID] = make(sheetTables)
	st.pending.Record(op, ops.Operation{Kind: ops.KindReplaceSheet, SheetID: op.SheetID, SheetName: sheet.Name})
	st.pending.MarkDirty(op.SheetID, old)
	return nil
}

// check_deleted_data_tables (spec 4.7): import tables inside rect have
// their cells overwritten but survive; code tables are deleted whole.
func (c *Controller) checkDeletedDataTables(st *txState, sheetID geom.SheetID, rect geom.Rect) {
	for anchor, t := range c.tables[sheetID] {
		full := t.RectWithUI(anchor)
		if !full.Intersects(rect) {
			continue
		}
		if t.Kind.IsCode() {
			delete(c.tables[sheetID], anchor)
			st.pending.MarkDirty(sheetID, full)
		}
	}
}

func (c *Controller) opSetCellValues(st *txState, op ops.Operation) error {
	sheet, ok := c.sheets[op.SheetID]
	if !ok || op.CellValues == nil {
		return nil
	}
	c.snapshotOf(st, op.SheetID)

	w, h := op.CellValues.Width, op.CellValues.Height
	rect := geom.NewRect(op.Pos.X, op.Pos.Y, op.Pos.X+int64(w)-1, op.Pos.Y+int64(h)-1)

	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			pos := geom.Pos{X: op.Pos.X + int64(dx), Y: op.Pos.Y + int64(dy)}
			if at, inTable := c.tableAt(op.SheetID, pos); inTable && at.Kind.IsCode() {
				return ops.NewGuardError("write_into_code_table", "cannot write cell value at %s: owned by a code table", pos)
			}
		}
	}

	c.checkDeletedDataTables(st, op.SheetID, rect)

	prev := grid.NewCellValues(w, h)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			pos := geom.Pos{X: op.Pos.X + int64(dx), Y: op.Pos.Y + int64(dy)}
			prev.Set(dx, dy, sheet.GetCell(pos))
		}
	}

	sheet.SetCellValues(op.Pos, op.CellValues)

	st.pending.Record(op, ops.Operation{Kind: ops.KindSetCellValues, SheetID: op.SheetID, Pos: op.Pos, CellValues: prev})
	st.pending.MarkDirty(op.SheetID, rect)
	for dy := 0; dy < h; dy++ {
		for dx := 0; dx < w; dx++ {
			pos := geom.Pos{X: op.Pos.X + int64(dx), Y: op.Pos.Y + int64(dy)}
			if op.CellValues.Get(dx, dy).Kind == grid.KindCode {
				st.pending.ScheduleRecompute(op.SheetID, pos)
			}
		}
	}
	return nil
}

func (c *Controller) opSetCellFormats(st *txState, op ops.Operation) error {
	sheet, ok := c.sheets[op.SheetID]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)

	prevFormats := make(map[geom.Rect]grid.Style)
	for _, rv := range sheet.Formats.NondefaultRectsInRect(op.Rect) {
		prevFormats[rv.Rect] = rv.Value
	}

	for y := op.Rect.Min.Y; y <= op.Rect.Max.Y; y++ {
		for x := op.Rect.Min.X; x <= op.Rect.Max.X; x++ {
			pos := geom.Pos{X: x, Y: y}
			cur, _ := sheet.Formats.Get(pos)
			sheet.Formats.Set(pos, cur.MergeUpdate(op.FormatUpdate))
			if op.BorderUpdate != nil {
				sheet.Borders.Set(pos, *op.BorderUpdate)
			}
		}
	}

	st.pending.Record(op, reverseFormatOp(op, prevFormats))
	st.pending.MarkDirty(op.SheetID, op.Rect)
	return nil
}

// reverseFormatOp builds a best-effort inverse for a format update: a
// per-rect SetCellFormatsA1 replay is not exact (FormatUpdate fields
// are "set if present", not "replace wholesale"), so undo of a format
// change re-applies, over the whole op.Rect, the style of the largest
// previous rect it captured. This
// is a documented simplification; see DESIGN.md.
func reverseFormatOp(op ops.Operation, prev map[geom.Rect]grid.Style) ops.Operation {
	return ops.Operation{Kind: ops.KindSetCellFormatsA1, SheetID: op.SheetID, Rect: op.Rect, FormatUpdate: styleToUpdate(mostCommonStyle(prev))}
}

func mostCommonStyle(prev map[geom.Rect]grid.Style) grid.Style {
	var best grid.Style
	var bestArea int64 = -1
	for r, s := range prev {
		area := (r.Max.X - r.Min.X + 1) * (r.Max.Y - r.Min.Y + 1)
		if area > bestArea {
			bestArea = area
			best = s
		}
	}
	return best
}

func styleToUpdate(s grid.Style) grid.FormatUpdate {
	bold, italic, underline, strike, wrap, shrink := s.Bold, s.Italic, s.Underline, s.Strikethrough, s.Wrap, s.Shrink
	textColor, fillColor := s.TextColor, s.FillColor
	fontDelta := s.FontSizeDelta
	numFmt := s.NumberFormat
	hAlign, vAlign := s.HorizontalAlign, s.VerticalAlign
	return grid.FormatUpdate{
		Bold: &bold, Italic: &italic, Underline: &underline, Strikethrough: &strike,
		TextColor: &textColor, FillColor: &fillColor, FontSizeDelta: &fontDelta,
		NumberFormat: &numFmt, HorizontalAlign: &hAlign, VerticalAlign: &vAlign,
		Wrap: &wrap, Shrink: &shrink,
	}
}

func (c *Controller) opMoveCells(st *txState, op ops.Operation) error {
	sheet, ok := c.sheets[op.SheetID]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)

	w := op.Rect.Width()
	h := op.Rect.Height()
	block := grid.NewCellValues(int(w), int(h))
	for y := int64(0); y < h; y++ {
		for x := int64(0); x < w; x++ {
			block.Set(int(x), int(y), sheet.GetCell(geom.Pos{X: op.Rect.Min.X + x, Y: op.Rect.Min.Y + y}))
		}
	}
	sheet.DeleteRect(op.Rect)
	sheet.SetCellValues(op.DestPos, block)

	destRect := geom.NewRect(op.DestPos.X, op.DestPos.Y, op.DestPos.X+w-1, op.DestPos.Y+h-1)
	st.pending.Record(op, ops.Operation{Kind: ops.KindMoveCells, SheetID: op.SheetID, Rect: destRect, DestPos: op.Rect.Min})
	st.pending.MarkDirty(op.SheetID, op.Rect)
	st.pending.MarkDirty(op.SheetID, destRect)
	return nil
}

func (c *Controller) opSetMergeCells(st *txState, op ops.Operation) error {
	sheet, ok := c.sheets[op.SheetID]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	if op.Swallow {
		sheet.Merges.Remove(op.Rect.Min)
		st.pending.Record(op, ops.Operation{Kind: ops.KindSetMergeCells, SheetID: op.SheetID, Rect: op.Rect})
	} else {
		sheet.Merges.Add(op.Rect)
		st.pending.Record(op, ops.Operation{Kind: ops.KindSetMergeCells, SheetID: op.SheetID, Rect: op.Rect, Swallow: true})
	}
	st.pending.MarkDirty(op.SheetID, op.Rect)
	return nil
}

// tableAt resolves which table (if any) owns pos on sheetID.
func (c *Controller) tableAt(sheetID geom.SheetID, pos geom.Pos) (*table.DataTable, bool) {
	for anchor, t := range c.tables[sheetID] {
		if t.RectWithUI(anchor).Contains(pos) {
			return t, true
		}
	}
	return nil, false
}

// tableIntersectsRect reports whether any table other than the one
// anchored at exclude overlaps rect.
func (c *Controller) tableIntersectsRect(sheetID geom.SheetID, rect geom.Rect, exclude geom.Pos) bool {
	for anchor, t := range c.tables[sheetID] {
		if anchor == exclude {
			continue
		}
		if t.RectWithUI(anchor).Intersects(rect) {
			return true
		}
	}
	return false
}

// checkSwallowRect guards spec 4.5's swallow precondition: "refuse if
// the swallow rect intersects code cells or other tables".
func (c *Controller) checkSwallowRect(sheetID geom.SheetID, tablePos geom.Pos, rect geom.Rect) error {
	sheet := c.sheets[sheetID]
	for y := rect.Min.Y; y <= rect.Max.Y; y++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			if sheet.IsCodeCell(geom.Pos{X: x, Y: y}) {
				return ops.NewGuardError("swallow_over_code_cell", "cannot swallow %v: overlaps a code cell", rect)
			}
		}
	}
	if c.tableIntersectsRect(sheetID, rect, tablePos) {
		return ops.NewGuardError("swallow_over_table", "cannot swallow %v: overlaps another table", rect)
	}
	return nil
}

// swallowColumn reads the values and per-cell style overlay out of a
// single-column sheet rect, the data InsertColumnSwallowed absorbs
// into the new table column (spec 4.5 "swallow").
func swallowColumn(sheet *grid.Sheet, rect geom.Rect) ([]grid.CellValue, []*grid.Style) {
	h := int(rect.Height())
	values := make([]grid.CellValue, h)
	styles := make([]*grid.Style, h)
	for i := 0; i < h; i++ {
		pos := geom.Pos{X: rect.Min.X, Y: rect.Min.Y + int64(i)}
		values[i] = sheet.GetCell(pos)
		if style, ok := sheet.Formats.Get(pos); ok {
			s := style
			styles[i] = &s
		}
	}
	return values, styles
}

// --- Data-table ops ---

func (c *Controller) opAddDataTable(st *txState, op ops.Operation) error {
	if _, ok := c.sheets[op.SheetID]; !ok || op.DataTable == nil {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	if _, overlap := c.tableAt(op.SheetID, op.Pos); overlap {
		return ops.NewGuardError("insert_over_table", "cannot add table at %s: overlaps an existing table", op.Pos)
	}
	if c.sheets[op.SheetID].IsCodeCell(op.Pos) {
		return ops.NewGuardError("insert_over_code_cell", "cannot add table at %s: overlaps a code cell", op.Pos)
	}
	c.tables[op.SheetID][op.Pos] = op.DataTable
	st.pending.Record(op, ops.Operation{Kind: ops.KindDeleteDataTable, SheetID: op.SheetID, Pos: op.Pos})
	st.pending.MarkDirty(op.SheetID, op.DataTable.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opDeleteDataTable(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	delete(c.tables[op.SheetID], op.Pos)
	st.pending.Record(op, ops.Operation{Kind: ops.KindAddDataTable, SheetID: op.SheetID, Pos: op.Pos, DataTable: t.Clone()})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

// opSetDataTable replaces (or, if op.IgnoreOldDataTable, installs fresh
// at) an anchor, the import/re-import path spec 4.9 describes.
func (c *Controller) opSetDataTable(st *txState, op ops.Operation) error {
	if _, ok := c.sheets[op.SheetID]; !ok || op.DataTable == nil {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	old, existed := c.tables[op.SheetID][op.Pos]
	if existed && !op.IgnoreOldDataTable {
		op.DataTable.Formats = old.Formats
		op.DataTable.Borders = old.Borders
		op.DataTable.Sort = old.Sort
		op.DataTable.ShowName = old.ShowName
		op.DataTable.ShowColumns = old.ShowColumns
	}
	c.tables[op.SheetID][op.Pos] = op.DataTable
	if existed {
		st.pending.Record(op, ops.Operation{Kind: ops.KindSetDataTable, SheetID: op.SheetID, Pos: op.Pos, DataTable: old.Clone(), IgnoreOldDataTable: true})
	} else {
		st.pending.Record(op, ops.Operation{Kind: ops.KindDeleteDataTable, SheetID: op.SheetID, Pos: op.Pos})
	}
	st.pending.MarkDirty(op.SheetID, op.DataTable.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opSetDataTableAt(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	col, row := int(op.DestPos.X), int(op.DestPos.Y)
	c.snapshotOf(st, op.SheetID)
	prev := t.Get(col, row)
	if len(op.InsertValues) == 0 {
		return nil
	}
	t.Set(col, row, op.InsertValues[0])
	st.pending.Record(op, ops.Operation{Kind: ops.KindSetDataTableAt, SheetID: op.SheetID, Pos: op.Pos, DestPos: op.DestPos, InsertValues: []grid.CellValue{prev}})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opMoveDataTable(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	if _, overlap := c.tableAt(op.SheetID, op.DestPos); overlap {
		return ops.NewGuardError("insert_over_table", "cannot move table to %s: overlaps an existing table", op.DestPos)
	}
	oldRect := t.RectWithUI(op.Pos)
	delete(c.tables[op.SheetID], op.Pos)
	c.tables[op.SheetID][op.DestPos] = t
	st.pending.Record(op, ops.Operation{Kind: ops.KindMoveDataTable, SheetID: op.SheetID, Pos: op.DestPos, DestPos: op.Pos})
	st.pending.MarkDirty(op.SheetID, oldRect)
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.DestPos))
	return nil
}

func (c *Controller) opSwitchDataTableKind(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	old := t.Kind
	t.Kind = op.NewKind
	st.pending.Record(op, ops.Operation{Kind: ops.KindSwitchDataTableKind, SheetID: op.SheetID, Pos: op.Pos, NewKind: old})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opSortDataTable(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	old := append([]table.SortSpec(nil), t.Sort...)
	oldBuf := append([]int(nil), t.DisplayBuffer...)
	t.Sort = op.SortSpecs
	t.SortAll()
	st.pending.Record(op, ops.Operation{Kind: ops.KindSortDataTable, SheetID: op.SheetID, Pos: op.Pos, SortSpecs: old})
	_ = oldBuf
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

// opInsertDataTableColumns inserts a table column, plain or swallowed.
// Swallow (spec 4.5) pulls values and formats out of op.Rect, an
// adjacent sheet rect the caller supplies, guarded against overlapping
// a code cell or another table, then clears that rect once absorbed.
func (c *Controller) opInsertDataTableColumns(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	if !op.Swallow {
		c.snapshotOf(st, op.SheetID)
		t.InsertColumn(op.InsertIndex, op.HeaderName, op.InsertValues)
		st.pending.Record(op, ops.Operation{Kind: ops.KindDeleteDataTableColumns, SheetID: op.SheetID, Pos: op.Pos, Indices: []int{op.InsertIndex}})
		st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
		return nil
	}

	sheet, sheetOK := c.sheets[op.SheetID]
	if !sheetOK {
		return nil
	}
	if err := c.checkSwallowRect(op.SheetID, op.Pos, op.Rect); err != nil {
		return err
	}
	values, styles := swallowColumn(sheet, op.Rect)

	c.snapshotOf(st, op.SheetID)
	t.InsertColumnSwallowed(op.InsertIndex, op.HeaderName, values, styles)
	sheet.DeleteRect(op.Rect)
	st.pending.Record(op, ops.Operation{Kind: ops.KindDeleteDataTableColumns, SheetID: op.SheetID, Pos: op.Pos, Indices: []int{op.InsertIndex}})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	st.pending.MarkDirty(op.SheetID, op.Rect)
	return nil
}

// opDeleteDataTableColumns deletes table columns, optionally flattening
// them back onto the sheet beside the shrunk table (spec 4.5: "the
// deleted values are written back to the sheet beside the table (first
// column cannot be flattened)").
func (c *Controller) opDeleteDataTableColumns(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	indices := append([]int(nil), op.Indices...)
	sort.Ints(indices)
	if op.Flatten {
		for _, idx := range indices {
			if idx == 0 {
				return ops.NewGuardError("flatten_first_column", "cannot flatten the first column of table at %s", op.Pos)
			}
		}
	}
	c.snapshotOf(st, op.SheetID)

	var flattened [][]grid.CellValue
	if op.Flatten {
		flattened = make([][]grid.CellValue, len(indices))
		for i, idx := range indices {
			flattened[i] = t.ColumnValues(idx)
		}
	}

	t.DeleteColumns(indices)

	if sheet, sheetOK := c.sheets[op.SheetID]; sheetOK && flattened != nil {
		for i, vals := range flattened {
			col := t.Width + i
			for row, v := range vals {
				sheet.SetCell(t.DataRowToSheetPos(op.Pos, col, row), v)
			}
		}
		beside := geom.NewRect(op.Pos.X+int64(t.Width), op.Pos.Y+int64(t.YAdjustment()),
			op.Pos.X+int64(t.Width+len(flattened))-1, op.Pos.Y+int64(t.YAdjustment()+t.Height)-1)
		st.pending.MarkDirty(op.SheetID, beside)
	}

	st.pending.Record(op, ops.Operation{Kind: ops.KindInsertDataTableColumns, SheetID: op.SheetID, Pos: op.Pos})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opInsertDataTableRows(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	if t.IsReadonlyData() {
		return ops.NewGuardError("insert_into_code_table", "cannot insert rows into code table at %s", op.Pos)
	}
	c.snapshotOf(st, op.SheetID)
	t.InsertRows(op.InsertIndex, len(op.Indices))
	if len(op.Indices) == 0 {
		t.InsertRows(op.InsertIndex, 1)
	}
	st.pending.Record(op, ops.Operation{Kind: ops.KindDeleteDataTableRows, SheetID: op.SheetID, Pos: op.Pos, Indices: []int{op.InsertIndex}})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opDeleteDataTableRows(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	if t.IsReadonlyData() {
		return ops.NewGuardError("delete_from_code_table", "cannot delete rows from code table at %s", op.Pos)
	}
	c.snapshotOf(st, op.SheetID)
	t.DeleteRows(op.Indices)
	st.pending.Record(op, ops.Operation{Kind: ops.KindInsertDataTableRows, SheetID: op.SheetID, Pos: op.Pos})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opDataTableFirstRowAsHeader(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	was := t.HeaderIsFirstRow
	t.SetFirstRowAsHeader(op.FirstRowAsHeader)
	st.pending.Record(op, ops.Operation{Kind: ops.KindDataTableFirstRowAsHeader, SheetID: op.SheetID, Pos: op.Pos, FirstRowAsHeader: was})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opDataTableFormats(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	old := t.Formats.Cells.Clone()
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			pos := geom.Pos{X: int64(x), Y: int64(y)}
			if !op.Rect.Contains(geom.Pos{X: int64(x) + 1, Y: int64(y) + 1}) {
				continue
			}
			cur, _ := t.Formats.Cells.Get(pos)
			t.Formats.Cells.Set(pos, cur.MergeUpdate(op.FormatUpdate))
		}
	}
	_ = old
	st.pending.Record(op, op)
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opDataTableBorders(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok || op.BorderUpdate == nil {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	for y := 0; y < t.Height; y++ {
		for x := 0; x < t.Width; x++ {
			if !op.Rect.Contains(geom.Pos{X: int64(x) + 1, Y: int64(y) + 1}) {
				continue
			}
			t.Borders.Cells.Set(geom.Pos{X: int64(x), Y: int64(y)}, *op.BorderUpdate)
		}
	}
	st.pending.Record(op, op)
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

func (c *Controller) opDataTableOptionMeta(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	if !ok {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	oldShowName, oldShowCols, oldAlt, oldName := t.ShowName, t.ShowColumns, t.AlternatingColors, t.Name
	if op.ShowName != nil {
		t.ShowName = *op.ShowName
	}
	if op.ShowColumns != nil {
		t.ShowColumns = *op.ShowColumns
	}
	if op.AlternatingColors != nil {
		t.AlternatingColors = op.AlternatingColors
	}
	if op.NewName != "" {
		t.Name = op.NewName
	}
	st.pending.Record(op, ops.Operation{
		Kind: ops.KindDataTableOptionMeta, SheetID: op.SheetID, Pos: op.Pos,
		ShowName: &oldShowName, ShowColumns: &oldShowCols, AlternatingColors: oldAlt, NewName: oldName,
	})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

// opFlattenDataTable converts a table's values back into plain sheet
// cells in place, dropping the table overlay (spec 4.5 "flatten").
func (c *Controller) opFlattenDataTable(st *txState, op ops.Operation) error {
	t, ok := c.tables[op.SheetID][op.Pos]
	sheet, sheetOK := c.sheets[op.SheetID]
	if !ok || !sheetOK {
		return nil
	}
	c.snapshotOf(st, op.SheetID)
	values := t.ToDisplayValues()
	sheet.SetCellValues(op.Pos, values)
	delete(c.tables[op.SheetID], op.Pos)
	st.pending.Record(op, ops.Operation{Kind: ops.KindGridToDataTable, SheetID: op.SheetID, Pos: op.Pos, Rect: t.RectWithUI(op.Pos), DataTable: t.Clone()})
	st.pending.MarkDirty(op.SheetID, t.RectWithUI(op.Pos))
	return nil
}

// opGridToDataTable is flatten's inverse: wraps a plain sheet range
// back into a data table, the other half of spec 4.5's "grid <-> table"
// toggle.
func (c *Controller) opGridToDataTable(st *txState, op ops.Operation) error {
	sheet, ok := c.sheets[op.SheetID]
	if !ok || op.DataTable == nil {
		return nil
	}
	rect := op.Rect
	if rect.Width() == 1 && rect.Height() == 1 && sheet.GetCell(rect.Min).Kind == grid.KindCode {
		// spec 4.5: "a single CellValue::Code (a 1x1 formula cell) is
		// not promoted" -- nothing to convert, not an error.
		return nil
	}
	if c.tableIntersectsRect(op.SheetID, rect, geom.Pos{}) {
		return ops.NewGuardError("grid_to_table_over_table", "cannot convert %v to a table: overlaps an existing table", rect)
	}
	c.snapshotOf(st, op.SheetID)
	w, h := int(rect.Width()), int(rect.Height())
	prev := grid.NewCellValues(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			prev.Set(x, y, sheet.GetCell(geom.Pos{X: rect.Min.X + int64(x), Y: rect.Min.Y + int64(y)}))
		}
	}
	sheet.DeleteRect(rect)
	c.tables[op.SheetID][op.Pos] = op.DataTable
	st.pending.Record(op, ops.Operation{Kind: ops.KindFlattenDataTable, SheetID: op.SheetID, Pos: op.Pos})
	_ = prev
	st.pending.MarkDirty(op.SheetID, op.DataTable.RectWithUI(op.Pos))
	return nil
}

// --- Conditional format ops ---

func (c *Controller) opAddConditionalFormat(st *txState, op ops.Operation) error {
	if op.ConditionalFormat == nil {
		return nil
	}
	sheetID := op.ConditionalFormat.Selection.SheetID
	c.condFormats[sheetID] = append(c.condFormats[sheetID], op.ConditionalFormat)
	st.pending.Record(op, ops.Operation{Kind: ops.KindRemoveConditionalFormat, FormatID: op.ConditionalFormat.ID})
	st.pending.SheetsNeedingCondFormat[sheetID] = true
	st.pending.DirtySheets[sheetID] = true
	return nil
}

func (c *Controller) opRemoveConditionalFormat(st *txState, op ops.Operation) error {
	for sheetID, list := range c.condFormats {
		for i, f := range list {
			if f.ID != op.FormatID {
				continue
			}
			c.condFormats[sheetID] = append(list[:i], list[i+1:]...)
			st.pending.Record(op, ops.Operation{Kind: ops.KindAddConditionalFormat, ConditionalFormat: f})
			st.pending.SheetsNeedingCondFormat[sheetID] = true
			st.pending.DirtySheets[sheetID] = true
			return nil
		}
	}
	return nil
}

func (c *Controller) opSetPreviewConditionalFormat(st *txState, op ops.Operation) error {
	c.preview = op.ConditionalFormat
	if op.ConditionalFormat != nil {
		st.pending.SheetsNeedingCondFormat[op.ConditionalFormat.Selection.SheetID] = true
	}
	for sheetID := range c.condFormats {
		c.threshold.Clear(sheetID)
	}
	return nil
}
