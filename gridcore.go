// Package gridcore wires components C1-C9 together behind a single
// Controller, the public entry point, following the teacher's
// spreadsheet.Server wiring style (one struct owning every piece of
// state, a handful of request-shaped methods mutating it under a
// mutex). Unlike the teacher's server, Controller's request shape is
// the operation stream (spec 6.1) rather than ad hoc JSON, and mutation
// always goes through RunTransaction so history, dirty-tracking and
// conditional-format invalidation stay centralized (spec 4.7).
package gridcore

import (
	"sync"

	"gridcore/internal/a1"
	"gridcore/internal/a1ctx"
	"gridcore/internal/condformat"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
	"gridcore/internal/notify"
	"gridcore/internal/ops"
	"gridcore/internal/table"
)

// sheetTables is the per-sheet table catalog: data tables keyed by
// their anchor position, the way the sheet itself is keyed by Pos.
type sheetTables map[geom.Pos]*table.DataTable

// Controller owns every sheet, its data tables, its conditional formats
// and the shared threshold cache, and is the sole path through which
// any of them mutate (spec 4.7, 5 "the sheet is exclusively owned by
// the executor for the duration of a transaction").
type Controller struct {
	mu sync.Mutex

	sheets     map[geom.SheetID]*grid.Sheet
	sheetOrder []geom.SheetID
	tables     map[geom.SheetID]sheetTables

	condFormats map[geom.SheetID][]*condformat.ConditionalFormat
	preview     *condformat.ConditionalFormat
	threshold   *condformat.ThresholdCache

	a1 *a1ctx.Context

	notify *notify.Hub

	// ClientMessage receives guard-violation / warning notifications
	// (spec 7 "emit a user-visible message via the client-message
	// hook").
	ClientMessage func(ops.ClientMessage)
}

// New creates an empty Controller. Callers typically follow it with at
// least one AddSheet transaction.
func New(hub *notify.Hub) *Controller {
	c := &Controller{
		sheets:      make(map[geom.SheetID]*grid.Sheet),
		tables:      make(map[geom.SheetID]sheetTables),
		condFormats: make(map[geom.SheetID][]*condformat.ConditionalFormat),
		threshold:   condformat.NewThresholdCache(),
		notify:      hub,
	}
	c.rebuildContext()
	return c
}

// rebuildContext snapshots sheet names/ids and the table catalog into a
// fresh a1ctx.Context (spec 4.3, 5 "the A1 context is immutable for the
// duration of evaluation; mutations rebuild it"). Must be called while
// holding mu.
func (c *Controller) rebuildContext() {
	b := a1ctx.NewBuilder()
	for _, id := range c.sheetOrder {
		sheet := c.sheets[id]
		b.AddSheet(id, sheet.Name, sheet.DataBounds())
	}
	for sheetID, perSheet := range c.tables {
		for anchor, t := range perSheet {
			b.AddTable(t.Name, a1.TableInfo{
				SheetID:    sheetID,
				Anchor:     anchor,
				Columns:    t.ColumnNames(),
				Bounds:     t.RectWithUI(anchor),
				DataBounds: t.RectData(anchor),
			})
		}
	}
	c.a1 = b.Build()
}

// Context returns the current immutable A1 context snapshot.
func (c *Controller) Context() *a1ctx.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.a1
}

// Sheet returns the live sheet by id, or nil.
func (c *Controller) Sheet(id geom.SheetID) *grid.Sheet {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sheets[id]
}

// DataTableAt returns the table anchored at pos on sheetID, or nil.
func (c *Controller) DataTableAt(sheetID geom.SheetID, pos geom.Pos) *table.DataTable {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables[sheetID][pos]
}

func (c *Controller) emit(msg ops.ClientMessage) {
	if c.ClientMessage != nil {
		c.ClientMessage(msg)
	}
}
