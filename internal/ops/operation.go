// Package ops defines the operation stream (spec component C7): the
// tagged Operation union every user intent becomes, and the
// PendingTransaction bookkeeping struct the executor (internal/gridcore)
// fills in as it replays a batch of operations. Operation is modeled as
// a Kind tag over one flat struct rather than a Go interface/type
// switch, the same choice DESIGN.md documents for a1.CellRefRange:
// operations are constructed, queued, and reverse-recorded far more
// often than they are polymorphically dispatched over, and undo/redo
// persistence wants one serializable shape rather than N.
package ops

import (
	"gridcore/internal/condformat"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
	"gridcore/internal/table"
)

// Kind tags the Operation variant (spec 4.7 "Operation enum (core members)").
type Kind int

const (
	KindSetCellValues Kind = iota
	KindSetCellFormatsA1
	KindAddSheet
	KindReplaceSheet
	KindMoveCells
	KindSetMergeCells

	KindAddDataTable
	KindDeleteDataTable
	KindSetDataTable
	KindSetDataTableAt
	KindMoveDataTable
	KindFlattenDataTable
	KindGridToDataTable
	KindSwitchDataTableKind
	KindSortDataTable
	KindInsertDataTableColumns
	KindDeleteDataTableColumns
	KindInsertDataTableRows
	KindDeleteDataTableRows
	KindDataTableFirstRowAsHeader
	KindDataTableFormats
	KindDataTableBorders
	KindDataTableOptionMeta

	KindAddConditionalFormat
	KindRemoveConditionalFormat
	KindSetPreviewConditionalFormat
)

// Operation is the tagged union from spec 4.7/6.1. Only the fields
// relevant to Kind are meaningful; everything else is left zero.
type Operation struct {
	Kind Kind

	SheetID geom.SheetID
	Pos     geom.Pos // anchor position for most ops
	Rect    geom.Rect

	// SetCellValues / MoveCells
	CellValues *grid.CellValues
	DestPos    geom.Pos

	// SetCellFormatsA1
	FormatUpdate grid.FormatUpdate
	BorderUpdate *grid.CellBorders

	// AddSheet / ReplaceSheet
	SheetName string

	// DataTable ops
	DataTable          *table.DataTable
	IgnoreOldDataTable bool
	NewKind            table.Kind
	Indices            []int
	InsertIndex        int
	HeaderName         string
	InsertValues       []grid.CellValue
	Swallow            bool
	Flatten            bool
	SortSpecs          []table.SortSpec
	FirstRowAsHeader   bool
	ShowName           *bool
	ShowColumns        *bool
	AlternatingColors  *bool
	NewName            string

	// Conditional format ops
	ConditionalFormat *condformat.ConditionalFormat
	FormatID          condformat.FormatID
}

// Source tags who originated the transaction (spec 4.7), distinguishing
// undo/redo replays (which must not themselves be re-recorded) from
// ordinary user/AI edits.
type Source int

const (
	SourceUser Source = iota
	SourceAI
	SourceUndo
	SourceRedo
	SourceServer
)

// RecordsHistory reports whether operations run under this source push
// onto forward/reverse op lists (spec 4.7 step 3: "If this is a
// user/AI/undo/redo transaction" — every source here does, server-origin
// transactions are the one exception used by out-of-core replay).
func (s Source) RecordsHistory() bool { return s != SourceServer }

// Severity tags a client-message hook notification (spec 7 "Guard
// violations... emit a user-visible message via the client-message hook
// with severity Error or Warning").
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

// ClientMessage is the payload passed to the client-message hook.
type ClientMessage struct {
	Severity Severity
	Message  string
}

// PendingTransaction accumulates the bookkeeping described in spec 4.7:
// forward/reverse op pairs, dirty sheets/rects, sheets needing bounds
// recompute, and accumulated code-cell positions for recompute
// scheduling.
type PendingTransaction struct {
	Source Source

	ForwardOperations []Operation
	ReverseOperations []Operation

	DirtySheets map[geom.SheetID]bool
	DirtyRects  map[geom.SheetID][]geom.Rect

	SheetsNeedingBounds     map[geom.SheetID]bool
	SheetsNeedingCondFormat map[geom.SheetID]bool

	CodeCellsToRecompute map[geom.SheetID][]geom.Pos

	Aborted  bool
	AbortMsg string
}

func NewPendingTransaction(source Source) *PendingTransaction {
	return &PendingTransaction{
		Source:                  source,
		DirtySheets:             make(map[geom.SheetID]bool),
		DirtyRects:              make(map[geom.SheetID][]geom.Rect),
		SheetsNeedingBounds:     make(map[geom.SheetID]bool),
		SheetsNeedingCondFormat: make(map[geom.SheetID]bool),
		CodeCellsToRecompute:    make(map[geom.SheetID][]geom.Pos),
	}
}

// Record records forward as executed, and reverse as its inverse,
// unless the source is one that shouldn't build undo history (spec 4.7
// step 3). Reverse ops are pushed so that replaying them in storage
// order executes in reverse of the forward sequence (spec 5 "Ordering
// guarantees").
func (t *PendingTransaction) Record(forward, reverse Operation) {
	if !t.Source.RecordsHistory() {
		return
	}
	t.ForwardOperations = append(t.ForwardOperations, forward)
	t.ReverseOperations = append([]Operation{reverse}, t.ReverseOperations...)
}

// MarkDirty accumulates a dirty rectangle for out-of-core notification
// (spec 4.7 step 4) and flags the sheet as needing bounds/cond-format
// refresh (steps 5-6).
func (t *PendingTransaction) MarkDirty(sheetID geom.SheetID, rect geom.Rect) {
	t.DirtySheets[sheetID] = true
	t.DirtyRects[sheetID] = append(t.DirtyRects[sheetID], rect)
	t.SheetsNeedingBounds[sheetID] = true
	t.SheetsNeedingCondFormat[sheetID] = true
}

// ScheduleRecompute records a code-cell position discovered dirty by
// this operation, for the recompute scheduler to pick up (spec 4.7
// step 5).
func (t *PendingTransaction) ScheduleRecompute(sheetID geom.SheetID, pos geom.Pos) {
	t.CodeCellsToRecompute[sheetID] = append(t.CodeCellsToRecompute[sheetID], pos)
}
