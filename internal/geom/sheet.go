package geom

import "github.com/google/uuid"

// SheetID is an opaque, stable identifier for a sheet — stable across
// renames, per spec 3.1. Backed by a UUID rather than a name or index so
// that operations recorded for undo/redo remain valid even after a
// sheet is renamed or reordered.
type SheetID string

// NewSheetID mints a fresh opaque sheet identifier.
func NewSheetID() SheetID {
	return SheetID(uuid.NewString())
}

// SheetPos is a position scoped to a specific sheet.
type SheetPos struct {
	SheetID SheetID
	Pos     Pos
}

// SheetRect is a rectangle scoped to a specific sheet.
type SheetRect struct {
	SheetID SheetID
	Rect    Rect
}

func (sp SheetPos) ToSheetRect() SheetRect {
	return SheetRect{SheetID: sp.SheetID, Rect: Rect{Min: sp.Pos, Max: sp.Pos}}
}
