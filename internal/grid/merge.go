package grid

import "gridcore/internal/geom"

// MergeCells stores the set of merged rectangles on a sheet. Merges are
// kept disjoint — a position is either the anchor of at most one merge
// or inside exactly one merge (spec 3.5 invariant) — by rejecting any
// insert that would overlap an existing merge.
type MergeCells struct {
	merges []geom.Rect
}

func NewMergeCells() *MergeCells { return &MergeCells{} }

// Add inserts rect as a new merge. Returns false without modifying state
// if rect overlaps an existing merge.
func (m *MergeCells) Add(rect geom.Rect) bool {
	for _, existing := range m.merges {
		if existing.Intersects(rect) {
			return false
		}
	}
	m.merges = append(m.merges, rect)
	return true
}

// Remove deletes the merge whose anchor is pos, if any.
func (m *MergeCells) Remove(pos geom.Pos) {
	for i, r := range m.merges {
		if r.Min == pos {
			m.merges = append(m.merges[:i], m.merges[i+1:]...)
			return
		}
	}
}

// GetMergeCellRect returns the whole merge containing pos, or (zero,
// false) if pos is not inside any merge (spec 4.1).
func (m *MergeCells) GetMergeCellRect(pos geom.Pos) (geom.Rect, bool) {
	for _, r := range m.merges {
		if r.Contains(pos) {
			return r, true
		}
	}
	return geom.Rect{}, false
}

// MergesIntersecting returns every merge that intersects rect, used by
// the selection expansion fixpoint (spec 4.8 step 4).
func (m *MergeCells) MergesIntersecting(rect geom.Rect) []geom.Rect {
	var out []geom.Rect
	for _, r := range m.merges {
		if r.Intersects(rect) {
			out = append(out, r)
		}
	}
	return out
}

// All iterates every merge on the sheet.
func (m *MergeCells) All() []geom.Rect {
	out := make([]geom.Rect, len(m.merges))
	copy(out, m.merges)
	return out
}

// Clone returns an independent copy of the merge set.
func (m *MergeCells) Clone() *MergeCells {
	out := &MergeCells{merges: append([]geom.Rect(nil), m.merges...)}
	return out
}
