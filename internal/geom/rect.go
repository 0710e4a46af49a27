package geom

// Rect is an inclusive axis-aligned rectangle. Empty iff Min > Max
// componentwise, matching spec 3.1.
type Rect struct {
	Min Pos
	Max Pos
}

func NewRect(x1, y1, x2, y2 int64) Rect {
	return Rect{Min: Pos{X: x1, Y: y1}, Max: Pos{X: x2, Y: y2}}
}

// RectFromPoints builds the normalized rectangle spanning a and b,
// regardless of authoring order. This is the "normalize before using as
// a rect" step spec 3.3 requires of denormalized CellRefRanges.
func RectFromPoints(a, b Pos) Rect {
	minX, maxX := a.X, b.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := a.Y, b.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}
	return Rect{Min: Pos{X: minX, Y: minY}, Max: Pos{X: maxX, Y: maxY}}
}

func (r Rect) IsEmpty() bool {
	return r.Min.X > r.Max.X || r.Min.Y > r.Max.Y
}

func (r Rect) IsUnbounded() bool {
	return r.Max.X == Unbounded || r.Max.Y == Unbounded
}

func (r Rect) Width() int64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Max.X - r.Min.X + 1
}

func (r Rect) Height() int64 {
	if r.IsEmpty() {
		return 0
	}
	return r.Max.Y - r.Min.Y + 1
}

func (r Rect) Contains(p Pos) bool {
	return p.X >= r.Min.X && p.X <= r.Max.X && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}

func (r Rect) ContainsRect(o Rect) bool {
	return o.Min.X >= r.Min.X && o.Max.X <= r.Max.X && o.Min.Y >= r.Min.Y && o.Max.Y <= r.Max.Y
}

func (r Rect) Intersects(o Rect) bool {
	if r.IsEmpty() || o.IsEmpty() {
		return false
	}
	return r.Min.X <= o.Max.X && r.Max.X >= o.Min.X && r.Min.Y <= o.Max.Y && r.Max.Y >= o.Min.Y
}

// Intersection returns the overlapping rectangle; the result IsEmpty if
// the two rectangles do not intersect.
func (r Rect) Intersection(o Rect) Rect {
	out := Rect{
		Min: Pos{X: max64(r.Min.X, o.Min.X), Y: max64(r.Min.Y, o.Min.Y)},
		Max: Pos{X: min64(r.Max.X, o.Max.X), Y: min64(r.Max.Y, o.Max.Y)},
	}
	return out
}

// Union returns the smallest rectangle containing both r and o. Used by
// the merged-cell expansion fixpoint in selection.SelectTo.
func (r Rect) Union(o Rect) Rect {
	if r.IsEmpty() {
		return o
	}
	if o.IsEmpty() {
		return r
	}
	return Rect{
		Min: Pos{X: min64(r.Min.X, o.Min.X), Y: min64(r.Min.Y, o.Min.Y)},
		Max: Pos{X: max64(r.Max.X, o.Max.X), Y: max64(r.Max.Y, o.Max.Y)},
	}
}

// Translate shifts both corners by (dx, dy). Unbounded corners are left
// untouched since "to the end of the sheet" has no fixed offset.
func (r Rect) Translate(dx, dy int64) Rect {
	out := r
	if out.Min.X != Unbounded {
		out.Min.X += dx
	}
	if out.Max.X != Unbounded {
		out.Max.X += dx
	}
	if out.Min.Y != Unbounded {
		out.Min.Y += dy
	}
	if out.Max.Y != Unbounded {
		out.Max.Y += dy
	}
	return out
}

// ClampTo resolves unbounded sides of r against bounds, used to turn an
// open-ended selection into a finite rect for iteration (spec 4.1
// largest_rect_finite).
func (r Rect) ClampTo(bounds Rect) Rect {
	out := r
	if out.Max.X == Unbounded {
		out.Max.X = bounds.Max.X
	}
	if out.Max.Y == Unbounded {
		out.Max.Y = bounds.Max.Y
	}
	if out.Min.X == Unbounded {
		out.Min.X = bounds.Min.X
	}
	if out.Min.Y == Unbounded {
		out.Min.Y = bounds.Min.Y
	}
	return out
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
