// Package geom implements the coordinate primitives shared by every other
// package: 1-indexed grid positions, inclusive rectangles, and the
// unbounded-range sentinel used by open-ended A1 references such as "A:A".
package geom

import (
	"fmt"
	"strings"
)

// Unbounded is the sentinel coordinate meaning "to the end of the sheet".
// It must compare larger than any real column/row index so that max()
// and clamping logic treat it as open-ended without special-casing every
// comparison site.
const Unbounded int64 = 1<<62 - 1

// Pos is a 1-indexed cell position: X is column, Y is row.
type Pos struct {
	X int64
	Y int64
}

func NewPos(x, y int64) Pos { return Pos{X: x, Y: y} }

// IsUnbounded reports whether either coordinate is the open-ended sentinel.
func (p Pos) IsUnbounded() bool { return p.X == Unbounded || p.Y == Unbounded }

// Clamp returns p with each unbounded coordinate replaced by the
// corresponding coordinate of other. Used to resolve "A:A" against a
// sheet's data bounds or a drag target.
func (p Pos) Clamp(other Pos) Pos {
	out := p
	if out.X == Unbounded {
		out.X = other.X
	}
	if out.Y == Unbounded {
		out.Y = other.Y
	}
	return out
}

// A1Column renders a 1-indexed column number as its A1 letters (1 -> "A",
// 26 -> "Z", 27 -> "AA", ...).
func A1Column(col int64) string {
	if col <= 0 || col == Unbounded {
		return ""
	}
	var b strings.Builder
	for col > 0 {
		col--
		b.WriteByte(byte('A' + col%26))
		col /= 26
	}
	s := b.String()
	// digits were appended least-significant first
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// ParseA1Column parses column letters ("A", "AA", ...) into a 1-indexed
// column number. Case-insensitive.
func ParseA1Column(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("geom: empty column")
	}
	var col int64
	for _, ch := range strings.ToUpper(s) {
		if ch < 'A' || ch > 'Z' {
			return 0, fmt.Errorf("geom: invalid column letter %q", s)
		}
		col = col*26 + int64(ch-'A'+1)
	}
	return col, nil
}

// A1 renders p as "A1"-style text ("A1", "AA10", ...). Callers that need
// unbounded rendering handle that at the range level (geom.Rect / a1
// package), since a lone Pos is never unbounded in authored text.
func (p Pos) A1() string {
	return fmt.Sprintf("%s%d", A1Column(p.X), p.Y)
}

func (p Pos) String() string { return p.A1() }
