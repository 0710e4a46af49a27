package grid

// Rgb is a simple 24-bit color, used by border/fill/font-color fields
// and by the conditional-formatting color scale (spec 3.7).
type Rgb struct {
	R, G, B uint8
}

func (c Rgb) Luminance() float64 {
	// Perceptual luma, used to decide invert_text_on_dark contrast text.
	return 0.299*float64(c.R) + 0.587*float64(c.G) + 0.114*float64(c.B)
}

func (c Rgb) Lerp(o Rgb, t float64) Rgb {
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	lerp := func(a, b uint8) uint8 {
		return uint8(float64(a) + (float64(b)-float64(a))*t)
	}
	return Rgb{R: lerp(c.R, o.R), G: lerp(c.G, o.G), B: lerp(c.B, o.B)}
}

func (c Rgb) Hex() string {
	const hexDigits = "0123456789abcdef"
	buf := [6]byte{}
	put := func(i int, v uint8) {
		buf[i] = hexDigits[v>>4]
		buf[i+1] = hexDigits[v&0xf]
	}
	put(0, c.R)
	put(2, c.G)
	put(4, c.B)
	return string(buf[:])
}

// HorizontalAlign and VerticalAlign mirror the alignment fields Excel
// cell styles carry (spec 6.4: "alignment with horizontal/vertical/wrap/shrink").
type HorizontalAlign string

const (
	AlignLeft   HorizontalAlign = "LEFT"
	AlignCenter HorizontalAlign = "CENTER"
	AlignRight  HorizontalAlign = "RIGHT"
)

type VerticalAlign string

const (
	AlignTop    VerticalAlign = "TOP"
	AlignMiddle VerticalAlign = "MIDDLE"
	AlignBottom VerticalAlign = "BOTTOM"
)

// FormatUpdate is a sparse, optional-field patch applied to a cell's
// style. Only non-nil fields are changed; this is what flows through
// SetCellFormatsA1 and through CSV/Excel per-cell format detection.
type FormatUpdate struct {
	Bold            *bool
	Italic          *bool
	Underline       *bool
	Strikethrough   *bool
	TextColor       *Rgb
	FillColor       *Rgb
	FontSizeDelta    *int
	NumberFormat    *string
	HorizontalAlign *HorizontalAlign
	VerticalAlign   *VerticalAlign
	Wrap            *bool
	Shrink          *bool
}

// Style is the resolved (non-sparse) style applied to a cell, the
// result of merging a stack of FormatUpdates (sheet formats, table
// formats, conditional-format fills) in precedence order (spec 4.6
// "Style merge").
type Style struct {
	Bold            bool
	Italic          bool
	Underline       bool
	Strikethrough   bool
	TextColor       Rgb
	FillColor       Rgb
	HasFill         bool
	FontSizeDelta    int
	NumberFormat    string
	HorizontalAlign HorizontalAlign
	VerticalAlign   VerticalAlign
	Wrap            bool
	Shrink          bool
}

// MergeUpdate ORs in set fields from u; later wins per field, matching
// spec 4.6 "Walk the list and OR-in set fields; later wins per field."
func (s Style) MergeUpdate(u FormatUpdate) Style {
	out := s
	if u.Bold != nil {
		out.Bold = *u.Bold
	}
	if u.Italic != nil {
		out.Italic = *u.Italic
	}
	if u.Underline != nil {
		out.Underline = *u.Underline
	}
	if u.Strikethrough != nil {
		out.Strikethrough = *u.Strikethrough
	}
	if u.TextColor != nil {
		out.TextColor = *u.TextColor
	}
	if u.FillColor != nil {
		out.FillColor = *u.FillColor
		out.HasFill = true
	}
	if u.FontSizeDelta != nil {
		out.FontSizeDelta = *u.FontSizeDelta
	}
	if u.NumberFormat != nil {
		out.NumberFormat = *u.NumberFormat
	}
	if u.HorizontalAlign != nil {
		out.HorizontalAlign = *u.HorizontalAlign
	}
	if u.VerticalAlign != nil {
		out.VerticalAlign = *u.VerticalAlign
	}
	if u.Wrap != nil {
		out.Wrap = *u.Wrap
	}
	if u.Shrink != nil {
		out.Shrink = *u.Shrink
	}
	return out
}

// CellBorderLine is one border edge's style, the internal representation
// that the Excel importer converts calamine/excelize border styles into
// (spec 4.9 "Borders convert from calamine styles to internal CellBorderLine").
type CellBorderLine struct {
	Style BorderLineStyle
	Color Rgb
}

type BorderLineStyle string

const (
	BorderNone   BorderLineStyle = "NONE"
	BorderThin   BorderLineStyle = "THIN"
	BorderMedium BorderLineStyle = "MEDIUM"
	BorderThick  BorderLineStyle = "THICK"
	BorderDashed BorderLineStyle = "DASHED"
	BorderDotted BorderLineStyle = "DOTTED"
	BorderDouble BorderLineStyle = "DOUBLE"
)

// CellBorders holds the four edges of one cell's border.
type CellBorders struct {
	Top, Bottom, Left, Right CellBorderLine
}
