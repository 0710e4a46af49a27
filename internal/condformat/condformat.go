// Package condformat implements conditional-format rule evaluation
// (spec component C6): per-cell formula/color-scale matching with
// anchor translation, a sheet-scoped color-scale threshold cache, and
// the style-merge precedence rule. Grounded on formula.AdjustReferences
// for anchor translation (the one piece of C6 the formula engine
// already delivers) and on grid.Style.MergeUpdate for the OR-in
// fill-merge rule (spec 4.6).
package condformat

import (
	"sort"

	"gridcore/internal/a1"
	"gridcore/internal/formula"
	"gridcore/internal/geom"
	"gridcore/internal/grid"
)

// FormatID is the stable identifier a ConditionalFormat persists under
// (spec 6.5); never reused across rename/edit so undo/redo and the
// preview-exclusion rule can compare ids reliably.
type FormatID string

// StructuredKind names the built-in rule shapes spec 4.6 enumerates for
// apply_to_blank defaulting. Custom/Formula rules use KindCustom.
type StructuredKind string

const (
	KindIsBlank            StructuredKind = "IS_BLANK"
	KindIsNotBlank         StructuredKind = "IS_NOT_BLANK"
	KindGreaterThan        StructuredKind = "GREATER_THAN"
	KindGreaterThanOrEqual StructuredKind = "GREATER_THAN_OR_EQUAL"
	KindEqual              StructuredKind = "EQUAL"
	KindBetween            StructuredKind = "BETWEEN"
	KindTextContains       StructuredKind = "TEXT_CONTAINS"
	KindTextStartsWith     StructuredKind = "TEXT_STARTS_WITH"
	KindTextEndsWith       StructuredKind = "TEXT_ENDS_WITH"
	KindCustom             StructuredKind = "CUSTOM"
)

// defaultApplyToBlank implements spec 3.7/4.6's per-kind default table.
func defaultApplyToBlank(k StructuredKind) bool {
	switch k {
	case KindIsBlank, KindIsNotBlank:
		return true
	default:
		return false
	}
}

// ThresholdType tags a color-scale threshold's anchor kind (spec 3.7).
type ThresholdType int

const (
	ThresholdMin ThresholdType = iota
	ThresholdMax
	ThresholdNumber
	ThresholdPercentile
	ThresholdPercent
)

// Threshold is one color-scale stop (spec 3.7).
type Threshold struct {
	Type  ThresholdType
	Value float64 // meaningful for Number/Percentile/Percent
	Color grid.Rgb
}

// Config is the sum type from spec 3.7: either a formula rule with a
// style to apply, or a color scale.
type Config struct {
	IsColorScale bool

	// Formula-kind fields.
	StructuredKind StructuredKind
	FormulaText    string
	Style          grid.FormatUpdate

	// ColorScale-kind fields.
	Thresholds       []Threshold
	InvertTextOnDark bool
}

// ConditionalFormat is spec 3.7's persisted rule.
type ConditionalFormat struct {
	ID           FormatID
	Selection    a1.A1Selection
	Config       Config
	ApplyToBlank *bool // nil = kind default
}

// applyToBlank resolves the effective flag for cf (spec 3.7).
func (cf *ConditionalFormat) applyToBlank() bool {
	if cf.ApplyToBlank != nil {
		return *cf.ApplyToBlank
	}
	if cf.Config.IsColorScale {
		return false
	}
	return defaultApplyToBlank(cf.Config.StructuredKind)
}

// EffectivePos lifts pos to the anchor of the merge containing it, if
// any (spec 4.6 step 1).
func EffectivePos(sheet *grid.Sheet, pos geom.Pos) geom.Pos {
	if rect, ok := sheet.Merges.GetMergeCellRect(pos); ok {
		return rect.Min
	}
	return pos
}

// CellReader resolves cells for formula evaluation, the same shape
// formula.Ctx.GetCell/GetRange use.
type CellReader struct {
	GetCell  func(sp geom.SheetPos) grid.CellValue
	GetRange func(sheetID geom.SheetID, rect geom.Rect) grid.CellValues
}

// EvaluateFormula implements spec 4.6 steps 1-3 for a Formula-kind rule:
// translate the rule's relative references by (effectivePos - anchor),
// evaluate at effectivePos, and apply the truthiness rule. Returns
// matched=false without error for blank cells when apply_to_blank is
// false.
func EvaluateFormula(cf *ConditionalFormat, sheetID geom.SheetID, sheet *grid.Sheet, pos geom.Pos, a1Ctx a1.Context, reader CellReader) (bool, error) {
	effective := EffectivePos(sheet, pos)
	cellVal := sheet.GetCell(effective)
	if cellVal.IsBlank() && !cf.applyToBlank() {
		return false, nil
	}
	anchor := cf.Selection.Anchor()
	dx, dy := effective.X-anchor.X, effective.Y-anchor.Y
	shifted, err := formula.AdjustReferences(cf.Config.FormulaText, dx, dy)
	if err != nil {
		return false, err
	}
	ctx := &formula.Ctx{
		A1:           a1Ctx,
		CurrentSheet: sheetID,
		CurrentPos:   effective,
		CondFormat:   true,
		GetCell:      reader.GetCell,
		GetRange:     reader.GetRange,
	}
	result := formula.Eval(shifted, ctx)
	if result.IsError() {
		return false, nil // evaluation errors don't match, don't abort
	}
	return result.Truthy(), nil
}

// --- Style merge (spec 4.6 "Style merge") ---

// MergedStyle is the result of walking the ordered format list: the
// resolved cell style plus whether a color-scale fill applied (which
// contributes only fill/text-color, never other style fields).
type MergedStyle struct {
	Style      grid.Style
	ColorScale bool
}

// ApplicableFormats filters formats to those whose selection contains
// pos, in persisted order, then appends preview if non-nil — excluding
// any persisted format sharing the preview's id (spec 4.6 "Style
// merge": "the preview replaces it during editing").
func ApplicableFormats(formats []*ConditionalFormat, preview *ConditionalFormat, sheetID geom.SheetID, pos geom.Pos, ctx a1.Context) []*ConditionalFormat {
	var out []*ConditionalFormat
	for _, f := range formats {
		if preview != nil && f.ID == preview.ID {
			continue
		}
		if f.Selection.SheetID != sheetID {
			continue
		}
		if f.Selection.ContainsPos(pos, ctx) {
			out = append(out, f)
		}
	}
	if preview != nil && preview.Selection.SheetID == sheetID && preview.Selection.ContainsPos(pos, ctx) {
		out = append(out, preview)
	}
	return out
}

// MergeStyles walks formats in order, OR-ing in set fields (later
// wins), per spec 4.6. Color-scale rules contribute only fill (and,
// when InvertTextOnDark, a contrasting text color derived from the
// fill's luminance).
func MergeStyles(base grid.Style, formats []*ConditionalFormat, sheetID geom.SheetID, sheet *grid.Sheet, pos geom.Pos, a1Ctx a1.Context, reader CellReader, cache *ThresholdCache) grid.Style {
	out := base
	for _, cf := range formats {
		if cf.Config.IsColorScale {
			color, ok := ResolveColorScale(cf, sheetID, sheet, pos, a1Ctx, cache)
			if !ok {
				continue
			}
			out.FillColor = color
			out.HasFill = true
			if cf.Config.InvertTextOnDark {
				if color.Luminance() < 128 {
					out.TextColor = grid.Rgb{R: 255, G: 255, B: 255}
				} else {
					out.TextColor = grid.Rgb{R: 0, G: 0, B: 0}
				}
			}
			continue
		}
		matched, err := EvaluateFormula(cf, sheetID, sheet, pos, a1Ctx, reader)
		if err != nil || !matched {
			continue
		}
		out = out.MergeUpdate(cf.Config.Style)
	}
	return out
}

// --- Color scale (spec 4.6 "Threshold cache") ---

// ThresholdCache is the sheet-scoped, transaction-lifetime cache of
// computed threshold value vectors (spec 3.5, 5). Cleared by the
// operation pipeline at the end of every mutating transaction and on
// every preview change.
type ThresholdCache struct {
	bySheet map[geom.SheetID]map[FormatID][]float64
}

func NewThresholdCache() *ThresholdCache {
	return &ThresholdCache{bySheet: make(map[geom.SheetID]map[FormatID][]float64)}
}

// Clear invalidates every cached threshold vector for sheetID (spec 5,
// "cleared on every mutating operation").
func (c *ThresholdCache) Clear(sheetID geom.SheetID) {
	delete(c.bySheet, sheetID)
}

// ClearAll invalidates every sheet's cache, used when a preview format
// changes since the preview can apply to any sheet.
func (c *ThresholdCache) ClearAll() {
	c.bySheet = make(map[geom.SheetID]map[FormatID][]float64)
}

// values computes (once per transaction, then caches) the sorted finite
// numeric values inside cf's selection, expanded against the sheet's
// data bounds rather than formatting bounds (spec 4.6).
func (c *ThresholdCache) values(cf *ConditionalFormat, sheetID geom.SheetID, sheet *grid.Sheet, a1Ctx a1.Context) []float64 {
	perSheet, ok := c.bySheet[sheetID]
	if !ok {
		perSheet = make(map[FormatID][]float64)
		c.bySheet[sheetID] = perSheet
	}
	if cached, ok := perSheet[cf.ID]; ok {
		return cached
	}
	var out []float64
	for _, r := range cf.Selection.Ranges {
		rect := r.LargestRectFinite(sheetID, a1Ctx)
		for pos, v := range sheet.CellsInRect(rect) {
			_ = pos
			if v.Kind == grid.KindNumber {
				f, _ := v.Number.Float64()
				out = append(out, f)
			}
		}
	}
	sort.Float64s(out)
	perSheet[cf.ID] = out
	return out
}

// thresholdTarget resolves one Threshold to its numeric target value
// against the sorted value vector (spec 4.6).
func thresholdTarget(th Threshold, values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	min, max := values[0], values[len(values)-1]
	switch th.Type {
	case ThresholdMin:
		return min, true
	case ThresholdMax:
		return max, true
	case ThresholdNumber:
		return th.Value, true
	case ThresholdPercent:
		return min + (max-min)*th.Value/100, true
	case ThresholdPercentile:
		return percentileInc(values, th.Value/100), true
	}
	return 0, false
}

// percentileInc implements PERCENTILE.INC linear interpolation: position
// k*(n-1), fractional blend between neighbors (spec 4.6, 4.4).
func percentileInc(sorted []float64, k float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}
	if k <= 0 {
		return sorted[0]
	}
	if k >= 1 {
		return sorted[n-1]
	}
	pos := k * float64(n-1)
	lo := int(pos)
	frac := pos - float64(lo)
	if lo+1 >= n {
		return sorted[n-1]
	}
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}

// ResolveColorScale computes the fill color for pos under cf's color
// scale, or ok=false if pos has no finite numeric value (spec 4.6:
// "blank cells... has no fill").
func ResolveColorScale(cf *ConditionalFormat, sheetID geom.SheetID, sheet *grid.Sheet, pos geom.Pos, a1Ctx a1.Context, cache *ThresholdCache) (grid.Rgb, bool) {
	effective := EffectivePos(sheet, pos)
	cell := sheet.GetCell(effective)
	if cell.Kind != grid.KindNumber {
		return grid.Rgb{}, false
	}
	value, _ := cell.Number.Float64()

	values := cache.values(cf, sheetID, sheet, a1Ctx)
	thresholds := cf.Config.Thresholds
	if len(thresholds) == 0 {
		return grid.Rgb{}, false
	}
	targets := make([]float64, len(thresholds))
	for i, th := range thresholds {
		t, ok := thresholdTarget(th, values)
		if !ok {
			return grid.Rgb{}, false
		}
		targets[i] = t
	}

	if value <= targets[0] {
		return thresholds[0].Color, true
	}
	if value >= targets[len(targets)-1] {
		return thresholds[len(thresholds)-1].Color, true
	}
	for i := 0; i < len(targets)-1; i++ {
		if value >= targets[i] && value <= targets[i+1] {
			span := targets[i+1] - targets[i]
			t := 0.0
			if span != 0 {
				t = (value - targets[i]) / span
			}
			return thresholds[i].Color.Lerp(thresholds[i+1].Color, t), true
		}
	}
	return thresholds[len(thresholds)-1].Color, true
}

// GetConditionalFormatFills implements spec 4.6's rendering aggregation:
// resolve every cell in rect, write into a local Contiguous2D[string],
// then coalesce into maximal rectangles of identical color.
func GetConditionalFormatFills(formats []*ConditionalFormat, preview *ConditionalFormat, sheetID geom.SheetID, sheet *grid.Sheet, rect geom.Rect, a1Ctx a1.Context, reader CellReader, cache *ThresholdCache) []grid.RectValue[string] {
	local := grid.NewContiguous2D[string]()
	for y := rect.Min.Y; y <= rect.Max.Y; y++ {
		for x := rect.Min.X; x <= rect.Max.X; x++ {
			pos := geom.Pos{X: x, Y: y}
			applicable := ApplicableFormats(formats, preview, sheetID, pos, a1Ctx)
			style := MergeStyles(grid.Style{}, applicable, sheetID, sheet, pos, a1Ctx, reader, cache)
			if style.HasFill {
				local.Set(pos, style.FillColor.Hex())
			}
		}
	}
	return local.NondefaultRectsInRect(rect)
}
