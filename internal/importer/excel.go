package importer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"gridcore/internal/geom"
	"gridcore/internal/grid"
	"gridcore/internal/ops"
)

// ExcelOptions configures one workbook import (spec 4.9 "Excel path").
type ExcelOptions struct {
	SheetIDs  map[string]geom.SheetID // workbook sheet name -> target SheetID
	Pos       geom.Pos                // anchor on each target sheet
	Overwrite map[string]geom.Pos     // existing table anchors by sheet name; not read by ImportExcel
}

// namedRange is one workbook-level defined name, translated into a
// `\bname\b` regex replacement applied to every formula before
// insertion (spec 4.9 "named-range \bname\b substitution").
type namedRange struct {
	pattern     *regexp.Regexp
	replacement string
}

func buildNamedRanges(f *excelize.File) []namedRange {
	var out []namedRange
	for _, dn := range f.GetDefinedName() {
		pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(dn.Name) + `\b`)
		if err != nil {
			continue
		}
		// References carry absolute markers ($) already; escaping them
		// again as literal $ in the replacement avoids regexp treating
		// `$` as a capture-group backreference marker.
		repl := strings.ReplaceAll(dn.RefersTo, "$", "$$")
		out = append(out, namedRange{pattern: pattern, replacement: repl})
	}
	return out
}

func applyNamedRanges(formula string, ranges []namedRange) string {
	for _, nr := range ranges {
		formula = nr.pattern.ReplaceAllString(formula, nr.replacement)
	}
	return formula
}

// ImportExcel reads every sheet named in opts.SheetIDs and emits, per
// sheet, one SetCellFormatsA1 per styled cell and one SetCellValues
// (values + translated formulas). Column widths and row heights are not
// imported: excelLayoutOps returns no operations.
func ImportExcel(f *excelize.File, opts ExcelOptions) ([]ops.Operation, error) {
	namedRanges := buildNamedRanges(f)
	var out []ops.Operation

	for sheetName, sheetID := range opts.SheetIDs {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, fmt.Errorf("importer: reading sheet %q: %w", sheetName, err)
		}
		width := 0
		for _, row := range rows {
			if len(row) > width {
				width = len(row)
			}
		}
		values := grid.NewCellValues(width, len(rows))

		for y, row := range rows {
			for x := 0; x < width; x++ {
				cellRef, _ := excelize.CoordinatesToCellName(x+1, y+1)
				if formula, _ := f.GetCellFormula(sheetName, cellRef); formula != "" {
					values.Set(x, y, grid.CellValue{Kind: grid.KindCode, Code: grid.CodeCell{
						Language: grid.CodeFormula,
						Code:     applyNamedRanges(formula, namedRanges),
					}})
					continue
				}
				if x < len(row) {
					values.Set(x, y, excelCellValue(row[x]))
				}
			}

			styleOps := excelRowStyles(f, sheetName, y, width, sheetID, opts.Pos)
			out = append(out, styleOps...)
		}

		out = append(out, ops.Operation{Kind: ops.KindSetCellValues, SheetID: sheetID, Pos: opts.Pos, CellValues: values})
		out = append(out, excelLayoutOps(f, sheetName, sheetID)...)
	}
	return out, nil
}

func excelCellValue(raw string) grid.CellValue {
	if raw == "" {
		return grid.Blank()
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return grid.NumberFromFloat(f)
	}
	if raw == "TRUE" || raw == "FALSE" {
		return grid.Logical(raw == "TRUE")
	}
	return grid.Text(raw)
}

// excelRowStyles reads one style per cell in row y and emits a
// SetCellFormatsA1 op for each, translated from excelize.Style (font,
// fill, number format, alignment) into grid.FormatUpdate (spec 4.9
// "Cell styles map to the internal format set").
func excelRowStyles(f *excelize.File, sheetName string, y, width int, sheetID geom.SheetID, anchor geom.Pos) []ops.Operation {
	var out []ops.Operation
	for x := 0; x < width; x++ {
		cellRef, _ := excelize.CoordinatesToCellName(x+1, y+1)
		styleID, err := f.GetCellStyle(sheetName, cellRef)
		if err != nil || styleID == 0 {
			continue
		}
		style, err := f.GetStyle(styleID)
		if err != nil {
			continue
		}
		update := styleToFormatUpdate(style)
		pos := geom.Pos{X: anchor.X + int64(x), Y: anchor.Y + int64(y)}
		out = append(out, ops.Operation{
			Kind: ops.KindSetCellFormatsA1, SheetID: sheetID,
			Rect: geom.NewRect(pos.X, pos.Y, pos.X, pos.Y), FormatUpdate: update,
		})
	}
	return out
}

func styleToFormatUpdate(style *excelize.Style) grid.FormatUpdate {
	var update grid.FormatUpdate
	if style.Font != nil {
		bold, italic, underline := style.Font.Bold, style.Font.Italic, style.Font.Underline != ""
		update.Bold = &bold
		update.Italic = &italic
		update.Underline = &underline
		if style.Font.Color != "" && !strings.EqualFold(style.Font.Color, "000000") {
			if rgb, ok := parseHexColor(style.Font.Color); ok {
				update.TextColor = &rgb
			}
		}
	}
	if style.Fill.Color != nil && len(style.Fill.Color) > 0 {
		if rgb, ok := parseHexColor(style.Fill.Color[0]); ok {
			update.FillColor = &rgb
		}
	}
	if style.CustomNumFmt != nil {
		update.NumberFormat = style.CustomNumFmt
	}
	if style.Alignment != nil {
		h := grid.HorizontalAlign(strings.ToUpper(style.Alignment.Horizontal))
		v := grid.VerticalAlign(strings.ToUpper(style.Alignment.Vertical))
		if h != "" {
			update.HorizontalAlign = &h
		}
		if v != "" {
			update.VerticalAlign = &v
		}
		wrap := style.Alignment.WrapText
		update.Wrap = &wrap
	}
	return update
}

func parseHexColor(hex string) (grid.Rgb, bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) == 8 {
		hex = hex[2:] // drop leading ARGB alpha byte
	}
	if len(hex) != 6 {
		return grid.Rgb{}, false
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return grid.Rgb{}, false
	}
	return grid.Rgb{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, true
}

// excelLayoutOps returns no operations: column widths and row heights
// are not imported. ops.Operation has no dedicated column-width/
// row-height variant in the core enum (spec 4.7 lists the Operation
// *core members*, not every auxiliary layout op); see DESIGN.md.
func excelLayoutOps(f *excelize.File, sheetName string, sheetID geom.SheetID) []ops.Operation {
	return nil
}
