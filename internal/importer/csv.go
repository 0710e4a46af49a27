// Package importer implements the three import coordinators of spec
// 4.9 (C9): CSV, Excel, Parquet. Each path reads a source format and
// emits the ops.Operation(s) a caller feeds into gridcore.Controller's
// RunTransaction, the same "coordinator produces operations, executor
// applies them" separation the rest of the pipeline uses (spec 4.7).
package importer

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"gridcore/internal/geom"
	"gridcore/internal/grid"
	"gridcore/internal/ops"
	"gridcore/internal/table"
)

// CSVOptions configures one CSV import (spec 4.9 "CSV path").
type CSVOptions struct {
	SheetID geom.SheetID
	Pos     geom.Pos
	Delim   rune // 0 means auto-detect from the first line
	AsTable bool // emit SetDataTable instead of SetCellValues
	// Overwrite, when set, is an existing table whose name, formats,
	// borders, sort and show flags are carried onto the imported table
	// (AsTable only).
	Overwrite *table.DataTable
}

// decodeBytes strips a UTF-8/UTF-16 BOM and transcodes UTF-16 content
// to UTF-8, the "auto-detect by BOM" half of spec 4.9's CSV decode
// step. Content without a recognized BOM is assumed already UTF-8.
func decodeBytes(raw []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(raw, []byte{0xEF, 0xBB, 0xBF}):
		return raw[3:], nil
	case bytes.HasPrefix(raw, []byte{0xFF, 0xFE}) || bytes.HasPrefix(raw, []byte{0xFE, 0xFF}):
		dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
		out, _, err := transform.Bytes(dec, raw)
		return out, err
	default:
		if utf8.Valid(raw) {
			return raw, nil
		}
		// Heuristic fallback for 8-bit legacy encodings without a BOM:
		// pass through unchanged rather than guess a code page: the
		// spec only requires BOM-based and heuristic UTF detection,
		// not a full code-page table.
		return raw, nil
	}
}

// detectDelimiter inspects the first line for the most frequent of the
// common CSV delimiters, used when Delim is unset (spec 4.9 "split on
// delimiter (provided or inferred from first bytes)").
func detectDelimiter(firstLine string) rune {
	candidates := []rune{',', '\t', ';', '|'}
	best, bestCount := ',', -1
	for _, r := range candidates {
		n := strings.Count(firstLine, string(r))
		if n > bestCount {
			best, bestCount = r, n
		}
	}
	return best
}

func splitLine(line string, delim rune) []string {
	return strings.Split(line, string(delim))
}

// cellKind classifies a raw CSV field for the header-detection
// heuristic and for value/format derivation (spec 4.9 "number,
// percentage, currency, date, time, datetime detection").
type cellKind int

const (
	kindBlank cellKind = iota
	kindText
	kindNumber
	kindDate
)

func classify(raw string) (grid.CellValue, *grid.FormatUpdate, cellKind) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return grid.Blank(), nil, kindBlank
	}
	if v, ok := parseNumber(s); ok {
		return v, nil, kindNumber
	}
	if pct, ok := parsePercent(s); ok {
		fmtStr := "0.00%"
		return pct, &grid.FormatUpdate{NumberFormat: &fmtStr}, kindNumber
	}
	if cur, ok := parseCurrency(s); ok {
		fmtStr := "$#,##0.00"
		return cur, &grid.FormatUpdate{NumberFormat: &fmtStr}, kindNumber
	}
	if d, ok := parseDate(s); ok {
		fmtStr := "YYYY-MM-DD"
		return d, &grid.FormatUpdate{NumberFormat: &fmtStr}, kindDate
	}
	return grid.Text(s), nil, kindText
}

func parseNumber(s string) (grid.CellValue, bool) {
	cleaned := strings.ReplaceAll(s, ",", "")
	if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return grid.NumberFromFloat(f), true
	}
	return grid.CellValue{}, false
}

func parsePercent(s string) (grid.CellValue, bool) {
	if !strings.HasSuffix(s, "%") {
		return grid.CellValue{}, false
	}
	body := strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(body, 64)
	if err != nil {
		return grid.CellValue{}, false
	}
	return grid.NumberFromFloat(f / 100), true
}

func parseCurrency(s string) (grid.CellValue, bool) {
	sym := ""
	for _, prefix := range []string{"$", "€", "£"} {
		if strings.HasPrefix(s, prefix) {
			sym = prefix
			break
		}
	}
	if sym == "" {
		return grid.CellValue{}, false
	}
	return parseNumber(strings.TrimPrefix(s, sym))
}

var dateLayouts = []string{"2006-01-02", "01/02/2006", "2006/01/02", "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

func parseDate(s string) (grid.CellValue, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return grid.NumberFromFloat(excelSerial(t)), true
		}
	}
	return grid.CellValue{}, false
}

// excelSerial converts t to an Excel-style date serial (days since
// 1899-12-30, honoring the 1900 leap-year bug convention used
// throughout the spreadsheet number-format system, spec 4.9 "Excel's
// 1900-leap-year bug handling").
func excelSerial(t time.Time) float64 {
	epoch := time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)
	return t.Sub(epoch).Hours() / 24
}

// rowTypeSignature returns one cellKind per column for a row, used by
// the header-detection heuristic.
func rowTypeSignature(row []string) []cellKind {
	sig := make([]cellKind, len(row))
	for i, raw := range row {
		_, _, k := classify(raw)
		sig[i] = k
	}
	return sig
}

func rowHasBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}

func signaturesMatch(a, b []cellKind, blanksAllowed bool) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if blanksAllowed && (a[i] == kindBlank || b[i] == kindBlank) {
			continue
		}
		ai, bi := a[i], b[i]
		// text/number are interchangeable for the row-2-vs-row-3 match
		// (the blanks-allowed comparison) only.
		if blanksAllowed && (ai == kindText || ai == kindNumber) && (bi == kindText || bi == kindNumber) {
			continue
		}
		if ai != bi {
			return false
		}
	}
	return true
}

// detectHeader implements spec 4.9's header heuristic: "row 0 contains
// no blanks and row 0's type-sequence differs from row 1's (or row 0
// is all text), and row 1 matches row 2 type-for-type".
func detectHeader(rows [][]string) bool {
	if len(rows) < 3 {
		return false
	}
	if rowHasBlank(rows[0]) {
		return false
	}
	sig0, sig1, sig2 := rowTypeSignature(rows[0]), rowTypeSignature(rows[1]), rowTypeSignature(rows[2])
	allText := true
	for _, k := range sig0 {
		if k != kindText {
			allText = false
			break
		}
	}
	differs := !signaturesMatch(sig0, sig1, false)
	if !differs && !allText {
		return false
	}
	return signaturesMatch(sig1, sig2, true)
}

// ImportCSV reads raw CSV bytes and emits the operation(s) spec 4.9
// describes. If asTable, one SetDataTable op is returned with header
// detection applied and IgnoreOldDataTable set unless opts.Overwrite is
// given; otherwise one SetCellValues op anchored at opts.Pos followed by
// one SetCellFormatsA1 op per cell whose text implied a number format.
func ImportCSV(raw []byte, opts CSVOptions) ([]ops.Operation, error) {
	decoded, err := decodeBytes(raw)
	if err != nil {
		return nil, err
	}

	scanner := bufio.NewScanner(bytes.NewReader(decoded))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, nil
	}

	delim := opts.Delim
	if delim == 0 {
		delim = detectDelimiter(lines[0])
	}

	rows := make([][]string, len(lines))
	width := 0
	for i, line := range lines {
		rows[i] = splitLine(line, delim)
		if len(rows[i]) > width {
			width = len(rows[i])
		}
	}
	for i := range rows {
		for len(rows[i]) < width {
			rows[i] = append(rows[i], "")
		}
	}

	header := detectHeader(rows)

	if opts.AsTable {
		dt := table.New("Table1", width, len(rows))
		for y, row := range rows {
			for x, raw := range row {
				v, _, _ := classify(raw)
				dt.Set(x, y, v)
			}
		}
		if header {
			dt.SetFirstRowAsHeader(true)
		}
		if opts.Overwrite != nil {
			dt.Name = opts.Overwrite.Name
			dt.Formats = opts.Overwrite.Formats
			dt.Borders = opts.Overwrite.Borders
			dt.Sort = opts.Overwrite.Sort
			dt.ShowName = opts.Overwrite.ShowName
			dt.ShowColumns = opts.Overwrite.ShowColumns
		}
		return []ops.Operation{{
			Kind: ops.KindSetDataTable, SheetID: opts.SheetID, Pos: opts.Pos,
			DataTable: dt, IgnoreOldDataTable: opts.Overwrite == nil,
		}}, nil
	}

	values := grid.NewCellValues(width, len(rows))
	var formatOps []ops.Operation
	for y, row := range rows {
		for x, raw := range row {
			v, fu, _ := classify(raw)
			values.Set(x, y, v)
			if fu != nil {
				pos := geom.Pos{X: opts.Pos.X + int64(x), Y: opts.Pos.Y + int64(y)}
				formatOps = append(formatOps, ops.Operation{
					Kind: ops.KindSetCellFormatsA1, SheetID: opts.SheetID,
					Rect: geom.NewRect(pos.X, pos.Y, pos.X, pos.Y), FormatUpdate: *fu,
				})
			}
		}
	}

	result := []ops.Operation{{Kind: ops.KindSetCellValues, SheetID: opts.SheetID, Pos: opts.Pos, CellValues: values}}
	return append(result, formatOps...), nil
}

// ReadAll is a small convenience wrapper so callers don't need to
// import io themselves just to hand ImportCSV a []byte.
func ReadAll(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}
