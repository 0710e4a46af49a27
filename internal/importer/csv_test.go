package importer

import (
	"testing"

	"github.com/shopspring/decimal"

	"gridcore/internal/geom"
)

func TestDetectDelimiter(t *testing.T) {
	tests := []struct {
		name string
		line string
		want rune
	}{
		{"comma", "a,b,c", ','},
		{"tab", "a\tb\tc", '\t'},
		{"semicolon", "a;b;c", ';'},
		{"pipe", "a|b|c", '|'},
		{"default to comma with no delimiters", "abc", ','},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectDelimiter(tt.line); got != tt.want {
				t.Fatalf("detectDelimiter(%q) = %q, want %q", tt.line, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want cellKind
	}{
		{"blank", "", kindBlank},
		{"blank whitespace", "   ", kindBlank},
		{"plain number", "42", kindNumber},
		{"thousands separated number", "1,234.50", kindNumber},
		{"percent", "12.5%", kindNumber},
		{"dollar currency", "$19.99", kindNumber},
		{"euro currency", "€19.99", kindNumber},
		{"iso date", "2024-03-01", kindDate},
		{"slash date", "03/01/2024", kindDate},
		{"text", "hello world", kindText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, k := classify(tt.raw)
			if k != tt.want {
				t.Fatalf("classify(%q) kind = %v, want %v", tt.raw, k, tt.want)
			}
		})
	}
}

func TestClassifyPercentCarriesNumberFormat(t *testing.T) {
	v, fu, k := classify("50%")
	if k != kindNumber {
		t.Fatalf("expected kindNumber, got %v", k)
	}
	if f, _ := v.Number.Float64(); f != 0.5 {
		t.Fatalf("expected 0.5, got %v", f)
	}
	if fu == nil || fu.NumberFormat == nil || *fu.NumberFormat != "0.00%" {
		t.Fatalf("expected a percent number format, got %+v", fu)
	}
}

func TestDetectHeader(t *testing.T) {
	tests := []struct {
		name string
		rows [][]string
		want bool
	}{
		{
			name: "text header over numeric data",
			rows: [][]string{
				{"Name", "Age"},
				{"Alice", "30"},
				{"Bob", "25"},
			},
			want: true,
		},
		{
			name: "all-numeric rows have no header",
			rows: [][]string{
				{"1", "2"},
				{"3", "4"},
				{"5", "6"},
			},
			want: false,
		},
		{
			name: "header row has a blank cell",
			rows: [][]string{
				{"Name", ""},
				{"Alice", "30"},
				{"Bob", "25"},
			},
			want: false,
		},
		{
			name: "too few rows",
			rows: [][]string{
				{"Name", "Age"},
				{"Alice", "30"},
			},
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectHeader(tt.rows); got != tt.want {
				t.Fatalf("detectHeader() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestImportCSVAsTableAppliesHeader(t *testing.T) {
	raw := []byte("Name,Age\nAlice,30\nBob,25\n")
	sheetID := geom.NewSheetID()

	operations, err := ImportCSV(raw, CSVOptions{SheetID: sheetID, Pos: geom.Pos{X: 1, Y: 1}, AsTable: true})
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if len(operations) != 1 {
		t.Fatalf("expected one SetDataTable op, got %d", len(operations))
	}
	op := operations[0]
	if op.DataTable == nil {
		t.Fatalf("expected a data table on the op")
	}
	if !op.DataTable.HeaderIsFirstRow {
		t.Fatalf("expected header detection to promote the first row")
	}
	if op.DataTable.Height != 2 {
		t.Fatalf("expected 2 data rows after header promotion, got %d", op.DataTable.Height)
	}
}

func TestImportCSVPlainValuesEmitsFormatOpsForDates(t *testing.T) {
	raw := []byte("2024-01-01,text\n")
	sheetID := geom.NewSheetID()

	operations, err := ImportCSV(raw, CSVOptions{SheetID: sheetID, Pos: geom.Pos{X: 1, Y: 1}})
	if err != nil {
		t.Fatalf("ImportCSV: %v", err)
	}
	if len(operations) < 2 {
		t.Fatalf("expected a SetCellValues op plus at least one format op, got %d", len(operations))
	}
	if operations[0].CellValues == nil {
		t.Fatalf("expected the first op to carry cell values")
	}
	found := false
	for _, op := range operations[1:] {
		if op.FormatUpdate.NumberFormat != nil && *op.FormatUpdate.NumberFormat == "YYYY-MM-DD" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a date number-format op for the first cell")
	}
}

func TestExcelSerialRoundTrip(t *testing.T) {
	v, ok := parseDate("2024-01-01")
	if !ok {
		t.Fatalf("expected 2024-01-01 to parse as a date")
	}
	// 2024-01-01 is serial 45292 under the Excel 1900 leap-year bug epoch.
	if !v.Number.Equal(decimal.NewFromInt(45292)) {
		t.Fatalf("expected serial 45292, got %v", v.Number)
	}
}
