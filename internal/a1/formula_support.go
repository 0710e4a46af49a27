package a1

// This file exposes the range/table parsing helpers already used by
// ParseSelection to the formula lexer/parser (internal/formula), which
// needs to turn a single REFERENCE or TABLE_REF token's raw text into a
// CellRefRange without going through the comma-separated-selection
// grammar ParseSelection expects.

// ParseSelectionBodyForFormula parses a single range body (no sheet
// prefix, no comma list) such as "A1", "A1:B2", "A:A", or "1:1" into its
// bounds, for use by the formula parser's Reference production.
func ParseSelectionBodyForFormula(body string) (RefRangeBounds, error) {
	return parseRangeBounds(body)
}

// ParseTableBracket parses the inside of a `Name[...]` structured
// reference, where raw is the bracketed spec text with the enclosing
// `[` `]` pair the parser consumed already reconstructed around it
// (e.g. "[Column]", "[[#Headers],[Column]]").
func ParseTableBracket(name, raw string) (TableRef, error) {
	spec := raw
	if len(spec) >= 2 && spec[0] == '[' && spec[len(spec)-1] == ']' {
		spec = spec[1 : len(spec)-1]
	}
	return parseTableRef(name, spec)
}
