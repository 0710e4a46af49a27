// Package grid owns the sparse per-sheet cell storage and the
// piecewise-constant attribute store used for formats, fills, and
// borders (spec 4.2). The evaluation/tagged-variant shape of CellValue
// mirrors the teacher's interpreter.Value design (value.go:
// Type()/Inspect() on a closed set of concrete structs) generalized from
// script values to spreadsheet cell values.
package grid

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags the concrete CellValue variant, exposed for CSV header-type
// detection (spec 3.2) and for the formula engine's coercion rules.
type Kind string

const (
	KindBlank    Kind = "BLANK"
	KindText     Kind = "TEXT"
	KindNumber   Kind = "NUMBER"
	KindLogical  Kind = "LOGICAL"
	KindError    Kind = "ERROR"
	KindHTML     Kind = "HTML"
	KindImage    Kind = "IMAGE"
	KindDate     Kind = "DATE"
	KindTime     Kind = "TIME"
	KindDateTime Kind = "DATETIME"
	KindDuration Kind = "DURATION"
	KindInstant  Kind = "INSTANT"
	KindRichText Kind = "RICH_TEXT"
	KindCode     Kind = "CODE"
)

// CodeLanguage enumerates the kinds of code cells a DataTable can be
// backed by (spec 3.6 DataTable.kind CodeRun variant).
type CodeLanguage string

const (
	CodeFormula CodeLanguage = "FORMULA"
	CodePython  CodeLanguage = "PYTHON"
	CodeJS      CodeLanguage = "JAVASCRIPT"
)

// CodeCell is the payload of CellValue Code: unevaluated source plus the
// language it's written in.
type CodeCell struct {
	Language CodeLanguage
	Code     string
}

// RunError is the payload of CellValue Error: a formula evaluation
// failure embedded as data rather than aborting the transaction (spec
// 7 "Formula errors embed as CellValue::Error(RunError); they do not
// abort the transaction").
type RunError struct {
	Kind ErrorKind
	Msg  string
}

func (e RunError) Error() string { return string(e.Kind) + ": " + e.Msg }

// ErrorKind is the formula-scope error taxonomy from spec 4.4.
type ErrorKind string

const (
	ErrInvalidArgument        ErrorKind = "InvalidArgument"
	ErrEmptyArray             ErrorKind = "EmptyArray"
	ErrArrayTooBig            ErrorKind = "ArrayTooBig"
	ErrNotAvailable           ErrorKind = "NotAvailable"
	ErrDivideByZero           ErrorKind = "DivideByZero"
	ErrNum                    ErrorKind = "Num"
	ErrMissingRequiredArg     ErrorKind = "MissingRequiredArgument"
	ErrNoMatch                ErrorKind = "NoMatch"
	ErrExactArraySizeMismatch ErrorKind = "ExactArraySizeMismatch"
)

// CellValue is the tagged union described in spec 3.2. Only one field
// among the typed payloads is meaningful, selected by Kind; this mirrors
// the closed Value-interface variant set of the teacher's interpreter
// package without paying for a full interface-per-variant type switch at
// every call site, since spreadsheet cells are created and compared far
// more often than script values are.
type CellValue struct {
	Kind Kind

	Text    string
	Number  decimal.Decimal
	Logical bool
	Err     RunError
	HTML    string
	Image   []byte

	Date     time.Time // y/m/d meaningful
	Time     time.Time // h/m/s meaningful
	DateTime time.Time
	Instant  time.Time
	Duration time.Duration

	Rich []RichRun

	Code CodeCell
}

// RichRun is one styled run of a CellValue Rich text value.
type RichRun struct {
	Text string
	Bold bool
}

func Blank() CellValue { return CellValue{Kind: KindBlank} }

func Text(s string) CellValue { return CellValue{Kind: KindText, Text: s} }

func NumberFromInt(i int64) CellValue {
	return CellValue{Kind: KindNumber, Number: decimal.NewFromInt(i)}
}

func NumberFromFloat(f float64) CellValue {
	return CellValue{Kind: KindNumber, Number: decimal.NewFromFloat(f)}
}

func Number(d decimal.Decimal) CellValue { return CellValue{Kind: KindNumber, Number: d} }

func Logical(b bool) CellValue { return CellValue{Kind: KindLogical, Logical: b} }

func Error(kind ErrorKind, msg string) CellValue {
	return CellValue{Kind: KindError, Err: RunError{Kind: kind, Msg: msg}}
}

// IsBlank is true only for Blank and for Text("") produced by code
// output (spec 3.2 contract), not for ordinary empty-string literals a
// user might type — those are represented identically at this layer, so
// callers needing the narrower distinction track provenance themselves
// (the formula engine's code-output path constructs Text("") directly
// and is the only caller that relies on this contract).
func (v CellValue) IsBlank() bool {
	return v.Kind == KindBlank || (v.Kind == KindText && v.Text == "")
}

func (v CellValue) IsError() bool { return v.Kind == KindError }

func (v CellValue) IsNumeric() bool { return v.Kind == KindNumber }

// ToDisplay renders a human-readable form (spec 3.2 "Display vs repr").
func (v CellValue) ToDisplay() string {
	switch v.Kind {
	case KindBlank:
		return ""
	case KindText:
		return v.Text
	case KindNumber:
		return v.Number.String()
	case KindLogical:
		if v.Logical {
			return "TRUE"
		}
		return "FALSE"
	case KindError:
		return "#" + string(v.Err.Kind)
	case KindHTML:
		return v.HTML
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindTime:
		return v.Time.Format("15:04:05")
	case KindDateTime:
		return v.DateTime.Format("2006-01-02 15:04:05")
	case KindDuration:
		return v.Duration.String()
	case KindInstant:
		return v.Instant.Format(time.RFC3339)
	case KindRichText:
		var b strings.Builder
		for _, r := range v.Rich {
			b.WriteString(r.Text)
		}
		return b.String()
	case KindCode:
		return v.Code.Code
	default:
		return ""
	}
}

// Repr renders parseable formula syntax: strings quoted, etc. (spec 3.2).
func (v CellValue) Repr() string {
	switch v.Kind {
	case KindText:
		return fmt.Sprintf("\"%s\"", strings.ReplaceAll(v.Text, "\"", "\"\""))
	case KindBlank:
		return ""
	default:
		return v.ToDisplay()
	}
}

// Truthy implements the conditional-format / IF truthiness rule from
// spec 4.6 step 3: nonzero numbers, nonempty strings, Logical(true) are
// true; blanks, errors, zeros, empty strings are false.
func (v CellValue) Truthy() bool {
	switch v.Kind {
	case KindLogical:
		return v.Logical
	case KindNumber:
		return !v.Number.IsZero()
	case KindText:
		return v.Text != ""
	default:
		return false
	}
}

// NumericOrZero implements "comparison with Blank coerces blank to 0 for
// numeric operators" (spec 4.4).
func (v CellValue) NumericOrZero() decimal.Decimal {
	switch v.Kind {
	case KindNumber:
		return v.Number
	case KindBlank:
		return decimal.Zero
	case KindLogical:
		if v.Logical {
			return decimal.NewFromInt(1)
		}
		return decimal.Zero
	default:
		return decimal.Zero
	}
}
