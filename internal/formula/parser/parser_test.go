package parser

import (
	"testing"

	"gridcore/internal/formula/ast"
)

func parseOrFail(t *testing.T, input string) ast.Expression {
	t.Helper()
	expr, errs := ParseFormula(input)
	if len(errs) > 0 {
		t.Fatalf("parse %q: %v", input, errs)
	}
	if expr == nil {
		t.Fatalf("parse %q: nil expression", input)
	}
	return expr
}

func TestOperatorPrecedence(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"1+2*3", "(1+(2*3))"},
		{"(1+2)*3", "((1+2)*3)"},
		{"2^3^2", "((2^3)^2)"},
		{"-2^2", "(-(2^2))"},
		{"1&2&3", "((1&2)&3)"},
		{"1=1+1", "(1=(1+1))"},
		{"50%", "50%"},
		{"10+5%", "(10+5%)"},
	}
	for _, tt := range tests {
		got := parseOrFail(t, tt.input).String()
		if got != tt.want {
			t.Errorf("input %q: got %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseFunctionCall(t *testing.T) {
	expr := parseOrFail(t, "SUM(A1:A10,5)")
	call, ok := expr.(*ast.FunctionCall)
	if !ok {
		t.Fatalf("expected *ast.FunctionCall, got %T", expr)
	}
	if call.Name != "SUM" {
		t.Fatalf("expected name SUM, got %q", call.Name)
	}
	if len(call.Args) != 2 {
		t.Fatalf("expected 2 args, got %d", len(call.Args))
	}
}

func TestParseReference(t *testing.T) {
	expr := parseOrFail(t, "A1:B2")
	ref, ok := expr.(*ast.Reference)
	if !ok {
		t.Fatalf("expected *ast.Reference, got %T", expr)
	}
	if ref.Range.String() != "A1:B2" {
		t.Fatalf("unexpected range text %q", ref.Range.String())
	}
}

func TestParseSheetQualifiedReference(t *testing.T) {
	expr := parseOrFail(t, "'My Sheet'!A1")
	ref, ok := expr.(*ast.Reference)
	if !ok {
		t.Fatalf("expected *ast.Reference, got %T", expr)
	}
	if ref.SheetName != "My Sheet" {
		t.Fatalf("unexpected sheet name %q", ref.SheetName)
	}
}

func TestParseArrayLiteral(t *testing.T) {
	expr := parseOrFail(t, "{1,2;3,4}")
	arr, ok := expr.(*ast.ArrayLiteral)
	if !ok {
		t.Fatalf("expected *ast.ArrayLiteral, got %T", expr)
	}
	if len(arr.Rows) != 2 || len(arr.Rows[0]) != 2 {
		t.Fatalf("unexpected array shape: %#v", arr.Rows)
	}
}

func TestParseTableReference(t *testing.T) {
	expr := parseOrFail(t, "Sales[Amount]")
	ref, ok := expr.(*ast.Reference)
	if !ok {
		t.Fatalf("expected *ast.Reference, got %T", expr)
	}
	if ref.Range.Table.Name != "Sales" {
		t.Fatalf("unexpected table name %q", ref.Range.Table.Name)
	}
}

func TestParseErrorOnTrailingTokens(t *testing.T) {
	_, errs := ParseFormula("1 2")
	if len(errs) == 0 {
		t.Fatalf("expected parse error for trailing tokens")
	}
}
