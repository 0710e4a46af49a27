package lexer

import (
	"testing"

	"gridcore/internal/formula/token"
)

func TestNextToken(t *testing.T) {
	input := `=1+2.5*A1:B2-"hi""there"&C3%^2<>D4<=E5`

	tests := []struct {
		expectedType    token.Type
		expectedLiteral string
	}{
		{token.EQ, "="},
		{token.NUMBER, "1"},
		{token.PLUS, "+"},
		{token.NUMBER, "2.5"},
		{token.ASTERISK, "*"},
		{token.REFERENCE, "A1:B2"},
		{token.MINUS, "-"},
		{token.STRING, `hi"there`},
		{token.AMP, "&"},
		{token.REFERENCE, "C3"},
		{token.PERCENT, "%"},
		{token.CARET, "^"},
		{token.NUMBER, "2"},
		{token.NOT_EQ, "<>"},
		{token.REFERENCE, "D4"},
		{token.LE, "<="},
		{token.REFERENCE, "E5"},
		{token.EOF, ""},
	}

	l := New(input)
	for i, tt := range tests {
		tok := l.NextToken()
		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - wrong type. expected=%q, got=%q (literal %q)", i, tt.expectedType, tok.Type, tok.Literal)
		}
		if tok.Literal != tt.expectedLiteral {
			t.Fatalf("tests[%d] - wrong literal. expected=%q, got=%q", i, tt.expectedLiteral, tok.Literal)
		}
	}
}

func TestLexesTableReference(t *testing.T) {
	l := New("SUM(Sales[Amount])")
	want := []token.Type{token.IDENT, token.LPAREN, token.IDENT, token.LBRACKET, token.IDENT, token.RBRACKET, token.RPAREN, token.EOF}
	for i, wt := range want {
		tok := l.NextToken()
		if tok.Type != wt {
			t.Fatalf("token %d: expected %q, got %q (%q)", i, wt, tok.Type, tok.Literal)
		}
	}
}

func TestLexesSheetQualifiedReference(t *testing.T) {
	l := New(`'My Sheet'!A1:B2`)
	tok := l.NextToken()
	if tok.Type != token.REFERENCE {
		t.Fatalf("expected REFERENCE, got %q", tok.Type)
	}
	if tok.Literal != `'My Sheet'!A1:B2` {
		t.Fatalf("unexpected literal %q", tok.Literal)
	}
}

func TestLexesAbsoluteReference(t *testing.T) {
	l := New("$B$2")
	tok := l.NextToken()
	if tok.Type != token.REFERENCE || tok.Literal != "$B$2" {
		t.Fatalf("expected REFERENCE %q, got %q %q", "$B$2", tok.Type, tok.Literal)
	}
}

func TestLexesUnboundedRanges(t *testing.T) {
	cases := []string{"A:A", "1:1", ":B2", "A:"}
	for _, c := range cases {
		l := New(c)
		tok := l.NextToken()
		if tok.Type != token.REFERENCE && tok.Type != token.COLON {
			t.Fatalf("input %q: expected REFERENCE-ish token, got %q", c, tok.Type)
		}
	}
}
