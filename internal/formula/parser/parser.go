// Package parser builds a formula AST from a token stream (spec 4.4,
// 6.3). Structurally this is the teacher's Pratt parser (parser.go:
// prefix/infix fn tables keyed by token type, a precedence table, the
// curToken/peekToken two-token lookahead) narrowed to the formula
// grammar's six precedence tiers instead of the general-purpose
// language's assignment/or/and/equality/range/sum/product/prefix/postfix
// ladder.
package parser

import (
	"fmt"

	"gridcore/internal/a1"
	"gridcore/internal/formula/ast"
	"gridcore/internal/formula/lexer"
	"gridcore/internal/formula/token"
)

type (
	prefixParseFn func() ast.Expression
	infixParseFn  func(ast.Expression) ast.Expression
)

type ParseError struct {
	Message string
	Token   token.Token
}

func (e ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Token.Line, e.Token.Column, e.Message)
}

type Parser struct {
	l *lexer.Lexer

	curToken  token.Token
	peekToken token.Token

	errors []ParseError

	prefixParseFns map[token.Type]prefixParseFn
	infixParseFns  map[token.Type]infixParseFn
}

const (
	_ int = iota
	LOWEST
	COMPARISON // = <> < > <= >=
	CONCAT     // &
	SUM        // + -
	PRODUCT    // * /
	EXPONENT   // ^
	PERCENT_PREC
	PREFIX // unary - +
)

var precedences = map[token.Type]int{
	token.EQ:       COMPARISON,
	token.NOT_EQ:   COMPARISON,
	token.LT:       COMPARISON,
	token.GT:       COMPARISON,
	token.LE:       COMPARISON,
	token.GE:       COMPARISON,
	token.AMP:      CONCAT,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.CARET:    EXPONENT,
	token.PERCENT:  PERCENT_PREC,
}

func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = make(map[token.Type]prefixParseFn)
	p.registerPrefix(token.NUMBER, p.parseNumberLiteral)
	p.registerPrefix(token.STRING, p.parseStringLiteral)
	p.registerPrefix(token.REFERENCE, p.parseReference)
	p.registerPrefix(token.IDENT, p.parseIdentOrCallOrTable)
	p.registerPrefix(token.MINUS, p.parsePrefixExpression)
	p.registerPrefix(token.PLUS, p.parsePrefixExpression)
	p.registerPrefix(token.LPAREN, p.parseGroupedExpression)
	p.registerPrefix(token.LBRACE, p.parseArrayLiteral)

	p.infixParseFns = make(map[token.Type]infixParseFn)
	for _, t := range []token.Type{token.PLUS, token.MINUS, token.ASTERISK, token.SLASH,
		token.CARET, token.AMP, token.EQ, token.NOT_EQ, token.LT, token.GT, token.LE, token.GE} {
		p.registerInfix(t, p.parseInfixExpression)
	}
	p.registerInfix(token.PERCENT, p.parsePostfixPercent)

	p.nextToken()
	p.nextToken()
	return p
}

func (p *Parser) registerPrefix(t token.Type, fn prefixParseFn) { p.prefixParseFns[t] = fn }
func (p *Parser) registerInfix(t token.Type, fn infixParseFn)   { p.infixParseFns[t] = fn }

func (p *Parser) Errors() []ParseError { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) curPrecedence() int {
	if pr, ok := precedences[p.curToken.Type]; ok {
		return pr
	}
	return LOWEST
}

func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, ParseError{Message: fmt.Sprintf(format, args...), Token: p.curToken})
}

// ParseExpression parses the entire token stream as one formula
// expression (a formula cell holds exactly one expression, unlike the
// teacher's multi-statement Program).
func (p *Parser) ParseExpression() ast.Expression {
	expr := p.parseExpr(LOWEST)
	if p.curToken.Type != token.EOF {
		p.errorf("unexpected trailing token %q", p.curToken.Literal)
	}
	return expr
}

func (p *Parser) parseExpr(precedence int) ast.Expression {
	prefix := p.prefixParseFns[p.curToken.Type]
	if prefix == nil {
		p.errorf("no prefix parse function for %q", p.curToken.Literal)
		return nil
	}
	left := prefix()

	for p.curToken.Type != token.EOF && precedence < p.curPrecedence() {
		infix := p.infixParseFns[p.curToken.Type]
		if infix == nil {
			return left
		}
		left = infix(left)
	}
	return left
}

func (p *Parser) parseNumberLiteral() ast.Expression {
	n := &ast.NumberLiteral{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken()
	return n
}

func (p *Parser) parseStringLiteral() ast.Expression {
	n := &ast.StringLiteral{Token: p.curToken, Value: p.curToken.Literal}
	p.nextToken()
	return n
}

func (p *Parser) parseReference() ast.Expression {
	tok := p.curToken
	text := tok.Literal
	sheetName, body := splitSheetPrefix(text)
	bounds, err := a1.ParseSelectionBodyForFormula(body)
	if err != nil {
		p.errorf("invalid reference %q: %v", text, err)
		p.nextToken()
		return nil
	}
	p.nextToken()
	return &ast.Reference{Token: tok, SheetName: sheetName, Range: a1.SheetRange(bounds)}
}

// splitSheetPrefix strips a leading `'Sheet Name'!` or `Sheet!` prefix
// from a lexed REFERENCE token's literal text.
func splitSheetPrefix(s string) (sheet, rest string) {
	bang := -1
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\'':
			inQuote = !inQuote
		case '!':
			if !inQuote {
				bang = i
			}
		}
		if bang >= 0 {
			break
		}
	}
	if bang < 0 {
		return "", s
	}
	name := s[:bang]
	if len(name) >= 2 && name[0] == '\'' && name[len(name)-1] == '\'' {
		name = name[1 : len(name)-1]
	}
	return name, s[bang+1:]
}

func (p *Parser) parseIdentOrCallOrTable() ast.Expression {
	tok := p.curToken
	name := tok.Literal
	if p.peekToken.Type == token.LPAREN {
		p.nextToken() // consume ident, curToken == '('
		args := p.parseCallArgs()
		return &ast.FunctionCall{Token: tok, Name: name, Args: args}
	}
	if p.peekToken.Type == token.LBRACKET {
		p.nextToken() // curToken == '['
		ref := p.parseTableRef(tok, name)
		return ref
	}
	p.nextToken()
	// A bare identifier with no call/table suffix is treated as an
	// unqualified single-cell-style name; most formulas never hit this
	// path since every bareword is either a function call or a table
	// reference, but a defined-name reference would land here in a
	// fuller implementation.
	return &ast.Reference{Token: tok, Range: a1.CellRefRange{}}
}

func (p *Parser) parseCallArgs() []ast.Expression {
	var args []ast.Expression
	if p.peekToken.Type == token.RPAREN {
		p.nextToken()
		p.nextToken()
		return args
	}
	p.nextToken()
	args = append(args, p.parseExpr(LOWEST))
	for p.curToken.Type == token.COMMA {
		p.nextToken()
		args = append(args, p.parseExpr(LOWEST))
	}
	if p.curToken.Type != token.RPAREN {
		p.errorf("expected ')', got %q", p.curToken.Literal)
		return args
	}
	p.nextToken()
	return args
}

func (p *Parser) parseTableRef(tok token.Token, name string) ast.Expression {
	depth := 0
	var raw []byte
	raw = append(raw, '[')
	depth++
	p.nextToken() // consume '['
	for depth > 0 && p.curToken.Type != token.EOF {
		switch p.curToken.Type {
		case token.LBRACKET:
			depth++
			raw = append(raw, '[')
		case token.RBRACKET:
			depth--
			raw = append(raw, ']')
		default:
			raw = append(raw, []byte(p.curToken.Literal)...)
			raw = append(raw, ' ')
		}
		p.nextToken()
	}
	t, err := a1.ParseTableBracket(name, string(raw))
	if err != nil {
		p.errorf("invalid table reference %s[...]: %v", name, err)
		return nil
	}
	return &ast.Reference{Token: tok, Range: a1.TableRange(t)}
}

func (p *Parser) parsePrefixExpression() ast.Expression {
	tok := p.curToken
	op := tok.Literal
	p.nextToken()
	operand := p.parseExpr(PREFIX)
	return &ast.UnaryOp{Token: tok, Op: op, Operand: operand}
}

func (p *Parser) parseInfixExpression(left ast.Expression) ast.Expression {
	tok := p.curToken
	op := tok.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpr(precedence)
	return &ast.BinaryOp{Token: tok, Op: op, Left: left, Right: right}
}

func (p *Parser) parsePostfixPercent(left ast.Expression) ast.Expression {
	tok := p.curToken
	p.nextToken()
	return &ast.UnaryOp{Token: tok, Op: "%", Operand: left, Postfix: true}
}

func (p *Parser) parseGroupedExpression() ast.Expression {
	p.nextToken() // consume '('
	expr := p.parseExpr(LOWEST)
	if p.curToken.Type != token.RPAREN {
		p.errorf("expected ')', got %q", p.curToken.Literal)
		return expr
	}
	p.nextToken()
	return expr
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	tok := p.curToken
	p.nextToken() // consume '{'
	var rows [][]ast.Expression
	row := []ast.Expression{p.parseExpr(LOWEST)}
	for {
		switch p.curToken.Type {
		case token.COMMA:
			p.nextToken()
			row = append(row, p.parseExpr(LOWEST))
		case token.SEMI:
			rows = append(rows, row)
			row = nil
			p.nextToken()
			row = append(row, p.parseExpr(LOWEST))
		case token.RBRACE:
			rows = append(rows, row)
			p.nextToken()
			return &ast.ArrayLiteral{Token: tok, Rows: rows}
		default:
			p.errorf("expected ',', ';', or '}' in array literal, got %q", p.curToken.Literal)
			rows = append(rows, row)
			return &ast.ArrayLiteral{Token: tok, Rows: rows}
		}
	}
}

// ParseFormula is the top-level entry point: lexes and parses formula
// text (without its leading "="), returning the AST or the accumulated
// parse errors.
func ParseFormula(text string) (ast.Expression, []ParseError) {
	l := lexer.New(text)
	p := New(l)
	expr := p.ParseExpression()
	return expr, p.Errors()
}
