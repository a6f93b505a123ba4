// Package parser turns one equation's token stream into an Expr0 AST
// (spec.md §4.1). Every model variable's equation, initial equation, and
// graphical-function input parse independently: there is no notion of a
// multi-equation program, so the grammar is a single Pratt expression
// parser with no statement or declaration forms.
package parser

import (
	"strconv"

	"github.com/simlin-go/core/internal/ast"
	"github.com/simlin-go/core/internal/errors"
	"github.com/simlin-go/core/internal/ident"
	"github.com/simlin-go/core/internal/lexer"
)

// Precedence levels, lowest to highest.
const (
	LOWEST int = iota
	OR
	AND
	NOT
	COMPARE
	ADD
	MUL
	UNARY
	EXPONENT
	CALL
)

var precedences = map[lexer.TokenType]int{
	lexer.OR:         OR,
	lexer.AND:        AND,
	lexer.EQ:         COMPARE,
	lexer.NEQ:        COMPARE,
	lexer.LT:         COMPARE,
	lexer.LTE:        COMPARE,
	lexer.GT:         COMPARE,
	lexer.GTE:        COMPARE,
	lexer.PLUS:       ADD,
	lexer.MINUS:      ADD,
	lexer.STAR:       MUL,
	lexer.SLASH:      MUL,
	lexer.CARET:      EXPONENT,
	lexer.LPAREN:     CALL,
	lexer.LBRACKET:   CALL,
	lexer.INTERPUNCT: CALL,
}

type (
	prefixParseFn func() ast.Expr0
	infixParseFn  func(ast.Expr0) ast.Expr0
)

// Parser parses a single equation's tokens into an Expr0.
type Parser struct {
	l         *lexer.Lexer
	curToken  lexer.Token
	peekToken lexer.Token
	errs      []*errors.Report

	prefixParseFns map[lexer.TokenType]prefixParseFn
	infixParseFns  map[lexer.TokenType]infixParseFn
}

// New returns a Parser reading tokens from l.
func New(l *lexer.Lexer) *Parser {
	p := &Parser{l: l}

	p.prefixParseFns = map[lexer.TokenType]prefixParseFn{
		lexer.NUMBER: p.parseNumber,
		lexer.IDENT:  p.parseIdentOrTime,
		lexer.MINUS:  p.parseUnary,
		lexer.PLUS:   p.parseUnary,
		lexer.NOT:    p.parseNot,
		lexer.IF:     p.parseIf,
		lexer.LPAREN: p.parseGrouped,
	}

	p.infixParseFns = map[lexer.TokenType]infixParseFn{
		lexer.OR:         p.parseBinary,
		lexer.AND:        p.parseBinary,
		lexer.EQ:         p.parseBinary,
		lexer.NEQ:        p.parseBinary,
		lexer.LT:         p.parseBinary,
		lexer.LTE:        p.parseBinary,
		lexer.GT:         p.parseBinary,
		lexer.GTE:        p.parseBinary,
		lexer.PLUS:       p.parseBinary,
		lexer.MINUS:      p.parseBinary,
		lexer.STAR:       p.parseBinary,
		lexer.SLASH:      p.parseBinary,
		lexer.CARET:      p.parseExponent,
		lexer.LPAREN:     p.parseCall,
		lexer.LBRACKET:   p.parseSubscript,
		lexer.INTERPUNCT: p.parseModuleRef,
	}

	p.nextToken()
	p.nextToken()
	return p
}

// ParseEquation parses src (already lexer.Normalize'd) as a complete
// equation. An empty or whitespace-only equation is PAR008.
func ParseEquation(src string) (ast.Expr0, []*errors.Report) {
	if isBlank(src) {
		return nil, []*errors.Report{errors.New(errors.PAR008, nil, "empty equation")}
	}
	p := New(lexer.New(src))
	expr := p.parseExpression(LOWEST)
	if len(p.errs) > 0 {
		return expr, p.errs
	}
	if p.peekToken.Type != lexer.EOF {
		p.errorAt(errors.PAR003, "extra input after expression")
		return expr, p.errs
	}
	if expr == nil {
		p.errorAt(errors.PAR002, "unexpected end of equation")
	}
	return expr, p.errs
}

func isBlank(s string) bool {
	for _, r := range s {
		if r != ' ' && r != '\t' && r != '\n' && r != '\r' {
			return false
		}
	}
	return true
}

// Errors returns every report accumulated while parsing.
func (p *Parser) Errors() []*errors.Report { return p.errs }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) span() ast.Span {
	start := ast.Pos{Offset: p.curToken.Offset, Line: p.curToken.Line, Column: p.curToken.Column}
	return ast.Span{Start: start, End: start}
}

func (p *Parser) errorAt(code, msg string) {
	sp := p.span()
	p.errs = append(p.errs, errors.New(code, &sp, msg))
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

func (p *Parser) parseExpression(precedence int) ast.Expr0 {
	prefix, ok := p.prefixParseFns[p.curToken.Type]
	if !ok {
		if p.curToken.Type == lexer.ILLEGAL {
			p.errorAt(errors.PAR001, "invalid token")
		} else {
			p.errorAt(errors.PAR002, "expected an expression")
		}
		return nil
	}
	left := prefix()

	for p.peekToken.Type != lexer.EOF && precedence < p.peekPrecedence() {
		infix, ok := p.infixParseFns[p.peekToken.Type]
		if !ok {
			return left
		}
		p.nextToken()
		left = infix(left)
	}
	return left
}

func (p *Parser) parseNumber() ast.Expr0 {
	sp := p.span()
	v, err := strconv.ParseFloat(p.curToken.Literal, 64)
	if err != nil {
		p.errorAt(errors.PAR007, "expected a number")
		return nil
	}
	return ast.NewNumberLit0(sp, v)
}

func (p *Parser) parseIdentOrTime() ast.Expr0 {
	sp := p.span()
	name := ident.New(p.curToken.Literal)
	if name.Canonical == "time" && !p.curToken.Quoted {
		return ast.NewTime0(sp)
	}
	return ast.NewVar0(sp, name)
}

func (p *Parser) parseUnary() ast.Expr0 {
	sp := p.span()
	op := p.curToken.Literal
	p.nextToken()
	x := p.parseExpression(UNARY)
	return ast.NewUnary0(sp, op, x)
}

func (p *Parser) parseNot() ast.Expr0 {
	sp := p.span()
	p.nextToken()
	x := p.parseExpression(NOT)
	return ast.NewUnary0(sp, "not", x)
}

func (p *Parser) parseBinary(left ast.Expr0) ast.Expr0 {
	sp := p.span()
	op := p.curToken.Literal
	precedence := p.curPrecedence()
	p.nextToken()
	right := p.parseExpression(precedence)
	return ast.NewBinary0(sp, op, left, right)
}

// parseExponent is right-associative: a^b^c == a^(b^c).
func (p *Parser) parseExponent(left ast.Expr0) ast.Expr0 {
	sp := p.span()
	p.nextToken()
	right := p.parseExpression(EXPONENT - 1)
	return ast.NewBinary0(sp, "^", left, right)
}

func (p *Parser) parseIf() ast.Expr0 {
	sp := p.span()
	p.nextToken()
	cond := p.parseExpression(LOWEST)
	if p.peekToken.Type != lexer.THEN {
		p.errorAt(errors.PAR002, "expected THEN")
		return nil
	}
	p.nextToken() // consume THEN
	p.nextToken()
	then := p.parseExpression(LOWEST)
	if p.peekToken.Type != lexer.ELSE {
		p.errorAt(errors.PAR002, "expected ELSE")
		return nil
	}
	p.nextToken() // consume ELSE
	p.nextToken()
	els := p.parseExpression(LOWEST)
	return ast.NewIf0(sp, cond, then, els)
}

func (p *Parser) parseGrouped() ast.Expr0 {
	p.nextToken()
	expr := p.parseExpression(LOWEST)
	if p.peekToken.Type != lexer.RPAREN {
		p.errorAt(errors.PAR002, "expected )")
		return expr
	}
	p.nextToken()
	return expr
}

// parseCall handles both builtin calls, ABS(x), and a bare-parenthesized
// grouping is handled by parseGrouped; this fn only fires as an infix on an
// already-parsed identifier, i.e. fn(...).
func (p *Parser) parseCall(fn ast.Expr0) ast.Expr0 {
	sp := fn.Span()
	v, ok := fn.(*ast.Var0)
	if !ok {
		p.errorAt(errors.PAR001, "only a bare identifier can be called")
		return fn
	}
	args := p.parseArgList()
	return ast.NewCall0(sp, v.Name.Canonical, args)
}

func (p *Parser) parseArgList() []ast.Expr0 {
	var args []ast.Expr0
	if p.peekToken.Type == lexer.RPAREN {
		p.nextToken()
		return args
	}
	p.nextToken()
	args = append(args, p.parseExpression(LOWEST))
	for p.peekToken.Type == lexer.COMMA {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression(LOWEST))
	}
	if p.peekToken.Type != lexer.RPAREN {
		p.errorAt(errors.PAR002, "expected )")
		return args
	}
	p.nextToken()
	return args
}

// parseSubscript handles array[element, *] indexing, spec.md §4.3.
func (p *Parser) parseSubscript(base ast.Expr0) ast.Expr0 {
	sp := base.Span()
	var indices []ast.DimIndex0
	p.nextToken() // move past '['
	for {
		if p.curToken.Type == lexer.STAR {
			indices = append(indices, ast.DimIndex0{Wildcard: true})
		} else if p.curToken.Type == lexer.IDENT {
			indices = append(indices, ast.DimIndex0{Name: ident.New(p.curToken.Literal)})
		} else {
			p.errorAt(errors.PAR001, "expected subscript element or *")
			return base
		}
		if p.peekToken.Type == lexer.COMMA {
			p.nextToken()
			p.nextToken()
			continue
		}
		break
	}
	if p.peekToken.Type != lexer.RBRACKET {
		p.errorAt(errors.PAR002, "expected ]")
		return base
	}
	p.nextToken()
	return ast.NewSubscript0(sp, base, indices)
}

// parseModuleRef handles the module·port syntax for referencing another
// model instance's output directly (spec.md §4.1, §4.2).
func (p *Parser) parseModuleRef(instance ast.Expr0) ast.Expr0 {
	sp := instance.Span()
	v, ok := instance.(*ast.Var0)
	if !ok {
		p.errorAt(errors.PAR001, "module reference must start with an identifier")
		return instance
	}
	if p.peekToken.Type != lexer.IDENT {
		p.errorAt(errors.PAR002, "expected a port name")
		return instance
	}
	p.nextToken()
	port := ident.New(p.curToken.Literal)
	return ast.NewModuleRef0(sp, v.Name, port)
}
