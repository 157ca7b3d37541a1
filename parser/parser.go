// Package parser implements the ward recursive-descent parser (spec.md
// §4.2): tokens -> a Module AST.
//
// Concrete surface grammar (spec.md leaves exact syntax to the
// implementation beyond the §8 illustrations; this is ward's):
//
//	module      := "(" "mod" IDENT element* ")" | element*
//	function    := "(" "fn" IDENT attr* ")"
//	attr        := version-marker | keyword-attr
//	keyword-attr:= ":pure" BOOL | ":idempotent" BOOL
//	             | ":inputs" "[" param* "]" | ":outputs" "[" param* "]"
//	             | ":requires" "[" IDENT* "]" | ":permissions" "[" dotted* "]"
//	             | ":effects" "[" dotted* "]"
//	             | ":handles_secrets" BOOL | ":audit_required" BOOL
//	             | ":stability" KEYWORD | ":replaces" VERSION
//	             | ":rollback_safe" BOOL | ":deprecated" BOOL
//	             | "(" "body" expr* ")"   -- terminal, must be last
//	param       := "(" IDENT type ")"
//	type        := KEYWORD | IDENT | "(" IDENT type* ")"   -- generic form
package parser

import (
	"fmt"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/token"
)

// ParseError is thrown (returned, in Go terms) by the parser per spec.md
// §7: "Parse errors: thrown from the parser with message + token span."
type ParseError struct {
	Message string
	Span    diag.Span
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at %s", e.Message, e.Span.String())
}

// Parser consumes a token slice and produces a Module.
type Parser struct {
	tokens []token.Token
	pos    int
}

// New constructs a Parser over a token slice (as produced by
// token.TokenizeRaw).
func New(tokens []token.Token) *Parser {
	return &Parser{tokens: tokens}
}

// Parse tokenizes source and parses a single Module, surfacing lexer
// INVALID tokens as parse errors (spec.md §4.1's "full pipeline should
// surface them as diagnostics").
func Parse(source string) (*ast.Module, error) {
	toks := token.TokenizeRaw(source)
	for _, t := range toks {
		if t.Kind == token.Invalid {
			return nil, &ParseError{Message: fmt.Sprintf("unrecognized character %q", t.Value), Span: t.Span}
		}
	}
	return New(toks).ParseModule()
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	if p.pos+n >= len(p.tokens) {
		return token.Token{Kind: token.EOF}
	}
	return p.tokens[p.pos+n]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *Parser) expect(k token.Kind) (token.Token, error) {
	t := p.cur()
	if t.Kind != k {
		return t, &ParseError{
			Message: fmt.Sprintf("expected %s, got %s", k, t.Kind),
			Span:    t.Span,
		}
	}
	return p.advance(), nil
}

func (p *Parser) check(k token.Kind) bool {
	return p.cur().Kind == k
}

// ParseModule parses "(" "mod" IDENT element* ")", or a bare sequence of
// elements (e.g. a single "(fn ...)") as an unnamed module.
func (p *Parser) ParseModule() (*ast.Module, error) {
	if p.check(token.LParen) && p.peekAt(1).Kind != token.KwMod {
		m := &ast.Module{}
		for !p.check(token.EOF) {
			el, err := p.parseElement()
			if err != nil {
				return nil, err
			}
			m.Elements = append(m.Elements, el)
		}
		m.Sp = diag.Join(m.Elements[0].Span(), m.Elements[len(m.Elements)-1].Span())
		return m, nil
	}
	open, err := p.expect(token.LParen)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwMod); err != nil {
		return nil, err
	}
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}

	m := &ast.Module{Name: nameTok.Value}
	for !p.check(token.RParen) && !p.check(token.EOF) {
		el, err := p.parseElement()
		if err != nil {
			return nil, err
		}
		m.Elements = append(m.Elements, el)
	}
	closeTok, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	m.Sp = diag.Join(open.Span, closeTok.Span)
	return m, nil
}

func (p *Parser) parseElement() (ast.Element, error) {
	if !p.check(token.LParen) {
		t := p.cur()
		return nil, &ParseError{Message: fmt.Sprintf("expected element, got %s", t.Kind), Span: t.Span}
	}
	switch p.peekAt(1).Kind {
	case token.KwFn:
		return p.parseFunction()
	case token.KwTypeDef:
		return p.parseTypeDef()
	case token.KwRole:
		return p.parseRole()
	case token.KwPermission:
		return p.parsePermission()
	case token.KwPolicy:
		return p.parsePolicy()
	default:
		t := p.peekAt(1)
		return nil, &ParseError{Message: fmt.Sprintf("expected element keyword, got %s", t.Kind), Span: t.Span}
	}
}
