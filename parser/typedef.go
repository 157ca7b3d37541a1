package parser

import (
	"fmt"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/token"
)

var classificationNames = map[string]ast.Classification{
	"public":       ast.Public,
	"internal":     ast.Internal,
	"confidential": ast.Confidential,
	"restricted":   ast.Restricted,
}

// parseTypeDef parses "(" "typedef" IDENT attr* "(" "body" field* ")" ")".
func (p *Parser) parseTypeDef() (*ast.TypeDef, error) {
	open, _ := p.expect(token.LParen)
	p.expect(token.KwTypeDef)
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}

	td := &ast.TypeDef{Name: nameTok.Value}
	var vi ast.VersionInfo
	haveVersion := false
	bodySeen := false

	for !p.check(token.RParen) {
		if bodySeen {
			return nil, &ParseError{Message: "body must be the last attribute", Span: p.cur().Span}
		}
		if p.check(token.EOF) {
			return nil, &ParseError{Message: "expected ')', got EOF", Span: p.cur().Span}
		}
		if p.check(token.VersionMarker) {
			t := p.advance()
			vi.Version = stripMarker(t.Value)
			haveVersion = true
			continue
		}
		if p.check(token.LParen) && p.peekAt(1).Kind == token.KwBody {
			fields, err := p.parseFieldBody()
			if err != nil {
				return nil, err
			}
			td.Fields = fields
			bodySeen = true
			continue
		}
		if !p.check(token.KeywordMarker) {
			t := p.cur()
			return nil, &ParseError{Message: fmt.Sprintf("expected attribute or body, got %s", t.Kind), Span: t.Span}
		}
		markerTok := p.advance()
		switch stripMarker(markerTok.Value) {
		case "stability":
			st, err := p.parseStability()
			if err != nil {
				return nil, err
			}
			vi.Stability = st
			haveVersion = true
		case "replaces":
			v, err := p.parseVersionValue()
			if err != nil {
				return nil, err
			}
			vi.Replaces = v
			haveVersion = true
		case "rollback_safe":
			t, err := p.expect(token.Boolean)
			if err != nil {
				return nil, err
			}
			vi.RollbackSafe = boolFromToken(t)
			haveVersion = true
		case "deprecated":
			t, err := p.expect(token.Boolean)
			if err != nil {
				return nil, err
			}
			vi.Deprecated = boolFromToken(t)
			haveVersion = true
		default:
			return nil, &ParseError{Message: "unknown typedef attribute :" + stripMarker(markerTok.Value), Span: markerTok.Span}
		}
	}
	close, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	if !bodySeen {
		return nil, &ParseError{Message: "type declaration missing body", Span: close.Span}
	}
	if haveVersion {
		td.Version = &vi
	}
	td.Sp = diag.Join(open.Span, close.Span)
	return td, nil
}

// parseFieldBody parses "(" "body" "(" IDENT type classification? ")" * ")".
func (p *Parser) parseFieldBody() ([]ast.FieldDef, error) {
	p.expect(token.LParen)
	p.expect(token.KwBody)
	var fields []ast.FieldDef
	for !p.check(token.RParen) {
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		nameTok, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		ty, err := p.parseTypeExpr()
		if err != nil {
			return nil, err
		}
		fd := ast.FieldDef{Name: nameTok.Value, Type: ty}
		if p.check(token.KeywordMarker) {
			ct := p.advance()
			cls, ok := classificationNames[stripMarker(ct.Value)]
			if !ok {
				return nil, &ParseError{Message: "unknown classification :" + stripMarker(ct.Value), Span: ct.Span}
			}
			fd.Classification = cls
			fd.HasClass = true
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		fields = append(fields, fd)
	}
	_, err := p.expect(token.RParen)
	return fields, err
}
