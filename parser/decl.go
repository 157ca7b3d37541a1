package parser

import (
	"fmt"
	"strings"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/token"
)

// stripMarker removes the leading ':' a VersionMarker or KeywordMarker
// token carries.
func stripMarker(v string) string {
	return strings.TrimPrefix(v, ":")
}

func boolFromToken(t token.Token) bool {
	return t.Value == "true"
}

// parseFunction parses "(" "fn" IDENT attr* ")" per spec.md §4.2: attribute
// order is free, the loop runs until the closing paren, and the "body"
// attribute must be last.
func (p *Parser) parseFunction() (*ast.Function, error) {
	open, _ := p.expect(token.LParen)
	p.expect(token.KwFn)
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}

	fn := &ast.Function{Name: nameTok.Value}
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
			if err := p.parseFunctionBody(fn); err != nil {
				return nil, err
			}
			bodySeen = true
			continue
		}
		if !p.check(token.KeywordMarker) {
			t := p.cur()
			return nil, &ParseError{Message: fmt.Sprintf("expected attribute or body, got %s", t.Kind), Span: t.Span}
		}
		markerTok := p.advance()
		marker := stripMarker(markerTok.Value)
		if err := p.applyFunctionAttr(fn, &vi, &haveVersion, marker); err != nil {
			return nil, err
		}
	}
	close, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	if !bodySeen {
		return nil, &ParseError{Message: "function declaration missing body", Span: close.Span}
	}
	if haveVersion {
		fn.Version = &vi
	}
	fn.Sp = diag.Join(open.Span, close.Span)
	return fn, nil
}

func (p *Parser) applyFunctionAttr(fn *ast.Function, vi *ast.VersionInfo, haveVersion *bool, marker string) error {
	switch marker {
	case "pure":
		t, err := p.expect(token.Boolean)
		if err != nil {
			return err
		}
		fn.Pure = boolFromToken(t)
	case "idempotent":
		t, err := p.expect(token.Boolean)
		if err != nil {
			return err
		}
		fn.Idempotent = boolFromToken(t)
	case "inputs":
		params, err := p.parseParamList()
		if err != nil {
			return err
		}
		fn.Inputs = params
	case "outputs":
		params, err := p.parseParamList()
		if err != nil {
			return err
		}
		fn.Outputs = params
	case "requires":
		names, err := p.parseIdentList()
		if err != nil {
			return err
		}
		fn.RequiredRoles = names
	case "permissions":
		names, err := p.parseDottedList()
		if err != nil {
			return err
		}
		fn.RequiredPerms = names
	case "effects":
		names, err := p.parseDottedList()
		if err != nil {
			return err
		}
		for _, n := range names {
			parts := strings.SplitN(n, ".", 2)
			ref := ast.EffectRef{Handler: parts[0]}
			if len(parts) > 1 {
				ref.Operation = parts[1]
			}
			fn.Effects = append(fn.Effects, ref)
		}
	case "handles_secrets":
		t, err := p.expect(token.Boolean)
		if err != nil {
			return err
		}
		fn.HandlesSecrets = boolFromToken(t)
	case "audit_required":
		t, err := p.expect(token.Boolean)
		if err != nil {
			return err
		}
		fn.AuditRequired = boolFromToken(t)
	case "stability":
		st, err := p.parseStability()
		if err != nil {
			return err
		}
		vi.Stability = st
		*haveVersion = true
	case "replaces":
		v, err := p.parseVersionValue()
		if err != nil {
			return err
		}
		vi.Replaces = v
		*haveVersion = true
	case "rollback_safe":
		t, err := p.expect(token.Boolean)
		if err != nil {
			return err
		}
		vi.RollbackSafe = boolFromToken(t)
		*haveVersion = true
	case "deprecated":
		t, err := p.expect(token.Boolean)
		if err != nil {
			return err
		}
		vi.Deprecated = boolFromToken(t)
		*haveVersion = true
	default:
		return &ParseError{Message: fmt.Sprintf("unknown function attribute :%s", marker), Span: p.cur().Span}
	}
	return nil
}

func (p *Parser) parseStability() (ast.Stability, error) {
	t, err := p.expect(token.KeywordMarker)
	if err != nil {
		return 0, err
	}
	switch stripMarker(t.Value) {
	case "stable":
		return ast.StabilityStable, nil
	case "beta":
		return ast.StabilityBeta, nil
	case "alpha":
		return ast.StabilityAlpha, nil
	case "deprecated":
		return ast.StabilityDeprecated, nil
	default:
		return 0, &ParseError{Message: "unknown stability " + t.Value, Span: t.Span}
	}
}

func (p *Parser) parseVersionValue() (string, error) {
	t, err := p.expect(token.VersionMarker)
	if err != nil {
		return "", err
	}
	return stripMarker(t.Value), nil
}

// parseFunctionBody parses "(" "body" expr* ")".
func (p *Parser) parseFunctionBody(fn *ast.Function) error {
	p.expect(token.LParen)
	p.expect(token.KwBody)
	for !p.check(token.RParen) {
		e, err := p.parseExpr()
		if err != nil {
			return err
		}
		fn.Body = append(fn.Body, e)
	}
	_, err := p.expect(token.RParen)
	return err
}

// parseParamList parses "[" param* "]" where param := "(" IDENT type ")".
func (p *Parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(token.LBracket); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.check(token.RBracket) {
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
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		params = append(params, ast.Param{Name: nameTok.Value, Type: ty})
	}
	_, err := p.expect(token.RBracket)
	return params, err
}

// parseTypeExpr parses KEYWORD | IDENT | "(" IDENT type* ")".
func (p *Parser) parseTypeExpr() (ast.TypeExpr, error) {
	switch {
	case p.check(token.KeywordMarker):
		t := p.advance()
		return ast.NewTypeExpr(stripMarker(t.Value), nil), nil
	case p.check(token.Identifier):
		t := p.advance()
		return ast.NewTypeExpr(t.Value, nil), nil
	case p.check(token.LParen):
		p.advance()
		nameTok, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		var args []ast.TypeExpr
		for !p.check(token.RParen) {
			arg, err := p.parseTypeExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		return ast.NewTypeExpr(nameTok.Value, args), nil
	default:
		t := p.cur()
		return nil, &ParseError{Message: "expected type expression, got " + t.Kind.String(), Span: t.Span}
	}
}

// parseIdentList parses "[" IDENT* "]".
func (p *Parser) parseIdentList() ([]string, error) {
	if _, err := p.expect(token.LBracket); err != nil {
		return nil, err
	}
	var names []string
	for !p.check(token.RBracket) {
		t, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		names = append(names, t.Value)
	}
	_, err := p.expect(token.RBracket)
	return names, err
}

// parseDottedName parses IDENT ("." IDENT)*.
func (p *Parser) parseDottedName() (string, diag.Span, error) {
	first, err := p.expect(token.Identifier)
	if err != nil {
		return "", diag.Span{}, err
	}
	name := first.Value
	sp := first.Span
	for p.check(token.Dot) {
		p.advance()
		next, err := p.expect(token.Identifier)
		if err != nil {
			return "", diag.Span{}, err
		}
		name += "." + next.Value
		sp = diag.Join(sp, next.Span)
	}
	return name, sp, nil
}

// parseDottedList parses "[" dotted* "]".
func (p *Parser) parseDottedList() ([]string, error) {
	if _, err := p.expect(token.LBracket); err != nil {
		return nil, err
	}
	var names []string
	for !p.check(token.RBracket) {
		name, _, err := p.parseDottedName()
		if err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	_, err := p.expect(token.RBracket)
	return names, err
}
