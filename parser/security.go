package parser

import (
	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/token"
)

// parseRole parses "(" "role" IDENT attr* ")".
func (p *Parser) parseRole() (*ast.Role, error) {
	open, _ := p.expect(token.LParen)
	p.expect(token.KwRole)
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	r := &ast.Role{Name: nameTok.Value}
	for !p.check(token.RParen) {
		if p.check(token.EOF) {
			return nil, &ParseError{Message: "expected ')', got EOF", Span: p.cur().Span}
		}
		markerTok, err := p.expect(token.KeywordMarker)
		if err != nil {
			return nil, err
		}
		switch stripMarker(markerTok.Value) {
		case "permissions":
			names, err := p.parseDottedList()
			if err != nil {
				return nil, err
			}
			r.Permissions = names
		case "parents":
			names, err := p.parseIdentList()
			if err != nil {
				return nil, err
			}
			r.Parents = names
		default:
			return nil, &ParseError{Message: "unknown role attribute :" + stripMarker(markerTok.Value), Span: markerTok.Span}
		}
	}
	close, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	r.Sp = diag.Join(open.Span, close.Span)
	return r, nil
}

// parsePermission parses "(" "permission" dotted attr* ")".
func (p *Parser) parsePermission() (*ast.Permission, error) {
	open, _ := p.expect(token.LParen)
	p.expect(token.KwPermission)
	name, _, err := p.parseDottedName()
	if err != nil {
		return nil, err
	}
	perm := &ast.Permission{Name: name}
	for !p.check(token.RParen) {
		if p.check(token.EOF) {
			return nil, &ParseError{Message: "expected ')', got EOF", Span: p.cur().Span}
		}
		markerTok, err := p.expect(token.KeywordMarker)
		if err != nil {
			return nil, err
		}
		switch stripMarker(markerTok.Value) {
		case "doc":
			t, err := p.expect(token.String)
			if err != nil {
				return nil, err
			}
			perm.Doc = token.Unquote(t.Value)
		case "scope":
			scopes, err := p.parseScopeList()
			if err != nil {
				return nil, err
			}
			perm.Scopes = scopes
		case "classification":
			ct, err := p.expect(token.KeywordMarker)
			if err != nil {
				return nil, err
			}
			cls, ok := classificationNames[stripMarker(ct.Value)]
			if !ok {
				return nil, &ParseError{Message: "unknown classification :" + stripMarker(ct.Value), Span: ct.Span}
			}
			perm.Classification = cls
			perm.HasClass = true
		case "audit_required":
			t, err := p.expect(token.Boolean)
			if err != nil {
				return nil, err
			}
			perm.AuditRequired = boolFromToken(t)
		default:
			return nil, &ParseError{Message: "unknown permission attribute :" + stripMarker(markerTok.Value), Span: markerTok.Span}
		}
	}
	close, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	perm.Sp = diag.Join(open.Span, close.Span)
	return perm, nil
}

// parseScopeList parses "[" "(" ":resource" IDENT ")" * "]" where the
// keyword marker is either :resource or :action.
func (p *Parser) parseScopeList() ([]ast.Scope, error) {
	if _, err := p.expect(token.LBracket); err != nil {
		return nil, err
	}
	var scopes []ast.Scope
	for !p.check(token.RBracket) {
		if _, err := p.expect(token.LParen); err != nil {
			return nil, err
		}
		kindTok, err := p.expect(token.KeywordMarker)
		if err != nil {
			return nil, err
		}
		valTok, err := p.expect(token.Identifier)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RParen); err != nil {
			return nil, err
		}
		scopes = append(scopes, ast.Scope{Kind: stripMarker(kindTok.Value), Value: valTok.Value})
	}
	_, err := p.expect(token.RBracket)
	return scopes, err
}

// parsePolicy parses "(" "policy" IDENT "(" "body" rule* ")" ")".
func (p *Parser) parsePolicy() (*ast.Policy, error) {
	open, _ := p.expect(token.LParen)
	p.expect(token.KwPolicy)
	nameTok, err := p.expect(token.Identifier)
	if err != nil {
		return nil, err
	}
	policy := &ast.Policy{Name: nameTok.Value}
	if _, err := p.expect(token.LParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KwBody); err != nil {
		return nil, err
	}
	for !p.check(token.RParen) {
		rule, err := p.parseRule()
		if err != nil {
			return nil, err
		}
		policy.Rules = append(policy.Rules, rule)
	}
	if _, err := p.expect(token.RParen); err != nil {
		return nil, err
	}
	close, err := p.expect(token.RParen)
	if err != nil {
		return nil, err
	}
	policy.Sp = diag.Join(open.Span, close.Span)
	return policy, nil
}

// parseRule parses one "(" "rule" attr* ")" entry.
func (p *Parser) parseRule() (ast.Rule, error) {
	var rule ast.Rule
	if _, err := p.expect(token.LParen); err != nil {
		return rule, err
	}
	if _, err := p.expectIdentValue("rule"); err != nil {
		return rule, err
	}
	for !p.check(token.RParen) {
		if p.check(token.EOF) {
			return rule, &ParseError{Message: "expected ')', got EOF", Span: p.cur().Span}
		}
		markerTok, err := p.expect(token.KeywordMarker)
		if err != nil {
			return rule, err
		}
		switch stripMarker(markerTok.Value) {
		case "effect":
			et, err := p.expect(token.KeywordMarker)
			if err != nil {
				return rule, err
			}
			switch stripMarker(et.Value) {
			case "allow":
				rule.Effect = ast.Allow
			case "deny":
				rule.Effect = ast.Deny
			default:
				return rule, &ParseError{Message: "unknown rule effect :" + stripMarker(et.Value), Span: et.Span}
			}
		case "roles":
			names, err := p.parseIdentList()
			if err != nil {
				return rule, err
			}
			rule.Roles = names
		case "permissions":
			names, err := p.parseDottedList()
			if err != nil {
				return rule, err
			}
			rule.Permissions = names
		case "version_constraint":
			kind, specific, rangeExpr, err := p.parseRuleVersionConstraint()
			if err != nil {
				return rule, err
			}
			rule.ConstraintKind = kind
			rule.SpecificVersion = specific
			rule.RangeExpr = rangeExpr
		case "reason":
			t, err := p.expect(token.String)
			if err != nil {
				return rule, err
			}
			rule.Reason = token.Unquote(t.Value)
		default:
			return rule, &ParseError{Message: "unknown rule attribute :" + stripMarker(markerTok.Value), Span: markerTok.Span}
		}
	}
	_, err := p.expect(token.RParen)
	return rule, err
}

func (p *Parser) expectIdentValue(want string) (token.Token, error) {
	t, err := p.expect(token.Identifier)
	if err != nil {
		return t, err
	}
	if t.Value != want {
		return t, &ParseError{Message: "expected '" + want + "', got '" + t.Value + "'", Span: t.Span}
	}
	return t, nil
}

func (p *Parser) parseRuleVersionConstraint() (ast.VersionConstraintKind, []string, string, error) {
	switch {
	case p.check(token.KeywordMarker):
		t := p.advance()
		switch stripMarker(t.Value) {
		case "all_versions":
			return ast.VCAllVersions, nil, "", nil
		case "stable_only":
			return ast.VCStableOnly, nil, "", nil
		default:
			return 0, nil, "", &ParseError{Message: "unknown version_constraint :" + stripMarker(t.Value), Span: t.Span}
		}
	case p.check(token.LParen):
		p.advance()
		kindTok, err := p.expect(token.Identifier)
		if err != nil {
			return 0, nil, "", err
		}
		switch kindTok.Value {
		case "specific":
			if _, err := p.expect(token.LBracket); err != nil {
				return 0, nil, "", err
			}
			var versions []string
			for !p.check(token.RBracket) {
				vt, err := p.expect(token.VersionMarker)
				if err != nil {
					return 0, nil, "", err
				}
				versions = append(versions, stripMarker(vt.Value))
			}
			if _, err := p.expect(token.RBracket); err != nil {
				return 0, nil, "", err
			}
			if _, err := p.expect(token.RParen); err != nil {
				return 0, nil, "", err
			}
			return ast.VCSpecific, versions, "", nil
		case "range":
			st, err := p.expect(token.String)
			if err != nil {
				return 0, nil, "", err
			}
			if _, err := p.expect(token.RParen); err != nil {
				return 0, nil, "", err
			}
			return ast.VCRange, nil, token.Unquote(st.Value), nil
		default:
			return 0, nil, "", &ParseError{Message: "unknown version_constraint form " + kindTok.Value, Span: kindTok.Span}
		}
	default:
		t := p.cur()
		return 0, nil, "", &ParseError{Message: "expected version_constraint value, got " + t.Kind.String(), Span: t.Span}
	}
}
