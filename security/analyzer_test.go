package security

import (
	"testing"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/diag"
)

func hasCode(ds []diag.Diagnostic, code string) bool {
	for _, d := range ds {
		if d.Code == code {
			return true
		}
	}
	return false
}

func TestAnalyzeMissingParentRole(t *testing.T) {
	c := NewContext()
	c.Roles["editor"] = &ast.Role{Name: "editor", Parents: []string{"ghost"}}
	b := diag.NewBuilder()
	Analyze(c, b)
	if !hasCode(b.Diagnostics(), "SEC001") {
		t.Error("expected SEC001 for undeclared parent role")
	}
}

func TestAnalyzeInheritanceCycle(t *testing.T) {
	c := NewContext()
	c.Roles["a"] = &ast.Role{Name: "a", Parents: []string{"b"}}
	c.Roles["b"] = &ast.Role{Name: "b", Parents: []string{"a"}}
	b := diag.NewBuilder()
	Analyze(c, b)
	if !hasCode(b.Diagnostics(), "SEC002") {
		t.Error("expected SEC002 for role inheritance cycle")
	}
}

func TestAnalyzeSecretsWithoutAudit(t *testing.T) {
	c := NewContext()
	c.Functions["login"] = &ast.Function{Name: "login", HandlesSecrets: true, AuditRequired: false}
	b := diag.NewBuilder()
	Analyze(c, b)
	if !hasCode(b.Diagnostics(), "SEC008") {
		t.Error("expected SEC008 for handles_secrets without audit_required")
	}
}

func TestAnalyzeClassifiedFieldExposure(t *testing.T) {
	c := NewContext()
	c.Types["User"] = &ast.TypeDef{Name: "User", Fields: []ast.FieldDef{
		{Name: "ssn", Type: &ast.PrimitiveType{Name: "string"}, Classification: ast.Restricted, HasClass: true},
	}}
	c.Functions["getUser"] = &ast.Function{
		Name:    "getUser",
		Outputs: []ast.Param{{Name: "user", Type: &ast.NamedType{Name: "User"}}},
	}
	b := diag.NewBuilder()
	Analyze(c, b)
	if !hasCode(b.Diagnostics(), "SEC009") {
		t.Error("expected SEC009 for classified type exposed without audit_required")
	}
}

func TestAnalyzeClean(t *testing.T) {
	c := NewContext()
	c.Roles["admin"] = &ast.Role{Name: "admin", Permissions: []string{"x.y"}}
	c.Permissions["x.y"] = &ast.Permission{Name: "x.y"}
	c.Functions["f"] = &ast.Function{Name: "f", RequiredRoles: []string{"admin"}, RequiredPerms: []string{"x.y"}}
	b := diag.NewBuilder()
	Analyze(c, b)
	if b.HasErrors() {
		t.Errorf("expected no errors, got %v", b.Diagnostics())
	}
}
