package server

import (
	"testing"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/effect"
)

func litFn(name, versionStr string, body ast.Expr) *ast.Function {
	return &ast.Function{
		Name:    name,
		Version: &ast.VersionInfo{Version: versionStr},
		Body:    []ast.Expr{body},
	}
}

// TestEvalPreviewFunctionsSuccessIsSilent covers the happy path of
// SPEC_FULL.md §4.18's preview-evaluation feature: a clean arity-0
// function produces no diagnostics.
func TestEvalPreviewFunctionsSuccessIsSilent(t *testing.T) {
	s := NewLSP(nil, effect.New())
	defer s.worker.Stop()
	mod := &ast.Module{
		Name: "demo",
		Elements: []ast.Element{
			litFn("answer", "1.0.0", &ast.Literal{Kind: ast.LitInt, Text: "42"}),
		},
	}
	diags := s.evalPreviewFunctions(mod)
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics for a successful preview run, got %+v", diags)
	}
}

// TestEvalPreviewFunctionsReportsRuntimeFailure covers the failure path:
// a body calling an undefined function surfaces as a hint diagnostic
// rather than being silently dropped.
func TestEvalPreviewFunctionsReportsRuntimeFailure(t *testing.T) {
	s := NewLSP(nil, effect.New())
	defer s.worker.Stop()
	mod := &ast.Module{
		Name: "demo",
		Elements: []ast.Element{
			litFn("broken", "1.0.0", &ast.Call{Target: &ast.Identifier{Name: "does_not_exist"}}),
		},
	}
	diags := s.evalPreviewFunctions(mod)
	if len(diags) != 1 {
		t.Fatalf("expected one diagnostic for the failing preview run, got %+v", diags)
	}
}

// TestEvalPreviewFunctionsSkipsRoleGatedAndNonNullary confirms functions
// with parameters or required roles are not attempted (no principal is
// available in an editor preview).
func TestEvalPreviewFunctionsSkipsRoleGatedAndNonNullary(t *testing.T) {
	s := NewLSP(nil, effect.New())
	defer s.worker.Stop()
	withArg := litFn("needsArg", "1.0.0", &ast.Identifier{Name: "x"})
	withArg.Inputs = []ast.Param{{Name: "x"}}
	roleGated := litFn("admin", "1.0.0", &ast.Literal{Kind: ast.LitString, Text: "secret"})
	roleGated.RequiredRoles = []string{"admin"}

	mod := &ast.Module{Name: "demo", Elements: []ast.Element{withArg, roleGated}}
	diags := s.evalPreviewFunctions(mod)
	if len(diags) != 0 {
		t.Fatalf("expected no diagnostics when every function is skipped, got %+v", diags)
	}
}
