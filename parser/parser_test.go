package parser

import (
	"testing"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/bytecode"
	"github.com/chazu/wardlang/codegen"
	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/version"
	"github.com/chazu/wardlang/vm"
)

func mustParse(t *testing.T, source string) *ast.Module {
	t.Helper()
	mod, err := Parse(source)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return mod
}

func findFn(t *testing.T, mod *ast.Module, name string) *ast.Function {
	t.Helper()
	for _, el := range mod.Elements {
		if fn, ok := el.(*ast.Function); ok && fn.Name == name {
			return fn
		}
	}
	t.Fatalf("function %q not found", name)
	return nil
}

// TestParseRoundTripCompileExecute is spec.md §8 scenario 1, driven from
// source text through the real parser this time (vm_test.go exercises the
// same scenario against a hand-built AST).
func TestParseRoundTripCompileExecute(t *testing.T) {
	mod := mustParse(t, `(mod test (fn get_answer :v1 :pure true :inputs [] :outputs [(result :int)] (body 42)))`)
	fn := findFn(t, mod, "get_answer")
	if fn.Version == nil || fn.Version.Version != "v1" {
		t.Fatalf("expected version marker %q, got %+v", "v1", fn.Version)
	}
	if !fn.Pure {
		t.Errorf("expected :pure true to parse")
	}

	bc := bytecode.NewModule("test", "")
	rec, err := codegen.CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	bc.AddFunction(rec)

	m := vm.New(bc, effect.New())
	result, err := m.Execute("get_answer:v1", nil, effect.Principal{ID: "u"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Tag != value.Int || result.IntVal != 42 {
		t.Fatalf("got %v", result)
	}
}

// Scenario 2: argument arithmetic, parsed from source.
func TestParseArgumentArithmetic(t *testing.T) {
	mod := mustParse(t, `(fn add :v1 :pure true :inputs [(a :int) (b :int)] :outputs [(r :int)] (body (+ a b)))`)
	fn := findFn(t, mod, "add")

	bc := bytecode.NewModule("test", "")
	rec, err := codegen.CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	bc.AddFunction(rec)

	m := vm.New(bc, effect.New())
	result, err := m.Execute("add:v1", []value.Value{value.NewIntFromInt64(10), value.NewIntFromInt64(32)}, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Tag != value.Int || result.IntVal != 42 {
		t.Fatalf("got %v", result)
	}
}

// Scenario 3: branch selection via `if`.
func TestParseBranchSelection(t *testing.T) {
	mod := mustParse(t, `(fn check :v1 :inputs [(x :int)] :outputs [(s :string)] (body (if (> x 10) "big" "small")))`)
	fn := findFn(t, mod, "check")

	bc := bytecode.NewModule("test", "")
	rec, err := codegen.CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	bc.AddFunction(rec)
	m := vm.New(bc, effect.New())

	big, err := m.Execute("check:v1", []value.Value{value.NewIntFromInt64(15)}, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if big.Tag != value.String || big.StringVal != "big" {
		t.Errorf("x=15: got %v", big)
	}

	small, err := m.Execute("check:v1", []value.Value{value.NewIntFromInt64(5)}, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if small.Tag != value.String || small.StringVal != "small" {
		t.Errorf("x=5: got %v", small)
	}
}

// Scenario 4: role denial at the VM security gate.
func TestParseRoleDenial(t *testing.T) {
	mod := mustParse(t, `(fn admin_only :v1 :requires [admin] :inputs [] :outputs [(s :string)] (body "success"))`)
	fn := findFn(t, mod, "admin_only")
	if len(fn.RequiredRoles) != 1 || fn.RequiredRoles[0] != "admin" {
		t.Fatalf("got required roles %v", fn.RequiredRoles)
	}

	bc := bytecode.NewModule("test", "")
	rec, err := codegen.CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	bc.AddFunction(rec)
	m := vm.New(bc, effect.New())

	if _, err := m.Execute("admin_only:v1", nil, effect.Principal{Roles: []string{"viewer"}}); err == nil {
		t.Fatalf("expected permission denial for viewer")
	} else if _, ok := err.(*vm.SecurityError); !ok {
		t.Errorf("expected *vm.SecurityError, got %T: %v", err, err)
	}

	result, err := m.Execute("admin_only:v1", nil, effect.Principal{Roles: []string{"admin"}})
	if err != nil {
		t.Fatalf("admin should be allowed: %v", err)
	}
	if result.Tag != value.String || result.StringVal != "success" {
		t.Errorf("got %v", result)
	}
}

func TestParseDuplicateAttributeLastWins(t *testing.T) {
	mod := mustParse(t, `(fn f :v1 :pure true :pure false (body 1))`)
	fn := findFn(t, mod, "f")
	if fn.Pure {
		t.Errorf("expected last-wins: :pure false should override :pure true")
	}
}

func TestParseFunctionMissingBodyIsError(t *testing.T) {
	if _, err := Parse(`(fn f :v1 :pure true)`); err == nil {
		t.Fatalf("expected a hard error for a function without a body")
	}
}

func TestParseQualifiedCallTarget(t *testing.T) {
	mod := mustParse(t, `(fn f :v1 (body (db.read id)))`)
	fn := findFn(t, mod, "f")
	call, ok := fn.Body[0].(*ast.Call)
	if !ok {
		t.Fatalf("expected a Call, got %T", fn.Body[0])
	}
	q, ok := call.Target.(*ast.QualifiedName)
	if !ok {
		t.Fatalf("expected a QualifiedName target, got %T", call.Target)
	}
	if q.Joined() != "db.read" {
		t.Errorf("got %q", q.Joined())
	}
}
