package vm

import (
	"testing"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/bytecode"
	"github.com/chazu/wardlang/codegen"
	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/version"
)

func lit(kind ast.LiteralKind, text string) *ast.Literal {
	return &ast.Literal{Kind: kind, Text: text}
}

func compileInto(t *testing.T, mod *bytecode.Module, fn *ast.Function, v version.Version) {
	t.Helper()
	rec, err := codegen.CompileFunction(fn, v)
	if err != nil {
		t.Fatalf("compile %s: %v", fn.Name, err)
	}
	mod.AddFunction(rec)
}

// TestRoundTripCompileExecuteConstant is spec.md §8 scenario 1:
// compiling and executing a zero-argument function returns its literal.
func TestRoundTripCompileExecuteConstant(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name: "get_answer",
		Body: []ast.Expr{lit(ast.LitInt, "42")},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())
	result, err := m.Execute("get_answer:v1", nil, effect.Principal{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Tag != value.Int || result.IntVal != 42 {
		t.Fatalf("expected int(42), got %v", result)
	}
}

// Scenario 2: argument arithmetic.
func TestArgumentArithmetic(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name:   "add",
		Inputs: []ast.Param{{Name: "a"}, {Name: "b"}},
		Body: []ast.Expr{
			&ast.BinaryOp{Op: ast.OpAdd, Left: &ast.Identifier{Name: "a"}, Right: &ast.Identifier{Name: "b"}},
		},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())
	result, err := m.Execute("add:v1", []value.Value{value.NewIntFromInt64(10), value.NewIntFromInt64(32)}, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Tag != value.Int || result.IntVal != 42 {
		t.Fatalf("expected int(42), got %v", result)
	}
}

// Scenario 3: branch selection.
func TestBranchSelection(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name:   "check",
		Inputs: []ast.Param{{Name: "x"}},
		Body: []ast.Expr{
			&ast.If{
				Cond: &ast.BinaryOp{Op: ast.OpGt, Left: &ast.Identifier{Name: "x"}, Right: lit(ast.LitInt, "10")},
				Then: lit(ast.LitString, "big"),
				Else: lit(ast.LitString, "small"),
			},
		},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())

	big, err := m.Execute("check:v1", []value.Value{value.NewIntFromInt64(20)}, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if big.StringVal != "big" {
		t.Fatalf("expected \"big\", got %v", big)
	}

	small, err := m.Execute("check:v1", []value.Value{value.NewIntFromInt64(5)}, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if small.StringVal != "small" {
		t.Fatalf("expected \"small\", got %v", small)
	}
}

// Scenario 4: role denial at the security gate.
func TestRoleDenial(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name:          "admin_only",
		RequiredRoles: []string{"admin"},
		Body:          []ast.Expr{lit(ast.LitString, "secret")},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())

	_, err := m.Execute("admin_only:v1", nil, effect.Principal{ID: "u1", Roles: []string{"viewer"}})
	if err == nil {
		t.Fatal("expected permission denial for viewer")
	}
	if _, ok := err.(*SecurityError); !ok {
		t.Fatalf("expected *SecurityError, got %T: %v", err, err)
	}

	result, err := m.Execute("admin_only:v1", nil, effect.Principal{ID: "u2", Roles: []string{"admin"}})
	if err != nil {
		t.Fatalf("expected admin to pass the gate: %v", err)
	}
	if result.StringVal != "secret" {
		t.Fatalf("expected \"secret\", got %v", result)
	}
}

// TestNoDeclaredRolesAllowsAnyPrincipal is the universal property:
// a function with no RequiredRoles passes any principal.
func TestNoDeclaredRolesAllowsAnyPrincipal(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name: "open",
		Body: []ast.Expr{lit(ast.LitBool, "true")},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())
	if _, err := m.Execute("open:v1", nil, effect.Principal{}); err != nil {
		t.Fatalf("expected no-role function to allow any principal: %v", err)
	}
}

// TestCallDispatchesToLatestWhenUnversioned covers CALL without a
// pinned version resolving to the highest registered semver (spec.md
// §4.14/§9).
func TestCallDispatchesToLatestWhenUnversioned(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name: "greet",
		Body: []ast.Expr{lit(ast.LitString, "v1")},
	}, version.Version{Major: 1})
	compileInto(t, mod, &ast.Function{
		Name: "greet",
		Body: []ast.Expr{lit(ast.LitString, "v2")},
	}, version.Version{Major: 2})
	compileInto(t, mod, &ast.Function{
		Name:   "caller",
		Inputs: nil,
		Body: []ast.Expr{
			&ast.Call{Target: &ast.Identifier{Name: "greet"}, Args: nil},
		},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())
	result, err := m.Execute("caller:v1", nil, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if result.StringVal != "v2" {
		t.Fatalf("expected CALL to resolve to the latest version (v2), got %v", result)
	}
}

// TestCallDispatchesToPinnedVersion covers a version-pinned CALL target
// (e.g. ward source `(greet:v1)`) reaching the exact pinned version
// rather than the latest, even when a later version is registered
// (codegen/codegen.go's compileCall single-part+version branch).
func TestCallDispatchesToPinnedVersion(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name: "greet",
		Body: []ast.Expr{lit(ast.LitString, "v1")},
	}, version.Version{Major: 1})
	compileInto(t, mod, &ast.Function{
		Name: "greet",
		Body: []ast.Expr{lit(ast.LitString, "v2")},
	}, version.Version{Major: 2})
	compileInto(t, mod, &ast.Function{
		Name: "caller",
		Body: []ast.Expr{
			&ast.Call{Target: &ast.QualifiedName{Parts: []string{"greet"}, Version: "v1"}, Args: nil},
		},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())
	result, err := m.Execute("caller:v1", nil, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if result.StringVal != "v1" {
		t.Fatalf("expected pinned CALL to resolve to v1 despite v2 being latest, got %v", result)
	}
}

// TestDivisionByZeroYieldsErrValue confirms DIV by zero pushes an
// err(string) value instead of raising (spec.md §4.13).
func TestDivisionByZeroYieldsErrValue(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name:   "divide",
		Inputs: []ast.Param{{Name: "a"}, {Name: "b"}},
		Body: []ast.Expr{
			&ast.BinaryOp{Op: ast.OpDiv, Left: &ast.Identifier{Name: "a"}, Right: &ast.Identifier{Name: "b"}},
		},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())
	result, err := m.Execute("divide:v1", []value.Value{value.NewIntFromInt64(10), value.NewIntFromInt64(0)}, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if result.Tag != value.Result || result.IsOk || result.Payload.StringVal != "Division by zero" {
		t.Fatalf("expected err(\"Division by zero\"), got %v", result)
	}
}

// TestExecEffectDispatchesThroughRegistry covers a function whose body
// is a single reserved-prefix effect call, wired through an in-memory
// db handler (spec.md §4.11/§4.15).
func TestExecEffectDispatchesThroughRegistry(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name: "write_greeting",
		Body: []ast.Expr{
			&ast.Call{
				Target: &ast.QualifiedName{Parts: []string{"db", "write"}},
				Args:   []ast.Expr{lit(ast.LitString, "k"), lit(ast.LitString, "hello")},
			},
		},
	}, version.Version{Major: 1})

	registry := effect.New()
	effect.RegisterStandard(registry)
	m := New(mod, registry)

	result, err := m.Execute("write_greeting:v1", nil, effect.Principal{ID: "u1"})
	if err != nil {
		t.Fatal(err)
	}
	if result.Tag != value.Result || !result.IsOk {
		t.Fatalf("expected ok(unit) from db.write, got %v", result)
	}
}

// TestCallNativeDispatchesThroughTable covers a qualified, non-effect
// call target dispatching to the CALL_NATIVE table.
func TestCallNativeDispatchesThroughTable(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name: "shout",
		Body: []ast.Expr{
			&ast.Call{
				Target: &ast.QualifiedName{Parts: []string{"str", "uppercase"}},
				Args:   []ast.Expr{lit(ast.LitString, "hi")},
			},
		},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())
	result, err := m.Execute("shout:v1", nil, effect.Principal{})
	if err != nil {
		t.Fatal(err)
	}
	if result.StringVal != "HI" {
		t.Fatalf("expected \"HI\", got %v", result)
	}
}

// TestArityMismatchIsRejected covers the arity-check step of the
// call algorithm (spec.md §4.14 step 2).
func TestArityMismatchIsRejected(t *testing.T) {
	mod := bytecode.NewModule("demo", "1.0.0")
	compileInto(t, mod, &ast.Function{
		Name:   "needs_two",
		Inputs: []ast.Param{{Name: "a"}, {Name: "b"}},
		Body:   []ast.Expr{&ast.Identifier{Name: "a"}},
	}, version.Version{Major: 1})

	m := New(mod, effect.New())
	_, err := m.Execute("needs_two:v1", []value.Value{value.NewIntFromInt64(1)}, effect.Principal{})
	if err == nil {
		t.Fatal("expected an arity-mismatch error")
	}
}
