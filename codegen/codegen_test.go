package codegen

import (
	"testing"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/bytecode"
	"github.com/chazu/wardlang/version"
)

func lit(kind ast.LiteralKind, text string) *ast.Literal {
	return &ast.Literal{Kind: kind, Text: text}
}

func TestCompileFunctionArgumentArithmetic(t *testing.T) {
	// (fn add :v1 :inputs [(a :int) (b :int)] (body (+ a b)))
	fn := &ast.Function{
		Name:   "add",
		Inputs: []ast.Param{{Name: "a"}, {Name: "b"}},
		Body: []ast.Expr{
			&ast.BinaryOp{Op: ast.OpAdd, Left: &ast.Identifier{Name: "a"}, Right: &ast.Identifier{Name: "b"}},
		},
	}
	rec, err := CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatal(err)
	}
	wantOps := []bytecode.Op{bytecode.OpLoadArg, bytecode.OpLoadArg, bytecode.OpAdd, bytecode.OpReturn}
	if len(rec.Code) != len(wantOps) {
		t.Fatalf("expected %d instructions, got %d: %+v", len(wantOps), len(rec.Code), rec.Code)
	}
	for i, op := range wantOps {
		if rec.Code[i].Op != op {
			t.Errorf("instruction %d: expected %v, got %v", i, op, rec.Code[i].Op)
		}
	}
	if rec.Code[0].Operand.(int) != 0 || rec.Code[1].Operand.(int) != 1 {
		t.Errorf("expected arg slots 0 and 1, got %v %v", rec.Code[0].Operand, rec.Code[1].Operand)
	}
}

func TestCompileFunctionBranchSelection(t *testing.T) {
	// (fn check :v1 :inputs [(x :int)] (body (if (> x 10) "big" "small")))
	fn := &ast.Function{
		Name:   "check",
		Inputs: []ast.Param{{Name: "x"}},
		Body: []ast.Expr{
			&ast.If{
				Cond: &ast.BinaryOp{Op: ast.OpGt, Left: &ast.Identifier{Name: "x"}, Right: lit(ast.LitInt, "10")},
				Then: lit(ast.LitString, "big"),
				Else: lit(ast.LitString, "small"),
			},
		},
	}
	rec, err := CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatal(err)
	}
	wantOps := []bytecode.Op{
		bytecode.OpLoadArg, bytecode.OpPush, bytecode.OpGt,
		bytecode.OpJumpIfFalse, bytecode.OpPush, bytecode.OpJump,
		bytecode.OpPush, bytecode.OpReturn,
	}
	if len(rec.Code) != len(wantOps) {
		t.Fatalf("expected %d instructions, got %d: %+v", len(wantOps), len(rec.Code), rec.Code)
	}
	for i, op := range wantOps {
		if rec.Code[i].Op != op {
			t.Errorf("instruction %d: expected %v, got %v", i, op, rec.Code[i].Op)
		}
	}
	// JUMP_IF_FALSE must target the else-branch PUSH (index 6).
	if rec.Code[3].Operand.(int) != 6 {
		t.Errorf("expected JUMP_IF_FALSE to target index 6, got %v", rec.Code[3].Operand)
	}
	// JUMP must target past the else branch (index 7, RETURN).
	if rec.Code[5].Operand.(int) != 7 {
		t.Errorf("expected JUMP to target index 7, got %v", rec.Code[5].Operand)
	}
}

func TestCompileLetKeepsStoreVarNonPopping(t *testing.T) {
	// spec.md §9: STORE_VAR does not pop; Let's body must push a fresh
	// value rather than relying on the binding's value still being on
	// the stack.
	fn := &ast.Function{
		Name: "withlet",
		Body: []ast.Expr{
			&ast.Let{
				Bindings: []ast.Binding{{Name: "x", Value: lit(ast.LitInt, "42")}},
				Body:     []ast.Expr{&ast.Identifier{Name: "x"}},
			},
		},
	}
	rec, err := CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatal(err)
	}
	wantOps := []bytecode.Op{bytecode.OpPush, bytecode.OpStoreVar, bytecode.OpLoadVar, bytecode.OpReturn}
	if len(rec.Code) != len(wantOps) {
		t.Fatalf("expected %d instructions, got %d: %+v", len(wantOps), len(rec.Code), rec.Code)
	}
	for i, op := range wantOps {
		if rec.Code[i].Op != op {
			t.Errorf("instruction %d: expected %v, got %v", i, op, rec.Code[i].Op)
		}
	}
}

func TestCompileLambdaRejected(t *testing.T) {
	fn := &ast.Function{
		Name: "bad",
		Body: []ast.Expr{&ast.Lambda{}},
	}
	if _, err := CompileFunction(fn, version.Version{Major: 1}); err == nil {
		t.Fatal("expected lambda compilation to fail")
	}
}

func TestCompileVersionPinnedCall(t *testing.T) {
	// (fn wrap :v1 :inputs [(x :int)] (body (calc:v1 x)))
	fn := &ast.Function{
		Name:   "wrap",
		Inputs: []ast.Param{{Name: "x"}},
		Body: []ast.Expr{
			&ast.Call{
				Target: &ast.QualifiedName{Parts: []string{"calc"}, Version: "v1"},
				Args:   []ast.Expr{&ast.Identifier{Name: "x"}},
			},
		},
	}
	rec, err := CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code[1].Op != bytecode.OpCall {
		t.Fatalf("expected CALL for a version-pinned single-part target, got %v", rec.Code[1].Op)
	}
	op := rec.Code[1].Operand.(bytecode.CallOperand)
	if op.Name != "calc" || op.Version != "v1" || op.Arity != 1 {
		t.Errorf("unexpected call operand: %+v", op)
	}
}

func TestCompileEffectCall(t *testing.T) {
	fn := &ast.Function{
		Name: "readUser",
		Body: []ast.Expr{
			&ast.Call{
				Target: &ast.QualifiedName{Parts: []string{"db", "read"}},
				Args:   []ast.Expr{lit(ast.LitString, "users")},
			},
		},
	}
	rec, err := CompileFunction(fn, version.Version{Major: 1})
	if err != nil {
		t.Fatal(err)
	}
	if rec.Code[1].Op != bytecode.OpExecEffect {
		t.Fatalf("expected EXEC_EFFECT, got %v", rec.Code[1].Op)
	}
	op := rec.Code[1].Operand.(bytecode.EffectOperand)
	if op.Handler != "db" || op.Operation != "read" || op.ParamCount != 1 {
		t.Errorf("unexpected effect operand: %+v", op)
	}
}
