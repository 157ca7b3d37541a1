// Package codegen compiles ward's AST to bytecode (spec.md §4.11), one
// function at a time: each input parameter maps to an argument slot
// 0..arity-1, the body is emitted in order, and a trailing RETURN closes
// the function. Grounded directly on the teacher's compiler/codegen.go
// (locals/args slot maps, label/patch jump emission) — the closest
// structural analog to spec.md's per-expression-form emission rules in
// the whole retrieval pack.
package codegen

import (
	"fmt"
	"strconv"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/bytecode"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/version"
)

// reservedEffectPrefixes are the handler names spec.md §4.11 calls out
// as compiling to EXEC_EFFECT rather than CALL/CALL_NATIVE.
var reservedEffectPrefixes = map[string]bool{
	"db": true, "http": true, "fs": true, "log": true, "event": true,
}

// Compiler compiles one function body at a time.
type Compiler struct {
	builder *bytecode.Builder
	locals  map[string]int // name -> slot
	arity   int
	nextLoc int // next unused local slot, starting after arity
}

// New returns a Compiler ready to compile a single function.
func New() *Compiler {
	return &Compiler{locals: make(map[string]int)}
}

// CompileFunction compiles fn's body into a FunctionRecord. v is fn's
// already-parsed version (empty Version if fn carries none).
func CompileFunction(fn *ast.Function, v version.Version) (*bytecode.FunctionRecord, error) {
	c := New()
	c.arity = len(fn.Inputs)
	c.builder = bytecode.NewBuilder()

	for i, p := range fn.Inputs {
		c.locals[p.Name] = i
	}
	c.nextLoc = c.arity

	for i, expr := range fn.Body {
		if err := c.compileExpr(expr); err != nil {
			return nil, err
		}
		if i < len(fn.Body)-1 {
			c.builder.Emit(bytecode.OpPop, nil, expr.Span())
		}
	}
	if len(fn.Body) == 0 {
		c.builder.Emit(bytecode.OpPush, value.NewUnit(), fn.Sp)
	}
	c.builder.Emit(bytecode.OpReturn, nil, fn.Sp)

	return &bytecode.FunctionRecord{
		Name:          fn.Name,
		Version:       v,
		Arity:         c.arity,
		Code:          c.builder.Build(),
		RequiredRoles: fn.RequiredRoles,
		Effects:       fn.Effects,
		Pure:          fn.Pure,
		Idempotent:    fn.Idempotent,
		LocalCount:    c.nextLoc,
	}, nil
}

func (c *Compiler) compileExpr(e ast.Expr) error {
	switch n := e.(type) {
	case *ast.Literal:
		return c.compileLiteral(n)
	case *ast.Identifier:
		return c.compileIdentifier(n)
	case *ast.QualifiedName:
		return c.compileQualifiedRef(n)
	case *ast.Call:
		return c.compileCall(n)
	case *ast.Let:
		return c.compileLet(n)
	case *ast.If:
		return c.compileIf(n)
	case *ast.Cond:
		return c.compileCond(n)
	case *ast.Match:
		return c.compileMatch(n)
	case *ast.Do:
		return c.compileDo(n)
	case *ast.BinaryOp:
		return c.compileBinaryOp(n)
	case *ast.UnaryOp:
		return c.compileUnaryOp(n)
	case *ast.Lambda:
		return fmt.Errorf("codegen: lambdas are unsupported (spec.md §4.11/§9)")
	default:
		return fmt.Errorf("codegen: unknown expression form %T", e)
	}
}

func (c *Compiler) compileLiteral(l *ast.Literal) error {
	switch l.Kind {
	case ast.LitInt:
		n, err := strconv.ParseInt(l.Text, 10, 64)
		if err != nil {
			return fmt.Errorf("codegen: invalid integer literal %q: %w", l.Text, err)
		}
		c.builder.Emit(bytecode.OpPush, value.NewIntFromInt64(n), l.Sp)
	case ast.LitFloat:
		f, err := strconv.ParseFloat(l.Text, 64)
		if err != nil {
			return fmt.Errorf("codegen: invalid float literal %q: %w", l.Text, err)
		}
		c.builder.Emit(bytecode.OpPush, value.NewFloat(f), l.Sp)
	case ast.LitString:
		c.builder.Emit(bytecode.OpPush, value.NewString(l.Text), l.Sp)
	case ast.LitBool:
		c.builder.Emit(bytecode.OpPush, value.NewBool(l.Text == "true"), l.Sp)
	default:
		return fmt.Errorf("codegen: unknown literal kind %v", l.Kind)
	}
	return nil
}

func (c *Compiler) compileIdentifier(id *ast.Identifier) error {
	if slot, ok := c.locals[id.Name]; ok && slot < c.arity {
		c.builder.Emit(bytecode.OpLoadArg, slot, id.Sp)
		return nil
	}
	c.builder.Emit(bytecode.OpLoadVar, id.Name, id.Sp)
	return nil
}

// compileQualifiedRef compiles a bare qualified name appearing as a
// value (not as a call target) as a LOAD_VAR of its joined form; ward's
// grammar only gives qualified names call-target and type-expression
// roles, but the AST permits them in any expression position.
func (c *Compiler) compileQualifiedRef(q *ast.QualifiedName) error {
	c.builder.Emit(bytecode.OpLoadVar, q.Joined(), q.Sp)
	return nil
}

func (c *Compiler) compileLet(l *ast.Let) error {
	for _, b := range l.Bindings {
		if err := c.compileExpr(b.Value); err != nil {
			return err
		}
		c.builder.Emit(bytecode.OpStoreVar, b.Name, l.Sp)
	}
	for i, expr := range l.Body {
		if err := c.compileExpr(expr); err != nil {
			return err
		}
		if i < len(l.Body)-1 {
			c.builder.Emit(bytecode.OpPop, nil, expr.Span())
		}
	}
	return nil
}

func (c *Compiler) compileIf(n *ast.If) error {
	elseLabel := c.builder.NewLabel()
	endLabel := c.builder.NewLabel()

	if err := c.compileExpr(n.Cond); err != nil {
		return err
	}
	c.builder.EmitJump(bytecode.OpJumpIfFalse, elseLabel, n.Sp)
	if err := c.compileExpr(n.Then); err != nil {
		return err
	}
	c.builder.EmitJump(bytecode.OpJump, endLabel, n.Sp)
	c.builder.PlaceLabel(elseLabel)
	if err := c.compileExpr(n.Else); err != nil {
		return err
	}
	c.builder.PlaceLabel(endLabel)
	return nil
}

func (c *Compiler) compileCond(n *ast.Cond) error {
	endLabel := c.builder.NewLabel()
	for _, clause := range n.Clauses {
		nextLabel := c.builder.NewLabel()
		if err := c.compileExpr(clause.Cond); err != nil {
			return err
		}
		c.builder.EmitJump(bytecode.OpJumpIfFalse, nextLabel, n.Sp)
		if err := c.compileExpr(clause.Body); err != nil {
			return err
		}
		c.builder.EmitJump(bytecode.OpJump, endLabel, n.Sp)
		c.builder.PlaceLabel(nextLabel)
	}
	c.builder.PlaceLabel(endLabel)
	return nil
}

func (c *Compiler) compileMatch(n *ast.Match) error {
	if err := c.compileExpr(n.Scrutinee); err != nil {
		return err
	}
	endLabel := c.builder.NewLabel()
	for i, mc := range n.Cases {
		last := i == len(n.Cases)-1
		if !last {
			c.builder.Emit(bytecode.OpDup, nil, n.Sp)
		}
		nextLabel := c.builder.NewLabel()
		if err := c.compilePattern(mc.Pattern, n.Sp); err != nil {
			return err
		}
		c.builder.EmitJump(bytecode.OpJumpIfFalse, nextLabel, n.Sp)
		if err := c.compileExpr(mc.Body); err != nil {
			return err
		}
		c.builder.EmitJump(bytecode.OpJump, endLabel, n.Sp)
		c.builder.PlaceLabel(nextLabel)
	}
	// No case matched at runtime: push a failure string and HALT.
	c.builder.Emit(bytecode.OpPush, value.NewString("match: no case matched"), n.Sp)
	c.builder.Emit(bytecode.OpHalt, nil, n.Sp)
	c.builder.PlaceLabel(endLabel)
	return nil
}

// compilePattern compiles one Match case's pattern test, leaving a bool
// on the stack (spec.md §4.11): literal -> PUSH literal; EQ; constructor
// -> MATCH_VARIANT; wildcard/binding -> POP; PUSH true.
func (c *Compiler) compilePattern(p ast.Pattern, sp diag.Span) error {
	switch pt := p.(type) {
	case ast.LiteralPattern:
		if err := c.compileLiteral(pt.Lit); err != nil {
			return err
		}
		c.builder.Emit(bytecode.OpEq, nil, pt.Lit.Sp)
	case ast.ConstructorPattern:
		c.builder.Emit(bytecode.OpMatchVariant, bytecode.VariantOperand{Type: pt.TypeName, Case: pt.Case}, sp)
	case ast.WildcardPattern:
		c.builder.Emit(bytecode.OpPop, nil, sp)
		c.builder.Emit(bytecode.OpPush, value.NewBool(true), sp)
	default:
		return fmt.Errorf("codegen: unknown pattern form %T", p)
	}
	return nil
}

func (c *Compiler) compileDo(n *ast.Do) error {
	for i, expr := range n.Body {
		if err := c.compileExpr(expr); err != nil {
			return err
		}
		if i < len(n.Body)-1 {
			c.builder.Emit(bytecode.OpPop, nil, expr.Span())
		}
	}
	return nil
}

var binaryOps = map[ast.BinaryOperator]bytecode.Op{
	ast.OpAdd: bytecode.OpAdd, ast.OpSub: bytecode.OpSub, ast.OpMul: bytecode.OpMul,
	ast.OpDiv: bytecode.OpDiv, ast.OpMod: bytecode.OpMod,
	ast.OpEq: bytecode.OpEq, ast.OpNe: bytecode.OpNe,
	ast.OpLt: bytecode.OpLt, ast.OpLe: bytecode.OpLe, ast.OpGt: bytecode.OpGt, ast.OpGe: bytecode.OpGe,
	ast.OpAnd: bytecode.OpAnd, ast.OpOr: bytecode.OpOr,
}

func (c *Compiler) compileBinaryOp(n *ast.BinaryOp) error {
	if err := c.compileExpr(n.Left); err != nil {
		return err
	}
	if err := c.compileExpr(n.Right); err != nil {
		return err
	}
	op, ok := binaryOps[n.Op]
	if !ok {
		return fmt.Errorf("codegen: unknown binary operator %v", n.Op)
	}
	c.builder.Emit(op, nil, n.Sp)
	return nil
}

func (c *Compiler) compileUnaryOp(n *ast.UnaryOp) error {
	if err := c.compileExpr(n.Operand); err != nil {
		return err
	}
	switch n.Op {
	case ast.OpNeg:
		c.builder.Emit(bytecode.OpNeg, nil, n.Sp)
	case ast.OpNot:
		c.builder.Emit(bytecode.OpNot, nil, n.Sp)
	default:
		return fmt.Errorf("codegen: unknown unary operator %v", n.Op)
	}
	return nil
}

// compileCall dispatches a Call per spec.md §4.11: a reserved effect
// prefix target compiles to EXEC_EFFECT; a qualified (dotted) target to
// CALL_NATIVE; a bare identifier target to CALL.
func (c *Compiler) compileCall(call *ast.Call) error {
	switch target := call.Target.(type) {
	case *ast.QualifiedName:
		if len(target.Parts) >= 2 && reservedEffectPrefixes[target.Parts[0]] {
			for _, a := range call.Args {
				if err := c.compileExpr(a); err != nil {
					return err
				}
			}
			c.builder.Emit(bytecode.OpExecEffect, bytecode.EffectOperand{
				Handler:    target.Parts[0],
				Operation:  joinRest(target.Parts[1:]),
				ParamCount: len(call.Args),
			}, call.Sp)
			return nil
		}
		// A single-part target (with or without a version pin) names a
		// user function, not a dotted native — e.g. (calc:v2 a b). Only
		// a genuinely multi-part, unpinned target is a native lookup.
		if len(target.Parts) == 1 || target.Version != "" {
			for _, a := range call.Args {
				if err := c.compileExpr(a); err != nil {
					return err
				}
			}
			c.builder.Emit(bytecode.OpCall, bytecode.CallOperand{
				Name:    target.Parts[0],
				Version: target.Version,
				Arity:   len(call.Args),
			}, call.Sp)
			return nil
		}
		for _, a := range call.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		c.builder.Emit(bytecode.OpCallNative, bytecode.NativeOperand{
			Name:  target.Joined(),
			Arity: len(call.Args),
		}, call.Sp)
		return nil
	case *ast.Identifier:
		for _, a := range call.Args {
			if err := c.compileExpr(a); err != nil {
				return err
			}
		}
		c.builder.Emit(bytecode.OpCall, bytecode.CallOperand{
			Name:  target.Name,
			Arity: len(call.Args),
		}, call.Sp)
		return nil
	default:
		return fmt.Errorf("codegen: call target must be an identifier or qualified name, got %T", call.Target)
	}
}

func joinRest(parts []string) string {
	s := ""
	for i, p := range parts {
		if i > 0 {
			s += "."
		}
		s += p
	}
	return s
}
