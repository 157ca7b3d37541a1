// Package vm implements ward's stack interpreter (spec.md §4.14): frame
// management, the fetch/dispatch/advance loop, and CALL/CALL_NATIVE/
// EXEC_EFFECT dispatch behind a per-function security gate. Grounded on
// the teacher's vm/vm.go and vm/interpreter.go dispatch-loop shape
// (fetch/dispatch/advance, a frame struct holding stack+locals+args);
// none of that package's class/trait/JIT/image-persistence/debugger
// machinery is ported, since spec.md has no analog for any of it
// (Non-goals: no closures, no JIT, no on-disk image format).
package vm

import (
	"fmt"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/bytecode"
	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/version"
)

// frame holds one function activation's exclusively-owned state
// (spec.md §5: "each call gets a fresh frame").
type frame struct {
	stack  []value.Value
	locals map[string]value.Value
	args   []value.Value
	ip     int
}

func newFrame(args []value.Value) *frame {
	return &frame{locals: make(map[string]value.Value), args: args}
}

func (f *frame) push(v value.Value) { f.stack = append(f.stack, v) }

func (f *frame) pop() (value.Value, bool) {
	if len(f.stack) == 0 {
		return value.Value{}, false
	}
	v := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	return v, true
}

func (f *frame) peek() (value.Value, bool) {
	if len(f.stack) == 0 {
		return value.Value{}, false
	}
	return f.stack[len(f.stack)-1], true
}

// VM interprets one compiled bytecode.Module. It holds the module
// immutably for the duration of execution (spec.md §3.8) plus the
// native-function table and effect registry every CALL_NATIVE/
// EXEC_EFFECT instruction dispatches through.
type VM struct {
	Module  *bytecode.Module
	Natives *NativeTable
	Effects *effect.Registry
}

// New returns a VM over module, with the standard native table and the
// given effect registry (typically pre-populated via
// effect.RegisterStandard).
func New(module *bytecode.Module, effects *effect.Registry) *VM {
	return &VM{Module: module, Natives: NewNativeTable(), Effects: effects}
}

// Execute is spec.md §4.14's entry point. ref is "name" (resolves to the
// latest registered version) or "name:version".
func (m *VM) Execute(ref string, args []value.Value, principal effect.Principal) (value.Value, error) {
	fr, err := m.resolveFunction(ref)
	if err != nil {
		return value.Value{}, err
	}
	return m.callFunction(fr, args, principal)
}

func (m *VM) resolveFunction(ref string) (*bytecode.FunctionRecord, error) {
	name, versionStr, hasVersion := splitRef(ref)
	if !hasVersion {
		fr := m.Module.Latest(name)
		if fr == nil {
			return nil, &VMError{Message: fmt.Sprintf("function %q not found", name)}
		}
		return fr, nil
	}
	v, err := version.Parse(versionStr)
	if err != nil {
		return nil, &VMError{Message: fmt.Sprintf("function %q: invalid version %q: %v", name, versionStr, err)}
	}
	fr, ok := m.Module.Functions[name+":"+v.Key()]
	if !ok {
		return nil, &VMError{Message: fmt.Sprintf("function %q:%s not found", name, versionStr)}
	}
	return fr, nil
}

func splitRef(ref string) (name, versionStr string, hasVersion bool) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == ':' {
			return ref[:i], ref[i+1:], true
		}
	}
	return ref, "", false
}

// callFunction runs spec.md §4.14 steps 2-6 against an already-resolved
// function record.
func (m *VM) callFunction(fr *bytecode.FunctionRecord, args []value.Value, principal effect.Principal) (value.Value, error) {
	if len(args) != fr.Arity {
		return value.Value{}, &VMError{Message: fmt.Sprintf("function %q expects %d argument(s), got %d", fr.Name, fr.Arity, len(args))}
	}

	if len(fr.RequiredRoles) > 0 {
		allowed := false
		for _, role := range fr.RequiredRoles {
			if principal.HasRole(role) {
				allowed = true
				break
			}
		}
		if !allowed {
			return value.Value{}, &SecurityError{Message: "Permission denied"}
		}
	}

	fr2 := newFrame(args)
	for fr2.ip < len(fr.Code) {
		instr := fr.Code[fr2.ip]
		halt, result, err := m.step(fr2, instr, principal)
		if err != nil {
			return value.Value{}, err
		}
		if halt {
			return result, nil
		}
		fr2.ip++
	}
	if v, ok := fr2.peek(); ok {
		return v, nil
	}
	return value.NewUnit(), nil
}

// step executes one instruction. It returns halt=true when the frame's
// execution has ended (RETURN/HALT), with result holding the value to
// return.
func (m *VM) step(f *frame, instr bytecode.Instruction, principal effect.Principal) (halt bool, result value.Value, err error) {
	switch instr.Op {
	case bytecode.OpPush:
		f.push(instr.Operand.(value.Value))
	case bytecode.OpPop:
		f.pop()
	case bytecode.OpDup:
		v, ok := f.peek()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		f.push(v)
	case bytecode.OpSwap:
		b, ok1 := f.pop()
		a, ok2 := f.pop()
		if !ok1 || !ok2 {
			return false, value.Value{}, stackErr(f, instr)
		}
		f.push(b)
		f.push(a)

	case bytecode.OpLoadVar:
		name := instr.Operand.(string)
		v, ok := f.locals[name]
		if !ok {
			return false, value.Value{}, &VMError{IP: f.ip, Instr: instr, Message: fmt.Sprintf("undefined variable %q", name)}
		}
		f.push(v)
	case bytecode.OpStoreVar:
		name := instr.Operand.(string)
		v, ok := f.peek() // STORE_VAR keeps top of stack (spec.md §4.13/§9)
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		f.locals[name] = v
	case bytecode.OpLoadArg:
		idx := instr.Operand.(int)
		if idx < 0 || idx >= len(f.args) {
			return false, value.Value{}, &VMError{IP: f.ip, Instr: instr, Message: fmt.Sprintf("argument index %d out of range", idx)}
		}
		f.push(f.args[idx])

	case bytecode.OpCall:
		return false, value.Value{}, m.execCall(f, instr, principal)
	case bytecode.OpCallNative:
		return false, value.Value{}, m.execCallNative(f, instr)
	case bytecode.OpExecEffect:
		return false, value.Value{}, m.execEffect(f, instr, principal)

	case bytecode.OpReturn:
		v, ok := f.pop()
		if !ok {
			return true, value.NewUnit(), nil
		}
		return true, v, nil
	case bytecode.OpJump:
		f.ip = instr.Operand.(int) - 1
	case bytecode.OpJumpIfFalse:
		v, ok := f.pop()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		if !value.IsTruthy(v) {
			f.ip = instr.Operand.(int) - 1
		}
	case bytecode.OpJumpIfTrue:
		v, ok := f.pop()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		if value.IsTruthy(v) {
			f.ip = instr.Operand.(int) - 1
		}
	case bytecode.OpHalt:
		v, ok := f.pop()
		if !ok {
			return true, value.NewUnit(), nil
		}
		return true, v, nil

	case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
		return false, value.Value{}, m.execArith(f, instr)
	case bytecode.OpNeg:
		return false, value.Value{}, m.execNeg(f, instr)

	case bytecode.OpEq, bytecode.OpNe:
		return false, value.Value{}, m.execEqNe(f, instr)
	case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
		return false, value.Value{}, m.execCompare(f, instr)

	case bytecode.OpAnd, bytecode.OpOr:
		return false, value.Value{}, m.execLogic(f, instr)
	case bytecode.OpNot:
		v, ok := f.pop()
		if !ok || v.Tag != value.Bool {
			return false, value.Value{}, typeErr(f, instr, "NOT expects bool")
		}
		f.push(value.NewBool(!v.BoolVal))

	case bytecode.OpMakeOk:
		v, ok := f.pop()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		f.push(value.NewOk(v))
	case bytecode.OpMakeErr:
		v, ok := f.pop()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		f.push(value.NewErr(v))
	case bytecode.OpMakeSome:
		v, ok := f.pop()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		f.push(value.NewSome(v))
	case bytecode.OpMakeNone:
		f.push(value.NewNone())
	case bytecode.OpMakeList:
		n := instr.Operand.(int)
		items := make([]value.Value, n)
		for i := n - 1; i >= 0; i-- {
			v, ok := f.pop()
			if !ok {
				return false, value.Value{}, stackErr(f, instr)
			}
			items[i] = v
		}
		f.push(value.NewList(items))
	case bytecode.OpMakeMap:
		nPairs := instr.Operand.(int)
		m2 := make(map[string]value.Value, nPairs)
		for i := 0; i < nPairs; i++ {
			v, ok1 := f.pop()
			k, ok2 := f.pop()
			if !ok1 || !ok2 || k.Tag != value.String {
				return false, value.Value{}, typeErr(f, instr, "MAKE_MAP expects string keys")
			}
			m2[k.StringVal] = v
		}
		f.push(value.NewMap(m2))
	case bytecode.OpConstructRecord:
		return false, value.Value{}, m.execConstructRecord(f, instr)
	case bytecode.OpAccessField:
		name := instr.Operand.(string)
		rec, ok := f.pop()
		if !ok || rec.Tag != value.Record {
			return false, value.Value{}, typeErr(f, instr, "ACCESS_FIELD expects a record")
		}
		fv, ok := rec.Fields[name]
		if !ok {
			f.push(value.NewUnit())
		} else {
			f.push(fv)
		}
	case bytecode.OpConstructVariant:
		op := instr.Operand.(bytecode.VariantOperand)
		payload, ok := f.pop()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		f.push(value.NewVariant(op.Type, op.Case, &payload))
	case bytecode.OpMatchVariant:
		op := instr.Operand.(bytecode.VariantOperand)
		v, ok := f.pop()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		matches := v.Tag == value.Variant && v.TypeName == op.Type && v.Case == op.Case
		f.push(value.NewBool(matches))

	case bytecode.OpListGet:
		idx, ok1 := f.pop()
		lst, ok2 := f.pop()
		if !ok1 || !ok2 || lst.Tag != value.List || idx.Tag != value.Int {
			return false, value.Value{}, typeErr(f, instr, "LIST_GET expects (list, int)")
		}
		if idx.IntVal < 0 || int(idx.IntVal) >= len(lst.ListVal) {
			return false, value.Value{}, &VMError{IP: f.ip, Instr: instr, Message: "list index out of range"}
		}
		f.push(lst.ListVal[idx.IntVal])
	case bytecode.OpListLen:
		lst, ok := f.pop()
		if !ok || lst.Tag != value.List {
			return false, value.Value{}, typeErr(f, instr, "LIST_LEN expects a list")
		}
		f.push(value.NewIntFromInt64(int64(len(lst.ListVal))))
	case bytecode.OpListSet:
		v, ok1 := f.pop()
		idx, ok2 := f.pop()
		lst, ok3 := f.pop()
		if !ok1 || !ok2 || !ok3 || lst.Tag != value.List || idx.Tag != value.Int {
			return false, value.Value{}, typeErr(f, instr, "LIST_SET expects (list, int, value)")
		}
		if idx.IntVal < 0 || int(idx.IntVal) >= len(lst.ListVal) {
			return false, value.Value{}, &VMError{IP: f.ip, Instr: instr, Message: "list index out of range"}
		}
		out := append([]value.Value(nil), lst.ListVal...)
		out[idx.IntVal] = v
		f.push(value.NewList(out))
	case bytecode.OpListAppend:
		v, ok1 := f.pop()
		lst, ok2 := f.pop()
		if !ok1 || !ok2 || lst.Tag != value.List {
			return false, value.Value{}, typeErr(f, instr, "LIST_APPEND expects (list, value)")
		}
		out := append(append([]value.Value(nil), lst.ListVal...), v)
		f.push(value.NewList(out))
	case bytecode.OpMapGet:
		key, ok1 := f.pop()
		mv, ok2 := f.pop()
		if !ok1 || !ok2 || mv.Tag != value.Map || key.Tag != value.String {
			return false, value.Value{}, typeErr(f, instr, "MAP_GET expects (map, string)")
		}
		if v, ok := mv.MapVal[key.StringVal]; ok {
			f.push(value.NewSome(v))
		} else {
			f.push(value.NewNone())
		}
	case bytecode.OpMapSet:
		v, ok1 := f.pop()
		key, ok2 := f.pop()
		mv, ok3 := f.pop()
		if !ok1 || !ok2 || !ok3 || mv.Tag != value.Map || key.Tag != value.String {
			return false, value.Value{}, typeErr(f, instr, "MAP_SET expects (map, string, value)")
		}
		out := make(map[string]value.Value, len(mv.MapVal)+1)
		for k, mvv := range mv.MapVal {
			out[k] = mvv
		}
		out[key.StringVal] = v
		f.push(value.NewMap(out))
	case bytecode.OpMapHas:
		key, ok1 := f.pop()
		mv, ok2 := f.pop()
		if !ok1 || !ok2 || mv.Tag != value.Map || key.Tag != value.String {
			return false, value.Value{}, typeErr(f, instr, "MAP_HAS expects (map, string)")
		}
		_, has := mv.MapVal[key.StringVal]
		f.push(value.NewBool(has))

	case bytecode.OpStrConcat:
		right, ok1 := f.pop()
		left, ok2 := f.pop()
		if !ok1 || !ok2 || left.Tag != value.String || right.Tag != value.String {
			return false, value.Value{}, typeErr(f, instr, "STR_CONCAT expects two strings")
		}
		f.push(value.NewString(left.StringVal + right.StringVal))
	case bytecode.OpStrLen:
		v, ok := f.pop()
		if !ok || v.Tag != value.String {
			return false, value.Value{}, typeErr(f, instr, "STR_LEN expects a string")
		}
		f.push(value.NewIntFromInt64(int64(len(v.StringVal))))

	case bytecode.OpDebugPrint:
		v, ok := f.peek()
		if !ok {
			return false, value.Value{}, stackErr(f, instr)
		}
		fmt.Println(v.String())

	default:
		return false, value.Value{}, &VMError{IP: f.ip, Instr: instr, Message: fmt.Sprintf("unimplemented opcode %s", instr.Op)}
	}
	return false, value.Value{}, nil
}

func stackErr(f *frame, instr bytecode.Instruction) error {
	return &VMError{IP: f.ip, Instr: instr, Message: "stack underflow"}
}

func typeErr(f *frame, instr bytecode.Instruction, msg string) error {
	return &TypeMismatchError{IP: f.ip, Instr: instr, Message: msg}
}

// execCall pops arity args (restoring push order) and dispatches to
// another user function, per spec.md §4.14's "resolve to the latest
// per version ordering" rule when no version is pinned.
func (m *VM) execCall(f *frame, instr bytecode.Instruction, principal effect.Principal) error {
	op := instr.Operand.(bytecode.CallOperand)
	args, err := popN(f, op.Arity)
	if err != nil {
		return typeErr(f, instr, err.Error())
	}
	var fr *bytecode.FunctionRecord
	if op.Version == "" {
		fr = m.Module.Latest(op.Name)
		if fr == nil {
			return &VMError{IP: f.ip, Instr: instr, Message: fmt.Sprintf("function %q not found", op.Name)}
		}
	} else {
		v, err := version.Parse(op.Version)
		if err != nil {
			return &VMError{IP: f.ip, Instr: instr, Message: fmt.Sprintf("invalid version %q: %v", op.Version, err)}
		}
		var ok bool
		fr, ok = m.Module.Functions[op.Name+":"+v.Key()]
		if !ok {
			return &VMError{IP: f.ip, Instr: instr, Message: fmt.Sprintf("function %q:%s not found", op.Name, op.Version)}
		}
	}
	result, err := m.callFunction(fr, args, principal)
	if err != nil {
		return err
	}
	f.push(result)
	return nil
}

func (m *VM) execCallNative(f *frame, instr bytecode.Instruction) error {
	op := instr.Operand.(bytecode.NativeOperand)
	args, err := popN(f, op.Arity)
	if err != nil {
		return typeErr(f, instr, err.Error())
	}
	fn, ok := m.Natives.Lookup(op.Name)
	if !ok {
		return &VMError{IP: f.ip, Instr: instr, Message: fmt.Sprintf("native function %q not found", op.Name)}
	}
	result, err := fn(args)
	if err != nil {
		return &VMError{IP: f.ip, Instr: instr, Message: err.Error()}
	}
	f.push(result)
	return nil
}

func (m *VM) execEffect(f *frame, instr bytecode.Instruction, principal effect.Principal) error {
	op := instr.Operand.(bytecode.EffectOperand)
	args, err := popN(f, op.ParamCount)
	if err != nil {
		return typeErr(f, instr, err.Error())
	}
	if m.Effects == nil {
		return &VMError{IP: f.ip, Instr: instr, Message: "no effect registry configured"}
	}
	result, err := m.Effects.Dispatch(op.Handler, op.Operation, args, principal, effect.Metadata{
		AuditRequired: op.AuditRequired,
		Resource:      op.Resource,
	})
	if err != nil {
		return &VMError{IP: f.ip, Instr: instr, Message: err.Error()}
	}
	f.push(result)
	return nil
}

func (m *VM) execConstructRecord(f *frame, instr bytecode.Instruction) error {
	op := instr.Operand.(bytecode.RecordOperand)
	vals, err := popN(f, op.FieldCount)
	if err != nil {
		return typeErr(f, instr, err.Error())
	}
	fields := make(map[string]value.Value, op.FieldCount)
	classification := int(ast.Public)
	hasClass := false
	if td, ok := m.Module.Types[op.Type]; ok {
		for i, fd := range td.Fields {
			if i >= len(vals) {
				break
			}
			fields[fd.Name] = vals[i]
		}
		classification = int(td.MaxClassification())
		hasClass = classification > int(ast.Public)
	} else {
		for i, v := range vals {
			fields[fmt.Sprintf("field%d", i)] = v
		}
	}
	f.push(value.NewRecord(op.Type, fields, classification, hasClass))
	return nil
}

// popTwo pops the right operand then the left, restoring the
// left-then-right order compileBinaryOp pushed them in.
func popTwo(f *frame) (left, right value.Value, ok bool) {
	r, ok1 := f.pop()
	l, ok2 := f.pop()
	return l, r, ok1 && ok2
}

func toFloat(v value.Value) (float64, bool) {
	switch v.Tag {
	case value.Int:
		return float64(v.IntVal), true
	case value.Float:
		return v.FloatVal, true
	default:
		return 0, false
	}
}

// execArith implements ADD/SUB/MUL/DIV/MOD (spec.md §4.13): ADD also
// concatenates two strings; DIV by zero yields err("Division by zero")
// as a value rather than a VM error; MOD is integer-only.
func (m *VM) execArith(f *frame, instr bytecode.Instruction) error {
	left, right, ok := popTwo(f)
	if !ok {
		return stackErr(f, instr)
	}

	if instr.Op == bytecode.OpAdd && left.Tag == value.String && right.Tag == value.String {
		f.push(value.NewString(left.StringVal + right.StringVal))
		return nil
	}

	if instr.Op == bytecode.OpMod {
		if left.Tag != value.Int || right.Tag != value.Int {
			return typeErr(f, instr, "MOD expects two ints")
		}
		if right.IntVal == 0 {
			f.push(value.NewErrString("Division by zero"))
			return nil
		}
		f.push(value.NewIntFromInt64(left.IntVal % right.IntVal))
		return nil
	}

	if left.Tag == value.Int && right.Tag == value.Int {
		switch instr.Op {
		case bytecode.OpAdd:
			f.push(value.NewIntFromInt64(left.IntVal + right.IntVal))
		case bytecode.OpSub:
			f.push(value.NewIntFromInt64(left.IntVal - right.IntVal))
		case bytecode.OpMul:
			f.push(value.NewIntFromInt64(left.IntVal * right.IntVal))
		case bytecode.OpDiv:
			if right.IntVal == 0 {
				f.push(value.NewErrString("Division by zero"))
				return nil
			}
			f.push(value.NewIntFromInt64(left.IntVal / right.IntVal))
		}
		return nil
	}

	lf, ok1 := toFloat(left)
	rf, ok2 := toFloat(right)
	if !ok1 || !ok2 {
		return typeErr(f, instr, fmt.Sprintf("%s expects two numbers or two strings", instr.Op))
	}
	switch instr.Op {
	case bytecode.OpAdd:
		f.push(value.NewFloat(lf + rf))
	case bytecode.OpSub:
		f.push(value.NewFloat(lf - rf))
	case bytecode.OpMul:
		f.push(value.NewFloat(lf * rf))
	case bytecode.OpDiv:
		if rf == 0 {
			f.push(value.NewErrString("Division by zero"))
			return nil
		}
		f.push(value.NewFloat(lf / rf))
	}
	return nil
}

func (m *VM) execNeg(f *frame, instr bytecode.Instruction) error {
	v, ok := f.pop()
	if !ok {
		return stackErr(f, instr)
	}
	switch v.Tag {
	case value.Int:
		f.push(value.NewIntFromInt64(-v.IntVal))
	case value.Float:
		f.push(value.NewFloat(-v.FloatVal))
	default:
		return typeErr(f, instr, "NEG expects a number")
	}
	return nil
}

// execEqNe implements structural EQ/NE (spec.md §4.12's Equal rule).
func (m *VM) execEqNe(f *frame, instr bytecode.Instruction) error {
	left, right, ok := popTwo(f)
	if !ok {
		return stackErr(f, instr)
	}
	eq := value.Equal(left, right)
	if instr.Op == bytecode.OpNe {
		eq = !eq
	}
	f.push(value.NewBool(eq))
	return nil
}

// execCompare implements LT/LE/GT/GE, numeric only (spec.md §4.13).
func (m *VM) execCompare(f *frame, instr bytecode.Instruction) error {
	left, right, ok := popTwo(f)
	if !ok {
		return stackErr(f, instr)
	}
	lf, ok1 := toFloat(left)
	rf, ok2 := toFloat(right)
	if !ok1 || !ok2 {
		return typeErr(f, instr, fmt.Sprintf("%s expects two numbers", instr.Op))
	}
	var result bool
	switch instr.Op {
	case bytecode.OpLt:
		result = lf < rf
	case bytecode.OpLe:
		result = lf <= rf
	case bytecode.OpGt:
		result = lf > rf
	case bytecode.OpGe:
		result = lf >= rf
	}
	f.push(value.NewBool(result))
	return nil
}

func (m *VM) execLogic(f *frame, instr bytecode.Instruction) error {
	left, right, ok := popTwo(f)
	if !ok || left.Tag != value.Bool || right.Tag != value.Bool {
		return typeErr(f, instr, fmt.Sprintf("%s expects two bools", instr.Op))
	}
	var result bool
	switch instr.Op {
	case bytecode.OpAnd:
		result = left.BoolVal && right.BoolVal
	case bytecode.OpOr:
		result = left.BoolVal || right.BoolVal
	}
	f.push(value.NewBool(result))
	return nil
}

// popN pops n values off f's stack, returning them in original push
// order (the stack pops in reverse).
func popN(f *frame, n int) ([]value.Value, error) {
	out := make([]value.Value, n)
	for i := n - 1; i >= 0; i-- {
		v, ok := f.pop()
		if !ok {
			return nil, fmt.Errorf("stack underflow popping %d argument(s)", n)
		}
		out[i] = v
	}
	return out, nil
}
