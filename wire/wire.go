// Package wire (de)serializes a compiled bytecode.Module to/from CBOR,
// directly adapting the shape of the teacher's vm/dist/wire.go
// canonical-CBOR Marshal/Unmarshal-pair idiom: a package-level canonical
// EncMode built once in init, one Marshal/Unmarshal function per
// top-level type. Instruction.Operand is `any` (spec.md §3.7), so each
// instruction is re-shaped into a tagged wire form that records which
// concrete operand type it carried — a plain cbor.Marshal of an `any`
// field loses that type on the way back in.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/bytecode"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/version"
)

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// operand kind discriminants for wireInstruction.Kind.
const (
	kindNone    = "none"
	kindValue   = "value"
	kindString  = "string"
	kindInt     = "int"
	kindCall    = "call"
	kindNative  = "native"
	kindEffect  = "effect"
	kindRecord  = "record"
	kindVariant = "variant"
)

type wireInstruction struct {
	Op      bytecode.Op
	Kind    string
	Payload cbor.RawMessage
	Span    diag.Span
}

type wireFunctionRecord struct {
	Name          string
	Version       version.Version
	Arity         int
	Code          []wireInstruction
	RequiredRoles []string
	Effects       []ast.EffectRef
	Pure          bool
	Idempotent    bool
	LocalCount    int
}

type wireModule struct {
	Name       string
	Version    string
	Constants  []value.Value
	Functions  []wireFunctionRecord // flattened from the map; keys are recomputed on load
	Types      map[string]*ast.TypeDef
	Roles      map[string]*ast.Role
	Perms      map[string]*ast.Permission
	Policies   []*ast.Policy
	SourceHash [32]byte
}

// Marshal serializes a compiled module to canonical CBOR bytes.
func Marshal(m *bytecode.Module) ([]byte, error) {
	w, err := toWireModule(m)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal module: %w", err)
	}
	return cborEncMode.Marshal(w)
}

// Unmarshal deserializes a module previously produced by Marshal.
func Unmarshal(data []byte) (*bytecode.Module, error) {
	var w wireModule
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("wire: unmarshal module: %w", err)
	}
	return fromWireModule(&w)
}

func toWireModule(m *bytecode.Module) (*wireModule, error) {
	w := &wireModule{
		Name:       m.Name,
		Version:    m.Version,
		Constants:  m.Constants,
		Types:      m.Types,
		Roles:      m.Roles,
		Perms:      m.Perms,
		Policies:   m.Policies,
		SourceHash: m.SourceHash,
	}
	for _, fr := range m.Functions {
		wfr, err := toWireFunctionRecord(fr)
		if err != nil {
			return nil, err
		}
		w.Functions = append(w.Functions, *wfr)
	}
	return w, nil
}

func fromWireModule(w *wireModule) (*bytecode.Module, error) {
	m := bytecode.NewModule(w.Name, w.Version)
	m.Constants = w.Constants
	m.SourceHash = w.SourceHash
	if w.Types != nil {
		m.Types = w.Types
	}
	if w.Roles != nil {
		m.Roles = w.Roles
	}
	if w.Perms != nil {
		m.Perms = w.Perms
	}
	m.Policies = w.Policies

	for _, wfr := range w.Functions {
		fr, err := fromWireFunctionRecord(&wfr)
		if err != nil {
			return nil, err
		}
		m.AddFunction(fr)
	}
	return m, nil
}

func toWireFunctionRecord(fr *bytecode.FunctionRecord) (*wireFunctionRecord, error) {
	wfr := &wireFunctionRecord{
		Name:          fr.Name,
		Version:       fr.Version,
		Arity:         fr.Arity,
		RequiredRoles: fr.RequiredRoles,
		Effects:       fr.Effects,
		Pure:          fr.Pure,
		Idempotent:    fr.Idempotent,
		LocalCount:    fr.LocalCount,
	}
	for _, instr := range fr.Code {
		wi, err := toWireInstruction(instr)
		if err != nil {
			return nil, err
		}
		wfr.Code = append(wfr.Code, *wi)
	}
	return wfr, nil
}

func fromWireFunctionRecord(wfr *wireFunctionRecord) (*bytecode.FunctionRecord, error) {
	fr := &bytecode.FunctionRecord{
		Name:          wfr.Name,
		Version:       wfr.Version,
		Arity:         wfr.Arity,
		RequiredRoles: wfr.RequiredRoles,
		Effects:       wfr.Effects,
		Pure:          wfr.Pure,
		Idempotent:    wfr.Idempotent,
		LocalCount:    wfr.LocalCount,
	}
	for _, wi := range wfr.Code {
		instr, err := fromWireInstruction(wi)
		if err != nil {
			return nil, err
		}
		fr.Code = append(fr.Code, instr)
	}
	return fr, nil
}

func toWireInstruction(instr bytecode.Instruction) (*wireInstruction, error) {
	wi := &wireInstruction{Op: instr.Op, Span: instr.Span}

	var kind string
	var payload any = instr.Operand
	switch v := instr.Operand.(type) {
	case nil:
		kind = kindNone
		payload = nil
	case value.Value:
		kind = kindValue
		payload = v
	case string:
		kind = kindString
		payload = v
	case int:
		kind = kindInt
		payload = v
	case bytecode.CallOperand:
		kind = kindCall
		payload = v
	case bytecode.NativeOperand:
		kind = kindNative
		payload = v
	case bytecode.EffectOperand:
		kind = kindEffect
		payload = v
	case bytecode.RecordOperand:
		kind = kindRecord
		payload = v
	case bytecode.VariantOperand:
		kind = kindVariant
		payload = v
	default:
		return nil, fmt.Errorf("wire: unsupported operand type %T for op %s", instr.Operand, instr.Op)
	}
	wi.Kind = kind

	if kind == kindNone {
		return wi, nil
	}
	raw, err := cborEncMode.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal operand for op %s: %w", instr.Op, err)
	}
	wi.Payload = raw
	return wi, nil
}

func fromWireInstruction(wi wireInstruction) (bytecode.Instruction, error) {
	instr := bytecode.Instruction{Op: wi.Op, Span: wi.Span}
	switch wi.Kind {
	case kindNone, "":
		return instr, nil
	case kindValue:
		var v value.Value
		if err := cbor.Unmarshal(wi.Payload, &v); err != nil {
			return instr, err
		}
		instr.Operand = v
	case kindString:
		var s string
		if err := cbor.Unmarshal(wi.Payload, &s); err != nil {
			return instr, err
		}
		instr.Operand = s
	case kindInt:
		var n int
		if err := cbor.Unmarshal(wi.Payload, &n); err != nil {
			return instr, err
		}
		instr.Operand = n
	case kindCall:
		var op bytecode.CallOperand
		if err := cbor.Unmarshal(wi.Payload, &op); err != nil {
			return instr, err
		}
		instr.Operand = op
	case kindNative:
		var op bytecode.NativeOperand
		if err := cbor.Unmarshal(wi.Payload, &op); err != nil {
			return instr, err
		}
		instr.Operand = op
	case kindEffect:
		var op bytecode.EffectOperand
		if err := cbor.Unmarshal(wi.Payload, &op); err != nil {
			return instr, err
		}
		instr.Operand = op
	case kindRecord:
		var op bytecode.RecordOperand
		if err := cbor.Unmarshal(wi.Payload, &op); err != nil {
			return instr, err
		}
		instr.Operand = op
	case kindVariant:
		var op bytecode.VariantOperand
		if err := cbor.Unmarshal(wi.Payload, &op); err != nil {
			return instr, err
		}
		instr.Operand = op
	default:
		return instr, fmt.Errorf("wire: unknown operand kind %q", wi.Kind)
	}
	return instr, nil
}
