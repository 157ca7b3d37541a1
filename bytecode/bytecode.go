package bytecode

import (
	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/version"
)

// CallOperand is OpCall's operand: a user function call, optionally
// version-pinned.
type CallOperand struct {
	Name    string
	Version string // empty if unpinned; resolves to latest (spec.md §4.14, §9)
	Arity   int
}

// NativeOperand is OpCallNative's operand.
type NativeOperand struct {
	Name  string
	Arity int
}

// EffectOperand is OpExecEffect's operand (spec.md §4.15).
type EffectOperand struct {
	Handler       string
	Operation     string
	ParamCount    int
	AuditRequired bool
	Resource      string
}

// RecordOperand is OpConstructRecord's operand.
type RecordOperand struct {
	Type       string
	FieldCount int
}

// VariantOperand is OpConstructVariant/OpMatchVariant's operand.
type VariantOperand struct {
	Type string
	Case string
}

// Instruction is one bytecode instruction: an opcode plus an
// opcode-dependent operand and the source span it was compiled from.
type Instruction struct {
	Op      Op
	Operand any // type depends on Op: value.Value, string, int, CallOperand, ...
	Span    diag.Span
}

// FunctionRecord is spec.md §3.7's compiled-function record.
type FunctionRecord struct {
	Name          string
	Version       version.Version
	Arity         int
	Code          []Instruction
	RequiredRoles []string
	Effects       []ast.EffectRef
	Pure          bool
	Idempotent    bool
	LocalCount    int
}

// Key returns the "name:version" map key a Module indexes functions by.
func (f *FunctionRecord) Key() string {
	return f.Name + ":" + f.Version.Key()
}

// Module is spec.md §3.7's compiled module record.
type Module struct {
	Name       string
	Version    string
	Constants  []value.Value
	Functions  map[string]*FunctionRecord // "name:version" -> record
	Types      map[string]*ast.TypeDef
	Roles      map[string]*ast.Role
	Perms      map[string]*ast.Permission
	Policies   []*ast.Policy
	SourceHash [32]byte // sha256 of source text, for cache invalidation
}

// NewModule returns an empty Module named name at the given version
// string.
func NewModule(name, versionStr string) *Module {
	return &Module{
		Name:      name,
		Version:   versionStr,
		Functions: make(map[string]*FunctionRecord),
		Types:     make(map[string]*ast.TypeDef),
		Roles:     make(map[string]*ast.Role),
		Perms:     make(map[string]*ast.Permission),
	}
}

// AddFunction registers a compiled function under its "name:version" key.
func (m *Module) AddFunction(f *FunctionRecord) {
	m.Functions[f.Key()] = f
}

// Latest returns the highest-by-ordering function record named name, per
// spec.md §4.14/§9's resolution of CALL-without-version.
func (m *Module) Latest(name string) *FunctionRecord {
	var best *FunctionRecord
	for _, f := range m.Functions {
		if f.Name != name {
			continue
		}
		if best == nil || version.Compare(f.Version, best.Version) > 0 {
			best = f
		}
	}
	return best
}

// Label is an unresolved or resolved jump target within a Builder's
// instruction stream, named per spec.md §4.11's new_label/place_label/
// emit_jump trio.
type Label struct {
	resolved bool
	target   int   // resolved instruction index
	pending  []int // indices of JUMP* instructions awaiting this label
}

// Builder accumulates instructions for one function body and resolves
// label-based jumps to absolute instruction offsets once the body is
// fully emitted, matching spec.md §4.11's "patches resolve to absolute
// instruction offsets after emission".
type Builder struct {
	code []Instruction
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// NewLabel returns a fresh, unresolved label.
func (b *Builder) NewLabel() *Label {
	return &Label{}
}

// Emit appends an instruction with no jump target and returns its index.
func (b *Builder) Emit(op Op, operand any, sp diag.Span) int {
	b.code = append(b.code, Instruction{Op: op, Operand: operand, Span: sp})
	return len(b.code) - 1
}

// PlaceLabel resolves label to the current (next-to-be-emitted)
// instruction index and patches every jump already emitted against it.
func (b *Builder) PlaceLabel(label *Label) {
	label.resolved = true
	label.target = len(b.code)
	for _, idx := range label.pending {
		b.code[idx].Operand = label.target
	}
	label.pending = nil
}

// EmitJump emits a JUMP/JUMP_IF_FALSE/JUMP_IF_TRUE instruction targeting
// label. If label is already placed the offset is known immediately;
// otherwise the instruction's operand is patched in by a later
// PlaceLabel call.
func (b *Builder) EmitJump(op Op, label *Label, sp diag.Span) int {
	operand := 0
	idx := b.Emit(op, operand, sp)
	if label.resolved {
		b.code[idx].Operand = label.target
	} else {
		label.pending = append(label.pending, idx)
	}
	return idx
}

// Len returns the number of instructions emitted so far.
func (b *Builder) Len() int { return len(b.code) }

// Build returns the finished instruction stream. Every label referenced
// by an EmitJump call must have been placed first.
func (b *Builder) Build() []Instruction {
	return b.code
}
