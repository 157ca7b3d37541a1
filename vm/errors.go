package vm

import (
	"fmt"

	"github.com/chazu/wardlang/bytecode"
)

// VMError is a general execution failure carrying the instruction
// pointer and offending instruction for debugging (spec.md §4.13/§7).
type VMError struct {
	IP      int
	Instr   bytecode.Instruction
	Message string
}

func (e *VMError) Error() string {
	return fmt.Sprintf("vm: %s (at ip=%d, op=%s)", e.Message, e.IP, e.Instr.Op)
}

// SecurityError is raised when the §4.14 security gate denies entry to
// a function.
type SecurityError struct {
	IP      int
	Instr   bytecode.Instruction
	Message string
}

func (e *SecurityError) Error() string {
	return fmt.Sprintf("security: %s", e.Message)
}

// TypeMismatchError is raised when an opcode receives operands of the
// wrong tag (spec.md §4.13: "type mismatches at any opcode raise a
// typed VM error carrying the instruction pointer").
type TypeMismatchError struct {
	IP      int
	Instr   bytecode.Instruction
	Message string
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("type mismatch: %s (at ip=%d, op=%s)", e.Message, e.IP, e.Instr.Op)
}
