// Package bytecode implements ward's stack bytecode model (spec.md
// §3.7/§4.13): the opcode set, an Instruction carrying an optional
// operand and source span, and a label-patching Builder that turns a
// sequence of emitted instructions (plus forward/backward jump targets)
// into a resolved instruction stream.
package bytecode

import "fmt"

// Op is a single bytecode opcode, grouped into ranges by category the
// way the teacher's pkg/bytecode/opcodes.go organizes its byte-sized
// opcode set, re-targeted from Trashtalk's message-send machine to
// ward's stack machine (spec.md §4.13's opcode contract).
type Op byte

const (
	// Stack/variables (0x00-0x1F)
	OpPush Op = 0x00 // PUSH(value)
	OpPop  Op = 0x01 // POP
	OpDup  Op = 0x02 // DUP
	OpSwap Op = 0x03 // SWAP

	OpLoadVar  Op = 0x10 // LOAD_VAR(name)
	OpStoreVar Op = 0x11 // STORE_VAR(name) — does NOT pop, top stays
	OpLoadArg  Op = 0x12 // LOAD_ARG(index)

	// Calls/control (0x20-0x3F)
	OpCall         Op = 0x20 // CALL{name, version?, arity}
	OpCallNative   Op = 0x21 // CALL_NATIVE{name, arity}
	OpReturn       Op = 0x22 // RETURN — halts current frame
	OpJump         Op = 0x23 // JUMP{offset}
	OpJumpIfFalse  Op = 0x24 // JUMP_IF_FALSE{offset} — pops
	OpJumpIfTrue   Op = 0x25 // JUMP_IF_TRUE{offset} — pops
	OpHalt         Op = 0x26 // HALT

	// Arithmetic (0x40-0x4F)
	OpAdd Op = 0x40
	OpSub Op = 0x41
	OpMul Op = 0x42
	OpDiv Op = 0x43 // division by zero pushes err("Division by zero")
	OpMod Op = 0x44 // integer-only
	OpNeg Op = 0x45

	// Comparison (0x50-0x5F)
	OpEq Op = 0x50 // structural
	OpNe Op = 0x51
	OpLt Op = 0x52 // numeric only
	OpLe Op = 0x53
	OpGt Op = 0x54
	OpGe Op = 0x55

	// Logic (0x60-0x6F)
	OpAnd Op = 0x60
	OpOr  Op = 0x61
	OpNot Op = 0x62

	// Effects (0x70-0x7F)
	OpExecEffect Op = 0x70 // EXEC_EFFECT{handler, operation, param_count, audit_required?, resource?}

	// Constructors (0x80-0x9F)
	OpMakeOk             Op = 0x80
	OpMakeErr            Op = 0x81
	OpMakeSome           Op = 0x82
	OpMakeNone           Op = 0x83
	OpMakeList           Op = 0x84 // MAKE_LIST(n)
	OpMakeMap            Op = 0x85 // MAKE_MAP(n_pairs)
	OpConstructRecord    Op = 0x86 // CONSTRUCT_RECORD{type, field_count}
	OpAccessField        Op = 0x87 // ACCESS_FIELD(name)
	OpConstructVariant   Op = 0x88 // CONSTRUCT_VARIANT{type, case}
	OpMatchVariant       Op = 0x89 // MATCH_VARIANT{type, case}

	// Sequences (0xA0-0xAF)
	OpListGet    Op = 0xA0
	OpListLen    Op = 0xA1
	OpListSet    Op = 0xA2
	OpListAppend Op = 0xA3
	OpMapGet     Op = 0xA4
	OpMapSet     Op = 0xA5
	OpMapHas     Op = 0xA6

	// Strings (0xB0-0xBF)
	OpStrConcat Op = 0xB0
	OpStrLen    Op = 0xB1

	// Debug (0xF0-0xFF)
	OpDebugPrint Op = 0xF0 // prints top of stack without popping
)

var names = map[Op]string{
	OpPush: "PUSH", OpPop: "POP", OpDup: "DUP", OpSwap: "SWAP",
	OpLoadVar: "LOAD_VAR", OpStoreVar: "STORE_VAR", OpLoadArg: "LOAD_ARG",
	OpCall: "CALL", OpCallNative: "CALL_NATIVE", OpReturn: "RETURN",
	OpJump: "JUMP", OpJumpIfFalse: "JUMP_IF_FALSE", OpJumpIfTrue: "JUMP_IF_TRUE", OpHalt: "HALT",
	OpAdd: "ADD", OpSub: "SUB", OpMul: "MUL", OpDiv: "DIV", OpMod: "MOD", OpNeg: "NEG",
	OpEq: "EQ", OpNe: "NE", OpLt: "LT", OpLe: "LE", OpGt: "GT", OpGe: "GE",
	OpAnd: "AND", OpOr: "OR", OpNot: "NOT",
	OpExecEffect: "EXEC_EFFECT",
	OpMakeOk: "MAKE_OK", OpMakeErr: "MAKE_ERR", OpMakeSome: "MAKE_SOME", OpMakeNone: "MAKE_NONE",
	OpMakeList: "MAKE_LIST", OpMakeMap: "MAKE_MAP",
	OpConstructRecord: "CONSTRUCT_RECORD", OpAccessField: "ACCESS_FIELD",
	OpConstructVariant: "CONSTRUCT_VARIANT", OpMatchVariant: "MATCH_VARIANT",
	OpListGet: "LIST_GET", OpListLen: "LIST_LEN", OpListSet: "LIST_SET", OpListAppend: "LIST_APPEND",
	OpMapGet: "MAP_GET", OpMapSet: "MAP_SET", OpMapHas: "MAP_HAS",
	OpStrConcat: "STR_CONCAT", OpStrLen: "STR_LEN",
	OpDebugPrint: "DEBUG_PRINT",
}

func (o Op) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return fmt.Sprintf("Op(0x%02X)", byte(o))
}
