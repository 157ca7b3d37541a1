// Package value implements ward's tagged runtime value model (spec.md
// §3.6/§4.12): a single Value struct carrying a Tag discriminant plus the
// payload fields for that tag, styled after the teacher's
// lib/runtime/values.go tagged-struct approach rather than an interface
// with one concrete type per tag.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Tag discriminates which payload field of a Value is meaningful.
type Tag int

const (
	Unit Tag = iota
	Bool
	Int
	Float
	String
	Bytes
	UUID
	Timestamp
	JSON
	List
	Map
	Record
	Variant
	FunctionRef
	Result
	Option
)

func (t Tag) String() string {
	switch t {
	case Unit:
		return "unit"
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Bytes:
		return "bytes"
	case UUID:
		return "uuid"
	case Timestamp:
		return "timestamp"
	case JSON:
		return "json"
	case List:
		return "list"
	case Map:
		return "map"
	case Record:
		return "record"
	case Variant:
		return "variant"
	case FunctionRef:
		return "function_ref"
	case Result:
		return "result"
	case Option:
		return "option"
	default:
		return "unknown"
	}
}

// FunctionRefVal is the payload of a function_ref value: a call target
// pinned to a specific version.
type FunctionRefVal struct {
	Name    string
	Version string
}

// Value is the tagged union spec.md §3.6 describes. Only the field(s)
// matching Tag are meaningful; the rest are zero.
type Value struct {
	Tag Tag

	BoolVal   bool
	IntVal    int64
	FloatVal  float64
	StringVal string
	BytesVal  []byte
	UUIDVal   uuid.UUID
	TimeVal   time.Time
	JSONVal   string // already-serialized form

	ListVal []Value
	MapVal  map[string]Value

	TypeName       string
	Fields         map[string]Value
	Classification int // ast.Classification ordinal, -1 if unset
	HasClass       bool

	Case    string // Variant case name
	Payload *Value // Variant payload, Result/Option inner

	FnRef FunctionRefVal

	IsOk   bool // Result: true=ok, false=err
	IsSome bool // Option: true=some, false=none
}

func NewUnit() Value  { return Value{Tag: Unit} }
func NewBool(b bool) Value { return Value{Tag: Bool, BoolVal: b} }

// NewInt truncates x toward zero, matching spec.md §4.12's int(x)
// construction rule (the source floors for non-negatives, which is the
// same operation as truncation for x >= 0).
func NewInt(x float64) Value {
	return Value{Tag: Int, IntVal: int64(math.Trunc(x))}
}

func NewIntFromInt64(x int64) Value     { return Value{Tag: Int, IntVal: x} }
func NewFloat(f float64) Value          { return Value{Tag: Float, FloatVal: f} }
func NewString(s string) Value          { return Value{Tag: String, StringVal: s} }
func NewBytes(b []byte) Value           { return Value{Tag: Bytes, BytesVal: b} }
func NewUUID(u uuid.UUID) Value         { return Value{Tag: UUID, UUIDVal: u} }
func NewTimestamp(t time.Time) Value    { return Value{Tag: Timestamp, TimeVal: t} }
func NewJSON(serialized string) Value   { return Value{Tag: JSON, JSONVal: serialized} }
func NewList(items []Value) Value       { return Value{Tag: List, ListVal: items} }
func NewMap(m map[string]Value) Value   { return Value{Tag: Map, MapVal: m} }

func NewFunctionRef(name, version string) Value {
	return Value{Tag: FunctionRef, FnRef: FunctionRefVal{Name: name, Version: version}}
}

func NewRecord(typeName string, fields map[string]Value, classification int, hasClass bool) Value {
	return Value{Tag: Record, TypeName: typeName, Fields: fields, Classification: classification, HasClass: hasClass}
}

func NewVariant(typeName, caseName string, payload *Value) Value {
	return Value{Tag: Variant, TypeName: typeName, Case: caseName, Payload: payload}
}

func NewOk(inner Value) Value  { return Value{Tag: Result, IsOk: true, Payload: &inner} }
func NewErr(inner Value) Value { return Value{Tag: Result, IsOk: false, Payload: &inner} }
func NewSome(inner Value) Value { return Value{Tag: Option, IsSome: true, Payload: &inner} }
func NewNone() Value            { return Value{Tag: Option, IsSome: false} }

// NewErrString is the common case of an err(String) value, as produced
// by DIV-by-zero (spec.md §4.13) and effect failures (spec.md §4.15).
func NewErrString(msg string) Value {
	inner := NewString(msg)
	return NewErr(inner)
}

// Equal implements spec.md §3.6/§4.12's structural equality: int and
// float never compare equal across tags; records additionally check
// type_name; bytes compare by length and pairwise bytes; timestamps by
// absolute instant; json by serialized form.
func Equal(a, b Value) bool {
	if a.Tag != b.Tag {
		return false
	}
	switch a.Tag {
	case Unit:
		return true
	case Bool:
		return a.BoolVal == b.BoolVal
	case Int:
		return a.IntVal == b.IntVal
	case Float:
		return a.FloatVal == b.FloatVal
	case String:
		return a.StringVal == b.StringVal
	case Bytes:
		if len(a.BytesVal) != len(b.BytesVal) {
			return false
		}
		for i := range a.BytesVal {
			if a.BytesVal[i] != b.BytesVal[i] {
				return false
			}
		}
		return true
	case UUID:
		return a.UUIDVal == b.UUIDVal
	case Timestamp:
		return a.TimeVal.Equal(b.TimeVal)
	case JSON:
		return a.JSONVal == b.JSONVal
	case List:
		if len(a.ListVal) != len(b.ListVal) {
			return false
		}
		for i := range a.ListVal {
			if !Equal(a.ListVal[i], b.ListVal[i]) {
				return false
			}
		}
		return true
	case Map:
		if len(a.MapVal) != len(b.MapVal) {
			return false
		}
		for k, av := range a.MapVal {
			bv, ok := b.MapVal[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Record:
		if a.TypeName != b.TypeName || len(a.Fields) != len(b.Fields) {
			return false
		}
		for k, av := range a.Fields {
			bv, ok := b.Fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	case Variant:
		if a.TypeName != b.TypeName || a.Case != b.Case {
			return false
		}
		return equalPayload(a.Payload, b.Payload)
	case FunctionRef:
		return a.FnRef == b.FnRef
	case Result:
		return a.IsOk == b.IsOk && equalPayload(a.Payload, b.Payload)
	case Option:
		if a.IsSome != b.IsSome {
			return false
		}
		if !a.IsSome {
			return true
		}
		return equalPayload(a.Payload, b.Payload)
	default:
		return false
	}
}

func equalPayload(a, b *Value) bool {
	if a == nil || b == nil {
		return a == b
	}
	return Equal(*a, *b)
}

// IsTruthy reports whether v is treated as true in a conditional; only
// Bool values are used as conditions in ward's surface grammar, but the
// VM defensively treats unit/none/empty-string as falsy for robustness.
func IsTruthy(v Value) bool {
	switch v.Tag {
	case Bool:
		return v.BoolVal
	case Unit:
		return false
	case Option:
		return v.IsSome
	case String:
		return v.StringVal != ""
	default:
		return true
	}
}

// String renders v for debug printing (DEBUG_PRINT, spec.md §4.13) and
// diagnostic messages.
func (v Value) String() string {
	switch v.Tag {
	case Unit:
		return "unit"
	case Bool:
		return fmt.Sprintf("%t", v.BoolVal)
	case Int:
		return fmt.Sprintf("%d", v.IntVal)
	case Float:
		return fmt.Sprintf("%g", v.FloatVal)
	case String:
		return v.StringVal
	case Bytes:
		return fmt.Sprintf("bytes(%d)", len(v.BytesVal))
	case UUID:
		return v.UUIDVal.String()
	case Timestamp:
		return v.TimeVal.Format(time.RFC3339Nano)
	case JSON:
		return v.JSONVal
	case List:
		b, _ := json.Marshal(toJSONable(v))
		return string(b)
	case Map:
		b, _ := json.Marshal(toJSONable(v))
		return string(b)
	case Record:
		return fmt.Sprintf("%s{...}", v.TypeName)
	case Variant:
		return fmt.Sprintf("%s.%s", v.TypeName, v.Case)
	case FunctionRef:
		return fmt.Sprintf("%s:%s", v.FnRef.Name, v.FnRef.Version)
	case Result:
		if v.IsOk {
			return "ok(" + payloadString(v.Payload) + ")"
		}
		return "err(" + payloadString(v.Payload) + ")"
	case Option:
		if v.IsSome {
			return "some(" + payloadString(v.Payload) + ")"
		}
		return "none"
	default:
		return "?"
	}
}

func payloadString(p *Value) string {
	if p == nil {
		return ""
	}
	return p.String()
}

// toJSONable converts a List/Map value into plain Go data for
// encoding/json, used by String().
func toJSONable(v Value) any {
	switch v.Tag {
	case List:
		out := make([]any, len(v.ListVal))
		for i, e := range v.ListVal {
			out[i] = toJSONable(e)
		}
		return out
	case Map:
		out := make(map[string]any, len(v.MapVal))
		for k, e := range v.MapVal {
			out[k] = toJSONable(e)
		}
		return out
	case String:
		return v.StringVal
	case Int:
		return v.IntVal
	case Float:
		return v.FloatVal
	case Bool:
		return v.BoolVal
	default:
		return v.String()
	}
}
