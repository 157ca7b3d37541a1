package vm

import (
	"fmt"
	"strings"

	"github.com/chazu/wardlang/value"
)

// NativeFunc is a host function registered under a qualified name (e.g.
// "str.concat") and invoked by CALL_NATIVE. Arity and type checks live
// in the native function itself, per spec.md §4.14.
type NativeFunc func(args []value.Value) (value.Value, error)

// NativeTable is the CALL_NATIVE dispatch table.
type NativeTable struct {
	fns map[string]NativeFunc
}

// NewNativeTable returns a table pre-populated with the standard string
// and collection natives spec.md §4.14 gives as examples.
func NewNativeTable() *NativeTable {
	t := &NativeTable{fns: make(map[string]NativeFunc)}
	t.Register("str.concat", nativeStrConcat)
	t.Register("str.uppercase", nativeStrUppercase)
	t.Register("str.lowercase", nativeStrLowercase)
	t.Register("str.trim", nativeStrTrim)
	t.Register("list.length", nativeListLength)
	t.Register("list.reverse", nativeListReverse)
	t.Register("list.contains", nativeListContains)
	t.Register("map.keys", nativeMapKeys)
	t.Register("map.values", nativeMapValues)
	return t
}

// Register adds or overwrites the native function bound to name.
func (t *NativeTable) Register(name string, fn NativeFunc) {
	t.fns[name] = fn
}

// Lookup returns the function bound to name, if any.
func (t *NativeTable) Lookup(name string) (NativeFunc, bool) {
	fn, ok := t.fns[name]
	return fn, ok
}

func nativeStrConcat(args []value.Value) (value.Value, error) {
	var b strings.Builder
	for _, a := range args {
		if a.Tag != value.String {
			return value.Value{}, fmt.Errorf("str.concat: expected string, got %s", a.Tag)
		}
		b.WriteString(a.StringVal)
	}
	return value.NewString(b.String()), nil
}

func nativeStrUppercase(args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Tag != value.String {
		return value.Value{}, fmt.Errorf("str.uppercase: expected one string argument")
	}
	return value.NewString(strings.ToUpper(args[0].StringVal)), nil
}

func nativeStrLowercase(args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Tag != value.String {
		return value.Value{}, fmt.Errorf("str.lowercase: expected one string argument")
	}
	return value.NewString(strings.ToLower(args[0].StringVal)), nil
}

func nativeStrTrim(args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Tag != value.String {
		return value.Value{}, fmt.Errorf("str.trim: expected one string argument")
	}
	return value.NewString(strings.TrimSpace(args[0].StringVal)), nil
}

func nativeListLength(args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Tag != value.List {
		return value.Value{}, fmt.Errorf("list.length: expected one list argument")
	}
	return value.NewIntFromInt64(int64(len(args[0].ListVal))), nil
}

func nativeListReverse(args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Tag != value.List {
		return value.Value{}, fmt.Errorf("list.reverse: expected one list argument")
	}
	src := args[0].ListVal
	out := make([]value.Value, len(src))
	for i, v := range src {
		out[len(src)-1-i] = v
	}
	return value.NewList(out), nil
}

func nativeListContains(args []value.Value) (value.Value, error) {
	if len(args) != 2 || args[0].Tag != value.List {
		return value.Value{}, fmt.Errorf("list.contains: expected (list, value)")
	}
	for _, v := range args[0].ListVal {
		if value.Equal(v, args[1]) {
			return value.NewBool(true), nil
		}
	}
	return value.NewBool(false), nil
}

func nativeMapKeys(args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Tag != value.Map {
		return value.Value{}, fmt.Errorf("map.keys: expected one map argument")
	}
	out := make([]value.Value, 0, len(args[0].MapVal))
	for k := range args[0].MapVal {
		out = append(out, value.NewString(k))
	}
	return value.NewList(out), nil
}

func nativeMapValues(args []value.Value) (value.Value, error) {
	if len(args) != 1 || args[0].Tag != value.Map {
		return value.Value{}, fmt.Errorf("map.values: expected one map argument")
	}
	out := make([]value.Value, 0, len(args[0].MapVal))
	for _, v := range args[0].MapVal {
		out = append(out, v)
	}
	return value.NewList(out), nil
}
