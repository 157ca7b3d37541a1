package main

import (
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/compilectx"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/vm"
)

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fnRef := fs.String("fn", "", "function to call, \"name\" or \"name:version\" (required)")
	argsStr := fs.String("args", "", "comma-separated argument values")
	roleStr := fs.String("role", "", "comma-separated principal roles")
	principalID := fs.String("id", "cli", "principal id")
	_, source, err := readSource(args, fs)
	if err != nil {
		return err
	}
	if *fnRef == "" {
		return fmt.Errorf("-fn is required")
	}

	p, err := buildPipeline(source, compilectx.Options{})
	if err != nil {
		return err
	}
	if p.CC.Diags.HasErrors() {
		f := diag.NewFormatter(source)
		fmt.Print(f.FormatAll(p.CC.Diags.Diagnostics()))
		return fmt.Errorf("refusing to run: module has error diagnostics")
	}

	name := *fnRef
	if i := strings.LastIndex(name, ":"); i >= 0 {
		name = name[:i]
	}
	fn := findFunction(p.Module, name)
	if fn == nil {
		return fmt.Errorf("function %q not declared in module", name)
	}

	argVals, err := parseArgs(*argsStr, fn.Inputs)
	if err != nil {
		return err
	}

	var roles []string
	if *roleStr != "" {
		roles = strings.Split(*roleStr, ",")
	}
	principal := effect.Principal{ID: *principalID, Roles: roles}

	machine := vm.New(p.Bytecode, newEffectRegistry())
	result, err := machine.Execute(*fnRef, argVals, principal)
	if err != nil {
		return err
	}
	fmt.Println(result.String())
	return nil
}

func findFunction(mod *ast.Module, name string) *ast.Function {
	for _, el := range mod.Elements {
		if fn, ok := el.(*ast.Function); ok && fn.Name == name {
			return fn
		}
	}
	return nil
}

func parseArgs(raw string, params []ast.Param) ([]value.Value, error) {
	if raw == "" {
		if len(params) != 0 {
			return nil, fmt.Errorf("function expects %d argument(s), got 0", len(params))
		}
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	if len(parts) != len(params) {
		return nil, fmt.Errorf("function expects %d argument(s), got %d", len(params), len(parts))
	}
	out := make([]value.Value, len(parts))
	for i, part := range parts {
		v, err := parseArgValue(part, params[i].Type)
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s): %w", i+1, params[i].Name, err)
		}
		out[i] = v
	}
	return out, nil
}

func parseArgValue(raw string, t ast.TypeExpr) (value.Value, error) {
	typeName := ""
	if t != nil {
		typeName = t.String()
	}
	switch typeName {
	case "int":
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewInt(n), nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(f), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewBool(b), nil
	default:
		return value.NewString(raw), nil
	}
}
