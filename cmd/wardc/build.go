package main

import (
	"fmt"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/bytecode"
	"github.com/chazu/wardlang/codegen"
	"github.com/chazu/wardlang/compilectx"
	"github.com/chazu/wardlang/diag"
	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/parser"
	"github.com/chazu/wardlang/security"
	"github.com/chazu/wardlang/version"
)

// pipeline is the result of running source text through every core
// operation spec.md §6 names: tokenize (implicit in parser.Parse),
// parse, register_module (both the versioning and security registries),
// and bytecode compilation.
type pipeline struct {
	Source   string
	Module   *ast.Module
	CC       *compilectx.Context
	Security *security.Context
	Bytecode *bytecode.Module
}

// buildPipeline runs the full front-end-through-bytecode path over
// source, matching compilectx.Context.RegisterModule's "errors prevent
// registration but do not halt compilation of other entities" policy
// (spec.md §7): a function that fails to compile is skipped, not fatal,
// and surfaces as an additional diagnostic instead.
func buildPipeline(source string, opts compilectx.Options) (*pipeline, error) {
	mod, err := parser.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}

	cc := compilectx.New(opts)
	cc.RegisterModule(mod)

	secCtx := security.NewContext()
	secCtx.RegisterModule(mod)
	security.Analyze(secCtx, cc.Diags)

	bc := bytecode.NewModule(mod.Name, "")
	for name, perm := range secCtx.Permissions {
		bc.Perms[name] = perm
	}
	for name, role := range secCtx.Roles {
		bc.Roles[name] = role
	}
	bc.Policies = append(bc.Policies, secCtx.Policies...)
	for name, td := range secCtx.Types {
		bc.Types[name] = td
	}

	for _, el := range mod.Elements {
		fn, ok := el.(*ast.Function)
		if !ok || fn.Version == nil {
			continue
		}
		v, err := version.Parse(fn.Version.Version)
		if err != nil {
			continue // already reported as VER001 during RegisterModule
		}
		rec, err := codegen.CompileFunction(fn, v)
		if err != nil {
			cc.Diags.Add(diag.Error, fmt.Sprintf("function %q: %v", fn.Name, err), fn.Sp)
			continue
		}
		bc.AddFunction(rec)
	}

	return &pipeline{Source: source, Module: mod, CC: cc, Security: secCtx, Bytecode: bc}, nil
}

// newEffectRegistry wires the five standard mock handlers spec.md §4.15
// names, the only effect back-ends in scope for this CLI.
func newEffectRegistry() *effect.Registry {
	r := effect.New()
	effect.RegisterStandard(r)
	return r
}
