package main

import (
	"flag"
	"fmt"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/compilectx"
	"github.com/chazu/wardlang/diag"
)

// cmdInspect implements spec.md §6's inspect(module, flags) external
// contract: a human-readable report over the registries a register_module
// pass populated, gated by the recognized flags {versions, security,
// diagnostics}.
func cmdInspect(args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	showVersions := fs.Bool("versions", false, "print the version registry")
	showSecurity := fs.Bool("security", false, "print roles/permissions/policies")
	showDiagnostics := fs.Bool("diagnostics", false, "print accumulated diagnostics")
	_, source, err := readSource(args, fs)
	if err != nil {
		return err
	}
	if !*showVersions && !*showSecurity && !*showDiagnostics {
		*showVersions, *showSecurity, *showDiagnostics = true, true, true
	}

	p, err := buildPipeline(source, compilectx.Options{})
	if err != nil {
		return err
	}

	if *showVersions {
		fmt.Println("== versions ==")
		inspectVersions(p)
	}
	if *showSecurity {
		fmt.Println("== security ==")
		inspectSecurity(p)
	}
	if *showDiagnostics {
		fmt.Println("== diagnostics ==")
		f := diag.NewFormatter(source)
		fmt.Print(f.FormatAll(p.CC.Diags.Diagnostics()))
	}
	return nil
}

func inspectVersions(p *pipeline) {
	seen := make(map[string]bool)
	for _, el := range p.Module.Elements {
		var name string
		var reg = p.CC.Functions
		switch e := el.(type) {
		case *ast.Function:
			name = e.Name
		case *ast.TypeDef:
			name = e.Name
			reg = p.CC.Types
		default:
			continue
		}
		if seen[name] {
			continue
		}
		seen[name] = true
		for _, ve := range reg.All(name) {
			marker := ""
			if latest, ok := reg.Latest(name); ok && latest.Version == ve.Version {
				marker = " (latest)"
			}
			fmt.Printf("  %s %s [%s]%s\n", name, ve.Version, ve.Stability, marker)
		}
	}
}

func inspectSecurity(p *pipeline) {
	for name, role := range p.Security.Roles {
		fmt.Printf("  role %s: perms=%v parents=%v\n", name, role.Permissions, role.Parents)
	}
	for name, perm := range p.Security.Permissions {
		fmt.Printf("  permission %s: audit_required=%v\n", name, perm.AuditRequired)
	}
	for _, pol := range p.Security.Policies {
		fmt.Printf("  policy %s: %d rule(s)\n", pol.Name, len(pol.Rules))
	}
}
