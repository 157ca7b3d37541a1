package security

import (
	"fmt"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/diag"
)

// Analyze runs pass 2 of spec.md §4.8 against an already-registered
// Context, appending SEC001-SEC009 diagnostics to b.
func Analyze(c *Context, b *diag.Builder) {
	checkRoleInheritance(c, b)
	checkRolePermissionsExist(c, b)
	checkPolicyReferences(c, b)
	checkFunctionRequirements(c, b)
	checkSecretsAudit(c, b)
	checkClassifiedFieldExposure(c, b)
}

// checkRoleInheritance covers SEC001 (missing parent) and SEC002 (cycle).
func checkRoleInheritance(c *Context, b *diag.Builder) {
	for name, r := range c.Roles {
		for _, parent := range r.Parents {
			if _, ok := c.Roles[parent]; !ok {
				b.AddCode(diag.Error, "SEC001", fmt.Sprintf("role %q inherits from undeclared role %q", name, parent), r.Sp)
			}
		}
	}
	for name := range c.Roles {
		if cyclePath := detectCycle(c, name); cyclePath != "" {
			r := c.Roles[name]
			b.AddCode(diag.Error, "SEC002", fmt.Sprintf("role %q participates in an inheritance cycle: %s", name, cyclePath), r.Sp)
		}
	}
}

// detectCycle runs a DFS with a per-traversal visited set from start,
// returning a human-readable cycle path or "" if none is found.
func detectCycle(c *Context, start string) string {
	visited := make(map[string]bool)
	var path []string
	var walk func(name string) string
	walk = func(name string) string {
		if name == start && len(path) > 0 {
			return pathString(append(path, name))
		}
		if visited[name] {
			return ""
		}
		visited[name] = true
		path = append(path, name)
		r, ok := c.Roles[name]
		if ok {
			for _, parent := range r.Parents {
				if found := walk(parent); found != "" {
					return found
				}
			}
		}
		path = path[:len(path)-1]
		return ""
	}
	r, ok := c.Roles[start]
	if !ok {
		return ""
	}
	path = append(path, start)
	visited[start] = true
	for _, parent := range r.Parents {
		if found := walk(parent); found != "" {
			return found
		}
	}
	return ""
}

func pathString(names []string) string {
	s := names[0]
	for _, n := range names[1:] {
		s += " -> " + n
	}
	return s
}

// checkRolePermissionsExist is SEC003.
func checkRolePermissionsExist(c *Context, b *diag.Builder) {
	for name, r := range c.Roles {
		for _, p := range r.Permissions {
			if _, ok := c.Permissions[p]; !ok {
				b.AddCode(diag.Warning, "SEC003", fmt.Sprintf("role %q references undeclared permission %q", name, p), r.Sp)
			}
		}
	}
}

// checkPolicyReferences is SEC004 (roles) and SEC005 (permissions).
func checkPolicyReferences(c *Context, b *diag.Builder) {
	for _, policy := range c.Policies {
		for _, rule := range policy.Rules {
			for _, role := range rule.Roles {
				if _, ok := c.Roles[role]; !ok {
					b.AddCode(diag.Error, "SEC004", fmt.Sprintf("policy %q rule references undeclared role %q", policy.Name, role), policy.Sp)
				}
			}
			for _, perm := range rule.Permissions {
				if _, ok := c.Permissions[perm]; !ok {
					b.AddCode(diag.Warning, "SEC005", fmt.Sprintf("policy %q rule references undeclared permission %q", policy.Name, perm), policy.Sp)
				}
			}
		}
	}
}

// checkFunctionRequirements is SEC006 (roles) and SEC007 (permissions).
func checkFunctionRequirements(c *Context, b *diag.Builder) {
	for name, fn := range c.Functions {
		for _, role := range fn.RequiredRoles {
			if _, ok := c.Roles[role]; !ok {
				b.AddCode(diag.Error, "SEC006", fmt.Sprintf("function %q requires undeclared role %q", name, role), fn.Sp)
			}
		}
		for _, perm := range fn.RequiredPerms {
			if _, ok := c.Permissions[perm]; !ok {
				b.AddCode(diag.Warning, "SEC007", fmt.Sprintf("function %q requires undeclared permission %q", name, perm), fn.Sp)
			}
		}
	}
}

// checkSecretsAudit is SEC008: handles_secrets without audit_required.
func checkSecretsAudit(c *Context, b *diag.Builder) {
	for name, fn := range c.Functions {
		if fn.HandlesSecrets && !fn.AuditRequired {
			b.AddCode(diag.Warning, "SEC008", fmt.Sprintf("function %q handles secrets but is not audit_required", name), fn.Sp).
				Hint("set :audit_required true")
		}
	}
}

// checkClassifiedFieldExposure is SEC009: a type with confidential or
// restricted fields, referenced as input or output by a non-auditing
// function, is flagged.
func checkClassifiedFieldExposure(c *Context, b *diag.Builder) {
	sensitive := make(map[string]bool)
	for name, td := range c.Types {
		if td.MaxClassification() >= ast.Confidential {
			sensitive[name] = true
		}
	}
	if len(sensitive) == 0 {
		return
	}
	for name, fn := range c.Functions {
		if fn.AuditRequired {
			continue
		}
		for _, p := range append(append([]ast.Param{}, fn.Inputs...), fn.Outputs...) {
			if tn := namedTypeName(p.Type); tn != "" && sensitive[tn] {
				b.AddCode(diag.Warning, "SEC009", fmt.Sprintf("function %q exposes classified type %q without audit_required", name, tn), fn.Sp)
			}
		}
	}
}

func namedTypeName(t ast.TypeExpr) string {
	if nt, ok := t.(*ast.NamedType); ok {
		return nt.Name
	}
	return ""
}
