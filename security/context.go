// Package security implements ward's security subsystem (spec.md §4.8,
// §4.9): a registration context, a static analyzer emitting SEC001-SEC009
// diagnostics, and a deny-precedence runtime policy evaluator.
package security

import (
	"github.com/chazu/wardlang/ast"
)

// Context registers every role/permission/policy/function/type in a
// module and answers role-inheritance and access queries against them.
type Context struct {
	Roles       map[string]*ast.Role
	Permissions map[string]*ast.Permission
	Policies    []*ast.Policy
	Functions   map[string]*ast.Function
	Types       map[string]*ast.TypeDef
}

// NewContext returns an empty Context.
func NewContext() *Context {
	return &Context{
		Roles:       make(map[string]*ast.Role),
		Permissions: make(map[string]*ast.Permission),
		Functions:   make(map[string]*ast.Function),
		Types:       make(map[string]*ast.TypeDef),
	}
}

// RegisterModule is pass 1 of spec.md §4.8: register every element of m
// into the context, keyed by name.
func (c *Context) RegisterModule(m *ast.Module) {
	for _, el := range m.Elements {
		switch e := el.(type) {
		case *ast.Role:
			c.Roles[e.Name] = e
		case *ast.Permission:
			c.Permissions[e.Name] = e
		case *ast.Policy:
			c.Policies = append(c.Policies, e)
		case *ast.Function:
			c.Functions[e.Name] = e
		case *ast.TypeDef:
			c.Types[e.Name] = e
		}
	}
}

// EffectiveRoles returns role plus every ancestor reachable through
// Parents, guarded against cycles with a visited set.
func (c *Context) EffectiveRoles(role string) []string {
	visited := make(map[string]bool)
	var out []string
	var walk func(name string)
	walk = func(name string) {
		if visited[name] {
			return
		}
		visited[name] = true
		out = append(out, name)
		r, ok := c.Roles[name]
		if !ok {
			return
		}
		for _, parent := range r.Parents {
			walk(parent)
		}
	}
	walk(role)
	return out
}

// RoleHasPermission reports whether role, or any ancestor, lists perm.
func (c *Context) RoleHasPermission(role, perm string) bool {
	for _, r := range c.EffectiveRoles(role) {
		rr, ok := c.Roles[r]
		if !ok {
			continue
		}
		for _, p := range rr.Permissions {
			if p == perm {
				return true
			}
		}
	}
	return false
}

// CanRoleAccessFunction is spec.md §4.8's can_role_access_function query:
// true iff role (with inheritance) is listed in the function's required
// roles, or holds any of its required permissions.
func (c *Context) CanRoleAccessFunction(role, fnName string) bool {
	fn, ok := c.Functions[fnName]
	if !ok {
		return false
	}
	effective := c.EffectiveRoles(role)
	effectiveSet := make(map[string]bool, len(effective))
	for _, r := range effective {
		effectiveSet[r] = true
	}
	for _, req := range fn.RequiredRoles {
		if effectiveSet[req] {
			return true
		}
	}
	for _, perm := range fn.RequiredPerms {
		if c.RoleHasPermission(role, perm) {
			return true
		}
	}
	return false
}
