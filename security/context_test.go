package security

import (
	"testing"

	"github.com/chazu/wardlang/ast"
)

func TestEffectiveRolesWithInheritance(t *testing.T) {
	c := NewContext()
	c.Roles["admin"] = &ast.Role{Name: "admin"}
	c.Roles["editor"] = &ast.Role{Name: "editor", Parents: []string{"admin"}}
	c.Roles["writer"] = &ast.Role{Name: "writer", Parents: []string{"editor"}}

	got := c.EffectiveRoles("writer")
	want := map[string]bool{"writer": true, "editor": true, "admin": true}
	if len(got) != len(want) {
		t.Fatalf("EffectiveRoles = %v, want 3 entries", got)
	}
	for _, r := range got {
		if !want[r] {
			t.Errorf("unexpected role %q in effective set", r)
		}
	}
}

func TestEffectiveRolesCycleSafe(t *testing.T) {
	c := NewContext()
	c.Roles["a"] = &ast.Role{Name: "a", Parents: []string{"b"}}
	c.Roles["b"] = &ast.Role{Name: "b", Parents: []string{"a"}}

	got := c.EffectiveRoles("a")
	if len(got) != 2 {
		t.Fatalf("EffectiveRoles on a cycle = %v, want exactly [a b]", got)
	}
}

func TestCanRoleAccessFunctionViaRequiredRole(t *testing.T) {
	c := NewContext()
	c.Roles["admin"] = &ast.Role{Name: "admin"}
	c.Functions["deleteUser"] = &ast.Function{Name: "deleteUser", RequiredRoles: []string{"admin"}}

	if !c.CanRoleAccessFunction("admin", "deleteUser") {
		t.Error("expected admin to access deleteUser via required role")
	}
	if c.CanRoleAccessFunction("guest", "deleteUser") {
		t.Error("did not expect guest to access deleteUser")
	}
}

func TestCanRoleAccessFunctionViaPermission(t *testing.T) {
	c := NewContext()
	c.Roles["editor"] = &ast.Role{Name: "editor", Permissions: []string{"content.edit"}}
	c.Functions["updatePost"] = &ast.Function{Name: "updatePost", RequiredPerms: []string{"content.edit"}}

	if !c.CanRoleAccessFunction("editor", "updatePost") {
		t.Error("expected editor to access updatePost via permission")
	}
}
