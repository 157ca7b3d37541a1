package versionreg

import (
	"testing"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/version"
)

func TestRegisterTracksLatestAndLatestStable(t *testing.T) {
	r := New()
	if _, err := r.Register("greet", "1.0.0", ast.StabilityStable, nil, "", false); err != nil {
		t.Fatalf("Register 1.0.0: %v", err)
	}
	if _, err := r.Register("greet", "1.1.0-beta", ast.StabilityBeta, nil, "", false); err != nil {
		t.Fatalf("Register 1.1.0-beta: %v", err)
	}

	latest, ok := r.Latest("greet")
	if !ok || latest.Version.String() != "1.1.0-beta" {
		t.Fatalf("Latest() = %+v, %v, want 1.1.0-beta", latest, ok)
	}
	stable, ok := r.LatestStable("greet")
	if !ok || stable.Version.String() != "1.0.0" {
		t.Fatalf("LatestStable() = %+v, %v, want 1.0.0", stable, ok)
	}
}

func TestRegisterReplacesSetsBackLink(t *testing.T) {
	r := New()
	if _, err := r.Register("greet", "1.0.0", ast.StabilityStable, nil, "", false); err != nil {
		t.Fatalf("Register 1.0.0: %v", err)
	}
	if _, err := r.Register("greet", "2.0.0", ast.StabilityStable, nil, "1.0.0", true); err != nil {
		t.Fatalf("Register 2.0.0: %v", err)
	}

	old, ok := r.Lookup("greet", "1.0.0")
	if !ok {
		t.Fatal("expected 1.0.0 to be registered")
	}
	if old.ReplacedBy == nil || old.ReplacedBy.Key() != "2.0.0" {
		t.Fatalf("1.0.0.ReplacedBy = %v, want 2.0.0", old.ReplacedBy)
	}

	neu, ok := r.Lookup("greet", "2.0.0")
	if !ok || neu.Replaces == nil || neu.Replaces.Key() != "1.0.0" {
		t.Fatalf("2.0.0.Replaces = %v, want 1.0.0", neu.Replaces)
	}
}

func TestResolveConstraintPicksHighestSatisfying(t *testing.T) {
	r := New()
	r.Register("greet", "1.0.0", ast.StabilityStable, nil, "", false)
	r.Register("greet", "1.5.0", ast.StabilityStable, nil, "", false)
	r.Register("greet", "2.0.0", ast.StabilityStable, nil, "", false)

	caret, _ := version.ParseConstraint("^1.0.0")
	ve, ok := r.Resolve("greet", caret)
	if !ok || ve.Version.String() != "1.5.0" {
		t.Fatalf("Resolve(^1.0.0) = %+v, %v, want 1.5.0", ve, ok)
	}
}

func TestHasMigrationPath(t *testing.T) {
	r := New()
	r.Register("greet", "1.0.0", ast.StabilityStable, nil, "", false)
	r.Register("greet", "2.0.0", ast.StabilityStable, nil, "1.0.0", false)
	r.Register("greet", "3.0.0", ast.StabilityStable, nil, "2.0.0", false)

	if !r.HasMigrationPath("greet", "1.0.0", "3.0.0") {
		t.Error("expected a migration path from 1.0.0 to 3.0.0")
	}
	if r.HasMigrationPath("greet", "3.0.0", "1.0.0") {
		t.Error("did not expect a forward path from 3.0.0 to 1.0.0")
	}
}
