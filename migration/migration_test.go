package migration

import (
	"testing"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/version"
	"github.com/chazu/wardlang/versionreg"
)

func v(s string) version.Version {
	ver, err := version.Parse(s)
	if err != nil {
		panic(err)
	}
	return ver
}

func strType(name string) ast.TypeExpr { return ast.NewTypeExpr(name, nil) }

func TestValidateAllConditionsMet(t *testing.T) {
	source := &ast.Function{Inputs: []ast.Param{{Name: "a", Type: strType("int")}}}
	target := &ast.Function{Inputs: []ast.Param{{Name: "b", Type: strType("float")}}}
	migrateFn := &ast.Function{
		Pure:    true,
		Inputs:  []ast.Param{{Name: "a", Type: strType("int")}},
		Outputs: []ast.Param{{Name: "b", Type: strType("float")}},
		Version: &ast.VersionInfo{RollbackSafe: true},
	}
	rec := &Record{Node: migrateFn}
	Validate(rec, source, target, false)
	if !rec.Validated {
		t.Fatalf("expected validated, issues: %v", rec.Issues)
	}
}

func TestValidateRejectsImpure(t *testing.T) {
	source := &ast.Function{}
	target := &ast.Function{}
	migrateFn := &ast.Function{Pure: false, Version: &ast.VersionInfo{RollbackSafe: true}}
	rec := &Record{Node: migrateFn}
	Validate(rec, source, target, false)
	if rec.Validated {
		t.Fatal("expected invalid migration for impure function")
	}
}

func TestValidateRejectsWhenFullyCompatible(t *testing.T) {
	source := &ast.Function{}
	target := &ast.Function{}
	migrateFn := &ast.Function{Pure: true, Version: &ast.VersionInfo{RollbackSafe: true}}
	rec := &Record{Node: migrateFn}
	Validate(rec, source, target, true)
	if rec.Validated {
		t.Fatal("expected invalid migration when source/target are fully compatible")
	}
}

func TestBuildPathCompleteAndPartial(t *testing.T) {
	vr := versionreg.New()
	vr.Register("greet", "1.0.0", ast.StabilityStable, nil, "", false)
	vr.Register("greet", "2.0.0", ast.StabilityStable, nil, "1.0.0", false)
	vr.Register("greet", "3.0.0", ast.StabilityStable, nil, "2.0.0", false)

	mr := New()
	rec12 := mr.Register("greet", v("1.0.0"), v("2.0.0"), &ast.Function{Pure: true})
	rec12.Validated = true
	rec23 := mr.Register("greet", v("2.0.0"), v("3.0.0"), &ast.Function{Pure: true})
	rec23.Validated = true

	path := BuildPath("greet", v("1.0.0"), v("3.0.0"), vr, mr)
	if !path.IsComplete || len(path.Records) != 2 {
		t.Fatalf("path = %+v, want complete 2-step path", path)
	}

	mr2 := New()
	rec := mr2.Register("greet", v("1.0.0"), v("2.0.0"), &ast.Function{Pure: true})
	rec.Validated = true
	partial := BuildPath("greet", v("1.0.0"), v("3.0.0"), vr, mr2)
	if partial.IsComplete {
		t.Fatal("expected an incomplete path when the 2.0.0->3.0.0 migration is missing")
	}
}

func TestAnalyzeCoverage(t *testing.T) {
	mr := New()
	rec := mr.Register("greet", v("1.0.0"), v("2.0.0"), &ast.Function{Pure: true})
	rec.Validated = true

	cov := AnalyzeCoverage("greet", []version.Version{v("1.0.0"), v("2.0.0"), v("3.0.0")}, mr)
	if cov.TotalPairs != 3 {
		t.Fatalf("TotalPairs = %d, want 3", cov.TotalPairs)
	}
	if cov.CoveredPairs != 1 {
		t.Fatalf("CoveredPairs = %d, want 1", cov.CoveredPairs)
	}
	if len(cov.MissingPairs) != 2 {
		t.Fatalf("MissingPairs = %v, want 2 entries", cov.MissingPairs)
	}
}
