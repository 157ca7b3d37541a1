// Package migration implements ward's migration registry (spec.md
// §3.4/§4.7): validated argument-translation functions between versions
// of the same target function, path-building across a replacement
// chain, and coverage analysis.
package migration

import (
	"sort"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/version"
	"github.com/chazu/wardlang/versionreg"
)

// Record is one registered migration.
type Record struct {
	TargetName string
	From, To   version.Version
	Node       *ast.Function
	Validated  bool
	Issues     []string
}

// Registry holds every migration record, grouped by target function.
type Registry struct {
	byTarget map[string][]*Record
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{byTarget: make(map[string][]*Record)}
}

// Register appends a migration record for targetFnName.
func (r *Registry) Register(targetFnName string, from, to version.Version, node *ast.Function) *Record {
	rec := &Record{TargetName: targetFnName, From: from, To: to, Node: node}
	r.byTarget[targetFnName] = append(r.byTarget[targetFnName], rec)
	return rec
}

// Validate runs the §3.4 predicate against a migration record: its input
// parameter types must equal the source function's input types; its
// output types must equal the target function's input types (migrations
// translate arguments forward); it must be pure and rollback-safe; and
// the source->target pair must not already be fully compatible.
func Validate(rec *Record, source, target *ast.Function, fullyCompatible bool) {
	rec.Issues = nil

	if !paramTypesEqual(rec.Node.Inputs, source.Inputs) {
		rec.Issues = append(rec.Issues, "migration inputs do not match source function's input types")
	}
	if !paramTypesEqual(rec.Node.Outputs, target.Inputs) {
		rec.Issues = append(rec.Issues, "migration outputs do not match target function's input types")
	}
	if !rec.Node.Pure {
		rec.Issues = append(rec.Issues, "migration function is not pure")
	}
	if rec.Node.Version == nil || !rec.Node.Version.RollbackSafe {
		rec.Issues = append(rec.Issues, "migration function is not rollback-safe")
	}
	if fullyCompatible {
		rec.Issues = append(rec.Issues, "source and target are fully compatible; no migration is needed")
	}

	rec.Validated = len(rec.Issues) == 0
}

func paramTypesEqual(a, b []ast.Param) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !ast.TypesEqual(a[i].Type, b[i].Type) {
			return false
		}
	}
	return true
}

// find returns the record exactly covering from->to for fnName, if any.
func (r *Registry) find(fnName string, from, to version.Version) *Record {
	for _, rec := range r.byTarget[fnName] {
		if rec.From.Key() == from.Key() && rec.To.Key() == to.Key() {
			return rec
		}
	}
	return nil
}

// Path is the result of BuildPath.
type Path struct {
	Records    []*Record
	IsComplete bool
}

// BuildPath walks the replacement chain starting at from (per the
// version registry vr), looking up a migration for each consecutive
// pair. It stops at the first gap; IsComplete is true iff the walk
// reaches exactly to.
func BuildPath(fnName string, from, to version.Version, vr *versionreg.Registry, mr *Registry) Path {
	chain := vr.ForwardChain(fnName, from.Key())
	cur := from
	var path Path
	for _, ve := range chain {
		rec := mr.find(fnName, cur, ve.Version)
		if rec == nil {
			return path
		}
		path.Records = append(path.Records, rec)
		cur = ve.Version
		if cur.Key() == to.Key() {
			path.IsComplete = true
			return path
		}
	}
	path.IsComplete = cur.Key() == to.Key()
	return path
}

// Coverage is the result of AnalyzeCoverage.
type Coverage struct {
	TotalPairs         int
	CoveredPairs       int
	CoveragePercentage float64
	MissingPairs       [][2]version.Version
}

// AnalyzeCoverage enumerates every ordered version pair (v_i, v_j), i<j,
// from the entity's sorted versions and counts validated migrations that
// exactly cover each pair.
func AnalyzeCoverage(fnName string, versions []version.Version, mr *Registry) Coverage {
	sorted := append([]version.Version(nil), versions...)
	sort.Slice(sorted, func(i, j int) bool { return version.Compare(sorted[i], sorted[j]) < 0 })

	var cov Coverage
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			cov.TotalPairs++
			rec := mr.find(fnName, sorted[i], sorted[j])
			if rec != nil && rec.Validated {
				cov.CoveredPairs++
			} else {
				cov.MissingPairs = append(cov.MissingPairs, [2]version.Version{sorted[i], sorted[j]})
			}
		}
	}
	if cov.TotalPairs > 0 {
		cov.CoveragePercentage = 100 * float64(cov.CoveredPairs) / float64(cov.TotalPairs)
	}
	return cov
}
