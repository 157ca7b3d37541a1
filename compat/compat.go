// Package compat implements ward's compatibility analyzer (spec.md §4.6):
// classifying the difference between two versions of a function or type
// as fully-compatible, backward-compatible, or breaking.
package compat

import (
	"fmt"

	"github.com/chazu/wardlang/ast"
)

// Level is the overall verdict for a comparison.
type Level int

const (
	FullyCompatible Level = iota
	BackwardCompatible
	Breaking
)

func (l Level) String() string {
	switch l {
	case FullyCompatible:
		return "fully-compatible"
	case BackwardCompatible:
		return "backward-compatible"
	case Breaking:
		return "breaking"
	default:
		return "unknown"
	}
}

// Severity mirrors diag.Severity without importing diag, keeping this
// package a pure comparison engine.
type Severity int

const (
	SevNote Severity = iota
	SevWarning
	SevError
)

// Change is one detected difference, carrying enough detail for a
// diagnostic message.
type Change struct {
	Description string
	Severity    Severity
}

// Report is the full result of comparing an old and new version.
type Report struct {
	Level   Level
	Changes []Change
}

func (r *Report) add(sev Severity, format string, args ...any) {
	r.Changes = append(r.Changes, Change{Description: fmt.Sprintf(format, args...), Severity: sev})
}

func (r *Report) finalize() {
	hasError, hasWarning := false, false
	for _, c := range r.Changes {
		switch c.Severity {
		case SevError:
			hasError = true
		case SevWarning:
			hasWarning = true
		}
	}
	switch {
	case hasError:
		r.Level = Breaking
	case hasWarning:
		r.Level = BackwardCompatible
	default:
		r.Level = FullyCompatible
	}
}

// CompareFunctions classifies the change from old to new per spec.md
// §4.6's rule list, evaluated in the order documented there.
func CompareFunctions(old, new *ast.Function) *Report {
	r := &Report{}

	compareParams(r, "input", old.Inputs, new.Inputs)
	compareParams(r, "output", old.Outputs, new.Outputs)
	compareEffects(r, old.Effects, new.Effects)
	compareSecurity(r, old, new)

	if old.Pure && !new.Pure {
		r.add(SevError, "function lost purity (was pure, now impure)")
	}

	r.finalize()
	return r
}

func compareParams(r *Report, kind string, old, new []ast.Param) {
	if len(new) < len(old) {
		for i := len(new); i < len(old); i++ {
			r.add(SevError, "%s parameter %q removed", kind, old[i].Name)
		}
		return
	}
	for i, op := range old {
		np := new[i]
		if !ast.TypesEqual(op.Type, np.Type) {
			r.add(SevError, "%s parameter %q type changed from %s to %s", kind, op.Name, op.Type, np.Type)
		}
	}
	if len(new) > len(old) {
		r.add(SevError, "%d required %s parameter(s) added beyond prior arity", len(new)-len(old), kind)
	}
}

func compareEffects(r *Report, old, new []ast.EffectRef) {
	oldSet := make(map[ast.EffectRef]bool, len(old))
	for _, e := range old {
		oldSet[e] = true
	}
	newSet := make(map[ast.EffectRef]bool, len(new))
	for _, e := range new {
		newSet[e] = true
	}
	for e := range newSet {
		if !oldSet[e] {
			r.add(SevError, "effect %s.%s added", e.Handler, e.Operation)
		}
	}
	for e := range oldSet {
		if !newSet[e] {
			r.add(SevWarning, "effect %s.%s removed", e.Handler, e.Operation)
		}
	}
}

func compareSecurity(r *Report, old, new *ast.Function) {
	oldRoles := toSet(old.RequiredRoles)
	newRoles := toSet(new.RequiredRoles)
	for role := range newRoles {
		if !oldRoles[role] {
			r.add(SevError, "new required role %q not present in prior version", role)
		}
	}
	for role := range oldRoles {
		if !newRoles[role] {
			r.add(SevWarning, "required role %q dropped (looser security)", role)
		}
	}

	oldPerms := toSet(old.RequiredPerms)
	newPerms := toSet(new.RequiredPerms)
	for p := range newPerms {
		if !oldPerms[p] {
			r.add(SevError, "new required permission %q not present in prior version", p)
		}
	}
	for p := range oldPerms {
		if !newPerms[p] {
			r.add(SevWarning, "required permission %q dropped (looser security)", p)
		}
	}

	if !old.AuditRequired && new.AuditRequired {
		r.add(SevWarning, "audit_required flipped on")
	}
}

func toSet(names []string) map[string]bool {
	s := make(map[string]bool, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// CompareTypes classifies a type's field changes per spec.md §4.6.
func CompareTypes(old, new *ast.TypeDef) *Report {
	r := &Report{}

	oldFields := make(map[string]ast.FieldDef, len(old.Fields))
	for _, f := range old.Fields {
		oldFields[f.Name] = f
	}
	newFields := make(map[string]ast.FieldDef, len(new.Fields))
	for _, f := range new.Fields {
		newFields[f.Name] = f
	}

	for name, of := range oldFields {
		nf, ok := newFields[name]
		if !ok {
			r.add(SevError, "field %q removed", name)
			continue
		}
		if !ast.TypesEqual(of.Type, nf.Type) {
			r.add(SevError, "field %q type changed from %s to %s", name, of.Type, nf.Type)
		}
		if nf.HasClass && of.HasClass && nf.Classification != of.Classification {
			if nf.Classification > of.Classification {
				r.add(SevWarning, "field %q classification increased from %s to %s", name, of.Classification, nf.Classification)
			} else {
				r.add(SevWarning, "field %q classification decreased from %s to %s", name, of.Classification, nf.Classification)
			}
		}
	}
	for name := range newFields {
		if _, ok := oldFields[name]; !ok {
			r.add(SevNote, "field %q added", name)
		}
	}

	r.finalize()
	return r
}

// SuggestBump returns the semver component spec.md §4.6 says should bump
// given a report's level.
func SuggestBump(level Level) string {
	switch level {
	case Breaking:
		return "major"
	case BackwardCompatible:
		return "minor"
	default:
		return "patch"
	}
}
