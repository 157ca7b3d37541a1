package security

import (
	"strings"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/version"
)

// AccessDecision is the outcome of Evaluate, spec.md §7's "structured
// data, not an exception" formalization of a policy decision.
type AccessDecision struct {
	Allowed     bool
	Reason      string
	MatchedRule *ast.Rule
	Policy      *ast.Policy
}

func denied(reason string) AccessDecision {
	return AccessDecision{Allowed: false, Reason: reason}
}

// AllowPermissionSubstringHeuristic gates spec.md §4.9 step 3b's
// documented escape hatch: when a function declares no required
// permissions, a rule's permission strings are matched against the
// function name by dotted-part substring instead. Defaults on to match
// the source's behavior; new policies should declare explicit
// permissions rather than lean on it.
type Options struct {
	AllowPermissionSubstringHeuristic bool
}

// DefaultOptions returns the spec-compatible default.
func DefaultOptions() Options {
	return Options{AllowPermissionSubstringHeuristic: true}
}

type match struct {
	rule   ast.Rule
	policy *ast.Policy
}

// Evaluate runs spec.md §4.9's runtime policy algorithm for one
// (role, function_name, optional function_version) request.
func Evaluate(c *Context, role, fnName, fnVersion string, opts Options) AccessDecision {
	if _, ok := c.Roles[role]; !ok {
		return denied("role does not exist")
	}

	effective := c.EffectiveRoles(role)
	effectiveSet := make(map[string]bool, len(effective))
	for _, r := range effective {
		effectiveSet[r] = true
	}

	fn := c.Functions[fnName]

	var allows, denies []match
	for _, policy := range c.Policies {
		for _, rule := range policy.Rules {
			if !matchesRole(rule, effectiveSet) {
				continue
			}
			if !matchesPermission(rule, fn, fnName, opts) {
				continue
			}
			if !matchesVersionConstraint(rule, fnVersion) {
				continue
			}
			m := match{rule: rule, policy: policy}
			if rule.Effect == ast.Deny {
				denies = append(denies, m)
			} else {
				allows = append(allows, m)
			}
		}
	}

	if len(denies) > 0 {
		m := denies[0]
		reason := "denied by policy"
		if m.rule.Reason != "" {
			reason = m.rule.Reason
		}
		return AccessDecision{Allowed: false, Reason: reason, MatchedRule: &m.rule, Policy: m.policy}
	}
	if len(allows) > 0 {
		m := allows[0]
		return AccessDecision{Allowed: true, Reason: "allowed by policy", MatchedRule: &m.rule, Policy: m.policy}
	}
	if len(c.Policies) == 0 {
		if fn != nil {
			for _, req := range fn.RequiredRoles {
				if effectiveSet[req] {
					return AccessDecision{Allowed: true, Reason: "allowed: role in function's required-roles (no policies defined)"}
				}
			}
		}
		return denied("no policies defined and role is not in function's required-roles")
	}
	return denied("no matching rule")
}

func matchesRole(rule ast.Rule, effectiveSet map[string]bool) bool {
	for _, r := range rule.Roles {
		if effectiveSet[r] {
			return true
		}
	}
	return false
}

func matchesPermission(rule ast.Rule, fn *ast.Function, fnName string, opts Options) bool {
	if fn != nil && len(fn.RequiredPerms) > 0 {
		for _, p := range fn.RequiredPerms {
			for _, rp := range rule.Permissions {
				if p == rp {
					return true
				}
			}
		}
		return false
	}
	if !opts.AllowPermissionSubstringHeuristic {
		return false
	}
	for _, rp := range rule.Permissions {
		for _, part := range strings.Split(rp, ".") {
			if part != "" && strings.Contains(fnName, part) {
				return true
			}
		}
	}
	return false
}

func matchesVersionConstraint(rule ast.Rule, fnVersion string) bool {
	if fnVersion == "" {
		return true
	}
	v, err := version.Parse(fnVersion)
	if err != nil {
		return false
	}
	switch rule.ConstraintKind {
	case ast.VCAllVersions:
		return true
	case ast.VCStableOnly:
		return v.IsStable()
	case ast.VCSpecific:
		for _, s := range rule.SpecificVersion {
			sv, err := version.Parse(s)
			if err == nil && sv.Key() == v.Key() {
				return true
			}
		}
		return false
	case ast.VCRange:
		c, err := version.ParseConstraint(rule.RangeExpr)
		if err != nil {
			return false
		}
		return version.Satisfies(v, c)
	default:
		return true
	}
}

// Accessible returns every function name in c that role can access,
// per CanRoleAccessFunction.
func Accessible(c *Context, role string) []string {
	var out []string
	for name := range c.Functions {
		if c.CanRoleAccessFunction(role, name) {
			out = append(out, name)
		}
	}
	return out
}

// Report bulk-evaluates role against every function name given, for the
// "access-report with totals and per-function decisions" derived report
// spec.md §4.9 names.
type Report struct {
	Role      string
	Decisions map[string]AccessDecision
	Allowed   int
	Denied    int
}

// EvaluateAll produces a Report for role over fnNames.
func EvaluateAll(c *Context, role string, fnNames []string, opts Options) Report {
	r := Report{Role: role, Decisions: make(map[string]AccessDecision, len(fnNames))}
	for _, name := range fnNames {
		var fnVersion string
		if fn, ok := c.Functions[name]; ok && fn.Version != nil {
			fnVersion = fn.Version.Version
		}
		d := Evaluate(c, role, name, fnVersion, opts)
		r.Decisions[name] = d
		if d.Allowed {
			r.Allowed++
		} else {
			r.Denied++
		}
	}
	return r
}
