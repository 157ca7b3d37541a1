package version

import (
	"fmt"
	"regexp"
	"strings"
)

// ConstraintKind tags which of spec.md §3.3's constraint shapes a
// Constraint holds.
type ConstraintKind int

const (
	Exact ConstraintKind = iota
	Caret
	Tilde
	Range
	Latest
	Stable
	Any
)

func (k ConstraintKind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Caret:
		return "caret"
	case Tilde:
		return "tilde"
	case Range:
		return "range"
	case Latest:
		return "latest"
	case Stable:
		return "stable"
	case Any:
		return "any"
	default:
		return "unknown"
	}
}

// Constraint is one parsed version_constraint value.
type Constraint struct {
	Kind ConstraintKind
	// Version is set for Exact, Caret, Tilde.
	Version Version
	// Range bounds; nil means unbounded on that side.
	Min, Max     *Version
	MinInclusive bool
	MaxInclusive bool
	Raw          string
}

var rangeTermPattern = regexp.MustCompile(`^(>=|>|<=|<)\s*(\S+)$`)

// ParseConstraint implements spec.md §4.4's parse_constraint grammar.
func ParseConstraint(s string) (Constraint, error) {
	raw := s
	trimmed := strings.TrimSpace(s)
	switch trimmed {
	case "latest", "*":
		return Constraint{Kind: Latest, Raw: raw}, nil
	case "stable", "stable-only":
		return Constraint{Kind: Stable, Raw: raw}, nil
	case "any", "all-versions":
		return Constraint{Kind: Any, Raw: raw}, nil
	}

	if strings.HasPrefix(trimmed, "^") {
		v, err := Parse(trimmed[1:])
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{Kind: Caret, Version: v, Raw: raw}, nil
	}
	if strings.HasPrefix(trimmed, "~") {
		v, err := Parse(trimmed[1:])
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{Kind: Tilde, Version: v, Raw: raw}, nil
	}

	if !strings.ContainsAny(trimmed, "><") {
		v, err := Parse(trimmed)
		if err != nil {
			return Constraint{}, err
		}
		return Constraint{Kind: Exact, Version: v, Raw: raw}, nil
	}

	return parseRangeConstraint(trimmed, raw)
}

// parseRangeConstraint parses `(>=|>)? V (<=|<)? V?` into a Range
// constraint: up to two bound terms, each an operator and a version.
func parseRangeConstraint(trimmed, raw string) (Constraint, error) {
	c := Constraint{Kind: Range, Raw: raw}
	fields := strings.Fields(trimmed)
	// Terms may arrive as "op version" or "opversion" depending on
	// whitespace; normalize by splitting on the operator boundary.
	terms := splitRangeTerms(fields)
	if len(terms) == 0 {
		return Constraint{}, fmt.Errorf("version: empty range constraint %q", raw)
	}
	for _, term := range terms {
		m := rangeTermPattern.FindStringSubmatch(term)
		if m == nil {
			return Constraint{}, fmt.Errorf("version: invalid range term %q in %q", term, raw)
		}
		op, verStr := m[1], m[2]
		v, err := Parse(verStr)
		if err != nil {
			return Constraint{}, err
		}
		switch op {
		case ">=":
			c.Min, c.MinInclusive = &v, true
		case ">":
			c.Min, c.MinInclusive = &v, false
		case "<=":
			c.Max, c.MaxInclusive = &v, true
		case "<":
			c.Max, c.MaxInclusive = &v, false
		}
	}
	if c.Min == nil && c.Max == nil {
		return Constraint{}, fmt.Errorf("version: range constraint %q has no bounds", raw)
	}
	return c, nil
}

// splitRangeTerms reassembles whitespace-separated tokens into
// "op version" terms regardless of whether the source put a space
// between the operator and the version.
func splitRangeTerms(fields []string) []string {
	var terms []string
	for i := 0; i < len(fields); i++ {
		f := fields[i]
		if f == ">=" || f == ">" || f == "<=" || f == "<" {
			if i+1 < len(fields) {
				terms = append(terms, f+" "+fields[i+1])
				i++
			}
			continue
		}
		if strings.HasPrefix(f, ">=") || strings.HasPrefix(f, "<=") {
			terms = append(terms, f[:2]+" "+f[2:])
			continue
		}
		if strings.HasPrefix(f, ">") || strings.HasPrefix(f, "<") {
			terms = append(terms, f[:1]+" "+f[1:])
			continue
		}
	}
	return terms
}

// Satisfies reports whether v satisfies c. latest/stable resolution
// against a registry's cached pointers happens in versionreg; here
// "latest" and "any" are vacuously true per spec.md §4.4.
func Satisfies(v Version, c Constraint) bool {
	switch c.Kind {
	case Latest, Any:
		return true
	case Stable:
		return v.IsStable()
	case Exact:
		return Compare(v, c.Version) == 0
	case Caret:
		return Compare(v, c.Version) >= 0 && Compare(v, NextMajor(c.Version)) < 0
	case Tilde:
		return Compare(v, c.Version) >= 0 && Compare(v, NextMinor(c.Version)) < 0
	case Range:
		if c.Min != nil {
			cmp := Compare(v, *c.Min)
			if c.MinInclusive && cmp < 0 {
				return false
			}
			if !c.MinInclusive && cmp <= 0 {
				return false
			}
		}
		if c.Max != nil {
			cmp := Compare(v, *c.Max)
			if c.MaxInclusive && cmp > 0 {
				return false
			}
			if !c.MaxInclusive && cmp >= 0 {
				return false
			}
		}
		return true
	default:
		return false
	}
}
