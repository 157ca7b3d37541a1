// Package versionreg implements ward's per-name version registry
// (spec.md §3.4/§4.5): version chains with replace/replaced_by back-links
// and latest/latest-stable tracking, resolved against version.Constraint.
package versionreg

import (
	"fmt"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/version"
)

// VersionedEntity is one registered version of a named function or type.
type VersionedEntity struct {
	Name         string
	Version      version.Version
	Stability    ast.Stability
	Node         any // *ast.Function or *ast.TypeDef
	Replaces     *version.Version
	ReplacedBy   *version.Version
	RollbackSafe bool
}

// chain holds every registered version of one name plus its cached
// latest pointers.
type chain struct {
	byKey        map[string]*VersionedEntity
	latest       *VersionedEntity
	latestStable *VersionedEntity
}

// Registry maps entity name to its version chain.
type Registry struct {
	chains map[string]*chain
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{chains: make(map[string]*chain)}
}

// Register parses and inserts one version per spec.md §4.5's four steps.
// replaces is the predecessor version string, or "" if none.
func (r *Registry) Register(name, versionStr string, stability ast.Stability, node any, replaces string, rollbackSafe bool) (*VersionedEntity, error) {
	v, err := version.Parse(versionStr)
	if err != nil {
		return nil, fmt.Errorf("versionreg: registering %s: %w", name, err)
	}

	c, ok := r.chains[name]
	if !ok {
		c = &chain{byKey: make(map[string]*VersionedEntity)}
		r.chains[name] = c
	}

	ve := &VersionedEntity{
		Name:         name,
		Version:      v,
		Stability:    stability,
		Node:         node,
		RollbackSafe: rollbackSafe,
	}

	if replaces != "" {
		pv, err := version.Parse(replaces)
		if err != nil {
			return nil, fmt.Errorf("versionreg: %s %s replaces invalid version %q: %w", name, versionStr, replaces, err)
		}
		ve.Replaces = &pv
		if pred, ok := c.byKey[pv.Key()]; ok {
			rb := v
			pred.ReplacedBy = &rb
		}
	}

	c.byKey[v.Key()] = ve

	if c.latest == nil || version.Compare(v, c.latest.Version) > 0 {
		c.latest = ve
	}
	if stability == ast.StabilityStable && (c.latestStable == nil || version.Compare(v, c.latestStable.Version) > 0) {
		c.latestStable = ve
	}

	return ve, nil
}

// Lookup returns the registered entity for name at the exact canonical
// key, if any.
func (r *Registry) Lookup(name, key string) (*VersionedEntity, bool) {
	c, ok := r.chains[name]
	if !ok {
		return nil, false
	}
	ve, ok := c.byKey[key]
	return ve, ok
}

// Latest returns the highest-by-ordering registered version of name.
func (r *Registry) Latest(name string) (*VersionedEntity, bool) {
	c, ok := r.chains[name]
	if !ok || c.latest == nil {
		return nil, false
	}
	return c.latest, true
}

// LatestStable returns the highest-by-ordering stable version of name.
func (r *Registry) LatestStable(name string) (*VersionedEntity, bool) {
	c, ok := r.chains[name]
	if !ok || c.latestStable == nil {
		return nil, false
	}
	return c.latestStable, true
}

// All returns every registered version of name, order unspecified.
func (r *Registry) All(name string) []*VersionedEntity {
	c, ok := r.chains[name]
	if !ok {
		return nil
	}
	out := make([]*VersionedEntity, 0, len(c.byKey))
	for _, ve := range c.byKey {
		out = append(out, ve)
	}
	return out
}

// Resolve picks the version of name satisfying c per spec.md §4.5:
// latest/stable return the cached pointers; everything else filters all
// versions and returns the maximum by ordering among those that satisfy.
func (r *Registry) Resolve(name string, c version.Constraint) (*VersionedEntity, bool) {
	switch c.Kind {
	case version.Latest:
		return r.Latest(name)
	case version.Stable:
		return r.LatestStable(name)
	}
	chn, ok := r.chains[name]
	if !ok {
		return nil, false
	}
	var best *VersionedEntity
	for _, ve := range chn.byKey {
		if !version.Satisfies(ve.Version, c) {
			continue
		}
		if best == nil || version.Compare(ve.Version, best.Version) > 0 {
			best = ve
		}
	}
	return best, best != nil
}

// ForwardChain walks replaced_by pointers starting at name@fromKey,
// returning every version reachable in successor order. A visited set
// guards against a malformed (cyclic) chain even though spec.md assumes
// the source data is cycle-free.
func (r *Registry) ForwardChain(name, fromKey string) []*VersionedEntity {
	c, ok := r.chains[name]
	if !ok {
		return nil
	}
	start, ok := c.byKey[fromKey]
	if !ok {
		return nil
	}
	var out []*VersionedEntity
	visited := map[string]bool{start.Version.Key(): true}
	cur := start
	for cur.ReplacedBy != nil {
		key := cur.ReplacedBy.Key()
		if visited[key] {
			break
		}
		next, ok := c.byKey[key]
		if !ok {
			break
		}
		out = append(out, next)
		visited[key] = true
		cur = next
	}
	return out
}

// PredecessorChain walks replaces pointers starting at name@fromKey.
func (r *Registry) PredecessorChain(name, fromKey string) []*VersionedEntity {
	c, ok := r.chains[name]
	if !ok {
		return nil
	}
	start, ok := c.byKey[fromKey]
	if !ok {
		return nil
	}
	var out []*VersionedEntity
	visited := map[string]bool{start.Version.Key(): true}
	cur := start
	for cur.Replaces != nil {
		key := cur.Replaces.Key()
		if visited[key] {
			break
		}
		prev, ok := c.byKey[key]
		if !ok {
			break
		}
		out = append(out, prev)
		visited[key] = true
		cur = prev
	}
	return out
}

// HasMigrationPath reports whether to appears on the forward chain
// starting at from, per spec.md §4.5.
func (r *Registry) HasMigrationPath(name, from, to string) bool {
	for _, ve := range r.ForwardChain(name, from) {
		if ve.Version.Key() == to {
			return true
		}
	}
	return false
}
