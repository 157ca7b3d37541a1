// Package effect implements ward's effect handler registry (spec.md
// §4.15): named handlers behind a permission gate, dispatched by the VM
// on EXEC_EFFECT, with a classification-aware audit log. Grounded on
// mercator's pkg/policy/engine/redact.go for the redaction rule and the
// teacher's lib/runtime dispatch-by-name style.
package effect

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/chazu/wardlang/ast"
	"github.com/chazu/wardlang/value"
)

// Principal is the caller identity checked against a handler's
// permission predicate and a function's required roles (spec.md
// GLOSSARY).
type Principal struct {
	ID    string
	Roles []string
}

// HasRole reports whether p holds role by plain string membership,
// spec.md §4.14's security-gate rule (no inheritance at this layer).
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Metadata is per-call effect metadata carried on EXEC_EFFECT (spec.md
// §4.13's operand fields audit_required?/resource?).
type Metadata struct {
	AuditRequired bool
	Resource      string
}

// Handler is one named effect back-end. The in-memory stubs in this
// package implement it directly; a real db/http/fs handler would too.
type Handler interface {
	CheckPermission(operation string, principal Principal) bool
	Execute(operation string, params []value.Value, principal Principal, metadata Metadata) (value.Value, error)
}

// AuditEntry is spec.md §4.15's audit log record, formalized as a struct
// (SPEC_FULL.md §3 addition; the base spec describes its shape in prose
// only).
type AuditEntry struct {
	ID          uuid.UUID
	Timestamp   time.Time
	PrincipalID string
	Handler     string
	Operation   string
	Params      []value.Value // classification-redacted
	Result      *value.Value
	Err         string
	Success     bool
}

// Sink persists audit entries beyond the in-memory log's process
// lifetime (spec.md §4.18's optional durability layer). storage.AuditStore
// implements this.
type Sink interface {
	Append(AuditEntry) error
}

// Registry holds every registered handler plus the append-only audit
// log spec.md §3.8 describes.
type Registry struct {
	handlers map[string]Handler
	audit    []AuditEntry
	sink     Sink
	now      func() time.Time
	newID    func() uuid.UUID
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
		now:      time.Now,
		newID:    uuid.New,
	}
}

// Register adds a named handler.
func (r *Registry) Register(name string, h Handler) {
	r.handlers[name] = h
}

// SetSink installs an optional durable sink; every audit entry appended
// after this call is also forwarded to sink.
func (r *Registry) SetSink(sink Sink) {
	r.sink = sink
}

// Dispatch runs spec.md §4.15's per-call algorithm: look up the handler,
// check its permission predicate, invoke it, and, when
// metadata.AuditRequired is set, append a redacted audit entry for the
// call whether the permission check or execution failed or succeeded.
func (r *Registry) Dispatch(handlerName, operation string, params []value.Value, principal Principal, meta Metadata) (value.Value, error) {
	h, ok := r.handlers[handlerName]
	if !ok {
		return value.Value{}, fmt.Errorf("effect: no handler registered for %q", handlerName)
	}

	if !h.CheckPermission(operation, principal) {
		err := fmt.Errorf("effect: principal %q denied permission for %s.%s", principal.ID, handlerName, operation)
		r.maybeAudit(meta, handlerName, operation, params, principal, nil, err)
		return value.Value{}, err
	}

	result, err := h.Execute(operation, params, principal, meta)
	r.maybeAudit(meta, handlerName, operation, params, principal, &result, err)
	return result, err
}

func (r *Registry) maybeAudit(meta Metadata, handlerName, operation string, params []value.Value, principal Principal, result *value.Value, execErr error) {
	if !meta.AuditRequired {
		return
	}
	entry := AuditEntry{
		ID:          r.newID(),
		Timestamp:   r.now(),
		PrincipalID: principal.ID,
		Handler:     handlerName,
		Operation:   operation,
		Params:      redactAll(params),
		Success:     execErr == nil,
	}
	if execErr != nil {
		entry.Err = execErr.Error()
	} else if result != nil {
		redacted := Redact(*result)
		entry.Result = &redacted
	}
	r.audit = append(r.audit, entry)
	if r.sink != nil {
		_ = r.sink.Append(entry)
	}
}

// AuditLog returns every appended audit entry in dispatch order.
func (r *Registry) AuditLog() []AuditEntry {
	return r.audit
}

// ClearAuditLog empties the in-memory audit log; tests may call this
// (spec.md §3.8: "tests may clear it").
func (r *Registry) ClearAuditLog() {
	r.audit = nil
}

func redactAll(vs []value.Value) []value.Value {
	out := make([]value.Value, len(vs))
	for i, v := range vs {
		out[i] = Redact(v)
	}
	return out
}

// Redact implements spec.md §4.15's classification-aware redaction rule:
// restricted/confidential substitute the literal "[REDACTED]"; internal
// replaces the value with a type-only stub; public or absent classes
// recurse verbatim into records/lists/maps.
func Redact(v value.Value) value.Value {
	switch v.Tag {
	case value.Record:
		if v.HasClass {
			switch ast.Classification(v.Classification) {
			case ast.Restricted, ast.Confidential:
				return value.NewString("[REDACTED]")
			case ast.Internal:
				return value.NewRecord(v.TypeName, map[string]value.Value{"type": value.NewString(v.TypeName)}, v.Classification, true)
			}
		}
		fields := make(map[string]value.Value, len(v.Fields))
		for k, fv := range v.Fields {
			fields[k] = Redact(fv)
		}
		return value.NewRecord(v.TypeName, fields, v.Classification, v.HasClass)
	case value.List:
		items := make([]value.Value, len(v.ListVal))
		for i, e := range v.ListVal {
			items[i] = Redact(e)
		}
		return value.NewList(items)
	case value.Map:
		m := make(map[string]value.Value, len(v.MapVal))
		for k, e := range v.MapVal {
			m[k] = Redact(e)
		}
		return value.NewMap(m)
	default:
		return v
	}
}
