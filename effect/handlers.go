package effect

import (
	"fmt"
	"sync"

	"github.com/chazu/wardlang/value"
)

// DBHandler is an in-memory mock of a database effect back-end. Its
// permission predicate and mock table are single-threaded test fixtures
// per spec.md §5's "the stubs in scope assume single-threaded test use",
// though a mutex is kept for the (unspecified) concurrent case.
type DBHandler struct {
	mu           sync.Mutex
	tables       map[string]map[string]value.Value // table -> key -> row
	allowedRoles []string
}

// NewDBHandler returns a DBHandler whose CheckPermission passes for any
// principal holding one of allowedRoles (empty means unrestricted).
func NewDBHandler(allowedRoles ...string) *DBHandler {
	return &DBHandler{tables: make(map[string]map[string]value.Value), allowedRoles: allowedRoles}
}

func (h *DBHandler) CheckPermission(operation string, principal Principal) bool {
	if len(h.allowedRoles) == 0 {
		return true
	}
	for _, r := range h.allowedRoles {
		if principal.HasRole(r) {
			return true
		}
	}
	return false
}

func (h *DBHandler) Execute(operation string, params []value.Value, principal Principal, meta Metadata) (value.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	table := meta.Resource
	switch operation {
	case "read":
		if len(params) < 1 {
			return value.Value{}, fmt.Errorf("db.read: missing key")
		}
		key := params[0].String()
		row, ok := h.tables[table][key]
		if !ok {
			return value.NewNone(), nil
		}
		return value.NewSome(row), nil
	case "write":
		if len(params) < 2 {
			return value.Value{}, fmt.Errorf("db.write: missing key/value")
		}
		key := params[0].String()
		if h.tables[table] == nil {
			h.tables[table] = make(map[string]value.Value)
		}
		h.tables[table][key] = params[1]
		return value.NewOk(value.NewUnit()), nil
	case "delete":
		if len(params) < 1 {
			return value.Value{}, fmt.Errorf("db.delete: missing key")
		}
		delete(h.tables[table], params[0].String())
		return value.NewOk(value.NewUnit()), nil
	default:
		return value.Value{}, fmt.Errorf("db: unknown operation %q", operation)
	}
}

// HTTPHandler is an in-memory mock of an HTTP effect back-end: it
// records requests and returns a canned response rather than performing
// real I/O (spec.md §1's "real effect back-ends... beyond their
// in-memory stubs" scope boundary).
type HTTPHandler struct {
	mu        sync.Mutex
	Requests  []HTTPRequest
	Responses map[string]value.Value // operation -> canned response
}

type HTTPRequest struct {
	Operation string
	Params    []value.Value
}

func NewHTTPHandler() *HTTPHandler {
	return &HTTPHandler{Responses: make(map[string]value.Value)}
}

func (h *HTTPHandler) CheckPermission(operation string, principal Principal) bool { return true }

func (h *HTTPHandler) Execute(operation string, params []value.Value, principal Principal, meta Metadata) (value.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Requests = append(h.Requests, HTTPRequest{Operation: operation, Params: params})
	if resp, ok := h.Responses[operation]; ok {
		return resp, nil
	}
	return value.NewOk(value.NewUnit()), nil
}

// FSHandler is an in-memory mock filesystem: reads/writes go against a
// map instead of the real disk.
type FSHandler struct {
	mu    sync.Mutex
	files map[string]string
}

func NewFSHandler() *FSHandler {
	return &FSHandler{files: make(map[string]string)}
}

func (h *FSHandler) CheckPermission(operation string, principal Principal) bool { return true }

func (h *FSHandler) Execute(operation string, params []value.Value, principal Principal, meta Metadata) (value.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch operation {
	case "read":
		if len(params) < 1 {
			return value.Value{}, fmt.Errorf("fs.read: missing path")
		}
		content, ok := h.files[params[0].String()]
		if !ok {
			return value.NewErrString("file not found"), nil
		}
		return value.NewOk(value.NewString(content)), nil
	case "write":
		if len(params) < 2 {
			return value.Value{}, fmt.Errorf("fs.write: missing path/content")
		}
		h.files[params[0].String()] = params[1].String()
		return value.NewOk(value.NewUnit()), nil
	default:
		return value.Value{}, fmt.Errorf("fs: unknown operation %q", operation)
	}
}

// LogHandler is an in-memory mock log sink. It applies the same
// redaction rule Dispatch's audit path uses, keyed by the logged
// record's own classification when the logged value is a record,
// falling through to verbatim otherwise (spec.md §4.15).
type LogHandler struct {
	mu      sync.Mutex
	Entries []value.Value
}

func NewLogHandler() *LogHandler {
	return &LogHandler{}
}

func (h *LogHandler) CheckPermission(operation string, principal Principal) bool { return true }

func (h *LogHandler) Execute(operation string, params []value.Value, principal Principal, meta Metadata) (value.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, p := range params {
		h.Entries = append(h.Entries, Redact(p))
	}
	return value.NewOk(value.NewUnit()), nil
}

// EventHandler is an in-memory mock event bus: published events are
// recorded per topic, not delivered to real subscribers.
type EventHandler struct {
	mu     sync.Mutex
	Topics map[string][]value.Value
}

func NewEventHandler() *EventHandler {
	return &EventHandler{Topics: make(map[string][]value.Value)}
}

func (h *EventHandler) CheckPermission(operation string, principal Principal) bool { return true }

func (h *EventHandler) Execute(operation string, params []value.Value, principal Principal, meta Metadata) (value.Value, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.Topics[operation] = append(h.Topics[operation], params...)
	return value.NewOk(value.NewUnit()), nil
}

// RegisterStandard registers the five reserved-prefix mock handlers
// (spec.md §4.11's {db, http, fs, log, event} prefixes) onto r.
func RegisterStandard(r *Registry) {
	r.Register("db", NewDBHandler())
	r.Register("http", NewHTTPHandler())
	r.Register("fs", NewFSHandler())
	r.Register("log", NewLogHandler())
	r.Register("event", NewEventHandler())
}
