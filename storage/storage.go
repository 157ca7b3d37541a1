// Package storage persists the effect registry's audit log (spec.md
// §4.15) and migration-coverage snapshots (§4.7) to SQLite, an optional
// durability layer behind the in-memory structures that remain the
// source of truth for a single process's lifetime. Grounded directly on
// mercator's pkg/limits/storage/sqlite.go: a pure-Go modernc.org/sqlite
// driver opened in WAL mode, schema-on-open, one prepared statement per
// query shape.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/migration"
	"github.com/chazu/wardlang/value"
)

// AuditStore implements effect.Sink over a SQLite database, giving the
// append-only audit log durability across process restarts.
type AuditStore struct {
	db *sql.DB

	insertAudit *sql.Stmt
	insertCov   *sql.Stmt
}

// Open opens (creating if necessary) a SQLite database at dsn in WAL
// mode and prepares its schema, matching the teacher's
// NewSQLiteBackendWithConfig dsn-string convention.
func Open(dsn string) (*AuditStore, error) {
	fullDSN := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dsn)
	db, err := sql.Open("sqlite", fullDSN)
	if err != nil {
		return nil, fmt.Errorf("storage: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &AuditStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: failed to prepare statements: %w", err)
	}
	return s, nil
}

func (s *AuditStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audit_entries (
		id            TEXT PRIMARY KEY,
		recorded_at   INTEGER NOT NULL,
		principal_id  TEXT NOT NULL,
		handler       TEXT NOT NULL,
		operation     TEXT NOT NULL,
		params_json   TEXT NOT NULL,
		result_json   TEXT,
		err           TEXT,
		success       INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_audit_recorded_at ON audit_entries(recorded_at);
	CREATE INDEX IF NOT EXISTS idx_audit_handler ON audit_entries(handler);

	CREATE TABLE IF NOT EXISTS coverage_snapshots (
		taken_at             INTEGER PRIMARY KEY,
		total_pairs          INTEGER NOT NULL,
		covered_pairs        INTEGER NOT NULL,
		coverage_percentage  REAL NOT NULL,
		missing_pairs_json   TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *AuditStore) prepareStatements() error {
	var err error
	s.insertAudit, err = s.db.Prepare(`
		INSERT INTO audit_entries (id, recorded_at, principal_id, handler, operation, params_json, result_json, err, success)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insertAudit: %w", err)
	}
	s.insertCov, err = s.db.Prepare(`
		INSERT INTO coverage_snapshots (taken_at, total_pairs, covered_pairs, coverage_percentage, missing_pairs_json)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insertCov: %w", err)
	}
	return nil
}

// Append implements effect.Sink: it persists one already-redacted audit
// entry. Params/result are serialized via each Value's debug String()
// form rather than a structural codec, since audit rows are write-only
// records for later inspection, not data fed back into the interpreter.
func (s *AuditStore) Append(e effect.AuditEntry) error {
	paramsJSON, err := marshalParams(e.Params)
	if err != nil {
		return fmt.Errorf("storage: marshal audit params: %w", err)
	}
	var resultJSON sql.NullString
	if e.Result != nil {
		resultJSON = sql.NullString{String: e.Result.String(), Valid: true}
	}
	var errStr sql.NullString
	if e.Err != "" {
		errStr = sql.NullString{String: e.Err, Valid: true}
	}

	_, err = s.insertAudit.Exec(
		e.ID.String(),
		e.Timestamp.UnixNano(),
		e.PrincipalID,
		e.Handler,
		e.Operation,
		paramsJSON,
		resultJSON,
		errStr,
		boolToInt(e.Success),
	)
	if err != nil {
		return fmt.Errorf("storage: insert audit entry: %w", err)
	}
	return nil
}

func marshalParams(params []value.Value) (string, error) {
	strs := make([]string, len(params))
	for i, p := range params {
		strs[i] = p.String()
	}
	b, err := json.Marshal(strs)
	return string(b), err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// SaveCoverageSnapshot persists a point-in-time migration.Coverage
// report (spec.md §4.7's analyze_coverage output), timestamped at
// takenAt.
func (s *AuditStore) SaveCoverageSnapshot(takenAt time.Time, cov migration.Coverage) error {
	missingJSON, err := json.Marshal(cov.MissingPairs)
	if err != nil {
		return fmt.Errorf("storage: marshal missing pairs: %w", err)
	}
	_, err = s.insertCov.Exec(
		takenAt.UnixNano(),
		cov.TotalPairs,
		cov.CoveredPairs,
		cov.CoveragePercentage,
		string(missingJSON),
	)
	if err != nil {
		return fmt.Errorf("storage: insert coverage snapshot: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *AuditStore) Close() error {
	if s.insertAudit != nil {
		s.insertAudit.Close()
	}
	if s.insertCov != nil {
		s.insertCov.Close()
	}
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
