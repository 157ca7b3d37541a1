package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/chazu/wardlang/effect"
	"github.com/chazu/wardlang/migration"
	"github.com/chazu/wardlang/value"
	"github.com/chazu/wardlang/version"
	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *AuditStore {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "audit.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestAppendPersistsAuditEntry(t *testing.T) {
	s := openTestStore(t)
	entry := effect.AuditEntry{
		ID:          uuid.New(),
		Timestamp:   time.Now(),
		PrincipalID: "u1",
		Handler:     "db",
		Operation:   "write",
		Params:      []value.Value{value.NewString("k"), value.NewString("v")},
		Success:     true,
	}
	if err := s.Append(entry); err != nil {
		t.Fatal(err)
	}

	var count int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM audit_entries").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Fatalf("expected 1 persisted row, got %d", count)
	}
}

func TestAppendPersistsFailureWithErrMessage(t *testing.T) {
	s := openTestStore(t)
	entry := effect.AuditEntry{
		ID:          uuid.New(),
		Timestamp:   time.Now(),
		PrincipalID: "u1",
		Handler:     "db",
		Operation:   "read",
		Success:     false,
		Err:         "permission denied",
	}
	if err := s.Append(entry); err != nil {
		t.Fatal(err)
	}

	var errStr string
	var success int
	if err := s.db.QueryRow("SELECT err, success FROM audit_entries WHERE id = ?", entry.ID.String()).Scan(&errStr, &success); err != nil {
		t.Fatal(err)
	}
	if errStr != "permission denied" || success != 0 {
		t.Fatalf("expected persisted failure row, got err=%q success=%d", errStr, success)
	}
}

func TestSaveCoverageSnapshotPersists(t *testing.T) {
	s := openTestStore(t)
	cov := migration.Coverage{
		TotalPairs:         3,
		CoveredPairs:       2,
		CoveragePercentage: 66.6,
		MissingPairs:       [][2]version.Version{{version.Version{Major: 1}, version.Version{Major: 2}}},
	}
	if err := s.SaveCoverageSnapshot(time.Now(), cov); err != nil {
		t.Fatal(err)
	}

	var total, covered int
	if err := s.db.QueryRow("SELECT total_pairs, covered_pairs FROM coverage_snapshots").Scan(&total, &covered); err != nil {
		t.Fatal(err)
	}
	if total != 3 || covered != 2 {
		t.Fatalf("expected (3, 2), got (%d, %d)", total, covered)
	}
}
