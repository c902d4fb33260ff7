package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/combo/internal/move"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func createTestSession(t *testing.T, s *Store, id string) {
	t.Helper()
	err := s.CreateSession(context.Background(), Session{
		ID:          id,
		LibraryHash: "test-hash",
		MoveCount:   2,
		Seed:        42,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"sessions", "entries", "markers"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct {
		name     string
		expected string
	}{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"foreign_keys", "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := s.verifyPragma(tt.name, tt.expected); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}

	var name string
	err := s.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='index' AND name='idx_entries_derived'",
	).Scan(&name)
	if err != nil {
		t.Errorf("migration index missing: %v", err)
	}
}

func TestCloseNil(t *testing.T) {
	var s Store
	if err := s.Close(); err != nil {
		t.Errorf("Close() on zero Store = %v, want nil", err)
	}
}

func TestSession_CreateAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	// Idempotent
	createTestSession(t, s, "sess-1")

	got, err := s.ReadSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	want := Session{ID: "sess-1", LibraryHash: "test-hash", MoveCount: 2, Seed: 42}
	if got != want {
		t.Errorf("ReadSession() = %+v, want %+v", got, want)
	}

	_, err = s.ReadSession(ctx, "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("ReadSession(missing) error = %v, want sql.ErrNoRows", err)
	}
}

func TestWriteEntry_RequiresSession(t *testing.T) {
	s := createTestStore(t)

	err := s.WriteEntry(context.Background(), "nope", move.Entry{Seq: 1, Symbol: "A"})
	if err == nil {
		t.Fatal("WriteEntry() for unknown session succeeded, want foreign key error")
	}
}

func TestWriteFrame_ReadBackInSeqOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	frames := []move.Frame{
		{Running: true, Entries: []move.Entry{{Seq: 1, Symbol: "A", DelayMs: 0}}},
		{Running: true, Entries: []move.Entry{
			{Seq: 2, Symbol: "B", DelayMs: 60},
			{Seq: 3, Symbol: "[60]AB", DelayMs: 1, Derived: true},
		}},
	}
	for _, f := range frames {
		if err := s.WriteFrame(ctx, "sess-1", f); err != nil {
			t.Fatalf("WriteFrame() failed: %v", err)
		}
	}

	entries, err := s.ReadEntries(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ReadEntries() failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			t.Errorf("entries[%d].Seq = %d, want %d", i, e.Seq, i+1)
		}
	}
	if entries[1].DelayMs != 60 || entries[1].Derived {
		t.Errorf("entries[1] = %+v, want B with delay 60", entries[1])
	}
	if !entries[2].Derived || entries[2].Symbol != "[60]AB" {
		t.Errorf("entries[2] = %+v, want derived [60]AB", entries[2])
	}
}

func TestWriteFrame_Markers(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	// Clear before any entry, then an entry, then clear and stop together
	steps := []move.Frame{
		{Running: true, Clear: true},
		{Running: true, Entries: []move.Entry{{Seq: 1, Symbol: "A"}}},
		{Running: false, Clear: true},
	}
	for _, f := range steps {
		if err := s.WriteFrame(ctx, "sess-1", f); err != nil {
			t.Fatalf("WriteFrame() failed: %v", err)
		}
	}

	markers, err := s.ReadMarkers(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ReadMarkers() failed: %v", err)
	}
	want := []Marker{
		{AfterSeq: 0, Kind: MarkerClear},
		{AfterSeq: 1, Kind: MarkerClear},
		{AfterSeq: 1, Kind: MarkerStop},
	}
	if len(markers) != len(want) {
		t.Fatalf("got %d markers, want %d: %+v", len(markers), len(want), markers)
	}
	for i := range want {
		if markers[i] != want[i] {
			t.Errorf("markers[%d] = %+v, want %+v", i, markers[i], want[i])
		}
	}
}

func TestWriteEntry_DuplicateIgnored(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	createTestSession(t, s, "sess-1")

	e := move.Entry{Seq: 1, Symbol: "A"}
	for i := 0; i < 2; i++ {
		if err := s.WriteEntry(ctx, "sess-1", e); err != nil {
			t.Fatalf("WriteEntry() attempt %d failed: %v", i, err)
		}
	}

	entries, err := s.ReadEntries(ctx, "sess-1")
	if err != nil {
		t.Fatalf("ReadEntries() failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("got %d entries, want 1", len(entries))
	}
}

func TestReadEntries_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	entries, err := s.ReadEntries(context.Background(), "none")
	if err != nil {
		t.Fatalf("ReadEntries() failed: %v", err)
	}
	if entries == nil {
		t.Error("ReadEntries() returned nil, want empty slice")
	}
}

func TestListSessions(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// IDs inserted out of order; listing sorts by id
	createTestSession(t, s, "0002")
	createTestSession(t, s, "0001")

	err := s.WriteFrame(ctx, "0002", move.Frame{Running: true, Entries: []move.Entry{
		{Seq: 1, Symbol: "A"},
		{Seq: 2, Symbol: "B", DelayMs: 10},
		{Seq: 3, Symbol: "[10]AB", DelayMs: 1, Derived: true},
	}})
	if err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}

	list, err := s.ListSessions(ctx)
	if err != nil {
		t.Fatalf("ListSessions() failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("got %d sessions, want 2", len(list))
	}
	if list[0].ID != "0001" || list[1].ID != "0002" {
		t.Errorf("order = [%s %s], want [0001 0002]", list[0].ID, list[1].ID)
	}
	if list[0].Entries != 0 || list[0].Recognitions != 0 {
		t.Errorf("empty session counts = %d/%d, want 0/0", list[0].Entries, list[0].Recognitions)
	}
	if list[1].Entries != 3 || list[1].Recognitions != 1 {
		t.Errorf("session counts = %d/%d, want 3/1", list[1].Entries, list[1].Recognitions)
	}
}
