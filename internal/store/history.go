package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/combo/internal/move"
)

// Marker kinds.
const (
	MarkerClear = "clear"
	MarkerStop  = "stop"
)

// Marker records a clear or stop point. AfterSeq is the seq of the last
// entry written before the marker, or 0 if none was.
type Marker struct {
	AfterSeq int64  `json:"after_seq"`
	Kind     string `json:"kind"`
}

// WriteEntry inserts one history entry.
// Uses ON CONFLICT DO NOTHING so a retried write is silently ignored.
func (s *Store) WriteEntry(ctx context.Context, sessionID string, e move.Entry) error {
	if err := writeEntry(ctx, s.db, sessionID, e); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

// WriteFrame stores the entries of one frame plus its clear and stop
// markers in a single transaction.
func (s *Store) WriteFrame(ctx context.Context, sessionID string, frame move.Frame) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write frame: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	for _, e := range frame.Entries {
		if err := writeEntry(ctx, tx, sessionID, e); err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
	}

	if frame.Clear || !frame.Running {
		last, err := lastSeq(ctx, tx, sessionID)
		if err != nil {
			return fmt.Errorf("write frame: %w", err)
		}
		if frame.Clear {
			if err := writeMarker(ctx, tx, sessionID, last, MarkerClear); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		}
		if !frame.Running {
			if err := writeMarker(ctx, tx, sessionID, last, MarkerStop); err != nil {
				return fmt.Errorf("write frame: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write frame: commit: %w", err)
	}
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func writeEntry(ctx context.Context, db execer, sessionID string, e move.Entry) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO entries (session_id, seq, symbol, delay_ms, derived)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, sessionID, e.Seq, e.Symbol, e.DelayMs, boolToInt(e.Derived))
	return err
}

func writeMarker(ctx context.Context, db execer, sessionID string, afterSeq int64, kind string) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO markers (session_id, after_seq, kind)
		VALUES (?, ?, ?)
		ON CONFLICT DO NOTHING
	`, sessionID, afterSeq, kind)
	return err
}

func lastSeq(ctx context.Context, db execer, sessionID string) (int64, error) {
	var seq int64
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM entries WHERE session_id = ?
	`, sessionID).Scan(&seq)
	return seq, err
}

// ReadEntries returns the history of a session ordered by seq.
// Returns an empty slice (not nil) if the session has no entries.
func (s *Store) ReadEntries(ctx context.Context, sessionID string) ([]move.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, symbol, delay_ms, derived
		FROM entries
		WHERE session_id = ?
		ORDER BY seq ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	entries := []move.Entry{}
	for rows.Next() {
		var (
			e       move.Entry
			derived int
		)
		if err := rows.Scan(&e.Seq, &e.Symbol, &e.DelayMs, &derived); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Derived = derived != 0
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}

	return entries, nil
}

// ReadMarkers returns the clear and stop markers of a session.
// Returns an empty slice (not nil) if there are none.
func (s *Store) ReadMarkers(ctx context.Context, sessionID string) ([]Marker, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT after_seq, kind
		FROM markers
		WHERE session_id = ?
		ORDER BY after_seq ASC, rowid ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	markers := []Marker{}
	for rows.Next() {
		var m Marker
		if err := rows.Scan(&m.AfterSeq, &m.Kind); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		markers = append(markers, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate markers: %w", err)
	}

	return markers, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
