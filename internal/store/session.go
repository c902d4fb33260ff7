package store

import (
	"context"
	"fmt"
)

// Session is the header row of one run.
type Session struct {
	ID          string `json:"id"`
	LibraryHash string `json:"library_hash"`
	MoveCount   int    `json:"move_count"`
	Seed        int64  `json:"seed"`
}

// SessionSummary is a Session with history counts, as listed by ListSessions.
type SessionSummary struct {
	Session
	Entries      int64 `json:"entries"`
	Recognitions int64 `json:"recognitions"`
}

// CreateSession inserts a session header.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) CreateSession(ctx context.Context, sess Session) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, library_hash, move_count, seed)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, sess.ID, sess.LibraryHash, sess.MoveCount, sess.Seed)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// ReadSession retrieves a session header by ID.
// Returns sql.ErrNoRows if not found.
func (s *Store) ReadSession(ctx context.Context, id string) (Session, error) {
	var sess Session
	err := s.db.QueryRowContext(ctx, `
		SELECT id, library_hash, move_count, seed
		FROM sessions
		WHERE id = ?
	`, id).Scan(&sess.ID, &sess.LibraryHash, &sess.MoveCount, &sess.Seed)
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// ListSessions returns every stored session with its entry and recognition
// counts. UUIDv7 IDs sort by creation time, so ordering by id lists the
// oldest session first.
//
// Returns an empty slice (not nil) if no sessions exist.
func (s *Store) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.library_hash, s.move_count, s.seed,
		       COUNT(e.seq),
		       COALESCE(SUM(e.derived), 0)
		FROM sessions s
		LEFT JOIN entries e ON e.session_id = s.id
		GROUP BY s.id
		ORDER BY s.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	summaries := []SessionSummary{}
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(
			&sum.ID, &sum.LibraryHash, &sum.MoveCount, &sum.Seed,
			&sum.Entries, &sum.Recognitions,
		); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return summaries, nil
}
