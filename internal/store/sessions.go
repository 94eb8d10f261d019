// sessions.go — Session repository.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// UpsertSession creates or updates a session row. Called on extension
// session_start/session_update, or explicit import (§3 Session lifecycle).
func (s *Store) UpsertSession(ctx context.Context, sess Session) error {
	allowlistJSON, err := json.Marshal(sess.Allowlist)
	if err != nil {
		return fmt.Errorf("store: marshal allowlist: %w", err)
	}
	if sess.Status == "" {
		sess.Status = SessionActive
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO sessions(session_id, created_at, url, safe_mode, allowlist, status, ended_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(session_id) DO UPDATE SET
				url = excluded.url,
				safe_mode = excluded.safe_mode,
				allowlist = excluded.allowlist,
				status = excluded.status,
				ended_at = excluded.ended_at
		`, sess.SessionID, sess.CreatedAt, sess.URL, boolToInt(sess.SafeMode), string(allowlistJSON), sess.Status, sess.EndedAt)
		if err != nil {
			return fmt.Errorf("%w: upsert session: %v", ErrPersistenceFailed, err)
		}
		return nil
	})
}

// CloseSession marks a session closed at endedAt, enforcing ended_at >= created_at.
func (s *Store) CloseSession(ctx context.Context, sessionID string, endedAt int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE sessions SET status = ?, ended_at = ?
			WHERE session_id = ? AND created_at <= ?
		`, SessionClosed, endedAt, sessionID, endedAt)
		if err != nil {
			return fmt.Errorf("%w: close session: %v", ErrPersistenceFailed, err)
		}
		n, _ := res.RowsAffected()
		if n == 0 {
			return fmt.Errorf("%w: session %s not found or ended_at before created_at", ErrNotFound, sessionID)
		}
		return nil
	})
}

// GetSession fetches a single session row.
func (s *Store) GetSession(ctx context.Context, sessionID string) (Session, error) {
	row := s.dbRead.QueryRowContext(ctx, `
		SELECT session_id, created_at, url, safe_mode, allowlist, status, ended_at
		FROM sessions WHERE session_id = ?
	`, sessionID)
	return scanSession(row)
}

// ListSessions returns sessions created within the last sinceMinutes,
// newest first, honoring limit/offset (§4.5 list_sessions tool).
func (s *Store) ListSessions(ctx context.Context, sinceMillis int64, limit, offset int) ([]Session, error) {
	rows, err := s.dbRead.QueryContext(ctx, `
		SELECT session_id, created_at, url, safe_mode, allowlist, status, ended_at
		FROM sessions
		WHERE created_at >= ?
		ORDER BY created_at DESC
		LIMIT ? OFFSET ?
	`, sinceMillis, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		sess, err := scanSessionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (Session, error) {
	var sess Session
	var allowlistJSON string
	var safeMode int
	var endedAt sql.NullInt64
	if err := row.Scan(&sess.SessionID, &sess.CreatedAt, &sess.URL, &safeMode, &allowlistJSON, &sess.Status, &endedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("store: scan session: %w", err)
	}
	sess.SafeMode = safeMode != 0
	if endedAt.Valid {
		v := endedAt.Int64
		sess.EndedAt = &v
	}
	if err := json.Unmarshal([]byte(allowlistJSON), &sess.Allowlist); err != nil {
		sess.Allowlist = nil
	}
	return sess, nil
}

func scanSessionRows(rows *sql.Rows) (Session, error) {
	return scanSession(rows)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
