// events.go — Event repository: atomic batch insert plus query tools backed
// by events (recent events, navigation history, console events, element
// refs).
package store

import (
	"context"
	"database/sql"
	"fmt"
)

// InsertEventsBatch writes all of batch in a single transaction (§4.1
// contract: atomic, all-or-nothing). Events are attributed only to
// sessionID; ordering within the session is by timestamp then event_id.
func (s *Store) InsertEventsBatch(ctx context.Context, sessionID string, batch []Event) error {
	if len(batch) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO events(event_id, session_id, type, timestamp, data)
			VALUES (?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("%w: prepare event insert: %v", ErrPersistenceFailed, err)
		}
		defer stmt.Close()

		for _, e := range batch {
			if _, err := stmt.ExecContext(ctx, e.EventID, sessionID, e.Type, e.Timestamp, string(e.Data)); err != nil {
				return fmt.Errorf("%w: insert event %s: %v", ErrPersistenceFailed, e.EventID, err)
			}
		}
		return nil
	})
}

// RecentEvents returns the most recent events for a session, optionally
// filtered by type, ordered newest first.
func (s *Store) RecentEvents(ctx context.Context, sessionID string, eventType string, limit, offset int) ([]Event, error) {
	query := `
		SELECT event_id, session_id, type, timestamp, data FROM events
		WHERE session_id = ?`
	args := []any{sessionID}
	if eventType != "" {
		query += ` AND type = ?`
		args = append(args, eventType)
	}
	query += ` ORDER BY timestamp DESC, event_id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	return s.queryEvents(ctx, query, args...)
}

// NavigationHistory returns navigation events for a session, oldest first.
func (s *Store) NavigationHistory(ctx context.Context, sessionID string, limit, offset int) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT event_id, session_id, type, timestamp, data FROM events
		WHERE session_id = ? AND type = ?
		ORDER BY timestamp ASC, event_id ASC LIMIT ? OFFSET ?
	`, sessionID, EventNavigation, limit, offset)
}

// ConsoleEvents returns console events for a session, newest first.
func (s *Store) ConsoleEvents(ctx context.Context, sessionID string, limit, offset int) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT event_id, session_id, type, timestamp, data FROM events
		WHERE session_id = ? AND type = ?
		ORDER BY timestamp DESC, event_id DESC LIMIT ? OFFSET ?
	`, sessionID, EventConsole, limit, offset)
}

// ElementRefs returns ui/element_ref events for a session, used by
// get_element_refs to look up CSS selectors that have been observed.
func (s *Store) ElementRefs(ctx context.Context, sessionID string, limit, offset int) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT event_id, session_id, type, timestamp, data FROM events
		WHERE session_id = ? AND type IN (?, ?)
		ORDER BY timestamp DESC, event_id DESC LIMIT ? OFFSET ?
	`, sessionID, EventUI, EventElementRef, limit, offset)
}

// EventsInWindow returns all events for a session within [fromMillis,
// toMillis], used by the correlation tools (explain_last_failure,
// get_event_correlation).
func (s *Store) EventsInWindow(ctx context.Context, sessionID string, fromMillis, toMillis int64) ([]Event, error) {
	return s.queryEvents(ctx, `
		SELECT event_id, session_id, type, timestamp, data FROM events
		WHERE session_id = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC, event_id ASC
	`, sessionID, fromMillis, toMillis)
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]Event, error) {
	rows, err := s.dbRead.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: query events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.EventID, &e.SessionID, &e.Type, &e.Timestamp, &data); err != nil {
			return nil, fmt.Errorf("store: scan event: %w", err)
		}
		e.Data = []byte(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
