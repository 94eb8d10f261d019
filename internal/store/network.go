// network.go — NetworkRecord repository and the get_network_failures
// group_by aggregation (§4.5).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
)

// InsertNetworkBatch writes all of batch atomically, same contract as
// InsertEventsBatch.
func (s *Store) InsertNetworkBatch(ctx context.Context, sessionID string, batch []NetworkRecord) error {
	if len(batch) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO network_records(network_id, session_id, timestamp, method, url, status, duration_ms, error_type)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("%w: prepare network insert: %v", ErrPersistenceFailed, err)
		}
		defer stmt.Close()

		for _, r := range batch {
			errType := r.ErrorType
			if errType == "" {
				errType = NetworkErrorNone
			}
			if _, err := stmt.ExecContext(ctx, r.NetworkID, sessionID, r.Timestamp, r.Method, r.URL, r.Status, r.DurationMs, errType); err != nil {
				return fmt.Errorf("%w: insert network record %s: %v", ErrPersistenceFailed, r.NetworkID, err)
			}
		}
		return nil
	})
}

// NetworkFailuresGrouped returns the failing (status>=400 or error_type!=none)
// network records for a session, grouped by url, error_type, or domain.
type NetworkFailureGroup struct {
	Key     string          `json:"key"`
	Count   int             `json:"count"`
	Records []NetworkRecord `json:"records"`
}

func (s *Store) NetworkFailuresGrouped(ctx context.Context, sessionID, groupBy string, limit, offset int) ([]NetworkFailureGroup, error) {
	rows, err := s.dbRead.QueryContext(ctx, `
		SELECT network_id, session_id, timestamp, method, url, status, duration_ms, error_type
		FROM network_records
		WHERE session_id = ? AND (status >= 400 OR error_type != 'none')
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: query network failures: %w", err)
	}
	defer rows.Close()

	groups := map[string]*NetworkFailureGroup{}
	var order []string
	for rows.Next() {
		var r NetworkRecord
		if err := rows.Scan(&r.NetworkID, &r.SessionID, &r.Timestamp, &r.Method, &r.URL, &r.Status, &r.DurationMs, &r.ErrorType); err != nil {
			return nil, fmt.Errorf("store: scan network record: %w", err)
		}
		key := groupKey(groupBy, r)
		g, ok := groups[key]
		if !ok {
			g = &NetworkFailureGroup{Key: key}
			groups[key] = g
			order = append(order, key)
		}
		g.Count++
		g.Records = append(g.Records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]NetworkFailureGroup, 0, len(order))
	for _, k := range order {
		out = append(out, *groups[k])
	}
	return out, nil
}

func groupKey(groupBy string, r NetworkRecord) string {
	switch groupBy {
	case "error_type":
		return r.ErrorType
	case "domain":
		if u, err := url.Parse(r.URL); err == nil && u.Host != "" {
			return u.Host
		}
		return r.URL
	case "url":
		fallthrough
	default:
		return r.URL
	}
}
