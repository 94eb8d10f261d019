// stats.go — row counts surfaced via GET /stats (SPEC_FULL §4.3/§6).
package store

import "context"

var statsTables = []string{"sessions", "events", "network_records", "error_fingerprints", "snapshots", "snapshot_assets"}

// TableCounts returns a row count for each table /stats reports.
func (s *Store) TableCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(statsTables))
	for _, table := range statsTables {
		var n int64
		if err := s.dbRead.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, err
		}
		counts[table] = n
	}
	return counts, nil
}
