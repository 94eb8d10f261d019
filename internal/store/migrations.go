// migrations.go — ordered schema migrations with applied-version tracking.
// Downgrade is not supported, per SPEC_FULL §4.1.
package store

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type migration struct {
	version int
	sql     string
}

var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	safe_mode INTEGER NOT NULL DEFAULT 0,
	allowlist TEXT NOT NULL DEFAULT '[]',
	status TEXT NOT NULL DEFAULT 'active',
	ended_at INTEGER
);

CREATE TABLE IF NOT EXISTS events (
	event_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(session_id),
	type TEXT NOT NULL,
	timestamp INTEGER NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_session_ts ON events(session_id, timestamp);

CREATE TABLE IF NOT EXISTS network_records (
	network_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(session_id),
	timestamp INTEGER NOT NULL,
	method TEXT NOT NULL,
	url TEXT NOT NULL,
	status INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	error_type TEXT NOT NULL DEFAULT 'none'
);
CREATE INDEX IF NOT EXISTS idx_network_session_ts ON network_records(session_id, timestamp);

CREATE TABLE IF NOT EXISTS error_fingerprints (
	hash TEXT PRIMARY KEY,
	session_id TEXT REFERENCES sessions(session_id),
	count INTEGER NOT NULL DEFAULT 1,
	first_seen INTEGER NOT NULL,
	last_seen INTEGER NOT NULL,
	sample_message TEXT NOT NULL DEFAULT '',
	sample_stack TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_fingerprints_hash ON error_fingerprints(hash);

CREATE TABLE IF NOT EXISTS snapshots (
	snapshot_id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(session_id),
	timestamp INTEGER NOT NULL,
	trigger TEXT NOT NULL,
	selector TEXT,
	url TEXT NOT NULL DEFAULT '',
	mode_dom INTEGER NOT NULL DEFAULT 0,
	mode_png INTEGER NOT NULL DEFAULT 0,
	style_mode TEXT NOT NULL DEFAULT 'computed-lite',
	dom_payload TEXT,
	styles_payload TEXT,
	truncation_dom INTEGER NOT NULL DEFAULT 0,
	truncation_styles INTEGER NOT NULL DEFAULT 0,
	truncation_png INTEGER NOT NULL DEFAULT 0,
	redaction TEXT NOT NULL DEFAULT '{}',
	png_asset_id TEXT
);
CREATE INDEX IF NOT EXISTS idx_snapshots_session_ts ON snapshots(session_id, timestamp);

CREATE TABLE IF NOT EXISTS snapshot_assets (
	asset_id TEXT PRIMARY KEY,
	snapshot_id TEXT NOT NULL REFERENCES snapshots(snapshot_id),
	kind TEXT NOT NULL DEFAULT 'png',
	bytes BLOB NOT NULL,
	size_bytes INTEGER NOT NULL
);
`,
	},
}

func (s *Store) migrate(ctx context.Context) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at INTEGER NOT NULL
		);`); err != nil {
			return fmt.Errorf("store: bootstrap migrations table: %w", err)
		}

		applied := map[int]bool{}
		rows, err := tx.QueryContext(ctx, `SELECT version FROM schema_migrations`)
		if err != nil {
			return fmt.Errorf("store: read applied migrations: %w", err)
		}
		for rows.Next() {
			var v int
			if err := rows.Scan(&v); err != nil {
				_ = rows.Close()
				return fmt.Errorf("store: scan migration version: %w", err)
			}
			applied[v] = true
		}
		if err := rows.Close(); err != nil {
			return fmt.Errorf("store: close migration cursor: %w", err)
		}

		for _, m := range migrations {
			if applied[m.version] {
				continue
			}
			if _, err := tx.ExecContext(ctx, m.sql); err != nil {
				return fmt.Errorf("store: apply migration %d: %w", m.version, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schema_migrations(version, applied_at) VALUES (?, ?)`,
				m.version, nowMillis(),
			); err != nil {
				return fmt.Errorf("store: record migration %d: %w", m.version, err)
			}
			if s.log != nil {
				s.log.Info("applied migration", zap.Int("version", m.version))
			}
		}
		return nil
	})
}
