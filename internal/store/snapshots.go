// snapshots.go — Snapshot and SnapshotAsset repositories, including
// chunked asset retrieval for get_snapshot_asset.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// InsertSnapshot writes a single snapshot row. Unlike events/network there
// is no batch form: snapshots are produced one at a time, either from the
// direct HTTP write path or a heavy-capture round trip.
func (s *Store) InsertSnapshot(ctx context.Context, snap Snapshot) error {
	redaction := snap.Redaction
	if len(redaction) == 0 {
		redaction = json.RawMessage(`{}`)
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshots(
				snapshot_id, session_id, timestamp, trigger, selector, url,
				mode_dom, mode_png, style_mode, dom_payload, styles_payload,
				truncation_dom, truncation_styles, truncation_png, redaction, png_asset_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			snap.SnapshotID, snap.SessionID, snap.Timestamp, snap.Trigger, snap.Selector, snap.URL,
			boolToInt(snap.Mode.DOM), boolToInt(snap.Mode.PNG), snap.Mode.StyleMode, snap.DOMPayload, snap.StylesPayload,
			boolToInt(snap.Truncation.DOM), boolToInt(snap.Truncation.Styles), boolToInt(snap.Truncation.PNG),
			string(redaction), snap.PNGAssetID,
		)
		if err != nil {
			return fmt.Errorf("%w: insert snapshot: %v", ErrPersistenceFailed, err)
		}
		return nil
	})
}

// InsertSnapshotAsset stores a PNG blob, enforcing size_bytes == len(bytes).
func (s *Store) InsertSnapshotAsset(ctx context.Context, asset SnapshotAsset) error {
	asset.SizeBytes = int64(len(asset.Bytes))
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO snapshot_assets(asset_id, snapshot_id, kind, bytes, size_bytes)
			VALUES (?, ?, ?, ?, ?)
		`, asset.AssetID, asset.SnapshotID, asset.Kind, asset.Bytes, asset.SizeBytes)
		if err != nil {
			return fmt.Errorf("%w: insert snapshot asset: %v", ErrPersistenceFailed, err)
		}
		return nil
	})
}

// ListSnapshots returns snapshots for a session, newest first.
func (s *Store) ListSnapshots(ctx context.Context, sessionID string, limit, offset int) ([]Snapshot, error) {
	rows, err := s.dbRead.QueryContext(ctx, `
		SELECT snapshot_id, session_id, timestamp, trigger, selector, url,
			mode_dom, mode_png, style_mode, dom_payload, styles_payload,
			truncation_dom, truncation_styles, truncation_png, redaction, png_asset_id
		FROM snapshots WHERE session_id = ? ORDER BY timestamp DESC LIMIT ? OFFSET ?
	`, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("store: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// SnapshotForEvent finds the snapshot nearest an event's timestamp within
// maxDeltaMs, used by get_snapshot_for_event when there is no direct
// trigger link.
func (s *Store) SnapshotForEvent(ctx context.Context, sessionID string, eventTimestamp int64, maxDeltaMs int64) (*Snapshot, error) {
	row := s.dbRead.QueryRowContext(ctx, `
		SELECT snapshot_id, session_id, timestamp, trigger, selector, url,
			mode_dom, mode_png, style_mode, dom_payload, styles_payload,
			truncation_dom, truncation_styles, truncation_png, redaction, png_asset_id
		FROM snapshots
		WHERE session_id = ? AND ABS(timestamp - ?) <= ?
		ORDER BY ABS(timestamp - ?) ASC
		LIMIT 1
	`, sessionID, eventTimestamp, maxDeltaMs, eventTimestamp)
	snap, err := scanSnapshot(row)
	if err != nil {
		if err == ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &snap, nil
}

func scanSnapshot(row rowScanner) (Snapshot, error) {
	var snap Snapshot
	var modeDOM, modePNG, truncDOM, truncStyles, truncPNG int
	var redaction string
	if err := row.Scan(
		&snap.SnapshotID, &snap.SessionID, &snap.Timestamp, &snap.Trigger, &snap.Selector, &snap.URL,
		&modeDOM, &modePNG, &snap.Mode.StyleMode, &snap.DOMPayload, &snap.StylesPayload,
		&truncDOM, &truncStyles, &truncPNG, &redaction, &snap.PNGAssetID,
	); err != nil {
		if err == sql.ErrNoRows {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("store: scan snapshot: %w", err)
	}
	snap.Mode.DOM = modeDOM != 0
	snap.Mode.PNG = modePNG != 0
	snap.Truncation = SnapshotTruncation{DOM: truncDOM != 0, Styles: truncStyles != 0, PNG: truncPNG != 0}
	snap.Redaction = json.RawMessage(redaction)
	return snap, nil
}

// ReadSnapshotAssetChunk reads up to maxBytes starting at offset from the
// named asset's blob, for get_snapshot_asset's chunked retrieval.
func (s *Store) ReadSnapshotAssetChunk(ctx context.Context, snapshotID string, offset, maxBytes int) ([]byte, int64, error) {
	row := s.dbRead.QueryRowContext(ctx, `
		SELECT bytes, size_bytes FROM snapshot_assets WHERE snapshot_id = ?
	`, snapshotID)
	var blob []byte
	var total int64
	if err := row.Scan(&blob, &total); err != nil {
		if err == sql.ErrNoRows {
			return nil, 0, ErrNotFound
		}
		return nil, 0, fmt.Errorf("store: read snapshot asset: %w", err)
	}
	if offset >= len(blob) {
		return []byte{}, total, nil
	}
	end := offset + maxBytes
	if end > len(blob) {
		end = len(blob)
	}
	return blob[offset:end], total, nil
}
