// fingerprint.go — ErrorFingerprint repository and normalization.
// The normalization rule implements SPEC_FULL §9 Open Question 2: lowercase,
// strip trailing ":line:col" per stack frame, strip webpack content-hash
// segments, collapse whitespace. This makes the hash stable across runs
// while staying sensitive to a genuinely different error.
package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

var (
	trailingLineCol  = regexp.MustCompile(`:\d+:\d+(\)?)$`)
	webpackHashChunk = regexp.MustCompile(`\.[0-9a-f]{8,20}\.js\b`)
	multiWhitespace  = regexp.MustCompile(`\s+`)
)

// NormalizeFingerprint reduces a message and a stack trace to a stable form
// for hashing. Only whole stack frames (split on newline) are normalized
// independently so unrelated frames can't bleed into each other.
func NormalizeFingerprint(message, stack string) (normMessage, normStack string) {
	normMessage = normalizeText(message)

	lines := strings.Split(stack, "\n")
	for i, line := range lines {
		line = strings.ToLower(strings.TrimSpace(line))
		line = trailingLineCol.ReplaceAllString(line, "$1")
		line = webpackHashChunk.ReplaceAllString(line, ".js")
		lines[i] = multiWhitespace.ReplaceAllString(line, " ")
	}
	normStack = strings.Join(lines, "\n")
	return normMessage, normStack
}

func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return multiWhitespace.ReplaceAllString(s, " ")
}

// FingerprintHash computes the deterministic digest for (message, stack).
func FingerprintHash(message, stack string) string {
	normMessage, normStack := NormalizeFingerprint(message, stack)
	sum := sha256.Sum256([]byte(normMessage + "\x00" + normStack))
	return hex.EncodeToString(sum[:])
}

// UpsertFingerprint increments the aggregate count for hash, or creates a
// new row. first_seen/last_seen use the event timestamp supplied by the
// caller so replayed/imported data keeps accurate bounds.
func (s *Store) UpsertFingerprint(ctx context.Context, hash string, sessionID *string, sampleMessage, sampleStack string, seenAt int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO error_fingerprints(hash, session_id, count, first_seen, last_seen, sample_message, sample_stack)
			VALUES (?, ?, 1, ?, ?, ?, ?)
			ON CONFLICT(hash) DO UPDATE SET
				count = count + 1,
				last_seen = MAX(last_seen, excluded.last_seen),
				first_seen = MIN(first_seen, excluded.first_seen)
		`, hash, sessionID, seenAt, seenAt, sampleMessage, sampleStack)
		if err != nil {
			return fmt.Errorf("%w: upsert fingerprint: %v", ErrPersistenceFailed, err)
		}
		return nil
	})
}

// ErrorFingerprints returns fingerprints for a session (or across all
// sessions if sessionID is empty), most recently seen first.
func (s *Store) ErrorFingerprints(ctx context.Context, sessionID string, limit, offset int) ([]ErrorFingerprint, error) {
	var rows *sql.Rows
	var err error
	if sessionID == "" {
		rows, err = s.dbRead.QueryContext(ctx, `
			SELECT hash, session_id, count, first_seen, last_seen, sample_message, sample_stack
			FROM error_fingerprints ORDER BY last_seen DESC LIMIT ? OFFSET ?
		`, limit, offset)
	} else {
		rows, err = s.dbRead.QueryContext(ctx, `
			SELECT hash, session_id, count, first_seen, last_seen, sample_message, sample_stack
			FROM error_fingerprints WHERE session_id = ? ORDER BY last_seen DESC LIMIT ? OFFSET ?
		`, sessionID, limit, offset)
	}
	if err != nil {
		return nil, fmt.Errorf("store: query fingerprints: %w", err)
	}
	defer rows.Close()

	var out []ErrorFingerprint
	for rows.Next() {
		var fp ErrorFingerprint
		var sess sql.NullString
		if err := rows.Scan(&fp.Hash, &sess, &fp.Count, &fp.FirstSeen, &fp.LastSeen, &fp.SampleMessage, &fp.SampleStack); err != nil {
			return nil, fmt.Errorf("store: scan fingerprint: %w", err)
		}
		if sess.Valid {
			v := sess.String
			fp.SessionID = &v
		}
		out = append(out, fp)
	}
	return out, rows.Err()
}
