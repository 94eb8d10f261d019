// ingest.go — translating wire batches into store writes, including the
// retry-on-transient-failure policy from SPEC_FULL §4.1's failure semantics
// and the safe-mode substitution from §4.2 applied before persistence.
package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/devbridge/browser-debug-bridge/internal/redact"
	"github.com/devbridge/browser-debug-bridge/internal/store"
)

func (s *Server) ingestEventBatch(ctx context.Context, batch EventBatch) {
	if len(batch.Events) == 0 {
		return
	}

	sessionID := batch.SessionID
	events := make([]store.Event, 0, len(batch.Events))
	for _, we := range batch.Events {
		data := we.Data
		if we.Category != "" {
			var payload map[string]any
			if err := json.Unmarshal(we.Data, &payload); err == nil {
				if scrubbed, dropped := s.redactor.ApplySafeMode(we.Category, payload); dropped {
					continue
				} else if raw, err := json.Marshal(scrubbed); err == nil {
					data = raw
				}
			}
		}
		events = append(events, store.Event{
			EventID:   we.EventID,
			SessionID: sessionID,
			Type:      we.Type,
			Timestamp: we.Timestamp,
			Data:      data,
		})
		if we.Type == store.EventError {
			s.recordFingerprint(ctx, sessionID, we.Timestamp, data)
		}
	}

	err := store.RetryBatch(ctx, func() error {
		return s.store.InsertEventsBatch(ctx, sessionID, events)
	})
	if err != nil {
		atomic.AddInt64(&s.batchesRetried, 1)
		s.log.Warn("event batch persistence failed, closing connection", zap.String("session_id", sessionID), zap.Error(err))
		s.mu.Lock()
		conn, ok := s.conns[sessionID]
		s.mu.Unlock()
		if ok {
			conn.markClosed()
		}
		return
	}
	atomic.AddInt64(&s.batchesCommitted, 1)
}

func (s *Server) recordFingerprint(ctx context.Context, sessionID string, timestamp int64, data json.RawMessage) {
	var payload struct {
		Message string `json:"message"`
		Stack   string `json:"stack"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.Message == "" {
		return
	}
	hash := store.FingerprintHash(payload.Message, payload.Stack)
	sid := sessionID
	if err := s.store.UpsertFingerprint(ctx, hash, &sid, payload.Message, payload.Stack, timestamp); err != nil {
		s.log.Warn("upsert fingerprint failed", zap.Error(err))
	}
}

func (s *Server) ingestNetworkBatch(ctx context.Context, batch NetworkBatch) {
	if len(batch.Records) == 0 {
		return
	}
	records := make([]store.NetworkRecord, 0, len(batch.Records))
	for _, wr := range batch.Records {
		records = append(records, store.NetworkRecord{
			NetworkID:  wr.NetworkID,
			SessionID:  batch.SessionID,
			Timestamp:  wr.Timestamp,
			Method:     wr.Method,
			URL:        wr.URL,
			Status:     wr.Status,
			DurationMs: wr.DurationMs,
			ErrorType:  wr.ErrorType,
		})
	}
	err := store.RetryBatch(ctx, func() error {
		return s.store.InsertNetworkBatch(ctx, batch.SessionID, records)
	})
	if err != nil {
		atomic.AddInt64(&s.batchesRetried, 1)
		s.log.Warn("network batch persistence failed", zap.String("session_id", batch.SessionID), zap.Error(err))
		return
	}
	atomic.AddInt64(&s.batchesCommitted, 1)
}

// ingestSnapshot enforces the Snapshot invariants from SPEC §3 (max DOM
// bytes with outline fallback, PNG blocked under strict safe mode) before
// writing the row and, if a PNG was attached and survives the policy, its
// asset.
func (s *Server) ingestSnapshot(ctx context.Context, in WireSnapshot) (string, error) {
	snap := store.Snapshot{
		SnapshotID: store.NewID(),
		SessionID:  in.SessionID,
		Timestamp:  in.Timestamp,
		Trigger:    in.Trigger,
		Selector:   in.Selector,
		URL:        in.URL,
		Mode: store.SnapshotMode{
			DOM:       in.Mode.DOM,
			PNG:       in.Mode.PNG,
			StyleMode: in.Mode.StyleMode,
		},
	}

	profile := redact.Profile(in.Profile)
	if profile != redact.ProfileStrict {
		profile = redact.ProfileStandard
	}
	safeMode := false
	if sess, err := s.store.GetSession(ctx, in.SessionID); err == nil {
		safeMode = sess.SafeMode
	}

	var rulesApplied []string
	if in.DOM != nil {
		html := in.DOM.HTML
		if len(html) > s.maxDOM {
			return "", fmt.Errorf("Snapshot dom payload exceeds max bytes")
		}
		rec := redact.RedactSnapshotRecord(redact.SnapshotRecord{DOM: html, HasPNG: len(in.PNG) > 0}, profile, safeMode)
		snap.DOMPayload = &rec.DOM
		rulesApplied = append(rulesApplied, rec.RulesApplied...)
		if rec.DropPNG {
			snap.Truncation.PNG = true
		}
	} else if len(in.PNG) > 0 {
		rec := redact.RedactSnapshotRecord(redact.SnapshotRecord{HasPNG: true}, profile, safeMode)
		if rec.DropPNG {
			snap.Truncation.PNG = true
		}
	}
	if in.Styles != nil {
		rec := redact.RedactSnapshotRecord(redact.SnapshotRecord{Styles: *in.Styles}, profile, safeMode)
		snap.StylesPayload = &rec.Styles
		rulesApplied = append(rulesApplied, rec.RulesApplied...)
	}

	redactionJSON, _ := json.Marshal(map[string]any{"rules_applied": rulesApplied})
	snap.Redaction = redactionJSON

	// Invariant (SPEC §3): mode.png=true under strict safe mode means no
	// PNG asset row exists and truncation.png=true.
	writePNG := len(in.PNG) > 0 && in.Mode.PNG && !snap.Truncation.PNG
	var assetID string
	if writePNG {
		assetID = store.NewID()
		snap.PNGAssetID = &assetID
	}

	if err := s.store.InsertSnapshot(ctx, snap); err != nil {
		return "", err
	}

	if writePNG {
		asset := store.SnapshotAsset{
			AssetID:    assetID,
			SnapshotID: snap.SnapshotID,
			Kind:       "png",
			Bytes:      in.PNG,
		}
		if err := s.store.InsertSnapshotAsset(ctx, asset); err != nil {
			return "", err
		}
	}
	return snap.SnapshotID, nil
}
