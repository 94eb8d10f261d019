// handlers.go — plain HTTP endpoints from SPEC_FULL §4.3/§6: health, stats,
// bulk session import, and the direct snapshot write/read path.
package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/devbridge/browser-debug-bridge/internal/store"
)

const maxImportBody = 8 * 1024 * 1024

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"service_name":    "browser-debug-bridge",
		"uptime_s":        int64(time.Since(s.startedAt).Seconds()),
		"active_sessions": s.ActiveSessionCount(),
		"websocket":       true,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.TableCounts(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tables":     counts,
		"connection": s.Metrics(),
	})
}

// sessionImportRequest mirrors S4's literal shape:
// {session:{session_id, created_at, safe_mode}, events:[], network:[], fingerprints:[]}.
type sessionImportRequest struct {
	Session struct {
		SessionID string   `json:"session_id"`
		CreatedAt int64    `json:"created_at"`
		URL       string   `json:"url"`
		SafeMode  boolish  `json:"safe_mode"`
		Allowlist []string `json:"allowlist"`
	} `json:"session"`
	Events       []WireEvent         `json:"events"`
	Network      []WireNetworkRecord `json:"network"`
	Fingerprints []struct {
		Message string `json:"message"`
		Stack   string `json:"stack"`
	} `json:"fingerprints"`
}

// boolish accepts JSON booleans or 0/1 integers for safe_mode, matching S4's
// literal {"safe_mode":1} scenario.
type boolish bool

func (b *boolish) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	*b = s == "true" || s == "1"
	return nil
}

func (s *Server) handleSessionsImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "failed to read request body"})
		return
	}

	var req sessionImportRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "invalid JSON: " + err.Error()})
		return
	}
	if req.Session.SessionID == "" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "session.session_id is required"})
		return
	}

	ctx := r.Context()
	sess := store.Session{
		SessionID: req.Session.SessionID,
		CreatedAt: req.Session.CreatedAt,
		URL:       req.Session.URL,
		SafeMode:  bool(req.Session.SafeMode),
		Allowlist: req.Session.Allowlist,
		Status:    store.SessionActive,
	}
	if err := s.store.UpsertSession(ctx, sess); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
		return
	}

	if len(req.Events) > 0 {
		s.ingestEventBatch(ctx, EventBatch{SessionID: req.Session.SessionID, Events: req.Events})
	}
	if len(req.Network) > 0 {
		s.ingestNetworkBatch(ctx, NetworkBatch{SessionID: req.Session.SessionID, Records: req.Network})
	}
	for _, fp := range req.Fingerprints {
		if fp.Message == "" {
			continue
		}
		hash := store.FingerprintHash(fp.Message, fp.Stack)
		sid := req.Session.SessionID
		if err := s.store.UpsertFingerprint(ctx, hash, &sid, fp.Message, fp.Stack, req.Session.CreatedAt); err != nil {
			s.log.Warn("import fingerprint failed", zap.Error(err))
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "sessionId": req.Session.SessionID})
}

// handleSessionSnapshots serves GET/POST /sessions/{id}/snapshots.
func (s *Server) handleSessionSnapshots(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 3 || parts[0] != "sessions" || parts[2] != "snapshots" {
		http.NotFound(w, r)
		return
	}
	sessionID := parts[1]

	switch r.Method {
	case http.MethodGet:
		limit, offset := pageParams(r, 50)
		snaps, err := s.store.ListSnapshots(r.Context(), sessionID, limit, offset)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "snapshots": snaps})

	case http.MethodPost:
		body, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "failed to read request body"})
			return
		}
		var snap WireSnapshot
		if err := json.Unmarshal(body, &snap); err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": "invalid JSON: " + err.Error()})
			return
		}
		snap.SessionID = sessionID
		id, err := s.ingestSnapshot(r.Context(), snap)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"ok": false, "error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "snapshotId": id})

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func pageParams(r *http.Request, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	offset = 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
