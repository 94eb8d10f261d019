package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devbridge/browser-debug-bridge/internal/logging"
	"github.com/devbridge/browser-debug-bridge/internal/redact"
	"github.com/devbridge/browser-debug-bridge/internal/store"
)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(context.Background(), dir+"/bridge.sqlite", logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(logging.Noop(), st, redact.Adapter{}, Config{}), st
}

// TestSessionsImport_S4 is the literal S4 scenario.
func TestSessionsImport_S4(t *testing.T) {
	s, _ := newTestServer(t)
	mux := s.Mux()

	body := `{"session":{"session_id":"x","created_at":1700000000000,"safe_mode":1},"events":[],"network":[],"fingerprints":[]}`
	req := httptest.NewRequest("POST", "/sessions/import", strings.NewReader(body))
	req.Host = "localhost"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, true, resp["ok"])
	require.Equal(t, "x", resp["sessionId"])

	bad := httptest.NewRequest("POST", "/sessions/import", strings.NewReader(`{"session":{}}`))
	bad.Host = "localhost"
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, bad)
	require.Equal(t, 200, rec2.Code)
	var resp2 map[string]any
	require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp2))
	require.Equal(t, false, resp2["ok"])
	require.Contains(t, resp2["error"], "session_id")
}

// TestSnapshotByteLimit_S5 is the literal S5 scenario.
func TestSnapshotByteLimit_S5(t *testing.T) {
	s, _ := newTestServer(t)
	mux := s.Mux()

	oversized := bytes.Repeat([]byte("a"), 600*1024)
	payload := map[string]any{
		"trigger": "manual",
		"url":     "https://example.com",
		"mode":    map[string]any{"dom": true},
		"dom":     map[string]any{"html": string(oversized)},
	}
	body, _ := json.Marshal(payload)

	req := httptest.NewRequest("POST", "/sessions/sess1/snapshots", bytes.NewReader(body))
	req.Host = "localhost"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, false, resp["ok"])
	require.Contains(t, resp["error"], "Snapshot dom payload exceeds max bytes")
}

// TestSnapshotStrictSafeMode_DropsPNG is Testable Property 4: for all
// snapshots with safe_mode ∧ profile=strict, no PNG asset row exists and
// truncation.png=true.
func TestSnapshotStrictSafeMode_DropsPNG(t *testing.T) {
	s, st := newTestServer(t)
	ctx := context.Background()
	require.NoError(t, st.UpsertSession(ctx, store.Session{SessionID: "sess1", CreatedAt: 1, SafeMode: true, Status: store.SessionActive}))

	id, err := s.ingestSnapshot(ctx, WireSnapshot{
		SessionID: "sess1",
		Trigger:   "manual",
		URL:       "https://example.com",
		Mode:      WireSnapshotMode{PNG: true},
		PNG:       []byte("fake-png-bytes"),
		Profile:   "strict",
	})
	require.NoError(t, err)

	snaps, err := st.ListSnapshots(ctx, "sess1", 10, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Equal(t, id, snaps[0].SnapshotID)
	require.True(t, snaps[0].Truncation.PNG)
	require.Nil(t, snaps[0].PNGAssetID)
}

func TestHealthAndStats(t *testing.T) {
	s, _ := newTestServer(t)
	mux := s.Mux()

	req := httptest.NewRequest("GET", "/health", nil)
	req.Host = "localhost"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, 200, rec.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	require.Equal(t, "ok", health["status"])
	require.Equal(t, true, health["websocket"])

	req2 := httptest.NewRequest("GET", "/stats", nil)
	req2.Host = "localhost"
	rec2 := httptest.NewRecorder()
	mux.ServeHTTP(rec2, req2)
	require.Equal(t, 200, rec2.Code)
}

func TestLoopbackOnly_RejectsForeignHost(t *testing.T) {
	s, _ := newTestServer(t)
	mux := s.Mux()

	req := httptest.NewRequest("GET", "/health", nil)
	req.Host = "evil.example.com"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	require.Equal(t, 403, rec.Code)
}
