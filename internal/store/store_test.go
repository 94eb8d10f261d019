package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/devbridge/browser-debug-bridge/internal/logging"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(context.Background(), filepath.Join(dir, "bridge.sqlite"), logging.Noop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// TestInsertEventsBatch_QueryableAfterAck is Testable Property 1: for all
// event batches submitted, after the server acknowledges, every event is
// queryable, and only events in that batch are attributed to the session.
func TestInsertEventsBatch_QueryableAfterAck(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSession(ctx, Session{SessionID: "s1", CreatedAt: 1000, Status: SessionActive}))
	require.NoError(t, s.UpsertSession(ctx, Session{SessionID: "s2", CreatedAt: 1000, Status: SessionActive}))

	batch := []Event{
		{EventID: "e1", Type: EventClick, Timestamp: 1100, Data: json.RawMessage(`{"x":1}`)},
		{EventID: "e2", Type: EventClick, Timestamp: 1200, Data: json.RawMessage(`{"x":2}`)},
	}
	require.NoError(t, s.InsertEventsBatch(ctx, "s1", batch))
	require.NoError(t, s.InsertEventsBatch(ctx, "s2", []Event{
		{EventID: "e3", Type: EventClick, Timestamp: 1150, Data: json.RawMessage(`{}`)},
	}))

	got, err := s.RecentEvents(ctx, "s1", "", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, e := range got {
		require.Equal(t, "s1", e.SessionID)
	}
}

func TestInsertEventsBatch_EmptyIsNoop(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSession(ctx, Session{SessionID: "s1", CreatedAt: 1000}))
	require.NoError(t, s.InsertEventsBatch(ctx, "s1", nil))
	got, err := s.RecentEvents(ctx, "s1", "", 10, 0)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestSessionLifecycle_CloseRejectsEndedBeforeCreated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSession(ctx, Session{SessionID: "s1", CreatedAt: 5000}))
	err := s.CloseSession(ctx, "s1", 1000)
	require.Error(t, err)
}

func TestSessionLifecycle_CloseSucceeds(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSession(ctx, Session{SessionID: "s1", CreatedAt: 5000}))
	require.NoError(t, s.CloseSession(ctx, "s1", 6000))

	got, err := s.GetSession(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, SessionClosed, got.Status)
	require.NotNil(t, got.EndedAt)
	require.Equal(t, int64(6000), *got.EndedAt)
}

func TestNetworkFailuresGrouped_ByDomain(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSession(ctx, Session{SessionID: "s1", CreatedAt: 1}))
	require.NoError(t, s.InsertNetworkBatch(ctx, "s1", []NetworkRecord{
		{NetworkID: "n1", Timestamp: 1, Method: "GET", URL: "https://api.example.com/a", Status: 500, ErrorType: NetworkErrorHTTP},
		{NetworkID: "n2", Timestamp: 2, Method: "GET", URL: "https://api.example.com/b", Status: 502, ErrorType: NetworkErrorHTTP},
		{NetworkID: "n3", Timestamp: 3, Method: "GET", URL: "https://other.example.com/c", Status: 200, ErrorType: NetworkErrorNone},
	}))

	groups, err := s.NetworkFailuresGrouped(ctx, "s1", "domain", 10, 0)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "api.example.com", groups[0].Key)
	require.Equal(t, 2, groups[0].Count)
}

func TestSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.UpsertSession(ctx, Session{SessionID: "s1", CreatedAt: 1}))

	dom := "<html></html>"
	require.NoError(t, s.InsertSnapshot(ctx, Snapshot{
		SnapshotID: "snap1", SessionID: "s1", Timestamp: 100, Trigger: TriggerManual,
		URL: "https://example.com", Mode: SnapshotMode{DOM: true, StyleMode: StyleModeLite},
		DOMPayload: &dom,
	}))

	snaps, err := s.ListSnapshots(ctx, "s1", 10, 0)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	require.Equal(t, "snap1", snaps[0].SnapshotID)

	require.NoError(t, s.InsertSnapshotAsset(ctx, SnapshotAsset{
		AssetID: "asset1", SnapshotID: "snap1", Kind: "png", Bytes: []byte("0123456789"),
	}))
	chunk, total, err := s.ReadSnapshotAssetChunk(ctx, "snap1", 2, 4)
	require.NoError(t, err)
	require.Equal(t, []byte("2345"), chunk)
	require.Equal(t, int64(10), total)
}
