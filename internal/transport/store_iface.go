// store_iface.go — the subset of *store.Store the transport layer depends
// on, declared locally so internal/transport doesn't import internal/store
// directly; cmd/bridge wires the concrete *store.Store in.
package transport

import (
	"context"

	"github.com/devbridge/browser-debug-bridge/internal/store"
)

// Store is implemented by *store.Store.
type Store interface {
	UpsertSession(ctx context.Context, sess store.Session) error
	GetSession(ctx context.Context, sessionID string) (store.Session, error)
	CloseSession(ctx context.Context, sessionID string, endedAt int64) error
	InsertEventsBatch(ctx context.Context, sessionID string, batch []store.Event) error
	InsertNetworkBatch(ctx context.Context, sessionID string, batch []store.NetworkRecord) error
	InsertSnapshot(ctx context.Context, snap store.Snapshot) error
	InsertSnapshotAsset(ctx context.Context, asset store.SnapshotAsset) error
	ListSnapshots(ctx context.Context, sessionID string, limit, offset int) ([]store.Snapshot, error)
	UpsertFingerprint(ctx context.Context, hash string, sessionID *string, sampleMessage, sampleStack string, seenAt int64) error
	TableCounts(ctx context.Context) (map[string]int64, error)
}

// Redactor is implemented by internal/redact for safe-mode substitution of
// inbound event payloads before they are persisted.
type Redactor interface {
	ApplySafeMode(category string, payload map[string]any) (scrubbed any, dropped bool)
}
