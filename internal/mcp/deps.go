// deps.go — Composable dependency interfaces for MCP tool packages.
// Each tool package defines its own Deps interface by embedding these
// sub-interfaces; the runtime's concrete handler satisfies all of them with
// zero code changes.
package mcp

import (
	"context"

	"github.com/devbridge/browser-debug-bridge/internal/dispatch"
	"github.com/devbridge/browser-debug-bridge/internal/redact"
	"github.com/devbridge/browser-debug-bridge/internal/store"
)

// SessionStore is the read surface over session/event/network/fingerprint
// history used by the session, error/network, and query tool families.
type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (store.Session, error)
	ListSessions(ctx context.Context, sinceMillis int64, limit, offset int) ([]store.Session, error)
	RecentEvents(ctx context.Context, sessionID string, eventType string, limit, offset int) ([]store.Event, error)
	NavigationHistory(ctx context.Context, sessionID string, limit, offset int) ([]store.Event, error)
	ConsoleEvents(ctx context.Context, sessionID string, limit, offset int) ([]store.Event, error)
	ElementRefs(ctx context.Context, sessionID string, limit, offset int) ([]store.Event, error)
	EventsInWindow(ctx context.Context, sessionID string, fromMillis, toMillis int64) ([]store.Event, error)
	ErrorFingerprints(ctx context.Context, sessionID string, limit, offset int) ([]store.ErrorFingerprint, error)
	NetworkFailuresGrouped(ctx context.Context, sessionID, groupBy string, limit, offset int) ([]store.NetworkFailureGroup, error)
}

// SnapshotStore is the read surface used by the snapshot tool family.
type SnapshotStore interface {
	ListSnapshots(ctx context.Context, sessionID string, limit, offset int) ([]store.Snapshot, error)
	SnapshotForEvent(ctx context.Context, sessionID string, eventTimestamp int64, maxDeltaMs int64) (*store.Snapshot, error)
	ReadSnapshotAssetChunk(ctx context.Context, snapshotID string, offset, maxBytes int) ([]byte, int64, error)
}

// CaptureRequester is implemented by *dispatch.Dispatcher. Heavy capture
// tools use it to round-trip a command to the bound browser agent and
// interpret the capture-specific sentinel errors.
type CaptureRequester interface {
	RequestCapture(ctx context.Context, sessionID, kind string, payload any) (dispatch.Result, error)
}

// ObjectRedactor annotates a tool response with a redaction summary before
// it is returned to the MCP host, per the bit-exact envelope shape
// ({total_fields, redacted_fields, rules_applied}).
type ObjectRedactor interface {
	RedactObject(v any) redact.ObjectResult
}
