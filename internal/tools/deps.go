// deps.go — Deps aggregates every sub-interface internal/mcp exposes into
// the single dependency surface this package's tool handlers close over.
// A single concrete type (wired in cmd/bridge) satisfies all of them.
package tools

import "github.com/devbridge/browser-debug-bridge/internal/mcp"

// Deps is implemented by the concrete runtime wiring in cmd/bridge: a
// *store.Store for the query-only methods, a *dispatch.Dispatcher for
// CaptureRequester, and a redact.Adapter for ObjectRedactor.
type Deps interface {
	mcp.SessionStore
	mcp.SnapshotStore
	mcp.CaptureRequester
	mcp.ObjectRedactor
}
