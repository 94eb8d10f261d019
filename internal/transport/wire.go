// wire.go — WebSocket wire message shapes, SPEC_FULL §4.3.
package transport

import "encoding/json"

// SessionStart is the first message a connection must send before any other
// message is accepted (Handshake -> Bound transition).
type SessionStart struct {
	SessionID      string          `json:"session_id"`
	CreatedAt      int64           `json:"created_at"`
	URL            string          `json:"url"`
	SafeMode       bool            `json:"safe_mode"`
	Allowlist      []string        `json:"allowlist"`
	SnapshotConfig json.RawMessage `json:"snapshot_config,omitempty"`
}

// EventBatch carries up to 200 events accumulated over at most 2s
// (SPEC_FULL §4.3 batching policy); the agent decides the batch boundary,
// the server just writes whatever arrives in one transaction.
type EventBatch struct {
	SessionID string      `json:"session_id"`
	Events    []WireEvent `json:"events"`
}

// WireEvent is one event as it arrives over the wire, before being turned
// into an internal/store.Event.
type WireEvent struct {
	EventID   string          `json:"event_id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Category  string          `json:"category,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// NetworkBatch carries network records for one session.
type NetworkBatch struct {
	SessionID string              `json:"session_id"`
	Records   []WireNetworkRecord `json:"records"`
}

// WireNetworkRecord is one network record as it arrives over the wire.
type WireNetworkRecord struct {
	NetworkID  string `json:"network_id"`
	Timestamp  int64  `json:"timestamp"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ErrorType  string `json:"error_type"`
}

// WireSnapshot carries a snapshot payload for one session.
type WireSnapshot struct {
	SessionID string          `json:"session_id"`
	Trigger   string          `json:"trigger"`
	Selector  *string         `json:"selector,omitempty"`
	URL       string          `json:"url"`
	Timestamp int64           `json:"timestamp"`
	Mode      WireSnapshotMode `json:"mode"`
	DOM       *WireDOMPayload  `json:"dom,omitempty"`
	Styles    *string          `json:"styles,omitempty"`
	PNG       []byte           `json:"png,omitempty"`
	Profile   string           `json:"profile,omitempty"` // standard | strict, default standard
}

// WireSnapshotMode mirrors store.SnapshotMode over the wire.
type WireSnapshotMode struct {
	DOM       bool   `json:"dom"`
	PNG       bool   `json:"png"`
	StyleMode string `json:"style_mode"`
}

// WireDOMPayload wraps the DOM HTML so its byte length can be checked
// before it's persisted (SPEC §3 Snapshot invariant: dom_payload ≤
// max_dom_bytes or outline substitute with truncation.dom=true).
type WireDOMPayload struct {
	HTML string `json:"html"`
}

// CaptureCommand is sent server->agent to request heavy capture.
type CaptureCommand struct {
	CommandID string `json:"command_id"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Payload   any    `json:"payload"`
}

// CaptureResult is sent agent->server in response to a CaptureCommand.
type CaptureResult struct {
	CommandID string          `json:"command_id"`
	OK        bool            `json:"ok"`
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// envelope is the outermost {"type": "...", ...} shape every wire message
// is framed in, both directions; the remaining fields are unmarshalled a
// second time into the type-specific struct. "type" (not "kind") is the
// message discriminator so it doesn't collide with capture_command's own
// "kind" field (the capture kind, e.g. dom_subtree).
type envelope struct {
	Type string `json:"type"`
}

const (
	kindSessionStart   = "session_start"
	kindEventBatch     = "event_batch"
	kindNetworkBatch   = "network_batch"
	kindSnapshot       = "snapshot"
	kindCaptureCommand = "capture_command"
	kindCaptureResult  = "capture_result"
	kindPing           = "ping"
	kindPong           = "pong"
)
