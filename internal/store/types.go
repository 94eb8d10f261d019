// types.go — Data model from SPEC_FULL §3, as Go types.
package store

import "encoding/json"

// Session is the logical capture window bound to a single extension agent.
type Session struct {
	SessionID string   `json:"session_id"`
	CreatedAt int64    `json:"created_at"`
	URL       string   `json:"url"`
	SafeMode  bool     `json:"safe_mode"`
	Allowlist []string `json:"allowlist"`
	Status    string   `json:"status"` // active | closed
	EndedAt   *int64   `json:"ended_at,omitempty"`
}

const (
	SessionActive = "active"
	SessionClosed = "closed"
)

// Event is any non-network, non-snapshot telemetry record.
type Event struct {
	EventID   string          `json:"event_id"`
	SessionID string          `json:"session_id"`
	Type      string          `json:"type"`
	Timestamp int64           `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Event types enumerated in SPEC_FULL §3.
const (
	EventNavigation = "navigation"
	EventConsole    = "console"
	EventError      = "error"
	EventClick      = "click"
	EventScroll     = "scroll"
	EventInput      = "input"
	EventChange     = "change"
	EventSubmit     = "submit"
	EventFocus      = "focus"
	EventBlur       = "blur"
	EventKeydown    = "keydown"
	EventUI         = "ui"
	EventElementRef = "element_ref"
	EventCustom     = "custom"
)

// NetworkRecord is one observed request lifecycle.
type NetworkRecord struct {
	NetworkID  string `json:"network_id"`
	SessionID  string `json:"session_id"`
	Timestamp  int64  `json:"timestamp"`
	Method     string `json:"method"`
	URL        string `json:"url"`
	Status     int    `json:"status"`
	DurationMs int64  `json:"duration_ms"`
	ErrorType  string `json:"error_type"` // timeout | cors | dns | blocked | http_error | none
}

const (
	NetworkErrorNone      = "none"
	NetworkErrorTimeout   = "timeout"
	NetworkErrorCORS      = "cors"
	NetworkErrorDNS       = "dns"
	NetworkErrorBlocked   = "blocked"
	NetworkErrorHTTP      = "http_error"
)

// ErrorFingerprint is the deduplicating aggregate over error events.
type ErrorFingerprint struct {
	Hash          string  `json:"hash"`
	SessionID     *string `json:"session_id,omitempty"`
	Count         int64   `json:"count"`
	FirstSeen     int64   `json:"first_seen"`
	LastSeen      int64   `json:"last_seen"`
	SampleMessage string  `json:"sample_message"`
	SampleStack   string  `json:"sample_stack"`
}

// SnapshotMode is the dom/png/style_mode tuple from SPEC_FULL §3.
type SnapshotMode struct {
	DOM       bool   `json:"dom"`
	PNG       bool   `json:"png"`
	StyleMode string `json:"style_mode"` // computed-lite | computed-full
}

const (
	StyleModeLite = "computed-lite"
	StyleModeFull = "computed-full"
)

// SnapshotTruncation records which parts of a snapshot were truncated.
type SnapshotTruncation struct {
	DOM    bool `json:"dom"`
	Styles bool `json:"styles"`
	PNG    bool `json:"png"`
}

// Snapshot is a UI capture at a point in time.
type Snapshot struct {
	SnapshotID    string             `json:"snapshot_id"`
	SessionID     string             `json:"session_id"`
	Timestamp     int64              `json:"timestamp"`
	Trigger       string             `json:"trigger"` // click | manual | navigation | error
	Selector      *string            `json:"selector,omitempty"`
	URL           string             `json:"url"`
	Mode          SnapshotMode       `json:"mode"`
	DOMPayload    *string            `json:"dom_payload,omitempty"`
	StylesPayload *string            `json:"styles_payload,omitempty"`
	Truncation    SnapshotTruncation `json:"truncation"`
	Redaction     json.RawMessage    `json:"redaction"`
	PNGAssetID    *string            `json:"png_asset_id,omitempty"`
}

const (
	TriggerClick      = "click"
	TriggerManual     = "manual"
	TriggerNavigation = "navigation"
	TriggerError      = "error"
)

// SnapshotAsset is an opaque binary blob for PNG captures.
type SnapshotAsset struct {
	AssetID    string `json:"asset_id"`
	SnapshotID string `json:"snapshot_id"`
	Kind       string `json:"kind"` // png
	Bytes      []byte `json:"-"`
	SizeBytes  int64  `json:"size_bytes"`
}

// MaxDOMBytes is the default dom_payload byte-length ceiling from §3; beyond
// it the outline substitute is used and truncation.dom is set.
const MaxDOMBytes = 512 * 1024
