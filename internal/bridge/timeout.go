// timeout.go — Per-request timeout logic for MCP tool calls.
package bridge

import (
	"encoding/json"
	"time"
)

// Timeout constants for different tool categories (SPEC_FULL §4.5).
const (
	FastTimeout        = 10 * time.Second
	CaptureTimeout     = 8 * time.Second
	CorrelationTimeout = 10 * time.Second
)

var heavyCaptureTools = map[string]bool{
	"get_dom_subtree":    true,
	"get_dom_document":   true,
	"get_computed_styles": true,
	"get_layout_metrics":  true,
	"capture_ui_snapshot": true,
}

var correlationTools = map[string]bool{
	"explain_last_failure":  true,
	"get_event_correlation": true,
}

// ToolCallTimeout returns the per-request timeout based on the MCP method and
// tool name. Session/query/error-network tools get FastTimeout; heavy capture
// tools that round-trip to the browser agent get CaptureTimeout (SPEC §4.5:
// "Heavy capture handlers call §4.4 with default timeout 8 s"); correlation
// tools, which only read already-persisted data, get CorrelationTimeout.
//
// method is the JSON-RPC method (e.g. "tools/call", "resources/read").
// params is the raw JSON of the request params.
func ToolCallTimeout(method string, params json.RawMessage) time.Duration {
	if method != "tools/call" {
		return FastTimeout
	}

	var p struct {
		Name string `json:"name"`
	}
	if json.Unmarshal(params, &p) != nil {
		return FastTimeout
	}

	switch {
	case heavyCaptureTools[p.Name]:
		return CaptureTimeout
	case correlationTools[p.Name]:
		return CorrelationTimeout
	default:
		return FastTimeout
	}
}

// ExtractToolAction extracts the tool name and (for snapshot/network tools)
// the group_by or mode discriminator from a tools/call request. Returns empty
// strings for non-tools/call methods or if parsing fails.
func ExtractToolAction(method string, params json.RawMessage) (toolName, action string) {
	if method != "tools/call" {
		return "", ""
	}
	var p struct {
		Name string          `json:"name"`
		Args json.RawMessage `json:"arguments"`
	}
	if json.Unmarshal(params, &p) != nil {
		return "", ""
	}
	var a struct {
		GroupBy string `json:"group_by"`
		Mode    string `json:"mode"`
	}
	_ = json.Unmarshal(p.Args, &a)
	if a.GroupBy != "" {
		return p.Name, a.GroupBy
	}
	return p.Name, a.Mode
}
