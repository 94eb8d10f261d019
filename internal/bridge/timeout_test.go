// timeout_test.go — Tests for ToolCallTimeout and ExtractToolAction.
package bridge

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToolCallTimeout(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		method   string
		params   string
		expected time.Duration
	}{
		{"ping gets fast timeout", "ping", `{}`, FastTimeout},
		{"resources/read gets fast timeout", "resources/read", `{}`, FastTimeout},
		{"tools/list gets fast timeout", "tools/list", `{}`, FastTimeout},
		{"list_sessions gets fast timeout", "tools/call", `{"name":"list_sessions","arguments":{}}`, FastTimeout},
		{"get_recent_events gets fast timeout", "tools/call", `{"name":"get_recent_events","arguments":{}}`, FastTimeout},
		{"get_network_failures gets fast timeout", "tools/call", `{"name":"get_network_failures","arguments":{}}`, FastTimeout},
		{"get_dom_subtree gets capture timeout", "tools/call", `{"name":"get_dom_subtree","arguments":{}}`, CaptureTimeout},
		{"get_dom_document gets capture timeout", "tools/call", `{"name":"get_dom_document","arguments":{"mode":"outline"}}`, CaptureTimeout},
		{"get_computed_styles gets capture timeout", "tools/call", `{"name":"get_computed_styles","arguments":{}}`, CaptureTimeout},
		{"get_layout_metrics gets capture timeout", "tools/call", `{"name":"get_layout_metrics","arguments":{}}`, CaptureTimeout},
		{"capture_ui_snapshot gets capture timeout", "tools/call", `{"name":"capture_ui_snapshot","arguments":{}}`, CaptureTimeout},
		{"explain_last_failure gets correlation timeout", "tools/call", `{"name":"explain_last_failure","arguments":{}}`, CorrelationTimeout},
		{"get_event_correlation gets correlation timeout", "tools/call", `{"name":"get_event_correlation","arguments":{}}`, CorrelationTimeout},
		{"malformed params gets fast timeout", "tools/call", `{bad json}`, FastTimeout},
		{"unknown tool gets fast timeout", "tools/call", `{"name":"unknown_tool","arguments":{}}`, FastTimeout},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := ToolCallTimeout(tc.method, json.RawMessage(tc.params))
			if got != tc.expected {
				t.Errorf("ToolCallTimeout(%s, %s) = %v, want %v", tc.method, tc.params, got, tc.expected)
			}
		})
	}
}

func TestExtractToolAction(t *testing.T) {
	t.Parallel()

	t.Run("non-tools/call returns empty", func(t *testing.T) {
		name, action := ExtractToolAction("ping", json.RawMessage(`{}`))
		if name != "" || action != "" {
			t.Errorf("expected empty, got name=%q action=%q", name, action)
		}
	})

	t.Run("tools/call with group_by", func(t *testing.T) {
		name, action := ExtractToolAction("tools/call", json.RawMessage(`{"name":"get_network_failures","arguments":{"group_by":"domain"}}`))
		if name != "get_network_failures" || action != "domain" {
			t.Errorf("expected get_network_failures/domain, got name=%q action=%q", name, action)
		}
	})

	t.Run("tools/call with mode", func(t *testing.T) {
		name, action := ExtractToolAction("tools/call", json.RawMessage(`{"name":"get_dom_document","arguments":{"mode":"html"}}`))
		if name != "get_dom_document" || action != "html" {
			t.Errorf("expected get_dom_document/html, got name=%q action=%q", name, action)
		}
	})

	t.Run("malformed params", func(t *testing.T) {
		name, action := ExtractToolAction("tools/call", json.RawMessage(`{bad`))
		if name != "" || action != "" {
			t.Errorf("expected empty for malformed, got name=%q action=%q", name, action)
		}
	})
}
