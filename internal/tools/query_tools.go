// query_tools.go — get_element_refs (SPEC_FULL §4.5 query tools).
package tools

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/devbridge/browser-debug-bridge/internal/mcp"
	"github.com/devbridge/browser-debug-bridge/internal/store"
)

// RegisterQueryTools wires the UI-reference lookup tool into reg.
func RegisterQueryTools(reg *mcp.Registry, deps Deps) {
	reg.Register(mcp.Tool{
		Name:        "get_element_refs",
		Description: "Look up previously observed UI element references (ui/element_ref events) by CSS selector substring.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to query"),
			"selector":   mcp.StringSchema("CSS selector substring to match against observed element refs; omit to return all"),
			"limit":      mcp.IntBoundSchema("Max element refs to return", 1, 500, 50),
			"offset":     mcp.IntBoundSchema("Pagination offset", 0, 1_000_000, 0),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				Selector  string `json:"selector"`
				Limit     int    `json:"limit"`
				Offset    int    `json:"offset"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			limit := mcp.ClampInt(p.Limit, 1, 500, 50)
			offset := mcp.ClampInt(p.Offset, 0, 1_000_000, 0)

			refs, err := deps.ElementRefs(ctx, p.SessionID, limit, offset)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}
			if p.Selector != "" {
				refs = filterBySelector(refs, p.Selector)
			}

			body := mcp.Envelope(deps, map[string]any{"element_refs": refs, "count": len(refs)}, map[string]any{"limit": limit, "offset": offset})
			return mcp.JSONResponse("", body)
		},
	})
}

// filterBySelector keeps only events whose data payload's "selector" field
// contains needle, case-insensitively. Events with no selector field (or
// malformed data) are dropped once a selector filter is requested.
func filterBySelector(refs []store.Event, needle string) []store.Event {
	needle = strings.ToLower(needle)
	out := make([]store.Event, 0, len(refs))
	for _, e := range refs {
		var payload struct {
			Selector string `json:"selector"`
		}
		if err := json.Unmarshal(e.Data, &payload); err != nil {
			continue
		}
		if strings.Contains(strings.ToLower(payload.Selector), needle) {
			out = append(out, e)
		}
	}
	return out
}
