// error_network_tools.go — get_error_fingerprints, get_network_failures
// (SPEC_FULL §4.5 error/network tools).
package tools

import (
	"context"
	"encoding/json"

	"github.com/devbridge/browser-debug-bridge/internal/mcp"
)

var networkGroupByValues = []string{"url", "error_type", "domain"}

// RegisterErrorNetworkTools wires the error-fingerprint and network-failure
// tools into reg.
func RegisterErrorNetworkTools(reg *mcp.Registry, deps Deps) {
	reg.Register(mcp.Tool{
		Name:        "get_error_fingerprints",
		Description: "List deduplicated error fingerprints for a session, most recently seen first.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to query"),
			"limit":      mcp.IntBoundSchema("Max fingerprints to return", 1, 500, 50),
			"offset":     mcp.IntBoundSchema("Pagination offset", 0, 1_000_000, 0),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				Limit     int    `json:"limit"`
				Offset    int    `json:"offset"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			limit := mcp.ClampInt(p.Limit, 1, 500, 50)
			offset := mcp.ClampInt(p.Offset, 0, 1_000_000, 0)

			fingerprints, err := deps.ErrorFingerprints(ctx, p.SessionID, limit, offset)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}
			body := mcp.Envelope(deps, map[string]any{"fingerprints": fingerprints, "count": len(fingerprints)}, map[string]any{"limit": limit, "offset": offset})
			return mcp.JSONResponse("", body)
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_network_failures",
		Description: "List failing network requests (status>=400 or a non-none error_type) grouped by url, error_type, or domain.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to query"),
			"group_by":   mcp.StringEnumSchema("How to group failures", networkGroupByValues, "url"),
			"limit":      mcp.IntBoundSchema("Max failing records to scan before grouping", 1, 1000, 200),
			"offset":     mcp.IntBoundSchema("Pagination offset", 0, 1_000_000, 0),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				GroupBy   string `json:"group_by"`
				Limit     int    `json:"limit"`
				Offset    int    `json:"offset"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			groupBy := p.GroupBy
			if !isValidGroupBy(groupBy) {
				groupBy = "url"
			}
			limit := mcp.ClampInt(p.Limit, 1, 1000, 200)
			offset := mcp.ClampInt(p.Offset, 0, 1_000_000, 0)

			groups, err := deps.NetworkFailuresGrouped(ctx, p.SessionID, groupBy, limit, offset)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}
			body := mcp.Envelope(deps, map[string]any{"groups": groups, "group_count": len(groups)}, map[string]any{"group_by": groupBy, "limit": limit, "offset": offset})
			return mcp.JSONResponse("", body)
		},
	})
}

func isValidGroupBy(v string) bool {
	for _, g := range networkGroupByValues {
		if v == g {
			return true
		}
	}
	return false
}
