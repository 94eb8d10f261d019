// session_tools.go — list_sessions, get_session_summary, get_recent_events,
// get_navigation_history, get_console_events (SPEC_FULL §4.5 session tools).
package tools

import (
	"context"
	"encoding/json"
	"time"

	"github.com/devbridge/browser-debug-bridge/internal/mcp"
)

// RegisterSessionTools wires the session-history tools into reg.
func RegisterSessionTools(reg *mcp.Registry, deps Deps) {
	reg.Register(mcp.Tool{
		Name:        "list_sessions",
		Description: "List capture sessions seen in the last since_minutes minutes.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"since_minutes": mcp.IntBoundSchema("Look-back window in minutes", 1, 1440, 60),
			"limit":         mcp.IntBoundSchema("Max sessions to return", 1, 500, 50),
			"offset":        mcp.IntBoundSchema("Pagination offset", 0, 1_000_000, 0),
		}),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SinceMinutes int `json:"since_minutes"`
				Limit        int `json:"limit"`
				Offset       int `json:"offset"`
			}
			mcp.LenientUnmarshal(args, &p)
			sinceMinutes := mcp.ClampInt(p.SinceMinutes, 1, 1440, 60)
			limit := mcp.ClampInt(p.Limit, 1, 500, 50)
			offset := mcp.ClampInt(p.Offset, 0, 1_000_000, 0)

			sinceMillis := time.Now().Add(-time.Duration(sinceMinutes) * time.Minute).UnixMilli()
			sessions, err := deps.ListSessions(ctx, sinceMillis, limit, offset)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Retry with a smaller since_minutes window")
			}

			body := mcp.Envelope(deps, map[string]any{"sessions": sessions, "count": len(sessions)}, map[string]any{
				"since_minutes": sinceMinutes, "limit": limit, "offset": offset,
			})
			return mcp.JSONResponse("", body)
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_session_summary",
		Description: "Summarize one session: status, event/network/error counts, last activity.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to summarize"),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}

			sess, err := deps.GetSession(ctx, p.SessionID)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, "unknown session: "+p.SessionID, "Call list_sessions to find a valid session_id", mcp.WithParam("session_id"))
			}

			events, _ := deps.RecentEvents(ctx, p.SessionID, "", 1, 0)
			fingerprints, _ := deps.ErrorFingerprints(ctx, p.SessionID, 1, 0)
			failures, _ := deps.NetworkFailuresGrouped(ctx, p.SessionID, "url", 1, 0)

			var lastActivity int64
			if len(events) > 0 {
				lastActivity = events[0].Timestamp
			}

			body := mcp.Envelope(deps, map[string]any{
				"session":             sess,
				"has_recent_events":   len(events) > 0,
				"last_activity":       lastActivity,
				"has_error_fingerprints": len(fingerprints) > 0,
				"has_network_failures":   len(failures) > 0,
			}, nil)
			return mcp.JSONResponse("", body)
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_recent_events",
		Description: "Fetch recent events for a session, optionally filtered by type.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to query"),
			"event_type": mcp.StringSchema("Restrict to one event type (e.g. click, error); omit for all"),
			"limit":      mcp.IntBoundSchema("Max events to return", 1, 500, 50),
			"offset":     mcp.IntBoundSchema("Pagination offset", 0, 1_000_000, 0),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				EventType string `json:"event_type"`
				Limit     int    `json:"limit"`
				Offset    int    `json:"offset"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			limit := mcp.ClampInt(p.Limit, 1, 500, 50)
			offset := mcp.ClampInt(p.Offset, 0, 1_000_000, 0)

			events, err := deps.RecentEvents(ctx, p.SessionID, p.EventType, limit, offset)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id and event_type")
			}
			body := mcp.Envelope(deps, map[string]any{"events": events, "count": len(events)}, map[string]any{"limit": limit, "offset": offset})
			return mcp.JSONResponse("", body)
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_navigation_history",
		Description: "Fetch the session's navigation (page-load) event history.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to query"),
			"limit":      mcp.IntBoundSchema("Max events to return", 1, 500, 50),
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

			events, err := deps.NavigationHistory(ctx, p.SessionID, limit, offset)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}
			body := mcp.Envelope(deps, map[string]any{"navigations": events, "count": len(events)}, map[string]any{"limit": limit, "offset": offset})
			return mcp.JSONResponse("", body)
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_console_events",
		Description: "Fetch the session's captured console log events.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to query"),
			"limit":      mcp.IntBoundSchema("Max events to return", 1, 500, 50),
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

			events, err := deps.ConsoleEvents(ctx, p.SessionID, limit, offset)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}
			body := mcp.Envelope(deps, map[string]any{"console_events": events, "count": len(events)}, map[string]any{"limit": limit, "offset": offset})
			return mcp.JSONResponse("", body)
		},
	})
}

// missingParam is the shared validation-error shape for a required field
// left empty or omitted.
func missingParam(name string) json.RawMessage {
	return mcp.StructuredErrorResponse(mcp.ErrValidation, "missing required parameter '"+name+"'", "Add the '"+name+"' parameter and call again", mcp.WithParam(name))
}
