// heavy_tools.go — get_dom_subtree, get_dom_document, get_computed_styles,
// get_layout_metrics, capture_ui_snapshot (SPEC_FULL §4.5 heavy capture
// tools). Each round-trips through the Capture Dispatcher (§4.4) with the
// 8s default timeout from internal/bridge.CaptureTimeout and degrades to a
// partial result rather than a hard failure when the agent is slow.
package tools

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/devbridge/browser-debug-bridge/internal/dispatch"
	"github.com/devbridge/browser-debug-bridge/internal/mcp"
)

var domDocumentModes = []string{"outline", "html"}

// RegisterHeavyTools wires the browser round-trip capture tools into reg.
func RegisterHeavyTools(reg *mcp.Registry, deps Deps) {
	reg.Register(mcp.Tool{
		Name:        "get_dom_subtree",
		Description: "Capture the DOM subtree rooted at a selector from the connected browser agent.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Bound session to capture from"),
			"selector":   mcp.StringSchema("Root CSS selector; omit for document root"),
			"max_depth":  mcp.IntBoundSchema("Max DOM tree depth to serialize", 1, 10, 3),
			"max_bytes":  mcp.IntBoundSchema("Max serialized size in bytes", 1000, 1_000_000, 50_000),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				Selector  string `json:"selector"`
				MaxDepth  int    `json:"max_depth"`
				MaxBytes  int    `json:"max_bytes"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			maxDepth := mcp.ClampInt(p.MaxDepth, 1, 10, 3)
			maxBytes := mcp.ClampInt(p.MaxBytes, 1000, 1_000_000, 50_000)

			payload := map[string]any{"selector": p.Selector, "max_depth": maxDepth, "max_bytes": maxBytes}
			return captureOrDegrade(ctx, deps, p.SessionID, "dom_subtree", payload,
				map[string]any{"max_depth": maxDepth, "max_bytes": maxBytes},
				func() map[string]any {
					return map[string]any{"truncated": true, "outline": "<no subtree captured: agent did not respond in time>"}
				})
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_dom_document",
		Description: "Capture the full document, either as a text outline or raw HTML.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Bound session to capture from"),
			"mode":       mcp.StringEnumSchema("outline for a condensed text tree, html for raw markup", domDocumentModes, "outline"),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				Mode      string `json:"mode"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			mode := p.Mode
			if mode != "outline" && mode != "html" {
				mode = "outline"
			}

			payload := map[string]any{"mode": mode}
			return captureOrDegrade(ctx, deps, p.SessionID, "dom_document", payload,
				map[string]any{"mode": mode},
				func() map[string]any {
					return map[string]any{"truncated": true, "outline": "<document capture timed out>"}
				})
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_computed_styles",
		Description: "Capture computed CSS styles for an element from the connected browser agent.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Bound session to capture from"),
			"selector":   mcp.StringSchema("CSS selector of the element to inspect"),
		}, "session_id", "selector"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				Selector  string `json:"selector"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			if p.Selector == "" {
				return missingParam("selector")
			}

			payload := map[string]any{"selector": p.Selector}
			return captureOrDegrade(ctx, deps, p.SessionID, "computed_styles", payload, nil,
				func() map[string]any {
					return map[string]any{"truncated": true, "styles": map[string]any{}}
				})
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_layout_metrics",
		Description: "Capture layout geometry (bounding box, scroll offsets) for an element from the connected browser agent.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Bound session to capture from"),
			"selector":   mcp.StringSchema("CSS selector of the element to measure"),
		}, "session_id", "selector"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				Selector  string `json:"selector"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			if p.Selector == "" {
				return missingParam("selector")
			}

			payload := map[string]any{"selector": p.Selector}
			return captureOrDegrade(ctx, deps, p.SessionID, "layout_metrics", payload, nil,
				func() map[string]any {
					return map[string]any{"truncated": true, "metrics": map[string]any{}}
				})
		},
	})

	reg.Register(mcp.Tool{
		Name:        "capture_ui_snapshot",
		Description: "Trigger the connected browser agent to capture and persist a DOM/style/PNG snapshot.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Bound session to capture from"),
			"selector":   mcp.StringSchema("Root CSS selector to scope the snapshot to; omit for the full page"),
			"dom":        mcp.BoolSchema("Capture the DOM", true),
			"png":        mcp.BoolSchema("Capture a screenshot", false),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				Selector  string `json:"selector"`
				DOM       *bool  `json:"dom"`
				PNG       bool   `json:"png"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			dom := true
			if p.DOM != nil {
				dom = *p.DOM
			}

			payload := map[string]any{"selector": p.Selector, "dom": dom, "png": p.PNG, "trigger": "manual"}
			return captureOrDegrade(ctx, deps, p.SessionID, "ui_snapshot", payload, nil,
				func() map[string]any {
					return map[string]any{"truncated": true, "snapshot_id": nil}
				})
		},
	})
}

// captureOrDegrade issues a request_capture round trip and shapes the three
// outcomes the spec distinguishes: no agent bound (no_live_connection,
// surfaced immediately), success (the agent's data passed straight through),
// and timeout (a degraded partial result built by onTimeout, flagged so the
// MCP host can tell it apart from a complete response).
func captureOrDegrade(ctx context.Context, deps Deps, sessionID, kind string, payload any, limitsApplied map[string]any, onTimeout func() map[string]any) json.RawMessage {
	res, err := deps.RequestCapture(ctx, sessionID, kind, payload)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrNoLiveConnection):
			return mcp.StructuredErrorResponse(mcp.ErrNoLiveConnection, "no browser agent is connected for session "+sessionID, "Ensure the browser agent is running and retry")
		case errors.Is(err, dispatch.ErrCaptureTimeout), errors.Is(err, dispatch.ErrCaptureCancelled):
			body := mcp.Envelope(deps, onTimeout(), limitsApplied)
			return mcp.JSONResponse("Capture timed out; returning a degraded partial result", body)
		default:
			return mcp.StructuredErrorResponse(mcp.ErrTimeout, err.Error(), "Retry the capture")
		}
	}
	if !res.OK {
		return mcp.StructuredErrorResponse(bridgeCaptureErrorKind(res.Err), res.Err, "Retry the capture")
	}

	var data map[string]any
	if len(res.Data) > 0 {
		_ = json.Unmarshal(res.Data, &data)
	}
	if data == nil {
		data = map[string]any{}
	}
	body := mcp.Envelope(deps, data, limitsApplied)
	return mcp.JSONResponse("", body)
}

// bridgeCaptureErrorKind maps an agent-reported capture failure string to
// the nearest §7 error kind; agents report free-form messages, not kinds.
func bridgeCaptureErrorKind(msg string) string {
	if msg == "" {
		return mcp.ErrTimeout
	}
	return mcp.ErrValidation
}
