// correlation_tools.go — explain_last_failure, get_event_correlation
// (SPEC_FULL §4.5 correlation tools). Both read only already-persisted
// events and network records; neither touches the Capture Dispatcher, so
// they run under internal/bridge.CorrelationTimeout rather than the heavier
// capture timeout.
package tools

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"github.com/devbridge/browser-debug-bridge/internal/mcp"
	"github.com/devbridge/browser-debug-bridge/internal/store"
)

// correlated is one event or network record scored against an anchor
// timestamp.
type correlated struct {
	Kind      string  `json:"kind"` // "event" or "network"
	Type      string  `json:"type"`
	Timestamp int64   `json:"timestamp"`
	Score     float64 `json:"score"`
	Summary   string  `json:"summary,omitempty"`
}

// RegisterCorrelationTools wires the cross-signal correlation tools into reg.
func RegisterCorrelationTools(reg *mcp.Registry, deps Deps) {
	reg.Register(mcp.Tool{
		Name:        "explain_last_failure",
		Description: "Find the most recent error or network failure and surface the events most likely related to it.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to inspect"),
			"lookback":   mcp.IntBoundSchema("How far back to search for a failure, in seconds", 1, 300, 30),
		}, "session_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID string `json:"session_id"`
				Lookback  int    `json:"lookback"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			lookback := mcp.ClampInt(p.Lookback, 1, 300, 30)

			now := nowMillis(ctx, deps, p.SessionID)
			fromMillis := now - int64(lookback)*1000

			events, err := deps.EventsInWindow(ctx, p.SessionID, fromMillis, now)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}
			failures, err := windowedNetworkFailures(ctx, deps, p.SessionID, fromMillis, now)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}

			anchor, anchorType, found := lastFailureAnchor(events, failures)
			if !found {
				body := mcp.Envelope(deps, map[string]any{
					"anchor":      nil,
					"correlated":  []correlated{},
					"explanation": "no error or network failure found in the lookback window",
				}, map[string]any{"lookback_seconds": lookback})
				return mcp.JSONResponse("", body)
			}

			const windowSeconds = 5
			items := correlateAround(anchor, anchorType, windowSeconds, events, failures)

			body := mcp.Envelope(deps, map[string]any{
				"anchor":      map[string]any{"type": anchorType, "timestamp": anchor},
				"correlated":  items,
				"explanation": explanationFor(anchorType, items),
			}, map[string]any{"lookback_seconds": lookback, "correlation_window_seconds": windowSeconds})
			return mcp.JSONResponse("", body)
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_event_correlation",
		Description: "Score events and network failures near an anchor timestamp by temporal proximity, with causal tie-breaks.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id":       mcp.StringSchema("Session to inspect"),
			"anchor_timestamp": mcp.IntBoundSchema("Unix epoch millis to correlate around", 0, 1<<62, 0),
			"window":           mcp.IntBoundSchema("Correlation half-window, in seconds", 1, 60, 5),
		}, "session_id", "anchor_timestamp"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID       string `json:"session_id"`
				AnchorTimestamp int64  `json:"anchor_timestamp"`
				Window          int    `json:"window"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			if p.AnchorTimestamp == 0 {
				return missingParam("anchor_timestamp")
			}
			window := mcp.ClampInt(p.Window, 1, 60, 5)

			fromMillis := p.AnchorTimestamp - int64(window)*1000
			toMillis := p.AnchorTimestamp + int64(window)*1000

			events, err := deps.EventsInWindow(ctx, p.SessionID, fromMillis, toMillis)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}
			failures, err := windowedNetworkFailures(ctx, deps, p.SessionID, fromMillis, toMillis)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}

			items := correlateAround(p.AnchorTimestamp, "", window, events, failures)

			body := mcp.Envelope(deps, map[string]any{
				"anchor_timestamp": p.AnchorTimestamp,
				"correlated":       items,
			}, map[string]any{"window_seconds": window})
			return mcp.JSONResponse("", body)
		},
	})
}

// nowMillis derives "now" from the latest observed event instead of the wall
// clock, since sessions may be replayed well after capture.
func nowMillis(ctx context.Context, deps Deps, sessionID string) int64 {
	recent, err := deps.RecentEvents(ctx, sessionID, "", 1, 0)
	if err == nil && len(recent) > 0 {
		return recent[0].Timestamp
	}
	return 0
}

func windowedNetworkFailures(ctx context.Context, deps Deps, sessionID string, fromMillis, toMillis int64) ([]store.NetworkRecord, error) {
	groups, err := deps.NetworkFailuresGrouped(ctx, sessionID, "url", 1000, 0)
	if err != nil {
		return nil, err
	}
	var out []store.NetworkRecord
	for _, g := range groups {
		for _, r := range g.Records {
			if r.Timestamp >= fromMillis && r.Timestamp <= toMillis {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// lastFailureAnchor picks the most recent error event or network failure
// across both slices.
func lastFailureAnchor(events []store.Event, failures []store.NetworkRecord) (timestamp int64, kind string, found bool) {
	for _, e := range events {
		if e.Type == store.EventError && e.Timestamp > timestamp {
			timestamp, kind, found = e.Timestamp, "error", true
		}
	}
	for _, r := range failures {
		if r.Timestamp > timestamp {
			timestamp, kind, found = r.Timestamp, "network", true
		}
	}
	return timestamp, kind, found
}

// correlateAround scores every event/failure against anchor using
// 1/(1+|dt|/window), clamped to [0,1], then sorts by score descending with
// causal tie-breaks: click precedes network, error precedes console.
func correlateAround(anchor int64, anchorType string, windowSeconds int, events []store.Event, failures []store.NetworkRecord) []correlated {
	window := float64(windowSeconds) * 1000
	items := make([]correlated, 0, len(events)+len(failures))

	for _, e := range events {
		items = append(items, correlated{
			Kind:      "event",
			Type:      e.Type,
			Timestamp: e.Timestamp,
			Score:     proximityScore(anchor, e.Timestamp, window),
		})
	}
	for _, r := range failures {
		summary := r.Method + " " + r.URL
		items = append(items, correlated{
			Kind:      "network",
			Type:      r.ErrorType,
			Timestamp: r.Timestamp,
			Score:     proximityScore(anchor, r.Timestamp, window),
			Summary:   summary,
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return causalPriority(anchorType, items[i]) > causalPriority(anchorType, items[j])
	})
	return items
}

func proximityScore(anchor, t int64, windowMillis float64) float64 {
	if windowMillis <= 0 {
		windowMillis = 1
	}
	dt := float64(anchor - t)
	if dt < 0 {
		dt = -dt
	}
	score := 1 / (1 + dt/windowMillis)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// causalPriority breaks score ties in favor of well-known causal pairs:
// a click that preceded a network failure, or an error followed by the
// console log that explains it.
func causalPriority(anchorType string, item correlated) int {
	switch {
	case anchorType == "click" && item.Kind == "network":
		return 2
	case anchorType == "error" && item.Type == string(store.EventConsole):
		return 2
	case item.Kind == "network":
		return 1
	default:
		return 0
	}
}

func explanationFor(anchorType string, items []correlated) string {
	if len(items) == 0 {
		return "no correlated activity found near the failure"
	}
	top := items[0]
	switch anchorType {
	case "network":
		return "network failure at " + formatTS(top.Timestamp) + "; closest related activity: " + top.Type
	default:
		return "error correlated with nearby " + top.Type + " activity"
	}
}

func formatTS(ts int64) string {
	return strconv.FormatInt(ts, 10)
}
