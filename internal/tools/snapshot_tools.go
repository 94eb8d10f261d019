// snapshot_tools.go — list_snapshots, get_snapshot_for_event,
// get_snapshot_asset (SPEC_FULL §4.5 snapshot tools).
package tools

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"

	"github.com/devbridge/browser-debug-bridge/internal/mcp"
	"github.com/devbridge/browser-debug-bridge/internal/store"
)

var assetEncodings = []string{"raw", "base64"}

// RegisterSnapshotTools wires the snapshot lookup and asset-retrieval tools
// into reg.
func RegisterSnapshotTools(reg *mcp.Registry, deps Deps) {
	reg.Register(mcp.Tool{
		Name:        "list_snapshots",
		Description: "List UI snapshots captured for a session, newest first.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id": mcp.StringSchema("Session to query"),
			"limit":      mcp.IntBoundSchema("Max snapshots to return", 1, 200, 20),
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
			limit := mcp.ClampInt(p.Limit, 1, 200, 20)
			offset := mcp.ClampInt(p.Offset, 0, 1_000_000, 0)

			snaps, err := deps.ListSnapshots(ctx, p.SessionID, limit, offset)
			if err != nil {
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id")
			}
			body := mcp.Envelope(deps, map[string]any{"snapshots": snaps, "count": len(snaps)}, map[string]any{"limit": limit, "offset": offset})
			return mcp.JSONResponse("", body)
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_snapshot_for_event",
		Description: "Find the snapshot nearest an event's timestamp, within max_delta_ms.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"session_id":      mcp.StringSchema("Session to query"),
			"event_timestamp": mcp.IntBoundSchema("Unix epoch millis of the event to match", 0, 1<<62, 0),
			"max_delta_ms":    mcp.IntBoundSchema("Max allowed distance between the event and a candidate snapshot, in ms", 0, 60_000, 2000),
		}, "session_id", "event_timestamp"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SessionID      string `json:"session_id"`
				EventTimestamp int64  `json:"event_timestamp"`
				MaxDeltaMs     int64  `json:"max_delta_ms"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SessionID == "" {
				return missingParam("session_id")
			}
			if p.EventTimestamp == 0 {
				return missingParam("event_timestamp")
			}
			maxDelta := mcp.ClampInt64(p.MaxDeltaMs, 0, 60_000, 2000)

			snap, err := deps.SnapshotForEvent(ctx, p.SessionID, p.EventTimestamp, maxDelta)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					body := mcp.Envelope(deps, map[string]any{"snapshot": nil, "found": false}, map[string]any{"max_delta_ms": maxDelta})
					return mcp.JSONResponse("No snapshot found within max_delta_ms", body)
				}
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check session_id and event_timestamp")
			}
			body := mcp.Envelope(deps, map[string]any{"snapshot": snap, "found": true}, map[string]any{"max_delta_ms": maxDelta})
			return mcp.JSONResponse("", body)
		},
	})

	reg.Register(mcp.Tool{
		Name:        "get_snapshot_asset",
		Description: "Read a chunk of a snapshot's binary asset (e.g. PNG bytes) starting at offset.",
		InputSchema: mcp.ObjectSchema(map[string]any{
			"snapshot_id": mcp.StringSchema("Snapshot whose asset to read"),
			"offset":      mcp.IntBoundSchema("Byte offset to start reading from", 0, 1<<31, 0),
			"max_bytes":   mcp.IntBoundSchema("Max bytes to return in this chunk", 1, 262_144, 65_536),
			"encoding":    mcp.StringEnumSchema("raw returns bytes as a JSON array of ints, base64 returns a base64 string", assetEncodings, "base64"),
		}, "snapshot_id"),
		Handler: func(ctx context.Context, args json.RawMessage) json.RawMessage {
			var p struct {
				SnapshotID string `json:"snapshot_id"`
				Offset     int    `json:"offset"`
				MaxBytes   int    `json:"max_bytes"`
				Encoding   string `json:"encoding"`
			}
			mcp.LenientUnmarshal(args, &p)
			if p.SnapshotID == "" {
				return missingParam("snapshot_id")
			}
			offset := mcp.ClampInt(p.Offset, 0, 1<<31-1, 0)
			maxBytes := mcp.ClampInt(p.MaxBytes, 1, 262_144, 65_536)
			encoding := p.Encoding
			if encoding != "raw" && encoding != "base64" {
				encoding = "base64"
			}

			chunk, total, err := deps.ReadSnapshotAssetChunk(ctx, p.SnapshotID, offset, maxBytes)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					return mcp.StructuredErrorResponse(mcp.ErrValidation, "unknown snapshot_id: "+p.SnapshotID, "Call list_snapshots to find a valid snapshot_id", mcp.WithParam("snapshot_id"))
				}
				return mcp.StructuredErrorResponse(mcp.ErrValidation, err.Error(), "Check snapshot_id")
			}

			respBody := map[string]any{
				"total_bytes": total,
				"offset":      offset,
				"returned":    len(chunk),
				"eof":         int64(offset+len(chunk)) >= total,
			}
			if encoding == "raw" {
				respBody["data"] = chunk
			} else {
				respBody["data"] = base64.StdEncoding.EncodeToString(chunk)
			}
			body := mcp.Envelope(deps, respBody, map[string]any{"max_bytes": maxBytes, "encoding": encoding})
			return mcp.JSONResponse("", body)
		},
	})
}
