// runtime.go — the stdio JSON-RPC loop: reads one frame at a time from
// standard input, dispatches it, and writes exactly one newline-delimited
// JSON response to standard output per request (SPEC_FULL §4.5: "Nothing
// other than protocol frames may be written to standard output").
package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/devbridge/browser-debug-bridge/internal/bridge"
)

const maxStdioBodyBytes = 10 * 1024 * 1024

const serverInstructions = `This server exposes a browser debugging session's captured telemetry.

Workflow:
- Session tools (list_sessions, get_session_summary, get_recent_events, get_navigation_history, get_console_events) read passive history.
- Error/network tools (get_error_fingerprints, get_network_failures) summarize failures.
- Query tools (get_element_refs) look up previously captured UI references.
- Heavy capture tools (get_dom_subtree, get_dom_document, get_computed_styles, get_layout_metrics, capture_ui_snapshot) round-trip to the connected browser agent and may degrade to a partial result if the agent is slow.
- Correlation tools (explain_last_failure, get_event_correlation) rank nearby events against a failure by temporal proximity.
- Snapshot tools (list_snapshots, get_snapshot_for_event, get_snapshot_asset) retrieve previously captured DOM/style/PNG snapshots, the last in byte-offset chunks.

Every response carries a redaction_summary describing what was scrubbed before it reached you.`

// Runtime owns the stdin/stdout protocol loop and dispatches JSON-RPC
// requests to the tool registry.
type Runtime struct {
	log      *zap.Logger
	registry *Registry
	version  string
	writeMu  sync.Mutex
}

// NewRuntime builds a Runtime bound to the given tool registry.
func NewRuntime(log *zap.Logger, registry *Registry, version string) *Runtime {
	return &Runtime{log: log, registry: registry, version: version}
}

// Run reads JSON-RPC requests from r until EOF or ctx is cancelled, writing
// responses to w. It returns nil on a clean EOF.
func (rt *Runtime) Run(ctx context.Context, r io.Reader, w io.Writer) error {
	reader := bufio.NewReader(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		msg, err := bridge.ReadStdioMessage(reader, maxStdioBodyBytes)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("mcp: read stdio message: %w", err)
		}
		if len(msg) == 0 {
			continue
		}

		var req JSONRPCRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			rt.writeResponse(w, JSONRPCResponse{
				JSONRPC: "2.0",
				Error:   &JSONRPCError{Code: -32700, Message: "Parse error: " + err.Error()},
			})
			continue
		}

		resp := rt.handle(ctx, req)
		if resp == nil {
			continue // notification: JSON-RPC 2.0 forbids a response
		}
		rt.writeResponse(w, *resp)
	}
}

func (rt *Runtime) handle(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	if !req.HasID() || strings.HasPrefix(req.Method, "notifications/") {
		return nil
	}
	if req.HasInvalidID() {
		return &JSONRPCResponse{JSONRPC: "2.0", ID: nil, Error: &JSONRPCError{Code: -32600, Message: "Invalid request: id must be a string or number"}}
	}

	switch req.Method {
	case "initialize":
		return rt.handleInitialize(req)
	case "initialized", "notifications/initialized":
		return nil
	case "ping":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{}`)}
	case "tools/list":
		return rt.handleToolsList(req)
	case "tools/call":
		return rt.handleToolsCall(ctx, req)
	case "resources/list":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"resources":[]}`)}
	case "resources/templates/list":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"resourceTemplates":[]}`)}
	case "prompts/list":
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(`{"prompts":[]}`)}
	default:
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &JSONRPCError{Code: -32601, Message: "Method not found: " + req.Method}}
	}
}

func (rt *Runtime) handleInitialize(req JSONRPCRequest) *JSONRPCResponse {
	const supportedVersion = "2024-11-05"

	var params struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if len(req.Params) > 0 {
		_ = json.Unmarshal(req.Params, &params)
	}
	negotiated := supportedVersion
	if params.ProtocolVersion == supportedVersion {
		negotiated = params.ProtocolVersion
	}

	result := MCPInitializeResult{
		ProtocolVersion: negotiated,
		ServerInfo:      MCPServerInfo{Name: "browser-debug-bridge", Version: rt.version},
		Capabilities:    MCPCapabilities{Tools: MCPToolsCapability{}, Resources: MCPResourcesCapability{}},
		Instructions:    serverInstructions,
	}
	resultJSON, _ := json.Marshal(result)
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: resultJSON}
}

func (rt *Runtime) handleToolsList(req JSONRPCRequest) *JSONRPCResponse {
	result := MCPToolsListResult{Tools: rt.registry.List()}
	resultJSON, _ := json.Marshal(result)
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: resultJSON}
}

func (rt *Runtime) handleToolsCall(ctx context.Context, req JSONRPCRequest) *JSONRPCResponse {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Error: &JSONRPCError{Code: -32602, Message: "Invalid params: " + err.Error()}}
	}

	timeout := bridge.ToolCallTimeout(req.Method, req.Params)
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, ok := rt.registry.Call(callCtx, params.Name, params.Arguments)
	if !ok {
		result = StructuredErrorResponse(ErrUnknownTool, "no tool named '"+params.Name+"'", "Call tools/list to see the available tool names", WithParam("name"))
	}
	return &JSONRPCResponse{JSONRPC: "2.0", ID: req.ID, Result: result}
}

func (rt *Runtime) writeResponse(w io.Writer, resp JSONRPCResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		rt.log.Error("marshal jsonrpc response failed", zap.Error(err))
		return
	}
	rt.writeMu.Lock()
	defer rt.writeMu.Unlock()
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}
