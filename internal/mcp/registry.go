// registry.go — the tool registry MCP's tools/list and tools/call consult.
// internal/tools packages register their handlers here at startup; the
// registry itself is agnostic to what any particular tool does.
package mcp

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
)

// ToolHandler executes one tool call and returns the MCP tool-result JSON
// (already wrapped via TextResponse/JSONResponse/StructuredErrorResponse).
type ToolHandler func(ctx context.Context, args json.RawMessage) json.RawMessage

// Tool is one entry in the registry: its MCP-visible declaration plus the
// handler that serves it.
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Handler     ToolHandler
}

// Registry holds every registered tool, keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds or replaces a tool. Later registrations for the same name
// win, which lets cmd/bridge override a tool in tests without reaching into
// the registry's internals.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Name] = t
}

// List returns every registered tool's MCP declaration, sorted by name for
// deterministic tools/list responses.
func (r *Registry) List() []MCPTool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]MCPTool, 0, len(names))
	for _, name := range names {
		t := r.tools[name]
		out = append(out, MCPTool{Name: t.Name, Description: t.Description, InputSchema: t.InputSchema})
	}
	return out
}

// Call invokes the named tool's handler. ok is false when no tool with that
// name is registered, letting the caller surface a typed unknown_tool error.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (result json.RawMessage, ok bool) {
	r.mu.RLock()
	t, found := r.tools[name]
	r.mu.RUnlock()
	if !found {
		return nil, false
	}
	return t.Handler(ctx, args), true
}
