// errors.go — Structured error handling and error codes for MCP tools.
// Defines error constants, StructuredError type, and error response construction.
package mcp

import (
	"encoding/json"
	"fmt"
)

// Error kinds are self-describing snake_case strings, per the error taxonomy:
// every kind tells the LLM what went wrong and whether retrying helps.
const (
	// ErrValidation — schema violation in MCP input; surfaced with the
	// offending field path; not retried.
	ErrValidation = "validation"
	// ErrUnknownTool — requested tool not in the registry.
	ErrUnknownTool = "unknown_tool"
	// ErrNoLiveConnection — heavy capture requested without a bound agent.
	ErrNoLiveConnection = "no_live_connection"
	// ErrTimeout — capture did not complete before deadline; some handlers
	// attach a degraded/partial result alongside this kind.
	ErrTimeout = "timeout"
	// ErrPersistenceFailed — storage exhausted its retries.
	ErrPersistenceFailed = "persistence_failed"
	// ErrRedactionBlocked — a record was dropped by safe-mode policy.
	ErrRedactionBlocked = "redaction_blocked"
)

// StructuredError is embedded in MCP text content. Every field is
// self-describing so an LLM can act on it without a lookup table.
type StructuredError struct {
	Error        string `json:"error"`
	Message      string `json:"message"`
	Retry        string `json:"retry"`
	Retryable    bool   `json:"retryable"`
	RetryAfterMs int    `json:"retry_after_ms,omitempty"`
	Degraded     bool   `json:"degraded,omitempty"`
	Param        string `json:"param,omitempty"`
	Hint         string `json:"hint,omitempty"`
}

// StructuredErrorResponse constructs an MCP error response. Format:
//
//	Error: validation — Fix the 'max_depth' parameter and call again
//	{"error":"validation","message":"...","retry":"Fix the 'max_depth' parameter and call again","hint":"..."}
//
// The retry string is a plain-English instruction the LLM can follow directly.
func StructuredErrorResponse(kind, message, retry string, opts ...func(*StructuredError)) json.RawMessage {
	se := StructuredError{Error: kind, Message: message, Retry: retry}
	for _, defaultOpt := range RetryDefaultsForKind(kind) {
		defaultOpt(&se)
	}
	for _, opt := range opts {
		opt(&se)
	}

	// Error impossible: StructuredError is a simple struct with no circular refs or unsupported types
	seJSON, _ := json.Marshal(se)
	text := fmt.Sprintf("Error: %s — %s\n%s", kind, retry, string(seJSON))

	result := MCPToolResult{
		Content: []MCPContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
	return SafeMarshal(result, `{"content":[{"type":"text","text":"Internal error: failed to marshal result"}],"isError":true}`)
}

// WithParam is an option function to add param field to StructuredError.
func WithParam(p string) func(*StructuredError) {
	return func(se *StructuredError) { se.Param = p }
}

// WithHint is an option function to add hint field to StructuredError.
func WithHint(h string) func(*StructuredError) {
	return func(se *StructuredError) { se.Hint = h }
}

// WithRetryable marks whether the error is retryable by the LLM.
func WithRetryable(retryable bool) func(*StructuredError) {
	return func(se *StructuredError) { se.Retryable = retryable }
}

// WithRetryAfterMs sets the suggested delay before retrying (milliseconds).
func WithRetryAfterMs(ms int) func(*StructuredError) {
	return func(se *StructuredError) { se.RetryAfterMs = ms }
}

// WithDegraded marks a timeout response as carrying a partial/degraded
// result (e.g. an outline fallback) rather than no data at all.
func WithDegraded(degraded bool) func(*StructuredError) {
	return func(se *StructuredError) { se.Degraded = degraded }
}

// RetryDefaultsForKind returns option functions that set retryable and
// retry_after_ms based on the error kind. Retryable kinds are transient
// conditions the LLM can retry after a brief delay; non-retryable kinds
// require the LLM to change its input or wait for an agent to connect.
func RetryDefaultsForKind(kind string) []func(*StructuredError) {
	switch kind {
	case ErrTimeout:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(1000)}
	case ErrNoLiveConnection:
		return []func(*StructuredError){WithRetryable(true), WithRetryAfterMs(2000)}
	case ErrPersistenceFailed:
		return []func(*StructuredError){WithRetryable(false)}
	case ErrRedactionBlocked:
		return []func(*StructuredError){WithRetryable(false)}
	default:
		return []func(*StructuredError){WithRetryable(false)}
	}
}
