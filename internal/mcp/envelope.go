// envelope.go — the standard tool-response envelope every handler returns
// through: body fields plus limits_applied and redaction_summary, passed
// through the Redactor before leaving the process (§6 bit-exact
// compatibility names these fields exactly).
package mcp

import "github.com/devbridge/browser-debug-bridge/internal/redact"

// Envelope wraps a tool handler's result body with the fields every MCP
// response carries: which request-time limits were clamped, and what the
// Redactor did to the body before it was returned.
func Envelope(redactor ObjectRedactor, body map[string]any, limitsApplied map[string]any) map[string]any {
	if body == nil {
		body = map[string]any{}
	}
	result := redactor.RedactObject(body)
	out, ok := result.Value.(map[string]any)
	if !ok {
		out = body
	}
	if limitsApplied != nil {
		out["limits_applied"] = limitsApplied
	}
	out["redaction_summary"] = redactionSummaryJSON(result.Summary)
	return out
}

func redactionSummaryJSON(s redact.ObjectSummary) map[string]any {
	rules := s.RulesApplied
	if rules == nil {
		rules = []string{}
	}
	return map[string]any{
		"total_fields":    s.TotalFields,
		"redacted_fields": s.RedactedFields,
		"rules_applied":   rules,
	}
}
