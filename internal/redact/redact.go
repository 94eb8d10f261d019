// redact.go — redact_string / redact_object from SPEC_FULL §4.2.
package redact

import "sort"

// StringResult is the result of redacting a single string.
type StringResult struct {
	Value        string
	RulesApplied []string
}

// ObjectSummary accompanies redact_object, matching the MCP envelope's
// redaction_summary shape exactly (§6 bit-exact compatibility).
type ObjectSummary struct {
	TotalFields    int      `json:"total_fields"`
	RedactedFields int      `json:"redacted_fields"`
	RulesApplied   []string `json:"rules_applied"`
}

// ObjectResult is the result of redacting an arbitrary JSON-shaped value.
type ObjectResult struct {
	Value   any
	Summary ObjectSummary
}

// RedactString applies every rule in order to s and reports which rules
// fired. Idempotent: RedactString(RedactString(s).Value) == RedactString(s)
// (Testable Property 2), because every marker string is chosen so no rule
// matches its own output.
func RedactString(s string) StringResult {
	applied := map[string]bool{}
	result := s
	for _, r := range rules {
		matched := false
		result = r.pattern.ReplaceAllStringFunc(result, func(match string) string {
			if r.validate != nil && !r.validate(match) {
				return match
			}
			matched = true
			return r.Replacement
		})
		if matched {
			applied[r.Name] = true
		}
	}
	names := make([]string, 0, len(applied))
	for n := range applied {
		names = append(names, n)
	}
	sort.Strings(names)
	return StringResult{Value: result, RulesApplied: names}
}

// RedactObject recurses over maps and ordered sequences, redacting string
// leaves and leaving everything else unchanged.
func RedactObject(obj any) ObjectResult {
	applied := map[string]bool{}
	total, redacted := 0, 0

	var walk func(v any) any
	walk = func(v any) any {
		switch t := v.(type) {
		case map[string]any:
			out := make(map[string]any, len(t))
			for k, child := range t {
				out[k] = walk(child)
			}
			return out
		case []any:
			out := make([]any, len(t))
			for i, child := range t {
				out[i] = walk(child)
			}
			return out
		case string:
			total++
			r := RedactString(t)
			if len(r.RulesApplied) > 0 {
				redacted++
				for _, name := range r.RulesApplied {
					applied[name] = true
				}
			}
			return r.Value
		default:
			return v
		}
	}

	value := walk(obj)
	names := make([]string, 0, len(applied))
	for n := range applied {
		names = append(names, n)
	}
	sort.Strings(names)

	return ObjectResult{
		Value: value,
		Summary: ObjectSummary{
			TotalFields:    total,
			RedactedFields: redacted,
			RulesApplied:   names,
		},
	}
}
