// schema.go — declarative JSON-Schema builders for tool input schemas, and
// the matching bound-clamping helpers every tool's argument parsing uses so
// the advertised schema and the enforced behavior never drift apart.
package mcp

// IntBoundSchema declares an integer property with inclusive bounds and a
// default, e.g. list_sessions' since_minutes (1..1440, default 60).
func IntBoundSchema(description string, min, max, def int) map[string]any {
	return map[string]any{
		"type":        "integer",
		"description": description,
		"minimum":     min,
		"maximum":     max,
		"default":     def,
	}
}

// StringEnumSchema declares a string property restricted to a fixed set of
// values, e.g. get_network_failures' group_by ∈ {url, error_type, domain}.
func StringEnumSchema(description string, values []string, def string) map[string]any {
	s := map[string]any{
		"type":        "string",
		"description": description,
		"enum":        values,
	}
	if def != "" {
		s["default"] = def
	}
	return s
}

// StringSchema declares a plain string property.
func StringSchema(description string) map[string]any {
	return map[string]any{"type": "string", "description": description}
}

// BoolSchema declares a boolean property with a default.
func BoolSchema(description string, def bool) map[string]any {
	return map[string]any{"type": "boolean", "description": description, "default": def}
}

// ObjectSchema assembles a top-level tool input schema from named
// properties, marking the given subset required.
func ObjectSchema(properties map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// ClampInt applies a tool parameter's declared bounds to a parsed value: a
// zero value (param omitted) becomes def, and out-of-range values are
// clamped rather than rejected, matching the schema's advertised minimum
// and maximum exactly.
func ClampInt(v, min, max, def int) int {
	if v == 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// ClampInt64 is ClampInt for int64-typed parameters (timestamps, windows
// expressed in milliseconds).
func ClampInt64(v, min, max, def int64) int64 {
	if v == 0 {
		return def
	}
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
