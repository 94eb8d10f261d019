// safemode.go — safe-mode payload policy from SPEC_FULL §4.2: drop whole
// events in certain categories, otherwise substitute specific fields and
// any value that looks like a cookie header.
package redact

import "strings"

// dropCategories are event categories that are dropped outright under safe
// mode, regardless of payload contents.
var dropCategories = map[string]bool{
	"storage":     true,
	"cookie-dump": true,
}

// sensitiveFieldSubstrings flags a field for wholesale replacement with the
// safe-mode marker regardless of its value's shape — this covers the named
// fields (inputValue, cookieHeader) plus storage/cookie dump containers
// (e.g. localStorageDump) per SPEC S3, where a whole nested object collapses
// to the marker string rather than being redacted key-by-key.
var sensitiveFieldSubstrings = []string{"inputvalue", "cookieheader", "cookie", "storage", "dump"}

func isSensitiveFieldName(name string) bool {
	lower := strings.ToLower(name)
	for _, sub := range sensitiveFieldSubstrings {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}

// ApplySafeMode implements the safe-mode payload policy for one event's
// category and payload. It returns (nil, true) when the category is
// dropped outright, or the scrubbed payload otherwise.
func ApplySafeMode(category string, payload map[string]any) (scrubbed any, dropped bool) {
	if dropCategories[strings.ToLower(category)] {
		return nil, true
	}
	return scrubSafeModeValue(payload), false
}

func scrubSafeModeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			if isSensitiveFieldName(k) {
				out[k] = MarkerSafeMode
				continue
			}
			out[k] = scrubSafeModeValue(child)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = scrubSafeModeValue(child)
		}
		return out
	case string:
		if containsCookieMarker(t) {
			return MarkerSafeMode
		}
		return t
	default:
		return v
	}
}

func containsCookieMarker(s string) bool {
	return strings.Contains(s, "Cookie:") || strings.Contains(s, "Set-Cookie:")
}
