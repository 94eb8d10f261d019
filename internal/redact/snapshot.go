// snapshot.go — redact_snapshot_record from SPEC_FULL §4.2: snapshots carry
// full DOM/style payloads and need a policy distinct from event redaction,
// since a selector or attribute value is sensitive by name even when its
// text wouldn't trip any RedactString rule.
package redact

import "regexp"

// Profile selects how aggressively a snapshot is redacted.
type Profile string

const (
	ProfileStandard Profile = "standard"
	ProfileStrict   Profile = "strict"
)

// sensitiveAttr matches selector/attribute names that should never surface
// their literal value in a snapshot, regardless of profile.
var sensitiveAttr = regexp.MustCompile(`(?i)(password|token|secret|auth|session|email|card|cvv|cvc|ssn|iban|payment)`)

// SnapshotRecord is the minimal shape redact_snapshot_record operates over;
// callers in internal/store/internal/tools populate this from a Snapshot.
type SnapshotRecord struct {
	DOM    string
	Styles string
	HasPNG bool
}

// RedactedSnapshot is the result of applying the snapshot redaction policy.
type RedactedSnapshot struct {
	DOM          string
	Styles       string
	DropPNG      bool
	RulesApplied []string
}

// RedactSnapshotRecord applies the string redaction rules to the DOM and
// style payloads, additionally blanking any attribute value whose name
// matches sensitiveAttr, and under the strict profile with safe mode on,
// drops the PNG asset entirely.
func RedactSnapshotRecord(rec SnapshotRecord, profile Profile, safeMode bool) RedactedSnapshot {
	domResult := RedactString(rec.DOM)
	dom := scrubSensitiveAttrs(domResult.Value)

	stylesResult := RedactString(rec.Styles)

	applied := map[string]bool{}
	for _, n := range domResult.RulesApplied {
		applied[n] = true
	}
	for _, n := range stylesResult.RulesApplied {
		applied[n] = true
	}

	names := make([]string, 0, len(applied))
	for n := range applied {
		names = append(names, n)
	}

	return RedactedSnapshot{
		DOM:          dom,
		Styles:       stylesResult.Value,
		DropPNG:      rec.HasPNG && profile == ProfileStrict && safeMode,
		RulesApplied: names,
	}
}

// attrValuePattern matches name="value" / name='value' pairs inside a
// serialized DOM subtree, so sensitiveAttr can be checked against the
// attribute name before its value is let through.
var attrValuePattern = regexp.MustCompile(`([a-zA-Z_:][-a-zA-Z0-9_:.]*)\s*=\s*"([^"]*)"`)

func scrubSensitiveAttrs(dom string) string {
	return attrValuePattern.ReplaceAllStringFunc(dom, func(match string) string {
		sub := attrValuePattern.FindStringSubmatch(match)
		name := sub[1]
		if sensitiveAttr.MatchString(name) {
			return name + `="` + MarkerSnapshot + `"`
		}
		return match
	})
}
