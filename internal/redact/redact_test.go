package redact

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestApplySafeMode_S3 reproduces the literal S3 scenario: an event in the
// "console" category gets field-level substitution, while "storage" is
// dropped outright.
func TestApplySafeMode_S3(t *testing.T) {
	payload := map[string]any{
		"inputValue": "secret text",
		"nested": map[string]any{
			"cookieHeader":     "Cookie: auth=abc123",
			"localStorageDump": map[string]any{"token": "abc"},
		},
		"message": "Set-Cookie: refreshToken=xyz",
		"status":  "ok",
	}

	scrubbed, dropped := ApplySafeMode("console", payload)
	require.False(t, dropped)

	m := scrubbed.(map[string]any)
	require.Equal(t, MarkerSafeMode, m["inputValue"])
	require.Equal(t, MarkerSafeMode, m["message"])
	require.Equal(t, "ok", m["status"])

	nested := m["nested"].(map[string]any)
	require.Equal(t, MarkerSafeMode, nested["cookieHeader"])
	require.Equal(t, MarkerSafeMode, nested["localStorageDump"])

	_, dropped = ApplySafeMode("storage", payload)
	require.True(t, dropped)

	_, dropped = ApplySafeMode("cookie-dump", payload)
	require.True(t, dropped)
}

// TestRedactString_Idempotent is Testable Property 2: redacting an
// already-redacted string is a no-op.
func TestRedactString_Idempotent(t *testing.T) {
	inputs := []string{
		"Authorization: Bearer abcDEF123.xyz-_789",
		"api_key: sk_live_abcdefgh12345678",
		"password=hunter2verylongpass",
		"card 4111 1111 1111 1111",
		"contact me at jane.doe@example.com",
		"session_id: a1b2c3d4e5f6g7h8i9j0",
		"nothing sensitive here",
	}
	for _, in := range inputs {
		once := RedactString(in)
		twice := RedactString(once.Value)
		require.Equal(t, once.Value, twice.Value, "not idempotent for %q", in)
	}
}

func TestRedactString_CreditCardRequiresLuhn(t *testing.T) {
	valid := RedactString("card 4111 1111 1111 1111")
	require.Contains(t, valid.Value, MarkerCreditCard)

	invalid := RedactString("card 1234 5678 9012 3456")
	require.NotContains(t, invalid.Value, MarkerCreditCard)
}

func TestRedactObject_CountsFields(t *testing.T) {
	obj := map[string]any{
		"a": "plain",
		"b": "jane.doe@example.com",
		"c": map[string]any{"d": "password: hunter2xyz"},
	}
	res := RedactObject(obj)
	require.Equal(t, 3, res.Summary.TotalFields)
	require.Equal(t, 2, res.Summary.RedactedFields)
	require.Contains(t, res.Summary.RulesApplied, "email")
	require.Contains(t, res.Summary.RulesApplied, "password")
}

func TestRedactSnapshotRecord_SensitiveAttrAndStrictPNGDrop(t *testing.T) {
	rec := SnapshotRecord{
		DOM:    `<input data-session-token="abc123" placeholder="ok">`,
		Styles: `.x { color: red; }`,
		HasPNG: true,
	}

	standard := RedactSnapshotRecord(rec, ProfileStandard, true)
	require.False(t, standard.DropPNG)
	require.Contains(t, standard.DOM, MarkerSnapshot)
	require.NotContains(t, standard.DOM, "abc123")

	strict := RedactSnapshotRecord(rec, ProfileStrict, true)
	require.True(t, strict.DropPNG)

	strictNoSafeMode := RedactSnapshotRecord(rec, ProfileStrict, false)
	require.False(t, strictNoSafeMode.DropPNG)
}
