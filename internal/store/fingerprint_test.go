package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintHash_StableAcrossLineNumbers(t *testing.T) {
	a := FingerprintHash("TypeError: x is not a function", "at foo (app.js:10:5)\nat bar (app.js:20:9)")
	b := FingerprintHash("TypeError: x is not a function", "at foo (app.js:99:1)\nat bar (app.js:4:2)")
	assert.Equal(t, a, b, "fingerprints must be insensitive to line:col within a frame")
}

func TestFingerprintHash_DistinctForDifferentMessages(t *testing.T) {
	a := FingerprintHash("TypeError: x is not a function", "at foo (app.js:10:5)")
	b := FingerprintHash("ReferenceError: y is not defined", "at foo (app.js:10:5)")
	assert.NotEqual(t, a, b)
}

func TestFingerprintHash_IgnoresWebpackContentHash(t *testing.T) {
	a := FingerprintHash("boom", "at foo (main.abc12345.js:1:1)")
	b := FingerprintHash("boom", "at foo (main.def67890ab.js:1:1)")
	assert.Equal(t, a, b)
}

func TestFingerprintHash_CaseInsensitive(t *testing.T) {
	a := FingerprintHash("Boom Error", "at Foo (App.JS:1:1)")
	b := FingerprintHash("boom error", "at foo (app.js:1:1)")
	assert.Equal(t, a, b)
}
