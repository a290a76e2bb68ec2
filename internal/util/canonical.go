package util

import "encoding/json"

// CanonicalParams renders a parameter map as deterministic JSON. Go's
// encoding/json sorts map keys, so identical maps always produce identical
// bytes; idempotency key derivation relies on that.
func CanonicalParams(params map[string]any) string {
	if len(params) == 0 {
		return "{}"
	}
	b, err := json.Marshal(params)
	if err != nil {
		// Maps of JSON-decoded values cannot fail to marshal; a hand-built
		// map holding an unsupported type falls back to empty.
		return "{}"
	}
	return string(b)
}
