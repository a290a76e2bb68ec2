package util

import "strings"

// NormalizeText lowercases and collapses all runs of whitespace to single
// spaces. Request fingerprinting uses it so that retries differing only in
// incidental whitespace or casing hash identically.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
