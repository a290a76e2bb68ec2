package util

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Interpolate replaces {{name}} placeholders with values from vars. Unknown
// placeholders are left untouched so authoring mistakes stay visible in the
// rendered output. This lives in internal to avoid committing to public API
// stability prematurely.
func Interpolate(text string, vars map[string]any) string {
	if !strings.Contains(text, "{{") { // fast path: no placeholders
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		name := placeholderRe.FindStringSubmatch(match)[1]
		val, ok := vars[name]
		if !ok || val == nil {
			return match
		}
		return fmt.Sprintf("%v", val)
	})
}
