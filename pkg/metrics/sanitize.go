package metrics

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// Sanitize normalizes a raw metric name into a backend-safe identifier.
// Application, service and operation names can have spaces and other invalid
// metric name characters, so every maximal run of whitespace is collapsed into
// a single "-". If the name contains quote characters, double quotes are
// backslash-escaped; single quotes can exist happily once inside a
// double-quoted context and are left alone.
func Sanitize(name string) string {
	whitespaceSanitized := whitespaceRegex.ReplaceAllString(name, "-")
	if strings.Contains(name, `"`) || strings.Contains(name, `'`) {
		return strings.ReplaceAll(whitespaceSanitized, `"`, `\"`)
	}
	return whitespaceSanitized
}
