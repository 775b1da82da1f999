package submission

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// controlChars matches C0 controls except tab, LF and CR, plus DEL.
var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)

// Sanitize strips control characters the CRM rejects, applies NFC
// normalization and trims surrounding whitespace. It never fails.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	s = controlChars.ReplaceAllString(s, "")
	return strings.TrimSpace(norm.NFC.String(s))
}
