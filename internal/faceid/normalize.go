package faceid

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// normalizeText trims surrounding whitespace and applies Unicode NFC, so
// visually identical identifiers compare equal.
func normalizeText(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
