package extract

import (
	"strings"
	"unicode/utf8"
)

// extractPlain returns content as a string; invalid UTF-8 becomes U+FFFD.
func extractPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\uFFFD"), nil
	}
	return string(content), nil
}
