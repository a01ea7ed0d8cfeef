// Package utils provides shared helpers for logging, vectors and text.
package utils

// Truncate returns s cut to maxLen runes with "..." appended when cut.
// maxLen <= 0 returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
