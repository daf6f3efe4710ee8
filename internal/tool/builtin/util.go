package builtin

import (
	"fmt"
	"unicode/utf8"
)

const maxOutputChars = 8000

// safeRuneTruncate truncates a string to maxRunes runes in a single pass,
// preserving valid UTF-8 without extra allocations for non-truncated strings.
func safeRuneTruncate(s string, maxRunes int) string {
	count := 0
	for i := range s {
		count++
		if count > maxRunes {
			totalRunes := maxRunes + utf8.RuneCountInString(s[i:])
			return s[:i] + fmt.Sprintf("\n... (truncated, %d chars total)", totalRunes)
		}
	}
	return s
}
