package pdfapi

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)

	// Keep word characters, underscore, hyphen, and the Hebrew block.
	// Everything else is stripped.
	disallowedRunes = regexp.MustCompile(`[^\x{0590}-\x{05FF}\w\-]`)
)

// SanitizeFilename converts a book title into a safe filename fragment for
// the download URL. Whitespace runs become single underscores; characters
// outside letters, digits, underscore, hyphen, and the Hebrew block are
// removed. The result carries no security weight - the external API decides
// what it actually serves.
func SanitizeFilename(title string) string {
	s := strings.TrimSpace(title)
	s = whitespaceRun.ReplaceAllString(s, "_")
	return disallowedRunes.ReplaceAllString(s, "")
}
