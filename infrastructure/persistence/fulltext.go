package persistence

import (
	"regexp"
	"strings"
)

// searchDocumentMaxRunes caps the derived document so pathological inputs
// cannot bloat the index. The cap counts runes, not bytes: proposal text is
// frequently multibyte and a byte slice could cut a rune in half, which
// PostgreSQL rejects as invalid UTF-8.
const searchDocumentMaxRunes = 1000

var (
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
	nonWordChars  = regexp.MustCompile(`[^\p{L}\p{N}_\s]`)
	multipleSpace = regexp.MustCompile(`\s+`)
)

// BuildSearchDocument derives the full-text document from title and
// description: control characters and punctuation are stripped, whitespace
// collapsed, and the result capped. It is the single source of truth for
// search_document; the column is never authored any other way.
func BuildSearchDocument(title, description string) string {
	doc := strings.TrimSpace(title + " " + description)
	if doc == "" {
		return ""
	}

	doc = controlChars.ReplaceAllString(doc, " ")
	doc = nonWordChars.ReplaceAllString(doc, " ")
	doc = multipleSpace.ReplaceAllString(doc, " ")
	doc = strings.TrimSpace(doc)

	return truncateRunes(doc, searchDocumentMaxRunes)
}

// truncateRunes cuts s after limit runes, always on a rune boundary.
func truncateRunes(s string, limit int) string {
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
