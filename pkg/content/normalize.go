package content

import "strings"

// Normalize collapses extracted page text into comparable lines: every line
// is trimmed, split again on runs of two spaces, trimmed once more, and the
// non-empty fragments are joined with single newlines.
//
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(text string) string {
	var fragments []string
	for _, line := range strings.FieldsFunc(text, isLineBreak) {
		line = strings.TrimSpace(line)
		for _, phrase := range strings.Split(line, "  ") {
			if phrase = strings.TrimSpace(phrase); phrase != "" {
				fragments = append(fragments, phrase)
			}
		}
	}
	return strings.Join(fragments, "\n")
}

// isLineBreak matches the same separators as a universal-newline line split.
func isLineBreak(r rune) bool {
	switch r {
	case '\n', '\r', '\v', '\f', 0x1c, 0x1d, 0x1e, 0x85, 0x2028, 0x2029:
		return true
	}
	return false
}
