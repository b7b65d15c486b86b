// Package diff computes and applies line-oriented unified diffs between two
// snapshots of page text.
package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	// FromLabel and ToLabel name the two sides in the diff header.
	FromLabel = "Previous Version"
	ToLabel   = "Current Version"

	contextLines = 3
)

// Unified returns the unified diff from previous to current as a sequence of
// lines without terminators. Identical texts give an empty result.
func Unified(previous, current string) ([]string, error) {
	ud := difflib.UnifiedDiff{
		A:        terminate(splitLines(previous)),
		B:        terminate(splitLines(current)),
		FromFile: FromLabel,
		ToFile:   ToLabel,
		Context:  contextLines,
		Eol:      "\n",
	}

	out, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	if out == "" {
		return nil, nil
	}

	return strings.Split(strings.TrimSuffix(out, "\n"), "\n"), nil
}

var hunkHeader = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// Apply replays a unified diff produced by Unified on top of previous and
// returns the resulting text. Context and removed lines must match previous.
func Apply(previous string, lines []string) (string, error) {
	src := splitLines(previous)
	var out []string
	pos := 0

	i := 0
	for i < len(lines) && (strings.HasPrefix(lines[i], "--- ") || strings.HasPrefix(lines[i], "+++ ")) {
		i++
	}

	for i < len(lines) {
		m := hunkHeader.FindStringSubmatch(lines[i])
		if m == nil {
			return "", fmt.Errorf("line %d: expected hunk header, got %q", i+1, lines[i])
		}
		start, _ := strconv.Atoi(m[1])
		count := 1
		if m[2] != "" {
			count, _ = strconv.Atoi(m[2])
		}

		// An empty range names the line before the insertion point.
		at := start - 1
		if count == 0 {
			at = start
		}
		if at < pos || at > len(src) {
			return "", fmt.Errorf("line %d: hunk starts at %d, outside of previous text", i+1, start)
		}
		out = append(out, src[pos:at]...)
		pos = at
		i++

		for ; i < len(lines) && !strings.HasPrefix(lines[i], "@@"); i++ {
			line := lines[i]
			if line == "" {
				return "", fmt.Errorf("line %d: empty diff line", i+1)
			}
			body := line[1:]
			switch line[0] {
			case ' ', '-':
				if pos >= len(src) || src[pos] != body {
					return "", fmt.Errorf("line %d: %q does not match previous text", i+1, body)
				}
				if line[0] == ' ' {
					out = append(out, body)
				}
				pos++
			case '+':
				out = append(out, body)
			default:
				return "", fmt.Errorf("line %d: unknown marker %q", i+1, line[0])
			}
		}
	}

	out = append(out, src[pos:]...)
	return strings.Join(out, "\n"), nil
}

// Reverse turns a diff from a to b into a diff from b to a. The header
// labels are swapped along with the line markers.
func Reverse(lines []string) []string {
	out := make([]string, 0, len(lines))
	inHunks := false
	for i := 0; i < len(lines); i++ {
		line := lines[i]
		switch {
		case !inHunks && strings.HasPrefix(line, "--- ") && i+1 < len(lines) && strings.HasPrefix(lines[i+1], "+++ "):
			out = append(out, "--- "+lines[i+1][4:], "+++ "+line[4:])
			i++
		case hunkHeader.MatchString(line):
			inHunks = true
			m := hunkHeader.FindStringSubmatch(line)
			rest := line[len(m[0]):]
			out = append(out, "@@ -"+hunkRange(m[3], m[4])+" +"+hunkRange(m[1], m[2])+" @@"+rest)
		case strings.HasPrefix(line, "+"):
			out = append(out, "-"+line[1:])
		case strings.HasPrefix(line, "-"):
			out = append(out, "+"+line[1:])
		default:
			out = append(out, line)
		}
	}
	return out
}

func hunkRange(start, count string) string {
	if count == "" {
		return start
	}
	return start + "," + count
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

func terminate(lines []string) []string {
	for i := range lines {
		lines[i] += "\n"
	}
	return lines
}
