package relay

import (
	"strings"
	"unicode"
)

// Split breaks text into chunks of at most limit runes, preferring to cut at
// the last newline inside the window. A newline in the front half of the
// window is ignored so chunks never degenerate into tiny fragments; the text
// is cut hard at the limit instead. Leading and trailing whitespace is
// stripped from every chunk. Empty or whitespace-only input yields no chunks.
func Split(text string, limit int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	runes := []rune(text)
	if limit <= 0 || len(runes) <= limit {
		return []string{text}
	}

	minCut := limit / 2
	if minCut < 1 {
		minCut = 1
	}

	var out []string
	remaining := runes
	for len(remaining) > limit {
		cut := lastNewlineBefore(remaining, limit)
		if cut < minCut {
			cut = limit
		}
		chunk := strings.TrimRightFunc(string(remaining[:cut]), unicode.IsSpace)
		out = append(out, chunk)
		remaining = trimLeadingSpace(remaining[cut:])
	}
	if len(remaining) > 0 {
		out = append(out, string(remaining))
	}
	return out
}

// lastNewlineBefore returns the index of the last '\n' in runes[:limit],
// or -1 when there is none.
func lastNewlineBefore(runes []rune, limit int) int {
	for i := limit - 1; i >= 0; i-- {
		if runes[i] == '\n' {
			return i
		}
	}
	return -1
}

func trimLeadingSpace(runes []rune) []rune {
	i := 0
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return runes[i:]
}
