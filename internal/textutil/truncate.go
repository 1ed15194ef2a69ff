package textutil

import (
	"strings"
)

const (
	ellipsis = "..."
	// sentenceCutoff is the fraction of the limit a sentence boundary must pass to be used.
	sentenceCutoff = 0.7
)

// Truncate shortens s to at most limit runes. When a sentence ends past 70% of the limit the
// text is cut right after it; otherwise it is hard-cut and an ellipsis appended, so the result
// never exceeds limit+3 runes.
func Truncate(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	cut := runes[:limit]
	boundary := -1
	for i := len(cut) - 1; i >= 0; i-- {
		if cut[i] == '.' || cut[i] == '!' || cut[i] == '?' {
			boundary = i
			break
		}
	}
	if boundary >= 0 && float64(boundary) > float64(limit)*sentenceCutoff {
		return string(cut[:boundary+1])
	}
	return strings.TrimRight(string(cut), " \t\n") + ellipsis
}

// Clip caps s at limit runes without adding an ellipsis.
func Clip(s string, limit int) string {
	runes := []rune(s)
	if limit <= 0 || len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
