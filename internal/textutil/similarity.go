package textutil

import (
	"strings"
	"time"
	"unicode"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

const (
	// DuplicateThreshold is the minimum title similarity for two events to be duplicates.
	DuplicateThreshold = 0.80
	// DuplicateWindow is the maximum start-date gap for two similar events to be duplicates.
	DuplicateWindow = 7 * 24 * time.Hour
)

// NormalizeTitle lowercases s and drops every character that is not a letter or digit.
func NormalizeTitle(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func trigrams(s string) map[string]struct{} {
	runes := []rune(s)
	set := make(map[string]struct{}, len(runes))
	for i := 0; i+3 <= len(runes); i++ {
		set[string(runes[i:i+3])] = struct{}{}
	}
	return set
}

// Similarity is the Dice coefficient over the trigram sets of two normalized titles.
// Identical titles score 1; titles that normalize to nothing score 0.
func Similarity(a, b string) float64 {
	na, nb := NormalizeTitle(a), NormalizeTitle(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	ta, tb := trigrams(na), trigrams(nb)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}
	shared := 0
	for g := range ta {
		if _, ok := tb[g]; ok {
			shared++
		}
	}
	return 2 * float64(shared) / float64(len(ta)+len(tb))
}

// IsDuplicate reports whether an event with the given title and start matches any reference.
// A missing date on either side matches on title alone.
func IsDuplicate(title string, start *time.Time, refs []event.ExistingEventRef) bool {
	for _, ref := range refs {
		if Similarity(title, ref.Title) < DuplicateThreshold {
			continue
		}
		if start == nil || ref.EventDate == nil {
			return true
		}
		gap := start.Sub(*ref.EventDate)
		if gap < 0 {
			gap = -gap
		}
		if gap <= DuplicateWindow {
			return true
		}
	}
	return false
}
