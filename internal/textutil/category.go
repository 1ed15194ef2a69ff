package textutil

import (
	"strings"
	"unicode"
)

// DefaultCategory is used when no keyword matches.
const DefaultCategory = "Technical"

// ValidCategories are the event types the platform recognizes.
var ValidCategories = []string{
	"Hackathon",
	"Workshop",
	"Webinar",
	"Conference",
	"Competition",
	"Meetup",
	"Internship",
	"Technical",
	"Cultural",
	"Sports",
}

type keywordRule struct {
	category string
	keywords []string
}

// Rules are checked in order; the first category with a matching keyword wins.
var categoryRules = []keywordRule{
	{"Hackathon", []string{"hackathon", "hack", "buildathon", "codefest", "datathon", "ideathon"}},
	{"Workshop", []string{"workshop", "bootcamp", "hands-on", "masterclass", "training", "crash course"}},
	{"Webinar", []string{"webinar", "livestream", "live session", "online session"}},
	{"Conference", []string{"conference", "summit", "symposium", "expo", "convention"}},
	{"Competition", []string{"competition", "contest", "challenge", "olympiad", "quiz", "case study"}},
	{"Meetup", []string{"meetup", "meet-up", "networking", "mixer"}},
	{"Internship", []string{"internship", "intern", "fellowship"}},
	{"Cultural", []string{"cultural", "festival", "fest", "music", "dance", "drama"}},
	{"Sports", []string{"sports", "tournament", "marathon", "cricket", "football", "esports"}},
}

// GuessCategory picks an event type from keywords in the title and description.
func GuessCategory(title, description string) string {
	text := wordText(title + " " + description)
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if containsWord(text, kw) {
				return rule.category
			}
		}
	}
	return DefaultCategory
}

// CanonicalCategory maps a source-provided category onto ValidCategories, case-insensitively.
// Unknown values are guessed from their own words.
func CanonicalCategory(raw string) string {
	raw = CollapseSpace(raw)
	if raw == "" {
		return ""
	}
	for _, c := range ValidCategories {
		if strings.EqualFold(c, raw) {
			return c
		}
	}
	return GuessCategory(raw, "")
}

// wordText lowercases s, replaces punctuation other than hyphens with spaces, and pads it so
// whole-word matches can be found with a plain substring search.
func wordText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return " " + strings.Join(strings.Fields(b.String()), " ") + " "
}

func containsWord(text, keyword string) bool {
	return strings.Contains(text, " "+keyword+" ")
}
