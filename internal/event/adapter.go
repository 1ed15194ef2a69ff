package event

import (
	"strconv"
	"strings"
)

// BrowserCard is what the browser-driven scrapers pull from one rendered listing card.
// Every field is optional; missing selectors leave the zero value.
type BrowserCard struct {
	Title       string
	Description string
	Dates       string
	EndDate     string
	Location    string
	Link        string
	Organizer   string
	Image       string
	Tags        []string
	Capacity    string
	Category    string
}

// ToRawEvent adapts a card into the canonical raw shape.
func (c BrowserCard) ToRawEvent(source Source) RawEvent {
	start, end := splitDateRange(c.Dates)
	if c.EndDate != "" {
		end = c.EndDate
	}
	return RawEvent{
		Title:            clean(c.Title),
		Description:      clean(c.Description),
		StartDate:        start,
		EndDate:          end,
		Location:         clean(c.Location),
		RegistrationLink: strings.TrimSpace(c.Link),
		OrganizerName:    clean(c.Organizer),
		ImageURL:         strings.TrimSpace(c.Image),
		Tags:             cleanAll(c.Tags),
		MaxParticipants:  parseCapacity(c.Capacity),
		Source:           source,
		Category:         single(c.Category),
	}
}

// StructuredEvent is a schema.org Event decoded from a JSON-LD block.
type StructuredEvent struct {
	Name          string
	Description   string
	StartDate     string
	EndDate       string
	Location      string
	OrganizerName string
	URL           string
	Image         string
	Keywords      []string
	Capacity      int
}

// ToRawEvent adapts structured data into the canonical raw shape. category is the
// sub-feed hint (for example "Hackathon") and may be empty.
func (s StructuredEvent) ToRawEvent(source Source, category string) RawEvent {
	return RawEvent{
		Title:            clean(s.Name),
		Description:      strings.TrimSpace(s.Description),
		StartDate:        strings.TrimSpace(s.StartDate),
		EndDate:          strings.TrimSpace(s.EndDate),
		Location:         clean(s.Location),
		RegistrationLink: strings.TrimSpace(s.URL),
		OrganizerName:    clean(s.OrganizerName),
		ImageURL:         strings.TrimSpace(s.Image),
		Tags:             cleanAll(s.Keywords),
		MaxParticipants:  max(s.Capacity, 0),
		Source:           source,
		Category:         single(category),
	}
}

// splitDateRange splits listing text such as "Mar 15 - Mar 17, 2025" into start and end.
// Ranges with a bare end day ("Mar 15 - 17, 2025") keep the month of the start.
func splitDateRange(s string) (string, string) {
	s = clean(s)
	for _, sep := range []string{" - ", " – ", " to ", " — "} {
		left, right, ok := strings.Cut(s, sep)
		if !ok {
			continue
		}
		left, right = strings.TrimSpace(left), strings.TrimSpace(right)
		year := trailingYear(right)
		if year != "" && trailingYear(left) == "" {
			left = left + ", " + year
		}
		if fields := strings.Fields(left); len(fields) > 0 && !startsWithDigit(fields[0]) && isBareDay(right) {
			right = fields[0] + " " + right
		}
		return left, right
	}
	return s, ""
}

func trailingYear(s string) string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	if len(last) == 4 && startsWithDigit(last) {
		if _, err := strconv.Atoi(last); err == nil {
			return last
		}
	}
	return ""
}

// isBareDay reports whether s begins with a one or two digit day, as in "17, 2025".
func isBareDay(s string) bool {
	first := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' })
	if len(first) == 0 || len(first[0]) > 2 {
		return false
	}
	_, err := strconv.Atoi(first[0])
	return err == nil
}

func startsWithDigit(s string) bool {
	return s != "" && s[0] >= '0' && s[0] <= '9'
}

// parseCapacity pulls the first integer out of text like "1,200 registered".
func parseCapacity(s string) int {
	var digits strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digits.WriteRune(r)
		case r == ',' && digits.Len() > 0:
		case digits.Len() > 0:
			n, _ := strconv.Atoi(digits.String())
			return n
		}
	}
	n, _ := strconv.Atoi(digits.String())
	return n
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func cleanAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = clean(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func single(category string) []string {
	if category = clean(category); category == "" {
		return nil
	}
	return []string{category}
}
