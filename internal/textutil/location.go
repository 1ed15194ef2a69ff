package textutil

import (
	"net/url"
	"strings"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

const (
	// LocationOnline is the canonical value for virtual events.
	LocationOnline = "Online"
	// LocationInPerson is the canonical value for physical events without a usable address.
	LocationInPerson = "In-Person"
)

var (
	onlineMarkers   = []string{"online", "virtual", "remote", "digital"}
	inPersonMarkers = []string{"in-person", "in person", "offline", "on-site", "onsite"}
)

// NormalizeLocation folds virtual and physical markers onto canonical values and otherwise
// passes the text through, capped at 200 characters.
func NormalizeLocation(raw string) string {
	raw = CollapseSpace(raw)
	lower := strings.ToLower(raw)
	for _, m := range onlineMarkers {
		if strings.Contains(lower, m) {
			return LocationOnline
		}
	}
	for _, m := range inPersonMarkers {
		if strings.Contains(lower, m) {
			return LocationInPerson
		}
	}
	return Clip(raw, event.MaxLocationLength)
}

// ValidateLink returns raw when it is an absolute http(s) URL and "N/A" otherwise.
func ValidateLink(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return event.LinkUnavailable
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return event.LinkUnavailable
	}
	return raw
}

// ResolveLink resolves href against base, returning "" when either cannot be parsed.
func ResolveLink(base, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return ""
	}
	return b.ResolveReference(ref).String()
}
