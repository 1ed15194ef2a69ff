package scraper

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

// ExtractJSONLD decodes every schema.org Event found in the page's JSON-LD blocks. Blocks that
// fail to decode are skipped. Events nested in @graph, arrays and ItemList wrappers are found.
func ExtractJSONLD(doc *goquery.Document) []event.StructuredEvent {
	var out []event.StructuredEvent
	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		var payload any
		if err := json.Unmarshal([]byte(s.Text()), &payload); err != nil {
			return
		}
		collectEvents(payload, &out)
	})
	return out
}

func collectEvents(node any, out *[]event.StructuredEvent) {
	switch v := node.(type) {
	case []any:
		for _, item := range v {
			collectEvents(item, out)
		}
	case map[string]any:
		if isEventType(v["@type"]) {
			*out = append(*out, toStructuredEvent(v))
			return
		}
		for _, key := range []string{"@graph", "itemListElement", "item"} {
			if nested, ok := v[key]; ok {
				collectEvents(nested, out)
			}
		}
	}
}

// isEventType accepts Event and its subtypes such as EducationEvent or BusinessEvent.
func isEventType(t any) bool {
	switch v := t.(type) {
	case string:
		return strings.HasSuffix(v, "Event")
	case []any:
		for _, item := range v {
			if isEventType(item) {
				return true
			}
		}
	}
	return false
}

func toStructuredEvent(m map[string]any) event.StructuredEvent {
	location := locationText(m["location"])
	if location == "" && strings.Contains(stringValue(m["eventAttendanceMode"]), "Online") {
		location = "Online"
	}
	return event.StructuredEvent{
		Name:          stringValue(m["name"]),
		Description:   stringValue(m["description"]),
		StartDate:     stringValue(m["startDate"]),
		EndDate:       stringValue(m["endDate"]),
		Location:      location,
		OrganizerName: nameOf(m["organizer"]),
		URL:           stringValue(m["url"]),
		Image:         imageURL(m["image"]),
		Keywords:      keywords(m["keywords"]),
		Capacity:      intValue(m["maximumAttendeeCapacity"]),
	}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case []any:
		if len(t) > 0 {
			return stringValue(t[0])
		}
	}
	return ""
}

func intValue(v any) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(strings.TrimSpace(t))
		return n
	}
	return 0
}

// locationText flattens Place and VirtualLocation objects into one line.
func locationText(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []any:
		if len(t) > 0 {
			return locationText(t[0])
		}
	case map[string]any:
		if stringValue(t["@type"]) == "VirtualLocation" {
			return "Online"
		}
		parts := []string{stringValue(t["name"])}
		switch addr := t["address"].(type) {
		case string:
			parts = append(parts, addr)
		case map[string]any:
			for _, key := range []string{"streetAddress", "addressLocality", "addressRegion", "addressCountry"} {
				parts = append(parts, nameOf(addr[key]))
			}
		}
		return joinNonEmpty(parts)
	}
	return ""
}

// nameOf reads a plain string or the name of an object or of the first array element.
func nameOf(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return stringValue(t["name"])
	case []any:
		if len(t) > 0 {
			return nameOf(t[0])
		}
	}
	return stringValue(v)
}

func imageURL(v any) string {
	switch t := v.(type) {
	case map[string]any:
		return stringValue(t["url"])
	case []any:
		if len(t) > 0 {
			return imageURL(t[0])
		}
	}
	return stringValue(v)
}

func keywords(v any) []string {
	var raw []string
	switch t := v.(type) {
	case string:
		raw = strings.Split(t, ",")
	case []any:
		for _, item := range t {
			raw = append(raw, stringValue(item))
		}
	}
	out := make([]string, 0, len(raw))
	for _, k := range raw {
		if k = strings.TrimSpace(k); k != "" {
			out = append(out, k)
		}
	}
	return out
}

func joinNonEmpty(parts []string) string {
	seen := make(map[string]bool, len(parts))
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return strings.Join(out, ", ")
}
