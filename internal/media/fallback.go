package media

import "strings"

// DefaultFallbackImage is served for categories without a dedicated placeholder.
const DefaultFallbackImage = "https://images.unsplash.com/photo-1540575467063-178a50c2df87?w=1200&q=80"

var fallbackImages = map[string]string{
	"Hackathon":   "https://images.unsplash.com/photo-1504384308090-c894fdcc538d?w=1200&q=80",
	"Workshop":    "https://images.unsplash.com/photo-1524178232363-1fb2b075b655?w=1200&q=80",
	"Webinar":     "https://images.unsplash.com/photo-1588196749597-9ff075ee6b5b?w=1200&q=80",
	"Conference":  "https://images.unsplash.com/photo-1505373877841-8d25f7d46678?w=1200&q=80",
	"Competition": "https://images.unsplash.com/photo-1552664730-d307ca884978?w=1200&q=80",
	"Meetup":      "https://images.unsplash.com/photo-1515187029135-18ee286d815b?w=1200&q=80",
	"Internship":  "https://images.unsplash.com/photo-1521737604893-d14cc237f11d?w=1200&q=80",
	"Technical":   "https://images.unsplash.com/photo-1518770660439-4636190af475?w=1200&q=80",
	"Cultural":    "https://images.unsplash.com/photo-1492684223066-81342ee5ff30?w=1200&q=80",
	"Sports":      "https://images.unsplash.com/photo-1461896836934-ffe607ba8211?w=1200&q=80",
}

// FallbackImage returns the static placeholder for category.
func FallbackImage(category string) string {
	if url, ok := fallbackImages[category]; ok {
		return url
	}
	return DefaultFallbackImage
}

// IsFallback reports whether url is empty or one of the static placeholders.
func IsFallback(url string) bool {
	url = strings.TrimSpace(url)
	if url == "" || url == DefaultFallbackImage {
		return true
	}
	for _, candidate := range fallbackImages {
		if url == candidate {
			return true
		}
	}
	return false
}
