package scraper

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/clock"
	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/politeness"
)

const devfolioBaseURL = "https://devfolio.co"

var devfolioSchema = CardSchema{
	Cards: []string{
		`[data-testid="hackathon-card"]`,
		`div[class*="HackathonCard"]`,
		`div[class*="hackathon-card"]`,
		`a[href*=".devfolio.co"]`,
	},
	Title:       Text("h3", "h2", `[class*="title"]`, `[class*="Title"]`),
	Description: Text(`[class*="tagline"]`, `[class*="description"]`, "p"),
	Dates: Any(
		Attr("datetime", "time"),
		Text(`[class*="date"]`, `[class*="Date"]`, "time"),
	),
	Location:  Text(`[class*="location"]`, `[class*="mode"]`, `[class*="Location"]`),
	Link:      Attr("href", `a[href*="devfolio.co"]`, "a[href]", ""),
	Organizer: Text(`[class*="organizer"]`, `[class*="host"]`),
	Image: Any(
		Attr("src", "img"),
		Attr("data-src", "img"),
	),
	Capacity: Text(`[class*="participants"]`, `[class*="registered"]`),
	Tags:     []string{`[class*="theme"]`, `[class*="tag"]`},
}

// NewDevfolio builds the hackathon listing scraper.
func NewDevfolio(opts Options, renderer PageRenderer, pause politeness.Pauser, clk clock.Clock, logger *zap.Logger) *BrowserSource {
	listings := []Listing{{Path: "/hackathons", Category: "Hackathon"}}
	return newBrowserSource(event.SourceDevfolio, devfolioBaseURL, listings, devfolioSchema, opts, renderer, pause, clk, logger)
}
