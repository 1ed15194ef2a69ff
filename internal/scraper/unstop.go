package scraper

import (
	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/clock"
	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/politeness"
)

const unstopBaseURL = "https://unstop.com"

var unstopSchema = CardSchema{
	Cards: []string{
		`app-competition-listing .single_profile`,
		`.opportunity-card`,
		`div[class*="opp_card"]`,
		`div[class*="listing-card"]`,
	},
	Title:       Text("h2", "h3", `.double-wrap`, `[class*="title"]`),
	Description: Text(`[class*="subtitle"]`, `[class*="description"]`, "p"),
	Dates: Text(
		`[class*="date"]`,
		`.seperate_box:contains("Starts")`,
		`[class*="deadline"]`,
	),
	EndDate:   Text(`[class*="end-date"]`, `.seperate_box:contains("Ends")`),
	Location:  Text(`[class*="location"]`, `[class*="mode"]`),
	Link:      Attr("href", "a[href]", ""),
	Organizer: Text(`[class*="organiser"]`, `[class*="organizer"]`, `[class*="company"]`),
	Image: Any(
		Attr("src", "img.logo", "img"),
		Attr("data-src", "img"),
	),
	Capacity: Text(`[class*="registered"]`, `[class*="participants"]`),
	Tags:     []string{`.chip_text`, `[class*="skill"]`, `[class*="tag"]`},
}

// NewUnstop builds the scraper for the hackathon and workshop listings. The two pages are
// rendered one after the other.
func NewUnstop(opts Options, renderer PageRenderer, pause politeness.Pauser, clk clock.Clock, logger *zap.Logger) *BrowserSource {
	listings := []Listing{
		{Path: "/hackathons", Category: "Hackathon"},
		{Path: "/workshops-webinars", Category: "Workshop"},
	}
	return newBrowserSource(event.SourceUnstop, unstopBaseURL, listings, unstopSchema, opts, renderer, pause, clk, logger)
}
