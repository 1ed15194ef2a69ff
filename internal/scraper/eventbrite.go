package scraper

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/politeness"
	"github.com/JakeFAU/campus-events-crawler/internal/textutil"
)

const eventbriteBaseURL = "https://www.eventbrite.com"

var eventbriteListings = []Listing{
	{Path: "/d/india/hackathon/", Category: "Hackathon"},
	{Path: "/d/india/workshop/", Category: "Workshop"},
}

// cardDate finds listing dates such as "Sat, Mar 15, 10:00 AM" or "March 15, 2025".
var cardDate = regexp.MustCompile(
	`(?i)\b(?:(?:mon|tue|wed|thu|fri|sat|sun)[a-z]*,?\s+)?` +
		`(?:jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)[a-z]*\.?\s+\d{1,2}(?:,\s*\d{4})?` +
		`(?:,?\s+\d{1,2}:\d{2}\s*(?:am|pm))?`)

// Eventbrite reads the HTTP listing pages, preferring their JSON-LD event data.
type Eventbrite struct {
	baseURL string
	delay   time.Duration
	fetcher PageFetcher
	pause   politeness.Pauser
	logger  *zap.Logger
}

// NewEventbrite builds the scraper for the hackathon and workshop feeds.
func NewEventbrite(opts Options, fetcher PageFetcher, pause politeness.Pauser, logger *zap.Logger) *Eventbrite {
	base := opts.BaseURL
	if base == "" {
		base = eventbriteBaseURL
	}
	if pause == nil {
		pause = politeness.Timer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Eventbrite{
		baseURL: base,
		delay:   opts.Delay,
		fetcher: fetcher,
		pause:   pause,
		logger:  logger.Named(string(event.SourceEventbrite)),
	}
}

// Source implements Scraper.
func (e *Eventbrite) Source() event.Source {
	return event.SourceEventbrite
}

// Scrape implements Scraper. A 403 or 429 on one feed is logged as unavailable and the other
// feed is still fetched.
func (e *Eventbrite) Scrape(ctx context.Context) ([]event.RawEvent, error) {
	var (
		events   []event.RawEvent
		failures int
		lastErr  error
	)
	for i, listing := range eventbriteListings {
		if i > 0 {
			e.pause.Pause(ctx, e.delay)
		}
		pageURL := listingURL(e.baseURL, listing.Path)
		body, err := e.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			failures++
			lastErr = err
			if isUnavailable(err) {
				e.logger.Warn("feed unavailable", zap.String("url", pageURL), zap.Error(err))
			} else {
				e.logger.Warn("feed fetch failed", zap.String("url", pageURL), zap.Error(err))
			}
			continue
		}
		got, structured, err := ParseListing(body, pageURL, listing.Category)
		if err != nil {
			failures++
			lastErr = err
			e.logger.Warn("feed parse failed", zap.String("url", pageURL), zap.Error(err))
			continue
		}
		e.logger.Info("feed scraped",
			zap.String("url", pageURL),
			zap.Int("events", len(got)),
			zap.Bool("structured", structured))
		events = append(events, got...)
	}
	if failures == len(eventbriteListings) {
		return nil, fmt.Errorf("%s: no feed could be scraped: %w", event.SourceEventbrite, lastErr)
	}
	return events, nil
}

// ParseListing extracts events from a listing page. JSON-LD is used when the page carries any
// events there; otherwise event anchors are read. structured reports which path was taken.
func ParseListing(body []byte, pageURL, category string) (events []event.RawEvent, structured bool, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("parse %s: %w", pageURL, err)
	}
	if found := ExtractJSONLD(doc); len(found) > 0 {
		events = make([]event.RawEvent, 0, len(found))
		for _, se := range found {
			raw := se.ToRawEvent(event.SourceEventbrite, category)
			if raw.Title == "" {
				continue
			}
			raw.RegistrationLink = textutil.ResolveLink(pageURL, raw.RegistrationLink)
			events = append(events, raw)
		}
		return events, true, nil
	}
	return anchorEvents(doc, pageURL, category), false, nil
}

// anchorEvents reads event links of the form /e/<slug> and looks for a date in the
// surrounding card.
func anchorEvents(doc *goquery.Document, pageURL, category string) []event.RawEvent {
	var out []event.RawEvent
	seen := make(map[string]bool)
	doc.Find(`a[href*="/e/"]`).Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		link := textutil.ResolveLink(pageURL, href)
		if link == "" || seen[link] {
			return
		}
		title := textutil.CollapseSpace(a.Find("h2, h3").First().Text())
		if title == "" {
			title = textutil.CollapseSpace(a.AttrOr("aria-label", ""))
		}
		if title == "" {
			title = textutil.CollapseSpace(a.Text())
		}
		if title == "" {
			return
		}
		seen[link] = true

		card := a.Closest("article, li, section")
		if card.Length() == 0 {
			card = a.Parent()
		}
		cardText := textutil.CollapseSpace(card.Text())
		img, _ := card.Find("img").First().Attr("src")
		out = append(out, event.RawEvent{
			Title:            title,
			StartDate:        cardDate.FindString(cardText),
			RegistrationLink: link,
			ImageURL:         textutil.ResolveLink(pageURL, img),
			Source:           event.SourceEventbrite,
			Category:         categoryList(category),
		})
	})
	return out
}

func categoryList(category string) []string {
	if category = strings.TrimSpace(category); category == "" {
		return nil
	}
	return []string{category}
}
