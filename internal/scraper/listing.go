package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/clock"
	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/politeness"
	"github.com/JakeFAU/campus-events-crawler/internal/textutil"
)

// BrowserSource scrapes sources whose listings only render in a browser. Listings are visited
// in order with Options.Delay between them.
type BrowserSource struct {
	source   event.Source
	baseURL  string
	listings []Listing
	schema   CardSchema
	delay    time.Duration
	renderer PageRenderer
	pause    politeness.Pauser
	clock    clock.Clock
	logger   *zap.Logger
}

func newBrowserSource(
	source event.Source,
	defaultBase string,
	listings []Listing,
	schema CardSchema,
	opts Options,
	renderer PageRenderer,
	pause politeness.Pauser,
	clk clock.Clock,
	logger *zap.Logger,
) *BrowserSource {
	base := opts.BaseURL
	if base == "" {
		base = defaultBase
	}
	if pause == nil {
		pause = politeness.Timer{}
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BrowserSource{
		source:   source,
		baseURL:  base,
		listings: listings,
		schema:   schema,
		delay:    opts.Delay,
		renderer: renderer,
		pause:    pause,
		clock:    clk,
		logger:   logger.Named(string(source)),
	}
}

// Source implements Scraper.
func (s *BrowserSource) Source() event.Source {
	return s.source
}

// Scrape implements Scraper.
func (s *BrowserSource) Scrape(ctx context.Context) ([]event.RawEvent, error) {
	var (
		events   []event.RawEvent
		failures int
		lastErr  error
	)
	for i, listing := range s.listings {
		if i > 0 {
			s.pause.Pause(ctx, s.delay)
		}
		got, err := s.scrapeListing(ctx, listing)
		if err != nil {
			failures++
			lastErr = err
			s.logger.Warn("listing scrape failed",
				zap.String("listing", listing.Path),
				zap.Bool("unavailable", isUnavailable(err)),
				zap.Error(err))
			continue
		}
		events = append(events, got...)
	}
	if len(s.listings) > 0 && failures == len(s.listings) {
		return nil, fmt.Errorf("%s: no listing could be scraped: %w", s.source, lastErr)
	}
	return events, nil
}

func (s *BrowserSource) scrapeListing(ctx context.Context, listing Listing) ([]event.RawEvent, error) {
	pageURL := listingURL(s.baseURL, listing.Path)
	html, err := s.renderer.Render(ctx, pageURL, s.schema.Cards)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", pageURL, err)
	}

	now := s.clock.Now()
	cards := s.schema.Extract(doc, pageURL)
	out := make([]event.RawEvent, 0, len(cards))
	past := 0
	for _, card := range cards {
		if card.Category == "" {
			card.Category = listing.Category
		}
		raw := card.ToRawEvent(s.source)
		if raw.Title == "" {
			continue
		}
		if startsBefore(raw.StartDate, now) {
			past++
			continue
		}
		out = append(out, raw)
	}
	s.logger.Info("listing scraped",
		zap.String("url", pageURL),
		zap.Int("cards", len(cards)),
		zap.Int("events", len(out)),
		zap.Int("past", past))
	return out, nil
}

// startsBefore reports whether start parses to an instant before now. Unparseable dates are
// left for the normalizer to reject.
func startsBefore(start string, now time.Time) bool {
	t, ok := textutil.ParseDate(start, now)
	return ok && t.Before(now)
}

func isUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
