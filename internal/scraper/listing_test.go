package scraper

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/campus-events-crawler/internal/clock"
	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/politeness"
)

type fakeRenderer struct {
	mu      sync.Mutex
	pages   map[string]string
	errs    map[string]error
	visited []string
	waitFor [][]string
}

func (f *fakeRenderer) Render(_ context.Context, pageURL string, waitFor []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.visited = append(f.visited, pageURL)
	f.waitFor = append(f.waitFor, waitFor)
	if err, ok := f.errs[pageURL]; ok {
		return "", err
	}
	if html, ok := f.pages[pageURL]; ok {
		return html, nil
	}
	return "", errors.New("navigation timeout")
}

const devfolioPage = `<html><body>
<div class="HackathonCard__Wrapper">
  <a href="https://hack-a.devfolio.co/"><h3>Hack A</h3></a>
  <p class="tagline">Build things <b>fast</b></p>
  <time datetime="2025-03-15T09:00:00Z">Mar 15</time>
  <span class="location">Online</span>
  <img src="/img/a.png">
  <span class="theme">AI</span>
  <span class="theme">Web3</span>
  <span class="participants">1,200 participating</span>
</div>
<div class="HackathonCard__Wrapper">
  <h3>Old Hack</h3>
  <span class="date">Jan 5 - 7, 2025</span>
</div>
<div class="HackathonCard__Wrapper">
  <h3>Bare Hack</h3>
</div>
<div class="HackathonCard__Wrapper"><span class="date">Mar 20, 2025</span></div>
</body></html>`

var listingNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestDevfolioScrape(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{pages: map[string]string{
		"https://devfolio.test/hackathons": devfolioPage,
	}}
	s := NewDevfolio(Options{BaseURL: "https://devfolio.test"}, renderer, &politeness.Recorder{}, clock.NewFixed(listingNow), nil)

	events, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, event.SourceDevfolio, s.Source())

	first := events[0]
	assert.Equal(t, "Hack A", first.Title)
	assert.Equal(t, "Build things fast", first.Description)
	assert.Equal(t, "2025-03-15T09:00:00Z", first.StartDate)
	assert.Equal(t, "Online", first.Location)
	assert.Equal(t, "https://hack-a.devfolio.co/", first.RegistrationLink)
	assert.Equal(t, "https://devfolio.test/img/a.png", first.ImageURL)
	assert.Equal(t, []string{"AI", "Web3"}, first.Tags)
	assert.Equal(t, 1200, first.MaxParticipants)
	assert.Equal(t, []string{"Hackathon"}, first.Category)
	assert.Equal(t, event.SourceDevfolio, first.Source)

	assert.Equal(t, "Bare Hack", events[1].Title)
	assert.Empty(t, events[1].StartDate)
	assert.Equal(t, devfolioSchema.Cards, renderer.waitFor[0])
}

const unstopWorkshops = `<div class="opportunity-card">
  <a href="/o/go-workshop-1"><h2>Go Workshop</h2></a>
  <div class="date">Mar 20, 2025</div>
  <span class="chip_text">golang</span>
</div>`

func TestUnstopScrapeToleratesBlockedListing(t *testing.T) {
	t.Parallel()

	renderer := &fakeRenderer{
		pages: map[string]string{"https://unstop.test/workshops-webinars": unstopWorkshops},
		errs: map[string]error{
			"https://unstop.test/hackathons": &StatusError{URL: "https://unstop.test/hackathons", StatusCode: http.StatusTooManyRequests},
		},
	}
	pause := &politeness.Recorder{}
	s := NewUnstop(Options{BaseURL: "https://unstop.test", Delay: 3 * time.Second}, renderer, pause, clock.NewFixed(listingNow), nil)

	events, err := s.Scrape(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "Go Workshop", events[0].Title)
	assert.Equal(t, "https://unstop.test/o/go-workshop-1", events[0].RegistrationLink)
	assert.Equal(t, []string{"Workshop"}, events[0].Category)
	assert.Equal(t, []string{"golang"}, events[0].Tags)

	assert.Equal(t, []string{"https://unstop.test/hackathons", "https://unstop.test/workshops-webinars"}, renderer.visited)
	assert.Equal(t, []time.Duration{3 * time.Second}, pause.Delays())
}

func TestUnstopScrapeAllListingsFail(t *testing.T) {
	t.Parallel()

	blocked := &StatusError{URL: "https://unstop.test/workshops-webinars", StatusCode: http.StatusForbidden}
	renderer := &fakeRenderer{errs: map[string]error{
		"https://unstop.test/workshops-webinars": blocked,
	}}
	s := NewUnstop(Options{BaseURL: "https://unstop.test"}, renderer, &politeness.Recorder{}, clock.NewFixed(listingNow), nil)

	events, err := s.Scrape(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Empty(t, events)
}

func TestStartsBefore(t *testing.T) {
	t.Parallel()

	assert.True(t, startsBefore("2025-02-28", listingNow))
	assert.False(t, startsBefore("2025-03-02", listingNow))
	assert.False(t, startsBefore("", listingNow))
	assert.False(t, startsBefore("not a date", listingNow))
}
