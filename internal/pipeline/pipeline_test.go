package pipeline

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/campus-events-crawler/internal/clock"
	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/media"
	"github.com/JakeFAU/campus-events-crawler/internal/normalize"
	pubmemory "github.com/JakeFAU/campus-events-crawler/internal/publisher/memory"
	"github.com/JakeFAU/campus-events-crawler/internal/scraper"
	"github.com/JakeFAU/campus-events-crawler/internal/storage/local"
	"github.com/JakeFAU/campus-events-crawler/internal/storage/memory"
)

var runStart = time.Date(2098, 12, 1, 6, 0, 0, 0, time.UTC)

type stubScraper struct {
	source event.Source
	events []event.RawEvent
	err    error
	panics bool
	wait   func()
}

func (s stubScraper) Source() event.Source { return s.source }

func (s stubScraper) Scrape(context.Context) ([]event.RawEvent, error) {
	if s.wait != nil {
		s.wait()
	}
	if s.panics {
		panic("browser crashed")
	}
	return s.events, s.err
}

type recordingNormalizer struct {
	mu    sync.Mutex
	calls [][]event.RawEvent
	err   error
}

func (r *recordingNormalizer) Run(_ context.Context, raws []event.RawEvent, report *event.RunReport) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, raws)
	if r.err != nil {
		return r.err
	}
	report.TotalScraped = len(raws)
	report.EventsAdded = len(raws)
	return nil
}

type fallbackImages struct{}

func (fallbackImages) Resolve(_ context.Context, _, category string) media.Result {
	return media.Result{URL: media.FallbackImage(category)}
}

func (fallbackImages) Discard(context.Context, string) error { return nil }

func newDirs(t *testing.T) (*local.Dir, *local.Dir) {
	t.Helper()
	artifacts, err := local.New(t.TempDir())
	require.NoError(t, err)
	reports, err := local.New(t.TempDir())
	require.NoError(t, err)
	return artifacts, reports
}

func rawEvents(n int) []event.RawEvent {
	out := make([]event.RawEvent, n)
	for i := range out {
		out[i] = event.RawEvent{Title: "Event", Source: event.SourceEventbrite}
	}
	return out
}

func TestRunPartialFailure(t *testing.T) {
	t.Parallel()

	artifacts, reports := newDirs(t)
	pub := pubmemory.New()
	norm := &recordingNormalizer{}
	scrapers := []scraper.Scraper{
		stubScraper{source: event.SourceDevfolio, panics: true},
		stubScraper{source: event.SourceUnstop, err: errors.New("navigation timeout")},
		stubScraper{source: event.SourceEventbrite, events: rawEvents(3)},
	}
	o := New(scrapers, norm, clock.NewFixed(runStart), nil,
		WithArtifacts(artifacts, false),
		WithReports(reports),
		WithPublisher(pub))

	report, err := o.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, norm.calls, 1)
	assert.Len(t, norm.calls[0], 3)
	assert.Equal(t, map[event.Source]int{
		event.SourceDevfolio:   0,
		event.SourceUnstop:     0,
		event.SourceEventbrite: 3,
	}, report.SourceCounts)
	assert.ElementsMatch(t, []event.Source{event.SourceDevfolio, event.SourceUnstop}, report.FailedSources)

	var saved event.RunReport
	require.NoError(t, reports.ReadJSON("run-2098-12-01.json", &saved))
	assert.Equal(t, 3, saved.EventsAdded)

	entries, err := os.ReadDir(artifacts.Path())
	require.NoError(t, err)
	assert.Empty(t, entries, "raw artifacts are cleaned up")

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, StatusPartial, msgs[0].Status)
}

func TestRunKeepsArtifactsWhenAsked(t *testing.T) {
	t.Parallel()

	artifacts, _ := newDirs(t)
	o := New([]scraper.Scraper{stubScraper{source: event.SourceEventbrite, events: rawEvents(2)}},
		&recordingNormalizer{}, clock.NewFixed(runStart), nil, WithArtifacts(artifacts, true))

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	var raws []event.RawEvent
	require.NoError(t, artifacts.ReadJSON("raw-eventbrite-20981201T060000.json", &raws))
	assert.Len(t, raws, 2)
}

func TestRunAllScrapersFailed(t *testing.T) {
	t.Parallel()

	_, reports := newDirs(t)
	pub := pubmemory.New()
	norm := &recordingNormalizer{}
	scrapers := []scraper.Scraper{
		stubScraper{source: event.SourceDevfolio, err: errors.New("timeout")},
		stubScraper{source: event.SourceUnstop, err: &scraper.StatusError{StatusCode: 429}},
		stubScraper{source: event.SourceEventbrite, panics: true},
	}
	o := New(scrapers, norm, clock.NewFixed(runStart), nil, WithReports(reports), WithPublisher(pub))

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, ErrNoSources)
	assert.Empty(t, norm.calls)
	require.Len(t, pub.Messages(), 1)
	assert.Equal(t, StatusFailed, pub.Messages()[0].Status)
}

func TestRunEmptySuccessIsNotFatal(t *testing.T) {
	t.Parallel()

	norm := &recordingNormalizer{}
	scrapers := []scraper.Scraper{
		stubScraper{source: event.SourceDevfolio, err: errors.New("timeout")},
		stubScraper{source: event.SourceUnstop},
	}
	_, err := New(scrapers, norm, clock.NewFixed(runStart), nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, norm.calls, 1)
	assert.Empty(t, norm.calls[0])
}

func TestRunNormalizerFailure(t *testing.T) {
	t.Parallel()

	cause := errors.New("load existing events: backend down")
	norm := &recordingNormalizer{err: cause}
	o := New([]scraper.Scraper{stubScraper{source: event.SourceEventbrite, events: rawEvents(1)}}, norm, clock.NewFixed(runStart), nil)

	_, err := o.Run(context.Background())
	require.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrNoSources)
}

func TestRunScrapersConcurrently(t *testing.T) {
	t.Parallel()

	var started sync.WaitGroup
	started.Add(3)
	release := make(chan struct{})
	wait := func() {
		started.Done()
		<-release
	}
	go func() {
		started.Wait()
		close(release)
	}()

	scrapers := []scraper.Scraper{
		stubScraper{source: event.SourceDevfolio, wait: wait, events: rawEvents(1)},
		stubScraper{source: event.SourceUnstop, wait: wait, events: rawEvents(1)},
		stubScraper{source: event.SourceEventbrite, wait: wait, events: rawEvents(1)},
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := New(scrapers, &recordingNormalizer{}, clock.NewFixed(runStart), nil).Run(context.Background())
		assert.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("scrapers did not run concurrently")
	}
}

func TestRunEndToEndDeduplicatesWithinRun(t *testing.T) {
	t.Parallel()

	store := memory.NewEventStore()
	clk := clock.NewFixed(runStart)
	norm := normalize.New(normalize.Config{}, store, fallbackImages{}, clk, nil)
	scrapers := []scraper.Scraper{
		stubScraper{source: event.SourceDevfolio, events: []event.RawEvent{
			{Title: "Hack A", StartDate: "2099-01-10", Category: []string{"Hackathon"}, Source: event.SourceDevfolio},
		}},
		stubScraper{source: event.SourceUnstop, events: []event.RawEvent{
			{Title: "Hack A", StartDate: "2099-01-12", Source: event.SourceUnstop},
		}},
		stubScraper{source: event.SourceEventbrite, err: &scraper.StatusError{StatusCode: 403}},
	}

	report, err := New(scrapers, norm, clk, nil).Run(context.Background())
	require.NoError(t, err)
	require.Len(t, store.Events(), 1)
	assert.Equal(t, 1, report.EventsAdded)
	assert.Equal(t, 1, report.DuplicatesSkipped)
	assert.Equal(t, 2, report.TotalScraped)
	assert.Equal(t, 1, report.ImagesFallback)
}
