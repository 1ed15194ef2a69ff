// Package scraper fetches raw event listings from the supported sites.
//
// Each source degrades on its own: a listing that cannot be fetched is logged and skipped,
// and a source only reports an error when none of its listings produced a page.
package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

// ErrSourceUnavailable marks responses that mean the site refused us (blocked or rate limited)
// rather than a broken scraper.
var ErrSourceUnavailable = errors.New("source unavailable")

// unavailableStatuses is the allow-list of HTTP statuses treated as ErrSourceUnavailable.
var unavailableStatuses = map[int]bool{
	http.StatusForbidden:       true,
	http.StatusTooManyRequests: true,
}

// Scraper produces raw events for one source.
type Scraper interface {
	Source() event.Source
	Scrape(ctx context.Context) ([]event.RawEvent, error)
}

// Listing is one page of a source together with the category its events default to.
type Listing struct {
	Path     string
	Category string
}

// Options are shared by every source.
type Options struct {
	// BaseURL replaces the site root, mainly for tests.
	BaseURL string
	// Delay is inserted between consecutive listings of the same source.
	Delay time.Duration
}

// StatusError is a listing response with a non-2xx status.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
}

// Is matches ErrSourceUnavailable for allow-listed statuses.
func (e *StatusError) Is(target error) bool {
	return target == ErrSourceUnavailable && unavailableStatuses[e.StatusCode]
}

// Guard runs s.Scrape and turns a panic into an error so one source cannot take down the run.
func Guard(ctx context.Context, s Scraper) (events []event.RawEvent, err error) {
	defer func() {
		if r := recover(); r != nil {
			events = nil
			err = fmt.Errorf("scraper %s panicked: %v\n%s", s.Source(), r, debug.Stack())
		}
	}()
	return s.Scrape(ctx)
}

func listingURL(base, path string) string {
	return strings.TrimRight(base, "/") + path
}
