package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

type panicky struct{}

func (panicky) Source() event.Source { return event.SourceDevfolio }

func (panicky) Scrape(context.Context) ([]event.RawEvent, error) {
	panic("selector exploded")
}

type static struct {
	events []event.RawEvent
	err    error
}

func (static) Source() event.Source { return event.SourceUnstop }

func (s static) Scrape(context.Context) ([]event.RawEvent, error) {
	return s.events, s.err
}

func TestGuardRecoversPanic(t *testing.T) {
	t.Parallel()

	events, err := Guard(context.Background(), panicky{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scraper devfolio panicked: selector exploded")
	assert.Nil(t, events)
}

func TestGuardPassesThrough(t *testing.T) {
	t.Parallel()

	want := []event.RawEvent{{Title: "Hack A"}}
	events, err := Guard(context.Background(), static{events: want})
	require.NoError(t, err)
	assert.Equal(t, want, events)
}

func TestStatusErrorClassification(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status      int
		unavailable bool
	}{
		{http.StatusForbidden, true},
		{http.StatusTooManyRequests, true},
		{http.StatusNotFound, false},
		{http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			t.Parallel()
			err := fmt.Errorf("wrapped: %w", &StatusError{URL: "https://x.test", StatusCode: tt.status})
			assert.Equal(t, tt.unavailable, errors.Is(err, ErrSourceUnavailable))
			var statusErr *StatusError
			require.ErrorAs(t, err, &statusErr)
			assert.Equal(t, tt.status, statusErr.StatusCode)
		})
	}
}

func TestListingURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "https://unstop.com/hackathons", listingURL("https://unstop.com/", "/hackathons"))
}
