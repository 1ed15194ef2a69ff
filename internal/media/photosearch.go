package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// DefaultPhotoEndpoint is the public photo-search API.
const DefaultPhotoEndpoint = "https://api.unsplash.com"

// ErrQuotaExceeded is returned when the photo API rejects a request for rate or quota reasons.
var ErrQuotaExceeded = errors.New("photo search quota exceeded")

// Photo is the top search hit.
type Photo struct {
	ID          string
	URL         string
	Description string
	Author      string
}

// PhotoSearcher finds a photo for a free-text query. ok is false when nothing matched.
type PhotoSearcher interface {
	Search(ctx context.Context, query string) (photo Photo, ok bool, err error)
}

// PhotoSearchConfig configures the photo API client.
type PhotoSearchConfig struct {
	Endpoint  string
	AccessKey string
	Timeout   time.Duration
}

// PhotoSearch queries the photo API through a circuit breaker so a failing or exhausted API
// stops being called for a while.
type PhotoSearch struct {
	cfg     PhotoSearchConfig
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

// NewPhotoSearch builds a client. httpClient may be nil.
func NewPhotoSearch(cfg PhotoSearchConfig, httpClient *http.Client, logger *zap.Logger) (*PhotoSearch, error) {
	if strings.TrimSpace(cfg.AccessKey) == "" {
		return nil, fmt.Errorf("photo search access key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultPhotoEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "photo-search",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("circuit", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return &PhotoSearch{cfg: cfg, http: httpClient, breaker: breaker}, nil
}

type searchResponse struct {
	Results []struct {
		ID             string `json:"id"`
		Description    string `json:"description"`
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
			Full    string `json:"full"`
		} `json:"urls"`
		User struct {
			Name string `json:"name"`
		} `json:"user"`
	} `json:"results"`
}

// Search returns the top landscape photo for query.
func (p *PhotoSearch) Search(ctx context.Context, query string) (Photo, bool, error) {
	out, err := p.breaker.Execute(func() (interface{}, error) {
		return p.search(ctx, query)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Photo{}, false, fmt.Errorf("photo search unavailable: %w", err)
		}
		return Photo{}, false, err
	}
	photo, _ := out.(*Photo)
	if photo == nil {
		return Photo{}, false, nil
	}
	return *photo, true, nil
}

func (p *PhotoSearch) search(ctx context.Context, query string) (*Photo, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	q := url.Values{}
	q.Set("query", query)
	q.Set("per_page", "1")
	q.Set("orientation", "landscape")
	endpoint := strings.TrimRight(p.cfg.Endpoint, "/") + "/search/photos?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+p.cfg.AccessKey)
	req.Header.Set("Accept-Version", "v1")

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("photo search: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	switch {
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrQuotaExceeded, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, URL: endpoint}
	}

	var decoded searchResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(decoded.Results) == 0 {
		return nil, nil
	}
	top := decoded.Results[0]
	photoURL := top.URLs.Regular
	if photoURL == "" {
		photoURL = top.URLs.Full
	}
	if photoURL == "" {
		return nil, nil
	}
	description := top.Description
	if description == "" {
		description = top.AltDescription
	}
	return &Photo{ID: top.ID, URL: photoURL, Description: description, Author: top.User.Name}, nil
}
