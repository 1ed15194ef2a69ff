package scraper

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
)

// PageFetcher returns the raw body of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, pageURL string) ([]byte, error)
}

// Pacer delays requests per host.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// HTTPConfig controls collector behavior.
type HTTPConfig struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
}

// CollyFetcher implements PageFetcher with a Colly collector.
type CollyFetcher struct {
	cfg           HTTPConfig
	transport     http.RoundTripper
	pacer         Pacer
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// NewCollyFetcher builds a fetcher. pacer may be nil.
func NewCollyFetcher(cfg HTTPConfig, pacer Pacer) *CollyFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	transport := newHTTPTransport()
	c.WithTransport(transport)
	return &CollyFetcher{
		cfg:           cfg,
		transport:     transport,
		pacer:         pacer,
		baseCollector: c,
	}
}

// Fetch GETs pageURL. Non-2xx responses come back as *StatusError.
func (f *CollyFetcher) Fetch(ctx context.Context, pageURL string) ([]byte, error) {
	if f.pacer != nil {
		if err := f.pacer.Wait(ctx, pageURL); err != nil {
			return nil, err
		}
	}
	var (
		body     []byte
		fetchErr error
	)
	collector := f.buildCollector()
	configureCollectorHooks(collector, f.cfg, pageURL, &body, &fetchErr)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s canceled: %w", pageURL, ctx.Err())
	case err := <-done:
		if fetchErr != nil {
			return nil, fetchErr
		}
		if err != nil {
			return nil, fmt.Errorf("visit %s: %w", pageURL, err)
		}
		return body, nil
	}
}

func (f *CollyFetcher) buildCollector() *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.AllowURLRevisit = true
	collector.SetRequestTimeout(f.cfg.Timeout)
	collector.WithTransport(f.transport)
	return collector
}

func configureCollectorHooks(hooks collectorHooks, cfg HTTPConfig, pageURL string, body *[]byte, fetchErr *error) {
	hooks.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
		if cfg.UserAgent != "" {
			r.Headers.Set("User-Agent", cfg.UserAgent)
		}
	})

	hooks.OnResponse(func(r *colly.Response) {
		*body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode >= 300 {
			*fetchErr = &StatusError{URL: pageURL, StatusCode: r.StatusCode}
			return
		}
		*fetchErr = fmt.Errorf("fetch %s: %w", pageURL, err)
	})
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
