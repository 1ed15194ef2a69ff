package scraper

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}

func TestNewCollyFetcherDefaults(t *testing.T) {
	t.Parallel()

	f := NewCollyFetcher(HTTPConfig{UserAgent: "events-bot"}, nil)
	assert.Equal(t, 30*time.Second, f.cfg.Timeout)

	collector := f.buildCollector()
	assert.Equal(t, "events-bot", collector.UserAgent)
	assert.True(t, collector.IgnoreRobotsTxt)
	assert.True(t, collector.AllowURLRevisit)
}

func TestConfigureCollectorHooks(t *testing.T) {
	t.Parallel()

	var (
		body     []byte
		fetchErr error
	)
	hooks := &stubHooks{}
	configureCollectorHooks(hooks, HTTPConfig{UserAgent: "events-bot"}, "https://x.test/d", &body, &fetchErr)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	req := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(req)
	assert.Equal(t, "events-bot", req.Headers.Get("User-Agent"))
	assert.Contains(t, req.Headers.Get("Accept"), "text/html")

	hooks.onResponse(&colly.Response{StatusCode: http.StatusOK, Body: []byte("<html></html>")})
	assert.Equal(t, "<html></html>", string(body))

	hooks.onError(&colly.Response{StatusCode: http.StatusTooManyRequests}, errors.New("Too Many Requests"))
	assert.ErrorIs(t, fetchErr, ErrSourceUnavailable)

	hooks.onError(nil, errors.New("dial tcp: refused"))
	assert.NotErrorIs(t, fetchErr, ErrSourceUnavailable)
	assert.Contains(t, fetchErr.Error(), "dial tcp: refused")
}
