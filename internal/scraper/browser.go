package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// PageRenderer returns the rendered HTML of a page once one of waitFor matches or the wait
// budget runs out.
type PageRenderer interface {
	Render(ctx context.Context, pageURL string, waitFor []string) (string, error)
}

// BrowserConfig controls the headless browser.
type BrowserConfig struct {
	UserAgent         string
	NavigationTimeout time.Duration
	WaitTimeout       time.Duration
	ScrollPasses      int
	ScrollPause       time.Duration
	Retries           int
	MaxParallel       int
}

// Browser renders pages in headless Chrome, one isolated tab per page.
type Browser struct {
	cfg         BrowserConfig
	limiter     chan struct{}
	allocator   context.Context
	allocCancel context.CancelFunc
	logger      *zap.Logger
}

// NewBrowser prepares a Chrome allocator. Chrome itself starts on first use.
func NewBrowser(cfg BrowserConfig, logger *zap.Logger) (*Browser, error) {
	if cfg.MaxParallel < 0 {
		return nil, fmt.Errorf("max parallel must be >= 0")
	}
	if cfg.Retries < 0 {
		return nil, fmt.Errorf("retries must be >= 0")
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 60 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 15 * time.Second
	}
	if cfg.ScrollPasses <= 0 {
		cfg.ScrollPasses = 3
	}
	if cfg.ScrollPause <= 0 {
		cfg.ScrollPause = 800 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var limiter chan struct{}
	if cfg.MaxParallel > 0 {
		limiter = make(chan struct{}, cfg.MaxParallel)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Browser{
		cfg:         cfg,
		limiter:     limiter,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		logger:      logger.Named("browser"),
	}, nil
}

// Close shuts the browser down.
func (b *Browser) Close() {
	b.allocCancel()
}

// Render navigates to pageURL, scrolls to load lazy content, waits for the first of waitFor
// to appear and returns the document HTML. A failed attempt is retried cfg.Retries times,
// except when the site answered 403 or 429.
func (b *Browser) Render(ctx context.Context, pageURL string, waitFor []string) (string, error) {
	if err := b.acquire(ctx); err != nil {
		return "", err
	}
	defer b.release()

	var lastErr error
	for attempt := 0; attempt <= b.cfg.Retries; attempt++ {
		html, err := b.renderOnce(ctx, pageURL, waitFor)
		if err == nil {
			return html, nil
		}
		lastErr = err
		if errors.Is(err, ErrSourceUnavailable) || ctx.Err() != nil {
			break
		}
		b.logger.Warn("navigation failed",
			zap.String("url", pageURL),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}
	return "", lastErr
}

func (b *Browser) renderOnce(ctx context.Context, pageURL string, waitFor []string) (string, error) {
	taskCtx, taskCancel := chromedp.NewContext(b.allocator)
	defer taskCancel()

	taskCtx, cancel := context.WithTimeout(taskCtx, b.cfg.NavigationTimeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	meta := newResponseMeta()
	chromedp.ListenTarget(taskCtx, meta.captureEvent)

	var html string
	actions := []chromedp.Action{
		b.networkSetupAction(),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		b.scrollAction(),
		b.waitForAny(pageURL, waitFor),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	}
	if err := chromedp.Run(taskCtx, actions...); err != nil {
		if status := meta.status(); status >= 400 {
			return "", &StatusError{URL: pageURL, StatusCode: status}
		}
		return "", fmt.Errorf("chromedp run: %w", err)
	}
	if status := meta.status(); status >= 400 {
		return "", &StatusError{URL: pageURL, StatusCode: status}
	}
	return html, nil
}

func (b *Browser) networkSetupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if b.cfg.UserAgent != "" {
			if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// scrollAction scrolls to the bottom a few times, stopping early once the page stops growing.
func (b *Browser) scrollAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		var previous int64
		for i := 0; i < b.cfg.ScrollPasses; i++ {
			var height int64
			script := `window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`
			if err := chromedp.Evaluate(script, &height).Do(ctx); err != nil {
				return fmt.Errorf("scroll: %w", err)
			}
			if height == previous {
				return nil
			}
			previous = height
			if err := chromedp.Sleep(b.cfg.ScrollPause).Do(ctx); err != nil {
				return fmt.Errorf("scroll pause: %w", err)
			}
		}
		return nil
	})
}

// waitForAny polls until one of selectors matches. Running out of time is not an error: the
// caller simply finds no cards.
func (b *Browser) waitForAny(pageURL string, selectors []string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if len(selectors) == 0 {
			return nil
		}
		expr := anySelectorExpression(selectors)
		deadline := time.Now().Add(b.cfg.WaitTimeout)
		for {
			var found bool
			if err := chromedp.Evaluate(expr, &found).Do(ctx); err != nil {
				return fmt.Errorf("probe card selectors: %w", err)
			}
			if found {
				return nil
			}
			if time.Now().After(deadline) {
				b.logger.Warn("no card selector matched", zap.String("url", pageURL))
				return nil
			}
			if err := chromedp.Sleep(250 * time.Millisecond).Do(ctx); err != nil {
				return fmt.Errorf("selector wait: %w", err)
			}
		}
	})
}

func anySelectorExpression(selectors []string) string {
	quoted, _ := json.Marshal(selectors)
	return fmt.Sprintf(
		`%s.some(function (s) { try { return document.querySelector(s) !== null; } catch (e) { return false; } })`,
		quoted)
}

func (b *Browser) acquire(ctx context.Context) error {
	if b.limiter == nil {
		return nil
	}
	select {
	case b.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("browser slot wait canceled: %w", ctx.Err())
	}
}

func (b *Browser) release() {
	if b.limiter == nil {
		return
	}
	select {
	case <-b.limiter:
	default:
	}
}

// responseMeta remembers the status of the main document response.
type responseMeta struct {
	mu   sync.RWMutex
	code int
}

func newResponseMeta() *responseMeta {
	return &responseMeta{}
}

func (m *responseMeta) capture(ev *network.EventResponseReceived) {
	if ev.Type != network.ResourceTypeDocument || ev.Response == nil {
		return
	}
	m.mu.Lock()
	m.code = int(ev.Response.Status)
	m.mu.Unlock()
}

func (m *responseMeta) captureEvent(ev any) {
	if resp, ok := ev.(*network.EventResponseReceived); ok {
		m.capture(resp)
	}
}

func (m *responseMeta) status() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.code
}
