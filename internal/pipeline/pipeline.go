// Package pipeline runs one scrape-normalize-store cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/campus-events-crawler/internal/clock"
	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/metrics"
	"github.com/JakeFAU/campus-events-crawler/internal/publisher"
	"github.com/JakeFAU/campus-events-crawler/internal/scraper"
)

// Run statuses reported to metrics and subscribers.
const (
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// ErrNoSources aborts a run in which every scraper failed and nothing was scraped.
var ErrNoSources = errors.New("every scraper failed and no events were scraped")

// Normalizer consumes the combined raw events of a run.
type Normalizer interface {
	Run(ctx context.Context, raws []event.RawEvent, report *event.RunReport) error
}

// JSONWriter persists a JSON document under a name.
type JSONWriter interface {
	WriteJSON(name string, v any) (string, error)
}

// ArtifactSink keeps raw per-source dumps for debugging until the run ends.
type ArtifactSink interface {
	JSONWriter
	Remove(name string) error
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithArtifacts writes raw scraper output to sink. Artifacts are removed when the run ends
// unless keep is set.
func WithArtifacts(sink ArtifactSink, keep bool) Option {
	return func(o *Orchestrator) {
		o.artifacts = sink
		o.keepArtifacts = keep
	}
}

// WithReports saves the run report through w.
func WithReports(w JSONWriter) Option {
	return func(o *Orchestrator) {
		o.reports = w
	}
}

// WithPublisher announces the run summary through p.
func WithPublisher(p publisher.Publisher) Option {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// WithMetricsPush pushes the metrics registry to a push gateway after each run.
func WithMetricsPush(gatewayURL, job string) Option {
	return func(o *Orchestrator) {
		o.pushURL = gatewayURL
		o.pushJob = job
	}
}

// Orchestrator fans out to the scrapers, then hands everything to the normalizer once.
type Orchestrator struct {
	scrapers      []scraper.Scraper
	normalizer    Normalizer
	clock         clock.Clock
	logger        *zap.Logger
	artifacts     ArtifactSink
	keepArtifacts bool
	reports       JSONWriter
	publisher     publisher.Publisher
	pushURL       string
	pushJob       string
}

// New builds an Orchestrator.
func New(scrapers []scraper.Scraper, normalizer Normalizer, clk clock.Clock, logger *zap.Logger, opts ...Option) *Orchestrator {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Orchestrator{
		scrapers:   scrapers,
		normalizer: normalizer,
		clock:      clk,
		logger:     logger.Named("pipeline"),
		pushJob:    "events-crawler",
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type outcome struct {
	source event.Source
	events []event.RawEvent
	err    error
}

// Run executes one pipeline run and returns its report. The error is non-nil only for
// run-fatal failures: ErrNoSources or a normalizer failure.
func (o *Orchestrator) Run(ctx context.Context) (*event.RunReport, error) {
	report := event.NewRunReport(o.clock.Now())
	var artifacts []string
	defer func() {
		o.cleanup(artifacts)
	}()

	o.logger.Info("run started", zap.Int("scrapers", len(o.scrapers)))
	var (
		raws   []event.RawEvent
		failed int
	)
	for _, out := range o.scrapeAll(ctx) {
		if out.err != nil {
			failed++
			report.SourceCounts[out.source] = 0
			report.FailedSources = append(report.FailedSources, out.source)
			metrics.ObserveScrape(out.source, 0, true)
			o.logger.Warn("scraper failed",
				zap.String("source", string(out.source)),
				zap.Bool("unavailable", errors.Is(out.err, scraper.ErrSourceUnavailable)),
				zap.Error(out.err))
			continue
		}
		report.SourceCounts[out.source] = len(out.events)
		metrics.ObserveScrape(out.source, len(out.events), false)
		o.logger.Info("scraper finished",
			zap.String("source", string(out.source)),
			zap.Int("events", len(out.events)))
		if name, ok := o.writeArtifact(out, report.RunDate); ok {
			artifacts = append(artifacts, name)
		}
		raws = append(raws, out.events...)
	}

	if failed == len(o.scrapers) && len(raws) == 0 {
		o.logger.Error("aborting run", zap.Error(ErrNoSources))
		o.finish(ctx, report, StatusFailed)
		return report, ErrNoSources
	}

	if err := o.normalizer.Run(ctx, raws, report); err != nil {
		o.logger.Error("normalizer failed", zap.Error(err))
		o.finish(ctx, report, StatusFailed)
		return report, fmt.Errorf("normalize: %w", err)
	}

	status := StatusSuccess
	if failed > 0 || len(report.Errors) > 0 {
		status = StatusPartial
	}
	o.finish(ctx, report, status)
	return report, nil
}

// scrapeAll runs every scraper concurrently. No scraper can cancel or block another; each
// outcome lands in its own slot.
func (o *Orchestrator) scrapeAll(ctx context.Context) []outcome {
	outcomes := make([]outcome, len(o.scrapers))
	var g errgroup.Group
	for i, s := range o.scrapers {
		g.Go(func() error {
			events, err := scraper.Guard(ctx, s)
			outcomes[i] = outcome{source: s.Source(), events: events, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (o *Orchestrator) writeArtifact(out outcome, runDate time.Time) (string, bool) {
	if o.artifacts == nil {
		return "", false
	}
	name := fmt.Sprintf("raw-%s-%s.json", out.source, runDate.UTC().Format("20060102T150405"))
	path, err := o.artifacts.WriteJSON(name, out.events)
	if err != nil {
		o.logger.Warn("raw artifact not written", zap.String("source", string(out.source)), zap.Error(err))
		return "", false
	}
	o.logger.Debug("raw artifact written", zap.String("path", path))
	return name, true
}

func (o *Orchestrator) finish(ctx context.Context, report *event.RunReport, status string) {
	report.Finish(o.clock.Now())
	if o.reports != nil {
		if path, err := o.reports.WriteJSON(report.FileName(), report); err != nil {
			o.logger.Warn("run report not written", zap.Error(err))
		} else {
			o.logger.Info("run report written", zap.String("path", path))
		}
	}

	metrics.ObserveReport(report, status)
	if err := metrics.Push(ctx, o.pushURL, o.pushJob); err != nil {
		o.logger.Warn("metrics push failed", zap.Error(err))
	}
	if o.publisher != nil {
		if _, err := o.publisher.Publish(ctx, publisher.NewRunSummary(report, status)); err != nil {
			o.logger.Warn("run summary not published", zap.Error(err))
		}
	}
	o.logger.Info("run finished",
		zap.String("status", status),
		zap.Int("scraped", report.TotalScraped),
		zap.Int("added", report.EventsAdded),
		zap.Int("duplicates", report.DuplicatesSkipped),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.Duration))
}

func (o *Orchestrator) cleanup(names []string) {
	if o.artifacts == nil || o.keepArtifacts {
		return
	}
	for _, name := range names {
		if err := o.artifacts.Remove(name); err != nil {
			o.logger.Debug("artifact cleanup failed", zap.String("name", name), zap.Error(err))
		}
	}
}
