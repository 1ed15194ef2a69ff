// Package metrics exposes Prometheus collectors for pipeline runs and the serve endpoints.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

var (
	eventsScrapedTotal     *prometheus.CounterVec
	sourceFailuresTotal    *prometheus.CounterVec
	eventsAddedTotal       prometheus.Counter
	eventsSkippedTotal     *prometheus.CounterVec
	eventImagesTotal       *prometheus.CounterVec
	imageRepairsTotal      *prometheus.CounterVec
	pipelineRunsTotal      *prometheus.CounterVec
	pipelineRunDuration    prometheus.Histogram
	httpRequestsTotal      *prometheus.CounterVec
	httpRequestDurationSec *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. It is safe to call more than once.
func Init() {
	once.Do(func() {
		eventsScrapedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_scraped_total",
				Help: "Raw events returned by scrapers, labeled by source.",
			},
			[]string{"source"},
		)

		sourceFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_source_failures_total",
				Help: "Scraper runs that failed outright, labeled by source.",
			},
			[]string{"source"},
		)

		eventsAddedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "events_added_total",
				Help: "Normalized events written to the event store.",
			},
		)

		eventsSkippedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "events_skipped_total",
				Help: "Raw events not written, labeled by reason.",
			},
			[]string{"reason"},
		)

		eventImagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_images_total",
				Help: "Image resolutions, labeled by outcome (uploaded or fallback).",
			},
			[]string{"outcome"},
		)

		imageRepairsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "event_image_repairs_total",
				Help: "Repair pass outcomes per processed event.",
			},
			[]string{"outcome"},
		)

		pipelineRunsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pipeline_runs_total",
				Help: "Pipeline executions, labeled by status.",
			},
			[]string{"status"},
		)

		pipelineRunDuration = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pipeline_run_duration_seconds",
				Help:    "Wall-clock duration of pipeline runs.",
				Buckets: []float64{30, 60, 120, 300, 600, 1200, 1800},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSec = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveScrape records one scraper outcome.
func ObserveScrape(source event.Source, count int, failed bool) {
	Init()
	if failed {
		sourceFailuresTotal.WithLabelValues(string(source)).Inc()
		return
	}
	eventsScrapedTotal.WithLabelValues(string(source)).Add(float64(count))
}

// ObserveReport folds a finished run report into the counters.
func ObserveReport(report *event.RunReport, status string) {
	Init()
	eventsAddedTotal.Add(float64(report.EventsAdded))
	eventsSkippedTotal.WithLabelValues("duplicate").Add(float64(report.DuplicatesSkipped))
	eventsSkippedTotal.WithLabelValues("invalid").Add(float64(report.InvalidSkipped))
	eventsSkippedTotal.WithLabelValues("past").Add(float64(report.PastSkipped))
	eventsSkippedTotal.WithLabelValues("error").Add(float64(len(report.Errors)))
	eventImagesTotal.WithLabelValues("uploaded").Add(float64(report.ImagesUploaded))
	eventImagesTotal.WithLabelValues("fallback").Add(float64(report.ImagesFallback))
	ObserveRun(status, report.Duration)
}

// ObserveRun counts a run with its terminal status.
func ObserveRun(status string, duration time.Duration) {
	Init()
	pipelineRunsTotal.WithLabelValues(status).Inc()
	if duration > 0 {
		pipelineRunDuration.Observe(duration.Seconds())
	}
}

// ObserveRepair counts one repair pass outcome.
func ObserveRepair(outcome string) {
	Init()
	imageRepairsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSec.WithLabelValues(method, route).Observe(duration.Seconds())
}

// Push sends the default registry to a Prometheus push gateway under job.
// Batch runs exit before a scrape can happen, so they push instead.
func Push(ctx context.Context, gatewayURL, job string) error {
	if gatewayURL == "" {
		return nil
	}
	if err := push.New(gatewayURL, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
