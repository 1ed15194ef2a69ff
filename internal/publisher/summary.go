// Package publisher announces finished pipeline runs to downstream consumers.
package publisher

import (
	"context"
	"time"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

// Publisher delivers run summaries.
type Publisher interface {
	Publish(ctx context.Context, summary RunSummary) (string, error)
}

// RunSummary is the message emitted once per run.
type RunSummary struct {
	RunDate           time.Time            `json:"runDate"`
	Status            string               `json:"status"`
	SourceCounts      map[event.Source]int `json:"sourceCounts"`
	FailedSources     []event.Source       `json:"failedSources,omitempty"`
	TotalScraped      int                  `json:"totalScraped"`
	EventsAdded       int                  `json:"eventsAdded"`
	DuplicatesSkipped int                  `json:"duplicatesSkipped"`
	ImagesUploaded    int                  `json:"imagesUploaded"`
	ImagesFallback    int                  `json:"imagesFallback"`
	ErrorCount        int                  `json:"errorCount"`
	DurationSeconds   float64              `json:"durationSeconds"`
	ReportName        string               `json:"reportName"`
}

// NewRunSummary condenses report into a summary with the run's terminal status.
func NewRunSummary(report *event.RunReport, status string) RunSummary {
	counts := make(map[event.Source]int, len(report.SourceCounts))
	for source, n := range report.SourceCounts {
		counts[source] = n
	}
	return RunSummary{
		RunDate:           report.RunDate,
		Status:            status,
		SourceCounts:      counts,
		FailedSources:     append([]event.Source(nil), report.FailedSources...),
		TotalScraped:      report.TotalScraped,
		EventsAdded:       report.EventsAdded,
		DuplicatesSkipped: report.DuplicatesSkipped,
		ImagesUploaded:    report.ImagesUploaded,
		ImagesFallback:    report.ImagesFallback,
		ErrorCount:        len(report.Errors),
		DurationSeconds:   report.DurationSeconds,
		ReportName:        report.FileName(),
	}
}

// Attributes are the message attributes subscribers can filter on.
func (s RunSummary) Attributes() map[string]string {
	return map[string]string{
		"status":   s.Status,
		"run_date": s.RunDate.UTC().Format("2006-01-02"),
	}
}
