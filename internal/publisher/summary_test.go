package publisher

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

func TestNewRunSummary(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	report := event.NewRunReport(start)
	report.SourceCounts[event.SourceDevfolio] = 4
	report.FailedSources = []event.Source{event.SourceUnstop}
	report.TotalScraped = 4
	report.EventsAdded = 3
	report.DuplicatesSkipped = 1
	report.AddError("Broken", errors.New("boom"))
	report.Finish(start.Add(90 * time.Second))

	summary := NewRunSummary(report, "partial")
	assert.Equal(t, "partial", summary.Status)
	assert.Equal(t, 4, summary.SourceCounts[event.SourceDevfolio])
	assert.Equal(t, []event.Source{event.SourceUnstop}, summary.FailedSources)
	assert.Equal(t, 3, summary.EventsAdded)
	assert.Equal(t, 1, summary.ErrorCount)
	assert.InDelta(t, 90.0, summary.DurationSeconds, 0.001)
	assert.Equal(t, "run-2025-03-01.json", summary.ReportName)
	assert.Equal(t, map[string]string{"status": "partial", "run_date": "2025-03-01"}, summary.Attributes())

	report.SourceCounts[event.SourceDevfolio] = 99
	assert.Equal(t, 4, summary.SourceCounts[event.SourceDevfolio])
}
