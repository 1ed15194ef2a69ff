package event

import (
	"time"
)

// Failure names a record that errored during normalization.
type Failure struct {
	Title string `json:"title"`
	Error string `json:"error"`
}

// RunReport summarizes one pipeline execution.
type RunReport struct {
	RunDate           time.Time      `json:"runDate"`
	SourceCounts      map[Source]int `json:"sourceCounts"`
	FailedSources     []Source       `json:"failedSources,omitempty"`
	TotalScraped      int            `json:"totalScraped"`
	EventsAdded       int            `json:"eventsAdded"`
	DuplicatesSkipped int            `json:"duplicatesSkipped"`
	InvalidSkipped    int            `json:"invalidSkipped"`
	PastSkipped       int            `json:"pastSkipped"`
	ImagesUploaded    int            `json:"imagesUploaded"`
	ImagesFallback    int            `json:"imagesFallback"`
	Errors            []Failure      `json:"errors"`
	Duration          time.Duration  `json:"-"`
	DurationSeconds   float64        `json:"durationSeconds"`
}

// NewRunReport starts a report for a run beginning at start.
func NewRunReport(start time.Time) *RunReport {
	return &RunReport{
		RunDate:      start,
		SourceCounts: make(map[Source]int, len(Sources())),
		Errors:       []Failure{},
	}
}

// AddError records a per-record failure.
func (r *RunReport) AddError(title string, err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, Failure{Title: title, Error: err.Error()})
}

// Finish stamps the wall-clock duration.
func (r *RunReport) Finish(end time.Time) {
	r.Duration = end.Sub(r.RunDate)
	r.DurationSeconds = r.Duration.Seconds()
}

// FileName is the artifact name for the report, one per run date.
func (r *RunReport) FileName() string {
	return "run-" + r.RunDate.UTC().Format("2006-01-02") + ".json"
}
