// Package event defines the raw, normalized, and reporting shapes that flow through the pipeline.
package event

import (
	"time"
)

// Source identifies the listing site a RawEvent was scraped from.
type Source string

const (
	// SourceDevfolio is the browser-driven hackathon listing.
	SourceDevfolio Source = "devfolio"
	// SourceUnstop is the browser-driven listing with hackathon and workshop pages.
	SourceUnstop Source = "unstop"
	// SourceEventbrite is the HTTP listing parsed from JSON-LD.
	SourceEventbrite Source = "eventbrite"
)

// Sources lists every known source in reporting order.
func Sources() []Source {
	return []Source{SourceDevfolio, SourceUnstop, SourceEventbrite}
}

const (
	// StatusUpcoming is assigned to every event the pipeline creates.
	StatusUpcoming = "Upcoming"
	// LinkUnavailable replaces registration links that are not absolute http(s) URLs.
	LinkUnavailable = "N/A"
	// SubmitterAutomation marks documents written by the pipeline rather than a person.
	SubmitterAutomation = "automation"
	// AutomationUserID is stored as submitter and creator of automated events.
	AutomationUserID = "event-scraper"

	// MaxTitleLength caps NormalizedEvent.Title.
	MaxTitleLength = 200
	// MaxLocationLength caps free-text locations.
	MaxLocationLength = 200
	// MaxTags caps NormalizedEvent.Tags.
	MaxTags = 6
	// MaxSourceTags is how many scraped tags survive into the tag set.
	MaxSourceTags = 3
)

// RawEvent is the loosely typed record emitted by a scraper.
// Dates are left as free text and interpreted by the normalizer.
type RawEvent struct {
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	Location         string   `json:"location"`
	RegistrationLink string   `json:"registrationLink"`
	OrganizerName    string   `json:"organizerName"`
	ImageURL         string   `json:"imageUrl"`
	Tags             []string `json:"tags"`
	MaxParticipants  int      `json:"maxParticipants"`
	Source           Source   `json:"source"`
	Category         []string `json:"category"`
}

// NormalizedEvent is the canonical document persisted for review.
type NormalizedEvent struct {
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         []string  `json:"category"`
	EventType        string    `json:"eventType"`
	Status           string    `json:"status"`
	EventDate        time.Time `json:"eventDate"`
	Time             time.Time `json:"time"`
	Organizer        string    `json:"organizer"`
	Location         string    `json:"location"`
	RegistrationLink string    `json:"registrationLink"`
	Tags             []string  `json:"tags"`
	MaxParticipants  int       `json:"maxParticipants"`
	ThumbnailURL     string    `json:"thumbnailUrl"`
	PosterFileID     string    `json:"posterFileId,omitempty"`
	SubmittedBy      string    `json:"submittedBy"`
	CreatedByUserID  string    `json:"createdByUserId"`
	SubmitterType    string    `json:"submitterType"`
	Approved         bool      `json:"approved"`
	IsFeatured       bool      `json:"isFeatured"`
	Source           Source    `json:"-"`
}

// ExistingEventRef is the projection of a stored event used for duplicate checks.
type ExistingEventRef struct {
	Title     string
	EventDate *time.Time
}

// StoredEvent is a persisted event as listed back for the image repair pass.
type StoredEvent struct {
	ID           string
	Title        string
	EventType    string
	EventDate    *time.Time
	ThumbnailURL string
	PosterFileID string
}

// Ref projects a NormalizedEvent onto the fields used for duplicate checks.
func (e NormalizedEvent) Ref() ExistingEventRef {
	if e.EventDate.IsZero() {
		return ExistingEventRef{Title: e.Title}
	}
	date := e.EventDate
	return ExistingEventRef{Title: e.Title, EventDate: &date}
}
