// Package storage defines the persistence boundaries used by the pipeline: an event document
// store and a file store for re-hosted images. Implementations live in subpackages.
package storage

import (
	"context"
	"errors"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
)

// ErrNotFound is returned when a document addressed by id does not exist.
var ErrNotFound = errors.New("document not found")

// EventStore reads and writes event documents.
type EventStore interface {
	// RecentRefs returns up to limit stored events, newest event date first, projected for dedup.
	RecentRefs(ctx context.Context, limit int) ([]event.ExistingEventRef, error)
	// CreateEvent persists a new event and returns its document id.
	CreateEvent(ctx context.Context, ev event.NormalizedEvent) (string, error)
	// ListEvents pages through stored events for maintenance passes.
	ListEvents(ctx context.Context, offset, limit int) ([]event.StoredEvent, error)
	// UpdateEventImage replaces the thumbnail of an existing event.
	UpdateEventImage(ctx context.Context, id, thumbnailURL, posterFileID string) error
}

// FileStore hosts uploaded image bytes.
type FileStore interface {
	// PutFile stores data under fileID.
	PutFile(ctx context.Context, fileID, name, contentType string, data []byte) error
	// DeleteFile removes fileID. Deleting a missing file is not an error.
	DeleteFile(ctx context.Context, fileID string) error
	// PreviewURL is the public URL serving fileID.
	PreviewURL(fileID string) string
}
