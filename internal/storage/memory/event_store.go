// Package memory holds in-process event and file stores for tests and dry runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/storage"
)

var _ storage.EventStore = (*EventStore)(nil)

// EventStore keeps event documents in a slice guarded by a mutex.
type EventStore struct {
	mu      sync.RWMutex
	docs    []storedDoc
	nextID  int
	failFor map[string]error
}

type storedDoc struct {
	id    string
	event event.NormalizedEvent
}

// NewEventStore returns a store preloaded with seed events.
func NewEventStore(seed ...event.NormalizedEvent) *EventStore {
	s := &EventStore{failFor: make(map[string]error)}
	for _, ev := range seed {
		_, _ = s.CreateEvent(context.Background(), ev)
	}
	return s
}

// FailCreate makes CreateEvent return err for events titled title.
func (s *EventStore) FailCreate(title string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[title] = err
}

// CreateEvent appends ev and returns a sequential id.
func (s *EventStore) CreateEvent(_ context.Context, ev event.NormalizedEvent) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err, ok := s.failFor[ev.Title]; ok {
		return "", err
	}
	s.nextID++
	id := fmt.Sprintf("mem-%d", s.nextID)
	ev.Category = append([]string(nil), ev.Category...)
	ev.Tags = append([]string(nil), ev.Tags...)
	s.docs = append(s.docs, storedDoc{id: id, event: ev})
	return id, nil
}

// RecentRefs returns up to limit events ordered by event date, newest first.
func (s *EventStore) RecentRefs(_ context.Context, limit int) ([]event.ExistingEventRef, error) {
	docs := s.sorted()
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	refs := make([]event.ExistingEventRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, d.event.Ref())
	}
	return refs, nil
}

// ListEvents pages through events ordered by event date, newest first.
func (s *EventStore) ListEvents(_ context.Context, offset, limit int) ([]event.StoredEvent, error) {
	docs := s.sorted()
	if offset >= len(docs) {
		return nil, nil
	}
	docs = docs[offset:]
	if limit > 0 && len(docs) > limit {
		docs = docs[:limit]
	}
	out := make([]event.StoredEvent, 0, len(docs))
	for _, d := range docs {
		date := d.event.EventDate
		out = append(out, event.StoredEvent{
			ID:           d.id,
			Title:        d.event.Title,
			EventType:    d.event.EventType,
			EventDate:    &date,
			ThumbnailURL: d.event.ThumbnailURL,
			PosterFileID: d.event.PosterFileID,
		})
	}
	return out, nil
}

// UpdateEventImage replaces the thumbnail of the event with id.
func (s *EventStore) UpdateEventImage(_ context.Context, id, thumbnailURL, posterFileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.docs {
		if s.docs[i].id != id {
			continue
		}
		s.docs[i].event.ThumbnailURL = thumbnailURL
		if posterFileID != "" {
			s.docs[i].event.PosterFileID = posterFileID
		}
		return nil
	}
	return fmt.Errorf("update event %s: %w", id, storage.ErrNotFound)
}

// Events returns copies of every stored event in insertion order.
func (s *EventStore) Events() []event.NormalizedEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]event.NormalizedEvent, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, d.event)
	}
	return out
}

func (s *EventStore) sorted() []storedDoc {
	s.mu.RLock()
	docs := append([]storedDoc(nil), s.docs...)
	s.mu.RUnlock()
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].event.EventDate.After(docs[j].event.EventDate)
	})
	return docs
}
