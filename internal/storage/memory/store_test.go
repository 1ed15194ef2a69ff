package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/storage"
)

func TestEventStoreOrdersByDate(t *testing.T) {
	t.Parallel()

	older := time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 1, 0)
	store := NewEventStore(
		event.NormalizedEvent{Title: "Old", EventDate: older},
		event.NormalizedEvent{Title: "New", EventDate: newer},
	)

	refs, err := store.RecentRefs(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "New", refs[0].Title)

	page, err := store.ListEvents(context.Background(), 1, 10)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "Old", page[0].Title)

	empty, err := store.ListEvents(context.Background(), 5, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEventStoreUpdateAndFailures(t *testing.T) {
	t.Parallel()

	store := NewEventStore()
	id, err := store.CreateEvent(context.Background(), event.NormalizedEvent{Title: "A"})
	require.NoError(t, err)

	require.NoError(t, store.UpdateEventImage(context.Background(), id, "https://img", "f1"))
	assert.Equal(t, "https://img", store.Events()[0].ThumbnailURL)
	assert.Equal(t, "f1", store.Events()[0].PosterFileID)
	require.ErrorIs(t, store.UpdateEventImage(context.Background(), "nope", "x", ""), storage.ErrNotFound)

	boom := errors.New("boom")
	store.FailCreate("B", boom)
	_, err = store.CreateEvent(context.Background(), event.NormalizedEvent{Title: "B"})
	require.ErrorIs(t, err, boom)
}

func TestFileStore(t *testing.T) {
	t.Parallel()

	store := NewFileStore()
	data := []byte("img")
	require.NoError(t, store.PutFile(context.Background(), "f1", "a.png", "image/png", data))
	data[0] = 'X'

	f, ok := store.File("f1")
	require.True(t, ok)
	assert.Equal(t, []byte("img"), f.Data)
	assert.Equal(t, "memory://files/f1", store.PreviewURL("f1"))
	assert.Equal(t, 1, store.Len())

	require.Error(t, store.PutFile(context.Background(), "", "a.png", "image/png", data))
	store.FailWith(errors.New("down"))
	require.Error(t, store.PutFile(context.Background(), "f2", "b.png", "image/png", data))

	require.NoError(t, store.DeleteFile(context.Background(), "f1"))
	require.NoError(t, store.DeleteFile(context.Background(), "f1"))
	assert.Equal(t, 0, store.Len())
}
