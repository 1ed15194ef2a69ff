package gcs

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

func newTestFileStore(t *testing.T, handler http.Handler) *FileStore {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := storage.NewClient(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store, err := New(client, Config{Bucket: "event-media", Prefix: "posters/"})
	require.NoError(t, err)
	return store
}

func TestNewRequiresClientAndBucket(t *testing.T) {
	t.Parallel()

	_, err := New(nil, Config{Bucket: "b"})
	require.Error(t, err)

	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication())
	require.NoError(t, err)
	defer client.Close()
	_, err = New(client, Config{})
	require.Error(t, err)
}

func TestPutFileUploadsObject(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, fmt.Sprintf("/upload/storage/v1/b/%s/o", "event-media"))
		assert.Equal(t, "posters/file-1", r.URL.Query().Get("name"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "jpeg-bytes")
		assert.Contains(t, string(body), "image/jpeg")

		fmt.Fprintln(w, `{ "name": "posters/file-1", "bucket": "event-media" }`)
	}))

	err := store.PutFile(context.Background(), "file-1", "poster.jpg", "image/jpeg", []byte("jpeg-bytes"))
	require.NoError(t, err)
}

func TestPutFileServerError(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	err := store.PutFile(context.Background(), "file-1", "", "image/png", []byte("x"))
	require.Error(t, err)
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Contains(t, r.URL.Path, "event-media")
		assert.Contains(t, r.URL.Path, "file-1")
		w.WriteHeader(http.StatusNoContent)
	}))

	require.NoError(t, store.DeleteFile(context.Background(), "file-1"))
}

func TestDeleteFileMissingIsNotAnError(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	require.NoError(t, store.DeleteFile(context.Background(), "gone"))
}

func TestPutFileRequiresID(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t, http.NotFoundHandler())
	require.Error(t, store.PutFile(context.Background(), " ", "", "", nil))
}

func TestPreviewURL(t *testing.T) {
	t.Parallel()

	store := newTestFileStore(t, http.NotFoundHandler())
	assert.Equal(t, "https://storage.googleapis.com/event-media/posters/file-1", store.PreviewURL("file-1"))
}
