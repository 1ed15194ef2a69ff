// Package appwrite adapts the hosted backend SDK to the event and file stores.
package appwrite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	sdk "github.com/appwrite/sdk-for-go/appwrite"
	"github.com/appwrite/sdk-for-go/databases"
	"github.com/appwrite/sdk-for-go/file"
	"github.com/appwrite/sdk-for-go/id"
	"github.com/appwrite/sdk-for-go/query"
	sdkstorage "github.com/appwrite/sdk-for-go/storage"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/storage"
)

const defaultTimeout = 20 * time.Second

var (
	_ storage.EventStore = (*Client)(nil)
	_ storage.FileStore  = (*Client)(nil)
)

// Config identifies the backend project and the collections the pipeline writes to.
type Config struct {
	Endpoint     string
	ProjectID    string
	APIKey       string
	DatabaseID   string
	CollectionID string
	BucketID     string
	Timeout      time.Duration
}

// APIError is a non-2xx response from the backend.
type APIError struct {
	StatusCode int
	Type       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("appwrite %d %s: %s", e.StatusCode, e.Type, e.Message)
	}
	return fmt.Sprintf("appwrite %d: %s", e.StatusCode, e.Message)
}

// statusCoder is satisfied by the SDK's error type.
type statusCoder interface {
	GetStatusCode() int
}

// Client implements storage.EventStore and storage.FileStore on top of the SDK services.
// It is built once at startup and shared by every component that persists data.
type Client struct {
	cfg       Config
	base      string
	timeout   time.Duration
	databases *databases.Databases
	files     *sdkstorage.Storage
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	var missing []string
	for _, field := range []struct{ name, value string }{
		{"endpoint", cfg.Endpoint},
		{"project id", cfg.ProjectID},
		{"api key", cfg.APIKey},
		{"database id", cfg.DatabaseID},
		{"collection id", cfg.CollectionID},
		{"bucket id", cfg.BucketID},
	} {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("appwrite config missing: %s", strings.Join(missing, ", "))
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	base := strings.TrimRight(cfg.Endpoint, "/")
	clt := sdk.NewClient(
		sdk.WithEndpoint(base),
		sdk.WithProject(cfg.ProjectID),
		sdk.WithKey(cfg.APIKey),
	)
	return &Client{
		cfg:       cfg,
		base:      base,
		timeout:   timeout,
		databases: sdk.NewDatabases(clt),
		files:     sdk.NewStorage(clt),
	}, nil
}

type document struct {
	ID           string   `json:"$id"`
	Title        string   `json:"title"`
	EventType    string   `json:"eventType"`
	EventDate    *string  `json:"eventDate"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	PosterFileID *string  `json:"posterFileId"`
	Category     []string `json:"category"`
}

type documentList struct {
	Total     int        `json:"total"`
	Documents []document `json:"documents"`
}

// RecentRefs lists the newest events by event date.
func (c *Client) RecentRefs(ctx context.Context, limit int) ([]event.ExistingEventRef, error) {
	docs, err := c.listDocuments(ctx, 0, limit)
	if err != nil {
		return nil, err
	}
	refs := make([]event.ExistingEventRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, event.ExistingEventRef{Title: d.Title, EventDate: parseTimestamp(d.EventDate)})
	}
	return refs, nil
}

// ListEvents pages through events, newest first.
func (c *Client) ListEvents(ctx context.Context, offset, limit int) ([]event.StoredEvent, error) {
	docs, err := c.listDocuments(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]event.StoredEvent, 0, len(docs))
	for _, d := range docs {
		eventType := d.EventType
		if eventType == "" && len(d.Category) > 0 {
			eventType = d.Category[0]
		}
		stored := event.StoredEvent{
			ID:           d.ID,
			Title:        d.Title,
			EventType:    eventType,
			EventDate:    parseTimestamp(d.EventDate),
			ThumbnailURL: d.ThumbnailURL,
		}
		if d.PosterFileID != nil {
			stored.PosterFileID = *d.PosterFileID
		}
		out = append(out, stored)
	}
	return out, nil
}

func (c *Client) listDocuments(ctx context.Context, offset, limit int) ([]document, error) {
	queries := []string{query.OrderDesc("eventDate"), query.Limit(limit)}
	if offset > 0 {
		queries = append(queries, query.Offset(offset))
	}
	var list documentList
	err := c.call(ctx, func() error {
		resp, err := c.databases.ListDocuments(c.cfg.DatabaseID, c.cfg.CollectionID,
			c.databases.WithListDocumentsQueries(queries))
		if err != nil {
			return err
		}
		return resp.Decode(&list)
	})
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return list.Documents, nil
}

// CreateEvent writes ev as a new document with a generated id.
func (c *Client) CreateEvent(ctx context.Context, ev event.NormalizedEvent) (string, error) {
	var docID string
	err := c.call(ctx, func() error {
		created, err := c.databases.CreateDocument(c.cfg.DatabaseID, c.cfg.CollectionID, id.Unique(), ev)
		if err != nil {
			return err
		}
		docID = created.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("create document %q: %w", ev.Title, err)
	}
	return docID, nil
}

// UpdateEventImage patches the thumbnail fields of a document.
func (c *Client) UpdateEventImage(ctx context.Context, docID, thumbnailURL, posterFileID string) error {
	data := map[string]any{"thumbnailUrl": thumbnailURL}
	if posterFileID != "" {
		data["posterFileId"] = posterFileID
	}
	err := c.call(ctx, func() error {
		_, err := c.databases.UpdateDocument(c.cfg.DatabaseID, c.cfg.CollectionID, docID,
			c.databases.WithUpdateDocumentData(data))
		return err
	})
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("update document %s: %w", docID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update document %s: %w", docID, err)
	}
	return nil
}

// PutFile uploads data into the media bucket. The SDK uploads from disk, so the
// bytes are staged in a temporary file first. The backend sniffs the content type.
func (c *Client) PutFile(ctx context.Context, fileID, name, _ string, data []byte) error {
	dir, err := os.MkdirTemp("", "appwrite-upload-*")
	if err != nil {
		return fmt.Errorf("stage file %s: %w", fileID, err)
	}
	defer os.RemoveAll(dir) //nolint:errcheck // best-effort temp cleanup

	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("stage file %s: %w", fileID, err)
	}
	err = c.call(ctx, func() error {
		_, err := c.files.CreateFile(c.cfg.BucketID, fileID, file.NewInputFile(path, name))
		return err
	})
	if err != nil {
		return fmt.Errorf("upload file %s: %w", fileID, err)
	}
	return nil
}

// DeleteFile removes fileID from the media bucket.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	err := c.call(ctx, func() error {
		_, err := c.files.DeleteFile(c.cfg.BucketID, fileID)
		return err
	})
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}

// PreviewURL is the served preview of a bucket file.
func (c *Client) PreviewURL(fileID string) string {
	return fmt.Sprintf("%s/storage/buckets/%s/files/%s/preview?project=%s",
		c.base,
		url.PathEscape(c.cfg.BucketID),
		url.PathEscape(fileID),
		url.QueryEscape(c.cfg.ProjectID),
	)
}

// call runs a blocking SDK request under ctx and the client timeout.
// The SDK takes no context, so an abandoned request finishes in the background.
func (c *Client) call(ctx context.Context, fn func() error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := ctx.Err(); err != nil {
		return err
	}
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return translateError(err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func translateError(err error) error {
	var coded statusCoder
	if err == nil || !errors.As(err, &coded) {
		return err
	}
	apiErr := &APIError{StatusCode: coded.GetStatusCode(), Message: strings.TrimSpace(err.Error())}
	var body struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	}
	if json.Unmarshal([]byte(apiErr.Message), &body) == nil && body.Message != "" {
		apiErr.Message = body.Message
		apiErr.Type = body.Type
	}
	return apiErr
}

func parseTimestamp(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, *s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
