// Package gcs provides a FileStore backed by Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"cloud.google.com/go/storage"

	fstore "github.com/JakeFAU/campus-events-crawler/internal/storage"
)

const defaultPublicBase = "https://storage.googleapis.com"

var _ fstore.FileStore = (*FileStore)(nil)

// Config captures the bucket layout for re-hosted images.
type Config struct {
	Bucket string
	Prefix string
	// PublicBaseURL serves objects publicly; defaults to storage.googleapis.com.
	PublicBaseURL string
}

// FileStore writes images to a configured GCS bucket.
type FileStore struct {
	client     *storage.Client
	bucket     string
	prefix     string
	publicBase string
}

// New creates a GCS-backed file store.
func New(client *storage.Client, cfg Config) (*FileStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		base = defaultPublicBase
	}
	return &FileStore{
		client:     client,
		bucket:     cfg.Bucket,
		prefix:     strings.Trim(cfg.Prefix, "/"),
		publicBase: base,
	}, nil
}

// PutFile uploads data as the object for fileID.
func (s *FileStore) PutFile(ctx context.Context, fileID, name, contentType string, data []byte) error {
	if strings.TrimSpace(fileID) == "" {
		return fmt.Errorf("file id is required")
	}
	writer := s.client.Bucket(s.bucket).Object(s.objectName(fileID)).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if name != "" {
		writer.Metadata = map[string]string{"original-name": name}
	}
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close writer: %w", err)
	}
	return nil
}

// DeleteFile removes the object for fileID.
func (s *FileStore) DeleteFile(ctx context.Context, fileID string) error {
	err := s.client.Bucket(s.bucket).Object(s.objectName(fileID)).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object: %w", err)
	}
	return nil
}

// PreviewURL is the public HTTPS URL of the object for fileID.
func (s *FileStore) PreviewURL(fileID string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicBase, url.PathEscape(s.bucket), s.objectName(fileID))
}

func (s *FileStore) objectName(fileID string) string {
	if s.prefix == "" {
		return fileID
	}
	return path.Join(s.prefix, fileID)
}
