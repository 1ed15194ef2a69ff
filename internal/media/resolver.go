// Package media resolves a representative image for each event: it re-hosts the source image
// when one is usable, falls back to category placeholders otherwise, and repairs stored events
// through a photo-search API.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/storage"
)

const (
	// DefaultMaxBytes is the largest image the resolver will accept.
	DefaultMaxBytes  = 5 << 20
	defaultTimeout   = 15 * time.Second
	defaultUserAgent = "campus-events-crawler/1.0"
	defaultImageName = "image"
)

var (
	// ErrNotImage is returned when a download is not served with an image content type.
	ErrNotImage = errors.New("content is not an image")
	// ErrTooLarge is returned when a download exceeds the size limit.
	ErrTooLarge = errors.New("image exceeds size limit")
	// ErrNoImage is returned when there is no URL to download.
	ErrNoImage = errors.New("no image url")
)

// HTTPStatusError is a non-2xx download response.
type HTTPStatusError struct {
	StatusCode int
	URL        string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d", e.URL, e.StatusCode)
}

// IDGenerator creates file ids.
type IDGenerator interface {
	NewID() (string, error)
}

// Pacer spaces out requests to the same host.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
}

// Config tunes downloads.
type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
}

// Result is the outcome of resolving one image.
type Result struct {
	URL      string
	FileID   string
	Uploaded bool
}

// Resolver downloads, validates, and re-hosts images.
type Resolver struct {
	cfg    Config
	http   *http.Client
	files  storage.FileStore
	ids    IDGenerator
	pacer  Pacer
	logger *zap.Logger
}

// NewResolver wires a Resolver. pacer and httpClient may be nil.
func NewResolver(cfg Config, httpClient *http.Client, files storage.FileStore, ids IDGenerator, pacer Pacer, logger *zap.Logger) (*Resolver, error) {
	if files == nil {
		return nil, fmt.Errorf("file store is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		cfg:    cfg,
		http:   httpClient,
		files:  files,
		ids:    ids,
		pacer:  pacer,
		logger: logger,
	}, nil
}

// Resolve re-hosts imageURL, or returns the category placeholder when that is not possible.
// It never fails; the Uploaded flag distinguishes the two outcomes.
func (r *Resolver) Resolve(ctx context.Context, imageURL, category string) Result {
	result, err := r.Rehost(ctx, imageURL)
	if err != nil {
		if !errors.Is(err, ErrNoImage) {
			r.logger.Debug("image fallback", zap.String("url", imageURL), zap.Error(err))
		}
		return Result{URL: FallbackImage(category)}
	}
	return result
}

// Rehost downloads imageURL and uploads it under a new file id.
func (r *Resolver) Rehost(ctx context.Context, imageURL string) (Result, error) {
	imageURL = strings.TrimSpace(imageURL)
	if imageURL == "" || !strings.HasPrefix(imageURL, "http") {
		return Result{}, ErrNoImage
	}
	data, contentType, err := r.download(ctx, imageURL)
	if err != nil {
		return Result{}, err
	}
	fileID, err := r.ids.NewID()
	if err != nil {
		return Result{}, err
	}
	uploadCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()
	if err := r.files.PutFile(uploadCtx, fileID, fileName(imageURL, fileID, contentType), contentType, data); err != nil {
		return Result{}, fmt.Errorf("upload image: %w", err)
	}
	return Result{URL: r.files.PreviewURL(fileID), FileID: fileID, Uploaded: true}, nil
}

// Discard deletes a file uploaded by Rehost whose event was never stored.
func (r *Resolver) Discard(ctx context.Context, fileID string) error {
	if fileID == "" {
		return nil
	}
	if err := r.files.DeleteFile(ctx, fileID); err != nil {
		return fmt.Errorf("discard image %s: %w", fileID, err)
	}
	return nil
}

func (r *Resolver) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	if r.pacer != nil {
		if err := r.pacer.Wait(ctx, imageURL); err != nil {
			return nil, "", err
		}
	}
	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build image request: %w", err)
	}
	req.Header.Set("User-Agent", r.cfg.UserAgent)
	req.Header.Set("Accept", "image/*")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download image: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &HTTPStatusError{StatusCode: resp.StatusCode, URL: imageURL}
	}
	contentType := mediaType(resp.Header.Get("Content-Type"))
	if !strings.HasPrefix(contentType, "image/") {
		return nil, "", fmt.Errorf("%w: %q", ErrNotImage, contentType)
	}
	if resp.ContentLength > r.cfg.MaxBytes {
		return nil, "", fmt.Errorf("%w: declared %d bytes", ErrTooLarge, resp.ContentLength)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, r.cfg.MaxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > r.cfg.MaxBytes {
		return nil, "", fmt.Errorf("%w: more than %d bytes", ErrTooLarge, r.cfg.MaxBytes)
	}
	return data, contentType, nil
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(header))
	}
	return mt
}

func fileName(imageURL, fileID, contentType string) string {
	if u, err := url.Parse(imageURL); err == nil {
		base := path.Base(u.Path)
		if base != "." && base != "/" && path.Ext(base) != "" {
			return base
		}
	}
	ext := ".jpg"
	switch contentType {
	case "image/png":
		ext = ".png"
	case "image/gif":
		ext = ".gif"
	case "image/webp":
		ext = ".webp"
	case "image/svg+xml":
		ext = ".svg"
	}
	if fileID == "" {
		fileID = defaultImageName
	}
	return fileID + ext
}
