package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Pipeline.MaxDescriptionLength != 1000 || cfg.Pipeline.ExistingPageSize != 100 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Pipeline)
	}
	if cfg.Media.MaxImageBytes != 5*1024*1024 {
		t.Fatalf("expected 5MB image cap, got %d", cfg.Media.MaxImageBytes)
	}
	if cfg.Store.Provider != ProviderAppwrite || cfg.Files.Provider != ProviderAppwrite {
		t.Fatalf("expected appwrite providers, got %q/%q", cfg.Store.Provider, cfg.Files.Provider)
	}
	if got := cfg.RequestDelay(); got != 2*time.Second {
		t.Fatalf("expected 2s request delay, got %v", got)
	}
	if got := Seconds(cfg.Scraper.NavTimeoutSeconds); got != time.Minute {
		t.Fatalf("expected 60s navigation timeout, got %v", got)
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
backend:
  endpoint: https://backend.example.com/v1
  project_id: campus
  api_key: secret
  database_id: db
  collection_id: events
  bucket_id: images
scraper:
  request_delay_ms: 500
  nav_retries: 3
pipeline:
  max_description_length: 400
  keep_artifacts: true
store:
  provider: postgres
  postgres_dsn: postgres://localhost/events
files:
  provider: gcs
  gcs_bucket: event-images
schedule:
  cron: "*/30 * * * *"
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Backend.APIKey != "secret" || cfg.Backend.BucketID != "images" {
		t.Fatalf("expected backend overrides to apply: %+v", cfg.Backend)
	}
	if cfg.Scraper.NavRetries != 3 || cfg.RequestDelay() != 500*time.Millisecond {
		t.Fatalf("expected scraper overrides to apply: %+v", cfg.Scraper)
	}
	if cfg.Pipeline.MaxDescriptionLength != 400 || !cfg.Pipeline.KeepArtifacts {
		t.Fatalf("expected pipeline overrides to apply: %+v", cfg.Pipeline)
	}
	if cfg.Schedule.Cron != "*/30 * * * *" {
		t.Fatalf("expected cron override, got %q", cfg.Schedule.Cron)
	}
	if err := cfg.RequireBackend(); err != nil {
		t.Fatalf("RequireBackend() error = %v", err)
	}
}

// Not parallel: t.Setenv.
func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("EVENTS_BACKEND_API_KEY", "from-env")
	t.Setenv("EVENTS_PHOTOS_API_KEY", "photo-key")
	t.Setenv("EVENTS_SCRAPER_NAV_RETRIES", "2")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backend.APIKey != "from-env" {
		t.Fatalf("expected api key from env, got %q", cfg.Backend.APIKey)
	}
	if cfg.Photos.APIKey != "photo-key" {
		t.Fatalf("expected photos key from env, got %q", cfg.Photos.APIKey)
	}
	if cfg.Scraper.NavRetries != 2 {
		t.Fatalf("expected nav retries 2, got %d", cfg.Scraper.NavRetries)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Pipeline: PipelineConfig{MaxDescriptionLength: 1000, ExistingPageSize: 100},
		Media:    MediaConfig{MaxImageBytes: 1024},
		Store:    StoreConfig{Provider: ProviderMemory},
		Files:    FilesConfig{Provider: ProviderMemory},
		Server:   ServerConfig{Port: 8080},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "unknown store provider",
			cfg: func() Config {
				c := base
				c.Store.Provider = "mongo"
				return c
			}(),
			want: "store.provider",
		},
		{
			name: "unknown files provider",
			cfg: func() Config {
				c := base
				c.Files.Provider = "s3"
				return c
			}(),
			want: "files.provider",
		},
		{
			name: "zero description length",
			cfg: func() Config {
				c := base
				c.Pipeline.MaxDescriptionLength = 0
				return c
			}(),
			want: "pipeline.max_description_length",
		},
		{
			name: "zero page size",
			cfg: func() Config {
				c := base
				c.Pipeline.ExistingPageSize = 0
				return c
			}(),
			want: "pipeline.existing_page_size",
		},
		{
			name: "negative retries",
			cfg: func() Config {
				c := base
				c.Scraper.NavRetries = -1
				return c
			}(),
			want: "scraper.nav_retries",
		},
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestRequireCredentials(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		photos  bool
		missing []string
	}{
		{
			name:    "appwrite without anything",
			cfg:     Config{Store: StoreConfig{Provider: ProviderAppwrite}, Files: FilesConfig{Provider: ProviderAppwrite}},
			missing: []string{"backend.endpoint", "backend.project_id", "backend.api_key", "backend.database_id", "backend.collection_id", "backend.bucket_id", "photos.api_key"},
		},
		{
			name: "appwrite complete",
			cfg: Config{
				Store: StoreConfig{Provider: ProviderAppwrite},
				Files: FilesConfig{Provider: ProviderMemory},
				Backend: BackendConfig{
					Endpoint: "https://backend.example.com/v1", ProjectID: "p", APIKey: "k",
					DatabaseID: "db", CollectionID: "events", BucketID: "images",
				},
				Photos: PhotosConfig{APIKey: "photo-key"},
			},
		},
		{
			name:    "repair on appwrite lists photos key once",
			cfg:     Config{Store: StoreConfig{Provider: ProviderAppwrite}, Files: FilesConfig{Provider: ProviderAppwrite}},
			photos:  true,
			missing: []string{"backend.endpoint", "backend.project_id", "backend.api_key", "backend.database_id", "backend.collection_id", "backend.bucket_id", "photos.api_key"},
		},
		{
			name:    "postgres and gcs",
			cfg:     Config{Store: StoreConfig{Provider: ProviderPostgres}, Files: FilesConfig{Provider: ProviderGCS}},
			missing: []string{"store.postgres_dsn", "files.gcs_bucket"},
		},
		{
			name: "memory needs nothing",
			cfg:  Config{Store: StoreConfig{Provider: ProviderMemory}, Files: FilesConfig{Provider: ProviderMemory}},
		},
		{
			name:    "repair needs photos key",
			cfg:     Config{Store: StoreConfig{Provider: ProviderMemory}, Files: FilesConfig{Provider: ProviderMemory}},
			photos:  true,
			missing: []string{"photos.api_key"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.RequireBackend()
			if tt.photos {
				err = tt.cfg.RequirePhotos()
			}
			if len(tt.missing) == 0 {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, ErrMissingConfig) {
				t.Fatalf("expected ErrMissingConfig, got %v", err)
			}
			want := ErrMissingConfig.Error() + ": " + strings.Join(tt.missing, ", ")
			if err.Error() != want {
				t.Fatalf("error = %q, want %q", err.Error(), want)
			}
		})
	}
}
