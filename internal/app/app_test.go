package app_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/campus-events-crawler/internal/app"
	"github.com/JakeFAU/campus-events-crawler/internal/config"
	memorystorage "github.com/JakeFAU/campus-events-crawler/internal/storage/memory"
)

func memoryConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	return config.Config{
		Store: config.StoreConfig{Provider: config.ProviderMemory},
		Files: config.FilesConfig{Provider: config.ProviderMemory},
		Pipeline: config.PipelineConfig{
			MaxDescriptionLength: 1000,
			ExistingPageSize:     100,
			ArtifactsDir:         filepath.Join(dir, "raw"),
			ReportsDir:           filepath.Join(dir, "reports"),
		},
		Media:  config.MediaConfig{MaxImageBytes: 1024},
		Server: config.ServerConfig{Port: 8080},
	}
}

func TestBuildWithMemoryProviders(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	a, err := app.Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	assert.IsType(t, &memorystorage.EventStore{}, a.Events())
	require.NotNil(t, a.Reports())
	assert.Equal(t, cfg.Pipeline.ReportsDir, a.Reports().Path())

	orchestrator, err := a.Pipeline()
	require.NoError(t, err)
	assert.NotNil(t, orchestrator)
}

func TestBuildRequiresBackendSettings(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Store.Provider = config.ProviderAppwrite
	cfg.Backend.Endpoint = "https://backend.example.com/v1"

	_, err := app.Build(context.Background(), cfg, nil)
	require.ErrorIs(t, err, config.ErrMissingConfig)
	assert.Contains(t, err.Error(), "backend.api_key")
	assert.NotContains(t, err.Error(), "backend.endpoint")
	assert.Contains(t, err.Error(), "photos.api_key")
}

func TestBuildWithBackendProvider(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Store.Provider = config.ProviderAppwrite
	cfg.Files.Provider = config.ProviderAppwrite
	cfg.Backend = config.BackendConfig{
		Endpoint:     "https://backend.example.com/v1",
		ProjectID:    "campus",
		APIKey:       "secret",
		DatabaseID:   "db",
		CollectionID: "events",
		BucketID:     "images",
	}
	cfg.Photos.APIKey = "photo-key"

	a, err := app.Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	assert.NotNil(t, a.Events())
}

func TestRepairerRequiresPhotoKey(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	a, err := app.Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	_, err = a.Repairer(nil)
	require.ErrorIs(t, err, config.ErrMissingConfig)
	assert.Contains(t, err.Error(), "photos.api_key")
}

func TestRepairerWithPhotoKey(t *testing.T) {
	t.Parallel()

	cfg := memoryConfig(t)
	cfg.Photos.APIKey = "photo-key"
	a, err := app.Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	repairer, err := a.Repairer(nil)
	require.NoError(t, err)
	assert.NotNil(t, repairer)
}
