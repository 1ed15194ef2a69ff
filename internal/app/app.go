// Package app builds and holds the long-lived services shared by the commands.
package app

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/clock"
	"github.com/JakeFAU/campus-events-crawler/internal/config"
	"github.com/JakeFAU/campus-events-crawler/internal/id/uuid"
	"github.com/JakeFAU/campus-events-crawler/internal/media"
	"github.com/JakeFAU/campus-events-crawler/internal/metrics"
	"github.com/JakeFAU/campus-events-crawler/internal/normalize"
	"github.com/JakeFAU/campus-events-crawler/internal/pipeline"
	"github.com/JakeFAU/campus-events-crawler/internal/policy/ratelimit"
	"github.com/JakeFAU/campus-events-crawler/internal/politeness"
	"github.com/JakeFAU/campus-events-crawler/internal/publisher"
	memorypublisher "github.com/JakeFAU/campus-events-crawler/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/campus-events-crawler/internal/publisher/pubsub"
	"github.com/JakeFAU/campus-events-crawler/internal/scraper"
	eventstore "github.com/JakeFAU/campus-events-crawler/internal/storage"
	"github.com/JakeFAU/campus-events-crawler/internal/storage/appwrite"
	gcsstorage "github.com/JakeFAU/campus-events-crawler/internal/storage/gcs"
	"github.com/JakeFAU/campus-events-crawler/internal/storage/local"
	memorystorage "github.com/JakeFAU/campus-events-crawler/internal/storage/memory"
	pgstore "github.com/JakeFAU/campus-events-crawler/internal/storage/postgres"
)

// App contains the dependencies of one process.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	clock     clock.Clock
	events    eventstore.EventStore
	files     eventstore.FileStore
	images    *media.Resolver
	reports   *local.Dir
	publisher publisher.Publisher

	backend      *appwrite.Client
	pgStore      *pgstore.EventStore
	gcsClient    *storage.Client
	closeTopic   func() error
	browser      *scraper.Browser
	downloadPace *ratelimit.Limiter
}

// Build creates the stores, the image resolver, and the run publisher described by cfg.
// Callers must Close the returned App.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.RequireBackend(); err != nil {
		return nil, err
	}
	metrics.Init()

	app := &App{
		cfg:    cfg,
		logger: logger,
		clock:  clock.System{},
	}
	app.logger.Info("building application dependencies",
		zap.String("store", cfg.Store.Provider),
		zap.String("files", cfg.Files.Provider))

	if err := app.setupBackend(); err != nil {
		return nil, err
	}
	if err := app.setupEventStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.setupFileStore(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.setupMedia(); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.setupPublisher(ctx); err != nil {
		app.Close()
		return nil, err
	}

	reports, err := local.New(cfg.Pipeline.ReportsDir)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("reports dir init failed: %w", err)
	}
	app.reports = reports
	return app, nil
}

func (a *App) setupBackend() error {
	if a.cfg.Store.Provider != config.ProviderAppwrite && a.cfg.Files.Provider != config.ProviderAppwrite {
		return nil
	}
	client, err := appwrite.New(appwrite.Config{
		Endpoint:     a.cfg.Backend.Endpoint,
		ProjectID:    a.cfg.Backend.ProjectID,
		APIKey:       a.cfg.Backend.APIKey,
		DatabaseID:   a.cfg.Backend.DatabaseID,
		CollectionID: a.cfg.Backend.CollectionID,
		BucketID:     a.cfg.Backend.BucketID,
		Timeout:      config.Seconds(a.cfg.Backend.TimeoutSeconds),
	})
	if err != nil {
		return fmt.Errorf("backend client init failed: %w", err)
	}
	a.backend = client
	a.logger.Debug("backend client", zap.String("endpoint", a.cfg.Backend.Endpoint))
	return nil
}

func (a *App) setupEventStore(ctx context.Context) error {
	switch a.cfg.Store.Provider {
	case config.ProviderAppwrite:
		a.events = a.backend
	case config.ProviderPostgres:
		store, err := pgstore.NewEventStore(ctx, pgstore.Config{
			DSN:      a.cfg.Store.PostgresDSN,
			Table:    a.cfg.Store.PostgresTable,
			MaxConns: a.cfg.Store.MaxConns,
		}, uuid.New())
		if err != nil {
			return fmt.Errorf("postgres event store init failed: %w", err)
		}
		a.pgStore = store
		a.events = store
		a.logger.Info("postgres event store initialized", zap.String("table", a.cfg.Store.PostgresTable))
	default:
		a.logger.Warn("using in-memory event store, events are discarded on exit")
		a.events = memorystorage.NewEventStore()
	}
	return nil
}

func (a *App) setupFileStore(ctx context.Context) error {
	switch a.cfg.Files.Provider {
	case config.ProviderAppwrite:
		a.files = a.backend
	case config.ProviderGCS:
		client, err := storage.NewClient(ctx)
		if err != nil {
			return fmt.Errorf("gcs client init failed: %w", err)
		}
		a.gcsClient = client
		files, err := gcsstorage.New(client, gcsstorage.Config{
			Bucket:        a.cfg.Files.GCSBucket,
			Prefix:        a.cfg.Files.GCSPrefix,
			PublicBaseURL: a.cfg.Files.PublicBaseURL,
		})
		if err != nil {
			return fmt.Errorf("gcs file store init failed: %w", err)
		}
		a.files = files
		a.logger.Debug("gcs file store", zap.String("bucket", a.cfg.Files.GCSBucket))
	default:
		a.logger.Warn("using in-memory file store")
		a.files = memorystorage.NewFileStore()
	}
	return nil
}

func (a *App) setupMedia() error {
	a.downloadPace = ratelimit.New(ratelimit.Config{RPS: a.cfg.Media.DownloadsPerSecond, Burst: 1})
	resolver, err := media.NewResolver(media.Config{
		Timeout:   config.Seconds(a.cfg.Media.DownloadTimeoutSeconds),
		MaxBytes:  a.cfg.Media.MaxImageBytes,
		UserAgent: a.cfg.Scraper.UserAgent,
	}, nil, a.files, uuid.New(), a.downloadPace, a.logger.Named("media"))
	if err != nil {
		return fmt.Errorf("image resolver init failed: %w", err)
	}
	a.images = resolver
	return nil
}

func (a *App) setupPublisher(ctx context.Context) error {
	if a.cfg.Notify.ProjectID == "" || a.cfg.Notify.Topic == "" {
		a.logger.Debug("no Pub/Sub topic configured, using in-memory publisher")
		a.publisher = memorypublisher.New()
		return nil
	}
	pub, closeTopic, err := gcppublisher.Open(ctx, a.cfg.Notify.ProjectID, a.cfg.Notify.Topic)
	if err != nil {
		return fmt.Errorf("pubsub publisher init failed: %w", err)
	}
	a.publisher = pub
	a.closeTopic = closeTopic
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.Notify.ProjectID),
		zap.String("topic", a.cfg.Notify.Topic))
	return nil
}

// Events exposes the configured event store.
func (a *App) Events() eventstore.EventStore {
	return a.events
}

// Reports is the directory run reports are written to.
func (a *App) Reports() *local.Dir {
	return a.reports
}

// Pipeline wires the three scrapers, the normalizer, and the run outputs into an orchestrator.
// The headless browser it starts is released by Close.
func (a *App) Pipeline() (*pipeline.Orchestrator, error) {
	if a.browser == nil {
		browser, err := scraper.NewBrowser(scraper.BrowserConfig{
			UserAgent:         a.cfg.Scraper.UserAgent,
			NavigationTimeout: config.Seconds(a.cfg.Scraper.NavTimeoutSeconds),
			WaitTimeout:       config.Seconds(a.cfg.Scraper.WaitTimeoutSeconds),
			ScrollPasses:      a.cfg.Scraper.ScrollPasses,
			Retries:           a.cfg.Scraper.NavRetries,
			MaxParallel:       a.cfg.Scraper.MaxParallelTabs,
		}, a.logger)
		if err != nil {
			return nil, fmt.Errorf("browser init failed: %w", err)
		}
		a.browser = browser
	}

	pause := politeness.Timer{}
	delay := a.cfg.RequestDelay()
	fetcher := scraper.NewCollyFetcher(scraper.HTTPConfig{
		UserAgent:     a.cfg.Scraper.UserAgent,
		RespectRobots: a.cfg.Scraper.RespectRobots,
		Timeout:       config.Seconds(a.cfg.Scraper.HTTPTimeoutSeconds),
	}, ratelimit.New(ratelimit.Config{RPS: a.cfg.Scraper.RequestsPerSecond, Burst: 1}))

	scrapers := []scraper.Scraper{
		scraper.NewDevfolio(scraper.Options{BaseURL: a.cfg.Scraper.DevfolioURL, Delay: delay},
			a.browser, pause, a.clock, a.logger),
		scraper.NewUnstop(scraper.Options{BaseURL: a.cfg.Scraper.UnstopURL, Delay: delay},
			a.browser, pause, a.clock, a.logger),
		scraper.NewEventbrite(scraper.Options{BaseURL: a.cfg.Scraper.EventbriteURL, Delay: delay},
			fetcher, pause, a.logger),
	}

	normalizer := normalize.New(normalize.Config{
		DescriptionMax:   a.cfg.Pipeline.MaxDescriptionLength,
		ExistingPageSize: a.cfg.Pipeline.ExistingPageSize,
	}, a.events, a.images, a.clock, a.logger)

	opts := []pipeline.Option{
		pipeline.WithReports(a.reports),
		pipeline.WithPublisher(a.publisher),
		pipeline.WithMetricsPush(a.cfg.Metrics.PushgatewayURL, a.cfg.Metrics.Job),
	}
	if a.cfg.Pipeline.ArtifactsDir != "" {
		artifacts, err := local.New(a.cfg.Pipeline.ArtifactsDir)
		if err != nil {
			return nil, fmt.Errorf("artifacts dir init failed: %w", err)
		}
		opts = append(opts, pipeline.WithArtifacts(artifacts, a.cfg.Pipeline.KeepArtifacts))
	}
	return pipeline.New(scrapers, normalizer, a.clock, a.logger, opts...), nil
}

// Repairer wires the image repair pass. It fails with config.ErrMissingConfig when the photo
// key is absent.
func (a *App) Repairer(httpClient *http.Client) (*media.Repairer, error) {
	if err := a.cfg.RequirePhotos(); err != nil {
		return nil, err
	}
	search, err := media.NewPhotoSearch(media.PhotoSearchConfig{
		Endpoint:  a.cfg.Photos.Endpoint,
		AccessKey: a.cfg.Photos.APIKey,
		Timeout:   config.Seconds(a.cfg.Photos.TimeoutSeconds),
	}, httpClient, a.logger.Named("photos"))
	if err != nil {
		return nil, fmt.Errorf("photo search init failed: %w", err)
	}
	return media.NewRepairer(a.events, search, a.images, politeness.Timer{}, a.logger.Named("repair")), nil
}

// Close releases everything Build and Pipeline opened.
func (a *App) Close() {
	if a.browser != nil {
		a.browser.Close()
	}
	if a.closeTopic != nil {
		if err := a.closeTopic(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	a.logger.Debug("shutdown complete")
}
