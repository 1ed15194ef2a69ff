// Package config loads and validates pipeline configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. EVENTS_BACKEND_API_KEY.
const EnvPrefix = "EVENTS"

// ErrMissingConfig is returned when required settings are absent.
var ErrMissingConfig = errors.New("missing required configuration")

// Storage providers.
const (
	ProviderAppwrite = "appwrite"
	ProviderPostgres = "postgres"
	ProviderGCS      = "gcs"
	ProviderMemory   = "memory"
)

// Config captures all pipeline configuration knobs loaded via Viper.
type Config struct {
	Backend  BackendConfig  `mapstructure:"backend"`
	Photos   PhotosConfig   `mapstructure:"photos"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Media    MediaConfig    `mapstructure:"media"`
	Store    StoreConfig    `mapstructure:"store"`
	Files    FilesConfig    `mapstructure:"files"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Server   ServerConfig   `mapstructure:"server"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// BackendConfig addresses the hosted document and file backend.
type BackendConfig struct {
	Endpoint       string `mapstructure:"endpoint"`
	ProjectID      string `mapstructure:"project_id"`
	APIKey         string `mapstructure:"api_key"`
	DatabaseID     string `mapstructure:"database_id"`
	CollectionID   string `mapstructure:"collection_id"`
	BucketID       string `mapstructure:"bucket_id"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// PhotosConfig configures the photo-search API used by the repair pass.
type PhotosConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Endpoint       string `mapstructure:"endpoint"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// ScraperConfig governs the three sources.
type ScraperConfig struct {
	UserAgent          string  `mapstructure:"user_agent"`
	DevfolioURL        string  `mapstructure:"devfolio_url"`
	UnstopURL          string  `mapstructure:"unstop_url"`
	EventbriteURL      string  `mapstructure:"eventbrite_url"`
	NavTimeoutSeconds  int     `mapstructure:"nav_timeout_seconds"`
	WaitTimeoutSeconds int     `mapstructure:"wait_timeout_seconds"`
	NavRetries         int     `mapstructure:"nav_retries"`
	ScrollPasses       int     `mapstructure:"scroll_passes"`
	MaxParallelTabs    int     `mapstructure:"max_parallel_tabs"`
	HTTPTimeoutSeconds int     `mapstructure:"http_timeout_seconds"`
	RequestDelayMs     int     `mapstructure:"request_delay_ms"`
	RequestsPerSecond  float64 `mapstructure:"requests_per_second"`
	RespectRobots      bool    `mapstructure:"respect_robots"`
}

// PipelineConfig tunes normalization and run artifacts.
type PipelineConfig struct {
	MaxDescriptionLength int    `mapstructure:"max_description_length"`
	ExistingPageSize     int    `mapstructure:"existing_page_size"`
	ArtifactsDir         string `mapstructure:"artifacts_dir"`
	KeepArtifacts        bool   `mapstructure:"keep_artifacts"`
	ReportsDir           string `mapstructure:"reports_dir"`
}

// MediaConfig bounds image downloads.
type MediaConfig struct {
	DownloadTimeoutSeconds int     `mapstructure:"download_timeout_seconds"`
	MaxImageBytes          int64   `mapstructure:"max_image_bytes"`
	DownloadsPerSecond     float64 `mapstructure:"downloads_per_second"`
}

// StoreConfig selects the event store.
type StoreConfig struct {
	Provider      string `mapstructure:"provider"`
	PostgresDSN   string `mapstructure:"postgres_dsn"`
	PostgresTable string `mapstructure:"postgres_table"`
	MaxConns      int32  `mapstructure:"max_conns"`
}

// FilesConfig selects where re-hosted images go.
type FilesConfig struct {
	Provider      string `mapstructure:"provider"`
	GCSBucket     string `mapstructure:"gcs_bucket"`
	GCSPrefix     string `mapstructure:"gcs_prefix"`
	PublicBaseURL string `mapstructure:"public_base_url"`
}

// MetricsConfig points at an optional Prometheus push gateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// NotifyConfig holds the optional Pub/Sub topic for run summaries.
type NotifyConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// ServerConfig controls the HTTP listener of the serve command.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// ScheduleConfig drives the serve command's cron trigger.
type ScheduleConfig struct {
	Cron     string `mapstructure:"cron"`
	Timezone string `mapstructure:"timezone"`
}

// Load reads an optional .env file, then builds a Config from defaults, the optional config
// file at path, and EVENTS_* environment variables. Only structural limits are validated here;
// callers check the credentials they need with RequireBackend and RequirePhotos.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Keys without a real default are registered empty so environment overrides are seen.
	for _, key := range []string{
		"backend.endpoint", "backend.project_id", "backend.api_key",
		"backend.database_id", "backend.collection_id", "backend.bucket_id",
		"photos.api_key", "store.postgres_dsn", "files.gcs_bucket", "files.gcs_prefix",
		"files.public_base_url", "metrics.pushgateway_url", "notify.project_id", "notify.topic",
		"scraper.devfolio_url", "scraper.unstop_url", "scraper.eventbrite_url", "logging.level",
	} {
		v.SetDefault(key, "")
	}
	v.SetDefault("backend.timeout_seconds", 30)
	v.SetDefault("photos.endpoint", "https://api.unsplash.com")
	v.SetDefault("photos.timeout_seconds", 15)
	v.SetDefault("scraper.user_agent",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36")
	v.SetDefault("scraper.nav_timeout_seconds", 60)
	v.SetDefault("scraper.wait_timeout_seconds", 15)
	v.SetDefault("scraper.nav_retries", 1)
	v.SetDefault("scraper.scroll_passes", 3)
	v.SetDefault("scraper.max_parallel_tabs", 2)
	v.SetDefault("scraper.http_timeout_seconds", 30)
	v.SetDefault("scraper.request_delay_ms", 2000)
	v.SetDefault("scraper.requests_per_second", 1)
	v.SetDefault("scraper.respect_robots", false)
	v.SetDefault("pipeline.max_description_length", 1000)
	v.SetDefault("pipeline.existing_page_size", 100)
	v.SetDefault("pipeline.artifacts_dir", "data/raw")
	v.SetDefault("pipeline.keep_artifacts", false)
	v.SetDefault("pipeline.reports_dir", "reports")
	v.SetDefault("media.download_timeout_seconds", 15)
	v.SetDefault("media.max_image_bytes", 5*1024*1024)
	v.SetDefault("media.downloads_per_second", 2)
	v.SetDefault("store.provider", ProviderAppwrite)
	v.SetDefault("store.postgres_table", "events")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("files.provider", ProviderAppwrite)
	v.SetDefault("metrics.job", "events-crawler")
	v.SetDefault("logging.development", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("schedule.cron", "0 */6 * * *")
	v.SetDefault("schedule.timezone", "Asia/Kolkata")
}

// Validate enforces provider choices and reasonable limits.
func (c Config) Validate() error {
	switch c.Store.Provider {
	case ProviderAppwrite, ProviderPostgres, ProviderMemory:
	default:
		return fmt.Errorf("store.provider %q is not one of appwrite, postgres, memory", c.Store.Provider)
	}
	switch c.Files.Provider {
	case ProviderAppwrite, ProviderGCS, ProviderMemory:
	default:
		return fmt.Errorf("files.provider %q is not one of appwrite, gcs, memory", c.Files.Provider)
	}
	if c.Pipeline.MaxDescriptionLength <= 0 {
		return fmt.Errorf("pipeline.max_description_length must be > 0")
	}
	if c.Pipeline.ExistingPageSize <= 0 {
		return fmt.Errorf("pipeline.existing_page_size must be > 0")
	}
	if c.Media.MaxImageBytes <= 0 {
		return fmt.Errorf("media.max_image_bytes must be > 0")
	}
	if c.Scraper.NavRetries < 0 {
		return fmt.Errorf("scraper.nav_retries must be >= 0")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	return nil
}

// RequireBackend reports every missing setting needed by the selected stores. A hosted
// backend deployment also needs the photo-search key up front.
func (c Config) RequireBackend() error {
	missing := c.missingBackend()
	if c.usesHostedBackend() {
		missing = appendMissing(missing, field{"photos.api_key", c.Photos.APIKey})
	}
	return missingError(missing)
}

// RequirePhotos is RequireBackend plus the photo-search key, whatever the stores.
func (c Config) RequirePhotos() error {
	missing := appendMissing(c.missingBackend(), field{"photos.api_key", c.Photos.APIKey})
	return missingError(missing)
}

func (c Config) usesHostedBackend() bool {
	return c.Store.Provider == ProviderAppwrite || c.Files.Provider == ProviderAppwrite
}

func (c Config) missingBackend() []string {
	var missing []string
	// One backend client serves both stores, so it needs the full set of ids.
	if c.usesHostedBackend() {
		missing = appendMissing(missing,
			field{"backend.endpoint", c.Backend.Endpoint},
			field{"backend.project_id", c.Backend.ProjectID},
			field{"backend.api_key", c.Backend.APIKey},
			field{"backend.database_id", c.Backend.DatabaseID},
			field{"backend.collection_id", c.Backend.CollectionID},
			field{"backend.bucket_id", c.Backend.BucketID},
		)
	}
	if c.Store.Provider == ProviderPostgres {
		missing = appendMissing(missing, field{"store.postgres_dsn", c.Store.PostgresDSN})
	}
	if c.Files.Provider == ProviderGCS {
		missing = appendMissing(missing, field{"files.gcs_bucket", c.Files.GCSBucket})
	}
	return missing
}

type field struct {
	key   string
	value string
}

func appendMissing(missing []string, fields ...field) []string {
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.key)
		}
	}
	return missing
}

func missingError(missing []string) error {
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
}

// Seconds converts one of the *_seconds settings to a duration.
func Seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// RequestDelay is the pause between listings of one source.
func (c Config) RequestDelay() time.Duration {
	return time.Duration(c.Scraper.RequestDelayMs) * time.Millisecond
}
