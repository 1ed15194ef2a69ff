package media

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/metrics"
	"github.com/JakeFAU/campus-events-crawler/internal/politeness"
	"github.com/JakeFAU/campus-events-crawler/internal/storage"
)

const (
	// DefaultRepairLimit caps how many events one repair invocation processes.
	DefaultRepairLimit = 45
	// DefaultRepairDelay keeps the pass near one photo API call per second.
	DefaultRepairDelay = time.Second
	defaultRepairPage  = 100
)

// RepairOptions controls one repair invocation.
type RepairOptions struct {
	DryRun   bool
	Limit    int
	PageSize int
	Delay    time.Duration
}

// RepairStats summarizes a repair invocation.
type RepairStats struct {
	Scanned     int  `json:"scanned"`
	Candidates  int  `json:"candidates"`
	Processed   int  `json:"processed"`
	Updated     int  `json:"updated"`
	WouldUpdate int  `json:"wouldUpdate"`
	NoResult    int  `json:"noResult"`
	Failed      int  `json:"failed"`
	DryRun      bool `json:"dryRun"`
}

// Rehoster copies a remote image into the file store.
type Rehoster interface {
	Rehost(ctx context.Context, imageURL string) (Result, error)
}

// Repairer replaces missing or placeholder thumbnails on stored events with searched photos.
type Repairer struct {
	store  storage.EventStore
	search PhotoSearcher
	images Rehoster
	pause  politeness.Pauser
	logger *zap.Logger
}

// NewRepairer wires a Repairer. pause defaults to a real timer.
func NewRepairer(store storage.EventStore, search PhotoSearcher, images Rehoster, pause politeness.Pauser, logger *zap.Logger) *Repairer {
	if pause == nil {
		pause = politeness.Timer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repairer{store: store, search: search, images: images, pause: pause, logger: logger}
}

// Run scans stored events and repairs up to opts.Limit of them, pausing opts.Delay after each
// one whatever its outcome. In dry-run mode searches still run but nothing is written.
func (r *Repairer) Run(ctx context.Context, opts RepairOptions) (RepairStats, error) {
	if opts.Limit <= 0 {
		opts.Limit = DefaultRepairLimit
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultRepairPage
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultRepairDelay
	}
	stats := RepairStats{DryRun: opts.DryRun}

	candidates, scanned, err := r.collect(ctx, opts)
	stats.Scanned = scanned
	stats.Candidates = len(candidates)
	if err != nil {
		return stats, err
	}
	r.logger.Info("repair candidates selected",
		zap.Int("scanned", scanned),
		zap.Int("candidates", len(candidates)),
		zap.Bool("dry_run", opts.DryRun))

	for _, ev := range candidates {
		if ctx.Err() != nil {
			break
		}
		outcome, err := r.repairOne(ctx, ev, opts.DryRun)
		stats.Processed++
		metrics.ObserveRepair(outcome)
		switch outcome {
		case "updated":
			stats.Updated++
		case "dry_run":
			stats.WouldUpdate++
		case "no_result":
			stats.NoResult++
		default:
			stats.Failed++
			r.logger.Warn("image repair failed", zap.String("title", ev.Title), zap.Error(err))
		}
		r.pause.Pause(ctx, opts.Delay)
		if errors.Is(err, ErrQuotaExceeded) {
			r.logger.Warn("photo search quota exhausted; stopping repair pass")
			break
		}
	}
	return stats, nil
}

func (r *Repairer) collect(ctx context.Context, opts RepairOptions) ([]event.StoredEvent, int, error) {
	var (
		candidates []event.StoredEvent
		scanned    int
	)
	for offset := 0; len(candidates) < opts.Limit; offset += opts.PageSize {
		page, err := r.store.ListEvents(ctx, offset, opts.PageSize)
		if err != nil {
			return candidates, scanned, fmt.Errorf("list events: %w", err)
		}
		scanned += len(page)
		for _, ev := range page {
			if IsFallback(ev.ThumbnailURL) && len(candidates) < opts.Limit {
				candidates = append(candidates, ev)
			}
		}
		if len(page) < opts.PageSize {
			break
		}
	}
	return candidates, scanned, nil
}

func (r *Repairer) repairOne(ctx context.Context, ev event.StoredEvent, dryRun bool) (string, error) {
	query := strings.TrimSpace(ev.Title + " " + ev.EventType)
	photo, ok, err := r.search.Search(ctx, query)
	if err != nil {
		return "failed", err
	}
	if !ok {
		r.logger.Info("no photo found", zap.String("title", ev.Title), zap.String("query", query))
		return "no_result", nil
	}
	if dryRun {
		r.logger.Info("dry run: would update thumbnail",
			zap.String("id", ev.ID),
			zap.String("title", ev.Title),
			zap.String("photo", photo.URL))
		return "dry_run", nil
	}
	hosted, err := r.images.Rehost(ctx, photo.URL)
	if err != nil {
		return "failed", fmt.Errorf("rehost photo: %w", err)
	}
	if err := r.store.UpdateEventImage(ctx, ev.ID, hosted.URL, hosted.FileID); err != nil {
		return "failed", err
	}
	r.logger.Info("thumbnail repaired", zap.String("id", ev.ID), zap.String("title", ev.Title))
	return "updated", nil
}
