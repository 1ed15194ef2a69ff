// Package normalize turns raw scraped records into stored events.
//
// Records are handled one at a time in input order. Each accepted event is appended to the
// in-memory duplicate references, so repeats within a single run are caught as well.
package normalize

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/campus-events-crawler/internal/clock"
	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/media"
	"github.com/JakeFAU/campus-events-crawler/internal/storage"
	"github.com/JakeFAU/campus-events-crawler/internal/textutil"
)

const (
	// DefaultDescriptionMax caps stored descriptions.
	DefaultDescriptionMax = 1000
	// DefaultExistingPageSize bounds how many stored events are loaded for duplicate checks.
	DefaultExistingPageSize = 100
	// DefaultDuration is assumed when a record has no usable end date.
	DefaultDuration = 48 * time.Hour

	minTitleLength = 3
)

var (
	errTitleTooShort = errors.New("title missing or shorter than 3 characters")
	errBadStartDate  = errors.New("start date could not be parsed")
)

// ImageResolver picks the image stored with an event.
type ImageResolver interface {
	Resolve(ctx context.Context, imageURL, category string) media.Result
	Discard(ctx context.Context, fileID string) error
}

// Config tunes normalization.
type Config struct {
	DescriptionMax   int
	ExistingPageSize int
}

// Normalizer validates, deduplicates, enriches, and persists raw events.
type Normalizer struct {
	cfg    Config
	store  storage.EventStore
	images ImageResolver
	clock  clock.Clock
	logger *zap.Logger
}

// New builds a Normalizer. Zero config values take the package defaults.
func New(cfg Config, store storage.EventStore, images ImageResolver, clk clock.Clock, logger *zap.Logger) *Normalizer {
	if cfg.DescriptionMax <= 0 {
		cfg.DescriptionMax = DefaultDescriptionMax
	}
	if cfg.ExistingPageSize <= 0 {
		cfg.ExistingPageSize = DefaultExistingPageSize
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{
		cfg:    cfg,
		store:  store,
		images: images,
		clock:  clk,
		logger: logger.Named("normalizer"),
	}
}

// Run processes raws and tallies the outcome into report. Per-record problems are recorded in
// the report and never stop the loop; the only error returned is a failure to load the
// existing events used for duplicate checks.
func (n *Normalizer) Run(ctx context.Context, raws []event.RawEvent, report *event.RunReport) error {
	refs, err := n.store.RecentRefs(ctx, n.cfg.ExistingPageSize)
	if err != nil {
		return fmt.Errorf("load existing events: %w", err)
	}
	n.logger.Info("normalizing",
		zap.Int("raw_events", len(raws)),
		zap.Int("existing_refs", len(refs)))

	report.TotalScraped = len(raws)
	for _, raw := range raws {
		ref, ok := n.process(ctx, raw, refs, report)
		if ok {
			refs = append(refs, ref)
		}
	}
	n.logger.Info("normalization finished",
		zap.Int("added", report.EventsAdded),
		zap.Int("duplicates", report.DuplicatesSkipped),
		zap.Int("invalid", report.InvalidSkipped),
		zap.Int("past", report.PastSkipped),
		zap.Int("errors", len(report.Errors)))
	return nil
}

// process handles one record. ok is true when an event was written.
func (n *Normalizer) process(
	ctx context.Context,
	raw event.RawEvent,
	refs []event.ExistingEventRef,
	report *event.RunReport,
) (ref event.ExistingEventRef, ok bool) {
	title := textutil.CollapseSpace(raw.Title)
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("record panicked", zap.String("title", title), zap.Any("panic", r))
			report.AddError(title, fmt.Errorf("panic: %v", r))
			ok = false
		}
	}()

	now := n.clock.Now()
	if utf8.RuneCountInString(title) < minTitleLength {
		report.InvalidSkipped++
		n.logger.Debug("skipping record", zap.String("title", title), zap.Error(errTitleTooShort))
		return ref, false
	}
	start, parsed := textutil.ParseDate(raw.StartDate, now)
	if !parsed {
		report.InvalidSkipped++
		n.logger.Warn("skipping record",
			zap.String("title", title),
			zap.String("start_date", raw.StartDate),
			zap.Error(errBadStartDate))
		return ref, false
	}
	if start.Before(now) {
		report.PastSkipped++
		n.logger.Debug("skipping past event", zap.String("title", title), zap.Time("start", start))
		return ref, false
	}
	if textutil.IsDuplicate(title, &start, refs) {
		report.DuplicatesSkipped++
		n.logger.Info("skipping duplicate", zap.String("title", title), zap.Time("start", start))
		return ref, false
	}

	ev, image := n.build(ctx, raw, title, start, now)
	if _, err := n.store.CreateEvent(ctx, ev); err != nil {
		n.logger.Error("event write failed", zap.String("title", title), zap.Error(err))
		report.AddError(title, err)
		if image.Uploaded {
			if derr := n.images.Discard(ctx, image.FileID); derr != nil {
				n.logger.Warn("orphaned image", zap.String("file_id", image.FileID), zap.Error(derr))
			}
		}
		return ref, false
	}
	report.EventsAdded++
	if image.Uploaded {
		report.ImagesUploaded++
	} else {
		report.ImagesFallback++
	}
	n.logger.Info("event added",
		zap.String("title", ev.Title),
		zap.String("event_type", ev.EventType),
		zap.String("source", string(raw.Source)))
	return ev.Ref(), true
}

func (n *Normalizer) build(
	ctx context.Context,
	raw event.RawEvent,
	title string,
	start, now time.Time,
) (event.NormalizedEvent, media.Result) {
	end, ok := textutil.ParseDate(raw.EndDate, now)
	if !ok {
		end = start.Add(DefaultDuration)
	}

	description := textutil.Truncate(textutil.StripHTML(raw.Description), n.cfg.DescriptionMax)
	categories := resolveCategories(raw.Category, title, description)
	eventType := categories[0]

	image := n.images.Resolve(ctx, raw.ImageURL, eventType)

	organizer := textutil.CollapseSpace(raw.OrganizerName)
	if organizer == "" {
		organizer = string(raw.Source)
	}

	return event.NormalizedEvent{
		Title:            textutil.Clip(title, event.MaxTitleLength),
		Description:      description,
		Category:         categories,
		EventType:        eventType,
		Status:           event.StatusUpcoming,
		EventDate:        start,
		Time:             end,
		Organizer:        organizer,
		Location:         textutil.NormalizeLocation(raw.Location),
		RegistrationLink: textutil.ValidateLink(raw.RegistrationLink),
		Tags:             textutil.BuildTags(raw.Tags, title, description, eventType),
		MaxParticipants:  max(raw.MaxParticipants, 0),
		ThumbnailURL:     image.URL,
		PosterFileID:     image.FileID,
		SubmittedBy:      event.AutomationUserID,
		CreatedByUserID:  event.AutomationUserID,
		SubmitterType:    event.SubmitterAutomation,
		Approved:         false,
		IsFeatured:       false,
		Source:           raw.Source,
	}, image
}

// resolveCategories canonicalizes source categories, or guesses one from the text when the
// source gave none. The first element is the event type.
func resolveCategories(raw []string, title, description string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, c := range raw {
		canonical := textutil.CanonicalCategory(c)
		if canonical == "" || seen[canonical] {
			continue
		}
		seen[canonical] = true
		out = append(out, canonical)
	}
	if len(out) == 0 {
		out = append(out, textutil.GuessCategory(title, description))
	}
	return out
}
