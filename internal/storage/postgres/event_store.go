// Package postgres provides a Postgres-backed event store for self-hosted deployments.
package postgres

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/campus-events-crawler/internal/event"
	"github.com/JakeFAU/campus-events-crawler/internal/storage"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var _ storage.EventStore = (*EventStore)(nil)

// Config controls the Postgres connection pool used for event rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// IDGenerator creates document ids.
type IDGenerator interface {
	NewID() (string, error)
}

// EventStore writes event documents into a Postgres table.
type EventStore struct {
	pool  pool
	table string
	ids   IDGenerator
}

// NewEventStore connects a pool using cfg.
func NewEventStore(ctx context.Context, cfg Config, ids IDGenerator) (*EventStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("store.postgres.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store, err := NewEventStoreWithPool(p, cfg.Table, ids)
	if err != nil {
		p.Close()
		return nil, err
	}
	return store, nil
}

// NewEventStoreWithPool constructs a store from an existing pool (primarily for testing).
func NewEventStoreWithPool(p pool, table string, ids IDGenerator) (*EventStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		return nil, fmt.Errorf("id generator is required")
	}
	if table == "" {
		table = "events"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &EventStore{pool: p, table: table, ids: ids}, nil
}

// Close releases the underlying pool resources.
func (s *EventStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecentRefs selects the newest events by event date.
func (s *EventStore) RecentRefs(ctx context.Context, limit int) ([]event.ExistingEventRef, error) {
	query := fmt.Sprintf(`SELECT title, event_date FROM %s ORDER BY event_date DESC NULLS LAST LIMIT $1`, s.table)
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var refs []event.ExistingEventRef
	for rows.Next() {
		var (
			title string
			date  *time.Time
		)
		if err := rows.Scan(&title, &date); err != nil {
			return nil, fmt.Errorf("scan recent event: %w", err)
		}
		refs = append(refs, event.ExistingEventRef{Title: title, EventDate: date})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent events: %w", err)
	}
	return refs, nil
}

// CreateEvent inserts ev under a freshly generated id.
func (s *EventStore) CreateEvent(ctx context.Context, ev event.NormalizedEvent) (string, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return "", err
	}
	query := fmt.Sprintf(`
INSERT INTO %s (
	id,
	title,
	description,
	category,
	event_type,
	status,
	event_date,
	end_time,
	organizer,
	location,
	registration_link,
	tags,
	max_participants,
	thumbnail_url,
	poster_file_id,
	submitted_by,
	created_by_user_id,
	submitter_type,
	approved,
	is_featured,
	source
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21
)`, s.table)

	args := []any{
		id,
		ev.Title,
		ev.Description,
		ev.Category,
		ev.EventType,
		ev.Status,
		ev.EventDate,
		ev.Time,
		ev.Organizer,
		ev.Location,
		ev.RegistrationLink,
		ev.Tags,
		ev.MaxParticipants,
		ev.ThumbnailURL,
		nullable(ev.PosterFileID),
		ev.SubmittedBy,
		ev.CreatedByUserID,
		ev.SubmitterType,
		ev.Approved,
		ev.IsFeatured,
		string(ev.Source),
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}
	return id, nil
}

// ListEvents pages through events, newest first.
func (s *EventStore) ListEvents(ctx context.Context, offset, limit int) ([]event.StoredEvent, error) {
	query := fmt.Sprintf(`
SELECT id, title, event_type, event_date, thumbnail_url, COALESCE(poster_file_id, '')
FROM %s ORDER BY event_date DESC NULLS LAST OFFSET $1 LIMIT $2`, s.table)
	rows, err := s.pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []event.StoredEvent
	for rows.Next() {
		var ev event.StoredEvent
		if err := rows.Scan(&ev.ID, &ev.Title, &ev.EventType, &ev.EventDate, &ev.ThumbnailURL, &ev.PosterFileID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// UpdateEventImage sets the thumbnail of the event with id.
func (s *EventStore) UpdateEventImage(ctx context.Context, id, thumbnailURL, posterFileID string) error {
	query := fmt.Sprintf(`UPDATE %s SET thumbnail_url = $2, poster_file_id = COALESCE($3, poster_file_id) WHERE id = $1`, s.table)
	tag, err := s.pool.Exec(ctx, query, id, thumbnailURL, nullable(posterFileID))
	if err != nil {
		return fmt.Errorf("update event image: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update event %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

