package link

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linksnip/linksnip/internal/errx"
	"github.com/linksnip/linksnip/internal/idgen"
)

// pgStore implements Store on PostgreSQL. Connections come from the shared
// pool per operation; every operation runs under opTimeout so a slow
// database cannot hold a request open indefinitely.
type pgStore struct {
	pool      *pgxpool.Pool
	ids       idgen.Generator
	opTimeout time.Duration
}

// StoreConfig holds configuration for the PostgreSQL store.
type StoreConfig struct {
	IDGenerator idgen.Generator
	OpTimeout   time.Duration
}

// NewStore creates a PostgreSQL-backed Store.
func NewStore(pool *pgxpool.Pool, config *StoreConfig) Store {
	if config == nil {
		config = &StoreConfig{}
	}

	// Default: UUID v7 for B-tree locality.
	ids := config.IDGenerator
	if ids == nil {
		ids = idgen.NewV7(idgen.WithRetries(1))
	}

	opTimeout := config.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}

	return &pgStore{
		pool:      pool,
		ids:       ids,
		opTimeout: opTimeout,
	}
}

func (s *pgStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.opTimeout)
}

const linkColumns = `id, original_url, short_code, owner_id, clicks, created_at, expires_at`

func scanLink(row pgx.Row) (Link, error) {
	var l Link
	err := row.Scan(&l.ID, &l.OriginalURL, &l.ShortCode, &l.OwnerID, &l.Clicks, &l.CreatedAt, &l.ExpiresAt)
	return l, err
}

func (s *pgStore) Create(ctx context.Context, l Link) (Link, error) {
	const op = "link.store.Create"

	if l.ID == uuid.Nil {
		id, err := s.ids.Generate()
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}
		l.ID = id
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx, `
		INSERT INTO links (id, original_url, short_code, owner_id, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+linkColumns,
		l.ID, l.OriginalURL, l.ShortCode, l.OwnerID, l.ExpiresAt,
	)

	created, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return created, nil
}

func (s *pgStore) FindByCode(ctx context.Context, code string) (Link, error) {
	const op = "link.store.FindByCode"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE short_code = $1`, code)

	l, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return l, nil
}

func (s *pgStore) FindByID(ctx context.Context, id uuid.UUID) (Link, error) {
	const op = "link.store.FindByID"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	row := s.pool.QueryRow(ctx,
		`SELECT `+linkColumns+` FROM links WHERE id = $1`, id)

	l, err := scanLink(row)
	if err != nil {
		return Link{}, mapStoreError(op, err)
	}
	return l, nil
}

func (s *pgStore) FindByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "link.store.FindByOwner"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx,
		`SELECT `+linkColumns+` FROM links WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	links := make([]Link, 0)
	for rows.Next() {
		l, err := scanLink(rows)
		if err != nil {
			return nil, mapStoreError(op, err)
		}
		links = append(links, l)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(op, err)
	}
	return links, nil
}

// RecordClick runs the increment and the log append in one transaction so
// that clicks == len(clickLog) holds at every commit point. The row-level
// lock taken by the UPDATE serializes concurrent clicks on the same code;
// clicks on different codes do not contend.
func (s *pgStore) RecordClick(ctx context.Context, code string, ev ClickEvent) error {
	const op = "link.store.RecordClick"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapStoreError(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var linkID uuid.UUID
	err = tx.QueryRow(ctx, `
		UPDATE links SET clicks = clicks + 1
		WHERE short_code = $1
		RETURNING id`, code,
	).Scan(&linkID)
	if err != nil {
		// ErrNoRows here means the link was deleted after lookup.
		return mapStoreError(op, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO link_clicks (link_id, clicked_at, referrer, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5)`,
		linkID, ev.Timestamp, ev.Referrer, ev.IPAddress, ev.UserAgent,
	)
	if err != nil {
		return mapStoreError(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapStoreError(op, err)
	}
	return nil
}

func (s *pgStore) ClicksFor(ctx context.Context, id uuid.UUID) ([]ClickEvent, error) {
	const op = "link.store.ClicksFor"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.pool.Query(ctx, `
		SELECT clicked_at, referrer, ip_address, user_agent
		FROM link_clicks
		WHERE link_id = $1
		ORDER BY clicked_at, id`, id)
	if err != nil {
		return nil, mapStoreError(op, err)
	}
	defer rows.Close()

	events := make([]ClickEvent, 0)
	for rows.Next() {
		var ev ClickEvent
		if err := rows.Scan(&ev.Timestamp, &ev.Referrer, &ev.IPAddress, &ev.UserAgent); err != nil {
			return nil, mapStoreError(op, err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, mapStoreError(op, err)
	}
	return events, nil
}

func (s *pgStore) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	const op = "link.store.Delete"

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return mapStoreError(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var owner *string
	err = tx.QueryRow(ctx,
		`SELECT owner_id FROM links WHERE id = $1 FOR UPDATE`, id,
	).Scan(&owner)
	if err != nil {
		return mapStoreError(op, err)
	}

	if owner == nil || *owner != ownerID {
		return errx.E(op, errx.Forbidden, errors.New("link is not owned by the caller"))
	}

	if _, err := tx.Exec(ctx, `DELETE FROM links WHERE id = $1`, id); err != nil {
		return mapStoreError(op, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return mapStoreError(op, err)
	}
	return nil
}
