package quota

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linksnip/linksnip/internal/errx"
)

// pgLedger implements Ledger on PostgreSQL with one row per user.
type pgLedger struct {
	pool      *pgxpool.Pool
	opTimeout time.Duration
}

// LedgerConfig holds configuration for the PostgreSQL ledger.
type LedgerConfig struct {
	OpTimeout time.Duration
}

// NewLedger creates a PostgreSQL-backed Ledger.
func NewLedger(pool *pgxpool.Pool, config *LedgerConfig) Ledger {
	if config == nil {
		config = &LedgerConfig{}
	}

	opTimeout := config.OpTimeout
	if opTimeout <= 0 {
		opTimeout = 5 * time.Second
	}

	return &pgLedger{
		pool:      pool,
		opTimeout: opTimeout,
	}
}

func (l *pgLedger) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, l.opTimeout)
}

func (l *pgLedger) Get(ctx context.Context, userID string) (Record, error) {
	const op = "quota.ledger.Get"

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	var (
		rec        Record
		planLinks  *int
		planAmount *float64
	)
	err := l.pool.QueryRow(ctx, `
		SELECT user_id, plan_links, plan_amount, remaining_links, owned_codes, updated_at
		FROM user_quotas
		WHERE user_id = $1`, userID,
	).Scan(&rec.UserID, &planLinks, &planAmount, &rec.RemainingLinks, &rec.OwnedCodes, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, errx.E(op, errx.NotFound, err)
		}
		return Record{}, errx.E(op, errx.Unavailable, err)
	}

	if planLinks != nil {
		rec.Plan = &Plan{LinksGranted: *planLinks}
		if planAmount != nil {
			rec.Plan.AmountPaid = *planAmount
		}
	}
	return rec, nil
}

func (l *pgLedger) Grant(ctx context.Context, userID string, plan Plan) error {
	const op = "quota.ledger.Grant"

	if plan.LinksGranted <= 0 {
		return errx.E(op, errx.Invalid, errors.New("plan must grant at least one link"))
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	_, err := l.pool.Exec(ctx, `
		INSERT INTO user_quotas (user_id, plan_links, plan_amount, remaining_links, updated_at)
		VALUES ($1, $2, $3, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET
			plan_links      = EXCLUDED.plan_links,
			plan_amount     = EXCLUDED.plan_amount,
			remaining_links = EXCLUDED.remaining_links,
			updated_at      = now()`,
		userID, plan.LinksGranted, plan.AmountPaid,
	)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	return nil
}

// TryConsume decrements in a single conditional UPDATE. The WHERE clause
// carries the whole invariant: under concurrent calls the row lock makes
// the losing transaction re-evaluate remaining_links > 0 on the updated
// row, so the balance never goes below zero.
func (l *pgLedger) TryConsume(ctx context.Context, userID string) error {
	const op = "quota.ledger.TryConsume"

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	tag, err := l.pool.Exec(ctx, `
		UPDATE user_quotas
		SET remaining_links = remaining_links - 1, updated_at = now()
		WHERE user_id = $1 AND remaining_links > 0`, userID,
	)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	// Nothing decremented: tell NoPlan apart from Exhausted.
	var planLinks *int
	err = l.pool.QueryRow(ctx,
		`SELECT plan_links FROM user_quotas WHERE user_id = $1`, userID,
	).Scan(&planLinks)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return errx.E(op, errx.NoPlan, errors.New("user has no purchased plan"))
	case err != nil:
		return errx.E(op, errx.Unavailable, err)
	case planLinks == nil:
		return errx.E(op, errx.NoPlan, errors.New("user has no purchased plan"))
	default:
		return errx.E(op, errx.Exhausted, errors.New("no remaining links on current plan"))
	}
}

func (l *pgLedger) AppendOwnedCode(ctx context.Context, userID, code string) error {
	const op = "quota.ledger.AppendOwnedCode"

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	tag, err := l.pool.Exec(ctx, `
		UPDATE user_quotas
		SET owned_codes = array_append(owned_codes, $2), updated_at = now()
		WHERE user_id = $1`, userID, code,
	)
	if err != nil {
		return errx.E(op, errx.Unavailable, err)
	}
	if tag.RowsAffected() == 0 {
		return errx.E(op, errx.NotFound, errors.New("no quota record for user"))
	}
	return nil
}
