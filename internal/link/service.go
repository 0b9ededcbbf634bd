package link

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/linksnip/linksnip/codegen"
	"github.com/linksnip/linksnip/internal/errx"
	"github.com/linksnip/linksnip/internal/quota"
)

const (
	DefaultCodeLength     = codegen.DefaultLength
	MaxURLLength          = 2048
	DefaultCodeMaxRetries = 5
)

// CreateRequest represents the parameters for creating a new short link.
type CreateRequest struct {
	OriginalURL string
	OwnerID     string // empty for anonymous links
	ExpiresAt   *time.Time
}

// Service defines the business operations over links: creation (quota
// aware) and resolution (the redirect path), plus the dashboard reads.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (Link, error)
	Resolve(ctx context.Context, code string, cc ClickContext) (string, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Link, error)
	Clicks(ctx context.Context, id uuid.UUID, ownerID string) ([]ClickEvent, error)
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error
}

type service struct {
	store          Store
	ledger         quota.Ledger
	codeGenerator  codegen.Generator
	logger         *slog.Logger
	codeLength     int
	codeMaxRetries int
	now            func() time.Time
}

// ServiceConfig holds configuration for the service.
type ServiceConfig struct {
	CodeGenerator  codegen.Generator
	Logger         *slog.Logger
	CodeLength     int
	CodeMaxRetries int // attempts when generating a unique code (default: 5)
	Now            func() time.Time
}

// NewService creates a new service instance.
func NewService(store Store, ledger quota.Ledger, config *ServiceConfig) Service {
	if config == nil {
		config = &ServiceConfig{}
	}

	codeGen := config.CodeGenerator
	if codeGen == nil {
		codeGen = codegen.NewBase62()
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	codeLength := config.CodeLength
	if codeLength <= 0 {
		codeLength = DefaultCodeLength
	}

	retries := config.CodeMaxRetries
	if retries <= 0 {
		retries = DefaultCodeMaxRetries
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	return &service{
		store:          store,
		ledger:         ledger,
		codeGenerator:  codeGen,
		logger:         logger,
		codeLength:     codeLength,
		codeMaxRetries: retries,
		now:            now,
	}
}

// Create validates the destination, spends one quota unit for owned links,
// and persists a new link under a freshly generated code. Code collisions
// are retried up to the configured bound; the store's unique index is the
// backstop, not the primary avoidance strategy.
//
// Anonymous requests (no owner) bypass the quota ledger entirely.
func (s *service) Create(ctx context.Context, req CreateRequest) (Link, error) {
	const op = "link.service.Create"

	if err := validateURL(req.OriginalURL); err != nil {
		return Link{}, errx.E(op, errx.Invalid, err)
	}

	if req.OwnerID != "" {
		if err := s.ledger.TryConsume(ctx, req.OwnerID); err != nil {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	var ownerID *string
	if req.OwnerID != "" {
		ownerID = &req.OwnerID
	}

	for range s.codeMaxRetries {
		code, err := s.codeGenerator.Generate(s.codeLength)
		if err != nil {
			return Link{}, errx.E(op, errx.Unavailable, err)
		}

		created, err := s.store.Create(ctx, Link{
			OriginalURL: req.OriginalURL,
			ShortCode:   code,
			OwnerID:     ownerID,
			ExpiresAt:   req.ExpiresAt,
		})
		if err == nil {
			s.appendOwnedCode(ctx, req.OwnerID, created.ShortCode)
			return created, nil
		}

		// Retry on collision, fail on anything else.
		if errx.KindOf(err) != errx.Conflict {
			return Link{}, errx.E(op, errx.KindOf(err), err)
		}
	}

	return Link{}, errx.E(op, errx.Unavailable,
		errors.New("could not generate unique short code after retries"))
}

// appendOwnedCode maintains the denormalized owned-codes view. Failures
// are logged and swallowed: the links table is the source of truth and the
// view is rebuildable by query.
func (s *service) appendOwnedCode(ctx context.Context, ownerID, code string) {
	if ownerID == "" {
		return
	}
	if err := s.ledger.AppendOwnedCode(ctx, ownerID, code); err != nil {
		s.logger.WarnContext(ctx, "failed to append code to owned view",
			"owner_id", ownerID,
			"short_code", code,
			"error", err.Error(),
		)
	}
}

// Resolve runs the redirect path for one click:
//
//	LOOKUP -> EXPIRY_CHECK -> RECORD_CLICK -> redirect target
//
// The click is recorded synchronously: the counter is the product's core
// metric, so recording must complete (or durably fail) before the redirect
// is issued. Expired links short-circuit before recording so their visits
// never pollute analytics.
func (s *service) Resolve(ctx context.Context, code string, cc ClickContext) (string, error) {
	const op = "link.service.Resolve"

	if code == "" {
		return "", errx.E(op, errx.Invalid, errors.New("short code cannot be empty"))
	}

	l, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return "", errx.E(op, errx.KindOf(err), err)
	}

	if l.Expired(s.now()) {
		return "", errx.E(op, errx.Expired, errors.New("link has expired"))
	}

	ev := NewClickEvent(s.now(), cc)
	if err := s.store.RecordClick(ctx, code, ev); err != nil {
		// NotFound here is the lookup/delete race; surface it as such.
		return "", errx.E(op, errx.KindOf(err), err)
	}

	return l.OriginalURL, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID string) ([]Link, error) {
	const op = "link.service.ListByOwner"

	if ownerID == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("owner id cannot be empty"))
	}

	links, err := s.store.FindByOwner(ctx, ownerID)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return links, nil
}

func (s *service) Clicks(ctx context.Context, id uuid.UUID, ownerID string) ([]ClickEvent, error) {
	const op = "link.service.Clicks"

	if ownerID == "" {
		return nil, errx.E(op, errx.Invalid, errors.New("owner id cannot be empty"))
	}

	l, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	if l.OwnerID == nil || *l.OwnerID != ownerID {
		return nil, errx.E(op, errx.Forbidden, errors.New("link is not owned by the caller"))
	}

	events, err := s.store.ClicksFor(ctx, id)
	if err != nil {
		return nil, errx.E(op, errx.KindOf(err), err)
	}
	return events, nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, ownerID string) error {
	const op = "link.service.Delete"

	if ownerID == "" {
		return errx.E(op, errx.Invalid, errors.New("owner id cannot be empty"))
	}

	if err := s.store.Delete(ctx, id, ownerID); err != nil {
		return errx.E(op, errx.KindOf(err), err)
	}
	return nil
}

func validateURL(rawURL string) error {
	if rawURL == "" {
		return errors.New("url cannot be empty")
	}
	if len(rawURL) > MaxURLLength {
		return errors.New("url too long (max 2048 characters)")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid url format")
	}
	if parsedURL.Scheme == "" {
		return errors.New("url must include scheme (http or https)")
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return errors.New("url scheme must be http or https")
	}
	if parsedURL.Host == "" {
		return errors.New("url must include host")
	}
	return nil
}
