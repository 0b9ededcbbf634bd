package link

import (
	"context"

	"github.com/google/uuid"
)

// Store defines the persistence operations for Link records. It enforces
// short-code uniqueness and is the only component allowed to mutate click
// state. RecordClick is the central concurrency contract of the system:
// the increment and the event append must be one atomic operation.
type Store interface {
	// Create persists a new link with zero clicks. Returns a Conflict
	// error when the short code is already taken.
	Create(ctx context.Context, l Link) (Link, error)

	// FindByCode returns the link for a short code, expired or not.
	// Expiry is a business decision, not a storage one.
	FindByCode(ctx context.Context, code string) (Link, error)

	// FindByID returns the link with the given identity.
	FindByID(ctx context.Context, id uuid.UUID) (Link, error)

	// FindByOwner returns all links created by an owner. Order is
	// unspecified; consumers sort.
	FindByOwner(ctx context.Context, ownerID string) ([]Link, error)

	// RecordClick atomically increments the click counter and appends the
	// event to the click log. Returns NotFound if the link vanished
	// between lookup and recording.
	RecordClick(ctx context.Context, code string, ev ClickEvent) error

	// ClicksFor returns the click log for a link in chronological order.
	ClicksFor(ctx context.Context, id uuid.UUID) ([]ClickEvent, error)

	// Delete removes a link only when ownerID matches the record's owner.
	// Returns NotFound for an unknown id and Forbidden on owner mismatch.
	Delete(ctx context.Context, id uuid.UUID, ownerID string) error
}
