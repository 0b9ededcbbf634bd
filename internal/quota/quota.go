// Package quota tracks how many short links each user may still create
// under their purchased plan.
package quota

import (
	"context"
	"time"
)

// Plan is a purchased allotment of shortenable links.
type Plan struct {
	LinksGranted int
	AmountPaid   float64
}

// Record is a user's quota state. A missing record means the user has
// never purchased a plan.
type Record struct {
	UserID         string
	Plan           *Plan
	RemainingLinks int
	// OwnedCodes is a denormalized convenience view of the user's short
	// codes. The links table is the source of truth; this list is
	// maintained best-effort and is rebuildable by query.
	OwnedCodes []string
	UpdatedAt  time.Time
}

// Ledger defines the quota operations. TryConsume is the ledger's
// concurrency contract: the check and the decrement happen in one atomic
// step so two concurrent creations cannot both spend the last unit.
type Ledger interface {
	// Get returns the quota record for a user. Returns NotFound when the
	// user has no record (equivalent to zero remaining, no plan).
	Get(ctx context.Context, userID string) (Record, error)

	// Grant upserts the purchased plan and resets remaining links to the
	// plan's grant. A second purchase replaces the balance, it does not
	// add to it.
	Grant(ctx context.Context, userID string, plan Plan) error

	// TryConsume atomically decrements remaining links if any remain.
	// Returns an Exhausted error at zero remaining and NoPlan when the
	// user has never been granted a plan.
	TryConsume(ctx context.Context, userID string) error

	// AppendOwnedCode adds a short code to the denormalized owned view.
	AppendOwnedCode(ctx context.Context, userID, code string) error
}
