package quota

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/errx"
	"github.com/linksnip/linksnip/internal/httpx"
)

// PlanResponse is the JSON shape of a purchased plan.
type PlanResponse struct {
	LinksGranted int     `json:"links_granted"`
	AmountPaid   float64 `json:"amount_paid"`
}

// RecordResponse is the JSON shape of a user's quota state.
type RecordResponse struct {
	UserID         string        `json:"user_id"`
	Plan           *PlanResponse `json:"plan"`
	RemainingLinks int           `json:"remaining_links"`
	OwnedCodes     []string      `json:"owned_codes"`
	UpdatedAt      *string       `json:"updated_at,omitempty"`
}

// Handler serves the quota dashboard endpoint.
type Handler struct {
	ledger Ledger
	logger *slog.Logger
}

// NewHandler creates a quota Handler.
func NewHandler(ledger Ledger, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{ledger: ledger, logger: logger}
}

// Get handles GET requests for the caller's plan and remaining links.
// A user who never purchased a plan gets an empty record, not an error;
// the purchase page needs to render either way.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := auth.UserID(ctx)
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized",
			"a valid session token is required", nil)
		return
	}

	rec, err := h.ledger.Get(ctx, userID)
	if err != nil {
		if errx.KindOf(err) == errx.NotFound {
			httpx.WriteJSON(w, http.StatusOK, RecordResponse{
				UserID:     userID,
				OwnedCodes: []string{},
			})
			return
		}

		h.logger.ErrorContext(ctx, "failed to load quota record",
			"request_id", httpx.GetRequestID(ctx),
			"error", err.Error(),
			"error_kind", errx.KindOf(err),
			"operation", errx.OpOf(err),
		)
		httpx.WriteError(w, httpx.ErrorKindToStatus(errx.KindOf(err)),
			httpx.ErrorKindToCode(errx.KindOf(err)),
			"unable to load quota at this time", nil)
		return
	}

	resp := RecordResponse{
		UserID:         rec.UserID,
		RemainingLinks: rec.RemainingLinks,
		OwnedCodes:     rec.OwnedCodes,
	}
	if resp.OwnedCodes == nil {
		resp.OwnedCodes = []string{}
	}
	if rec.Plan != nil {
		resp.Plan = &PlanResponse{
			LinksGranted: rec.Plan.LinksGranted,
			AmountPaid:   rec.Plan.AmountPaid,
		}
	}
	if !rec.UpdatedAt.IsZero() {
		s := rec.UpdatedAt.Format(time.RFC3339)
		resp.UpdatedAt = &s
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}
