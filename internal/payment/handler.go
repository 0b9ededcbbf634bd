package payment

import (
	"log/slog"
	"net/http"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/errx"
	"github.com/linksnip/linksnip/internal/httpx"
)

// CreateOrderRequest is the request payload for starting a plan purchase.
type CreateOrderRequest struct {
	Plan string `json:"plan"`
}

// OrderResponse is returned to the client to open the gateway checkout.
type OrderResponse struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Plan     string `json:"plan"`
	Links    int    `json:"links"`
}

// VerifyRequest is the gateway confirmation relayed by the client. The
// user identity comes from the session, never from the payload.
type VerifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	Plan      string `json:"plan"`
}

// VerifyResponse acknowledges a granted plan.
type VerifyResponse struct {
	Status string `json:"status"`
}

// Handler handles HTTP requests for payment operations.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// NewHandler creates a new payment handler.
func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// CreateOrder handles POST /api/orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	req, err := httpx.DecodeJSON[CreateOrderRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	order, plan, err := h.service.CreateOrder(r.Context(), userID, req.Plan)
	if err != nil {
		switch errx.KindOf(err) {
		case errx.Invalid:
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Unknown plan", nil)
		default:
			h.logger.ErrorContext(r.Context(), "failed to create payment order",
				"error", err.Error(),
				"user_id", userID,
			)
			httpx.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Could not create order", nil)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, OrderResponse{
		OrderID:  order.ID,
		Amount:   order.Amount,
		Currency: order.Currency,
		Plan:     plan.Name,
		Links:    plan.Links,
	})
}

// Verify handles POST /api/payments/verify.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	req, err := httpx.DecodeJSON[VerifyRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	err = h.service.VerifyAndGrant(r.Context(), userID, Confirmation{
		OrderID:   req.OrderID,
		PaymentID: req.PaymentID,
		Signature: req.Signature,
		PlanName:  req.Plan,
	})
	if err != nil {
		switch errx.KindOf(err) {
		case errx.Invalid:
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid confirmation", nil)
		case errx.Unauthorized:
			httpx.WriteError(w, http.StatusUnauthorized, "signature_mismatch", "Payment signature could not be verified", nil)
		default:
			h.logger.ErrorContext(r.Context(), "failed to verify payment",
				"error", err.Error(),
				"user_id", userID,
			)
			httpx.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Could not verify payment", nil)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, VerifyResponse{Status: "granted"})
}
