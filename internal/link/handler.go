package link

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/errx"
	"github.com/linksnip/linksnip/internal/httpx"
)

// CreateLinkRequest is the request payload for creating a short link.
type CreateLinkRequest struct {
	URL       string     `json:"url"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LinkResponse is the JSON shape of a link returned by the API.
type LinkResponse struct {
	ID          string     `json:"id"`
	OriginalURL string     `json:"original_url"`
	ShortCode   string     `json:"short_code"`
	ShortURL    string     `json:"short_url"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   string     `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// ClickResponse is the JSON shape of one recorded click.
type ClickResponse struct {
	Timestamp string `json:"timestamp"`
	Referrer  string `json:"referrer"`
	IPAddress string `json:"ip_address"`
	UserAgent string `json:"user_agent"`
}

// Handler handles HTTP requests for link operations.
type Handler struct {
	service Service
	logger  *slog.Logger
	baseURL string
}

// NewHandler creates a new link handler.
func NewHandler(service Service, logger *slog.Logger, baseURL string) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Create handles POST /api/links. Authentication is optional: signed-in
// callers spend quota and own the link, anonymous callers get an unowned
// link.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := httpx.DecodeJSON[CreateLinkRequest](r)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error(), nil)
		return
	}

	ownerID, _ := auth.UserID(r.Context())

	created, err := h.service.Create(r.Context(), CreateRequest{
		OriginalURL: req.URL,
		OwnerID:     ownerID,
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to create link",
			"error", err.Error(),
			"owner_id", ownerID,
		)
		h.writeServiceError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, h.toResponse(created))
}

// Redirect handles GET /{code}: resolves the short code, records the
// click, and issues a 302 to the original URL.
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")

	target, err := h.service.Resolve(r.Context(), code, ClickContext{
		Referrer:  r.Referer(),
		IPAddress: httpx.ClientIP(r),
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		switch errx.KindOf(err) {
		case errx.NotFound:
			httpx.WriteError(w, http.StatusNotFound, "link_not_found", "Short link not found", nil)
		case errx.Expired:
			httpx.WriteError(w, http.StatusGone, "link_expired", "Short link has expired", nil)
		case errx.Invalid:
			httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid short code", nil)
		default:
			h.logger.ErrorContext(r.Context(), "failed to resolve link",
				"error", err.Error(),
				"short_code", code,
			)
			httpx.WriteError(w, http.StatusServiceUnavailable, "service_unavailable", "Could not resolve link", nil)
		}
		return
	}

	http.Redirect(w, r, target, http.StatusFound)
}

// List handles GET /api/links, returning the caller's links.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	links, err := h.service.ListByOwner(r.Context(), ownerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to list links",
			"error", err.Error(),
			"owner_id", ownerID,
		)
		h.writeServiceError(w, err)
		return
	}

	out := make([]LinkResponse, 0, len(links))
	for _, l := range links {
		out = append(out, h.toResponse(l))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Clicks handles GET /api/links/{id}/clicks.
func (h *Handler) Clicks(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid link id", nil)
		return
	}

	events, err := h.service.Clicks(r.Context(), id, ownerID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to fetch clicks",
			"error", err.Error(),
			"link_id", id.String(),
		)
		h.writeServiceError(w, err)
		return
	}

	out := make([]ClickResponse, 0, len(events))
	for _, ev := range events {
		out = append(out, ClickResponse{
			Timestamp: ev.Timestamp.UTC().Format(time.RFC3339),
			Referrer:  ev.Referrer,
			IPAddress: ev.IPAddress,
			UserAgent: ev.UserAgent,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// Delete handles DELETE /api/links/{id}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := auth.UserID(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required", nil)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Invalid link id", nil)
		return
	}

	if err := h.service.Delete(r.Context(), id, ownerID); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to delete link",
			"error", err.Error(),
			"link_id", id.String(),
		)
		h.writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	kind := errx.KindOf(err)
	httpx.WriteError(w, httpx.ErrorKindToStatus(kind), httpx.ErrorKindToCode(kind), userMessage(kind), nil)
}

func userMessage(kind errx.Kind) string {
	switch kind {
	case errx.Invalid:
		return "The request is invalid"
	case errx.NotFound:
		return "Link not found"
	case errx.Forbidden:
		return "You do not have access to this link"
	case errx.Exhausted:
		return "Link quota exhausted; purchase a plan to continue"
	case errx.NoPlan:
		return "No active plan; purchase a plan to create links"
	case errx.Conflict:
		return "Conflicting link state"
	default:
		return "Something went wrong, please try again"
	}
}

func (h *Handler) toResponse(l Link) LinkResponse {
	return LinkResponse{
		ID:          l.ID.String(),
		OriginalURL: l.OriginalURL,
		ShortCode:   l.ShortCode,
		ShortURL:    h.baseURL + "/" + l.ShortCode,
		Clicks:      l.Clicks,
		CreatedAt:   l.CreatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:   l.ExpiresAt,
	}
}
