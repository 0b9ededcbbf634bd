package quota

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/linksnip/linksnip/internal/auth"
	"github.com/linksnip/linksnip/internal/errx"
)

type mockLedger struct {
	getFn func(ctx context.Context, userID string) (Record, error)
}

func (m *mockLedger) Get(ctx context.Context, userID string) (Record, error) {
	return m.getFn(ctx, userID)
}

func (m *mockLedger) Grant(ctx context.Context, userID string, plan Plan) error {
	return errors.New("not implemented")
}

func (m *mockLedger) TryConsume(ctx context.Context, userID string) error {
	return errors.New("not implemented")
}

func (m *mockLedger) AppendOwnedCode(ctx context.Context, userID, code string) error {
	return errors.New("not implemented")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func getQuota(t *testing.T, h *Handler, userID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("GET", "/api/quota", nil)
	if userID != "" {
		req = req.WithContext(auth.WithUserID(req.Context(), userID))
	}
	rr := httptest.NewRecorder()
	h.Get(rr, req)
	return rr
}

func TestHandler_Get(t *testing.T) {
	t.Run("returns full record", func(t *testing.T) {
		updated := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
		ledger := &mockLedger{
			getFn: func(_ context.Context, userID string) (Record, error) {
				return Record{
					UserID:         userID,
					Plan:           &Plan{LinksGranted: 100, AmountPaid: 299},
					RemainingLinks: 42,
					OwnedCodes:     []string{"abc123", "def456"},
					UpdatedAt:      updated,
				}, nil
			},
		}

		rr := getQuota(t, NewHandler(ledger, testLogger()), "user-1")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp RecordResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.RemainingLinks != 42 {
			t.Errorf("remaining_links = %d, want 42", resp.RemainingLinks)
		}
		if resp.Plan == nil || resp.Plan.LinksGranted != 100 {
			t.Errorf("plan = %+v, want 100 granted", resp.Plan)
		}
		if len(resp.OwnedCodes) != 2 {
			t.Errorf("owned_codes length = %d, want 2", len(resp.OwnedCodes))
		}
	})

	t.Run("no record is an empty payload, not an error", func(t *testing.T) {
		ledger := &mockLedger{
			getFn: func(_ context.Context, _ string) (Record, error) {
				return Record{}, errx.E("quota.ledger.Get", errx.NotFound, errors.New("no row"))
			},
		}

		rr := getQuota(t, NewHandler(ledger, testLogger()), "user-1")
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rr.Code)
		}

		var resp RecordResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp.Plan != nil {
			t.Errorf("plan = %+v, want nil", resp.Plan)
		}
		if resp.RemainingLinks != 0 {
			t.Errorf("remaining_links = %d, want 0", resp.RemainingLinks)
		}
		if resp.OwnedCodes == nil {
			t.Error("owned_codes should encode as an empty array, not null")
		}
	})

	t.Run("store failure maps through error kinds", func(t *testing.T) {
		ledger := &mockLedger{
			getFn: func(_ context.Context, _ string) (Record, error) {
				return Record{}, errx.E("quota.ledger.Get", errx.Unavailable, errors.New("db down"))
			},
		}

		rr := getQuota(t, NewHandler(ledger, testLogger()), "user-1")
		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
	})

	t.Run("missing session is unauthorized", func(t *testing.T) {
		ledger := &mockLedger{
			getFn: func(_ context.Context, _ string) (Record, error) {
				t.Error("ledger consulted without a session")
				return Record{}, nil
			},
		}

		rr := getQuota(t, NewHandler(ledger, testLogger()), "")
		if rr.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rr.Code)
		}
	})
}
