package httpx

import (
	"net/http"
	"testing"

	"github.com/linksnip/linksnip/internal/errx"
)

func TestErrorKindToStatus(t *testing.T) {
	tests := []struct {
		name       string
		kind       errx.Kind
		wantStatus int
	}{
		{
			name:       "not found",
			kind:       errx.NotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "conflict",
			kind:       errx.Conflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "invalid",
			kind:       errx.Invalid,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unauthorized",
			kind:       errx.Unauthorized,
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "forbidden",
			kind:       errx.Forbidden,
			wantStatus: http.StatusForbidden,
		},
		{
			name:       "unavailable",
			kind:       errx.Unavailable,
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "internal",
			kind:       errx.Internal,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "expired",
			kind:       errx.Expired,
			wantStatus: http.StatusGone,
		},
		{
			name:       "exhausted",
			kind:       errx.Exhausted,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "no plan",
			kind:       errx.NoPlan,
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "unknown",
			kind:       errx.Unknown,
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "invalid kind value",
			kind:       errx.Kind(99),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorKindToStatus(tt.kind)
			if got != tt.wantStatus {
				t.Errorf("ErrorKindToStatus(%v) = %d, want %d", tt.kind, got, tt.wantStatus)
			}
		})
	}
}

func TestErrorKindToCode(t *testing.T) {
	tests := []struct {
		name     string
		kind     errx.Kind
		wantCode string
	}{
		{
			name:     "not found",
			kind:     errx.NotFound,
			wantCode: "not_found",
		},
		{
			name:     "conflict",
			kind:     errx.Conflict,
			wantCode: "conflict",
		},
		{
			name:     "invalid",
			kind:     errx.Invalid,
			wantCode: "invalid_input",
		},
		{
			name:     "expired",
			kind:     errx.Expired,
			wantCode: "link_expired",
		},
		{
			name:     "exhausted",
			kind:     errx.Exhausted,
			wantCode: "quota_exhausted",
		},
		{
			name:     "no plan",
			kind:     errx.NoPlan,
			wantCode: "no_plan",
		},
		{
			name:     "unknown",
			kind:     errx.Unknown,
			wantCode: "internal_error",
		},
		{
			name:     "invalid kind value",
			kind:     errx.Kind(99),
			wantCode: "internal_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ErrorKindToCode(tt.kind)
			if got != tt.wantCode {
				t.Errorf("ErrorKindToCode(%v) = %q, want %q", tt.kind, got, tt.wantCode)
			}
		})
	}
}

func TestErrorKindMappingConsistency(t *testing.T) {
	tests := []struct {
		name string
		kind errx.Kind
	}{
		{"NotFound", errx.NotFound},
		{"Conflict", errx.Conflict},
		{"Invalid", errx.Invalid},
		{"Unauthorized", errx.Unauthorized},
		{"Forbidden", errx.Forbidden},
		{"Unavailable", errx.Unavailable},
		{"Internal", errx.Internal},
		{"Expired", errx.Expired},
		{"Exhausted", errx.Exhausted},
		{"NoPlan", errx.NoPlan},
		{"Unknown", errx.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status := ErrorKindToStatus(tt.kind)
			code := ErrorKindToCode(tt.kind)

			if status == 0 {
				t.Error("ErrorKindToStatus returned 0")
			}
			if code == "" {
				t.Error("ErrorKindToCode returned empty string")
			}
			if status < 100 || status >= 600 {
				t.Errorf("invalid HTTP status code: %d", status)
			}
		})
	}
}
