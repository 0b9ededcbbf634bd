package httpx

import (
	"net/http"

	"github.com/linksnip/linksnip/internal/errx"
)

// ErrorKindToStatus maps errx.Kind to HTTP status codes.
// Expired gets 410 so clients can distinguish "existed, now gone" from 404;
// quota rejections get 402 because the fix is a purchase, not a retry.
func ErrorKindToStatus(kind errx.Kind) int {
	switch kind {
	case errx.NotFound:
		return http.StatusNotFound
	case errx.Conflict:
		return http.StatusConflict
	case errx.Invalid:
		return http.StatusBadRequest
	case errx.Unauthorized:
		return http.StatusUnauthorized
	case errx.Forbidden:
		return http.StatusForbidden
	case errx.Unavailable:
		return http.StatusServiceUnavailable
	case errx.Internal:
		return http.StatusInternalServerError
	case errx.Expired:
		return http.StatusGone
	case errx.Exhausted, errx.NoPlan:
		return http.StatusPaymentRequired
	default:
		return http.StatusInternalServerError
	}
}

// ErrorKindToCode maps errx.Kind to error codes for JSON responses.
func ErrorKindToCode(kind errx.Kind) string {
	switch kind {
	case errx.NotFound:
		return "not_found"
	case errx.Conflict:
		return "conflict"
	case errx.Invalid:
		return "invalid_input"
	case errx.Unauthorized:
		return "unauthorized"
	case errx.Forbidden:
		return "forbidden"
	case errx.Unavailable:
		return "unavailable"
	case errx.Internal:
		return "internal_error"
	case errx.Expired:
		return "link_expired"
	case errx.Exhausted:
		return "quota_exhausted"
	case errx.NoPlan:
		return "no_plan"
	default:
		return "internal_error"
	}
}
