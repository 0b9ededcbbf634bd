package link

import (
	"time"

	"github.com/google/uuid"
)

// UnknownField is stored for click-event fields the request did not carry.
const UnknownField = "unknown"

// Link is a short-code to destination mapping. ShortCode is globally unique
// and never reassigned: expiry hides a link from redirection but does not
// free its code.
type Link struct {
	ID          uuid.UUID
	OriginalURL string
	ShortCode   string
	OwnerID     *string // nil for anonymous links
	Clicks      int64
	CreatedAt   time.Time
	ExpiresAt   *time.Time // nil means never expires
}

// Expired reports whether the link is past its expiry instant.
func (l Link) Expired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

// ClickEvent is one recorded visit to a link's redirect endpoint.
type ClickEvent struct {
	Timestamp time.Time
	Referrer  string
	IPAddress string
	UserAgent string
}

// ClickContext carries the request metadata a click event is built from.
type ClickContext struct {
	Referrer  string
	IPAddress string
	UserAgent string
}

// NewClickEvent builds a click event at the given instant, defaulting each
// absent field to the literal string "unknown".
func NewClickEvent(at time.Time, cc ClickContext) ClickEvent {
	return ClickEvent{
		Timestamp: at,
		Referrer:  orUnknown(cc.Referrer),
		IPAddress: orUnknown(cc.IPAddress),
		UserAgent: orUnknown(cc.UserAgent),
	}
}

func orUnknown(s string) string {
	if s == "" {
		return UnknownField
	}
	return s
}
