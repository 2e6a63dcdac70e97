// internal/notifications/routing.go

// Package notifications maps in-app notifications to the page they open.
package notifications

import (
	"net/url"
	"strings"
)

const DefaultPath = "/notifications"

type Notification struct {
	Type           string `json:"type"`
	BookingID      string `json:"bookingId,omitempty"`
	FieldID        string `json:"fieldId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
	ReviewID       string `json:"reviewId,omitempty"`
	PayoutID       string `json:"payoutId,omitempty"`
}

type routeFunc func(Notification) string

var routes = map[string]routeFunc{
	"booking_request":   bookingPath,
	"booking_confirmed": bookingPath,
	"booking_cancelled": bookingPath,
	"booking_reminder":  bookingPath,
	"booking_completed": bookingPath,
	"refund_processed":  bookingPath,
	"refund_failed":     bookingPath,

	"new_message": func(n Notification) string {
		return withID("/messages", n.ConversationID)
	},

	"new_review":   reviewPath,
	"review_reply": reviewPath,

	"payout_sent":    payoutPath,
	"payout_failed":  payoutPath,
	"payout_pending": payoutPath,

	"field_approved":  fieldPath,
	"field_rejected":  fieldPath,
	"field_submitted": fieldPath,
}

// Route returns the in-app path for n. Unknown types, and known types
// missing the identifier their page needs, fall back to a list page.
func Route(n Notification) string {
	fn, ok := routes[strings.ToLower(strings.TrimSpace(n.Type))]
	if !ok {
		return DefaultPath
	}
	return fn(n)
}

// Known reports whether the type has a dedicated route.
func Known(notificationType string) bool {
	_, ok := routes[strings.ToLower(strings.TrimSpace(notificationType))]
	return ok
}

func bookingPath(n Notification) string {
	return withID("/bookings", n.BookingID)
}

func reviewPath(n Notification) string {
	if strings.TrimSpace(n.FieldID) != "" {
		return withID("/fields", n.FieldID) + "/reviews"
	}
	return "/reviews"
}

func payoutPath(n Notification) string {
	return withID("/payouts", n.PayoutID)
}

func fieldPath(n Notification) string {
	if strings.TrimSpace(n.FieldID) == "" {
		return "/my-fields"
	}
	return withID("/fields", n.FieldID)
}

func withID(base, id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return base
	}
	return base + "/" + url.PathEscape(id)
}
