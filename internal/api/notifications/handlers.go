// internal/api/notifications/handlers.go
package notifications

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/api/apiutil"
	"github.com/codr1/Pawfield/internal/api/htmx"
	"github.com/codr1/Pawfield/internal/notifications"
)

type routeResponse struct {
	Path  string `json:"path"`
	Known bool   `json:"known"`
}

// GET /api/v1/notifications/route?type=...&bookingId=...
//
// HTMX callers are redirected client-side with HX-Redirect; JSON callers
// get the path.
func HandleNotificationRoute(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	q := r.URL.Query()
	n := notifications.Notification{
		Type:           strings.TrimSpace(q.Get("type")),
		BookingID:      q.Get("bookingId"),
		FieldID:        q.Get("fieldId"),
		ConversationID: q.Get("conversationId"),
		ReviewID:       q.Get("reviewId"),
		PayoutID:       q.Get("payoutId"),
	}
	path := notifications.Route(n)
	known := notifications.Known(n.Type)
	if !known {
		logger.Debug().Str("notification_type", n.Type).Msg("Unknown notification type routed to list")
	}

	if htmx.IsRequest(r) {
		htmx.Redirect(w, path)
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, routeResponse{Path: path, Known: known}); err != nil {
		logger.Error().Err(err).Msg("Failed to write notification route response")
	}
}
