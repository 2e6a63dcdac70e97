// internal/api/cancellation/handlers.go
package cancellation

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/api/apiutil"
	"github.com/codr1/Pawfield/internal/api/auth"
	"github.com/codr1/Pawfield/internal/api/authz"
	"github.com/codr1/Pawfield/internal/api/htmx"
	"github.com/codr1/Pawfield/internal/backend"
	"github.com/codr1/Pawfield/internal/cancellation"
	"github.com/codr1/Pawfield/internal/refund"
	"github.com/codr1/Pawfield/internal/request"
	"github.com/codr1/Pawfield/internal/settings"
	cancellationtempl "github.com/codr1/Pawfield/internal/templates/components/cancellation"
)

const (
	unresolvedMessage        = "We couldn't work out when this booking starts, so refund eligibility can't be checked."
	windowUnavailableMessage = "The refund policy is temporarily unavailable. Please try again shortly."
	invalidFieldMessage      = "fieldId must be a non-negative integer"
	maxReasonLength          = 500
)

type Service interface {
	CheckEligibility(ctx context.Context, req cancellation.Request) (cancellation.Result, error)
	Cancel(ctx context.Context, cmd cancellation.CancelCommand) (cancellation.CancelOutcome, error)
}

var (
	service     Service
	serviceOnce sync.Once
)

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(svc Service) {
	if svc == nil {
		return
	}
	serviceOnce.Do(func() {
		service = svc
	})
}

func loadService() Service {
	return service
}

type cancelRequest struct {
	FieldID int64            `json:"fieldId,omitempty"`
	Booking refund.TimeInput `json:"booking"`
	Reason  string           `json:"reason,omitempty"`
	Confirm bool             `json:"confirm,omitempty"`
}

type confirmationResponse struct {
	ConfirmationRequired bool                `json:"confirmationRequired"`
	Eligibility          cancellation.Result `json:"eligibility"`
	Error                string              `json:"error,omitempty"`
}

// POST /api/v1/refund-eligibility
func HandleRefundEligibility(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Cancellation service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	req, err := decodeEligibilityRequest(r)
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
		return
	}
	req.BearerToken = auth.SessionToken(r)

	result, err := svc.CheckEligibility(r.Context(), req)
	if err != nil {
		handlerErr := eligibilityError(err)
		logEvent := logger.Warn()
		if handlerErr.Status >= http.StatusInternalServerError && !errors.Is(err, settings.ErrWindowUnavailable) {
			logEvent = logger.Error()
		}
		logEvent.Err(err).Str("booking_id", req.BookingID).Int64("field_id", req.FieldID).Msg("Refund eligibility could not be determined")

		if htmx.IsRequest(r) {
			data := cancellationtempl.PanelData{ErrorMessage: handlerErr.Message, Note: result.Note}
			// The booking can still be cancelled without refund when only the decision is missing.
			if cancellation.IsIndeterminate(err) {
				data.BookingID = req.BookingID
				data.FieldID = req.FieldID
				data.Booking = req.Booking
			}
			apiutil.RenderHTMLComponent(r.Context(), w, cancellationtempl.RefundPanel(data), nil, "Failed to render refund panel", "Failed to render refund eligibility")
			return
		}
		apiutil.WriteError(w, r, handlerErr)
		return
	}

	logger.Debug().
		Str("booking_id", req.BookingID).
		Str("source", result.Source).
		Bool("eligible", result.IsEligible).
		Float64("hours_until_booking", result.HoursUntilBooking).
		Msg("Refund eligibility checked")

	if htmx.IsRequest(r) {
		apiutil.RenderHTMLComponent(r.Context(), w, cancellationtempl.RefundPanel(panelData(req, result)), nil, "Failed to render refund panel", "Failed to render refund eligibility")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, result); err != nil {
		logger.Error().Err(err).Msg("Failed to write refund eligibility response")
	}
}

// POST /api/v1/bookings/{id}/cancel
func HandleCancelBooking(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	svc := loadService()
	if svc == nil {
		logger.Error().Msg("Cancellation service not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	user, err := authz.RequireUser(r.Context())
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bookingID := strings.TrimSpace(r.PathValue("id"))
	if bookingID == "" {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Booking ID is required"})
		return
	}

	req, err := decodeCancelRequest(r)
	if err != nil {
		apiutil.WriteError(w, r, apiutil.HandlerError{Status: http.StatusBadRequest, Message: err.Error(), Err: err})
		return
	}

	target := cancellation.Request{
		BookingID:   bookingID,
		FieldID:     req.FieldID,
		Booking:     req.Booking,
		BearerToken: auth.SessionToken(r),
	}
	outcome, err := svc.Cancel(r.Context(), cancellation.CancelCommand{
		Request: target,
		Reason:  req.Reason,
		Confirm: req.Confirm,
		UserID:  user.ID,
		Email:   user.Email,
	})
	if err != nil {
		var confirmErr *cancellation.ConfirmationRequiredError
		if errors.As(err, &confirmErr) {
			writeConfirmationRequired(w, r, target, confirmErr)
			return
		}
		handlerErr := cancelError(err)
		logger.Warn().Err(err).Str("booking_id", bookingID).Int("status", handlerErr.Status).Msg("Booking cancellation failed")
		if htmx.IsRequest(r) {
			apiutil.RenderHTMLComponent(r.Context(), w, cancellationtempl.RefundPanel(cancellationtempl.PanelData{
				BookingID:    bookingID,
				ErrorMessage: handlerErr.Message,
			}), nil, "Failed to render refund panel", "Failed to render cancellation")
			return
		}
		apiutil.WriteError(w, r, handlerErr)
		return
	}

	if htmx.IsRequest(r) {
		apiutil.RenderHTMLComponent(r.Context(), w, cancellationtempl.CancelledPanel(cancellationtempl.CancelledData{
			BookingID:      bookingID,
			RefundEligible: outcome.Eligibility.Determined() && outcome.Eligibility.IsEligible,
			RefundStatus:   outcome.Booking.RefundStatus,
			RefundAmount:   outcome.Booking.RefundAmount,
			Currency:       strings.ToUpper(outcome.Booking.Currency),
		}), map[string]string{htmx.TriggerHeader: "booking-cancelled"}, "Failed to render cancelled panel", "Failed to render cancellation")
		return
	}
	if err := apiutil.WriteJSON(w, http.StatusOK, outcome); err != nil {
		logger.Error().Err(err).Str("booking_id", bookingID).Msg("Failed to write cancellation response")
	}
}

func writeConfirmationRequired(w http.ResponseWriter, r *http.Request, req cancellation.Request, confirmErr *cancellation.ConfirmationRequiredError) {
	logger := log.Ctx(r.Context())
	logger.Info().Str("booking_id", req.BookingID).Msg("Cancellation needs confirmation")

	if htmx.IsRequest(r) {
		data := panelData(req, confirmErr.Eligibility)
		data.ConfirmRequired = true
		if confirmErr.Cause != nil {
			data.ErrorMessage = eligibilityError(confirmErr.Cause).Message
		}
		apiutil.RenderHTMLComponent(r.Context(), w, cancellationtempl.RefundPanel(data), nil, "Failed to render refund panel", "Failed to render cancellation")
		return
	}

	resp := confirmationResponse{ConfirmationRequired: true, Eligibility: confirmErr.Eligibility}
	if confirmErr.Cause != nil {
		resp.Error = eligibilityError(confirmErr.Cause).Message
	}
	if err := apiutil.WriteJSON(w, http.StatusConflict, resp); err != nil {
		logger.Error().Err(err).Msg("Failed to write confirmation response")
	}
}

func panelData(req cancellation.Request, result cancellation.Result) cancellationtempl.PanelData {
	return cancellationtempl.PanelData{
		BookingID:  req.BookingID,
		FieldID:    req.FieldID,
		Booking:    req.Booking,
		Determined: result.Determined(),
		Eligible:   result.IsEligible,
		Message:    result.Message,
		Note:       result.Note,
		Estimate:   result.Source == cancellation.SourceEstimate,
	}
}

func eligibilityError(err error) apiutil.HandlerError {
	switch {
	case errors.Is(err, refund.ErrUnresolved):
		return apiutil.HandlerError{Status: http.StatusUnprocessableEntity, Message: unresolvedMessage, Err: err}
	case errors.Is(err, settings.ErrWindowUnavailable):
		return apiutil.HandlerError{Status: http.StatusServiceUnavailable, Message: windowUnavailableMessage, Err: err}
	case errors.Is(err, settings.ErrInvalidFieldID):
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: invalidFieldMessage, Err: err}
	}
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Booking not found", Err: err}
		case http.StatusForbidden, http.StatusUnauthorized:
			return apiutil.HandlerError{Status: http.StatusForbidden, Message: "You can't view this booking", Err: err}
		}
		if statusErr.StatusCode < http.StatusInternalServerError {
			return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "The booking service rejected this refund check", Err: err}
		}
		return apiutil.HandlerError{Status: http.StatusBadGateway, Message: "Booking service error", Err: err}
	}
	return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to check refund eligibility", Err: err}
}

func cancelError(err error) apiutil.HandlerError {
	if errors.Is(err, cancellation.ErrBookingIDRequired) {
		return apiutil.HandlerError{Status: http.StatusBadRequest, Message: "Booking ID is required", Err: err}
	}
	if errors.Is(err, cancellation.ErrBackendUnavailable) {
		return apiutil.HandlerError{Status: http.StatusServiceUnavailable, Message: "Cancellations are temporarily unavailable", Err: err}
	}
	var statusErr *backend.StatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusNotFound:
			return apiutil.HandlerError{Status: http.StatusNotFound, Message: "Booking not found", Err: err}
		case http.StatusForbidden, http.StatusUnauthorized:
			return apiutil.HandlerError{Status: http.StatusForbidden, Message: "You can't cancel this booking", Err: err}
		case http.StatusConflict, http.StatusBadRequest:
			msg := statusErr.Body
			if msg == "" {
				msg = "This booking can't be cancelled"
			}
			return apiutil.HandlerError{Status: http.StatusConflict, Message: msg, Err: err}
		}
		return apiutil.HandlerError{Status: http.StatusBadGateway, Message: "Booking service error", Err: err}
	}
	return apiutil.HandlerError{Status: http.StatusInternalServerError, Message: "Failed to cancel booking", Err: err}
}

func decodeEligibilityRequest(r *http.Request) (cancellation.Request, error) {
	var req cancellation.Request
	if apiutil.HasJSONBody(r) {
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			return req, errors.New("invalid JSON body")
		}
		if req.FieldID < 0 {
			return req, apiutil.FieldError{Field: "fieldId", Reason: "must be a non-negative integer"}
		}
		return req, nil
	}

	if err := r.ParseForm(); err != nil {
		return req, errors.New("invalid form data")
	}
	fieldID, err := request.FieldIDFromForm(r)
	if err != nil {
		return req, apiutil.FieldError{Field: "fieldId", Reason: "must be a non-negative integer"}
	}
	req.BookingID = strings.TrimSpace(r.FormValue("bookingId"))
	req.FieldID = fieldID
	req.Booking = timeInputFromForm(r)
	return req, nil
}

func decodeCancelRequest(r *http.Request) (cancelRequest, error) {
	var req cancelRequest
	if apiutil.HasJSONBody(r) {
		if err := apiutil.DecodeJSON(r, &req); err != nil {
			return req, errors.New("invalid JSON body")
		}
		if req.FieldID < 0 {
			return req, apiutil.FieldError{Field: "fieldId", Reason: "must be a non-negative integer"}
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return req, errors.New("invalid form data")
		}
		fieldID, err := request.FieldIDFromForm(r)
		if err != nil {
			return req, apiutil.FieldError{Field: "fieldId", Reason: "must be a non-negative integer"}
		}
		req.FieldID = fieldID
		req.Booking = timeInputFromForm(r)
		req.Reason = r.FormValue("reason")
		req.Confirm = parseBool(r.FormValue("confirm"))
	}

	if parseBool(r.URL.Query().Get("confirm")) {
		req.Confirm = true
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if len(req.Reason) > maxReasonLength {
		return req, apiutil.FieldError{Field: "reason", Reason: "must be at most 500 characters"}
	}
	return req, nil
}

func timeInputFromForm(r *http.Request) refund.TimeInput {
	return refund.TimeInput{
		ISODate:        strings.TrimSpace(r.FormValue("isoDate")),
		DisplayDate:    strings.TrimSpace(r.FormValue("date")),
		StartTime:      strings.TrimSpace(r.FormValue("startTime")),
		TimeRangeLabel: strings.TrimSpace(r.FormValue("time")),
	}
}

func parseBool(raw string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(raw))
	return err == nil && v
}
