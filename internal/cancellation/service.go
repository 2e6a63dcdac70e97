// internal/cancellation/service.go

// Package cancellation answers "can this booking still be refunded?" and
// carries out confirmed cancellations through the booking backend.
//
// The backend's answer is authoritative. When it cannot be reached the
// local resolver and evaluator produce an estimate with the same inclusive
// window semantics, flagged with a user-facing note.
package cancellation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/backend"
	"github.com/codr1/Pawfield/internal/db"
	"github.com/codr1/Pawfield/internal/email"
	"github.com/codr1/Pawfield/internal/refund"
	"github.com/codr1/Pawfield/internal/settings"
)

const (
	SourceServer   = "server"
	SourceEstimate = "estimate"
	SourceUnknown  = "unknown"

	FallbackNote = "We couldn't reach the booking service, so this refund check is an estimate based on your booking time."
)

var (
	ErrBookingIDRequired  = errors.New("booking id is required")
	ErrBackendUnavailable = errors.New("booking service is not configured")
)

// Backend is the subset of the booking API the service uses.
type Backend interface {
	Configured() bool
	RefundEligibility(ctx context.Context, bookingID, bearer string) (refund.Decision, error)
	CancelBooking(ctx context.Context, bookingID string, req backend.CancelRequest) (backend.CancelResult, error)
}

type WindowSource interface {
	WindowHours(ctx context.Context, fieldID int64) (float64, error)
}

type CancellationLog interface {
	LogCancellation(ctx context.Context, arg db.LogCancellationParams) (int64, error)
}

type Request struct {
	BookingID string           `json:"bookingId,omitempty"`
	FieldID   int64            `json:"fieldId,omitempty"`
	Booking   refund.TimeInput `json:"booking"`

	// BearerToken is the caller's session. Without it the backend is not
	// asked about the booking and only an estimate is returned.
	BearerToken string `json:"-"`
}

type Result struct {
	refund.Decision
	Source          string     `json:"source"`
	Note            string     `json:"note,omitempty"`
	WindowHours     *float64   `json:"windowHours,omitempty"`
	BookingStartsAt *time.Time `json:"bookingStartsAt,omitempty"`
}

// Determined reports whether the result carries a decision.
func (r Result) Determined() bool {
	return r.Source == SourceServer || r.Source == SourceEstimate
}

type CancelCommand struct {
	Request
	Reason  string
	Confirm bool
	// UserID and Email identify the session user; Email is the fallback
	// recipient when the backend does not return one.
	UserID string
	Email  string
}

type CancelOutcome struct {
	Eligibility Result               `json:"eligibility"`
	Booking     backend.CancelResult `json:"booking"`
	LogID       int64                `json:"-"`
	EmailSent   <-chan struct{}      `json:"-"`
}

// ConfirmationRequiredError stops a cancellation that would forfeit the
// refund, or whose refund status is unknown, until the user confirms.
type ConfirmationRequiredError struct {
	Eligibility Result
	Cause       error
}

func (e *ConfirmationRequiredError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("cancellation must be confirmed: %v", e.Cause)
	}
	return "cancellation is not refund-eligible and must be confirmed"
}

func (e *ConfirmationRequiredError) Unwrap() error { return e.Cause }

type Options struct {
	Backend  Backend
	Windows  WindowSource
	Resolver *refund.Resolver
	Log      CancellationLog
	Mailer   email.EmailSender
	Now      func() time.Time
}

type Service struct {
	backend  Backend
	windows  WindowSource
	resolver *refund.Resolver
	log      CancellationLog
	mailer   email.EmailSender
	now      func() time.Time
}

func NewService(opts Options) *Service {
	resolver := opts.Resolver
	if resolver == nil {
		resolver = refund.NewResolver(nil)
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		backend:  opts.Backend,
		windows:  opts.Windows,
		resolver: resolver,
		log:      opts.Log,
		mailer:   opts.Mailer,
		now:      now,
	}
}

func (s *Service) backendReady() bool {
	return s.backend != nil && s.backend.Configured()
}

// CheckEligibility asks the backend first, as the caller, and falls back to
// a local estimate only when the backend cannot answer. Definite backend
// answers such as 404 or 403 are returned as *backend.StatusError.
// It returns refund.ErrUnresolved or settings.ErrWindowUnavailable when no
// decision can be made; the returned Result still carries the note.
func (s *Service) CheckEligibility(ctx context.Context, req Request) (Result, error) {
	logger := log.Ctx(ctx)

	var note string
	if req.BookingID != "" && req.BearerToken != "" && s.backendReady() {
		decision, err := s.backend.RefundEligibility(ctx, req.BookingID, req.BearerToken)
		if err == nil {
			return Result{Decision: decision, Source: SourceServer}, nil
		}
		if !backend.IsUnavailable(err) {
			return Result{Source: SourceUnknown}, fmt.Errorf("refund eligibility: %w", err)
		}
		logger.Warn().Err(err).Str("booking_id", req.BookingID).Msg("Server refund eligibility check failed, using estimate")
		note = FallbackNote
	}

	return s.Estimate(ctx, req, note)
}

// Estimate evaluates the booking locally against the stored window.
func (s *Service) Estimate(ctx context.Context, req Request, note string) (Result, error) {
	indeterminate := Result{Source: SourceUnknown, Note: note}

	resolved, err := s.resolver.Resolve(req.Booking)
	if err != nil {
		return indeterminate, err
	}
	if s.windows == nil {
		return indeterminate, settings.ErrWindowUnavailable
	}
	hours, err := s.windows.WindowHours(ctx, req.FieldID)
	if err != nil {
		return indeterminate, err
	}

	return Result{
		Decision:        refund.Evaluate(resolved, s.now(), hours),
		Source:          SourceEstimate,
		Note:            note,
		WindowHours:     &hours,
		BookingStartsAt: &resolved,
	}, nil
}

// IsIndeterminate reports errors that mean "no decision" rather than failure.
func IsIndeterminate(err error) bool {
	return errors.Is(err, refund.ErrUnresolved) || errors.Is(err, settings.ErrWindowUnavailable)
}

// Cancel re-checks eligibility, requires confirmation when the refund would
// be forfeited or is unknown, and delegates the cancellation to the backend.
func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) (CancelOutcome, error) {
	logger := log.Ctx(ctx).With().Str("booking_id", cmd.BookingID).Logger()

	if strings.TrimSpace(cmd.BookingID) == "" {
		return CancelOutcome{}, ErrBookingIDRequired
	}
	if !s.backendReady() {
		return CancelOutcome{}, ErrBackendUnavailable
	}

	eligibility, err := s.CheckEligibility(ctx, cmd.Request)
	switch {
	case err == nil:
		if !eligibility.IsEligible && !cmd.Confirm {
			return CancelOutcome{}, &ConfirmationRequiredError{Eligibility: eligibility}
		}
	case IsIndeterminate(err):
		if !cmd.Confirm {
			return CancelOutcome{}, &ConfirmationRequiredError{Eligibility: eligibility, Cause: err}
		}
		logger.Warn().Err(err).Msg("Cancelling with unknown refund eligibility")
	default:
		return CancelOutcome{}, err
	}

	booking, err := s.backend.CancelBooking(ctx, cmd.BookingID, backend.CancelRequest{
		Reason:      strings.TrimSpace(cmd.Reason),
		BearerToken: cmd.BearerToken,
	})
	if err != nil {
		return CancelOutcome{}, fmt.Errorf("cancel booking: %w", err)
	}

	outcome := CancelOutcome{Eligibility: eligibility, Booking: booking}

	if s.log != nil {
		id, err := s.log.LogCancellation(ctx, logParams(cmd, eligibility, s.now().UTC()))
		if err != nil {
			// Best effort once the backend has cancelled.
			logger.Error().Err(err).Msg("Failed to log cancellation")
		}
		outcome.LogID = id
	}

	recipient := booking.UserEmail
	if strings.TrimSpace(recipient) == "" {
		recipient = cmd.Email
	}
	outcome.EmailSent = email.SendCancellationEmail(ctx, s.mailer, recipient, cancellationMessage(cmd, eligibility, booking), &logger)

	logger.Info().
		Bool("refund_eligible", eligibility.IsEligible).
		Str("decision_source", eligibility.Source).
		Str("status", booking.Status).
		Msg("Booking cancelled")

	return outcome, nil
}

func logParams(cmd CancelCommand, eligibility Result, now time.Time) db.LogCancellationParams {
	params := db.LogCancellationParams{
		BookingID:        cmd.BookingID,
		FieldID:          cmd.FieldID,
		CancelledBy:      cmd.UserID,
		CancelledAt:      now,
		HoursBeforeStart: eligibility.HoursUntilBooking,
		RefundEligible:   eligibility.Determined() && eligibility.IsEligible,
		DecisionSource:   eligibility.Source,
	}
	if eligibility.BookingStartsAt != nil {
		params.BookingStartsAt = sql.NullTime{Time: eligibility.BookingStartsAt.UTC(), Valid: true}
	}
	if eligibility.WindowHours != nil {
		params.WindowHours = sql.NullFloat64{Float64: *eligibility.WindowHours, Valid: true}
	}
	if reason := strings.TrimSpace(cmd.Reason); reason != "" {
		params.Reason = sql.NullString{String: reason, Valid: true}
	}
	return params
}

func cancellationMessage(cmd CancelCommand, eligibility Result, booking backend.CancelResult) email.Message {
	date := booking.Date
	if date == "" {
		date = cmd.Booking.DisplayDate
	}
	timeSlot := booking.TimeSlot
	if timeSlot == "" {
		timeSlot = firstNonEmpty(cmd.Booking.TimeRangeLabel, cmd.Booking.StartTime)
	}
	var policy string
	if eligibility.WindowHours != nil {
		policy = email.PolicySummary(*eligibility.WindowHours)
	}
	return email.BuildCancellationEmail(email.CancellationDetails{
		FieldName:      booking.FieldName,
		Date:           date,
		TimeSlot:       timeSlot,
		Reason:         cmd.Reason,
		RefundEligible: eligibility.Determined() && eligibility.IsEligible,
		RefundAmount:   booking.RefundAmount,
		Currency:       booking.Currency,
		Policy:         policy,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
