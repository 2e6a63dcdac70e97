package cancellation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/codr1/Pawfield/internal/backend"
	"github.com/codr1/Pawfield/internal/refund"
	"github.com/codr1/Pawfield/internal/settings"
	"github.com/codr1/Pawfield/internal/testutil"
)

var testNow = time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

type fakeBackend struct {
	configured  bool
	decision    refund.Decision
	decisionErr error
	cancel      backend.CancelResult
	cancelErr   error

	eligibilityCalls int
	lastBearer       string
	cancelCalls      int
	lastCancel       backend.CancelRequest
}

func (f *fakeBackend) Configured() bool { return f.configured }

func (f *fakeBackend) RefundEligibility(_ context.Context, _ string, bearer string) (refund.Decision, error) {
	f.eligibilityCalls++
	f.lastBearer = bearer
	return f.decision, f.decisionErr
}

func (f *fakeBackend) CancelBooking(_ context.Context, bookingID string, req backend.CancelRequest) (backend.CancelResult, error) {
	f.cancelCalls++
	f.lastCancel = req
	if f.cancelErr != nil {
		return backend.CancelResult{}, f.cancelErr
	}
	result := f.cancel
	if result.BookingID == "" {
		result.BookingID = bookingID
	}
	return result, nil
}

type fixedWindows struct {
	hours float64
	err   error
}

func (f fixedWindows) WindowHours(context.Context, int64) (float64, error) {
	return f.hours, f.err
}

type recordingSender struct {
	mu        sync.Mutex
	recipient string
	body      string
}

func (r *recordingSender) Send(_ context.Context, recipient, _ string, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recipient = recipient
	r.body = body
	return nil
}

func newService(b Backend, windows WindowSource, opts ...func(*Options)) *Service {
	o := Options{
		Backend:  b,
		Windows:  windows,
		Resolver: refund.NewResolver(time.UTC),
		Now:      func() time.Time { return testNow },
	}
	for _, fn := range opts {
		fn(&o)
	}
	return NewService(o)
}

// 16 Jan 2025 11:00 is 25 hours after testNow.
var tomorrow = refund.TimeInput{DisplayDate: "16 Jan 2025", StartTime: "11:00 AM", TimeRangeLabel: "11:00AM - 12:00PM"}

// 16 Jan 2025 09:00 is 23 hours after testNow.
var tooSoon = refund.TimeInput{DisplayDate: "16 Jan 2025", StartTime: "9:00 AM"}

func TestCheckEligibility_PrefersServerDecision(t *testing.T) {
	server := refund.Decision{IsEligible: false, HoursUntilBooking: 2, Message: "Server says no"}
	b := &fakeBackend{configured: true, decision: server}

	result, err := newService(b, fixedWindows{hours: 24}).CheckEligibility(context.Background(), Request{
		BookingID:   "bk_1",
		Booking:     tomorrow,
		BearerToken: "session-token",
	})
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}

	want := Result{Decision: server, Source: SourceServer}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("result mismatch (-want +got):\n%s", diff)
	}
	if b.lastBearer != "session-token" {
		t.Fatalf("expected the caller's session to be forwarded, got %q", b.lastBearer)
	}
}

func TestCheckEligibility_AnonymousSkipsServer(t *testing.T) {
	b := &fakeBackend{configured: true, decision: refund.Decision{IsEligible: true, Message: "Server says yes"}}

	result, err := newService(b, fixedWindows{hours: 24}).CheckEligibility(context.Background(), Request{
		BookingID: "someone-elses-booking",
		Booking:   tooSoon,
	})
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if b.eligibilityCalls != 0 {
		t.Fatalf("expected no server call without a session, got %d", b.eligibilityCalls)
	}
	if result.Source != SourceEstimate || result.IsEligible || result.Note != "" {
		t.Fatalf("expected a plain estimate, got %+v", result)
	}
}

func TestCheckEligibility_DefiniteBackendAnswerIsReturned(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", 404},
		{"not owner", 403},
		{"bad request", 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &fakeBackend{configured: true, decisionErr: &backend.StatusError{StatusCode: tt.status}}

			result, err := newService(b, fixedWindows{hours: 24}).CheckEligibility(context.Background(), Request{
				BookingID:   "bk_missing",
				Booking:     tomorrow,
				BearerToken: "session-token",
			})
			var statusErr *backend.StatusError
			if !errors.As(err, &statusErr) || statusErr.StatusCode != tt.status {
				t.Fatalf("expected status %d error, got %v", tt.status, err)
			}
			if result.Determined() || result.Note != "" {
				t.Fatalf("expected no estimate for a definite answer, got %+v", result)
			}
		})
	}
}

func TestCheckEligibility_FallsBackWithNote(t *testing.T) {
	b := &fakeBackend{configured: true, decisionErr: &backend.StatusError{StatusCode: 503}}

	result, err := newService(b, fixedWindows{hours: 24}).CheckEligibility(context.Background(), Request{
		BookingID:   "bk_1",
		Booking:     tomorrow,
		BearerToken: "session-token",
	})
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if result.Source != SourceEstimate || result.Note != FallbackNote {
		t.Fatalf("expected estimate with note, got %+v", result)
	}
	if !result.IsEligible || result.HoursUntilBooking != 25 {
		t.Fatalf("expected eligible with 25 hours, got %+v", result.Decision)
	}
	if result.WindowHours == nil || *result.WindowHours != 24 {
		t.Fatalf("expected window 24, got %v", result.WindowHours)
	}
	if result.BookingStartsAt == nil || !result.BookingStartsAt.Equal(time.Date(2025, 1, 16, 11, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected booking start %v", result.BookingStartsAt)
	}
}

func TestCheckEligibility_NoBookingIDSkipsServer(t *testing.T) {
	b := &fakeBackend{configured: true}

	result, err := newService(b, fixedWindows{hours: 24}).CheckEligibility(context.Background(), Request{Booking: tooSoon})
	if err != nil {
		t.Fatalf("check eligibility: %v", err)
	}
	if b.eligibilityCalls != 0 {
		t.Fatalf("expected no server call, got %d", b.eligibilityCalls)
	}
	if result.IsEligible || result.Source != SourceEstimate || result.Note != "" {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCheckEligibility_Indeterminate(t *testing.T) {
	svc := newService(nil, fixedWindows{hours: 24})
	_, err := svc.CheckEligibility(context.Background(), Request{Booking: refund.TimeInput{DisplayDate: "someday"}})
	if !errors.Is(err, refund.ErrUnresolved) || !IsIndeterminate(err) {
		t.Fatalf("expected unresolved, got %v", err)
	}

	svc = newService(nil, fixedWindows{err: settings.ErrWindowUnavailable})
	result, err := svc.CheckEligibility(context.Background(), Request{Booking: tomorrow})
	if !errors.Is(err, settings.ErrWindowUnavailable) {
		t.Fatalf("expected window unavailable, got %v", err)
	}
	if result.Determined() {
		t.Fatalf("expected indeterminate result, got %+v", result)
	}
}

func TestCancel_RequiresConfirmationWhenIneligible(t *testing.T) {
	b := &fakeBackend{configured: true, decisionErr: errors.New("offline")}
	svc := newService(b, fixedWindows{hours: 24})

	_, err := svc.Cancel(context.Background(), CancelCommand{Request: Request{BookingID: "bk_2", Booking: tooSoon, BearerToken: "session-token"}})
	var confirm *ConfirmationRequiredError
	if !errors.As(err, &confirm) {
		t.Fatalf("expected ConfirmationRequiredError, got %v", err)
	}
	if confirm.Eligibility.IsEligible || confirm.Eligibility.HoursUntilBooking != 23 {
		t.Fatalf("unexpected eligibility %+v", confirm.Eligibility)
	}
	if b.cancelCalls != 0 {
		t.Fatalf("expected backend cancel not to be called")
	}
}

func TestCancel_RequiresConfirmationWhenUnknown(t *testing.T) {
	b := &fakeBackend{configured: true, decisionErr: errors.New("offline")}
	svc := newService(b, fixedWindows{err: settings.ErrWindowUnavailable})

	_, err := svc.Cancel(context.Background(), CancelCommand{Request: Request{BookingID: "bk_3", Booking: tomorrow, BearerToken: "session-token"}})
	var confirm *ConfirmationRequiredError
	if !errors.As(err, &confirm) || !errors.Is(err, settings.ErrWindowUnavailable) {
		t.Fatalf("expected confirmation wrapping window error, got %v", err)
	}
}

func TestCancel_BookingMissingOnBackend(t *testing.T) {
	b := &fakeBackend{configured: true, decisionErr: &backend.StatusError{StatusCode: 404}}

	_, err := newService(b, fixedWindows{hours: 24}).Cancel(context.Background(), CancelCommand{
		Request: Request{BookingID: "bk_gone", Booking: tomorrow, BearerToken: "session-token"},
		Confirm: true,
	})
	var statusErr *backend.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 404 {
		t.Fatalf("expected the backend 404, got %v", err)
	}
	if b.cancelCalls != 0 {
		t.Fatal("expected no cancellation for a booking the backend does not know")
	}
}

func TestCancel_Preconditions(t *testing.T) {
	svc := newService(&fakeBackend{configured: true}, fixedWindows{hours: 24})
	if _, err := svc.Cancel(context.Background(), CancelCommand{}); !errors.Is(err, ErrBookingIDRequired) {
		t.Fatalf("expected ErrBookingIDRequired, got %v", err)
	}

	svc = newService(&fakeBackend{}, fixedWindows{hours: 24})
	if _, err := svc.Cancel(context.Background(), CancelCommand{Request: Request{BookingID: "bk"}}); !errors.Is(err, ErrBackendUnavailable) {
		t.Fatalf("expected ErrBackendUnavailable, got %v", err)
	}
}

func TestCancel_BackendFailureIsReturned(t *testing.T) {
	b := &fakeBackend{
		configured: true,
		decision:   refund.Decision{IsEligible: true, HoursUntilBooking: 30, Message: "ok"},
		cancelErr:  &backend.StatusError{StatusCode: 409, Body: "already cancelled"},
	}
	_, err := newService(b, fixedWindows{hours: 24}).Cancel(context.Background(), CancelCommand{
		Request: Request{BookingID: "bk_4", Booking: tomorrow, BearerToken: "session-token"},
	})
	var statusErr *backend.StatusError
	if !errors.As(err, &statusErr) || statusErr.StatusCode != 409 {
		t.Fatalf("expected wrapped StatusError, got %v", err)
	}
}

func TestCancel_ConfirmedLogsAndEmails(t *testing.T) {
	database := testutil.NewTestDB(t)
	sender := &recordingSender{}
	b := &fakeBackend{
		configured:  true,
		decisionErr: errors.New("offline"),
		cancel: backend.CancelResult{
			Status:    "cancelled",
			FieldName: "Meadow Run",
		},
	}
	svc := newService(b, fixedWindows{hours: 24}, func(o *Options) {
		o.Log = database.Queries
		o.Mailer = sender
	})

	outcome, err := svc.Cancel(context.Background(), CancelCommand{
		Request: Request{BookingID: "bk_5", FieldID: 7, Booking: tooSoon, BearerToken: "session-token"},
		Confirm: true,
		Reason:  "  Vet appointment ",
		UserID:  "user_1",
		Email:   "owner@test.com",
	})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if b.lastCancel.Reason != "Vet appointment" || b.lastCancel.BearerToken != "session-token" {
		t.Fatalf("unexpected cancel request %+v", b.lastCancel)
	}
	if outcome.Booking.BookingID != "bk_5" || outcome.LogID == 0 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}

	entries, err := database.Queries.ListCancellationsForBooking(context.Background(), "bk_5")
	if err != nil {
		t.Fatalf("list cancellations: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if entry.FieldID != 7 || entry.CancelledBy != "user_1" || entry.RefundEligible || entry.DecisionSource != SourceEstimate {
		t.Fatalf("unexpected log entry %+v", entry)
	}
	if !entry.WindowHours.Valid || entry.WindowHours.Float64 != 24 || entry.HoursBeforeStart != 23 {
		t.Fatalf("unexpected window data %+v", entry)
	}

	select {
	case <-outcome.EmailSent:
	case <-time.After(time.Second):
		t.Fatal("expected cancellation email")
	}
	sender.mu.Lock()
	defer sender.mu.Unlock()
	if sender.recipient != "owner@test.com" {
		t.Fatalf("expected session email as recipient, got %q", sender.recipient)
	}
	for _, want := range []string{"Field: Meadow Run", "Date: 16 Jan 2025", "Time: 9:00 AM", "Refund: not eligible"} {
		if !strings.Contains(sender.body, want) {
			t.Errorf("expected email body to contain %q, got:\n%s", want, sender.body)
		}
	}
}
