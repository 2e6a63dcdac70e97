package cancellation

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/codr1/Pawfield/internal/refund"
)

func render(t *testing.T, data PanelData) string {
	t.Helper()
	var buf bytes.Buffer
	if err := RefundPanel(data).Render(context.Background(), &buf); err != nil {
		t.Fatalf("render: %v", err)
	}
	return buf.String()
}

func TestRefundPanel_Eligible(t *testing.T) {
	html := render(t, PanelData{
		BookingID:  "bk_1",
		Determined: true,
		Eligible:   true,
		Message:    "This booking can be cancelled for a full refund.",
	})

	for _, want := range []string{
		"refund-panel--eligible",
		`hx-post="/api/v1/bookings/bk_1/cancel"`,
		"Cancel booking",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in:\n%s", want, html)
		}
	}
	if strings.Contains(html, `name="confirm"`) {
		t.Errorf("eligible cancellation should not pre-confirm:\n%s", html)
	}
}

func TestRefundPanel_IneligibleNeedsConfirm(t *testing.T) {
	html := render(t, PanelData{
		BookingID:  "bk_2",
		Determined: true,
		Message:    "Not eligible <b>now</b>",
		Note:       "Estimate only",
		Estimate:   true,
	})

	for _, want := range []string{
		"refund-panel--ineligible",
		`name="confirm" value="true"`,
		"Cancel without refund",
		"Not eligible &lt;b&gt;now&lt;/b&gt;",
		"Estimate only",
		"Estimated from your booking time.",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in:\n%s", want, html)
		}
	}
}

func TestRefundPanel_ErrorWithoutBooking(t *testing.T) {
	html := render(t, PanelData{ErrorMessage: "We couldn't work out when this booking starts."})

	if !strings.Contains(html, "refund-panel--unknown") || !strings.Contains(html, `role="alert"`) {
		t.Fatalf("expected unknown state with alert:\n%s", html)
	}
	if strings.Contains(html, "<form") {
		t.Fatalf("expected no cancel form without a booking id:\n%s", html)
	}
}

func TestCancelledPanel(t *testing.T) {
	var buf bytes.Buffer
	err := CancelledPanel(CancelledData{RefundEligible: true, RefundAmount: 12, Currency: "GBP"}).Render(context.Background(), &buf)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "A refund of 12.00 GBP is on its way.") {
		t.Fatalf("unexpected html:\n%s", buf.String())
	}

	if got := (CancelledData{}).RefundLine(); got != "No refund is due for this booking." {
		t.Fatalf("unexpected refund line %q", got)
	}
}

func TestRefundPanel_CarriesBookingFields(t *testing.T) {
	html := render(t, PanelData{
		BookingID:  "bk_5",
		FieldID:    4,
		Determined: true,
		Eligible:   true,
		Booking: refund.TimeInput{
			DisplayDate:    "16 Jan 2025",
			TimeRangeLabel: "11:00 AM - 12:00 PM",
		},
	})

	for _, want := range []string{
		`<input type="hidden" name="fieldId" value="4">`,
		`<input type="hidden" name="date" value="16 Jan 2025">`,
		`<input type="hidden" name="time" value="11:00 AM - 12:00 PM">`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("expected %q in:\n%s", want, html)
		}
	}
	if strings.Contains(html, `name="isoDate"`) || strings.Contains(html, `name="startTime"`) {
		t.Errorf("empty booking fields should be omitted:\n%s", html)
	}
}
