// internal/templates/components/cancellation/types.go
package cancellation

import (
	"net/url"
	"strconv"

	"github.com/codr1/Pawfield/internal/refund"
)

// PanelData drives the refund eligibility panel shown before a booking
// is cancelled.
type PanelData struct {
	BookingID string
	FieldID   int64
	// Booking is echoed into the cancel form as hidden inputs.
	Booking    refund.TimeInput
	Determined bool
	Eligible   bool
	Message    string
	Note       string
	// Estimate is true when the decision was computed locally.
	Estimate bool
	// ConfirmRequired shows the explicit "cancel without refund" step.
	ConfirmRequired bool
	ErrorMessage    string
}

func (p PanelData) StateClass() string {
	switch {
	case p.ErrorMessage != "" || !p.Determined:
		return "refund-panel--unknown"
	case p.Eligible:
		return "refund-panel--eligible"
	default:
		return "refund-panel--ineligible"
	}
}

// HiddenFields are the form values carried into the cancel request.
func (p PanelData) HiddenFields() [][2]string {
	var fields [][2]string
	if p.FieldID > 0 {
		fields = append(fields, [2]string{"fieldId", strconv.FormatInt(p.FieldID, 10)})
	}
	for _, f := range [][2]string{
		{"isoDate", p.Booking.ISODate},
		{"date", p.Booking.DisplayDate},
		{"startTime", p.Booking.StartTime},
		{"time", p.Booking.TimeRangeLabel},
	} {
		if f[1] != "" {
			fields = append(fields, f)
		}
	}
	return fields
}

func (p PanelData) CancelURL() string {
	return "/api/v1/bookings/" + url.PathEscape(p.BookingID) + "/cancel"
}

// NeedsConfirm pre-confirms the cancel form when the refund would be
// forfeited or is unknown.
func (p PanelData) NeedsConfirm() bool {
	return p.ConfirmRequired || !p.Determined || !p.Eligible
}

func (p PanelData) CancelLabel() string {
	if p.Determined && p.Eligible {
		return "Cancel booking"
	}
	return "Cancel without refund"
}

// CancelledData describes a completed cancellation.
type CancelledData struct {
	BookingID      string
	RefundEligible bool
	RefundStatus   string
	RefundAmount   float64
	Currency       string
}

func (c CancelledData) RefundLine() string {
	if !c.RefundEligible {
		return "No refund is due for this booking."
	}
	if c.RefundAmount > 0 {
		line := "A refund of " + strconv.FormatFloat(c.RefundAmount, 'f', 2, 64)
		if c.Currency != "" {
			line += " " + c.Currency
		}
		return line + " is on its way."
	}
	return "A full refund is on its way."
}
