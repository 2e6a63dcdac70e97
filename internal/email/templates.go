// internal/email/templates.go
package email

import (
	"fmt"
	"strconv"
	"strings"
)

type Message struct {
	Subject string
	Body    string
}

type CancellationDetails struct {
	FieldName      string
	Date           string
	TimeSlot       string
	Reason         string
	RefundEligible bool
	RefundAmount   float64
	Currency       string
	Policy         string
}

// PolicySummary describes a cancellation window in one sentence.
func PolicySummary(windowHours float64) string {
	if windowHours <= 0 {
		return "Cancel any time before start for a full refund."
	}
	return fmt.Sprintf("Cancel at least %s hours before start for a full refund.", strconv.FormatFloat(windowHours, 'f', -1, 64))
}

func BuildCancellationEmail(details CancellationDetails) Message {
	fieldName := strings.TrimSpace(details.FieldName)
	if fieldName == "" {
		fieldName = "your field"
	}
	date := strings.TrimSpace(details.Date)
	if date == "" {
		date = "TBD"
	}
	timeSlot := strings.TrimSpace(details.TimeSlot)
	if timeSlot == "" {
		timeSlot = "TBD"
	}

	subject := fmt.Sprintf("Booking Cancelled - %s", fieldName)

	lines := []string{
		"Your field booking has been cancelled.",
		"",
		fmt.Sprintf("Field: %s", fieldName),
		fmt.Sprintf("Date: %s", date),
		fmt.Sprintf("Time: %s", timeSlot),
	}

	if reason := strings.TrimSpace(details.Reason); reason != "" {
		lines = append(lines, fmt.Sprintf("Reason: %s", reason))
	}

	switch {
	case details.RefundEligible && details.RefundAmount > 0:
		currency := strings.ToUpper(strings.TrimSpace(details.Currency))
		lines = append(lines, strings.TrimSpace(fmt.Sprintf("Refund: %.2f %s (full refund)", details.RefundAmount, currency)))
	case details.RefundEligible:
		lines = append(lines, "Refund: full refund")
	default:
		lines = append(lines, "Refund: not eligible")
	}

	if policy := strings.TrimSpace(details.Policy); policy != "" {
		lines = append(lines, fmt.Sprintf("Cancellation policy: %s", policy))
	}

	return Message{
		Subject: subject,
		Body:    strings.Join(lines, "\n"),
	}
}
