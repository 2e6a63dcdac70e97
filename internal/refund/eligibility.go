// internal/refund/eligibility.go
package refund

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Decision is the outcome of a refund eligibility evaluation.
type Decision struct {
	IsEligible        bool    `json:"isEligible"`
	HoursUntilBooking float64 `json:"hoursUntilBooking"`
	Message           string  `json:"message"`
}

// Evaluate decides whether a booking starting at resolved can still be
// cancelled for a full refund at now. The window is inclusive: a booking
// exactly thresholdHours away is eligible.
func Evaluate(resolved, now time.Time, thresholdHours float64) Decision {
	hours := resolved.Sub(now).Hours()
	eligible := hours >= thresholdHours
	return Decision{
		IsEligible:        eligible,
		HoursUntilBooking: hours,
		Message:           decisionMessage(eligible, hours, thresholdHours),
	}
}

// WholeHours is the floored hour count shown to users.
func (d Decision) WholeHours() int64 {
	return int64(math.Floor(d.HoursUntilBooking))
}

func decisionMessage(eligible bool, hours, thresholdHours float64) string {
	whole := int64(math.Floor(hours))
	if eligible {
		return fmt.Sprintf("This booking can be cancelled for a full refund. %s remaining until the booking starts.", hourCount(whole))
	}

	policy := fmt.Sprintf("Cancellations made less than %s hours before the booking starts are not eligible for a refund.", FormatHours(thresholdHours))
	if whole < 0 {
		return fmt.Sprintf("%s This booking started %s ago.", policy, hourCount(-whole))
	}
	return fmt.Sprintf("%s %s remaining until the booking starts.", policy, hourCount(whole))
}

// FormatHours renders a window length without trailing zeros ("24", "1.5").
func FormatHours(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}

func hourCount(n int64) string {
	if n == 1 {
		return "1 hour"
	}
	return fmt.Sprintf("%d hours", n)
}
