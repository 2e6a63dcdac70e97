// cmd/refundctl/check.go
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/codr1/Pawfield/internal/refund"
)

type checkOptions struct {
	input    refund.TimeInput
	window   float64
	timezone string
	now      string
	asJSON   bool
}

type checkOutput struct {
	refund.Decision
	BookingStartsAt time.Time `json:"bookingStartsAt"`
	WindowHours     float64   `json:"windowHours"`
}

func newCheckCmd() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Evaluate refund eligibility for a booking time",
		Long: `Resolves a booking's start time from the same fields the booking
service returns and evaluates it against a cancellation window.`,
		Example: `  refundctl check --date "16 Jan 2025" --time "11:00 AM - 12:00 PM" --window 24
  refundctl check --iso 2025-01-16 --start-time 11:00 --window 24 --now 2025-01-15T10:00:00Z`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.input.ISODate, "iso", "", "ISO booking date or timestamp")
	flags.StringVar(&opts.input.DisplayDate, "date", "", "Display booking date, e.g. \"16 Jan 2025\"")
	flags.StringVar(&opts.input.StartTime, "start-time", "", "Start time, e.g. \"14:30\"")
	flags.StringVar(&opts.input.TimeRangeLabel, "time", "", "Time range label, e.g. \"2:30 PM - 3:30 PM\"")
	flags.Float64Var(&opts.window, "window", 0, "Cancellation window in hours")
	flags.StringVar(&opts.timezone, "timezone", "Local", "Timezone for dates without an offset")
	flags.StringVar(&opts.now, "now", "", "Evaluation instant in RFC 3339 (default: current time)")
	flags.BoolVar(&opts.asJSON, "json", false, "Print the decision as JSON")
	_ = cmd.MarkFlagRequired("window")

	return cmd
}

func runCheck(cmd *cobra.Command, opts *checkOptions) error {
	if opts.window < 0 {
		return fmt.Errorf("window must not be negative")
	}

	loc, err := time.LoadLocation(opts.timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", opts.timezone, err)
	}

	now := time.Now()
	if opts.now != "" {
		now, err = time.Parse(time.RFC3339, opts.now)
		if err != nil {
			return fmt.Errorf("invalid --now %q: %w", opts.now, err)
		}
	}

	resolver := refund.NewResolver(loc)
	startsAt, err := resolver.Resolve(opts.input)
	if err != nil {
		return err
	}
	log.Debug().Time("starts_at", startsAt).Time("now", now).Msg("Booking time resolved")

	out := checkOutput{
		Decision:        refund.Evaluate(startsAt, now, opts.window),
		BookingStartsAt: startsAt,
		WindowHours:     opts.window,
	}

	w := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	eligible := "no"
	if out.IsEligible {
		eligible = "yes"
	}
	fmt.Fprintf(w, "Booking starts: %s\n", startsAt.Format(time.RFC3339))
	fmt.Fprintf(w, "Hours until booking: %.2f\n", out.HoursUntilBooking)
	fmt.Fprintf(w, "Window: %s hours\n", refund.FormatHours(opts.window))
	fmt.Fprintf(w, "Eligible: %s\n", eligible)
	fmt.Fprintln(w, out.Message)
	return nil
}
