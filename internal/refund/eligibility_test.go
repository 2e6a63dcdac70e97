package refund

import (
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestEvaluate_BoundaryIsInclusive(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	for _, threshold := range []float64{0, 1, 24, 48, 72} {
		resolved := now.Add(time.Duration(threshold * float64(time.Hour)))
		if d := Evaluate(resolved, now, threshold); !d.IsEligible {
			t.Fatalf("threshold %v: expected eligible at exact boundary, got %+v", threshold, d)
		}
	}
}

func TestEvaluate_JustUnderBoundary(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	threshold := 24.0
	resolved := now.Add(time.Duration((threshold - 0.01) * float64(time.Hour)))

	d := Evaluate(resolved, now, threshold)
	if d.IsEligible {
		t.Fatalf("expected ineligible just under the window, got %+v", d)
	}
	if d.WholeHours() != 23 {
		t.Fatalf("expected 23 whole hours, got %d", d.WholeHours())
	}
}

func TestEvaluate_PastBooking(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

	d := Evaluate(now.Add(-time.Hour), now, 24)
	if d.IsEligible {
		t.Fatalf("expected past booking to be ineligible")
	}
	if d.HoursUntilBooking >= 0 {
		t.Fatalf("expected negative hours, got %v", d.HoursUntilBooking)
	}
	if !strings.Contains(d.Message, "started 1 hour ago") {
		t.Fatalf("expected elapsed message, got %q", d.Message)
	}
}

func TestEvaluate_Monotonic(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)
	threshold := 24.0

	seenEligible := false
	for minutes := -6 * 60; minutes <= 72*60; minutes += 7 {
		d := Evaluate(now.Add(time.Duration(minutes)*time.Minute), now, threshold)
		if seenEligible && !d.IsEligible {
			t.Fatalf("eligibility flipped back to ineligible at +%d minutes", minutes)
		}
		seenEligible = seenEligible || d.IsEligible
	}
	if !seenEligible {
		t.Fatalf("expected eligibility somewhere in the sweep")
	}
}

func TestEvaluate_HoursAreNotTruncated(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

	d := Evaluate(now.Add(90*time.Minute), now, 1.5)
	if d.HoursUntilBooking != 1.5 {
		t.Fatalf("expected 1.5 hours, got %v", d.HoursUntilBooking)
	}
	if !d.IsEligible {
		t.Fatalf("expected eligible at fractional boundary")
	}
}

func TestEvaluate_Messages(t *testing.T) {
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		offset    time.Duration
		threshold float64
		want      Decision
	}{
		{
			name:      "eligible",
			offset:    25 * time.Hour,
			threshold: 24,
			want: Decision{
				IsEligible:        true,
				HoursUntilBooking: 25,
				Message:           "This booking can be cancelled for a full refund. 25 hours remaining until the booking starts.",
			},
		},
		{
			name:      "inside window",
			offset:    90 * time.Minute,
			threshold: 24,
			want: Decision{
				IsEligible:        false,
				HoursUntilBooking: 1.5,
				Message:           "Cancellations made less than 24 hours before the booking starts are not eligible for a refund. 1 hour remaining until the booking starts.",
			},
		},
		{
			name:      "fractional threshold",
			offset:    20 * time.Minute,
			threshold: 0.5,
			want: Decision{
				IsEligible:        false,
				HoursUntilBooking: 20.0 / 60.0,
				Message:           "Cancellations made less than 0.5 hours before the booking starts are not eligible for a refund. 0 hours remaining until the booking starts.",
			},
		},
		{
			name:      "already started",
			offset:    -3 * time.Hour,
			threshold: 48,
			want: Decision{
				IsEligible:        false,
				HoursUntilBooking: -3,
				Message:           "Cancellations made less than 48 hours before the booking starts are not eligible for a refund. This booking started 3 hours ago.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(now.Add(tt.offset), now, tt.threshold)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("decision mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCheck_ScenarioEligibleNextDay(t *testing.T) {
	r := NewResolver(time.UTC)
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

	d, err := r.Check(TimeInput{DisplayDate: "16 Jan 2025", StartTime: "11:00AM"}, now, 24)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !d.IsEligible || d.WholeHours() != 25 {
		t.Fatalf("expected eligible with 25 hours, got %+v", d)
	}
	if !strings.Contains(d.Message, "25 hours remaining") {
		t.Fatalf("expected message to cite 25 hours, got %q", d.Message)
	}
}

func TestCheck_ScenarioSameDayAlreadyStarted(t *testing.T) {
	r := NewResolver(time.UTC)
	now := time.Date(2025, time.January, 15, 10, 0, 0, 0, time.UTC)

	d, err := r.Check(TimeInput{DisplayDate: "15 Jan 2025", StartTime: "9:00AM"}, now, 24)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if d.IsEligible || d.WholeHours() != -1 {
		t.Fatalf("expected ineligible with -1 hours, got %+v", d)
	}
	if !strings.Contains(d.Message, "started 1 hour ago") {
		t.Fatalf("expected elapsed message, got %q", d.Message)
	}
}

func TestFormatHours(t *testing.T) {
	for in, want := range map[float64]string{24: "24", 1.5: "1.5", 0: "0", 0.25: "0.25"} {
		if got := FormatHours(in); got != want {
			t.Errorf("FormatHours(%v) = %q; want %q", in, got, want)
		}
	}
}
