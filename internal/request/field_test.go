package request

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParseFieldID(t *testing.T) {
	tests := []struct {
		in      string
		id      int64
		present bool
		err     error
	}{
		{in: "", id: 0, present: false},
		{in: "  ", id: 0, present: false},
		{in: "0", id: 0, present: true},
		{in: " 42 ", id: 42, present: true},
		{in: "-1", present: true, err: ErrInvalidFieldID},
		{in: "abc", present: true, err: ErrInvalidFieldID},
	}

	for _, tt := range tests {
		id, present, err := ParseFieldID(tt.in)
		if id != tt.id || present != tt.present || !errors.Is(err, tt.err) {
			t.Errorf("ParseFieldID(%q) = %d, %v, %v; want %d, %v, %v", tt.in, id, present, err, tt.id, tt.present, tt.err)
		}
	}
}

func newFormRequest(t *testing.T, form url.Values, currentURL string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/refund-eligibility", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if currentURL != "" {
		req.Header.Set("HX-Current-URL", currentURL)
	}
	if err := req.ParseForm(); err != nil {
		t.Fatalf("parse form: %v", err)
	}
	return req
}

func TestFieldIDFromForm(t *testing.T) {
	t.Run("form value wins", func(t *testing.T) {
		req := newFormRequest(t, url.Values{"fieldId": {"7"}}, "https://app.example/bookings?field_id=9")
		if id, err := FieldIDFromForm(req); err != nil || id != 7 {
			t.Fatalf("expected 7, got %d (%v)", id, err)
		}
	})

	t.Run("falls back to current url", func(t *testing.T) {
		req := newFormRequest(t, url.Values{}, "https://app.example/bookings?field_id=9")
		if id, err := FieldIDFromForm(req); err != nil || id != 9 {
			t.Fatalf("expected 9, got %d (%v)", id, err)
		}
	})

	t.Run("invalid form value", func(t *testing.T) {
		req := newFormRequest(t, url.Values{"fieldId": {"x"}}, "")
		if _, err := FieldIDFromForm(req); !errors.Is(err, ErrInvalidFieldID) {
			t.Fatalf("expected ErrInvalidFieldID, got %v", err)
		}
	})

	t.Run("malformed current url ignored", func(t *testing.T) {
		req := newFormRequest(t, url.Values{}, "https://app.example/bookings?field_id=-3")
		if id, err := FieldIDFromForm(req); err != nil || id != 0 {
			t.Fatalf("expected platform default, got %d (%v)", id, err)
		}
	})
}
