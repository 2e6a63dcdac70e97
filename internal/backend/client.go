// internal/backend/client.go

// Package backend is a JSON client for the marketplace REST API that owns
// bookings, payments and public settings.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codr1/Pawfield/internal/refund"
)

var (
	ErrNotConfigured     = errors.New("backend base URL is not configured")
	ErrMalformedResponse = errors.New("backend response is missing required fields")
	ErrBearerRequired    = errors.New("booking requests need the caller's session token")
)

const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("backend returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Body)
}

type PublicSettings struct {
	CancellationWindowHours *float64 `json:"cancellationWindowHours"`
}

type CancelRequest struct {
	Reason string `json:"reason,omitempty"`
	// BearerToken is the caller's session token, forwarded so the backend
	// applies its own ownership checks.
	BearerToken string `json:"-"`
}

type CancelResult struct {
	BookingID    string  `json:"id"`
	Status       string  `json:"status"`
	RefundStatus string  `json:"refundStatus,omitempty"`
	RefundAmount float64 `json:"refundAmount,omitempty"`
	Currency     string  `json:"currency,omitempty"`
	UserEmail    string  `json:"userEmail,omitempty"`
	FieldName    string  `json:"fieldName,omitempty"`
	Date         string  `json:"date,omitempty"`
	TimeSlot     string  `json:"timeSlot,omitempty"`
}

type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
}

func NewClient(baseURL, apiToken string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Configured reports whether requests can be made.
func (c *Client) Configured() bool {
	return c != nil && c.baseURL != ""
}

// IsUnavailable reports whether err means the backend could not give an
// answer: transport failures, timeouts, 5xx, 429 and malformed bodies.
// Other status errors are definite answers about the booking.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= http.StatusInternalServerError || statusErr.StatusCode == http.StatusTooManyRequests
	}
	return !errors.Is(err, ErrBearerRequired)
}

// RefundEligibility asks the backend for its authoritative decision on
// behalf of the session that owns bearer. The service token is never used
// for booking reads.
func (c *Client) RefundEligibility(ctx context.Context, bookingID, bearer string) (refund.Decision, error) {
	if strings.TrimSpace(bearer) == "" {
		return refund.Decision{}, ErrBearerRequired
	}
	var envelope struct {
		refund.Decision
		Data *refund.Decision `json:"data"`
	}
	path := "/api/bookings/" + url.PathEscape(bookingID) + "/refund-eligibility"
	if err := c.do(ctx, http.MethodGet, path, bearer, nil, &envelope); err != nil {
		return refund.Decision{}, err
	}
	decision := envelope.Decision
	if envelope.Data != nil {
		decision = *envelope.Data
	}
	if strings.TrimSpace(decision.Message) == "" {
		return refund.Decision{}, ErrMalformedResponse
	}
	return decision, nil
}

func (c *Client) PublicSettings(ctx context.Context) (PublicSettings, error) {
	var envelope struct {
		PublicSettings
		Data *PublicSettings `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/settings/public", "", nil, &envelope); err != nil {
		return PublicSettings{}, err
	}
	if envelope.Data != nil {
		return *envelope.Data, nil
	}
	return envelope.PublicSettings, nil
}

// CancelBooking performs the cancellation and refund on the backend.
func (c *Client) CancelBooking(ctx context.Context, bookingID string, req CancelRequest) (CancelResult, error) {
	var envelope struct {
		CancelResult
		Data *CancelResult `json:"data"`
	}
	path := "/api/bookings/" + url.PathEscape(bookingID) + "/cancel"
	if err := c.do(ctx, http.MethodPost, path, req.BearerToken, req, &envelope); err != nil {
		return CancelResult{}, err
	}
	result := envelope.CancelResult
	if envelope.Data != nil {
		result = *envelope.Data
	}
	if result.BookingID == "" {
		result.BookingID = bookingID
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, method, path, bearer string, body, dst any) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	switch {
	case bearer != "":
		req.Header.Set("Authorization", "Bearer "+bearer)
	case c.apiToken != "":
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
