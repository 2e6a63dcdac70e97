// internal/request/field.go

// Package request parses identifiers shared by several handlers.
package request

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/api/htmx"
)

// ErrInvalidFieldID is returned for field IDs that are not non-negative
// integers.
var ErrInvalidFieldID = errors.New("field id must be a non-negative integer")

// ParseFieldID parses a field ID. Zero addresses the platform default and
// is valid; an empty value is reported as absent.
func ParseFieldID(value string) (id int64, present bool, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}

	fieldID, err := strconv.ParseInt(value, 10, 64)
	if err != nil || fieldID < 0 {
		return 0, true, ErrInvalidFieldID
	}

	return fieldID, true, nil
}

// FieldIDFromForm reads fieldId from the parsed form, falling back to the
// field_id query of HX-Current-URL so panels on a field page inherit it.
// A missing ID is zero.
func FieldIDFromForm(r *http.Request) (int64, error) {
	if fieldID, ok, err := ParseFieldID(r.FormValue("fieldId")); ok || err != nil {
		return fieldID, err
	}

	currentURL := htmx.CurrentURL(r)
	if currentURL == "" {
		return 0, nil
	}

	parsed, err := url.Parse(currentURL)
	if err != nil {
		log.Ctx(r.Context()).
			Debug().
			Err(err).
			Str("hx_current_url", currentURL).
			Msg("Failed to parse HX-Current-URL")
		return 0, nil
	}

	fieldID, _, err := ParseFieldID(parsed.Query().Get("field_id"))
	if err != nil {
		// A malformed page URL is not the caller's input.
		return 0, nil
	}
	return fieldID, nil
}
