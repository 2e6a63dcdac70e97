// internal/api/apiutil/handlers.go
package apiutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/rs/zerolog/log"
)

const maxJSONBody = 64 << 10

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// HasJSONBody reports whether the request body is declared as JSON.
func HasJSONBody(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}

// IsJSONRequest reports whether the client sent or expects JSON.
func IsJSONRequest(r *http.Request) bool {
	return HasJSONBody(r) || strings.Contains(r.Header.Get("Accept"), "application/json")
}

// WriteError writes err as a plain-text or JSON error. HandlerErrors keep
// their status and message; anything else is a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var handlerErr HandlerError
	if !errors.As(err, &handlerErr) {
		handlerErr = HandlerError{Status: http.StatusInternalServerError, Message: "Internal Server Error", Err: err}
	}
	if handlerErr.Status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(handlerErr.Err).Int("status", handlerErr.Status).Msg(handlerErr.Message)
	}

	if IsJSONRequest(r) {
		if writeErr := WriteJSON(w, handlerErr.Status, map[string]string{"error": handlerErr.Message}); writeErr != nil {
			log.Ctx(r.Context()).Error().Err(writeErr).Msg("Failed to write error response")
		}
		return
	}
	http.Error(w, handlerErr.Message, handlerErr.Status)
}

// RenderHTMLComponent renders component to w with the given extra headers.
// It returns false after writing an error response if rendering fails.
func RenderHTMLComponent(ctx context.Context, w http.ResponseWriter, component templ.Component, headers map[string]string, logMessage, userMessage string) bool {
	var buf bytes.Buffer
	if err := component.Render(ctx, &buf); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg(logMessage)
		http.Error(w, userMessage, http.StatusInternalServerError)
		return false
	}

	for key, value := range headers {
		w.Header().Set(key, value)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("Failed to write HTML response")
		return false
	}
	return true
}
