// internal/api/cancellationpolicy/handlers.go
package cancellationpolicy

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/api/apiutil"
	"github.com/codr1/Pawfield/internal/db"
	"github.com/codr1/Pawfield/internal/request"
	"github.com/codr1/Pawfield/internal/settings"
)

const (
	cancellationWindowQueryTimeout = 5 * time.Second
	fieldIDQueryKey                = "field_id"
)

var (
	store     *settings.Store
	storeOnce sync.Once
)

type windowRequest struct {
	FieldID     *int64   `json:"fieldId"`
	WindowHours *float64 `json:"windowHours"`
}

type windowResponse struct {
	FieldID     int64     `json:"fieldId"`
	WindowHours float64   `json:"windowHours"`
	Source      string    `json:"source"`
	UpdatedAt   time.Time `json:"updatedAt"`
	// Inherited is true when the field has no override and the platform
	// window applies.
	Inherited bool `json:"inherited"`
}

// InitHandlers must be called during server startup before handling requests.
func InitHandlers(s *settings.Store) {
	if s == nil {
		return
	}
	storeOnce.Do(func() {
		store = s
	})
}

func loadStore() *settings.Store {
	return store
}

// GET /api/v1/cancellation-window?field_id=X
func HandleCancellationWindowGet(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	s := loadStore()
	if s == nil {
		logger.Error().Msg("Settings store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cancellationWindowQueryTimeout)
	defer cancel()

	raw := strings.TrimSpace(r.URL.Query().Get(fieldIDQueryKey))
	if raw == "" {
		windows, err := s.List(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Failed to list cancellation windows")
			http.Error(w, "Failed to load cancellation windows", http.StatusInternalServerError)
			return
		}
		resp := make([]windowResponse, 0, len(windows))
		for _, window := range windows {
			resp = append(resp, toWindowResponse(window.FieldID, window))
		}
		if err := apiutil.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error().Err(err).Msg("Failed to write cancellation windows response")
		}
		return
	}

	fieldID, err := parseFieldID(raw)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	window, err := s.Window(ctx, fieldID)
	if err != nil {
		if errors.Is(err, settings.ErrWindowUnavailable) {
			http.Error(w, "Cancellation window not configured", http.StatusNotFound)
			return
		}
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to load cancellation window")
		http.Error(w, "Failed to load cancellation window", http.StatusInternalServerError)
		return
	}

	if err := apiutil.WriteJSON(w, http.StatusOK, toWindowResponse(fieldID, window)); err != nil {
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to write cancellation window response")
	}
}

// PUT /api/v1/cancellation-window
func HandleCancellationWindowPut(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	s := loadStore()
	if s == nil {
		logger.Error().Msg("Settings store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var req windowRequest
	if err := apiutil.DecodeJSON(r, &req); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.WindowHours == nil {
		http.Error(w, apiutil.FieldError{Field: "windowHours", Reason: "is required"}.Error(), http.StatusBadRequest)
		return
	}
	fieldID := settings.PlatformFieldID
	if req.FieldID != nil {
		fieldID = *req.FieldID
	}

	ctx, cancel := context.WithTimeout(r.Context(), cancellationWindowQueryTimeout)
	defer cancel()

	window, err := s.SetWindow(ctx, fieldID, *req.WindowHours, settings.SourceAdmin)
	if err != nil {
		if errors.Is(err, settings.ErrInvalidWindow) || errors.Is(err, settings.ErrInvalidFieldID) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to store cancellation window")
		http.Error(w, "Failed to store cancellation window", http.StatusInternalServerError)
		return
	}

	logger.Info().
		Int64("field_id", fieldID).
		Float64("window_hours", window.WindowHours).
		Msg("Cancellation window updated")

	if err := apiutil.WriteJSON(w, http.StatusOK, toWindowResponse(fieldID, window)); err != nil {
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to write cancellation window response")
	}
}

// DELETE /api/v1/cancellation-window?field_id=X
func HandleCancellationWindowDelete(w http.ResponseWriter, r *http.Request) {
	logger := log.Ctx(r.Context())

	s := loadStore()
	if s == nil {
		logger.Error().Msg("Settings store not initialized")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	fieldID, err := parseFieldID(r.URL.Query().Get(fieldIDQueryKey))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cancellationWindowQueryTimeout)
	defer cancel()

	if err := s.ClearWindow(ctx, fieldID); err != nil {
		if errors.Is(err, settings.ErrInvalidFieldID) {
			http.Error(w, "Only field overrides can be removed", http.StatusBadRequest)
			return
		}
		logger.Error().Err(err).Int64("field_id", fieldID).Msg("Failed to remove cancellation window")
		http.Error(w, "Failed to remove cancellation window", http.StatusInternalServerError)
		return
	}

	logger.Info().Int64("field_id", fieldID).Msg("Cancellation window override removed")
	w.WriteHeader(http.StatusNoContent)
}

func toWindowResponse(requestedFieldID int64, window db.CancellationWindow) windowResponse {
	return windowResponse{
		FieldID:     requestedFieldID,
		WindowHours: window.WindowHours,
		Source:      window.Source,
		UpdatedAt:   window.UpdatedAt,
		Inherited:   window.FieldID != requestedFieldID,
	}
}

func parseFieldID(raw string) (int64, error) {
	id, ok, err := request.ParseFieldID(raw)
	if !ok {
		return 0, fmt.Errorf("%s is required", fieldIDQueryKey)
	}
	if err != nil {
		return 0, fmt.Errorf("invalid %s", fieldIDQueryKey)
	}
	return id, nil
}
