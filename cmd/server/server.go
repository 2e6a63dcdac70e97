// cmd/server/server.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/codr1/Pawfield/internal/api"
	"github.com/codr1/Pawfield/internal/api/auth"
	cancellationapi "github.com/codr1/Pawfield/internal/api/cancellation"
	"github.com/codr1/Pawfield/internal/api/cancellationpolicy"
	notificationsapi "github.com/codr1/Pawfield/internal/api/notifications"
	"github.com/codr1/Pawfield/internal/backend"
	"github.com/codr1/Pawfield/internal/cancellation"
	"github.com/codr1/Pawfield/internal/config"
	"github.com/codr1/Pawfield/internal/db"
	"github.com/codr1/Pawfield/internal/email"
	"github.com/codr1/Pawfield/internal/ratelimit"
	"github.com/codr1/Pawfield/internal/refund"
	"github.com/codr1/Pawfield/internal/scheduler"
	"github.com/codr1/Pawfield/internal/settings"
)

// app holds the long-lived dependencies shared by the routes.
type app struct {
	limiter    *ratelimit.Limiter
	trustProxy bool
	staticDir  string
}

func (a *app) Close() {
	a.limiter.Close()
}

// newApp wires storage, the booking backend, email, auth and background
// jobs, then initializes the handler packages.
func newApp(ctx context.Context, cfg *config.Config, database *db.DB) (*app, error) {
	logger := log.Ctx(ctx)

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	store := settings.NewStore(database)
	if hours := cfg.Refund.WindowHours; hours != nil {
		seeded, err := store.SeedPlatformWindow(ctx, *hours)
		if err != nil {
			return nil, fmt.Errorf("seed platform window: %w", err)
		}
		if seeded {
			logger.Info().Float64("window_hours", *hours).Msg("Seeded platform cancellation window from config")
		}
	}

	client := backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIToken, cfg.Backend.Timeout())
	if !client.Configured() {
		logger.Warn().Msg("Booking backend not configured, refund checks will use local estimates")
	}

	if err := scheduler.Init(); err != nil {
		return nil, fmt.Errorf("init scheduler: %w", err)
	}
	if client.Configured() {
		svc, err := scheduler.ServiceInstance()
		if err != nil {
			return nil, err
		}
		if _, err := scheduler.RegisterSettingsSyncJob(svc, settings.NewSyncer(store, client), cfg.Scheduler.SettingsSyncCron); err != nil {
			return nil, fmt.Errorf("register settings sync job: %w", err)
		}
	}

	var mailer email.EmailSender
	if cfg.Email.Enabled() {
		sesClient, err := email.NewSESClient(ctx, cfg.Email)
		if err != nil {
			return nil, fmt.Errorf("init ses client: %w", err)
		}
		mailer = sesClient
	} else {
		logger.Warn().Msg("SES not configured, cancellation emails disabled")
	}

	auth.InitClerk(cfg.Auth.ClerkSecretKey)

	cancellationapi.InitHandlers(cancellation.NewService(cancellation.Options{
		Backend:  client,
		Windows:  store,
		Resolver: refund.NewResolver(loc),
		Log:      database.Queries,
		Mailer:   mailer,
	}))
	cancellationpolicy.InitHandlers(store)

	staticDir := cfg.App.StaticDir
	if staticDir == "" {
		staticDir = os.Getenv("STATIC_DIR")
	}
	if staticDir == "" {
		// Default to the build directory if not specified
		staticDir = "build/bin/static"
	}

	return &app{
		limiter: ratelimit.New(&ratelimit.Config{
			EligibilityMaxPerHour: cfg.RateLimit.EligibilityPerHour,
			CancelMaxPerHour:      cfg.RateLimit.CancelPerHour,
		}),
		trustProxy: cfg.RateLimit.TrustProxy,
		staticDir:  staticDir,
	}, nil
}

func newServer(cfg *config.Config, a *app) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		auth.WithClerkSession,
		api.WithLogging,
		api.WithRecovery,
		api.WithRequestID,
		api.WithContentType,
	)

	// Register routes
	registerRoutes(router, a)

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux, a *app) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	eligibilityLimit := a.limiter.Middleware(ratelimit.ScopeEligibility, a.trustProxy)
	cancelLimit := a.limiter.Middleware(ratelimit.ScopeCancel, a.trustProxy)

	// Refund eligibility and cancellation
	mux.Handle("POST /api/v1/refund-eligibility", eligibilityLimit(http.HandlerFunc(cancellationapi.HandleRefundEligibility)))
	mux.Handle("POST /api/v1/bookings/{id}/cancel", auth.RequireSession(cancelLimit(http.HandlerFunc(cancellationapi.HandleCancelBooking))))

	// Cancellation window administration
	mux.Handle("GET /api/v1/cancellation-window", auth.RequireStaff(http.HandlerFunc(cancellationpolicy.HandleCancellationWindowGet)))
	mux.Handle("PUT /api/v1/cancellation-window", auth.RequireStaff(http.HandlerFunc(cancellationpolicy.HandleCancellationWindowPut)))
	mux.Handle("DELETE /api/v1/cancellation-window", auth.RequireStaff(http.HandlerFunc(cancellationpolicy.HandleCancellationWindowDelete)))

	// Notification deep links
	mux.HandleFunc("GET /api/v1/notifications/route", notificationsapi.HandleNotificationRoute)

	fs := http.FileServer(http.Dir(a.staticDir))

	// Add logging middleware for static files
	mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Ctx(r.Context()).Debug().
			Str("path", r.URL.Path).
			Str("static_dir", a.staticDir).
			Msg("Static file request")
		http.StripPrefix("/static/", fs).ServeHTTP(w, r)
	}))
}
