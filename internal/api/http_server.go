// Package api exposes the booking portal over HTTP. Client applications
// authenticate with api-key headers; end users carry a session token obtained
// from the login endpoint.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kovorka/internal/config"
	"kovorka/internal/domain"
	"kovorka/internal/metrics"
	"kovorka/internal/models"
	"kovorka/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const sessionHeader = "x-session-token"

// ChangelogExporter renders the change journal into a report file.
type ChangelogExporter interface {
	ExportChangeLog(ctx context.Context, since time.Time) (string, error)
}

// HTTPServer routes portal requests to the booking services.
type HTTPServer struct {
	cfg        config.APIConfig
	booking    config.BookingConfig
	sessions   *service.SessionManager
	lifecycle  *service.BookingLifecycle
	hierarchy  *service.BookingHierarchy
	negotiator *service.ExtensionNegotiator
	gate       *service.EquipmentGate
	journal    domain.Journal
	exporter   ChangelogExporter
	server     *http.Server
	auth       *HTTPAuth
	logger     zerolog.Logger
}

func NewHTTPServer(
	cfg config.APIConfig,
	booking config.BookingConfig,
	sessions *service.SessionManager,
	lifecycle *service.BookingLifecycle,
	hierarchy *service.BookingHierarchy,
	negotiator *service.ExtensionNegotiator,
	gate *service.EquipmentGate,
	journal domain.Journal,
	exporter ChangelogExporter,
	logger zerolog.Logger,
) *HTTPServer {
	srv := &HTTPServer{
		cfg:        cfg,
		booking:    booking,
		sessions:   sessions,
		lifecycle:  lifecycle,
		hierarchy:  hierarchy,
		negotiator: negotiator,
		gate:       gate,
		journal:    journal,
		exporter:   exporter,
		auth:       NewHTTPAuth(cfg),
		logger:     logger.With().Str("component", "http_server").Logger(),
	}

	handler := srv.requestIDMiddleware(srv.loggingMiddleware(srv.auth.Wrap(srv.routes())))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/login", s.handleLogin)
	mux.HandleFunc("POST /api/v1/logout", s.handleLogout)

	mux.HandleFunc("POST /api/v1/bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}", s.handleGetBooking)
	mux.HandleFunc("GET /api/v1/bookings/{id}/cost", s.handleBookingCost)
	mux.HandleFunc("POST /api/v1/bookings/{id}/cancel", s.handleCancel)
	mux.HandleFunc("POST /api/v1/bookings/{id}/extend-options", s.handleExtendOptions)
	mux.HandleFunc("POST /api/v1/bookings/{id}/extend-confirm", s.handleExtendConfirm)
	mux.HandleFunc("GET /api/v1/bookings/{id}/changes", s.handleChangeHistory)
	mux.HandleFunc("GET /api/v1/bookings/{id}/change-options", s.handleChangeOptions)
	mux.HandleFunc("POST /api/v1/bookings/{id}/apply-change", s.handleApplyChange)
	mux.HandleFunc("POST /api/v1/bookings/{id}/decline-change", s.handleDeclineChange)
	mux.HandleFunc("POST /api/v1/bookings/{id}/add-equipment", s.handleAttachEquipment)
	mux.HandleFunc("DELETE /api/v1/bookings/{id}/equipment/{childID}", s.handleDetachEquipment)

	mux.HandleFunc("POST /api/v1/bookings/check-equipment-availability", s.handleEquipmentCheck)
	mux.HandleFunc("GET /api/v1/export/changelog", s.handleExportChangelog)
	mux.HandleFunc("GET /health", s.handleHealth)

	return mux
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler exposes the routing stack for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// session resolves and rate-limits the caller's session. Handlers that
// require a logged-in user go through here.
func (s *HTTPServer) session(w http.ResponseWriter, r *http.Request) (*models.Session, bool) {
	sess, err := s.sessions.Resolve(r.Context(), r.Header.Get(sessionHeader))
	if err != nil {
		s.writeServiceError(w, err)
		return nil, false
	}

	window := time.Duration(s.booking.RateLimitWindow) * time.Second
	allowed, err := s.sessions.CheckRateLimit(r.Context(), sess.Token, s.booking.RateLimitRequests, window)
	if err == nil && !allowed {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return nil, false
	}

	return sess, true
}

const requestIDHeader = "X-Request-Id"

func (s *HTTPServer) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get(requestIDHeader)).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

// writeServiceError maps the error taxonomy onto HTTP status codes.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case models.IsConflict(err), models.IsStateError(err):
		return http.StatusConflict
	case models.IsTransport(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
