// Package server provides the HTTP admin gateway in front of the training platform API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/vr-training-admin/internal/apiclient"
	"github.com/jonathan/vr-training-admin/internal/grid"
	"github.com/jonathan/vr-training-admin/internal/notify"
	"github.com/jonathan/vr-training-admin/internal/prefs"
	"github.com/jonathan/vr-training-admin/internal/server/middleware"
	"github.com/jonathan/vr-training-admin/internal/server/ratelimit"
	"github.com/rs/zerolog"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	api         *apiclient.Client
	pageSizes   *prefs.PageSizes
	rateLimiter *ratelimit.Limiter
	log         zerolog.Logger
	cfg         Config
}

// Config holds server configuration
type Config struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	// RequireAuth rejects requests without a bearer token. Otherwise the
	// configured API token is used for anonymous requests.
	RequireAuth     bool
	DefaultPageSize int
	RateLimit       *ratelimit.Config
	Now             func() time.Time
}

// New creates a new server instance
func New(cfg Config, api *apiclient.Client, pageSizes *prefs.PageSizes, logger zerolog.Logger) *Server {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = grid.DefaultPageSize
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if pageSizes == nil {
		pageSizes = prefs.NewPageSizes(nil, logger)
	}

	s := &Server{
		api:         api,
		pageSizes:   pageSizes,
		rateLimiter: ratelimit.NewLimiter(cfg.RateLimit),
		log:         logger,
		cfg:         cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("GET /evaluations", s.handleList(tableEvaluations))
	mux.HandleFunc("GET /trainings", s.handleList(tableTrainings))
	mux.HandleFunc("GET /evaluations/{id}/result", s.handleResult(tableEvaluations))
	mux.HandleFunc("GET /trainings/{id}/result", s.handleResult(tableTrainings))
	mux.HandleFunc("POST /evaluations/{id}/archive", s.handleArchive(tableEvaluations))
	mux.HandleFunc("POST /trainings/{id}/archive", s.handleArchive(tableTrainings))
	mux.HandleFunc("POST /archive/bulk", s.handleBulkArchive)

	mux.HandleFunc("GET /preferences/page-size", s.handleListPageSizes)
	mux.HandleFunc("GET /preferences/page-size/{table}", s.handleGetPageSize)
	mux.HandleFunc("PUT /preferences/page-size/{table}", s.handleSetPageSize)

	mux.HandleFunc("GET /analytics/summary", s.handleAnalyticsSummary)

	auth := middleware.AuthMiddleware(middleware.ExpiryValidator{Now: cfg.Now}, cfg.RequireAuth)
	handler := s.withRequestID(s.withLogging(s.withCORS(s.withRateLimit(auth(mux)))))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start serves until ctx is canceled or the process receives SIGINT/SIGTERM,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.httpServer.Addr).Msg("server starting")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		s.rateLimiter.Stop()
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	err := s.httpServer.Shutdown(shutdownCtx)
	s.rateLimiter.Stop()
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info().Msg("server stopped")
	return nil
}

// client returns the API client authenticated as the caller.
func (s *Server) client(r *http.Request) *apiclient.Client {
	if token, ok := middleware.GetToken(r); ok {
		return s.api.WithToken(token)
	}
	return s.api
}

// permissions returns what the caller's token grants. Opaque and anonymous
// callers are not restricted here; the upstream API enforces its own rules.
func (s *Server) permissions(r *http.Request) grid.Permissions {
	info := middleware.GetTokenInfo(r)
	if info == nil {
		return grid.NewPermissions("*")
	}
	return grid.NewPermissions(info.Grants()...)
}

// withRequestID assigns every request an id and a request-scoped logger.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(apiclient.RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(apiclient.RequestIDHeader, id)

		logger := s.log.With().Str("request_id", id).Logger()
		next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context())))
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		zerolog.Ctx(r.Context()).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote", r.RemoteAddr).
			Int("status", rec.status).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := s.allowedOrigin(r.Header.Get("Origin")); origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type, "+apiclient.RequestIDHeader)
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowedOrigin(origin string) string {
	for _, allowed := range s.cfg.AllowedOrigins {
		if allowed == "*" {
			return "*"
		}
		if origin != "" && strings.EqualFold(allowed, origin) {
			return origin
		}
	}
	return ""
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(clientID(r), r.URL.Path, r.Method)
		if info.Limit > 0 {
			w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
			w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
			w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
		}
		if !allowed {
			if info.RetryAfter > 0 {
				w.Header().Set("Retry-After", fmt.Sprintf("%d", int(info.RetryAfter.Seconds()+0.999)))
			}
			zerolog.Ctx(r.Context()).Warn().Str("client", clientID(r)).Str("path", r.URL.Path).Msg("rate limit exceeded")
			s.errorResponse(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientID uses the IP address from RemoteAddr.
func clientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Error().Err(err).Msg("failed to encode JSON response")
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// failure maps err to a status and the message a user should see.
func (s *Server) failure(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	var verr *ErrValidation
	var ferr *ErrForbidden
	if !errors.As(err, &verr) && !errors.As(err, &ferr) {
		if note, ok := notify.FromError(err); ok {
			message = note.Message
		}
	}

	event := zerolog.Ctx(r.Context()).Warn()
	if status >= http.StatusInternalServerError {
		event = zerolog.Ctx(r.Context()).Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")

	s.errorResponse(w, status, message)
}
