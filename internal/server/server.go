// Package server provides the HTTP API for skill verification.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/maniishbhusal/TrustChain/internal/config"
	"github.com/maniishbhusal/TrustChain/internal/db"
	"github.com/maniishbhusal/TrustChain/internal/logger"
	"github.com/maniishbhusal/TrustChain/internal/pipeline"
	"github.com/maniishbhusal/TrustChain/internal/server/middleware"
	"github.com/maniishbhusal/TrustChain/internal/server/ratelimit"
)

// shutdownTimeout bounds graceful shutdown
const shutdownTimeout = 30 * time.Second

// Verifier runs the verification pipeline
type Verifier interface {
	Verify(ctx context.Context, in pipeline.Input) (*pipeline.Outcome, error)
}

// Store reads persisted verifications
type Store interface {
	GetVerification(ctx context.Context, id uuid.UUID) (*db.Verification, error)
	ListVerifications(ctx context.Context, username string, limit int) ([]db.Verification, error)
	Ping(ctx context.Context) error
}

// TextExtractor pulls plain text out of an uploaded résumé
type TextExtractor func(r io.ReaderAt, size int64) (string, error)

// Deps are the collaborators the handlers call. Store may be nil, in which
// case read endpoints answer 503.
type Deps struct {
	Pipeline    Verifier
	Store       Store
	ExtractText TextExtractor
	Logger      *zerolog.Logger
}

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	pipeline    Verifier
	store       Store
	extractText TextExtractor
	maxUpload   int64
	rateLimiter *ratelimit.Limiter
	log         zerolog.Logger
}

// New creates a new server instance
func New(cfg config.ServerConfig, deps Deps) (*Server, error) {
	if deps.Pipeline == nil {
		return nil, errors.New("server: pipeline is required")
	}
	if deps.ExtractText == nil {
		return nil, errors.New("server: text extractor is required")
	}

	s := &Server{
		pipeline:    deps.Pipeline,
		store:       deps.Store,
		extractText: deps.ExtractText,
		maxUpload:   cfg.MaxUploadBytes,
		rateLimiter: ratelimit.NewLimiter(rateLimitConfig(cfg.RateLimit)),
		log:         logger.Named("server"),
	}
	if deps.Logger != nil {
		s.log = *deps.Logger
	}
	if s.maxUpload <= 0 {
		s.maxUpload = 10 << 20
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /verify-skills/", s.handleVerifySkills)
	mux.HandleFunc("GET /verification/{id}/", s.handleGetVerification)
	mux.HandleFunc("GET /verifications/", s.handleListVerifications)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	withCORS := cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{
			middleware.RequestIDHeader,
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After",
		},
		MaxAge: 300,
	})

	s.handler = middleware.RequestID(
		middleware.Logging(s.log)(
			middleware.Recover(s.log)(
				withCORS(
					s.withRateLimit(
						withMetrics(mux))))))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Verification clones and analyzes repositories
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// rateLimitConfig maps the configured limits onto the limiter's tiers
func rateLimitConfig(c config.RateLimitConfig) *ratelimit.Config {
	rc := ratelimit.DefaultConfig()
	rc.Enabled = c.Enabled
	if c.DefaultLimit > 0 && c.DefaultWindow > 0 {
		rc.DefaultLimit = c.DefaultLimit
		rc.DefaultWindow = c.DefaultWindow
	}
	if c.VerifyLimit > 0 && c.VerifyWindow > 0 && c.VerifyBurst > 0 {
		rc.EndpointConfigs = ratelimit.DefaultEndpointConfigs(c.VerifyLimit, c.VerifyWindow, c.VerifyBurst)
	}
	rc.Whitelist = ratelimit.ParseIPList(c.Whitelist)
	rc.Blacklist = ratelimit.ParseIPList(c.Blacklist)
	return rc
}

// Handler returns the fully wrapped HTTP handler
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	defer s.rateLimiter.Stop()

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("server starting")
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.log.Info().Msg("server stopped")
	return nil
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}
		allowed, info := s.rateLimiter.Allow(extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, r, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// extractClientID uses the IP address from RemoteAddr
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, r *http.Request, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
	}
	if !info.ResetTime.IsZero() {
		response["reset_at"] = info.ResetTime.Format(time.RFC3339)
	}
	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds() + 0.5)
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	zerolog.Ctx(r.Context()).Warn().
		Str("client", extractClientID(r)).
		Int("limit", info.Limit).
		Dur("retry_after", info.RetryAfter).
		Msg("rate limit exceeded")

	s.jsonResponse(w, http.StatusTooManyRequests, response)
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

// errorFrom maps err onto a status and logs server-side failures
func (s *Server) errorFrom(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	message := err.Error()
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		message = "internal server error"
	}
	s.errorResponse(w, status, message)
}
