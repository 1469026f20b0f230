package rest

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	ws "github.com/voicegate/backend/internal/api/websocket"
)

// RouterConfig carries the collaborators the router wires together.
type RouterConfig struct {
	Handler   *Handler
	Auth      *AuthMiddleware
	Events    *ws.Handler
	RateRPS   int
	RateBurst int

	// ExtraMiddleware runs after the built-in stack, outermost last.
	ExtraMiddleware []Middleware
}

// NewRouter builds the full route table with the middleware stack applied.
// Admin routes additionally require security-zone permissions in the
// bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	h := cfg.Handler

	adminMW := cfg.Auth.Middleware("security:admin")
	writeMW := cfg.Auth.Middleware("security:write")

	mux.HandleFunc("POST /api/v1/auth/attempts", h.handleAuthenticate)
	mux.HandleFunc("POST /api/v1/auth/alternative", h.handleAlternative)
	mux.HandleFunc("POST /api/v1/auth/enrollments", h.handleEnroll)
	mux.HandleFunc("GET /api/v1/auth/sessions/{userID}", h.handleSessionStatus)
	mux.HandleFunc("GET /api/v1/auth/attempts/{userID}", h.handleListAttempts)

	mux.Handle("GET /api/v1/admin/security-level", adminMW(http.HandlerFunc(h.handleGetSecurityLevel)))
	mux.Handle("PUT /api/v1/admin/security-level", adminMW(http.HandlerFunc(h.handleSetSecurityLevel)))
	mux.Handle("POST /api/v1/admin/failed-attempts/reset", writeMW(http.HandlerFunc(h.handleResetFailures)))

	if cfg.Events != nil {
		mux.HandleFunc("GET /api/v1/events", cfg.Events.HandleEvents)
	}

	mux.HandleFunc("GET /health", h.handleHealth)
	mux.Handle("GET /metrics", promhttp.Handler())

	rps, burst := cfg.RateRPS, cfg.RateBurst
	if rps <= 0 {
		rps = 100
	}
	if burst <= 0 {
		burst = rps * 2
	}

	stack := []Middleware{
		recoveryMiddleware(h.logger),
		requestIDMiddleware,
		loggingMiddleware(h.logger),
		rateLimitMiddleware(newIPRateLimiter(rps, burst)),
	}
	stack = append(stack, cfg.ExtraMiddleware...)
	return Chain(mux, stack...)
}
