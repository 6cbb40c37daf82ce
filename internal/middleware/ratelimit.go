package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/render"
	"golang.org/x/time/rate"

	"terratrust/internal/config"
	apperrors "terratrust/internal/errors"
	"terratrust/internal/infrastructure"
)

// staleAfter is how long an idle client keeps its limiter.
const staleAfter = 10 * time.Minute

// RateLimiter throttles requests per client IP. Activation and
// approval endpoints sit behind it so token or window guessing stays
// slow.
type RateLimiter struct {
	cfg    config.RateLimitConfig
	logger *slog.Logger

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates the limiter middleware.
func NewRateLimiter(cfg config.RateLimitConfig, logger *slog.Logger) *RateLimiter {
	return &RateLimiter{
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "rate_limiter")),
		clients: make(map[string]*clientLimiter),
	}
}

// Handler wraps next with per-client throttling. Disabled limiters
// pass everything through.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.cfg.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.allow(clientKey(r)) {
			traceID := infrastructure.TraceIDFromContext(r.Context())
			rl.logger.WarnContext(r.Context(), "request rate limited",
				slog.String("path", r.URL.Path))
			render.Render(w, r, apperrors.MapLicenseError(apperrors.ErrRateLimited, traceID))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, ok := rl.clients[key]
	if !ok {
		client = &clientLimiter{
			limiter: rate.NewLimiter(rate.Limit(rl.cfg.RPS), rl.cfg.Burst),
		}
		rl.clients[key] = client
	}
	client.lastSeen = now

	// Opportunistic cleanup keeps the map bounded without a reaper
	// goroutine.
	for k, c := range rl.clients {
		if now.Sub(c.lastSeen) > staleAfter {
			delete(rl.clients, k)
		}
	}

	return client.limiter.Allow()
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
