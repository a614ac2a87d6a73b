package middleware

import (
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/technohub6911/smartcropx/internal/ratelimit"
)

// RateLimitMiddleware limits requests per client IP. Its limit can be swapped
// while serving, which is how config reloads take effect.
type RateLimitMiddleware struct {
	limiter *ratelimit.Limiter
	scope   string

	mu     sync.RWMutex
	config ratelimit.LimitConfig
}

func NewRateLimitMiddleware(l *ratelimit.Limiter, scope string, c ratelimit.LimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{limiter: l, scope: scope, config: c}
}

func (m *RateLimitMiddleware) SetConfig(c ratelimit.LimitConfig) {
	m.mu.Lock()
	m.config = c
	m.mu.Unlock()
	log.Printf("RateLimit [%s]: now %d per %v", m.scope, c.Rate, c.Window)
}

func (m *RateLimitMiddleware) Config() ratelimit.LimitConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Limit fails open: when Redis is unreachable requests pass through.
func (m *RateLimitMiddleware) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cfg := m.Config()
		if m.limiter == nil || !cfg.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		key := fmt.Sprintf("rl:%s:%s", m.scope, m.limiter.HashIP(clientIP(r)))
		decision, err := m.limiter.Allow(r.Context(), key, cfg)
		if err != nil {
			log.Printf("RateLimit Redis Error (Fail Open): %v", err)
			RecordRedisError()
			RecordRateLimit(m.scope, "fail_open")
			next.ServeHTTP(w, r)
			return
		}

		writeRateLimitHeaders(w, decision)
		if !decision.Allowed {
			RecordRateLimit(m.scope, "blocked")
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			json.NewEncoder(w).Encode(map[string]any{
				"success": false,
				"error":   ratelimit.ErrRateLimitExceeded.Error(),
			})
			return
		}
		RecordRateLimit(m.scope, "allowed")
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeRateLimitHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	if !d.Allowed {
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
}
