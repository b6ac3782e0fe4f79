package ratelimit

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/noah-isme/backend-billing/internal/common"
)

// Config describes how requests are keyed and bounded.
type Config struct {
	Key    func(*http.Request) string
	Window time.Duration
	Max    int
}

// Handler enforces a rate limit in front of the next handler. Limiter
// failures fail open: a Redis hiccup must not take the editor down with it.
type Handler struct {
	Limiter Limiter
	Config  Config
	OnError func(error)
}

// KeyByIP keys requests by client address, which RealIP middleware has
// already resolved upstream.
func KeyByIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Middleware implements the middleware chain contract.
func (h Handler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keyFn := h.Config.Key
		if keyFn == nil {
			keyFn = KeyByIP
		}
		allowed, remaining, resetAt, err := h.Limiter.Allow(r.Context(), keyFn(r), h.Config.Window, h.Config.Max)
		if err != nil {
			if h.OnError != nil {
				h.OnError(err)
			}
			next.ServeHTTP(w, r)
			return
		}

		headers := w.Header()
		headers.Set("X-RateLimit-Limit", strconv.Itoa(h.Config.Max))
		headers.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		headers.Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			headers.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, common.CodeRateLimited, "too many requests", nil)
			return
		}

		next.ServeHTTP(w, r)
	})
}
