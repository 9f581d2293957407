package middleware

import (
	"math"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/kiranshivaraju/dealflow/internal/api/response"
	"github.com/kiranshivaraju/dealflow/internal/cache"
	"github.com/kiranshivaraju/dealflow/internal/config"
	"github.com/kiranshivaraju/dealflow/internal/tenant"
	"github.com/rs/zerolog"
)

// RateLimit enforces a fixed window request budget. Authenticated callers
// are counted per user, anonymous callers per client IP.
type RateLimit struct {
	cache         cache.Cache
	authenticated int
	anonymous     int
	window        time.Duration
	proxies       []netip.Prefix
	now           func() time.Time
}

func NewRateLimit(c cache.Cache, cfg config.RateLimitConfig) *RateLimit {
	return &RateLimit{
		cache:         c,
		authenticated: cfg.Authenticated,
		anonymous:     cfg.Unauthenticated,
		window:        cfg.Window,
		proxies:       cfg.TrustedProxies,
		now:           time.Now,
	}
}

func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, key := rl.anonymous, cache.IPRateLimitKey(ClientIP(r, rl.proxies))
		if p := tenant.FromContext(r.Context()); p != nil {
			limit, key = rl.authenticated, cache.UserRateLimitKey(p.UserID)
		}

		count, ttl, err := rl.cache.IncrWindow(r.Context(), key, rl.window)
		if err != nil {
			// Fail open: a cache outage must not take the API down.
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rate limit check failed")
			next.ServeHTTP(w, r)
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(rl.now().Add(ttl).Unix(), 10))

		if count > int64(limit) {
			retryAfter := int(math.Ceil(ttl.Seconds()))
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			response.RateLimitError(retryAfter).Write(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}
