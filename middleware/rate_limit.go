package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/upb/intent-chatbot/services/ratelimit"
	"github.com/upb/intent-chatbot/utils"
	"go.uber.org/zap"
)

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	CheckLimit(key string) ratelimit.Result
}

// RateLimit rejects callers that exceed their request budget with 429.
// Authenticated callers are keyed by token subject, others by client IP.
func RateLimit(limiter Limiter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := rateLimitKey(r)

			result := limiter.CheckLimit(key)
			if !result.Allowed {
				seconds := int(math.Ceil(result.RetryAfter.Seconds()))
				if seconds < 1 {
					seconds = 1
				}
				logger.Warn("rate limit exceeded",
					zap.String("request_id", GetRequestIDFromContext(r.Context())),
					zap.String("key", key),
					zap.Int("retry_after_s", seconds))

				w.Header().Set("Retry-After", strconv.Itoa(seconds))
				_ = utils.WriteError(w, http.StatusTooManyRequests, "rate_limited", "Too many requests", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func rateLimitKey(r *http.Request) string {
	if claims := GetClaimsFromContext(r.Context()); claims != nil && claims.Sub != "" {
		return "sub:" + claims.Sub
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
