package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/httprate"
)

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int
}

// DefaultVerifyRateLimit limits the attendance verification endpoint. The
// uniform invalid-token error already hides which guesses were close; the
// limit makes brute forcing a 10-digit token impractical.
func DefaultVerifyRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 10}
}

// DefaultAuthRateLimit limits the admin login endpoint.
func DefaultAuthRateLimit() RateLimitConfig {
	return RateLimitConfig{RequestsPerMinute: 5}
}

// RateLimitByIP creates a middleware that rate limits requests by client IP
func RateLimitByIP(config RateLimitConfig) func(next http.Handler) http.Handler {
	return httprate.Limit(
		config.RequestsPerMinute,
		1*time.Minute,
		httprate.WithKeyByRealIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":"Rate limit exceeded"}`))
		}),
	)
}
