package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// sensitiveParams are query parameters that must never reach the logs.
// Attendance tokens arrive in QR-code deep links as ?token=...
var sensitiveParams = map[string]bool{
	"token":     true,
	"signature": true,
}

// RequestLogger returns a middleware for logging HTTP requests with
// sensitive query parameters redacted.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			wrapped := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start)
			requestID := middleware.GetReqID(r.Context())

			path := r.URL.Path
			if r.URL.RawQuery != "" {
				if hasSensitiveParam(r.URL.RawQuery) {
					path = path + "?[REDACTED]"
				} else {
					path = path + "?" + r.URL.RawQuery
				}
			}

			attrs := []slog.Attr{
				slog.String("method", r.Method),
				slog.String("path", path),
				slog.Int("status", wrapped.Status()),
				slog.Int64("bytes", int64(wrapped.BytesWritten())),
				slog.String("duration", duration.String()),
				slog.String("request_id", requestID),
				slog.String("remote_addr", r.RemoteAddr),
			}

			logger.LogAttrs(context.Background(), slog.LevelInfo, "http_request", attrs...)
		})
	}
}

func hasSensitiveParam(rawQuery string) bool {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return true
	}
	for key := range values {
		if sensitiveParams[key] {
			return true
		}
	}
	return false
}
