package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitByIP(t *testing.T) {
	handler := RateLimitByIP(RateLimitConfig{RequestsPerMinute: 3})(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/attendance/verify", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/attendance/verify", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestCORS_AllowedOrigin(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://events.example.com"}))(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/1", nil)
	req.Header.Set("Origin", "https://events.example.com")
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://events.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_UnknownOriginFailsClosed(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://events.example.com"}))(okHandler())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/events/1", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	handler.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHasSensitiveParam(t *testing.T) {
	assert.True(t, hasSensitiveParam("token=1234567890"))
	assert.True(t, hasSensitiveParam("event_id=e1&token=1234567890"))
	assert.False(t, hasSensitiveParam("event_id=e1"))
	assert.False(t, hasSensitiveParam(""))
}
