package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	pkghttp "github.com/nadhifr/eventra/pkg/http"
)

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
}

func TestWriteJSON(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, 201, map[string]string{"status": "created"})

	assert.Equal(t, 201, w.Code)

	var body map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &body)
	assert.NoError(t, err)
	assert.Equal(t, "created", body["status"])
}

func TestWriteNotFound(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteNotFound(w, "missing")

	assert.Equal(t, 404, w.Code)

	var resp pkghttp.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error)
}
