package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/nadhifr/eventra/internal/models"
	pkghttp "github.com/nadhifr/eventra/pkg/http"
)

// maxCallbackBodySize bounds the gateway callback body.
const maxCallbackBodySize = 64 * 1024

// PaymentCallbackService defines the interface for payment callback handling
type PaymentCallbackService interface {
	HandlePaymentCallback(ctx context.Context, body []byte, signature string) error
}

// PaymentHandler handles gateway payment callbacks
type PaymentHandler struct {
	service PaymentCallbackService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(service PaymentCallbackService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// Callback handles POST /payments/callback. The raw body is passed through
// untouched because the HMAC signature covers the exact bytes sent.
func (h *PaymentHandler) Callback(w http.ResponseWriter, r *http.Request) {
	signature := r.Header.Get("X-Signature")
	if signature == "" {
		pkghttp.WriteUnauthorized(w, "missing signature")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBodySize))
	if err != nil {
		pkghttp.WriteBadRequest(w, "unable to read request body")
		return
	}

	if err := h.service.HandlePaymentCallback(r.Context(), body, signature); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidSignature):
			pkghttp.WriteUnauthorized(w, "invalid signature")
		case errors.Is(err, models.ErrPaymentAlreadyProcessed):
			// Acknowledge duplicates so the gateway stops retrying.
			pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "already_processed"})
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "unknown invoice")
		case errors.Is(err, models.ErrBadRequest):
			pkghttp.WriteBadRequest(w, "malformed callback")
		default:
			pkghttp.WriteInternalError(w, "callback processing failed")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
