package gateway

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nadhifr/eventra/internal/models"
)

const testHMACKey = "test-hmac-key"

func testClient(baseURL string) *Client {
	return NewClient(Config{
		BaseURL:    baseURL,
		MerchantID: "merchant-001",
		HMACKey:    testHMACKey,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestClient_CreateInvoice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/invoices", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, Sign(body, []byte(testHMACKey)), r.Header.Get("X-Signature"))

		var req createInvoiceRequest
		require.NoError(t, json.Unmarshal(body, &req))
		assert.Equal(t, "merchant-001", req.MerchantID)
		assert.Equal(t, "pay-123", req.ReferenceID)
		assert.True(t, req.Amount.Equal(decimal.NewFromInt(150000)))

		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"data": map[string]any{
				"invoiceId":  "inv-999",
				"paymentUrl": "https://pay.example.com/inv-999",
				"amount":     "150000",
				"status":     "pending",
			},
		})
	}))
	defer srv.Close()

	inv, err := testClient(srv.URL).CreateInvoice(context.Background(),
		"pay-123", decimal.NewFromInt(150000), "GopherCon registration", "ayu@example.com")

	require.NoError(t, err)
	assert.Equal(t, "inv-999", inv.InvoiceID)
	assert.Equal(t, "https://pay.example.com/inv-999", inv.PaymentURL)
}

func TestClient_CreateInvoice_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ERROR",
			"message": "merchant suspended",
		})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateInvoice(context.Background(),
		"pay-123", decimal.NewFromInt(150000), "GopherCon registration", "ayu@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "merchant suspended")
}

func TestClient_CreateInvoice_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL).CreateInvoice(context.Background(),
		"pay-123", decimal.NewFromInt(150000), "GopherCon registration", "ayu@example.com")

	assert.Error(t, err)
}

func TestClient_CheckStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/invoices/status", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"status": "OK",
			"data": map[string]any{
				"invoiceId": "inv-999",
				"status":    "paid",
			},
		})
	}))
	defer srv.Close()

	inv, err := testClient(srv.URL).CheckStatus(context.Background(), "inv-999")

	require.NoError(t, err)
	assert.Equal(t, "paid", inv.Status)
}

func TestClient_VerifySignature(t *testing.T) {
	c := testClient("http://gateway.local")
	body := []byte(`{"invoiceId":"inv-999","status":"paid"}`)

	assert.NoError(t, c.VerifySignature(body, Sign(body, []byte(testHMACKey))))
	assert.ErrorIs(t, c.VerifySignature(body, "deadbeef"), models.ErrInvalidSignature)
	assert.ErrorIs(t, c.VerifySignature(body, ""), models.ErrInvalidSignature)

	// Tampered body invalidates the original signature.
	sig := Sign(body, []byte(testHMACKey))
	tampered := []byte(`{"invoiceId":"inv-999","status":"failed"}`)
	assert.ErrorIs(t, c.VerifySignature(tampered, sig), models.ErrInvalidSignature)
}
