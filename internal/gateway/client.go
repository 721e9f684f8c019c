// Package gateway implements the HTTP client for the external payment
// provider used for paid event registrations. Requests are signed with
// an HMAC-SHA256 of the raw body; callback notifications carry the same
// signature scheme and must be verified before any state change.
package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nadhifr/eventra/internal/models"
)

type Config struct {
	BaseURL    string
	MerchantID string
	HMACKey    string
}

type Client struct {
	baseURL    string
	merchantID string
	hmacKey    string
	hc         *http.Client
	logger     *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    cfg.BaseURL,
		merchantID: cfg.MerchantID,
		hmacKey:    cfg.HMACKey,
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

// Invoice is the provider's view of a payment request.
type Invoice struct {
	InvoiceID  string          `json:"invoiceId"`
	PaymentURL string          `json:"paymentUrl"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
	ExpiresAt  time.Time       `json:"expiresAt"`
}

type createInvoiceRequest struct {
	MerchantID  string          `json:"merchantId"`
	ReferenceID string          `json:"referenceId"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description"`
	PayerEmail  string          `json:"payerEmail"`
}

type providerReply struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// CreateInvoice opens an invoice with the provider for a registration.
// referenceID is our payment record ID and comes back on the callback.
func (c *Client) CreateInvoice(ctx context.Context, referenceID string, amount decimal.Decimal, description, payerEmail string) (*Invoice, error) {
	body, err := json.Marshal(createInvoiceRequest{
		MerchantID:  c.merchantID,
		ReferenceID: referenceID,
		Amount:      amount,
		Currency:    "IDR",
		Description: description,
		PayerEmail:  payerEmail,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal invoice request: %w", err)
	}

	var inv Invoice
	if err := c.post(ctx, "/v1/invoices", body, &inv); err != nil {
		return nil, err
	}

	return &inv, nil
}

// CheckStatus queries the provider for the current state of an invoice.
// Used by the reconciliation sweep for callbacks that never arrived.
func (c *Client) CheckStatus(ctx context.Context, invoiceID string) (*Invoice, error) {
	body, err := json.Marshal(map[string]string{
		"merchantId": c.merchantID,
		"invoiceId":  invoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal status request: %w", err)
	}

	var inv Invoice
	if err := c.post(ctx, "/v1/invoices/status", body, &inv); err != nil {
		return nil, err
	}

	return &inv, nil
}

func (c *Client) post(ctx context.Context, path string, body []byte, out any) error {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return fmt.Errorf("parse gateway base url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.String()+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Signature", Sign(body, []byte(c.hmacKey)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("gateway returned non-OK status",
			slog.String("path", path),
			slog.Int("status_code", resp.StatusCode))
		return fmt.Errorf("gateway %s: unexpected status %d", path, resp.StatusCode)
	}

	var reply providerReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	if reply.Status != "OK" {
		return fmt.Errorf("gateway %s: status %s: %s", path, reply.Status, reply.Message)
	}

	if err := json.Unmarshal(reply.Data, out); err != nil {
		return fmt.Errorf("decode gateway payload: %w", err)
	}
	return nil
}

// Sign computes the hex HMAC-SHA256 signature for a raw payload.
func Sign(body, key []byte) string {
	h := hmac.New(sha256.New, key)
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifySignature checks a callback body against the signature header in
// constant time. Callers must reject the notification on error before
// reading any field from the body.
func (c *Client) VerifySignature(body []byte, signature string) error {
	expected := Sign(body, []byte(c.hmacKey))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return models.ErrInvalidSignature
	}
	return nil
}
