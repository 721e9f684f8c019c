package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TextFieldStyle positions a single text field on the certificate template.
// Coordinates are pixels on the template image.
type TextFieldStyle struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	FontSize float64 `json:"font_size"`
	Color    string  `json:"color"` // hex, e.g. "#1a1a1a"
	Align    string  `json:"align"` // "left", "center" or "right"
}

// QRStyle positions the verification QR code on the certificate template.
type QRStyle struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size int     `json:"size"` // edge length in pixels
}

// CertificateLayout is the per-event mapping from field name to style,
// stored as JSONB on the event row. Recognized field names are
// "participant_name", "event_date" and "certificate_number".
type CertificateLayout struct {
	Fields map[string]TextFieldStyle `json:"fields"`
	QR     *QRStyle                  `json:"qr,omitempty"`
}

type Event struct {
	ID                      string
	Code                    string // short code used in certificate numbers
	Title                   string
	Description             string
	EventDate               time.Time
	Location                string
	FeeAmount               decimal.Decimal // zero = free event
	CertificateEnabled      bool
	CertificateTemplatePath string // object key in the artifact store
	CertificateLayout       *CertificateLayout
	CertificatesGeneratedAt *time.Time
	CreatedAt               time.Time
	UpdatedAt               time.Time
}

// IsFree reports whether registration requires no payment.
func (e *Event) IsFree() bool {
	return e.FeeAmount.IsZero()
}

// CanIssueCertificates checks the guard preconditions for certificate issuance.
func (e *Event) CanIssueCertificates() bool {
	return e.CertificateEnabled && e.CertificateTemplatePath != ""
}
