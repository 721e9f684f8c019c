package models

import (
	"time"
)

// Certificate status values. A row is created as "pending" before rendering;
// a render failure leaves the pending stub in place so it can be retried.
const (
	CertificatePending   = "pending"
	CertificateGenerated = "generated"
	CertificateIssued    = "issued"
)

// Certificate is the issued certificate record. Participant name, event title
// and event date are snapshotted at issue time so later edits to the event or
// registration do not rewrite history. At most one row exists per
// (event, participant) pair.
type Certificate struct {
	ID                string
	EventID           string
	ParticipantID     string
	CertificateNumber string
	ParticipantName   string
	EventTitle        string
	EventDate         time.Time
	FilePath          string
	FileName          string
	FileSize          int64
	Status            string
	IssuedAt          time.Time
	DownloadCount     int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// IsGenerated reports whether the PDF artifact exists for this certificate.
func (c *Certificate) IsGenerated() bool {
	return c.Status == CertificateGenerated || c.Status == CertificateIssued
}
