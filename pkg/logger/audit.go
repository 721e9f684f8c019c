package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent records an attendance or issuance action for the audit trail.
type AuditEvent struct {
	EventType     string // e.g. "token_issued", "check_in", "certificate_generated"
	ParticipantID string
	EventID       string
	IPAddress     string
	Success       bool
	FailureReason string
}

// AuditLogger provides structured audit logging on top of slog
type AuditLogger struct {
	logger *slog.Logger
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogCheckIn logs an attendance verification attempt
func (al *AuditLogger) LogCheckIn(event AuditEvent) {
	al.log("attendance", event)
}

// LogIssuance logs token or certificate issuance events
func (al *AuditLogger) LogIssuance(event AuditEvent) {
	al.log("issuance", event)
}

func (al *AuditLogger) log(auditType string, event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.ParticipantID != "" {
		attrs = append(attrs, slog.String("participant_id", event.ParticipantID))
	}
	if event.EventID != "" {
		attrs = append(attrs, slog.String("event_id", event.EventID))
	}
	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}
