package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/nadhifr/eventra/pkg/queue"
)

// Mailer delivers attendance-token emails. The token flow treats mail
// delivery as best effort: a send failure never rolls back token issuance.
type Mailer interface {
	SendAttendanceToken(ctx context.Context, p queue.EmailPayload) error
}

// SESMailer sends attendance-token emails directly through AWS SES. It is
// used inline when no Redis queue is configured, and by the worker binary
// to drain the queue.
type SESMailer struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

func NewSESMailer(region, fromAddress string, logger *slog.Logger) (*SESMailer, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESMailer{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendAttendanceToken sends the attendance token email for one registration.
func (m *SESMailer) SendAttendanceToken(ctx context.Context, p queue.EmailPayload) error {
	expires := p.ExpiresAt.Format("2 January 2006 15:04 MST")

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .token { font-size: 28px; letter-spacing: 4px; font-family: monospace; background-color: #eef2f7; padding: 16px; text-align: center; border-radius: 4px; margin: 20px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Your Attendance Token</h1>
        </div>
        <p>You are registered for <strong>%s</strong>.</p>
        <p>Present this token at check-in to confirm your attendance:</p>
        <div class="token">%s</div>
        <p>The token can be used once and expires on %s.</p>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, p.EventTitle, p.Token, expires)

	textBody := fmt.Sprintf(`Your Attendance Token

You are registered for %s.

Present this token at check-in to confirm your attendance:

    %s

The token can be used once and expires on %s.

This is an automated message. Please do not reply to this email.
`, p.EventTitle, p.Token, expires)

	input := &ses.SendEmailInput{
		Source: aws.String(m.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{p.Recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(fmt.Sprintf("Attendance token for %s", p.EventTitle)),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(textBody),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}

	if _, err := m.sesClient.SendEmail(ctx, input); err != nil {
		m.logger.Error("failed to send attendance token email",
			slog.String("recipient", p.Recipient),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("attendance token email sent",
		slog.String("recipient", p.Recipient),
		slog.String("participant_id", p.ParticipantID))
	return nil
}

// QueueMailer hands attendance-token emails to the Redis-backed job queue.
// The worker binary performs the actual SES send.
type QueueMailer struct {
	queue  *queue.Queue
	logger *slog.Logger
}

func NewQueueMailer(q *queue.Queue, logger *slog.Logger) *QueueMailer {
	return &QueueMailer{queue: q, logger: logger}
}

func (m *QueueMailer) SendAttendanceToken(ctx context.Context, p queue.EmailPayload) error {
	// Enqueue should survive a canceled request context; give it its own
	// short deadline instead.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	if err := m.queue.EnqueueEmail(ctx, p); err != nil {
		m.logger.Error("failed to enqueue attendance token email",
			slog.String("recipient", p.Recipient),
			slog.Any("error", err))
		return fmt.Errorf("failed to enqueue email: %w", err)
	}
	return nil
}
