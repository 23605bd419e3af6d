package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/folio/internal/metrics"
	"github.com/BradenHooton/folio/pkg/logger"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// Notifier tells an account owner that their account was locked
type Notifier interface {
	SendLockoutNotice(ctx context.Context, email string, until time.Time) error
}

// SESAPI is the subset of the SES client the notifier uses
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   SESAPI
	fromAddress string
	baseURL     string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(ctx context.Context, region, fromAddress, baseURL string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return NewSESNotifier(ses.NewFromConfig(cfg), fromAddress, baseURL, logger), nil
}

// NewSESNotifier wraps an existing SES client
func NewSESNotifier(client SESAPI, fromAddress, baseURL string, logger *slog.Logger) *AWSSESEmailService {
	return &AWSSESEmailService{
		sesClient:   client,
		fromAddress: fromAddress,
		baseURL:     baseURL,
		logger:      logger,
	}
}

// SendLockoutNotice emails the account owner the time the lockout ends
func (s *AWSSESEmailService) SendLockoutNotice(ctx context.Context, email string, until time.Time) error {
	untilText := until.UTC().Format("Jan 2, 2006 15:04 MST")
	resetLink := fmt.Sprintf("%s/login", s.baseURL)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <style>
        body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
        .container { max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background-color: #f8f9fa; padding: 20px; text-align: center; border-radius: 4px; }
        .warning { background-color: #fff3cd; padding: 10px; border-left: 4px solid #ffc107; margin: 10px 0; }
        .footer { color: #666; font-size: 12px; margin-top: 20px; padding-top: 20px; border-top: 1px solid #eee; }
    </style>
</head>
<body>
    <div class="container">
        <div class="header">
            <h1>Your account has been temporarily locked</h1>
        </div>
        <p>We detected several failed sign-in attempts on your account. Sign-in is paused until <strong>%s</strong>.</p>
        <p>Once the lock ends you can sign in again at <a href="%s">%s</a>.</p>
        <div class="warning">
            <strong>Wasn't you?</strong> Someone may be trying to guess your password. Consider changing it once you are signed in.
        </div>
        <div class="footer">
            <p>This is an automated message. Please do not reply to this email.</p>
        </div>
    </div>
</body>
</html>
`, untilText, resetLink, resetLink)

	textBody := fmt.Sprintf(`Your account has been temporarily locked

We detected several failed sign-in attempts on your account. Sign-in is paused until %s.

Once the lock ends you can sign in again at %s

Wasn't you? Someone may be trying to guess your password. Consider changing it once you are signed in.

This is an automated message. Please do not reply to this email.
`, untilText, resetLink)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String("Your account has been temporarily locked"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		metrics.NotificationsTotal.WithLabelValues("failed").Inc()
		s.logger.Error("failed to send lockout notice via SES",
			slog.String("email", logger.SanitizedEmail(email)),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("sent").Inc()
	s.logger.Info("lockout notice sent",
		slog.String("email", logger.SanitizedEmail(email)),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}

// LogNotifier writes lockout notices to the log instead of sending them
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier for environments without email delivery
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendLockoutNotice(ctx context.Context, email string, until time.Time) error {
	n.logger.InfoContext(ctx, "lockout notice (email disabled)",
		slog.String("email", logger.SanitizedEmail(email)),
		slog.Time("locked_until", until),
	)
	return nil
}
