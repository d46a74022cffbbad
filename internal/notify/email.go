package notify

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/time/rate"
)

// EmailSender sends one email. Implementations can be swapped (SendGrid,
// SES, SMTP) without changing callers.
type EmailSender interface {
	Send(ctx context.Context, msg Message) error
}

// Attachment is an optional file on a Message.
type Attachment struct {
	Filename string
	MIMEType string
	Content  []byte
}

// Message is an email to be sent.
type Message struct {
	To         string
	ToName     string
	Subject    string
	Body       string
	Attachment *Attachment
}

// SendGridConfig holds SendGrid settings.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// PerSecond caps outbound sends. Zero means 5/s.
	PerSecond float64
}

// SendGridSender sends emails through the SendGrid API, throttled so a
// burst of reminders cannot trip the provider's rate limits.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// NewSendGridSender creates a SendGrid sender. Returns nil when no API key
// is configured; callers should fall back to the stub.
func NewSendGridSender(cfg SendGridConfig, logger zerolog.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if cfg.FromName == "" {
		cfg.FromName = "MediConnect"
	}
	if cfg.PerSecond <= 0 {
		cfg.PerSecond = 5
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		limiter:   rate.NewLimiter(rate.Limit(cfg.PerSecond), 1),
		logger:    logger.With().Str("component", "email").Logger(),
	}
}

// Send delivers the message through SendGrid.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, msg.Body)

	if msg.Attachment != nil {
		attachment := mail.NewAttachment()
		attachment.SetFilename(msg.Attachment.Filename)
		attachment.SetType(msg.Attachment.MIMEType)
		attachment.SetContent(base64.StdEncoding.EncodeToString(msg.Attachment.Content))
		attachment.SetDisposition("attachment")
		message.AddAttachment(attachment)
	}

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error().Err(err).Str("to", msg.To).Msg("sendgrid send failed")
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error().
			Int("status", response.StatusCode).
			Str("to", msg.To).
			Msg("sendgrid rejected message")
		return fmt.Errorf("sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email sent")
	return nil
}

// StubSender logs instead of sending. Used when email is not configured.
type StubSender struct {
	logger zerolog.Logger
}

// NewStubSender creates a no-op sender.
func NewStubSender(logger zerolog.Logger) *StubSender {
	return &StubSender{logger: logger.With().Str("component", "email").Logger()}
}

func (s *StubSender) Send(ctx context.Context, msg Message) error {
	s.logger.Info().Str("to", msg.To).Str("subject", msg.Subject).Msg("email disabled, not sending")
	return nil
}
